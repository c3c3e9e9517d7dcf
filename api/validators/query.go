package validators

import (
	"net/http"
	"strconv"
	"strings"

	pkgerrors "github.com/dropsaas/shopify-bridge/pkg/errors"
	"github.com/dropsaas/shopify-bridge/pkg/pagination"
	"github.com/dropsaas/shopify-bridge/pkg/shopify"
)

const maxQueryValueLen = 255

func ParseQueryInt(r *http.Request, key string, defaultVal, min, max int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return defaultVal, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "query parameter must be numeric").WithDetails(map[string]any{"field": key})
	}
	if value < min || value > max {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "query parameter out of range").WithDetails(map[string]any{"field": key, "min": min, "max": max})
	}
	return value, nil
}

// QueryString returns the trimmed value of key, capped to a sane length.
func QueryString(r *http.Request, key string) string {
	return SanitizeString(r.URL.Query().Get(key), maxQueryValueLen)
}

// RequireQuery returns the value of key or a validation error naming it.
func RequireQuery(r *http.Request, key string) (string, error) {
	value := QueryString(r, key)
	if value == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, key+" is required").WithDetails(map[string]any{"field": key})
	}
	return value, nil
}

// ParsePagination reads limit and offset, applying the default and max limits.
func ParsePagination(r *http.Request) (pagination.Params, error) {
	q := r.URL.Query()
	params, err := pagination.Parse(q.Get("limit"), q.Get("offset"))
	if err != nil {
		return pagination.Params{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}
	return params, nil
}

// ParseShopDomain reads and normalizes a *.myshopify.com domain from key.
func ParseShopDomain(r *http.Request, key string) (string, error) {
	raw, err := RequireQuery(r, key)
	if err != nil {
		return "", err
	}
	shop := shopify.NormalizeShopDomain(raw)
	if !shopify.IsValidShopDomain(shop) {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "invalid shop domain").WithDetails(map[string]any{"field": key})
	}
	return shop, nil
}
