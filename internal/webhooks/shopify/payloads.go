package shopifywebhook

import (
	"encoding/json"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	pkgerrors "github.com/dropsaas/shopify-bridge/pkg/errors"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" {
			return f.Name
		}
		return tag
	})
	return v
}

type customerPayload struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type addressPayload struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type orderPayload struct {
	ID             json.Number      `json:"id" validate:"required"`
	OrderNumber    json.Number      `json:"order_number"`
	Name           string           `json:"name"`
	CreatedAt      string           `json:"created_at"`
	Email          string           `json:"email"`
	Customer       *customerPayload `json:"customer"`
	BillingAddress *addressPayload  `json:"billing_address"`
	TotalPrice     string           `json:"total_price"`
	Currency       string           `json:"currency"`
}

type imagePayload struct {
	Src string `json:"src"`
}

type productPayload struct {
	ID     json.Number    `json:"id" validate:"required"`
	Title  string         `json:"title" validate:"required"`
	Handle string         `json:"handle"`
	Image  *imagePayload  `json:"image"`
	Images []imagePayload `json:"images"`
}

func decodePayload(raw []byte, dest any) error {
	if len(raw) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "webhook payload is empty")
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid webhook payload").
			WithDetails(map[string]any{"error": err.Error()})
	}
	if err := validate.Struct(dest); err != nil {
		details := map[string]string{}
		if errs, ok := err.(validator.ValidationErrors); ok {
			for _, fieldErr := range errs {
				details[fieldErr.Field()] = "is " + fieldErr.Tag()
			}
		}
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "webhook payload failed validation").WithDetails(details)
	}
	return nil
}

// orderNumber falls back to the display name without its "#" prefix.
func (p orderPayload) orderNumber() string {
	if n := strings.TrimSpace(p.OrderNumber.String()); n != "" {
		return n
	}
	return strings.TrimPrefix(strings.TrimSpace(p.Name), "#")
}

func (p orderPayload) customerEmail() *string {
	if p.Customer != nil {
		if v := nonEmpty(p.Customer.Email); v != nil {
			return v
		}
	}
	return nonEmpty(p.Email)
}

func (p orderPayload) customerFirstName() *string {
	if p.Customer != nil {
		if v := nonEmpty(p.Customer.FirstName); v != nil {
			return v
		}
	}
	if p.BillingAddress != nil {
		return nonEmpty(p.BillingAddress.FirstName)
	}
	return nil
}

func (p orderPayload) customerLastName() *string {
	if p.Customer != nil {
		if v := nonEmpty(p.Customer.LastName); v != nil {
			return v
		}
	}
	if p.BillingAddress != nil {
		return nonEmpty(p.BillingAddress.LastName)
	}
	return nil
}

// placedAt parses created_at, falling back to the delivery time.
func (p orderPayload) placedAt(fallback time.Time) time.Time {
	if raw := strings.TrimSpace(p.CreatedAt); raw != "" {
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			return ts.UTC()
		}
	}
	return fallback.UTC()
}

func (p orderPayload) totalPrice() decimal.NullDecimal {
	raw := strings.TrimSpace(p.TotalPrice)
	if raw == "" {
		return decimal.NullDecimal{}
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(value)
}

func (p productPayload) imageURL() *string {
	if p.Image != nil {
		if v := nonEmpty(p.Image.Src); v != nil {
			return v
		}
	}
	if len(p.Images) > 0 {
		return nonEmpty(p.Images[0].Src)
	}
	return nil
}

func nonEmpty(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
