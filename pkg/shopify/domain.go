package shopify

import (
	"regexp"
	"strings"
)

const (
	MyshopifySuffix      = ".myshopify.com"
	offlineSessionPrefix = "offline_"
)

var shopDomainRe = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*\.myshopify\.com$`)

// ShortID returns the platform shop identifier: everything before the first
// "." of the domain ("acme.myshopify.com" -> "acme").
func ShortID(shopDomain string) string {
	id, _, _ := strings.Cut(strings.TrimSpace(shopDomain), ".")
	return id
}

// NormalizeShopDomain lowercases the domain and strips any scheme, path or
// trailing slash a caller may have pasted.
func NormalizeShopDomain(raw string) string {
	shop := strings.ToLower(strings.TrimSpace(raw))
	shop = strings.TrimPrefix(shop, "https://")
	shop = strings.TrimPrefix(shop, "http://")
	if idx := strings.IndexAny(shop, "/?#"); idx >= 0 {
		shop = shop[:idx]
	}
	return shop
}

// IsValidShopDomain reports whether shop is a *.myshopify.com host.
func IsValidShopDomain(shop string) bool {
	return shopDomainRe.MatchString(shop)
}

// OfflineSessionID returns the session id of the shop's offline session.
func OfflineSessionID(shop string) string {
	return offlineSessionPrefix + shop
}

// ShopFromOfflineSessionID parses an offline session id. ok is false for
// online ids and anything else without the offline prefix.
func ShopFromOfflineSessionID(id string) (shop string, ok bool) {
	shop, ok = strings.CutPrefix(id, offlineSessionPrefix)
	if !ok || shop == "" {
		return "", false
	}
	return shop, true
}
