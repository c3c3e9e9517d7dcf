package auth

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// SessionTokenPayload captures the data available when minting an App Bridge
// session token, mostly useful for tests and local tooling.
type SessionTokenPayload struct {
	Shop      string
	UserID    string
	SessionID string
	JTI       string
}

// SessionTokenClaims is the App Bridge session token issued by the admin
// iframe. Dest carries the shop origin ("https://acme.myshopify.com").
type SessionTokenClaims struct {
	Dest      string `json:"dest"`
	SessionID string `json:"sid,omitempty"`
	jwt.RegisteredClaims
}

// Shop returns the shop domain from the dest claim.
func (c *SessionTokenClaims) Shop() string {
	shop := strings.TrimPrefix(strings.TrimSpace(c.Dest), "https://")
	return strings.TrimSuffix(shop, "/")
}
