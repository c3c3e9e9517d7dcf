package shopify

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strings"

	"github.com/dropsaas/shopify-bridge/pkg/security"
)

// ErrUnauthenticated is returned when neither the trusted bearer nor the
// HMAC signature authenticates a delivery.
var ErrUnauthenticated = errors.New("webhook authentication failed")

// AuthMethod records how a delivery was authenticated.
type AuthMethod string

const (
	AuthBearer AuthMethod = "bearer"
	AuthHMAC   AuthMethod = "hmac"
)

// Sign returns the base64 HMAC-SHA256 of body keyed by secret, in the form
// Shopify sends in X-Shopify-Hmac-Sha256.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Verifier authenticates inbound webhook deliveries. The body passed to it
// must be the exact bytes read from the wire.
type Verifier struct {
	apiSecret     string
	serviceSecret string
}

// NewVerifier builds a verifier. serviceSecret may be empty, which disables
// the internal bearer path.
func NewVerifier(apiSecret, serviceSecret string) *Verifier {
	return &Verifier{
		apiSecret:     strings.TrimSpace(apiSecret),
		serviceSecret: strings.TrimSpace(serviceSecret),
	}
}

// VerifyHMAC reports whether header is the signature of body. A missing
// secret or header never verifies.
func (v *Verifier) VerifyHMAC(body []byte, header string) bool {
	header = strings.TrimSpace(header)
	if v == nil || v.apiSecret == "" || header == "" {
		return false
	}
	expected := Sign(body, v.apiSecret)
	return hmac.Equal([]byte(expected), []byte(header))
}

// TrustedBearer reports whether authorization is exactly "Bearer <service secret>".
func (v *Verifier) TrustedBearer(authorization string) bool {
	if v == nil || v.serviceSecret == "" {
		return false
	}
	token, ok := strings.CutPrefix(authorization, "Bearer ")
	if !ok {
		return false
	}
	return security.EqualSecret(token, v.serviceSecret)
}

// Authenticate checks the internal bearer first and falls back to the HMAC.
func (v *Verifier) Authenticate(body []byte, hmacHeader, authorization string) (AuthMethod, error) {
	if v.TrustedBearer(authorization) {
		return AuthBearer, nil
	}
	if v.VerifyHMAC(body, hmacHeader) {
		return AuthHMAC, nil
	}
	return "", ErrUnauthenticated
}

// BearerHeader returns the Authorization value a relay attaches.
func BearerHeader(serviceSecret string) string {
	return "Bearer " + serviceSecret
}
