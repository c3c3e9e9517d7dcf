package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var jwtSigningMethod = jwt.SigningMethodHS256

const sessionTokenTTL = time.Minute

// Keys holds the partner app credentials a session token is bound to.
type Keys struct {
	APIKey    string
	APISecret string
}

func (k Keys) validate() error {
	if k.APISecret == "" {
		return fmt.Errorf("shopify api secret is required")
	}
	if k.APIKey == "" {
		return fmt.Errorf("shopify api key is required")
	}
	return nil
}

// MintSessionToken issues a session token the way App Bridge does.
func MintSessionToken(keys Keys, now time.Time, payload SessionTokenPayload) (string, error) {
	if err := keys.validate(); err != nil {
		return "", err
	}
	shop := strings.TrimSpace(payload.Shop)
	if shop == "" {
		return "", fmt.Errorf("shop is required")
	}

	jti := strings.TrimSpace(payload.JTI)
	if jti == "" {
		jti = uuid.NewString()
	}

	claims := SessionTokenClaims{
		Dest:      "https://" + shop,
		SessionID: payload.SessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "https://" + shop + "/admin",
			Subject:   payload.UserID,
			Audience:  jwt.ClaimStrings{keys.APIKey},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(sessionTokenTTL)),
			ID:        jti,
		},
	}

	token := jwt.NewWithClaims(jwtSigningMethod, claims)
	signed, err := token.SignedString([]byte(keys.APISecret))
	if err != nil {
		return "", fmt.Errorf("signing session token: %w", err)
	}
	return signed, nil
}

// ParseSessionToken validates signature, audience and lifetime, and requires a
// dest claim naming a shop.
func ParseSessionToken(keys Keys, tokenString string, opts ...jwt.ParserOption) (*SessionTokenClaims, error) {
	if err := keys.validate(); err != nil {
		return nil, err
	}

	claims := &SessionTokenClaims{}
	opts = append([]jwt.ParserOption{
		jwt.WithValidMethods([]string{jwtSigningMethod.Alg()}),
		jwt.WithAudience(keys.APIKey),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(5 * time.Second),
	}, opts...)

	_, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(token *jwt.Token) (interface{}, error) {
			if token.Method != jwtSigningMethod {
				return nil, fmt.Errorf("unexpected signing method %s", token.Header["alg"])
			}
			return []byte(keys.APISecret), nil
		},
		opts...,
	)
	if err != nil {
		return nil, err
	}
	if claims.Shop() == "" {
		return nil, fmt.Errorf("session token missing dest")
	}
	return claims, nil
}
