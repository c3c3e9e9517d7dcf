package security

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
)

const sealedPrefix = "v1:"

// ErrCiphertextTooShort signals a sealed value that cannot hold a nonce.
var ErrCiphertextTooShort = errors.New("ciphertext too short")

// TokenCipher seals credentials before they reach the datastore.
type TokenCipher interface {
	Seal(plaintext string) (string, error)
	Open(stored string) (string, error)
}

// NewTokenCipher returns an XChaCha20-Poly1305 cipher for a 32 byte key, or a
// passthrough cipher when key is empty.
func NewTokenCipher(key []byte) (TokenCipher, error) {
	if len(key) == 0 {
		return plainCipher{}, nil
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("init token cipher: %w", err)
	}
	return &xchachaCipher{aead: aead}, nil
}

type xchachaCipher struct {
	aead cipher.AEAD
}

// Seal returns v1:base64url(nonce|ciphertext).
func (c *xchachaCipher) Seal(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	out := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return sealedPrefix + base64.RawURLEncoding.EncodeToString(out), nil
}

// Open reverses Seal. Values without the version prefix predate encryption and
// are returned as stored.
func (c *xchachaCipher) Open(stored string) (string, error) {
	if !strings.HasPrefix(stored, sealedPrefix) {
		return stored, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimPrefix(stored, sealedPrefix))
	if err != nil {
		return "", fmt.Errorf("decode sealed token: %w", err)
	}
	ns := c.aead.NonceSize()
	if len(raw) < ns {
		return "", ErrCiphertextTooShort
	}
	plain, err := c.aead.Open(nil, raw[:ns], raw[ns:], nil)
	if err != nil {
		return "", fmt.Errorf("open sealed token: %w", err)
	}
	return string(plain), nil
}

type plainCipher struct{}

func (plainCipher) Seal(plaintext string) (string, error) { return plaintext, nil }

func (plainCipher) Open(stored string) (string, error) {
	if strings.HasPrefix(stored, sealedPrefix) {
		return "", errors.New("sealed token found but no encryption key configured")
	}
	return stored, nil
}
