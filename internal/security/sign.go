package security

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

var ErrBadSignature = errors.New("signature mismatch")

const minSecretLength = 16

// Signer produces and checks "payload.mac" tokens, both halves raw URL-safe
// base64, with HMAC-SHA256 over the payload.
type Signer struct {
	key []byte
}

func NewSigner(secret string) (*Signer, error) {
	if len(secret) < minSecretLength {
		return nil, fmt.Errorf("session secret must be at least %d characters", minSecretLength)
	}
	return &Signer{key: []byte(secret)}, nil
}

func (s *Signer) Sign(payload []byte) string {
	enc := base64.RawURLEncoding
	return enc.EncodeToString(payload) + "." + enc.EncodeToString(s.mac(payload))
}

func (s *Signer) Verify(token string) ([]byte, error) {
	encodedPayload, encodedMAC, found := strings.Cut(token, ".")
	if !found {
		return nil, ErrBadSignature
	}
	payload, err := base64.RawURLEncoding.DecodeString(encodedPayload)
	if err != nil {
		return nil, ErrBadSignature
	}
	mac, err := base64.RawURLEncoding.DecodeString(encodedMAC)
	if err != nil || !hmac.Equal(mac, s.mac(payload)) {
		return nil, ErrBadSignature
	}
	return payload, nil
}

func (s *Signer) mac(payload []byte) []byte {
	h := hmac.New(sha256.New, s.key)
	h.Write(payload)
	return h.Sum(nil)
}

// RandomToken returns n random bytes as raw URL-safe base64.
func RandomToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// SameToken compares two secrets in constant time. Empty tokens never match.
func SameToken(got, want string) bool {
	if got == "" || want == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}
