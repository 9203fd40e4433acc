// Package auth guards the admin surface with a static password.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"

	"github.com/go-faster/errors"
)

// ErrUnauthorized is returned for a missing or wrong password.
var ErrUnauthorized = errors.New("unauthorized")

// Digest returns the hex encoded HMAC-SHA256 of password keyed by pepper.
// Operators store this value in configuration instead of the password.
func Digest(pepper []byte, password string) string {
	return hex.EncodeToString(sum(pepper, password))
}

func sum(pepper []byte, password string) []byte {
	mac := hmac.New(sha256.New, pepper)
	mac.Write([]byte(password))
	return mac.Sum(nil)
}

// PasswordGate authenticates admin requests against a configured digest.
// A gate without a digest rejects every password.
type PasswordGate struct {
	pepper []byte
	digest []byte
}

// NewPasswordGate creates a gate for the hex encoded digest.
func NewPasswordGate(pepper []byte, hexDigest string) (*PasswordGate, error) {
	g := &PasswordGate{pepper: pepper}
	if hexDigest == "" {
		return g, nil
	}
	digest, err := hex.DecodeString(hexDigest)
	if err != nil {
		return nil, errors.Wrap(err, "decode admin password digest")
	}
	if len(digest) != sha256.Size {
		return nil, errors.Errorf("admin password digest must be %d bytes, got %d", sha256.Size, len(digest))
	}
	g.digest = digest
	return g, nil
}

// Enabled reports whether a digest is configured.
func (g *PasswordGate) Enabled() bool {
	return len(g.digest) > 0
}

// Authenticate compares the HMAC of password with the configured digest in
// constant time.
func (g *PasswordGate) Authenticate(password string) error {
	if !g.Enabled() || password == "" {
		return ErrUnauthorized
	}
	if subtle.ConstantTimeCompare(sum(g.pepper, password), g.digest) != 1 {
		return ErrUnauthorized
	}
	return nil
}
