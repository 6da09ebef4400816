// Package secrets checks presented secrets against a configured one without
// leaking timing information about the comparison.
package secrets

import (
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	dErrors "vcregistry/pkg/domain-errors"
)

// Verifier checks a presented secret. A mismatch is CodeUnauthorized.
type Verifier interface {
	Verify(secret string) error
}

// Digest holds the SHA-256 of a plaintext secret. Comparing fixed-size
// digests keeps the time independent of the secret's length.
type Digest struct {
	sum [sha256.Size]byte
}

// NewDigest returns nil for a blank secret.
func NewDigest(secret string) *Digest {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil
	}
	return &Digest{sum: sha256.Sum256([]byte(secret))}
}

func (d *Digest) Verify(secret string) error {
	given := sha256.Sum256([]byte(strings.TrimSpace(secret)))
	if subtle.ConstantTimeCompare(given[:], d.sum[:]) != 1 {
		return dErrors.New(dErrors.CodeUnauthorized, "secret mismatch")
	}
	return nil
}

// Bcrypt verifies against a bcrypt hash, so the plaintext never has to be
// present in the server's environment.
type Bcrypt struct {
	hash []byte
}

// NewBcrypt validates hash and wraps it.
func NewBcrypt(hash string) (*Bcrypt, error) {
	hash = strings.TrimSpace(hash)
	if _, err := bcrypt.Cost([]byte(hash)); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "invalid bcrypt hash")
	}
	return &Bcrypt{hash: []byte(hash)}, nil
}

func (b *Bcrypt) Verify(secret string) error {
	err := bcrypt.CompareHashAndPassword(b.hash, []byte(strings.TrimSpace(secret)))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword), errors.Is(err, bcrypt.ErrPasswordTooLong):
		return dErrors.New(dErrors.CodeUnauthorized, "secret mismatch")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "could not verify secret")
	}
}

// Hash creates a bcrypt hash suitable for ISSUE_SECRET_HASH.
func Hash(secret string) (string, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return "", dErrors.New(dErrors.CodeValidation, "secret cannot be empty")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", dErrors.New(dErrors.CodeValidation, "secret is too long")
		}
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "could not hash secret")
	}
	return string(hashed), nil
}
