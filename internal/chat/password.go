package chat

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost matches the cost the relay has always used for room
// passwords.
const DefaultBcryptCost = 10

const maxSecretBytes = 72

// PasswordHash is the stored one-way representation of a room secret.
type PasswordHash string

// PasswordVerifier hashes room secrets and checks candidates against them.
type PasswordVerifier interface {
	Hash(secret string) (PasswordHash, error)
	Verify(secret string, hash PasswordHash) bool
}

// BcryptVerifier is a PasswordVerifier backed by bcrypt.
type BcryptVerifier struct {
	cost int
}

// NewBcryptVerifier returns a verifier using the given bcrypt cost. Costs
// outside bcrypt's accepted range fall back to DefaultBcryptCost.
func NewBcryptVerifier(cost int) *BcryptVerifier {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	return &BcryptVerifier{cost: cost}
}

// Hash generates a salted bcrypt hash of secret.
func (v *BcryptVerifier) Hash(secret string) (PasswordHash, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(secret), v.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", fmt.Errorf("%w: password is longer than %d bytes", ErrInvalidInput, maxSecretBytes)
		}
		return "", err
	}
	return PasswordHash(b), nil
}

// Verify reports whether secret matches hash. A hash that bcrypt cannot
// parse was never produced by Hash, so it panics.
func (v *BcryptVerifier) Verify(secret string, hash PasswordHash) bool {
	// bcrypt only looks at the first 72 bytes; Hash never accepts more.
	if len(secret) > maxSecretBytes {
		return false
	}
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret))
	switch {
	case err == nil:
		return true
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword),
		errors.Is(err, bcrypt.ErrPasswordTooLong):
		return false
	default:
		panic(fmt.Sprintf("chat: malformed password hash: %v", err))
	}
}
