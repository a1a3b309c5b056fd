package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/anchorage-labs/anchorage/internal/shared"
)

// Hasher performs one-way password hashing with bcrypt. Hashing is
// deliberately expensive; callers treat every call as blocking work.
type Hasher struct{}

// Hash transforms a secret into its salted hash. Each call salts
// independently, so hashing the same secret twice yields different values.
func (Hasher) Hash(secret string) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("%w: empty secret", shared.ErrValidation)
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("%w: bcrypt: %v", shared.ErrEncoding, err)
	}
	return string(hashed), nil
}

// Verify reports whether secret matches hashed. A malformed hash yields
// false rather than an error: the caller above this component must not be
// able to distinguish password-format corruption from a wrong password.
func (Hasher) Verify(hashed, secret string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(secret)) == nil
}
