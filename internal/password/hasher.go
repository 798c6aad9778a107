// Package password hashes and verifies user passwords with bcrypt.
package password

import (
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Cost is the bcrypt work factor for every hash produced by this service.
// Verification accepts whatever cost is embedded in a stored hash.
const Cost = 10

// MaxLength is the longest password bcrypt will accept, in bytes.
const MaxLength = 72

const hashLength = 60

var hashPrefixes = []string{"$2a$", "$2b$", "$2y$"}

type Hasher struct {
	cost int
}

func NewHasher() *Hasher {
	return &Hasher{cost: Cost}
}

// Hash returns a salted bcrypt hash of plaintext. Values that are already
// bcrypt hashes are returned unchanged so re-saving a stored hash is a no-op.
func (h *Hasher) Hash(plaintext string) (string, error) {
	if IsHashed(plaintext) {
		return plaintext, nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// Compare reports whether plaintext matches hash. A malformed hash never matches.
func (h *Hasher) Compare(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}

// IsHashed reports whether value has the shape of a bcrypt hash.
func IsHashed(value string) bool {
	if len(value) != hashLength {
		return false
	}
	hasPrefix := false
	for _, p := range hashPrefixes {
		if strings.HasPrefix(value, p) {
			hasPrefix = true
			break
		}
	}
	if !hasPrefix {
		return false
	}
	_, err := bcrypt.Cost([]byte(value))
	return err == nil
}
