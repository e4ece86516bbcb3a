// Package password is the credential-verification collaborator. Clients send
// a login hash already derived from the password; this package hashes it once
// more for storage and verifies candidates against the stored value. Domain
// logic never compares secrets directly.
package password

import (
	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 12

// Hasher hashes login credentials for storage and verifies candidates.
type Hasher interface {
	Hash(loginHash string) (string, error)
	Verify(stored, candidate string) bool
}

// BcryptHasher implements Hasher with bcrypt at a fixed cost.
type BcryptHasher struct{}

func NewBcryptHasher() *BcryptHasher {
	return &BcryptHasher{}
}

func (h *BcryptHasher) Hash(loginHash string) (string, error) {
	out, err := bcrypt.GenerateFromPassword([]byte(loginHash), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func (h *BcryptHasher) Verify(stored, candidate string) bool {
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(candidate)) == nil
}
