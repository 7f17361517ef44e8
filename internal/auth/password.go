// Package auth: password hashing.
//
// WHY BCRYPT?
// bcrypt is deliberately slow, which makes guessing passwords from a leaked
// users table expensive. It also:
//   - generates a random salt per digest, so equal passwords differ
//   - embeds the salt and cost in its output, so the table needs one column
//
// Digest format:
//
//	$2a$10$<22-char salt><31-char hash>
//	 ^   ^
//	 |   cost (10 → 2^10 rounds)
//	 version
package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// defaultCost is the bcrypt work factor used for every stored digest.
// It is not configurable at runtime.
const defaultCost = 10

// MaxPasswordBytes is bcrypt's input limit.
//
// WHY REJECT INSTEAD OF TRUNCATE?
// bcrypt only reads the first 72 bytes. Two long passwords sharing that
// prefix would hash the same, so a user could log in with a password they
// never set. Hash returns ErrPasswordTooLong instead.
const MaxPasswordBytes = 72

var (
	// ErrPasswordTooLong is returned by Hash for inputs over MaxPasswordBytes.
	ErrPasswordTooLong = errors.New("auth: password must be 72 bytes or fewer")
	// ErrPasswordMismatch is returned by Verify when the digest does not match.
	ErrPasswordMismatch = errors.New("auth: invalid password")
)

// PasswordService derives and verifies salted bcrypt digests.
//
// It's a struct so tests can inject a lower cost.
type PasswordService struct {
	cost int
}

// NewPasswordService creates a PasswordService with the fixed production cost.
func NewPasswordService() *PasswordService {
	return &PasswordService{cost: defaultCost}
}

// NewPasswordServiceForTest creates a PasswordService with the given cost.
// Use bcrypt.MinCost (4) from tests in other packages. Never in production.
func NewPasswordServiceForTest(cost int) *PasswordService {
	return &PasswordService{cost: cost}
}

// Hash returns the bcrypt digest of plaintext. The salt is random and
// embedded in the output, so equal passwords yield different digests.
func (p *PasswordService) Hash(plaintext string) (string, error) {
	if len(plaintext) > MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), p.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing password: %w", err)
	}
	return string(hashed), nil
}

// Verify returns nil if plaintext matches hash, ErrPasswordMismatch if it
// does not, and a wrapped error if hash is not a bcrypt digest.
//
// TIMING SAFETY:
// CompareHashAndPassword compares in constant time, so response latency does
// not reveal how many leading bytes of a guess were right.
func (p *PasswordService) Verify(hash, plaintext string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrPasswordMismatch
		}
		return fmt.Errorf("auth: comparing password hash: %w", err)
	}
	return nil
}
