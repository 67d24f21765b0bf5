package auth

import (
	"errors"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

const MinPasswordLength = 6

var ErrPasswordTooShort = errors.New("password must be at least 6 characters")

// hashCost is lowered by tests; bcrypt at DefaultCost dominates their runtime.
var hashCost = bcrypt.DefaultCost

// HashPassword hashes a plaintext password with bcrypt after enforcing the minimum length.
func HashPassword(pw string) (string, error) {
	if utf8.RuneCountInString(pw) < MinPasswordLength {
		return "", ErrPasswordTooShort
	}
	b, err := bcrypt.GenerateFromPassword([]byte(pw), hashCost)
	return string(b), err
}

// CheckPassword compares a bcrypt hash with a candidate plaintext password.
func CheckPassword(hash, pw string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw))
}

// SetHashCostForTesting swaps the bcrypt cost and returns a restore func.
func SetHashCostForTesting(cost int) (restore func()) {
	prev := hashCost
	hashCost = cost
	return func() { hashCost = prev }
}
