// Package auth covers local password credentials and the Steam OpenID 2.0
// sign-in flow.
package auth

import (
	"regexp"

	"golang.org/x/crypto/bcrypt"
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]{3,32}$`)

// ValidUsername reports whether name is 3-32 word characters.
func ValidUsername(name string) bool {
	return usernamePattern.MatchString(name)
}

// ValidPassword enforces the minimum password length.
func ValidPassword(pw string) bool {
	return len(pw) >= 8
}

// HashPassword returns the bcrypt hash of pw.
func HashPassword(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// CheckPassword reports whether pw matches the stored hash.
func CheckPassword(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}
