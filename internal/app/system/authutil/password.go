// internal/app/system/authutil/password.go
// Package authutil holds password rules and hashing for admin accounts.
package authutil

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Password validation constants
const (
	MinPasswordLength = 8
	MaxPasswordLength = 72 // bcrypt ignores anything longer
	BcryptCost        = 12
)

// Password validation errors
var (
	ErrPasswordTooShort = errors.New("Password must be at least 8 characters.")
	ErrPasswordTooLong  = errors.New("Password must be at most 72 characters.")
	ErrPasswordCommon   = errors.New("This password is too common. Please choose a different one.")
	ErrPasswordUsername = errors.New("Password must not be the same as the username.")
)

var commonPasswords = map[string]bool{
	"12345678":  true,
	"123456789": true,
	"password":  true,
	"password1": true,
	"qwerty123": true,
	"iloveyou":  true,
	"sunshine":  true,
	"football":  true,
	"baseball":  true,
	"superman":  true,
	"admin123":  true,
	"welcome1":  true,
	"letmein1":  true,
	"vicar123":  true,
}

// ValidatePassword checks a new password for the given username.
// Returns nil if valid, or an error describing the issue.
func ValidatePassword(username, password string) error {
	if len(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	if len(password) > MaxPasswordLength {
		return ErrPasswordTooLong
	}
	if commonPasswords[strings.ToLower(password)] {
		return ErrPasswordCommon
	}
	if username != "" && strings.EqualFold(strings.TrimSpace(username), password) {
		return ErrPasswordUsername
	}
	return nil
}

// HashPassword hashes a password using bcrypt.
// The password should be validated with ValidatePassword first.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword compares a plain-text password with a bcrypt hash.
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
