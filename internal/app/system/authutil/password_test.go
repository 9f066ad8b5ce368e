package authutil

import (
	"strings"
	"testing"
)

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		username string
		password string
		want     error
	}{
		{"valid", "admin", "c0rrect-horse", nil},
		{"too short", "admin", "abc1234", ErrPasswordTooShort},
		{"exactly minimum", "admin", "abcd1234", nil},
		{"too long", "admin", strings.Repeat("a", MaxPasswordLength+1), ErrPasswordTooLong},
		{"exactly maximum", "admin", strings.Repeat("a", MaxPasswordLength), nil},
		{"common", "admin", "password1", ErrPasswordCommon},
		{"common case-insensitive", "admin", "PassWord1", ErrPasswordCommon},
		{"same as username", "Manager01", "manager01", ErrPasswordUsername},
		{"no username given", "", "manager01", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidatePassword(tt.username, tt.password); got != tt.want {
				t.Errorf("ValidatePassword(%q, %q) = %v, want %v", tt.username, tt.password, got, tt.want)
			}
		})
	}
}

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("s3cret-pass")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	if hash == "s3cret-pass" || !strings.HasPrefix(hash, "$2") {
		t.Errorf("hash = %q, want a bcrypt hash", hash)
	}

	if !CheckPassword("s3cret-pass", hash) {
		t.Error("CheckPassword should accept the original password")
	}
	if CheckPassword("wrong-pass", hash) {
		t.Error("CheckPassword should reject a different password")
	}
	if CheckPassword("", hash) || CheckPassword("s3cret-pass", "") {
		t.Error("CheckPassword should reject empty inputs")
	}

	other, _ := HashPassword("s3cret-pass")
	if other == hash {
		t.Error("hashes of the same password should differ by salt")
	}
}
