package utils

import (
	"regexp"
	"time"
	"unicode/utf8"

	"github.com/Krish-Depani/account-security/apperrors"
	"golang.org/x/crypto/bcrypt"
)

const (
	PasswordMinLength = 8
	PasswordMaxLength = 32

	// PasswordHistorySize is how many previous hashes are retained.
	PasswordHistorySize = 5
	// PasswordReuseWindow is how many of the most recent hashes may not be reused.
	PasswordReuseWindow = 3

	// bcrypt ignores input past 72 bytes.
	bcryptMaxBytes = 72
)

const PasswordPolicyMessage = "Password must be 8-32 characters and include uppercase, lowercase, number, and special character."

var (
	upperRe   = regexp.MustCompile(`[A-Z]`)
	lowerRe   = regexp.MustCompile(`[a-z]`)
	digitRe   = regexp.MustCompile(`[0-9]`)
	specialRe = regexp.MustCompile(`[!@#$%^&*()_+\-=\[\]{};':"\\|,.<>/?]`)
)

// ValidatePasswordPolicy returns a validation error when password breaks any rule.
func ValidatePasswordPolicy(password string) error {
	n := utf8.RuneCountInString(password)
	if n < PasswordMinLength || n > PasswordMaxLength || len(password) > bcryptMaxBytes {
		return apperrors.Validation(PasswordPolicyMessage)
	}
	if !upperRe.MatchString(password) ||
		!lowerRe.MatchString(password) ||
		!digitRe.MatchString(password) ||
		!specialRe.MatchString(password) {
		return apperrors.Validation(PasswordPolicyMessage)
	}
	return nil
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func VerifyPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// ReusesRecentPassword compares password against the newest PasswordReuseWindow
// entries of history. history is ordered oldest first.
func ReusesRecentPassword(history []string, password string) bool {
	start := len(history) - PasswordReuseWindow
	if start < 0 {
		start = 0
	}
	for _, hash := range history[start:] {
		if VerifyPassword(hash, password) {
			return true
		}
	}
	return false
}

// AppendPasswordHistory appends hash and evicts the oldest entries beyond
// PasswordHistorySize. The input slice is not modified.
func AppendPasswordHistory(history []string, hash string) []string {
	out := make([]string, 0, len(history)+1)
	out = append(out, history...)
	out = append(out, hash)
	if len(out) > PasswordHistorySize {
		out = out[len(out)-PasswordHistorySize:]
	}
	return out
}

func PasswordExpired(changedAt, now time.Time, maxAge time.Duration) bool {
	return now.Sub(changedAt) > maxAge
}
