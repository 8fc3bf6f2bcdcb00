// Package credential parses raw sign-in strings into validated, immutable
// values. Construction is the only validation point: a value of these types
// is always well formed.
package credential

import (
	"log/slog"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/hugh/prompthub/internal/apperr"
)

const (
	MinPasswordLength = 8
	MaxPasswordLength = 50
	maxEmailLength    = 254

	redacted = "[REDACTED]"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9\-]+(\.[a-zA-Z0-9\-]+)*\.[a-zA-Z]{2,}$`)

var (
	ErrEmailMissing       = apperr.BadArgument("MISSING_REQUIRED", "email is required")
	ErrEmailInvalidFormat = apperr.InvalidFormat("INVALID_EMAIL", "email has an invalid format")

	ErrPasswordMissing       = apperr.BadArgument("MISSING_REQUIRED", "password is required")
	ErrPasswordInvalidFormat = apperr.InvalidFormat("INVALID_PASSWORD",
		"password must be 8-50 characters and contain a lowercase letter, an uppercase letter, a digit and a symbol")
)

// Email is a normalized (trimmed, lower-cased) address.
type Email struct {
	value string
}

// ParseEmail validates raw and returns the normalized address.
func ParseEmail(raw string) (Email, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	if value == "" {
		return Email{}, ErrEmailMissing
	}
	if len(value) > maxEmailLength || !emailRegex.MatchString(value) {
		return Email{}, ErrEmailInvalidFormat
	}
	return Email{value: value}, nil
}

func (e Email) String() string {
	return e.value
}

// IsZero reports whether e was never parsed.
func (e Email) IsZero() bool {
	return e.value == ""
}

// Password holds a plaintext password that passed the strength rules. It
// never prints its content.
type Password struct {
	value string
}

// ParsePassword validates raw against the length and character-class rules.
func ParsePassword(raw string) (Password, error) {
	if raw == "" {
		return Password{}, ErrPasswordMissing
	}

	n := utf8.RuneCountInString(raw)
	if n < MinPasswordLength || n > MaxPasswordLength {
		return Password{}, ErrPasswordInvalidFormat
	}

	var hasUpper, hasLower, hasDigit, hasSymbol bool
	for _, r := range raw {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSymbol = true
		}
	}
	if !hasUpper || !hasLower || !hasDigit || !hasSymbol {
		return Password{}, ErrPasswordInvalidFormat
	}

	return Password{value: raw}, nil
}

// Reveal returns the plaintext for hashing.
func (p Password) Reveal() string {
	return p.value
}

func (p Password) String() string {
	return redacted
}

func (p Password) GoString() string {
	return redacted
}

// LogValue keeps the plaintext out of structured logs.
func (p Password) LogValue() slog.Value {
	return slog.StringValue(redacted)
}
