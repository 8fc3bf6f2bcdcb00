// Package validation turns request validation failures into response
// details and cleans free text before it reaches the services.
package validation

import (
	"errors"
	"strings"
	"unicode"

	ozzo "github.com/go-ozzo/ozzo-validation"
)

// Validatable is implemented by request DTOs.
type Validatable interface {
	Validate() error
}

// Details flattens ozzo field errors into field -> message. Non-field
// errors are reported under "request". Returns nil when err is nil.
func Details(err error) map[string]string {
	if err == nil {
		return nil
	}

	var fields ozzo.Errors
	if !errors.As(err, &fields) {
		return map[string]string{"request": err.Error()}
	}

	details := make(map[string]string, len(fields))
	for field, fieldErr := range fields {
		if fieldErr == nil {
			continue
		}
		details[field] = fieldErr.Error()
	}
	return details
}

// SanitizeString removes control characters except newlines and tabs.
func SanitizeString(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")

	var result strings.Builder
	for _, r := range s {
		if r == '\n' || r == '\r' || r == '\t' || !unicode.IsControl(r) {
			result.WriteRune(r)
		}
	}

	return result.String()
}
