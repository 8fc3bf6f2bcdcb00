package validation

import (
	"errors"
	"testing"

	ozzo "github.com/go-ozzo/ozzo-validation"
	"github.com/stretchr/testify/assert"
)

type sample struct {
	Name  string
	Count int
}

func (s sample) Validate() error {
	return ozzo.ValidateStruct(&s,
		ozzo.Field(&s.Name, ozzo.Required),
		ozzo.Field(&s.Count, ozzo.Min(1)),
	)
}

func TestDetails(t *testing.T) {
	t.Run("nil error", func(t *testing.T) {
		assert.Nil(t, Details(nil))
	})

	t.Run("field errors", func(t *testing.T) {
		details := Details(sample{Count: -1}.Validate())
		assert.Len(t, details, 2)
		assert.Contains(t, details, "Name")
		assert.Contains(t, details, "Count")
	})

	t.Run("valid struct", func(t *testing.T) {
		assert.Nil(t, Details(sample{Name: "x", Count: 1}.Validate()))
	})

	t.Run("plain error", func(t *testing.T) {
		details := Details(errors.New("boom"))
		assert.Equal(t, map[string]string{"request": "boom"}, details)
	})
}

func TestSanitizeString(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"clean_text", "Hello World", "Hello World"},
		{"null_bytes", "Hello\x00World", "HelloWorld"},
		{"control_chars", "Hello\x01\x02World", "HelloWorld"},
		{"keep_newlines", "Hello\nWorld", "Hello\nWorld"},
		{"keep_tabs", "Hello\tWorld", "Hello\tWorld"},
		{"mixed", "Hello\x00\x01\nWorld\t!", "Hello\nWorld\t!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SanitizeString(tt.input))
		})
	}
}
