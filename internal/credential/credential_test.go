package credential_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/hugh/prompthub/internal/apperr"
	"github.com/hugh/prompthub/internal/credential"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEmail(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{"simple", "alice@example.com", "alice@example.com", nil},
		{"normalizes case and space", "  Alice@Example.COM ", "alice@example.com", nil},
		{"plus and dots", "a.b+tag@mail.example.co", "a.b+tag@mail.example.co", nil},
		{"empty", "", "", credential.ErrEmailMissing},
		{"whitespace only", "   ", "", credential.ErrEmailMissing},
		{"no at", "alice.example.com", "", credential.ErrEmailInvalidFormat},
		{"no local part", "@example.com", "", credential.ErrEmailInvalidFormat},
		{"no dot in domain", "alice@localhost", "", credential.ErrEmailInvalidFormat},
		{"bad host chars", "alice@exa_mple.com", "", credential.ErrEmailInvalidFormat},
		{"double at", "a@b@example.com", "", credential.ErrEmailInvalidFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			email, err := credential.ParseEmail(tt.input)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.True(t, email.IsZero())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, email.String())
		})
	}
}

func TestParseEmail_Kinds(t *testing.T) {
	_, err := credential.ParseEmail("")
	assert.Equal(t, apperr.KindBadArgument, apperr.KindOf(err))

	_, err = credential.ParseEmail("nope")
	assert.Equal(t, apperr.KindInvalidFormat, apperr.KindOf(err))
}

// strongPassword builds a password of exactly n characters containing every
// required character class.
func strongPassword(n int) string {
	return "aA1!" + strings.Repeat("x", n-4)
}

func TestParsePassword_LengthBoundaries(t *testing.T) {
	tests := []struct {
		length int
		valid  bool
	}{
		{7, false},
		{8, true},
		{50, true},
		{51, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("length %d", tt.length), func(t *testing.T) {
			_, err := credential.ParsePassword(strongPassword(tt.length))
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, credential.ErrPasswordInvalidFormat)
			}
		})
	}
}

func TestParsePassword_CharacterClasses(t *testing.T) {
	tests := []struct {
		name     string
		password string
	}{
		{"missing lowercase", "ABCDEF1!"},
		{"missing uppercase", "abcdef1!"},
		{"missing digit", "Abcdefg!"},
		{"missing symbol", "Abcdefg1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := credential.ParsePassword(tt.password)
			assert.ErrorIs(t, err, credential.ErrPasswordInvalidFormat)
		})
	}
}

func TestParsePassword_Missing(t *testing.T) {
	_, err := credential.ParsePassword("")
	assert.ErrorIs(t, err, credential.ErrPasswordMissing)
}

func TestPassword_NeverPrinted(t *testing.T) {
	pw, err := credential.ParsePassword("P@ssw0rd1")
	require.NoError(t, err)

	assert.Equal(t, "P@ssw0rd1", pw.Reveal())
	assert.NotContains(t, fmt.Sprintf("%v %s %#v", pw, pw, pw), "P@ssw0rd1")
	assert.Equal(t, "[REDACTED]", pw.LogValue().String())
}

func TestParsePhone(t *testing.T) {
	phone, err := credential.ParsePhone("+1 650-253-0000", "")
	require.NoError(t, err)
	assert.Equal(t, "+16502530000", phone)

	phone, err = credential.ParsePhone("", "")
	require.NoError(t, err)
	assert.Empty(t, phone)

	_, err = credential.ParsePhone("12", "US")
	assert.ErrorIs(t, err, credential.ErrPhoneInvalidFormat)
}

func TestParseName(t *testing.T) {
	name, err := credential.ParseName("  Alice ")
	require.NoError(t, err)
	assert.Equal(t, "Alice", name)

	_, err = credential.ParseName(strings.Repeat("n", credential.MaxNameLength+1))
	assert.ErrorIs(t, err, credential.ErrNameInvalidFormat)
}
