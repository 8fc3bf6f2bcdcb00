package credential

import (
	"strings"
	"unicode/utf8"

	"github.com/hugh/prompthub/internal/apperr"
	"github.com/nyaruka/phonenumbers"
)

const (
	MaxNameLength = 50

	// DefaultPhoneRegion is used for numbers given without a country prefix.
	DefaultPhoneRegion = "US"
)

var (
	ErrNameInvalidFormat  = apperr.InvalidFormat("INVALID_NAME", "name must be between 1 and 50 characters")
	ErrPhoneInvalidFormat = apperr.InvalidFormat("INVALID_PHONE", "phone number is not valid")
)

// ParseName trims raw and checks its length. An empty name is allowed and
// means "not set".
func ParseName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if utf8.RuneCountInString(name) > MaxNameLength {
		return "", ErrNameInvalidFormat
	}
	return name, nil
}

// ParsePhone normalizes raw to E.164. An empty value is allowed and means
// "not set".
func ParsePhone(raw, region string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	if region == "" {
		region = DefaultPhoneRegion
	}

	num, err := phonenumbers.Parse(raw, region)
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return "", ErrPhoneInvalidFormat
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}
