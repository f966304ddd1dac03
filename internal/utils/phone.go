package utils

import (
	"fmt"
	"regexp"

	"github.com/nyaruka/phonenumbers"
)

var e164Regex = regexp.MustCompile(`^\+[1-9]\d{7,14}$`) // ITU-T E.164

// IsE164 reports basic E.164 compliance.
func IsE164(number string) bool { return e164Regex.MatchString(number) }

// NormalizePhoneNumber parses a number written in any international format
// ("+55 11 98070-6050", "+1 (555) 123-0000", ...) and returns its E.164 form.
// Numbers without a leading country code are rejected.
func NormalizePhoneNumber(raw string) (string, error) {
	pn, err := phonenumbers.Parse(raw, "")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidPhone, err)
	}
	normalized := phonenumbers.Format(pn, phonenumbers.E164)
	if !IsE164(normalized) {
		return "", fmt.Errorf("%w: %q is not a dialable number", ErrInvalidPhone, raw)
	}
	return normalized, nil
}
