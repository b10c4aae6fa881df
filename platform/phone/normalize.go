// Package phone provides phone number utilities.
// This is part of the platform layer and contains no business logic.
package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// DefaultRegion is used for numbers written without a country prefix.
const DefaultRegion = "US"

// NormalizeE164 formats a phone number to E.164 using DefaultRegion.
func NormalizeE164(input string) string {
	return normalize(input, DefaultRegion)
}

// normalize formats a phone number to E.164. Numbers that do not parse or
// are not valid for any region are returned trimmed but otherwise untouched;
// leads often arrive with extensions or free text that must be kept.
func normalize(input, region string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return trimmed
	}

	number, err := phonenumbers.Parse(trimmed, region)
	if err != nil {
		return trimmed
	}

	if !phonenumbers.IsValidNumber(number) {
		return trimmed
	}

	return phonenumbers.Format(number, phonenumbers.E164)
}
