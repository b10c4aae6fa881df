package management

import (
	"strings"

	"leadpipe_backend/platform/phone"

	"github.com/google/uuid"
)

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	t := strings.TrimSpace(*value)
	if t == "" {
		return nil
	}
	return &t
}

func lowerTrimmed(value *string) *string {
	t := lowerTrimmedKeepEmpty(value)
	if t == nil || *t == "" {
		return nil
	}
	return t
}

// lowerTrimmedKeepEmpty keeps an explicit empty string so an update can
// clear the column.
func lowerTrimmedKeepEmpty(value *string) *string {
	if value == nil {
		return nil
	}
	t := strings.ToLower(strings.TrimSpace(*value))
	return &t
}

func normalizedPhone(value *string) *string {
	if value == nil {
		return nil
	}
	n := phone.NormalizeE164(*value)
	if n == "" {
		return nil
	}
	return &n
}

// normalizedPhoneKeepEmpty keeps an explicit empty string so an update can
// clear the column.
func normalizedPhoneKeepEmpty(value *string) *string {
	if value == nil {
		return nil
	}
	n := phone.NormalizeE164(*value)
	return &n
}

func sameUUID(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
