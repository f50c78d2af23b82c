package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

var ErrValidationFailed = fmt.Errorf("validation failed")

const (
	MaxSymbolLength    = 16
	MaxLabelLength     = 64
	MaxFreeTextLength  = 2048
	MinReflectionChars = 5
)

// ValidateStringNotEmpty checks if a string is not empty after trimming.
func ValidateStringNotEmpty(s, fieldName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s cannot be empty", ErrValidationFailed, fieldName)
	}
	return nil
}

// ValidateStringMaxLength checks if a string's UTF-8 character count is within max bounds.
func ValidateStringMaxLength(s string, maxLength int, fieldName string) error {
	if utf8.RuneCountInString(s) > maxLength {
		return fmt.Errorf("%w: %s exceeds maximum length of %d characters", ErrValidationFailed, fieldName, maxLength)
	}
	return nil
}

// ValidatePositivePrice checks that a price field carries a usable value.
func ValidatePositivePrice(v float64, fieldName string) error {
	if v <= 0 {
		return fmt.Errorf("%w: %s must be a positive price", ErrValidationFailed, fieldName)
	}
	return nil
}

// ValidateReflectionNotes enforces the minimum reflection length required
// before a plan may be closed. Writing at least a few words is the point of
// keeping the journal.
func ValidateReflectionNotes(s string) error {
	if utf8.RuneCountInString(strings.TrimSpace(s)) < MinReflectionChars {
		return fmt.Errorf("%w: reflection notes must be at least %d characters", ErrValidationFailed, MinReflectionChars)
	}
	return ValidateStringMaxLength(s, MaxFreeTextLength, "reflection notes")
}
