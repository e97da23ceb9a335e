package utils

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// String length limits
const (
	MaxIDLength = 128
)

// ValidateString checks length bounds (in runes) and rejects null bytes
func ValidateString(value, fieldName string, minLen, maxLen int, required bool) error {
	if required && value == "" {
		return fmt.Errorf("%s is required", fieldName)
	}

	if value == "" && !required {
		return nil // Optional field, empty is OK
	}

	if !utf8.ValidString(value) {
		return fmt.Errorf("%s is not valid UTF-8", fieldName)
	}

	length := utf8.RuneCountInString(value)
	if length < minLen {
		return fmt.Errorf("%s must be at least %d characters", fieldName, minLen)
	}
	if length > maxLen {
		return fmt.Errorf("%s must not exceed %d characters", fieldName, maxLen)
	}

	// Check for null bytes (security issue)
	if strings.Contains(value, "\x00") {
		return fmt.Errorf("%s contains invalid characters", fieldName)
	}

	return nil
}

// ValidateRoomID validates a room id that must be addressable in a URL path.
// Any printable text is allowed except '/'.
func ValidateRoomID(id string) error {
	if err := ValidateString(id, "room id", 1, MaxIDLength, true); err != nil {
		return err
	}

	for _, r := range id {
		if r == '/' || unicode.IsControl(r) {
			return fmt.Errorf("room id contains invalid characters")
		}
	}

	return nil
}
