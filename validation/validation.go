package validation

import (
	"math"
	"net/mail"
	"strings"
	"unicode/utf8"
)

type Violations map[string]string

func (v Violations) Empty() bool { return len(v) == 0 }

// Basic validators
func Required(field, value string, v Violations) {
	if strings.TrimSpace(value) == "" {
		v[field] = "required"
	}
}

func RangeInt(field string, val, minVal, maxVal int, v Violations) {
	if val < minVal || val > maxVal {
		v[field] = "out_of_range"
	}
}

// RangeFloat also rejects NaN, which compares false against both bounds.
func RangeFloat(field string, val, minVal, maxVal float64, v Violations) {
	if math.IsNaN(val) || val < minVal || val > maxVal {
		v[field] = "out_of_range"
	}
}

func MaxLen(field, value string, maxLen int, v Violations) {
	if utf8.RuneCountInString(value) > maxLen {
		v[field] = "too_long"
	}
}

// MaxBytes limits the encoded size rather than the character count.
func MaxBytes(field, value string, maxBytes int, v Violations) {
	if len(value) > maxBytes {
		v[field] = "too_long"
	}
}

func MinLen(field, value string, minLen int, v Violations) {
	if utf8.RuneCountInString(value) < minLen {
		v[field] = "too_short"
	}
}

// Email only runs when the field is present; pair it with Required otherwise.
func Email(field, value string, v Violations) {
	if value == "" {
		return
	}
	if _, err := mail.ParseAddress(value); err != nil {
		v[field] = "invalid_email"
	}
}
