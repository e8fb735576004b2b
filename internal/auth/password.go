package auth

import (
	"unicode"

	"github.com/lumen-analytics/backend/internal/apperr"
)

// checkPasswordPolicy enforces 8–128 chars with an uppercase letter, a lowercase letter and a digit.
func checkPasswordPolicy(pw string) error {
	var fields []apperr.FieldError
	n := len([]rune(pw))
	if n < 8 {
		fields = append(fields, apperr.FieldError{Field: "password", Message: "must be at least 8 characters"})
	}
	if n > 128 {
		fields = append(fields, apperr.FieldError{Field: "password", Message: "must be at most 128 characters"})
	}
	var upper, lower, digit bool
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !upper {
		fields = append(fields, apperr.FieldError{Field: "password", Message: "Must include an uppercase letter"})
	}
	if !lower {
		fields = append(fields, apperr.FieldError{Field: "password", Message: "Must include a lowercase letter"})
	}
	if !digit {
		fields = append(fields, apperr.FieldError{Field: "password", Message: "Must include a number"})
	}
	if len(fields) > 0 {
		return apperr.Validation("invalid request", fields...)
	}
	return nil
}
