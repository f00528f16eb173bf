package validation

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

const minCompletionPasswordLen = 8

var currencyCodeRe = regexp.MustCompile(`^[A-Z]{3}$`)

func registerRules(v *validator.Validate) error {
	if err := v.RegisterValidation("currency_code", isCurrencyCode); err != nil {
		return err
	}
	if err := v.RegisterValidation("completion_password", isCompletionPassword); err != nil {
		return err
	}
	return nil
}

// isCurrencyCode accepts ISO-4217 style codes: USD, EUR, KES.
func isCurrencyCode(fl validator.FieldLevel) bool {
	return currencyCodeRe.MatchString(fl.Field().String())
}

// isCompletionPassword requires at least 8 characters with a letter and a digit.
func isCompletionPassword(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if len(s) < minCompletionPasswordLen || strings.TrimSpace(s) != s {
		return false
	}
	var hasLetter, hasDigit bool
	for _, r := range s {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	return hasLetter && hasDigit
}
