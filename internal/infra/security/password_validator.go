package security

import (
	"fmt"
	"unicode"

	zxcvbn "github.com/nbutton23/zxcvbn-go"
)

// PolicyViolationError reports the first password policy rule a candidate failed.
type PolicyViolationError struct {
	Code    string
	Message string
}

func (e *PolicyViolationError) Error() string {
	return e.Message
}

// PasswordRule checks one aspect of password strength.
type PasswordRule interface {
	Validate(password string) error
}

// PasswordRuleFunc adapts a function to the PasswordRule interface.
type PasswordRuleFunc func(password string) error

func (f PasswordRuleFunc) Validate(password string) error {
	return f(password)
}

// PasswordValidator applies rules in order and stops at the first violation.
type PasswordValidator struct {
	rules []PasswordRule
}

// NewPasswordValidator builds a validator from an ordered rule list.
func NewPasswordValidator(rules ...PasswordRule) *PasswordValidator {
	return &PasswordValidator{rules: rules}
}

// Validate returns the first rule violation, or nil when all rules pass.
func (v *PasswordValidator) Validate(password string) error {
	for _, rule := range v.rules {
		if err := rule.Validate(password); err != nil {
			return err
		}
	}
	return nil
}

// MinLengthRule requires the password to contain at least n characters.
func MinLengthRule(n int) PasswordRule {
	return PasswordRuleFunc(func(password string) error {
		if len([]rune(password)) < n {
			return &PolicyViolationError{
				Code:    "PASSWORD_TOO_SHORT",
				Message: fmt.Sprintf("Password must be at least %d characters long", n),
			}
		}
		return nil
	})
}

// UppercaseRule requires at least one uppercase letter.
func UppercaseRule() PasswordRule {
	return classRule(unicode.IsUpper, "PASSWORD_MISSING_UPPERCASE", "Password must contain at least one uppercase letter")
}

// LowercaseRule requires at least one lowercase letter.
func LowercaseRule() PasswordRule {
	return classRule(unicode.IsLower, "PASSWORD_MISSING_LOWERCASE", "Password must contain at least one lowercase letter")
}

// DigitRule requires at least one decimal digit.
func DigitRule() PasswordRule {
	return classRule(unicode.IsDigit, "PASSWORD_MISSING_DIGIT", "Password must contain at least one number")
}

// SpecialCharRule requires at least one character outside letters and digits.
func SpecialCharRule() PasswordRule {
	return classRule(func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.IsSpace(r)
	}, "PASSWORD_MISSING_SPECIAL", "Password must contain at least one special character")
}

// StrengthRule rejects passwords scoring below minScore on the zxcvbn scale (0-4).
func StrengthRule(minScore int, userInputs ...string) PasswordRule {
	return PasswordRuleFunc(func(password string) error {
		result := zxcvbn.PasswordStrength(password, userInputs)
		if result.Score < minScore {
			return &PolicyViolationError{
				Code:    "PASSWORD_TOO_WEAK",
				Message: "Password is too easy to guess",
			}
		}
		return nil
	})
}

func classRule(match func(rune) bool, code, message string) PasswordRule {
	return PasswordRuleFunc(func(password string) error {
		for _, r := range password {
			if match(r) {
				return nil
			}
		}
		return &PolicyViolationError{Code: code, Message: message}
	})
}

// NewResetPasswordValidator applies the policy enforced on password resets.
// Rules run in a fixed order so the caller always reports the same first failure.
func NewResetPasswordValidator() *PasswordValidator {
	return NewPasswordValidator(
		MinLengthRule(8),
		UppercaseRule(),
		LowercaseRule(),
		DigitRule(),
		SpecialCharRule(),
	)
}

// NewRegistrationPasswordValidator extends the reset policy with a strength check.
func NewRegistrationPasswordValidator(userInputs ...string) *PasswordValidator {
	return NewPasswordValidator(
		MinLengthRule(8),
		UppercaseRule(),
		LowercaseRule(),
		DigitRule(),
		SpecialCharRule(),
		StrengthRule(2, userInputs...),
	)
}
