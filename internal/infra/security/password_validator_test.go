package security

import (
	"errors"
	"testing"
)

func policyCode(t *testing.T, err error) string {
	t.Helper()
	var violation *PolicyViolationError
	if !errors.As(err, &violation) {
		t.Fatalf("error %v is not a PolicyViolationError", err)
	}
	return violation.Code
}

func TestResetPasswordValidatorReportsFirstFailure(t *testing.T) {
	validator := NewResetPasswordValidator()

	cases := []struct {
		password string
		wantCode string
	}{
		{"abc", "PASSWORD_TOO_SHORT"},
		{"abcdefgh", "PASSWORD_MISSING_UPPERCASE"},
		{"ABCDEFGH", "PASSWORD_MISSING_LOWERCASE"},
		{"Abcdefgh", "PASSWORD_MISSING_DIGIT"},
		{"Abcdefg1", "PASSWORD_MISSING_SPECIAL"},
	}

	for _, tc := range cases {
		err := validator.Validate(tc.password)
		if err == nil {
			t.Errorf("Validate(%q) = nil, want %s", tc.password, tc.wantCode)
			continue
		}
		if got := policyCode(t, err); got != tc.wantCode {
			t.Errorf("Validate(%q) code = %s, want %s", tc.password, got, tc.wantCode)
		}
	}
}

func TestResetPasswordValidatorAcceptsCompliantPassword(t *testing.T) {
	validator := NewResetPasswordValidator()
	if err := validator.Validate("Abcdef1!"); err != nil {
		t.Fatalf("Validate(Abcdef1!) = %v, want nil", err)
	}
}

func TestShortPasswordShadowsLaterRules(t *testing.T) {
	validator := NewResetPasswordValidator()
	err := validator.Validate("a1!")
	if err == nil {
		t.Fatal("expected violation")
	}
	if got := policyCode(t, err); got != "PASSWORD_TOO_SHORT" {
		t.Fatalf("code = %s, want PASSWORD_TOO_SHORT", got)
	}
}

func TestRegistrationValidatorRejectsGuessablePassword(t *testing.T) {
	validator := NewRegistrationPasswordValidator("nguyenvana")

	err := validator.Validate("Password1!")
	if err == nil {
		t.Fatal("expected a common password to be rejected")
	}
	if got := policyCode(t, err); got != "PASSWORD_TOO_WEAK" {
		t.Fatalf("code = %s, want PASSWORD_TOO_WEAK", got)
	}

	if err := validator.Validate("Tr0ng-mua#2025"); err != nil {
		t.Fatalf("Validate strong password = %v, want nil", err)
	}
}
