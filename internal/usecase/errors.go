package usecase

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation indicates missing or malformed request fields.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidCredentials covers unknown identities and wrong passwords alike.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountNotFound is returned for lookups that must not leak existence.
	ErrAccountNotFound = errors.New("account not found")
	// ErrPermanentlyBlocked means the account is frozen until support intervenes.
	ErrPermanentlyBlocked = errors.New("account permanently blocked")
	// ErrTempBlocked means the account is inside an active lockout window.
	ErrTempBlocked = errors.New("account temporarily blocked")
	// ErrRecoveryRequired means login is refused until the recovery flow completes.
	ErrRecoveryRequired = errors.New("recovery required")
	// ErrRecoveryNotConfigured means no recovery string has been set on the account.
	ErrRecoveryNotConfigured = errors.New("recovery string not configured")
	// ErrInvalidRecoveryString means the supplied recovery string did not match.
	ErrInvalidRecoveryString = errors.New("invalid recovery string")
	// ErrInvalidResetToken covers unknown and already-consumed reset tokens.
	ErrInvalidResetToken = errors.New("invalid reset token")
	// ErrResetTokenExpired means the token existed but its expiry has passed.
	ErrResetTokenExpired = errors.New("reset token expired")
	// ErrInvalidOTP means the submitted one-time code did not match.
	ErrInvalidOTP = errors.New("invalid otp")
	// ErrPasswordSameAsPrevious rejects reusing the current password on reset.
	ErrPasswordSameAsPrevious = errors.New("new password matches current password")
	// ErrAccountExists indicates a registration conflict on a unique field.
	ErrAccountExists = errors.New("account already exists")
	// ErrQRSessionNotFound covers missing and expired QR login sessions.
	ErrQRSessionNotFound = errors.New("qr session not found")
	// ErrQRSessionPending means the QR session has not been authorized yet.
	ErrQRSessionPending = errors.New("qr session pending")
)

// Recovery-required reasons surfaced to the caller.
const (
	ReasonTooManyLoginFailures     = "TOO_MANY_LOGIN_FAILURES"
	ReasonFinalChanceSecurityCheck = "FINAL_CHANCE_SECURITY_CHECK"
)

// ValidationError wraps ErrValidation with the offending field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// InvalidCredentialsError carries the remaining attempt budget for login failures.
type InvalidCredentialsError struct {
	AttemptsRemaining int
}

func (e *InvalidCredentialsError) Error() string {
	return fmt.Sprintf("invalid credentials: %d attempts remaining", e.AttemptsRemaining)
}

func (e *InvalidCredentialsError) Unwrap() error { return ErrInvalidCredentials }

// InvalidRecoveryStringError carries the remaining attempt budget for recovery failures.
type InvalidRecoveryStringError struct {
	AttemptsRemaining int
}

func (e *InvalidRecoveryStringError) Error() string {
	return fmt.Sprintf("invalid recovery string: %d attempts remaining", e.AttemptsRemaining)
}

func (e *InvalidRecoveryStringError) Unwrap() error { return ErrInvalidRecoveryString }

// TempBlockedError reports how long the lockout window still lasts.
type TempBlockedError struct {
	RemainingMinutes int
}

func (e *TempBlockedError) Error() string {
	return fmt.Sprintf("account temporarily blocked: %d minutes remaining", e.RemainingMinutes)
}

func (e *TempBlockedError) Unwrap() error { return ErrTempBlocked }

// RecoveryRequiredError names the condition that forced the recovery flow.
type RecoveryRequiredError struct {
	Reason string
}

func (e *RecoveryRequiredError) Error() string {
	return fmt.Sprintf("recovery required: %s", e.Reason)
}

func (e *RecoveryRequiredError) Unwrap() error { return ErrRecoveryRequired }
