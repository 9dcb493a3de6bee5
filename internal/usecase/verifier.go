package usecase

import (
	"go.uber.org/zap"

	"github.com/dnt-org/dnt-be/internal/infra/security"
)

// CredentialVerifier compares plaintext secrets against stored hashes.
// Comparison errors are treated as a mismatch so a corrupt hash can never
// authenticate, only lock out.
type CredentialVerifier struct {
	logger *zap.Logger
}

// NewCredentialVerifier constructs a fail-closed verifier.
func NewCredentialVerifier(logger *zap.Logger) *CredentialVerifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CredentialVerifier{logger: logger}
}

// VerifyPassword reports whether plaintext matches the stored password hash.
func (v *CredentialVerifier) VerifyPassword(plaintext, storedHash string) bool {
	ok, err := security.VerifyPassword(plaintext, storedHash)
	if err != nil {
		v.logger.Error("password verification failed", zap.Error(err))
		return false
	}
	return ok
}

// VerifyRecoveryString reports whether the normalized recovery string matches.
func (v *CredentialVerifier) VerifyRecoveryString(plaintext, storedHash string) bool {
	ok, err := security.VerifyRecoveryString(plaintext, storedHash)
	if err != nil {
		v.logger.Error("recovery string verification failed", zap.Error(err))
		return false
	}
	return ok
}
