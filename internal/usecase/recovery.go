package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dnt-org/dnt-be/internal/core/domain"
	"github.com/dnt-org/dnt-be/internal/core/port"
	"github.com/dnt-org/dnt-be/internal/infra/security"
	"github.com/dnt-org/dnt-be/internal/repository"
)

// RecoveryService drives the recovery branch of the state machine: recovery
// string verification, the OTP gate, password reset, and recovery string
// setup. Like LoginService, every account mutation runs inside a row-locked
// transaction; decided outcomes commit, infrastructure failures roll back.
type RecoveryService struct {
	repo      port.AccountRepository
	verifier  *CredentialVerifier
	audit     *AuditRecorder
	events    port.EventPublisher
	logger    *zap.Logger
	policy    EscalationPolicy
	validator *security.PasswordValidator
	now       func() time.Time
}

// NewRecoveryService wires the recovery flow dependencies.
func NewRecoveryService(repo port.AccountRepository, verifier *CredentialVerifier, audit *AuditRecorder, events port.EventPublisher, policy EscalationPolicy, logger *zap.Logger) *RecoveryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecoveryService{
		repo:      repo,
		verifier:  verifier,
		audit:     audit,
		events:    events,
		logger:    logger,
		policy:    policy.normalized(),
		validator: security.NewResetPasswordValidator(),
		now:       time.Now,
	}
}

// WithClock overrides the time source. Intended for tests.
func (s *RecoveryService) WithClock(now func() time.Time) *RecoveryService {
	s.now = now
	return s
}

// RequestContext carries caller metadata for the audit trail.
type RequestContext struct {
	SourceIP  string
	UserAgent string
}

// VerifyRecoveryInput identifies the account by its linked bank number.
type VerifyRecoveryInput struct {
	BankNumber     string
	RecoveryString string
	RequestContext
}

// VerifyRecoveryResult carries the freshly issued reset token.
type VerifyRecoveryResult struct {
	ResetToken string
	ExpiresAt  time.Time
}

// VerifyRecovery checks the recovery string and, on success, issues a reset
// token that gates the OTP step.
func (s *RecoveryService) VerifyRecovery(ctx context.Context, input VerifyRecoveryInput) (*VerifyRecoveryResult, error) {
	bankNumber := strings.TrimSpace(input.BankNumber)
	if bankNumber == "" {
		return nil, &ValidationError{Field: "bankNumber", Message: "is required"}
	}
	if strings.TrimSpace(input.RecoveryString) == "" {
		return nil, &ValidationError{Field: "recoveryString", Message: "is required"}
	}

	now := s.now().UTC()

	var (
		account     *domain.Account
		result      *VerifyRecoveryResult
		decisionErr error
		outcome     string
	)

	txErr := s.repo.Transact(ctx, func(repo port.AccountRepository) error {
		found, err := repo.GetForUpdateByBankNumber(ctx, bankNumber)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				outcome = "unknown_identity"
				decisionErr = ErrAccountNotFound
				return nil
			}
			return fmt.Errorf("load account: %w", err)
		}

		account = found

		if account.Blocked {
			outcome = "permanently_blocked"
			decisionErr = ErrPermanentlyBlocked
			return nil
		}

		if account.IsTempBlocked(now) {
			outcome = "temp_blocked"
			decisionErr = &TempBlockedError{RemainingMinutes: account.TempBlockRemainingMinutes(now)}
			return nil
		}

		if account.RecoveryStringHash == nil || *account.RecoveryStringHash == "" {
			outcome = "not_configured"
			decisionErr = ErrRecoveryNotConfigured
			return nil
		}

		if !s.verifier.VerifyRecoveryString(input.RecoveryString, *account.RecoveryStringHash) {
			if account.InFinalChance {
				account.Blocked = true
				account.InFinalChance = false
				if err := repo.SaveSecurityState(ctx, *account); err != nil {
					return fmt.Errorf("persist permanent block: %w", err)
				}
				outcome = "final_chance_failed"
				decisionErr = ErrPermanentlyBlocked
				return nil
			}

			account.RecoveryFailureCount++
			if account.RecoveryFailureCount >= s.policy.MaxRecoveryFailures {
				blockedUntil := now.Add(s.policy.TempBlockDuration)
				account.TempBlockedUntil = &blockedUntil
				account.InFinalChance = true
				account.RecoveryFailureCount = 0
				if err := repo.SaveSecurityState(ctx, *account); err != nil {
					return fmt.Errorf("persist temp block: %w", err)
				}
				outcome = "temp_block_imposed"
				decisionErr = &TempBlockedError{RemainingMinutes: account.TempBlockRemainingMinutes(now)}
				return nil
			}

			if err := repo.SaveSecurityState(ctx, *account); err != nil {
				return fmt.Errorf("persist failure count: %w", err)
			}
			outcome = "wrong_recovery_string"
			decisionErr = &InvalidRecoveryStringError{
				AttemptsRemaining: s.policy.MaxRecoveryFailures - account.RecoveryFailureCount,
			}
			return nil
		}

		token, err := security.GenerateResetToken()
		if err != nil {
			return fmt.Errorf("generate reset token: %w", err)
		}

		expiresAt := now.Add(s.policy.ResetTokenTTL)
		account.ResetToken = &token
		account.ResetTokenExpiresAt = &expiresAt
		account.RecoveryFailureCount = 0
		account.LoginFailureCount = 0
		account.TempBlockedUntil = nil

		if err := repo.SaveSecurityState(ctx, *account); err != nil {
			return fmt.Errorf("persist reset token: %w", err)
		}

		outcome = "pass"
		result = &VerifyRecoveryResult{ResetToken: token, ExpiresAt: expiresAt}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	s.recordAudit(ctx, AuditActionRecoveryVerify, account, outcome, input.RequestContext)
	s.publishBlockIfNeeded(ctx, account, outcome, "recovery_final_chance", now)

	if decisionErr != nil {
		return nil, decisionErr
	}
	return result, nil
}

// VerifyOTPInput carries the reset token and submitted one-time code.
type VerifyOTPInput struct {
	ResetToken string
	OTP        string
	RequestContext
}

// VerifyOTPResult carries the rotated reset token scoped to password reset.
type VerifyOTPResult struct {
	ResetToken string
	ExpiresAt  time.Time
}

// VerifyOTP exchanges an OTP-validated reset token for a fresh single-use
// token. The flow keeps no failure counter of its own; the token expiry is
// the only retry bound, except in final chance where one wrong code blocks
// the account permanently.
func (s *RecoveryService) VerifyOTP(ctx context.Context, input VerifyOTPInput) (*VerifyOTPResult, error) {
	resetToken := strings.TrimSpace(input.ResetToken)
	if resetToken == "" {
		return nil, &ValidationError{Field: "resetToken", Message: "is required"}
	}
	if strings.TrimSpace(input.OTP) == "" {
		return nil, &ValidationError{Field: "otp", Message: "is required"}
	}

	now := s.now().UTC()

	var (
		account     *domain.Account
		result      *VerifyOTPResult
		decisionErr error
		outcome     string
	)

	txErr := s.repo.Transact(ctx, func(repo port.AccountRepository) error {
		found, err := repo.GetForUpdateByResetToken(ctx, resetToken)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				outcome = "unknown_token"
				decisionErr = ErrInvalidResetToken
				return nil
			}
			return fmt.Errorf("load account: %w", err)
		}

		account = found

		if account.Blocked {
			outcome = "permanently_blocked"
			decisionErr = ErrPermanentlyBlocked
			return nil
		}

		if !account.HasValidResetToken(now) {
			account.ResetToken = nil
			account.ResetTokenExpiresAt = nil
			if err := repo.SaveSecurityState(ctx, *account); err != nil {
				return fmt.Errorf("clear expired token: %w", err)
			}
			outcome = "token_expired"
			decisionErr = ErrResetTokenExpired
			return nil
		}

		expected := s.policy.FallbackOTPCode
		if account.OTPCode != nil && *account.OTPCode != "" {
			expected = *account.OTPCode
		}

		if input.OTP != expected {
			if account.InFinalChance {
				account.Blocked = true
				account.InFinalChance = false
				account.ResetToken = nil
				account.ResetTokenExpiresAt = nil
				if err := repo.SaveSecurityState(ctx, *account); err != nil {
					return fmt.Errorf("persist permanent block: %w", err)
				}
				outcome = "final_chance_failed"
				decisionErr = ErrPermanentlyBlocked
				return nil
			}
			outcome = "wrong_otp"
			decisionErr = ErrInvalidOTP
			return nil
		}

		rotated, err := security.GenerateResetToken()
		if err != nil {
			return fmt.Errorf("rotate reset token: %w", err)
		}

		expiresAt := now.Add(s.policy.ResetTokenTTL)
		account.ResetToken = &rotated
		account.ResetTokenExpiresAt = &expiresAt

		if err := repo.SaveSecurityState(ctx, *account); err != nil {
			return fmt.Errorf("persist rotated token: %w", err)
		}

		outcome = "pass"
		result = &VerifyOTPResult{ResetToken: rotated, ExpiresAt: expiresAt}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	s.recordAudit(ctx, AuditActionOTPVerify, account, outcome, input.RequestContext)
	s.publishBlockIfNeeded(ctx, account, outcome, "otp_final_chance", now)

	if decisionErr != nil {
		return nil, decisionErr
	}
	return result, nil
}

// ResetPasswordInput carries the reset token and candidate password.
type ResetPasswordInput struct {
	ResetToken  string
	NewPassword string
	RequestContext
}

// ResetPassword consumes a reset token and installs a new password. The
// policy check runs before the token lookup, so a malformed password never
// burns the token.
func (s *RecoveryService) ResetPassword(ctx context.Context, input ResetPasswordInput) error {
	resetToken := strings.TrimSpace(input.ResetToken)
	if resetToken == "" {
		return &ValidationError{Field: "resetToken", Message: "is required"}
	}
	if input.NewPassword == "" {
		return &ValidationError{Field: "newPassword", Message: "is required"}
	}

	if err := s.validator.Validate(input.NewPassword); err != nil {
		return err
	}

	now := s.now().UTC()

	var (
		account     *domain.Account
		decisionErr error
		outcome     string
	)

	txErr := s.repo.Transact(ctx, func(repo port.AccountRepository) error {
		found, err := repo.GetForUpdateByResetToken(ctx, resetToken)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				outcome = "unknown_token"
				decisionErr = ErrInvalidResetToken
				return nil
			}
			return fmt.Errorf("load account: %w", err)
		}

		account = found

		if account.Blocked {
			outcome = "permanently_blocked"
			decisionErr = ErrPermanentlyBlocked
			return nil
		}

		if !account.HasValidResetToken(now) {
			account.ResetToken = nil
			account.ResetTokenExpiresAt = nil
			if err := repo.SaveSecurityState(ctx, *account); err != nil {
				return fmt.Errorf("clear expired token: %w", err)
			}
			outcome = "token_expired"
			decisionErr = ErrResetTokenExpired
			return nil
		}

		if s.verifier.VerifyPassword(input.NewPassword, account.PasswordHash) {
			outcome = "same_as_previous"
			decisionErr = ErrPasswordSameAsPrevious
			return nil
		}

		hash, err := security.HashPassword(input.NewPassword)
		if err != nil {
			return fmt.Errorf("hash new password: %w", err)
		}

		account.PasswordHash = hash
		account.ResetToken = nil
		account.ResetTokenExpiresAt = nil
		account.LoginFailureCount = 0
		account.RecoveryFailureCount = 0
		account.InFinalChance = false
		account.TempBlockedUntil = nil
		account.Confirmed = true

		if err := repo.SaveSecurityState(ctx, *account); err != nil {
			return fmt.Errorf("persist password reset: %w", err)
		}

		outcome = "pass"
		return nil
	})
	if txErr != nil {
		return txErr
	}

	s.recordAudit(ctx, AuditActionPasswordReset, account, outcome, input.RequestContext)

	if decisionErr != nil {
		return decisionErr
	}

	if s.events != nil {
		var sourceIP *string
		if input.SourceIP != "" {
			ip := input.SourceIP
			sourceIP = &ip
		}
		event := domain.PasswordResetEvent{
			AccountID: account.ID,
			ResetAt:   now,
			Method:    "recovery_flow",
			IPAddress: sourceIP,
		}
		if err := s.events.PublishPasswordReset(ctx, event); err != nil {
			s.logger.Warn("publish password reset event failed", zap.Error(err))
		}
	}

	return nil
}

// SetRecoveryStringInput identifies the acting account by the CCCD carried
// in its session claims.
type SetRecoveryStringInput struct {
	CCCD              string
	CurrentPassword   string
	NewRecoveryString string
	RequestContext
}

// SetRecoveryString installs a recovery string after re-verifying the
// caller's password. The stored value is hashed over the normalized form.
func (s *RecoveryService) SetRecoveryString(ctx context.Context, input SetRecoveryStringInput) error {
	cccd := strings.TrimSpace(input.CCCD)
	if cccd == "" {
		return &ValidationError{Field: "cccd", Message: "is required"}
	}
	if input.CurrentPassword == "" {
		return &ValidationError{Field: "currentPassword", Message: "is required"}
	}

	normalized := security.NormalizeRecoveryString(input.NewRecoveryString)
	if len(normalized) < 8 {
		return &ValidationError{Field: "recoveryString", Message: "must be at least 8 characters"}
	}

	var (
		account     *domain.Account
		decisionErr error
	)

	txErr := s.repo.Transact(ctx, func(repo port.AccountRepository) error {
		found, err := repo.GetForUpdateByCCCD(ctx, cccd)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				decisionErr = ErrAccountNotFound
				return nil
			}
			return fmt.Errorf("load account: %w", err)
		}

		account = found

		if account.Blocked {
			decisionErr = ErrPermanentlyBlocked
			return nil
		}

		if !s.verifier.VerifyPassword(input.CurrentPassword, account.PasswordHash) {
			decisionErr = ErrInvalidCredentials
			return nil
		}

		hash, err := security.HashRecoveryString(input.NewRecoveryString)
		if err != nil {
			return fmt.Errorf("hash recovery string: %w", err)
		}

		if err := repo.SetRecoveryString(ctx, account.ID, hash); err != nil {
			return fmt.Errorf("persist recovery string: %w", err)
		}

		return nil
	})
	if txErr != nil {
		return txErr
	}

	if decisionErr != nil {
		return decisionErr
	}

	s.recordAudit(ctx, AuditActionRecoverySetup, account, "pass", input.RequestContext)
	return nil
}

func (s *RecoveryService) recordAudit(ctx context.Context, action string, account *domain.Account, outcome string, reqCtx RequestContext) {
	if s.audit == nil || outcome == "" {
		return
	}

	var accountID *string
	if account != nil {
		id := account.ID
		accountID = &id
	}

	s.audit.Record(ctx, action, accountID, outcome, nil, reqCtx.SourceIP, reqCtx.UserAgent)
}

func (s *RecoveryService) publishBlockIfNeeded(ctx context.Context, account *domain.Account, outcome, trigger string, at time.Time) {
	if s.events == nil || outcome != "final_chance_failed" || account == nil {
		return
	}

	event := domain.AccountBlockedEvent{
		AccountID: account.ID,
		BlockedAt: at,
		Trigger:   trigger,
	}
	if err := s.events.PublishAccountBlocked(ctx, event); err != nil {
		s.logger.Warn("publish account blocked event failed", zap.Error(err))
	}
}
