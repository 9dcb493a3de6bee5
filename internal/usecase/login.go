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

// LoginService drives the password login branch of the account security
// state machine. All account mutations happen inside a single transaction
// holding a row lock, so concurrent attempts against the same account are
// serialized and counters cannot be double-incremented.
type LoginService struct {
	repo     port.AccountRepository
	verifier *CredentialVerifier
	tokens   *security.TokenManager
	audit    *AuditRecorder
	events   port.EventPublisher
	logger   *zap.Logger
	policy   EscalationPolicy
	now      func() time.Time
}

// NewLoginService wires the login flow dependencies.
func NewLoginService(repo port.AccountRepository, verifier *CredentialVerifier, tokens *security.TokenManager, audit *AuditRecorder, events port.EventPublisher, policy EscalationPolicy, logger *zap.Logger) *LoginService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoginService{
		repo:     repo,
		verifier: verifier,
		tokens:   tokens,
		audit:    audit,
		events:   events,
		logger:   logger,
		policy:   policy.normalized(),
		now:      time.Now,
	}
}

// WithClock overrides the time source. Intended for tests.
func (s *LoginService) WithClock(now func() time.Time) *LoginService {
	s.now = now
	return s
}

// LoginInput carries the credentials and request context for one attempt.
type LoginInput struct {
	CCCD      string
	Password  string
	SourceIP  string
	UserAgent string
}

// LoginResult is returned on successful authentication.
type LoginResult struct {
	Token   string
	Account domain.Account
}

// Login runs one attempt through the escalation state machine.
//
// Decision order is fixed: permanent block, temp block, final chance,
// failure-threshold gate, then password comparison. A temp-blocked account
// never has its password checked.
//
// The transaction closure distinguishes decision errors from infrastructure
// errors: a decided outcome (wrong password, new permanent block) still
// commits its counter mutation, while a load/save failure rolls everything
// back so no partial state is left behind.
func (s *LoginService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	cccd := strings.TrimSpace(input.CCCD)
	if cccd == "" {
		return nil, &ValidationError{Field: "cccd", Message: "is required"}
	}
	if input.Password == "" {
		return nil, &ValidationError{Field: "password", Message: "is required"}
	}

	now := s.now().UTC()

	var (
		account     *domain.Account
		decisionErr error
		outcome     string
	)

	txErr := s.repo.Transact(ctx, func(repo port.AccountRepository) error {
		found, err := repo.GetForUpdateByCCCD(ctx, cccd)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				outcome = "unknown_identity"
				decisionErr = ErrInvalidCredentials
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

		if account.InFinalChance {
			if !s.verifier.VerifyPassword(input.Password, account.PasswordHash) {
				account.Blocked = true
				account.InFinalChance = false
				if err := repo.SaveSecurityState(ctx, *account); err != nil {
					return fmt.Errorf("persist permanent block: %w", err)
				}
				outcome = "final_chance_failed"
				decisionErr = ErrPermanentlyBlocked
				return nil
			}
			outcome = "final_chance_password_ok"
			decisionErr = &RecoveryRequiredError{Reason: ReasonFinalChanceSecurityCheck}
			return nil
		}

		if account.LoginFailureCount >= s.policy.MaxLoginFailures {
			outcome = "threshold_exceeded"
			decisionErr = &RecoveryRequiredError{Reason: ReasonTooManyLoginFailures}
			return nil
		}

		if !s.verifier.VerifyPassword(input.Password, account.PasswordHash) {
			account.LoginFailureCount++
			if err := repo.SaveSecurityState(ctx, *account); err != nil {
				return fmt.Errorf("persist failure count: %w", err)
			}
			if account.LoginFailureCount >= s.policy.MaxLoginFailures {
				outcome = "threshold_reached"
				decisionErr = &RecoveryRequiredError{Reason: ReasonTooManyLoginFailures}
				return nil
			}
			outcome = "wrong_password"
			decisionErr = &InvalidCredentialsError{
				AttemptsRemaining: s.policy.MaxLoginFailures - account.LoginFailureCount,
			}
			return nil
		}

		account.LoginFailureCount = 0
		account.RecoveryFailureCount = 0
		account.InFinalChance = false
		account.TempBlockedUntil = nil
		account.ResetToken = nil
		account.ResetTokenExpiresAt = nil

		if err := repo.SaveSecurityState(ctx, *account); err != nil {
			return fmt.Errorf("persist login success: %w", err)
		}
		if err := repo.UpdateLastLogin(ctx, account.ID, now); err != nil {
			return fmt.Errorf("persist last login: %w", err)
		}

		outcome = "success"
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	s.recordAudit(ctx, account, outcome, input)

	if outcome == "final_chance_failed" && s.events != nil {
		event := domain.AccountBlockedEvent{
			AccountID: account.ID,
			BlockedAt: now,
			Trigger:   "login_final_chance",
		}
		if err := s.events.PublishAccountBlocked(ctx, event); err != nil {
			s.logger.Warn("publish account blocked event failed", zap.Error(err))
		}
	}

	if decisionErr != nil {
		return nil, decisionErr
	}

	token, err := s.tokens.Issue(account.ID, account.CCCD)
	if err != nil {
		s.logger.Error("issue session token failed", zap.Error(err), zap.String("account_id", account.ID))
		return nil, fmt.Errorf("issue session token: %w", err)
	}

	lastLogin := now
	account.LastLogin = &lastLogin

	return &LoginResult{Token: token, Account: account.Sanitized()}, nil
}

func (s *LoginService) recordAudit(ctx context.Context, account *domain.Account, outcome string, input LoginInput) {
	if s.audit == nil || outcome == "" {
		return
	}

	var accountID *string
	if account != nil {
		id := account.ID
		accountID = &id
	}

	s.audit.Record(ctx, AuditActionLogin, accountID, outcome, nil, input.SourceIP, input.UserAgent)
}
