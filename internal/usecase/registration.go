package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dnt-org/dnt-be/internal/core/domain"
	"github.com/dnt-org/dnt-be/internal/core/port"
	"github.com/dnt-org/dnt-be/internal/infra/security"
	"github.com/dnt-org/dnt-be/internal/repository"
)

// RegistrationService creates accounts with all escalation counters zeroed.
type RegistrationService struct {
	repo        port.AccountRepository
	events      port.EventPublisher
	logger      *zap.Logger
	autoConfirm bool
	now         func() time.Time
}

// NewRegistrationService wires the registration flow. When autoConfirm is
// false, accounts start unconfirmed pending manual approval.
func NewRegistrationService(repo port.AccountRepository, events port.EventPublisher, autoConfirm bool, logger *zap.Logger) *RegistrationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RegistrationService{
		repo:        repo,
		events:      events,
		logger:      logger,
		autoConfirm: autoConfirm,
		now:         time.Now,
	}
}

// WithClock overrides the time source. Intended for tests.
func (s *RegistrationService) WithClock(now func() time.Time) *RegistrationService {
	s.now = now
	return s
}

// RegisterInput carries the profile and credentials for a new account.
type RegisterInput struct {
	CCCD         string
	Username     string
	FullName     string
	MobileNumber string
	BankNumber   string
	BankName     string
	ReferenceID  string
	Password     string
}

// Register validates input, hashes the password, and persists the account.
func (s *RegistrationService) Register(ctx context.Context, input RegisterInput) (*domain.Account, error) {
	cccd := strings.TrimSpace(input.CCCD)
	if cccd == "" {
		return nil, &ValidationError{Field: "cccd", Message: "is required"}
	}
	if strings.TrimSpace(input.FullName) == "" {
		return nil, &ValidationError{Field: "fullName", Message: "is required"}
	}

	validator := security.NewRegistrationPasswordValidator(cccd, input.Username, input.FullName)
	if err := validator.Validate(input.Password); err != nil {
		return nil, err
	}

	if _, err := s.repo.GetByCCCD(ctx, cccd); err == nil {
		return nil, ErrAccountExists
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("check existing account: %w", err)
	}

	hash, err := security.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	username := strings.TrimSpace(input.Username)
	if username == "" {
		username = cccd
	}

	account := domain.Account{
		ID:           uuid.NewString(),
		CCCD:         cccd,
		Username:     username,
		FullName:     strings.TrimSpace(input.FullName),
		MobileNumber: optionalString(input.MobileNumber),
		BankNumber:   optionalString(input.BankNumber),
		BankName:     optionalString(input.BankName),
		ReferenceID:  optionalString(input.ReferenceID),
		PasswordHash: hash,
		Confirmed:    s.autoConfirm,
		RegisteredAt: now,
	}

	if err := s.repo.Create(ctx, account); err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}

	if s.events != nil {
		event := domain.AccountRegisteredEvent{
			AccountID:    account.ID,
			CCCD:         account.CCCD,
			Username:     account.Username,
			Confirmed:    account.Confirmed,
			RegisteredAt: now,
		}
		if err := s.events.PublishAccountRegistered(ctx, event); err != nil {
			s.logger.Warn("publish account registered event failed", zap.Error(err))
		}
	}

	sanitized := account.Sanitized()
	return &sanitized, nil
}

func optionalString(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
