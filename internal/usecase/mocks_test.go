package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/dnt-org/dnt-be/internal/core/domain"
	"github.com/dnt-org/dnt-be/internal/core/port"
	"github.com/dnt-org/dnt-be/internal/infra/security"
	"github.com/dnt-org/dnt-be/internal/repository"
)

// stubAccountRepo holds a single account in memory and mimics the
// version-guarded write behavior of the PostgreSQL repository.
type stubAccountRepo struct {
	account    *domain.Account
	audit      []domain.AuditEntry
	saveCalls  int
	createErr  error
	saveErr    error
	recovery   map[string]string
	lastLogins map[string]time.Time
}

func newStubAccountRepo(account *domain.Account) *stubAccountRepo {
	return &stubAccountRepo{
		account:    account,
		recovery:   make(map[string]string),
		lastLogins: make(map[string]time.Time),
	}
}

func (r *stubAccountRepo) Create(_ context.Context, account domain.Account) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.account = &account
	return nil
}

func (r *stubAccountRepo) GetByCCCD(_ context.Context, cccd string) (*domain.Account, error) {
	if r.account == nil || r.account.CCCD != cccd {
		return nil, repository.ErrNotFound
	}
	copied := *r.account
	return &copied, nil
}

func (r *stubAccountRepo) GetByBankNumber(_ context.Context, bankNumber string) (*domain.Account, error) {
	if r.account == nil || r.account.BankNumber == nil || *r.account.BankNumber != bankNumber {
		return nil, repository.ErrNotFound
	}
	copied := *r.account
	return &copied, nil
}

func (r *stubAccountRepo) GetByResetToken(_ context.Context, resetToken string) (*domain.Account, error) {
	if r.account == nil || r.account.ResetToken == nil || *r.account.ResetToken != resetToken {
		return nil, repository.ErrNotFound
	}
	copied := *r.account
	return &copied, nil
}

func (r *stubAccountRepo) GetForUpdateByCCCD(ctx context.Context, cccd string) (*domain.Account, error) {
	return r.GetByCCCD(ctx, cccd)
}

func (r *stubAccountRepo) GetForUpdateByBankNumber(ctx context.Context, bankNumber string) (*domain.Account, error) {
	return r.GetByBankNumber(ctx, bankNumber)
}

func (r *stubAccountRepo) GetForUpdateByResetToken(ctx context.Context, resetToken string) (*domain.Account, error) {
	return r.GetByResetToken(ctx, resetToken)
}

func (r *stubAccountRepo) SaveSecurityState(_ context.Context, account domain.Account) error {
	r.saveCalls++
	if r.saveErr != nil {
		return r.saveErr
	}
	if r.account == nil || r.account.ID != account.ID {
		return repository.ErrNotFound
	}
	if r.account.Version != account.Version {
		return repository.ErrVersionConflict
	}

	account.Version++
	account.RecoveryStringHash = r.account.RecoveryStringHash
	account.OTPCode = r.account.OTPCode
	account.LastLogin = r.account.LastLogin
	r.account = &account
	return nil
}

func (r *stubAccountRepo) SetRecoveryString(_ context.Context, accountID, hash string) error {
	if r.account == nil || r.account.ID != accountID {
		return repository.ErrNotFound
	}
	r.recovery[accountID] = hash
	r.account.RecoveryStringHash = &hash
	return nil
}

func (r *stubAccountRepo) UpdateLastLogin(_ context.Context, accountID string, at time.Time) error {
	if r.account == nil || r.account.ID != accountID {
		return repository.ErrNotFound
	}
	r.lastLogins[accountID] = at
	r.account.LastLogin = &at
	return nil
}

func (r *stubAccountRepo) Transact(_ context.Context, fn func(repo port.AccountRepository) error) error {
	return fn(r)
}

var _ port.AccountRepository = (*stubAccountRepo)(nil)

// stubAuditSink collects entries for assertions.
type stubAuditSink struct {
	entries []domain.AuditEntry
	err     error
}

func (s *stubAuditSink) Append(_ context.Context, entry domain.AuditEntry) error {
	if s.err != nil {
		return s.err
	}
	s.entries = append(s.entries, entry)
	return nil
}

// stubEventPublisher collects published events.
type stubEventPublisher struct {
	registered []domain.AccountRegisteredEvent
	resets     []domain.PasswordResetEvent
	blocked    []domain.AccountBlockedEvent
}

func (s *stubEventPublisher) PublishAccountRegistered(_ context.Context, event domain.AccountRegisteredEvent) error {
	s.registered = append(s.registered, event)
	return nil
}

func (s *stubEventPublisher) PublishPasswordReset(_ context.Context, event domain.PasswordResetEvent) error {
	s.resets = append(s.resets, event)
	return nil
}

func (s *stubEventPublisher) PublishAccountBlocked(_ context.Context, event domain.AccountBlockedEvent) error {
	s.blocked = append(s.blocked, event)
	return nil
}

// stubSessionCache is an in-memory port.SessionCache.
type stubSessionCache struct {
	sessions map[string]domain.QRSession
}

func newStubSessionCache() *stubSessionCache {
	return &stubSessionCache{sessions: make(map[string]domain.QRSession)}
}

func (c *stubSessionCache) Put(_ context.Context, session domain.QRSession, _ time.Duration) error {
	c.sessions[session.ID] = session
	return nil
}

func (c *stubSessionCache) Get(_ context.Context, sessionID string) (*domain.QRSession, error) {
	session, ok := c.sessions[sessionID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := session
	return &copied, nil
}

func (c *stubSessionCache) Delete(_ context.Context, sessionID string) error {
	delete(c.sessions, sessionID)
	return nil
}

var _ port.SessionCache = (*stubSessionCache)(nil)

func mustHash(t *testing.T, value string) string {
	t.Helper()
	hash, err := security.HashPassword(value)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return hash
}

func mustHashRecovery(t *testing.T, value string) string {
	t.Helper()
	hash, err := security.HashRecoveryString(value)
	if err != nil {
		t.Fatalf("hash recovery string: %v", err)
	}
	return hash
}

func newTestTokens(t *testing.T) *security.TokenManager {
	t.Helper()
	tokens, err := security.NewTokenManager("0123456789abcdef0123456789abcdef", "dnt-be", 7*24*time.Hour)
	if err != nil {
		t.Fatalf("new token manager: %v", err)
	}
	return tokens
}

func testAccount(t *testing.T, password string) *domain.Account {
	t.Helper()
	bankNumber := "9704000011112222"
	return &domain.Account{
		ID:           "acc-1",
		CCCD:         "079123456789",
		Username:     "nvana",
		FullName:     "Nguyen Van A",
		BankNumber:   &bankNumber,
		PasswordHash: mustHash(t, password),
		Confirmed:    true,
		RegisteredAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		Version:      1,
	}
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}
