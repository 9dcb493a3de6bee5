package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dnt-org/dnt-be/internal/core/domain"
	"github.com/dnt-org/dnt-be/internal/core/port"
	"github.com/dnt-org/dnt-be/internal/repository"
)

// QRLoginService runs the QR handshake: a browser generates a pending
// session, a logged-in device authorizes it with full credentials, and the
// browser polls until the session carries a token. Authorization runs the
// complete login state machine, so a blocked or temp-blocked account cannot
// slip in through the QR path.
type QRLoginService struct {
	cache  port.SessionCache
	login  *LoginService
	logger *zap.Logger
	ttl    time.Duration
	now    func() time.Time
}

// NewQRLoginService wires the QR login flow.
func NewQRLoginService(cache port.SessionCache, login *LoginService, ttl time.Duration, logger *zap.Logger) *QRLoginService {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QRLoginService{
		cache:  cache,
		login:  login,
		logger: logger,
		ttl:    ttl,
		now:    time.Now,
	}
}

// WithClock overrides the time source. Intended for tests.
func (s *QRLoginService) WithClock(now func() time.Time) *QRLoginService {
	s.now = now
	return s
}

// Generate creates a fresh pending session.
func (s *QRLoginService) Generate(ctx context.Context) (*domain.QRSession, error) {
	now := s.now().UTC()

	session := domain.QRSession{
		ID:        uuid.NewString(),
		Status:    domain.QRSessionPending,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	if err := s.cache.Put(ctx, session, s.ttl); err != nil {
		return nil, fmt.Errorf("store qr session: %w", err)
	}

	return &session, nil
}

// Authorize attaches a session token to a pending QR session after running
// the full login flow with the supplied credentials.
func (s *QRLoginService) Authorize(ctx context.Context, sessionID string, credentials LoginInput) error {
	if sessionID == "" {
		return &ValidationError{Field: "sessionId", Message: "is required"}
	}

	session, err := s.loadActive(ctx, sessionID)
	if err != nil {
		return err
	}

	if session.Status != domain.QRSessionPending {
		return ErrQRSessionNotFound
	}

	result, err := s.login.Login(ctx, credentials)
	if err != nil {
		return err
	}

	session.Status = domain.QRSessionAuthenticated
	session.CCCD = result.Account.CCCD
	session.Token = result.Token

	remaining := session.ExpiresAt.Sub(s.now().UTC())
	if err := s.cache.Put(ctx, *session, remaining); err != nil {
		return fmt.Errorf("store authorized qr session: %w", err)
	}

	return nil
}

// Poll returns the current session state. An authenticated session is
// consumed on read; its token is handed out exactly once.
func (s *QRLoginService) Poll(ctx context.Context, sessionID string) (*domain.QRSession, error) {
	if sessionID == "" {
		return nil, &ValidationError{Field: "sessionId", Message: "is required"}
	}

	session, err := s.loadActive(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if session.Status != domain.QRSessionAuthenticated {
		return session, ErrQRSessionPending
	}

	if err := s.cache.Delete(ctx, sessionID); err != nil {
		s.logger.Warn("delete consumed qr session failed", zap.Error(err), zap.String("session_id", sessionID))
	}

	return session, nil
}

func (s *QRLoginService) loadActive(ctx context.Context, sessionID string) (*domain.QRSession, error) {
	session, err := s.cache.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrQRSessionNotFound
		}
		return nil, fmt.Errorf("load qr session: %w", err)
	}

	if session.Expired(s.now().UTC()) {
		if err := s.cache.Delete(ctx, sessionID); err != nil {
			s.logger.Warn("delete expired qr session failed", zap.Error(err), zap.String("session_id", sessionID))
		}
		return nil, ErrQRSessionNotFound
	}

	return session, nil
}
