package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/dnt-org/dnt-be/internal/core/domain"
)

func newQRService(t *testing.T, repo *stubAccountRepo, at time.Time) (*QRLoginService, *stubSessionCache) {
	t.Helper()

	login, _, _ := newLoginService(t, repo, at)
	cache := newStubSessionCache()
	service := NewQRLoginService(cache, login, 5*time.Minute, zaptest.NewLogger(t)).WithClock(fixedClock(at))
	return service, cache
}

func TestQRLoginHappyPath(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	account := testAccount(t, testPassword)
	repo := newStubAccountRepo(account)
	service, cache := newQRService(t, repo, now)

	ctx := context.Background()

	session, err := service.Generate(ctx)
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if session.Status != domain.QRSessionPending {
		t.Fatalf("status = %s, want pending", session.Status)
	}

	if _, err := service.Poll(ctx, session.ID); !errors.Is(err, ErrQRSessionPending) {
		t.Fatalf("pending poll: expected ErrQRSessionPending, got %v", err)
	}

	if err := service.Authorize(ctx, session.ID, LoginInput{CCCD: account.CCCD, Password: testPassword}); err != nil {
		t.Fatalf("Authorize returned error: %v", err)
	}

	polled, err := service.Poll(ctx, session.ID)
	if err != nil {
		t.Fatalf("Poll returned error: %v", err)
	}
	if polled.Status != domain.QRSessionAuthenticated {
		t.Fatalf("status = %s, want authenticated", polled.Status)
	}
	if polled.Token == "" {
		t.Fatal("expected session token")
	}

	// The token is handed out exactly once.
	if _, err := service.Poll(ctx, session.ID); !errors.Is(err, ErrQRSessionNotFound) {
		t.Fatalf("second poll: expected ErrQRSessionNotFound, got %v", err)
	}
	if _, ok := cache.sessions[session.ID]; ok {
		t.Fatal("expected session removed after consumption")
	}
}

func TestQRLoginAuthorizeRunsFullStateMachine(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	account := testAccount(t, testPassword)
	account.Blocked = true
	repo := newStubAccountRepo(account)
	service, _ := newQRService(t, repo, now)

	ctx := context.Background()

	session, err := service.Generate(ctx)
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}

	err = service.Authorize(ctx, session.ID, LoginInput{CCCD: account.CCCD, Password: testPassword})
	if !errors.Is(err, ErrPermanentlyBlocked) {
		t.Fatalf("expected ErrPermanentlyBlocked via QR path, got %v", err)
	}
}

func TestQRLoginExpiredSession(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	account := testAccount(t, testPassword)
	repo := newStubAccountRepo(account)
	service, cache := newQRService(t, repo, now)

	ctx := context.Background()

	session, err := service.Generate(ctx)
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}

	service.WithClock(fixedClock(now.Add(6 * time.Minute)))

	if _, err := service.Poll(ctx, session.ID); !errors.Is(err, ErrQRSessionNotFound) {
		t.Fatalf("expected ErrQRSessionNotFound for expired session, got %v", err)
	}
	if _, ok := cache.sessions[session.ID]; ok {
		t.Fatal("expected expired session evicted")
	}
}

func TestQRLoginUnknownSession(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	repo := newStubAccountRepo(testAccount(t, testPassword))
	service, _ := newQRService(t, repo, now)

	if _, err := service.Poll(context.Background(), "nope"); !errors.Is(err, ErrQRSessionNotFound) {
		t.Fatalf("expected ErrQRSessionNotFound, got %v", err)
	}
	if err := service.Authorize(context.Background(), "nope", LoginInput{CCCD: "x", Password: "y"}); !errors.Is(err, ErrQRSessionNotFound) {
		t.Fatalf("expected ErrQRSessionNotFound, got %v", err)
	}
}
