package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

const testPassword = "Correct-h0rse!"

func newLoginService(t *testing.T, repo *stubAccountRepo, at time.Time) (*LoginService, *stubAuditSink, *stubEventPublisher) {
	t.Helper()

	logger := zaptest.NewLogger(t)
	sink := &stubAuditSink{}
	events := &stubEventPublisher{}
	audit := NewAuditRecorder(sink, logger).WithClock(fixedClock(at))
	verifier := NewCredentialVerifier(logger)

	service := NewLoginService(repo, verifier, newTestTokens(t), audit, events, DefaultEscalationPolicy(), logger).
		WithClock(fixedClock(at))

	return service, sink, events
}

func TestLoginSuccessIssuesTokenAndResetsState(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	account := testAccount(t, testPassword)
	account.LoginFailureCount = 3
	account.RecoveryFailureCount = 2
	past := now.Add(-time.Hour)
	account.TempBlockedUntil = &past
	token := "RST-stale"
	account.ResetToken = &token
	account.ResetTokenExpiresAt = &past

	repo := newStubAccountRepo(account)
	service, _, _ := newLoginService(t, repo, now)

	result, err := service.Login(context.Background(), LoginInput{CCCD: account.CCCD, Password: testPassword})
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if result.Token == "" {
		t.Fatal("expected a session token")
	}
	if result.Account.PasswordHash != "" {
		t.Fatal("expected sanitized account without password hash")
	}

	stored := repo.account
	if stored.LoginFailureCount != 0 || stored.RecoveryFailureCount != 0 {
		t.Fatalf("expected counters reset, got login=%d recovery=%d", stored.LoginFailureCount, stored.RecoveryFailureCount)
	}
	if stored.TempBlockedUntil != nil || stored.InFinalChance {
		t.Fatal("expected lock fields cleared")
	}
	if stored.ResetToken != nil || stored.ResetTokenExpiresAt != nil {
		t.Fatal("expected reset token cleared on successful login")
	}
	if stored.LastLogin == nil || !stored.LastLogin.Equal(now) {
		t.Fatalf("expected last login %v, got %v", now, stored.LastLogin)
	}
}

func TestLoginUnknownIdentityIsGeneric(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	repo := newStubAccountRepo(testAccount(t, testPassword))
	service, _, _ := newLoginService(t, repo, now)

	_, err := service.Login(context.Background(), LoginInput{CCCD: "000000000000", Password: "whatever"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLoginValidation(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	repo := newStubAccountRepo(testAccount(t, testPassword))
	service, _, _ := newLoginService(t, repo, now)

	if _, err := service.Login(context.Background(), LoginInput{CCCD: "", Password: "x"}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for empty cccd, got %v", err)
	}
	if _, err := service.Login(context.Background(), LoginInput{CCCD: "079123456789", Password: ""}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for empty password, got %v", err)
	}
}

func TestLoginFailureEscalation(t *testing.T) {
	// Four wrong passwords count down the attempt budget, the fifth forces
	// the recovery flow, and even the correct password cannot log in after
	// that.
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	account := testAccount(t, testPassword)
	repo := newStubAccountRepo(account)
	service, _, _ := newLoginService(t, repo, now)

	ctx := context.Background()

	for i, wantRemaining := range []int{4, 3, 2, 1} {
		_, err := service.Login(ctx, LoginInput{CCCD: account.CCCD, Password: "wrong-pass"})
		var invalid *InvalidCredentialsError
		if !errors.As(err, &invalid) {
			t.Fatalf("attempt %d: expected InvalidCredentialsError, got %v", i+1, err)
		}
		if invalid.AttemptsRemaining != wantRemaining {
			t.Fatalf("attempt %d: attemptsRemaining = %d, want %d", i+1, invalid.AttemptsRemaining, wantRemaining)
		}
	}

	_, err := service.Login(ctx, LoginInput{CCCD: account.CCCD, Password: "wrong-pass"})
	var recovery *RecoveryRequiredError
	if !errors.As(err, &recovery) {
		t.Fatalf("fifth failure: expected RecoveryRequiredError, got %v", err)
	}
	if recovery.Reason != ReasonTooManyLoginFailures {
		t.Fatalf("reason = %s, want %s", recovery.Reason, ReasonTooManyLoginFailures)
	}

	// Threshold exactness: the correct password is refused once the counter
	// hit the limit.
	_, err = service.Login(ctx, LoginInput{CCCD: account.CCCD, Password: testPassword})
	if !errors.As(err, &recovery) {
		t.Fatalf("post-threshold correct password: expected RecoveryRequiredError, got %v", err)
	}
	if repo.account.LoginFailureCount != 5 {
		t.Fatalf("loginFailureCount = %d, want 5", repo.account.LoginFailureCount)
	}
}

func TestLoginTempBlockedSkipsPasswordCheck(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	account := testAccount(t, testPassword)
	until := now.Add(7*time.Minute + 30*time.Second)
	account.TempBlockedUntil = &until

	repo := newStubAccountRepo(account)
	service, _, _ := newLoginService(t, repo, now)

	_, err := service.Login(context.Background(), LoginInput{CCCD: account.CCCD, Password: testPassword})
	var blocked *TempBlockedError
	if !errors.As(err, &blocked) {
		t.Fatalf("expected TempBlockedError, got %v", err)
	}
	if blocked.RemainingMinutes != 8 {
		t.Fatalf("remaining minutes = %d, want 8 (ceil of 7m30s)", blocked.RemainingMinutes)
	}
	if repo.saveCalls != 0 {
		t.Fatal("temp-blocked attempt must not mutate the account")
	}
}

func TestLoginFinalChanceWrongPasswordBlocksPermanently(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	account := testAccount(t, testPassword)
	account.InFinalChance = true

	repo := newStubAccountRepo(account)
	service, _, events := newLoginService(t, repo, now)

	_, err := service.Login(context.Background(), LoginInput{CCCD: account.CCCD, Password: "wrong-pass"})
	if !errors.Is(err, ErrPermanentlyBlocked) {
		t.Fatalf("expected ErrPermanentlyBlocked, got %v", err)
	}
	if !repo.account.Blocked {
		t.Fatal("expected account to be permanently blocked")
	}
	if repo.account.InFinalChance {
		t.Fatal("expected final chance flag cleared")
	}
	if len(events.blocked) != 1 {
		t.Fatalf("expected 1 blocked event, got %d", len(events.blocked))
	}
}

func TestLoginFinalChanceCorrectPasswordStillRequiresRecovery(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	account := testAccount(t, testPassword)
	account.InFinalChance = true

	repo := newStubAccountRepo(account)
	service, _, _ := newLoginService(t, repo, now)

	_, err := service.Login(context.Background(), LoginInput{CCCD: account.CCCD, Password: testPassword})
	var recovery *RecoveryRequiredError
	if !errors.As(err, &recovery) {
		t.Fatalf("expected RecoveryRequiredError, got %v", err)
	}
	if recovery.Reason != ReasonFinalChanceSecurityCheck {
		t.Fatalf("reason = %s, want %s", recovery.Reason, ReasonFinalChanceSecurityCheck)
	}
	if !repo.account.InFinalChance {
		t.Fatal("correct password alone must not clear final chance")
	}
	if repo.account.Blocked {
		t.Fatal("correct password must not block the account")
	}
}

func TestLoginPermanentBlockShortCircuits(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	account := testAccount(t, testPassword)
	account.Blocked = true

	repo := newStubAccountRepo(account)
	service, _, _ := newLoginService(t, repo, now)

	_, err := service.Login(context.Background(), LoginInput{CCCD: account.CCCD, Password: testPassword})
	if !errors.Is(err, ErrPermanentlyBlocked) {
		t.Fatalf("expected ErrPermanentlyBlocked, got %v", err)
	}
	if repo.saveCalls != 0 {
		t.Fatal("blocked account must not be mutated")
	}
}

func TestLoginAuditsEveryOutcome(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	account := testAccount(t, testPassword)
	repo := newStubAccountRepo(account)
	service, sink, _ := newLoginService(t, repo, now)

	ctx := context.Background()
	_, _ = service.Login(ctx, LoginInput{CCCD: account.CCCD, Password: "wrong-pass", SourceIP: "10.0.0.1"})
	_, _ = service.Login(ctx, LoginInput{CCCD: account.CCCD, Password: testPassword, SourceIP: "10.0.0.1"})

	if len(sink.entries) != 2 {
		t.Fatalf("expected 2 audit entries, got %d", len(sink.entries))
	}
	if sink.entries[0].Details["outcome"] != "wrong_password" {
		t.Fatalf("first outcome = %v, want wrong_password", sink.entries[0].Details["outcome"])
	}
	if sink.entries[1].Details["outcome"] != "success" {
		t.Fatalf("second outcome = %v, want success", sink.entries[1].Details["outcome"])
	}
}

func TestLoginAuditFailureDoesNotAbort(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	account := testAccount(t, testPassword)
	repo := newStubAccountRepo(account)

	logger := zaptest.NewLogger(t)
	sink := &stubAuditSink{err: errors.New("sink down")}
	audit := NewAuditRecorder(sink, logger).WithClock(fixedClock(now))
	service := NewLoginService(repo, NewCredentialVerifier(logger), newTestTokens(t), audit, nil, DefaultEscalationPolicy(), logger).
		WithClock(fixedClock(now))

	if _, err := service.Login(context.Background(), LoginInput{CCCD: account.CCCD, Password: testPassword}); err != nil {
		t.Fatalf("Login must succeed despite audit failure, got %v", err)
	}
}
