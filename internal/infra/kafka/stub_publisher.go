package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/dnt-org/dnt-be/internal/core/domain"
	"github.com/dnt-org/dnt-be/internal/core/port"
)

// StubPublisher logs events instead of sending them to Kafka. Useful for development environments.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

func (p *StubPublisher) logEvent(eventType, accountID string, at time.Time, payload any) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	p.logger.Info("Stub event published",
		zap.String("event_type", eventType),
		zap.String("account_id", accountID),
		zap.Time("timestamp", at.UTC()),
		zap.Any("payload", payload),
	)
}

// PublishAccountRegistered logs dnt.account.registered events.
func (p *StubPublisher) PublishAccountRegistered(_ context.Context, event domain.AccountRegisteredEvent) error {
	payload := map[string]any{
		"account_id":    event.AccountID,
		"cccd":          event.CCCD,
		"username":      event.Username,
		"confirmed":     event.Confirmed,
		"registered_at": event.RegisteredAt,
		"metadata":      event.Metadata,
	}
	p.logEvent("dnt.account.registered", event.AccountID, event.RegisteredAt, payload)
	return nil
}

// PublishPasswordReset logs dnt.account.password.reset events.
func (p *StubPublisher) PublishPasswordReset(_ context.Context, event domain.PasswordResetEvent) error {
	payload := map[string]any{
		"account_id": event.AccountID,
		"reset_at":   event.ResetAt,
		"method":     event.Method,
		"ip_address": event.IPAddress,
		"metadata":   event.Metadata,
	}
	p.logEvent("dnt.account.password.reset", event.AccountID, event.ResetAt, payload)
	return nil
}

// PublishAccountBlocked logs dnt.account.blocked events.
func (p *StubPublisher) PublishAccountBlocked(_ context.Context, event domain.AccountBlockedEvent) error {
	payload := map[string]any{
		"account_id": event.AccountID,
		"blocked_at": event.BlockedAt,
		"trigger":    event.Trigger,
		"metadata":   event.Metadata,
	}
	p.logEvent("dnt.account.blocked", event.AccountID, event.BlockedAt, payload)
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)
