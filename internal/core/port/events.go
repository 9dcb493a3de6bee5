package port

import (
	"context"

	"github.com/dnt-org/dnt-be/internal/core/domain"
)

// EventPublisher dispatches fire-and-forget notifications for account lifecycle events.
type EventPublisher interface {
	PublishAccountRegistered(ctx context.Context, event domain.AccountRegisteredEvent) error
	PublishPasswordReset(ctx context.Context, event domain.PasswordResetEvent) error
	PublishAccountBlocked(ctx context.Context, event domain.AccountBlockedEvent) error
}
