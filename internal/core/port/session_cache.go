package port

import (
	"context"
	"time"

	"github.com/dnt-org/dnt-be/internal/core/domain"
)

// SessionCache stores ephemeral QR login sessions in an expiring key-value
// store. QR sessions never share storage or locking with account rows.
type SessionCache interface {
	Put(ctx context.Context, session domain.QRSession, ttl time.Duration) error
	Get(ctx context.Context, sessionID string) (*domain.QRSession, error)
	Delete(ctx context.Context, sessionID string) error
}
