package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dnt-org/dnt-be/internal/core/domain"
	"github.com/dnt-org/dnt-be/internal/core/port"
	"github.com/dnt-org/dnt-be/internal/repository"
)

// QRSessionConfig defines key namespace and default TTL for QR login sessions.
type QRSessionConfig struct {
	KeyPrefix  string
	DefaultTTL time.Duration
}

// QRSessionRepository stores QR login sessions as JSON blobs with TTL.
type QRSessionRepository struct {
	client *redis.Client
	cfg    QRSessionConfig
}

// NewQRSessionRepository constructs a repository using the provided Redis client and config.
func NewQRSessionRepository(client *redis.Client, cfg QRSessionConfig) *QRSessionRepository {
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = 5 * time.Minute
	}
	return &QRSessionRepository{client: client, cfg: cfg}
}

// Put stores a session under its identifier with the supplied TTL.
func (r *QRSessionRepository) Put(ctx context.Context, session domain.QRSession, ttl time.Duration) error {
	if session.ID == "" {
		return errors.New("qr session id is required")
	}

	if ttl <= 0 {
		ttl = r.cfg.DefaultTTL
	}

	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal qr session: %w", err)
	}

	if err := r.client.Set(ctx, r.key(session.ID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set qr session: %w", err)
	}

	return nil
}

// Get retrieves a session by identifier. Expired or missing sessions return ErrNotFound.
func (r *QRSessionRepository) Get(ctx context.Context, sessionID string) (*domain.QRSession, error) {
	payload, err := r.client.Get(ctx, r.key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("redis get qr session: %w", err)
	}

	var session domain.QRSession
	if err := json.Unmarshal(payload, &session); err != nil {
		return nil, fmt.Errorf("unmarshal qr session: %w", err)
	}

	return &session, nil
}

// Delete removes a session. Missing keys are not an error.
func (r *QRSessionRepository) Delete(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, r.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis del qr session: %w", err)
	}
	return nil
}

func (r *QRSessionRepository) key(sessionID string) string {
	if r.cfg.KeyPrefix == "" {
		return sessionID
	}
	return fmt.Sprintf("%s:%s", r.cfg.KeyPrefix, sessionID)
}

var _ port.SessionCache = (*QRSessionRepository)(nil)
