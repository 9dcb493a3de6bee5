package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dnt-org/dnt-be/internal/core/domain"
	"github.com/dnt-org/dnt-be/internal/core/port"
)

// AuditRepository implements port.AuditSink using PostgreSQL.
type AuditRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewAuditRepository wires an audit sink backed by any executor that
// satisfies pgExecutor.
func NewAuditRepository(exec pgExecutor) *AuditRepository {
	repo := &AuditRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
	if pool, ok := exec.(*pgxpool.Pool); ok {
		repo.pool = pool
	}
	return repo
}

// Append inserts a single audit trail entry.
func (r *AuditRepository) Append(ctx context.Context, entry domain.AuditEntry) error {
	id := entry.ID
	if id == "" {
		id = uuid.NewString()
	}

	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	var details any
	if len(entry.Details) > 0 {
		raw, err := json.Marshal(entry.Details)
		if err != nil {
			return fmt.Errorf("marshal audit details: %w", err)
		}
		details = raw
	}

	query := r.builder.Insert("dnt.audit_logs").
		Columns(
			"id",
			"action",
			"account_id",
			"details",
			"source_ip",
			"user_agent",
			"created_at",
		).
		Values(
			id,
			entry.Action,
			entry.AccountID,
			details,
			entry.SourceIP,
			entry.UserAgent,
			createdAt,
		)

	stmt, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build insert audit entry sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}

	return nil
}

var _ port.AuditSink = (*AuditRepository)(nil)
