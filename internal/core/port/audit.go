package port

import (
	"context"

	"github.com/dnt-org/dnt-be/internal/core/domain"
)

// AuditSink persists audit trail entries. Callers treat writes as best-effort;
// implementations should still report errors so the fallback path can log them.
type AuditSink interface {
	Append(ctx context.Context, entry domain.AuditEntry) error
}
