package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dnt-org/dnt-be/internal/core/domain"
	"github.com/dnt-org/dnt-be/internal/core/port"
)

// Audit trail action names.
const (
	AuditActionLogin          = "login"
	AuditActionRecoveryVerify = "recovery_verify"
	AuditActionOTPVerify      = "otp_verify"
	AuditActionPasswordReset  = "password_reset"
	AuditActionRecoverySetup  = "recovery_setup"
)

// AuditRecorder appends audit entries without ever failing the caller.
// Sink errors fall back to the structured log stream.
type AuditRecorder struct {
	sink   port.AuditSink
	logger *zap.Logger
	now    func() time.Time
}

// NewAuditRecorder constructs a best-effort audit recorder.
func NewAuditRecorder(sink port.AuditSink, logger *zap.Logger) *AuditRecorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditRecorder{sink: sink, logger: logger, now: time.Now}
}

// WithClock overrides the time source. Intended for tests.
func (r *AuditRecorder) WithClock(now func() time.Time) *AuditRecorder {
	r.now = now
	return r
}

// Record appends one audit entry. Never returns an error.
func (r *AuditRecorder) Record(ctx context.Context, action string, accountID *string, outcome string, details map[string]any, sourceIP, userAgent string) {
	merged := make(map[string]any, len(details)+1)
	for k, v := range details {
		merged[k] = v
	}
	merged["outcome"] = outcome

	entry := domain.AuditEntry{
		ID:        uuid.NewString(),
		Action:    action,
		AccountID: accountID,
		Details:   merged,
		SourceIP:  sourceIP,
		UserAgent: userAgent,
		CreatedAt: r.now().UTC(),
	}

	if r.sink == nil {
		r.logger.Info("audit entry (no sink)",
			zap.String("action", entry.Action),
			zap.Any("details", entry.Details),
		)
		return
	}

	if err := r.sink.Append(ctx, entry); err != nil {
		r.logger.Warn("audit sink write failed",
			zap.Error(err),
			zap.String("action", entry.Action),
			zap.Any("details", entry.Details),
		)
	}
}
