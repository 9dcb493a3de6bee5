package postgres

import (
	"context"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v2"

	"github.com/dnt-org/dnt-be/internal/core/domain"
)

func TestAuditRepository_Append(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewAuditRepository(mock)

	accountID := "acc-1"
	entry := domain.AuditEntry{
		ID:        "audit-1",
		Action:    "login",
		AccountID: &accountID,
		Details:   map[string]any{"outcome": "success"},
		SourceIP:  "203.0.113.7",
		UserAgent: "test-agent",
		CreatedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	mock.ExpectExec(`INSERT INTO dnt\.audit_logs`).
		WithArgs(
			entry.ID,
			entry.Action,
			entry.AccountID,
			[]byte(`{"outcome":"success"}`),
			entry.SourceIP,
			entry.UserAgent,
			entry.CreatedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	if err := repo.Append(context.Background(), entry); err != nil {
		t.Fatalf("Append returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAuditRepository_AppendFillsDefaults(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewAuditRepository(mock)

	mock.ExpectExec(`INSERT INTO dnt\.audit_logs`).
		WithArgs(
			pgxmock.AnyArg(),
			"recovery_verify",
			(*string)(nil),
			nil,
			"",
			"",
			pgxmock.AnyArg(),
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	entry := domain.AuditEntry{Action: "recovery_verify"}
	if err := repo.Append(context.Background(), entry); err != nil {
		t.Fatalf("Append returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
