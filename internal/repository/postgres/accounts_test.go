package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v2"

	"github.com/dnt-org/dnt-be/internal/core/domain"
	"github.com/dnt-org/dnt-be/internal/repository"
)

func testStoredAccount() domain.Account {
	bankNumber := "9704000011112222"
	recoveryHash := "argon2id$v=19$m=65536,t=3,p=4$c2FsdA$aGFzaA"
	return domain.Account{
		ID:                 "acc-1",
		CCCD:               "079123456789",
		Username:           "nvana",
		FullName:           "Nguyen Van A",
		BankNumber:         &bankNumber,
		PasswordHash:       "argon2id$v=19$m=65536,t=3,p=4$c2FsdA$cGFzcw",
		RecoveryStringHash: &recoveryHash,
		Confirmed:          true,
		RegisteredAt:       time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		Version:            3,
	}
}

func accountRows(account domain.Account) *pgxmock.Rows {
	return pgxmock.NewRows(accountColumns).AddRow(
		account.ID,
		account.CCCD,
		account.Username,
		account.FullName,
		account.MobileNumber,
		account.BankNumber,
		account.BankName,
		account.ReferenceID,
		account.PasswordHash,
		account.RecoveryStringHash,
		account.OTPCode,
		account.LoginFailureCount,
		account.RecoveryFailureCount,
		account.InFinalChance,
		account.TempBlockedUntil,
		account.Blocked,
		account.ResetToken,
		account.ResetTokenExpiresAt,
		account.Confirmed,
		account.RegisteredAt,
		account.LastLogin,
		account.Version,
	)
}

func TestAccountRepository_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewAccountRepository(mock)
	account := testStoredAccount()

	mock.ExpectExec(`INSERT INTO dnt\.accounts`).
		WithArgs(
			account.ID,
			account.CCCD,
			account.Username,
			account.FullName,
			account.MobileNumber,
			account.BankNumber,
			account.BankName,
			account.ReferenceID,
			account.PasswordHash,
			account.RecoveryStringHash,
			account.OTPCode,
			account.LoginFailureCount,
			account.RecoveryFailureCount,
			account.InFinalChance,
			account.TempBlockedUntil,
			account.Blocked,
			account.ResetToken,
			account.ResetTokenExpiresAt,
			account.Confirmed,
			account.RegisteredAt,
			account.LastLogin,
			account.Version,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	if err := repo.Create(context.Background(), account); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAccountRepository_GetByCCCD(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewAccountRepository(mock)
	stored := testStoredAccount()

	mock.ExpectQuery(`SELECT .* FROM dnt\.accounts WHERE cccd = \$1 LIMIT 1`).
		WithArgs(stored.CCCD).
		WillReturnRows(accountRows(stored))

	account, err := repo.GetByCCCD(context.Background(), stored.CCCD)
	if err != nil {
		t.Fatalf("GetByCCCD returned error: %v", err)
	}
	if account.ID != stored.ID {
		t.Fatalf("expected account id %s, got %s", stored.ID, account.ID)
	}
	if account.RecoveryStringHash == nil || *account.RecoveryStringHash != *stored.RecoveryStringHash {
		t.Fatal("expected recovery string hash populated")
	}
	if account.Version != stored.Version {
		t.Fatalf("expected version %d, got %d", stored.Version, account.Version)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAccountRepository_GetByCCCDNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewAccountRepository(mock)

	mock.ExpectQuery(`SELECT .* FROM dnt\.accounts`).
		WithArgs("000000000000").
		WillReturnRows(pgxmock.NewRows(accountColumns))

	_, err = repo.GetByCCCD(context.Background(), "000000000000")
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAccountRepository_GetForUpdateLocksRow(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewAccountRepository(mock)
	stored := testStoredAccount()

	mock.ExpectQuery(`SELECT .* FROM dnt\.accounts WHERE cccd = \$1 LIMIT 1 FOR UPDATE`).
		WithArgs(stored.CCCD).
		WillReturnRows(accountRows(stored))

	if _, err := repo.GetForUpdateByCCCD(context.Background(), stored.CCCD); err != nil {
		t.Fatalf("GetForUpdateByCCCD returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAccountRepository_SaveSecurityStateBumpsVersion(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewAccountRepository(mock)
	account := testStoredAccount()
	account.LoginFailureCount = 2

	mock.ExpectExec(`UPDATE dnt\.accounts SET`).
		WithArgs(
			account.PasswordHash,
			account.LoginFailureCount,
			account.RecoveryFailureCount,
			account.InFinalChance,
			account.TempBlockedUntil,
			account.Blocked,
			account.ResetToken,
			account.ResetTokenExpiresAt,
			account.Confirmed,
			account.Version+1,
			account.ID,
			account.Version,
		).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	if err := repo.SaveSecurityState(context.Background(), account); err != nil {
		t.Fatalf("SaveSecurityState returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAccountRepository_SaveSecurityStateVersionConflict(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewAccountRepository(mock)
	account := testStoredAccount()

	mock.ExpectExec(`UPDATE dnt\.accounts SET`).
		WithArgs(
			pgxmock.AnyArg(),
			pgxmock.AnyArg(),
			pgxmock.AnyArg(),
			pgxmock.AnyArg(),
			pgxmock.AnyArg(),
			pgxmock.AnyArg(),
			pgxmock.AnyArg(),
			pgxmock.AnyArg(),
			pgxmock.AnyArg(),
			pgxmock.AnyArg(),
			pgxmock.AnyArg(),
			pgxmock.AnyArg(),
		).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err = repo.SaveSecurityState(context.Background(), account)
	if !errors.Is(err, repository.ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict, got %v", err)
	}
}

func TestAccountRepository_SetRecoveryString(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewAccountRepository(mock)

	mock.ExpectExec(`UPDATE dnt\.accounts SET recovery_string_hash = \$1 WHERE id = \$2`).
		WithArgs("hashed-value", "acc-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	if err := repo.SetRecoveryString(context.Background(), "acc-1", "hashed-value"); err != nil {
		t.Fatalf("SetRecoveryString returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAccountRepository_UpdateLastLoginUnknownAccount(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewAccountRepository(mock)

	mock.ExpectExec(`UPDATE dnt\.accounts SET last_login = \$1 WHERE id = \$2`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err = repo.UpdateLastLogin(context.Background(), "missing", time.Now().UTC())
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
