package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dnt-org/dnt-be/internal/core/domain"
	"github.com/dnt-org/dnt-be/internal/core/port"
	"github.com/dnt-org/dnt-be/internal/repository"
)

type pgExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var accountColumns = []string{
	"id",
	"cccd",
	"username",
	"full_name",
	"mobile_number",
	"bank_number",
	"bank_name",
	"reference_id",
	"password_hash",
	"recovery_string_hash",
	"otp_code",
	"login_failure_count",
	"recovery_failure_count",
	"in_final_chance",
	"temp_blocked_until",
	"blocked",
	"reset_token",
	"reset_token_expires_at",
	"confirmed",
	"registered_at",
	"last_login",
	"version",
}

// AccountRepository implements port.AccountRepository using PostgreSQL.
type AccountRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewAccountRepository wires an account repository backed by any executor
// that satisfies pgExecutor.
func NewAccountRepository(exec pgExecutor) *AccountRepository {
	repo := &AccountRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
	if pool, ok := exec.(*pgxpool.Pool); ok {
		repo.pool = pool
	}
	return repo
}

// WithTx returns a repository instance operating within the supplied transaction.
func (r *AccountRepository) WithTx(tx pgx.Tx) *AccountRepository {
	if tx == nil {
		return r
	}
	return &AccountRepository{
		pool:    r.pool,
		exec:    tx,
		builder: r.builder,
	}
}

// Create inserts a new account row.
func (r *AccountRepository) Create(ctx context.Context, account domain.Account) error {
	query := r.builder.Insert("dnt.accounts").
		Columns(accountColumns...).
		Values(
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

	stmt, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build insert account sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert account: %w", err)
	}

	return nil
}

// GetByCCCD retrieves an account by citizen identity number.
func (r *AccountRepository) GetByCCCD(ctx context.Context, cccd string) (*domain.Account, error) {
	return r.getBy(ctx, squirrel.Eq{"cccd": cccd}, false)
}

// GetByBankNumber retrieves an account by bank account number.
func (r *AccountRepository) GetByBankNumber(ctx context.Context, bankNumber string) (*domain.Account, error) {
	return r.getBy(ctx, squirrel.Eq{"bank_number": bankNumber}, false)
}

// GetByResetToken retrieves an account holding the given reset token.
func (r *AccountRepository) GetByResetToken(ctx context.Context, resetToken string) (*domain.Account, error) {
	return r.getBy(ctx, squirrel.Eq{"reset_token": resetToken}, false)
}

// GetForUpdateByCCCD locks and retrieves an account by citizen identity number.
func (r *AccountRepository) GetForUpdateByCCCD(ctx context.Context, cccd string) (*domain.Account, error) {
	return r.getBy(ctx, squirrel.Eq{"cccd": cccd}, true)
}

// GetForUpdateByBankNumber locks and retrieves an account by bank account number.
func (r *AccountRepository) GetForUpdateByBankNumber(ctx context.Context, bankNumber string) (*domain.Account, error) {
	return r.getBy(ctx, squirrel.Eq{"bank_number": bankNumber}, true)
}

// GetForUpdateByResetToken locks and retrieves an account by reset token.
func (r *AccountRepository) GetForUpdateByResetToken(ctx context.Context, resetToken string) (*domain.Account, error) {
	return r.getBy(ctx, squirrel.Eq{"reset_token": resetToken}, true)
}

func (r *AccountRepository) getBy(ctx context.Context, cond squirrel.Eq, forUpdate bool) (*domain.Account, error) {
	query := r.builder.
		Select(accountColumns...).
		From("dnt.accounts").
		Where(cond).
		Limit(1)

	if forUpdate {
		query = query.Suffix("FOR UPDATE")
	}

	stmt, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select account sql: %w", err)
	}

	row := r.exec.QueryRow(ctx, stmt, args...)
	return scanAccount(row)
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var account domain.Account

	if err := row.Scan(
		&account.ID,
		&account.CCCD,
		&account.Username,
		&account.FullName,
		&account.MobileNumber,
		&account.BankNumber,
		&account.BankName,
		&account.ReferenceID,
		&account.PasswordHash,
		&account.RecoveryStringHash,
		&account.OTPCode,
		&account.LoginFailureCount,
		&account.RecoveryFailureCount,
		&account.InFinalChance,
		&account.TempBlockedUntil,
		&account.Blocked,
		&account.ResetToken,
		&account.ResetTokenExpiresAt,
		&account.Confirmed,
		&account.RegisteredAt,
		&account.LastLogin,
		&account.Version,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}

	return &account, nil
}

// SaveSecurityState persists every escalation field in a single statement.
// The version predicate turns a lost update into ErrVersionConflict instead of
// silently overwriting a concurrent writer.
func (r *AccountRepository) SaveSecurityState(ctx context.Context, account domain.Account) error {
	query := r.builder.Update("dnt.accounts").
		Set("password_hash", account.PasswordHash).
		Set("login_failure_count", account.LoginFailureCount).
		Set("recovery_failure_count", account.RecoveryFailureCount).
		Set("in_final_chance", account.InFinalChance).
		Set("temp_blocked_until", account.TempBlockedUntil).
		Set("blocked", account.Blocked).
		Set("reset_token", account.ResetToken).
		Set("reset_token_expires_at", account.ResetTokenExpiresAt).
		Set("confirmed", account.Confirmed).
		Set("version", account.Version+1).
		Where(squirrel.Eq{
			"id":      account.ID,
			"version": account.Version,
		})

	stmt, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build update account security state sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update account security state: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return repository.ErrVersionConflict
	}

	return nil
}

// SetRecoveryString stores the hashed recovery string for an account.
func (r *AccountRepository) SetRecoveryString(ctx context.Context, accountID, recoveryStringHash string) error {
	query := r.builder.Update("dnt.accounts").
		Set("recovery_string_hash", recoveryStringHash).
		Where(squirrel.Eq{"id": accountID})

	stmt, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build update recovery string sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update recovery string: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// UpdateLastLogin records a successful authentication timestamp.
func (r *AccountRepository) UpdateLastLogin(ctx context.Context, accountID string, at time.Time) error {
	query := r.builder.Update("dnt.accounts").
		Set("last_login", at).
		Where(squirrel.Eq{"id": accountID})

	stmt, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build update last login sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update last login: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// Transact runs fn inside a transaction. A repository already bound to a
// transaction reuses it instead of opening a nested one.
func (r *AccountRepository) Transact(ctx context.Context, fn func(repo port.AccountRepository) error) error {
	if _, ok := r.exec.(pgx.Tx); ok {
		return fn(r)
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(r.WithTx(tx)); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			return fmt.Errorf("rollback transaction: %v (original: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

var _ port.AccountRepository = (*AccountRepository)(nil)
