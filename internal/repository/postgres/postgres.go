package postgres

import (
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repositories bundles the PostgreSQL-backed repositories over one pool.
type Repositories struct {
	Accounts *AccountRepository
	Audit    *AuditRepository
}

// NewRepositories constructs all repositories sharing the given pool.
func NewRepositories(pool *pgxpool.Pool) *Repositories {
	return &Repositories{
		Accounts: NewAccountRepository(pool),
		Audit:    NewAuditRepository(pool),
	}
}
