// internal/repository/store.go
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// ErrDuplicate is returned when an insert hits a unique constraint.
var ErrDuplicate = errors.New("duplicate key")

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Repositories groups the per-table repositories bound to one connection or transaction.
type Repositories interface {
	Accounts() AccountRepositoryInterface
	Campaigns() CampaignRepositoryInterface
	Applications() ApplicationRepositoryInterface
	Ledger() LedgerRepositoryInterface
	Profiles() ProfileRepositoryInterface
}

// Store is the unit-of-work boundary. Everything fn does through tx commits
// together or not at all.
type Store interface {
	Repositories
	WithTx(ctx context.Context, fn func(tx Repositories) error) error
	Ping(ctx context.Context) error
}

type PostgresStore struct {
	DB *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{DB: db}
}

type pgRepositories struct {
	q DBTX
}

func (r pgRepositories) Accounts() AccountRepositoryInterface {
	return &AccountRepository{DB: r.q}
}

func (r pgRepositories) Campaigns() CampaignRepositoryInterface {
	return &CampaignRepository{DB: r.q}
}

func (r pgRepositories) Applications() ApplicationRepositoryInterface {
	return &ApplicationRepository{DB: r.q}
}

func (r pgRepositories) Ledger() LedgerRepositoryInterface {
	return &LedgerRepository{DB: r.q}
}

func (r pgRepositories) Profiles() ProfileRepositoryInterface {
	return &ProfileRepository{DB: r.q}
}

func (s *PostgresStore) Accounts() AccountRepositoryInterface {
	return pgRepositories{q: s.DB}.Accounts()
}

func (s *PostgresStore) Campaigns() CampaignRepositoryInterface {
	return pgRepositories{q: s.DB}.Campaigns()
}

func (s *PostgresStore) Applications() ApplicationRepositoryInterface {
	return pgRepositories{q: s.DB}.Applications()
}

func (s *PostgresStore) Ledger() LedgerRepositoryInterface {
	return pgRepositories{q: s.DB}.Ledger()
}

func (s *PostgresStore) Profiles() ProfileRepositoryInterface {
	return pgRepositories{q: s.DB}.Profiles()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.DB.PingContext(ctx)
}

// WithTx runs fn inside a read-committed transaction. Repositories lock the
// rows they mutate with SELECT ... FOR UPDATE, always campaign before
// application before token balance.
func (s *PostgresStore) WithTx(ctx context.Context, fn func(tx Repositories) error) (err error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(pgRepositories{q: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// isUniqueViolation reports a Postgres unique_violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}

var _ Store = (*PostgresStore)(nil)
