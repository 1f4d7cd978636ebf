package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	appErrors "github.com/unclebandit/collabhub-backend/internal/errors"
	"github.com/unclebandit/collabhub-backend/internal/model"
)

// LedgerRepositoryInterface covers the token_balances and ledger_entries
// tables. Balances and entries are only ever written together inside a
// Store transaction.
type LedgerRepositoryInterface interface {
	OpenBalance(ctx context.Context, accountID string) error
	LockBalance(ctx context.Context, accountID string) (int64, error)
	GetBalance(ctx context.Context, accountID string) (int64, error)
	SetBalance(ctx context.Context, accountID string, balance int64) error

	GetByIdempotencyKey(ctx context.Context, accountID, key string) (*model.LedgerEntry, error)
	Append(ctx context.Context, e *model.LedgerEntry) error
	SumDeltas(ctx context.Context, accountID string) (int64, int, error)
	ListEntries(ctx context.Context, accountID string, offset, limit int) ([]*model.LedgerEntry, int, error)
	ListAccountIDs(ctx context.Context) ([]string, error)
}

type LedgerRepository struct {
	DB DBTX
}

const ledgerColumns = `id, account_id, delta, reason, related_entity_id, idempotency_key, balance_after, created_at`

// OpenBalance creates the zero balance row for a new account. It is a no-op
// when the row already exists.
func (r *LedgerRepository) OpenBalance(ctx context.Context, accountID string) error {
	query := `
        INSERT INTO token_balances (account_id, balance, updated_at)
        VALUES ($1, 0, $2)
        ON CONFLICT (account_id) DO NOTHING
    `
	_, err := r.DB.ExecContext(ctx, query, accountID, time.Now().UTC())
	return err
}

// LockBalance reads the balance with a row lock held until the enclosing
// transaction ends.
func (r *LedgerRepository) LockBalance(ctx context.Context, accountID string) (int64, error) {
	return r.balance(ctx, `SELECT balance FROM token_balances WHERE account_id=$1 FOR UPDATE`, accountID)
}

func (r *LedgerRepository) GetBalance(ctx context.Context, accountID string) (int64, error) {
	return r.balance(ctx, `SELECT balance FROM token_balances WHERE account_id=$1`, accountID)
}

func (r *LedgerRepository) balance(ctx context.Context, query, accountID string) (int64, error) {
	var balance int64
	if err := r.DB.QueryRowContext(ctx, query, accountID).Scan(&balance); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, appErrors.NewAccountNotFound(accountID)
		}
		return 0, err
	}
	return balance, nil
}

func (r *LedgerRepository) SetBalance(ctx context.Context, accountID string, balance int64) error {
	query := `UPDATE token_balances SET balance=$1, updated_at=$2 WHERE account_id=$3`
	res, err := r.DB.ExecContext(ctx, query, balance, time.Now().UTC(), accountID)
	if err != nil {
		return err
	}
	return expectOneRow(res, "account", accountID)
}

// GetByIdempotencyKey returns nil, nil when no entry carries the key.
func (r *LedgerRepository) GetByIdempotencyKey(ctx context.Context, accountID, key string) (*model.LedgerEntry, error) {
	query := `SELECT ` + ledgerColumns + ` FROM ledger_entries WHERE account_id=$1 AND idempotency_key=$2`
	e, err := scanLedgerEntry(r.DB.QueryRowContext(ctx, query, accountID, key))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return e, nil
}

// Append writes an entry. A repeated (account_id, idempotency_key) pair
// surfaces as ErrDuplicate.
func (r *LedgerRepository) Append(ctx context.Context, e *model.LedgerEntry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	query := `
        INSERT INTO ledger_entries (` + ledgerColumns + `)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    `
	_, err := r.DB.ExecContext(ctx, query,
		e.ID, e.AccountID, e.Delta, e.Reason, e.RelatedEntityID, e.IdempotencyKey, e.BalanceAfter, e.CreatedAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (r *LedgerRepository) SumDeltas(ctx context.Context, accountID string) (int64, int, error) {
	var sum int64
	var count int
	query := `SELECT COALESCE(SUM(delta), 0), COUNT(*) FROM ledger_entries WHERE account_id=$1`
	if err := r.DB.QueryRowContext(ctx, query, accountID).Scan(&sum, &count); err != nil {
		return 0, 0, err
	}
	return sum, count, nil
}

// ListEntries pages an account's history, newest first.
func (r *LedgerRepository) ListEntries(ctx context.Context, accountID string, offset, limit int) ([]*model.LedgerEntry, int, error) {
	query := `SELECT ` + ledgerColumns + `
              FROM ledger_entries
              WHERE account_id=$1
              ORDER BY created_at DESC, id DESC
              LIMIT $2 OFFSET $3`
	rows, err := r.DB.QueryContext(ctx, query, accountID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	entries := []*model.LedgerEntry{}
	for rows.Next() {
		e, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, 0, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM ledger_entries WHERE account_id=$1`, accountID).Scan(&total); err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

func (r *LedgerRepository) ListAccountIDs(ctx context.Context) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT account_id FROM token_balances ORDER BY account_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanLedgerEntry(row rowScanner) (*model.LedgerEntry, error) {
	var e model.LedgerEntry
	err := row.Scan(
		&e.ID, &e.AccountID, &e.Delta, &e.Reason, &e.RelatedEntityID,
		&e.IdempotencyKey, &e.BalanceAfter, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

var _ LedgerRepositoryInterface = (*LedgerRepository)(nil)
