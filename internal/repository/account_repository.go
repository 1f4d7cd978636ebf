package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	appErrors "github.com/unclebandit/collabhub-backend/internal/errors"
	"github.com/unclebandit/collabhub-backend/internal/model"
)

type AccountRepositoryInterface interface {
	Create(ctx context.Context, a *model.Account) error
	GetByID(ctx context.Context, id string) (*model.Account, error)
	GetByEmail(ctx context.Context, email string) (*model.Account, error)
}

type AccountRepository struct {
	DB DBTX
}

func (r *AccountRepository) Create(ctx context.Context, a *model.Account) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	query := `
        INSERT INTO accounts (id, role, display_name, email, created_at)
        VALUES ($1, $2, $3, $4, $5)
    `
	_, err := r.DB.ExecContext(ctx, query, a.ID, a.Role, a.DisplayName, a.Email, a.CreatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (r *AccountRepository) GetByID(ctx context.Context, id string) (*model.Account, error) {
	query := `SELECT id, role, display_name, email, created_at FROM accounts WHERE id=$1`
	var a model.Account
	err := r.DB.QueryRowContext(ctx, query, id).Scan(&a.ID, &a.Role, &a.DisplayName, &a.Email, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NewAccountNotFound(id)
		}
		return nil, err
	}
	return &a, nil
}

// GetByEmail returns nil, nil when no account uses the address.
func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*model.Account, error) {
	query := `SELECT id, role, display_name, email, created_at FROM accounts WHERE email=$1`
	var a model.Account
	err := r.DB.QueryRowContext(ctx, query, email).Scan(&a.ID, &a.Role, &a.DisplayName, &a.Email, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

var _ AccountRepositoryInterface = (*AccountRepository)(nil)
