package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	appErrors "github.com/unclebandit/collabhub-backend/internal/errors"
	"github.com/unclebandit/collabhub-backend/internal/model"
)

type ApplicationRepositoryInterface interface {
	Create(ctx context.Context, a *model.Application) error
	Update(ctx context.Context, a *model.Application) error
	GetByID(ctx context.Context, id string) (*model.Application, error)
	GetForUpdate(ctx context.Context, id string) (*model.Application, error)
	GetByCampaignAndCreator(ctx context.Context, campaignID, creatorID string) (*model.Application, error)
	ListByCampaign(ctx context.Context, campaignID string) ([]*model.Application, error)
	ListByCreator(ctx context.Context, creatorID string) ([]*model.Application, error)
}

type ApplicationRepository struct {
	DB DBTX
}

const applicationColumns = `id, campaign_id, creator_id, status, tokens_spent, applied_at, decided_at, contact_unlocked_at`

func scanApplication(row rowScanner) (*model.Application, error) {
	var a model.Application
	err := row.Scan(
		&a.ID, &a.CampaignID, &a.CreatorID, &a.Status, &a.TokensSpent,
		&a.AppliedAt, &a.DecidedAt, &a.ContactUnlockedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Create inserts a new application. The (campaign_id, creator_id) unique
// constraint surfaces as ErrDuplicate.
func (r *ApplicationRepository) Create(ctx context.Context, a *model.Application) error {
	if a.AppliedAt.IsZero() {
		a.AppliedAt = time.Now().UTC()
	}
	query := `
        INSERT INTO applications
        (id, campaign_id, creator_id, status, tokens_spent, applied_at)
        VALUES ($1, $2, $3, $4, $5, $6)
    `
	_, err := r.DB.ExecContext(ctx, query, a.ID, a.CampaignID, a.CreatorID, a.Status, a.TokensSpent, a.AppliedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

// Update writes the mutable lifecycle columns.
func (r *ApplicationRepository) Update(ctx context.Context, a *model.Application) error {
	query := `
        UPDATE applications
        SET status=$1, decided_at=$2, contact_unlocked_at=$3
        WHERE id=$4
    `
	res, err := r.DB.ExecContext(ctx, query, a.Status, a.DecidedAt, a.ContactUnlockedAt, a.ID)
	if err != nil {
		return err
	}
	return expectOneRow(res, "application", a.ID)
}

func (r *ApplicationRepository) GetByID(ctx context.Context, id string) (*model.Application, error) {
	return r.getOne(ctx, `SELECT `+applicationColumns+` FROM applications WHERE id=$1`, id)
}

func (r *ApplicationRepository) GetForUpdate(ctx context.Context, id string) (*model.Application, error) {
	return r.getOne(ctx, `SELECT `+applicationColumns+` FROM applications WHERE id=$1 FOR UPDATE`, id)
}

func (r *ApplicationRepository) getOne(ctx context.Context, query, id string) (*model.Application, error) {
	a, err := scanApplication(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NewApplicationNotFound(id)
		}
		return nil, err
	}
	return a, nil
}

// GetByCampaignAndCreator returns nil, nil when the creator has not applied.
func (r *ApplicationRepository) GetByCampaignAndCreator(ctx context.Context, campaignID, creatorID string) (*model.Application, error) {
	query := `SELECT ` + applicationColumns + `
              FROM applications
              WHERE campaign_id=$1 AND creator_id=$2`
	a, err := scanApplication(r.DB.QueryRowContext(ctx, query, campaignID, creatorID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return a, nil
}

func (r *ApplicationRepository) ListByCampaign(ctx context.Context, campaignID string) ([]*model.Application, error) {
	return r.list(ctx, `SELECT `+applicationColumns+` FROM applications WHERE campaign_id=$1 ORDER BY applied_at, id`, campaignID)
}

func (r *ApplicationRepository) ListByCreator(ctx context.Context, creatorID string) ([]*model.Application, error) {
	return r.list(ctx, `SELECT `+applicationColumns+` FROM applications WHERE creator_id=$1 ORDER BY applied_at DESC, id`, creatorID)
}

func (r *ApplicationRepository) list(ctx context.Context, query string, arg string) ([]*model.Application, error) {
	rows, err := r.DB.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	apps := []*model.Application{}
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		apps = append(apps, a)
	}
	return apps, rows.Err()
}

var _ ApplicationRepositoryInterface = (*ApplicationRepository)(nil)
