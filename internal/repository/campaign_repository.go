package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	appErrors "github.com/unclebandit/collabhub-backend/internal/errors"
	"github.com/unclebandit/collabhub-backend/internal/model"
)

type CampaignRepositoryInterface interface {
	// Campaign CRUD
	ListCampaigns(ctx context.Context, offset, limit int, niche, status string) ([]*model.Campaign, int, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*model.Campaign, error)
	GetByID(ctx context.Context, id string) (*model.Campaign, error)
	GetForUpdate(ctx context.Context, id string) (*model.Campaign, error)
	UpdateStatus(ctx context.Context, campaignID string, status model.CampaignStatus) error
	Update(ctx context.Context, c *model.Campaign) error
	Create(ctx context.Context, c *model.Campaign) error
	Delete(ctx context.Context, id string) error

	// Application counters
	GetCampaignStats(ctx context.Context, campaignID string) (map[string]int, error)
}

type CampaignRepository struct {
	DB DBTX
}

const campaignColumns = `id, owner_id, title, description, niche, budget, deadline, platforms,
        requirements, deliverables, token_cost, status, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCampaign(row rowScanner) (*model.Campaign, error) {
	c := &model.Campaign{}
	err := row.Scan(
		&c.ID, &c.OwnerID, &c.Title, &c.Description, &c.Niche, &c.Budget, &c.Deadline,
		pq.Array(&c.Platforms), &c.Requirements, &c.Deliverables, &c.TokenCost, &c.Status,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ====================== Campaign CRUD ======================

func (r *CampaignRepository) Create(ctx context.Context, c *model.Campaign) error {
	c.CreatedAt = time.Now().UTC()
	if c.Status == "" {
		c.Status = model.CampaignActive
	}
	if c.Platforms == nil {
		c.Platforms = []string{}
	}
	query := `
        INSERT INTO campaigns (id, owner_id, title, description, niche, budget, deadline, platforms,
            requirements, deliverables, token_cost, status, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
    `
	_, err := r.DB.ExecContext(ctx, query,
		c.ID, c.OwnerID, c.Title, c.Description, c.Niche, c.Budget, c.Deadline, pq.Array(c.Platforms),
		c.Requirements, c.Deliverables, c.TokenCost, c.Status, c.CreatedAt,
	)
	return err
}

func (r *CampaignRepository) Update(ctx context.Context, c *model.Campaign) error {
	now := time.Now().UTC()
	query := `
        UPDATE campaigns
        SET title=$1, description=$2, niche=$3, budget=$4, deadline=$5, platforms=$6,
            requirements=$7, deliverables=$8, token_cost=$9, status=$10, updated_at=$11
        WHERE id=$12
    `
	res, err := r.DB.ExecContext(ctx, query,
		c.Title, c.Description, c.Niche, c.Budget, c.Deadline, pq.Array(c.Platforms),
		c.Requirements, c.Deliverables, c.TokenCost, c.Status, now, c.ID,
	)
	if err != nil {
		return err
	}
	if err := expectOneRow(res, "campaign", c.ID); err != nil {
		return err
	}
	c.UpdatedAt = &now
	return nil
}

func (r *CampaignRepository) UpdateStatus(ctx context.Context, campaignID string, status model.CampaignStatus) error {
	query := `UPDATE campaigns SET status=$1, updated_at=$2 WHERE id=$3`
	res, err := r.DB.ExecContext(ctx, query, status, time.Now().UTC(), campaignID)
	if err != nil {
		return err
	}
	return expectOneRow(res, "campaign", campaignID)
}

// Delete removes the campaign; applications go with it through ON DELETE CASCADE.
func (r *CampaignRepository) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM campaigns WHERE id=$1`, id)
	if err != nil {
		return err
	}
	return expectOneRow(res, "campaign", id)
}

func (r *CampaignRepository) GetByID(ctx context.Context, id string) (*model.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE id=$1`
	return r.getOne(ctx, query, id)
}

// GetForUpdate locks the campaign row for the rest of the transaction.
func (r *CampaignRepository) GetForUpdate(ctx context.Context, id string) (*model.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE id=$1 FOR UPDATE`
	return r.getOne(ctx, query, id)
}

func (r *CampaignRepository) getOne(ctx context.Context, query, id string) (*model.Campaign, error) {
	c, err := scanCampaign(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NewCampaignNotFound(id)
		}
		return nil, err
	}
	return c, nil
}

func (r *CampaignRepository) ListCampaigns(ctx context.Context, offset, limit int, niche, status string) ([]*model.Campaign, int, error) {
	campaigns := []*model.Campaign{}
	where := ` WHERE 1=1`
	args := []interface{}{}
	argPos := 1

	if niche != "" {
		where += fmt.Sprintf(" AND niche=$%d", argPos)
		args = append(args, niche)
		argPos++
	}
	if status != "" {
		where += fmt.Sprintf(" AND status=$%d", argPos)
		args = append(args, status)
		argPos++
	}

	query := `SELECT ` + campaignColumns + ` FROM campaigns` + where +
		fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d", argPos, argPos+1)

	rows, err := r.DB.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, 0, err
		}
		campaigns = append(campaigns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	// Count total
	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM campaigns`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	return campaigns, total, nil
}

func (r *CampaignRepository) ListByOwner(ctx context.Context, ownerID string) ([]*model.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE owner_id=$1 ORDER BY created_at DESC, id DESC`
	rows, err := r.DB.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	campaigns := []*model.Campaign{}
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, rows.Err()
}

// ====================== Application counters ======================

func (r *CampaignRepository) GetCampaignStats(ctx context.Context, campaignID string) (map[string]int, error) {
	query := `SELECT status, COUNT(*) FROM applications WHERE campaign_id=$1 GROUP BY status`
	rows, err := r.DB.QueryContext(ctx, query, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := map[string]int{"total": 0, "pending": 0, "accepted": 0, "rejected": 0}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
		stats["total"] += count
	}
	return stats, rows.Err()
}

func expectOneRow(res sql.Result, resource, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return appErrors.NewNotFound(resource, id)
	}
	return nil
}

var _ CampaignRepositoryInterface = (*CampaignRepository)(nil)
