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

type ProfileRepositoryInterface interface {
	Upsert(ctx context.Context, p *model.Profile) error
	GetByAccountID(ctx context.Context, accountID string) (*model.Profile, error)
	ListCreators(ctx context.Context, offset, limit int, niche, platform string) ([]*model.Profile, int, error)
}

type ProfileRepository struct {
	DB DBTX
}

const profileColumns = `account_id, kind, display_name, bio, niche, platforms, follower_count,
        company_name, website, contact_email, contact_phone, updated_at`

func scanProfile(row rowScanner) (*model.Profile, error) {
	var p model.Profile
	err := row.Scan(
		&p.AccountID, &p.Kind, &p.DisplayName, &p.Bio, &p.Niche, pq.Array(&p.Platforms), &p.FollowerCount,
		&p.CompanyName, &p.Website, &p.ContactEmail, &p.ContactPhone, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProfileRepository) Upsert(ctx context.Context, p *model.Profile) error {
	now := time.Now().UTC()
	if p.Platforms == nil {
		p.Platforms = []string{}
	}
	query := `
        INSERT INTO profiles (` + profileColumns + `)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
        ON CONFLICT (account_id) DO UPDATE SET
            display_name=EXCLUDED.display_name, bio=EXCLUDED.bio, niche=EXCLUDED.niche,
            platforms=EXCLUDED.platforms, follower_count=EXCLUDED.follower_count,
            company_name=EXCLUDED.company_name, website=EXCLUDED.website,
            contact_email=EXCLUDED.contact_email, contact_phone=EXCLUDED.contact_phone,
            updated_at=EXCLUDED.updated_at
    `
	_, err := r.DB.ExecContext(ctx, query,
		p.AccountID, p.Kind, p.DisplayName, p.Bio, p.Niche, pq.Array(p.Platforms), p.FollowerCount,
		p.CompanyName, p.Website, p.ContactEmail, p.ContactPhone, now,
	)
	if err != nil {
		return err
	}
	p.UpdatedAt = &now
	return nil
}

func (r *ProfileRepository) GetByAccountID(ctx context.Context, accountID string) (*model.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE account_id=$1`
	p, err := scanProfile(r.DB.QueryRowContext(ctx, query, accountID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NewNotFound("profile", accountID)
		}
		return nil, err
	}
	return p, nil
}

// ListCreators filters creator profiles by niche and by membership of
// platform in the platforms array.
func (r *ProfileRepository) ListCreators(ctx context.Context, offset, limit int, niche, platform string) ([]*model.Profile, int, error) {
	where := ` WHERE kind='creator'`
	args := []interface{}{}
	argPos := 1

	if niche != "" {
		where += fmt.Sprintf(" AND niche=$%d", argPos)
		args = append(args, niche)
		argPos++
	}
	if platform != "" {
		where += fmt.Sprintf(" AND $%d = ANY(platforms)", argPos)
		args = append(args, platform)
		argPos++
	}

	query := `SELECT ` + profileColumns + ` FROM profiles` + where +
		fmt.Sprintf(" ORDER BY follower_count DESC, account_id LIMIT $%d OFFSET $%d", argPos, argPos+1)

	rows, err := r.DB.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	profiles := []*model.Profile{}
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, 0, err
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM profiles`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	return profiles, total, nil
}

var _ ProfileRepositoryInterface = (*ProfileRepository)(nil)
