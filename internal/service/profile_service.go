package service

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/unclebandit/collabhub-backend/internal/auth"
	appErrors "github.com/unclebandit/collabhub-backend/internal/errors"
	"github.com/unclebandit/collabhub-backend/internal/logger"
	"github.com/unclebandit/collabhub-backend/internal/model"
	"github.com/unclebandit/collabhub-backend/internal/repository"
)

// ProfileCache is a read-through cache of full profiles. Get returns nil, nil on a miss.
type ProfileCache interface {
	Get(ctx context.Context, accountID string) (*model.Profile, error)
	Set(ctx context.Context, p *model.Profile) error
	Invalidate(ctx context.Context, accountID string) error
}

type ProfileService struct {
	Store repository.Store
	Guard *auth.Guard
	Cache ProfileCache
	Log   *logrus.Entry
}

func NewProfileService(store repository.Store, guard *auth.Guard, cache ProfileCache, log logrus.FieldLogger) *ProfileService {
	return &ProfileService{Store: store, Guard: guard, Cache: cache, Log: logger.Component(log, "profiles")}
}

// GetProfile returns the full profile to its owner and admins and the
// public view to everyone else.
func (s *ProfileService) GetProfile(ctx context.Context, viewer *auth.Identity, accountID string) (*model.Profile, error) {
	p, err := s.load(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if viewer.IsAdmin() || (viewer != nil && viewer.AccountID == accountID) {
		return p, nil
	}
	return p.Public(), nil
}

func (s *ProfileService) load(ctx context.Context, accountID string) (*model.Profile, error) {
	if s.Cache != nil {
		cached, err := s.Cache.Get(ctx, accountID)
		if err != nil {
			s.Log.WithError(err).Warn("profile cache read failed")
		} else if cached != nil {
			return cached, nil
		}
	}

	p, err := s.Store.Profiles().GetByAccountID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if s.Cache != nil {
		if err := s.Cache.Set(ctx, p); err != nil {
			s.Log.WithError(err).Warn("profile cache write failed")
		}
	}
	return p, nil
}

func (s *ProfileService) UpsertProfile(ctx context.Context, id *auth.Identity, accountID string, fields model.ProfileFields) (*model.Profile, error) {
	if err := s.Guard.Check(id, auth.ProfileWrite, auth.Resource{OwnerID: accountID}); err != nil {
		return nil, err
	}
	if fields.FollowerCount != nil && *fields.FollowerCount < 0 {
		return nil, appErrors.InvalidInput("follower_count cannot be negative")
	}
	if fields.ContactEmail != nil && *fields.ContactEmail != "" && !strings.Contains(*fields.ContactEmail, "@") {
		return nil, appErrors.InvalidInput("contact_email is not an email address")
	}

	var p *model.Profile
	err := s.Store.WithTx(ctx, func(tx repository.Repositories) error {
		acc, err := tx.Accounts().GetByID(ctx, accountID)
		if err != nil {
			return err
		}
		p, err = tx.Profiles().GetByAccountID(ctx, accountID)
		if err != nil {
			if !appErrors.IsKind(err, appErrors.KindNotFound) {
				return err
			}
			p = &model.Profile{AccountID: acc.ID, DisplayName: acc.DisplayName}
		}
		p.Kind = acc.Role
		fields.Apply(p)
		return tx.Profiles().Upsert(ctx, p)
	})
	if err != nil {
		return nil, err
	}

	if s.Cache != nil {
		if err := s.Cache.Invalidate(ctx, accountID); err != nil {
			s.Log.WithError(err).WithField("account_id", accountID).Warn("profile cache invalidation failed")
		}
	}
	return p, nil
}

// ListCreators filters the creator directory. Results are public views.
func (s *ProfileService) ListCreators(ctx context.Context, niche, platform string, page, pageSize int) ([]*model.Profile, map[string]int, error) {
	page, pageSize, offset := paginate(page, pageSize)
	list, total, err := s.Store.Profiles().ListCreators(ctx, offset, pageSize, niche, platform)
	if err != nil {
		return nil, nil, err
	}
	out := make([]*model.Profile, len(list))
	for i, p := range list {
		out[i] = p.Public()
	}
	return out, paginationMeta(page, pageSize, total), nil
}
