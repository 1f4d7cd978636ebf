// internal/service/campaign_service.go
package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/unclebandit/collabhub-backend/internal/auth"
	appErrors "github.com/unclebandit/collabhub-backend/internal/errors"
	"github.com/unclebandit/collabhub-backend/internal/logger"
	"github.com/unclebandit/collabhub-backend/internal/model"
	"github.com/unclebandit/collabhub-backend/internal/queue"
	"github.com/unclebandit/collabhub-backend/internal/repository"
)

type CampaignService struct {
	Store repository.Store
	Guard *auth.Guard
	Queue queue.Queue
	Log   *logrus.Entry
}

func NewCampaignService(store repository.Store, guard *auth.Guard, q queue.Queue, log logrus.FieldLogger) *CampaignService {
	return &CampaignService{Store: store, Guard: guard, Queue: q, Log: logger.Component(log, "campaigns")}
}

type CampaignDetails struct {
	model.Campaign
	Stats map[string]int `json:"stats"`
}

func validateCampaign(c *model.Campaign) error {
	c.Title = strings.TrimSpace(c.Title)
	if c.Title == "" {
		return appErrors.InvalidInput("title is required")
	}
	if c.Budget < 0 {
		return appErrors.InvalidInput("budget cannot be negative")
	}
	if c.TokenCost < 0 {
		return appErrors.InvalidInput("token_cost cannot be negative")
	}
	for _, p := range c.Platforms {
		if strings.TrimSpace(p) == "" {
			return appErrors.InvalidInput("platforms cannot contain blank entries")
		}
	}
	return nil
}

// CreateCampaign opens a campaign in the active state. ownerID defaults to
// the caller; admins may create on behalf of a sponsor.
func (s *CampaignService) CreateCampaign(ctx context.Context, id *auth.Identity, ownerID string, fields model.CampaignFields) (*model.Campaign, error) {
	if err := requireIdentity(id); err != nil {
		return nil, err
	}
	if ownerID == "" {
		ownerID = id.AccountID
	}
	if err := s.Guard.Check(id, auth.CampaignCreate, auth.Resource{OwnerID: ownerID}); err != nil {
		return nil, err
	}

	c := &model.Campaign{ID: uuid.NewString(), OwnerID: ownerID, Status: model.CampaignActive}
	fields.Apply(c)
	if err := validateCampaign(c); err != nil {
		return nil, err
	}

	err := s.Store.WithTx(ctx, func(tx repository.Repositories) error {
		owner, err := tx.Accounts().GetByID(ctx, ownerID)
		if err != nil {
			return err
		}
		if owner.Role != model.RoleSponsor {
			return appErrors.InvalidInput("campaigns must be owned by a sponsor account")
		}
		return tx.Campaigns().Create(ctx, c)
	})
	if err != nil {
		return nil, err
	}

	s.Log.WithFields(logrus.Fields{"campaign_id": c.ID, "owner_id": c.OwnerID}).Info("campaign created")
	publish(s.Queue, s.Log, queue.NewEvent(queue.TopicCampaignCreated, id.AccountID, c.ID, map[string]any{
		"owner_id":   c.OwnerID,
		"token_cost": c.TokenCost,
	}))
	return c, nil
}

// EditCampaign updates the set fields of an open campaign. Applications
// already charged keep their tokens_spent.
func (s *CampaignService) EditCampaign(ctx context.Context, id *auth.Identity, campaignID string, fields model.CampaignFields) (*model.Campaign, error) {
	if err := requireIdentity(id); err != nil {
		return nil, err
	}
	var updated *model.Campaign
	err := s.Store.WithTx(ctx, func(tx repository.Repositories) error {
		c, err := tx.Campaigns().GetForUpdate(ctx, campaignID)
		if err != nil {
			return err
		}
		if err := s.Guard.Check(id, auth.CampaignEdit, auth.Resource{OwnerID: c.OwnerID}); err != nil {
			return err
		}
		if c.Status == model.CampaignClosed {
			return appErrors.CampaignClosed(c.ID)
		}
		fields.Apply(c)
		if err := validateCampaign(c); err != nil {
			return err
		}
		if err := tx.Campaigns().Update(ctx, c); err != nil {
			return err
		}
		updated = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// SetCampaignStatus moves a campaign through active ⇄ paused → closed.
// Asking for the current status of an open campaign changes nothing.
func (s *CampaignService) SetCampaignStatus(ctx context.Context, id *auth.Identity, campaignID, status string) (*model.Campaign, error) {
	if err := requireIdentity(id); err != nil {
		return nil, err
	}
	next := model.CampaignStatus(strings.ToLower(strings.TrimSpace(status)))
	if !next.Valid() {
		return nil, appErrors.InvalidInput(fmt.Sprintf("unknown campaign status %q", status))
	}

	var (
		c       *model.Campaign
		changed bool
		prev    model.CampaignStatus
	)
	err := s.Store.WithTx(ctx, func(tx repository.Repositories) error {
		var err error
		c, err = tx.Campaigns().GetForUpdate(ctx, campaignID)
		if err != nil {
			return err
		}
		if err := s.Guard.Check(id, auth.CampaignSetStatus, auth.Resource{OwnerID: c.OwnerID}); err != nil {
			return err
		}
		if c.Status == model.CampaignClosed {
			return appErrors.CampaignClosed(c.ID)
		}
		if c.Status == next {
			return nil
		}
		if !c.Status.CanTransitionTo(next) {
			return appErrors.InvalidInput(fmt.Sprintf("cannot move campaign from %s to %s", c.Status, next))
		}
		if err := tx.Campaigns().UpdateStatus(ctx, c.ID, next); err != nil {
			return err
		}
		prev, c.Status, changed = c.Status, next, true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.Log.WithFields(logrus.Fields{"campaign_id": c.ID, "from": prev, "to": next}).Info("campaign status changed")
		publish(s.Queue, s.Log, queue.NewEvent(queue.TopicCampaignStatusChanged, id.AccountID, c.ID, map[string]any{
			"from": prev,
			"to":   next,
		}))
	}
	return c, nil
}

// DeleteCampaign removes the campaign together with its applications.
// Tokens spent on those applications stay spent.
func (s *CampaignService) DeleteCampaign(ctx context.Context, id *auth.Identity, campaignID string) error {
	if err := requireIdentity(id); err != nil {
		return err
	}
	err := s.Store.WithTx(ctx, func(tx repository.Repositories) error {
		c, err := tx.Campaigns().GetForUpdate(ctx, campaignID)
		if err != nil {
			return err
		}
		if err := s.Guard.Check(id, auth.CampaignDelete, auth.Resource{OwnerID: c.OwnerID}); err != nil {
			return err
		}
		return tx.Campaigns().Delete(ctx, c.ID)
	})
	if err != nil {
		return err
	}

	s.Log.WithField("campaign_id", campaignID).Warn("campaign deleted")
	publish(s.Queue, s.Log, queue.NewEvent(queue.TopicCampaignDeleted, id.AccountID, campaignID, nil))
	return nil
}

// ListCampaigns fetches campaigns with pagination. An empty status lists
// active campaigns; "all" disables the status filter.
func (s *CampaignService) ListCampaigns(ctx context.Context, page, pageSize int, niche, status string) ([]model.Campaign, map[string]int, error) {
	switch status {
	case "":
		status = string(model.CampaignActive)
	case "all":
		status = ""
	default:
		if !model.CampaignStatus(status).Valid() {
			return nil, nil, appErrors.InvalidInput(fmt.Sprintf("unknown campaign status %q", status))
		}
	}
	page, pageSize, offset := paginate(page, pageSize)

	ptrs, total, err := s.Store.Campaigns().ListCampaigns(ctx, offset, pageSize, niche, status)
	if err != nil {
		return nil, nil, err
	}

	campaigns := make([]model.Campaign, len(ptrs))
	for i, c := range ptrs {
		campaigns[i] = *c
	}
	return campaigns, paginationMeta(page, pageSize, total), nil
}

// GetCampaignDetails fetches a campaign by ID
func (s *CampaignService) GetCampaignDetails(ctx context.Context, id string) (*model.Campaign, error) {
	return s.Store.Campaigns().GetByID(ctx, id)
}

func (s *CampaignService) GetCampaignDetailsWithStats(ctx context.Context, campaignID string) (*CampaignDetails, error) {
	campaign, err := s.Store.Campaigns().GetByID(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	stats, err := s.Store.Campaigns().GetCampaignStats(ctx, campaignID)
	if err != nil {
		return nil, fmt.Errorf("campaign stats: %w", err)
	}
	return &CampaignDetails{Campaign: *campaign, Stats: stats}, nil
}

func (s *CampaignService) ListOwnCampaigns(ctx context.Context, id *auth.Identity) ([]*model.Campaign, error) {
	if err := requireIdentity(id); err != nil {
		return nil, err
	}
	return s.Store.Campaigns().ListByOwner(ctx, id.AccountID)
}
