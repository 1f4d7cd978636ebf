package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/unclebandit/collabhub-backend/internal/auth"
	appErrors "github.com/unclebandit/collabhub-backend/internal/errors"
	"github.com/unclebandit/collabhub-backend/internal/logger"
	"github.com/unclebandit/collabhub-backend/internal/metrics"
	"github.com/unclebandit/collabhub-backend/internal/model"
	"github.com/unclebandit/collabhub-backend/internal/queue"
	"github.com/unclebandit/collabhub-backend/internal/repository"
)

// ApplicationService owns the application lifecycle and charges tokens for
// applying and for unlocking sponsor contact details.
type ApplicationService struct {
	Store      repository.Store
	Guard      *auth.Guard
	Ledger     *LedgerService
	Queue      queue.Queue
	UnlockCost int64
	Log        *logrus.Entry
}

func NewApplicationService(store repository.Store, guard *auth.Guard, ledger *LedgerService, q queue.Queue, unlockCost int64, log logrus.FieldLogger) *ApplicationService {
	return &ApplicationService{
		Store:      store,
		Guard:      guard,
		Ledger:     ledger,
		Queue:      q,
		UnlockCost: unlockCost,
		Log:        logger.Component(log, "applications"),
	}
}

func applyKey(campaignID, creatorID, attemptKey string) string {
	if attemptKey = strings.TrimSpace(attemptKey); attemptKey != "" {
		return "apply:" + campaignID + ":" + attemptKey
	}
	return "apply:" + campaignID + ":" + creatorID
}

func unlockKey(applicationID string) string {
	return "unlock:" + applicationID
}

// Apply creates a pending application and debits the campaign's token cost
// in one transaction. creatorID defaults to the caller.
func (s *ApplicationService) Apply(ctx context.Context, id *auth.Identity, campaignID, creatorID, attemptKey string) (*model.Application, error) {
	if err := requireIdentity(id); err != nil {
		return nil, err
	}
	if creatorID == "" {
		creatorID = id.AccountID
	}
	if err := s.Guard.Check(id, auth.ApplicationCreate, auth.Resource{OwnerID: creatorID}); err != nil {
		return nil, err
	}

	var (
		app   *model.Application
		debit *LedgerResult
	)
	err := s.Store.WithTx(ctx, func(tx repository.Repositories) error {
		c, err := tx.Campaigns().GetForUpdate(ctx, campaignID)
		if err != nil {
			return err
		}
		applicant, err := tx.Accounts().GetByID(ctx, creatorID)
		if err != nil {
			return err
		}
		if applicant.Role != model.RoleCreator {
			return appErrors.InvalidInput("applications must come from a creator account")
		}
		existing, err := tx.Applications().GetByCampaignAndCreator(ctx, campaignID, creatorID)
		if err != nil {
			return err
		}
		if existing != nil {
			return appErrors.DuplicateApplication(campaignID, creatorID)
		}
		if c.Status != model.CampaignActive {
			return appErrors.CampaignNotAccepting(c.ID, string(c.Status))
		}

		if c.TokenCost > 0 {
			debit, err = s.Ledger.DebitTx(ctx, tx, Movement{
				AccountID:       creatorID,
				Amount:          c.TokenCost,
				Reason:          model.ReasonSpent,
				RelatedEntityID: c.ID,
				IdempotencyKey:  applyKey(c.ID, creatorID, attemptKey),
			})
			if err != nil {
				return err
			}
		}

		app = &model.Application{
			ID:          uuid.NewString(),
			CampaignID:  c.ID,
			CreatorID:   creatorID,
			Status:      model.ApplicationPending,
			TokensSpent: c.TokenCost,
		}
		if err := tx.Applications().Create(ctx, app); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return appErrors.DuplicateApplication(campaignID, creatorID)
			}
			return fmt.Errorf("insert application: %w", err)
		}
		return nil
	})
	if err != nil {
		metrics.RecordApplication(outcome(err))
		return nil, err
	}

	s.Ledger.Observe(debit)
	metrics.RecordApplication("applied")
	s.Log.WithFields(logrus.Fields{
		"application_id": app.ID,
		"campaign_id":    app.CampaignID,
		"creator_id":     app.CreatorID,
		"tokens_spent":   app.TokensSpent,
	}).Info("application submitted")
	publish(s.Queue, s.Log, queue.NewEvent(queue.TopicApplicationSubmitted, id.AccountID, app.ID, map[string]any{
		"campaign_id": app.CampaignID,
		"creator_id":  app.CreatorID,
	}))
	return app, nil
}

// DecideApplication accepts or rejects a pending application. The campaign
// status is re-read under lock, so a decision racing a close loses.
func (s *ApplicationService) DecideApplication(ctx context.Context, id *auth.Identity, applicationID, decision string) (*model.Application, error) {
	if err := requireIdentity(id); err != nil {
		return nil, err
	}
	status := model.ApplicationStatus(strings.ToLower(strings.TrimSpace(decision)))
	if !status.IsDecision() {
		return nil, appErrors.InvalidInput("decision must be accepted or rejected")
	}

	var app *model.Application
	err := s.Store.WithTx(ctx, func(tx repository.Repositories) error {
		current, err := tx.Applications().GetByID(ctx, applicationID)
		if err != nil {
			return err
		}
		c, err := tx.Campaigns().GetForUpdate(ctx, current.CampaignID)
		if err != nil {
			return err
		}
		app, err = tx.Applications().GetForUpdate(ctx, applicationID)
		if err != nil {
			return err
		}
		if err := s.Guard.Check(id, auth.ApplicationDecide, auth.Resource{OwnerID: app.CreatorID, CampaignOwnerID: c.OwnerID}); err != nil {
			return err
		}
		if c.Status == model.CampaignClosed {
			return appErrors.CampaignClosed(c.ID)
		}
		if app.Status != model.ApplicationPending {
			return appErrors.ApplicationAlreadyDecided(app.ID, string(app.Status))
		}

		now := time.Now().UTC()
		app.Status = status
		app.DecidedAt = &now
		return tx.Applications().Update(ctx, app)
	})
	if err != nil {
		metrics.RecordApplication(outcome(err))
		return nil, err
	}

	metrics.RecordApplication(string(status))
	s.Log.WithFields(logrus.Fields{"application_id": app.ID, "status": app.Status}).Info("application decided")
	publish(s.Queue, s.Log, queue.NewEvent(queue.TopicApplicationDecided, id.AccountID, app.ID, map[string]any{
		"campaign_id": app.CampaignID,
		"creator_id":  app.CreatorID,
		"status":      app.Status,
	}))
	return app, nil
}

// UnlockContact returns the sponsor's contact details to an accepted
// applicant. Only the first call is charged, at the cost in force then;
// later calls read the details for free.
func (s *ApplicationService) UnlockContact(ctx context.Context, id *auth.Identity, applicationID string) (*model.ContactDetails, error) {
	if err := requireIdentity(id); err != nil {
		return nil, err
	}

	var (
		contact *model.ContactDetails
		debit   *LedgerResult
		first   bool
	)
	err := s.Store.WithTx(ctx, func(tx repository.Repositories) error {
		current, err := tx.Applications().GetByID(ctx, applicationID)
		if err != nil {
			return err
		}
		c, err := tx.Campaigns().GetByID(ctx, current.CampaignID)
		if err != nil {
			return err
		}
		app, err := tx.Applications().GetForUpdate(ctx, applicationID)
		if err != nil {
			return err
		}
		if err := s.Guard.Check(id, auth.ApplicationUnlock, auth.Resource{OwnerID: app.CreatorID, CampaignOwnerID: c.OwnerID}); err != nil {
			return err
		}
		if app.Status != model.ApplicationAccepted {
			return appErrors.ContactLocked(app.ID, string(app.Status))
		}

		if app.ContactUnlockedAt == nil {
			if s.UnlockCost > 0 {
				debit, err = s.Ledger.DebitTx(ctx, tx, Movement{
					AccountID:       app.CreatorID,
					Amount:          s.UnlockCost,
					Reason:          model.ReasonSpent,
					RelatedEntityID: app.ID,
					IdempotencyKey:  unlockKey(app.ID),
				})
				if err != nil {
					return err
				}
			}
			now := time.Now().UTC()
			app.ContactUnlockedAt = &now
			if err := tx.Applications().Update(ctx, app); err != nil {
				return err
			}
			first = true
		}

		contact, err = sponsorContact(ctx, tx, c.OwnerID)
		return err
	})
	if err != nil {
		metrics.RecordApplication(outcome(err))
		return nil, err
	}

	s.Ledger.Observe(debit)
	if first {
		metrics.RecordApplication("unlocked")
		publish(s.Queue, s.Log, queue.NewEvent(queue.TopicContactUnlocked, id.AccountID, applicationID, map[string]any{
			"sponsor_id": contact.SponsorID,
		}))
	}
	return contact, nil
}

func sponsorContact(ctx context.Context, tx repository.Repositories, sponsorID string) (*model.ContactDetails, error) {
	acc, err := tx.Accounts().GetByID(ctx, sponsorID)
	if err != nil {
		return nil, err
	}
	contact := &model.ContactDetails{
		SponsorID:    acc.ID,
		DisplayName:  acc.DisplayName,
		ContactEmail: acc.Email,
	}
	p, err := tx.Profiles().GetByAccountID(ctx, sponsorID)
	if err != nil {
		if appErrors.IsKind(err, appErrors.KindNotFound) {
			return contact, nil
		}
		return nil, err
	}
	if p.DisplayName != "" {
		contact.DisplayName = p.DisplayName
	}
	if p.ContactEmail != "" {
		contact.ContactEmail = p.ContactEmail
	}
	contact.CompanyName = p.CompanyName
	contact.ContactPhone = p.ContactPhone
	contact.Website = p.Website
	return contact, nil
}

func (s *ApplicationService) GetApplication(ctx context.Context, id *auth.Identity, applicationID string) (*model.Application, error) {
	if err := requireIdentity(id); err != nil {
		return nil, err
	}
	app, err := s.Store.Applications().GetByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	c, err := s.Store.Campaigns().GetByID(ctx, app.CampaignID)
	if err != nil {
		return nil, err
	}
	if err := s.Guard.Check(id, auth.ApplicationRead, auth.Resource{OwnerID: app.CreatorID, CampaignOwnerID: c.OwnerID}); err != nil {
		return nil, err
	}
	return app, nil
}

// ListCampaignApplications is for the campaign owner and admins.
func (s *ApplicationService) ListCampaignApplications(ctx context.Context, id *auth.Identity, campaignID string) ([]*model.Application, error) {
	if err := requireIdentity(id); err != nil {
		return nil, err
	}
	c, err := s.Store.Campaigns().GetByID(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if err := s.Guard.Check(id, auth.ApplicationRead, auth.Resource{CampaignOwnerID: c.OwnerID}); err != nil {
		return nil, err
	}
	return s.Store.Applications().ListByCampaign(ctx, campaignID)
}

func (s *ApplicationService) ListOwnApplications(ctx context.Context, id *auth.Identity) ([]*model.Application, error) {
	if err := requireIdentity(id); err != nil {
		return nil, err
	}
	return s.Store.Applications().ListByCreator(ctx, id.AccountID)
}

func outcome(err error) string {
	if kind := appErrors.KindOf(err); kind != appErrors.KindInternal {
		return string(kind)
	}
	return "error"
}
