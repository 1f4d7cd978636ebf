package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/unclebandit/collabhub-backend/internal/auth"
	appErrors "github.com/unclebandit/collabhub-backend/internal/errors"
	"github.com/unclebandit/collabhub-backend/internal/logger"
	"github.com/unclebandit/collabhub-backend/internal/model"
	"github.com/unclebandit/collabhub-backend/internal/repository"
)

type AccountService struct {
	Store       repository.Store
	Ledger      *LedgerService
	Sessions    *auth.SessionManager
	SignupBonus int64
	Log         *logrus.Entry
}

func NewAccountService(store repository.Store, ledger *LedgerService, sessions *auth.SessionManager, signupBonus int64, log logrus.FieldLogger) *AccountService {
	return &AccountService{
		Store:       store,
		Ledger:      ledger,
		Sessions:    sessions,
		SignupBonus: signupBonus,
		Log:         logger.Component(log, "accounts"),
	}
}

type Registration struct {
	Account   *model.Account `json:"account"`
	Balance   int64          `json:"balance"`
	Token     string         `json:"token,omitempty"`
	ExpiresAt *time.Time     `json:"expires_at,omitempty"`
}

// Register opens a creator or sponsor account with a zero balance and an
// empty profile, credits the signup bonus if one is configured and signs a
// session for it.
func (s *AccountService) Register(ctx context.Context, role model.Role, displayName, email string) (*Registration, error) {
	if role != model.RoleCreator && role != model.RoleSponsor {
		return nil, appErrors.InvalidInput("role must be creator or sponsor")
	}
	reg, err := s.create(ctx, role, displayName, email)
	if err != nil {
		return nil, err
	}
	if s.Sessions != nil {
		token, expires, err := s.Sessions.Issue(reg.Account)
		if err != nil {
			return nil, err
		}
		reg.Token, reg.ExpiresAt = token, &expires
	}
	return reg, nil
}

// CreateAdmin is for operators; admins cannot register over HTTP.
func (s *AccountService) CreateAdmin(ctx context.Context, displayName, email string) (*model.Account, error) {
	reg, err := s.create(ctx, model.RoleAdmin, displayName, email)
	if err != nil {
		return nil, err
	}
	return reg.Account, nil
}

func (s *AccountService) create(ctx context.Context, role model.Role, displayName, email string) (*Registration, error) {
	displayName = strings.TrimSpace(displayName)
	email = strings.ToLower(strings.TrimSpace(email))
	if displayName == "" {
		return nil, appErrors.InvalidInput("display_name is required")
	}
	if !strings.Contains(email, "@") {
		return nil, appErrors.InvalidInput("a valid email is required")
	}

	acc := &model.Account{ID: uuid.NewString(), Role: role, DisplayName: displayName, Email: email}
	var bonus *LedgerResult
	err := s.Store.WithTx(ctx, func(tx repository.Repositories) error {
		existing, err := tx.Accounts().GetByEmail(ctx, email)
		if err != nil {
			return err
		}
		if existing != nil {
			return appErrors.InvalidInput("email is already registered")
		}
		if err := tx.Accounts().Create(ctx, acc); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return appErrors.InvalidInput("email is already registered")
			}
			return err
		}
		if err := tx.Ledger().OpenBalance(ctx, acc.ID); err != nil {
			return err
		}
		if err := tx.Profiles().Upsert(ctx, &model.Profile{AccountID: acc.ID, Kind: role, DisplayName: displayName}); err != nil {
			return err
		}
		if s.SignupBonus > 0 && role != model.RoleAdmin {
			bonus, err = s.Ledger.CreditTx(ctx, tx, Movement{
				AccountID:      acc.ID,
				Amount:         s.SignupBonus,
				Reason:         model.ReasonEarned,
				IdempotencyKey: "signup:" + acc.ID,
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Ledger.Observe(bonus)
	s.Log.WithFields(logrus.Fields{"account_id": acc.ID, "role": acc.Role}).Info("account created")
	reg := &Registration{Account: acc}
	if bonus != nil {
		reg.Balance = bonus.Balance
	}
	return reg, nil
}

func (s *AccountService) Me(ctx context.Context, id *auth.Identity) (*model.Account, error) {
	if err := requireIdentity(id); err != nil {
		return nil, err
	}
	return s.Store.Accounts().GetByID(ctx, id.AccountID)
}
