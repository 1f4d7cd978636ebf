package auth

import (
	"github.com/sirupsen/logrus"

	appErrors "github.com/unclebandit/collabhub-backend/internal/errors"
	"github.com/unclebandit/collabhub-backend/internal/logger"
	"github.com/unclebandit/collabhub-backend/internal/model"
)

type Action string

const (
	CampaignCreate    Action = "campaign:create"
	CampaignEdit      Action = "campaign:edit"
	CampaignSetStatus Action = "campaign:set_status"
	CampaignDelete    Action = "campaign:delete"

	ApplicationCreate Action = "application:create"
	ApplicationDecide Action = "application:decide"
	ApplicationUnlock Action = "application:unlock"
	ApplicationRead   Action = "application:read"

	// TokensPurchase credits a confirmed payment. Only the payment worker
	// (System) and admins hold it; account owners never self-credit.
	TokensPurchase Action = "tokens:purchase"
	TokensRead     Action = "tokens:read"
	ProfileWrite   Action = "profile:write"
	LedgerVerify   Action = "ledger:verify"
	AccountGrant   Action = "account:grant"
)

// Resource names whoever owns the target of an action. For campaign actions
// OwnerID is the sponsor; for application actions it is the applicant and
// CampaignOwnerID the sponsor of the campaign applied to.
type Resource struct {
	OwnerID         string
	CampaignOwnerID string
}

type Guard struct {
	log *logrus.Entry
}

func NewGuard(log logrus.FieldLogger) *Guard {
	return &Guard{log: logger.Component(log, "guard")}
}

// Check returns nil when id may perform action on res, Unauthenticated for
// anonymous callers and Forbidden otherwise.
func (g *Guard) Check(id *Identity, action Action, res Resource) error {
	if id == nil {
		return appErrors.Unauthenticated()
	}
	if id.IsAdmin() {
		return nil
	}
	if allowed(id, action, res) {
		return nil
	}
	g.log.WithFields(logrus.Fields{
		"account_id": id.AccountID,
		"role":       id.Role,
		"action":     action,
	}).Debug("access denied")
	return appErrors.Forbidden(string(action))
}

func allowed(id *Identity, action Action, res Resource) bool {
	self := id.AccountID
	switch action {
	case CampaignCreate, CampaignEdit, CampaignSetStatus, CampaignDelete:
		return id.Role == model.RoleSponsor && res.OwnerID == self
	case ApplicationCreate, ApplicationUnlock:
		return id.Role == model.RoleCreator && res.OwnerID == self
	case ApplicationDecide:
		return id.Role == model.RoleSponsor && res.CampaignOwnerID == self
	case ApplicationRead:
		return res.OwnerID == self || res.CampaignOwnerID == self
	case TokensRead, ProfileWrite:
		return res.OwnerID == self
	}
	// tokens:purchase, ledger:verify, account:grant and unknown actions are admin only
	return false
}
