// Package app assembles services from configuration so every binary wires
// them the same way.
package app

import (
	"github.com/sirupsen/logrus"

	"github.com/unclebandit/collabhub-backend/internal/auth"
	"github.com/unclebandit/collabhub-backend/internal/config"
	"github.com/unclebandit/collabhub-backend/internal/queue"
	"github.com/unclebandit/collabhub-backend/internal/repository"
	"github.com/unclebandit/collabhub-backend/internal/service"
)

type App struct {
	Store        repository.Store
	Guard        *auth.Guard
	Sessions     *auth.SessionManager
	Ledger       *service.LedgerService
	Accounts     *service.AccountService
	Campaigns    *service.CampaignService
	Applications *service.ApplicationService
	Profiles     *service.ProfileService
}

// New builds the services over store. q and cache may be nil.
func New(cfg config.Config, store repository.Store, q queue.Queue, cache service.ProfileCache, log logrus.FieldLogger) *App {
	guard := auth.NewGuard(log)
	var sessions *auth.SessionManager
	if cfg.JWTSecret != "" {
		sessions = auth.NewSessionManager(cfg.JWTSecret, cfg.SessionTTL, store.Accounts())
	}
	ledger := service.NewLedgerService(store, guard, q, cfg.LedgerStrict, cfg.MaxPurchase, log)

	return &App{
		Store:        store,
		Guard:        guard,
		Sessions:     sessions,
		Ledger:       ledger,
		Accounts:     service.NewAccountService(store, ledger, sessions, cfg.SignupBonusTokens, log),
		Campaigns:    service.NewCampaignService(store, guard, q, log),
		Applications: service.NewApplicationService(store, guard, ledger, q, cfg.ContactUnlockCost, log),
		Profiles:     service.NewProfileService(store, guard, cache, log),
	}
}
