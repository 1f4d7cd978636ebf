package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/unclebandit/collabhub-backend/internal/auth"
	"github.com/unclebandit/collabhub-backend/internal/handler"
	"github.com/unclebandit/collabhub-backend/internal/metrics"
	"github.com/unclebandit/collabhub-backend/internal/service"
)

// Pinger reports whether backing storage is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps is everything the router wires into controllers.
type Deps struct {
	Accounts     *service.AccountService
	Campaigns    *service.CampaignService
	Applications *service.ApplicationService
	Ledger       *service.LedgerService
	Profiles     *service.ProfileService
	Sessions     *auth.SessionManager
	Storage      Pinger
	RateLimiter  *handler.RateLimiter
	Log          logrus.FieldLogger
}

func NewRouter(d Deps) http.Handler {
	accounts := &AccountController{AccountService: d.Accounts}
	campaigns := &CampaignController{CampaignService: d.Campaigns}
	applications := &ApplicationController{ApplicationService: d.Applications}
	tokens := &TokenController{LedgerService: d.Ledger}
	profiles := &ProfileController{ProfileService: d.Profiles}
	admin := &AdminController{LedgerService: d.Ledger}

	r := chi.NewRouter()
	r.Use(handler.RequestID(d.Log))
	r.Use(middleware.Recoverer)
	r.Use(metrics.InstrumentHandler)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		handler.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if d.Storage != nil {
			if err := d.Storage.Ping(ctx); err != nil {
				handler.Logger(r.Context()).WithError(err).Warn("readiness check failed")
				handler.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		handler.WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})
	r.Handle("/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(handler.AccessLog)
		r.Use(handler.Session(d.Sessions))
		if d.RateLimiter != nil {
			r.Use(d.RateLimiter.Handler)
		}

		r.Post("/accounts", accounts.Register)

		r.Route("/me", func(r chi.Router) {
			r.Get("/", accounts.Me)
			r.Get("/campaigns", campaigns.ListOwnCampaigns)
			r.Get("/applications", applications.ListOwnApplications)
			r.Get("/tokens", tokens.Balance)
			r.Get("/tokens/entries", tokens.Entries)
		})

		r.Route("/campaigns", func(r chi.Router) {
			r.Post("/", campaigns.CreateCampaign)
			r.Get("/", campaigns.ListCampaigns)
			r.Get("/{id}", campaigns.GetCampaign)
			r.Patch("/{id}", campaigns.EditCampaign)
			r.Delete("/{id}", campaigns.DeleteCampaign)
			r.Post("/{id}/status", campaigns.SetCampaignStatus)
			r.Post("/{id}/applications", applications.Apply)
			r.Get("/{id}/applications", applications.ListCampaignApplications)
		})

		r.Route("/applications/{id}", func(r chi.Router) {
			r.Get("/", applications.GetApplication)
			r.Post("/decision", applications.Decide)
			r.Post("/contact", applications.UnlockContact)
		})

		r.Get("/creators", profiles.ListCreators)
		r.Get("/profiles/{id}", profiles.GetProfile)
		r.Put("/profiles/{id}", profiles.PutProfile)

		r.Route("/admin/accounts/{id}", func(r chi.Router) {
			r.Get("/ledger", admin.VerifyLedger)
			r.Post("/grants", admin.Grant)
			r.Post("/purchases", tokens.Purchase)
		})
	})

	return r
}
