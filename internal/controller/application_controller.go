package controller

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/unclebandit/collabhub-backend/internal/auth"
	"github.com/unclebandit/collabhub-backend/internal/handler"
	"github.com/unclebandit/collabhub-backend/internal/service"
)

// IdempotencyKeyHeader lets clients retry an apply or a purchase safely.
const IdempotencyKeyHeader = "Idempotency-Key"

type ApplicationController struct {
	ApplicationService *service.ApplicationService
}

func (c *ApplicationController) Apply(w http.ResponseWriter, r *http.Request) {
	var body struct {
		CreatorID string `json:"creator_id"`
	}
	if err := handler.DecodeJSON(r, &body); err != nil {
		handler.WriteError(w, r, err)
		return
	}

	app, err := c.ApplicationService.Apply(
		r.Context(),
		auth.FromContext(r.Context()),
		chi.URLParam(r, "id"),
		body.CreatorID,
		r.Header.Get(IdempotencyKeyHeader),
	)
	if err != nil {
		handler.WriteError(w, r, err)
		return
	}
	handler.WriteSuccess(w, http.StatusCreated, app)
}

func (c *ApplicationController) ListCampaignApplications(w http.ResponseWriter, r *http.Request) {
	apps, err := c.ApplicationService.ListCampaignApplications(r.Context(), auth.FromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		handler.WriteError(w, r, err)
		return
	}
	handler.WriteSuccess(w, http.StatusOK, apps)
}

func (c *ApplicationController) ListOwnApplications(w http.ResponseWriter, r *http.Request) {
	apps, err := c.ApplicationService.ListOwnApplications(r.Context(), auth.FromContext(r.Context()))
	if err != nil {
		handler.WriteError(w, r, err)
		return
	}
	handler.WriteSuccess(w, http.StatusOK, apps)
}

func (c *ApplicationController) GetApplication(w http.ResponseWriter, r *http.Request) {
	app, err := c.ApplicationService.GetApplication(r.Context(), auth.FromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		handler.WriteError(w, r, err)
		return
	}
	handler.WriteSuccess(w, http.StatusOK, app)
}

func (c *ApplicationController) Decide(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Decision string `json:"decision"`
	}
	if err := handler.DecodeJSON(r, &body); err != nil {
		handler.WriteError(w, r, err)
		return
	}

	app, err := c.ApplicationService.DecideApplication(r.Context(), auth.FromContext(r.Context()), chi.URLParam(r, "id"), body.Decision)
	if err != nil {
		handler.WriteError(w, r, err)
		return
	}
	handler.WriteSuccess(w, http.StatusOK, app)
}

// UnlockContact charges on the first call only; repeats return the same details.
func (c *ApplicationController) UnlockContact(w http.ResponseWriter, r *http.Request) {
	contact, err := c.ApplicationService.UnlockContact(r.Context(), auth.FromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		handler.WriteError(w, r, err)
		return
	}
	handler.WriteSuccess(w, http.StatusOK, contact)
}
