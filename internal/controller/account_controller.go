package controller

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/unclebandit/collabhub-backend/internal/auth"
	"github.com/unclebandit/collabhub-backend/internal/handler"
	"github.com/unclebandit/collabhub-backend/internal/model"
	"github.com/unclebandit/collabhub-backend/internal/service"
)

type AccountController struct {
	AccountService *service.AccountService
}

func (c *AccountController) Register(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Role        model.Role `json:"role"`
		DisplayName string     `json:"display_name"`
		Email       string     `json:"email"`
	}
	if err := handler.DecodeJSON(r, &body); err != nil {
		handler.WriteError(w, r, err)
		return
	}

	reg, err := c.AccountService.Register(r.Context(), body.Role, body.DisplayName, body.Email)
	if err != nil {
		handler.WriteError(w, r, err)
		return
	}
	handler.WriteSuccess(w, http.StatusCreated, reg)
}

func (c *AccountController) Me(w http.ResponseWriter, r *http.Request) {
	acc, err := c.AccountService.Me(r.Context(), auth.FromContext(r.Context()))
	if err != nil {
		handler.WriteError(w, r, err)
		return
	}
	handler.WriteSuccess(w, http.StatusOK, acc)
}

// AdminController exposes ledger audits and grants to admins.
type AdminController struct {
	LedgerService *service.LedgerService
}

func (c *AdminController) VerifyLedger(w http.ResponseWriter, r *http.Request) {
	report, err := c.LedgerService.Verify(r.Context(), auth.FromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		handler.WriteError(w, r, err)
		return
	}
	handler.WriteSuccess(w, http.StatusOK, report)
}

func (c *AdminController) Grant(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Amount    int64  `json:"amount"`
		Reference string `json:"reference"`
	}
	if err := handler.DecodeJSON(r, &body); err != nil {
		handler.WriteError(w, r, err)
		return
	}
	if body.Reference == "" {
		body.Reference = r.Header.Get(IdempotencyKeyHeader)
	}

	res, err := c.LedgerService.Grant(r.Context(), auth.FromContext(r.Context()), chi.URLParam(r, "id"), body.Amount, body.Reference)
	if err != nil {
		handler.WriteError(w, r, err)
		return
	}
	handler.WriteSuccess(w, http.StatusCreated, res)
}
