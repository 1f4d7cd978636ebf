package controller

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/unclebandit/collabhub-backend/internal/auth"
	appErrors "github.com/unclebandit/collabhub-backend/internal/errors"
	"github.com/unclebandit/collabhub-backend/internal/handler"
	"github.com/unclebandit/collabhub-backend/internal/service"
)

type TokenController struct {
	LedgerService *service.LedgerService
}

func callerID(r *http.Request) (*auth.Identity, error) {
	id := auth.FromContext(r.Context())
	if id == nil {
		return nil, appErrors.Unauthenticated()
	}
	return id, nil
}

func (c *TokenController) Balance(w http.ResponseWriter, r *http.Request) {
	id, err := callerID(r)
	if err != nil {
		handler.WriteError(w, r, err)
		return
	}
	view, err := c.LedgerService.BalanceFor(r.Context(), id, id.AccountID)
	if err != nil {
		handler.WriteError(w, r, err)
		return
	}
	handler.WriteSuccess(w, http.StatusOK, view)
}

func (c *TokenController) Entries(w http.ResponseWriter, r *http.Request) {
	id, err := callerID(r)
	if err != nil {
		handler.WriteError(w, r, err)
		return
	}
	entries, pagination, err := c.LedgerService.ListEntries(r.Context(), id, id.AccountID, handler.QueryInt(r, "page"), handler.QueryInt(r, "page_size"))
	if err != nil {
		handler.WriteError(w, r, err)
		return
	}
	handler.WritePage(w, entries, pagination)
}

// Purchase records a payment confirmed by the gateway against the account in
// the path. Admin only; payment_ref falls back to the Idempotency-Key header.
func (c *TokenController) Purchase(w http.ResponseWriter, r *http.Request) {
	id, err := callerID(r)
	if err != nil {
		handler.WriteError(w, r, err)
		return
	}
	var body struct {
		Amount     int64  `json:"amount"`
		PaymentRef string `json:"payment_ref"`
	}
	if err := handler.DecodeJSON(r, &body); err != nil {
		handler.WriteError(w, r, err)
		return
	}
	if strings.TrimSpace(body.PaymentRef) == "" {
		body.PaymentRef = r.Header.Get(IdempotencyKeyHeader)
	}

	res, err := c.LedgerService.PurchaseTokens(r.Context(), id, chi.URLParam(r, "id"), body.Amount, body.PaymentRef)
	if err != nil {
		handler.WriteError(w, r, err)
		return
	}
	status := http.StatusCreated
	if res.Replayed {
		status = http.StatusOK
	}
	handler.WriteSuccess(w, status, res)
}
