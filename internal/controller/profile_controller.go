package controller

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/unclebandit/collabhub-backend/internal/auth"
	"github.com/unclebandit/collabhub-backend/internal/handler"
	"github.com/unclebandit/collabhub-backend/internal/model"
	"github.com/unclebandit/collabhub-backend/internal/service"
)

type ProfileController struct {
	ProfileService *service.ProfileService
}

func (c *ProfileController) GetProfile(w http.ResponseWriter, r *http.Request) {
	p, err := c.ProfileService.GetProfile(r.Context(), auth.FromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		handler.WriteError(w, r, err)
		return
	}
	handler.WriteSuccess(w, http.StatusOK, p)
}

func (c *ProfileController) PutProfile(w http.ResponseWriter, r *http.Request) {
	var fields model.ProfileFields
	if err := handler.DecodeJSON(r, &fields); err != nil {
		handler.WriteError(w, r, err)
		return
	}
	p, err := c.ProfileService.UpsertProfile(r.Context(), auth.FromContext(r.Context()), chi.URLParam(r, "id"), fields)
	if err != nil {
		handler.WriteError(w, r, err)
		return
	}
	handler.WriteSuccess(w, http.StatusOK, p)
}

func (c *ProfileController) ListCreators(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	list, pagination, err := c.ProfileService.ListCreators(
		r.Context(),
		q.Get("niche"),
		q.Get("platform"),
		handler.QueryInt(r, "page"),
		handler.QueryInt(r, "page_size"),
	)
	if err != nil {
		handler.WriteError(w, r, err)
		return
	}
	handler.WritePage(w, list, pagination)
}
