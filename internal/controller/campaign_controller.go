// internal/controller/campaign_controller.go
package controller

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/unclebandit/collabhub-backend/internal/auth"
	"github.com/unclebandit/collabhub-backend/internal/handler"
	"github.com/unclebandit/collabhub-backend/internal/model"
	"github.com/unclebandit/collabhub-backend/internal/service"
)

type CampaignController struct {
	CampaignService *service.CampaignService
}

type createCampaignRequest struct {
	OwnerID string `json:"owner_id"`
	model.CampaignFields
}

func (c *CampaignController) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	var body createCampaignRequest
	if err := handler.DecodeJSON(r, &body); err != nil {
		handler.WriteError(w, r, err)
		return
	}

	campaign, err := c.CampaignService.CreateCampaign(r.Context(), auth.FromContext(r.Context()), body.OwnerID, body.CampaignFields)
	if err != nil {
		handler.WriteError(w, r, err)
		return
	}
	handler.WriteSuccess(w, http.StatusCreated, campaign)
}

func (c *CampaignController) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	campaigns, pagination, err := c.CampaignService.ListCampaigns(
		r.Context(),
		handler.QueryInt(r, "page"),
		handler.QueryInt(r, "page_size"),
		q.Get("niche"),
		q.Get("status"),
	)
	if err != nil {
		handler.WriteError(w, r, err)
		return
	}
	handler.WritePage(w, campaigns, pagination)
}

// GetCampaign returns the campaign with its application counts.
func (c *CampaignController) GetCampaign(w http.ResponseWriter, r *http.Request) {
	details, err := c.CampaignService.GetCampaignDetailsWithStats(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handler.WriteError(w, r, err)
		return
	}
	handler.WriteSuccess(w, http.StatusOK, details)
}

func (c *CampaignController) ListOwnCampaigns(w http.ResponseWriter, r *http.Request) {
	campaigns, err := c.CampaignService.ListOwnCampaigns(r.Context(), auth.FromContext(r.Context()))
	if err != nil {
		handler.WriteError(w, r, err)
		return
	}
	handler.WriteSuccess(w, http.StatusOK, campaigns)
}

func (c *CampaignController) EditCampaign(w http.ResponseWriter, r *http.Request) {
	var fields model.CampaignFields
	if err := handler.DecodeJSON(r, &fields); err != nil {
		handler.WriteError(w, r, err)
		return
	}

	campaign, err := c.CampaignService.EditCampaign(r.Context(), auth.FromContext(r.Context()), chi.URLParam(r, "id"), fields)
	if err != nil {
		handler.WriteError(w, r, err)
		return
	}
	handler.WriteSuccess(w, http.StatusOK, campaign)
}

func (c *CampaignController) SetCampaignStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status string `json:"status"`
	}
	if err := handler.DecodeJSON(r, &body); err != nil {
		handler.WriteError(w, r, err)
		return
	}

	campaign, err := c.CampaignService.SetCampaignStatus(r.Context(), auth.FromContext(r.Context()), chi.URLParam(r, "id"), body.Status)
	if err != nil {
		handler.WriteError(w, r, err)
		return
	}
	handler.WriteSuccess(w, http.StatusOK, campaign)
}

func (c *CampaignController) DeleteCampaign(w http.ResponseWriter, r *http.Request) {
	if err := c.CampaignService.DeleteCampaign(r.Context(), auth.FromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		handler.WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
