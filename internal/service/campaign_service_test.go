package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/unclebandit/collabhub-backend/internal/errors"
	"github.com/unclebandit/collabhub-backend/internal/model"
)

func TestCreateCampaignRequiresSponsor(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	sponsor := e.account(t, model.RoleSponsor, 0)
	creator := e.account(t, model.RoleCreator, 0)
	admin := e.account(t, model.RoleAdmin, 0)
	fields := model.CampaignFields{Title: ptr("Spring drop"), TokenCost: ptr(int64(3))}

	c, err := e.campaigns.CreateCampaign(ctx, sponsor, "", fields)
	require.NoError(t, err)
	assert.Equal(t, model.CampaignActive, c.Status)
	assert.Equal(t, sponsor.AccountID, c.OwnerID)

	_, err = e.campaigns.CreateCampaign(ctx, creator, "", fields)
	assert.True(t, appErrors.IsKind(err, appErrors.KindForbidden))

	_, err = e.campaigns.CreateCampaign(ctx, nil, "", fields)
	assert.True(t, appErrors.IsKind(err, appErrors.KindUnauthenticated))

	onBehalf, err := e.campaigns.CreateCampaign(ctx, admin, sponsor.AccountID, fields)
	require.NoError(t, err)
	assert.Equal(t, sponsor.AccountID, onBehalf.OwnerID)

	_, err = e.campaigns.CreateCampaign(ctx, admin, creator.AccountID, fields)
	assert.True(t, appErrors.IsKind(err, appErrors.KindInvalidInput))
}

func TestCreateCampaignValidation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	sponsor := e.account(t, model.RoleSponsor, 0)

	cases := map[string]model.CampaignFields{
		"blank title":     {Title: ptr("  ")},
		"negative cost":   {Title: ptr("x"), TokenCost: ptr(int64(-1))},
		"negative budget": {Title: ptr("x"), Budget: ptr(int64(-100))},
		"blank platform":  {Title: ptr("x"), Platforms: []string{"instagram", ""}},
	}
	for name, fields := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := e.campaigns.CreateCampaign(ctx, sponsor, "", fields)
			assert.True(t, appErrors.IsKind(err, appErrors.KindInvalidInput))
		})
	}
}

func TestCampaignStatusTransitions(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	sponsor := e.account(t, model.RoleSponsor, 0)
	c := e.campaign(t, sponsor, 0)

	paused, err := e.campaigns.SetCampaignStatus(ctx, sponsor, c.ID, "paused")
	require.NoError(t, err)
	assert.Equal(t, model.CampaignPaused, paused.Status)

	again, err := e.campaigns.SetCampaignStatus(ctx, sponsor, c.ID, "paused")
	require.NoError(t, err)
	assert.Equal(t, model.CampaignPaused, again.Status)

	active, err := e.campaigns.SetCampaignStatus(ctx, sponsor, c.ID, "ACTIVE")
	require.NoError(t, err)
	assert.Equal(t, model.CampaignActive, active.Status)

	_, err = e.campaigns.SetCampaignStatus(ctx, sponsor, c.ID, "archived")
	assert.True(t, appErrors.IsKind(err, appErrors.KindInvalidInput))

	closed, err := e.campaigns.SetCampaignStatus(ctx, sponsor, c.ID, "closed")
	require.NoError(t, err)
	assert.Equal(t, model.CampaignClosed, closed.Status)

	for _, next := range []string{"active", "paused", "closed"} {
		_, err = e.campaigns.SetCampaignStatus(ctx, sponsor, c.ID, next)
		assert.True(t, appErrors.IsKind(err, appErrors.KindCampaignClosed), next)
	}

	_, err = e.campaigns.EditCampaign(ctx, sponsor, c.ID, model.CampaignFields{Title: ptr("reopened")})
	assert.True(t, appErrors.IsKind(err, appErrors.KindCampaignClosed))
}

func TestCampaignMutationsAreOwnerOnly(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	owner := e.account(t, model.RoleSponsor, 0)
	rival := e.account(t, model.RoleSponsor, 0)
	admin := e.account(t, model.RoleAdmin, 0)
	c := e.campaign(t, owner, 0)

	_, err := e.campaigns.EditCampaign(ctx, rival, c.ID, model.CampaignFields{Title: ptr("mine now")})
	assert.True(t, appErrors.IsKind(err, appErrors.KindForbidden))
	_, err = e.campaigns.SetCampaignStatus(ctx, rival, c.ID, "paused")
	assert.True(t, appErrors.IsKind(err, appErrors.KindForbidden))
	assert.True(t, appErrors.IsKind(e.campaigns.DeleteCampaign(ctx, rival, c.ID), appErrors.KindForbidden))

	stored, err := e.campaigns.GetCampaignDetails(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Summer launch", stored.Title)
	assert.Equal(t, model.CampaignActive, stored.Status)

	_, err = e.campaigns.SetCampaignStatus(ctx, admin, c.ID, "paused")
	require.NoError(t, err)
}

func TestDeleteCampaignRemovesApplicationsButKeepsSpend(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	sponsor := e.account(t, model.RoleSponsor, 0)
	creator := e.account(t, model.RoleCreator, 10)
	c := e.campaign(t, sponsor, 4)

	app, err := e.applications.Apply(ctx, creator, c.ID, "", "")
	require.NoError(t, err)

	require.NoError(t, e.campaigns.DeleteCampaign(ctx, sponsor, c.ID))

	_, err = e.campaigns.GetCampaignDetails(ctx, c.ID)
	assert.True(t, appErrors.IsKind(err, appErrors.KindNotFound))
	_, err = e.applications.GetApplication(ctx, creator, app.ID)
	assert.True(t, appErrors.IsKind(err, appErrors.KindNotFound))

	assert.Equal(t, int64(6), e.balance(t, creator))
	assert.Len(t, e.spentEntries(t, creator), 1)
	e.requireConsistent(t, creator)
}

func TestEditTokenCostKeepsExistingCharges(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	sponsor := e.account(t, model.RoleSponsor, 0)
	early := e.account(t, model.RoleCreator, 20)
	late := e.account(t, model.RoleCreator, 20)
	c := e.campaign(t, sponsor, 2)

	first, err := e.applications.Apply(ctx, early, c.ID, "", "")
	require.NoError(t, err)

	edited, err := e.campaigns.EditCampaign(ctx, sponsor, c.ID, model.CampaignFields{TokenCost: ptr(int64(7))})
	require.NoError(t, err)
	assert.Equal(t, int64(7), edited.TokenCost)
	assert.Equal(t, "Summer launch", edited.Title)

	second, err := e.applications.Apply(ctx, late, c.ID, "", "")
	require.NoError(t, err)

	stored, err := e.applications.GetApplication(ctx, early, first.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stored.TokensSpent)
	assert.Equal(t, int64(7), second.TokensSpent)
	assert.Equal(t, int64(18), e.balance(t, early))
	assert.Equal(t, int64(13), e.balance(t, late))
}

func TestListCampaignsPagination(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	sponsor := e.account(t, model.RoleSponsor, 0)
	for i := 0; i < 5; i++ {
		e.campaign(t, sponsor, 0)
	}
	paused := e.campaign(t, sponsor, 0)
	_, err := e.campaigns.SetCampaignStatus(ctx, sponsor, paused.ID, "paused")
	require.NoError(t, err)

	tests := []struct {
		name          string
		page          int
		pageSize      int
		status        string
		expectedCount int
		expectedPages int
		expectedTotal int
	}{
		{"first page", 1, 2, "", 2, 3, 5},
		{"last page", 3, 2, "", 1, 3, 5},
		{"beyond last page", 4, 2, "", 0, 3, 5},
		{"defaults", 0, 0, "", 5, 1, 5},
		{"paused only", 1, 10, "paused", 1, 1, 1},
		{"all statuses", 1, 10, "all", 6, 1, 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list, meta, err := e.campaigns.ListCampaigns(ctx, tt.page, tt.pageSize, "", tt.status)
			require.NoError(t, err)
			assert.Len(t, list, tt.expectedCount)
			assert.Equal(t, tt.expectedPages, meta["total_pages"])
			assert.Equal(t, tt.expectedTotal, meta["total_count"])
		})
	}

	_, _, err = e.campaigns.ListCampaigns(ctx, 1, 10, "", "draft")
	assert.True(t, appErrors.IsKind(err, appErrors.KindInvalidInput))

	_, meta, err := e.campaigns.ListCampaigns(ctx, 1, 500, "", "")
	require.NoError(t, err)
	assert.Equal(t, 100, meta["page_size"])
}

func TestCampaignDetailsWithStats(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	sponsor := e.account(t, model.RoleSponsor, 0)
	c := e.campaign(t, sponsor, 0)

	var apps []*model.Application
	for i := 0; i < 3; i++ {
		creator := e.account(t, model.RoleCreator, 0)
		app, err := e.applications.Apply(ctx, creator, c.ID, "", "")
		require.NoError(t, err)
		apps = append(apps, app)
	}
	_, err := e.applications.DecideApplication(ctx, sponsor, apps[0].ID, "accepted")
	require.NoError(t, err)
	_, err = e.applications.DecideApplication(ctx, sponsor, apps[1].ID, "rejected")
	require.NoError(t, err)

	details, err := e.campaigns.GetCampaignDetailsWithStats(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, details.ID)
	assert.Equal(t, map[string]int{"total": 3, "pending": 1, "accepted": 1, "rejected": 1}, details.Stats)

	own, err := e.campaigns.ListOwnCampaigns(ctx, sponsor)
	require.NoError(t, err)
	require.Len(t, own, 1)
}
