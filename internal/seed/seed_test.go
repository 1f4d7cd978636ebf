package seed

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unclebandit/collabhub-backend/internal/app"
	"github.com/unclebandit/collabhub-backend/internal/config"
	"github.com/unclebandit/collabhub-backend/internal/logger"
	"github.com/unclebandit/collabhub-backend/internal/model"
	"github.com/unclebandit/collabhub-backend/internal/repository/memory"
)

const fixtures = `
accounts:
  - key: acme
    role: sponsor
    display_name: Acme
    email: team@acme.io
    profile:
      company_name: Acme Inc
      contact_email: deals@acme.io
  - key: ana
    role: creator
    display_name: Ana
    email: Ana@Example.com
    tokens: 25
    profile:
      platforms: [tiktok]
      follower_count: 900
campaigns:
  - owner: acme
    title: Launch
    token_cost: 4
    platforms: [tiktok]
  - owner: acme
    title: Old promo
    status: closed
`

func testApp() *app.App {
	cfg := config.Config{LedgerStrict: true, MaxPurchase: 1000, ContactUnlockCost: 5}
	return app.New(cfg, memory.NewStore(), nil, nil, logger.Discard())
}

func TestParseRejectsUnknownOwner(t *testing.T) {
	_, err := Parse([]byte("accounts: []\ncampaigns:\n  - owner: ghost\n    title: x\n"))
	assert.Error(t, err)

	_, err = Parse([]byte("accounts:\n  - key: a\n  - key: a\n"))
	assert.Error(t, err)
}

func TestApplyIsRepeatable(t *testing.T) {
	ctx := context.Background()
	a := testApp()
	f, err := Parse([]byte(fixtures))
	require.NoError(t, err)

	sum, err := Apply(ctx, a, f, logger.Discard())
	require.NoError(t, err)
	assert.Equal(t, Summary{Accounts: 2, Campaigns: 2}, sum)

	again, err := Apply(ctx, a, f, logger.Discard())
	require.NoError(t, err)
	assert.Equal(t, Summary{Skipped: 4}, again)

	ana, err := a.Store.Accounts().GetByEmail(ctx, "ana@example.com")
	require.NoError(t, err)
	require.NotNil(t, ana)
	balance, err := a.Ledger.GetBalance(ctx, ana.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(25), balance)

	profile, err := a.Store.Profiles().GetByAccountID(ctx, ana.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(900), profile.FollowerCount)
	assert.Equal(t, []string{"tiktok"}, profile.Platforms)

	list, total, err := a.Store.Campaigns().ListCampaigns(ctx, 0, 10, "", "")
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	statuses := map[string]model.CampaignStatus{}
	for _, c := range list {
		statuses[c.Title] = c.Status
	}
	assert.Equal(t, model.CampaignActive, statuses["Launch"])
	assert.Equal(t, model.CampaignClosed, statuses["Old promo"])

	reports, err := a.Ledger.VerifyAll(ctx)
	require.NoError(t, err)
	for _, r := range reports {
		assert.True(t, r.Consistent)
	}
}

func TestShippedFixturesLoad(t *testing.T) {
	path := filepath.Join("..", "..", "seed", "fixtures.yaml")
	if _, err := os.Stat(path); err != nil {
		t.Skip("fixtures not present")
	}
	f, err := Load(path)
	require.NoError(t, err)

	sum, err := Apply(context.Background(), testApp(), f, logger.Discard())
	require.NoError(t, err)
	assert.Equal(t, len(f.Accounts), sum.Accounts)
	assert.Equal(t, len(f.Campaigns), sum.Campaigns)
}
