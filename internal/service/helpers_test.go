package service_test

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/unclebandit/collabhub-backend/internal/auth"
	"github.com/unclebandit/collabhub-backend/internal/logger"
	"github.com/unclebandit/collabhub-backend/internal/model"
	"github.com/unclebandit/collabhub-backend/internal/repository/memory"
	"github.com/unclebandit/collabhub-backend/internal/service"
)

const unlockCost = 5

type testEnv struct {
	store        *memory.Store
	ledger       *service.LedgerService
	campaigns    *service.CampaignService
	applications *service.ApplicationService
	accounts     *service.AccountService
	profiles     *service.ProfileService
}

var emailSeq int64

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	log := logger.Discard()
	store := memory.NewStore()
	guard := auth.NewGuard(log)
	ledger := service.NewLedgerService(store, guard, nil, true, 10000, log)
	return &testEnv{
		store:        store,
		ledger:       ledger,
		campaigns:    service.NewCampaignService(store, guard, nil, log),
		applications: service.NewApplicationService(store, guard, ledger, nil, unlockCost, log),
		accounts:     service.NewAccountService(store, ledger, nil, 0, log),
		profiles:     service.NewProfileService(store, guard, nil, log),
	}
}

// account registers a user and tops it up to balance through an admin grant.
func (e *testEnv) account(t *testing.T, role model.Role, balance int64) *auth.Identity {
	t.Helper()
	ctx := context.Background()
	n := atomic.AddInt64(&emailSeq, 1)
	email := fmt.Sprintf("user%d@example.com", n)

	if role == model.RoleAdmin {
		acc, err := e.accounts.CreateAdmin(ctx, "Admin", email)
		require.NoError(t, err)
		return &auth.Identity{AccountID: acc.ID, Role: acc.Role}
	}

	reg, err := e.accounts.Register(ctx, role, fmt.Sprintf("%s %d", role, n), email)
	require.NoError(t, err)
	if balance > 0 {
		_, err := e.ledger.Grant(ctx, auth.System, reg.Account.ID, balance, "fixture")
		require.NoError(t, err)
	}
	return &auth.Identity{AccountID: reg.Account.ID, Role: reg.Account.Role}
}

func (e *testEnv) campaign(t *testing.T, owner *auth.Identity, tokenCost int64) *model.Campaign {
	t.Helper()
	title := "Summer launch"
	c, err := e.campaigns.CreateCampaign(context.Background(), owner, "", model.CampaignFields{
		Title:     &title,
		TokenCost: &tokenCost,
		Platforms: []string{"instagram"},
	})
	require.NoError(t, err)
	return c
}

func (e *testEnv) balance(t *testing.T, id *auth.Identity) int64 {
	t.Helper()
	b, err := e.ledger.GetBalance(context.Background(), id.AccountID)
	require.NoError(t, err)
	return b
}

// requireConsistent checks the core invariant: balance equals the sum of entries.
func (e *testEnv) requireConsistent(t *testing.T, ids ...*auth.Identity) {
	t.Helper()
	for _, id := range ids {
		report, err := e.ledger.Verify(context.Background(), auth.System, id.AccountID)
		require.NoError(t, err)
		require.True(t, report.Consistent, "balance %d != entry sum %d for %s", report.Balance, report.EntrySum, id.AccountID)
	}
}

func (e *testEnv) spentEntries(t *testing.T, id *auth.Identity) []*model.LedgerEntry {
	t.Helper()
	entries, _, err := e.ledger.ListEntries(context.Background(), id, id.AccountID, 1, 100)
	require.NoError(t, err)
	var spent []*model.LedgerEntry
	for _, entry := range entries {
		if entry.Reason == model.ReasonSpent {
			spent = append(spent, entry)
		}
	}
	return spent
}

func ptr[T any](v T) *T { return &v }
