package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unclebandit/collabhub-backend/internal/auth"
	appErrors "github.com/unclebandit/collabhub-backend/internal/errors"
	"github.com/unclebandit/collabhub-backend/internal/logger"
	"github.com/unclebandit/collabhub-backend/internal/model"
	"github.com/unclebandit/collabhub-backend/internal/repository/memory"
	"github.com/unclebandit/collabhub-backend/internal/service"
)

func TestRegisterOpensBalanceAndProfile(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	reg, err := e.accounts.Register(ctx, model.RoleCreator, " Maya ", "Maya@Example.com")
	require.NoError(t, err)
	assert.Equal(t, "maya@example.com", reg.Account.Email)
	assert.Equal(t, "Maya", reg.Account.DisplayName)
	assert.Zero(t, reg.Balance)
	assert.Empty(t, reg.Token)

	id := &auth.Identity{AccountID: reg.Account.ID, Role: model.RoleCreator}
	assert.Zero(t, e.balance(t, id))

	p, err := e.profiles.GetProfile(ctx, id, reg.Account.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RoleCreator, p.Kind)
	assert.Equal(t, "Maya", p.DisplayName)

	me, err := e.accounts.Me(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, reg.Account.ID, me.ID)
}

func TestRegisterValidation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.accounts.Register(ctx, model.RoleAdmin, "Root", "root@example.com")
	assert.True(t, appErrors.IsKind(err, appErrors.KindInvalidInput))
	_, err = e.accounts.Register(ctx, model.RoleSponsor, "", "s@example.com")
	assert.True(t, appErrors.IsKind(err, appErrors.KindInvalidInput))
	_, err = e.accounts.Register(ctx, model.RoleSponsor, "Acme", "not-an-email")
	assert.True(t, appErrors.IsKind(err, appErrors.KindInvalidInput))

	_, err = e.accounts.Register(ctx, model.RoleSponsor, "Acme", "team@acme.io")
	require.NoError(t, err)
	_, err = e.accounts.Register(ctx, model.RoleCreator, "Other", "TEAM@acme.io")
	assert.True(t, appErrors.IsKind(err, appErrors.KindInvalidInput))

	_, err = e.accounts.Me(ctx, nil)
	assert.True(t, appErrors.IsKind(err, appErrors.KindUnauthenticated))
}

func TestRegisterWithBonusAndSession(t *testing.T) {
	log := logger.Discard()
	store := memory.NewStore()
	ledger := service.NewLedgerService(store, auth.NewGuard(log), nil, true, 0, log)
	sessions := auth.NewSessionManager("test-secret", time.Hour, store.Accounts())
	accounts := service.NewAccountService(store, ledger, sessions, 25, log)
	ctx := context.Background()

	reg, err := accounts.Register(ctx, model.RoleCreator, "Lee", "lee@example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(25), reg.Balance)
	require.NotEmpty(t, reg.Token)
	require.NotNil(t, reg.ExpiresAt)

	id, err := sessions.Resolve(ctx, reg.Token)
	require.NoError(t, err)
	assert.Equal(t, reg.Account.ID, id.AccountID)
	assert.Equal(t, model.RoleCreator, id.Role)

	entries, _, err := ledger.ListEntries(ctx, id, id.AccountID, 1, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, model.ReasonEarned, entries[0].Reason)
	assert.Equal(t, "signup:"+reg.Account.ID, entries[0].IdempotencyKey)

	admin, err := accounts.CreateAdmin(ctx, "Ops", "ops@example.com")
	require.NoError(t, err)
	balance, err := ledger.GetBalance(ctx, admin.ID)
	require.NoError(t, err)
	assert.Zero(t, balance)
}
