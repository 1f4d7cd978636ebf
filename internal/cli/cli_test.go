package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unclebandit/collabhub-backend/internal/repository"
	"github.com/unclebandit/collabhub-backend/internal/repository/memory"
)

func run(t *testing.T, store *memory.Store, args ...string) (string, error) {
	t.Helper()
	t.Setenv("JWT_SECRET", "cli-test-secret")
	opts := &RootOptions{
		openStore: func(context.Context, *RootOptions) (repository.Store, func(), error) {
			return store, func() {}, nil
		},
	}
	cmd := newRootCommand(opts)
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCreateAdminPrintsToken(t *testing.T) {
	store := memory.NewStore()
	out, err := run(t, store, "create-admin", "root@example.com", "--name", "Root")
	require.NoError(t, err)
	assert.Contains(t, out, "Created admin")
	assert.Contains(t, out, "Session token")

	acc, err := store.Accounts().GetByEmail(context.Background(), "root@example.com")
	require.NoError(t, err)
	require.NotNil(t, acc)
	assert.Equal(t, "admin", string(acc.Role))
}

func TestGrantAndVerify(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	require.NoError(t, store.Ledger().OpenBalance(ctx, "acc-1"))

	out, err := run(t, store, "grant", "acc-1", "30", "--reference", "promo")
	require.NoError(t, err)
	assert.Contains(t, out, "balance 30")

	out, err = run(t, store, "grant", "acc-1", "30", "--reference", "promo")
	require.NoError(t, err)
	assert.Contains(t, out, "already applied")

	_, err = run(t, store, "grant", "acc-1", "lots")
	assert.Error(t, err)

	out, err = run(t, store, "verify-ledger")
	require.NoError(t, err)
	assert.Contains(t, out, "All 1 accounts consistent")

	require.NoError(t, store.Ledger().SetBalance(ctx, "acc-1", 99))
	_, err = run(t, store, "verify-ledger", "acc-1")
	assert.Error(t, err)
	_, err = run(t, store, "verify-ledger")
	assert.ErrorContains(t, err, "1 of 1 accounts inconsistent")
}
