package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/unclebandit/collabhub-backend/internal/errors"
	"github.com/unclebandit/collabhub-backend/internal/model"
)

func newMock(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewPostgresStore(db), mock
}

func TestWithTxCommitsOnSuccess(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE token_balances").
		WithArgs(int64(7), sqlmock.AnyArg(), "acc-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.WithTx(context.Background(), func(tx Repositories) error {
		return tx.Ledger().SetBalance(context.Background(), "acc-1", 7)
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTxRollsBackOnError(t *testing.T) {
	store, mock := newMock(t)
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := store.WithTx(context.Background(), func(tx Repositories) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerLockBalanceMissingAccount(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT balance FROM token_balances WHERE account_id=$1 FOR UPDATE")).
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"balance"}))

	_, err := store.Ledger().LockBalance(context.Background(), "ghost")
	assert.True(t, appErrors.IsKind(err, appErrors.KindNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerAppendDuplicateKey(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectExec("INSERT INTO ledger_entries").
		WillReturnError(&pq.Error{Code: "23505"})

	err := store.Ledger().Append(context.Background(), &model.LedgerEntry{
		ID:             "e1",
		AccountID:      "acc-1",
		Delta:          -5,
		Reason:         model.ReasonSpent,
		IdempotencyKey: "unlock:app-1",
	})
	assert.ErrorIs(t, err, ErrDuplicate)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerGetByIdempotencyKeyAbsent(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectQuery("FROM ledger_entries WHERE account_id").
		WithArgs("acc-1", "purchase:abc").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	e, err := store.Ledger().GetByIdempotencyKey(context.Background(), "acc-1", "purchase:abc")
	require.NoError(t, err)
	assert.Nil(t, e)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerSumDeltas(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(SUM(delta), 0), COUNT(*) FROM ledger_entries")).
		WithArgs("acc-1").
		WillReturnRows(sqlmock.NewRows([]string{"sum", "count"}).AddRow(int64(45), 3))

	sum, count, err := store.Ledger().SumDeltas(context.Background(), "acc-1")
	require.NoError(t, err)
	assert.Equal(t, int64(45), sum)
	assert.Equal(t, 3, count)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCampaignGetByIDNotFound(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectQuery("FROM campaigns WHERE id").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := store.Campaigns().GetByID(context.Background(), "missing")
	assert.True(t, appErrors.IsKind(err, appErrors.KindNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCampaignListCampaignsFiltersAndCounts(t *testing.T) {
	store, mock := newMock(t)
	now := time.Now().UTC()

	cols := []string{"id", "owner_id", "title", "description", "niche", "budget", "deadline", "platforms",
		"requirements", "deliverables", "token_cost", "status", "created_at", "updated_at"}
	mock.ExpectQuery(regexp.QuoteMeta("FROM campaigns WHERE 1=1 AND niche=$1 ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3")).
		WithArgs("fitness", 10, 0).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("c1", "s1", "Summer", "", "fitness", int64(500), nil, "{instagram,tiktok}",
				"", "", int64(10), "active", now, nil))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM campaigns WHERE 1=1 AND niche=$1")).
		WithArgs("fitness").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	list, total, err := store.Campaigns().ListCampaigns(context.Background(), 0, 10, "fitness", "")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 1, total)
	assert.Equal(t, []string{"instagram", "tiktok"}, list[0].Platforms)
	assert.Equal(t, model.CampaignActive, list[0].Status)
	assert.Nil(t, list[0].Deadline)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCampaignStatsCountsByStatus(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectQuery("SELECT status, COUNT").
		WithArgs("c1").
		WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).
			AddRow("pending", 2).
			AddRow("accepted", 1))

	stats, err := store.Campaigns().GetCampaignStats(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, 3, stats["total"])
	assert.Equal(t, 2, stats["pending"])
	assert.Equal(t, 1, stats["accepted"])
	assert.Equal(t, 0, stats["rejected"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCampaignUpdateStatusUnknownID(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectExec("UPDATE campaigns SET status").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.Campaigns().UpdateStatus(context.Background(), "nope", model.CampaignPaused)
	assert.True(t, appErrors.IsKind(err, appErrors.KindNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationCreateDuplicate(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectExec("INSERT INTO applications").
		WillReturnError(&pq.Error{Code: "23505"})

	err := store.Applications().Create(context.Background(), &model.Application{
		ID: "a1", CampaignID: "c1", CreatorID: "cr1", Status: model.ApplicationPending,
	})
	assert.ErrorIs(t, err, ErrDuplicate)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationGetByCampaignAndCreatorAbsent(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectQuery("FROM applications").
		WithArgs("c1", "cr1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	a, err := store.Applications().GetByCampaignAndCreator(context.Background(), "c1", "cr1")
	require.NoError(t, err)
	assert.Nil(t, a)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProfileListCreatorsByPlatform(t *testing.T) {
	store, mock := newMock(t)

	cols := []string{"account_id", "kind", "display_name", "bio", "niche", "platforms", "follower_count",
		"company_name", "website", "contact_email", "contact_phone", "updated_at"}
	mock.ExpectQuery(regexp.QuoteMeta("AND $1 = ANY(platforms)")).
		WithArgs("youtube", 20, 0).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("cr1", "creator", "Ana", "", "travel", "{youtube}", int64(12000), "", "", "", "", nil))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM profiles")).
		WithArgs("youtube").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	list, total, err := store.Profiles().ListCreators(context.Background(), 0, 20, "", "youtube")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 1, total)
	assert.Equal(t, model.RoleCreator, list[0].Kind)
	assert.Equal(t, []string{"youtube"}, list[0].Platforms)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountCreateDuplicateEmail(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectExec("INSERT INTO accounts").
		WillReturnError(&pq.Error{Code: "23505"})

	err := store.Accounts().Create(context.Background(), &model.Account{ID: "a", Role: model.RoleCreator, Email: "x@y.z"})
	assert.ErrorIs(t, err, ErrDuplicate)
	require.NoError(t, mock.ExpectationsWereMet())
}
