package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/unclebandit/collabhub-backend/internal/auth"
	appErrors "github.com/unclebandit/collabhub-backend/internal/errors"
	"github.com/unclebandit/collabhub-backend/internal/logger"
	"github.com/unclebandit/collabhub-backend/internal/metrics"
	"github.com/unclebandit/collabhub-backend/internal/model"
	"github.com/unclebandit/collabhub-backend/internal/queue"
	"github.com/unclebandit/collabhub-backend/internal/repository"
)

// LedgerService is the only writer of token balances and ledger entries.
type LedgerService struct {
	Store       repository.Store
	Guard       *auth.Guard
	Queue       queue.Queue
	Strict      bool
	MaxPurchase int64
	Log         *logrus.Entry
}

func NewLedgerService(store repository.Store, guard *auth.Guard, q queue.Queue, strict bool, maxPurchase int64, log logrus.FieldLogger) *LedgerService {
	return &LedgerService{
		Store:       store,
		Guard:       guard,
		Queue:       q,
		Strict:      strict,
		MaxPurchase: maxPurchase,
		Log:         logger.Component(log, "ledger"),
	}
}

// Movement describes one credit or debit.
type Movement struct {
	AccountID       string
	Amount          int64
	Reason          model.LedgerReason
	RelatedEntityID string
	IdempotencyKey  string
}

// LedgerResult is the outcome of a movement. Replayed is set when the
// idempotency key had already been used and nothing new was written.
type LedgerResult struct {
	AccountID string             `json:"account_id"`
	Balance   int64              `json:"balance"`
	Entry     *model.LedgerEntry `json:"entry"`
	Replayed  bool               `json:"replayed"`
}

type BalanceView struct {
	AccountID string `json:"account_id"`
	Balance   int64  `json:"balance"`
}

// GetBalance returns the stored balance of an account.
func (s *LedgerService) GetBalance(ctx context.Context, accountID string) (int64, error) {
	return s.Store.Ledger().GetBalance(ctx, accountID)
}

// BalanceFor is GetBalance behind the tokens:read check.
func (s *LedgerService) BalanceFor(ctx context.Context, id *auth.Identity, accountID string) (*BalanceView, error) {
	if err := s.Guard.Check(id, auth.TokensRead, auth.Resource{OwnerID: accountID}); err != nil {
		return nil, err
	}
	balance, err := s.GetBalance(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return &BalanceView{AccountID: accountID, Balance: balance}, nil
}

func (s *LedgerService) Credit(ctx context.Context, m Movement) (int64, error) {
	res, err := s.run(ctx, m, s.CreditTx)
	if err != nil {
		return 0, err
	}
	return res.Balance, nil
}

func (s *LedgerService) Debit(ctx context.Context, m Movement) (int64, error) {
	res, err := s.run(ctx, m, s.DebitTx)
	if err != nil {
		return 0, err
	}
	return res.Balance, nil
}

func (s *LedgerService) run(ctx context.Context, m Movement, op func(context.Context, repository.Repositories, Movement) (*LedgerResult, error)) (*LedgerResult, error) {
	var res *LedgerResult
	err := s.Store.WithTx(ctx, func(tx repository.Repositories) error {
		var err error
		res, err = op(ctx, tx, m)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.Observe(res)
	return res, nil
}

// CreditTx credits inside the caller's transaction.
func (s *LedgerService) CreditTx(ctx context.Context, tx repository.Repositories, m Movement) (*LedgerResult, error) {
	return s.move(ctx, tx, m, 1)
}

// DebitTx debits inside the caller's transaction. InsufficientFunds leaves
// the transaction untouched so the caller can abort it.
func (s *LedgerService) DebitTx(ctx context.Context, tx repository.Repositories, m Movement) (*LedgerResult, error) {
	return s.move(ctx, tx, m, -1)
}

func (s *LedgerService) move(ctx context.Context, tx repository.Repositories, m Movement, sign int64) (*LedgerResult, error) {
	if m.Amount <= 0 {
		return nil, appErrors.InvalidInput("amount must be positive")
	}
	if !m.Reason.Valid() {
		return nil, appErrors.InvalidInput(fmt.Sprintf("unknown ledger reason %q", m.Reason))
	}
	if strings.TrimSpace(m.IdempotencyKey) == "" {
		return nil, appErrors.InvalidInput("idempotency key is required")
	}

	ledger := tx.Ledger()
	balance, err := ledger.LockBalance(ctx, m.AccountID)
	if err != nil {
		return nil, err
	}

	prior, err := ledger.GetByIdempotencyKey(ctx, m.AccountID, m.IdempotencyKey)
	if err != nil {
		return nil, fmt.Errorf("lookup idempotency key: %w", err)
	}
	if prior != nil {
		return &LedgerResult{AccountID: m.AccountID, Balance: prior.BalanceAfter, Entry: prior, Replayed: true}, nil
	}

	delta := sign * m.Amount
	next := balance + delta
	if next < 0 {
		metrics.RecordInsufficientFunds()
		return nil, appErrors.InsufficientFunds(balance, m.Amount)
	}

	entry := &model.LedgerEntry{
		ID:              uuid.NewString(),
		AccountID:       m.AccountID,
		Delta:           delta,
		Reason:          m.Reason,
		RelatedEntityID: m.RelatedEntityID,
		IdempotencyKey:  m.IdempotencyKey,
		BalanceAfter:    next,
	}
	if err := ledger.Append(ctx, entry); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("ledger key %s raced past the balance lock: %w", m.IdempotencyKey, err)
		}
		return nil, fmt.Errorf("append ledger entry: %w", err)
	}
	if err := ledger.SetBalance(ctx, m.AccountID, next); err != nil {
		return nil, fmt.Errorf("write balance: %w", err)
	}

	if s.Strict {
		if err := s.checkIntegrity(ctx, ledger, m.AccountID, next); err != nil {
			return nil, err
		}
	}
	return &LedgerResult{AccountID: m.AccountID, Balance: next, Entry: entry}, nil
}

func (s *LedgerService) checkIntegrity(ctx context.Context, ledger repository.LedgerRepositoryInterface, accountID string, balance int64) error {
	sum, _, err := ledger.SumDeltas(ctx, accountID)
	if err != nil {
		return fmt.Errorf("sum ledger: %w", err)
	}
	if sum != balance {
		metrics.RecordIntegrityViolation()
		s.Log.WithFields(logrus.Fields{
			"account_id": accountID,
			"balance":    balance,
			"entry_sum":  sum,
		}).Error("ledger integrity violation, rejecting write")
		return appErrors.IntegrityViolation(accountID, balance, sum)
	}
	return nil
}

// Observe records metrics for a committed movement.
func (s *LedgerService) Observe(res *LedgerResult) {
	if res == nil || res.Replayed || res.Entry == nil {
		return
	}
	if res.Entry.Delta > 0 {
		metrics.RecordCredit(string(res.Entry.Reason), res.Entry.Delta)
	} else {
		metrics.RecordDebit(string(res.Entry.Reason), -res.Entry.Delta)
	}
}

// PurchaseTokens credits a confirmed payment. Only the payment worker and
// admins may credit; the payment reference is the idempotency key, so
// gateway retries credit once.
func (s *LedgerService) PurchaseTokens(ctx context.Context, id *auth.Identity, accountID string, amount int64, paymentRef string) (*LedgerResult, error) {
	if err := s.Guard.Check(id, auth.TokensPurchase, auth.Resource{OwnerID: accountID}); err != nil {
		return nil, err
	}
	paymentRef = strings.TrimSpace(paymentRef)
	if paymentRef == "" {
		return nil, appErrors.InvalidInput("payment_ref is required")
	}
	if amount <= 0 || (s.MaxPurchase > 0 && amount > s.MaxPurchase) {
		return nil, appErrors.InvalidInput(fmt.Sprintf("amount must be between 1 and %d", s.MaxPurchase))
	}

	res, err := s.run(ctx, Movement{
		AccountID:       accountID,
		Amount:          amount,
		Reason:          model.ReasonPurchased,
		RelatedEntityID: paymentRef,
		IdempotencyKey:  "purchase:" + paymentRef,
	}, s.CreditTx)
	if err != nil {
		return nil, err
	}
	s.announceCredit(id, res)
	return res, nil
}

// Grant credits earned tokens, e.g. an admin bonus. reference keys the grant.
func (s *LedgerService) Grant(ctx context.Context, id *auth.Identity, accountID string, amount int64, reference string) (*LedgerResult, error) {
	if err := s.Guard.Check(id, auth.AccountGrant, auth.Resource{OwnerID: accountID}); err != nil {
		return nil, err
	}
	reference = strings.TrimSpace(reference)
	if reference == "" {
		reference = uuid.NewString()
	}
	res, err := s.run(ctx, Movement{
		AccountID:      accountID,
		Amount:         amount,
		Reason:         model.ReasonEarned,
		IdempotencyKey: "grant:" + reference,
	}, s.CreditTx)
	if err != nil {
		return nil, err
	}
	s.announceCredit(id, res)
	return res, nil
}

func (s *LedgerService) announceCredit(id *auth.Identity, res *LedgerResult) {
	if res.Replayed {
		s.Log.WithField("account_id", res.AccountID).Info("credit replayed, nothing written")
		return
	}
	s.Log.WithFields(logrus.Fields{
		"account_id": res.AccountID,
		"delta":      res.Entry.Delta,
		"reason":     res.Entry.Reason,
		"balance":    res.Balance,
	}).Info("tokens credited")
	publish(s.Queue, s.Log, queue.NewEvent(queue.TopicTokensCredited, id.AccountID, res.AccountID, map[string]any{
		"amount":  res.Entry.Delta,
		"reason":  res.Entry.Reason,
		"balance": res.Balance,
	}))
}

// Verify compares an account's balance with the sum of its entries.
func (s *LedgerService) Verify(ctx context.Context, id *auth.Identity, accountID string) (*model.LedgerReport, error) {
	if err := s.Guard.Check(id, auth.LedgerVerify, auth.Resource{OwnerID: accountID}); err != nil {
		return nil, err
	}
	return s.report(ctx, s.Store, accountID)
}

// VerifyAll audits every account. Operators run it from the command line.
func (s *LedgerService) VerifyAll(ctx context.Context) ([]*model.LedgerReport, error) {
	ids, err := s.Store.Ledger().ListAccountIDs(ctx)
	if err != nil {
		return nil, err
	}
	reports := make([]*model.LedgerReport, 0, len(ids))
	for _, accountID := range ids {
		r, err := s.report(ctx, s.Store, accountID)
		if err != nil {
			return nil, err
		}
		if !r.Consistent {
			s.Log.WithFields(logrus.Fields{
				"account_id": accountID,
				"balance":    r.Balance,
				"entry_sum":  r.EntrySum,
			}).Error("ledger integrity violation")
		}
		reports = append(reports, r)
	}
	return reports, nil
}

func (s *LedgerService) report(ctx context.Context, repos repository.Repositories, accountID string) (*model.LedgerReport, error) {
	balance, err := repos.Ledger().GetBalance(ctx, accountID)
	if err != nil {
		return nil, err
	}
	sum, count, err := repos.Ledger().SumDeltas(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return &model.LedgerReport{
		AccountID:  accountID,
		Balance:    balance,
		EntrySum:   sum,
		Entries:    count,
		Consistent: sum == balance,
	}, nil
}

// ListEntries pages an account's history, newest first.
func (s *LedgerService) ListEntries(ctx context.Context, id *auth.Identity, accountID string, page, pageSize int) ([]*model.LedgerEntry, map[string]int, error) {
	if err := s.Guard.Check(id, auth.TokensRead, auth.Resource{OwnerID: accountID}); err != nil {
		return nil, nil, err
	}
	page, pageSize, offset := paginate(page, pageSize)
	entries, total, err := s.Store.Ledger().ListEntries(ctx, accountID, offset, pageSize)
	if err != nil {
		return nil, nil, err
	}
	return entries, paginationMeta(page, pageSize, total), nil
}

// IsRetryable reports whether err is an infrastructure failure worth retrying.
func IsRetryable(err error) bool {
	_, typed := appErrors.As(err)
	return err != nil && !typed
}
