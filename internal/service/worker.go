package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/unclebandit/collabhub-backend/internal/auth"
	"github.com/unclebandit/collabhub-backend/internal/logger"
	"github.com/unclebandit/collabhub-backend/internal/queue"
)

// TokenPurchaser defines the method the worker needs
type TokenPurchaser interface {
	PurchaseTokens(ctx context.Context, id *auth.Identity, accountID string, amount int64, paymentRef string) (*LedgerResult, error)
}

// Worker applies payment confirmations to the ledger
type Worker struct {
	Ledger  TokenPurchaser
	JobChan <-chan queue.PurchaseJob
	Log     *logrus.Entry
}

// Constructor
func NewWorker(ledger TokenPurchaser, jobChan <-chan queue.PurchaseJob, log logrus.FieldLogger) *Worker {
	return &Worker{
		Ledger:  ledger,
		JobChan: jobChan,
		Log:     logger.Component(log, "worker"),
	}
}

// Start processes jobs until the channel closes or ctx is cancelled
func (w *Worker) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-w.JobChan:
			if !ok {
				return
			}
			w.handle(ctx, job)
		}
	}
}

func (w *Worker) handle(ctx context.Context, job queue.PurchaseJob) {
	log := w.Log.WithFields(logrus.Fields{
		"account_id":  job.AccountID,
		"payment_ref": job.PaymentRef,
		"amount":      job.Amount,
	})

	res, err := w.Ledger.PurchaseTokens(ctx, auth.System, job.AccountID, job.Amount, job.PaymentRef)
	switch {
	case err != nil:
		log.WithError(err).Warn("purchase failed")
	case res.Replayed:
		log.Info("purchase already applied")
	default:
		log.WithField("balance", res.Balance).Info("purchase applied")
	}

	if job.Done != nil {
		job.Done(err)
	}
}
