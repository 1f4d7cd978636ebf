package queue

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unclebandit/collabhub-backend/internal/logger"
)

type fakeDelivery struct {
	acked    bool
	nacked   bool
	requeued bool
}

func (d *fakeDelivery) Ack(multiple bool) error {
	d.acked = true
	return nil
}

func (d *fakeDelivery) Nack(multiple, requeue bool) error {
	d.nacked = true
	d.requeued = requeue
	return nil
}

func TestDecodePurchase(t *testing.T) {
	msg, err := DecodePurchase([]byte(`{"account_id":"a1","amount":50,"payment_ref":"pay_1"}`))
	require.NoError(t, err)
	assert.Equal(t, PurchaseMessage{AccountID: "a1", Amount: 50, PaymentRef: "pay_1"}, msg)

	_, err = DecodePurchase([]byte(`{"account_id":"a1","amount":0,"payment_ref":"pay_1"}`))
	assert.Error(t, err)
	_, err = DecodePurchase([]byte(`{"account_id":"a1","amount":5}`))
	assert.Error(t, err)
	_, err = DecodePurchase([]byte(`not json`))
	assert.Error(t, err)
}

func TestSettle(t *testing.T) {
	log := logger.Component(logger.Discard(), "test")
	transient := errors.New("db down")
	permanent := errors.New("bad account")
	retryable := func(err error) bool { return errors.Is(err, transient) }

	ok := &fakeDelivery{}
	settle(ok, false, nil, retryable, log)
	assert.True(t, ok.acked)

	first := &fakeDelivery{}
	settle(first, false, transient, retryable, log)
	assert.True(t, first.nacked)
	assert.True(t, first.requeued)

	second := &fakeDelivery{}
	settle(second, true, transient, retryable, log)
	assert.True(t, second.nacked)
	assert.False(t, second.requeued)

	perm := &fakeDelivery{}
	settle(perm, false, permanent, retryable, log)
	assert.False(t, perm.requeued)
}
