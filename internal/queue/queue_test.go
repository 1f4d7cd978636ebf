package queue

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unclebandit/collabhub-backend/internal/logger"
)

func newTestQueue() *InMemoryQueue {
	q := NewInMemoryQueue(logger.Discard())
	q.Backoff = time.Millisecond
	return q
}

func TestPublishWithoutSubscribers(t *testing.T) {
	q := newTestQueue()
	assert.Error(t, q.Publish(TopicApplicationSubmitted, "x"))
}

func TestPublishDeliversToEverySubscriber(t *testing.T) {
	q := newTestQueue()
	var calls int32
	for i := 0; i < 2; i++ {
		require.NoError(t, q.Subscribe(TopicCampaignCreated, func(payload any) error {
			ev := payload.(Event)
			assert.Equal(t, "c1", ev.EntityID)
			atomic.AddInt32(&calls, 1)
			return nil
		}))
	}

	require.NoError(t, q.Publish(TopicCampaignCreated, NewEvent(TopicCampaignCreated, "sp1", "c1", nil)))
	q.Wait()
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestFailedJobIsRetried(t *testing.T) {
	q := newTestQueue()
	var attempts int32
	require.NoError(t, q.Subscribe("t", func(payload any) error {
		if atomic.AddInt32(&attempts, 1) < 3 {
			return errors.New("transient")
		}
		return nil
	}))

	require.NoError(t, q.Publish("t", 1))
	q.Wait()
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}

func TestJobGivesUpAfterMaxRetries(t *testing.T) {
	q := newTestQueue()
	q.MaxRetries = 2
	var attempts int32
	require.NoError(t, q.Subscribe("t", func(payload any) error {
		atomic.AddInt32(&attempts, 1)
		return errors.New("always")
	}))

	require.NoError(t, q.Publish("t", 1))
	q.Wait()
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}

func TestLogEventsAuditsEveryTopic(t *testing.T) {
	log, hook := logtest.NewNullLogger()
	q := NewInMemoryQueue(log)
	require.NoError(t, LogEvents(q, log))

	for _, topic := range AllTopics {
		require.NoError(t, q.Publish(topic, NewEvent(topic, "actor", "entity", nil)))
	}
	q.Wait()

	audited := 0
	for _, entry := range hook.AllEntries() {
		if entry.Message == "domain event" {
			audited++
		}
	}
	assert.Equal(t, len(AllTopics), audited)
}
