package queue

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/unclebandit/collabhub-backend/internal/logger"
)

// Topics published after a command commits.
const (
	TopicCampaignCreated       = "campaign.created"
	TopicCampaignStatusChanged = "campaign.status_changed"
	TopicCampaignDeleted       = "campaign.deleted"
	TopicApplicationSubmitted  = "application.submitted"
	TopicApplicationDecided    = "application.decided"
	TopicContactUnlocked       = "application.contact_unlocked"
	TopicTokensCredited        = "tokens.credited"
)

// AllTopics lists every topic the services publish.
var AllTopics = []string{
	TopicCampaignCreated,
	TopicCampaignStatusChanged,
	TopicCampaignDeleted,
	TopicApplicationSubmitted,
	TopicApplicationDecided,
	TopicContactUnlocked,
	TopicTokensCredited,
}

type Event struct {
	ID         string         `json:"id"`
	Topic      string         `json:"topic"`
	ActorID    string         `json:"actor_id,omitempty"`
	EntityID   string         `json:"entity_id"`
	Attributes map[string]any `json:"attributes,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

func NewEvent(topic, actorID, entityID string, attrs map[string]any) Event {
	return Event{
		ID:         uuid.NewString(),
		Topic:      topic,
		ActorID:    actorID,
		EntityID:   entityID,
		Attributes: attrs,
		OccurredAt: time.Now().UTC(),
	}
}

// LogEvents subscribes an audit logger to every topic.
func LogEvents(q Queue, log logrus.FieldLogger) error {
	entry := logger.Component(log, "events")
	for _, topic := range AllTopics {
		if err := q.Subscribe(topic, func(payload any) error {
			ev, ok := payload.(Event)
			if !ok {
				return fmt.Errorf("unexpected payload %T", payload)
			}
			entry.WithFields(logrus.Fields{
				"event_id":  ev.ID,
				"topic":     ev.Topic,
				"actor_id":  ev.ActorID,
				"entity_id": ev.EntityID,
			}).Info("domain event")
			return nil
		}); err != nil {
			return err
		}
	}
	return nil
}
