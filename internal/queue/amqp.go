package queue

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/streadway/amqp"

	"github.com/unclebandit/collabhub-backend/internal/logger"
)

// AMQPPublisher relays events to a topic exchange, routed by event topic.
type AMQPPublisher struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
	log      *logrus.Entry
}

func DialPublisher(url, exchange string, log logrus.FieldLogger) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	err = ch.ExchangeDeclare(
		exchange, // name
		"topic",  // kind
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	return &AMQPPublisher{conn: conn, ch: ch, exchange: exchange, log: logger.Component(log, "amqp")}, nil
}

func (p *AMQPPublisher) Publish(topic string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	return p.ch.Publish(p.exchange, topic, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
}

// Forward subscribes p to every topic on q so in-process events also reach the broker.
func (p *AMQPPublisher) Forward(q Queue, topics ...string) error {
	for _, topic := range topics {
		topic := topic
		if err := q.Subscribe(topic, func(payload any) error {
			return p.Publish(topic, payload)
		}); err != nil {
			return err
		}
	}
	return nil
}

func (p *AMQPPublisher) Close() error {
	if err := p.ch.Close(); err != nil {
		p.log.WithError(err).Warn("close channel")
	}
	return p.conn.Close()
}

// PurchaseMessage is a payment confirmation from the gateway.
type PurchaseMessage struct {
	AccountID  string `json:"account_id"`
	Amount     int64  `json:"amount"`
	PaymentRef string `json:"payment_ref"`
}

// PurchaseJob carries a decoded confirmation to the worker. Done must be
// called exactly once with the processing result.
type PurchaseJob struct {
	PurchaseMessage
	Done func(err error)
}

func DecodePurchase(body []byte) (PurchaseMessage, error) {
	var msg PurchaseMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return msg, fmt.Errorf("invalid purchase message: %w", err)
	}
	if strings.TrimSpace(msg.AccountID) == "" || strings.TrimSpace(msg.PaymentRef) == "" || msg.Amount <= 0 {
		return msg, fmt.Errorf("invalid purchase message: account_id, payment_ref and a positive amount are required")
	}
	return msg, nil
}

type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

// Retryable reports whether a failed job should go back to the broker.
type Retryable func(err error) bool

// settle acks successes and permanent failures. A retryable failure is
// requeued once; a second failure of a redelivered message is dropped.
func settle(d acknowledger, redelivered bool, err error, retryable Retryable, log *logrus.Entry) {
	switch {
	case err == nil:
		_ = d.Ack(false)
	case retryable != nil && retryable(err) && !redelivered:
		log.WithError(err).Warn("purchase failed, requeueing")
		_ = d.Nack(false, true)
	default:
		log.WithError(err).Error("purchase dropped")
		_ = d.Nack(false, false)
	}
}

// PurchaseConsumer reads payment confirmations from a durable queue.
type PurchaseConsumer struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
	log   *logrus.Entry
}

func DialPurchaseConsumer(url, queueName string, log logrus.FieldLogger) (*PurchaseConsumer, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	q, err := ch.QueueDeclare(
		queueName, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare queue %s: %w", queueName, err)
	}
	if err := ch.Qos(16, 0, false); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("set qos: %w", err)
	}
	return &PurchaseConsumer{conn: conn, ch: ch, queue: q.Name, log: logger.Component(log, "purchase-consumer")}, nil
}

// Run decodes deliveries into jobs until the broker closes the channel.
func (c *PurchaseConsumer) Run(jobs chan<- PurchaseJob, retryable Retryable) error {
	msgs, err := c.ch.Consume(
		c.queue,
		"",
		false, // autoAck = false for reliability
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("register consumer: %w", err)
	}

	for d := range msgs {
		d := d
		msg, err := DecodePurchase(d.Body)
		if err != nil {
			c.log.WithError(err).Warn("discarding malformed purchase")
			_ = d.Ack(false)
			continue
		}
		jobs <- PurchaseJob{
			PurchaseMessage: msg,
			Done: func(err error) {
				settle(&d, d.Redelivered, err, retryable, c.log.WithField("payment_ref", msg.PaymentRef))
			},
		}
	}
	return nil
}

func (c *PurchaseConsumer) Close() error {
	if err := c.ch.Close(); err != nil {
		c.log.WithError(err).Warn("close channel")
	}
	return c.conn.Close()
}
