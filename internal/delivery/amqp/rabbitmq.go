// Package amqp hands notices to a downstream chat bridge over RabbitMQ.
package amqp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"notice_relay/internal/delivery"
	"notice_relay/internal/domain"
)

type Config struct {
	URL       string
	Exchange  string
	QueueName string
}

// RabbitMQ publishes one message per delivery, routed by destination kind.
type RabbitMQ struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	logger   *slog.Logger
}

func NewRabbitMQ(cfg Config, logger *slog.Logger) (*RabbitMQ, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := declare(ch, cfg); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	logger = logger.With("component", "rabbitmq")
	logger.Info("connected to rabbitmq",
		"exchange", cfg.Exchange,
		"queue", cfg.QueueName,
	)

	return &RabbitMQ{
		conn:     conn,
		channel:  ch,
		exchange: cfg.Exchange,
		logger:   logger,
	}, nil
}

func declare(ch *amqp.Channel, cfg Config) error {
	err := ch.ExchangeDeclare(
		cfg.Exchange,
		"direct",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	q, err := ch.QueueDeclare(
		cfg.QueueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	for _, kind := range []domain.DestinationKind{domain.KindGroupChannel, domain.KindDirectMessage} {
		if err := ch.QueueBind(q.Name, string(kind), cfg.Exchange, false, nil); err != nil {
			return fmt.Errorf("bind queue to %s: %w", kind, err)
		}
	}
	return nil
}

// DeliveryMessage is the body of every published message.
type DeliveryMessage struct {
	DestinationID   string                 `json:"destination_id"`
	DestinationKind domain.DestinationKind `json:"destination_kind"`
	SourceName      string                 `json:"source_name"`
	Notice          domain.Notice          `json:"notice"`
	Timestamp       time.Time              `json:"timestamp"`
}

// Resolve accepts every destination; the bridge owns platform permissions.
func (r *RabbitMQ) Resolve(_ context.Context, dest domain.Destination) (delivery.Target, error) {
	if !dest.Kind.Valid() {
		return delivery.Target{}, fmt.Errorf("resolve %s: %w", dest.ID, domain.ErrInvalidKind)
	}
	return delivery.Target{
		ID:      dest.ID,
		Kind:    dest.Kind,
		Name:    dest.DisplayName,
		CanPost: true,
	}, nil
}

func (r *RabbitMQ) Send(ctx context.Context, target delivery.Target, n domain.Notice, sourceName string) error {
	msg := DeliveryMessage{
		DestinationID:   target.ID,
		DestinationKind: target.Kind,
		SourceName:      sourceName,
		Notice:          n,
		Timestamp:       time.Now().UTC(),
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	err = r.channel.PublishWithContext(
		ctx,
		r.exchange,
		string(target.Kind),
		false,
		false,
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			MessageId:    n.SourceID + ":" + n.Key() + ":" + target.ID,
			Body:         body,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	r.logger.Debug("published delivery",
		"source", n.SourceID,
		"destination", target.ID,
		"kind", target.Kind,
	)

	return nil
}

func (r *RabbitMQ) Close() error {
	if r.channel != nil {
		r.channel.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}
