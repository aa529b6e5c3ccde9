package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"ragchat/internal/model"
)

// RoundLogPublisher sends completed chat rounds to the audit queue. The
// worker picks them up and writes the log tables.
type RoundLogPublisher struct {
	conn      *amqp.Connection
	queueName string
}

func NewRoundLogPublisher(conn *amqp.Connection, queueName string) *RoundLogPublisher {
	return &RoundLogPublisher{
		conn:      conn,
		queueName: queueName,
	}
}

func (p *RoundLogPublisher) Publish(ctx context.Context, entry model.RoundLogEntry) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("open rabbitmq channel failed: %w", err)
	}
	defer ch.Close()

	_, err = ch.QueueDeclare(
		p.queueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare queue failed: %w", err)
	}

	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal round log payload failed: %w", err)
	}

	if err := ch.PublishWithContext(
		ctx,
		"",
		p.queueName,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         payload,
			DeliveryMode: amqp.Persistent,
		},
	); err != nil {
		return fmt.Errorf("publish round log failed: %w", err)
	}
	return nil
}
