package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"ragchat/internal/model"
	"ragchat/pkg/logger"
)

// RoundRecorder writes one consumed round into the audit tables.
type RoundRecorder interface {
	Record(entry model.RoundLogEntry) error
}

// RoundLogWorker consumes round-log entries from RabbitMQ and hands them to
// the recorder. Delivery is at-least-once; the recorder tolerates replays.
type RoundLogWorker struct {
	conn      *amqp.Connection
	recorder  RoundRecorder
	queueName string
	log       *logger.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewRoundLogWorker(conn *amqp.Connection, recorder RoundRecorder, queueName string, log *logger.Logger) *RoundLogWorker {
	return &RoundLogWorker{
		conn:      conn,
		recorder:  recorder,
		queueName: queueName,
		log:       log.Named("round_log_worker"),
	}
}

func (w *RoundLogWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}

	_, err = ch.QueueDeclare(
		w.queueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("declare worker queue failed: %w", err)
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}

				var entry model.RoundLogEntry
				if err := json.Unmarshal(d.Body, &entry); err != nil {
					w.log.Errorw("decode round log entry failed", "error", err)
					_ = d.Nack(false, false)
					continue
				}

				if err := w.recorder.Record(entry); err != nil {
					w.log.Errorw("record round failed",
						"error", err,
						"conversation_id", entry.ConversationID,
					)
					_ = d.Nack(false, false)
					continue
				}

				_ = d.Ack(false)
			}
		}
	}()

	return nil
}

func (w *RoundLogWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
