package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// OrderPaidEvent mirrors the outbox payload published on payment completion.
type OrderPaidEvent struct {
	OrderID string `json:"order_id"`
	UserID  string `json:"user_id"`
}

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Worker consumes order.paid events and turns each into a confirmation
// notification. Delivery is at-least-once; duplicate events only mean a
// duplicate email, never corrupted state.
type Worker struct {
	reader      messageReader
	sink        Sink
	logger      *zap.Logger
	readBackoff time.Duration
}

func NewWorker(sink Sink, logger *zap.Logger, topic string, brokers ...string) *Worker {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  "notification-worker",
		MaxBytes: 10e6, // 10MB
	})
	return &Worker{reader: reader, sink: sink, logger: logger, readBackoff: time.Second}
}

func (w *Worker) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		if err := w.processMessage(ctx); err != nil {
			// An unreachable broker or a closed reader fails every read
			// immediately; pause instead of spinning on the same error.
			select {
			case <-ctx.Done():
				return
			case <-time.After(w.readBackoff):
			}
		}
	}
}

func (w *Worker) Close() {
	if err := w.reader.Close(); err != nil {
		w.logger.Error("failed to close kafka reader", zap.Error(err))
	}
}

func (w *Worker) processMessage(ctx context.Context) error {
	m, err := w.reader.ReadMessage(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		w.logger.Error("failed to read order event", zap.Error(err))
		return err
	}

	if err := w.handle(ctx, m.Value); err != nil {
		w.logger.Error("failed to handle order event", zap.Error(err))
	}
	return nil
}

func (w *Worker) handle(ctx context.Context, payload []byte) error {
	var event OrderPaidEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("parse order event: %w", err)
	}
	if event.OrderID == "" || event.UserID == "" {
		return fmt.Errorf("order event missing order_id or user_id")
	}

	if err := w.sink.SendOrderPaid(ctx, event.UserID, event.OrderID); err != nil {
		return fmt.Errorf("send order paid notification: %w", err)
	}

	w.logger.Info("order paid notification queued",
		zap.String("order_id", event.OrderID), zap.String("user_id", event.UserID))
	return nil
}
