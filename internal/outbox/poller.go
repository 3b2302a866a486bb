package outbox

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// EventStore is what the poller needs from storage.
type EventStore interface {
	Unprocessed(ctx context.Context, limit int) ([]*Event, error)
	MarkProcessed(ctx context.Context, id uuid.UUID) error
}

// Publisher is the Kafka-writer seam, narrowed for tests.
type Publisher interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Poller drains unpublished outbox rows to Kafka. Publishing is
// at-least-once: a crash between publish and mark re-sends the event, so
// consumers must tolerate duplicates.
type Poller struct {
	store     EventStore
	writer    Publisher
	logger    *zap.Logger
	tick      time.Duration
	batchSize int
}

func NewPoller(store EventStore, writer Publisher, logger *zap.Logger) *Poller {
	return &Poller{
		store:     store,
		writer:    writer,
		logger:    logger,
		tick:      time.Second,
		batchSize: 100,
	}
}

// NewKafkaWriter builds the writer the poller publishes through.
func NewKafkaWriter(topic string, brokers ...string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
}

func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.processUnpublished(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *Poller) processUnpublished(ctx context.Context) {
	events, err := p.store.Unprocessed(ctx, p.batchSize)
	if err != nil {
		p.logger.Error("failed to fetch outbox events", zap.Error(err))
		return
	}

	for _, event := range events {
		msg := kafka.Message{
			Key:   []byte(event.AggregateID),
			Value: event.Payload,
			Headers: []kafka.Header{
				{Key: "event_type", Value: []byte(event.EventType)},
			},
		}
		if errPublish := p.writer.WriteMessages(ctx, msg); errPublish != nil {
			p.logger.Error("failed to publish outbox event",
				zap.String("event_id", event.ID.String()), zap.Error(errPublish))
			continue
		}

		if errMark := p.store.MarkProcessed(ctx, event.ID); errMark != nil {
			p.logger.Error("failed to mark outbox event processed",
				zap.String("event_id", event.ID.String()), zap.Error(errMark))
		}
	}
}
