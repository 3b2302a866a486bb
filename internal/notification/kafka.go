package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// Publisher is the Kafka-writer seam, narrowed for tests.
type Publisher interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaSink hands delivery jobs to the mail worker fleet over Kafka instead
// of talking SMTP inline. Job shape is the only contract.
type KafkaSink struct {
	writer Publisher
}

func NewKafkaSink(writer Publisher) *KafkaSink {
	return &KafkaSink{writer: writer}
}

// NewEmailJobWriter builds the writer for the email-jobs topic.
func NewEmailJobWriter(topic string, brokers ...string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
}

type emailJob struct {
	Kind     string    `json:"kind"`
	Email    string    `json:"email,omitempty"`
	UserID   string    `json:"user_id,omitempty"`
	OrderID  string    `json:"order_id,omitempty"`
	ResetURL string    `json:"reset_url,omitempty"`
	QueuedAt time.Time `json:"queued_at"`
}

func (s *KafkaSink) SendPasswordReset(ctx context.Context, email, resetURL string) error {
	return s.publish(ctx, email, emailJob{
		Kind:     "password_reset",
		Email:    email,
		ResetURL: resetURL,
		QueuedAt: time.Now(),
	})
}

func (s *KafkaSink) SendOrderPaid(ctx context.Context, userID, orderID string) error {
	return s.publish(ctx, userID, emailJob{
		Kind:     "order_paid",
		UserID:   userID,
		OrderID:  orderID,
		QueuedAt: time.Now(),
	})
}

func (s *KafkaSink) publish(ctx context.Context, key string, job emailJob) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal email job: %w", err)
	}
	if err := s.writer.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: body}); err != nil {
		return fmt.Errorf("publish email job: %w", err)
	}
	return nil
}
