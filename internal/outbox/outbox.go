package outbox

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const EventTypeOrderPaid = "order.paid"

// Event is a row of the order_events transactional outbox. Rows are written
// in the same database transaction as the state change they describe and
// published to Kafka by the poller afterwards, so an event is never emitted
// for a change that rolled back.
type Event struct {
	ID          uuid.UUID
	AggregateID string // order id, used as the Kafka message key for ordering
	EventType   string
	Payload     json.RawMessage
	CreatedAt   time.Time
}

// Execer is the subset of database/sql shared by *sql.DB and *sql.Tx.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Insert writes an outbox row using the caller's transaction.
func Insert(ctx context.Context, ex Execer, aggregateID, eventType string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal outbox payload: %w", err)
	}

	_, err = ex.ExecContext(ctx,
		`INSERT INTO order_events (id, aggregate_id, event_type, payload, created_at)
		 VALUES ($1, $2, $3, $4, NOW())`,
		uuid.New(), aggregateID, eventType, body)
	if err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}
	return nil
}

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Unprocessed(ctx context.Context, limit int) ([]*Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, aggregate_id, event_type, payload, created_at
		 FROM order_events
		 WHERE processed_at IS NULL
		 ORDER BY created_at
		 LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query unprocessed events: %w", err)
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		e := &Event{}
		if err := rows.Scan(&e.ID, &e.AggregateID, &e.EventType, &e.Payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return events, nil
}

func (s *Store) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE order_events SET processed_at = NOW() WHERE id = $1 AND processed_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("mark event processed: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark event processed rows affected: %w", err)
	}
	if affected == 0 {
		return errors.New("event already processed or unknown")
	}
	return nil
}
