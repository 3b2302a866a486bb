package outbox

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeStore struct {
	m         sync.Mutex
	events    []*Event
	processed map[uuid.UUID]bool
	fetchErr  error
	markErr   error
}

func newFakeStore(events ...*Event) *fakeStore {
	return &fakeStore{events: events, processed: map[uuid.UUID]bool{}}
}

func (f *fakeStore) Unprocessed(_ context.Context, limit int) ([]*Event, error) {
	f.m.Lock()
	defer f.m.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	var out []*Event
	for _, e := range f.events {
		if !f.processed[e.ID] {
			out = append(out, e)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeStore) MarkProcessed(_ context.Context, id uuid.UUID) error {
	f.m.Lock()
	defer f.m.Unlock()
	if f.markErr != nil {
		return f.markErr
	}
	f.processed[id] = true
	return nil
}

type fakePublisher struct {
	m        sync.Mutex
	messages []kafka.Message
	err      error
}

func (f *fakePublisher) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.m.Lock()
	defer f.m.Unlock()
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, msgs...)
	return nil
}

func testEvent(aggregateID string) *Event {
	return &Event{
		ID:          uuid.New(),
		AggregateID: aggregateID,
		EventType:   EventTypeOrderPaid,
		Payload:     []byte(`{"order_id":"` + aggregateID + `"}`),
	}
}

func TestPoller_PublishesAndMarks(t *testing.T) {
	e1 := testEvent("order-1")
	e2 := testEvent("order-2")
	store := newFakeStore(e1, e2)
	pub := &fakePublisher{}

	sut := NewPoller(store, pub, zap.NewNop())
	sut.processUnpublished(context.Background())

	require.Len(t, pub.messages, 2)
	assert.Equal(t, []byte("order-1"), pub.messages[0].Key)
	assert.Equal(t, "event_type", pub.messages[0].Headers[0].Key)
	assert.Equal(t, []byte(EventTypeOrderPaid), pub.messages[0].Headers[0].Value)
	assert.True(t, store.processed[e1.ID])
	assert.True(t, store.processed[e2.ID])
}

func TestPoller_PublishFailure_LeavesEventUnprocessed(t *testing.T) {
	e1 := testEvent("order-1")
	store := newFakeStore(e1)
	pub := &fakePublisher{err: fmt.Errorf("broker unavailable")}

	sut := NewPoller(store, pub, zap.NewNop())
	sut.processUnpublished(context.Background())

	assert.False(t, store.processed[e1.ID])

	// Next tick after broker recovery delivers it.
	pub.err = nil
	sut.processUnpublished(context.Background())
	require.Len(t, pub.messages, 1)
	assert.True(t, store.processed[e1.ID])
}

func TestPoller_MarkFailure_Redelivers(t *testing.T) {
	e1 := testEvent("order-1")
	store := newFakeStore(e1)
	store.markErr = fmt.Errorf("deadlock")
	pub := &fakePublisher{}

	sut := NewPoller(store, pub, zap.NewNop())
	sut.processUnpublished(context.Background())
	store.markErr = nil
	sut.processUnpublished(context.Background())

	// At-least-once: the event went out twice, consumers must dedupe.
	assert.Len(t, pub.messages, 2)
	assert.True(t, store.processed[e1.ID])
}

func TestPoller_FetchFailure_NoPublish(t *testing.T) {
	store := newFakeStore(testEvent("order-1"))
	store.fetchErr = fmt.Errorf("connection refused")
	pub := &fakePublisher{}

	sut := NewPoller(store, pub, zap.NewNop())
	sut.processUnpublished(context.Background())

	assert.Empty(t, pub.messages)
}

func TestPoller_RespectsBatchSize(t *testing.T) {
	var events []*Event
	for i := 0; i < 150; i++ {
		events = append(events, testEvent(fmt.Sprintf("order-%d", i)))
	}
	store := newFakeStore(events...)
	pub := &fakePublisher{}

	sut := NewPoller(store, pub, zap.NewNop())
	sut.processUnpublished(context.Background())
	assert.Len(t, pub.messages, 100)

	sut.processUnpublished(context.Background())
	assert.Len(t, pub.messages, 150)
}
