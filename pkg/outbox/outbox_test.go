package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"bizportal/pkg/trace"
)

type fakeStore struct {
	pending []*Event
	failed  []*Event
	sent    []int64
	marked  []int64
}

func (f *fakeStore) GetPendingEvents(ctx context.Context, limit int) ([]*Event, error) {
	return f.pending, nil
}

func (f *fakeStore) GetFailedEvents(ctx context.Context, limit int) ([]*Event, error) {
	return f.failed, nil
}

func (f *fakeStore) GetEventByID(ctx context.Context, eventID int64) (*Event, error) {
	for _, e := range append(f.pending, f.failed...) {
		if e.ID == eventID {
			return e, nil
		}
	}
	return nil, ErrEventNotFound
}

func (f *fakeStore) MarkAsSent(ctx context.Context, eventID int64) error {
	f.sent = append(f.sent, eventID)
	return nil
}

func (f *fakeStore) MarkAsFailed(ctx context.Context, eventID int64, maxRetries int) error {
	f.marked = append(f.marked, eventID)
	return nil
}

type published struct {
	routingKey string
	traceID    string
}

type fakePublisher struct {
	calls   []published
	failKey string
}

func (p *fakePublisher) PublishWithContext(ctx context.Context, routingKey string, payload any) error {
	if routingKey == p.failKey {
		return errors.New("channel closed")
	}
	p.calls = append(p.calls, published{routingKey: routingKey, traceID: trace.FromContext(ctx)})
	return nil
}

func TestDispatcher_ProcessPending(t *testing.T) {
	store := &fakeStore{pending: []*Event{
		{ID: 1, RoutingKey: "lead.created", Payload: json.RawMessage(`{"lead_id":1,"trace_id":"t-1"}`)},
		{ID: 2, RoutingKey: "invoice.sent", Payload: json.RawMessage(`{"invoice_id":9}`)},
		{ID: 3, RoutingKey: "message.sent", Payload: json.RawMessage(`not json`)},
	}}
	pub := &fakePublisher{failKey: "invoice.sent"}

	sent := NewDispatcher(store, pub, zap.NewNop()).ProcessPending(context.Background())

	assert.Equal(t, 1, sent)
	assert.Equal(t, []int64{1}, store.sent)
	assert.ElementsMatch(t, []int64{2, 3}, store.marked)
	require.Len(t, pub.calls, 1)
	assert.Equal(t, "t-1", pub.calls[0].traceID)
}

func TestReplayService_ReplayFailedEvents(t *testing.T) {
	store := &fakeStore{failed: []*Event{
		{ID: 4, RoutingKey: "lead.created", Payload: json.RawMessage(`{}`)},
		{ID: 5, RoutingKey: "contact.created", Payload: json.RawMessage(`{}`)},
	}}
	pub := &fakePublisher{failKey: "contact.created"}

	n, err := NewReplayService(store, pub, zap.NewNop()).ReplayFailedEvents(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []int64{4}, store.sent)
	assert.Equal(t, []int64{5}, store.marked)
}

func TestReplayService_UnknownEvent(t *testing.T) {
	err := NewReplayService(&fakeStore{}, &fakePublisher{}, zap.NewNop()).ReplayEvent(context.Background(), 42)
	assert.ErrorIs(t, err, ErrEventNotFound)
}

func TestNextAttempt(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	status, next := nextAttempt(2, 5, now)
	assert.Equal(t, StatusPending, status)
	require.NotNil(t, next)
	assert.Equal(t, now.Add(10*time.Second), *next)

	status, next = nextAttempt(5, 5, now)
	assert.Equal(t, StatusFailed, status)
	assert.Nil(t, next)
}

func TestEncodePayload_AddsTraceID(t *testing.T) {
	ctx := trace.WithContext(context.Background(), "abc")
	raw, err := encodePayload(ctx, map[string]any{"lead_id": 3})
	require.NoError(t, err)
	assert.JSONEq(t, `{"lead_id":3,"trace_id":"abc"}`, string(raw))

	raw, err = encodePayload(context.Background(), []int{1, 2})
	require.NoError(t, err)
	assert.JSONEq(t, `[1,2]`, string(raw))
}
