package outbox

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"

	"bizportal/pkg/trace"
)

// InsertEventInTx marshals payload and stores it as a pending event inside tx.
// The trace id from ctx is copied into the payload so the dispatcher can
// propagate it to consumers.
func InsertEventInTx(
	ctx context.Context,
	tx pgx.Tx,
	repo *Repository,
	aggregateType string,
	aggregateID *int64,
	routingKey string,
	payload any,
) error {
	payloadJSON, err := encodePayload(ctx, payload)
	if err != nil {
		return err
	}

	event := &Event{
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		RoutingKey:    routingKey,
		Payload:       payloadJSON,
		Status:        StatusPending,
	}

	return repo.InsertEvent(ctx, tx, event)
}

func encodePayload(ctx context.Context, payload any) (json.RawMessage, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	traceID := trace.FromContext(ctx)
	if traceID == "" {
		return raw, nil
	}

	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		// not an object, nothing to annotate
		return raw, nil
	}
	if _, ok := fields["trace_id"]; !ok {
		fields["trace_id"] = traceID
	}
	return json.Marshal(fields)
}

// traceFromPayload restores the trace id stored in an event payload.
func traceFromPayload(ctx context.Context, payload json.RawMessage) context.Context {
	var fields struct {
		TraceID string `json:"trace_id"`
	}
	if err := json.Unmarshal(payload, &fields); err != nil {
		return ctx
	}
	if fields.TraceID != "" {
		ctx = trace.WithContext(ctx, fields.TraceID)
	}
	return ctx
}
