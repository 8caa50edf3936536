package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	OrderCreated       = "OrderCreated"
	OrderItemAdded     = "OrderItemAdded"
	OrderStatusChanged = "OrderStatusChanged"
	OrderUpdated       = "OrderUpdated"
	OrderDeleted       = "OrderDeleted"
)

const EnvelopeVersion = 1

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// NewEnvelope wraps payload for an event about the aggregate identified by correlationID.
func NewEnvelope(eventType, producer, correlationID string, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s payload: %w", eventType, err)
	}
	return Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  EnvelopeVersion,
		OccurredAt:    time.Now().UTC(),
		Producer:      producer,
		CorrelationID: correlationID,
		Payload:       raw,
	}, nil
}

// UnwrapPayload decodes the payload of env into T.
func UnwrapPayload[T any](env Envelope) (T, error) {
	var out T
	if err := json.Unmarshal(env.Payload, &out); err != nil {
		return out, fmt.Errorf("decode %s payload: %w", env.EventType, err)
	}
	return out, nil
}

type Publisher interface {
	Publish(ctx context.Context, env Envelope) error
}

type Noop struct{}

func (Noop) Publish(context.Context, Envelope) error { return nil }

type OrderItemPayload struct {
	BookID    string `json:"book_id"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
}

type OrderPayload struct {
	OrderID    string             `json:"order_id"`
	CustomerID string             `json:"customer_id"`
	Status     string             `json:"status"`
	Total      string             `json:"total"`
	Items      []OrderItemPayload `json:"items,omitempty"`
}

type OrderStatusChangedPayload struct {
	OrderID string `json:"order_id"`
	From    string `json:"from"`
	To      string `json:"to"`
}

type OrderDeletedPayload struct {
	OrderID       string `json:"order_id"`
	Status        string `json:"status"`
	StockRestored bool   `json:"stock_restored"`
}
