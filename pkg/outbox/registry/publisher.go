// Package registry maps outbox event types onto their topic and typed payload
// so the publisher can validate a row before it leaves the database.
package registry

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/bazaar-backend/pkg/config"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	"github.com/angelmondragon/bazaar-backend/pkg/outbox"
	"github.com/angelmondragon/bazaar-backend/pkg/outbox/payloads"
)

type EventDescriptor struct {
	EventType      enums.OutboxEventType
	AggregateType  enums.OutboxAggregateType
	Topic          string
	PayloadFactory func() any
}

// ResolvedEvent is a row that passed validation, with its payload decoded.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    any
}

type EventRegistry struct {
	entries map[enums.OutboxEventType]EventDescriptor
}

// NonRetryableError marks a failure that will not go away on retry; the
// publisher dead-letters the row straight away.
type NonRetryableError struct {
	Err error
}

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error { return e.Err }

func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}

func factory[T any]() func() any {
	return func() any { return new(T) }
}

// commerceEvents lists every event the services emit, keyed by type.
var commerceEvents = map[enums.OutboxEventType]struct {
	aggregate enums.OutboxAggregateType
	payload   func() any
}{
	enums.EventOrderCreated:         {enums.AggregateOrder, factory[payloads.OrderCreatedEvent]()},
	enums.EventOrderStatusChanged:   {enums.AggregateOrder, factory[payloads.OrderStatusChangedEvent]()},
	enums.EventOrderCancelled:       {enums.AggregateOrder, factory[payloads.OrderCancelledEvent]()},
	enums.EventOrderExpired:         {enums.AggregateOrder, factory[payloads.OrderExpiredEvent]()},
	enums.EventPaymentInitiated:     {enums.AggregatePayment, factory[payloads.PaymentInitiatedEvent]()},
	enums.EventPaymentCaptured:      {enums.AggregatePayment, factory[payloads.PaymentCapturedEvent]()},
	enums.EventPaymentFailed:        {enums.AggregatePayment, factory[payloads.PaymentFailedEvent]()},
	enums.EventRefundRequested:      {enums.AggregateRefundRequest, factory[payloads.RefundRequestedEvent]()},
	enums.EventRefundRequestDecided: {enums.AggregateRefundRequest, factory[payloads.RefundRequestDecidedEvent]()},
	enums.EventRefundInitiated:      {enums.AggregateRefund, factory[payloads.RefundEvent]()},
	enums.EventRefundCompleted:      {enums.AggregateRefund, factory[payloads.RefundEvent]()},
	enums.EventRefundFailed:         {enums.AggregateRefund, factory[payloads.RefundEvent]()},
}

// NewEventRegistry routes every commerce event to the configured topic.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	if cfg.CommerceTopic == "" {
		return nil, fmt.Errorf("commerce topic is required")
	}
	reg := &EventRegistry{entries: make(map[enums.OutboxEventType]EventDescriptor, len(commerceEvents))}
	for eventType, spec := range commerceEvents {
		reg.entries[eventType] = EventDescriptor{
			EventType:      eventType,
			AggregateType:  spec.aggregate,
			Topic:          cfg.CommerceTopic,
			PayloadFactory: spec.payload,
		}
	}
	return reg, nil
}

// Resolve checks the row against its descriptor and decodes the payload.
// Every failure here is permanent.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.entries[event.EventType]
	switch {
	case !ok:
		return nil, NewNonRetryableError(fmt.Errorf("unsupported event type %s", event.EventType))
	case desc.AggregateType != event.AggregateType:
		return nil, NewNonRetryableError(fmt.Errorf("aggregate mismatch: expected %s got %s", desc.AggregateType, event.AggregateType))
	case event.AggregateID == uuid.Nil:
		return nil, NewNonRetryableError(errors.New("missing aggregate_id"))
	}

	envelope, err := outbox.DecodeEnvelope(event.Payload)
	if err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("%s: %w", event.EventType, err))
	}
	payload := desc.PayloadFactory()
	if err := json.Unmarshal(envelope.Data, payload); err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode %s payload: %w", event.EventType, err))
	}
	return &ResolvedEvent{Descriptor: desc, Envelope: envelope, Payload: payload}, nil
}
