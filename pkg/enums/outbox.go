package enums

// OutboxAggregateType names the entity an outbox event describes.
type OutboxAggregateType string

const (
	AggregateOrder         OutboxAggregateType = "order"
	AggregatePayment       OutboxAggregateType = "payment"
	AggregateRefundRequest OutboxAggregateType = "refund_request"
	AggregateRefund        OutboxAggregateType = "refund"
)

var allAggregateTypes = []OutboxAggregateType{AggregateOrder, AggregatePayment, AggregateRefundRequest, AggregateRefund}

func (a OutboxAggregateType) IsValid() bool { return oneOf(a, allAggregateTypes) }

// OutboxEventType is written to outbox_events.event_type and becomes the
// "event_type" attribute on the published message.
type OutboxEventType string

const (
	EventOrderCreated         OutboxEventType = "order_created"
	EventOrderStatusChanged   OutboxEventType = "order_status_changed"
	EventOrderCancelled       OutboxEventType = "order_cancelled"
	EventOrderExpired         OutboxEventType = "order_expired"
	EventPaymentInitiated     OutboxEventType = "payment_initiated"
	EventPaymentCaptured      OutboxEventType = "payment_captured"
	EventPaymentFailed        OutboxEventType = "payment_failed"
	EventRefundRequested      OutboxEventType = "refund_requested"
	EventRefundRequestDecided OutboxEventType = "refund_request_decided"
	EventRefundInitiated      OutboxEventType = "refund_initiated"
	EventRefundCompleted      OutboxEventType = "refund_completed"
	EventRefundFailed         OutboxEventType = "refund_failed"
)

var allOutboxEventTypes = []OutboxEventType{
	EventOrderCreated, EventOrderStatusChanged, EventOrderCancelled, EventOrderExpired,
	EventPaymentInitiated, EventPaymentCaptured, EventPaymentFailed,
	EventRefundRequested, EventRefundRequestDecided, EventRefundInitiated, EventRefundCompleted, EventRefundFailed,
}

func (e OutboxEventType) IsValid() bool { return oneOf(e, allOutboxEventTypes) }

// OutboxDLQErrorReason records why the publisher parked an event.
type OutboxDLQErrorReason string

const (
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)

var allOutboxDLQErrorReasons = []OutboxDLQErrorReason{OutboxDLQReasonMaxAttempts, OutboxDLQReasonNonRetryable}

func (r OutboxDLQErrorReason) IsValid() bool { return oneOf(r, allOutboxDLQErrorReasons) }

func ParseOutboxDLQErrorReason(value string) (OutboxDLQErrorReason, error) {
	return parse(value, "dead letter reason", allOutboxDLQErrorReasons)
}
