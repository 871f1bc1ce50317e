package enums

// LedgerEventType classifies append-only money events.
type LedgerEventType string

const (
	LedgerEventPaymentCaptured LedgerEventType = "payment_captured"
	LedgerEventRefundInitiated LedgerEventType = "refund_initiated"
	LedgerEventRefundCompleted LedgerEventType = "refund_completed"
	LedgerEventAdjustment      LedgerEventType = "adjustment"
)

var allLedgerEventTypes = []LedgerEventType{LedgerEventPaymentCaptured, LedgerEventRefundInitiated, LedgerEventRefundCompleted, LedgerEventAdjustment}

func (l LedgerEventType) String() string { return string(l) }

func (l LedgerEventType) IsValid() bool { return oneOf(l, allLedgerEventTypes) }
