package enums

// RefundStatus follows the money movement of an approved refund.
type RefundStatus string

const (
	RefundStatusInitiated  RefundStatus = "initiated"
	RefundStatusProcessing RefundStatus = "processing"
	RefundStatusCompleted  RefundStatus = "completed"
	RefundStatusFailed     RefundStatus = "failed"
)

var allRefundStatuses = []RefundStatus{RefundStatusInitiated, RefundStatusProcessing, RefundStatusCompleted, RefundStatusFailed}

func (r RefundStatus) String() string { return string(r) }

func (r RefundStatus) IsValid() bool { return oneOf(r, allRefundStatuses) }

// ParseRefundStatus accepts the exact lowercase wire value.
func ParseRefundStatus(value string) (RefundStatus, error) {
	return parse(value, "refund status", allRefundStatuses)
}
