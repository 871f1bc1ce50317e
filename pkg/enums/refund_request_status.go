package enums

// RefundRequestStatus is the approval state of a customer refund request.
type RefundRequestStatus string

const (
	RefundRequestPending  RefundRequestStatus = "pending"
	RefundRequestAccepted RefundRequestStatus = "accepted"
	RefundRequestRejected RefundRequestStatus = "rejected"
)

var allRefundRequestStatuses = []RefundRequestStatus{RefundRequestPending, RefundRequestAccepted, RefundRequestRejected}

func (r RefundRequestStatus) String() string { return string(r) }

func (r RefundRequestStatus) IsValid() bool { return oneOf(r, allRefundRequestStatuses) }

// ParseRefundRequestStatus accepts the exact lowercase wire value.
func ParseRefundRequestStatus(value string) (RefundRequestStatus, error) {
	return parse(value, "refund request status", allRefundRequestStatuses)
}
