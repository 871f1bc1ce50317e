package enums

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusSuccess  PaymentStatus = "success"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

var allPaymentStatuses = []PaymentStatus{PaymentStatusPending, PaymentStatusSuccess, PaymentStatusFailed, PaymentStatusRefunded}

func (p PaymentStatus) String() string { return string(p) }

func (p PaymentStatus) IsValid() bool { return oneOf(p, allPaymentStatuses) }

// ParsePaymentStatus accepts the exact lowercase wire value.
func ParsePaymentStatus(value string) (PaymentStatus, error) {
	return parse(value, "payment status", allPaymentStatuses)
}
