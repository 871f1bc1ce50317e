package enums

// OrderPaymentStatus mirrors the money state on the order row.
type OrderPaymentStatus string

const (
	OrderPaymentPending  OrderPaymentStatus = "pending"
	OrderPaymentPaid     OrderPaymentStatus = "paid"
	OrderPaymentFailed   OrderPaymentStatus = "failed"
	OrderPaymentRefunded OrderPaymentStatus = "refunded"
)

var allOrderPaymentStatuses = []OrderPaymentStatus{OrderPaymentPending, OrderPaymentPaid, OrderPaymentFailed, OrderPaymentRefunded}

func (o OrderPaymentStatus) String() string { return string(o) }

func (o OrderPaymentStatus) IsValid() bool { return oneOf(o, allOrderPaymentStatuses) }

// ParseOrderPaymentStatus accepts the exact lowercase wire value.
func ParseOrderPaymentStatus(value string) (OrderPaymentStatus, error) {
	return parse(value, "order payment status", allOrderPaymentStatuses)
}
