package enums

// OrderStatus tracks an order through fulfillment.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

var allOrderStatuses = []OrderStatus{OrderStatusPending, OrderStatusConfirmed, OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled}

func (o OrderStatus) String() string { return string(o) }

func (o OrderStatus) IsValid() bool { return oneOf(o, allOrderStatuses) }

// ParseOrderStatus accepts the exact lowercase wire value.
func ParseOrderStatus(value string) (OrderStatus, error) {
	return parse(value, "order status", allOrderStatuses)
}
