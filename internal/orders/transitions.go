package orders

import (
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
)

// Action is a lifecycle command applied to an order.
type Action string

const (
	ActionConfirm Action = "confirm"
	ActionProcess Action = "process"
	ActionShip    Action = "ship"
	ActionDeliver Action = "deliver"
	ActionCancel  Action = "cancel"
)

// forwardEdges is the only set of vendor/admin moves along the happy path.
var forwardEdges = map[Action]struct {
	from enums.OrderStatus
	to   enums.OrderStatus
}{
	ActionConfirm: {enums.OrderStatusPending, enums.OrderStatusConfirmed},
	ActionProcess: {enums.OrderStatusConfirmed, enums.OrderStatusProcessing},
	ActionShip:    {enums.OrderStatusProcessing, enums.OrderStatusShipped},
	ActionDeliver: {enums.OrderStatusShipped, enums.OrderStatusDelivered},
}

// timestampColumn names the column stamped when an order enters status.
func timestampColumn(status enums.OrderStatus) string {
	switch status {
	case enums.OrderStatusConfirmed:
		return "confirmed_at"
	case enums.OrderStatusProcessing:
		return "processing_at"
	case enums.OrderStatusShipped:
		return "shipped_at"
	case enums.OrderStatusDelivered:
		return "delivered_at"
	case enums.OrderStatusCancelled:
		return "cancelled_at"
	default:
		return ""
	}
}

// cancellableFrom lists the statuses a role may cancel from.
func cancellableFrom(role enums.Role) []enums.OrderStatus {
	switch role {
	case enums.RoleCustomer:
		return []enums.OrderStatus{enums.OrderStatusPending}
	case enums.RoleVendor, enums.RoleAdmin:
		return []enums.OrderStatus{enums.OrderStatusPending, enums.OrderStatusConfirmed, enums.OrderStatusProcessing}
	default:
		return nil
	}
}

func containsStatus(list []enums.OrderStatus, status enums.OrderStatus) bool {
	for _, s := range list {
		if s == status {
			return true
		}
	}
	return false
}

// CanApply reports whether action is a legal move from status for role.
func CanApply(action Action, role enums.Role, status enums.OrderStatus) bool {
	if action == ActionCancel {
		return containsStatus(cancellableFrom(role), status)
	}
	if role != enums.RoleVendor && role != enums.RoleAdmin {
		return false
	}
	edge, ok := forwardEdges[action]
	return ok && edge.from == status
}
