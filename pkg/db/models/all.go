package models

// All lists every model for AutoMigrate in sqlite-backed tests and dev mode.
func All() []any {
	return []any{
		&Product{},
		&Coupon{},
		&CartItem{},
		&Order{},
		&OrderLineItem{},
		&Payment{},
		&RefundRequest{},
		&Refund{},
		&LedgerEvent{},
		&OutboxEvent{},
		&OutboxDLQ{},
	}
}
