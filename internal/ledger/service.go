package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
)

// Service records money movements against orders. Events are immutable once written.
type Service interface {
	RecordEvent(ctx context.Context, tx *gorm.DB, input RecordLedgerEventInput) (*models.LedgerEvent, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.LedgerEvent, error)
	Balance(ctx context.Context, orderID uuid.UUID) (*Balance, error)
}

// RecordLedgerEventInput is one money movement. A nil ActorUserID marks a
// system action such as a webhook or cron job.
type RecordLedgerEventInput struct {
	OrderID     uuid.UUID             `json:"order_id"`
	CustomerID  uuid.UUID             `json:"customer_id"`
	VendorID    uuid.UUID             `json:"vendor_id"`
	ActorUserID uuid.UUID             `json:"actor_user_id"`
	Type        enums.LedgerEventType `json:"type"`
	AmountMinor int64                 `json:"amount_minor"`
	ReferenceID *uuid.UUID            `json:"reference_id,omitempty"`
	Metadata    json.RawMessage       `json:"metadata"`
}

func (in RecordLedgerEventInput) validate() error {
	switch {
	case in.OrderID == uuid.Nil:
		return errors.New("order id is required")
	case in.CustomerID == uuid.Nil:
		return errors.New("customer id is required")
	case in.VendorID == uuid.Nil:
		return errors.New("vendor id is required")
	case !in.Type.IsValid():
		return fmt.Errorf("invalid ledger event type %q", in.Type)
	case in.AmountMinor < 0:
		return errors.New("amount must not be negative")
	}
	return nil
}

// Balance nets an order's ledger: captured money minus completed refunds.
// Refunds still in flight are reported separately.
type Balance struct {
	CapturedMinor  int64 `json:"captured_minor"`
	RefundingMinor int64 `json:"refunding_minor"`
	RefundedMinor  int64 `json:"refunded_minor"`
	NetMinor       int64 `json:"net_minor"`
}

type service struct {
	repo Repository
}

func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, errors.New("ledger repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) RecordEvent(ctx context.Context, tx *gorm.DB, input RecordLedgerEventInput) (*models.LedgerEvent, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	event := &models.LedgerEvent{
		OrderID:     input.OrderID,
		CustomerID:  input.CustomerID,
		VendorID:    input.VendorID,
		ActorUserID: input.ActorUserID,
		Type:        input.Type,
		AmountMinor: input.AmountMinor,
		ReferenceID: input.ReferenceID,
		Metadata:    input.Metadata,
	}
	if err := s.repo.WithTx(tx).Create(ctx, event); err != nil {
		return nil, err
	}
	return event, nil
}

func (s *service) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.LedgerEvent, error) {
	if orderID == uuid.Nil {
		return nil, errors.New("order id is required")
	}
	return s.repo.ListByOrderID(ctx, orderID)
}

func (s *service) Balance(ctx context.Context, orderID uuid.UUID) (*Balance, error) {
	events, err := s.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	var b Balance
	for _, event := range events {
		switch event.Type {
		case enums.LedgerEventPaymentCaptured:
			b.CapturedMinor += event.AmountMinor
		case enums.LedgerEventRefundInitiated:
			b.RefundingMinor += event.AmountMinor
		case enums.LedgerEventRefundCompleted:
			b.RefundingMinor -= event.AmountMinor
			b.RefundedMinor += event.AmountMinor
		}
	}
	if b.RefundingMinor < 0 {
		b.RefundingMinor = 0
	}
	b.NetMinor = b.CapturedMinor - b.RefundedMinor
	return &b, nil
}
