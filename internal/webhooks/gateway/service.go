package gatewaywebhook

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
)

// Event names delivered by the gateway that the service acts on.
const (
	EventPaymentCaptured = "payment.captured"
	EventPaymentFailed   = "payment.failed"
	EventRefundProcessed = "refund.processed"
	EventRefundFailed    = "refund.failed"
)

// Event is the webhook envelope. Only the entities the service reads are decoded.
type Event struct {
	Event     string       `json:"event"`
	AccountID string       `json:"account_id,omitempty"`
	CreatedAt int64        `json:"created_at"`
	Payload   EventPayload `json:"payload"`
}

type EventPayload struct {
	Payment *struct {
		Entity PaymentEntity `json:"entity"`
	} `json:"payment,omitempty"`
	Refund *struct {
		Entity RefundEntity `json:"entity"`
	} `json:"refund,omitempty"`
}

type PaymentEntity struct {
	ID               string `json:"id"`
	OrderID          string `json:"order_id"`
	Status           string `json:"status"`
	AmountMinor      int64  `json:"amount"`
	ErrorCode        string `json:"error_code,omitempty"`
	ErrorDescription string `json:"error_description,omitempty"`
}

type RefundEntity struct {
	ID          string `json:"id"`
	PaymentID   string `json:"payment_id"`
	AmountMinor int64  `json:"amount"`
	Status      string `json:"status"`
}

// ParseEvent decodes a verified webhook body.
func ParseEvent(body []byte) (*Event, error) {
	var event Event
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid webhook payload")
	}
	if strings.TrimSpace(event.Event) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "webhook event name missing")
	}
	return &event, nil
}

type paymentHandler interface {
	CaptureFromGateway(ctx context.Context, gatewayOrderID, gatewayPaymentID string) (*models.Payment, error)
	FailFromGateway(ctx context.Context, gatewayOrderID string, code *string, reason string) (*models.Payment, error)
}

type refundHandler interface {
	CompleteFromGateway(ctx context.Context, gatewayRefundID string) (*models.Refund, error)
	FailFromGateway(ctx context.Context, gatewayRefundID, reason string) (*models.Refund, error)
}

type ServiceParams struct {
	Payments paymentHandler
	Refunds  refundHandler
	Logger   *logger.Logger
}

// Service applies gateway notifications to payments and refunds. Callers
// must verify the signature before handing an event over.
type Service struct {
	payments paymentHandler
	refunds  refundHandler
	logg     *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Payments == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payments handler required")
	}
	if params.Refunds == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "refunds handler required")
	}
	return &Service{
		payments: params.Payments,
		refunds:  params.Refunds,
		logg:     params.Logger,
	}, nil
}

func (s *Service) HandleEvent(ctx context.Context, event *Event) error {
	if event == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "webhook event required")
	}

	switch event.Event {
	case EventPaymentCaptured:
		payment, err := paymentEntity(event)
		if err != nil {
			return err
		}
		_, err = s.payments.CaptureFromGateway(ctx, payment.OrderID, payment.ID)
		return err
	case EventPaymentFailed:
		payment, err := paymentEntity(event)
		if err != nil {
			return err
		}
		var code *string
		if payment.ErrorCode != "" {
			code = &payment.ErrorCode
		}
		_, err = s.payments.FailFromGateway(ctx, payment.OrderID, code, payment.ErrorDescription)
		return err
	case EventRefundProcessed:
		refund, err := refundEntity(event)
		if err != nil {
			return err
		}
		_, err = s.refunds.CompleteFromGateway(ctx, refund.ID)
		return err
	case EventRefundFailed:
		refund, err := refundEntity(event)
		if err != nil {
			return err
		}
		_, err = s.refunds.FailFromGateway(ctx, refund.ID, "refund failed at gateway")
		return err
	default:
		if s.logg != nil {
			s.logg.Debug(s.logg.WithField(ctx, "gateway_event", event.Event), "gateway_webhook.ignored")
		}
		return nil
	}
}

func paymentEntity(event *Event) (*PaymentEntity, error) {
	if event.Payload.Payment == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment entity missing")
	}
	entity := event.Payload.Payment.Entity
	if entity.ID == "" || entity.OrderID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment entity requires id and order_id")
	}
	return &entity, nil
}

func refundEntity(event *Event) (*RefundEntity, error) {
	if event.Payload.Refund == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund entity missing")
	}
	entity := event.Payload.Refund.Entity
	if entity.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund entity requires id")
	}
	return &entity, nil
}
