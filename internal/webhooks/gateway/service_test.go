package gatewaywebhook

import (
	"context"
	"testing"

	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
)

type stubPayments struct {
	captured []string
	failed   []string
	lastCode *string
	err      error
}

func (s *stubPayments) CaptureFromGateway(_ context.Context, gatewayOrderID, gatewayPaymentID string) (*models.Payment, error) {
	s.captured = append(s.captured, gatewayOrderID+"/"+gatewayPaymentID)
	return &models.Payment{}, s.err
}

func (s *stubPayments) FailFromGateway(_ context.Context, gatewayOrderID string, code *string, reason string) (*models.Payment, error) {
	s.failed = append(s.failed, gatewayOrderID+"/"+reason)
	s.lastCode = code
	return &models.Payment{}, s.err
}

type stubRefunds struct {
	completed []string
	failed    []string
}

func (s *stubRefunds) CompleteFromGateway(_ context.Context, gatewayRefundID string) (*models.Refund, error) {
	s.completed = append(s.completed, gatewayRefundID)
	return &models.Refund{}, nil
}

func (s *stubRefunds) FailFromGateway(_ context.Context, gatewayRefundID, _ string) (*models.Refund, error) {
	s.failed = append(s.failed, gatewayRefundID)
	return &models.Refund{}, nil
}

func newTestService(t *testing.T) (*Service, *stubPayments, *stubRefunds) {
	t.Helper()
	payments := &stubPayments{}
	refunds := &stubRefunds{}
	svc, err := NewService(ServiceParams{Payments: payments, Refunds: refunds})
	if err != nil {
		t.Fatalf("setup service: %v", err)
	}
	return svc, payments, refunds
}

func TestHandleEventPaymentCaptured(t *testing.T) {
	svc, payments, _ := newTestService(t)
	event, err := ParseEvent([]byte(`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_1","order_id":"order_1","status":"captured","amount":120000}}}}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(payments.captured) != 1 || payments.captured[0] != "order_1/pay_1" {
		t.Fatalf("unexpected captures %v", payments.captured)
	}
}

func TestHandleEventPaymentFailedPassesCode(t *testing.T) {
	svc, payments, _ := newTestService(t)
	event, err := ParseEvent([]byte(`{"event":"payment.failed","payload":{"payment":{"entity":{"id":"pay_2","order_id":"order_2","error_code":"BAD_REQUEST_ERROR","error_description":"card declined"}}}}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(payments.failed) != 1 || payments.failed[0] != "order_2/card declined" {
		t.Fatalf("unexpected failures %v", payments.failed)
	}
	if payments.lastCode == nil || *payments.lastCode != "BAD_REQUEST_ERROR" {
		t.Fatalf("expected error code forwarded")
	}
}

func TestHandleEventRefunds(t *testing.T) {
	svc, _, refunds := newTestService(t)
	for _, body := range []string{
		`{"event":"refund.processed","payload":{"refund":{"entity":{"id":"rfnd_1","payment_id":"pay_1","status":"processed"}}}}`,
		`{"event":"refund.failed","payload":{"refund":{"entity":{"id":"rfnd_2","payment_id":"pay_1","status":"failed"}}}}`,
	} {
		event, err := ParseEvent([]byte(body))
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		if err := svc.HandleEvent(context.Background(), event); err != nil {
			t.Fatalf("handle: %v", err)
		}
	}
	if len(refunds.completed) != 1 || refunds.completed[0] != "rfnd_1" {
		t.Fatalf("unexpected completions %v", refunds.completed)
	}
	if len(refunds.failed) != 1 || refunds.failed[0] != "rfnd_2" {
		t.Fatalf("unexpected failures %v", refunds.failed)
	}
}

func TestHandleEventIgnoresUnknownAndRejectsMissingEntity(t *testing.T) {
	svc, payments, _ := newTestService(t)
	if err := svc.HandleEvent(context.Background(), &Event{Event: "order.paid"}); err != nil {
		t.Fatalf("unknown events should be ignored: %v", err)
	}
	err := svc.HandleEvent(context.Background(), &Event{Event: EventPaymentCaptured})
	if pkgerrors.CodeOf(err) != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(payments.captured) != 0 {
		t.Fatalf("payments should be untouched")
	}
}

func TestParseEventRejectsGarbage(t *testing.T) {
	if _, err := ParseEvent([]byte("not json")); pkgerrors.CodeOf(err) != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := ParseEvent([]byte(`{"payload":{}}`)); pkgerrors.CodeOf(err) != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for missing event, got %v", err)
	}
}
