package refunds

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/internal/ledger"
	"github.com/angelmondragon/bazaar-backend/pkg/auth"
	"github.com/angelmondragon/bazaar-backend/pkg/db"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/gateway"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
	"github.com/angelmondragon/bazaar-backend/pkg/metrics"
	"github.com/angelmondragon/bazaar-backend/pkg/outbox"
	"github.com/angelmondragon/bazaar-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/bazaar-backend/pkg/pagination"
)

const maxNotesLength = 1000

// Gateway is the refund half of the payment gateway client.
type Gateway interface {
	CreateRefund(ctx context.Context, req gateway.CreateRefundRequest) (*gateway.Refund, error)
	FetchRefund(ctx context.Context, paymentID, refundID string) (*gateway.Refund, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type orderLoader interface {
	Load(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Order, error)
}

type paymentHooks interface {
	FindCaptured(ctx context.Context, tx *gorm.DB, customerID uuid.UUID, gatewayPaymentID string) (*models.Payment, error)
	MarkRefunded(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

// Service runs the refund workflow: request, decision, settlement.
type Service interface {
	Request(ctx context.Context, principal auth.Principal, input RequestInput) (*models.RefundRequest, error)
	Approve(ctx context.Context, principal auth.Principal, id uuid.UUID, adminNotes *string) (*models.RefundRequest, error)
	Reject(ctx context.Context, principal auth.Principal, id uuid.UUID, reason string, adminNotes *string) (*models.RefundRequest, error)
	GetRequest(ctx context.Context, principal auth.Principal, id uuid.UUID) (*models.RefundRequest, error)
	ListRequests(ctx context.Context, principal auth.Principal, filters RequestFilters, params pagination.Params) (*RequestList, error)

	Initiate(ctx context.Context, principal auth.Principal, input InitiateInput) (*models.Refund, error)
	Retry(ctx context.Context, principal auth.Principal, id uuid.UUID) (*models.Refund, error)
	GetRefund(ctx context.Context, principal auth.Principal, id uuid.UUID) (*models.Refund, error)
	ListRefunds(ctx context.Context, principal auth.Principal, filters RefundFilters, params pagination.Params) (*RefundList, error)

	MarkCompleted(ctx context.Context, principal auth.Principal, id uuid.UUID) (*models.Refund, error)
	MarkFailed(ctx context.Context, principal auth.Principal, id uuid.UUID, reason string) (*models.Refund, error)
	BulkUpdateStatus(ctx context.Context, principal auth.Principal, ids []uuid.UUID, status enums.RefundStatus) (*BulkResult, error)
	Delete(ctx context.Context, principal auth.Principal, id uuid.UUID) error

	// Gateway-driven settlement used by the webhook and the sync job.
	CompleteFromGateway(ctx context.Context, gatewayRefundID string) (*models.Refund, error)
	FailFromGateway(ctx context.Context, gatewayRefundID, reason string) (*models.Refund, error)
	ListProcessing(ctx context.Context, limit int) ([]models.Refund, error)
	Sync(ctx context.Context, refund models.Refund) (enums.RefundStatus, error)
}

// ServiceParams bundles the dependencies of the refund workflow.
type ServiceParams struct {
	Repo     Repository
	Tx       txRunner
	Orders   orderLoader
	Payments paymentHooks
	Ledger   ledger.Service
	Outbox   outbox.Emitter
	Gateway  Gateway
	Currency string
	Timeout  time.Duration
	Logger   *logger.Logger
	Metrics  *metrics.CommerceMetrics
}

type service struct {
	repo     Repository
	tx       txRunner
	orders   orderLoader
	payments paymentHooks
	ledger   ledger.Service
	outbox   outbox.Emitter
	gateway  Gateway
	currency string
	timeout  time.Duration
	logg     *logger.Logger
	metrics  *metrics.CommerceMetrics
	now      func() time.Time
}

// NewService wires the refund workflow.
func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repo == nil:
		return nil, fmt.Errorf("refunds repository required")
	case params.Tx == nil:
		return nil, fmt.Errorf("transaction runner required")
	case params.Orders == nil:
		return nil, fmt.Errorf("order loader required")
	case params.Payments == nil:
		return nil, fmt.Errorf("payment hooks required")
	case params.Ledger == nil:
		return nil, fmt.Errorf("ledger service required")
	case params.Outbox == nil:
		return nil, fmt.Errorf("outbox emitter required")
	case params.Gateway == nil:
		return nil, fmt.Errorf("refund gateway required")
	}
	currency := params.Currency
	if currency == "" {
		currency = "INR"
	}
	return &service{
		repo:     params.Repo,
		tx:       params.Tx,
		orders:   params.Orders,
		payments: params.Payments,
		ledger:   params.Ledger,
		outbox:   params.Outbox,
		gateway:  params.Gateway,
		currency: currency,
		timeout:  params.Timeout,
		logg:     params.Logger,
		metrics:  params.Metrics,
		now:      time.Now,
	}, nil
}

func (s *service) Request(ctx context.Context, principal auth.Principal, input RequestInput) (*models.RefundRequest, error) {
	if !principal.IsCustomer() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only customers can request refunds")
	}
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reason is required")
	}
	if !input.Category.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid refund category").WithDetails(map[string]any{"category": input.Category})
	}

	var request *models.RefundRequest
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := s.orders.Load(ctx, tx, input.OrderID)
		if err != nil {
			return err
		}
		if order.CustomerID != principal.UserID {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		if order.Status != enums.OrderStatusDelivered {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "only delivered orders can be refunded").WithDetails(map[string]any{
				"order_status": order.Status,
			})
		}
		amount := order.TotalMinor
		if input.AmountMinor != nil {
			amount = *input.AmountMinor
		}
		if amount <= 0 || amount > order.TotalMinor {
			return pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive and no more than the order total").WithDetails(map[string]any{
				"order_total_minor": order.TotalMinor,
				"amount_minor":      amount,
			})
		}

		request = &models.RefundRequest{
			OrderID:     order.ID,
			CustomerID:  order.CustomerID,
			VendorID:    order.VendorID,
			AmountMinor: amount,
			Reason:      reason,
			Category:    input.Category,
			Notes:       trimmedOrNil(input.Notes),
			Attachments: input.Attachments,
			Status:      enums.RefundRequestPending,
		}
		repo := s.repo.WithTx(tx)
		if err := repo.CreateRequest(ctx, request); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeDuplicate, "a refund request already exists for this order")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create refund request")
		}
		return s.emit(ctx, tx, &principal, enums.AggregateRefundRequest, enums.EventRefundRequested, request.ID, payloads.RefundRequestedEvent{
			RefundRequestID: request.ID,
			OrderID:         order.ID,
			CustomerID:      order.CustomerID,
			VendorID:        order.VendorID,
			AmountMinor:     amount,
			Category:        input.Category,
		})
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncRefund("requested")
	return request, nil
}

func (s *service) Approve(ctx context.Context, principal auth.Principal, id uuid.UUID, adminNotes *string) (*models.RefundRequest, error) {
	return s.decide(ctx, principal, id, enums.RefundRequestAccepted, "", adminNotes)
}

func (s *service) Reject(ctx context.Context, principal auth.Principal, id uuid.UUID, reason string, adminNotes *string) (*models.RefundRequest, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rejection reason is required")
	}
	return s.decide(ctx, principal, id, enums.RefundRequestRejected, reason, adminNotes)
}

func (s *service) decide(ctx context.Context, principal auth.Principal, id uuid.UUID, status enums.RefundRequestStatus, rejection string, adminNotes *string) (*models.RefundRequest, error) {
	if !principal.IsAdmin() && !principal.IsVendor() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins or vendors can decide refund requests")
	}

	var decided *models.RefundRequest
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		request, err := s.loadRequest(ctx, repo, id)
		if err != nil {
			return err
		}
		if principal.IsVendor() && request.VendorID != principal.UserID {
			return pkgerrors.New(pkgerrors.CodeNotFound, "refund request not found")
		}
		updates := map[string]any{
			"status":       status,
			"processed_by": principal.UserID,
			"processed_at": s.now().UTC(),
		}
		if notes := trimmedOrNil(adminNotes); notes != nil {
			updates["admin_notes"] = *notes
		}
		if rejection != "" {
			updates["rejection_reason"] = rejection
		}
		ok, err := repo.DecideRequest(ctx, id, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decide refund request")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeAlreadyProcessed, "refund request has already been processed").WithDetails(map[string]any{
				"status": request.Status,
			})
		}
		if err := s.emit(ctx, tx, &principal, enums.AggregateRefundRequest, enums.EventRefundRequestDecided, id, payloads.RefundRequestDecidedEvent{
			RefundRequestID: id,
			OrderID:         request.OrderID,
			Status:          status,
			ProcessedBy:     principal.UserID,
			RejectionReason: rejection,
		}); err != nil {
			return err
		}
		decided, err = s.loadRequest(ctx, repo, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncRefund(string(status))
	return decided, nil
}

func (s *service) GetRequest(ctx context.Context, principal auth.Principal, id uuid.UUID) (*models.RefundRequest, error) {
	request, err := s.loadRequest(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	if !visible(principal, request.CustomerID, request.VendorID) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "refund request not found")
	}
	return request, nil
}

func (s *service) ListRequests(ctx context.Context, principal auth.Principal, filters RequestFilters, params pagination.Params) (*RequestList, error) {
	scope, err := scopeFor(principal)
	if err != nil {
		return nil, err
	}
	list, err := s.repo.ListRequests(ctx, scope, filters, params)
	if err != nil {
		return nil, listError(err, "list refund requests")
	}
	return list, nil
}

func (s *service) Initiate(ctx context.Context, principal auth.Principal, input InitiateInput) (*models.Refund, error) {
	if !principal.IsCustomer() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only customers can initiate refunds")
	}
	gatewayPaymentID := strings.TrimSpace(input.GatewayPaymentID)
	if gatewayPaymentID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gateway payment id is required")
	}

	var refund *models.Refund
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		request, err := s.loadRequest(ctx, repo, input.RefundRequestID)
		if err != nil {
			return err
		}
		if request.CustomerID != principal.UserID {
			return pkgerrors.New(pkgerrors.CodeNotFound, "refund request not found")
		}
		if request.Status != enums.RefundRequestAccepted {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "refund request has not been accepted").WithDetails(map[string]any{
				"status": request.Status,
			})
		}
		if _, err := repo.FindRefundByRequest(ctx, request.ID); err == nil {
			return pkgerrors.New(pkgerrors.CodeDuplicate, "refund already initiated for this request")
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check existing refund")
		}
		payment, err := s.payments.FindCaptured(ctx, tx, principal.UserID, gatewayPaymentID)
		if err != nil {
			return err
		}
		if payment.OrderID != request.OrderID {
			return pkgerrors.New(pkgerrors.CodeNotFound, "captured payment not found")
		}
		if err := checkRefundable(ctx, repo, payment, request.AmountMinor, uuid.Nil); err != nil {
			return err
		}

		refund = &models.Refund{
			RefundRequestID:  request.ID,
			OrderID:          request.OrderID,
			PaymentID:        payment.ID,
			CustomerID:       request.CustomerID,
			VendorID:         request.VendorID,
			AmountMinor:      request.AmountMinor,
			Currency:         s.currency,
			Reason:           request.Reason,
			GatewayPaymentID: gatewayPaymentID,
			Status:           enums.RefundStatusInitiated,
		}
		if err := repo.CreateRefund(ctx, refund); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeDuplicate, "refund already initiated for this request")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create refund")
		}
		reference := refund.ID
		if _, err := s.ledger.RecordEvent(ctx, tx, ledger.RecordLedgerEventInput{
			OrderID:     request.OrderID,
			CustomerID:  request.CustomerID,
			VendorID:    request.VendorID,
			ActorUserID: principal.UserID,
			Type:        enums.LedgerEventRefundInitiated,
			AmountMinor: refund.AmountMinor,
			ReferenceID: &reference,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record ledger event")
		}
		return s.emitRefund(ctx, tx, &principal, enums.EventRefundInitiated, refund, "")
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncRefund("initiated")
	return s.dispatch(ctx, &principal, refund)
}

// Retry re-sends a failed refund to the gateway on the same record.
func (s *service) Retry(ctx context.Context, principal auth.Principal, id uuid.UUID) (*models.Refund, error) {
	if !principal.IsCustomer() && !principal.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "role not permitted")
	}
	refund, err := s.loadRefund(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	if principal.IsCustomer() && refund.CustomerID != principal.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "refund not found")
	}
	if refund.Status != enums.RefundStatusFailed {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidTransition, "only failed refunds can be retried").WithDetails(map[string]any{
			"status": refund.Status,
		})
	}
	payment, err := s.payments.FindCaptured(ctx, nil, refund.CustomerID, refund.GatewayPaymentID)
	if err != nil {
		return nil, err
	}
	if err := checkRefundable(ctx, s.repo, payment, refund.AmountMinor, refund.ID); err != nil {
		return nil, err
	}
	ok, err := s.repo.UpdateRefund(ctx, id, []enums.RefundStatus{enums.RefundStatusFailed}, map[string]any{
		"status": enums.RefundStatusInitiated,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim refund for retry")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidTransition, "refund is no longer failed")
	}
	refund.Status = enums.RefundStatusInitiated
	s.metrics.IncRefund("retried")
	return s.dispatch(ctx, &principal, refund)
}

// dispatch sends an initiated refund to the gateway and records the result.
// A gateway failure leaves the refund failed and returns GATEWAY_ERROR.
func (s *service) dispatch(ctx context.Context, actor *auth.Principal, refund *models.Refund) (*models.Refund, error) {
	callCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	started := s.now()
	gwRefund, gwErr := s.gateway.CreateRefund(callCtx, gateway.CreateRefundRequest{
		PaymentID:   refund.GatewayPaymentID,
		AmountMinor: refund.AmountMinor,
		Notes: map[string]string{
			"reason":            refund.Reason,
			"refund_request_id": refund.RefundRequestID.String(),
		},
	})
	s.metrics.ObserveGateway("create_refund", s.now().Sub(started), gwErr)
	if gwErr == nil && (gwRefund == nil || strings.TrimSpace(gwRefund.ID) == "") {
		gwErr = errors.New("gateway returned an empty refund id")
	}

	var updated *models.Refund
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		updates := map[string]any{"attempts": gorm.Expr("attempts + 1")}
		eventType := enums.EventRefundInitiated
		notes := ""
		if gwErr != nil {
			notes = truncate(gwErr.Error(), maxNotesLength)
			updates["status"] = enums.RefundStatusFailed
			updates["notes"] = notes
			eventType = enums.EventRefundFailed
		} else {
			updates["status"] = enums.RefundStatusProcessing
			updates["gateway_refund_id"] = gwRefund.ID
		}
		ok, err := repo.UpdateRefund(ctx, refund.ID, []enums.RefundStatus{enums.RefundStatusInitiated}, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record gateway refund")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "refund changed while contacting the gateway")
		}
		updated, err = s.loadRefund(ctx, repo, refund.ID)
		if err != nil {
			return err
		}
		if gwErr != nil {
			return s.emitRefund(ctx, tx, actor, eventType, updated, notes)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if gwErr != nil {
		s.metrics.IncRefund("gateway_error")
		s.logError(ctx, refund.ID, "refund.gateway_failed", gwErr)
		return nil, pkgerrors.Wrap(pkgerrors.CodeGateway, gwErr, "refund could not be sent to the gateway").WithDetails(map[string]any{
			"refund_id": refund.ID,
		})
	}
	s.metrics.IncRefund("processing")
	s.logInfo(ctx, refund.ID, "refund.processing")
	return updated, nil
}

func (s *service) GetRefund(ctx context.Context, principal auth.Principal, id uuid.UUID) (*models.Refund, error) {
	refund, err := s.loadRefund(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	if !visible(principal, refund.CustomerID, refund.VendorID) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "refund not found")
	}
	return refund, nil
}

func (s *service) ListRefunds(ctx context.Context, principal auth.Principal, filters RefundFilters, params pagination.Params) (*RefundList, error) {
	scope, err := scopeFor(principal)
	if err != nil {
		return nil, err
	}
	list, err := s.repo.ListRefunds(ctx, scope, filters, params)
	if err != nil {
		return nil, listError(err, "list refunds")
	}
	return list, nil
}

func (s *service) MarkCompleted(ctx context.Context, principal auth.Principal, id uuid.UUID) (*models.Refund, error) {
	if !principal.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins can complete refunds")
	}
	refund, err := s.loadRefund(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	return s.complete(ctx, &principal, refund)
}

func (s *service) CompleteFromGateway(ctx context.Context, gatewayRefundID string) (*models.Refund, error) {
	refund, err := s.findByGateway(ctx, gatewayRefundID)
	if err != nil {
		return nil, err
	}
	return s.complete(ctx, nil, refund)
}

// complete settles a refund: the payment and the order become refunded and
// the ledger records the money leaving. Completing twice is a no-op.
func (s *service) complete(ctx context.Context, actor *auth.Principal, refund *models.Refund) (*models.Refund, error) {
	if refund.Status == enums.RefundStatusCompleted {
		return refund, nil
	}
	var completed *models.Refund
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ok, err := repo.UpdateRefund(ctx, refund.ID,
			[]enums.RefundStatus{enums.RefundStatusInitiated, enums.RefundStatusProcessing},
			map[string]any{"status": enums.RefundStatusCompleted, "completed_at": s.now().UTC()})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "complete refund")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "refund cannot be completed").WithDetails(map[string]any{
				"status": refund.Status,
			})
		}
		if err := s.payments.MarkRefunded(ctx, tx, refund.PaymentID); err != nil {
			return err
		}
		actorID := uuid.Nil
		if actor != nil {
			actorID = actor.UserID
		}
		reference := refund.ID
		if _, err := s.ledger.RecordEvent(ctx, tx, ledger.RecordLedgerEventInput{
			OrderID:     refund.OrderID,
			CustomerID:  refund.CustomerID,
			VendorID:    refund.VendorID,
			ActorUserID: actorID,
			Type:        enums.LedgerEventRefundCompleted,
			AmountMinor: refund.AmountMinor,
			ReferenceID: &reference,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record ledger event")
		}
		completed, err = s.loadRefund(ctx, repo, refund.ID)
		if err != nil {
			return err
		}
		return s.emitRefund(ctx, tx, actor, enums.EventRefundCompleted, completed, "")
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncRefund("completed")
	s.logInfo(ctx, refund.ID, "refund.completed")
	return completed, nil
}

func (s *service) MarkFailed(ctx context.Context, principal auth.Principal, id uuid.UUID, reason string) (*models.Refund, error) {
	if !principal.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins can fail refunds")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reason is required")
	}
	refund, err := s.loadRefund(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	return s.fail(ctx, &principal, refund, reason)
}

func (s *service) FailFromGateway(ctx context.Context, gatewayRefundID, reason string) (*models.Refund, error) {
	refund, err := s.findByGateway(ctx, gatewayRefundID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(reason) == "" {
		reason = "refund failed at gateway"
	}
	return s.fail(ctx, nil, refund, reason)
}

func (s *service) fail(ctx context.Context, actor *auth.Principal, refund *models.Refund, reason string) (*models.Refund, error) {
	if refund.Status == enums.RefundStatusFailed {
		return refund, nil
	}
	notes := truncate(reason, maxNotesLength)
	var failed *models.Refund
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ok, err := repo.UpdateRefund(ctx, refund.ID,
			[]enums.RefundStatus{enums.RefundStatusInitiated, enums.RefundStatusProcessing},
			map[string]any{"status": enums.RefundStatusFailed, "notes": notes})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fail refund")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "refund cannot be failed").WithDetails(map[string]any{
				"status": refund.Status,
			})
		}
		failed, err = s.loadRefund(ctx, repo, refund.ID)
		if err != nil {
			return err
		}
		return s.emitRefund(ctx, tx, actor, enums.EventRefundFailed, failed, notes)
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncRefund("failed")
	return failed, nil
}

// BulkUpdateStatus applies status to each id on its own; one failure never
// blocks the rest.
func (s *service) BulkUpdateStatus(ctx context.Context, principal auth.Principal, ids []uuid.UUID, status enums.RefundStatus) (*BulkResult, error) {
	if !principal.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins can bulk update refunds")
	}
	if status != enums.RefundStatusCompleted && status != enums.RefundStatusFailed {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "bulk status must be completed or failed").WithDetails(map[string]any{"status": status})
	}
	if len(ids) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one refund id is required")
	}

	result := &BulkResult{Updated: []uuid.UUID{}, Skipped: []BulkSkip{}}
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		var err error
		if status == enums.RefundStatusCompleted {
			_, err = s.MarkCompleted(ctx, principal, id)
		} else {
			_, err = s.MarkFailed(ctx, principal, id, "marked failed by admin")
		}
		if err != nil {
			skip := BulkSkip{ID: id, Code: string(pkgerrors.CodeOf(err)), Reason: err.Error()}
			if typed := pkgerrors.As(err); typed != nil {
				skip.Reason = typed.Message()
			}
			result.Skipped = append(result.Skipped, skip)
			continue
		}
		result.Updated = append(result.Updated, id)
	}
	return result, nil
}

func (s *service) Delete(ctx context.Context, principal auth.Principal, id uuid.UUID) error {
	if !principal.IsAdmin() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only admins can delete refunds")
	}
	refund, err := s.loadRefund(ctx, s.repo, id)
	if err != nil {
		return err
	}
	if refund.Status != enums.RefundStatusFailed {
		return pkgerrors.New(pkgerrors.CodeInvalidTransition, "only failed refunds can be deleted").WithDetails(map[string]any{
			"status": refund.Status,
		})
	}
	ok, err := s.repo.DeleteRefund(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete refund")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeInvalidTransition, "only failed refunds can be deleted")
	}
	return nil
}

func (s *service) ListProcessing(ctx context.Context, limit int) ([]models.Refund, error) {
	rows, err := s.repo.ListProcessing(ctx, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list processing refunds")
	}
	return rows, nil
}

// Sync asks the gateway for the refund's state and settles it when final.
func (s *service) Sync(ctx context.Context, refund models.Refund) (enums.RefundStatus, error) {
	if refund.GatewayRefundID == nil {
		return refund.Status, nil
	}
	callCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	started := s.now()
	remote, err := s.gateway.FetchRefund(callCtx, refund.GatewayPaymentID, *refund.GatewayRefundID)
	s.metrics.ObserveGateway("fetch_refund", s.now().Sub(started), err)
	if err != nil {
		return refund.Status, pkgerrors.Wrap(pkgerrors.CodeGateway, err, "fetch refund")
	}
	switch remote.Status {
	case gateway.RefundStatusProcessed:
		updated, err := s.complete(ctx, nil, &refund)
		if err != nil {
			return refund.Status, err
		}
		return updated.Status, nil
	case gateway.RefundStatusFailed:
		updated, err := s.fail(ctx, nil, &refund, "refund failed at gateway")
		if err != nil {
			return refund.Status, err
		}
		return updated.Status, nil
	default:
		return refund.Status, nil
	}
}

func (s *service) findByGateway(ctx context.Context, gatewayRefundID string) (*models.Refund, error) {
	gatewayRefundID = strings.TrimSpace(gatewayRefundID)
	if gatewayRefundID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gateway refund id is required")
	}
	refund, err := s.repo.FindRefundByGatewayID(ctx, gatewayRefundID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "refund not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load refund")
	}
	return refund, nil
}

func (s *service) loadRequest(ctx context.Context, repo Repository, id uuid.UUID) (*models.RefundRequest, error) {
	request, err := repo.FindRequest(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "refund request not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load refund request")
	}
	return request, nil
}

func (s *service) loadRefund(ctx context.Context, repo Repository, id uuid.UUID) (*models.Refund, error) {
	refund, err := repo.FindRefund(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "refund not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load refund")
	}
	return refund, nil
}

func (s *service) emitRefund(ctx context.Context, tx *gorm.DB, actor *auth.Principal, eventType enums.OutboxEventType, refund *models.Refund, notes string) error {
	event := payloads.RefundEvent{
		RefundID:        refund.ID,
		RefundRequestID: refund.RefundRequestID,
		OrderID:         refund.OrderID,
		PaymentID:       refund.PaymentID,
		AmountMinor:     refund.AmountMinor,
		Status:          refund.Status,
		Notes:           notes,
	}
	if refund.GatewayRefundID != nil {
		event.GatewayRefundID = *refund.GatewayRefundID
	}
	return s.emit(ctx, tx, actor, enums.AggregateRefund, eventType, refund.ID, event)
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, actor *auth.Principal, aggregate enums.OutboxAggregateType, eventType enums.OutboxEventType, id uuid.UUID, data any) error {
	event := outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: aggregate,
		AggregateID:   id,
		Version:       1,
		Data:          data,
	}
	if actor != nil && actor.Valid() {
		event.Actor = &outbox.ActorRef{UserID: actor.UserID, Role: actor.Role}
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit refund event")
	}
	return nil
}

func (s *service) logInfo(ctx context.Context, refundID uuid.UUID, msg string) {
	if s.logg == nil {
		return
	}
	s.logg.Info(s.logg.WithField(ctx, "refund_id", refundID.String()), msg)
}

func (s *service) logError(ctx context.Context, refundID uuid.UUID, msg string, err error) {
	if s.logg == nil {
		return
	}
	s.logg.Error(s.logg.WithField(ctx, "refund_id", refundID.String()), msg, err)
}

// checkRefundable keeps the refunds against a payment within what it captured.
func checkRefundable(ctx context.Context, repo Repository, payment *models.Payment, amountMinor int64, exclude uuid.UUID) error {
	refunded, err := repo.RefundedAmount(ctx, payment.ID, exclude)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum refunds for payment")
	}
	remaining := payment.TotalMinor - refunded
	if amountMinor > remaining {
		return pkgerrors.New(pkgerrors.CodeValidation, "refund exceeds the captured amount").WithDetails(map[string]any{
			"amount_minor":    amountMinor,
			"captured_minor":  payment.TotalMinor,
			"refunded_minor":  refunded,
			"remaining_minor": remaining,
		})
	}
	return nil
}

func visible(principal auth.Principal, customerID, vendorID uuid.UUID) bool {
	switch principal.Role {
	case enums.RoleAdmin:
		return true
	case enums.RoleCustomer:
		return customerID == principal.UserID
	case enums.RoleVendor:
		return vendorID == principal.UserID
	}
	return false
}

func scopeFor(principal auth.Principal) (Scope, error) {
	id := principal.UserID
	switch principal.Role {
	case enums.RoleCustomer:
		return Scope{CustomerID: &id}, nil
	case enums.RoleVendor:
		return Scope{VendorID: &id}, nil
	case enums.RoleAdmin:
		return Scope{}, nil
	}
	return Scope{}, pkgerrors.New(pkgerrors.CodeForbidden, "role not permitted")
}

func listError(err error, msg string) error {
	if errors.Is(err, pagination.ErrInvalidCursor) {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
}

func trimmedOrNil(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// truncate clips to at most max bytes on a rune boundary and drops invalid
// sequences so the result can always be stored.
func truncate(value string, max int) string {
	if !utf8.ValidString(value) {
		value = strings.ToValidUTF8(value, "")
	}
	if len(value) <= max {
		return value
	}
	n := max
	for n > 0 && !utf8.RuneStart(value[n]) {
		n--
	}
	return value[:n]
}
