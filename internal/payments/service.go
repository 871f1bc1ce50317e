package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/internal/ledger"
	"github.com/angelmondragon/bazaar-backend/pkg/auth"
	"github.com/angelmondragon/bazaar-backend/pkg/config"
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

const successIndex = "ux_payments_order_success"

// Gateway is the slice of the payment gateway client the coordinator needs.
type Gateway interface {
	KeyID() string
	CreateOrder(ctx context.Context, req gateway.CreateOrderRequest) (*gateway.Order, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type orderHooks interface {
	Load(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Order, error)
	MarkPaid(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Order, error)
	MarkPaymentFailed(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
	MarkRefunded(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
	VendorOrderIDs(ctx context.Context, vendorID uuid.UUID) ([]uuid.UUID, error)
}

// Service is the payment coordinator.
type Service interface {
	Initiate(ctx context.Context, principal auth.Principal, input InitiateInput) (*InitiateResult, error)
	Verify(ctx context.Context, principal auth.Principal, input VerifyInput) (*models.Payment, error)
	Fail(ctx context.Context, principal auth.Principal, input FailInput) (*models.Payment, error)
	Get(ctx context.Context, principal auth.Principal, id uuid.UUID) (*models.Payment, error)
	List(ctx context.Context, principal auth.Principal, filters ListFilters, params pagination.Params) (*PaymentList, error)
	UpdateStatus(ctx context.Context, principal auth.Principal, id uuid.UUID, status enums.PaymentStatus) (*models.Payment, error)
	Delete(ctx context.Context, principal auth.Principal, id uuid.UUID) error

	// Webhook entry points; the caller has already proven the gateway signature.
	CaptureFromGateway(ctx context.Context, gatewayOrderID, gatewayPaymentID string) (*models.Payment, error)
	FailFromGateway(ctx context.Context, gatewayOrderID string, code *string, reason string) (*models.Payment, error)

	// Refund workflow hooks.
	FindCaptured(ctx context.Context, tx *gorm.DB, customerID uuid.UUID, gatewayPaymentID string) (*models.Payment, error)
	MarkRefunded(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

// ServiceParams bundles the dependencies required to build the coordinator.
type ServiceParams struct {
	Repo    Repository
	Tx      txRunner
	Orders  orderHooks
	Ledger  ledger.Service
	Outbox  outbox.Emitter
	Gateway Gateway
	Config  config.GatewayConfig
	Pricing config.PricingConfig
	Logger  *logger.Logger
	Metrics *metrics.CommerceMetrics
}

type service struct {
	repo    Repository
	tx      txRunner
	orders  orderHooks
	ledger  ledger.Service
	outbox  outbox.Emitter
	gateway Gateway
	cfg     config.GatewayConfig
	taxBps  int64
	logg    *logger.Logger
	metrics *metrics.CommerceMetrics
	now     func() time.Time
}

// NewService builds a payment coordinator with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("order hooks required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if params.Gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if strings.TrimSpace(params.Config.KeySecret) == "" {
		return nil, fmt.Errorf("gateway key secret required")
	}
	cfg := params.Config
	if cfg.Currency == "" {
		cfg.Currency = "INR"
	}
	return &service{
		repo:    params.Repo,
		tx:      params.Tx,
		orders:  params.Orders,
		ledger:  params.Ledger,
		outbox:  params.Outbox,
		gateway: params.Gateway,
		cfg:     cfg,
		taxBps:  params.Pricing.TaxRateBps,
		logg:    params.Logger,
		metrics: params.Metrics,
		now:     time.Now,
	}, nil
}

func (s *service) Initiate(ctx context.Context, principal auth.Principal, input InitiateInput) (*InitiateResult, error) {
	if !principal.IsCustomer() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only customers can pay for orders")
	}
	if !input.Method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported payment method").WithDetails(map[string]any{"method": input.Method})
	}
	order, err := s.orders.Load(ctx, nil, input.OrderID)
	if err != nil {
		return nil, err
	}
	if order.CustomerID != principal.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if order.Status == enums.OrderStatusCancelled {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidTransition, "cancelled orders cannot be paid")
	}
	if order.PaymentStatus == enums.OrderPaymentPaid || order.PaymentStatus == enums.OrderPaymentRefunded {
		return nil, pkgerrors.New(pkgerrors.CodeDuplicate, "order has already been paid")
	}
	captured, err := s.repo.HasSuccess(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check existing payments")
	}
	if captured {
		return nil, pkgerrors.New(pkgerrors.CodeDuplicate, "order has already been paid")
	}

	amount := order.TotalMinor
	if input.AmountMinor != nil {
		amount = *input.AmountMinor
	}
	if amount <= 0 || amount > order.TotalMinor {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive and no more than the order total").WithDetails(map[string]any{
			"order_total_minor": order.TotalMinor,
			"amount_minor":      amount,
		})
	}

	quote := Quote(input.Method, amount, s.taxBps)
	payment := &models.Payment{
		OrderID:             order.ID,
		CustomerID:          principal.UserID,
		AmountMinor:         quote.AmountMinor,
		ConvenienceFeeMinor: quote.ConvenienceFeeMinor,
		TaxMinor:            quote.TaxMinor,
		TotalMinor:          quote.TotalMinor,
		Currency:            s.cfg.Currency,
		Method:              input.Method,
		Status:              enums.PaymentStatusPending,
	}
	if err := s.repo.Create(ctx, payment); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment")
	}

	gwOrder, gwErr := s.createGatewayOrder(ctx, payment, order)
	if gwErr != nil {
		reason := gwErr.Error()
		err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			if _, err := s.repo.WithTx(tx).MarkFailed(ctx, payment.ID, []enums.PaymentStatus{enums.PaymentStatusPending}, nil, reason); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record gateway failure")
			}
			return s.emit(ctx, tx, &principal, enums.EventPaymentFailed, payment.ID, payloads.PaymentFailedEvent{
				PaymentID: payment.ID,
				OrderID:   order.ID,
				Reason:    reason,
			})
		})
		if err != nil {
			return nil, err
		}
		s.metrics.IncPayment(string(input.Method), "gateway_error")
		s.logError(ctx, payment.ID, "payment.gateway_order_failed", gwErr)
		return nil, pkgerrors.Wrap(pkgerrors.CodeGateway, gwErr, "payment gateway unavailable")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).SetGatewayOrder(ctx, payment.ID, gwOrder.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store gateway order")
		}
		return s.emit(ctx, tx, &principal, enums.EventPaymentInitiated, payment.ID, payloads.PaymentInitiatedEvent{
			PaymentID:      payment.ID,
			OrderID:        order.ID,
			GatewayOrderID: gwOrder.ID,
			Method:         input.Method,
			TotalMinor:     payment.TotalMinor,
		})
	})
	if err != nil {
		return nil, err
	}
	gatewayOrderID := gwOrder.ID
	payment.GatewayOrderID = &gatewayOrderID
	s.metrics.IncPayment(string(input.Method), "initiated")

	prefill := Prefill{
		Name:    order.ShippingAddress.Name,
		Contact: order.ShippingAddress.Phone,
	}
	if order.ShippingAddress.Email != nil {
		prefill.Email = *order.ShippingAddress.Email
	}
	return &InitiateResult{
		KeyID:          s.gateway.KeyID(),
		GatewayOrderID: gwOrder.ID,
		AmountMinor:    payment.TotalMinor,
		Currency:       payment.Currency,
		Name:           s.cfg.MerchantName,
		Description:    fmt.Sprintf("Payment for order %s", order.OrderNumber),
		Prefill:        prefill,
		PaymentID:      payment.ID,
		Payment:        payment,
	}, nil
}

func (s *service) createGatewayOrder(ctx context.Context, payment *models.Payment, order *models.Order) (*gateway.Order, error) {
	callCtx := ctx
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}
	started := s.now()
	gwOrder, err := s.gateway.CreateOrder(callCtx, gateway.CreateOrderRequest{
		AmountMinor: payment.TotalMinor,
		Currency:    payment.Currency,
		Receipt:     payment.ID.String(),
		Notes: map[string]string{
			"order_id":     order.ID.String(),
			"order_number": order.OrderNumber,
			"method":       string(payment.Method),
		},
	})
	s.metrics.ObserveGateway("create_order", s.now().Sub(started), err)
	if err != nil {
		return nil, err
	}
	if gwOrder == nil || strings.TrimSpace(gwOrder.ID) == "" {
		return nil, errors.New("gateway returned an empty order id")
	}
	return gwOrder, nil
}

func (s *service) Verify(ctx context.Context, principal auth.Principal, input VerifyInput) (*models.Payment, error) {
	if !principal.IsCustomer() && !principal.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "role not permitted")
	}
	orderID := strings.TrimSpace(input.GatewayOrderID)
	paymentID := strings.TrimSpace(input.GatewayPaymentID)
	signature := strings.TrimSpace(input.Signature)
	if orderID == "" || paymentID == "" || signature == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gateway order id, payment id and signature are required")
	}
	if !gateway.VerifyPaymentSignature(orderID, paymentID, signature, s.cfg.KeySecret) {
		s.metrics.IncPayment("unknown", "signature_invalid")
		return nil, pkgerrors.New(pkgerrors.CodeSignatureInvalid, "payment signature mismatch")
	}

	payment, err := s.findByGatewayOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if principal.IsCustomer() && payment.CustomerID != principal.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
	}
	return s.capture(ctx, &principal, payment, paymentID, signature)
}

func (s *service) CaptureFromGateway(ctx context.Context, gatewayOrderID, gatewayPaymentID string) (*models.Payment, error) {
	if strings.TrimSpace(gatewayOrderID) == "" || strings.TrimSpace(gatewayPaymentID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gateway order id and payment id are required")
	}
	payment, err := s.findByGatewayOrder(ctx, gatewayOrderID)
	if err != nil {
		return nil, err
	}
	return s.capture(ctx, nil, payment, gatewayPaymentID, "")
}

// capture moves a payment to success and marks its order paid in one
// transaction. Replays with the same gateway payment id are no-ops.
func (s *service) capture(ctx context.Context, actor *auth.Principal, payment *models.Payment, gatewayPaymentID, signature string) (*models.Payment, error) {
	if replay, err := checkReplay(payment, gatewayPaymentID); replay || err != nil {
		if err != nil {
			return nil, err
		}
		return payment, nil
	}

	var captured *models.Payment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		paidAt := s.now().UTC()
		ok, err := repo.MarkSuccess(ctx, payment.ID, gatewayPaymentID, signature, paidAt)
		if err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeDuplicate, "order already has a successful payment")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "capture payment")
		}
		if !ok {
			current, err := s.reload(ctx, repo, payment.ID)
			if err != nil {
				return err
			}
			replay, err := checkReplay(current, gatewayPaymentID)
			if err != nil {
				return err
			}
			if replay {
				captured = current
				return nil
			}
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "payment can no longer be captured")
		}

		order, err := s.orders.MarkPaid(ctx, tx, payment.OrderID)
		if err != nil {
			return err
		}
		actorID := uuid.Nil
		if actor != nil {
			actorID = actor.UserID
		}
		reference := payment.ID
		if _, err := s.ledger.RecordEvent(ctx, tx, ledger.RecordLedgerEventInput{
			OrderID:     order.ID,
			CustomerID:  order.CustomerID,
			VendorID:    order.VendorID,
			ActorUserID: actorID,
			Type:        enums.LedgerEventPaymentCaptured,
			AmountMinor: payment.TotalMinor,
			ReferenceID: &reference,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record ledger event")
		}
		if err := s.emit(ctx, tx, actor, enums.EventPaymentCaptured, payment.ID, payloads.PaymentCapturedEvent{
			PaymentID:        payment.ID,
			OrderID:          payment.OrderID,
			GatewayPaymentID: gatewayPaymentID,
			TotalMinor:       payment.TotalMinor,
			PaidAt:           paidAt,
		}); err != nil {
			return err
		}
		captured, err = s.reload(ctx, repo, payment.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncPayment(string(payment.Method), "captured")
	s.logInfo(ctx, payment.ID, "payment.captured")
	return captured, nil
}

// checkReplay reports true when the payment was already captured with the
// same gateway payment id, and an error when it was settled any other way.
func checkReplay(payment *models.Payment, gatewayPaymentID string) (bool, error) {
	switch payment.Status {
	case enums.PaymentStatusSuccess:
		if payment.GatewayPaymentID != nil && *payment.GatewayPaymentID == gatewayPaymentID {
			return true, nil
		}
		return false, pkgerrors.New(pkgerrors.CodeDuplicate, "payment already captured")
	case enums.PaymentStatusRefunded:
		return false, pkgerrors.New(pkgerrors.CodeInvalidTransition, "payment has been refunded")
	default:
		return false, nil
	}
}

func (s *service) Fail(ctx context.Context, principal auth.Principal, input FailInput) (*models.Payment, error) {
	if !principal.IsCustomer() && !principal.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "role not permitted")
	}
	if strings.TrimSpace(input.GatewayOrderID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gateway order id is required")
	}
	payment, err := s.findByGatewayOrder(ctx, input.GatewayOrderID)
	if err != nil {
		return nil, err
	}
	if principal.IsCustomer() && payment.CustomerID != principal.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
	}
	return s.fail(ctx, &principal, payment, input.Code, input.Reason)
}

// FailFromGateway applies a payment.failed notification. The gateway reports
// every declined attempt on an order, so a failure arriving after the capture
// is acknowledged without touching the settled payment.
func (s *service) FailFromGateway(ctx context.Context, gatewayOrderID string, code *string, reason string) (*models.Payment, error) {
	payment, err := s.findByGatewayOrder(ctx, gatewayOrderID)
	if err != nil {
		return nil, err
	}
	if settled(payment.Status) {
		s.logWarn(ctx, payment.ID, "payment.late_failure_ignored")
		return payment, nil
	}
	failed, err := s.fail(ctx, nil, payment, code, reason)
	if pkgerrors.CodeOf(err) == pkgerrors.CodeInvalidTransition {
		current, reloadErr := s.reload(ctx, s.repo, payment.ID)
		if reloadErr == nil && settled(current.Status) {
			s.logWarn(ctx, payment.ID, "payment.late_failure_ignored")
			return current, nil
		}
	}
	return failed, err
}

func settled(status enums.PaymentStatus) bool {
	return status == enums.PaymentStatusSuccess || status == enums.PaymentStatusRefunded
}

// fail records a failed attempt. The order's payment status is left alone so
// the customer can retry.
func (s *service) fail(ctx context.Context, actor *auth.Principal, payment *models.Payment, code *string, reason string) (*models.Payment, error) {
	switch payment.Status {
	case enums.PaymentStatusFailed:
		return payment, nil
	case enums.PaymentStatusSuccess, enums.PaymentStatusRefunded:
		return nil, pkgerrors.New(pkgerrors.CodeInvalidTransition, "settled payments cannot fail")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "payment failed"
	}

	var failed *models.Payment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ok, err := repo.MarkFailed(ctx, payment.ID, []enums.PaymentStatus{enums.PaymentStatusPending}, code, reason)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fail payment")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "payment is no longer pending")
		}
		event := payloads.PaymentFailedEvent{
			PaymentID: payment.ID,
			OrderID:   payment.OrderID,
			Reason:    reason,
		}
		if code != nil {
			event.Code = *code
		}
		if err := s.emit(ctx, tx, actor, enums.EventPaymentFailed, payment.ID, event); err != nil {
			return err
		}
		failed, err = s.reload(ctx, repo, payment.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncPayment(string(payment.Method), "failed")
	return failed, nil
}

func (s *service) Get(ctx context.Context, principal auth.Principal, id uuid.UUID) (*models.Payment, error) {
	payment, err := s.reload(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	switch principal.Role {
	case enums.RoleAdmin:
		return payment, nil
	case enums.RoleCustomer:
		if payment.CustomerID == principal.UserID {
			return payment, nil
		}
	case enums.RoleVendor:
		order, err := s.orders.Load(ctx, nil, payment.OrderID)
		if err == nil && order.VendorID == principal.UserID {
			return payment, nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
}

func (s *service) List(ctx context.Context, principal auth.Principal, filters ListFilters, params pagination.Params) (*PaymentList, error) {
	var scope Scope
	switch principal.Role {
	case enums.RoleCustomer:
		id := principal.UserID
		scope.CustomerID = &id
	case enums.RoleVendor:
		ids, err := s.orders.VendorOrderIDs(ctx, principal.UserID)
		if err != nil {
			return nil, err
		}
		scope.ByOrders = true
		scope.OrderIDs = ids
	case enums.RoleAdmin:
	default:
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "role not permitted")
	}
	list, err := s.repo.List(ctx, scope, filters, params)
	if err != nil {
		if errors.Is(err, pagination.ErrInvalidCursor) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payments")
	}
	return list, nil
}

// UpdateStatus is the admin overwrite. The order's payment status follows so
// the two records never disagree.
func (s *service) UpdateStatus(ctx context.Context, principal auth.Principal, id uuid.UUID, status enums.PaymentStatus) (*models.Payment, error) {
	if !principal.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins can overwrite payment status")
	}
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment status").WithDetails(map[string]any{"status": status})
	}

	var updated *models.Payment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		payment, err := s.reload(ctx, repo, id)
		if err != nil {
			return err
		}
		if payment.Status == status {
			updated = payment
			return nil
		}
		updates := map[string]any{"status": status}
		if status == enums.PaymentStatusSuccess && payment.PaidAt == nil {
			updates["paid_at"] = s.now().UTC()
		}
		if err := repo.OverwriteStatus(ctx, id, updates); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeDuplicate, "order already has a successful payment")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "overwrite payment status")
		}
		switch status {
		case enums.PaymentStatusSuccess:
			_, err = s.orders.MarkPaid(ctx, tx, payment.OrderID)
		case enums.PaymentStatusFailed:
			err = s.orders.MarkPaymentFailed(ctx, tx, payment.OrderID)
		case enums.PaymentStatusRefunded:
			err = s.orders.MarkRefunded(ctx, tx, payment.OrderID)
		}
		if err != nil {
			return err
		}
		updated, err = s.reload(ctx, repo, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{"payment_id": id.String(), "status": status, "admin_id": principal.UserID.String()})
		s.logg.Warn(logCtx, "payment.status_overwritten")
	}
	return updated, nil
}

func (s *service) Delete(ctx context.Context, principal auth.Principal, id uuid.UUID) error {
	if !principal.IsAdmin() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only admins can delete payments")
	}
	payment, err := s.reload(ctx, s.repo, id)
	if err != nil {
		return err
	}
	if payment.Status == enums.PaymentStatusSuccess || payment.Status == enums.PaymentStatusRefunded {
		return pkgerrors.New(pkgerrors.CodeInvalidTransition, "settled payments cannot be deleted").WithDetails(map[string]any{"status": payment.Status})
	}
	ok, err := s.repo.Delete(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete payment")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeInvalidTransition, "settled payments cannot be deleted")
	}
	return nil
}

func (s *service) FindCaptured(ctx context.Context, tx *gorm.DB, customerID uuid.UUID, gatewayPaymentID string) (*models.Payment, error) {
	payment, err := s.repo.WithTx(tx).FindSuccessful(ctx, customerID, strings.TrimSpace(gatewayPaymentID))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "captured payment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load captured payment")
	}
	return payment, nil
}

// MarkRefunded moves a captured payment and its order to refunded.
func (s *service) MarkRefunded(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	repo := s.repo.WithTx(tx)
	payment, err := s.reload(ctx, repo, id)
	if err != nil {
		return err
	}
	if payment.Status != enums.PaymentStatusRefunded {
		ok, err := repo.MarkRefunded(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark payment refunded")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "only captured payments can be refunded")
		}
	}
	return s.orders.MarkRefunded(ctx, tx, payment.OrderID)
}

func (s *service) findByGatewayOrder(ctx context.Context, gatewayOrderID string) (*models.Payment, error) {
	payment, err := s.repo.FindByGatewayOrderID(ctx, strings.TrimSpace(gatewayOrderID))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}
	return payment, nil
}

func (s *service) reload(ctx context.Context, repo Repository, id uuid.UUID) (*models.Payment, error) {
	payment, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}
	return payment, nil
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, actor *auth.Principal, eventType enums.OutboxEventType, paymentID uuid.UUID, data any) error {
	event := outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregatePayment,
		AggregateID:   paymentID,
		Version:       1,
		Data:          data,
	}
	if actor != nil && actor.Valid() {
		event.Actor = &outbox.ActorRef{UserID: actor.UserID, Role: actor.Role}
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit payment event")
	}
	return nil
}

func (s *service) logInfo(ctx context.Context, paymentID uuid.UUID, msg string) {
	if s.logg == nil {
		return
	}
	s.logg.Info(s.logg.WithField(ctx, "payment_id", paymentID.String()), msg)
}

func (s *service) logWarn(ctx context.Context, paymentID uuid.UUID, msg string) {
	if s.logg == nil {
		return
	}
	s.logg.Warn(s.logg.WithField(ctx, "payment_id", paymentID.String()), msg)
}

func (s *service) logError(ctx context.Context, paymentID uuid.UUID, msg string, err error) {
	if s.logg == nil {
		return
	}
	s.logg.Error(s.logg.WithField(ctx, "payment_id", paymentID.String()), msg, err)
}
