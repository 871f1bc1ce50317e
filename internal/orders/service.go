package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/internal/catalog"
	"github.com/angelmondragon/bazaar-backend/pkg/auth"
	"github.com/angelmondragon/bazaar-backend/pkg/config"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
	"github.com/angelmondragon/bazaar-backend/pkg/metrics"
	"github.com/angelmondragon/bazaar-backend/pkg/outbox"
	"github.com/angelmondragon/bazaar-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/bazaar-backend/pkg/pagination"
	"github.com/angelmondragon/bazaar-backend/pkg/types"
)

const expiredReason = "expired"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type cartReader interface {
	Items(ctx context.Context, tx *gorm.DB, customerID uuid.UUID) ([]models.CartItem, error)
	Clear(ctx context.Context, tx *gorm.DB, customerID uuid.UUID, productIDs []uuid.UUID) error
}

// Service is the order engine.
type Service interface {
	CreateFromCart(ctx context.Context, principal auth.Principal, input CreateInput) ([]models.Order, error)
	Get(ctx context.Context, principal auth.Principal, id uuid.UUID) (*models.Order, error)
	List(ctx context.Context, principal auth.Principal, filters ListFilters, params pagination.Params) (*OrderList, error)
	Confirm(ctx context.Context, principal auth.Principal, id uuid.UUID) (*models.Order, error)
	Process(ctx context.Context, principal auth.Principal, id uuid.UUID) (*models.Order, error)
	Ship(ctx context.Context, principal auth.Principal, id uuid.UUID, input ShipInput) (*models.Order, error)
	Deliver(ctx context.Context, principal auth.Principal, id uuid.UUID) (*models.Order, error)
	Cancel(ctx context.Context, principal auth.Principal, id uuid.UUID, reason string) (*models.Order, error)
	UpdateAddress(ctx context.Context, principal auth.Principal, id uuid.UUID, input AddressInput) (*models.Order, error)
	Delete(ctx context.Context, principal auth.Principal, id uuid.UUID) error

	// Hooks for the payment and refund workflows. They run inside the caller's transaction.
	Load(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Order, error)
	MarkPaid(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Order, error)
	MarkPaymentFailed(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
	MarkRefunded(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
	VendorOrderIDs(ctx context.Context, vendorID uuid.UUID) ([]uuid.UUID, error)

	// Expiry support for the cron worker.
	FindExpirable(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error)
	Expire(ctx context.Context, id uuid.UUID) (bool, error)
}

// ServiceParams bundles the dependencies required to build the order engine.
type ServiceParams struct {
	Repo     Repository
	Tx       txRunner
	Catalog  catalog.Reader
	Cart     cartReader
	Outbox   outbox.Emitter
	Pricing  config.PricingConfig
	Currency string
	Logger   *logger.Logger
	Metrics  *metrics.CommerceMetrics
}

type service struct {
	repo     Repository
	tx       txRunner
	catalog  catalog.Reader
	cart     cartReader
	outbox   outbox.Emitter
	pricing  config.PricingConfig
	currency string
	logg     *logger.Logger
	metrics  *metrics.CommerceMetrics
	now      func() time.Time
}

// NewService builds the order engine with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog reader required")
	}
	if params.Cart == nil {
		return nil, fmt.Errorf("cart reader required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	currency := strings.ToUpper(strings.TrimSpace(params.Currency))
	if currency == "" {
		currency = "INR"
	}
	return &service{
		repo:     params.Repo,
		tx:       params.Tx,
		catalog:  params.Catalog,
		cart:     params.Cart,
		outbox:   params.Outbox,
		pricing:  params.Pricing,
		currency: currency,
		logg:     params.Logger,
		metrics:  params.Metrics,
		now:      time.Now,
	}, nil
}

type pricedLine struct {
	product  *models.Product
	quantity int
}

type vendorGroup struct {
	vendorID uuid.UUID
	lines    []pricedLine
}

func (s *service) CreateFromCart(ctx context.Context, principal auth.Principal, input CreateInput) ([]models.Order, error) {
	if !principal.IsCustomer() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only customers can place orders")
	}
	shipping := input.ShippingAddress.Normalize()
	if err := validateAddress(shipping); err != nil {
		return nil, err
	}
	var billing *types.Address
	if input.BillingAddress != nil {
		normalized := input.BillingAddress.Normalize()
		billing = &normalized
	}

	var created []models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		lines := input.Items
		if lines == nil {
			items, err := s.cart.Items(ctx, tx, principal.UserID)
			if err != nil {
				return err
			}
			for _, item := range items {
				lines = append(lines, LineInput{ProductID: item.ProductID, Quantity: item.Quantity})
			}
		}
		merged, err := mergeLines(lines)
		if err != nil {
			return err
		}

		var coupon *models.Coupon
		if input.CouponCode != nil && strings.TrimSpace(*input.CouponCode) != "" {
			coupon, err = s.catalog.GetCoupon(ctx, tx, *input.CouponCode)
			if err != nil {
				return err
			}
		}

		groups, err := s.groupByVendor(ctx, tx, merged)
		if err != nil {
			return err
		}

		repo := s.repo.WithTx(tx)
		now := s.now().UTC()
		numbers := make(map[string]struct{}, len(groups))
		productIDs := make([]uuid.UUID, 0, len(merged))
		for _, group := range groups {
			order := s.buildOrder(principal, input, shipping, billing, group, coupon, now, numbers)
			if err := repo.Create(ctx, order); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
			}
			for _, line := range group.lines {
				ok, err := s.catalog.DecrementStock(ctx, tx, line.product.ID, line.quantity)
				if err != nil {
					return err
				}
				if !ok {
					available := 0
					if fresh, loadErr := s.catalog.GetProduct(ctx, tx, line.product.ID); loadErr == nil {
						available = fresh.Stock
					}
					return outOfStock(line.product.ID, line.quantity, available)
				}
				productIDs = append(productIDs, line.product.ID)
			}
			if err := s.emit(ctx, tx, principal, enums.EventOrderCreated, order.ID, payloads.OrderCreatedEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				CustomerID:  order.CustomerID,
				VendorID:    order.VendorID,
				TotalMinor:  order.TotalMinor,
				Currency:    order.Currency,
				ItemCount:   len(order.LineItems),
			}); err != nil {
				return err
			}
			created = append(created, *order)
		}
		return s.cart.Clear(ctx, tx, principal.UserID, productIDs)
	})
	if err != nil {
		return nil, err
	}

	for _, order := range created {
		s.metrics.IncOrder(string(enums.OrderStatusPending))
		s.logInfo(ctx, order.ID, "order.created")
	}
	return created, nil
}

func mergeLines(lines []LineInput) ([]LineInput, error) {
	if len(lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order must contain at least one item")
	}
	index := make(map[uuid.UUID]int, len(lines))
	merged := make([]LineInput, 0, len(lines))
	for _, line := range lines {
		if line.ProductID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
		}
		if line.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive").WithDetails(map[string]any{"product_id": line.ProductID})
		}
		if i, ok := index[line.ProductID]; ok {
			merged[i].Quantity += line.Quantity
			continue
		}
		index[line.ProductID] = len(merged)
		merged = append(merged, line)
	}
	return merged, nil
}

// groupByVendor loads the products in one query, checks availability and
// groups lines by vendor in first-seen order.
func (s *service) groupByVendor(ctx context.Context, tx *gorm.DB, lines []LineInput) ([]vendorGroup, error) {
	ids := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.ProductID)
	}
	products, err := s.catalog.GetProducts(ctx, tx, ids)
	if err != nil {
		return nil, err
	}

	var groups []vendorGroup
	byVendor := make(map[uuid.UUID]int)
	for _, line := range lines {
		found, ok := products[line.ProductID]
		if !ok {
			return nil, unavailable(line.ProductID)
		}
		product := &found
		if !catalog.Orderable(product) {
			return nil, unavailable(line.ProductID)
		}
		if line.Quantity > product.Stock {
			return nil, outOfStock(product.ID, line.Quantity, product.Stock)
		}
		i, ok := byVendor[product.VendorID]
		if !ok {
			i = len(groups)
			byVendor[product.VendorID] = i
			groups = append(groups, vendorGroup{vendorID: product.VendorID})
		}
		groups[i].lines = append(groups[i].lines, pricedLine{product: product, quantity: line.Quantity})
	}
	return groups, nil
}

func (s *service) buildOrder(principal auth.Principal, input CreateInput, shipping types.Address, billing *types.Address, group vendorGroup, coupon *models.Coupon, now time.Time, used map[string]struct{}) *models.Order {
	items := make([]models.OrderLineItem, 0, len(group.lines))
	var subtotal int64
	for _, line := range group.lines {
		lineTotal := line.product.PriceMinor * int64(line.quantity)
		subtotal += lineTotal
		items = append(items, models.OrderLineItem{
			ProductID:      line.product.ID,
			ProductName:    line.product.Name,
			Quantity:       line.quantity,
			UnitPriceMinor: line.product.PriceMinor,
			LineTotalMinor: lineTotal,
		})
	}
	totals := Price(s.pricing, subtotal, catalog.CouponDiscount(coupon, subtotal))

	number := NewOrderNumber(now)
	for {
		if _, taken := used[number]; !taken {
			break
		}
		number = NewOrderNumber(now)
	}
	used[number] = struct{}{}

	var couponCode *string
	if coupon != nil {
		code := coupon.Code
		couponCode = &code
	}
	return &models.Order{
		OrderNumber:         number,
		CustomerID:          principal.UserID,
		VendorID:            group.vendorID,
		Status:              enums.OrderStatusPending,
		PaymentStatus:       enums.OrderPaymentPending,
		SubtotalMinor:       totals.SubtotalMinor,
		TaxMinor:            totals.TaxMinor,
		ShippingFeeMinor:    totals.ShippingFeeMinor,
		DiscountMinor:       totals.DiscountMinor,
		TotalMinor:          totals.TotalMinor,
		Currency:            s.currency,
		ShippingAddress:     shipping,
		BillingAddress:      billing,
		RecipientName:       shipping.Name,
		SpecialInstructions: trimmedOrNil(input.SpecialInstructions),
		CouponCode:          couponCode,
		PaymentReference:    trimmedOrNil(input.PaymentReference),
		LineItems:           items,
	}
}

func (s *service) Get(ctx context.Context, principal auth.Principal, id uuid.UUID) (*models.Order, error) {
	return s.loadScoped(ctx, s.repo, principal, id)
}

func (s *service) List(ctx context.Context, principal auth.Principal, filters ListFilters, params pagination.Params) (*OrderList, error) {
	var scope Scope
	switch principal.Role {
	case enums.RoleCustomer:
		id := principal.UserID
		scope.CustomerID = &id
	case enums.RoleVendor:
		id := principal.UserID
		scope.VendorID = &id
	case enums.RoleAdmin:
	default:
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "role not permitted")
	}
	list, err := s.repo.List(ctx, scope, filters, params)
	if err != nil {
		if errors.Is(err, pagination.ErrInvalidCursor) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return list, nil
}

func (s *service) Confirm(ctx context.Context, principal auth.Principal, id uuid.UUID) (*models.Order, error) {
	return s.advance(ctx, principal, id, ActionConfirm, nil)
}

func (s *service) Process(ctx context.Context, principal auth.Principal, id uuid.UUID) (*models.Order, error) {
	return s.advance(ctx, principal, id, ActionProcess, nil)
}

func (s *service) Ship(ctx context.Context, principal auth.Principal, id uuid.UUID, input ShipInput) (*models.Order, error) {
	extra := map[string]any{}
	if v := trimmedOrNil(input.Carrier); v != nil {
		extra["carrier"] = *v
	}
	if v := trimmedOrNil(input.TrackingNumber); v != nil {
		extra["tracking_number"] = *v
	}
	return s.advance(ctx, principal, id, ActionShip, extra)
}

func (s *service) Deliver(ctx context.Context, principal auth.Principal, id uuid.UUID) (*models.Order, error) {
	return s.advance(ctx, principal, id, ActionDeliver, nil)
}

func (s *service) advance(ctx context.Context, principal auth.Principal, id uuid.UUID, action Action, extra map[string]any) (*models.Order, error) {
	if !principal.IsVendor() && !principal.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only vendors or admins can advance orders")
	}
	edge := forwardEdges[action]

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.loadScoped(ctx, repo, principal, id)
		if err != nil {
			return err
		}
		if !CanApply(action, principal.Role, order.Status) {
			return invalidTransition(order.Status, action)
		}
		if action == ActionDeliver && order.PaymentStatus != enums.OrderPaymentPaid {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "order must be paid before delivery").WithDetails(map[string]any{
				"payment_status": order.PaymentStatus,
			})
		}

		now := s.now().UTC()
		updates := map[string]any{
			"order_status":           edge.to,
			timestampColumn(edge.to): now,
		}
		for k, v := range extra {
			updates[k] = v
		}
		ok, err := repo.UpdateStatus(ctx, id, []enums.OrderStatus{edge.from}, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		if !ok {
			return invalidTransition(order.Status, action)
		}
		if err := s.emit(ctx, tx, principal, enums.EventOrderStatusChanged, order.ID, payloads.OrderStatusChangedEvent{
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			From:        edge.from,
			To:          edge.to,
			ActorRole:   principal.Role,
			ChangedAt:   now,
		}); err != nil {
			return err
		}
		updated, err = s.reload(ctx, repo, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncOrder(string(edge.to))
	s.logInfo(ctx, id, "order."+string(action))
	return updated, nil
}

func (s *service) Cancel(ctx context.Context, principal auth.Principal, id uuid.UUID, reason string) (*models.Order, error) {
	allowed := cancellableFrom(principal.Role)
	if len(allowed) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "role not permitted")
	}

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.loadScoped(ctx, repo, principal, id)
		if err != nil {
			return err
		}
		if !containsStatus(allowed, order.Status) {
			return invalidTransition(order.Status, ActionCancel)
		}

		now := s.now().UTC()
		actor := principal.UserID
		updates := map[string]any{
			"order_status": enums.OrderStatusCancelled,
			"cancelled_at": now,
			"cancelled_by": actor,
		}
		if trimmed := strings.TrimSpace(reason); trimmed != "" {
			updates["cancellation_reason"] = trimmed
		}
		ok, err := repo.UpdateStatus(ctx, id, allowed, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel order")
		}
		if !ok {
			return invalidTransition(order.Status, ActionCancel)
		}
		if err := s.restoreStock(ctx, tx, order); err != nil {
			return err
		}
		if err := s.emit(ctx, tx, principal, enums.EventOrderCancelled, order.ID, payloads.OrderCancelledEvent{
			OrderID:     order.ID,
			CustomerID:  order.CustomerID,
			VendorID:    order.VendorID,
			CancelledBy: &actor,
			Reason:      strings.TrimSpace(reason),
			CancelledAt: now,
		}); err != nil {
			return err
		}
		updated, err = s.reload(ctx, repo, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncOrder(string(enums.OrderStatusCancelled))
	s.logInfo(ctx, id, "order.cancelled")
	return updated, nil
}

func (s *service) UpdateAddress(ctx context.Context, principal auth.Principal, id uuid.UUID, input AddressInput) (*models.Order, error) {
	if !principal.IsCustomer() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the ordering customer can change addresses")
	}
	if input.ShippingAddress == nil && input.BillingAddress == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping or billing address required")
	}
	var shipping, billing *types.Address
	if input.ShippingAddress != nil {
		normalized := input.ShippingAddress.Normalize()
		if err := validateAddress(normalized); err != nil {
			return nil, err
		}
		shipping = &normalized
	}
	if input.BillingAddress != nil {
		normalized := input.BillingAddress.Normalize()
		billing = &normalized
	}

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.loadScoped(ctx, repo, principal, id)
		if err != nil {
			return err
		}
		if order.Status != enums.OrderStatusPending {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "addresses can only change while the order is pending").WithDetails(map[string]any{
				"order_status": order.Status,
			})
		}
		ok, err := repo.UpdateAddresses(ctx, id, shipping, billing)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order address")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "addresses can only change while the order is pending")
		}
		updated, err = s.reload(ctx, repo, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) Delete(ctx context.Context, principal auth.Principal, id uuid.UUID) error {
	if !principal.IsAdmin() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only admins can delete orders")
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.loadScoped(ctx, repo, principal, id)
		if err != nil {
			return err
		}
		if order.Status != enums.OrderStatusCancelled {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "only cancelled orders can be deleted").WithDetails(map[string]any{
				"order_status": order.Status,
			})
		}
		ok, err := repo.Delete(ctx, id, enums.OrderStatusCancelled)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete order")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "only cancelled orders can be deleted")
		}
		return nil
	})
}

func (s *service) Load(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Order, error) {
	return s.reload(ctx, s.repo.WithTx(tx), id)
}

// MarkPaid records a captured payment. A pending order is confirmed in the
// same step; an already-paid order is returned unchanged.
func (s *service) MarkPaid(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Order, error) {
	repo := s.repo.WithTx(tx)
	order, err := s.reload(ctx, repo, id)
	if err != nil {
		return nil, err
	}
	if order.PaymentStatus == enums.OrderPaymentPaid {
		return order, nil
	}
	if order.Status == enums.OrderStatusCancelled {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidTransition, "cancelled orders cannot be paid")
	}
	ok, err := repo.UpdatePaymentStatus(ctx, id,
		[]enums.OrderPaymentStatus{enums.OrderPaymentPending, enums.OrderPaymentFailed},
		map[string]any{"payment_status": enums.OrderPaymentPaid})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order paid")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidTransition, "order payment status cannot move to paid").WithDetails(map[string]any{
			"payment_status": order.PaymentStatus,
		})
	}

	if order.Status == enums.OrderStatusPending {
		now := s.now().UTC()
		confirmed, err := repo.UpdateStatus(ctx, id, []enums.OrderStatus{enums.OrderStatusPending}, map[string]any{
			"order_status": enums.OrderStatusConfirmed,
			"confirmed_at": now,
		})
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "confirm paid order")
		}
		if confirmed {
			if err := s.emit(ctx, tx, auth.Principal{}, enums.EventOrderStatusChanged, id, payloads.OrderStatusChangedEvent{
				OrderID:     id,
				OrderNumber: order.OrderNumber,
				From:        enums.OrderStatusPending,
				To:          enums.OrderStatusConfirmed,
				ChangedAt:   now,
			}); err != nil {
				return nil, err
			}
			s.metrics.IncOrder(string(enums.OrderStatusConfirmed))
		}
	}
	return s.reload(ctx, repo, id)
}

func (s *service) MarkPaymentFailed(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	return s.movePaymentStatus(ctx, tx, id, enums.OrderPaymentPending, enums.OrderPaymentFailed)
}

func (s *service) MarkRefunded(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	return s.movePaymentStatus(ctx, tx, id, enums.OrderPaymentPaid, enums.OrderPaymentRefunded)
}

func (s *service) movePaymentStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, from, to enums.OrderPaymentStatus) error {
	repo := s.repo.WithTx(tx)
	ok, err := repo.UpdatePaymentStatus(ctx, id, []enums.OrderPaymentStatus{from}, map[string]any{"payment_status": to})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order payment status")
	}
	if ok {
		return nil
	}
	order, err := s.reload(ctx, repo, id)
	if err != nil {
		return err
	}
	if order.PaymentStatus == to {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeInvalidTransition, "order payment status cannot change").WithDetails(map[string]any{
		"payment_status": order.PaymentStatus,
		"target":         to,
	})
}

func (s *service) VendorOrderIDs(ctx context.Context, vendorID uuid.UUID) ([]uuid.UUID, error) {
	ids, err := s.repo.ListIDsByVendor(ctx, vendorID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list vendor orders")
	}
	return ids, nil
}

func (s *service) FindExpirable(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error) {
	rows, err := s.repo.FindExpirable(ctx, cutoff, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find expirable orders")
	}
	return rows, nil
}

// Expire cancels a stale unpaid pending order and restores its stock. It
// reports false when the order has moved on since it was selected.
func (s *service) Expire(ctx context.Context, id uuid.UUID) (bool, error) {
	expired := false
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.reload(ctx, repo, id)
		if err != nil {
			return err
		}
		now := s.now().UTC()
		ok, err := repo.Expire(ctx, id, map[string]any{
			"order_status":        enums.OrderStatusCancelled,
			"cancelled_at":        now,
			"cancellation_reason": expiredReason,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "expire order")
		}
		if !ok {
			return nil
		}
		if err := s.restoreStock(ctx, tx, order); err != nil {
			return err
		}
		expired = true
		return s.emit(ctx, tx, auth.Principal{}, enums.EventOrderExpired, id, payloads.OrderExpiredEvent{
			OrderID:    id,
			CustomerID: order.CustomerID,
			VendorID:   order.VendorID,
			ExpiredAt:  now,
		})
	})
	if err != nil {
		return false, err
	}
	if expired {
		s.metrics.IncOrder("expired")
		s.logInfo(ctx, id, "order.expired")
	}
	return expired, nil
}

func (s *service) restoreStock(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	for _, item := range order.LineItems {
		if err := s.catalog.RestoreStock(ctx, tx, item.ProductID, item.Quantity); err != nil {
			return err
		}
	}
	return nil
}

// loadScoped hides orders the principal does not own behind NOT_FOUND.
func (s *service) loadScoped(ctx context.Context, repo Repository, principal auth.Principal, id uuid.UUID) (*models.Order, error) {
	order, err := s.reload(ctx, repo, id)
	if err != nil {
		return nil, err
	}
	if !order.OwnedBy(principal.UserID, principal.Role) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

func (s *service) reload(ctx context.Context, repo Repository, id uuid.UUID) (*models.Order, error) {
	order, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, principal auth.Principal, eventType enums.OutboxEventType, orderID uuid.UUID, data any) error {
	event := outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateOrder,
		AggregateID:   orderID,
		Version:       1,
		Data:          data,
	}
	if principal.Valid() {
		event.Actor = &outbox.ActorRef{UserID: principal.UserID, Role: principal.Role}
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order event")
	}
	return nil
}

func (s *service) logInfo(ctx context.Context, orderID uuid.UUID, msg string) {
	if s.logg == nil {
		return
	}
	s.logg.Info(s.logg.WithOrderID(ctx, orderID.String()), msg)
}

func validateAddress(addr types.Address) error {
	missing := make([]string, 0)
	if addr.Name == "" {
		missing = append(missing, "name")
	}
	if addr.Line1 == "" {
		missing = append(missing, "line1")
	}
	if addr.City == "" {
		missing = append(missing, "city")
	}
	if addr.PostalCode == "" {
		missing = append(missing, "postal_code")
	}
	if len(missing) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "shipping address incomplete").WithDetails(map[string]any{"missing": missing})
	}
	return nil
}

func unavailable(productID uuid.UUID) error {
	return pkgerrors.New(pkgerrors.CodeProductUnavailable, "product unavailable").WithDetails(map[string]any{
		"product_id": productID,
	})
}

func outOfStock(productID uuid.UUID, requested, available int) error {
	return pkgerrors.New(pkgerrors.CodeOutOfStock, "insufficient stock").WithDetails(map[string]any{
		"product_id": productID,
		"requested":  requested,
		"available":  available,
	})
}

func invalidTransition(from enums.OrderStatus, action Action) error {
	return pkgerrors.New(pkgerrors.CodeInvalidTransition, fmt.Sprintf("cannot %s an order that is %s", action, from)).WithDetails(map[string]any{
		"order_status": from,
		"action":       action,
	})
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
