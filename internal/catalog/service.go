package catalog

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
	"github.com/angelmondragon/bazaar-backend/pkg/money"
)

// Reader is the catalog surface the order engine depends on. Every method
// honours the transaction passed in tx, or the base connection when tx is nil.
type Reader interface {
	GetProduct(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Product, error)
	GetProducts(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) (map[uuid.UUID]models.Product, error)
	DecrementStock(ctx context.Context, tx *gorm.DB, id uuid.UUID, qty int) (bool, error)
	RestoreStock(ctx context.Context, tx *gorm.DB, id uuid.UUID, qty int) error
	GetCoupon(ctx context.Context, tx *gorm.DB, code string) (*models.Coupon, error)
}

type Service struct {
	repo *Repository
	logg *logger.Logger
	now  func() time.Time
}

func NewService(repo *Repository, logg *logger.Logger) *Service {
	return &Service{repo: repo, logg: logg, now: time.Now}
}

func (s *Service) repoFor(tx *gorm.DB) *Repository {
	return s.repo.WithTx(tx)
}

// GetProduct returns NOT_FOUND for unknown ids.
func (s *Service) GetProduct(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Product, error) {
	product, err := s.repoFor(tx).FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if product == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return product, nil
}

// GetProducts loads ids in one query. Unknown ids are simply absent from the map.
func (s *Service) GetProducts(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) (map[uuid.UUID]models.Product, error) {
	products, err := s.repoFor(tx).FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
	}
	return products, nil
}

func (s *Service) DecrementStock(ctx context.Context, tx *gorm.DB, id uuid.UUID, qty int) (bool, error) {
	if qty <= 0 {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	ok, err := s.repoFor(tx).DecrementStock(ctx, id, qty)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement stock")
	}
	return ok, nil
}

func (s *Service) RestoreStock(ctx context.Context, tx *gorm.DB, id uuid.UUID, qty int) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	ok, err := s.repoFor(tx).RestoreStock(ctx, id, qty)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "restore stock")
	}
	if !ok && s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{"product_id": id.String(), "qty": qty})
		s.logg.Warn(logCtx, "stock restore skipped for missing product")
	}
	return nil
}

// AdjustStock is the admin correction path. A delta that would push stock
// below zero is rejected without touching the row.
func (s *Service) AdjustStock(ctx context.Context, id uuid.UUID, delta int) (*models.Product, error) {
	if delta == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delta must not be zero")
	}
	ok, err := s.repo.AdjustStock(ctx, id, delta)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "adjust stock")
	}
	product, err := s.GetProduct(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock cannot go negative").WithDetails(map[string]any{
			"product_id": id,
			"available":  product.Stock,
			"delta":      delta,
		})
	}
	return product, nil
}

// GetCoupon returns an active, unexpired coupon or VALIDATION_ERROR.
func (s *Service) GetCoupon(ctx context.Context, tx *gorm.DB, code string) (*models.Coupon, error) {
	coupon, err := s.repoFor(tx).FindCouponByCode(ctx, code)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load coupon")
	}
	if coupon == nil || !coupon.Active {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon is not valid").WithDetails(map[string]any{"coupon_code": code})
	}
	if coupon.ExpiresAt != nil && !coupon.ExpiresAt.After(s.now()) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon has expired").WithDetails(map[string]any{"coupon_code": code})
	}
	return coupon, nil
}

// CouponDiscount returns the discount a coupon grants on subtotal, never more than subtotal.
func CouponDiscount(coupon *models.Coupon, subtotalMinor int64) int64 {
	if coupon == nil || subtotalMinor <= 0 {
		return 0
	}
	discount := money.ApplyBps(subtotalMinor, coupon.PercentOffBps)
	if coupon.MaxDiscountMinor != nil && discount > *coupon.MaxDiscountMinor {
		discount = *coupon.MaxDiscountMinor
	}
	if discount > subtotalMinor {
		discount = subtotalMinor
	}
	return discount
}

// Orderable reports whether the product can be placed on an order.
func Orderable(p *models.Product) bool {
	return p != nil && p.Status == enums.ProductStatusActive
}
