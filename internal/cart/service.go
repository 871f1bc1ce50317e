package cart

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/internal/catalog"
	"github.com/angelmondragon/bazaar-backend/pkg/auth"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
)

const maxLineQuantity = 1000

type productLoader interface {
	GetProduct(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Product, error)
}

// Service exposes the customer's cart.
type Service interface {
	ListItems(ctx context.Context, principal auth.Principal) ([]models.CartItem, error)
	AddItem(ctx context.Context, principal auth.Principal, productID uuid.UUID, qty int) (*models.CartItem, error)
	RemoveItem(ctx context.Context, principal auth.Principal, productID uuid.UUID) error
	// Items and Clear are used by checkout inside its own transaction.
	Items(ctx context.Context, tx *gorm.DB, customerID uuid.UUID) ([]models.CartItem, error)
	Clear(ctx context.Context, tx *gorm.DB, customerID uuid.UUID, productIDs []uuid.UUID) error
}

type service struct {
	repo     *Repository
	products productLoader
}

// NewService builds a cart service.
func NewService(repo *Repository, products productLoader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	return &service{repo: repo, products: products}, nil
}

func requireCustomer(principal auth.Principal) error {
	if !principal.IsCustomer() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only customers have a cart")
	}
	return nil
}

func (s *service) ListItems(ctx context.Context, principal auth.Principal) ([]models.CartItem, error) {
	if err := requireCustomer(principal); err != nil {
		return nil, err
	}
	return s.Items(ctx, nil, principal.UserID)
}

func (s *service) AddItem(ctx context.Context, principal auth.Principal, productID uuid.UUID, qty int) (*models.CartItem, error) {
	if err := requireCustomer(principal); err != nil {
		return nil, err
	}
	if qty <= 0 || qty > maxLineQuantity {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be between 1 and 1000")
	}
	product, err := s.products.GetProduct(ctx, nil, productID)
	if err != nil {
		if pkgerrors.CodeOf(err) == pkgerrors.CodeNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeProductUnavailable, "product unavailable").WithDetails(map[string]any{"product_id": productID})
		}
		return nil, err
	}
	if !catalog.Orderable(product) {
		return nil, pkgerrors.New(pkgerrors.CodeProductUnavailable, "product unavailable").WithDetails(map[string]any{"product_id": productID})
	}
	item := &models.CartItem{
		CustomerID: principal.UserID,
		ProductID:  productID,
		Quantity:   qty,
	}
	if err := s.repo.Upsert(ctx, item); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save cart item")
	}
	return item, nil
}

func (s *service) RemoveItem(ctx context.Context, principal auth.Principal, productID uuid.UUID) error {
	if err := requireCustomer(principal); err != nil {
		return err
	}
	removed, err := s.repo.Remove(ctx, principal.UserID, productID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove cart item")
	}
	if !removed {
		return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	}
	return nil
}

func (s *service) Items(ctx context.Context, tx *gorm.DB, customerID uuid.UUID) ([]models.CartItem, error) {
	items, err := s.repo.WithTx(tx).ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return items, nil
}

func (s *service) Clear(ctx context.Context, tx *gorm.DB, customerID uuid.UUID, productIDs []uuid.UUID) error {
	if err := s.repo.WithTx(tx).RemoveProducts(ctx, customerID, productIDs); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	return nil
}
