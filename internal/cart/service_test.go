package cart

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/bazaar-backend/internal/catalog"
	"github.com/angelmondragon/bazaar-backend/pkg/auth"
	"github.com/angelmondragon/bazaar-backend/pkg/db/dbtest"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
)

func newCartFixture(t *testing.T) (Service, *catalog.Repository) {
	t.Helper()
	client := dbtest.Open(t)
	catalogRepo := catalog.NewRepository(client.DB())
	svc, err := NewService(NewRepository(client.DB()), catalog.NewService(catalogRepo, nil))
	require.NoError(t, err)
	return svc, catalogRepo
}

func TestAddItemUpsertsQuantity(t *testing.T) {
	svc, catalogRepo := newCartFixture(t)
	ctx := context.Background()
	customer := auth.Principal{UserID: uuid.New(), Role: enums.RoleCustomer}
	product, err := catalogRepo.CreateProduct(ctx, &models.Product{VendorID: uuid.New(), SKU: "TEA-1", Name: "Assam Tea", PriceMinor: 45000, Stock: 5, Status: enums.ProductStatusActive})
	require.NoError(t, err)

	_, err = svc.AddItem(ctx, customer, product.ID, 2)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, customer, product.ID, 3)
	require.NoError(t, err)

	items, err := svc.ListItems(ctx, customer)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, 3, items[0].Quantity)

	require.NoError(t, svc.RemoveItem(ctx, customer, product.ID))
	err = svc.RemoveItem(ctx, customer, product.ID)
	require.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
}

func TestAddItemRejectsUnavailableProducts(t *testing.T) {
	svc, catalogRepo := newCartFixture(t)
	ctx := context.Background()
	customer := auth.Principal{UserID: uuid.New(), Role: enums.RoleCustomer}
	draft, err := catalogRepo.CreateProduct(ctx, &models.Product{VendorID: uuid.New(), SKU: "D-1", Name: "Draft", PriceMinor: 100, Stock: 5, Status: enums.ProductStatusDraft})
	require.NoError(t, err)

	_, err = svc.AddItem(ctx, customer, draft.ID, 1)
	require.Equal(t, pkgerrors.CodeProductUnavailable, pkgerrors.CodeOf(err))

	_, err = svc.AddItem(ctx, customer, uuid.New(), 1)
	require.Equal(t, pkgerrors.CodeProductUnavailable, pkgerrors.CodeOf(err))

	_, err = svc.AddItem(ctx, customer, draft.ID, 0)
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}

func TestCartIsCustomerOnly(t *testing.T) {
	svc, _ := newCartFixture(t)
	vendor := auth.Principal{UserID: uuid.New(), Role: enums.RoleVendor}
	_, err := svc.ListItems(context.Background(), vendor)
	require.Equal(t, pkgerrors.CodeForbidden, pkgerrors.CodeOf(err))
}
