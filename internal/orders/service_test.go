package orders

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/internal/cart"
	"github.com/angelmondragon/bazaar-backend/internal/catalog"
	"github.com/angelmondragon/bazaar-backend/pkg/auth"
	"github.com/angelmondragon/bazaar-backend/pkg/config"
	"github.com/angelmondragon/bazaar-backend/pkg/db"
	"github.com/angelmondragon/bazaar-backend/pkg/db/dbtest"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/outbox"
	"github.com/angelmondragon/bazaar-backend/pkg/pagination"
	"github.com/angelmondragon/bazaar-backend/pkg/types"
)

var testPricing = config.PricingConfig{
	TaxRateBps:            1800,
	FreeShippingThreshold: 50000,
	FlatShippingFee:       5000,
}

type orderFixture struct {
	client  *db.Client
	svc     Service
	cart    cart.Service
	catalog *catalog.Repository
	outbox  *outbox.Repository
	vendor  auth.Principal
	buyer   auth.Principal
	admin   auth.Principal
}

func newOrderFixture(t *testing.T) *orderFixture {
	t.Helper()
	client := dbtest.Open(t)
	catalogRepo := catalog.NewRepository(client.DB())
	catalogSvc := catalog.NewService(catalogRepo, nil)
	cartSvc, err := cart.NewService(cart.NewRepository(client.DB()), catalogSvc)
	require.NoError(t, err)
	outboxRepo := outbox.NewRepository(client.DB())

	svc, err := NewService(ServiceParams{
		Repo:     NewRepository(client.DB()),
		Tx:       client,
		Catalog:  catalogSvc,
		Cart:     cartSvc,
		Outbox:   outbox.NewService(outboxRepo, nil),
		Pricing:  testPricing,
		Currency: "inr",
	})
	require.NoError(t, err)

	return &orderFixture{
		client:  client,
		svc:     svc,
		cart:    cartSvc,
		catalog: catalogRepo,
		outbox:  outboxRepo,
		vendor:  auth.Principal{UserID: uuid.New(), Role: enums.RoleVendor},
		buyer:   auth.Principal{UserID: uuid.New(), Role: enums.RoleCustomer},
		admin:   auth.Principal{UserID: uuid.New(), Role: enums.RoleAdmin},
	}
}

func (f *orderFixture) product(t *testing.T, vendorID uuid.UUID, priceMinor int64, stock int) *models.Product {
	t.Helper()
	product, err := f.catalog.CreateProduct(context.Background(), &models.Product{
		VendorID:   vendorID,
		SKU:        "SKU-" + uuid.NewString()[:8],
		Name:       "Handloom Shawl",
		PriceMinor: priceMinor,
		Stock:      stock,
		Status:     enums.ProductStatusActive,
	})
	require.NoError(t, err)
	return product
}

func (f *orderFixture) stockOf(t *testing.T, id uuid.UUID) int {
	t.Helper()
	product, err := f.catalog.FindByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, product)
	return product.Stock
}

func (f *orderFixture) place(t *testing.T, buyer auth.Principal, productID uuid.UUID, qty int) *models.Order {
	t.Helper()
	created, err := f.svc.CreateFromCart(context.Background(), buyer, CreateInput{
		Items:           []LineInput{{ProductID: productID, Quantity: qty}},
		ShippingAddress: testAddress("Meera Nair"),
	})
	require.NoError(t, err)
	require.Len(t, created, 1)
	return &created[0]
}

func (f *orderFixture) markPaid(t *testing.T, id uuid.UUID) {
	t.Helper()
	err := f.client.WithTx(context.Background(), func(tx *gorm.DB) error {
		_, err := f.svc.MarkPaid(context.Background(), tx, id)
		return err
	})
	require.NoError(t, err)
}

func testAddress(name string) types.Address {
	return types.Address{
		Name:       name,
		Phone:      "+919800000000",
		Line1:      "12 MG Road",
		City:       "Bengaluru",
		State:      "KA",
		PostalCode: "560001",
	}
}

func TestCreateFromCartPricesOrderAndReservesStock(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	product := f.product(t, f.vendor.UserID, 100000, 10)

	_, err := f.cart.AddItem(ctx, f.buyer, product.ID, 2)
	require.NoError(t, err)

	created, err := f.svc.CreateFromCart(ctx, f.buyer, CreateInput{ShippingAddress: testAddress("Meera Nair")})
	require.NoError(t, err)
	require.Len(t, created, 1)

	order := created[0]
	require.Equal(t, int64(200000), order.SubtotalMinor)
	require.Equal(t, int64(36000), order.TaxMinor)
	require.Equal(t, int64(0), order.ShippingFeeMinor)
	require.Equal(t, int64(236000), order.TotalMinor)
	require.Equal(t, "INR", order.Currency)
	require.Equal(t, enums.OrderStatusPending, order.Status)
	require.Equal(t, enums.OrderPaymentPending, order.PaymentStatus)
	require.Regexp(t, `^ORD\d{17}$`, order.OrderNumber)
	require.Len(t, order.LineItems, 1)
	require.Equal(t, int64(100000), order.LineItems[0].UnitPriceMinor)

	require.Equal(t, 8, f.stockOf(t, product.ID))

	items, err := f.cart.ListItems(ctx, f.buyer)
	require.NoError(t, err)
	require.Empty(t, items)

	events, err := f.outbox.ListByAggregate(ctx, enums.AggregateOrder, order.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, enums.EventOrderCreated, events[0].EventType)
}

func TestCreateFromCartOutOfStockLeavesNoTrace(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	product := f.product(t, f.vendor.UserID, 100000, 10)

	_, err := f.svc.CreateFromCart(ctx, f.buyer, CreateInput{
		Items:           []LineInput{{ProductID: product.ID, Quantity: 20}},
		ShippingAddress: testAddress("Meera Nair"),
	})
	require.Equal(t, pkgerrors.CodeOutOfStock, pkgerrors.CodeOf(err))
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	details, ok := typed.Details().(map[string]any)
	require.True(t, ok)
	require.Equal(t, 20, details["requested"])
	require.Equal(t, 10, details["available"])

	require.Equal(t, 10, f.stockOf(t, product.ID))
	var count int64
	require.NoError(t, f.client.DB().Model(&models.Order{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestCreateFromCartRollsBackEarlierVendorsOnFailure(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	first := f.product(t, f.vendor.UserID, 1000, 5)
	draft, err := f.catalog.CreateProduct(ctx, &models.Product{VendorID: uuid.New(), SKU: "DRAFT", Name: "Draft", PriceMinor: 100, Stock: 5, Status: enums.ProductStatusDraft})
	require.NoError(t, err)

	_, err = f.svc.CreateFromCart(ctx, f.buyer, CreateInput{
		Items:           []LineInput{{ProductID: first.ID, Quantity: 1}, {ProductID: draft.ID, Quantity: 1}},
		ShippingAddress: testAddress("Meera Nair"),
	})
	require.Equal(t, pkgerrors.CodeProductUnavailable, pkgerrors.CodeOf(err))
	require.Equal(t, 5, f.stockOf(t, first.ID))
}

func TestCreateFromCartSplitsByVendor(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	otherVendor := uuid.New()
	a := f.product(t, f.vendor.UserID, 10000, 5)
	b := f.product(t, f.vendor.UserID, 5000, 5)
	c := f.product(t, otherVendor, 20000, 5)

	created, err := f.svc.CreateFromCart(ctx, f.buyer, CreateInput{
		Items: []LineInput{
			{ProductID: a.ID, Quantity: 1},
			{ProductID: c.ID, Quantity: 1},
			{ProductID: b.ID, Quantity: 2},
			{ProductID: a.ID, Quantity: 1},
		},
		ShippingAddress: testAddress("Meera Nair"),
	})
	require.NoError(t, err)
	require.Len(t, created, 2)

	require.Equal(t, f.vendor.UserID, created[0].VendorID)
	require.Len(t, created[0].LineItems, 2)
	require.Equal(t, int64(30000), created[0].SubtotalMinor)
	require.Equal(t, int64(5000), created[0].ShippingFeeMinor)
	require.Equal(t, int64(30000+5400+5000), created[0].TotalMinor)

	require.Equal(t, otherVendor, created[1].VendorID)
	require.NotEqual(t, created[0].OrderNumber, created[1].OrderNumber)

	require.Equal(t, 3, f.stockOf(t, a.ID))
	require.Equal(t, 3, f.stockOf(t, b.ID))
	require.Equal(t, 4, f.stockOf(t, c.ID))
}

func TestCreateFromCartAppliesCoupon(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	product := f.product(t, f.vendor.UserID, 100000, 5)
	maxDiscount := int64(15000)
	_, err := f.catalog.CreateCoupon(ctx, &models.Coupon{Code: "DIWALI10", PercentOffBps: 1000, MaxDiscountMinor: &maxDiscount, Active: true})
	require.NoError(t, err)

	code := "diwali10"
	created, err := f.svc.CreateFromCart(ctx, f.buyer, CreateInput{
		Items:           []LineInput{{ProductID: product.ID, Quantity: 2}},
		ShippingAddress: testAddress("Meera Nair"),
		CouponCode:      &code,
	})
	require.NoError(t, err)
	require.Equal(t, int64(15000), created[0].DiscountMinor)
	require.Equal(t, int64(200000+36000-15000), created[0].TotalMinor)
	require.Equal(t, "DIWALI10", *created[0].CouponCode)

	bogus := "NOPE"
	_, err = f.svc.CreateFromCart(ctx, f.buyer, CreateInput{
		Items:           []LineInput{{ProductID: product.ID, Quantity: 1}},
		ShippingAddress: testAddress("Meera Nair"),
		CouponCode:      &bogus,
	})
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}

func TestCreateFromCartValidation(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateFromCart(ctx, f.vendor, CreateInput{ShippingAddress: testAddress("V")})
	require.Equal(t, pkgerrors.CodeForbidden, pkgerrors.CodeOf(err))

	_, err = f.svc.CreateFromCart(ctx, f.buyer, CreateInput{ShippingAddress: testAddress("Meera Nair")})
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))

	_, err = f.svc.CreateFromCart(ctx, f.buyer, CreateInput{
		Items:           []LineInput{{ProductID: uuid.New(), Quantity: 1}},
		ShippingAddress: types.Address{Name: "Meera Nair"},
	})
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))

	_, err = f.svc.CreateFromCart(ctx, f.buyer, CreateInput{
		Items:           []LineInput{{ProductID: uuid.New(), Quantity: 1}},
		ShippingAddress: testAddress("Meera Nair"),
	})
	require.Equal(t, pkgerrors.CodeProductUnavailable, pkgerrors.CodeOf(err))
}

func TestConcurrentCheckoutsNeverOversell(t *testing.T) {
	f := newOrderFixture(t)
	const stock = 5
	product := f.product(t, f.vendor.UserID, 1000, stock)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			buyer := auth.Principal{UserID: uuid.New(), Role: enums.RoleCustomer}
			_, errs[i] = f.svc.CreateFromCart(context.Background(), buyer, CreateInput{
				Items:           []LineInput{{ProductID: product.ID, Quantity: stock}},
				ShippingAddress: testAddress("Buyer"),
			})
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
			continue
		}
		require.Equal(t, pkgerrors.CodeOutOfStock, pkgerrors.CodeOf(err))
	}
	require.Equal(t, 1, successes)
	require.Equal(t, 0, f.stockOf(t, product.ID))
}

func TestCustomerCancelRestoresStock(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	product := f.product(t, f.vendor.UserID, 1000, 10)
	order := f.place(t, f.buyer, product.ID, 3)
	require.Equal(t, 7, f.stockOf(t, product.ID))

	cancelled, err := f.svc.Cancel(ctx, f.buyer, order.ID, "changed my mind")
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelledAt)
	require.Equal(t, f.buyer.UserID, *cancelled.CancelledBy)
	require.Equal(t, "changed my mind", *cancelled.CancellationReason)
	require.Equal(t, 10, f.stockOf(t, product.ID))

	_, err = f.svc.Cancel(ctx, f.buyer, order.ID, "again")
	require.Equal(t, pkgerrors.CodeInvalidTransition, pkgerrors.CodeOf(err))
	require.Equal(t, 10, f.stockOf(t, product.ID))
}

func TestCustomerCannotCancelConfirmedOrder(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	product := f.product(t, f.vendor.UserID, 1000, 10)
	order := f.place(t, f.buyer, product.ID, 1)

	_, err := f.svc.Confirm(ctx, f.vendor, order.ID)
	require.NoError(t, err)

	_, err = f.svc.Cancel(ctx, f.buyer, order.ID, "")
	require.Equal(t, pkgerrors.CodeInvalidTransition, pkgerrors.CodeOf(err))

	_, err = f.svc.Process(ctx, f.vendor, order.ID)
	require.NoError(t, err)
	cancelled, err := f.svc.Cancel(ctx, f.vendor, order.ID, "damaged in warehouse")
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusCancelled, cancelled.Status)
	require.Equal(t, 10, f.stockOf(t, product.ID))
}

func TestVendorCannotDeliverPendingOrder(t *testing.T) {
	f := newOrderFixture(t)
	product := f.product(t, f.vendor.UserID, 1000, 10)
	order := f.place(t, f.buyer, product.ID, 1)

	_, err := f.svc.Deliver(context.Background(), f.vendor, order.ID)
	require.Equal(t, pkgerrors.CodeInvalidTransition, pkgerrors.CodeOf(err))

	stored, err := f.svc.Get(context.Background(), f.vendor, order.ID)
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusPending, stored.Status)
	require.Nil(t, stored.DeliveredAt)
}

func TestFulfilmentLifecycle(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	product := f.product(t, f.vendor.UserID, 1000, 10)
	order := f.place(t, f.buyer, product.ID, 1)

	_, err := f.svc.Confirm(ctx, f.buyer, order.ID)
	require.Equal(t, pkgerrors.CodeForbidden, pkgerrors.CodeOf(err))

	stranger := auth.Principal{UserID: uuid.New(), Role: enums.RoleVendor}
	_, err = f.svc.Confirm(ctx, stranger, order.ID)
	require.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))

	confirmed, err := f.svc.Confirm(ctx, f.vendor, order.ID)
	require.NoError(t, err)
	require.NotNil(t, confirmed.ConfirmedAt)

	_, err = f.svc.Confirm(ctx, f.vendor, order.ID)
	require.Equal(t, pkgerrors.CodeInvalidTransition, pkgerrors.CodeOf(err))

	_, err = f.svc.Process(ctx, f.admin, order.ID)
	require.NoError(t, err)

	carrier := "BlueDart"
	tracking := " BD123456 "
	shipped, err := f.svc.Ship(ctx, f.vendor, order.ID, ShipInput{Carrier: &carrier, TrackingNumber: &tracking})
	require.NoError(t, err)
	require.Equal(t, "BD123456", *shipped.TrackingNumber)
	require.NotNil(t, shipped.ShippedAt)

	_, err = f.svc.Deliver(ctx, f.vendor, order.ID)
	require.Equal(t, pkgerrors.CodeInvalidTransition, pkgerrors.CodeOf(err))

	f.markPaid(t, order.ID)
	delivered, err := f.svc.Deliver(ctx, f.vendor, order.ID)
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusDelivered, delivered.Status)
	require.NotNil(t, delivered.DeliveredAt)

	_, err = f.svc.Cancel(ctx, f.admin, order.ID, "late")
	require.Equal(t, pkgerrors.CodeInvalidTransition, pkgerrors.CodeOf(err))

	events, err := f.outbox.ListByAggregate(ctx, enums.AggregateOrder, order.ID)
	require.NoError(t, err)
	require.Len(t, events, 5)
}

func TestMarkPaidConfirmsPendingOrderOnce(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	product := f.product(t, f.vendor.UserID, 1000, 10)
	order := f.place(t, f.buyer, product.ID, 1)

	f.markPaid(t, order.ID)
	f.markPaid(t, order.ID)

	stored, err := f.svc.Get(ctx, f.buyer, order.ID)
	require.NoError(t, err)
	require.Equal(t, enums.OrderPaymentPaid, stored.PaymentStatus)
	require.Equal(t, enums.OrderStatusConfirmed, stored.Status)
	require.NotNil(t, stored.ConfirmedAt)

	err = f.client.WithTx(ctx, func(tx *gorm.DB) error {
		return f.svc.MarkRefunded(ctx, tx, order.ID)
	})
	require.NoError(t, err)
	stored, err = f.svc.Get(ctx, f.buyer, order.ID)
	require.NoError(t, err)
	require.Equal(t, enums.OrderPaymentRefunded, stored.PaymentStatus)

	err = f.client.WithTx(ctx, func(tx *gorm.DB) error {
		return f.svc.MarkPaymentFailed(ctx, tx, order.ID)
	})
	require.Equal(t, pkgerrors.CodeInvalidTransition, pkgerrors.CodeOf(err))
}

func TestUpdateAddressOnlyWhilePending(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	product := f.product(t, f.vendor.UserID, 1000, 10)
	order := f.place(t, f.buyer, product.ID, 1)

	moved := testAddress("Arjun Rao")
	moved.City = "Mysuru"
	updated, err := f.svc.UpdateAddress(ctx, f.buyer, order.ID, AddressInput{ShippingAddress: &moved})
	require.NoError(t, err)
	require.Equal(t, "Mysuru", updated.ShippingAddress.City)
	require.Equal(t, "Arjun Rao", updated.RecipientName)

	_, err = f.svc.UpdateAddress(ctx, f.vendor, order.ID, AddressInput{ShippingAddress: &moved})
	require.Equal(t, pkgerrors.CodeForbidden, pkgerrors.CodeOf(err))

	_, err = f.svc.Confirm(ctx, f.vendor, order.ID)
	require.NoError(t, err)
	_, err = f.svc.UpdateAddress(ctx, f.buyer, order.ID, AddressInput{ShippingAddress: &moved})
	require.Equal(t, pkgerrors.CodeInvalidTransition, pkgerrors.CodeOf(err))
}

func TestDeleteRequiresAdminAndCancelledOrder(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	product := f.product(t, f.vendor.UserID, 1000, 10)
	order := f.place(t, f.buyer, product.ID, 1)

	require.Equal(t, pkgerrors.CodeForbidden, pkgerrors.CodeOf(f.svc.Delete(ctx, f.vendor, order.ID)))
	require.Equal(t, pkgerrors.CodeInvalidTransition, pkgerrors.CodeOf(f.svc.Delete(ctx, f.admin, order.ID)))

	_, err := f.svc.Cancel(ctx, f.buyer, order.ID, "")
	require.NoError(t, err)
	require.NoError(t, f.svc.Delete(ctx, f.admin, order.ID))

	_, err = f.svc.Get(ctx, f.admin, order.ID)
	require.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
	var items int64
	require.NoError(t, f.client.DB().Model(&models.OrderLineItem{}).Where("order_id = ?", order.ID).Count(&items).Error)
	require.Zero(t, items)
}

func TestListAppliesRoleScopeAndFilters(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	otherBuyer := auth.Principal{UserID: uuid.New(), Role: enums.RoleCustomer}
	product := f.product(t, f.vendor.UserID, 1000, 50)

	first := f.place(t, f.buyer, product.ID, 1)
	f.place(t, f.buyer, product.ID, 1)
	f.place(t, otherBuyer, product.ID, 1)
	_, err := f.svc.Confirm(ctx, f.vendor, first.ID)
	require.NoError(t, err)

	mine, err := f.svc.List(ctx, f.buyer, ListFilters{}, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, mine.Orders, 2)

	vendorView, err := f.svc.List(ctx, f.vendor, ListFilters{}, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, vendorView.Orders, 3)

	confirmed := enums.OrderStatusConfirmed
	filtered, err := f.svc.List(ctx, f.admin, ListFilters{Status: &confirmed}, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, filtered.Orders, 1)
	require.Equal(t, first.ID, filtered.Orders[0].ID)

	byNumber, err := f.svc.List(ctx, f.admin, ListFilters{Query: first.OrderNumber[3:]}, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, byNumber.Orders, 1)

	byName, err := f.svc.List(ctx, f.admin, ListFilters{Query: "meera"}, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, byName.Orders, 3)

	for _, wildcard := range []string{"%", "_", "me_ra", `\`} {
		none, err := f.svc.List(ctx, f.admin, ListFilters{Query: wildcard}, pagination.Params{})
		require.NoError(t, err)
		require.Emptyf(t, none.Orders, "query %q should match literally", wildcard)
	}

	page, err := f.svc.List(ctx, f.vendor, ListFilters{}, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Orders, 2)
	require.NotEmpty(t, page.NextCursor)
	rest, err := f.svc.List(ctx, f.vendor, ListFilters{}, pagination.Params{Limit: 2, Cursor: page.NextCursor})
	require.NoError(t, err)
	require.Len(t, rest.Orders, 1)
	require.Empty(t, rest.NextCursor)

	_, err = f.svc.List(ctx, f.vendor, ListFilters{}, pagination.Params{Cursor: "%%%"})
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}

func TestExpireCancelsStaleUnpaidOrders(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	product := f.product(t, f.vendor.UserID, 1000, 10)
	stale := f.place(t, f.buyer, product.ID, 2)
	paid := f.place(t, f.buyer, product.ID, 1)
	f.markPaid(t, paid.ID)

	cutoff := time.Now().UTC().Add(time.Minute)
	candidates, err := f.svc.FindExpirable(ctx, cutoff, 10)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	require.Equal(t, stale.ID, candidates[0].ID)

	expired, err := f.svc.Expire(ctx, stale.ID)
	require.NoError(t, err)
	require.True(t, expired)
	require.Equal(t, 9, f.stockOf(t, product.ID))

	again, err := f.svc.Expire(ctx, stale.ID)
	require.NoError(t, err)
	require.False(t, again)
	require.Equal(t, 9, f.stockOf(t, product.ID))

	stored, err := f.svc.Get(ctx, f.admin, stale.ID)
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusCancelled, stored.Status)
	require.Equal(t, "expired", *stored.CancellationReason)
	require.Nil(t, stored.CancelledBy)
}

func TestPrice(t *testing.T) {
	cases := []struct {
		name     string
		subtotal int64
		discount int64
		want     Totals
	}{
		{"free shipping above threshold", 200000, 0, Totals{200000, 36000, 0, 0, 236000}},
		{"threshold itself pays shipping", 50000, 0, Totals{50000, 9000, 5000, 0, 64000}},
		{"discount capped at subtotal", 1000, 5000, Totals{1000, 180, 5000, 1000, 5180}},
		{"rounding half up", 1003, 0, Totals{1003, 181, 5000, 0, 6184}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, Price(testPricing, tc.subtotal, tc.discount))
		})
	}
}

func TestCanApplyCoversEveryTransition(t *testing.T) {
	type move struct {
		action Action
		role   enums.Role
		from   enums.OrderStatus
	}
	allowed := map[move]bool{
		{ActionConfirm, enums.RoleVendor, enums.OrderStatusPending}:   true,
		{ActionConfirm, enums.RoleAdmin, enums.OrderStatusPending}:    true,
		{ActionProcess, enums.RoleVendor, enums.OrderStatusConfirmed}: true,
		{ActionProcess, enums.RoleAdmin, enums.OrderStatusConfirmed}:  true,
		{ActionShip, enums.RoleVendor, enums.OrderStatusProcessing}:   true,
		{ActionShip, enums.RoleAdmin, enums.OrderStatusProcessing}:    true,
		{ActionDeliver, enums.RoleVendor, enums.OrderStatusShipped}:   true,
		{ActionDeliver, enums.RoleAdmin, enums.OrderStatusShipped}:    true,
		{ActionCancel, enums.RoleCustomer, enums.OrderStatusPending}:  true,
		{ActionCancel, enums.RoleVendor, enums.OrderStatusPending}:    true,
		{ActionCancel, enums.RoleVendor, enums.OrderStatusConfirmed}:  true,
		{ActionCancel, enums.RoleVendor, enums.OrderStatusProcessing}: true,
		{ActionCancel, enums.RoleAdmin, enums.OrderStatusPending}:     true,
		{ActionCancel, enums.RoleAdmin, enums.OrderStatusConfirmed}:   true,
		{ActionCancel, enums.RoleAdmin, enums.OrderStatusProcessing}:  true,
	}

	statuses := []enums.OrderStatus{
		enums.OrderStatusPending,
		enums.OrderStatusConfirmed,
		enums.OrderStatusProcessing,
		enums.OrderStatusShipped,
		enums.OrderStatusDelivered,
		enums.OrderStatusCancelled,
	}
	actions := []Action{ActionConfirm, ActionProcess, ActionShip, ActionDeliver, ActionCancel}
	roles := []enums.Role{enums.RoleCustomer, enums.RoleVendor, enums.RoleAdmin}

	checked := 0
	for _, status := range statuses {
		for _, action := range actions {
			for _, role := range roles {
				m := move{action, role, status}
				require.Equalf(t, allowed[m], CanApply(action, role, status), "%s by %s from %s", action, role, status)
				checked++
			}
		}
	}
	require.Equal(t, 90, checked)

	for _, status := range []enums.OrderStatus{enums.OrderStatusShipped, enums.OrderStatusDelivered, enums.OrderStatusCancelled} {
		for _, role := range roles {
			require.Falsef(t, CanApply(ActionCancel, role, status), "cancel by %s from %s", role, status)
		}
	}
	require.False(t, CanApply(ActionConfirm, enums.Role("auditor"), enums.OrderStatusPending))
}
