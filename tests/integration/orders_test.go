package integration

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/safar/go-storefront/internal/models"
	"github.com/safar/go-storefront/internal/store"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlaceOrderSnapshotsCart(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	admin := createAdmin(t, db, "admin@example.com")
	customer := createCustomer(t, db, "customer@example.com")
	product := createSneakers(t, db, admin)

	_, err := store.UpsertCartItem(ctx, db, customer.ID, product.ID, 2)
	require.NoError(t, err)

	shipping := json.RawMessage(`{"address":"1 Main St","city":"Springfield"}`)
	order, err := store.PlaceOrder(ctx, db, customer, shipping)
	require.NoError(t, err)

	assert.Equal(t, models.OrderStatusProcessing, order.Status)
	assert.True(t, order.Total.Equal(decimal.RequireFromString("119.98")),
		"expected total 119.98, got %s", order.Total)
	assert.Contains(t, order.OrderNumber, "ORD-")
	assert.JSONEq(t, string(shipping), string(order.Shipping))

	require.Len(t, order.Items, 1)
	item := order.Items[0]
	require.NotNil(t, item.ProductID)
	assert.Equal(t, product.ID, *item.ProductID)
	assert.Equal(t, 2, item.Quantity)
	assert.True(t, item.UnitPrice.Equal(decimal.RequireFromString("59.99")))

	// The cart is consumed by placement.
	cart, err := store.GetCart(ctx, db, customer.ID)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)

	// Stock was decremented by the ordered quantity.
	refreshed, err := store.GetActive(ctx, db, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 23, refreshed.Stock)
}

func TestOrderItemsKeepSnapshotAfterPriceChange(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	admin := createAdmin(t, db, "admin@example.com")
	customer := createCustomer(t, db, "customer@example.com")
	product := createSneakers(t, db, admin)

	_, err := store.UpsertCartItem(ctx, db, customer.ID, product.ID, 1)
	require.NoError(t, err)

	order, err := store.PlaceOrder(ctx, db, customer, nil)
	require.NoError(t, err)

	_, err = store.UpdateProduct(ctx, db, admin, product.ID, store.ProductInput{
		Price: decPtr("99.99"),
	})
	require.NoError(t, err)

	reloaded, err := store.GetOrder(ctx, db, customer, order.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.Items[0].UnitPrice.Equal(decimal.RequireFromString("59.99")),
		"order item price is a snapshot, not a live reference")
	assert.True(t, reloaded.Total.Equal(decimal.RequireFromString("59.99")))
}

func TestPlaceOrderEmptyCart(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	customer := createCustomer(t, db, "customer@example.com")

	_, err := store.PlaceOrder(context.Background(), db, customer, nil)
	assert.Equal(t, store.KindConflict, store.KindOf(err))
}

func TestPlaceOrderInsufficientStock(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	admin := createAdmin(t, db, "admin@example.com")
	customer := createCustomer(t, db, "customer@example.com")
	product := createSneakers(t, db, admin)

	_, err := store.UpsertCartItem(ctx, db, customer.ID, product.ID, 26)
	require.NoError(t, err)

	_, err = store.PlaceOrder(ctx, db, customer, nil)
	assert.Equal(t, store.KindConflict, store.KindOf(err))

	// The whole placement rolled back: no order exists, the cart survived
	// and stock is untouched.
	orders, err := store.ListOrders(ctx, db, customer)
	require.NoError(t, err)
	assert.Empty(t, orders)

	cart, err := store.GetCart(ctx, db, customer.ID)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 26, cart.Items[0].Quantity)

	refreshed, err := store.GetActive(ctx, db, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 25, refreshed.Stock)
}

func TestConcurrentPlacementProducesOneOrder(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	admin := createAdmin(t, db, "admin@example.com")
	customer := createCustomer(t, db, "customer@example.com")
	product := createSneakers(t, db, admin)

	_, err := store.UpsertCartItem(ctx, db, customer.ID, product.ID, 1)
	require.NoError(t, err)

	const attempts = 4
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = store.PlaceOrder(ctx, db, customer, nil)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.Equal(t, store.KindConflict, store.KindOf(err),
				"losing placements must see the already-emptied cart")
		}
	}
	assert.Equal(t, 1, succeeded, "the same cart must only convert once")

	orders, err := store.ListOrders(ctx, db, customer)
	require.NoError(t, err)
	assert.Len(t, orders, 1)

	refreshed, err := store.GetActive(ctx, db, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 24, refreshed.Stock, "stock decremented exactly once")
}

func TestListOrdersVisibility(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	admin := createAdmin(t, db, "admin@example.com")
	alice := createCustomer(t, db, "alice@example.com")
	bob := createCustomer(t, db, "bob@example.com")
	product := createSneakers(t, db, admin)

	for _, customer := range []models.Identity{alice, bob} {
		_, err := store.UpsertCartItem(ctx, db, customer.ID, product.ID, 1)
		require.NoError(t, err)
		_, err = store.PlaceOrder(ctx, db, customer, nil)
		require.NoError(t, err)
	}

	mine, err := store.ListOrders(ctx, db, alice)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, alice.ID, mine[0].UserID)

	all, err := store.ListOrders(ctx, db, admin)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.NotNil(t, all[0].User)
	assert.NotEmpty(t, all[0].User.Email, "admin listing carries buyer summaries")
}

func TestGetOrderAccess(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	admin := createAdmin(t, db, "admin@example.com")
	alice := createCustomer(t, db, "alice@example.com")
	bob := createCustomer(t, db, "bob@example.com")
	product := createSneakers(t, db, admin)

	_, err := store.UpsertCartItem(ctx, db, alice.ID, product.ID, 1)
	require.NoError(t, err)
	order, err := store.PlaceOrder(ctx, db, alice, nil)
	require.NoError(t, err)

	_, err = store.GetOrder(ctx, db, alice, order.ID)
	assert.NoError(t, err, "owner can read")

	_, err = store.GetOrder(ctx, db, admin, order.ID)
	assert.NoError(t, err, "admin can read")

	_, err = store.GetOrder(ctx, db, bob, order.ID)
	assert.Equal(t, store.KindForbidden, store.KindOf(err))

	_, err = store.GetOrder(ctx, db, alice, int64(99999))
	assert.Equal(t, store.KindNotFound, store.KindOf(err))
}

func TestSetOrderStatus(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	admin := createAdmin(t, db, "admin@example.com")
	customer := createCustomer(t, db, "customer@example.com")
	product := createSneakers(t, db, admin)

	_, err := store.UpsertCartItem(ctx, db, customer.ID, product.ID, 1)
	require.NoError(t, err)
	order, err := store.PlaceOrder(ctx, db, customer, nil)
	require.NoError(t, err)

	_, err = store.SetOrderStatus(ctx, db, customer, order.ID, models.OrderStatusShipped)
	assert.Equal(t, store.KindForbidden, store.KindOf(err), "customers cannot change status")

	_, err = store.SetOrderStatus(ctx, db, admin, order.ID, "TELEPORTED")
	assert.Equal(t, store.KindValidation, store.KindOf(err))

	updated, err := store.SetOrderStatus(ctx, db, admin, order.ID, models.OrderStatusShipped)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusShipped, updated.Status)

	_, err = store.SetOrderStatus(ctx, db, admin, int64(99999), models.OrderStatusShipped)
	assert.Equal(t, store.KindNotFound, store.KindOf(err))
}

func TestHardDeleteKeepsOrderSnapshot(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	admin := createAdmin(t, db, "admin@example.com")
	customer := createCustomer(t, db, "customer@example.com")
	product := createSneakers(t, db, admin)

	_, err := store.UpsertCartItem(ctx, db, customer.ID, product.ID, 1)
	require.NoError(t, err)
	order, err := store.PlaceOrder(ctx, db, customer, nil)
	require.NoError(t, err)

	require.NoError(t, store.HardDeleteProduct(ctx, db, admin, product.ID))

	reloaded, err := store.GetOrder(ctx, db, customer, order.ID)
	require.NoError(t, err)
	require.Len(t, reloaded.Items, 1)
	assert.Nil(t, reloaded.Items[0].ProductID, "deleted product leaves a nulled reference")
	assert.True(t, reloaded.Items[0].UnitPrice.Equal(decimal.RequireFromString("59.99")),
		"the price snapshot outlives the product")
}
