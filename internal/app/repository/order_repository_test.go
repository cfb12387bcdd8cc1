package repository

import (
	"context"
	"testing"
	"time"

	"github.com/hairpin-store/hairpin-backend/internal/app/model"
	"github.com/hairpin-store/hairpin-backend/internal/db"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupOrderTest(t *testing.T) (*gorm.DB, OrderRepository, *model.User, *model.Product) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })

	user := &model.User{Email: "buyer@example.com", PasswordHash: "hash", Name: "Buyer"}
	require.NoError(t, testDB.Create(user).Error)
	product := createTestProduct(t, NewProductRepository(testDB), "HP-1", "Pearl Pin", "12.50", 10)

	return testDB, NewOrderRepository(testDB), user, product
}

func newTestOrder(userID uint, product *model.Product, number string, key *string) *model.Order {
	line := decimal.RequireFromString("25.00")
	return &model.Order{
		OrderNumber:     number,
		UserID:          userID,
		IdempotencyKey:  key,
		Status:          model.OrderStatusPending,
		Subtotal:        line,
		ShippingCost:    decimal.Zero,
		Tax:             decimal.Zero,
		Total:           line,
		Currency:        "USD",
		ShippingName:    "Buyer",
		ShippingAddress: "1 Main St",
		OrderDate:       time.Now(),
		Items: []model.OrderItem{{
			ProductID:   product.ID,
			ProductName: product.Name,
			ProductSKU:  product.SKU,
			Quantity:    2,
			UnitPrice:   product.Price,
			LineTotal:   line,
		}},
	}
}

func TestOrderRepository_CreateAndFind(t *testing.T) {
	_, repo, user, product := setupOrderTest(t)
	ctx := context.Background()

	order := newTestOrder(user.ID, product, "HP-20260101-AAAAAAAA", nil)
	require.NoError(t, repo.Create(ctx, order))
	assert.NotZero(t, order.ID)

	found, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, found.Items, 1)
	assert.Equal(t, "Pearl Pin", found.Items[0].ProductName)
	assert.True(t, found.Total.Equal(decimal.RequireFromString("25.00")))

	_, err = repo.FindByID(ctx, 9999)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestOrderRepository_IdempotencyKey(t *testing.T) {
	_, repo, user, product := setupOrderTest(t)
	ctx := context.Background()
	key := "retry-1"

	require.NoError(t, repo.Create(ctx, newTestOrder(user.ID, product, "HP-20260101-AAAAAAAA", &key)))
	require.NoError(t, repo.Create(ctx, newTestOrder(user.ID, product, "HP-20260101-BBBBBBBB", nil)))
	require.NoError(t, repo.Create(ctx, newTestOrder(user.ID, product, "HP-20260101-CCCCCCCC", nil)), "orders without a key never collide")

	found, err := repo.FindByUserAndIdempotencyKey(ctx, user.ID, key)
	require.NoError(t, err)
	assert.Equal(t, "HP-20260101-AAAAAAAA", found.OrderNumber)

	err = repo.Create(ctx, newTestOrder(user.ID, product, "HP-20260101-DDDDDDDD", &key))
	assert.Error(t, err, "a key is used once per user")
}

func TestOrderRepository_FindByUserIDPaged(t *testing.T) {
	testDB, repo, user, product := setupOrderTest(t)
	ctx := context.Background()

	other := &model.User{Email: "other@example.com", PasswordHash: "hash", Name: "Other"}
	require.NoError(t, testDB.Create(other).Error)

	for _, n := range []string{"HP-20260101-00000001", "HP-20260101-00000002", "HP-20260101-00000003"} {
		require.NoError(t, repo.Create(ctx, newTestOrder(user.ID, product, n, nil)))
	}
	require.NoError(t, repo.Create(ctx, newTestOrder(other.ID, product, "HP-20260101-00000004", nil)))

	orders, total, err := repo.FindByUserID(ctx, user.ID, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, orders, 2)

	all, total, err := repo.FindAll(ctx, OrderFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	assert.Len(t, all, 4)
}

func TestOrderRepository_UpdateStatus(t *testing.T) {
	_, repo, user, product := setupOrderTest(t)
	ctx := context.Background()
	order := newTestOrder(user.ID, product, "HP-20260101-AAAAAAAA", nil)
	require.NoError(t, repo.Create(ctx, order))

	ok, err := repo.UpdateStatus(ctx, order.ID, model.OrderStatusPending, model.OrderStatusProcessing, nil)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.UpdateStatus(ctx, order.ID, model.OrderStatusPending, model.OrderStatusCancelled, nil)
	require.NoError(t, err)
	assert.False(t, ok, "stale from-status must not apply")

	shippedAt := time.Now()
	ok, err = repo.UpdateStatus(ctx, order.ID, model.OrderStatusProcessing, model.OrderStatusShipped, map[string]interface{}{"shipped_at": shippedAt})
	require.NoError(t, err)
	assert.True(t, ok)

	found, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusShipped, found.Status)
	assert.NotNil(t, found.ShippedAt)
}
