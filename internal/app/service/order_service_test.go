package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hairpin-store/hairpin-backend/internal/app/model"
	"github.com/hairpin-store/hairpin-backend/internal/app/repository"
	"github.com/hairpin-store/hairpin-backend/internal/db"
	"github.com/hairpin-store/hairpin-backend/pkg/metrics"
	"github.com/hairpin-store/hairpin-backend/pkg/payment"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeGateway struct {
	calls    atomic.Int32
	err      error
	delay    time.Duration
	last     atomic.Pointer[payment.ChargeRequest]
	onCharge func()
}

func (g *fakeGateway) CreateCharge(ctx context.Context, req payment.ChargeRequest) (*payment.Charge, error) {
	n := g.calls.Add(1)
	g.last.Store(&req)
	if g.onCharge != nil {
		g.onCharge()
	}
	if g.delay > 0 {
		select {
		case <-time.After(g.delay):
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", payment.ErrUnavailable, ctx.Err())
		}
	}
	if g.err != nil {
		return nil, g.err
	}
	return &payment.Charge{
		Reference:    fmt.Sprintf("pi_test_%d", n),
		ClientSecret: fmt.Sprintf("pi_test_%d_secret", n),
		Status:       "succeeded",
	}, nil
}

// failingOrderRepository accepts reads but fails every insert.
type failingOrderRepository struct {
	repository.OrderRepository
}

func (r *failingOrderRepository) WithTx(tx *gorm.DB) repository.OrderRepository {
	return &failingOrderRepository{OrderRepository: r.OrderRepository.WithTx(tx)}
}

func (r *failingOrderRepository) Create(ctx context.Context, order *model.Order) error {
	return errors.New("disk I/O error")
}

// failingRestoreRepository cannot put stock back.
type failingRestoreRepository struct {
	repository.ProductRepository
	calls *atomic.Int32
}

func newFailingRestoreRepository(repo repository.ProductRepository) *failingRestoreRepository {
	return &failingRestoreRepository{ProductRepository: repo, calls: &atomic.Int32{}}
}

func (r *failingRestoreRepository) WithTx(tx *gorm.DB) repository.ProductRepository {
	return &failingRestoreRepository{ProductRepository: r.ProductRepository.WithTx(tx), calls: r.calls}
}

func (r *failingRestoreRepository) IncrementStock(ctx context.Context, id uint, quantity int) error {
	r.calls.Add(1)
	return errors.New("database is locked")
}

type checkoutFixture struct {
	db          *gorm.DB
	orders      OrderService
	carts       CartService
	products    ProductService
	productRepo repository.ProductRepository
	orderRepo   repository.OrderRepository
	cartRepo    repository.CartRepository
	gateway     *fakeGateway
	metrics     *metrics.Metrics
	cfg         CheckoutConfig
}

func testCheckoutConfig() CheckoutConfig {
	return CheckoutConfig{
		ShippingFee:           decimal.RequireFromString("5.99"),
		FreeShippingThreshold: decimal.RequireFromString("50.00"),
		TaxRate:               decimal.RequireFromString("0.08"),
		Currency:              "USD",
		PaymentTimeout:        time.Second,
	}
}

func setupCheckoutTest(t *testing.T) *checkoutFixture {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})

	f := &checkoutFixture{
		db:          testDB,
		productRepo: repository.NewProductRepository(testDB),
		orderRepo:   repository.NewOrderRepository(testDB),
		cartRepo:    repository.NewCartRepository(testDB),
		gateway:     &fakeGateway{},
		metrics:     metrics.New(prometheus.NewRegistry()),
		cfg:         testCheckoutConfig(),
	}
	f.carts = NewCartService(f.cartRepo, f.productRepo)
	f.products = NewProductService(testDB, f.productRepo, nil)
	f.rebuild()
	return f
}

func (f *checkoutFixture) rebuild() {
	f.orders = NewOrderService(f.db, f.orderRepo, f.cartRepo, f.productRepo, f.gateway, f.metrics, f.cfg)
}

func (f *checkoutFixture) user(t *testing.T, email string) *model.User {
	t.Helper()
	user := &model.User{Email: email, PasswordHash: "hash", Name: email}
	require.NoError(t, f.db.Create(user).Error)
	return user
}

func (f *checkoutFixture) product(t *testing.T, sku, price string, stock int) *model.Product {
	t.Helper()
	p, err := f.products.CreateProduct(context.Background(), ProductInput{
		SKU:           sku,
		Name:          "Product " + sku,
		Price:         decimal.RequireFromString(price),
		StockQuantity: stock,
	})
	require.NoError(t, err)
	return p
}

func (f *checkoutFixture) stock(t *testing.T, id uint) int {
	t.Helper()
	p, err := f.productRepo.FindByID(context.Background(), id)
	require.NoError(t, err)
	return p.StockQuantity
}

func testCheckoutRequest(userID uint) CheckoutRequest {
	return CheckoutRequest{
		UserID: userID,
		Shipping: ShippingAddress{
			Name:    "Ada Lovelace",
			Address: "12 Ribbon Lane",
			City:    "Portland",
			ZipCode: "97201",
			Country: "US",
		},
		PaymentMethod: "card",
	}
}

func TestOrderService_Checkout_Success(t *testing.T) {
	f := setupCheckoutTest(t)
	ctx := context.Background()
	user := f.user(t, "buyer@example.com")
	pin := f.product(t, "HP-PIN", "12.50", 10)

	_, err := f.carts.AddItem(ctx, user.ID, pin.ID, 2)
	require.NoError(t, err)

	order, err := f.orders.Checkout(ctx, testCheckoutRequest(user.ID))
	require.NoError(t, err)

	assert.NotZero(t, order.ID)
	assert.Regexp(t, `^HP-\d{8}-[0-9A-F]{8}$`, order.OrderNumber)
	assert.Equal(t, model.OrderStatusPending, order.Status)
	assert.Equal(t, "25.00", order.Subtotal.StringFixed(2))
	assert.Equal(t, "5.99", order.ShippingCost.StringFixed(2))
	assert.Equal(t, "2.00", order.Tax.StringFixed(2))
	assert.Equal(t, "32.99", order.Total.StringFixed(2))
	assert.Equal(t, "USD", order.Currency)
	assert.Equal(t, "pi_test_1", order.PaymentReference)
	assert.Equal(t, "pi_test_1_secret", order.PaymentClientSecret)
	require.Len(t, order.Items, 1)
	assert.Equal(t, "HP-PIN", order.Items[0].ProductSKU)

	req := f.gateway.last.Load()
	require.NotNil(t, req)
	assert.Equal(t, int64(3299), req.AmountMinor)

	assert.Equal(t, 8, f.stock(t, pin.ID))

	cart, err := f.carts.GetCart(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, cart.Items, "checkout empties the cart")

	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.CheckoutAttempts.WithLabelValues(metrics.OutcomeCreated)))
}

func TestOrderService_Checkout_KeepsItemsAddedDuringPayment(t *testing.T) {
	f := setupCheckoutTest(t)
	ctx := context.Background()
	user := f.user(t, "buyer@example.com")
	pin := f.product(t, "HP-PIN", "12.50", 10)
	clip := f.product(t, "HP-CLIP", "7.00", 10)

	_, err := f.carts.AddItem(ctx, user.ID, pin.ID, 2)
	require.NoError(t, err)

	f.gateway.onCharge = func() {
		_, err := f.carts.AddItem(ctx, user.ID, pin.ID, 1)
		require.NoError(t, err)
		_, err = f.carts.AddItem(ctx, user.ID, clip.ID, 4)
		require.NoError(t, err)
	}

	order, err := f.orders.Checkout(ctx, testCheckoutRequest(user.ID))
	require.NoError(t, err)
	require.Len(t, order.Items, 1)
	assert.Equal(t, 2, order.Items[0].Quantity)
	assert.Equal(t, "25.00", order.Subtotal.StringFixed(2))

	cart, err := f.carts.GetCart(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, cart.Items, 2)
	assert.Equal(t, pin.ID, cart.Items[0].ProductID)
	assert.Equal(t, 1, cart.Items[0].Quantity, "only the charged quantity leaves the cart")
	assert.Equal(t, clip.ID, cart.Items[1].ProductID)
	assert.Equal(t, 4, cart.Items[1].Quantity)
}

func TestOrderService_Checkout_FreeShippingThreshold(t *testing.T) {
	f := setupCheckoutTest(t)
	ctx := context.Background()
	user := f.user(t, "buyer@example.com")
	comb := f.product(t, "HP-COMB", "25.00", 10)

	_, err := f.carts.AddItem(ctx, user.ID, comb.ID, 2)
	require.NoError(t, err)

	order, err := f.orders.Checkout(ctx, testCheckoutRequest(user.ID))
	require.NoError(t, err)
	assert.True(t, order.ShippingCost.IsZero())
	assert.Equal(t, "54.00", order.Total.StringFixed(2))
}

func TestOrderService_Checkout_Rejections(t *testing.T) {
	f := setupCheckoutTest(t)
	ctx := context.Background()
	user := f.user(t, "buyer@example.com")

	_, err := f.orders.Checkout(ctx, testCheckoutRequest(user.ID))
	assert.ErrorIs(t, err, ErrEmptyCart)

	pin := f.product(t, "HP-PIN", "12.50", 10)
	_, err = f.carts.AddItem(ctx, user.ID, pin.ID, 1)
	require.NoError(t, err)

	req := testCheckoutRequest(user.ID)
	req.Shipping.Address = "  "
	_, err = f.orders.Checkout(ctx, req)
	assert.ErrorIs(t, err, ErrInvalidShipping)
	assert.Equal(t, KindInvalid, KindOf(err))

	assert.Equal(t, int32(0), f.gateway.calls.Load())
	assert.Equal(t, 10, f.stock(t, pin.ID))
}

func TestOrderService_Checkout_InsufficientStockIsAllOrNothing(t *testing.T) {
	f := setupCheckoutTest(t)
	ctx := context.Background()
	user := f.user(t, "buyer@example.com")
	plenty := f.product(t, "HP-A", "5.00", 10)
	scarce := f.product(t, "HP-B", "7.00", 1)

	_, err := f.carts.AddItem(ctx, user.ID, plenty.ID, 4)
	require.NoError(t, err)
	_, err = f.carts.AddItem(ctx, user.ID, scarce.ID, 2)
	require.NoError(t, err)

	_, err = f.orders.Checkout(ctx, testCheckoutRequest(user.ID))
	require.ErrorIs(t, err, ErrInsufficientStock)

	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, scarce.ID, stockErr.ProductID)
	assert.Equal(t, 2, stockErr.Requested)
	assert.Equal(t, 1, stockErr.Available)

	assert.Equal(t, 10, f.stock(t, plenty.ID), "earlier lines are rolled back")
	assert.Equal(t, 1, f.stock(t, scarce.ID))
	assert.Equal(t, int32(0), f.gateway.calls.Load())

	cart, err := f.carts.GetCart(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, cart.Items, 2, "cart survives a failed checkout")
}

func TestOrderService_Checkout_ConcurrentCheckoutsNeverOversell(t *testing.T) {
	f := setupCheckoutTest(t)
	ctx := context.Background()
	pin := f.product(t, "HP-PIN", "10.00", 5)

	buyers := []*model.User{f.user(t, "a@example.com"), f.user(t, "b@example.com")}
	for _, u := range buyers {
		_, err := f.carts.AddItem(ctx, u.ID, pin.ID, 3)
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	errs := make([]error, len(buyers))
	for i, u := range buyers {
		wg.Add(1)
		go func(i int, userID uint) {
			defer wg.Done()
			_, errs[i] = f.orders.Checkout(ctx, testCheckoutRequest(userID))
		}(i, u.ID)
	}
	wg.Wait()

	succeeded, rejected := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrInsufficientStock):
			rejected++
		default:
			t.Fatalf("unexpected checkout error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, rejected)
	assert.Equal(t, 2, f.stock(t, pin.ID))
}

func TestOrderService_Checkout_PaymentDeclinedRestoresStock(t *testing.T) {
	f := setupCheckoutTest(t)
	ctx := context.Background()
	user := f.user(t, "buyer@example.com")
	pin := f.product(t, "HP-PIN", "12.50", 10)
	_, err := f.carts.AddItem(ctx, user.ID, pin.ID, 4)
	require.NoError(t, err)

	f.gateway.err = payment.ErrDeclined
	f.rebuild()

	_, err = f.orders.Checkout(ctx, testCheckoutRequest(user.ID))
	require.ErrorIs(t, err, ErrPaymentFailed)
	assert.ErrorIs(t, err, payment.ErrDeclined)
	assert.Equal(t, KindPaymentFailed, KindOf(err))

	assert.Equal(t, 10, f.stock(t, pin.ID))
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.StockCompensations.WithLabelValues("ok")))

	var count int64
	require.NoError(t, f.db.Model(&model.Order{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestOrderService_Checkout_PaymentTimeoutRestoresStock(t *testing.T) {
	f := setupCheckoutTest(t)
	ctx := context.Background()
	user := f.user(t, "buyer@example.com")
	pin := f.product(t, "HP-PIN", "12.50", 10)
	_, err := f.carts.AddItem(ctx, user.ID, pin.ID, 1)
	require.NoError(t, err)

	f.gateway.delay = time.Second
	f.cfg.PaymentTimeout = 20 * time.Millisecond
	f.rebuild()

	_, err = f.orders.Checkout(ctx, testCheckoutRequest(user.ID))
	require.ErrorIs(t, err, ErrPaymentFailed)
	assert.ErrorIs(t, err, payment.ErrUnavailable)
	assert.Equal(t, 10, f.stock(t, pin.ID))
}

func TestOrderService_Checkout_RestoreFailureIsFatal(t *testing.T) {
	f := setupCheckoutTest(t)
	ctx := context.Background()
	user := f.user(t, "buyer@example.com")
	pin := f.product(t, "HP-PIN", "12.50", 10)
	_, err := f.carts.AddItem(ctx, user.ID, pin.ID, 3)
	require.NoError(t, err)

	f.gateway.err = payment.ErrDeclined
	f.orders = NewOrderService(f.db, f.orderRepo, f.cartRepo, newFailingRestoreRepository(f.productRepo), f.gateway, f.metrics, f.cfg)

	_, err = f.orders.Checkout(ctx, testCheckoutRequest(user.ID))
	require.ErrorIs(t, err, ErrCheckoutFatal)
	assert.ErrorIs(t, err, ErrPaymentFailed)
	assert.Equal(t, KindFatal, KindOf(err))

	var fatal *FatalError
	require.ErrorAs(t, err, &fatal)
	assert.Equal(t, []Reservation{{ProductID: pin.ID, Quantity: 3}}, fatal.Reservations)
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.StockCompensations.WithLabelValues("failed")))
}

func TestOrderService_Checkout_RestoreRetriesWithBackoff(t *testing.T) {
	f := setupCheckoutTest(t)
	ctx := context.Background()
	user := f.user(t, "buyer@example.com")
	pin := f.product(t, "HP-PIN", "12.50", 10)
	_, err := f.carts.AddItem(ctx, user.ID, pin.ID, 1)
	require.NoError(t, err)

	f.gateway.err = payment.ErrDeclined
	f.cfg.RestoreAttempts = 4
	f.cfg.RestoreBackoff = 10 * time.Millisecond
	restore := newFailingRestoreRepository(f.productRepo)
	f.orders = NewOrderService(f.db, f.orderRepo, f.cartRepo, restore, f.gateway, f.metrics, f.cfg)

	start := time.Now()
	_, err = f.orders.Checkout(ctx, testCheckoutRequest(user.ID))
	require.ErrorIs(t, err, ErrCheckoutFatal)

	assert.Equal(t, int32(4), restore.calls.Load(), "one restore per configured attempt")
	// Linear backoff between attempts: 10ms + 20ms + 30ms.
	assert.GreaterOrEqual(t, time.Since(start), 60*time.Millisecond)
}

func TestOrderService_Checkout_PersistenceFailureAfterPaymentIsFatal(t *testing.T) {
	f := setupCheckoutTest(t)
	ctx := context.Background()
	user := f.user(t, "buyer@example.com")
	pin := f.product(t, "HP-PIN", "12.50", 10)
	_, err := f.carts.AddItem(ctx, user.ID, pin.ID, 3)
	require.NoError(t, err)

	f.orderRepo = &failingOrderRepository{f.orderRepo}
	f.rebuild()

	_, err = f.orders.Checkout(ctx, testCheckoutRequest(user.ID))
	require.ErrorIs(t, err, ErrCheckoutFatal)
	assert.Equal(t, KindFatal, KindOf(err))

	var fatal *FatalError
	require.ErrorAs(t, err, &fatal)
	assert.Equal(t, "pi_test_1", fatal.PaymentReference)
	assert.Equal(t, int64(3750+599+300), fatal.AmountMinor)

	assert.Equal(t, 7, f.stock(t, pin.ID), "paid stock stays reserved")
	assert.Zero(t, testutil.ToFloat64(f.metrics.StockCompensations.WithLabelValues("ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.CheckoutAttempts.WithLabelValues(metrics.OutcomeFatal)))

	cart, err := f.carts.GetCart(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, cart.Items, 1, "the cart clear rolled back with the order insert")
}

func TestOrderService_Checkout_IdempotencyKeyReplays(t *testing.T) {
	f := setupCheckoutTest(t)
	ctx := context.Background()
	user := f.user(t, "buyer@example.com")
	pin := f.product(t, "HP-PIN", "12.50", 10)
	_, err := f.carts.AddItem(ctx, user.ID, pin.ID, 1)
	require.NoError(t, err)

	req := testCheckoutRequest(user.ID)
	req.IdempotencyKey = "client-retry-42"

	first, err := f.orders.Checkout(ctx, req)
	require.NoError(t, err)

	second, err := f.orders.Checkout(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.NotEmpty(t, first.PaymentClientSecret)
	assert.Empty(t, second.PaymentClientSecret, "the secret is not stored")
	assert.Equal(t, int32(1), f.gateway.calls.Load())
	assert.Equal(t, 9, f.stock(t, pin.ID))
}

func TestOrderService_OrderIsImmutableAfterPriceChange(t *testing.T) {
	f := setupCheckoutTest(t)
	ctx := context.Background()
	user := f.user(t, "buyer@example.com")
	pin := f.product(t, "HP-PIN", "12.50", 10)
	_, err := f.carts.AddItem(ctx, user.ID, pin.ID, 2)
	require.NoError(t, err)

	order, err := f.orders.Checkout(ctx, testCheckoutRequest(user.ID))
	require.NoError(t, err)

	_, err = f.products.UpdateProduct(ctx, pin.ID, ProductInput{
		SKU:   "HP-PIN",
		Name:  "Renamed Pin",
		Price: decimal.RequireFromString("99.00"),
	})
	require.NoError(t, err)

	stored, err := f.orders.GetUserOrder(ctx, user.ID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "32.99", stored.Total.StringFixed(2))
	require.Len(t, stored.Items, 1)
	assert.Equal(t, "12.50", stored.Items[0].UnitPrice.StringFixed(2))
	assert.Equal(t, "Product HP-PIN", stored.Items[0].ProductName)
}

func TestOrderService_Checkout_PriceIsReadAtCheckout(t *testing.T) {
	f := setupCheckoutTest(t)
	ctx := context.Background()
	user := f.user(t, "buyer@example.com")
	pin := f.product(t, "HP-PIN", "10.00", 10)
	_, err := f.carts.AddItem(ctx, user.ID, pin.ID, 1)
	require.NoError(t, err)

	_, err = f.products.UpdateProduct(ctx, pin.ID, ProductInput{
		SKU:   "HP-PIN",
		Name:  "Pin",
		Price: decimal.RequireFromString("11.00"),
	})
	require.NoError(t, err)

	order, err := f.orders.Checkout(ctx, testCheckoutRequest(user.ID))
	require.NoError(t, err)
	assert.Equal(t, "11.00", order.Subtotal.StringFixed(2))
}

func TestOrderService_Checkout_DeactivatedProduct(t *testing.T) {
	f := setupCheckoutTest(t)
	ctx := context.Background()
	user := f.user(t, "buyer@example.com")
	pin := f.product(t, "HP-PIN", "10.00", 10)
	_, err := f.carts.AddItem(ctx, user.ID, pin.ID, 1)
	require.NoError(t, err)
	require.NoError(t, f.products.DeactivateProduct(ctx, pin.ID))

	_, err = f.orders.Checkout(ctx, testCheckoutRequest(user.ID))
	assert.ErrorIs(t, err, ErrProductNotFound)
	assert.Equal(t, 10, f.stock(t, pin.ID))
}

func TestOrderService_GetUserOrder_ForeignOrder(t *testing.T) {
	f := setupCheckoutTest(t)
	ctx := context.Background()
	owner := f.user(t, "owner@example.com")
	other := f.user(t, "other@example.com")
	pin := f.product(t, "HP-PIN", "10.00", 10)
	_, err := f.carts.AddItem(ctx, owner.ID, pin.ID, 1)
	require.NoError(t, err)
	order, err := f.orders.Checkout(ctx, testCheckoutRequest(owner.ID))
	require.NoError(t, err)

	_, err = f.orders.GetUserOrder(ctx, other.ID, order.ID)
	assert.ErrorIs(t, err, ErrOrderNotFound)

	page, err := f.orders.ListUserOrders(ctx, owner.ID, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.TotalCount)

	page, err = f.orders.ListUserOrders(ctx, other.ID, 1, 10)
	require.NoError(t, err)
	assert.Empty(t, page.Items)
}

func TestOrderService_UpdateOrderStatus(t *testing.T) {
	f := setupCheckoutTest(t)
	ctx := context.Background()
	user := f.user(t, "buyer@example.com")
	pin := f.product(t, "HP-PIN", "10.00", 10)
	_, err := f.carts.AddItem(ctx, user.ID, pin.ID, 1)
	require.NoError(t, err)
	order, err := f.orders.Checkout(ctx, testCheckoutRequest(user.ID))
	require.NoError(t, err)

	_, err = f.orders.UpdateOrderStatus(ctx, order.ID, model.OrderStatusDelivered)
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)

	for _, next := range []model.OrderStatus{model.OrderStatusProcessing, model.OrderStatusShipped, model.OrderStatusDelivered} {
		updated, err := f.orders.UpdateOrderStatus(ctx, order.ID, next)
		require.NoError(t, err)
		assert.Equal(t, next, updated.Status)
	}

	final, err := f.orders.GetUserOrder(ctx, user.ID, order.ID)
	require.NoError(t, err)
	assert.NotNil(t, final.ShippedAt)
	assert.NotNil(t, final.DeliveredAt)
	assert.Equal(t, order.Total.StringFixed(2), final.Total.StringFixed(2))

	_, err = f.orders.UpdateOrderStatus(ctx, order.ID, model.OrderStatusCancelled)
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)

	_, err = f.orders.UpdateOrderStatus(ctx, 9999, model.OrderStatusProcessing)
	assert.ErrorIs(t, err, ErrOrderNotFound)

	all, err := f.orders.ListOrders(ctx, OrderListQuery{Status: model.OrderStatusDelivered})
	require.NoError(t, err)
	assert.Equal(t, int64(1), all.TotalCount)
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to model.OrderStatus
		want     bool
	}{
		{model.OrderStatusPending, model.OrderStatusProcessing, true},
		{model.OrderStatusPending, model.OrderStatusCancelled, true},
		{model.OrderStatusProcessing, model.OrderStatusShipped, true},
		{model.OrderStatusShipped, model.OrderStatusCancelled, false},
		{model.OrderStatusDelivered, model.OrderStatusRefunded, true},
		{model.OrderStatusCancelled, model.OrderStatusPending, false},
		{model.OrderStatusRefunded, model.OrderStatusDelivered, false},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s to %s", tt.from, tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}
