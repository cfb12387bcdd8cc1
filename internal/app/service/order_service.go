package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hairpin-store/hairpin-backend/internal/app/model"
	"github.com/hairpin-store/hairpin-backend/internal/app/repository"
	"github.com/hairpin-store/hairpin-backend/pkg/logger"
	"github.com/hairpin-store/hairpin-backend/pkg/metrics"
	"github.com/hairpin-store/hairpin-backend/pkg/money"
	"github.com/hairpin-store/hairpin-backend/pkg/pagination"
	"github.com/hairpin-store/hairpin-backend/pkg/payment"
	"github.com/hairpin-store/hairpin-backend/pkg/util"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"
)

// CheckoutState is the progress of one checkout attempt.
type CheckoutState string

const (
	CheckoutStatePending          CheckoutState = "pending"
	CheckoutStateStockReserved    CheckoutState = "stock_reserved"
	CheckoutStatePaymentConfirmed CheckoutState = "payment_confirmed"
	CheckoutStateOrderCreated     CheckoutState = "order_created"
	CheckoutStateFailed           CheckoutState = "failed"
)

const (
	defaultPaymentTimeout  = 15 * time.Second
	defaultRestoreAttempts = 3
	defaultCurrency        = "USD"
)

// CheckoutConfig holds the pricing rules and limits applied once per order.
type CheckoutConfig struct {
	ShippingFee           decimal.Decimal
	FreeShippingThreshold decimal.Decimal // zero disables free shipping
	TaxRate               decimal.Decimal // e.g. 0.08
	Currency              string
	PaymentTimeout        time.Duration
	RestoreAttempts       int
	RestoreBackoff        time.Duration
}

type ShippingAddress struct {
	Name    string
	Address string
	City    string
	State   string
	ZipCode string
	Country string
}

type CheckoutRequest struct {
	UserID         uint
	Shipping       ShippingAddress
	PaymentMethod  string
	Currency       string
	IdempotencyKey string
}

type OrderPage struct {
	Items      []model.Order `json:"items"`
	TotalCount int64         `json:"total_count"`
	Page       int           `json:"page"`
	PageSize   int           `json:"page_size"`
	TotalPages int           `json:"total_pages"`
}

type OrderListQuery struct {
	Status   model.OrderStatus
	Page     int
	PageSize int
}

type OrderService interface {
	Checkout(ctx context.Context, req CheckoutRequest) (*model.Order, error)
	ListUserOrders(ctx context.Context, userID uint, page, pageSize int) (*OrderPage, error)
	GetUserOrder(ctx context.Context, userID, orderID uint) (*model.Order, error)
	ListOrders(ctx context.Context, query OrderListQuery) (*OrderPage, error)
	UpdateOrderStatus(ctx context.Context, orderID uint, status model.OrderStatus) (*model.Order, error)
}

type orderService struct {
	db          *gorm.DB
	orderRepo   repository.OrderRepository
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
	gateway     payment.Gateway
	metrics     *metrics.Metrics
	cfg         CheckoutConfig
	now         func() time.Time
}

// NewOrderService wires checkout. m may be nil.
func NewOrderService(
	db *gorm.DB,
	orderRepo repository.OrderRepository,
	cartRepo repository.CartRepository,
	productRepo repository.ProductRepository,
	gateway payment.Gateway,
	m *metrics.Metrics,
	cfg CheckoutConfig,
) OrderService {
	if cfg.PaymentTimeout <= 0 {
		cfg.PaymentTimeout = defaultPaymentTimeout
	}
	if cfg.RestoreAttempts <= 0 {
		cfg.RestoreAttempts = defaultRestoreAttempts
	}
	if cfg.Currency == "" {
		cfg.Currency = defaultCurrency
	}
	return &orderService{
		db:          db,
		orderRepo:   orderRepo,
		cartRepo:    cartRepo,
		productRepo: productRepo,
		gateway:     gateway,
		metrics:     m,
		cfg:         cfg,
		now:         time.Now,
	}
}

// checkoutAttempt carries one run of the state machine.
type checkoutAttempt struct {
	id           string
	userID       uint
	state        CheckoutState
	started      time.Time
	log          *logger.Logger
	reservations []Reservation
}

func (a *checkoutAttempt) transition(next CheckoutState, fields ...logger.Fields) {
	f := logger.Fields{"from": a.state, "to": next}
	if len(fields) > 0 {
		for k, v := range fields[0] {
			f[k] = v
		}
	}
	a.state = next
	a.log.Info("Checkout state changed", f)
}

func (a *checkoutAttempt) reservedQuantities() map[uint]int {
	quantities := make(map[uint]int, len(a.reservations))
	for _, r := range a.reservations {
		quantities[r.ProductID] += r.Quantity
	}
	return quantities
}

type pricedCart struct {
	items    []model.OrderItem
	subtotal decimal.Decimal
	shipping decimal.Decimal
	tax      decimal.Decimal
	total    decimal.Decimal
}

// Checkout turns the user's cart into an order. Stock is reserved and
// committed before the payment call, released again if payment fails, and
// never released once payment has succeeded. A newly created order carries
// the provider's client secret; a replayed one does not.
func (s *orderService) Checkout(ctx context.Context, req CheckoutRequest) (*model.Order, error) {
	attempt := &checkoutAttempt{
		id:      uuid.NewString(),
		userID:  req.UserID,
		state:   CheckoutStatePending,
		started: time.Now(),
	}
	attempt.log = logger.WithContext(logger.Fields{
		"attempt_id": attempt.id,
		"user_id":    req.UserID,
	})
	attempt.log.Info("Checkout started")

	key := strings.TrimSpace(req.IdempotencyKey)
	if key != "" {
		existing, err := s.orderRepo.FindByUserAndIdempotencyKey(ctx, req.UserID, key)
		if err == nil {
			attempt.log.Info("Checkout replayed existing order", logger.Fields{
				"order_id": existing.ID,
			})
			s.metrics.ObserveCheckout(metrics.OutcomeReplayed, attempt.started)
			return existing, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, s.fail(attempt, metrics.OutcomeRejected, err)
		}
	}

	shipping := normalizeShipping(req.Shipping)
	if shipping.Name == "" || shipping.Address == "" {
		return nil, s.fail(attempt, metrics.OutcomeRejected, ErrInvalidShipping)
	}

	cart, err := s.cartRepo.FindByUserID(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, s.fail(attempt, metrics.OutcomeRejected, ErrEmptyCart)
		}
		return nil, s.fail(attempt, metrics.OutcomeRejected, err)
	}
	if len(cart.Items) == 0 {
		return nil, s.fail(attempt, metrics.OutcomeRejected, ErrEmptyCart)
	}

	priced, err := s.reserveStock(ctx, attempt, cart)
	if err != nil {
		outcome := metrics.OutcomeRejected
		if errors.Is(err, ErrInsufficientStock) {
			outcome = metrics.OutcomeInsufficientStock
		}
		return nil, s.fail(attempt, outcome, err)
	}
	attempt.transition(CheckoutStateStockReserved, logger.Fields{
		"lines": len(priced.items),
		"total": priced.total.StringFixed(2),
	})

	// Stock is now held; finish even if the client goes away.
	ctx = context.WithoutCancel(ctx)

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = strings.ToUpper(s.cfg.Currency)
	}

	amountMinor, err := money.ToMinorUnits(priced.total)
	if err != nil {
		return nil, s.failAfterReserve(ctx, attempt, err)
	}

	charge, err := s.charge(ctx, attempt, req.UserID, amountMinor, currency)
	if err != nil {
		return nil, s.failAfterReserve(ctx, attempt, err)
	}
	attempt.transition(CheckoutStatePaymentConfirmed, logger.Fields{
		"payment_reference": charge.Reference,
	})

	order := &model.Order{
		OrderNumber:      util.GenerateOrderNumber(s.now()),
		UserID:           req.UserID,
		Status:           model.OrderStatusPending,
		Subtotal:         priced.subtotal,
		ShippingCost:     priced.shipping,
		Tax:              priced.tax,
		Total:            priced.total,
		Currency:         currency,
		ShippingName:     shipping.Name,
		ShippingAddress:  shipping.Address,
		ShippingCity:     shipping.City,
		ShippingState:    shipping.State,
		ShippingZipCode:  shipping.ZipCode,
		ShippingCountry:  shipping.Country,
		PaymentMethod:    strings.TrimSpace(req.PaymentMethod),
		PaymentReference: charge.Reference,
		OrderDate:        s.now(),
		Items:            priced.items,
	}
	if key != "" {
		order.IdempotencyKey = &key
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.orderRepo.WithTx(tx).Create(ctx, order); err != nil {
			return err
		}
		// Only what was priced and charged leaves the cart.
		return s.cartRepo.WithTx(tx).ConsumeItems(ctx, cart.ID, attempt.reservedQuantities())
	})
	if err != nil {
		fatal := &FatalError{
			AttemptID:        attempt.id,
			UserID:           req.UserID,
			PaymentReference: charge.Reference,
			AmountMinor:      amountMinor,
			Currency:         currency,
			Reservations:     attempt.reservations,
			Cause:            err,
		}
		attempt.transition(CheckoutStateFailed)
		attempt.log.Alert("Order not recorded after successful payment", err, logger.Fields{
			"payment_reference": charge.Reference,
			"amount_minor":      amountMinor,
			"currency":          currency,
			"reservations":      attempt.reservations,
		})
		s.metrics.ObserveCheckout(metrics.OutcomeFatal, attempt.started)
		return nil, fatal
	}

	order.PaymentClientSecret = charge.ClientSecret

	attempt.transition(CheckoutStateOrderCreated, logger.Fields{
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
	})
	s.metrics.ObserveCheckout(metrics.OutcomeCreated, attempt.started)
	return order, nil
}

func normalizeShipping(a ShippingAddress) ShippingAddress {
	return ShippingAddress{
		Name:    strings.TrimSpace(a.Name),
		Address: strings.TrimSpace(a.Address),
		City:    strings.TrimSpace(a.City),
		State:   strings.TrimSpace(a.State),
		ZipCode: strings.TrimSpace(a.ZipCode),
		Country: strings.TrimSpace(a.Country),
	}
}

// reserveStock decrements every cart line in one transaction and prices the
// order from the product rows read inside it. Any line that cannot be
// reserved rolls back the whole reservation.
func (s *orderService) reserveStock(ctx context.Context, attempt *checkoutAttempt, cart *model.Cart) (*pricedCart, error) {
	priced := &pricedCart{}
	var reservations []Reservation

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		products := s.productRepo.WithTx(tx)
		priced.items = make([]model.OrderItem, 0, len(cart.Items))
		reservations = reservations[:0]

		for _, item := range cart.Items {
			product, err := products.FindByID(ctx, item.ProductID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("%w: product %d", ErrProductNotFound, item.ProductID)
				}
				return err
			}
			if !product.IsActive {
				return fmt.Errorf("%w: %s is no longer sold", ErrProductNotFound, product.Name)
			}

			ok, err := products.DecrementStock(ctx, product.ID, item.Quantity)
			if err != nil {
				return err
			}
			if !ok {
				available := product.StockQuantity
				if current, err := products.FindByID(ctx, product.ID); err == nil {
					available = current.StockQuantity
				}
				return &InsufficientStockError{
					ProductID:   product.ID,
					ProductName: product.Name,
					Requested:   item.Quantity,
					Available:   available,
				}
			}

			priced.items = append(priced.items, model.OrderItem{
				ProductID:   product.ID,
				ProductName: product.Name,
				ProductSKU:  product.SKU,
				Quantity:    item.Quantity,
				UnitPrice:   product.Price,
				LineTotal:   money.LineTotal(product.Price, item.Quantity),
			})
			reservations = append(reservations, Reservation{ProductID: product.ID, Quantity: item.Quantity})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	attempt.reservations = reservations
	s.priceOrder(priced)
	return priced, nil
}

func (s *orderService) priceOrder(p *pricedCart) {
	lines := make([]decimal.Decimal, 0, len(p.items))
	for _, item := range p.items {
		lines = append(lines, item.LineTotal)
	}
	p.subtotal = money.Sum(lines...)

	p.shipping = money.Round(s.cfg.ShippingFee)
	if s.cfg.FreeShippingThreshold.IsPositive() && p.subtotal.GreaterThanOrEqual(s.cfg.FreeShippingThreshold) {
		p.shipping = decimal.Zero
	}

	p.tax = money.Round(p.subtotal.Mul(s.cfg.TaxRate))
	p.total = money.Sum(p.subtotal, p.shipping, p.tax)
}

func (s *orderService) charge(ctx context.Context, attempt *checkoutAttempt, userID uint, amountMinor int64, currency string) (*payment.Charge, error) {
	if s.gateway == nil {
		return nil, payment.ErrUnavailable
	}

	payCtx, cancel := context.WithTimeout(ctx, s.cfg.PaymentTimeout)
	defer cancel()

	charge, err := s.gateway.CreateCharge(payCtx, payment.ChargeRequest{
		AmountMinor:    amountMinor,
		Currency:       currency,
		IdempotencyKey: "checkout-" + attempt.id,
		Metadata: map[string]string{
			"attempt_id": attempt.id,
			"user_id":    strconv.FormatUint(uint64(userID), 10),
		},
	})
	if err != nil {
		if errors.Is(payCtx.Err(), context.DeadlineExceeded) {
			err = multierr.Append(err, payment.ErrUnavailable)
		}
		return nil, err
	}
	if charge == nil || charge.Reference == "" {
		return nil, fmt.Errorf("%w: empty charge reference", payment.ErrUnavailable)
	}
	return charge, nil
}

// failAfterReserve releases the reservation. If the release itself fails the
// stock is stranded and the attempt is escalated.
func (s *orderService) failAfterReserve(ctx context.Context, attempt *checkoutAttempt, cause error) error {
	attempt.log.Warn("Payment failed, restoring stock", logger.Fields{
		"error": cause.Error(),
	})

	paymentErr := fmt.Errorf("%w: %w", ErrPaymentFailed, cause)
	if restoreErr := s.restoreStock(ctx, attempt); restoreErr != nil {
		fatal := &FatalError{
			AttemptID:    attempt.id,
			UserID:       attempt.userID,
			Reservations: attempt.reservations,
			Cause:        multierr.Combine(paymentErr, restoreErr),
		}
		attempt.transition(CheckoutStateFailed)
		attempt.log.Alert("Stock restore failed after payment failure", fatal.Cause, logger.Fields{
			"reservations": attempt.reservations,
		})
		s.metrics.ObserveCheckout(metrics.OutcomeFatal, attempt.started)
		return fatal
	}

	return s.fail(attempt, metrics.OutcomePaymentFailed, paymentErr)
}

func (s *orderService) restoreStock(ctx context.Context, attempt *checkoutAttempt) error {
	var errs error
	for i := 0; i < s.cfg.RestoreAttempts; i++ {
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			products := s.productRepo.WithTx(tx)
			for _, r := range attempt.reservations {
				if err := products.IncrementStock(ctx, r.ProductID, r.Quantity); err != nil {
					return err
				}
			}
			return nil
		})
		if err == nil {
			s.metrics.ObserveCompensation(true)
			attempt.log.Info("Reserved stock restored", logger.Fields{
				"attempt": i + 1,
			})
			return nil
		}
		errs = multierr.Append(errs, err)
		attempt.log.Warn("Stock restore attempt failed", logger.Fields{
			"attempt": i + 1,
			"error":   err.Error(),
		})
		if s.cfg.RestoreBackoff > 0 && i+1 < s.cfg.RestoreAttempts {
			time.Sleep(s.cfg.RestoreBackoff * time.Duration(i+1))
		}
	}
	s.metrics.ObserveCompensation(false)
	return errs
}

func (s *orderService) fail(attempt *checkoutAttempt, outcome string, err error) error {
	attempt.transition(CheckoutStateFailed, logger.Fields{
		"outcome": outcome,
		"error":   err.Error(),
	})
	s.metrics.ObserveCheckout(outcome, attempt.started)
	return err
}

func (s *orderService) ListUserOrders(ctx context.Context, userID uint, page, pageSize int) (*OrderPage, error) {
	params := pagination.Normalize(page, pageSize)
	orders, total, err := s.orderRepo.FindByUserID(ctx, userID, params.PageSize, params.Offset())
	if err != nil {
		return nil, err
	}
	return newOrderPage(orders, total, params), nil
}

func (s *orderService) GetUserOrder(ctx context.Context, userID, orderID uint) (*model.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if order.UserID != userID {
		logger.Warn("Order requested by another user", map[string]interface{}{
			"order_id": orderID,
			"user_id":  userID,
		})
		return nil, ErrOrderNotFound
	}
	return order, nil
}

func (s *orderService) ListOrders(ctx context.Context, query OrderListQuery) (*OrderPage, error) {
	params := pagination.Normalize(query.Page, query.PageSize)
	orders, total, err := s.orderRepo.FindAll(ctx, repository.OrderFilter{
		Status: query.Status,
		Limit:  params.PageSize,
		Offset: params.Offset(),
	})
	if err != nil {
		return nil, err
	}
	return newOrderPage(orders, total, params), nil
}

func newOrderPage(orders []model.Order, total int64, params pagination.Params) *OrderPage {
	if orders == nil {
		orders = []model.Order{}
	}
	return &OrderPage{
		Items:      orders,
		TotalCount: total,
		Page:       params.Page,
		PageSize:   params.PageSize,
		TotalPages: pagination.TotalPages(total, params.PageSize),
	}
}

var orderTransitions = map[model.OrderStatus][]model.OrderStatus{
	model.OrderStatusPending:    {model.OrderStatusProcessing, model.OrderStatusCancelled},
	model.OrderStatusProcessing: {model.OrderStatusShipped, model.OrderStatusCancelled},
	model.OrderStatusShipped:    {model.OrderStatusDelivered},
	model.OrderStatusDelivered:  {model.OrderStatusRefunded},
}

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to model.OrderStatus) bool {
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func (s *orderService) UpdateOrderStatus(ctx context.Context, orderID uint, status model.OrderStatus) (*model.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	if !CanTransition(order.Status, status) {
		logger.Warn("Order status transition rejected", map[string]interface{}{
			"order_id": orderID,
			"from":     order.Status,
			"to":       status,
		})
		return nil, ErrInvalidStatusTransition
	}

	stamps := map[string]interface{}{}
	now := s.now()
	switch status {
	case model.OrderStatusShipped:
		stamps["shipped_at"] = now
	case model.OrderStatusDelivered:
		stamps["delivered_at"] = now
	}

	updated, err := s.orderRepo.UpdateStatus(ctx, orderID, order.Status, status, stamps)
	if err != nil {
		return nil, err
	}
	if !updated {
		logger.Warn("Order status changed concurrently", map[string]interface{}{
			"order_id": orderID,
			"to":       status,
		})
		return nil, ErrInvalidStatusTransition
	}

	logger.Info("Order status updated", map[string]interface{}{
		"order_id": orderID,
		"from":     order.Status,
		"to":       status,
	})
	return s.orderRepo.FindByID(ctx, orderID)
}
