package service

import (
	"errors"
	"fmt"

	"github.com/hairpin-store/hairpin-backend/pkg/util"
)

var (
	ErrProductNotFound         = errors.New("product not found")
	ErrCartNotFound            = errors.New("cart not found")
	ErrItemNotInCart           = errors.New("product is not in the cart")
	ErrOrderNotFound           = errors.New("order not found")
	ErrUserNotFound            = errors.New("user not found")
	ErrRoleNotFound            = errors.New("role not found")
	ErrRoleNotAssigned         = errors.New("user does not hold the role")
	ErrSKUConflict             = errors.New("sku already in use")
	ErrRoleAlreadyAssigned     = errors.New("user already holds the role")
	ErrRoleAlreadyExists       = errors.New("role already exists")
	ErrLastAdministrator       = errors.New("cannot remove the last administrator")
	ErrEmailAlreadyExists      = errors.New("email already registered")
	ErrInvalidCredentials      = errors.New("invalid email or password")
	ErrInvalidQuantity         = errors.New("quantity must be at least 1")
	ErrInvalidProductInput     = errors.New("invalid product input")
	ErrInvalidStockAdjustment  = errors.New("stock adjustment would make stock negative")
	ErrEmptyCart               = errors.New("cart is empty")
	ErrInvalidShipping         = errors.New("shipping name and address are required")
	ErrInvalidStatusTransition = errors.New("order status transition not allowed")
	ErrInvalidRoleName         = errors.New("role name is required")
	ErrInsufficientStock       = errors.New("insufficient stock")
	ErrPaymentFailed           = errors.New("payment failed")
	ErrCheckoutFatal           = errors.New("order could not be recorded after payment")
)

// Kind groups service errors for transport mapping.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindConflict
	KindInvalid
	KindInsufficientStock
	KindPaymentFailed
	KindFatal
	KindUnauthorized
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindInvalid:
		return "invalid"
	case KindInsufficientStock:
		return "insufficient_stock"
	case KindPaymentFailed:
		return "payment_failed"
	case KindFatal:
		return "fatal"
	case KindUnauthorized:
		return "unauthorized"
	default:
		return "internal"
	}
}

var errorKinds = []struct {
	err  error
	kind Kind
}{
	// Fatal first: a FatalError may wrap a payment or storage cause.
	{ErrCheckoutFatal, KindFatal},
	{ErrInsufficientStock, KindInsufficientStock},
	{ErrPaymentFailed, KindPaymentFailed},
	{ErrProductNotFound, KindNotFound},
	{ErrCartNotFound, KindNotFound},
	{ErrItemNotInCart, KindNotFound},
	{ErrOrderNotFound, KindNotFound},
	{ErrUserNotFound, KindNotFound},
	{ErrRoleNotFound, KindNotFound},
	{ErrRoleNotAssigned, KindNotFound},
	{ErrSKUConflict, KindConflict},
	{ErrRoleAlreadyAssigned, KindConflict},
	{ErrRoleAlreadyExists, KindConflict},
	{ErrLastAdministrator, KindConflict},
	{ErrEmailAlreadyExists, KindConflict},
	{ErrInvalidQuantity, KindInvalid},
	{ErrInvalidProductInput, KindInvalid},
	{ErrInvalidStockAdjustment, KindInvalid},
	{ErrEmptyCart, KindInvalid},
	{ErrInvalidShipping, KindInvalid},
	{ErrInvalidStatusTransition, KindInvalid},
	{ErrInvalidRoleName, KindInvalid},
	{util.ErrWeakPassword, KindInvalid},
	{ErrInvalidCredentials, KindUnauthorized},
}

// KindOf classifies err. Unknown errors are KindInternal.
func KindOf(err error) Kind {
	if err == nil {
		return KindInternal
	}
	for _, ek := range errorKinds {
		if errors.Is(err, ek.err) {
			return ek.kind
		}
	}
	return KindInternal
}

// InsufficientStockError names the cart line that could not be reserved.
type InsufficientStockError struct {
	ProductID   uint
	ProductName string
	Requested   int
	Available   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %q (product %d): requested %d, available %d",
		e.ProductName, e.ProductID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// ValidationError reports which input field was rejected.
type ValidationError struct {
	Field  string
	Reason string
	kind   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.kind
}

func invalidProduct(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason, kind: ErrInvalidProductInput}
}

// Reservation is one decremented cart line.
type Reservation struct {
	ProductID uint
	Quantity  int
}

// FatalError means checkout left state that needs a human: either the
// customer was charged but the order was not recorded, or reserved stock
// could not be released after a failed payment. It carries what an operator
// needs to reconcile by hand.
type FatalError struct {
	AttemptID        string
	UserID           uint
	PaymentReference string
	AmountMinor      int64
	Currency         string
	Reservations     []Reservation
	Cause            error
}

func (e *FatalError) Error() string {
	if e.PaymentReference == "" {
		return fmt.Sprintf("checkout %s: reserved stock not released: %v", e.AttemptID, e.Cause)
	}
	return fmt.Sprintf("checkout %s: payment %s captured but order not recorded: %v",
		e.AttemptID, e.PaymentReference, e.Cause)
}

func (e *FatalError) Is(target error) bool {
	return target == ErrCheckoutFatal
}

func (e *FatalError) Unwrap() error {
	return e.Cause
}
