// Package payment defines the provider-neutral charge contract used by checkout.
package payment

import (
	"context"
	"errors"
)

var (
	// ErrDeclined is returned when the provider refuses the charge.
	ErrDeclined = errors.New("payment declined")

	// ErrUnavailable is returned for network failures, timeouts and provider 5xx.
	ErrUnavailable = errors.New("payment provider unavailable")
)

// ChargeRequest asks the provider for AmountMinor (e.g. cents) in Currency.
type ChargeRequest struct {
	AmountMinor    int64
	Currency       string
	IdempotencyKey string
	Metadata       map[string]string
}

// Charge is the provider's confirmation. ClientSecret is the opaque handle
// returned to the client; Reference is stored on the order.
type Charge struct {
	Reference    string
	ClientSecret string
	Status       string
}

// Gateway creates charges with an external provider.
type Gateway interface {
	CreateCharge(ctx context.Context, req ChargeRequest) (*Charge, error)
}
