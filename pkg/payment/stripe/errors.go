package stripe

import "errors"

var (
	// ErrInvalidConfig is returned when the client configuration is incomplete
	ErrInvalidConfig = errors.New("invalid stripe configuration")

	// ErrUnauthorized is returned when the API key is rejected
	ErrUnauthorized = errors.New("unauthorized: invalid API key")

	// ErrInvalidRequest is returned when Stripe rejects the parameters
	ErrInvalidRequest = errors.New("invalid request parameters")
)
