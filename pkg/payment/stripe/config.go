package stripe

import "time"

// Config represents the configuration for the Stripe client
type Config struct {
	// SecretKey is the Stripe secret API key (sk_...)
	SecretKey string

	// BaseURL is the Stripe API base URL, overridden in tests
	BaseURL string

	// Timeout bounds each HTTP round trip
	Timeout time.Duration
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.SecretKey == "" {
		return ErrInvalidConfig
	}
	if c.BaseURL == "" {
		return ErrInvalidConfig
	}
	return nil
}
