package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hairpin-store/hairpin-backend/pkg/logger"
	"github.com/hairpin-store/hairpin-backend/pkg/payment"
)

const defaultTimeout = 15 * time.Second

// Client represents a Stripe PaymentIntents API client
type Client struct {
	config     Config
	httpClient *http.Client
}

// NewClient creates a new Stripe client with the given configuration
func NewClient(config Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if config.Timeout <= 0 {
		config.Timeout = defaultTimeout
	}

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
	}, nil
}

// CreateCharge creates a card PaymentIntent for the amount.
func (c *Client) CreateCharge(ctx context.Context, req payment.ChargeRequest) (*payment.Charge, error) {
	if req.AmountMinor <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidRequest)
	}

	form := url.Values{}
	form.Set("amount", strconv.FormatInt(req.AmountMinor, 10))
	form.Set("currency", strings.ToLower(req.Currency))
	form.Add("payment_method_types[]", "card")
	for k, v := range req.Metadata {
		form.Set("metadata["+k+"]", v)
	}

	body, err := c.doRequest(ctx, "/v1/payment_intents", form, req.IdempotencyKey)
	if err != nil {
		return nil, err
	}

	var intent PaymentIntent
	if err := json.Unmarshal(body, &intent); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payment intent: %w", err)
	}

	logger.Debug("Stripe payment intent created", map[string]interface{}{
		"payment_intent": intent.ID,
		"status":         intent.Status,
		"amount":         intent.Amount,
	})

	return &payment.Charge{
		Reference:    intent.ID,
		ClientSecret: intent.ClientSecret,
		Status:       intent.Status,
	}, nil
}

// doRequest posts a form-encoded request and maps failures onto payment errors.
func (c *Client) doRequest(ctx context.Context, path string, form url.Values, idempotencyKey string) ([]byte, error) {
	endpoint := strings.TrimRight(c.config.BaseURL, "/") + path

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.config.SecretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", payment.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response body: %v", payment.ErrUnavailable, err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return body, nil
	}

	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err != nil {
		return nil, fmt.Errorf("%w: unexpected status code %d", payment.ErrUnavailable, resp.StatusCode)
	}
	apiErr := errResp.Error

	logger.Warn("Stripe API error", map[string]interface{}{
		"status":       resp.StatusCode,
		"type":         apiErr.Type,
		"code":         apiErr.Code,
		"decline_code": apiErr.DeclineCode,
	})

	switch {
	case apiErr.Type == errorTypeCard || resp.StatusCode == http.StatusPaymentRequired:
		return nil, fmt.Errorf("%w: %s", payment.ErrDeclined, apiErr.Message)
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, errors.Join(payment.ErrUnavailable, ErrUnauthorized)
	case resp.StatusCode == http.StatusBadRequest:
		return nil, fmt.Errorf("%w: %s", ErrInvalidRequest, apiErr.Message)
	default:
		return nil, fmt.Errorf("%w: status %d: %s", payment.ErrUnavailable, resp.StatusCode, apiErr.Message)
	}
}
