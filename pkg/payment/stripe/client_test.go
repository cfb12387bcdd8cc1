package stripe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hairpin-store/hairpin-backend/pkg/payment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(Config{SecretKey: "sk_test_123", BaseURL: server.URL, Timeout: time.Second})
	require.NoError(t, err)
	return client
}

func TestNewClient_InvalidConfig(t *testing.T) {
	_, err := NewClient(Config{BaseURL: "https://api.stripe.com"})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestCreateCharge_Success(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/payment_intents", r.URL.Path)
		assert.Equal(t, "Bearer sk_test_123", r.Header.Get("Authorization"))
		assert.Equal(t, "attempt-1", r.Header.Get("Idempotency-Key"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "2697", r.PostForm.Get("amount"))
		assert.Equal(t, "usd", r.PostForm.Get("currency"))
		assert.Equal(t, "card", r.PostForm.Get("payment_method_types[]"))
		assert.Equal(t, "7", r.PostForm.Get("metadata[user_id]"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"pi_123","object":"payment_intent","amount":2697,"currency":"usd","status":"requires_confirmation","client_secret":"pi_123_secret_abc"}`))
	})

	charge, err := client.CreateCharge(context.Background(), payment.ChargeRequest{
		AmountMinor:    2697,
		Currency:       "USD",
		IdempotencyKey: "attempt-1",
		Metadata:       map[string]string{"user_id": "7"},
	})
	require.NoError(t, err)
	assert.Equal(t, "pi_123", charge.Reference)
	assert.Equal(t, "pi_123_secret_abc", charge.ClientSecret)
	assert.Equal(t, "requires_confirmation", charge.Status)
}

func TestCreateCharge_Declined(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		w.Write([]byte(`{"error":{"type":"card_error","code":"card_declined","decline_code":"insufficient_funds","message":"Your card has insufficient funds."}}`))
	})

	_, err := client.CreateCharge(context.Background(), payment.ChargeRequest{AmountMinor: 100, Currency: "usd"})
	assert.ErrorIs(t, err, payment.ErrDeclined)
}

func TestCreateCharge_ServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":{"type":"api_error","message":"boom"}}`))
	})

	_, err := client.CreateCharge(context.Background(), payment.ChargeRequest{AmountMinor: 100, Currency: "usd"})
	assert.ErrorIs(t, err, payment.ErrUnavailable)
}

func TestCreateCharge_Unauthorized(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"type":"invalid_request_error","message":"Invalid API Key"}}`))
	})

	_, err := client.CreateCharge(context.Background(), payment.ChargeRequest{AmountMinor: 100, Currency: "usd"})
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.ErrorIs(t, err, payment.ErrUnavailable)
}

func TestCreateCharge_Timeout(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.CreateCharge(ctx, payment.ChargeRequest{AmountMinor: 100, Currency: "usd"})
	assert.ErrorIs(t, err, payment.ErrUnavailable)
}

func TestCreateCharge_RejectsNonPositiveAmount(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("request should not be sent")
	})

	_, err := client.CreateCharge(context.Background(), payment.ChargeRequest{AmountMinor: 0, Currency: "usd"})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}
