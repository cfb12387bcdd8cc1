package stripe

// PaymentIntent is the subset of the Stripe PaymentIntent object we read.
type PaymentIntent struct {
	ID           string            `json:"id"`
	Object       string            `json:"object"`
	Amount       int64             `json:"amount"`
	Currency     string            `json:"currency"`
	Status       string            `json:"status"`
	ClientSecret string            `json:"client_secret"`
	Metadata     map[string]string `json:"metadata"`
}

// ErrorResponse is the envelope Stripe returns for non-2xx responses.
type ErrorResponse struct {
	Error APIError `json:"error"`
}

type APIError struct {
	Type        string `json:"type"`
	Code        string `json:"code"`
	DeclineCode string `json:"decline_code"`
	Message     string `json:"message"`
}

const (
	errorTypeCard = "card_error"
)
