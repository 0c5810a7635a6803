package ports

import "context"

// AuthorizationRequest is the bank-facing payload for one authorization call.
type AuthorizationRequest struct {
	Amount     int64  `json:"amount"`
	CardNumber string `json:"card_number"`
	ExpiryDate string `json:"expiry_date"` // "MM/YYYY"
	Cvv        string `json:"cvv"`
	Currency   string `json:"currency"`
}

// AuthorizationResponse is the bank's answer on a successful call.
type AuthorizationResponse struct {
	Authorized        bool   `json:"authorized"`
	AuthorizationCode string `json:"authorization_code,omitempty"`
}

// AcquiringBankClient performs the external authorization call. A bank-side
// bad request surfaces as a KindBusinessRejection error; any other failure
// (transport, timeout, unexpected status) as KindIntegrationFailure.
type AcquiringBankClient interface {
	Authorize(ctx context.Context, req AuthorizationRequest) (*AuthorizationResponse, error)
}
