package dto

import (
	"time"

	"card-payment-gateway/internal/core/domain"
	"card-payment-gateway/internal/core/ports"
)

// PostPaymentRequest is the request body for payment submission.
type PostPaymentRequest struct {
	CardNumber  string `json:"card_number" binding:"required,card_number"`
	ExpiryMonth int    `json:"expiry_month" binding:"required,min=1,max=12"`
	ExpiryYear  int    `json:"expiry_year" binding:"required"`
	Currency    string `json:"currency" binding:"required,supported_currency"`
	Amount      int64  `json:"amount" binding:"required,gt=0"` // minor units
	Cvv         string `json:"cvv" binding:"required,cvv"`
}

// PostPaymentResponse is the response body for a processed payment.
type PostPaymentResponse struct {
	ID                 string `json:"id"`
	Success            bool   `json:"success"`
	Status             string `json:"status,omitempty"`
	CardNumberLastFour string `json:"card_number_last_four,omitempty"`
}

// GetPaymentResponse is the response body for a payment lookup.
type GetPaymentResponse struct {
	ID                 string `json:"id"`
	Status             string `json:"status"`
	MaskedCardNumber   string `json:"masked_card_number"`
	CardNumberLastFour string `json:"card_number_last_four"`
	ExpiryMonth        int    `json:"expiry_month"`
	ExpiryYear         int    `json:"expiry_year"`
	Currency           string `json:"currency"`
	Amount             int64  `json:"amount"`
	CreatedAt          string `json:"created_at"`
}

// TokenRequest is the request body for merchant token issuance.
type TokenRequest struct {
	MerchantID string `json:"merchant_id" binding:"required,uuid"`
}

// TokenResponse is the response body for a token grant.
type TokenResponse struct {
	Token  string `json:"token"`
	Expiry int64  `json:"expiry"` // Unix timestamp
}

// ToPostPaymentResponse maps a pipeline result to the API shape.
func ToPostPaymentResponse(result *domain.CreatePaymentResult, cardNumber string) PostPaymentResponse {
	resp := PostPaymentResponse{
		ID:      result.ID.String(),
		Success: result.Success,
	}
	if result.Status != nil {
		resp.Status = string(*result.Status)
		resp.CardNumberLastFour = domain.LastFour(cardNumber)
	}
	return resp
}

// ToGetPaymentResponse maps payment details to the API shape.
func ToGetPaymentResponse(d *ports.PaymentDetails) GetPaymentResponse {
	return GetPaymentResponse{
		ID:                 d.ID.String(),
		Status:             string(d.Status),
		MaskedCardNumber:   d.MaskedCardNumber,
		CardNumberLastFour: d.CardLastFour,
		ExpiryMonth:        d.ExpiryMonth,
		ExpiryYear:         d.ExpiryYear,
		Currency:           string(d.Currency),
		Amount:             d.Amount,
		CreatedAt:          d.CreatedAt.Format(time.RFC3339),
	}
}
