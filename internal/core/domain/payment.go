package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// PaymentStatus is the terminal outcome of an authorization attempt.
type PaymentStatus string

const (
	PaymentStatusAuthorized PaymentStatus = "AUTHORIZED"
	PaymentStatusDeclined   PaymentStatus = "DECLINED"
	PaymentStatusRejected   PaymentStatus = "REJECTED"
)

// Currency is an ISO-4217 code accepted by the acquiring bank.
type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
	CurrencyGBP Currency = "GBP"
)

// SupportedCurrencies lists the currencies the gateway accepts.
var SupportedCurrencies = map[Currency]bool{
	CurrencyUSD: true,
	CurrencyEUR: true,
	CurrencyGBP: true,
}

// ParseCurrency maps a case-insensitive code to a supported Currency.
func ParseCurrency(code string) (Currency, bool) {
	c := Currency(strings.ToUpper(code))
	return c, SupportedCurrencies[c]
}

// Payment is the immutable record of a completed authorization attempt.
// It is only ever constructed after a definitive bank response; the card
// number and cvv are stored encrypted.
type Payment struct {
	ID                uuid.UUID     `json:"id"`
	MerchantID        uuid.UUID     `json:"merchant_id"`
	CardNumberEnc     string        `json:"card_number_enc"`
	CvvEnc            string        `json:"cvv_enc"`
	ExpiryMonth       int           `json:"expiry_month"`
	ExpiryYear        int           `json:"expiry_year"`
	Currency          Currency      `json:"currency"`
	Amount            int64         `json:"amount"` // minor units
	Status            PaymentStatus `json:"status"`
	AuthorizationCode string        `json:"authorization_code,omitempty"` // only when AUTHORIZED
	CreatedAt         time.Time     `json:"created_at"`
}

// CreatePaymentCommand carries a validated authorization request through the
// pipeline. The payment id is generated when the command is built, never by
// the bank, so duplicate submissions under one idempotency key can be
// answered with a stable identifier.
type CreatePaymentCommand struct {
	ID             uuid.UUID
	MerchantID     uuid.UUID
	CardNumber     string
	ExpiryMonth    int
	ExpiryYear     int
	Currency       Currency
	Amount         int64
	Cvv            string
	IdempotencyKey string // empty = no deduplication
}

// NewCreatePaymentCommand builds a command with a freshly generated payment id.
func NewCreatePaymentCommand(
	merchantID uuid.UUID,
	cardNumber string,
	expiryMonth, expiryYear int,
	currency Currency,
	amount int64,
	cvv string,
	idempotencyKey string,
) CreatePaymentCommand {
	return CreatePaymentCommand{
		ID:             uuid.New(),
		MerchantID:     merchantID,
		CardNumber:     cardNumber,
		ExpiryMonth:    expiryMonth,
		ExpiryYear:     expiryYear,
		Currency:       currency,
		Amount:         amount,
		Cvv:            cvv,
		IdempotencyKey: idempotencyKey,
	}
}

// CreatePaymentResult is the pipeline outcome returned to every caller that
// submits the same logical request. Status is nil when the bank rejected the
// request outright.
type CreatePaymentResult struct {
	ID      uuid.UUID      `json:"id"`
	Success bool           `json:"success"`
	Status  *PaymentStatus `json:"status,omitempty"`
}

// LastFour returns the last four digits of a card number.
func LastFour(cardNumber string) string {
	if len(cardNumber) < 4 {
		return cardNumber
	}
	return cardNumber[len(cardNumber)-4:]
}

// MaskCardNumber keeps the last four digits and masks the rest with 'X'.
func MaskCardNumber(cardNumber string) string {
	if len(cardNumber) <= 4 {
		return cardNumber
	}
	return strings.Repeat("X", len(cardNumber)-4) + LastFour(cardNumber)
}
