package ports

import (
	"context"
	"time"

	"card-payment-gateway/internal/core/domain"

	"github.com/google/uuid"
)

// Authorizer runs one create-payment request through the authorization
// pipeline. Both the bare authorizer and its idempotency-guarded wrapper
// satisfy this interface; the guard composes the inner authorizer directly.
type Authorizer interface {
	Authorize(ctx context.Context, cmd domain.CreatePaymentCommand) (*domain.CreatePaymentResult, error)
}

// PaymentQueryService reads back stored payments, scoped to the owning
// merchant.
type PaymentQueryService interface {
	GetPayment(ctx context.Context, merchantID, paymentID uuid.UUID) (*PaymentDetails, error)
}

// PaymentDetails is the merchant-facing projection of a stored Payment.
type PaymentDetails struct {
	ID               uuid.UUID
	Status           domain.PaymentStatus
	MaskedCardNumber string
	CardLastFour     string
	ExpiryMonth      int
	ExpiryYear       int
	Currency         domain.Currency
	Amount           int64
	CreatedAt        time.Time
}

// EncryptionService protects card data at rest.
type EncryptionService interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// TokenService handles merchant JWT operations.
type TokenService interface {
	Generate(merchantID uuid.UUID) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	MerchantID uuid.UUID
}

// ResultCache is a best-effort fast path in front of the idempotency ledger.
// It only ever holds finalized results; the in-process ledger remains the
// source of truth for claim semantics.
type ResultCache interface {
	// Get returns the cached result or nil on a miss.
	Get(ctx context.Context, key string) (*domain.CreatePaymentResult, error)
	Set(ctx context.Context, key string, result domain.CreatePaymentResult, ttl time.Duration) error
}
