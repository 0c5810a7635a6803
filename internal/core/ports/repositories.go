package ports

import (
	"context"

	"card-payment-gateway/internal/core/domain"

	"github.com/google/uuid"
)

// PaymentRepository is the keyed store of finalized Payment records. A
// Payment is inserted exactly once, after a definitive bank response.
type PaymentRepository interface {
	// Insert stores a payment if and only if no payment with the same id
	// exists. Returns false when the id was already present.
	Insert(ctx context.Context, payment *domain.Payment) (bool, error)
	// Update replaces an existing payment. Returns an error if absent.
	Update(ctx context.Context, payment *domain.Payment) error
	// Get returns the payment or nil when not found.
	Get(ctx context.Context, id uuid.UUID) (*domain.Payment, error)
	Remove(ctx context.Context, id uuid.UUID) error
}

// IdempotencyRepository is the ledger of idempotency claims. All four
// operations are atomic with respect to concurrent callers on the same key;
// in particular InsertIfAbsent is a single compare-and-insert, never a
// read-then-write.
type IdempotencyRepository interface {
	// InsertIfAbsent claims the key with an unset record. Returns true when
	// this caller took the claim, false when the key was already present.
	InsertIfAbsent(ctx context.Context, key string) (bool, error)
	// Update finalizes a claimed key with its result. Returns an error when
	// the key is absent or already finalized.
	Update(ctx context.Context, key string, result domain.CreatePaymentResult) error
	// Remove releases a claim so a later retry may reclaim the key.
	Remove(ctx context.Context, key string) error
	// Get returns the record for a key, or nil when the key is unclaimed.
	Get(ctx context.Context, key string) (*domain.IdempotencyRecord, error)
}
