package domain

import (
	"time"

	"github.com/google/uuid"
)

// IdempotencyRecord is a ledger entry for one composite key. Result is nil
// while the claim is in flight and set exactly once when the first request
// finalizes. A finalized record is never overwritten.
type IdempotencyRecord struct {
	Key       string               `json:"key"`
	Result    *CreatePaymentResult `json:"result,omitempty"`
	CreatedAt time.Time            `json:"created_at"`
}

// Finalized reports whether the record carries a definitive result.
func (r *IdempotencyRecord) Finalized() bool {
	return r != nil && r.Result != nil
}

// BuildIdempotencyKey constructs the composite ledger key. Keys are scoped
// per merchant so two merchants reusing the same client key never collide.
func BuildIdempotencyKey(merchantID uuid.UUID, idempotencyKey string) string {
	return merchantID.String() + ":" + idempotencyKey
}
