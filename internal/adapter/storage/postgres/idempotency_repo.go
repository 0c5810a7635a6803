package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"card-payment-gateway/internal/core/domain"
	"card-payment-gateway/internal/core/ports"

	"github.com/jackc/pgx/v5"
)

// IdempotencyRepo implements ports.IdempotencyRepository on PostgreSQL.
// The claim relies on the primary key: INSERT ... ON CONFLICT DO NOTHING is
// one atomic statement, so concurrent claimants of the same key resolve to
// exactly one inserted row without any advisory locking.
type IdempotencyRepo struct {
	pool Pool
}

var _ ports.IdempotencyRepository = (*IdempotencyRepo)(nil)

// NewIdempotencyRepo creates a new IdempotencyRepo.
func NewIdempotencyRepo(pool Pool) *IdempotencyRepo {
	return &IdempotencyRepo{pool: pool}
}

// InsertIfAbsent claims key with a NULL result. Returns true when this
// caller inserted the row.
func (r *IdempotencyRepo) InsertIfAbsent(ctx context.Context, key string) (bool, error) {
	query := `INSERT INTO idempotency_records (key, result_json, created_at)
		VALUES ($1, NULL, $2)
		ON CONFLICT (key) DO NOTHING`

	tag, err := r.pool.Exec(ctx, query, key, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("claim idempotency key: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Update finalizes a claimed key. The WHERE clause skips rows that already
// carry a result, so a finalized record is never overwritten.
func (r *IdempotencyRepo) Update(ctx context.Context, key string, result domain.CreatePaymentResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode idempotency result: %w", err)
	}

	query := `UPDATE idempotency_records SET result_json = $1
		WHERE key = $2 AND result_json IS NULL`

	tag, err := r.pool.Exec(ctx, query, payload, key)
	if err != nil {
		return fmt.Errorf("finalize idempotency key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("idempotency key %q not claimed or already finalized", key)
	}
	return nil
}

// Remove releases a claim.
func (r *IdempotencyRepo) Remove(ctx context.Context, key string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM idempotency_records WHERE key = $1`, key); err != nil {
		return fmt.Errorf("release idempotency key: %w", err)
	}
	return nil
}

// Get fetches the record for a key, nil when unclaimed.
func (r *IdempotencyRepo) Get(ctx context.Context, key string) (*domain.IdempotencyRecord, error) {
	query := `SELECT key, result_json, created_at FROM idempotency_records WHERE key = $1`

	rec := &domain.IdempotencyRecord{}
	var payload []byte
	err := r.pool.QueryRow(ctx, query, key).Scan(&rec.Key, &payload, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get idempotency record: %w", err)
	}

	if payload != nil {
		var result domain.CreatePaymentResult
		if err := json.Unmarshal(payload, &result); err != nil {
			return nil, fmt.Errorf("decode idempotency result: %w", err)
		}
		rec.Result = &result
	}
	return rec, nil
}
