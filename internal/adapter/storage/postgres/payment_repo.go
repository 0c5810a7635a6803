package postgres

import (
	"context"
	"errors"
	"fmt"

	"card-payment-gateway/internal/core/domain"
	"card-payment-gateway/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// PaymentRepo implements ports.PaymentRepository.
type PaymentRepo struct {
	pool Pool
}

var _ ports.PaymentRepository = (*PaymentRepo)(nil)

// NewPaymentRepo creates a new PaymentRepo.
func NewPaymentRepo(pool Pool) *PaymentRepo {
	return &PaymentRepo{pool: pool}
}

// Insert stores a payment unless its id already exists. ON CONFLICT DO
// NOTHING makes the existence check and the write one atomic statement.
func (r *PaymentRepo) Insert(ctx context.Context, p *domain.Payment) (bool, error) {
	query := `INSERT INTO payments (id, merchant_id, card_number_enc, cvv_enc, expiry_month, expiry_year,
		currency, amount, status, authorization_code, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO NOTHING`

	tag, err := r.pool.Exec(ctx, query,
		p.ID, p.MerchantID, p.CardNumberEnc, p.CvvEnc, p.ExpiryMonth, p.ExpiryYear,
		p.Currency, p.Amount, p.Status, p.AuthorizationCode, p.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert payment: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Update replaces an existing payment record.
func (r *PaymentRepo) Update(ctx context.Context, p *domain.Payment) error {
	query := `UPDATE payments SET status = $1, authorization_code = $2 WHERE id = $3`

	tag, err := r.pool.Exec(ctx, query, p.Status, p.AuthorizationCode, p.ID)
	if err != nil {
		return fmt.Errorf("update payment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("payment not found: %s", p.ID)
	}
	return nil
}

// Get fetches a payment by id, nil when not found.
func (r *PaymentRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	query := `SELECT id, merchant_id, card_number_enc, cvv_enc, expiry_month, expiry_year,
		currency, amount, status, authorization_code, created_at
		FROM payments WHERE id = $1`

	p := &domain.Payment{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.MerchantID, &p.CardNumberEnc, &p.CvvEnc, &p.ExpiryMonth, &p.ExpiryYear,
		&p.Currency, &p.Amount, &p.Status, &p.AuthorizationCode, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get payment: %w", err)
	}
	return p, nil
}

// Remove deletes a payment by id.
func (r *PaymentRepo) Remove(ctx context.Context, id uuid.UUID) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM payments WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete payment: %w", err)
	}
	return nil
}
