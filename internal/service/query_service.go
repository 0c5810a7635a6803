package service

import (
	"context"
	"fmt"

	"card-payment-gateway/internal/core/domain"
	"card-payment-gateway/internal/core/ports"
	"card-payment-gateway/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// PaymentQueryServiceImpl implements ports.PaymentQueryService.
type PaymentQueryServiceImpl struct {
	payments ports.PaymentRepository
	encSvc   ports.EncryptionService
	log      zerolog.Logger
}

var _ ports.PaymentQueryService = (*PaymentQueryServiceImpl)(nil)

// NewPaymentQueryService creates a new PaymentQueryServiceImpl.
func NewPaymentQueryService(
	payments ports.PaymentRepository,
	encSvc ports.EncryptionService,
	log zerolog.Logger,
) *PaymentQueryServiceImpl {
	return &PaymentQueryServiceImpl{
		payments: payments,
		encSvc:   encSvc,
		log:      log,
	}
}

// GetPayment fetches a payment scoped to the requesting merchant. A payment
// owned by another merchant is reported as not found, never as forbidden,
// so the endpoint does not leak which ids exist.
func (s *PaymentQueryServiceImpl) GetPayment(ctx context.Context, merchantID, paymentID uuid.UUID) (*ports.PaymentDetails, error) {
	p, err := s.payments.Get(ctx, paymentID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get payment: %w", err))
	}
	if p == nil || p.MerchantID != merchantID {
		return nil, apperror.ErrPaymentNotFound()
	}

	cardNumber, err := s.encSvc.Decrypt(p.CardNumberEnc)
	if err != nil {
		return nil, apperror.ErrEncryptionFailure(fmt.Errorf("decrypt card number: %w", err))
	}

	return &ports.PaymentDetails{
		ID:               p.ID,
		Status:           p.Status,
		MaskedCardNumber: domain.MaskCardNumber(cardNumber),
		CardLastFour:     domain.LastFour(cardNumber),
		ExpiryMonth:      p.ExpiryMonth,
		ExpiryYear:       p.ExpiryYear,
		Currency:         p.Currency,
		Amount:           p.Amount,
		CreatedAt:        p.CreatedAt,
	}, nil
}
