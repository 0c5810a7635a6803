package service

import (
	"context"
	"fmt"
	"time"

	"card-payment-gateway/internal/core/domain"
	"card-payment-gateway/internal/core/ports"
	"card-payment-gateway/pkg/apperror"

	"github.com/rs/zerolog"
)

// AuthorizeService is the core authorization pipeline: build the bank
// request, call the acquiring bank, persist the outcome. It carries no
// idempotency logic of its own; wrap it in a GuardedAuthorizeService for
// deduplicated submission.
type AuthorizeService struct {
	bank     ports.AcquiringBankClient
	payments ports.PaymentRepository
	encSvc   ports.EncryptionService
	log      zerolog.Logger
}

var _ ports.Authorizer = (*AuthorizeService)(nil)

// NewAuthorizeService creates a new AuthorizeService.
func NewAuthorizeService(
	bank ports.AcquiringBankClient,
	payments ports.PaymentRepository,
	encSvc ports.EncryptionService,
	log zerolog.Logger,
) *AuthorizeService {
	return &AuthorizeService{
		bank:     bank,
		payments: payments,
		encSvc:   encSvc,
		log:      log,
	}
}

// Authorize submits cmd to the acquiring bank and records the outcome.
//
// A bank rejection (the bank refused to process the request) yields a
// result with Success=false and a nil error; nothing is persisted for it.
// An integration failure propagates as an error so the caller can release
// any idempotency claim and let the merchant retry.
func (s *AuthorizeService) Authorize(ctx context.Context, cmd domain.CreatePaymentCommand) (*domain.CreatePaymentResult, error) {
	req := ports.AuthorizationRequest{
		Amount:     cmd.Amount,
		CardNumber: cmd.CardNumber,
		ExpiryDate: fmt.Sprintf("%02d/%d", cmd.ExpiryMonth, cmd.ExpiryYear),
		Cvv:        cmd.Cvv,
		Currency:   string(cmd.Currency),
	}

	resp, err := s.bank.Authorize(ctx, req)
	if err != nil {
		if apperror.IsKind(err, apperror.KindBusinessRejection) {
			s.log.Info().
				Str("payment_id", cmd.ID.String()).
				Str("merchant_id", cmd.MerchantID.String()).
				Msg("payment rejected by acquiring bank")
			return &domain.CreatePaymentResult{ID: cmd.ID, Success: false}, nil
		}
		return nil, err
	}

	bankStatus := domain.BankStatusDeclined
	authCode := ""
	if resp.Authorized {
		bankStatus = domain.BankStatusAuthorized
		authCode = resp.AuthorizationCode
	}
	status, err := bankStatus.PaymentStatus()
	if err != nil {
		return nil, err
	}

	cardEnc, err := s.encSvc.Encrypt(cmd.CardNumber)
	if err != nil {
		return nil, apperror.ErrEncryptionFailure(fmt.Errorf("encrypt card number: %w", err))
	}
	cvvEnc, err := s.encSvc.Encrypt(cmd.Cvv)
	if err != nil {
		return nil, apperror.ErrEncryptionFailure(fmt.Errorf("encrypt cvv: %w", err))
	}

	payment := &domain.Payment{
		ID:                cmd.ID,
		MerchantID:        cmd.MerchantID,
		CardNumberEnc:     cardEnc,
		CvvEnc:            cvvEnc,
		ExpiryMonth:       cmd.ExpiryMonth,
		ExpiryYear:        cmd.ExpiryYear,
		Currency:          cmd.Currency,
		Amount:            cmd.Amount,
		Status:            status,
		AuthorizationCode: authCode,
		CreatedAt:         time.Now().UTC(),
	}

	if _, err := s.payments.Insert(ctx, payment); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("persist payment: %w", err))
	}

	s.log.Info().
		Str("payment_id", cmd.ID.String()).
		Str("merchant_id", cmd.MerchantID.String()).
		Str("status", string(status)).
		Msg("payment processed")

	return &domain.CreatePaymentResult{ID: cmd.ID, Success: true, Status: &status}, nil
}
