package service

import (
	"context"
	"testing"

	"card-payment-gateway/internal/core/domain"
	"card-payment-gateway/internal/core/ports"
	"card-payment-gateway/internal/core/ports/mocks"
	"card-payment-gateway/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type authorizeTestDeps struct {
	svc      *AuthorizeService
	bank     *mocks.MockAcquiringBankClient
	payments *mocks.MockPaymentRepository
	encSvc   *mocks.MockEncryptionService
	ctrl     *gomock.Controller
}

func setupAuthorizeService(t *testing.T) *authorizeTestDeps {
	ctrl := gomock.NewController(t)
	d := &authorizeTestDeps{
		bank:     mocks.NewMockAcquiringBankClient(ctrl),
		payments: mocks.NewMockPaymentRepository(ctrl),
		encSvc:   mocks.NewMockEncryptionService(ctrl),
		ctrl:     ctrl,
	}
	d.svc = NewAuthorizeService(d.bank, d.payments, d.encSvc, zerolog.Nop())
	return d
}

func testCommand(merchantID uuid.UUID, idempotencyKey string) domain.CreatePaymentCommand {
	return domain.NewCreatePaymentCommand(
		merchantID, "2222405343248877", 4, 2030, domain.CurrencyGBP, 10043, "123", idempotencyKey,
	)
}

func TestAuthorizeService_Authorized(t *testing.T) {
	d := setupAuthorizeService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	cmd := testCommand(uuid.New(), "")

	d.bank.EXPECT().Authorize(ctx, ports.AuthorizationRequest{
		Amount:     10043,
		CardNumber: "2222405343248877",
		ExpiryDate: "04/2030",
		Cvv:        "123",
		Currency:   "GBP",
	}).Return(&ports.AuthorizationResponse{Authorized: true, AuthorizationCode: "AUTH-1"}, nil)
	d.encSvc.EXPECT().Encrypt("2222405343248877").Return("enc_card", nil)
	d.encSvc.EXPECT().Encrypt("123").Return("enc_cvv", nil)
	d.payments.EXPECT().Insert(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, p *domain.Payment) (bool, error) {
			assert.Equal(t, cmd.ID, p.ID)
			assert.Equal(t, domain.PaymentStatusAuthorized, p.Status)
			assert.Equal(t, "enc_card", p.CardNumberEnc)
			assert.Equal(t, "AUTH-1", p.AuthorizationCode)
			return true, nil
		})

	result, err := d.svc.Authorize(ctx, cmd)
	require.NoError(t, err)
	assert.Equal(t, cmd.ID, result.ID)
	assert.True(t, result.Success)
	require.NotNil(t, result.Status)
	assert.Equal(t, domain.PaymentStatusAuthorized, *result.Status)
}

func TestAuthorizeService_Declined(t *testing.T) {
	d := setupAuthorizeService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	cmd := testCommand(uuid.New(), "")

	// Even a stray code on a decline must not be persisted: a code only
	// exists for authorized payments.
	d.bank.EXPECT().Authorize(ctx, gomock.Any()).
		Return(&ports.AuthorizationResponse{Authorized: false, AuthorizationCode: "AUTH-9"}, nil)
	d.encSvc.EXPECT().Encrypt(gomock.Any()).Return("enc", nil).Times(2)
	d.payments.EXPECT().Insert(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, p *domain.Payment) (bool, error) {
			assert.Equal(t, domain.PaymentStatusDeclined, p.Status)
			assert.Empty(t, p.AuthorizationCode)
			return true, nil
		})

	result, err := d.svc.Authorize(ctx, cmd)
	require.NoError(t, err)
	assert.True(t, result.Success, "a decline is still a successful pipeline run")
	require.NotNil(t, result.Status)
	assert.Equal(t, domain.PaymentStatusDeclined, *result.Status)
}

func TestAuthorizeService_BankRejection(t *testing.T) {
	d := setupAuthorizeService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	cmd := testCommand(uuid.New(), "")

	d.bank.EXPECT().Authorize(ctx, gomock.Any()).Return(nil, apperror.ErrPaymentRejected())
	// Nothing is encrypted or persisted for a rejected request.

	result, err := d.svc.Authorize(ctx, cmd)
	require.NoError(t, err)
	assert.Equal(t, cmd.ID, result.ID)
	assert.False(t, result.Success)
	assert.Nil(t, result.Status)
}

func TestAuthorizeService_BankUnavailable(t *testing.T) {
	d := setupAuthorizeService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	cmd := testCommand(uuid.New(), "")

	d.bank.EXPECT().Authorize(ctx, gomock.Any()).
		Return(nil, apperror.ErrBankUnavailable(assert.AnError))

	result, err := d.svc.Authorize(ctx, cmd)
	assert.Nil(t, result)
	require.Error(t, err)
	assert.Equal(t, apperror.KindIntegrationFailure, apperror.KindOf(err))
}

func TestAuthorizeService_ExpiryDateFormat(t *testing.T) {
	d := setupAuthorizeService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	cmd := testCommand(uuid.New(), "")
	cmd.ExpiryMonth = 11
	cmd.ExpiryYear = 2031

	d.bank.EXPECT().Authorize(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, req ports.AuthorizationRequest) (*ports.AuthorizationResponse, error) {
			assert.Equal(t, "11/2031", req.ExpiryDate)
			return nil, apperror.ErrPaymentRejected()
		})

	_, err := d.svc.Authorize(ctx, cmd)
	require.NoError(t, err)
}
