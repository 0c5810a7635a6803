package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appErr   *AppError
		expected string
	}{
		{
			name:     "without wrapped error",
			appErr:   New(KindBusinessRejection, "PAY_001", "Payment rejected by acquiring bank", http.StatusUnprocessableEntity),
			expected: "[PAY_001] Payment rejected by acquiring bank",
		},
		{
			name:     "with wrapped error",
			appErr:   Wrap(KindIntegrationFailure, "BANK_001", "Acquiring bank request failed", http.StatusBadGateway, fmt.Errorf("connection refused")),
			expected: "[BANK_001] Acquiring bank request failed: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.appErr.Error())
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	inner := fmt.Errorf("inner error")
	appErr := Wrap(KindInternal, "SYS_001", "wrapped", http.StatusInternalServerError, inner)

	assert.True(t, errors.Is(appErr, inner))
}

func TestAppError_IsNilUnwrap(t *testing.T) {
	appErr := New(KindValidation, "VAL_001", "test", http.StatusBadRequest)
	assert.Nil(t, appErr.Unwrap())
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"business rejection", ErrPaymentRejected(), KindBusinessRejection},
		{"duplicate in flight", ErrDuplicateRequest(), KindDuplicateInFlight},
		{"integration failure", ErrBankUnavailable(fmt.Errorf("timeout")), KindIntegrationFailure},
		{"invariant violation", ErrInvariant("unknown bank status"), KindInvariantViolation},
		{"wrapped in fmt.Errorf", fmt.Errorf("context: %w", ErrDuplicateRequest()), KindDuplicateInFlight},
		{"plain error", fmt.Errorf("something broke"), KindInternal},
		{"nil error", nil, KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestIsKind(t *testing.T) {
	assert.True(t, IsKind(ErrPaymentRejected(), KindBusinessRejection))
	assert.False(t, IsKind(ErrPaymentRejected(), KindIntegrationFailure))
}

func TestPipelineErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		code       string
		httpStatus int
	}{
		{"PaymentRejected", ErrPaymentRejected(), "PAY_001", 422},
		{"DuplicateRequest", ErrDuplicateRequest(), "PAY_002", 409},
		{"PaymentNotFound", ErrPaymentNotFound(), "PAY_003", 404},
		{"Invariant", ErrInvariant("bad enum"), "PAY_004", 500},
		{"InvalidToken", ErrInvalidToken(), "SEC_001", 401},
		{"RateLimitExceeded", ErrRateLimitExceeded(), "RATE_001", 429},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.httpStatus, tt.err.HTTPStatus)
		})
	}
}

func TestSystemErrors(t *testing.T) {
	inner := fmt.Errorf("store unavailable")
	sysErr := InternalError(inner)
	assert.Equal(t, "SYS_001", sysErr.Code)
	assert.Equal(t, 500, sysErr.HTTPStatus)
	assert.True(t, errors.Is(sysErr, inner))

	encErr := ErrEncryptionFailure(inner)
	assert.Equal(t, "SYS_002", encErr.Code)
	assert.Equal(t, 500, encErr.HTTPStatus)
}

func TestBankErrors(t *testing.T) {
	inner := fmt.Errorf("503 from bank")
	err := ErrBankUnavailable(inner)
	assert.Equal(t, "BANK_001", err.Code)
	assert.Equal(t, 502, err.HTTPStatus)
	assert.True(t, errors.Is(err, inner))
}

func TestInvariantMessage(t *testing.T) {
	err := ErrInvariant("unknown bank status 'PENDING'")
	assert.Contains(t, err.Message, "unknown bank status 'PENDING'")
}
