package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for callers that need to branch on the failure
// class rather than inspect codes or wrapped causes.
type Kind string

const (
	KindValidation         Kind = "validation"
	KindUnauthorized       Kind = "unauthorized"
	KindNotFound           Kind = "not_found"
	KindBusinessRejection  Kind = "business_rejection"
	KindDuplicateInFlight  Kind = "duplicate_in_flight"
	KindIntegrationFailure Kind = "integration_failure"
	KindInvariantViolation Kind = "invariant_violation"
	KindRateLimited        Kind = "rate_limited"
	KindInternal           Kind = "internal"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Kind       Kind   `json:"-"`
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(kind Kind, code string, message string, httpStatus int) *AppError {
	return &AppError{
		Kind:       kind,
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(kind Kind, code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Kind:       kind,
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// KindOf extracts the Kind from an error chain. Unclassified errors report
// KindInternal.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// IsKind reports whether any error in the chain carries the given Kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// ---- Payment Pipeline (PAY) ----

// ErrPaymentRejected signals the acquiring bank refused the request payload
// itself. It is recovered into a success=false result, never surfaced as an
// HTTP error by the authorizer.
func ErrPaymentRejected() *AppError {
	return New(KindBusinessRejection, "PAY_001", "Payment rejected by acquiring bank", http.StatusUnprocessableEntity)
}

// ErrDuplicateRequest signals a submission whose idempotency key is currently
// claimed by another in-flight request.
func ErrDuplicateRequest() *AppError {
	return New(KindDuplicateInFlight, "PAY_002", "Duplicate payment request is being processed", http.StatusConflict)
}

func ErrPaymentNotFound() *AppError {
	return New(KindNotFound, "PAY_003", "Payment not found", http.StatusNotFound)
}

// ErrInvariant signals a broken programming contract, such as an unmapped
// bank status. Not recoverable, not retried.
func ErrInvariant(detail string) *AppError {
	return New(KindInvariantViolation, "PAY_004", fmt.Sprintf("Invariant violation: %s", detail), http.StatusInternalServerError)
}

// ---- Acquiring Bank Integration (BANK) ----

// ErrBankUnavailable signals an unexpected bank failure: transport error,
// timeout, or a non-success status other than bad request.
func ErrBankUnavailable(err error) *AppError {
	return Wrap(KindIntegrationFailure, "BANK_001", "Acquiring bank request failed", http.StatusBadGateway, err)
}

// ---- Security & Authentication (SEC) ----

func ErrInvalidToken() *AppError {
	return New(KindUnauthorized, "SEC_001", "Invalid or expired token", http.StatusUnauthorized)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New(KindRateLimited, "RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap(KindInternal, "SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

// ErrEncryptionFailure wraps a card-data encryption/decryption failure.
func ErrEncryptionFailure(err error) *AppError {
	return Wrap(KindInternal, "SYS_002", "Encryption service failure", http.StatusInternalServerError, err)
}

// Validation returns a request validation error.
func Validation(message string) *AppError {
	return New(KindValidation, "VAL_001", message, http.StatusBadRequest)
}
