package domain

import "card-payment-gateway/pkg/apperror"

// BankAuthorizationStatus is the authorization outcome reported by the
// acquiring bank on a successful call.
type BankAuthorizationStatus string

const (
	BankStatusAuthorized BankAuthorizationStatus = "AUTHORIZED"
	BankStatusDeclined   BankAuthorizationStatus = "DECLINED"
)

// PaymentStatus maps a bank authorization status to the payment state machine.
// An unmapped value is a broken contract with the bank integration, never a
// recoverable condition.
func (s BankAuthorizationStatus) PaymentStatus() (PaymentStatus, error) {
	switch s {
	case BankStatusAuthorized:
		return PaymentStatusAuthorized, nil
	case BankStatusDeclined:
		return PaymentStatusDeclined, nil
	default:
		return "", apperror.ErrInvariant("unknown bank authorization status '" + string(s) + "'")
	}
}
