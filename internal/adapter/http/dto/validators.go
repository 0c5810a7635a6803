package dto

import (
	"fmt"
	"regexp"
	"time"

	"card-payment-gateway/internal/core/domain"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	cardNumberRe = regexp.MustCompile(`^[0-9]{14,19}$`)
	cvvRe        = regexp.MustCompile(`^[0-9]{3,4}$`)
)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("card_number", validateCardNumber)
		_ = v.RegisterValidation("cvv", validateCvv)
		_ = v.RegisterValidation("supported_currency", validateSupportedCurrency)
	}
}

// validateCardNumber requires 14 to 19 numeric characters.
func validateCardNumber(fl validator.FieldLevel) bool {
	return cardNumberRe.MatchString(fl.Field().String())
}

// validateCvv requires 3 to 4 numeric characters.
func validateCvv(fl validator.FieldLevel) bool {
	return cvvRe.MatchString(fl.Field().String())
}

// validateSupportedCurrency accepts only currencies the gateway processes.
func validateSupportedCurrency(fl validator.FieldLevel) bool {
	_, ok := domain.ParseCurrency(fl.Field().String())
	return ok
}

// ValidateExpiry rejects cards whose expiry month has already passed. The
// month/year pair is valid through the last instant of that month.
func (r *PostPaymentRequest) ValidateExpiry(now time.Time) error {
	if r.ExpiryYear < now.Year() ||
		(r.ExpiryYear == now.Year() && r.ExpiryMonth < int(now.Month())) {
		return fmt.Errorf("card expired %02d/%d", r.ExpiryMonth, r.ExpiryYear)
	}
	return nil
}
