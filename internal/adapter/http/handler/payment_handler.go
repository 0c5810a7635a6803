package handler

import (
	"time"

	"card-payment-gateway/internal/adapter/http/dto"
	"card-payment-gateway/internal/adapter/http/middleware"
	"card-payment-gateway/internal/core/domain"
	"card-payment-gateway/internal/core/ports"
	"card-payment-gateway/pkg/apperror"
	"card-payment-gateway/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PaymentHandler handles payment submission and lookup.
type PaymentHandler struct {
	authorizer ports.Authorizer
	querySvc   ports.PaymentQueryService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(authorizer ports.Authorizer, querySvc ports.PaymentQueryService) *PaymentHandler {
	return &PaymentHandler{authorizer: authorizer, querySvc: querySvc}
}

// CreatePayment handles POST /api/v1/payments. The optional X-Idempotency-Key
// header deduplicates retries of the same logical request; without it every
// submission is processed independently.
func (h *PaymentHandler) CreatePayment(c *gin.Context) {
	merchantID, ok := c.Get(middleware.CtxMerchantID)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.PostPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	if err := req.ValidateExpiry(time.Now().UTC()); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	currency, _ := domain.ParseCurrency(req.Currency)
	cmd := domain.NewCreatePaymentCommand(
		merchantID.(uuid.UUID),
		req.CardNumber,
		req.ExpiryMonth,
		req.ExpiryYear,
		currency,
		req.Amount,
		req.Cvv,
		c.GetHeader(middleware.HeaderIdempotencyKey),
	)

	result, err := h.authorizer.Authorize(c.Request.Context(), cmd)
	if err != nil {
		response.Error(c, err)
		return
	}

	body := dto.ToPostPaymentResponse(result, req.CardNumber)
	if !result.Success {
		// The bank refused the request. The submission was handled, there is
		// just no payment to point at.
		response.UnprocessableEntity(c, body)
		return
	}
	response.Created(c, "/api/v1/payments/"+body.ID, body)
}

// GetPayment handles GET /api/v1/payments/:id.
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	merchantID, ok := c.Get(middleware.CtxMerchantID)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	paymentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.ErrPaymentNotFound())
		return
	}

	details, err := h.querySvc.GetPayment(c.Request.Context(), merchantID.(uuid.UUID), paymentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.ToGetPaymentResponse(details))
}
