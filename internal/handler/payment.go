package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"payments/internal/service"
)

// PaymentHandler handles HTTP requests for payments.
type PaymentHandler struct {
	paymentService *service.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(paymentService *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

// GetPayment handles GET /api/payment/:id
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	paymentID := c.Param("id")

	payment, err := h.paymentService.GetPayment(c.Request.Context(), paymentID)
	if err != nil {
		if errors.Is(err, service.ErrInvalidPaymentID) {
			respondError(c, err, "Payment id is required")
			return
		}
		respondError(c, err, "Payment not found with id: "+paymentID)
		return
	}

	c.JSON(http.StatusOK, payment)
}
