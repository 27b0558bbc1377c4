package handlers

import (
	"crypto/subtle"
	"errors"
	"net/http"

	"soora-backend/internal/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// PaymentHandler is the boundary with the payments collaborator. The
// payment provider integration itself lives outside this service; this
// endpoint only consumes its "payment succeeded" confirmation.
type PaymentHandler struct {
	orderService  services.OrderService
	webhookSecret string
}

func NewPaymentHandler(orderService services.OrderService, webhookSecret string) *PaymentHandler {
	return &PaymentHandler{orderService: orderService, webhookSecret: webhookSecret}
}

type PaymentConfirmation struct {
	OrderID   uint   `json:"order_id" binding:"required"`
	PaymentID string `json:"payment_id"`
}

// Confirm marks an order as paid and triggers delivery dispatch. A
// delivery-side failure never fails the confirmation; the payment is
// already settled on the collaborator's side.
func (h *PaymentHandler) Confirm(c *gin.Context) {
	secret := c.GetHeader("X-Webhook-Secret")
	if h.webhookSecret == "" ||
		subtle.ConstantTimeCompare([]byte(secret), []byte(h.webhookSecret)) != 1 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid webhook secret"})
		return
	}

	var req PaymentConfirmation
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	if err := h.orderService.ConfirmPayment(c.Request.Context(), req.OrderID); err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		case errors.Is(err, services.ErrOrderNotConfirmable):
			c.JSON(http.StatusConflict, gin.H{"error": "Order is not awaiting payment"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to confirm payment"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "confirmed"})
}
