package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"soora-backend/internal/logger"
	"soora-backend/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type DeliveryHandler struct {
	deliveryService services.DeliveryService
}

func NewDeliveryHandler(deliveryService services.DeliveryService) *DeliveryHandler {
	return &DeliveryHandler{deliveryService: deliveryService}
}

type QuoteRequest struct {
	AddressID uint `json:"address_id" binding:"required"`
}

type DispatchRequest struct {
	OrderID uint `json:"order_id" binding:"required"`
}

// Quote resolves a delivery fee for an address. Provider failures are
// already degraded to the flat fee inside the service, so only
// validation problems produce an error response.
func (h *DeliveryHandler) Quote(c *gin.Context) {
	var req QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	quote, err := h.deliveryService.ResolveFee(c.Request.Context(), req.AddressID)
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Address not found"})
		case errors.Is(err, services.ErrInvalidPostalCode),
			errors.Is(err, services.ErrInvalidStreet):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve fee"})
		}
		return
	}

	c.JSON(http.StatusOK, quote)
}

// Dispatch manually re-triggers delivery creation for a paid order that
// failed to dispatch automatically.
func (h *DeliveryHandler) Dispatch(c *gin.Context) {
	var req DispatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	if err := h.deliveryService.Dispatch(c.Request.Context(), req.OrderID); err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		case errors.Is(err, services.ErrAlreadyDispatched):
			c.JSON(http.StatusConflict, gin.H{"error": "Order already has a delivery assigned"})
		default:
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "dispatched"})
}

func (h *DeliveryHandler) Track(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order id"})
		return
	}

	info, err := h.deliveryService.Track(c.Request.Context(), uint(id))
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		case errors.Is(err, services.ErrNoDelivery):
			c.JSON(http.StatusBadRequest, gin.H{"error": "No delivery assigned yet"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load delivery status"})
		}
		return
	}

	c.JSON(http.StatusOK, info)
}

func (h *DeliveryHandler) DriverLocation(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order id"})
		return
	}

	location, err := h.deliveryService.DriverLocation(c.Request.Context(), uint(id))
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound), errors.Is(err, services.ErrNoDelivery):
			c.JSON(http.StatusNotFound, gin.H{"error": "Delivery not found"})
		default:
			c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to load driver location"})
		}
		return
	}

	c.JSON(http.StatusOK, location)
}

// Webhook receives delivery-status pushes from the provider. It always
// acks 200, including on processing failure, so the provider does not
// retry-storm; failures are only logged.
func (h *DeliveryHandler) Webhook(c *gin.Context) {
	var event services.WebhookEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		logger.L().Warn("malformed delivery webhook payload", zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	if err := h.deliveryService.ApplyWebhook(c.Request.Context(), &event); err != nil {
		logger.L().Error("failed to process delivery webhook",
			zap.String("event_type", event.EventType),
			zap.String("event_id", event.EventID),
			zap.Error(err),
		)
	}

	c.JSON(http.StatusOK, gin.H{"status": "received"})
}
