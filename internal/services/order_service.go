package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"soora-backend/internal/logger"
	"soora-backend/internal/models"
	"soora-backend/internal/repository"

	"go.uber.org/zap"
)

type OrderItemInput struct {
	ProductID uint `json:"product_id" binding:"required"`
	Quantity  int  `json:"quantity" binding:"required,gt=0"`
}

type CreateOrderInput struct {
	UserID        uint             `json:"user_id" binding:"required"`
	AddressID     uint             `json:"address_id" binding:"required"`
	Items         []OrderItemInput `json:"items" binding:"required,min=1,dive"`
	PaymentMethod string           `json:"payment_method"`
	DeliveryNotes string           `json:"delivery_notes"`
}

type OrderService interface {
	CreateOrder(ctx context.Context, input *CreateOrderInput) (*models.Order, error)
	GetOrderByID(id uint) (*models.Order, error)
	GetOrdersByUser(userID uint) ([]models.Order, error)
	GetAllOrders() ([]models.Order, error)
	CancelOrder(ctx context.Context, id uint, reason string) (*models.Order, error)
	ConfirmPayment(ctx context.Context, id uint) error
}

type orderService struct {
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
	addressRepo repository.AddressRepository
	userRepo    repository.UserRepository
	delivery    DeliveryService
}

func NewOrderService(
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	addressRepo repository.AddressRepository,
	userRepo repository.UserRepository,
	delivery DeliveryService,
) OrderService {
	return &orderService{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		addressRepo: addressRepo,
		userRepo:    userRepo,
		delivery:    delivery,
	}
}

// generateOrderNumber derives a human-readable order number from the
// current timestamp, e.g. SG-56789012.
func generateOrderNumber() string {
	ms := fmt.Sprintf("%d", time.Now().UnixMilli())
	return "SG-" + ms[len(ms)-8:]
}

// CreateOrder validates the cart, takes stock, resolves the delivery fee
// and persists the order in PENDING. Stock is taken with a guarded
// atomic decrement per product; any later failure returns what was taken.
func (s *orderService) CreateOrder(ctx context.Context, input *CreateOrderInput) (*models.Order, error) {
	address, err := s.addressRepo.GetByID(input.AddressID)
	if err != nil {
		return nil, fmt.Errorf("failed to load address: %w", err)
	}
	if address.UserID != input.UserID {
		return nil, ErrAddressNotOwned
	}
	if err := validateAddress(address); err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByID(input.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	var subtotal float64
	var items []models.OrderItem
	var taken []OrderItemInput

	release := func() {
		for _, t := range taken {
			if err := s.productRepo.RestoreStock(t.ProductID, t.Quantity); err != nil {
				logger.L().Error("failed to release stock",
					zap.Uint("product_id", t.ProductID), zap.Error(err))
			}
		}
	}

	for _, item := range input.Items {
		product, err := s.productRepo.GetByID(item.ProductID)
		if err != nil {
			release()
			return nil, fmt.Errorf("product %d not found: %w", item.ProductID, err)
		}

		ok, err := s.productRepo.DecrementStock(product.ID, item.Quantity)
		if err != nil {
			release()
			return nil, fmt.Errorf("failed to take stock for product %d: %w", product.ID, err)
		}
		if !ok {
			release()
			return nil, fmt.Errorf("%w: %s", ErrInsufficientStock, product.Name)
		}
		taken = append(taken, item)

		itemSubtotal := product.Price * float64(item.Quantity)
		subtotal += itemSubtotal
		items = append(items, models.OrderItem{
			ProductID:   product.ID,
			ProductName: product.Name,
			UnitPrice:   product.Price,
			Quantity:    item.Quantity,
			Subtotal:    itemSubtotal,
		})
	}

	// Delivery fee is advisory at checkout; the flat fallback keeps the
	// order flowing when the provider is unreachable.
	quote := s.delivery.ResolveFeeForAddress(ctx, address)

	order := &models.Order{
		OrderNumber:   generateOrderNumber(),
		UserID:        input.UserID,
		AddressID:     input.AddressID,
		CustomerName:  user.Name,
		CustomerPhone: user.Phone,
		DeliveryNotes: input.DeliveryNotes,
		Status:        string(models.OrderPending),
		PaymentStatus: string(models.PaymentPending),
		PaymentMethod: input.PaymentMethod,
		Subtotal:      subtotal,
		DeliveryFee:   quote.Fee,
		Total:         subtotal + quote.Fee,
		Currency:      quote.Currency,
		Items:         items,
	}

	if err := s.orderRepo.Create(order); err != nil {
		release()
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	logger.L().Info("order created",
		zap.Uint("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.Float64("total", order.Total),
		zap.Bool("fee_fallback", quote.Fallback),
	)
	return order, nil
}

func (s *orderService) GetOrderByID(id uint) (*models.Order, error) {
	return s.orderRepo.GetByID(id)
}

func (s *orderService) GetOrdersByUser(userID uint) ([]models.Order, error) {
	return s.orderRepo.GetByUserID(userID)
}

func (s *orderService) GetAllOrders() ([]models.Order, error) {
	return s.orderRepo.GetAll()
}

// CancelOrder cancels an order that has not progressed past CONFIRMED,
// restores stock per line item and asks the provider to cancel any
// active dispatch best-effort.
func (s *orderService) CancelOrder(ctx context.Context, id uint, reason string) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(id)
	if err != nil {
		return nil, err
	}

	status := models.OrderStatus(order.Status)
	if status != models.OrderPending && status != models.OrderConfirmed {
		return nil, ErrNotCancellable
	}

	if reason == "" {
		reason = "Customer requested cancellation"
	}
	if err := s.orderRepo.UpdateFields(order.ID, map[string]interface{}{
		"status":        string(models.OrderCancelled),
		"cancel_reason": reason,
	}); err != nil {
		return nil, fmt.Errorf("failed to cancel order: %w", err)
	}
	order.Status = string(models.OrderCancelled)
	order.CancelReason = reason

	for _, item := range order.Items {
		if err := s.productRepo.RestoreStock(item.ProductID, item.Quantity); err != nil {
			logger.L().Error("failed to restore stock on cancellation",
				zap.Uint("order_id", order.ID),
				zap.Uint("product_id", item.ProductID),
				zap.Error(err),
			)
		}
	}

	s.delivery.CancelDelivery(ctx, order)

	logger.L().Info("order cancelled",
		zap.Uint("order_id", order.ID),
		zap.String("reason", reason),
	)
	return order, nil
}

// ConfirmPayment marks an order paid and triggers delivery dispatch. A
// dispatch failure is logged but never fails the payment confirmation;
// the order stays CONFIRMED for a manual re-dispatch.
func (s *orderService) ConfirmPayment(ctx context.Context, id uint) error {
	order, err := s.orderRepo.GetByID(id)
	if err != nil {
		return err
	}

	status := models.OrderStatus(order.Status)
	if status != models.OrderPending && status != models.OrderConfirmed {
		return ErrOrderNotConfirmable
	}

	if err := s.orderRepo.UpdateFields(order.ID, map[string]interface{}{
		"payment_status": string(models.PaymentCompleted),
		"status":         string(models.OrderConfirmed),
	}); err != nil {
		return fmt.Errorf("failed to confirm payment: %w", err)
	}

	logger.L().Info("payment confirmed",
		zap.Uint("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
	)

	if err := s.delivery.Dispatch(ctx, order.ID); err != nil {
		if errors.Is(err, ErrAlreadyDispatched) {
			// Re-delivered payment webhook for an order that already has
			// a delivery; nothing to do.
			logger.L().Info("payment confirmed for already-dispatched order",
				zap.Uint("order_id", order.ID))
			return nil
		}
		// Payment success must not be rolled back for a delivery-side
		// failure; the order remains un-dispatched for manual recovery.
		logger.L().Error("dispatch after payment failed",
			zap.Uint("order_id", order.ID), zap.Error(err))
	}
	return nil
}
