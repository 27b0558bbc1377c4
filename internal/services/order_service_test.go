package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"soora-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type orderServiceMocks struct {
	orderRepo   *MockOrderRepo
	productRepo *MockProductRepo
	addressRepo *MockAddressRepo
	userRepo    *MockUserRepo
	delivery    *MockDeliveryService
}

func newTestOrderService() (OrderService, *orderServiceMocks) {
	m := &orderServiceMocks{
		orderRepo:   new(MockOrderRepo),
		productRepo: new(MockProductRepo),
		addressRepo: new(MockAddressRepo),
		userRepo:    new(MockUserRepo),
		delivery:    new(MockDeliveryService),
	}
	svc := NewOrderService(m.orderRepo, m.productRepo, m.addressRepo, m.userRepo, m.delivery)
	return svc, m
}

func checkoutInput() *CreateOrderInput {
	return &CreateOrderInput{
		UserID:        3,
		AddressID:     1,
		PaymentMethod: "STRIPE",
		Items: []OrderItemInput{
			{ProductID: 10, Quantity: 2},
		},
	}
}

func checkoutAddress() *models.Address {
	return &models.Address{ID: 1, UserID: 3, Street: "10 Raffles Place", PostalCode: "048620"}
}

func TestCreateOrder_Success(t *testing.T) {
	svc, m := newTestOrderService()

	m.addressRepo.On("GetByID", uint(1)).Return(checkoutAddress(), nil)
	m.userRepo.On("GetByID", uint(3)).Return(&models.User{ID: 3, Name: "Alice Lim", Phone: "+6598765432"}, nil)
	m.productRepo.On("GetByID", uint(10)).Return(&models.Product{ID: 10, Name: "Hendrick's Gin", Price: 78.0, Stock: 40}, nil)
	m.productRepo.On("DecrementStock", uint(10), 2).Return(true, nil)
	m.delivery.On("ResolveFeeForAddress", mock.Anything, mock.Anything).Return(&FeeQuote{Fee: 8.5, Currency: "SGD"})
	m.orderRepo.On("Create", mock.MatchedBy(func(order *models.Order) bool {
		return order.Subtotal == 156.0 &&
			order.DeliveryFee == 8.5 &&
			order.Total == 164.5 &&
			order.Status == string(models.OrderPending) &&
			order.CustomerName == "Alice Lim" &&
			len(order.Items) == 1 &&
			order.Items[0].ProductName == "Hendrick's Gin" &&
			strings.HasPrefix(order.OrderNumber, "SG-")
	})).Return(nil)

	order, err := svc.CreateOrder(context.Background(), checkoutInput())

	assert.NoError(t, err)
	assert.Equal(t, 164.5, order.Total)
	m.productRepo.AssertExpectations(t)
	m.orderRepo.AssertExpectations(t)
}

func TestCreateOrder_InsufficientStock(t *testing.T) {
	svc, m := newTestOrderService()

	input := checkoutInput()
	input.Items = append(input.Items, OrderItemInput{ProductID: 11, Quantity: 5})

	m.addressRepo.On("GetByID", uint(1)).Return(checkoutAddress(), nil)
	m.userRepo.On("GetByID", uint(3)).Return(&models.User{ID: 3, Name: "Alice Lim"}, nil)
	m.productRepo.On("GetByID", uint(10)).Return(&models.Product{ID: 10, Name: "Hendrick's Gin", Price: 78.0}, nil)
	m.productRepo.On("DecrementStock", uint(10), 2).Return(true, nil)
	m.productRepo.On("GetByID", uint(11)).Return(&models.Product{ID: 11, Name: "Grey Goose Vodka", Price: 92.0}, nil)
	m.productRepo.On("DecrementStock", uint(11), 5).Return(false, nil)
	// Stock taken for the first item must be handed back.
	m.productRepo.On("RestoreStock", uint(10), 2).Return(nil)

	_, err := svc.CreateOrder(context.Background(), input)

	assert.ErrorIs(t, err, ErrInsufficientStock)
	m.productRepo.AssertCalled(t, "RestoreStock", uint(10), 2)
	m.orderRepo.AssertNotCalled(t, "Create")
}

func TestCreateOrder_AddressOwnershipEnforced(t *testing.T) {
	svc, m := newTestOrderService()

	address := checkoutAddress()
	address.UserID = 99
	m.addressRepo.On("GetByID", uint(1)).Return(address, nil)

	_, err := svc.CreateOrder(context.Background(), checkoutInput())

	assert.ErrorIs(t, err, ErrAddressNotOwned)
	m.productRepo.AssertNotCalled(t, "DecrementStock")
}

func TestCancelOrder_PendingRestoresStock(t *testing.T) {
	svc, m := newTestOrderService()

	order := &models.Order{
		ID:     7,
		Status: string(models.OrderPending),
		Items: []models.OrderItem{
			{ProductID: 10, Quantity: 2},
			{ProductID: 11, Quantity: 1},
		},
	}
	m.orderRepo.On("GetByID", uint(7)).Return(order, nil)
	m.orderRepo.On("UpdateFields", uint(7), mock.MatchedBy(func(fields map[string]interface{}) bool {
		return fields["status"] == string(models.OrderCancelled) &&
			fields["cancel_reason"] == "Changed my mind"
	})).Return(nil)
	m.productRepo.On("RestoreStock", uint(10), 2).Return(nil)
	m.productRepo.On("RestoreStock", uint(11), 1).Return(nil)
	m.delivery.On("CancelDelivery", mock.Anything, mock.Anything).Return()

	cancelled, err := svc.CancelOrder(context.Background(), 7, "Changed my mind")

	assert.NoError(t, err)
	assert.Equal(t, string(models.OrderCancelled), cancelled.Status)
	m.productRepo.AssertExpectations(t)
}

func TestCancelOrder_DeliveredRejected(t *testing.T) {
	svc, m := newTestOrderService()

	m.orderRepo.On("GetByID", uint(7)).Return(&models.Order{
		ID:     7,
		Status: string(models.OrderDelivered),
	}, nil)

	_, err := svc.CancelOrder(context.Background(), 7, "")

	assert.ErrorIs(t, err, ErrNotCancellable)
	m.productRepo.AssertNotCalled(t, "RestoreStock")
	m.orderRepo.AssertNotCalled(t, "UpdateFields")
}

func TestCancelOrder_OutForDeliveryRejected(t *testing.T) {
	svc, m := newTestOrderService()

	m.orderRepo.On("GetByID", uint(7)).Return(&models.Order{
		ID:     7,
		Status: string(models.OrderOutForDelivery),
	}, nil)

	_, err := svc.CancelOrder(context.Background(), 7, "")

	assert.ErrorIs(t, err, ErrNotCancellable)
}

func TestConfirmPayment_TriggersDispatch(t *testing.T) {
	svc, m := newTestOrderService()

	m.orderRepo.On("GetByID", uint(7)).Return(&models.Order{
		ID:     7,
		Status: string(models.OrderPending),
	}, nil)
	m.orderRepo.On("UpdateFields", uint(7), mock.MatchedBy(func(fields map[string]interface{}) bool {
		return fields["payment_status"] == string(models.PaymentCompleted) &&
			fields["status"] == string(models.OrderConfirmed)
	})).Return(nil)
	m.delivery.On("Dispatch", mock.Anything, uint(7)).Return(nil)

	err := svc.ConfirmPayment(context.Background(), 7)

	assert.NoError(t, err)
	m.delivery.AssertCalled(t, "Dispatch", mock.Anything, uint(7))
}

func TestConfirmPayment_DispatchFailureDoesNotFailConfirmation(t *testing.T) {
	svc, m := newTestOrderService()

	m.orderRepo.On("GetByID", uint(7)).Return(&models.Order{
		ID:     7,
		Status: string(models.OrderPending),
	}, nil)
	m.orderRepo.On("UpdateFields", uint(7), mock.Anything).Return(nil)
	m.delivery.On("Dispatch", mock.Anything, uint(7)).Return(errors.New("provider unavailable"))

	err := svc.ConfirmPayment(context.Background(), 7)

	assert.NoError(t, err)
}

func TestConfirmPayment_CancelledOrderRejected(t *testing.T) {
	svc, m := newTestOrderService()

	m.orderRepo.On("GetByID", uint(7)).Return(&models.Order{
		ID:     7,
		Status: string(models.OrderCancelled),
	}, nil)

	err := svc.ConfirmPayment(context.Background(), 7)

	assert.ErrorIs(t, err, ErrOrderNotConfirmable)
	m.delivery.AssertNotCalled(t, "Dispatch")
}
