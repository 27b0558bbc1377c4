package services

import (
	"context"
	"time"

	"soora-backend/internal/geocode"
	"soora-backend/internal/models"
	"soora-backend/internal/redis"
	"soora-backend/pkg/lalamove"

	"github.com/stretchr/testify/mock"
)

type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) GetQuotation(ctx context.Context, req *lalamove.QuotationRequest) (*lalamove.Quotation, error) {
	args := m.Called(ctx, req)
	if q := args.Get(0); q != nil {
		return q.(*lalamove.Quotation), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockProvider) PlaceOrder(ctx context.Context, req *lalamove.OrderRequest) (*lalamove.Order, error) {
	args := m.Called(ctx, req)
	if o := args.Get(0); o != nil {
		return o.(*lalamove.Order), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockProvider) GetOrder(ctx context.Context, orderID string) (*lalamove.Order, error) {
	args := m.Called(ctx, orderID)
	if o := args.Get(0); o != nil {
		return o.(*lalamove.Order), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockProvider) CancelOrder(ctx context.Context, orderID string) error {
	return m.Called(ctx, orderID).Error(0)
}

func (m *MockProvider) GetDriverLocation(ctx context.Context, orderID string) (*lalamove.DriverLocation, error) {
	args := m.Called(ctx, orderID)
	if l := args.Get(0); l != nil {
		return l.(*lalamove.DriverLocation), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockGeocoder struct {
	mock.Mock
}

func (m *MockGeocoder) Resolve(ctx context.Context, street, postalCode string) *geocode.Result {
	args := m.Called(ctx, street, postalCode)
	if r := args.Get(0); r != nil {
		return r.(*geocode.Result)
	}
	return nil
}

type MockCache struct {
	mock.Mock
}

func (m *MockCache) GetGeocode(ctx context.Context, key string) (*redis.GeocodeEntry, error) {
	args := m.Called(ctx, key)
	if e := args.Get(0); e != nil {
		return e.(*redis.GeocodeEntry), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCache) SetGeocode(ctx context.Context, key string, entry *redis.GeocodeEntry, ttl time.Duration) error {
	return m.Called(ctx, key, entry, ttl).Error(0)
}

func (m *MockCache) MarkEventSeen(ctx context.Context, eventID string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, eventID, ttl)
	return args.Bool(0), args.Error(1)
}

type MockOrderRepo struct {
	mock.Mock
}

func (m *MockOrderRepo) Create(order *models.Order) error {
	return m.Called(order).Error(0)
}

func (m *MockOrderRepo) GetByID(id uint) (*models.Order, error) {
	args := m.Called(id)
	if o := args.Get(0); o != nil {
		return o.(*models.Order), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockOrderRepo) GetByLalamoveOrderID(lalamoveOrderID string) (*models.Order, error) {
	args := m.Called(lalamoveOrderID)
	if o := args.Get(0); o != nil {
		return o.(*models.Order), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockOrderRepo) GetByUserID(userID uint) ([]models.Order, error) {
	args := m.Called(userID)
	if o := args.Get(0); o != nil {
		return o.([]models.Order), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockOrderRepo) GetAll() ([]models.Order, error) {
	args := m.Called()
	if o := args.Get(0); o != nil {
		return o.([]models.Order), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockOrderRepo) Update(order *models.Order) error {
	return m.Called(order).Error(0)
}

func (m *MockOrderRepo) UpdateFields(id uint, fields map[string]interface{}) error {
	return m.Called(id, fields).Error(0)
}

func (m *MockOrderRepo) ClaimDispatch(id uint, lalamoveOrderID, lalamoveStatus, trackingURL, localStatus string) (bool, error) {
	args := m.Called(id, lalamoveOrderID, lalamoveStatus, trackingURL, localStatus)
	return args.Bool(0), args.Error(1)
}

type MockProductRepo struct {
	mock.Mock
}

func (m *MockProductRepo) Create(product *models.Product) error {
	return m.Called(product).Error(0)
}

func (m *MockProductRepo) GetByID(id uint) (*models.Product, error) {
	args := m.Called(id)
	if p := args.Get(0); p != nil {
		return p.(*models.Product), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockProductRepo) GetAll() ([]models.Product, error) {
	args := m.Called()
	if p := args.Get(0); p != nil {
		return p.([]models.Product), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockProductRepo) Update(product *models.Product) error {
	return m.Called(product).Error(0)
}

func (m *MockProductRepo) DecrementStock(id uint, quantity int) (bool, error) {
	args := m.Called(id, quantity)
	return args.Bool(0), args.Error(1)
}

func (m *MockProductRepo) RestoreStock(id uint, quantity int) error {
	return m.Called(id, quantity).Error(0)
}

type MockAddressRepo struct {
	mock.Mock
}

func (m *MockAddressRepo) Create(address *models.Address) error {
	return m.Called(address).Error(0)
}

func (m *MockAddressRepo) GetByID(id uint) (*models.Address, error) {
	args := m.Called(id)
	if a := args.Get(0); a != nil {
		return a.(*models.Address), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAddressRepo) GetByUserID(userID uint) ([]models.Address, error) {
	args := m.Called(userID)
	if a := args.Get(0); a != nil {
		return a.([]models.Address), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAddressRepo) UpdateCoordinates(id uint, lat, lng float64) error {
	return m.Called(id, lat, lng).Error(0)
}

type MockUserRepo struct {
	mock.Mock
}

func (m *MockUserRepo) Create(user *models.User) error {
	return m.Called(user).Error(0)
}

func (m *MockUserRepo) GetByID(id uint) (*models.User, error) {
	args := m.Called(id)
	if u := args.Get(0); u != nil {
		return u.(*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserRepo) GetByEmail(email string) (*models.User, error) {
	args := m.Called(email)
	if u := args.Get(0); u != nil {
		return u.(*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockDeliveryService struct {
	mock.Mock
}

func (m *MockDeliveryService) ResolveFee(ctx context.Context, addressID uint) (*FeeQuote, error) {
	args := m.Called(ctx, addressID)
	if q := args.Get(0); q != nil {
		return q.(*FeeQuote), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDeliveryService) ResolveFeeForAddress(ctx context.Context, address *models.Address) *FeeQuote {
	args := m.Called(ctx, address)
	return args.Get(0).(*FeeQuote)
}

func (m *MockDeliveryService) Dispatch(ctx context.Context, orderID uint) error {
	return m.Called(ctx, orderID).Error(0)
}

func (m *MockDeliveryService) ApplyWebhook(ctx context.Context, event *WebhookEvent) error {
	return m.Called(ctx, event).Error(0)
}

func (m *MockDeliveryService) Track(ctx context.Context, orderID uint) (*TrackingInfo, error) {
	args := m.Called(ctx, orderID)
	if t := args.Get(0); t != nil {
		return t.(*TrackingInfo), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDeliveryService) DriverLocation(ctx context.Context, orderID uint) (*lalamove.DriverLocation, error) {
	args := m.Called(ctx, orderID)
	if l := args.Get(0); l != nil {
		return l.(*lalamove.DriverLocation), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDeliveryService) CancelDelivery(ctx context.Context, order *models.Order) {
	m.Called(ctx, order)
}
