package repository

import (
	"soora-backend/internal/models"

	"gorm.io/gorm"
)

type OrderRepository interface {
	Create(order *models.Order) error
	GetByID(id uint) (*models.Order, error)
	GetByLalamoveOrderID(lalamoveOrderID string) (*models.Order, error)
	GetByUserID(userID uint) ([]models.Order, error)
	GetAll() ([]models.Order, error)
	Update(order *models.Order) error
	UpdateFields(id uint, fields map[string]interface{}) error
	ClaimDispatch(id uint, lalamoveOrderID, lalamoveStatus, trackingURL, localStatus string) (bool, error)
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) Create(order *models.Order) error {
	return r.db.Create(order).Error
}

func (r *orderRepository) GetByID(id uint) (*models.Order, error) {
	var order models.Order
	err := r.db.Preload("Items").Preload("Address").First(&order, id).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) GetByLalamoveOrderID(lalamoveOrderID string) (*models.Order, error) {
	var order models.Order
	err := r.db.Where("lalamove_order_id = ?", lalamoveOrderID).First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) GetByUserID(userID uint) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.Preload("Items").Where("user_id = ?", userID).Order("created_at DESC").Find(&orders).Error
	return orders, err
}

func (r *orderRepository) GetAll() ([]models.Order, error) {
	var orders []models.Order
	err := r.db.Preload("Items").Order("created_at DESC").Find(&orders).Error
	return orders, err
}

func (r *orderRepository) Update(order *models.Order) error {
	return r.db.Save(order).Error
}

func (r *orderRepository) UpdateFields(id uint, fields map[string]interface{}) error {
	return r.db.Model(&models.Order{}).Where("id = ?", id).Updates(fields).Error
}

// ClaimDispatch records the provider linkage on an order only if no
// provider order id is present yet. The conditional update makes a lost
// double-dispatch race unable to overwrite an existing linkage. Returns
// false when the order was already dispatched.
func (r *orderRepository) ClaimDispatch(id uint, lalamoveOrderID, lalamoveStatus, trackingURL, localStatus string) (bool, error) {
	result := r.db.Model(&models.Order{}).
		Where("id = ? AND (lalamove_order_id IS NULL OR lalamove_order_id = '')", id).
		Updates(map[string]interface{}{
			"lalamove_order_id":     lalamoveOrderID,
			"lalamove_status":       lalamoveStatus,
			"lalamove_tracking_url": trackingURL,
			"status":                localStatus,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
