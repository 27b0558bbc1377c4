package repository

import (
	"soora-backend/internal/models"

	"gorm.io/gorm"
)

type ProductRepository interface {
	Create(product *models.Product) error
	GetByID(id uint) (*models.Product, error)
	GetAll() ([]models.Product, error)
	Update(product *models.Product) error
	DecrementStock(id uint, quantity int) (bool, error)
	RestoreStock(id uint, quantity int) error
}

type productRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) Create(product *models.Product) error {
	return r.db.Create(product).Error
}

func (r *productRepository) GetByID(id uint) (*models.Product, error) {
	var product models.Product
	err := r.db.First(&product, id).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepository) GetAll() ([]models.Product, error) {
	var products []models.Product
	err := r.db.Where("is_active = ?", true).Find(&products).Error
	return products, err
}

func (r *productRepository) Update(product *models.Product) error {
	return r.db.Save(product).Error
}

// DecrementStock atomically takes quantity units of stock. The stock
// guard in the WHERE clause prevents oversell under concurrent
// checkouts; false means there was not enough stock.
func (r *productRepository) DecrementStock(id uint, quantity int) (bool, error) {
	result := r.db.Model(&models.Product{}).
		Where("id = ? AND stock >= ?", id, quantity).
		Updates(map[string]interface{}{
			"stock":       gorm.Expr("stock - ?", quantity),
			"sales_count": gorm.Expr("sales_count + ?", quantity),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// RestoreStock returns quantity units to stock after a cancellation.
func (r *productRepository) RestoreStock(id uint, quantity int) error {
	return r.db.Model(&models.Product{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"stock":       gorm.Expr("stock + ?", quantity),
			"sales_count": gorm.Expr("sales_count - ?", quantity),
		}).Error
}
