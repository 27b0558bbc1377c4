package repository

import (
	"soora-backend/internal/models"

	"gorm.io/gorm"
)

type AddressRepository interface {
	Create(address *models.Address) error
	GetByID(id uint) (*models.Address, error)
	GetByUserID(userID uint) ([]models.Address, error)
	UpdateCoordinates(id uint, lat, lng float64) error
}

type addressRepository struct {
	db *gorm.DB
}

func NewAddressRepository(db *gorm.DB) AddressRepository {
	return &addressRepository{db: db}
}

func (r *addressRepository) Create(address *models.Address) error {
	return r.db.Create(address).Error
}

func (r *addressRepository) GetByID(id uint) (*models.Address, error) {
	var address models.Address
	err := r.db.First(&address, id).Error
	if err != nil {
		return nil, err
	}
	return &address, nil
}

func (r *addressRepository) GetByUserID(userID uint) ([]models.Address, error) {
	var addresses []models.Address
	err := r.db.Where("user_id = ?", userID).Find(&addresses).Error
	return addresses, err
}

func (r *addressRepository) UpdateCoordinates(id uint, lat, lng float64) error {
	return r.db.Model(&models.Address{}).Where("id = ?", id).Updates(map[string]interface{}{
		"latitude":  lat,
		"longitude": lng,
	}).Error
}
