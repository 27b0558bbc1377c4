package models

import (
	"time"

	"gorm.io/gorm"
)

type OrderItem struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	OrderID     uint           `json:"order_id" gorm:"not null;index"`
	ProductID   uint           `json:"product_id" gorm:"not null"`
	ProductName string         `json:"product_name" gorm:"not null"`
	UnitPrice   float64        `json:"unit_price" gorm:"not null"`
	Quantity    int            `json:"quantity" gorm:"not null"`
	Subtotal    float64        `json:"subtotal" gorm:"not null"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"deleted_at" gorm:"index"`
}
