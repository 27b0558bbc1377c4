package models

import (
	"time"

	"gorm.io/gorm"
)

type Order struct {
	ID            uint       `json:"id" gorm:"primaryKey"`
	OrderNumber   string     `json:"order_number" gorm:"unique;not null"`
	UserID        uint       `json:"user_id" gorm:"not null;index"`
	AddressID     uint       `json:"address_id" gorm:"not null"`
	CustomerName  string     `json:"customer_name" gorm:"not null"`
	CustomerPhone string     `json:"customer_phone"`
	DeliveryNotes string     `json:"delivery_notes"`
	Status        string     `json:"status" gorm:"default:'PENDING'"`
	PaymentStatus string     `json:"payment_status" gorm:"default:'PENDING'"`
	PaymentMethod string     `json:"payment_method"`
	Subtotal      float64    `json:"subtotal" gorm:"not null"`
	DeliveryFee   float64    `json:"delivery_fee"`
	Total         float64    `json:"total" gorm:"not null"`
	Currency      string     `json:"currency" gorm:"default:'SGD'"`
	CancelReason  string     `json:"cancel_reason"`
	DeliveredAt   *time.Time `json:"delivered_at"`

	// Delivery provider linkage, populated once dispatch succeeds.
	LalamoveOrderId     string `json:"lalamove_order_id" gorm:"index"`
	LalamoveStatus      string `json:"lalamove_status"`
	LalamoveTrackingUrl string `json:"lalamove_tracking_url"`
	LalamoveDriverId    string `json:"lalamove_driver_id"`
	LalamoveDriverName  string `json:"lalamove_driver_name"`
	LalamoveDriverPhone string `json:"lalamove_driver_phone"`
	LalamoveDriverPlate string `json:"lalamove_driver_plate"`

	Items   []OrderItem `json:"items" gorm:"foreignKey:OrderID"`
	Address *Address    `json:"address,omitempty" gorm:"foreignKey:AddressID"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at" gorm:"index"`
}

type OrderStatus string

const (
	OrderPending        OrderStatus = "PENDING"
	OrderConfirmed      OrderStatus = "CONFIRMED"
	OrderProcessing     OrderStatus = "PROCESSING"
	OrderOutForDelivery OrderStatus = "OUT_FOR_DELIVERY"
	OrderDelivered      OrderStatus = "DELIVERED"
	OrderCancelled      OrderStatus = "CANCELLED"
)

// statusRank orders the delivery lifecycle so a late webhook can never
// move an order backward. CANCELLED sits outside the rank and is allowed
// from any state before DELIVERED.
var statusRank = map[OrderStatus]int{
	OrderPending:        0,
	OrderConfirmed:      1,
	OrderProcessing:     2,
	OrderOutForDelivery: 3,
	OrderDelivered:      4,
}

// Rank returns the lifecycle rank for a status, or -1 for CANCELLED and
// unknown values.
func (s OrderStatus) Rank() int {
	if r, ok := statusRank[s]; ok {
		return r
	}
	return -1
}

// CanTransitionTo reports whether moving from s to next respects the
// forward-only lifecycle. CANCELLED is reachable from anything not yet
// delivered.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if next == OrderCancelled {
		return s != OrderDelivered && s != OrderCancelled
	}
	if s == OrderCancelled {
		return false
	}
	return next.Rank() > s.Rank()
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentCompleted PaymentStatus = "COMPLETED"
	PaymentFailed    PaymentStatus = "FAILED"
)
