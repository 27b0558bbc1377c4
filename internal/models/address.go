package models

import (
	"time"

	"gorm.io/gorm"
)

type Address struct {
	ID         uint   `json:"id" gorm:"primaryKey"`
	UserID     uint   `json:"user_id" gorm:"not null;index"`
	Street     string `json:"street" gorm:"not null"`
	Unit       string `json:"unit"`
	PostalCode string `json:"postal_code" gorm:"not null"`

	// Coordinates are populated lazily by the geocoder on first use and
	// cached back onto the record.
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at" gorm:"index"`
}

// HasCoordinates reports whether the address has been geocoded.
func (a *Address) HasCoordinates() bool {
	return a.Latitude != nil && a.Longitude != nil
}
