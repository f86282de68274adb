package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Customer is a workshop client. Vehicles hang off the customer record.
type Customer struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name      string         `gorm:"size:100;not null" json:"name"`
	Phone     string         `gorm:"size:15;uniqueIndex;not null" json:"phone"`
	Email     *string        `gorm:"size:100" json:"email,omitempty"`
	Address   *string        `gorm:"size:255" json:"address,omitempty"`
	Notes     *string        `json:"notes,omitempty"`
	Vehicles  []Vehicle      `gorm:"foreignKey:CustomerID" json:"vehicles,omitempty"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
