package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Vehicle struct {
	ID                 uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	CustomerID         uuid.UUID      `gorm:"type:uuid;index;not null" json:"customerId"`
	RegistrationNumber string         `gorm:"column:registration_number;size:20;uniqueIndex;not null" json:"registrationNumber"`
	Make               string         `gorm:"size:50;not null" json:"make"`
	Model              string         `gorm:"size:50;not null" json:"model"`
	Year               int            `json:"year"`
	Color              *string        `gorm:"size:30" json:"color,omitempty"`
	EngineNumber       *string        `gorm:"column:engine_number;size:50" json:"engineNumber,omitempty"`
	ChassisNumber      *string        `gorm:"column:chassis_number;size:50" json:"chassisNumber,omitempty"`
	OdometerKM         int            `gorm:"column:odometer_km" json:"odometerKm"`
	CreatedAt          time.Time      `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt          time.Time      `gorm:"autoUpdateTime" json:"updatedAt"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`
}

// VehicleSnapshot is the immutable copy of vehicle facts embedded in a job
// card at intake. Later edits to the live vehicle record do not touch it.
type VehicleSnapshot struct {
	VehicleID          uuid.UUID `json:"vehicleId"`
	RegistrationNumber string    `json:"registrationNumber"`
	Make               string    `json:"make"`
	Model              string    `json:"model"`
	Year               int       `json:"year"`
	OdometerKM         int       `json:"odometerKm"`
}

// Snapshot captures the vehicle facts used on job cards.
func (v *Vehicle) Snapshot() VehicleSnapshot {
	return VehicleSnapshot{
		VehicleID:          v.ID,
		RegistrationNumber: v.RegistrationNumber,
		Make:               v.Make,
		Model:              v.Model,
		Year:               v.Year,
		OdometerKM:         v.OdometerKM,
	}
}
