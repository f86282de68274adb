package config

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"

	"github.com/sulemansaleem459-cmd/clutch-gear-backend/models"
)

func Migrations(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "20250601_create_core_tables",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&models.User{}, &models.Customer{}, &models.Vehicle{},
					&models.JobCard{}, &models.JobItem{}, &models.JobStatusLog{})
			},
		},
		{
			ID: "20250601_create_inventory_tables",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&models.InventoryItem{}, &models.InventoryTransaction{})
			},
		},
		{
			ID: "20250601_create_payment_tables",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&models.Payment{})
			},
		},
		{
			ID: "20250614_add_document_counters",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&models.DocumentCounter{})
			},
		},
		{
			ID: "20250702_add_notification_outbox",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&models.Notification{})
			},
		},
		{
			ID: "20250811_add_billing_amended_flag",
			Migrate: func(tx *gorm.DB) error {
				return tx.Exec("ALTER TABLE job_cards ADD COLUMN IF NOT EXISTS billing_amended boolean NOT NULL DEFAULT false").Error
			},
		},
	})

	return m.Migrate()
}
