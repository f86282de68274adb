package config

import (
	"log"
	"os"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/sulemansaleem459-cmd/clutch-gear-backend/models"
)

// RunAllSeeding seeds the admin user and starter inventory. Each step skips
// itself when data already exists, so this is safe to run on every boot.
func RunAllSeeding() error {
	if err := seedAdminUser(); err != nil {
		return err
	}
	return seedInventoryItems()
}

func seedAdminUser() error {
	var count int64
	if err := DB.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	password := os.Getenv("ADMIN_PASSWORD")
	if password == "" {
		password = "changeme"
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	admin := models.User{
		Name:         "Workshop Admin",
		Email:        "admin@clutchgear.local",
		Phone:        "0000000000",
		PasswordHash: string(hash),
		Role:         models.RoleAdmin,
		IsActive:     true,
	}
	if err := DB.Create(&admin).Error; err != nil {
		return err
	}
	log.Println("Seeded default admin user")
	return nil
}

func seedInventoryItems() error {
	var count int64
	if err := DB.Model(&models.InventoryItem{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	items := []models.InventoryItem{
		{PartNumber: "OIL-5W30-1L", Name: "Engine Oil 5W30 1L", Category: "fluids", Unit: "ltr",
			MinStock: decimal.NewFromInt(10), CostPrice: decimal.NewFromInt(450), SellingPrice: decimal.NewFromInt(550)},
		{PartNumber: "FLT-OIL-STD", Name: "Oil Filter Standard", Category: "filters", Unit: "pcs",
			MinStock: decimal.NewFromInt(5), CostPrice: decimal.NewFromInt(180), SellingPrice: decimal.NewFromInt(250)},
		{PartNumber: "PAD-BRK-F", Name: "Front Brake Pad Set", Category: "brakes", Unit: "set",
			MinStock: decimal.NewFromInt(4), CostPrice: decimal.NewFromInt(900), SellingPrice: decimal.NewFromInt(1200)},
	}
	if err := DB.Create(&items).Error; err != nil {
		return err
	}
	log.Printf("Seeded %d inventory items", len(items))
	return nil
}
