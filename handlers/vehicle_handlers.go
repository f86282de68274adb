package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"gorm.io/gorm"

	"github.com/sulemansaleem459-cmd/clutch-gear-backend/config"
	"github.com/sulemansaleem459-cmd/clutch-gear-backend/models"
)

// VehicleHandler handles vehicle master data. Job cards snapshot vehicle
// facts at intake, so later edits here never rewrite history.
type VehicleHandler struct {
	db       *gorm.DB
	validate *validator.Validate
}

// NewVehicleHandler creates a new vehicle handler
func NewVehicleHandler() *VehicleHandler {
	return &VehicleHandler{
		db:       config.DB,
		validate: validator.New(),
	}
}

// VehicleRequest represents create/update payloads
type VehicleRequest struct {
	CustomerID         uuid.UUID `json:"customer_id" validate:"required"`
	RegistrationNumber string    `json:"registration_number" validate:"required,max=20"`
	Make               string    `json:"make" validate:"required,max=50"`
	Model              string    `json:"model" validate:"required,max=50"`
	Year               int       `json:"year" validate:"omitempty,gte=1950,lte=2100"`
	Color              *string   `json:"color" validate:"omitempty,max=30"`
	EngineNumber       *string   `json:"engine_number" validate:"omitempty,max=50"`
	ChassisNumber      *string   `json:"chassis_number" validate:"omitempty,max=50"`
	OdometerKM         int       `json:"odometer_km" validate:"gte=0"`
}

// CreateVehicle registers a vehicle under a customer.
func (h *VehicleHandler) CreateVehicle(w http.ResponseWriter, r *http.Request) {
	var req VehicleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		WriteError(w, NewAppError(KindValidation, err.Error()))
		return
	}

	var customer models.Customer
	if err := h.db.First(&customer, "id = ?", req.CustomerID).Error; err != nil {
		WriteError(w, NewAppError(KindNotFound, "customer not found").WithDetail("customerId", req.CustomerID))
		return
	}

	vehicle := models.Vehicle{
		CustomerID:         req.CustomerID,
		RegistrationNumber: req.RegistrationNumber,
		Make:               req.Make,
		Model:              req.Model,
		Year:               req.Year,
		Color:              req.Color,
		EngineNumber:       req.EngineNumber,
		ChassisNumber:      req.ChassisNumber,
		OdometerKM:         req.OdometerKM,
	}
	if err := h.db.Create(&vehicle).Error; err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, vehicle)
}

// GetVehicle returns one vehicle.
func (h *VehicleHandler) GetVehicle(w http.ResponseWriter, r *http.Request) {
	vehicleID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid vehicle id", http.StatusBadRequest)
		return
	}

	var vehicle models.Vehicle
	if err := h.db.First(&vehicle, "id = ?", vehicleID).Error; err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, vehicle)
}

// UpdateVehicle updates the live vehicle record.
func (h *VehicleHandler) UpdateVehicle(w http.ResponseWriter, r *http.Request) {
	vehicleID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid vehicle id", http.StatusBadRequest)
		return
	}

	var req VehicleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		WriteError(w, NewAppError(KindValidation, err.Error()))
		return
	}

	var vehicle models.Vehicle
	if err := h.db.First(&vehicle, "id = ?", vehicleID).Error; err != nil {
		WriteError(w, err)
		return
	}

	vehicle.RegistrationNumber = req.RegistrationNumber
	vehicle.Make = req.Make
	vehicle.Model = req.Model
	vehicle.Year = req.Year
	vehicle.Color = req.Color
	vehicle.EngineNumber = req.EngineNumber
	vehicle.ChassisNumber = req.ChassisNumber
	vehicle.OdometerKM = req.OdometerKM
	if err := h.db.Save(&vehicle).Error; err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, vehicle)
}
