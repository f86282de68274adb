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

// CustomerHandler handles workshop customer master data.
type CustomerHandler struct {
	db       *gorm.DB
	validate *validator.Validate
}

// NewCustomerHandler creates a new customer handler
func NewCustomerHandler() *CustomerHandler {
	return &CustomerHandler{
		db:       config.DB,
		validate: validator.New(),
	}
}

// CustomerRequest represents create/update payloads
type CustomerRequest struct {
	Name    string  `json:"name" validate:"required,max=100"`
	Phone   string  `json:"phone" validate:"required,max=15"`
	Email   *string `json:"email" validate:"omitempty,email"`
	Address *string `json:"address" validate:"omitempty,max=255"`
	Notes   *string `json:"notes"`
}

// CreateCustomer registers a new customer.
func (h *CustomerHandler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req CustomerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		WriteError(w, NewAppError(KindValidation, err.Error()))
		return
	}

	customer := models.Customer{
		Name:    req.Name,
		Phone:   req.Phone,
		Email:   req.Email,
		Address: req.Address,
		Notes:   req.Notes,
	}
	if err := h.db.Create(&customer).Error; err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, customer)
}

// GetCustomer returns one customer with vehicles.
func (h *CustomerHandler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	customerID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid customer id", http.StatusBadRequest)
		return
	}

	var customer models.Customer
	if err := h.db.Preload("Vehicles").First(&customer, "id = ?", customerID).Error; err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, customer)
}

// UpdateCustomer updates customer master data.
func (h *CustomerHandler) UpdateCustomer(w http.ResponseWriter, r *http.Request) {
	customerID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid customer id", http.StatusBadRequest)
		return
	}

	var req CustomerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		WriteError(w, NewAppError(KindValidation, err.Error()))
		return
	}

	var customer models.Customer
	if err := h.db.First(&customer, "id = ?", customerID).Error; err != nil {
		WriteError(w, err)
		return
	}

	customer.Name = req.Name
	customer.Phone = req.Phone
	customer.Email = req.Email
	customer.Address = req.Address
	customer.Notes = req.Notes
	if err := h.db.Save(&customer).Error; err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, customer)
}
