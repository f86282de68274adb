package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/sulemansaleem459-cmd/clutch-gear-backend/config"
	"github.com/sulemansaleem459-cmd/clutch-gear-backend/models"
)

// StockHandler exposes the stock mutation surface over the stock engine.
type StockHandler struct {
	db       *gorm.DB
	engine   *StockEngine
	validate *validator.Validate
}

// NewStockHandler creates a new stock handler
func NewStockHandler() *StockHandler {
	return &StockHandler{
		db:       config.DB,
		engine:   NewStockEngine(),
		validate: validator.New(),
	}
}

// CreateItemRequest represents the request to register a stock-keeping unit
type CreateItemRequest struct {
	PartNumber   string          `json:"part_number" validate:"required,max=50"`
	Name         string          `json:"name" validate:"required,max=150"`
	Category     string          `json:"category" validate:"max=50"`
	Unit         string          `json:"unit" validate:"max=20"`
	MinStock     decimal.Decimal `json:"min_stock"`
	CostPrice    decimal.Decimal `json:"cost_price"`
	SellingPrice decimal.Decimal `json:"selling_price"`
}

// StockMutationRequest represents a single-item add/deduct request
type StockMutationRequest struct {
	Quantity  decimal.Decimal  `json:"quantity"`
	UnitPrice *decimal.Decimal `json:"unit_price"`
	Reason    string           `json:"reason"`
	Notes     *string          `json:"notes"`
}

// AdjustStockRequest represents a manual recount
type AdjustStockRequest struct {
	NewQuantity decimal.Decimal `json:"new_quantity"`
	Notes       *string         `json:"notes"`
}

// BatchStockRequest represents an invoice-tied batch deduct/return
type BatchStockRequest struct {
	Lines  []InvoiceLine `json:"lines"`
	JobID  uuid.UUID     `json:"job_id"`
	Reason string        `json:"reason"`
}

// CreateItem registers a new inventory item. Opening stock arrives through
// AddStock so it hits the ledger like everything else.
func (h *StockHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var req CreateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		WriteError(w, NewAppError(KindValidation, err.Error()))
		return
	}
	if req.MinStock.IsNegative() || req.CostPrice.IsNegative() || req.SellingPrice.IsNegative() {
		WriteError(w, NewAppError(KindValidation, "min stock and prices must not be negative"))
		return
	}

	item := models.InventoryItem{
		PartNumber:   req.PartNumber,
		Name:         req.Name,
		Category:     req.Category,
		Unit:         req.Unit,
		CurrentStock: decimal.Zero,
		MinStock:     req.MinStock,
		CostPrice:    req.CostPrice,
		SellingPrice: req.SellingPrice,
		IsActive:     true,
	}
	if item.Unit == "" {
		item.Unit = "pcs"
	}
	if err := h.db.Create(&item).Error; err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, item)
}

// GetItem returns one inventory item.
func (h *StockHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	itemID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid item id", http.StatusBadRequest)
		return
	}

	var item models.InventoryItem
	if err := h.db.First(&item, "id = ?", itemID).Error; err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, item)
}

// AddStock credits stock to one item.
func (h *StockHandler) AddStock(w http.ResponseWriter, r *http.Request) {
	itemID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid item id", http.StatusBadRequest)
		return
	}

	var req StockMutationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	movement, err := h.engine.AddStock(itemID, req.Quantity, req.UnitPrice, req.Notes, actorFromRequest(r))
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, movement)
}

// DeductStock debits stock from one item (usage or damage).
func (h *StockHandler) DeductStock(w http.ResponseWriter, r *http.Request) {
	itemID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid item id", http.StatusBadRequest)
		return
	}

	var req StockMutationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	movement, err := h.engine.DeductStock(itemID, req.Quantity, req.Reason, req.Notes, actorFromRequest(r))
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, movement)
}

// AdjustStock sets an absolute stock level after a manual recount.
func (h *StockHandler) AdjustStock(w http.ResponseWriter, r *http.Request) {
	itemID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid item id", http.StatusBadRequest)
		return
	}

	var req AdjustStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	movement, err := h.engine.AdjustStockTo(itemID, req.NewQuantity, req.Notes, actorFromRequest(r))
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, movement)
}

// DeductForInvoice debits every line of an invoice or none.
func (h *StockHandler) DeductForInvoice(w http.ResponseWriter, r *http.Request) {
	var req BatchStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	ref, err := h.jobReference(req.JobID)
	if err != nil {
		WriteError(w, err)
		return
	}

	movements, err := h.engine.DeductForInvoice(req.Lines, *ref, actorFromRequest(r))
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"results": movements})
}

// ReturnFromInvoice re-credits stock for returned invoice lines.
func (h *StockHandler) ReturnFromInvoice(w http.ResponseWriter, r *http.Request) {
	var req BatchStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if req.Reason == "" {
		http.Error(w, "reason is required", http.StatusBadRequest)
		return
	}

	ref, err := h.jobReference(req.JobID)
	if err != nil {
		WriteError(w, err)
		return
	}

	movements, err := h.engine.ReturnFromInvoice(req.Lines, *ref, req.Reason, actorFromRequest(r))
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"results": movements})
}

// LowStock lists items at or below their reorder threshold.
func (h *StockHandler) LowStock(w http.ResponseWriter, r *http.Request) {
	var items []models.InventoryItem
	if err := h.db.
		Where("is_active = true AND current_stock <= min_stock").
		Order("current_stock asc").
		Find(&items).Error; err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, items)
}

// OutOfStock lists active items with zero stock.
func (h *StockHandler) OutOfStock(w http.ResponseWriter, r *http.Request) {
	var items []models.InventoryItem
	if err := h.db.
		Where("is_active = true AND current_stock <= 0").
		Order("name asc").
		Find(&items).Error; err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, items)
}

// jobReference resolves a job id into the tagged ledger reference.
func (h *StockHandler) jobReference(jobID uuid.UUID) (*models.TxnReference, error) {
	if jobID == uuid.Nil {
		return nil, NewAppError(KindValidation, "job_id is required")
	}
	var job models.JobCard
	if err := h.db.First(&job, "id = ?", jobID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, NewAppError(KindNotFound, "job card not found").WithDetail("jobId", jobID)
		}
		return nil, err
	}
	return &models.TxnReference{
		Type:   models.RefTypeJobCard,
		ID:     job.ID,
		Number: job.JobNumber,
	}, nil
}
