package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/sulemansaleem459-cmd/clutch-gear-backend/config"
	"github.com/sulemansaleem459-cmd/clutch-gear-backend/models"
)

// JobHandler exposes the job mutation surface over the job engine.
type JobHandler struct {
	db     *gorm.DB
	engine *JobEngine
	ledger *PaymentLedger
}

// NewJobHandler creates a new job handler
func NewJobHandler() *JobHandler {
	return &JobHandler{
		db:     config.DB,
		engine: NewJobEngine(),
		ledger: NewPaymentLedger(),
	}
}

// CreateJobRequest represents the request to open a job card
type CreateJobRequest struct {
	CustomerID          uuid.UUID        `json:"customer_id"`
	VehicleID           uuid.UUID        `json:"vehicle_id"`
	ReportedIssues      string           `json:"reported_issues"`
	TaxRate             decimal.Decimal  `json:"tax_rate"`
	EstimatedCompletion *models.JSONTime `json:"estimated_completion"`
}

// AddJobItemRequest represents the request to add a line item
type AddJobItemRequest struct {
	ItemType        string          `json:"item_type"`
	InventoryItemID *uuid.UUID      `json:"inventory_item_id"`
	Description     string          `json:"description"`
	Quantity        decimal.Decimal `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	Discount        decimal.Decimal `json:"discount"`
	Approved        bool            `json:"approved"`
}

// ApproveItemsRequest represents the request to approve line items
type ApproveItemsRequest struct {
	ItemIDs []uuid.UUID `json:"item_ids"`
}

// ChangeStatusRequest represents the request to change job status
type ChangeStatusRequest struct {
	Status string `json:"status"`
	Note   string `json:"note"`
}

// UpdateBillingRequest represents the discount/tax override request
type UpdateBillingRequest struct {
	Discount       decimal.Decimal `json:"discount"`
	DiscountReason *string         `json:"discount_reason"`
	TaxRate        decimal.Decimal `json:"tax_rate"`
}

// AssignMechanicsRequest represents the mechanic assignment request
type AssignMechanicsRequest struct {
	UserIDs []string `json:"user_ids"`
}

// CreateJob opens a new job card.
func (h *JobHandler) CreateJob(w http.ResponseWriter, r *http.Request) {
	var req CreateJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if req.CustomerID == uuid.Nil || req.VehicleID == uuid.Nil {
		http.Error(w, "customer_id and vehicle_id are required", http.StatusBadRequest)
		return
	}

	job, err := h.engine.CreateJob(req.CustomerID, req.VehicleID, req.ReportedIssues, req.TaxRate,
		(*time.Time)(req.EstimatedCompletion), actorFromRequest(r))
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, job)
}

// GetJob returns one job card with items and status history. With
// ?approved_only=true the billing block previews approved items only.
func (h *JobHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid job id", http.StatusBadRequest)
		return
	}

	var job models.JobCard
	if err := h.db.
		Preload("Items").
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at asc")
		}).
		First(&job, "id = ?", jobID).Error; err != nil {
		WriteError(w, err)
		return
	}

	if r.URL.Query().Get("approved_only") == "true" {
		preview := ComputeBilling(job.Items, job.Discount, job.TaxRate, true)
		WriteJSON(w, http.StatusOK, map[string]interface{}{
			"job":            job,
			"approvedTotals": preview,
		})
		return
	}

	WriteJSON(w, http.StatusOK, job)
}

// AddItem adds a line item to the job.
func (h *JobHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	jobID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid job id", http.StatusBadRequest)
		return
	}
	if !h.canMutateJob(w, r, jobID) {
		return
	}

	var req AddJobItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if req.Description == "" {
		http.Error(w, "description is required", http.StatusBadRequest)
		return
	}

	item := models.JobItem{
		ItemType:        req.ItemType,
		InventoryItemID: req.InventoryItemID,
		Description:     req.Description,
		Quantity:        req.Quantity,
		UnitPrice:       req.UnitPrice,
		Discount:        req.Discount,
		Approved:        req.Approved,
	}
	job, err := h.engine.AddItem(jobID, item, actorFromRequest(r))
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, job)
}

// RemoveItem removes a line item from the job.
func (h *JobHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	jobID, err := uuid.Parse(vars["id"])
	if err != nil {
		http.Error(w, "invalid job id", http.StatusBadRequest)
		return
	}
	itemID, err := uuid.Parse(vars["itemId"])
	if err != nil {
		http.Error(w, "invalid item id", http.StatusBadRequest)
		return
	}
	if !h.canMutateJob(w, r, jobID) {
		return
	}

	job, err := h.engine.RemoveItem(jobID, itemID, actorFromRequest(r))
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, job)
}

// ApproveItems approves line items; the job auto-advances when the last
// pending item is approved.
func (h *JobHandler) ApproveItems(w http.ResponseWriter, r *http.Request) {
	jobID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid job id", http.StatusBadRequest)
		return
	}

	var req ApproveItemsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	job, err := h.engine.ApproveItems(jobID, req.ItemIDs, actorFromRequest(r))
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, job)
}

// ChangeStatus performs an explicit state machine transition.
func (h *JobHandler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	jobID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid job id", http.StatusBadRequest)
		return
	}
	if !h.canMutateJob(w, r, jobID) {
		return
	}

	var req ChangeStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if req.Status == "" {
		http.Error(w, "status is required", http.StatusBadRequest)
		return
	}

	job, err := h.engine.ChangeStatus(jobID, req.Status, req.Note, actorFromRequest(r))
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, job)
}

// UpdateBilling overrides job-level discount and tax rate.
func (h *JobHandler) UpdateBilling(w http.ResponseWriter, r *http.Request) {
	jobID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid job id", http.StatusBadRequest)
		return
	}

	var req UpdateBillingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	job, err := h.engine.UpdateBilling(jobID, req.Discount, req.DiscountReason, req.TaxRate, actorFromRequest(r))
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, job)
}

// AssignMechanics replaces the mechanic assignment list.
func (h *JobHandler) AssignMechanics(w http.ResponseWriter, r *http.Request) {
	jobID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid job id", http.StatusBadRequest)
		return
	}

	var req AssignMechanicsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	job, err := h.engine.AssignMechanics(jobID, req.UserIDs, actorFromRequest(r))
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, job)
}

// BalanceDue returns the live balance for a job.
func (h *JobHandler) BalanceDue(w http.ResponseWriter, r *http.Request) {
	jobID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid job id", http.StatusBadRequest)
		return
	}

	balance, err := h.ledger.BalanceDue(jobID)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{
		"jobId":      jobID.String(),
		"balanceDue": balance.StringFixed(2),
	})
}

// canMutateJob enforces that mechanics only touch jobs they are assigned
// to. Other roles pass. Writes the response itself on rejection.
func (h *JobHandler) canMutateJob(w http.ResponseWriter, r *http.Request, jobID uuid.UUID) bool {
	actor := actorFromRequest(r)
	if actor.Role != models.RoleMechanic {
		return true
	}

	var job models.JobCard
	if err := h.db.First(&job, "id = ?", jobID).Error; err != nil {
		WriteError(w, err)
		return false
	}
	if !job.IsAssignedTo(actor.ID) {
		http.Error(w, "not assigned to this job", http.StatusForbidden)
		return false
	}
	return true
}
