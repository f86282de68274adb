package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/sulemansaleem459-cmd/clutch-gear-backend/config"
	"github.com/sulemansaleem459-cmd/clutch-gear-backend/models"
)

// PaymentHandler exposes the payment surface over the payment ledger.
type PaymentHandler struct {
	db     *gorm.DB
	ledger *PaymentLedger
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler() *PaymentHandler {
	return &PaymentHandler{
		db:     config.DB,
		ledger: NewPaymentLedger(),
	}
}

// RecordPaymentRequest represents the request to record a charge
type RecordPaymentRequest struct {
	JobID       uuid.UUID       `json:"job_id"`
	Amount      decimal.Decimal `json:"amount"`
	PaymentType string          `json:"payment_type"`
	Method      string          `json:"method"`
	Notes       *string         `json:"notes"`
}

// RefundRequest represents the request to refund a completed payment
type RefundRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Reason string          `json:"reason"`
}

// GatewayCallbackRequest represents the gateway's signed callback
type GatewayCallbackRequest struct {
	PaymentID uuid.UUID `json:"payment_id"`
	OrderID   string    `json:"order_id"`
	Signature string    `json:"signature"`
	Token     string    `json:"token"`
}

// RecordPayment records a charge against a job.
func (h *PaymentHandler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	var req RecordPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if req.JobID == uuid.Nil {
		http.Error(w, "job_id is required", http.StatusBadRequest)
		return
	}

	payment, err := h.ledger.RecordPayment(req.JobID, req.Amount, req.PaymentType, req.Method, req.Notes, actorFromRequest(r))
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, payment)
}

// ListJobPayments returns all payment rows for a job.
func (h *PaymentHandler) ListJobPayments(w http.ResponseWriter, r *http.Request) {
	jobID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid job id", http.StatusBadRequest)
		return
	}

	var payments []models.Payment
	if err := h.db.
		Where("job_card_id = ?", jobID).
		Order("created_at asc").
		Find(&payments).Error; err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, payments)
}

// Refund refunds a completed payment.
func (h *PaymentHandler) Refund(w http.ResponseWriter, r *http.Request) {
	paymentID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid payment id", http.StatusBadRequest)
		return
	}

	var req RefundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	refund, err := h.ledger.Refund(paymentID, req.Amount, req.Reason, actorFromRequest(r))
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, refund)
}

// CreateCheckoutOrder attaches a gateway order and checkout token to a
// pending gateway payment.
func (h *PaymentHandler) CreateCheckoutOrder(w http.ResponseWriter, r *http.Request) {
	paymentID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid payment id", http.StatusBadRequest)
		return
	}

	payment, err := h.ledger.CreateCheckoutOrder(paymentID)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"paymentId": payment.ID,
		"orderId":   payment.GatewayOrderID,
		"token":     payment.CheckoutToken,
		"expiresAt": payment.CheckoutExpiresAt,
	})
}

// GatewayCallback verifies a signed gateway callback and completes the
// payment.
func (h *PaymentHandler) GatewayCallback(w http.ResponseWriter, r *http.Request) {
	var req GatewayCallbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if req.PaymentID == uuid.Nil || req.OrderID == "" || req.Signature == "" {
		http.Error(w, "payment_id, order_id and signature are required", http.StatusBadRequest)
		return
	}

	payment, err := h.ledger.VerifyGatewayCallback(req.PaymentID, req.OrderID, req.Signature, req.Token)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, payment)
}
