package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Payment types.
const (
	PaymentTypeAdvance = "advance"
	PaymentTypePartial = "partial"
	PaymentTypeFull    = "full"
	PaymentTypeRefund  = "refund"
)

// Payment statuses.
const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
	PaymentStatusFailed    = "failed"
	PaymentStatusRefunded  = "refunded"
)

// Payment methods.
const (
	PaymentMethodCash    = "cash"
	PaymentMethodCard    = "card"
	PaymentMethodUPI     = "upi"
	PaymentMethodGateway = "gateway"
)

// Payment is one money movement (charge or refund) against a job card.
// A refund is always a new row; the original row flips to "refunded".
type Payment struct {
	ID            uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	PaymentNumber string          `gorm:"column:payment_number;size:30;uniqueIndex;not null" json:"paymentNumber"`
	JobCardID     uuid.UUID       `gorm:"type:uuid;index;not null" json:"jobCardId"`
	Amount        decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	PaymentType   string          `gorm:"column:payment_type;size:20;not null" json:"paymentType"`
	Method        string          `gorm:"size:20;not null" json:"method"`
	Status        string          `gorm:"size:20;not null;default:pending;index" json:"status"`
	Notes         *string         `gorm:"size:500" json:"notes,omitempty"`

	// Hosted-checkout correlation. The checkout token is an opaque
	// short-lived handle; verification after expiry fails closed.
	GatewayOrderID    *string    `gorm:"column:gateway_order_id;size:64;index" json:"gatewayOrderId,omitempty"`
	GatewaySignature  *string    `gorm:"column:gateway_signature;size:128" json:"-"`
	CheckoutToken     *string    `gorm:"column:checkout_token;size:64" json:"-"`
	CheckoutExpiresAt *time.Time `gorm:"column:checkout_expires_at" json:"checkoutExpiresAt,omitempty"`

	// Set on refund rows only, pointing at the refunded payment.
	OriginalPaymentID *uuid.UUID `gorm:"column:original_payment_id;type:uuid;index" json:"originalPaymentId,omitempty"`
	RefundReason      *string    `gorm:"column:refund_reason;size:255" json:"refundReason,omitempty"`

	ReceivedBy  string         `gorm:"column:received_by;size:64;not null" json:"receivedBy"`
	CompletedAt *time.Time     `gorm:"column:completed_at" json:"completedAt,omitempty"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updatedAt"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// IsSettledCharge reports whether the payment counts toward balance-due.
// A refunded original still counts: the refund row carries the subtraction,
// so dropping the original would double-count partial refunds.
func (p *Payment) IsSettledCharge() bool {
	if p.PaymentType == PaymentTypeRefund {
		return false
	}
	return p.Status == PaymentStatusCompleted || p.Status == PaymentStatusRefunded
}

// IsCompletedRefund reports whether the payment is a settled refund.
func (p *Payment) IsCompletedRefund() bool {
	return p.Status == PaymentStatusCompleted && p.PaymentType == PaymentTypeRefund
}

// ValidPaymentType reports whether t is a known payment type.
func ValidPaymentType(t string) bool {
	switch t {
	case PaymentTypeAdvance, PaymentTypePartial, PaymentTypeFull, PaymentTypeRefund:
		return true
	}
	return false
}
