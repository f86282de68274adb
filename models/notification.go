package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Notification kinds.
const (
	NotificationLowStock        = "low_stock"
	NotificationJobStatusChange = "job_status_change"
	NotificationPaymentReceived = "payment_received"
)

// Notification statuses.
const (
	NotificationPending = "pending"
	NotificationSent    = "sent"
	NotificationFailed  = "failed"
)

// Notification is an outbox row. Engines write pending rows inside the same
// transaction as the business mutation; the dispatcher delivers them after
// commit. Delivery failure never affects the mutation that produced the row.
type Notification struct {
	ID           uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Kind         string         `gorm:"size:30;not null;index" json:"kind"`
	RecipientRef string         `gorm:"column:recipient_ref;size:100;not null" json:"recipientRef"`
	Title        string         `gorm:"size:200;not null" json:"title"`
	Payload      datatypes.JSON `gorm:"type:jsonb" json:"payload"`
	Status       string         `gorm:"size:20;not null;default:pending;index" json:"status"`
	Attempts     int            `gorm:"not null;default:0" json:"attempts"`
	LastError    *string        `gorm:"column:last_error;size:500" json:"lastError,omitempty"`
	SentAt       *time.Time     `gorm:"column:sent_at" json:"sentAt,omitempty"`
	CreatedAt    time.Time      `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime" json:"updatedAt"`
}
