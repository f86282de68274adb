package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Job card statuses. Transitions between them are owned by the job engine;
// nothing else writes Status.
const (
	JobStatusCreated          = "created"
	JobStatusInspection       = "inspection"
	JobStatusAwaitingApproval = "awaiting-approval"
	JobStatusApproved         = "approved"
	JobStatusInProgress       = "in-progress"
	JobStatusQualityCheck     = "quality-check"
	JobStatusReady            = "ready"
	JobStatusDelivered        = "delivered"
	JobStatusCancelled        = "cancelled"
)

// Job item types.
const (
	JobItemLabour     = "labour"
	JobItemPart       = "part"
	JobItemConsumable = "consumable"
	JobItemExternal   = "external"
)

// JobCard represents one vehicle-service engagement from intake to delivery.
type JobCard struct {
	ID         uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	JobNumber  string    `gorm:"column:job_number;size:30;uniqueIndex;not null" json:"jobNumber"`
	CustomerID uuid.UUID `gorm:"type:uuid;index;not null" json:"customerId"`
	VehicleID  uuid.UUID `gorm:"type:uuid;index;not null" json:"vehicleId"`

	// Immutable copy of vehicle facts at intake, decoupled from the live
	// vehicle record.
	VehicleSnapshot datatypes.JSON `gorm:"column:vehicle_snapshot;type:jsonb;not null" json:"vehicleSnapshot"`

	ReportedIssues    string         `gorm:"column:reported_issues" json:"reportedIssues"`
	Status            string         `gorm:"size:30;not null;default:created;index" json:"status"`
	AssignedMechanics pq.StringArray `gorm:"column:assigned_mechanics;type:text[]" json:"assignedMechanicUserIds"`

	// Billing fields are a cached projection of Items + Discount + TaxRate.
	// They are recomputed inside every transaction that mutates any input,
	// never patched incrementally.
	Subtotal       decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"subtotal"`
	Discount       decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"discount"`
	DiscountReason *string         `gorm:"column:discount_reason;size:255" json:"discountReason,omitempty"`
	TaxRate        decimal.Decimal `gorm:"column:tax_rate;type:numeric(5,2);not null;default:0" json:"taxRate"`
	TaxAmount      decimal.Decimal `gorm:"column:tax_amount;type:numeric(12,2);not null;default:0" json:"taxAmount"`
	GrandTotal     decimal.Decimal `gorm:"column:grand_total;type:numeric(12,2);not null;default:0" json:"grandTotal"`

	// Set when a billing recompute changes the grand total after completed
	// payments already exist against the job. Surfaces the discrepancy for
	// manual reconciliation instead of blocking the edit.
	BillingAmended bool `gorm:"column:billing_amended;not null;default:false" json:"billingAmended"`

	EstimatedCompletion *time.Time `gorm:"column:estimated_completion" json:"estimatedCompletion,omitempty"`
	ActualCompletion    *time.Time `gorm:"column:actual_completion" json:"actualCompletion,omitempty"`
	DeliveredAt         *time.Time `gorm:"column:delivered_at" json:"deliveredAt,omitempty"`

	Items         []JobItem      `gorm:"foreignKey:JobCardID" json:"jobItems,omitempty"`
	StatusHistory []JobStatusLog `gorm:"foreignKey:JobCardID" json:"statusHistory,omitempty"`

	CreatedBy string         `gorm:"column:created_by;size:64;not null" json:"createdBy"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// IsTerminal reports whether the job card allows no further mutation.
func (j *JobCard) IsTerminal() bool {
	return IsTerminalJobStatus(j.Status)
}

func IsTerminalJobStatus(status string) bool {
	return status == JobStatusDelivered || status == JobStatusCancelled
}

// HasUnapprovedItems reports whether any loaded item still awaits approval.
func (j *JobCard) HasUnapprovedItems() bool {
	for _, it := range j.Items {
		if !it.Approved {
			return true
		}
	}
	return false
}

// IsAssignedTo reports whether the given user id is on the mechanic list.
func (j *JobCard) IsAssignedTo(userID string) bool {
	for _, id := range j.AssignedMechanics {
		if id == userID {
			return true
		}
	}
	return false
}

// JobItem is one labour/part/consumable/external line on a job card.
type JobItem struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	JobCardID uuid.UUID `gorm:"type:uuid;index;not null" json:"jobCardId"`
	ItemType  string    `gorm:"column:item_type;size:20;not null" json:"itemType"`

	// Set for part/consumable lines that consume stock at invoicing.
	InventoryItemID *uuid.UUID `gorm:"type:uuid;index" json:"inventoryItemId,omitempty"`

	Description string          `gorm:"size:255;not null" json:"description"`
	Quantity    decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null" json:"unitPrice"`
	Discount    decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"discount"`
	Total       decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total"`

	Approved   bool       `gorm:"not null;default:false" json:"approved"`
	ApprovedAt *time.Time `gorm:"column:approved_at" json:"approvedAt,omitempty"`
	ApprovedBy *string    `gorm:"column:approved_by;size:64" json:"approvedBy,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// JobStatusLog is one append-only status audit entry. Rows are never
// updated or reordered.
type JobStatusLog struct {
	ID         uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	JobCardID  uuid.UUID `gorm:"type:uuid;index;not null" json:"jobCardId"`
	FromStatus string    `gorm:"column:from_status;size:30;not null" json:"fromStatus"`
	ToStatus   string    `gorm:"column:to_status;size:30;not null" json:"toStatus"`
	Note       string    `gorm:"size:500" json:"note"`
	ActorID    string    `gorm:"column:actor_id;size:64;not null" json:"actorId"`
	ActorName  string    `gorm:"column:actor_name;size:100" json:"actorName"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"createdAt"`
}
