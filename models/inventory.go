package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Inventory transaction types.
const (
	TxnTypePurchase   = "purchase"
	TxnTypeSale       = "sale"
	TxnTypeReturn     = "return"
	TxnTypeAdjustment = "adjustment"
	TxnTypeDamage     = "damage"
	TxnTypeTransfer   = "transfer"
)

// Ledger reference kinds. A transaction's reference is a tagged union
// {type, id, number}; consumers switch on the type.
const (
	RefTypeJobCard = "job_card"
	RefTypeInvoice = "invoice"
	RefTypeManual  = "manual"
)

// InventoryItem is one stock-keeping unit. CurrentStock is a cached
// projection of the transaction ledger; it is mutated exclusively by the
// stock engine, inside the same transaction that appends the ledger entry.
type InventoryItem struct {
	ID           uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	PartNumber   string          `gorm:"column:part_number;size:50;uniqueIndex;not null" json:"partNumber"`
	Name         string          `gorm:"size:150;not null" json:"name"`
	Category     string          `gorm:"size:50;index" json:"category"`
	Unit         string          `gorm:"size:20;not null;default:pcs" json:"unit"`
	CurrentStock decimal.Decimal `gorm:"column:current_stock;type:numeric(12,2);not null;default:0" json:"currentStock"`
	MinStock     decimal.Decimal `gorm:"column:min_stock;type:numeric(12,2);not null;default:0" json:"minStock"`
	CostPrice    decimal.Decimal `gorm:"column:cost_price;type:numeric(12,2);not null;default:0" json:"costPrice"`
	SellingPrice decimal.Decimal `gorm:"column:selling_price;type:numeric(12,2);not null;default:0" json:"sellingPrice"`
	IsActive     bool            `gorm:"default:true" json:"isActive"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt    time.Time       `gorm:"autoUpdateTime" json:"updatedAt"`
	DeletedAt    gorm.DeletedAt  `gorm:"index" json:"-"`
}

// IsLowStock reports whether the cached stock level is at or below the
// reorder threshold.
func (i *InventoryItem) IsLowStock() bool {
	return i.CurrentStock.LessThanOrEqual(i.MinStock)
}

// InventoryTransaction is one append-only stock ledger entry with
// before/after snapshots. Rows are never updated or deleted; the ledger is
// the source of truth for stock levels.
type InventoryTransaction struct {
	ID                uuid.UUID        `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	TransactionNumber string           `gorm:"column:transaction_number;size:30;uniqueIndex;not null" json:"transactionNumber"`
	InventoryItemID   uuid.UUID        `gorm:"type:uuid;not null;index:idx_inv_txn_item_date,priority:1" json:"inventoryItemId"`
	Type              string           `gorm:"size:20;not null;index" json:"type"`
	Quantity          decimal.Decimal  `gorm:"type:numeric(12,2);not null" json:"quantity"`
	PreviousStock     decimal.Decimal  `gorm:"column:previous_stock;type:numeric(12,2);not null" json:"previousStock"`
	NewStock          decimal.Decimal  `gorm:"column:new_stock;type:numeric(12,2);not null" json:"newStock"`
	UnitPrice         *decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2)" json:"unitPrice,omitempty"`

	ReferenceType   *string    `gorm:"column:reference_type;size:20;index:idx_inv_txn_ref,priority:1" json:"referenceType,omitempty"`
	ReferenceID     *uuid.UUID `gorm:"column:reference_id;type:uuid;index:idx_inv_txn_ref,priority:2" json:"referenceId,omitempty"`
	ReferenceNumber *string    `gorm:"column:reference_number;size:30" json:"referenceNumber,omitempty"`

	Notes       *string   `gorm:"size:500" json:"notes,omitempty"`
	PerformedBy string    `gorm:"column:performed_by;size:64;not null" json:"performedBy"`
	CreatedAt   time.Time `gorm:"autoCreateTime;index:idx_inv_txn_item_date,priority:2" json:"createdAt"`
}

// TxnReference is the tagged reference attached to ledger entries that
// originate from a job card or invoice.
type TxnReference struct {
	Type   string
	ID     uuid.UUID
	Number string
}
