package handlers

import (
	"encoding/json"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sulemansaleem459-cmd/clutch-gear-backend/config"
	"github.com/sulemansaleem459-cmd/clutch-gear-backend/models"
)

// Deduction reasons for single-item deductions.
const (
	DeductReasonDamage = "damage"
	DeductReasonUsage  = "usage"
)

// StockMovement reports the before/after stock levels of one mutation.
type StockMovement struct {
	InventoryItemID uuid.UUID       `json:"inventoryItemId"`
	Previous        decimal.Decimal `json:"previous"`
	New             decimal.Decimal `json:"new"`
	Delta           decimal.Decimal `json:"delta"`
}

// InvoiceLine is one line of a batch deduct/return.
type InvoiceLine struct {
	InventoryItemID uuid.UUID       `json:"inventoryItemId"`
	Quantity        decimal.Decimal `json:"quantity"`
}

// LineFailure describes one insufficient line of a rejected batch.
type LineFailure struct {
	InventoryItemID uuid.UUID       `json:"inventoryItemId"`
	Requested       decimal.Decimal `json:"requested"`
	Available       decimal.Decimal `json:"available"`
}

// StockEngine applies stock deltas and writes the matching ledger entry in
// the same transaction. The item's current_stock field and its ledger are
// never allowed to diverge.
type StockEngine struct {
	db *gorm.DB
}

// NewStockEngine creates a new stock engine instance
func NewStockEngine() *StockEngine {
	return &StockEngine{
		db: config.DB,
	}
}

// ValidateBatch checks every line of a batch against the given stock levels
// and returns the failing lines. Pure; callers load and lock the levels.
func ValidateBatch(lines []InvoiceLine, stocks map[uuid.UUID]decimal.Decimal) []LineFailure {
	var failures []LineFailure
	for _, line := range lines {
		available, ok := stocks[line.InventoryItemID]
		if !ok {
			failures = append(failures, LineFailure{
				InventoryItemID: line.InventoryItemID,
				Requested:       line.Quantity,
				Available:       decimal.Zero,
			})
			continue
		}
		if line.Quantity.GreaterThan(available) {
			failures = append(failures, LineFailure{
				InventoryItemID: line.InventoryItemID,
				Requested:       line.Quantity,
				Available:       available,
			})
		}
	}
	return failures
}

// AddStock credits qty to an item and writes a purchase ledger entry.
func (s *StockEngine) AddStock(itemID uuid.UUID, qty decimal.Decimal, unitPrice *decimal.Decimal, notes *string, actor Actor) (*StockMovement, error) {
	if qty.IsNegative() || qty.IsZero() {
		return nil, NewAppError(KindValidation, "quantity must be positive")
	}

	var movement StockMovement
	err := s.db.Transaction(func(tx *gorm.DB) error {
		item, err := lockItem(tx, itemID)
		if err != nil {
			return err
		}

		previous := item.CurrentStock
		item.CurrentStock = previous.Add(qty)
		if unitPrice != nil {
			item.CostPrice = *unitPrice
		}
		if err := tx.Save(item).Error; err != nil {
			return err
		}

		if err := s.appendLedger(tx, item, models.TxnTypePurchase, qty, previous, unitPrice, nil, notes, actor); err != nil {
			return err
		}

		movement = StockMovement{InventoryItemID: itemID, Previous: previous, New: item.CurrentStock, Delta: qty}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &movement, nil
}

// DeductStock debits qty from an item. Rejected, not clamped, when the
// deduction would drive the stock negative.
func (s *StockEngine) DeductStock(itemID uuid.UUID, qty decimal.Decimal, reason string, notes *string, actor Actor) (*StockMovement, error) {
	if qty.IsNegative() || qty.IsZero() {
		return nil, NewAppError(KindValidation, "quantity must be positive")
	}

	txnType := models.TxnTypeAdjustment
	if reason == DeductReasonDamage {
		txnType = models.TxnTypeDamage
	}

	var movement StockMovement
	err := s.db.Transaction(func(tx *gorm.DB) error {
		item, err := lockItem(tx, itemID)
		if err != nil {
			return err
		}

		if qty.GreaterThan(item.CurrentStock) {
			return NewAppError(KindInsufficientStock, "not enough stock").
				WithDetail("inventoryItemId", itemID).
				WithDetail("requested", qty.String()).
				WithDetail("available", item.CurrentStock.String())
		}

		previous := item.CurrentStock
		item.CurrentStock = previous.Sub(qty)
		if err := tx.Save(item).Error; err != nil {
			return err
		}

		if err := s.appendLedger(tx, item, txnType, qty.Neg(), previous, nil, nil, notes, actor); err != nil {
			return err
		}
		if err := s.queueLowStockAlert(tx, item); err != nil {
			return err
		}

		movement = StockMovement{InventoryItemID: itemID, Previous: previous, New: item.CurrentStock, Delta: qty.Neg()}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &movement, nil
}

// AdjustStockTo sets the absolute stock level after a manual recount and
// writes an adjustment entry with the signed delta (possibly zero).
func (s *StockEngine) AdjustStockTo(itemID uuid.UUID, newQty decimal.Decimal, notes *string, actor Actor) (*StockMovement, error) {
	if newQty.IsNegative() {
		return nil, NewAppError(KindValidation, "stock level must not be negative")
	}

	var movement StockMovement
	err := s.db.Transaction(func(tx *gorm.DB) error {
		item, err := lockItem(tx, itemID)
		if err != nil {
			return err
		}

		previous := item.CurrentStock
		delta := newQty.Sub(previous)
		item.CurrentStock = newQty
		if err := tx.Save(item).Error; err != nil {
			return err
		}

		if err := s.appendLedger(tx, item, models.TxnTypeAdjustment, delta, previous, nil, nil, notes, actor); err != nil {
			return err
		}
		if delta.IsNegative() {
			if err := s.queueLowStockAlert(tx, item); err != nil {
				return err
			}
		}

		movement = StockMovement{InventoryItemID: itemID, Previous: previous, New: newQty, Delta: delta}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &movement, nil
}

// DeductForInvoice debits every line or none. All lines are locked (in item
// id order, so two concurrent batches cannot deadlock) and validated before
// any write; one insufficient line rejects the whole batch with zero stock
// mutation and zero ledger entries.
func (s *StockEngine) DeductForInvoice(lines []InvoiceLine, ref models.TxnReference, actor Actor) ([]StockMovement, error) {
	if len(lines) == 0 {
		return nil, NewAppError(KindValidation, "no lines given")
	}
	for _, line := range lines {
		if line.Quantity.IsNegative() || line.Quantity.IsZero() {
			return nil, NewAppError(KindValidation, "line quantity must be positive").
				WithDetail("inventoryItemId", line.InventoryItemID)
		}
	}

	sorted := make([]InvoiceLine, len(lines))
	copy(sorted, lines)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].InventoryItemID.String() < sorted[j].InventoryItemID.String()
	})

	var movements []StockMovement
	err := s.db.Transaction(func(tx *gorm.DB) error {
		items := make(map[uuid.UUID]*models.InventoryItem, len(sorted))
		stocks := make(map[uuid.UUID]decimal.Decimal, len(sorted))
		for _, line := range sorted {
			if _, seen := items[line.InventoryItemID]; seen {
				return NewAppError(KindValidation, "duplicate line for item").
					WithDetail("inventoryItemId", line.InventoryItemID)
			}
			item, err := lockItem(tx, line.InventoryItemID)
			if err != nil {
				return err
			}
			items[line.InventoryItemID] = item
			stocks[line.InventoryItemID] = item.CurrentStock
		}

		if failures := ValidateBatch(sorted, stocks); len(failures) > 0 {
			return NewAppError(KindBatchFailure, "insufficient stock for one or more lines").
				WithDetail("failedLines", failures)
		}

		for _, line := range sorted {
			item := items[line.InventoryItemID]
			previous := item.CurrentStock
			item.CurrentStock = previous.Sub(line.Quantity)
			if err := tx.Save(item).Error; err != nil {
				return err
			}
			if err := s.appendLedger(tx, item, models.TxnTypeSale, line.Quantity.Neg(), previous, nil, &ref, nil, actor); err != nil {
				return err
			}
			if err := s.queueLowStockAlert(tx, item); err != nil {
				return err
			}
			movements = append(movements, StockMovement{
				InventoryItemID: line.InventoryItemID,
				Previous:        previous,
				New:             item.CurrentStock,
				Delta:           line.Quantity.Neg(),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("✅ Deducted %d lines for %s %s", len(movements), ref.Type, ref.Number)
	return movements, nil
}

// ReturnFromInvoice re-credits stock for returned lines. Returns never fail
// on stock level, only on item existence.
func (s *StockEngine) ReturnFromInvoice(lines []InvoiceLine, ref models.TxnReference, reason string, actor Actor) ([]StockMovement, error) {
	if len(lines) == 0 {
		return nil, NewAppError(KindValidation, "no lines given")
	}
	for _, line := range lines {
		if line.Quantity.IsNegative() || line.Quantity.IsZero() {
			return nil, NewAppError(KindValidation, "line quantity must be positive").
				WithDetail("inventoryItemId", line.InventoryItemID)
		}
	}

	sorted := make([]InvoiceLine, len(lines))
	copy(sorted, lines)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].InventoryItemID.String() < sorted[j].InventoryItemID.String()
	})

	var movements []StockMovement
	err := s.db.Transaction(func(tx *gorm.DB) error {
		for _, line := range sorted {
			item, err := lockItem(tx, line.InventoryItemID)
			if err != nil {
				return err
			}

			previous := item.CurrentStock
			item.CurrentStock = previous.Add(line.Quantity)
			if err := tx.Save(item).Error; err != nil {
				return err
			}

			notes := reason
			if err := s.appendLedger(tx, item, models.TxnTypeReturn, line.Quantity, previous, nil, &ref, &notes, actor); err != nil {
				return err
			}
			movements = append(movements, StockMovement{
				InventoryItemID: line.InventoryItemID,
				Previous:        previous,
				New:             item.CurrentStock,
				Delta:           line.Quantity,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return movements, nil
}

// appendLedger writes the immutable transaction row matching a stock
// mutation. Runs inside the caller's transaction so the cached stock field
// and the ledger commit or roll back together.
func (s *StockEngine) appendLedger(tx *gorm.DB, item *models.InventoryItem, txnType string, delta, previous decimal.Decimal, unitPrice *decimal.Decimal, ref *models.TxnReference, notes *string, actor Actor) error {
	number, err := models.NextDocumentNumber(tx, models.CounterScopeTransaction, "TXN", time.Now())
	if err != nil {
		return err
	}

	entry := models.InventoryTransaction{
		TransactionNumber: number,
		InventoryItemID:   item.ID,
		Type:              txnType,
		Quantity:          delta,
		PreviousStock:     previous,
		NewStock:          previous.Add(delta),
		UnitPrice:         unitPrice,
		Notes:             notes,
		PerformedBy:       actor.ID,
	}
	if ref != nil {
		entry.ReferenceType = &ref.Type
		refID := ref.ID
		entry.ReferenceID = &refID
		refNumber := ref.Number
		entry.ReferenceNumber = &refNumber
	}
	return tx.Create(&entry).Error
}

// queueLowStockAlert writes a low-stock outbox row when the item sits at or
// below its reorder threshold. The dispatcher sends it after commit; a
// delivery failure never rolls back the stock mutation.
func (s *StockEngine) queueLowStockAlert(tx *gorm.DB, item *models.InventoryItem) error {
	if !item.IsLowStock() {
		return nil
	}

	payload, _ := json.Marshal(map[string]string{
		"inventoryItemId": item.ID.String(),
		"partNumber":      item.PartNumber,
		"currentStock":    item.CurrentStock.String(),
		"minStock":        item.MinStock.String(),
	})
	notification := models.Notification{
		Kind:         models.NotificationLowStock,
		RecipientRef: "role:manager",
		Title:        "Low stock: " + item.Name,
		Payload:      datatypes.JSON(payload),
		Status:       models.NotificationPending,
	}
	return tx.Create(&notification).Error
}

// lockItem loads an inventory item under a row lock, serializing all
// mutators of the same item for the transaction's duration.
func lockItem(tx *gorm.DB, itemID uuid.UUID) (*models.InventoryItem, error) {
	var item models.InventoryItem
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&item, "id = ?", itemID).Error
	if err == gorm.ErrRecordNotFound {
		return nil, NewAppError(KindNotFound, "inventory item not found").WithDetail("inventoryItemId", itemID)
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}
