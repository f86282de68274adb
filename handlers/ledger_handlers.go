package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"github.com/sulemansaleem459-cmd/clutch-gear-backend/config"
	"github.com/sulemansaleem459-cmd/clutch-gear-backend/models"
)

// LedgerHandler exposes the read-only stock ledger query surface.
type LedgerHandler struct {
	db *gorm.DB
}

// NewLedgerHandler creates a new ledger handler
func NewLedgerHandler() *LedgerHandler {
	return &LedgerHandler{
		db: config.DB,
	}
}

// ledgerQuery applies the shared filter set: item, type, date range,
// reference.
func (h *LedgerHandler) ledgerQuery(r *http.Request) (*gorm.DB, error) {
	q := h.db.Model(&models.InventoryTransaction{})
	params := r.URL.Query()

	if itemID := params.Get("item_id"); itemID != "" {
		id, err := uuid.Parse(itemID)
		if err != nil {
			return nil, NewAppError(KindValidation, "invalid item_id")
		}
		q = q.Where("inventory_item_id = ?", id)
	}
	if txnType := params.Get("type"); txnType != "" {
		q = q.Where("type = ?", txnType)
	}
	if from := params.Get("from"); from != "" {
		t, err := time.Parse("2006-01-02", from)
		if err != nil {
			return nil, NewAppError(KindValidation, "invalid from date, expected YYYY-MM-DD")
		}
		q = q.Where("created_at >= ?", t)
	}
	if to := params.Get("to"); to != "" {
		t, err := time.Parse("2006-01-02", to)
		if err != nil {
			return nil, NewAppError(KindValidation, "invalid to date, expected YYYY-MM-DD")
		}
		q = q.Where("created_at < ?", t.AddDate(0, 0, 1))
	}
	if refType := params.Get("reference_type"); refType != "" {
		q = q.Where("reference_type = ?", refType)
	}
	if refID := params.Get("reference_id"); refID != "" {
		id, err := uuid.Parse(refID)
		if err != nil {
			return nil, NewAppError(KindValidation, "invalid reference_id")
		}
		q = q.Where("reference_id = ?", id)
	}

	return q, nil
}

// ListTransactions returns a filtered, paginated ledger page.
func (h *LedgerHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	q, err := h.ledgerQuery(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 || limit > 200 {
		limit = 50
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		WriteError(w, err)
		return
	}

	var transactions []models.InventoryTransaction
	if err := q.
		Order("created_at desc").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&transactions).Error; err != nil {
		WriteError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"data":  transactions,
		"page":  page,
		"limit": limit,
		"total": total,
	})
}

// ExportTransactions streams the filtered ledger as an Excel workbook.
func (h *LedgerHandler) ExportTransactions(w http.ResponseWriter, r *http.Request) {
	q, err := h.ledgerQuery(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	var transactions []models.InventoryTransaction
	if err := q.Order("created_at asc").Limit(10000).Find(&transactions).Error; err != nil {
		WriteError(w, err)
		return
	}

	f, err := createLedgerWorkbook(transactions)
	if err != nil {
		http.Error(w, "Failed to generate Excel file: "+err.Error(), http.StatusInternalServerError)
		return
	}

	filename := fmt.Sprintf("stock_ledger_%s.xlsx", time.Now().Format("20060102_150405"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))

	if err := f.Write(w); err != nil {
		http.Error(w, "Failed to write Excel file", http.StatusInternalServerError)
	}
}

// createLedgerWorkbook renders ledger rows into a styled workbook.
func createLedgerWorkbook(transactions []models.InventoryTransaction) (*excelize.File, error) {
	f := excelize.NewFile()
	sheetName := "Stock Ledger"

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold: true,
			Size: 16,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "left",
			Vertical:   "center",
		},
	})
	f.SetCellValue(sheetName, "A1", "Inventory Transaction Ledger")
	f.SetCellStyle(sheetName, "A1", "A1", titleStyle)
	f.SetRowHeight(sheetName, 1, 30)
	f.SetCellValue(sheetName, "A2", fmt.Sprintf("Generated: %s", time.Now().Format("2006-01-02 15:04:05")))

	headers := []string{"Txn Number", "Item ID", "Type", "Quantity", "Previous Stock", "New Stock", "Reference", "Performed By", "Created At"}
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold: true,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#4472C4"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	for colIdx, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(colIdx+1, 4)
		f.SetCellValue(sheetName, cell, header)
		f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	for rowIdx, txn := range transactions {
		reference := ""
		if txn.ReferenceType != nil && txn.ReferenceNumber != nil {
			reference = fmt.Sprintf("%s %s", *txn.ReferenceType, *txn.ReferenceNumber)
		}
		values := []interface{}{
			txn.TransactionNumber,
			txn.InventoryItemID.String(),
			txn.Type,
			txn.Quantity.String(),
			txn.PreviousStock.String(),
			txn.NewStock.String(),
			reference,
			txn.PerformedBy,
			txn.CreatedAt.Format("2006-01-02 15:04:05"),
		}
		for colIdx, value := range values {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+5)
			f.SetCellValue(sheetName, cell, value)
		}
	}

	return f, nil
}
