package handlers

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func TestValidateBatch(t *testing.T) {
	itemA := uuid.New()
	itemB := uuid.New()
	missing := uuid.New()

	stocks := map[uuid.UUID]decimal.Decimal{
		itemA: d("5"),
		itemB: d("10"),
	}

	tests := []struct {
		name     string
		lines    []InvoiceLine
		failures int
	}{
		{
			name: "all lines sufficient",
			lines: []InvoiceLine{
				{InventoryItemID: itemA, Quantity: d("3")},
				{InventoryItemID: itemB, Quantity: d("10")},
			},
			failures: 0,
		},
		{
			name: "exact stock level passes",
			lines: []InvoiceLine{
				{InventoryItemID: itemA, Quantity: d("5")},
			},
			failures: 0,
		},
		{
			name: "one line short fails only that line",
			lines: []InvoiceLine{
				{InventoryItemID: itemA, Quantity: d("3")},
				{InventoryItemID: itemB, Quantity: d("100")},
			},
			failures: 1,
		},
		{
			name: "every line short",
			lines: []InvoiceLine{
				{InventoryItemID: itemA, Quantity: d("6")},
				{InventoryItemID: itemB, Quantity: d("11")},
			},
			failures: 2,
		},
		{
			name: "unknown item counts as zero stock",
			lines: []InvoiceLine{
				{InventoryItemID: missing, Quantity: d("1")},
			},
			failures: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ValidateBatch(tt.lines, stocks)
			if len(got) != tt.failures {
				t.Fatalf("ValidateBatch returned %d failures, expected %d: %+v", len(got), tt.failures, got)
			}
		})
	}
}

func TestValidateBatchReportsRequestedAndAvailable(t *testing.T) {
	itemA := uuid.New()
	stocks := map[uuid.UUID]decimal.Decimal{itemA: d("10")}

	failures := ValidateBatch([]InvoiceLine{{InventoryItemID: itemA, Quantity: d("100")}}, stocks)
	if len(failures) != 1 {
		t.Fatalf("expected 1 failure, got %d", len(failures))
	}
	f := failures[0]
	if f.InventoryItemID != itemA {
		t.Errorf("failure item = %s, expected %s", f.InventoryItemID, itemA)
	}
	if !f.Requested.Equal(d("100")) {
		t.Errorf("requested = %s, expected 100", f.Requested)
	}
	if !f.Available.Equal(d("10")) {
		t.Errorf("available = %s, expected 10", f.Available)
	}
}
