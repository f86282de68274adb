package handlers

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/sulemansaleem459-cmd/clutch-gear-backend/models"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func item(qty, price, discount string, approved bool) models.JobItem {
	return models.JobItem{
		Quantity:  d(qty),
		UnitPrice: d(price),
		Discount:  d(discount),
		Approved:  approved,
	}
}

func TestComputeBilling(t *testing.T) {
	tests := []struct {
		name         string
		items        []models.JobItem
		discount     string
		taxRate      string
		onlyApproved bool
		subtotal     string
		taxAmount    string
		grandTotal   string
	}{
		{
			name:       "no items",
			items:      nil,
			discount:   "0",
			taxRate:    "18",
			subtotal:   "0",
			taxAmount:  "0",
			grandTotal: "0",
		},
		{
			name:       "qty 2 at 100 with 20 discount and 18 percent tax",
			items:      []models.JobItem{item("2", "100", "0", true)},
			discount:   "20",
			taxRate:    "18",
			subtotal:   "200",
			taxAmount:  "32.4",
			grandTotal: "212.4",
		},
		{
			name:       "discount larger than subtotal clamps to zero",
			items:      []models.JobItem{item("1", "50", "0", true)},
			discount:   "500",
			taxRate:    "18",
			subtotal:   "50",
			taxAmount:  "0",
			grandTotal: "0",
		},
		{
			name:       "negative discount treated as zero",
			items:      []models.JobItem{item("1", "100", "0", true)},
			discount:   "-10",
			taxRate:    "10",
			subtotal:   "100",
			taxAmount:  "10",
			grandTotal: "110",
		},
		{
			name:       "item level discount clamps line to zero",
			items:      []models.JobItem{item("1", "100", "150", true)},
			discount:   "0",
			taxRate:    "18",
			subtotal:   "0",
			taxAmount:  "0",
			grandTotal: "0",
		},
		{
			name: "approved only filter excludes pending items",
			items: []models.JobItem{
				item("2", "100", "0", true),
				item("1", "999", "0", false),
			},
			discount:     "0",
			taxRate:      "18",
			onlyApproved: true,
			subtotal:     "200",
			taxAmount:    "36",
			grandTotal:   "236",
		},
		{
			name: "all items counted without filter",
			items: []models.JobItem{
				item("2", "100", "0", true),
				item("1", "100", "0", false),
			},
			discount:   "0",
			taxRate:    "0",
			subtotal:   "300",
			taxAmount:  "0",
			grandTotal: "300",
		},
		{
			name:       "half up rounding at outputs",
			items:      []models.JobItem{item("3", "33.335", "0", true)},
			discount:   "0",
			taxRate:    "0",
			subtotal:   "100.01",
			taxAmount:  "0",
			grandTotal: "100.01",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeBilling(tt.items, d(tt.discount), d(tt.taxRate), tt.onlyApproved)
			if !got.Subtotal.Equal(d(tt.subtotal)) {
				t.Errorf("Subtotal = %s, expected %s", got.Subtotal, tt.subtotal)
			}
			if !got.TaxAmount.Equal(d(tt.taxAmount)) {
				t.Errorf("TaxAmount = %s, expected %s", got.TaxAmount, tt.taxAmount)
			}
			if !got.GrandTotal.Equal(d(tt.grandTotal)) {
				t.Errorf("GrandTotal = %s, expected %s", got.GrandTotal, tt.grandTotal)
			}
		})
	}
}

func TestComputeBillingIdempotent(t *testing.T) {
	items := []models.JobItem{
		item("2", "100", "0", true),
		item("1.5", "333.33", "10", true),
		item("3", "99.99", "0", false),
	}

	first := ComputeBilling(items, d("20"), d("18"), false)
	second := ComputeBilling(items, d("20"), d("18"), false)

	if !first.Subtotal.Equal(second.Subtotal) ||
		!first.TaxAmount.Equal(second.TaxAmount) ||
		!first.GrandTotal.Equal(second.GrandTotal) {
		t.Errorf("recomputation drifted: first %+v, second %+v", first, second)
	}
}

func TestComputeBillingRoundingInvariant(t *testing.T) {
	items := []models.JobItem{
		item("7", "14.285", "0.005", true),
		item("3", "0.333", "0", true),
	}

	got := ComputeBilling(items, d("1.111"), d("18"), false)

	if got.GrandTotal.Exponent() < -2 {
		t.Errorf("GrandTotal %s has more than 2 decimal places", got.GrandTotal)
	}
	// grandTotal >= afterDiscount whenever taxRate >= 0
	afterDiscount := got.GrandTotal.Sub(got.TaxAmount)
	if got.GrandTotal.LessThan(afterDiscount) {
		t.Errorf("GrandTotal %s below after-discount amount %s with non-negative tax", got.GrandTotal, afterDiscount)
	}
}

func TestLineTotal(t *testing.T) {
	tests := []struct {
		name     string
		qty      string
		price    string
		discount string
		expected string
	}{
		{"plain multiply", "2", "100", "0", "200"},
		{"discount applied", "2", "100", "20", "180"},
		{"clamped at zero", "1", "10", "50", "0"},
		{"fractional quantity", "1.5", "100", "0", "150"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := LineTotal(d(tt.qty), d(tt.price), d(tt.discount))
			if !got.Equal(d(tt.expected)) {
				t.Errorf("LineTotal(%s, %s, %s) = %s, expected %s",
					tt.qty, tt.price, tt.discount, got, tt.expected)
			}
		})
	}
}
