package handlers

import (
	"github.com/shopspring/decimal"

	"github.com/sulemansaleem459-cmd/clutch-gear-backend/models"
)

// BillingResult holds the derived billing fields for a job card. All three
// amounts are rounded to 2 decimal places; everything upstream of them stays
// unrounded so repeated recomputation cannot drift.
type BillingResult struct {
	Subtotal   decimal.Decimal `json:"subtotal"`
	TaxAmount  decimal.Decimal `json:"taxAmount"`
	GrandTotal decimal.Decimal `json:"grandTotal"`
}

var decimalHundred = decimal.NewFromInt(100)

// LineTotal computes max(0, quantity*unitPrice - discount), unrounded.
func LineTotal(quantity, unitPrice, discount decimal.Decimal) decimal.Decimal {
	total := quantity.Mul(unitPrice).Sub(discount)
	if total.IsNegative() {
		return decimal.Zero
	}
	return total
}

// ComputeBilling turns a job's line items plus job-level discount and tax
// rate into subtotal/tax/grand total. With onlyApproved set, unapproved
// items are excluded; that view previews confirmed cost while approvals are
// still pending. Pure: no side effects, callers validate inputs.
func ComputeBilling(items []models.JobItem, discount, taxRate decimal.Decimal, onlyApproved bool) BillingResult {
	subtotal := decimal.Zero
	for _, item := range items {
		if onlyApproved && !item.Approved {
			continue
		}
		subtotal = subtotal.Add(LineTotal(item.Quantity, item.UnitPrice, item.Discount))
	}

	if discount.IsNegative() {
		discount = decimal.Zero
	}
	afterDiscount := subtotal.Sub(discount)
	if afterDiscount.IsNegative() {
		afterDiscount = decimal.Zero
	}

	taxAmount := afterDiscount.Mul(taxRate).Div(decimalHundred)
	grandTotal := afterDiscount.Add(taxAmount)

	// Round half-up at the output fields only.
	return BillingResult{
		Subtotal:   subtotal.Round(2),
		TaxAmount:  taxAmount.Round(2),
		GrandTotal: grandTotal.Round(2),
	}
}
