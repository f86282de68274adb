package handlers

import (
	"testing"

	"github.com/google/uuid"

	"github.com/sulemansaleem459-cmd/clutch-gear-backend/models"
)

func pay(amount, ptype, status string) models.Payment {
	return models.Payment{
		Amount:      d(amount),
		PaymentType: ptype,
		Status:      status,
	}
}

func TestComputeBalanceDue(t *testing.T) {
	tests := []struct {
		name       string
		grandTotal string
		payments   []models.Payment
		expected   string
	}{
		{
			name:       "no payments",
			grandTotal: "212.40",
			payments:   nil,
			expected:   "212.40",
		},
		{
			name:       "full completed payment settles the job",
			grandTotal: "212.40",
			payments: []models.Payment{
				pay("212.40", models.PaymentTypeFull, models.PaymentStatusCompleted),
			},
			expected: "0",
		},
		{
			name:       "pending payments never count",
			grandTotal: "212.40",
			payments: []models.Payment{
				pay("212.40", models.PaymentTypeFull, models.PaymentStatusPending),
			},
			expected: "212.40",
		},
		{
			name:       "failed payments never count",
			grandTotal: "500",
			payments: []models.Payment{
				pay("500", models.PaymentTypeFull, models.PaymentStatusFailed),
			},
			expected: "500",
		},
		{
			name:       "partial payments accumulate",
			grandTotal: "500",
			payments: []models.Payment{
				pay("200", models.PaymentTypeAdvance, models.PaymentStatusCompleted),
				pay("150", models.PaymentTypePartial, models.PaymentStatusCompleted),
			},
			expected: "150",
		},
		{
			name:       "completed refund restores balance",
			grandTotal: "500",
			payments: []models.Payment{
				pay("500", models.PaymentTypeFull, models.PaymentStatusRefunded),
				pay("100", models.PaymentTypeRefund, models.PaymentStatusCompleted),
			},
			expected: "100",
		},
		{
			name:       "refunded original still counts as paid principal",
			grandTotal: "500",
			payments: []models.Payment{
				pay("300", models.PaymentTypePartial, models.PaymentStatusRefunded),
				pay("50", models.PaymentTypeRefund, models.PaymentStatusCompleted),
			},
			expected: "250",
		},
		{
			name:       "overpayment shows negative balance",
			grandTotal: "100",
			payments: []models.Payment{
				pay("150", models.PaymentTypeFull, models.PaymentStatusCompleted),
			},
			expected: "-50",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeBalanceDue(d(tt.grandTotal), tt.payments)
			if !got.Equal(d(tt.expected)) {
				t.Errorf("ComputeBalanceDue(%s) = %s, expected %s", tt.grandTotal, got, tt.expected)
			}
		})
	}
}

func TestGatewayVerificationRequiresConfiguredSecret(t *testing.T) {
	t.Setenv("GATEWAY_SECRET", "")

	l := &PaymentLedger{}
	_, err := l.VerifyGatewayCallback(uuid.New(), "order_x", "sig", "tok")
	if err == nil {
		t.Fatal("verification succeeded without a gateway secret")
	}
	if kind := kindOf(t, err); kind != KindSignatureInvalid {
		t.Errorf("kind = %s, expected %s", kind, KindSignatureInvalid)
	}
}

func TestDeliveryToleranceCoversRoundingOnly(t *testing.T) {
	// 0.01 absorbs float rounding; 0.02 is a real unpaid balance.
	within := d("0.01")
	if within.GreaterThan(paymentTolerance) {
		t.Errorf("balance of 0.01 should pass the delivery gate")
	}
	outside := d("0.02")
	if !outside.GreaterThan(paymentTolerance) {
		t.Errorf("balance of 0.02 should fail the delivery gate")
	}
}
