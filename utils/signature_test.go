package utils

import "testing"

func TestSignAndVerify(t *testing.T) {
	secret := "test-gateway-secret"
	orderID := "order_9f3a1b2c4d5e"
	paymentID := "c0ffee00-1234-4abc-9def-000000000001"

	sig := SignPayment(orderID, paymentID, secret)
	if sig == "" {
		t.Fatal("SignPayment returned empty signature")
	}

	if !VerifySignature(orderID, paymentID, secret, sig) {
		t.Error("signature failed verification against its own inputs")
	}
}

func TestVerifyRejectsTampering(t *testing.T) {
	secret := "test-gateway-secret"
	sig := SignPayment("order_abc", "payment-1", secret)

	tests := []struct {
		name      string
		orderID   string
		paymentID string
		secret    string
		signature string
	}{
		{"tampered order", "order_xyz", "payment-1", secret, sig},
		{"tampered payment", "order_abc", "payment-2", secret, sig},
		{"tampered signature", "order_abc", "payment-1", secret, sig + "00"},
		{"wrong secret", "order_abc", "payment-1", "other-secret", sig},
		{"empty signature", "order_abc", "payment-1", secret, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if VerifySignature(tt.orderID, tt.paymentID, tt.secret, tt.signature) {
				t.Error("verification passed, expected rejection")
			}
		})
	}
}

func TestSignatureIsDeterministic(t *testing.T) {
	a := SignPayment("order_1", "pay_1", "s")
	b := SignPayment("order_1", "pay_1", "s")
	if a != b {
		t.Errorf("same inputs produced different signatures: %s vs %s", a, b)
	}
}
