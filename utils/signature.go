package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// SignPayment computes the HMAC-SHA256 signature the gateway is expected to
// send back: hex(HMAC(secret, "orderId|paymentId")).
func SignPayment(orderID, paymentID, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature recomputes the expected signature and compares in
// constant time. Any mismatch fails closed.
func VerifySignature(orderID, paymentID, secret, signature string) bool {
	expected := SignPayment(orderID, paymentID, secret)
	return hmac.Equal([]byte(expected), []byte(signature))
}
