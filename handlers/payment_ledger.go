package handlers

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sulemansaleem459-cmd/clutch-gear-backend/config"
	"github.com/sulemansaleem459-cmd/clutch-gear-backend/models"
	"github.com/sulemansaleem459-cmd/clutch-gear-backend/utils"
)

// checkoutTokenTTL bounds how long a hosted-checkout token may be redeemed.
const checkoutTokenTTL = 15 * time.Minute

// PaymentLedger tracks payments and refunds per job card and derives
// balance-due on demand. Pending and failed payments never count.
type PaymentLedger struct {
	db *gorm.DB
}

// NewPaymentLedger creates a new payment ledger instance
func NewPaymentLedger() *PaymentLedger {
	return &PaymentLedger{
		db: config.DB,
	}
}

// ComputeBalanceDue derives balance-due from the grand total and the
// payment rows: settled charges minus completed refunds. Pure.
func ComputeBalanceDue(grandTotal decimal.Decimal, payments []models.Payment) decimal.Decimal {
	net := decimal.Zero
	for i := range payments {
		p := &payments[i]
		switch {
		case p.IsSettledCharge():
			net = net.Add(p.Amount)
		case p.IsCompletedRefund():
			net = net.Sub(p.Amount)
		}
	}
	return grandTotal.Sub(net)
}

// BalanceDue recomputes the balance for a job from completed payments only.
func (l *PaymentLedger) BalanceDue(jobID uuid.UUID) (decimal.Decimal, error) {
	var job models.JobCard
	if err := l.db.First(&job, "id = ?", jobID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return decimal.Zero, NewAppError(KindNotFound, "job card not found").WithDetail("jobId", jobID)
		}
		return decimal.Zero, err
	}
	return l.balanceDueTx(l.db, &job)
}

func (l *PaymentLedger) balanceDueTx(tx *gorm.DB, job *models.JobCard) (decimal.Decimal, error) {
	var payments []models.Payment
	if err := tx.Where("job_card_id = ?", job.ID).Find(&payments).Error; err != nil {
		return decimal.Zero, err
	}
	return ComputeBalanceDue(job.GrandTotal, payments), nil
}

// RecordPayment records a charge against a job. The amount may not exceed
// the balance due at the time of creation; the check is not re-run if
// billing later changes (the job's amended flag surfaces that case).
func (l *PaymentLedger) RecordPayment(jobID uuid.UUID, amount decimal.Decimal, paymentType, method string, notes *string, actor Actor) (*models.Payment, error) {
	if amount.IsNegative() || amount.IsZero() {
		return nil, NewAppError(KindValidation, "amount must be positive")
	}
	if !models.ValidPaymentType(paymentType) {
		return nil, NewAppError(KindValidation, "unknown payment type").WithDetail("paymentType", paymentType)
	}
	if paymentType == models.PaymentTypeRefund {
		return nil, NewAppError(KindValidation, "refunds go through the refund operation")
	}

	var payment models.Payment
	err := l.db.Transaction(func(tx *gorm.DB) error {
		var job models.JobCard
		if err := lockJob(tx, jobID, &job); err != nil {
			return err
		}

		balance, err := l.balanceDueTx(tx, &job)
		if err != nil {
			return err
		}
		if amount.GreaterThan(balance) {
			return NewAppError(KindOutOfRange, "amount exceeds balance due").
				WithDetail("amount", amount.StringFixed(2)).
				WithDetail("balanceDue", balance.StringFixed(2))
		}

		number, err := models.NextDocumentNumber(tx, models.CounterScopePayment, "PAY", time.Now())
		if err != nil {
			return err
		}

		status := models.PaymentStatusCompleted
		if method == models.PaymentMethodGateway {
			// Gateway payments complete on verified callback.
			status = models.PaymentStatusPending
		}

		now := time.Now()
		payment = models.Payment{
			PaymentNumber: number,
			JobCardID:     jobID,
			Amount:        amount,
			PaymentType:   paymentType,
			Method:        method,
			Status:        status,
			Notes:         notes,
			ReceivedBy:    actor.ID,
		}
		if status == models.PaymentStatusCompleted {
			payment.CompletedAt = &now
		}
		if err := tx.Create(&payment).Error; err != nil {
			return err
		}
		if payment.Status == models.PaymentStatusCompleted {
			return queuePaymentNotification(tx, &job, &payment)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("✅ Recorded payment %s (%s) against job %s", payment.PaymentNumber, payment.Status, jobID)
	return &payment, nil
}

// Refund creates a refund row for a completed payment and flips the
// original to refunded. Both writes commit together or not at all.
func (l *PaymentLedger) Refund(originalPaymentID uuid.UUID, amount decimal.Decimal, reason string, actor Actor) (*models.Payment, error) {
	if amount.IsNegative() || amount.IsZero() {
		return nil, NewAppError(KindValidation, "amount must be positive")
	}
	if reason == "" {
		return nil, NewAppError(KindValidation, "refund reason is required")
	}

	var refund models.Payment
	err := l.db.Transaction(func(tx *gorm.DB) error {
		var original models.Payment
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&original, "id = ?", originalPaymentID).Error
		if err == gorm.ErrRecordNotFound {
			return NewAppError(KindNotFound, "payment not found").WithDetail("paymentId", originalPaymentID)
		}
		if err != nil {
			return err
		}

		if original.Status != models.PaymentStatusCompleted {
			return NewAppError(KindInvalidState, "only completed payments can be refunded").
				WithDetail("status", original.Status)
		}
		if original.PaymentType == models.PaymentTypeRefund {
			return NewAppError(KindInvalidState, "cannot refund a refund")
		}
		if amount.GreaterThan(original.Amount) {
			return NewAppError(KindOutOfRange, "refund exceeds original payment").
				WithDetail("amount", amount.StringFixed(2)).
				WithDetail("originalAmount", original.Amount.StringFixed(2))
		}

		number, err := models.NextDocumentNumber(tx, models.CounterScopePayment, "PAY", time.Now())
		if err != nil {
			return err
		}

		now := time.Now()
		refund = models.Payment{
			PaymentNumber:     number,
			JobCardID:         original.JobCardID,
			Amount:            amount,
			PaymentType:       models.PaymentTypeRefund,
			Method:            original.Method,
			Status:            models.PaymentStatusCompleted,
			OriginalPaymentID: &original.ID,
			RefundReason:      &reason,
			ReceivedBy:        actor.ID,
			CompletedAt:       &now,
		}
		if err := tx.Create(&refund).Error; err != nil {
			return err
		}

		return tx.Model(&models.Payment{}).
			Where("id = ?", original.ID).
			Update("status", models.PaymentStatusRefunded).Error
	})
	if err != nil {
		return nil, err
	}

	log.Printf("✅ Refunded %s against payment %s", refund.PaymentNumber, originalPaymentID)
	return &refund, nil
}

// CreateCheckoutOrder attaches a gateway order id and a short-lived opaque
// checkout token to a pending gateway payment.
func (l *PaymentLedger) CreateCheckoutOrder(paymentID uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	err := l.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&payment, "id = ?", paymentID).Error
		if err == gorm.ErrRecordNotFound {
			return NewAppError(KindNotFound, "payment not found").WithDetail("paymentId", paymentID)
		}
		if err != nil {
			return err
		}
		if payment.Status != models.PaymentStatusPending {
			return NewAppError(KindInvalidState, "payment is not pending").
				WithDetail("status", payment.Status)
		}

		orderID := "order_" + randomHex(12)
		token := randomHex(24)
		expiry := time.Now().Add(checkoutTokenTTL)

		payment.GatewayOrderID = &orderID
		payment.CheckoutToken = &token
		payment.CheckoutExpiresAt = &expiry
		return tx.Save(&payment).Error
	})
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// VerifyGatewayCallback completes a pending gateway payment after checking
// the token expiry and the HMAC signature. Any mismatch fails closed; an
// expired token fails even if the gateway transaction went through, leaving
// the discrepancy for manual reconciliation.
func (l *PaymentLedger) VerifyGatewayCallback(paymentID uuid.UUID, orderID, signature, token string) (*models.Payment, error) {
	secret := os.Getenv("GATEWAY_SECRET")
	if secret == "" {
		return nil, NewAppError(KindSignatureInvalid, "gateway secret not configured")
	}

	var payment models.Payment
	err := l.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&payment, "id = ?", paymentID).Error
		if err == gorm.ErrRecordNotFound {
			return NewAppError(KindNotFound, "payment not found").WithDetail("paymentId", paymentID)
		}
		if err != nil {
			return err
		}

		if payment.Status != models.PaymentStatusPending {
			return NewAppError(KindInvalidState, "payment is not pending").
				WithDetail("status", payment.Status)
		}
		if payment.GatewayOrderID == nil || payment.CheckoutToken == nil || payment.CheckoutExpiresAt == nil {
			return NewAppError(KindInvalidState, "no checkout order for payment")
		}
		if time.Now().After(*payment.CheckoutExpiresAt) {
			return NewAppError(KindExpired, "checkout token expired").
				WithDetail("expiredAt", payment.CheckoutExpiresAt)
		}
		if *payment.CheckoutToken != token || *payment.GatewayOrderID != orderID {
			return NewAppError(KindSignatureInvalid, "checkout token mismatch")
		}
		if !utils.VerifySignature(orderID, paymentID.String(), secret, signature) {
			return NewAppError(KindSignatureInvalid, "gateway signature mismatch")
		}

		now := time.Now()
		payment.Status = models.PaymentStatusCompleted
		payment.GatewaySignature = &signature
		payment.CompletedAt = &now
		if err := tx.Save(&payment).Error; err != nil {
			return err
		}

		var job models.JobCard
		if err := tx.First(&job, "id = ?", payment.JobCardID).Error; err != nil {
			return err
		}
		return queuePaymentNotification(tx, &job, &payment)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("✅ Gateway payment %s verified and completed", payment.PaymentNumber)
	return &payment, nil
}

// queuePaymentNotification writes a payment-received outbox row inside the
// caller's transaction. The dispatcher delivers it after commit.
func queuePaymentNotification(tx *gorm.DB, job *models.JobCard, payment *models.Payment) error {
	payload, _ := json.Marshal(map[string]string{
		"jobNumber":     job.JobNumber,
		"paymentNumber": payment.PaymentNumber,
		"amount":        payment.Amount.StringFixed(2),
		"method":        payment.Method,
	})
	notification := models.Notification{
		Kind:         models.NotificationPaymentReceived,
		RecipientRef: "customer:" + job.CustomerID.String(),
		Title:        "Payment " + payment.PaymentNumber + " received",
		Payload:      datatypes.JSON(payload),
		Status:       models.NotificationPending,
	}
	return tx.Create(&notification).Error
}

func randomHex(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand failure means the process is unusable anyway
		panic(err)
	}
	return hex.EncodeToString(b)
}
