package handlers

import (
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sulemansaleem459-cmd/clutch-gear-backend/config"
	"github.com/sulemansaleem459-cmd/clutch-gear-backend/models"
)

// jobTransitions maps each status to the statuses an explicit change may
// move to. Cancellation is reachable from every non-terminal status; the two
// terminal statuses map to nothing.
var jobTransitions = map[string][]string{
	models.JobStatusCreated:          {models.JobStatusInspection, models.JobStatusCancelled},
	models.JobStatusInspection:       {models.JobStatusAwaitingApproval, models.JobStatusInProgress, models.JobStatusCancelled},
	models.JobStatusAwaitingApproval: {models.JobStatusApproved, models.JobStatusCancelled},
	models.JobStatusApproved:         {models.JobStatusInProgress, models.JobStatusCancelled},
	models.JobStatusInProgress:       {models.JobStatusAwaitingApproval, models.JobStatusQualityCheck, models.JobStatusCancelled},
	models.JobStatusQualityCheck:     {models.JobStatusInProgress, models.JobStatusReady, models.JobStatusCancelled},
	models.JobStatusReady:            {models.JobStatusDelivered, models.JobStatusCancelled},
	models.JobStatusDelivered:        {},
	models.JobStatusCancelled:        {},
}

// paymentTolerance absorbs float rounding on the delivery gate, nothing more.
var paymentTolerance = decimal.NewFromFloat(0.01)

// ValidateTransition checks the state machine table. It does not check the
// delivery payment gate; that needs the job's payments and is enforced by
// ChangeStatus.
func ValidateTransition(from, to string) error {
	if from == to {
		return NewAppError(KindValidation, "status unchanged").
			WithDetail("status", from)
	}
	if models.IsTerminalJobStatus(from) {
		return NewAppError(KindInvalidTransition, "job is in a terminal state").
			WithDetail("status", from)
	}
	allowed, ok := jobTransitions[from]
	if !ok {
		return NewAppError(KindInvalidTransition, "unknown status").
			WithDetail("status", from)
	}
	for _, next := range allowed {
		if next == to {
			return nil
		}
	}
	return NewAppError(KindInvalidTransition, "transition not allowed").
		WithDetail("from", from).
		WithDetail("to", to)
}

// JobEngine owns the job-card state machine and the item approval workflow.
// Every mutation recomputes the billing projection inside the same
// transaction, so no observer can see items and billing out of step.
type JobEngine struct {
	db     *gorm.DB
	ledger *PaymentLedger
}

// NewJobEngine creates a new job engine instance
func NewJobEngine() *JobEngine {
	return &JobEngine{
		db:     config.DB,
		ledger: NewPaymentLedger(),
	}
}

// Actor identifies the authenticated user driving a mutation.
type Actor struct {
	ID   string
	Name string
	Role string
}

// CreateJob opens a new job card for a vehicle, snapshotting the vehicle
// facts and generating a date-scoped job number.
func (e *JobEngine) CreateJob(customerID, vehicleID uuid.UUID, reportedIssues string, taxRate decimal.Decimal, estimatedCompletion *time.Time, actor Actor) (*models.JobCard, error) {
	var vehicle models.Vehicle
	if err := e.db.First(&vehicle, "id = ?", vehicleID).Error; err != nil {
		return nil, NewAppError(KindNotFound, "vehicle not found").WithDetail("vehicleId", vehicleID)
	}
	if vehicle.CustomerID != customerID {
		return nil, NewAppError(KindValidation, "vehicle does not belong to customer").
			WithDetail("vehicleId", vehicleID).
			WithDetail("customerId", customerID)
	}
	if taxRate.IsNegative() {
		return nil, NewAppError(KindValidation, "tax rate must not be negative")
	}

	snapshot, err := json.Marshal(vehicle.Snapshot())
	if err != nil {
		return nil, err
	}

	var job models.JobCard
	err = e.db.Transaction(func(tx *gorm.DB) error {
		number, err := models.NextDocumentNumber(tx, models.CounterScopeJobCard, "JC", time.Now())
		if err != nil {
			return err
		}

		job = models.JobCard{
			JobNumber:           number,
			CustomerID:          customerID,
			VehicleID:           vehicleID,
			VehicleSnapshot:     datatypes.JSON(snapshot),
			ReportedIssues:      reportedIssues,
			Status:              models.JobStatusCreated,
			TaxRate:             taxRate,
			Subtotal:            decimal.Zero,
			Discount:            decimal.Zero,
			TaxAmount:           decimal.Zero,
			GrandTotal:          decimal.Zero,
			EstimatedCompletion: estimatedCompletion,
			CreatedBy:           actor.ID,
		}
		if err := tx.Create(&job).Error; err != nil {
			return err
		}

		entry := models.JobStatusLog{
			JobCardID:  job.ID,
			FromStatus: "",
			ToStatus:   models.JobStatusCreated,
			Note:       "job card opened",
			ActorID:    actor.ID,
			ActorName:  actor.Name,
		}
		return tx.Create(&entry).Error
	})
	if err != nil {
		return nil, err
	}

	log.Printf("✅ Created job card %s for vehicle %s", job.JobNumber, vehicleID)
	return &job, nil
}

// AddItem appends a line item to an open job. If the job is in inspection or
// in-progress and any of its items still awaits approval, the status is
// forced to awaiting-approval.
func (e *JobEngine) AddItem(jobID uuid.UUID, item models.JobItem, actor Actor) (*models.JobCard, error) {
	if item.Quantity.IsNegative() || item.Quantity.IsZero() {
		return nil, NewAppError(KindValidation, "quantity must be positive")
	}
	if item.UnitPrice.IsNegative() {
		return nil, NewAppError(KindValidation, "unit price must not be negative")
	}
	if item.Discount.IsNegative() {
		return nil, NewAppError(KindValidation, "item discount must not be negative")
	}
	switch item.ItemType {
	case models.JobItemLabour, models.JobItemPart, models.JobItemConsumable, models.JobItemExternal:
	default:
		return nil, NewAppError(KindValidation, "unknown item type").WithDetail("itemType", item.ItemType)
	}

	var job models.JobCard
	err := e.db.Transaction(func(tx *gorm.DB) error {
		if err := lockJob(tx, jobID, &job); err != nil {
			return err
		}
		if job.IsTerminal() {
			return NewAppError(KindInvalidTransition, "job is in a terminal state").
				WithDetail("status", job.Status)
		}

		item.JobCardID = job.ID
		item.Total = LineTotal(item.Quantity, item.UnitPrice, item.Discount).Round(2)
		if err := tx.Create(&item).Error; err != nil {
			return err
		}

		if err := e.recomputeBilling(tx, &job); err != nil {
			return err
		}

		// Any pending approval drags an active job back to awaiting-approval,
		// including items added before the job left created.
		if job.Status == models.JobStatusInspection || job.Status == models.JobStatusInProgress {
			var pending int64
			if err := tx.Model(&models.JobItem{}).
				Where("job_card_id = ? AND approved = false", jobID).
				Count(&pending).Error; err != nil {
				return err
			}
			if pending > 0 {
				if err := e.appendTransition(tx, &job, models.JobStatusAwaitingApproval,
					"item approval required", actor); err != nil {
					return err
				}
			}
		}

		return tx.Save(&job).Error
	})
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// RemoveItem deletes a line item from an open job and recomputes billing.
func (e *JobEngine) RemoveItem(jobID, itemID uuid.UUID, actor Actor) (*models.JobCard, error) {
	var job models.JobCard
	err := e.db.Transaction(func(tx *gorm.DB) error {
		if err := lockJob(tx, jobID, &job); err != nil {
			return err
		}
		if job.IsTerminal() {
			return NewAppError(KindInvalidTransition, "job is in a terminal state").
				WithDetail("status", job.Status)
		}

		res := tx.Where("id = ? AND job_card_id = ?", itemID, jobID).Delete(&models.JobItem{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return NewAppError(KindNotFound, "job item not found").WithDetail("itemId", itemID)
		}

		if err := e.recomputeBilling(tx, &job); err != nil {
			return err
		}
		return tx.Save(&job).Error
	})
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// ApproveItems marks the given items approved. When no unapproved items
// remain the job auto-transitions awaiting-approval -> approved.
func (e *JobEngine) ApproveItems(jobID uuid.UUID, itemIDs []uuid.UUID, actor Actor) (*models.JobCard, error) {
	if len(itemIDs) == 0 {
		return nil, NewAppError(KindValidation, "no item ids given")
	}

	var job models.JobCard
	err := e.db.Transaction(func(tx *gorm.DB) error {
		if err := lockJob(tx, jobID, &job); err != nil {
			return err
		}
		if job.Status != models.JobStatusAwaitingApproval {
			return NewAppError(KindInvalidState, "job is not awaiting approval").
				WithDetail("status", job.Status)
		}

		now := time.Now()
		res := tx.Model(&models.JobItem{}).
			Where("job_card_id = ? AND id IN ? AND approved = false", jobID, itemIDs).
			Updates(map[string]interface{}{
				"approved":    true,
				"approved_at": now,
				"approved_by": actor.ID,
			})
		if res.Error != nil {
			return res.Error
		}

		if err := e.recomputeBilling(tx, &job); err != nil {
			return err
		}

		var pending int64
		if err := tx.Model(&models.JobItem{}).
			Where("job_card_id = ? AND approved = false", jobID).
			Count(&pending).Error; err != nil {
			return err
		}
		if pending == 0 {
			if err := e.appendTransition(tx, &job, models.JobStatusApproved,
				"all items approved", actor); err != nil {
				return err
			}
		}

		return tx.Save(&job).Error
	})
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// ChangeStatus performs an explicit status change. Delivery is gated on the
// job being ready and the balance due being settled within the rounding
// tolerance.
func (e *JobEngine) ChangeStatus(jobID uuid.UUID, newStatus, note string, actor Actor) (*models.JobCard, error) {
	var job models.JobCard
	err := e.db.Transaction(func(tx *gorm.DB) error {
		if err := lockJob(tx, jobID, &job); err != nil {
			return err
		}
		if err := ValidateTransition(job.Status, newStatus); err != nil {
			return err
		}

		// Leaving awaiting-approval requires every item approved.
		if job.Status == models.JobStatusAwaitingApproval && newStatus == models.JobStatusApproved {
			var unapproved []uuid.UUID
			if err := tx.Model(&models.JobItem{}).
				Where("job_card_id = ? AND approved = false", jobID).
				Pluck("id", &unapproved).Error; err != nil {
				return err
			}
			if len(unapproved) > 0 {
				return NewAppError(KindApprovalRequired, "items still awaiting approval").
					WithDetail("unapprovedItemIds", unapproved)
			}
		}

		if newStatus == models.JobStatusDelivered {
			balance, err := e.ledger.balanceDueTx(tx, &job)
			if err != nil {
				return err
			}
			if balance.GreaterThan(paymentTolerance) {
				return NewAppError(KindPaymentIncomplete, "balance due must be settled before delivery").
					WithDetail("balanceDue", balance.StringFixed(2)).
					WithDetail("grandTotal", job.GrandTotal.StringFixed(2))
			}
		}

		now := time.Now()
		switch newStatus {
		case models.JobStatusReady:
			if job.ActualCompletion == nil {
				job.ActualCompletion = &now
			}
		case models.JobStatusDelivered:
			job.DeliveredAt = &now
			if job.ActualCompletion == nil {
				job.ActualCompletion = &now
			}
		}

		if err := e.appendTransition(tx, &job, newStatus, note, actor); err != nil {
			return err
		}
		return tx.Save(&job).Error
	})
	if err != nil {
		return nil, err
	}

	log.Printf("✅ Job %s: %s (actor: %s)", job.JobNumber, job.Status, actor.Name)
	return &job, nil
}

// UpdateBilling overrides the job-level discount and tax rate and recomputes
// the projection.
func (e *JobEngine) UpdateBilling(jobID uuid.UUID, discount decimal.Decimal, discountReason *string, taxRate decimal.Decimal, actor Actor) (*models.JobCard, error) {
	if discount.IsNegative() {
		return nil, NewAppError(KindValidation, "discount must not be negative")
	}
	if taxRate.IsNegative() {
		return nil, NewAppError(KindValidation, "tax rate must not be negative")
	}

	var job models.JobCard
	err := e.db.Transaction(func(tx *gorm.DB) error {
		if err := lockJob(tx, jobID, &job); err != nil {
			return err
		}
		if job.IsTerminal() {
			return NewAppError(KindInvalidTransition, "job is in a terminal state").
				WithDetail("status", job.Status)
		}

		job.Discount = discount
		job.DiscountReason = discountReason
		job.TaxRate = taxRate

		if err := e.recomputeBilling(tx, &job); err != nil {
			return err
		}
		return tx.Save(&job).Error
	})
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// AssignMechanics replaces the mechanic assignment list.
func (e *JobEngine) AssignMechanics(jobID uuid.UUID, userIDs []string, actor Actor) (*models.JobCard, error) {
	var job models.JobCard
	err := e.db.Transaction(func(tx *gorm.DB) error {
		if err := lockJob(tx, jobID, &job); err != nil {
			return err
		}
		if job.IsTerminal() {
			return NewAppError(KindInvalidTransition, "job is in a terminal state").
				WithDetail("status", job.Status)
		}

		for _, id := range userIDs {
			var count int64
			if err := tx.Model(&models.User{}).
				Where("id = ? AND role = ? AND is_active = true", id, models.RoleMechanic).
				Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return NewAppError(KindValidation, "not an active mechanic").WithDetail("userId", id)
			}
		}

		job.AssignedMechanics = userIDs
		return tx.Save(&job).Error
	})
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// recomputeBilling reloads the item set and replaces the cached billing
// fields on job. Marks the card amended when the grand total moves after
// completed payments already exist.
func (e *JobEngine) recomputeBilling(tx *gorm.DB, job *models.JobCard) error {
	var items []models.JobItem
	if err := tx.Where("job_card_id = ?", job.ID).Find(&items).Error; err != nil {
		return err
	}

	result := ComputeBilling(items, job.Discount, job.TaxRate, false)

	if !job.GrandTotal.Equal(result.GrandTotal) && !job.BillingAmended {
		var paid int64
		if err := tx.Model(&models.Payment{}).
			Where("job_card_id = ? AND status IN ? AND payment_type <> ?",
				job.ID,
				[]string{models.PaymentStatusCompleted, models.PaymentStatusRefunded},
				models.PaymentTypeRefund).
			Count(&paid).Error; err != nil {
			return err
		}
		if paid > 0 {
			job.BillingAmended = true
		}
	}

	job.Subtotal = result.Subtotal
	job.TaxAmount = result.TaxAmount
	job.GrandTotal = result.GrandTotal
	return nil
}

// appendTransition flips the status, appends the audit row, and queues the
// outbox notification. Runs inside the caller's transaction.
func (e *JobEngine) appendTransition(tx *gorm.DB, job *models.JobCard, newStatus, note string, actor Actor) error {
	entry := models.JobStatusLog{
		JobCardID:  job.ID,
		FromStatus: job.Status,
		ToStatus:   newStatus,
		Note:       note,
		ActorID:    actor.ID,
		ActorName:  actor.Name,
	}
	if err := tx.Create(&entry).Error; err != nil {
		return err
	}
	job.Status = newStatus

	payload, _ := json.Marshal(map[string]string{
		"jobNumber": job.JobNumber,
		"from":      entry.FromStatus,
		"to":        entry.ToStatus,
		"actor":     actor.Name,
	})
	notification := models.Notification{
		Kind:         models.NotificationJobStatusChange,
		RecipientRef: "customer:" + job.CustomerID.String(),
		Title:        "Job " + job.JobNumber + " is now " + newStatus,
		Payload:      datatypes.JSON(payload),
		Status:       models.NotificationPending,
	}
	return tx.Create(&notification).Error
}

// lockJob loads a job card under a row lock for the duration of the
// transaction, serializing concurrent mutators of the same card.
func lockJob(tx *gorm.DB, jobID uuid.UUID, job *models.JobCard) error {
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(job, "id = ?", jobID).Error
	if err == gorm.ErrRecordNotFound {
		return NewAppError(KindNotFound, "job card not found").WithDetail("jobId", jobID)
	}
	return err
}
