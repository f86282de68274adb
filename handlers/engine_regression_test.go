package handlers

import (
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/sulemansaleem459-cmd/clutch-gear-backend/config"
	"github.com/sulemansaleem459-cmd/clutch-gear-backend/models"
)

var testActor = Actor{ID: "itest-user", Name: "Integration Tester", Role: models.RoleManager}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires postgres)")
	}

	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		dsn = "host=127.0.0.1 port=5432 user=postgres password=postgres dbname=clutchgear_test sslmode=disable"
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("connect test database: %v", err)
	}
	if err := config.Migrations(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	config.DB = db
	return db
}

func createTestItem(t *testing.T, db *gorm.DB, stock string) *models.InventoryItem {
	t.Helper()
	item := models.InventoryItem{
		PartNumber:   "IT-" + uuid.NewString()[:8],
		Name:         "Test Part",
		Unit:         "pcs",
		CurrentStock: d(stock),
		MinStock:     decimal.Zero,
		IsActive:     true,
	}
	if err := db.Create(&item).Error; err != nil {
		t.Fatalf("create inventory item: %v", err)
	}
	return &item
}

func createTestJob(t *testing.T, e *JobEngine, db *gorm.DB, taxRate string) *models.JobCard {
	t.Helper()
	suffix := uuid.NewString()[:8]
	customer := models.Customer{Name: "Test Customer", Phone: "9" + suffix}
	if err := db.Create(&customer).Error; err != nil {
		t.Fatalf("create customer: %v", err)
	}
	vehicle := models.Vehicle{
		CustomerID:         customer.ID,
		RegistrationNumber: "TS-" + suffix,
		Make:               "Maruti",
		Model:              "Swift",
		Year:               2020,
	}
	if err := db.Create(&vehicle).Error; err != nil {
		t.Fatalf("create vehicle: %v", err)
	}
	job, err := e.CreateJob(customer.ID, vehicle.ID, "engine noise", d(taxRate), nil, testActor)
	if err != nil {
		t.Fatalf("create job: %v", err)
	}
	return job
}

func walkJob(t *testing.T, e *JobEngine, jobID uuid.UUID, statuses ...string) *models.JobCard {
	t.Helper()
	var job *models.JobCard
	var err error
	for _, s := range statuses {
		job, err = e.ChangeStatus(jobID, s, "", testActor)
		if err != nil {
			t.Fatalf("transition to %s: %v", s, err)
		}
	}
	return job
}

// Regression: an unapproved item added before the job leaves created must
// still force awaiting-approval once items are added during inspection.
func TestAddItemForcesApprovalForAnyPendingItem(t *testing.T) {
	db := setupTestDB(t)
	engine := NewJobEngine()

	job := createTestJob(t, engine, db, "0")

	// Unapproved item while still created: no forced move yet.
	job2, err := engine.AddItem(job.ID, models.JobItem{
		ItemType:    models.JobItemPart,
		Description: "brake pads",
		Quantity:    d("1"),
		UnitPrice:   d("500"),
		Discount:    decimal.Zero,
	}, testActor)
	if err != nil {
		t.Fatalf("add unapproved item: %v", err)
	}
	if job2.Status != models.JobStatusCreated {
		t.Fatalf("status after first item = %s, expected %s", job2.Status, models.JobStatusCreated)
	}

	walkJob(t, engine, job.ID, models.JobStatusInspection)

	// Approved item added during inspection; the older pending item must
	// still drag the job to awaiting-approval.
	job3, err := engine.AddItem(job.ID, models.JobItem{
		ItemType:    models.JobItemLabour,
		Description: "brake service",
		Quantity:    d("1"),
		UnitPrice:   d("300"),
		Discount:    decimal.Zero,
		Approved:    true,
	}, testActor)
	if err != nil {
		t.Fatalf("add approved item: %v", err)
	}
	if job3.Status != models.JobStatusAwaitingApproval {
		t.Fatalf("status = %s, expected %s", job3.Status, models.JobStatusAwaitingApproval)
	}

	var pendingIDs []uuid.UUID
	if err := db.Model(&models.JobItem{}).
		Where("job_card_id = ? AND approved = false", job.ID).
		Pluck("id", &pendingIDs).Error; err != nil {
		t.Fatalf("load pending items: %v", err)
	}
	job4, err := engine.ApproveItems(job.ID, pendingIDs, testActor)
	if err != nil {
		t.Fatalf("approve items: %v", err)
	}
	if job4.Status != models.JobStatusApproved {
		t.Errorf("status after approving all = %s, expected %s", job4.Status, models.JobStatusApproved)
	}
}

// First use of a new (scope, day) under concurrency must yield one number
// per caller, no duplicates, no unique-violation failures.
func TestDocumentNumbersUniqueUnderConcurrentFirstUse(t *testing.T) {
	db := setupTestDB(t)

	scope := "it-" + uuid.NewString()[:8]
	now := time.Now()
	const workers = 6

	var mu sync.Mutex
	numbers := make(map[string]bool)
	errs := make(chan error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- db.Transaction(func(tx *gorm.DB) error {
				n, err := models.NextDocumentNumber(tx, scope, "IT", now)
				if err != nil {
					return err
				}
				mu.Lock()
				defer mu.Unlock()
				if numbers[n] {
					return errors.New("duplicate document number " + n)
				}
				numbers[n] = true
				return nil
			})
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("concurrent numbering: %v", err)
		}
	}
	if len(numbers) != workers {
		t.Errorf("got %d distinct numbers, expected %d", len(numbers), workers)
	}
}

// One short line must leave every item's stock untouched and write zero
// ledger entries.
func TestDeductForInvoiceIsAtomic(t *testing.T) {
	db := setupTestDB(t)
	engine := NewStockEngine()

	itemA := createTestItem(t, db, "5")
	itemB := createTestItem(t, db, "10")

	ref := models.TxnReference{Type: models.RefTypeInvoice, ID: uuid.New(), Number: "INV-TEST"}
	_, err := engine.DeductForInvoice([]InvoiceLine{
		{InventoryItemID: itemA.ID, Quantity: d("3")},
		{InventoryItemID: itemB.ID, Quantity: d("100")},
	}, ref, testActor)
	if err == nil {
		t.Fatal("batch with a short line succeeded")
	}
	if kind := kindOf(t, err); kind != KindBatchFailure {
		t.Fatalf("kind = %s, expected %s", kind, KindBatchFailure)
	}

	for _, want := range []struct {
		id    uuid.UUID
		stock string
	}{
		{itemA.ID, "5"},
		{itemB.ID, "10"},
	} {
		var item models.InventoryItem
		if err := db.First(&item, "id = ?", want.id).Error; err != nil {
			t.Fatalf("reload item: %v", err)
		}
		if !item.CurrentStock.Equal(d(want.stock)) {
			t.Errorf("item %s stock = %s, expected %s", want.id, item.CurrentStock, want.stock)
		}
	}

	var entries int64
	if err := db.Model(&models.InventoryTransaction{}).
		Where("reference_id = ?", ref.ID).
		Count(&entries).Error; err != nil {
		t.Fatalf("count ledger entries: %v", err)
	}
	if entries != 0 {
		t.Errorf("failed batch wrote %d ledger entries, expected 0", entries)
	}
}

// First entry's previous stock plus the sum of all deltas must equal the
// cached current stock.
func TestLedgerSumMatchesCachedStock(t *testing.T) {
	db := setupTestDB(t)
	engine := NewStockEngine()

	item := createTestItem(t, db, "0")

	if _, err := engine.AddStock(item.ID, d("10"), nil, nil, testActor); err != nil {
		t.Fatalf("add stock: %v", err)
	}
	if _, err := engine.DeductStock(item.ID, d("3"), DeductReasonUsage, nil, testActor); err != nil {
		t.Fatalf("deduct stock: %v", err)
	}
	if _, err := engine.AdjustStockTo(item.ID, d("12"), nil, testActor); err != nil {
		t.Fatalf("adjust stock: %v", err)
	}

	var entries []models.InventoryTransaction
	if err := db.Where("inventory_item_id = ?", item.ID).
		Order("created_at asc").
		Find(&entries).Error; err != nil {
		t.Fatalf("load ledger: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("ledger has %d entries, expected 3", len(entries))
	}

	sum := entries[0].PreviousStock
	for _, e := range entries {
		sum = sum.Add(e.Quantity)
	}

	var reloaded models.InventoryItem
	if err := db.First(&reloaded, "id = ?", item.ID).Error; err != nil {
		t.Fatalf("reload item: %v", err)
	}
	if !sum.Equal(reloaded.CurrentStock) {
		t.Errorf("ledger sum %s != cached stock %s", sum, reloaded.CurrentStock)
	}
	if !reloaded.CurrentStock.Equal(d("12")) {
		t.Errorf("stock = %s, expected 12", reloaded.CurrentStock)
	}
}

// Delivery must be rejected with PaymentIncomplete until the balance is
// settled, then succeed from ready.
func TestDeliveryGateRequiresSettledBalance(t *testing.T) {
	db := setupTestDB(t)
	engine := NewJobEngine()
	ledger := NewPaymentLedger()

	job := createTestJob(t, engine, db, "18")
	if _, err := engine.AddItem(job.ID, models.JobItem{
		ItemType:    models.JobItemLabour,
		Description: "full service",
		Quantity:    d("2"),
		UnitPrice:   d("100"),
		Discount:    decimal.Zero,
		Approved:    true,
	}, testActor); err != nil {
		t.Fatalf("add item: %v", err)
	}
	if _, err := engine.UpdateBilling(job.ID, d("20"), nil, d("18"), testActor); err != nil {
		t.Fatalf("update billing: %v", err)
	}

	walkJob(t, engine, job.ID,
		models.JobStatusInspection,
		models.JobStatusInProgress,
		models.JobStatusQualityCheck,
		models.JobStatusReady,
	)

	_, err := engine.ChangeStatus(job.ID, models.JobStatusDelivered, "", testActor)
	if err == nil {
		t.Fatal("delivery succeeded with unpaid balance")
	}
	if kind := kindOf(t, err); kind != KindPaymentIncomplete {
		t.Fatalf("kind = %s, expected %s", kind, KindPaymentIncomplete)
	}

	if _, err := ledger.RecordPayment(job.ID, d("212.40"), models.PaymentTypeFull,
		models.PaymentMethodCash, nil, testActor); err != nil {
		t.Fatalf("record payment: %v", err)
	}

	delivered, err := engine.ChangeStatus(job.ID, models.JobStatusDelivered, "", testActor)
	if err != nil {
		t.Fatalf("delivery after settlement: %v", err)
	}
	if delivered.Status != models.JobStatusDelivered {
		t.Errorf("status = %s, expected %s", delivered.Status, models.JobStatusDelivered)
	}
	if delivered.DeliveredAt == nil {
		t.Error("DeliveredAt not set on delivery")
	}
}

// Refunds above the original amount are rejected; a second refund against a
// refunded original is rejected.
func TestRefundLifecycle(t *testing.T) {
	db := setupTestDB(t)
	engine := NewJobEngine()
	ledger := NewPaymentLedger()

	job := createTestJob(t, engine, db, "18")
	if _, err := engine.AddItem(job.ID, models.JobItem{
		ItemType:    models.JobItemLabour,
		Description: "full service",
		Quantity:    d("2"),
		UnitPrice:   d("100"),
		Discount:    decimal.Zero,
		Approved:    true,
	}, testActor); err != nil {
		t.Fatalf("add item: %v", err)
	}
	if _, err := engine.UpdateBilling(job.ID, d("20"), nil, d("18"), testActor); err != nil {
		t.Fatalf("update billing: %v", err)
	}

	payment, err := ledger.RecordPayment(job.ID, d("212.40"), models.PaymentTypeFull,
		models.PaymentMethodCash, nil, testActor)
	if err != nil {
		t.Fatalf("record payment: %v", err)
	}

	_, err = ledger.Refund(payment.ID, d("300"), "over-refund", testActor)
	if err == nil {
		t.Fatal("refund above original amount succeeded")
	}
	if kind := kindOf(t, err); kind != KindOutOfRange {
		t.Fatalf("kind = %s, expected %s", kind, KindOutOfRange)
	}

	refund, err := ledger.Refund(payment.ID, d("50"), "customer complaint", testActor)
	if err != nil {
		t.Fatalf("valid refund: %v", err)
	}
	if refund.PaymentType != models.PaymentTypeRefund {
		t.Errorf("refund row type = %s, expected %s", refund.PaymentType, models.PaymentTypeRefund)
	}

	var original models.Payment
	if err := db.First(&original, "id = ?", payment.ID).Error; err != nil {
		t.Fatalf("reload original: %v", err)
	}
	if original.Status != models.PaymentStatusRefunded {
		t.Errorf("original status = %s, expected %s", original.Status, models.PaymentStatusRefunded)
	}

	_, err = ledger.Refund(payment.ID, d("10"), "again", testActor)
	if err == nil {
		t.Fatal("second refund against refunded original succeeded")
	}
	if kind := kindOf(t, err); kind != KindInvalidState {
		t.Errorf("kind = %s, expected %s", kind, KindInvalidState)
	}

	balance, err := ledger.BalanceDue(job.ID)
	if err != nil {
		t.Fatalf("balance due: %v", err)
	}
	if !balance.Equal(d("50")) {
		t.Errorf("balance after partial refund = %s, expected 50", balance)
	}
}

type failingNotifier struct{}

func (failingNotifier) Send(*models.Notification) error {
	return errors.New("downstream unavailable")
}

// Failed outbox rows are retried on later passes until the attempt cap.
func TestDispatcherRetriesFailedRowsUntilCap(t *testing.T) {
	db := setupTestDB(t)
	if err := db.Exec("DELETE FROM notifications").Error; err != nil {
		t.Fatalf("clear outbox: %v", err)
	}

	row := models.Notification{
		Kind:         models.NotificationLowStock,
		RecipientRef: "role:manager",
		Title:        "Low stock: Test Part",
		Status:       models.NotificationPending,
	}
	if err := db.Create(&row).Error; err != nil {
		t.Fatalf("create outbox row: %v", err)
	}

	dispatcher := NewNotificationDispatcher(db, config.GetLogger(), failingNotifier{})

	reload := func() models.Notification {
		var n models.Notification
		if err := db.First(&n, "id = ?", row.ID).Error; err != nil {
			t.Fatalf("reload outbox row: %v", err)
		}
		return n
	}

	dispatcher.processOnce()
	n := reload()
	if n.Status != models.NotificationFailed || n.Attempts != 1 {
		t.Fatalf("after first pass: status=%s attempts=%d, expected failed/1", n.Status, n.Attempts)
	}

	dispatcher.processOnce()
	n = reload()
	if n.Attempts != 2 {
		t.Fatalf("failed row not retried: attempts=%d, expected 2", n.Attempts)
	}

	if err := db.Model(&models.Notification{}).
		Where("id = ?", row.ID).
		Update("attempts", dispatcher.MaxAttempts).Error; err != nil {
		t.Fatalf("set attempts to cap: %v", err)
	}
	dispatcher.processOnce()
	n = reload()
	if n.Attempts != dispatcher.MaxAttempts {
		t.Errorf("capped row retried: attempts=%d, expected %d", n.Attempts, dispatcher.MaxAttempts)
	}
}
