package models

import (
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Counter scopes for document numbering.
const (
	CounterScopeJobCard     = "job_card"
	CounterScopePayment     = "payment"
	CounterScopeTransaction = "inventory_txn"
)

// DocumentCounter is a per-scope per-day sequence row. Numbers are taken by
// locking the row inside the caller's transaction, so concurrent creations
// can never observe the same sequence value.
type DocumentCounter struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	Scope     string    `gorm:"size:30;not null;uniqueIndex:idx_counter_scope_day,priority:1"`
	Day       string    `gorm:"size:8;not null;uniqueIndex:idx_counter_scope_day,priority:2"`
	Sequence  int64     `gorm:"not null;default:0"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// NextDocumentNumber increments the (scope, day) counter and returns the
// formatted document number. Must be called inside the transaction that
// creates the numbered document, so a rollback releases the number's slot
// together with the document.
func NextDocumentNumber(tx *gorm.DB, scope, prefix string, now time.Time) (string, error) {
	day := now.Format("20060102")

	var counter DocumentCounter
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("scope = ? AND day = ?", scope, day).
		First(&counter).Error
	if err == gorm.ErrRecordNotFound {
		// Two first users of a new (scope, day) may both land here. The
		// unique index turns the losing insert into a no-op and both then
		// lock the same row.
		seed := DocumentCounter{Scope: scope, Day: day}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
			return "", fmt.Errorf("create counter %s/%s: %w", scope, day, err)
		}
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("scope = ? AND day = ?", scope, day).
			First(&counter).Error; err != nil {
			return "", fmt.Errorf("lock counter %s/%s: %w", scope, day, err)
		}
	} else if err != nil {
		return "", fmt.Errorf("lock counter %s/%s: %w", scope, day, err)
	}

	counter.Sequence++
	if err := tx.Model(&DocumentCounter{}).
		Where("id = ?", counter.ID).
		Update("sequence", counter.Sequence).Error; err != nil {
		return "", fmt.Errorf("advance counter %s/%s: %w", scope, day, err)
	}

	return FormatDocumentNumber(prefix, now, counter.Sequence), nil
}

// FormatDocumentNumber renders a date-scoped sequence as e.g. JC-20250825-0007.
func FormatDocumentNumber(prefix string, day time.Time, seq int64) string {
	return fmt.Sprintf("%s-%s-%04d", prefix, day.Format("20060102"), seq)
}
