package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"gorm.io/gorm"
)

// ErrorKind classifies domain failures so callers can act on them instead of
// receiving a bare generic failure.
type ErrorKind string

const (
	KindValidation        ErrorKind = "VALIDATION_ERROR"
	KindInvalidTransition ErrorKind = "INVALID_TRANSITION"
	KindApprovalRequired  ErrorKind = "APPROVAL_REQUIRED"
	KindInsufficientStock ErrorKind = "INSUFFICIENT_STOCK"
	KindBatchFailure      ErrorKind = "BATCH_FAILURE"
	KindPaymentIncomplete ErrorKind = "PAYMENT_INCOMPLETE"
	KindOutOfRange        ErrorKind = "OUT_OF_RANGE"
	KindInvalidState      ErrorKind = "INVALID_STATE"
	KindSignatureInvalid  ErrorKind = "SIGNATURE_INVALID"
	KindExpired           ErrorKind = "EXPIRED"
	KindNotFound          ErrorKind = "NOT_FOUND"
)

// AppError is a recoverable-by-caller domain error. Details carries the
// structured context the caller needs (which item lacked stock, how much
// balance remains, which ids are unapproved).
type AppError struct {
	Kind    ErrorKind              `json:"code"`
	Message string                 `json:"error"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func NewAppError(kind ErrorKind, message string) *AppError {
	return &AppError{Kind: kind, Message: message}
}

// WithDetail attaches one structured detail and returns the error for
// chaining.
func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = map[string]interface{}{}
	}
	e.Details[key] = value
	return e
}

func statusForKind(kind ErrorKind) int {
	switch kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindSignatureInvalid, KindExpired:
		return http.StatusBadRequest
	case KindOutOfRange:
		return http.StatusUnprocessableEntity
	case KindInvalidTransition, KindApprovalRequired, KindInsufficientStock,
		KindBatchFailure, KindPaymentIncomplete, KindInvalidState:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// WriteError renders err as a JSON error response. Domain errors keep their
// kind and details; unknown errors become an opaque 500.
func WriteError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")

	var appErr *AppError
	if errors.As(err, &appErr) {
		w.WriteHeader(statusForKind(appErr.Kind))
		json.NewEncoder(w).Encode(appErr)
		return
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(AppError{Kind: KindNotFound, Message: "record not found"})
		return
	}

	w.WriteHeader(http.StatusInternalServerError)
	json.NewEncoder(w).Encode(map[string]string{"error": "internal server error"})
}

// WriteJSON renders v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
