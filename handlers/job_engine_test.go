package handlers

import (
	"errors"
	"testing"

	"github.com/sulemansaleem459-cmd/clutch-gear-backend/models"
)

func kindOf(t *testing.T, err error) ErrorKind {
	t.Helper()
	var appErr *AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *AppError, got %T: %v", err, err)
	}
	return appErr.Kind
}

func TestValidateTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    string
		to      string
		wantErr ErrorKind // "" means allowed
	}{
		// Happy path through the lifecycle
		{"created to inspection", models.JobStatusCreated, models.JobStatusInspection, ""},
		{"inspection to awaiting approval", models.JobStatusInspection, models.JobStatusAwaitingApproval, ""},
		{"inspection straight to in-progress", models.JobStatusInspection, models.JobStatusInProgress, ""},
		{"awaiting approval to approved", models.JobStatusAwaitingApproval, models.JobStatusApproved, ""},
		{"approved to in-progress", models.JobStatusApproved, models.JobStatusInProgress, ""},
		{"in-progress to quality check", models.JobStatusInProgress, models.JobStatusQualityCheck, ""},
		{"quality check back to in-progress", models.JobStatusQualityCheck, models.JobStatusInProgress, ""},
		{"quality check to ready", models.JobStatusQualityCheck, models.JobStatusReady, ""},
		{"ready to delivered", models.JobStatusReady, models.JobStatusDelivered, ""},

		// Cancellation from non-terminal states
		{"cancel from created", models.JobStatusCreated, models.JobStatusCancelled, ""},
		{"cancel from in-progress", models.JobStatusInProgress, models.JobStatusCancelled, ""},
		{"cancel from ready", models.JobStatusReady, models.JobStatusCancelled, ""},

		// Delivery only from ready
		{"deliver from created", models.JobStatusCreated, models.JobStatusDelivered, KindInvalidTransition},
		{"deliver from in-progress", models.JobStatusInProgress, models.JobStatusDelivered, KindInvalidTransition},
		{"deliver from quality check", models.JobStatusQualityCheck, models.JobStatusDelivered, KindInvalidTransition},

		// Terminal states are frozen
		{"mutate delivered", models.JobStatusDelivered, models.JobStatusReady, KindInvalidTransition},
		{"cancel delivered", models.JobStatusDelivered, models.JobStatusCancelled, KindInvalidTransition},
		{"revive cancelled", models.JobStatusCancelled, models.JobStatusInspection, KindInvalidTransition},

		// Skips and reversals
		{"created skips to ready", models.JobStatusCreated, models.JobStatusReady, KindInvalidTransition},
		{"ready back to in-progress", models.JobStatusReady, models.JobStatusInProgress, KindInvalidTransition},

		// Degenerate input
		{"same status", models.JobStatusReady, models.JobStatusReady, KindValidation},
		{"unknown status", "warehouse", models.JobStatusReady, KindInvalidTransition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTransition(tt.from, tt.to)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("ValidateTransition(%q, %q) = %v, expected allowed", tt.from, tt.to, err)
				}
				return
			}
			if err == nil {
				t.Fatalf("ValidateTransition(%q, %q) allowed, expected %s", tt.from, tt.to, tt.wantErr)
			}
			if kind := kindOf(t, err); kind != tt.wantErr {
				t.Errorf("ValidateTransition(%q, %q) kind = %s, expected %s", tt.from, tt.to, kind, tt.wantErr)
			}
		})
	}
}

func TestEveryNonTerminalStateCanCancel(t *testing.T) {
	for from := range jobTransitions {
		if models.IsTerminalJobStatus(from) {
			continue
		}
		if err := ValidateTransition(from, models.JobStatusCancelled); err != nil {
			t.Errorf("cancel from %q rejected: %v", from, err)
		}
	}
}

func TestTerminalStatesHaveNoExits(t *testing.T) {
	for _, terminal := range []string{models.JobStatusDelivered, models.JobStatusCancelled} {
		if allowed := jobTransitions[terminal]; len(allowed) != 0 {
			t.Errorf("terminal state %q lists exits %v", terminal, allowed)
		}
	}
}
