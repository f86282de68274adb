package models

import (
	"testing"
	"time"
)

func TestFormatDocumentNumber(t *testing.T) {
	day := time.Date(2025, 8, 25, 14, 30, 0, 0, time.UTC)

	tests := []struct {
		name     string
		prefix   string
		seq      int64
		expected string
	}{
		{"job card first of day", "JC", 1, "JC-20250825-0001"},
		{"payment mid sequence", "PAY", 42, "PAY-20250825-0042"},
		{"transaction four digits", "TXN", 9999, "TXN-20250825-9999"},
		{"sequence beyond padding", "TXN", 10001, "TXN-20250825-10001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatDocumentNumber(tt.prefix, day, tt.seq)
			if got != tt.expected {
				t.Errorf("FormatDocumentNumber(%q, %v, %d) = %q, expected %q",
					tt.prefix, day, tt.seq, got, tt.expected)
			}
		})
	}
}
