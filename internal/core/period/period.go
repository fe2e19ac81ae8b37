// Package period computes the period label embedded in document numbers.
// Labels are pure functions of the caller-supplied timestamp; no timezone
// conversion happens here.
package period

import (
	"fmt"
	"time"

	"docnum/internal/core/doctype"
)

// Label returns the period label for a numbering rule at the given time.
// Calendar year: "2025". Financial year: "25-26". None: "".
func Label(rule doctype.PeriodRule, t time.Time) string {
	switch rule {
	case doctype.PeriodFinancialYear:
		return FinancialYear(t)
	case doctype.PeriodNone:
		return ""
	default:
		return fmt.Sprintf("%04d", t.Year())
	}
}

// FinancialYear returns the Indian financial year label for a date.
// The financial year runs April 1 through March 31 and is written as the
// last two digits of both calendar years it spans: May 2025 -> "25-26",
// February 2026 -> "25-26", April 2026 -> "26-27".
func FinancialYear(t time.Time) string {
	startYear := t.Year()
	if t.Month() < time.April {
		startYear--
	}
	return fmt.Sprintf("%02d-%02d", startYear%100, (startYear+1)%100)
}
