package period

import (
	"testing"
	"time"

	"docnum/internal/core/doctype"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}

func TestLabel_CalendarYear(t *testing.T) {
	if got := Label(doctype.PeriodCalendarYear, date(2025, time.July, 10)); got != "2025" {
		t.Errorf("got %q, want 2025", got)
	}
	if got := Label(doctype.PeriodCalendarYear, date(2026, time.January, 1)); got != "2026" {
		t.Errorf("got %q, want 2026", got)
	}
}

func TestLabel_None(t *testing.T) {
	if got := Label(doctype.PeriodNone, date(2025, time.July, 10)); got != "" {
		t.Errorf("got %q, want empty", got)
	}
}

func TestFinancialYear(t *testing.T) {
	tests := []struct {
		date time.Time
		want string
	}{
		// The financial year turns over on April 1, not January 1.
		{date(2026, time.March, 31), "25-26"},
		{date(2026, time.April, 1), "26-27"},
		{date(2025, time.July, 10), "25-26"},
		{date(2026, time.January, 15), "25-26"},
		{date(2025, time.April, 1), "25-26"},
		{date(2025, time.March, 31), "24-25"},
		{date(2029, time.December, 31), "29-30"},
	}

	for _, tt := range tests {
		if got := FinancialYear(tt.date); got != tt.want {
			t.Errorf("FinancialYear(%s) = %q, want %q", tt.date.Format("2006-01-02"), got, tt.want)
		}
	}
}

func TestFinancialYear_CenturyWrap(t *testing.T) {
	if got := FinancialYear(date(2099, time.May, 1)); got != "99-00" {
		t.Errorf("got %q, want 99-00", got)
	}
}
