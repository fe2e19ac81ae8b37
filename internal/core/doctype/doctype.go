// Package doctype defines the closed set of business document types and
// their numbering rules. Adding a type means adding a constant here and a
// row in the rules table - there is no runtime string dispatch.
package doctype

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// Type identifies a business document type.
type Type int

const (
	PurchaseOrder Type = iota
	Bill
	Expense
	CreditNote
	DeliveryChallan
	Project
	Quotation
	Invoice
)

// ErrUnknownType is returned when a Type has no configured numbering rule.
// Callers select from the closed constant set, so seeing this error means
// a wiring bug, not bad user input.
var ErrUnknownType = fmt.Errorf("unknown document type")

var typeNames = map[Type]string{
	PurchaseOrder:   "purchase_order",
	Bill:            "bill",
	Expense:         "expense",
	CreditNote:      "credit_note",
	DeliveryChallan: "delivery_challan",
	Project:         "project",
	Quotation:       "quotation",
	Invoice:         "invoice",
}

// String returns the stable machine name of the type, used as the
// doc_type column value and in URL paths.
func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// Parse converts a machine name back to a Type.
func Parse(s string) (Type, error) {
	for t, name := range typeNames {
		if name == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownType, s)
}

// All returns every known document type. Order is stable.
func All() []Type {
	return []Type{
		PurchaseOrder, Bill, Expense, CreditNote,
		DeliveryChallan, Project, Quotation, Invoice,
	}
}

// Value implements driver.Valuer so Type is stored as its machine name.
func (t Type) Value() (driver.Value, error) {
	name, ok := typeNames[t]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownType, int(t))
	}
	return name, nil
}

// Scan implements sql.Scanner.
func (t *Type) Scan(src any) error {
	var s string
	switch v := src.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return fmt.Errorf("cannot scan %T into doctype.Type", src)
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler for JSON responses.
func (t Type) MarshalText() ([]byte, error) {
	name, ok := typeNames[t]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownType, int(t))
	}
	return []byte(name), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Type) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// PeriodRule selects the time window within which document sequences
// are contiguous before resetting.
type PeriodRule int

const (
	// PeriodCalendarYear resets the sequence every January 1st.
	PeriodCalendarYear PeriodRule = iota

	// PeriodFinancialYear resets every April 1st (Indian financial year).
	PeriodFinancialYear

	// PeriodNone never resets; the sequence runs for the lifetime of the type.
	PeriodNone
)

// NumberingRule describes how identifiers for one document type are built.
// The "{period}" placeholder in the templates is substituted with the
// period label (e.g. "2025" or "25-26").
type NumberingRule struct {
	// PrefixTemplate is everything before the numeric segment.
	PrefixTemplate string

	// SuffixTemplate is everything after the numeric segment, "" if none.
	// Only invoices carry a suffix ("/25-26").
	SuffixTemplate string

	// PadWidth is the fixed display width of the numeric segment.
	PadWidth int

	// Period selects the reset window for the sequence.
	Period PeriodRule
}

// The numbering schemes are intentionally inconsistent across types
// (quotations never reset, invoices follow the financial year, padding
// varies 3 vs 4). They are preserved exactly as the business uses them.
var rules = map[Type]NumberingRule{
	PurchaseOrder:   {PrefixTemplate: "PO-{period}-", PadWidth: 4, Period: PeriodCalendarYear},
	Bill:            {PrefixTemplate: "BILL-{period}-", PadWidth: 4, Period: PeriodCalendarYear},
	Expense:         {PrefixTemplate: "EXP-{period}-", PadWidth: 4, Period: PeriodCalendarYear},
	CreditNote:      {PrefixTemplate: "CN{period}", PadWidth: 4, Period: PeriodCalendarYear},
	DeliveryChallan: {PrefixTemplate: "DC{period}", PadWidth: 4, Period: PeriodCalendarYear},
	Project:         {PrefixTemplate: "PRJ-{period}-", PadWidth: 4, Period: PeriodCalendarYear},
	Quotation:       {PrefixTemplate: "QTN-", PadWidth: 4, Period: PeriodNone},
	Invoice:         {PrefixTemplate: "GCS29/", SuffixTemplate: "/{period}", PadWidth: 3, Period: PeriodFinancialYear},
}

// RuleFor returns the numbering rule for a document type.
func RuleFor(t Type) (NumberingRule, error) {
	rule, ok := rules[t]
	if !ok {
		return NumberingRule{}, fmt.Errorf("%w: %s", ErrUnknownType, t)
	}
	return rule, nil
}

// Prefix renders the prefix template with the given period label.
func (r NumberingRule) Prefix(periodLabel string) string {
	return strings.ReplaceAll(r.PrefixTemplate, "{period}", periodLabel)
}

// Suffix renders the suffix template with the given period label.
// Returns "" for types without a suffix.
func (r NumberingRule) Suffix(periodLabel string) string {
	if r.SuffixTemplate == "" {
		return ""
	}
	return strings.ReplaceAll(r.SuffixTemplate, "{period}", periodLabel)
}

// Format renders the complete identifier: prefix + zero-padded sequence +
// suffix. This is the only place display strings are produced; the
// sequence itself is stored as an integer.
func (r NumberingRule) Format(periodLabel string, seq int64) string {
	return fmt.Sprintf("%s%0*d%s", r.Prefix(periodLabel), r.PadWidth, seq, r.Suffix(periodLabel))
}
