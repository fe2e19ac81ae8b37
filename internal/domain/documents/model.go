// Package documents provides the generic business-document domain:
// one model covering purchase orders, bills, expenses, credit notes,
// delivery challans, projects, quotations and invoices, distinguished
// by their doctype and numbering scheme.
package documents

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"docnum/internal/core/apperror"
	"docnum/internal/core/doctype"
	"docnum/internal/core/entity"
)

// Document is a business document of any type.
type Document struct {
	entity.Base

	// Type selects the numbering scheme and the document family.
	Type doctype.Type `db:"doc_type" json:"type"`

	// Number is the human-readable identifier, e.g. "PO-2025-0008" or
	// "GCS29/001/25-26". Assigned exactly once at creation, unique per
	// (type, number), never recomputed afterwards.
	Number string `db:"number" json:"number"`

	// Date is the business date of the document.
	Date time.Time `db:"date" json:"date"`

	// Party is the counterparty (customer or vendor) the document is for.
	Party string `db:"party" json:"party"`

	// Amount is the document total.
	Amount decimal.Decimal `db:"amount" json:"amount"`

	// Status is the lifecycle state.
	Status Status `db:"status" json:"status"`

	// Notes is an optional free-form comment.
	Notes string `db:"notes" json:"notes,omitempty"`
}

// New creates a draft document of the given type.
// The number is left empty; the service assigns it at creation time.
func New(t doctype.Type, date time.Time, party string, amount decimal.Decimal) *Document {
	return &Document{
		Base:   entity.NewBase(),
		Type:   t,
		Date:   date,
		Party:  party,
		Amount: amount,
		Status: StatusDraft,
	}
}

// Validate implements entity.Validatable.
func (d *Document) Validate(ctx context.Context) error {
	if _, err := doctype.RuleFor(d.Type); err != nil {
		return apperror.NewUnknownDocType(d.Type.String()).WithCause(err)
	}

	if d.Date.IsZero() {
		return apperror.NewValidation("date is required").
			WithDetail("field", "date")
	}

	if d.Party == "" {
		return apperror.NewValidation("party is required").
			WithDetail("field", "party")
	}

	if d.Amount.IsNegative() {
		return apperror.NewValidation("amount cannot be negative").
			WithDetail("field", "amount")
	}

	if d.Status != "" && !d.Status.Valid() {
		return apperror.NewValidation("unknown status").
			WithDetail("field", "status").
			WithDetail("status", string(d.Status))
	}

	return nil
}

var _ entity.Validatable = (*Document)(nil)
