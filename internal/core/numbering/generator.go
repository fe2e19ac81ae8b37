// Package numbering provides domain contracts for document auto-numbering.
// Implementations live in the infrastructure layer.
package numbering

import (
	"context"
	"time"

	"docnum/internal/core/doctype"
)

// Generator produces sequential document numbers.
//
// Next returns the next identifier for the document type, unique within
// the type's period at the reference time (e.g. "PO-2025-0008",
// "GCS29/001/25-26"). The caller must persist the document carrying the
// identifier in the same transaction that reserved it; a failed create
// must not leave a document without a number or vice versa.
type Generator interface {
	// Next generates the next document number for the type at the
	// reference time.
	Next(ctx context.Context, t doctype.Type, at time.Time) (string, error)

	// SetNext forces the counter for (type, period) so that the next
	// generated sequence is value. Used when migrating legacy data.
	SetNext(ctx context.Context, t doctype.Type, at time.Time, value int64) error
}

// LastNumberLookup finds the highest existing identifier of a document
// type matching a prefix (and suffix, for types that carry one).
// It is the persistence collaborator consumed by StrategyScan.
type LastNumberLookup interface {
	// LastNumber returns the lexicographically greatest identifier
	// starting with prefix and ending with suffix, or ok=false if no
	// such document exists yet.
	LastNumber(ctx context.Context, t doctype.Type, prefix, suffix string) (number string, ok bool, err error)
}
