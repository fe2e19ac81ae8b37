package documents

import (
	"context"
	"errors"
	"time"

	"docnum/internal/core/doctype"
	"docnum/internal/core/id"
)

// ErrDuplicateNumber is returned by Repository.Create when the
// (type, number) pair already exists. The service retries generation on
// this error; it is the storage-level defense against two concurrent
// creators computing the same number.
var ErrDuplicateNumber = errors.New("documents: duplicate document number")

// Repository defines persistence operations for documents.
type Repository interface {
	// Create inserts a new document. Returns ErrDuplicateNumber (possibly
	// wrapped) if a document with the same type and number exists.
	Create(ctx context.Context, doc *Document) error

	GetByID(ctx context.Context, docID id.ID) (*Document, error)
	GetByNumber(ctx context.Context, t doctype.Type, number string) (*Document, error)

	// Update modifies an existing document with optimistic locking.
	// The number column is never updated.
	Update(ctx context.Context, doc *Document) error

	Delete(ctx context.Context, docID id.ID) error

	List(ctx context.Context, filter ListFilter) (ListResult, error)

	// LastNumber returns the lexicographically greatest number of the
	// type that starts with prefix and ends with suffix, or ok=false if
	// none exists. Consumed by the legacy scan numbering strategy.
	LastNumber(ctx context.Context, t doctype.Type, prefix, suffix string) (string, bool, error)
}

// ListFilter contains filtering options for document listings.
type ListFilter struct {
	Type     *doctype.Type
	Status   *Status
	Party    string
	DateFrom *time.Time
	DateTo   *time.Time

	// OrderBy specifies sorting, e.g. "number", "-date". Default "-date".
	OrderBy string

	Limit  int
	Offset int
}

// DefaultListFilter returns sensible defaults.
func DefaultListFilter() ListFilter {
	return ListFilter{
		Limit:   50,
		OrderBy: "-date",
	}
}

// ListResult contains paginated results.
type ListResult struct {
	Items      []*Document `json:"items"`
	TotalCount int64       `json:"totalCount"`
	Limit      int         `json:"limit"`
	Offset     int         `json:"offset"`
}
