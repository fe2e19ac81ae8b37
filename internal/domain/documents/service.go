package documents

import (
	"context"
	"errors"
	"fmt"
	"time"

	"docnum/internal/core/apperror"
	"docnum/internal/core/doctype"
	"docnum/internal/core/id"
	"docnum/internal/core/numbering"
	"docnum/internal/core/tx"
	"docnum/pkg/logger"
)

// Service provides business operations for documents.
type Service struct {
	repo      Repository
	numbers   numbering.Generator
	txManager tx.Manager

	// maxAttempts bounds generate-and-insert retries when two concurrent
	// creators race for the same number (scan strategy). With the
	// counter strategy the first attempt always succeeds.
	maxAttempts int

	// now is injectable for period-rollover tests.
	now func() time.Time
}

// NewService creates a new document service.
func NewService(repo Repository, numbers numbering.Generator, txManager tx.Manager) *Service {
	return &Service{
		repo:        repo,
		numbers:     numbers,
		txManager:   txManager,
		maxAttempts: numbering.DefaultOptions().MaxAttempts,
		now:         time.Now,
	}
}

// WithClock overrides the time source. For tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Create assigns the next document number and persists the document.
// Number generation and the insert run in one transaction: a failed
// create never leaves a numbered document unpersisted or an inserted
// document without a number.
//
// If the storage rejects the insert as a duplicate number (concurrent
// creation under the scan strategy), the whole generate-and-insert
// sequence is retried with a freshly generated number, bounded by
// maxAttempts before surfacing a contention error.
func (s *Service) Create(ctx context.Context, doc *Document) error {
	if err := doc.Validate(ctx); err != nil {
		return err
	}
	if doc.Number != "" {
		return apperror.NewBusinessRule(
			apperror.CodeNumberImmutable,
			"Document number is assigned by the service and cannot be supplied",
		).WithDetail("number", doc.Number)
	}
	if doc.Status == "" {
		doc.Status = StatusDraft
	}

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
			number, err := s.numbers.Next(ctx, doc.Type, s.now())
			if err != nil {
				return fmt.Errorf("generate number: %w", err)
			}
			doc.Number = number
			return s.repo.Create(ctx, doc)
		})

		if errors.Is(err, ErrDuplicateNumber) {
			logger.Warn(ctx, "document number collision, retrying",
				"doc_type", doc.Type.String(),
				"number", doc.Number,
				"attempt", attempt)
			doc.Number = ""
			continue
		}
		if err != nil {
			return s.asAppError(ctx, doc, err)
		}

		logger.Info(ctx, "document created",
			"id", doc.ID,
			"doc_type", doc.Type.String(),
			"number", doc.Number)
		return nil
	}

	return apperror.NewSequenceContention(doc.Type.String()).
		WithCause(numbering.ErrContention)
}

// asAppError maps numbering sentinels onto the API error taxonomy.
func (s *Service) asAppError(ctx context.Context, doc *Document, err error) error {
	switch {
	case apperror.IsAppError(err):
		return err
	case errors.Is(err, doctype.ErrUnknownType):
		return apperror.NewUnknownDocType(doc.Type.String()).WithCause(err)
	case errors.Is(err, numbering.ErrCorruptSequence):
		logger.Error(ctx, "corrupt sequence state",
			"doc_type", doc.Type.String(),
			"error", err)
		return apperror.NewCorruptSequence(doc.Type.String(), doc.Number).WithCause(err)
	case errors.Is(err, numbering.ErrPersistence):
		return &apperror.AppError{
			Code:       apperror.CodeDatabase,
			Message:    "Storage is unavailable, please try again",
			HTTPStatus: 503,
			Err:        err,
		}
	default:
		return apperror.NewInternal(err)
	}
}

// GetByID retrieves a document.
func (s *Service) GetByID(ctx context.Context, docID id.ID) (*Document, error) {
	return s.repo.GetByID(ctx, docID)
}

// GetByNumber retrieves a document by its identifier.
func (s *Service) GetByNumber(ctx context.Context, t doctype.Type, number string) (*Document, error) {
	return s.repo.GetByNumber(ctx, t, number)
}

// List retrieves documents with filtering and pagination.
func (s *Service) List(ctx context.Context, filter ListFilter) (ListResult, error) {
	if filter.Limit <= 0 {
		filter.Limit = DefaultListFilter().Limit
	}
	if filter.OrderBy == "" {
		filter.OrderBy = DefaultListFilter().OrderBy
	}
	return s.repo.List(ctx, filter)
}

// UpdateStatus moves a document through its lifecycle.
// The number is immutable, so status is the only mutable business field
// besides notes.
func (s *Service) UpdateStatus(ctx context.Context, docID id.ID, next Status) (*Document, error) {
	var doc *Document
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		doc, err = s.repo.GetByID(ctx, docID)
		if err != nil {
			return err
		}
		if err := doc.Status.Transition(next); err != nil {
			return err
		}
		doc.Status = next
		return s.repo.Update(ctx, doc)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "document status changed",
		"id", doc.ID,
		"number", doc.Number,
		"status", string(next))
	return doc, nil
}

// Delete removes a draft document. Documents that have left DRAFT keep
// their number reserved and cannot be deleted.
func (s *Service) Delete(ctx context.Context, docID id.ID) error {
	doc, err := s.repo.GetByID(ctx, docID)
	if err != nil {
		return err
	}
	if doc.Status != StatusDraft {
		return apperror.NewBusinessRule(
			apperror.CodeBusinessRule,
			"Only draft documents can be deleted",
		).WithDetail("status", string(doc.Status))
	}
	return s.repo.Delete(ctx, docID)
}
