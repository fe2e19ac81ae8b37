package documents

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docnum/internal/core/apperror"
	"docnum/internal/core/doctype"
	"docnum/internal/core/id"
	"docnum/internal/core/numbering"
)

// --- fakes ---

// fakeTxManager runs the function directly. The domain retry logic does
// not depend on real transaction semantics.
type fakeTxManager struct{}

func (fakeTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// fakeRepo is an in-memory Repository enforcing the (type, number)
// unique constraint the real table carries.
type fakeRepo struct {
	mu      sync.Mutex
	docs    map[id.ID]*Document
	numbers map[string]struct{}

	lastFilter ListFilter
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		docs:    make(map[id.ID]*Document),
		numbers: make(map[string]struct{}),
	}
}

func numberKey(t doctype.Type, number string) string {
	return fmt.Sprintf("%s|%s", t, number)
}

func (r *fakeRepo) Create(ctx context.Context, doc *Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := numberKey(doc.Type, doc.Number)
	if _, exists := r.numbers[key]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateNumber, doc.Number)
	}
	r.numbers[key] = struct{}{}
	copied := *doc
	r.docs[doc.ID] = &copied
	return nil
}

func (r *fakeRepo) GetByID(ctx context.Context, docID id.ID) (*Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, ok := r.docs[docID]
	if !ok {
		return nil, apperror.NewNotFound("document", docID)
	}
	copied := *doc
	return &copied, nil
}

func (r *fakeRepo) GetByNumber(ctx context.Context, t doctype.Type, number string) (*Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, doc := range r.docs {
		if doc.Type == t && doc.Number == number {
			copied := *doc
			return &copied, nil
		}
	}
	return nil, apperror.NewNotFound("document", number)
}

func (r *fakeRepo) Update(ctx context.Context, doc *Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.docs[doc.ID]; !ok {
		return apperror.NewNotFound("document", doc.ID)
	}
	doc.Touch()
	copied := *doc
	r.docs[doc.ID] = &copied
	return nil
}

func (r *fakeRepo) Delete(ctx context.Context, docID id.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, ok := r.docs[docID]
	if !ok {
		return apperror.NewNotFound("document", docID)
	}
	delete(r.numbers, numberKey(doc.Type, doc.Number))
	delete(r.docs, docID)
	return nil
}

func (r *fakeRepo) List(ctx context.Context, filter ListFilter) (ListResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lastFilter = filter
	result := ListResult{Limit: filter.Limit, Offset: filter.Offset}
	for _, doc := range r.docs {
		if filter.Type != nil && doc.Type != *filter.Type {
			continue
		}
		if filter.Status != nil && doc.Status != *filter.Status {
			continue
		}
		copied := *doc
		result.Items = append(result.Items, &copied)
	}
	result.TotalCount = int64(len(result.Items))
	return result, nil
}

func (r *fakeRepo) LastNumber(ctx context.Context, t doctype.Type, prefix, suffix string) (string, bool, error) {
	return "", false, nil
}

var _ Repository = (*fakeRepo)(nil)

func fixedClock(y int, m time.Month, d int) func() time.Time {
	return func() time.Time {
		return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
	}
}

func newTestService(repo Repository, gen numbering.Generator) *Service {
	return NewService(repo, gen, fakeTxManager{}).
		WithClock(fixedClock(2025, time.July, 10))
}

func draft(t doctype.Type) *Document {
	return New(t, time.Date(2025, time.July, 10, 0, 0, 0, 0, time.UTC),
		"Acme Traders", decimal.NewFromInt(1500))
}

// --- Create ---

func TestCreate_AssignsNumber(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &numbering.MockGenerator{})

	doc := draft(doctype.PurchaseOrder)
	require.NoError(t, svc.Create(context.Background(), doc))

	assert.Equal(t, "PO-2025-0001", doc.Number)
	assert.Equal(t, StatusDraft, doc.Status)

	stored, err := repo.GetByID(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.Number, stored.Number)
}

func TestCreate_SequencesAreIndependentPerType(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &numbering.MockGenerator{})
	ctx := context.Background()

	po := draft(doctype.PurchaseOrder)
	require.NoError(t, svc.Create(ctx, po))
	bill := draft(doctype.Bill)
	require.NoError(t, svc.Create(ctx, bill))
	po2 := draft(doctype.PurchaseOrder)
	require.NoError(t, svc.Create(ctx, po2))

	assert.Equal(t, "PO-2025-0001", po.Number)
	assert.Equal(t, "BILL-2025-0001", bill.Number)
	assert.Equal(t, "PO-2025-0002", po2.Number)
}

func TestCreate_PeriodRollover(t *testing.T) {
	repo := newFakeRepo()
	gen := &numbering.MockGenerator{}
	ctx := context.Background()

	svc := NewService(repo, gen, fakeTxManager{}).
		WithClock(fixedClock(2025, time.December, 31))
	for i := 0; i < 3; i++ {
		require.NoError(t, svc.Create(ctx, draft(doctype.Bill)))
	}

	svc = NewService(repo, gen, fakeTxManager{}).
		WithClock(fixedClock(2026, time.January, 1))
	doc := draft(doctype.Bill)
	require.NoError(t, svc.Create(ctx, doc))

	assert.Equal(t, "BILL-2026-0001", doc.Number)
}

func TestCreate_RejectsProvidedNumber(t *testing.T) {
	svc := newTestService(newFakeRepo(), &numbering.MockGenerator{})

	doc := draft(doctype.PurchaseOrder)
	doc.Number = "PO-2025-9999"
	err := svc.Create(context.Background(), doc)

	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperror.CodeNumberImmutable, appErr.Code)
}

func TestCreate_RetriesOnDuplicateNumber(t *testing.T) {
	repo := newFakeRepo()
	ctx := context.Background()

	// Pre-existing document holds PO-2025-0001.
	seeded := draft(doctype.PurchaseOrder)
	seeded.Number = "PO-2025-0001"
	require.NoError(t, repo.Create(ctx, seeded))

	// A scan-style generator unaware of the seeded row proposes the taken
	// number first, then moves on.
	var calls int
	gen := &numbering.MockGenerator{
		NextFunc: func(ctx context.Context, _ doctype.Type, _ time.Time) (string, error) {
			calls++
			return fmt.Sprintf("PO-2025-%04d", calls), nil
		},
	}

	svc := newTestService(repo, gen)
	doc := draft(doctype.PurchaseOrder)
	require.NoError(t, svc.Create(ctx, doc))

	assert.Equal(t, "PO-2025-0002", doc.Number)
	assert.Equal(t, 2, calls)
}

func TestCreate_ContentionAfterMaxAttempts(t *testing.T) {
	repo := newFakeRepo()
	ctx := context.Background()

	seeded := draft(doctype.PurchaseOrder)
	seeded.Number = "PO-2025-0001"
	require.NoError(t, repo.Create(ctx, seeded))

	// Generator stuck on the taken number.
	gen := &numbering.MockGenerator{
		NextFunc: func(ctx context.Context, _ doctype.Type, _ time.Time) (string, error) {
			return "PO-2025-0001", nil
		},
	}

	svc := newTestService(repo, gen)
	err := svc.Create(ctx, draft(doctype.PurchaseOrder))

	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperror.CodeContention, appErr.Code)
	assert.True(t, errors.Is(err, numbering.ErrContention))
}

func TestCreate_CorruptSequenceSurfaces(t *testing.T) {
	gen := &numbering.MockGenerator{
		NextFunc: func(ctx context.Context, _ doctype.Type, _ time.Time) (string, error) {
			return "", fmt.Errorf("%w: %q", numbering.ErrCorruptSequence, "PO-2025-ABCD")
		},
	}
	svc := newTestService(newFakeRepo(), gen)

	err := svc.Create(context.Background(), draft(doctype.PurchaseOrder))

	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperror.CodeCorruptSequence, appErr.Code)
}

func TestCreate_PersistenceUnavailable(t *testing.T) {
	gen := &numbering.MockGenerator{
		NextFunc: func(ctx context.Context, _ doctype.Type, _ time.Time) (string, error) {
			return "", fmt.Errorf("%w: connection refused", numbering.ErrPersistence)
		},
	}
	svc := newTestService(newFakeRepo(), gen)

	err := svc.Create(context.Background(), draft(doctype.PurchaseOrder))

	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperror.CodeDatabase, appErr.Code)
	assert.Equal(t, 503, appErr.HTTPStatus)
}

func TestCreate_ValidationFailures(t *testing.T) {
	svc := newTestService(newFakeRepo(), &numbering.MockGenerator{})
	ctx := context.Background()

	doc := draft(doctype.PurchaseOrder)
	doc.Party = ""
	err := svc.Create(ctx, doc)
	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperror.CodeValidation, appErr.Code)

	doc = draft(doctype.Type(99))
	err = svc.Create(ctx, doc)
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperror.CodeUnknownDocType, appErr.Code)
}

// TestCreate_ConcurrentDistinctNumbers creates documents from many
// goroutines and verifies every one receives a distinct number with no
// gaps.
func TestCreate_ConcurrentDistinctNumbers(t *testing.T) {
	const workers = 50

	repo := newFakeRepo()
	svc := newTestService(repo, &numbering.MockGenerator{})
	ctx := context.Background()

	var wg sync.WaitGroup
	numbers := make(chan string, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			doc := draft(doctype.PurchaseOrder)
			if err := svc.Create(ctx, doc); err != nil {
				t.Errorf("create failed: %v", err)
				return
			}
			numbers <- doc.Number
		}()
	}
	wg.Wait()
	close(numbers)

	seen := make(map[string]struct{})
	for n := range numbers {
		_, dup := seen[n]
		assert.False(t, dup, "duplicate number %s", n)
		seen[n] = struct{}{}
	}
	require.Len(t, seen, workers)
	assert.Contains(t, seen, fmt.Sprintf("PO-2025-%04d", workers))
}

// --- status lifecycle ---

func TestUpdateStatus(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &numbering.MockGenerator{})
	ctx := context.Background()

	doc := draft(doctype.Bill)
	require.NoError(t, svc.Create(ctx, doc))

	updated, err := svc.UpdateStatus(ctx, doc.ID, StatusSent)
	require.NoError(t, err)
	assert.Equal(t, StatusSent, updated.Status)
	assert.Equal(t, doc.Number, updated.Number)

	updated, err = svc.UpdateStatus(ctx, doc.ID, StatusPaid)
	require.NoError(t, err)
	assert.Equal(t, StatusPaid, updated.Status)

	// PAID is terminal.
	_, err = svc.UpdateStatus(ctx, doc.ID, StatusCancelled)
	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperror.CodeStatusTransition, appErr.Code)
}

func TestUpdateStatus_NotFound(t *testing.T) {
	svc := newTestService(newFakeRepo(), &numbering.MockGenerator{})

	_, err := svc.UpdateStatus(context.Background(), id.New(), StatusSent)
	assert.True(t, apperror.IsNotFound(err))
}

// --- delete ---

func TestDelete_DraftOnly(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &numbering.MockGenerator{})
	ctx := context.Background()

	doc := draft(doctype.Quotation)
	require.NoError(t, svc.Create(ctx, doc))
	require.NoError(t, svc.Delete(ctx, doc.ID))
	_, err := svc.GetByID(ctx, doc.ID)
	assert.True(t, apperror.IsNotFound(err))

	sent := draft(doctype.Bill)
	require.NoError(t, svc.Create(ctx, sent))
	_, err = svc.UpdateStatus(ctx, sent.ID, StatusSent)
	require.NoError(t, err)

	err = svc.Delete(ctx, sent.ID)
	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperror.CodeBusinessRule, appErr.Code)
}

// --- list ---

func TestList_AppliesDefaults(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &numbering.MockGenerator{})

	_, err := svc.List(context.Background(), ListFilter{})
	require.NoError(t, err)

	assert.Equal(t, 50, repo.lastFilter.Limit)
	assert.Equal(t, "-date", repo.lastFilter.OrderBy)
}

func TestGetByNumber(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &numbering.MockGenerator{})
	ctx := context.Background()

	doc := draft(doctype.Invoice)
	require.NoError(t, svc.Create(ctx, doc))
	require.Equal(t, "GCS29/001/25-26", doc.Number)

	found, err := svc.GetByNumber(ctx, doctype.Invoice, "GCS29/001/25-26")
	require.NoError(t, err)
	assert.Equal(t, doc.ID, found.ID)
}
