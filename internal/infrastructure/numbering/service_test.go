package numbering

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"docnum/internal/core/doctype"
	corenumbering "docnum/internal/core/numbering"
	"docnum/internal/infrastructure/storage/postgres"
)

// --- mocks ---

type mockRow struct {
	val int64
	err error
}

func (m *mockRow) Scan(dest ...any) error {
	if m.err != nil {
		return m.err
	}
	if len(dest) > 0 {
		if ptr, ok := dest[0].(*int64); ok {
			*ptr = m.val
		}
	}
	return nil
}

// mockQuerier simulates the doc_sequences UPSERT with an in-memory map.
type mockQuerier struct {
	mu   sync.Mutex
	vals map[string]int64
	err  error
}

func newMockQuerier() *mockQuerier {
	return &mockQuerier{vals: make(map[string]int64)}
}

func (m *mockQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if m.err != nil {
		return &mockRow{err: m.err}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Next: ($1 doc_type, $2 period), increment by one and return.
	key := fmt.Sprintf("%v|%v", args[0], args[1])
	m.vals[key]++
	return &mockRow{val: m.vals[key]}
}

func (m *mockQuerier) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if m.err != nil {
		return pgconn.CommandTag{}, m.err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// SetNext: ($1 doc_type, $2 period, $3 last_value).
	key := fmt.Sprintf("%v|%v", args[0], args[1])
	m.vals[key] = args[2].(int64)
	return pgconn.CommandTag{}, nil
}

func (m *mockQuerier) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

type mockProvider struct {
	q *mockQuerier
}

func (p *mockProvider) GetQuerier(ctx context.Context) postgres.Querier {
	return p.q
}

// mockLookup is a canned LastNumberLookup for scan-strategy tests.
type mockLookup struct {
	number string
	ok     bool
	err    error
}

func (l *mockLookup) LastNumber(ctx context.Context, t doctype.Type, prefix, suffix string) (string, bool, error) {
	return l.number, l.ok, l.err
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}

// --- counter strategy ---

func TestNext_Counter_Sequential(t *testing.T) {
	svc := New(&mockProvider{q: newMockQuerier()}, corenumbering.DefaultOptions())
	ctx := context.Background()
	at := date(2025, time.July, 10)

	first, err := svc.Next(ctx, doctype.PurchaseOrder, at)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first != "PO-2025-0001" {
		t.Errorf("first = %q, want PO-2025-0001", first)
	}

	second, err := svc.Next(ctx, doctype.PurchaseOrder, at)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second != "PO-2025-0002" {
		t.Errorf("second = %q, want PO-2025-0002", second)
	}
}

func TestNext_Counter_PeriodRollover(t *testing.T) {
	svc := New(&mockProvider{q: newMockQuerier()}, corenumbering.DefaultOptions())
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		if _, err := svc.Next(ctx, doctype.Bill, date(2025, time.November, 1)); err != nil {
			t.Fatal(err)
		}
	}

	// New calendar year starts a separate counter row.
	num, err := svc.Next(ctx, doctype.Bill, date(2026, time.January, 2))
	if err != nil {
		t.Fatal(err)
	}
	if num != "BILL-2026-0001" {
		t.Errorf("got %q, want BILL-2026-0001 after rollover", num)
	}
}

func TestNext_Counter_QuotationNeverResets(t *testing.T) {
	svc := New(&mockProvider{q: newMockQuerier()}, corenumbering.DefaultOptions())
	ctx := context.Background()

	if _, err := svc.Next(ctx, doctype.Quotation, date(2025, time.December, 31)); err != nil {
		t.Fatal(err)
	}
	num, err := svc.Next(ctx, doctype.Quotation, date(2026, time.January, 1))
	if err != nil {
		t.Fatal(err)
	}
	if num != "QTN-0002" {
		t.Errorf("got %q, want QTN-0002 across the year boundary", num)
	}
}

func TestNext_Counter_Invoice(t *testing.T) {
	svc := New(&mockProvider{q: newMockQuerier()}, corenumbering.DefaultOptions())
	ctx := context.Background()
	at := date(2025, time.July, 10)

	first, err := svc.Next(ctx, doctype.Invoice, at)
	if err != nil {
		t.Fatal(err)
	}
	if first != "GCS29/001/25-26" {
		t.Errorf("first = %q, want GCS29/001/25-26", first)
	}

	second, err := svc.Next(ctx, doctype.Invoice, at)
	if err != nil {
		t.Fatal(err)
	}
	if second != "GCS29/002/25-26" {
		t.Errorf("second = %q, want GCS29/002/25-26", second)
	}
}

func TestNext_Counter_PersistenceFailure(t *testing.T) {
	q := newMockQuerier()
	q.err = errors.New("connection refused")
	svc := New(&mockProvider{q: q}, corenumbering.DefaultOptions())

	_, err := svc.Next(context.Background(), doctype.Expense, date(2025, time.July, 10))
	if !errors.Is(err, corenumbering.ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
}

func TestNext_UnknownType(t *testing.T) {
	svc := New(&mockProvider{q: newMockQuerier()}, corenumbering.DefaultOptions())

	_, err := svc.Next(context.Background(), doctype.Type(99), date(2025, time.July, 10))
	if !errors.Is(err, doctype.ErrUnknownType) {
		t.Fatalf("expected ErrUnknownType, got %v", err)
	}
}

func TestSetNext(t *testing.T) {
	q := newMockQuerier()
	svc := New(&mockProvider{q: q}, corenumbering.DefaultOptions())
	ctx := context.Background()
	at := date(2025, time.July, 10)

	if err := svc.SetNext(ctx, doctype.PurchaseOrder, at, 43); err != nil {
		t.Fatal(err)
	}

	num, err := svc.Next(ctx, doctype.PurchaseOrder, at)
	if err != nil {
		t.Fatal(err)
	}
	if num != "PO-2025-0043" {
		t.Errorf("got %q, want PO-2025-0043", num)
	}
}

func TestSetNext_RejectsNonPositive(t *testing.T) {
	svc := New(&mockProvider{q: newMockQuerier()}, corenumbering.DefaultOptions())
	if err := svc.SetNext(context.Background(), doctype.PurchaseOrder, date(2025, time.July, 10), 0); err == nil {
		t.Fatal("expected error for non-positive value")
	}
}

// --- scan strategy ---

func scanService(lookup corenumbering.LastNumberLookup) *Service {
	opts := corenumbering.DefaultOptions()
	opts.Strategy = corenumbering.StrategyScan
	return New(&mockProvider{q: newMockQuerier()}, opts).WithLookup(lookup)
}

func TestNext_Scan_FreshPeriodStartsAtOne(t *testing.T) {
	svc := scanService(&mockLookup{ok: false})

	num, err := svc.Next(context.Background(), doctype.PurchaseOrder, date(2025, time.July, 10))
	if err != nil {
		t.Fatal(err)
	}
	if num != "PO-2025-0001" {
		t.Errorf("got %q, want PO-2025-0001", num)
	}
}

func TestNext_Scan_IncrementsExisting(t *testing.T) {
	svc := scanService(&mockLookup{number: "PO-2025-0007", ok: true})

	num, err := svc.Next(context.Background(), doctype.PurchaseOrder, date(2025, time.July, 10))
	if err != nil {
		t.Fatal(err)
	}
	if num != "PO-2025-0008" {
		t.Errorf("got %q, want PO-2025-0008", num)
	}
}

func TestNext_Scan_InvoiceRoundTrip(t *testing.T) {
	at := date(2025, time.July, 10)
	ctx := context.Background()

	svc := scanService(&mockLookup{ok: false})
	first, err := svc.Next(ctx, doctype.Invoice, at)
	if err != nil {
		t.Fatal(err)
	}
	if first != "GCS29/001/25-26" {
		t.Errorf("first = %q, want GCS29/001/25-26", first)
	}

	svc = scanService(&mockLookup{number: first, ok: true})
	second, err := svc.Next(ctx, doctype.Invoice, at)
	if err != nil {
		t.Fatal(err)
	}
	if second != "GCS29/002/25-26" {
		t.Errorf("second = %q, want GCS29/002/25-26", second)
	}
}

func TestNext_Scan_CorruptNumber(t *testing.T) {
	// A malformed legacy record must abort generation, never default to 1.
	svc := scanService(&mockLookup{number: "PO-2025-ABCD", ok: true})

	_, err := svc.Next(context.Background(), doctype.PurchaseOrder, date(2025, time.July, 10))
	if !errors.Is(err, corenumbering.ErrCorruptSequence) {
		t.Fatalf("expected ErrCorruptSequence, got %v", err)
	}
}

func TestNext_Scan_LookupFailure(t *testing.T) {
	svc := scanService(&mockLookup{err: fmt.Errorf("%w: boom", corenumbering.ErrPersistence)})

	_, err := svc.Next(context.Background(), doctype.PurchaseOrder, date(2025, time.July, 10))
	if !errors.Is(err, corenumbering.ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
}

func TestParseSequence(t *testing.T) {
	tests := []struct {
		number, prefix, suffix string
		want                   int64
		wantErr                bool
	}{
		{"PO-2025-0007", "PO-2025-", "", 7, false},
		{"GCS29/007/25-26", "GCS29/", "/25-26", 7, false},
		{"QTN-0123", "QTN-", "", 123, false},
		{"DC20250041", "DC2025", "", 41, false},
		{"PO-2025-ABCD", "PO-2025-", "", 0, true},
		{"PO-2025-0000", "PO-2025-", "", 0, true},
		{"BILL-2025-0007", "PO-2025-", "", 0, true},
		{"GCS29/007", "GCS29/", "/25-26", 0, true},
	}

	for _, tt := range tests {
		got, err := parseSequence(tt.number, tt.prefix, tt.suffix)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parseSequence(%q) expected error", tt.number)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseSequence(%q): %v", tt.number, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parseSequence(%q) = %d, want %d", tt.number, got, tt.want)
		}
	}
}
