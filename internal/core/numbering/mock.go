package numbering

import (
	"context"
	"fmt"
	"sync"
	"time"

	"docnum/internal/core/doctype"
	"docnum/internal/core/period"
)

// MockGenerator is a test implementation of Generator.
// Use in unit tests to avoid database dependencies.
type MockGenerator struct {
	NextFunc    func(ctx context.Context, t doctype.Type, at time.Time) (string, error)
	SetNextFunc func(ctx context.Context, t doctype.Type, at time.Time, value int64) error

	mu   sync.Mutex
	seqs map[string]int64
}

var _ Generator = (*MockGenerator)(nil)

// Next implements Generator. Without a NextFunc override it behaves like
// a correctly formatted in-memory counter keyed by (type, period).
func (m *MockGenerator) Next(ctx context.Context, t doctype.Type, at time.Time) (string, error) {
	if m.NextFunc != nil {
		return m.NextFunc(ctx, t, at)
	}

	rule, err := doctype.RuleFor(t)
	if err != nil {
		return "", err
	}
	label := period.Label(rule.Period, at)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seqs == nil {
		m.seqs = make(map[string]int64)
	}
	key := fmt.Sprintf("%s|%s", t, label)
	m.seqs[key]++
	return rule.Format(label, m.seqs[key]), nil
}

// SetNext implements Generator.
func (m *MockGenerator) SetNext(ctx context.Context, t doctype.Type, at time.Time, value int64) error {
	if m.SetNextFunc != nil {
		return m.SetNextFunc(ctx, t, at, value)
	}

	rule, err := doctype.RuleFor(t)
	if err != nil {
		return err
	}
	label := period.Label(rule.Period, at)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seqs == nil {
		m.seqs = make(map[string]int64)
	}
	m.seqs[fmt.Sprintf("%s|%s", t, label)] = value - 1
	return nil
}
