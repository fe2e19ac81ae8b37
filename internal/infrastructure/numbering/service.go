// Package numbering provides the PostgreSQL implementation of document
// auto-numbering. This is the infrastructure layer - it implements the
// core/numbering.Generator interface.
package numbering

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"docnum/internal/core/doctype"
	corenumbering "docnum/internal/core/numbering"
	"docnum/internal/core/period"
	"docnum/internal/infrastructure/storage/postgres"
	"docnum/pkg/logger"
)

// QuerierProvider yields the querier for the current context: the open
// transaction if one is in flight, the pool otherwise. *postgres.TxManager
// satisfies it; tests supply fakes.
type QuerierProvider interface {
	GetQuerier(ctx context.Context) postgres.Querier
}

// Service generates document numbers against PostgreSQL.
//
// With StrategyCounter the next value comes from a single UPSERT against
// the doc_sequences counter table, which is atomic under concurrency.
// With StrategyScan it reproduces the legacy behavior: find the highest
// existing identifier, parse its numeric segment, increment. The scan
// itself is race-prone; the documents service retries on insert conflict.
type Service struct {
	db     QuerierProvider
	opts   corenumbering.Options
	lookup corenumbering.LastNumberLookup
}

// Compile-time interface compliance.
var _ corenumbering.Generator = (*Service)(nil)

// New creates a numbering service.
func New(db QuerierProvider, opts corenumbering.Options) *Service {
	s := &Service{db: db, opts: opts}
	s.lookup = &pgLookup{db: db}
	return s
}

// WithLookup overrides the last-number lookup used by StrategyScan.
func (s *Service) WithLookup(lookup corenumbering.LastNumberLookup) *Service {
	s.lookup = lookup
	return s
}

// Next generates the next document number for the type at the reference
// time, e.g. "PO-2025-0008" or "GCS29/001/25-26".
func (s *Service) Next(ctx context.Context, t doctype.Type, at time.Time) (string, error) {
	rule, err := doctype.RuleFor(t)
	if err != nil {
		return "", err
	}
	label := period.Label(rule.Period, at)

	var seq int64
	switch s.opts.Strategy {
	case corenumbering.StrategyScan:
		seq, err = s.nextScan(ctx, t, rule, label)
	default:
		seq, err = s.nextCounter(ctx, t, label)
	}
	if err != nil {
		return "", err
	}

	return rule.Format(label, seq), nil
}

// nextCounter reserves the next value with UPSERT + RETURNING against the
// per-(type, period) counter row. Concurrent callers serialize on the row
// lock; a rolled-back transaction releases its value, so there are no
// gaps and no duplicates.
func (s *Service) nextCounter(ctx context.Context, t doctype.Type, periodLabel string) (int64, error) {
	var seq int64
	err := s.db.GetQuerier(ctx).QueryRow(ctx, `
        INSERT INTO doc_sequences (doc_type, period, last_value)
        VALUES ($1, $2, 1)
        ON CONFLICT (doc_type, period) DO UPDATE
            SET last_value = doc_sequences.last_value + 1,
                updated_at = NOW()
        RETURNING last_value
	`, t.String(), periodLabel).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("%w: reserve next value for %s/%q: %v",
			corenumbering.ErrPersistence, t, periodLabel, err)
	}
	return seq, nil
}

// nextScan derives the next value from the highest existing identifier.
// A fresh period (no match) starts the sequence at 1. A match whose
// numeric segment does not parse aborts generation: defaulting to 1
// would silently issue a duplicate number.
func (s *Service) nextScan(ctx context.Context, t doctype.Type, rule doctype.NumberingRule, periodLabel string) (int64, error) {
	prefix := rule.Prefix(periodLabel)
	suffix := rule.Suffix(periodLabel)

	last, ok, err := s.lookup.LastNumber(ctx, t, prefix, suffix)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 1, nil
	}

	seq, err := parseSequence(last, prefix, suffix)
	if err != nil {
		logger.Error(ctx, "malformed document number in sequence scan",
			"doc_type", t.String(),
			"number", last,
			"error", err)
		return 0, fmt.Errorf("%w: %q: %v", corenumbering.ErrCorruptSequence, last, err)
	}
	return seq + 1, nil
}

// parseSequence extracts the numeric segment between prefix and suffix.
func parseSequence(number, prefix, suffix string) (int64, error) {
	if !strings.HasPrefix(number, prefix) {
		return 0, fmt.Errorf("missing prefix %q", prefix)
	}
	seg := strings.TrimPrefix(number, prefix)
	if suffix != "" {
		if !strings.HasSuffix(seg, suffix) {
			return 0, fmt.Errorf("missing suffix %q", suffix)
		}
		seg = strings.TrimSuffix(seg, suffix)
	}
	seq, err := strconv.ParseInt(seg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("non-numeric segment %q", seg)
	}
	if seq <= 0 {
		return 0, fmt.Errorf("non-positive sequence %d", seq)
	}
	return seq, nil
}

// SetNext forces the counter so the next issued sequence is value.
// Used by the seed tool when migrating legacy data onto the counter
// strategy.
func (s *Service) SetNext(ctx context.Context, t doctype.Type, at time.Time, value int64) error {
	if value < 1 {
		return fmt.Errorf("next value must be positive, got %d", value)
	}
	rule, err := doctype.RuleFor(t)
	if err != nil {
		return err
	}
	label := period.Label(rule.Period, at)

	_, err = s.db.GetQuerier(ctx).Exec(ctx, `
        INSERT INTO doc_sequences (doc_type, period, last_value)
        VALUES ($1, $2, $3)
        ON CONFLICT (doc_type, period) DO UPDATE
            SET last_value = $3,
                updated_at = NOW()
	`, t.String(), label, value-1)
	if err != nil {
		return fmt.Errorf("%w: set next value for %s/%q: %v",
			corenumbering.ErrPersistence, t, label, err)
	}
	return nil
}

// pgLookup is the default LastNumberLookup: a prefix-match scan over the
// documents table. Zero-padded fixed-width sequences sort consistently
// with creation order, so ORDER BY number DESC yields the last issued.
type pgLookup struct {
	db QuerierProvider
}

var _ corenumbering.LastNumberLookup = (*pgLookup)(nil)

func (l *pgLookup) LastNumber(ctx context.Context, t doctype.Type, prefix, suffix string) (string, bool, error) {
	pattern := likeEscape(prefix) + "%" + likeEscape(suffix)

	var number string
	err := l.db.GetQuerier(ctx).QueryRow(ctx, `
        SELECT number FROM documents
        WHERE doc_type = $1 AND number LIKE $2
        ORDER BY number DESC
        LIMIT 1
	`, t.String(), pattern).Scan(&number)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%w: last number for %s/%q: %v",
			corenumbering.ErrPersistence, t, prefix, err)
	}
	return number, true, nil
}

// likeEscape escapes LIKE metacharacters in a literal fragment.
func likeEscape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
