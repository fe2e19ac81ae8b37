// Package main backfills the doc_sequences counters from the highest
// existing document numbers. Run once when switching a database with
// legacy data onto the counter numbering strategy.
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"docnum/internal/core/doctype"
	"docnum/internal/core/numbering"
	"docnum/internal/core/period"
	infranumbering "docnum/internal/infrastructure/numbering"
	"docnum/internal/infrastructure/storage/postgres"
	"docnum/internal/infrastructure/storage/postgres/document_repo"
	"docnum/pkg/logger"
)

func main() {
	log, err := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(mustEnv("DATABASE_URL")))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	txManager := postgres.NewTxManager(pool)
	repo := document_repo.New(txManager)
	generator := infranumbering.New(txManager, numbering.DefaultOptions())

	now := time.Now()
	for _, t := range doctype.All() {
		if err := seedType(ctx, repo, generator, t, now); err != nil {
			log.Fatalw("seed failed", "doc_type", t.String(), "error", err)
		}
	}

	log.Info("sequence counters seeded")
}

// seedType finds the highest issued number for the type's current period
// and positions the counter just past it.
func seedType(ctx context.Context, repo *document_repo.Repo, generator *infranumbering.Service, t doctype.Type, now time.Time) error {
	rule, err := doctype.RuleFor(t)
	if err != nil {
		return err
	}
	label := period.Label(rule.Period, now)
	prefix := rule.Prefix(label)
	suffix := rule.Suffix(label)

	last, ok, err := repo.LastNumber(ctx, t, prefix, suffix)
	if err != nil {
		return err
	}
	if !ok {
		return nil // fresh period, counter starts at 1 on first use
	}

	seg := strings.TrimSuffix(strings.TrimPrefix(last, prefix), suffix)
	seq, err := strconv.ParseInt(seg, 10, 64)
	if err != nil {
		return fmt.Errorf("malformed number %q for %s: %w", last, t, err)
	}

	return generator.SetNext(ctx, t, now, seq+1)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		fmt.Printf("required environment variable %s is not set\n", key)
		os.Exit(1)
	}
	return v
}
