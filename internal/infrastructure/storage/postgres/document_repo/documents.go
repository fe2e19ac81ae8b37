// Package document_repo provides the PostgreSQL implementation of the
// documents repository.
package document_repo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"docnum/internal/core/apperror"
	"docnum/internal/core/doctype"
	"docnum/internal/core/id"
	"docnum/internal/core/numbering"
	"docnum/internal/domain/documents"
	"docnum/internal/infrastructure/storage/postgres"
)

const tableName = "documents"

// pgUniqueViolation is the SQLSTATE for unique constraint violations.
const pgUniqueViolation = "23505"

// Repo is the PostgreSQL documents repository.
type Repo struct {
	txm        *postgres.TxManager
	selectCols []string
}

var _ documents.Repository = (*Repo)(nil)

// New creates a documents repository.
func New(txm *postgres.TxManager) *Repo {
	return &Repo{
		txm:        txm,
		selectCols: postgres.ExtractDBColumns[documents.Document](),
	}
}

// Builder returns a squirrel builder with PostgreSQL placeholders.
func (r *Repo) Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// Create inserts a new document. A unique violation on (doc_type, number)
// is reported as documents.ErrDuplicateNumber so the service can retry
// with a fresh number.
func (r *Repo) Create(ctx context.Context, doc *documents.Document) error {
	data := postgres.StructToMap(doc)
	if len(data) == 0 {
		return fmt.Errorf("no db tags found in document")
	}

	q := r.Builder().
		Insert(tableName).
		SetMap(data)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if _, err = querier.Exec(ctx, sql, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return fmt.Errorf("%w: %s", documents.ErrDuplicateNumber, doc.Number)
		}
		return fmt.Errorf("insert %s: %w", tableName, err)
	}

	return nil
}

// GetByID retrieves a document by primary key.
func (r *Repo) GetByID(ctx context.Context, docID id.ID) (*documents.Document, error) {
	q := r.Builder().
		Select(r.selectCols...).
		From(tableName).
		Where(squirrel.Eq{"id": docID})

	return r.getOne(ctx, q, docID)
}

// GetByNumber retrieves a document by its identifier.
func (r *Repo) GetByNumber(ctx context.Context, t doctype.Type, number string) (*documents.Document, error) {
	q := r.Builder().
		Select(r.selectCols...).
		From(tableName).
		Where(squirrel.Eq{"doc_type": t, "number": number})

	return r.getOne(ctx, q, number)
}

func (r *Repo) getOne(ctx context.Context, q squirrel.SelectBuilder, key any) (*documents.Document, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var doc documents.Document
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &doc, sql, args...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NewNotFound("document", key)
		}
		return nil, fmt.Errorf("select %s: %w", tableName, err)
	}

	return &doc, nil
}

// Update modifies a document with optimistic locking.
// id, number, created_at and doc_type are immutable; version and
// updated_at are managed here.
func (r *Repo) Update(ctx context.Context, doc *documents.Document) error {
	data := postgres.StructToMap(doc)

	filtered := make(map[string]any, len(data))
	for col, val := range data {
		switch col {
		case "id", "number", "doc_type", "created_at", "version", "updated_at":
			continue
		}
		filtered[col] = val
	}

	q := r.Builder().
		Update(tableName).
		SetMap(filtered).
		Set("version", squirrel.Expr("version + 1")).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": doc.ID}).
		Where(squirrel.Eq{"version": doc.Version})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	result, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update %s: %w", tableName, err)
	}

	if result.RowsAffected() == 0 {
		return apperror.NewConcurrentModification(tableName, doc.ID)
	}

	doc.Version++
	return nil
}

// Delete removes a document.
func (r *Repo) Delete(ctx context.Context, docID id.ID) error {
	q := r.Builder().
		Delete(tableName).
		Where(squirrel.Eq{"id": docID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	result, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("delete %s: %w", tableName, err)
	}

	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("document", docID)
	}

	return nil
}

// List retrieves documents with filtering and pagination.
func (r *Repo) List(ctx context.Context, filter documents.ListFilter) (documents.ListResult, error) {
	base := r.Builder().
		Select(r.selectCols...).
		From(tableName)

	base = applyFilter(base, filter)

	orderBy, err := orderClause(filter.OrderBy)
	if err != nil {
		return documents.ListResult{}, err
	}

	q := base.OrderBy(orderBy).
		Limit(uint64(filter.Limit)).
		Offset(uint64(filter.Offset))

	sql, args, err := q.ToSql()
	if err != nil {
		return documents.ListResult{}, fmt.Errorf("build list: %w", err)
	}

	items := make([]*documents.Document, 0, filter.Limit)
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &items, sql, args...); err != nil {
		return documents.ListResult{}, fmt.Errorf("select %s: %w", tableName, err)
	}

	total, err := r.count(ctx, filter)
	if err != nil {
		return documents.ListResult{}, err
	}

	return documents.ListResult{
		Items:      items,
		TotalCount: total,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	}, nil
}

func (r *Repo) count(ctx context.Context, filter documents.ListFilter) (int64, error) {
	q := applyFilter(r.Builder().Select("COUNT(*)").From(tableName), filter)

	sql, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count: %w", err)
	}

	var total int64
	querier := r.txm.GetQuerier(ctx)
	if err := querier.QueryRow(ctx, sql, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count %s: %w", tableName, err)
	}
	return total, nil
}

func applyFilter(q squirrel.SelectBuilder, filter documents.ListFilter) squirrel.SelectBuilder {
	if filter.Type != nil {
		q = q.Where(squirrel.Eq{"doc_type": *filter.Type})
	}
	if filter.Status != nil {
		q = q.Where(squirrel.Eq{"status": *filter.Status})
	}
	if filter.Party != "" {
		q = q.Where(squirrel.ILike{"party": "%" + filter.Party + "%"})
	}
	if filter.DateFrom != nil {
		q = q.Where(squirrel.GtOrEq{"date": *filter.DateFrom})
	}
	if filter.DateTo != nil {
		q = q.Where(squirrel.LtOrEq{"date": *filter.DateTo})
	}
	return q
}

// sortableColumns whitelists ORDER BY targets.
var sortableColumns = map[string]bool{
	"date":       true,
	"number":     true,
	"party":      true,
	"amount":     true,
	"status":     true,
	"created_at": true,
}

// orderClause translates "-date" style sort keys into SQL.
func orderClause(orderBy string) (string, error) {
	col := orderBy
	dir := "ASC"
	if strings.HasPrefix(col, "-") {
		col = strings.TrimPrefix(col, "-")
		dir = "DESC"
	}
	if !sortableColumns[col] {
		return "", apperror.NewValidation("unsupported sort field").
			WithDetail("orderBy", orderBy)
	}
	return fmt.Sprintf("%s %s, id %s", col, dir, dir), nil
}

// LastNumber returns the greatest existing identifier matching the
// prefix/suffix, for the scan numbering strategy. Fixed-width zero
// padding makes lexicographic order match issue order.
func (r *Repo) LastNumber(ctx context.Context, t doctype.Type, prefix, suffix string) (string, bool, error) {
	pattern := likeEscape(prefix) + "%" + likeEscape(suffix)

	var number string
	querier := r.txm.GetQuerier(ctx)
	err := querier.QueryRow(ctx, `
        SELECT number FROM documents
        WHERE doc_type = $1 AND number LIKE $2
        ORDER BY number DESC
        LIMIT 1
	`, t.String(), pattern).Scan(&number)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%w: last number for %s: %v", numbering.ErrPersistence, t, err)
	}
	return number, true, nil
}

func likeEscape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
