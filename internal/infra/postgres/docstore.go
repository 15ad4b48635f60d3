package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"bookfair-service/internal/docstore"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// DocStore implements docstore.Store over a single documents table holding
// JSONB payloads keyed by (collection, id).
type DocStore struct {
	pool *pgxpool.Pool
}

func NewDocStore(pool *pgxpool.Pool) *DocStore {
	return &DocStore{pool: pool}
}

func (s *DocStore) Create(ctx context.Context, collection string, data any) (docstore.Document, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return docstore.Document{}, fmt.Errorf("marshal document: %w", err)
	}
	doc := docstore.Document{
		ID:        docstore.NewID(),
		CreatedAt: time.Now().UTC(),
		Data:      raw,
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO documents (collection, id, data, created_at) VALUES ($1, $2, $3, $4)`,
		collection, doc.ID, doc.Data, doc.CreatedAt)
	if err != nil {
		return docstore.Document{}, fmt.Errorf("create document: %w", err)
	}
	return doc, nil
}

func (s *DocStore) Get(ctx context.Context, collection, id string) (docstore.Document, error) {
	doc := docstore.Document{ID: id}
	err := s.pool.QueryRow(ctx,
		`SELECT data, created_at FROM documents WHERE collection=$1 AND id=$2`,
		collection, id).Scan(&doc.Data, &doc.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return docstore.Document{}, docstore.ErrNotFound
	}
	if err != nil {
		return docstore.Document{}, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

func (s *DocStore) List(ctx context.Context, collection string, opts ...docstore.Option) ([]docstore.Document, error) {
	q := docstore.Build(opts...)

	var sb strings.Builder
	sb.WriteString(`SELECT id, data, created_at FROM documents WHERE collection=$1`)
	args := []any{collection}
	for _, f := range q.Filters {
		if !validField(f.Field) {
			return nil, fmt.Errorf("invalid filter field %q", f.Field)
		}
		args = append(args, fmt.Sprint(f.Value))
		fmt.Fprintf(&sb, ` AND data->>'%s' = $%d`, f.Field, len(args))
	}
	if len(q.Orders) > 0 {
		clauses := make([]string, 0, len(q.Orders))
		for _, o := range q.Orders {
			if !validField(o.Field) {
				return nil, fmt.Errorf("invalid order field %q", o.Field)
			}
			expr := fmt.Sprintf(`data->'%s'`, o.Field)
			if o.Field == "created_at" {
				expr = "created_at"
			}
			if o.Desc {
				expr += " DESC"
			}
			clauses = append(clauses, expr)
		}
		sb.WriteString(" ORDER BY " + strings.Join(clauses, ", "))
	} else {
		sb.WriteString(" ORDER BY created_at")
	}
	if q.Limit > 0 {
		args = append(args, q.Limit)
		fmt.Fprintf(&sb, " LIMIT $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []docstore.Document
	for rows.Next() {
		var doc docstore.Document
		if err := rows.Scan(&doc.ID, &doc.Data, &doc.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

// validField accepts the snake_case document field names the queries use.
// Field names are spliced into the SQL text, so anything else is rejected.
func validField(field string) bool {
	if field == "" {
		return false
	}
	for _, r := range field {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '_' {
			return false
		}
	}
	return true
}

func (s *DocStore) Count(ctx context.Context, collection string) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM documents WHERE collection=$1`, collection).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return n, nil
}

func (s *DocStore) Update(ctx context.Context, collection, id string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE documents SET data=$3 WHERE collection=$1 AND id=$2`,
		collection, id, raw)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return docstore.ErrNotFound
	}
	return nil
}

func (s *DocStore) Delete(ctx context.Context, collection, id string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM documents WHERE collection=$1 AND id=$2`,
		collection, id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return docstore.ErrNotFound
	}
	return nil
}
