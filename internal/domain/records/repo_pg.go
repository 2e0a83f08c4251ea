package records

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicbook/clinic/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type documentRepoPG struct{ pool *pgxpool.Pool }

// NewDocumentRepoPG keeps every collection in the documents table as jsonb.
func NewDocumentRepoPG(pool *pgxpool.Pool) DocumentRepository { return &documentRepoPG{pool: pool} }

func (r *documentRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *documentRepoPG) Insert(ctx context.Context, collection string, doc Document) (string, error) {
	id, _ := doc["_id"].(string)
	body := make(Document, len(doc))
	for k, v := range doc {
		if k != "_id" {
			body[k] = v
		}
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return "", err
	}
	_, err = r.conn(ctx).Exec(ctx,
		`INSERT INTO documents (id, collection, body) VALUES ($1, $2, $3)`,
		id, collection, raw)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *documentRepoPG) List(ctx context.Context, collection string) ([]Document, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT id, body FROM documents WHERE collection = $1 ORDER BY created_at`, collection)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, doc)
	}
	return items, rows.Err()
}

func (r *documentRepoPG) Get(ctx context.Context, collection, id string) (Document, error) {
	doc, err := scanDocument(r.conn(ctx).QueryRow(ctx,
		`SELECT id, body FROM documents WHERE collection = $1 AND id = $2`, collection, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return doc, err
}

func scanDocument(row pgx.Row) (Document, error) {
	var id string
	var raw []byte
	if err := row.Scan(&id, &raw); err != nil {
		return nil, err
	}
	doc := Document{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	doc["_id"] = id
	return doc, nil
}
