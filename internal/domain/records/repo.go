package records

import (
	"context"
)

// DocumentRepository stores schemaless documents in named collections.
type DocumentRepository interface {
	Insert(ctx context.Context, collection string, doc Document) (string, error)
	List(ctx context.Context, collection string) ([]Document, error)
	Get(ctx context.Context, collection, id string) (Document, error)
}
