// Package docstore abstracts the hosted document database the storefront
// reads products from and writes per-user carts and profiles to.
package docstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the document does not exist.
var ErrNotFound = errors.New("docstore: document not found")

// DocumentID orders or filters by the document id instead of a data field.
const DocumentID = "__name__"

type Direction int

const (
	Asc Direction = iota
	Desc
)

type Document struct {
	ID   string
	Data map[string]any
}

// Filter is an equality predicate on a top-level field.
type Filter struct {
	Field string
	Value any
}

type Order struct {
	Field     string
	Direction Direction
}

// Query selects documents from one collection. StartAfter holds one value per
// OrderBy entry, taken from the last document of the previous page.
type Query struct {
	Collection string
	Filters    []Filter
	OrderBy    []Order
	Limit      int
	StartAfter []any
}

type Reader interface {
	Get(ctx context.Context, collection, id string) (Document, error)
	Query(ctx context.Context, q Query) ([]Document, error)
}

type Writer interface {
	// Set replaces the whole document.
	Set(ctx context.Context, collection, id string, data map[string]any) error
	// Add stores a new document under a generated id.
	Add(ctx context.Context, collection string, data map[string]any) (string, error)
}

type Store interface {
	Reader
	Writer
	Ping(ctx context.Context) error
	Close() error
}

func (q Query) validate() error {
	if q.Collection == "" {
		return errors.New("docstore: collection is required")
	}
	if len(q.StartAfter) > len(q.OrderBy) {
		return errors.New("docstore: cursor has more values than order fields")
	}
	return nil
}
