package catalog

import (
	"context"
	"errors"

	"github.com/angelmondragon/ecofinds-storefront/pkg/docstore"
	"github.com/angelmondragon/ecofinds-storefront/pkg/enums"
	"github.com/angelmondragon/ecofinds-storefront/pkg/pagination"
)

// ErrProductNotFound is returned by FindByID for unknown ids.
var ErrProductNotFound = errors.New("product not found")

// Repository reads and writes product documents.
type Repository struct {
	store docstore.Store
}

// NewRepository constructs a product repository bound to the document store.
func NewRepository(store docstore.Store) *Repository {
	return &Repository{store: store}
}

// ListAvailable returns one page of available products, newest first.
func (r *Repository) ListAvailable(ctx context.Context, limit int, after *pagination.Cursor) ([]Product, error) {
	q := docstore.Query{
		Collection: Collection,
		Filters:    []docstore.Filter{{Field: "status", Value: string(enums.ProductStatusAvailable)}},
		OrderBy: []docstore.Order{
			{Field: "createdAt", Direction: docstore.Desc},
			{Field: docstore.DocumentID, Direction: docstore.Desc},
		},
		Limit: pagination.Clamp(limit),
	}
	if after != nil {
		q.StartAfter = after.StartAfter()
	}

	docs, err := r.store.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	out := make([]Product, 0, len(docs))
	for _, doc := range docs {
		out = append(out, FromDocument(doc))
	}
	return out, nil
}

// FindByID loads a product regardless of status.
func (r *Repository) FindByID(ctx context.Context, id string) (Product, error) {
	doc, err := r.store.Get(ctx, Collection, id)
	if errors.Is(err, docstore.ErrNotFound) {
		return Product{}, ErrProductNotFound
	}
	if err != nil {
		return Product{}, err
	}
	return FromDocument(doc), nil
}

// Create stores a new product and returns its generated id.
func (r *Repository) Create(ctx context.Context, p Product) (string, error) {
	return r.store.Add(ctx, Collection, p.Document())
}

// Save replaces the product document.
func (r *Repository) Save(ctx context.Context, p Product) error {
	if p.ID == "" {
		return errors.New("product id is required")
	}
	return r.store.Set(ctx, Collection, p.ID, p.Document())
}
