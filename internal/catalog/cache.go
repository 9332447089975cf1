package catalog

import (
	"context"
	"sync"

	pkgerrors "github.com/angelmondragon/ecofinds-storefront/pkg/errors"
	"github.com/angelmondragon/ecofinds-storefront/pkg/logger"
	"github.com/angelmondragon/ecofinds-storefront/pkg/pagination"
)

const (
	loadInitial = "initial"
	loadMore    = "more"
)

// PageSource fetches pages of available products.
type PageSource interface {
	ListAvailable(ctx context.Context, limit int, after *pagination.Cursor) ([]Product, error)
}

// Recorder receives catalog load outcomes.
type Recorder interface {
	CatalogLoad(kind, result string)
}

// Page is one fetch result. NextCursor is set only when the page was full;
// Exhausted reports that no further LoadMore can return items.
type Page struct {
	Items      []Product `json:"items"`
	NextCursor string    `json:"nextCursor,omitempty"`
	Exhausted  bool      `json:"exhausted"`
}

// Cache holds the products loaded so far in server order. It is replaced by
// LoadInitial and only ever grows by LoadMore.
type Cache struct {
	source   PageSource
	pageSize int
	recorder Recorder
	logg     *logger.Logger

	mu        sync.RWMutex
	items     []Product
	index     map[string]int
	cursor    string
	exhausted bool
	loaded    bool
}

type CacheParams struct {
	Source   PageSource
	PageSize int
	Recorder Recorder
	Logger   *logger.Logger
}

func NewCache(params CacheParams) (*Cache, error) {
	if params.Source == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "catalog source is required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &Cache{
		source:   params.Source,
		pageSize: pagination.Clamp(params.PageSize),
		recorder: params.Recorder,
		logg:     logg,
		index:    map[string]int{},
	}, nil
}

// LoadInitial fetches the first page and replaces the cache with it.
func (c *Cache) LoadInitial(ctx context.Context) (Page, error) {
	items, err := c.source.ListAvailable(ctx, c.pageSize, nil)
	if err != nil {
		c.record(loadInitial, "error")
		c.logg.Error(ctx, "catalog.load_initial_failed", err)
		return Page{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make([]Product, 0, len(items))
	c.index = make(map[string]int, len(items))
	c.appendLocked(items)
	c.loaded = true
	page := c.advanceLocked(items)
	c.record(loadInitial, "ok")
	return page, nil
}

// LoadMore fetches the page after cursor and appends it. An empty cursor or an
// exhausted cache yields an empty exhausted page without touching the source.
func (c *Cache) LoadMore(ctx context.Context, cursor string) (Page, error) {
	c.mu.RLock()
	exhausted := c.exhausted
	c.mu.RUnlock()
	if exhausted || cursor == "" {
		c.record(loadMore, "exhausted")
		return Page{Items: []Product{}, Exhausted: true}, nil
	}

	after, err := pagination.Decode(cursor)
	if err != nil {
		return Page{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	items, err := c.source.ListAvailable(ctx, c.pageSize, after)
	if err != nil {
		c.record(loadMore, "error")
		c.logg.Error(ctx, "catalog.load_more_failed", err)
		return Page{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load more products")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	added := c.appendLocked(items)
	page := c.advanceLocked(items)
	page.Items = added
	c.record(loadMore, "ok")
	return page, nil
}

// appendLocked adds unseen products in order and returns copies of those added.
func (c *Cache) appendLocked(items []Product) []Product {
	added := make([]Product, 0, len(items))
	for _, p := range items {
		if _, seen := c.index[p.ID]; seen {
			continue
		}
		p = p.Clone()
		c.index[p.ID] = len(c.items)
		c.items = append(c.items, p)
		added = append(added, p.Clone())
	}
	return added
}

// advanceLocked updates the cursor from the fetched page.
func (c *Cache) advanceLocked(fetched []Product) Page {
	page := Page{Items: cloneAll(fetched)}
	if len(fetched) < c.pageSize {
		c.exhausted = true
		c.cursor = ""
		page.Exhausted = true
		return page
	}
	last := fetched[len(fetched)-1]
	c.exhausted = false
	c.cursor = pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}.Encode()
	page.NextCursor = c.cursor
	return page
}

// Products returns copies of every cached product in load order.
func (c *Cache) Products() []Product {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cloneAll(c.items)
}

// Lookup returns a copy of the cached product.
func (c *Cache) Lookup(id string) (Product, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i, ok := c.index[id]
	if !ok {
		return Product{}, false
	}
	return c.items[i].Clone(), true
}

// Position reports the load-order index of a cached product.
func (c *Cache) Position(id string) (int, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i, ok := c.index[id]
	return i, ok
}

// NextCursor is the cursor for the next LoadMore, empty once exhausted.
func (c *Cache) NextCursor() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cursor
}

func (c *Cache) Exhausted() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.exhausted
}

// Loaded reports whether LoadInitial has succeeded at least once.
func (c *Cache) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *Cache) record(kind, result string) {
	if c.recorder != nil {
		c.recorder.CatalogLoad(kind, result)
	}
}

func cloneAll(items []Product) []Product {
	out := make([]Product, len(items))
	for i, p := range items {
		out[i] = p.Clone()
	}
	return out
}
