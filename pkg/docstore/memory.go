package docstore

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"
)

// Memory is a process-local Store for development and tests. Query
// semantics follow Firestore: ties on the explicit order fall back to the
// document id in the direction of the last order field.
type Memory struct {
	mu          sync.RWMutex
	collections map[string]map[string]map[string]any
}

func NewMemory() *Memory {
	return &Memory{collections: map[string]map[string]map[string]any{}}
}

func (m *Memory) Get(ctx context.Context, collection, id string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.collections[collection][id]
	if !ok {
		return Document{}, ErrNotFound
	}
	return Document{ID: id, Data: cloneData(data)}, nil
}

func (m *Memory) Set(ctx context.Context, collection, id string, data map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	docs, ok := m.collections[collection]
	if !ok {
		docs = map[string]map[string]any{}
		m.collections[collection] = docs
	}
	docs[id] = cloneData(data)
	return nil
}

func (m *Memory) Add(ctx context.Context, collection string, data map[string]any) (string, error) {
	id := uuid.NewString()
	if err := m.Set(ctx, collection, id, data); err != nil {
		return "", err
	}
	return id, nil
}

func (m *Memory) Query(ctx context.Context, q Query) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := q.validate(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	docs := make([]Document, 0, len(m.collections[q.Collection]))
	for id, data := range m.collections[q.Collection] {
		if matches(data, q.Filters) {
			docs = append(docs, Document{ID: id, Data: data})
		}
	}

	orders := withImplicitID(q.OrderBy)
	slices.SortFunc(docs, func(a, b Document) int {
		return compareDocs(a, b, orders)
	})

	out := make([]Document, 0, len(docs))
	for _, doc := range docs {
		if len(q.StartAfter) > 0 && compareToCursor(doc, orders, q.StartAfter) <= 0 {
			continue
		}
		out = append(out, Document{ID: doc.ID, Data: cloneData(doc.Data)})
		if q.Limit > 0 && len(out) == q.Limit {
			break
		}
	}
	return out, nil
}

func (m *Memory) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (m *Memory) Close() error {
	return nil
}

func matches(data map[string]any, filters []Filter) bool {
	for _, f := range filters {
		v, ok := data[f.Field]
		if !ok || compareValues(v, f.Value) != 0 {
			return false
		}
	}
	return true
}

func withImplicitID(orders []Order) []Order {
	dir := Asc
	for _, o := range orders {
		if o.Field == DocumentID {
			return orders
		}
		dir = o.Direction
	}
	return append(slices.Clone(orders), Order{Field: DocumentID, Direction: dir})
}

func fieldValue(doc Document, field string) any {
	if field == DocumentID {
		return doc.ID
	}
	return doc.Data[field]
}

func compareDocs(a, b Document, orders []Order) int {
	for _, o := range orders {
		c := compareValues(fieldValue(a, o.Field), fieldValue(b, o.Field))
		if o.Direction == Desc {
			c = -c
		}
		if c != 0 {
			return c
		}
	}
	return 0
}

// compareToCursor reports the position of doc relative to the cursor in the
// query order; only the fields the cursor carries participate.
func compareToCursor(doc Document, orders []Order, cursor []any) int {
	for i, value := range cursor {
		o := orders[i]
		c := compareValues(fieldValue(doc, o.Field), value)
		if o.Direction == Desc {
			c = -c
		}
		if c != 0 {
			return c
		}
	}
	return 0
}
