package docstore

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/angelmondragon/ecofinds-storefront/pkg/config"
	"github.com/angelmondragon/ecofinds-storefront/pkg/db"
	"github.com/stretchr/testify/require"
)

func newSQLiteStore(t *testing.T) *SQL {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	client, err := db.New(context.Background(), config.DBConfig{Driver: db.DialectSQLite, DSN: dsn, MaxOpenConns: 1}, nil)
	require.NoError(t, err)
	store := NewSQL(client)
	require.NoError(t, store.AutoMigrate())
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func drivers(t *testing.T) map[string]Store {
	return map[string]Store{
		"memory": NewMemory(),
		"sqlite": newSQLiteStore(t),
	}
}

func seedProducts(t *testing.T, store Store, base time.Time) {
	t.Helper()
	ctx := context.Background()
	rows := []struct {
		id     string
		offset time.Duration
		status string
	}{
		{"p1", 0, "available"},
		{"p2", time.Minute, "available"},
		{"p3", 2 * time.Minute, "removed"},
		{"p4", 3 * time.Minute, "available"},
		{"p5", 3 * time.Minute, "available"},
	}
	for _, r := range rows {
		require.NoError(t, store.Set(ctx, "products", r.id, map[string]any{
			"title":     "item " + r.id,
			"price":     12.5,
			"status":    r.status,
			"tags":      []string{"eco"},
			"createdAt": base.Add(r.offset),
		}))
	}
}

func ids(docs []Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.ID
	}
	return out
}

func TestStoreGetSetRoundTrip(t *testing.T) {
	for name, store := range drivers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			_, err := store.Get(ctx, "carts", "missing")
			require.ErrorIs(t, err, ErrNotFound)

			now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
			require.NoError(t, store.Set(ctx, "carts", "u1", map[string]any{
				"userId": "u1",
				"items": []any{
					map[string]any{"productId": "p1", "quantity": 2, "addedAt": now},
				},
				"updatedAt": now,
			}))

			doc, err := store.Get(ctx, "carts", "u1")
			require.NoError(t, err)
			require.Equal(t, "u1", AsString(doc.Data["userId"]))
			items := AsMaps(doc.Data["items"])
			require.Len(t, items, 1)
			require.Equal(t, 2, AsInt(items[0]["quantity"]))
			require.True(t, AsTime(items[0]["addedAt"]).Equal(now))
			require.True(t, AsTime(doc.Data["updatedAt"]).Equal(now))

			// whole-document replacement
			require.NoError(t, store.Set(ctx, "carts", "u1", map[string]any{"userId": "u1"}))
			doc, err = store.Get(ctx, "carts", "u1")
			require.NoError(t, err)
			require.Nil(t, doc.Data["items"])
		})
	}
}

func TestStoreAddGeneratesID(t *testing.T) {
	for name, store := range drivers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			id, err := store.Add(ctx, "products", map[string]any{"title": "Lamp"})
			require.NoError(t, err)
			require.NotEmpty(t, id)

			doc, err := store.Get(ctx, "products", id)
			require.NoError(t, err)
			require.Equal(t, "Lamp", AsString(doc.Data["title"]))
		})
	}
}

func TestStoreQueryFiltersOrdersAndPages(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for name, store := range drivers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			seedProducts(t, store, base)

			q := Query{
				Collection: "products",
				Filters:    []Filter{{Field: "status", Value: "available"}},
				OrderBy: []Order{
					{Field: "createdAt", Direction: Desc},
					{Field: DocumentID, Direction: Desc},
				},
				Limit: 2,
			}
			first, err := store.Query(ctx, q)
			require.NoError(t, err)
			require.Equal(t, []string{"p5", "p4"}, ids(first))

			last := first[len(first)-1]
			q.StartAfter = []any{AsTime(last.Data["createdAt"]), last.ID}
			second, err := store.Query(ctx, q)
			require.NoError(t, err)
			require.Equal(t, []string{"p2", "p1"}, ids(second))

			last = second[len(second)-1]
			q.StartAfter = []any{AsTime(last.Data["createdAt"]), last.ID}
			third, err := store.Query(ctx, q)
			require.NoError(t, err)
			require.Empty(t, third)
		})
	}
}

func TestStoreQueryValidates(t *testing.T) {
	for name, store := range drivers(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Query(context.Background(), Query{})
			require.Error(t, err)
			_, err = store.Query(context.Background(), Query{Collection: "products", StartAfter: []any{"x"}})
			require.Error(t, err)
		})
	}
}

func TestSQLRejectsUnsafeFieldNames(t *testing.T) {
	store := newSQLiteStore(t)
	_, err := store.Query(context.Background(), Query{
		Collection: "products",
		Filters:    []Filter{{Field: "status'; DROP TABLE documents; --", Value: "x"}},
	})
	require.Error(t, err)
}

func TestMemoryReturnsCopies(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "products", "p1", map[string]any{"tags": []string{"a"}}))

	doc, err := store.Get(ctx, "products", "p1")
	require.NoError(t, err)
	doc.Data["tags"] = nil

	again, err := store.Get(ctx, "products", "p1")
	require.NoError(t, err)
	require.Equal(t, []string{"a"}, AsStrings(again.Data["tags"]))
}

func TestOpenSelectsDriver(t *testing.T) {
	ctx := context.Background()

	store, err := Open(ctx, &config.Config{DocStore: config.DocStoreConfig{Driver: config.DocStoreMemory}}, nil)
	require.NoError(t, err)
	require.IsType(t, &Memory{}, store)

	cfg := &config.Config{
		App:          config.AppConfig{Env: config.AppEnvDev},
		DocStore:     config.DocStoreConfig{Driver: config.DocStoreSQL},
		DB:           config.DBConfig{Driver: db.DialectSQLite, DSN: "file:open_sql?mode=memory&cache=shared", MaxOpenConns: 1},
		FeatureFlags: config.FeatureFlagsConfig{AutoMigrate: true},
	}
	store, err = Open(ctx, cfg, nil)
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Set(ctx, "products", "p1", map[string]any{"title": "Lamp"}))
	doc, err := store.Get(ctx, "products", "p1")
	require.NoError(t, err)
	require.Equal(t, "Lamp", doc.Data["title"])

	_, err = Open(ctx, &config.Config{DocStore: config.DocStoreConfig{Driver: config.DocStoreFirestore}}, nil)
	require.Error(t, err, "firestore needs a project id")
}
