package prefs

import (
	"context"
	"errors"
	"testing"
	"time"

	pkgerrors "github.com/angelmondragon/ecofinds-storefront/pkg/errors"
	"github.com/redis/go-redis/v9"
)

type fakeRedis struct {
	values  map[string]string
	ttls    map[string]time.Duration
	failSet error
	failGet error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedis) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if f.failSet != nil {
		return f.failSet
	}
	f.values[key] = value.(string)
	f.ttls[key] = ttl
	return nil
}

func (f *fakeRedis) Get(ctx context.Context, key string) (string, error) {
	if f.failGet != nil {
		return "", f.failGet
	}
	v, ok := f.values[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		delete(f.values, k)
	}
	return nil
}

func (f *fakeRedis) LocalKey(deviceID, key string) string {
	return "sf:local:" + deviceID + ":" + key
}

func TestRedisKVNamespacesAndTTL(t *testing.T) {
	t.Parallel()

	fake := newFakeRedis()
	factory := newRedisFactory(fake, time.Hour, 0)
	ctx := context.Background()

	a := factory.ForDevice("dev-a")
	if err := a.Set(ctx, KeyCart, "[]"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if fake.ttls["sf:local:dev-a:cart"] != time.Hour {
		t.Fatalf("expected ttl on namespaced key, got %+v", fake.ttls)
	}
	if _, ok, err := factory.ForDevice("dev-b").Get(ctx, KeyCart); ok || err != nil {
		t.Fatalf("expected other device to miss, ok=%v err=%v", ok, err)
	}
	if err := a.Remove(ctx, KeyCart); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, ok, _ := a.Get(ctx, KeyCart); ok {
		t.Fatal("expected key removed")
	}
}

func TestRedisKVWrapsFailures(t *testing.T) {
	t.Parallel()

	fake := newFakeRedis()
	fake.failSet = errors.New("conn refused")
	fake.failGet = errors.New("conn refused")
	kv := newRedisFactory(fake, 0, 0).ForDevice("dev")

	if err := kv.Set(context.Background(), KeyCart, "[]"); !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
	if _, _, err := kv.Get(context.Background(), KeyCart); !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestQuotaExceeded(t *testing.T) {
	t.Parallel()

	for name, kv := range map[string]KV{
		"memory": NewMemoryFactory(8).ForDevice("dev"),
		"redis":  newRedisFactory(newFakeRedis(), 0, 8).ForDevice("dev"),
	} {
		err := kv.Set(context.Background(), KeyWishlist, `["a","b","c"]`)
		typed := pkgerrors.As(err)
		if typed == nil || typed.Code() != pkgerrors.CodeQuotaExceeded {
			t.Fatalf("%s: expected quota error, got %v", name, err)
		}
		if _, ok, _ := kv.Get(context.Background(), KeyWishlist); ok {
			t.Fatalf("%s: expected nothing stored", name)
		}
	}
}

func TestStoreCartRoundTrip(t *testing.T) {
	t.Parallel()

	store := NewStore(NewMemoryFactory(0).ForDevice("dev"), nil)
	ctx := context.Background()

	items, err := store.Cart(ctx)
	if err != nil || items == nil || len(items) != 0 {
		t.Fatalf("expected empty non-nil cart, got %#v err %v", items, err)
	}

	added := time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC)
	want := []CartItem{{ID: "p1", Title: "Lamp", Price: 12.5, SellerID: "s1", SellerName: "sam", Quantity: 2, AddedAt: added}}
	if err := store.SaveCart(ctx, want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := store.Cart(ctx)
	if err != nil || len(got) != 1 || got[0].Quantity != 2 || !got[0].AddedAt.Equal(added) {
		t.Fatalf("unexpected cart %+v err %v", got, err)
	}
}

func TestStoreTreatsCorruptValuesAsEmpty(t *testing.T) {
	t.Parallel()

	kv := NewMemoryFactory(0).ForDevice("dev")
	ctx := context.Background()
	_ = kv.Set(ctx, KeyCart, "{not json")
	_ = kv.Set(ctx, KeyWishlist, `[1,2]`)
	_ = kv.Set(ctx, KeyCurrentUser, "null")
	store := NewStore(kv, nil)

	if items, err := store.Cart(ctx); err != nil || len(items) != 0 {
		t.Fatalf("expected empty cart, got %+v err %v", items, err)
	}
	if ids, err := store.Wishlist(ctx); err != nil || len(ids) != 0 {
		t.Fatalf("expected empty wishlist, got %+v err %v", ids, err)
	}
	if snap, err := store.CurrentUser(ctx); err != nil || snap != nil {
		t.Fatalf("expected no user, got %+v err %v", snap, err)
	}
}

func TestStoreWishlistDeduplicates(t *testing.T) {
	t.Parallel()

	kv := NewMemoryFactory(0).ForDevice("dev")
	ctx := context.Background()
	_ = kv.Set(ctx, KeyWishlist, `["a","b","a",""]`)

	ids, err := NewStore(kv, nil).Wishlist(ctx)
	if err != nil || len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Fatalf("unexpected wishlist %v err %v", ids, err)
	}
}

func TestStoreCartKeepsFirstLinePerProduct(t *testing.T) {
	t.Parallel()

	kv := NewMemoryFactory(0).ForDevice("dev")
	ctx := context.Background()
	_ = kv.Set(ctx, KeyCart, `[{"id":"p1","quantity":1},{"id":"p2","quantity":0},{"id":"p1","quantity":2},{"id":"p3","quantity":4}]`)

	items, err := NewStore(kv, nil).Cart(ctx)
	if err != nil {
		t.Fatalf("cart: %v", err)
	}
	if len(items) != 2 || items[0].ID != "p1" || items[0].Quantity != 1 || items[1].ID != "p3" {
		t.Fatalf("expected one line per product, got %+v", items)
	}
}

func TestStoreCurrentUserLifecycle(t *testing.T) {
	t.Parallel()

	store := NewStore(NewMemoryFactory(0).ForDevice("dev"), nil)
	ctx := context.Background()

	if err := store.SaveCurrentUser(ctx, UserSnapshot{UID: "u1", Email: "a@b.co", DisplayName: "ann"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	snap, err := store.CurrentUser(ctx)
	if err != nil || snap == nil || snap.UID != "u1" {
		t.Fatalf("unexpected snapshot %+v err %v", snap, err)
	}
	if err := store.ClearCurrentUser(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if snap, _ := store.CurrentUser(ctx); snap != nil {
		t.Fatalf("expected cleared snapshot")
	}
}

func TestMemoryFactorySharesDeviceState(t *testing.T) {
	t.Parallel()

	factory := NewMemoryFactory(0)
	ctx := context.Background()
	_ = factory.ForDevice("dev").Set(ctx, KeyCart, "[]")
	if _, ok, _ := factory.ForDevice("dev").Get(ctx, KeyCart); !ok {
		t.Fatal("expected value visible to a new handle for the same device")
	}
}
