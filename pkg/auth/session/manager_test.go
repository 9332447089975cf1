package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

var errMissing = errors.New("missing")

type memoryKV struct {
	mu   sync.Mutex
	data map[string]string
	ttls map[string]time.Duration
	err  error
}

func newMemoryKV() *memoryKV {
	return &memoryKV{data: make(map[string]string), ttls: make(map[string]time.Duration)}
}

func (m *memoryKV) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = fmt.Sprint(value)
	m.ttls[key] = ttl
	return nil
}

func (m *memoryKV) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	val, ok := m.data[key]
	if !ok {
		return "", errMissing
	}
	return val, nil
}

func (m *memoryKV) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

func newTestManager(t *testing.T, store *memoryKV) *Manager {
	t.Helper()
	mgr, err := newManager(store, func(id string) string { return "sess:" + id }, func(err error) bool {
		return errors.Is(err, errMissing)
	}, 15*time.Minute)
	if err != nil {
		t.Fatalf("newManager: %v", err)
	}
	return mgr
}

func TestOpenRevokeLifecycle(t *testing.T) {
	ctx := context.Background()
	store := newMemoryKV()
	mgr := newTestManager(t, store)

	accessID := NewAccessID()
	if err := mgr.Open(ctx, accessID, "uid-1"); err != nil {
		t.Fatalf("open: %v", err)
	}
	if ttl := store.ttls["sess:"+accessID]; ttl != 15*time.Minute {
		t.Fatalf("expected session ttl to match token ttl, got %v", ttl)
	}

	uid, err := mgr.Owner(ctx, " "+accessID+" ")
	if err != nil || uid != "uid-1" {
		t.Fatalf("expected owner uid-1, got %q err=%v", uid, err)
	}

	if err := mgr.Revoke(ctx, accessID); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if err := mgr.Revoke(ctx, accessID); err != nil {
		t.Fatalf("second revoke should be a no-op: %v", err)
	}
	if _, err := mgr.Owner(ctx, accessID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestOwnerSurfacesStoreErrors(t *testing.T) {
	store := newMemoryKV()
	store.err = errors.New("redis down")
	mgr := newTestManager(t, store)

	_, err := mgr.Owner(context.Background(), "abc")
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("expected store error to surface, got %v", err)
	}
}

func TestValidation(t *testing.T) {
	mgr := newTestManager(t, newMemoryKV())
	ctx := context.Background()
	if err := mgr.Open(ctx, "", "uid"); err == nil {
		t.Fatalf("expected access id validation")
	}
	if err := mgr.Open(ctx, "abc", " "); err == nil {
		t.Fatalf("expected uid validation")
	}
	if _, err := mgr.Owner(ctx, " "); err == nil {
		t.Fatalf("expected access id validation on owner")
	}
	if _, err := newManager(newMemoryKV(), nil, nil, 0); err == nil {
		t.Fatalf("expected ttl validation")
	}
}
