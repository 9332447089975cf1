package prefs

import (
	"context"
	"sync"
	"time"

	pkgerrors "github.com/angelmondragon/ecofinds-storefront/pkg/errors"
	redisclient "github.com/angelmondragon/ecofinds-storefront/pkg/redis"
)

// KV is one device's persistent local storage.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// Factory hands out the KV namespace of a device.
type Factory interface {
	ForDevice(deviceID string) KV
}

func checkQuota(key, value string, maxBytes int) error {
	if maxBytes > 0 && len(value) > maxBytes {
		return pkgerrors.New(pkgerrors.CodeQuotaExceeded, "local storage quota exceeded").
			WithDetails(map[string]any{"key": key, "bytes": len(value), "limit": maxBytes})
	}
	return nil
}

type redisStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	LocalKey(deviceID, key string) string
}

// RedisFactory keeps every device namespace in Redis under sf:local:<device>.
type RedisFactory struct {
	client   redisStore
	ttl      time.Duration
	maxBytes int
}

func NewRedisFactory(client *redisclient.Client, ttl time.Duration, maxBytes int) *RedisFactory {
	return newRedisFactory(client, ttl, maxBytes)
}

func newRedisFactory(client redisStore, ttl time.Duration, maxBytes int) *RedisFactory {
	return &RedisFactory{client: client, ttl: ttl, maxBytes: maxBytes}
}

func (f *RedisFactory) ForDevice(deviceID string) KV {
	return &RedisKV{factory: f, deviceID: deviceID}
}

// RedisKV refreshes the key TTL on every write.
type RedisKV struct {
	factory  *RedisFactory
	deviceID string
}

func (r *RedisKV) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := r.factory.client.Get(ctx, r.factory.client.LocalKey(r.deviceID, key))
	if redisclient.IsNil(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read local storage")
	}
	return value, true, nil
}

func (r *RedisKV) Set(ctx context.Context, key, value string) error {
	if err := checkQuota(key, value, r.factory.maxBytes); err != nil {
		return err
	}
	if err := r.factory.client.Set(ctx, r.factory.client.LocalKey(r.deviceID, key), value, r.factory.ttl); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write local storage")
	}
	return nil
}

func (r *RedisKV) Remove(ctx context.Context, key string) error {
	if err := r.factory.client.Del(ctx, r.factory.client.LocalKey(r.deviceID, key)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove local storage")
	}
	return nil
}

// MemoryFactory keeps device namespaces in process memory. Values survive
// controller eviction but not restarts.
type MemoryFactory struct {
	maxBytes int

	mu      sync.Mutex
	devices map[string]map[string]string
}

func NewMemoryFactory(maxBytes int) *MemoryFactory {
	return &MemoryFactory{maxBytes: maxBytes, devices: map[string]map[string]string{}}
}

func (f *MemoryFactory) ForDevice(deviceID string) KV {
	return &MemoryKV{factory: f, deviceID: deviceID}
}

type MemoryKV struct {
	factory  *MemoryFactory
	deviceID string
}

func (m *MemoryKV) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	m.factory.mu.Lock()
	defer m.factory.mu.Unlock()
	value, ok := m.factory.devices[m.deviceID][key]
	return value, ok, nil
}

func (m *MemoryKV) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkQuota(key, value, m.factory.maxBytes); err != nil {
		return err
	}
	m.factory.mu.Lock()
	defer m.factory.mu.Unlock()
	values, ok := m.factory.devices[m.deviceID]
	if !ok {
		values = map[string]string{}
		m.factory.devices[m.deviceID] = values
	}
	values[key] = value
	return nil
}

func (m *MemoryKV) Remove(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.factory.mu.Lock()
	defer m.factory.mu.Unlock()
	delete(m.factory.devices[m.deviceID], key)
	return nil
}
