package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/ecofinds-storefront/pkg/config"
	redisclient "github.com/angelmondragon/ecofinds-storefront/pkg/redis"
	"github.com/google/uuid"
)

// ErrNotFound means the access session expired or was revoked.
var ErrNotFound = errors.New("session not found")

type kv interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

// Manager keeps one Redis entry per issued access token, keyed by its jti
// and holding the owner uid. Entries expire with their token.
type Manager struct {
	kv    kv
	key   func(accessID string) string
	isNil func(error) bool
	ttl   time.Duration
}

func NewManager(client *redisclient.Client, cfg config.JWTConfig) (*Manager, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	return newManager(client, client.AccessSessionKey, redisclient.IsNil, cfg.AccessTokenTTL())
}

func newManager(store kv, key func(string) string, isNil func(error) bool, ttl time.Duration) (*Manager, error) {
	if ttl <= 0 {
		return nil, fmt.Errorf("access token ttl must be positive")
	}
	return &Manager{kv: store, key: key, isNil: isNil, ttl: ttl}, nil
}

func (m *Manager) Open(ctx context.Context, accessID, uid string) error {
	accessID, err := requireID(accessID)
	if err != nil {
		return err
	}
	if strings.TrimSpace(uid) == "" {
		return fmt.Errorf("uid is required")
	}
	return m.kv.Set(ctx, m.key(accessID), uid, m.ttl)
}

// Revoke is idempotent.
func (m *Manager) Revoke(ctx context.Context, accessID string) error {
	accessID, err := requireID(accessID)
	if err != nil {
		return err
	}
	return m.kv.Del(ctx, m.key(accessID))
}

// Owner returns the uid the session was opened for, or ErrNotFound.
func (m *Manager) Owner(ctx context.Context, accessID string) (string, error) {
	accessID, err := requireID(accessID)
	if err != nil {
		return "", err
	}
	uid, err := m.kv.Get(ctx, m.key(accessID))
	switch {
	case err == nil:
		return uid, nil
	case m.isNil(err):
		return "", ErrNotFound
	default:
		return "", fmt.Errorf("read session: %w", err)
	}
}

// NewAccessID produces the identifier used as the JWT jti and Redis key.
func NewAccessID() string {
	return uuid.NewString()
}

func requireID(accessID string) (string, error) {
	accessID = strings.TrimSpace(accessID)
	if accessID == "" {
		return "", fmt.Errorf("access id is required")
	}
	return accessID, nil
}
