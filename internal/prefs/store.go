// Package prefs holds the per-browser state that survives sign-out: the
// anonymous cart, the anonymous wishlist and a snapshot of the signed-in user.
package prefs

import (
	"context"
	"encoding/json"
	"time"

	pkgerrors "github.com/angelmondragon/ecofinds-storefront/pkg/errors"
	"github.com/angelmondragon/ecofinds-storefront/pkg/logger"
)

const (
	KeyCart        = "cart"
	KeyWishlist    = "wishlist"
	KeyCurrentUser = "currentUser"
)

// CartItem is a denormalized cart line so the local cart renders without the
// catalog.
type CartItem struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Price      float64   `json:"price"`
	ImageURL   *string   `json:"imageUrl"`
	SellerID   string    `json:"sellerId"`
	SellerName string    `json:"sellerName"`
	Quantity   int       `json:"quantity"`
	AddedAt    time.Time `json:"addedAt"`
}

// UserSnapshot mirrors the active session for the UI.
type UserSnapshot struct {
	UID         string    `json:"uid"`
	Email       string    `json:"email"`
	DisplayName string    `json:"displayName"`
	Username    string    `json:"username,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

type Store struct {
	kv   KV
	logg *logger.Logger
}

func NewStore(kv KV, logg *logger.Logger) *Store {
	if logg == nil {
		logg = logger.Nop()
	}
	return &Store{kv: kv, logg: logg}
}

// Cart returns the local cart with one line per product, keeping the first
// line stored for an id. Unreadable contents are logged and read as empty.
func (s *Store) Cart(ctx context.Context) ([]CartItem, error) {
	var items []CartItem
	ok, err := s.read(ctx, KeyCart, &items)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []CartItem{}, nil
	}
	seen := make(map[string]struct{}, len(items))
	out := make([]CartItem, 0, len(items))
	for _, item := range items {
		if item.ID == "" || item.Quantity <= 0 {
			continue
		}
		if _, dup := seen[item.ID]; dup {
			continue
		}
		seen[item.ID] = struct{}{}
		out = append(out, item)
	}
	return out, nil
}

func (s *Store) SaveCart(ctx context.Context, items []CartItem) error {
	if items == nil {
		items = []CartItem{}
	}
	return s.write(ctx, KeyCart, items)
}

// Wishlist returns the local wishlist ids in insertion order without duplicates.
func (s *Store) Wishlist(ctx context.Context) ([]string, error) {
	var ids []string
	ok, err := s.read(ctx, KeyWishlist, &ids)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []string{}, nil
	}
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup || id == "" {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out, nil
}

func (s *Store) SaveWishlist(ctx context.Context, ids []string) error {
	if ids == nil {
		ids = []string{}
	}
	return s.write(ctx, KeyWishlist, ids)
}

// CurrentUser returns nil when no snapshot is stored.
func (s *Store) CurrentUser(ctx context.Context) (*UserSnapshot, error) {
	var snap *UserSnapshot
	ok, err := s.read(ctx, KeyCurrentUser, &snap)
	if err != nil {
		return nil, err
	}
	if !ok || snap == nil || snap.UID == "" {
		return nil, nil
	}
	return snap, nil
}

func (s *Store) SaveCurrentUser(ctx context.Context, snap UserSnapshot) error {
	return s.write(ctx, KeyCurrentUser, snap)
}

func (s *Store) ClearCurrentUser(ctx context.Context) error {
	return s.kv.Remove(ctx, KeyCurrentUser)
}

// read decodes key into dest and reports whether a usable value was found.
func (s *Store) read(ctx context.Context, key string, dest any) (bool, error) {
	raw, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		return false, err
	}
	if !ok || raw == "" {
		return false, nil
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		s.logg.WarnErr(s.logg.WithField(ctx, "key", key), "prefs.parse_failed", err)
		return false, nil
	}
	return true, nil
}

func (s *Store) write(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode local value")
	}
	return s.kv.Set(ctx, key, string(raw))
}
