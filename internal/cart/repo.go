package cart

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/angelmondragon/ecofinds-storefront/pkg/docstore"
)

// Collection holds one cart document per user, keyed by uid.
const Collection = "carts"

type RemoteItem struct {
	ProductID string
	Quantity  int
	AddedAt   time.Time
}

// RemoteCart is the carts/{uid} document.
type RemoteCart struct {
	UserID    string
	Items     []RemoteItem
	Wishlist  []string
	UpdatedAt time.Time
}

func (c *RemoteCart) find(productID string) int {
	return slices.IndexFunc(c.Items, func(it RemoteItem) bool { return it.ProductID == productID })
}

// Repository reads and writes whole cart documents. Writes replace the
// document, so concurrent writers for the same user race and the last wins.
type Repository struct {
	store docstore.Store
}

func NewRepository(store docstore.Store) *Repository {
	return &Repository{store: store}
}

// Load returns an empty cart when the user has no document yet.
func (r *Repository) Load(ctx context.Context, uid string) (RemoteCart, error) {
	doc, err := r.store.Get(ctx, Collection, uid)
	if errors.Is(err, docstore.ErrNotFound) {
		return RemoteCart{UserID: uid, Items: []RemoteItem{}, Wishlist: []string{}}, nil
	}
	if err != nil {
		return RemoteCart{}, err
	}

	cart := RemoteCart{
		UserID:    uid,
		Items:     []RemoteItem{},
		Wishlist:  []string{},
		UpdatedAt: docstore.AsTime(doc.Data["updatedAt"]),
	}
	for _, raw := range docstore.AsMaps(doc.Data["items"]) {
		item := RemoteItem{
			ProductID: docstore.AsString(raw["productId"]),
			Quantity:  docstore.AsInt(raw["quantity"]),
			AddedAt:   docstore.AsTime(raw["addedAt"]),
		}
		if item.ProductID == "" || item.Quantity <= 0 || cart.find(item.ProductID) >= 0 {
			continue
		}
		cart.Items = append(cart.Items, item)
	}
	for _, id := range docstore.AsStrings(doc.Data["wishlist"]) {
		if id != "" && !slices.Contains(cart.Wishlist, id) {
			cart.Wishlist = append(cart.Wishlist, id)
		}
	}
	return cart, nil
}

func (r *Repository) Save(ctx context.Context, cart RemoteCart) error {
	items := make([]any, 0, len(cart.Items))
	for _, it := range cart.Items {
		items = append(items, map[string]any{
			"productId": it.ProductID,
			"quantity":  it.Quantity,
			"addedAt":   it.AddedAt.UTC(),
		})
	}
	wishlist := make([]any, 0, len(cart.Wishlist))
	for _, id := range cart.Wishlist {
		wishlist = append(wishlist, id)
	}
	return r.store.Set(ctx, Collection, cart.UserID, map[string]any{
		"userId":    cart.UserID,
		"items":     items,
		"wishlist":  wishlist,
		"updatedAt": cart.UpdatedAt.UTC(),
	})
}
