package cart

import (
	"time"

	"github.com/angelmondragon/ecofinds-storefront/pkg/enums"
	"github.com/shopspring/decimal"
)

// Backend says where cart state lives for the current session.
type Backend struct {
	Kind enums.CartBackend
	UID  string
}

// Remote is the per-user document backend of a signed-in session.
func Remote(uid string) Backend {
	return Backend{Kind: enums.CartBackendRemote, UID: uid}
}

// Local is the per-browser backend used while anonymous.
func Local() Backend {
	return Backend{Kind: enums.CartBackendLocal}
}

// BackendFor picks Remote when uid is set.
func BackendFor(uid string) Backend {
	if uid == "" {
		return Local()
	}
	return Remote(uid)
}

func (b Backend) IsRemote() bool {
	return b.Kind == enums.CartBackendRemote && b.UID != ""
}

type Action string

const (
	ActionAdded        Action = "added"
	ActionIncremented  Action = "incremented"
	ActionUpdated      Action = "updated"
	ActionRemoved      Action = "removed"
	ActionWishlisted   Action = "wishlisted"
	ActionUnwishlisted Action = "unwishlisted"
	ActionNoop         Action = "noop"
	ActionRejected     Action = "rejected"
)

// Reason explains a rejected or skipped operation.
type Reason string

const (
	ReasonSelfPurchase  Reason = "self-purchase"
	ReasonNotFound      Reason = "not-found"
	ReasonAlreadyInCart Reason = "already-in-cart"
)

// Outcome reports what an operation did. Fallback is set when a remote
// failure sent the operation to the local backend.
type Outcome struct {
	Action     Action            `json:"action"`
	Reason     Reason            `json:"reason,omitempty"`
	Backend    enums.CartBackend `json:"backend"`
	Fallback   bool              `json:"fallback,omitempty"`
	ProductID  string            `json:"productId"`
	Quantity   int               `json:"quantity"`
	InWishlist bool              `json:"inWishlist"`
}

// Line is one cart entry joined with its product. Available is false when
// the product is no longer listed.
type Line struct {
	ProductID  string          `json:"productId"`
	Title      string          `json:"title"`
	Price      decimal.Decimal `json:"price"`
	ImageURL   *string         `json:"imageUrl"`
	SellerID   string          `json:"sellerId"`
	SellerName string          `json:"sellerName"`
	Quantity   int             `json:"quantity"`
	Subtotal   decimal.Decimal `json:"subtotal"`
	AddedAt    time.Time       `json:"addedAt"`
	Available  bool            `json:"available"`
}

// Counts backs the header badges.
type Counts struct {
	Cart     int `json:"cart"`
	Wishlist int `json:"wishlist"`
}
