package storefront

import (
	"time"

	"github.com/angelmondragon/ecofinds-storefront/internal/cart"
	"github.com/angelmondragon/ecofinds-storefront/internal/catalog"
	"github.com/angelmondragon/ecofinds-storefront/internal/view"
	"github.com/angelmondragon/ecofinds-storefront/pkg/enums"
	"github.com/shopspring/decimal"
)

// ViewState is the computed product view plus the paging state behind it.
// Generation increases every time the view is recomputed.
type ViewState struct {
	Items         []catalog.Product `json:"items"`
	Matched       int               `json:"matched"`
	Loaded        int               `json:"loaded"`
	Criteria      view.Criteria     `json:"criteria"`
	Sort          enums.SortKey     `json:"sort"`
	Generation    uint64            `json:"generation"`
	NextCursor    string            `json:"nextCursor,omitempty"`
	Exhausted     bool              `json:"exhausted"`
	Facets        view.Facets       `json:"facets"`
	SearchPending bool              `json:"searchPending"`
	ComputedAt    time.Time         `json:"computedAt"`
}

// CartView is the cart page payload.
type CartView struct {
	Items   []cart.Line     `json:"items"`
	Count   int             `json:"count"`
	Total   decimal.Decimal `json:"total"`
	Backend string          `json:"backend"`
}
