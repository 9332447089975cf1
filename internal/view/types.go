package view

import (
	"math"
	"slices"
	"strings"

	"github.com/angelmondragon/ecofinds-storefront/pkg/enums"
)

// Criteria is the active filter set. MaxPrice 0 means no upper bound, so a
// max of exactly 0 never filters; +Inf is read the same way. MinPrice 0 means
// no lower bound and a +Inf min is treated as 0.
type Criteria struct {
	Text     string               `json:"text"`
	Category string               `json:"category,omitempty"`
	MinPrice float64              `json:"minPrice"`
	MaxPrice float64              `json:"maxPrice"`
	Buckets  []enums.PriceBucket  `json:"buckets"`
	Ratings  []enums.RatingFilter `json:"ratings"`
}

// Normalize clamps prices and drops unknown buckets and ratings. Negative or
// NaN prices become 0, a non-positive max is unbounded, and an inverted range
// raises max to min.
func (c Criteria) Normalize() Criteria {
	out := Criteria{
		Text:     strings.TrimSpace(c.Text),
		Category: strings.TrimSpace(c.Category),
		MinPrice: clampPrice(c.MinPrice),
		MaxPrice: clampPrice(c.MaxPrice),
		Buckets:  []enums.PriceBucket{},
		Ratings:  []enums.RatingFilter{},
	}
	if out.MaxPrice > 0 && out.MaxPrice < out.MinPrice {
		out.MaxPrice = out.MinPrice
	}
	for _, b := range c.Buckets {
		if b.IsValid() && !slices.Contains(out.Buckets, b) {
			out.Buckets = append(out.Buckets, b)
		}
	}
	for _, r := range c.Ratings {
		if r.IsValid() && !slices.Contains(out.Ratings, r) {
			out.Ratings = append(out.Ratings, r)
		}
	}
	return out
}

// IsZero reports whether the criteria match every product.
func (c Criteria) IsZero() bool {
	n := c.Normalize()
	return n.Text == "" && n.Category == "" && n.MinPrice == 0 && n.MaxPrice == 0 &&
		len(n.Buckets) == 0 && len(n.Ratings) == 0
}

func clampPrice(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if math.IsInf(v, 1) {
		return 0
	}
	return v
}
