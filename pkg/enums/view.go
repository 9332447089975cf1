package enums

import "strings"

// SortKey selects the ordering of the product view.
type SortKey string

const (
	SortNewest    SortKey = "newest"
	SortOldest    SortKey = "oldest"
	SortPriceLow  SortKey = "price-low"
	SortPriceHigh SortKey = "price-high"
	SortTitle     SortKey = "title"
	SortRating    SortKey = "rating"
)

var sortAliases = map[string]SortKey{
	"newest":     SortNewest,
	"oldest":     SortOldest,
	"price-low":  SortPriceLow,
	"price-high": SortPriceHigh,
	"title":      SortTitle,
	"name":       SortTitle,
	"rating":     SortRating,
}

func (k SortKey) String() string {
	return string(k)
}

func (k SortKey) IsValid() bool {
	_, ok := sortAliases[string(k)]
	return ok && k != "name"
}

// ParseSortKey resolves aliases and falls back to newest for unknown input.
func ParseSortKey(value string) SortKey {
	if key, ok := sortAliases[strings.ToLower(strings.TrimSpace(value))]; ok {
		return key
	}
	return SortNewest
}

// PriceBucket is one of the fixed price ranges offered by the filter bar.
type PriceBucket string

const (
	PriceBucketUnder1000  PriceBucket = "0-1000"
	PriceBucket1000To2500 PriceBucket = "1000-2500"
	PriceBucket2500To5000 PriceBucket = "2500-5000"
	PriceBucketOver5000   PriceBucket = "5000+"
)

var validPriceBuckets = []PriceBucket{
	PriceBucketUnder1000,
	PriceBucket1000To2500,
	PriceBucket2500To5000,
	PriceBucketOver5000,
}

// PriceBuckets returns the buckets in display order.
func PriceBuckets() []PriceBucket {
	out := make([]PriceBucket, len(validPriceBuckets))
	copy(out, validPriceBuckets)
	return out
}

func (b PriceBucket) IsValid() bool {
	for _, candidate := range validPriceBuckets {
		if candidate == b {
			return true
		}
	}
	return false
}

// Contains reports whether price falls in the bucket. The lower bucket is
// exclusive at 1000 and the top bucket exclusive at 5000; the middle two are
// inclusive at both ends.
func (b PriceBucket) Contains(price float64) bool {
	switch b {
	case PriceBucketUnder1000:
		return price < 1000
	case PriceBucket1000To2500:
		return price >= 1000 && price <= 2500
	case PriceBucket2500To5000:
		return price >= 2500 && price <= 5000
	case PriceBucketOver5000:
		return price > 5000
	default:
		return false
	}
}

// RatingFilter is a minimum-rating threshold.
type RatingFilter string

const (
	Rating3Plus RatingFilter = "3+"
	Rating4Plus RatingFilter = "4+"
)

func (r RatingFilter) IsValid() bool {
	return r == Rating3Plus || r == Rating4Plus
}

// Min returns the inclusive threshold.
func (r RatingFilter) Min() float64 {
	switch r {
	case Rating3Plus:
		return 3
	case Rating4Plus:
		return 4
	default:
		return 0
	}
}
