package view

import (
	"github.com/angelmondragon/ecofinds-storefront/internal/catalog"
	"github.com/angelmondragon/ecofinds-storefront/pkg/enums"
)

// Facets holds the counts shown next to each filter option.
type Facets struct {
	Total      int                       `json:"total"`
	Categories map[string]int            `json:"categories"`
	Buckets    map[enums.PriceBucket]int `json:"buckets"`
}

// CountFacets tallies products per category and price bucket. Every known
// category and bucket is present, zero when empty.
func CountFacets(products []catalog.Product) Facets {
	f := Facets{
		Total:      len(products),
		Categories: map[string]int{},
		Buckets:    map[enums.PriceBucket]int{},
	}
	for _, c := range enums.ProductCategories() {
		f.Categories[c.String()] = 0
	}
	buckets := enums.PriceBuckets()
	for _, b := range buckets {
		f.Buckets[b] = 0
	}
	for _, p := range products {
		f.Categories[p.Category]++
		for _, b := range buckets {
			if b.Contains(p.Price) {
				f.Buckets[b]++
			}
		}
	}
	return f
}
