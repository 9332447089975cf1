// Package view filters and orders the cached catalog. Everything here is pure:
// the same products, criteria and sort key always produce the same slice.
package view

import (
	"cmp"
	"slices"
	"strings"

	"github.com/angelmondragon/ecofinds-storefront/internal/catalog"
	"github.com/angelmondragon/ecofinds-storefront/pkg/enums"
	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Engine applies criteria with locale-aware text handling.
type Engine struct {
	tag language.Tag
}

// NewEngine builds an engine for the BCP 47 locale, defaulting to English.
func NewEngine(locale string) Engine {
	tag, err := language.Parse(strings.TrimSpace(locale))
	if err != nil || locale == "" {
		tag = language.English
	}
	return Engine{tag: tag}
}

// Apply filters with the English engine.
func Apply(products []catalog.Product, criteria Criteria, sort enums.SortKey) []catalog.Product {
	return NewEngine("en").Apply(products, criteria, sort)
}

// Apply returns the products matching every predicate, ordered by sort. The
// input is not modified and ties keep their input order.
func (e Engine) Apply(products []catalog.Product, criteria Criteria, sort enums.SortKey) []catalog.Product {
	m := e.newMatcher(criteria.Normalize())
	out := make([]catalog.Product, 0, len(products))
	for _, p := range products {
		if m.match(p) {
			out = append(out, p.Clone())
		}
	}
	e.sort(out, sort)
	return out
}

type matcher struct {
	criteria Criteria
	folder   cases.Caser
	needle   string
}

func (e Engine) newMatcher(c Criteria) *matcher {
	m := &matcher{criteria: c, folder: cases.Fold()}
	if c.Text != "" {
		m.needle = m.folder.String(c.Text)
	}
	return m
}

func (m *matcher) match(p catalog.Product) bool {
	return m.matchText(p) && m.matchCategory(p) && m.matchPrice(p) && m.matchBuckets(p) && m.matchRatings(p)
}

func (m *matcher) matchText(p catalog.Product) bool {
	if m.needle == "" {
		return true
	}
	if m.contains(p.Title) || m.contains(p.Description) || m.contains(p.Category) {
		return true
	}
	for _, tag := range p.Tags {
		if m.contains(tag) {
			return true
		}
	}
	return false
}

func (m *matcher) contains(haystack string) bool {
	return strings.Contains(m.folder.String(haystack), m.needle)
}

func (m *matcher) matchCategory(p catalog.Product) bool {
	return m.criteria.Category == "" || p.Category == m.criteria.Category
}

func (m *matcher) matchPrice(p catalog.Product) bool {
	if p.Price < m.criteria.MinPrice {
		return false
	}
	return m.criteria.MaxPrice == 0 || p.Price <= m.criteria.MaxPrice
}

func (m *matcher) matchBuckets(p catalog.Product) bool {
	if len(m.criteria.Buckets) == 0 {
		return true
	}
	for _, b := range m.criteria.Buckets {
		if b.Contains(p.Price) {
			return true
		}
	}
	return false
}

func (m *matcher) matchRatings(p catalog.Product) bool {
	if len(m.criteria.Ratings) == 0 {
		return true
	}
	for _, r := range m.criteria.Ratings {
		if p.Rating >= r.Min() {
			return true
		}
	}
	return false
}

func (e Engine) sort(items []catalog.Product, key enums.SortKey) {
	switch enums.ParseSortKey(string(key)) {
	case enums.SortOldest:
		slices.SortStableFunc(items, func(a, b catalog.Product) int {
			return a.CreatedAt.Compare(b.CreatedAt)
		})
	case enums.SortPriceLow:
		slices.SortStableFunc(items, func(a, b catalog.Product) int {
			return cmp.Compare(a.Price, b.Price)
		})
	case enums.SortPriceHigh:
		slices.SortStableFunc(items, func(a, b catalog.Product) int {
			return cmp.Compare(b.Price, a.Price)
		})
	case enums.SortTitle:
		col := collate.New(e.tag, collate.IgnoreCase)
		slices.SortStableFunc(items, func(a, b catalog.Product) int {
			return col.CompareString(a.Title, b.Title)
		})
	case enums.SortRating:
		slices.SortStableFunc(items, func(a, b catalog.Product) int {
			return cmp.Compare(b.Rating, a.Rating)
		})
	default:
		slices.SortStableFunc(items, func(a, b catalog.Product) int {
			return b.CreatedAt.Compare(a.CreatedAt)
		})
	}
}
