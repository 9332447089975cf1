package view

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/angelmondragon/ecofinds-storefront/pkg/enums"
)

// ParseCriteria reads criteria and the sort key from query parameters:
// q, category, minPrice, maxPrice, price (bucket, repeatable or comma
// separated), rating (repeatable or comma separated) and sort. Unparseable
// numbers are treated as unset.
func ParseCriteria(values url.Values) (Criteria, enums.SortKey) {
	c := Criteria{
		Text:     values.Get("q"),
		Category: values.Get("category"),
		MinPrice: parseFloat(values.Get("minPrice")),
		MaxPrice: parseFloat(values.Get("maxPrice")),
	}
	for _, raw := range splitValues(values["price"]) {
		c.Buckets = append(c.Buckets, enums.PriceBucket(raw))
	}
	for _, raw := range splitValues(values["rating"]) {
		c.Ratings = append(c.Ratings, enums.RatingFilter(raw))
	}
	return c.Normalize(), enums.ParseSortKey(values.Get("sort"))
}

func parseFloat(raw string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0
	}
	return v
}

func splitValues(raw []string) []string {
	var out []string
	for _, entry := range raw {
		for _, part := range strings.Split(entry, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
