package enums

import "testing"

func TestParseProductCategory(t *testing.T) {
	cat, err := ParseProductCategory("Home & Garden")
	if err != nil || cat != ProductCategoryHomeGarden {
		t.Fatalf("unexpected result %q err=%v", cat, err)
	}
	if _, err := ParseProductCategory("home & garden"); err == nil {
		t.Fatalf("category match should be exact")
	}
	if len(ProductCategories()) != 10 {
		t.Fatalf("expected 10 categories")
	}
}

func TestParseSortKey(t *testing.T) {
	cases := map[string]SortKey{
		"":           SortNewest,
		"name":       SortTitle,
		"Price-High": SortPriceHigh,
		"bogus":      SortNewest,
		"rating":     SortRating,
	}
	for in, want := range cases {
		if got := ParseSortKey(in); got != want {
			t.Fatalf("ParseSortKey(%q) = %q want %q", in, got, want)
		}
	}
}

func TestPriceBucketBoundaries(t *testing.T) {
	cases := []struct {
		bucket PriceBucket
		price  float64
		want   bool
	}{
		{PriceBucketUnder1000, 999.99, true},
		{PriceBucketUnder1000, 1000, false},
		{PriceBucket1000To2500, 1000, true},
		{PriceBucket1000To2500, 2500, true},
		{PriceBucket2500To5000, 2500, true},
		{PriceBucket2500To5000, 5000, true},
		{PriceBucketOver5000, 5000, false},
		{PriceBucketOver5000, 5000.01, true},
		{PriceBucket("cheap"), 1, false},
	}
	for _, tc := range cases {
		if got := tc.bucket.Contains(tc.price); got != tc.want {
			t.Fatalf("%s.Contains(%v) = %v want %v", tc.bucket, tc.price, got, tc.want)
		}
	}
}

func TestRatingFilterMin(t *testing.T) {
	if Rating4Plus.Min() != 4 || Rating3Plus.Min() != 3 {
		t.Fatalf("unexpected thresholds")
	}
	if RatingFilter("5+").IsValid() {
		t.Fatalf("5+ is not offered")
	}
}

func TestParseDuplicatePolicy(t *testing.T) {
	if ParseDuplicatePolicy("REJECT") != DuplicateReject {
		t.Fatalf("expected reject")
	}
	if ParseDuplicatePolicy("") != DuplicateIncrement {
		t.Fatalf("expected increment default")
	}
}
