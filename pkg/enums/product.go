package enums

import "fmt"

// ProductCategory represents the fixed categories sellers can list under.
type ProductCategory string

const (
	ProductCategoryElectronics ProductCategory = "Electronics"
	ProductCategoryClothing    ProductCategory = "Clothing & Accessories"
	ProductCategoryHomeGarden  ProductCategory = "Home & Garden"
	ProductCategoryBooksMedia  ProductCategory = "Books & Media"
	ProductCategorySports      ProductCategory = "Sports & Outdoors"
	ProductCategoryToysGames   ProductCategory = "Toys & Games"
	ProductCategoryHealth      ProductCategory = "Health & Beauty"
	ProductCategoryAutomotive  ProductCategory = "Automotive"
	ProductCategoryArtCrafts   ProductCategory = "Art & Crafts"
	ProductCategoryOther       ProductCategory = "Other"
)

var validProductCategories = []ProductCategory{
	ProductCategoryElectronics,
	ProductCategoryClothing,
	ProductCategoryHomeGarden,
	ProductCategoryBooksMedia,
	ProductCategorySports,
	ProductCategoryToysGames,
	ProductCategoryHealth,
	ProductCategoryAutomotive,
	ProductCategoryArtCrafts,
	ProductCategoryOther,
}

// ProductCategories returns the categories in display order.
func ProductCategories() []ProductCategory {
	out := make([]ProductCategory, len(validProductCategories))
	copy(out, validProductCategories)
	return out
}

// String implements fmt.Stringer.
func (c ProductCategory) String() string {
	return string(c)
}

// IsValid reports whether the value is a known ProductCategory.
func (c ProductCategory) IsValid() bool {
	for _, candidate := range validProductCategories {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseProductCategory converts raw input into a ProductCategory.
func ParseProductCategory(value string) (ProductCategory, error) {
	for _, candidate := range validProductCategories {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid product category %q", value)
}

// ProductStatus gates catalog visibility.
type ProductStatus string

const (
	ProductStatusAvailable ProductStatus = "available"
	ProductStatusRemoved   ProductStatus = "removed"
)

func (s ProductStatus) String() string {
	return string(s)
}

func (s ProductStatus) IsValid() bool {
	return s == ProductStatusAvailable || s == ProductStatusRemoved
}

// DefaultProductCondition is applied when a listing omits its condition.
const DefaultProductCondition = "Good"
