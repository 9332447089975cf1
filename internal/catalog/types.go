package catalog

import (
	"slices"
	"time"

	"github.com/angelmondragon/ecofinds-storefront/pkg/docstore"
	"github.com/angelmondragon/ecofinds-storefront/pkg/enums"
)

// Collection holds product documents.
const Collection = "products"

// Product is an immutable listing snapshot; copies are handed out so callers
// never share the cached tag slice.
type Product struct {
	ID          string              `json:"id"`
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Category    string              `json:"category"`
	Price       float64             `json:"price"`
	ImageURL    *string             `json:"imageUrl"`
	Condition   *string             `json:"condition"`
	Tags        []string            `json:"tags"`
	Rating      float64             `json:"rating"`
	Reviews     int                 `json:"reviews"`
	SellerID    string              `json:"sellerId"`
	SellerName  string              `json:"sellerName"`
	Status      enums.ProductStatus `json:"status"`
	CreatedAt   time.Time           `json:"createdAt"`
	UpdatedAt   time.Time           `json:"updatedAt"`
}

// Clone returns a deep copy.
func (p Product) Clone() Product {
	p.Tags = slices.Clone(p.Tags)
	if p.Tags == nil {
		p.Tags = []string{}
	}
	if p.ImageURL != nil {
		v := *p.ImageURL
		p.ImageURL = &v
	}
	if p.Condition != nil {
		v := *p.Condition
		p.Condition = &v
	}
	return p
}

// FromDocument decodes a stored product, tolerating missing optional fields.
// Negative prices are clamped to zero.
func FromDocument(doc docstore.Document) Product {
	d := doc.Data
	price := docstore.AsFloat(d["price"])
	if price < 0 {
		price = 0
	}
	tags := docstore.AsStrings(d["tags"])
	if tags == nil {
		tags = []string{}
	}
	status := enums.ProductStatus(docstore.AsString(d["status"]))
	if !status.IsValid() {
		status = enums.ProductStatusAvailable
	}
	return Product{
		ID:          doc.ID,
		Title:       docstore.AsString(d["title"]),
		Description: docstore.AsString(d["description"]),
		Category:    docstore.AsString(d["category"]),
		Price:       price,
		ImageURL:    docstore.AsStringPtr(d["imageUrl"]),
		Condition:   docstore.AsStringPtr(d["condition"]),
		Tags:        tags,
		Rating:      docstore.AsFloat(d["rating"]),
		Reviews:     docstore.AsInt(d["reviews"]),
		SellerID:    docstore.AsString(d["sellerId"]),
		SellerName:  docstore.AsString(d["sellerName"]),
		Status:      status,
		CreatedAt:   docstore.AsTime(d["createdAt"]),
		UpdatedAt:   docstore.AsTime(d["updatedAt"]),
	}
}

// Document encodes the product for storage. The id lives in the document key.
func (p Product) Document() map[string]any {
	data := map[string]any{
		"title":       p.Title,
		"description": p.Description,
		"category":    p.Category,
		"price":       p.Price,
		"tags":        slices.Clone(p.Tags),
		"rating":      p.Rating,
		"reviews":     p.Reviews,
		"sellerId":    p.SellerID,
		"sellerName":  p.SellerName,
		"status":      string(p.Status),
		"createdAt":   p.CreatedAt.UTC(),
		"updatedAt":   p.UpdatedAt.UTC(),
	}
	if p.ImageURL != nil {
		data["imageUrl"] = *p.ImageURL
	} else {
		data["imageUrl"] = nil
	}
	if p.Condition != nil {
		data["condition"] = *p.Condition
	} else {
		data["condition"] = nil
	}
	return data
}
