package catalog

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/angelmondragon/ecofinds-storefront/pkg/enums"
)

// Fixture is one product entry of a YAML seed file.
type Fixture struct {
	ID          string   `yaml:"id"`
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	Category    string   `yaml:"category"`
	Price       float64  `yaml:"price"`
	Condition   string   `yaml:"condition"`
	Tags        []string `yaml:"tags"`
	Rating      float64  `yaml:"rating"`
	Reviews     int      `yaml:"reviews"`
	ImageURL    string   `yaml:"imageUrl"`
}

// FixtureFile is the top level of a seed file. Every product gets the seller
// and is created one minute after the previous one, starting at CreatedAt.
type FixtureFile struct {
	SellerID   string    `yaml:"sellerId"`
	SellerName string    `yaml:"sellerName"`
	CreatedAt  time.Time `yaml:"createdAt"`
	Products   []Fixture `yaml:"products"`
}

// LoadFixtures decodes and validates a seed file. All invalid entries are
// reported together.
func LoadFixtures(r io.Reader) ([]Product, error) {
	var file FixtureFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("decode fixtures: %w", err)
	}
	if file.SellerID == "" {
		return nil, fmt.Errorf("fixtures: sellerId is required")
	}
	if file.CreatedAt.IsZero() {
		file.CreatedAt = time.Now().UTC()
	}

	var errs error
	seen := map[string]bool{}
	products := make([]Product, 0, len(file.Products))
	for i, f := range file.Products {
		p, err := file.product(i, f)
		if err == nil && seen[p.ID] {
			err = fmt.Errorf("duplicate id %q", p.ID)
		}
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("fixture %d: %w", i, err))
			continue
		}
		seen[p.ID] = true
		products = append(products, p)
	}
	if errs != nil {
		return nil, errs
	}
	return products, nil
}

func (file FixtureFile) product(i int, f Fixture) (Product, error) {
	id := strings.TrimSpace(f.ID)
	title := strings.TrimSpace(f.Title)
	switch {
	case id == "":
		return Product{}, fmt.Errorf("id is required")
	case title == "":
		return Product{}, fmt.Errorf("title is required")
	case f.Price < 0:
		return Product{}, fmt.Errorf("price must not be negative")
	}
	category, err := enums.ParseProductCategory(f.Category)
	if err != nil {
		return Product{}, err
	}

	createdAt := file.CreatedAt.Add(time.Duration(i) * time.Minute).UTC()
	p := Product{
		ID:          id,
		Title:       title,
		Description: strings.TrimSpace(f.Description),
		Category:    string(category),
		Price:       f.Price,
		Tags:        f.Tags,
		Rating:      f.Rating,
		Reviews:     f.Reviews,
		SellerID:    file.SellerID,
		SellerName:  file.SellerName,
		Status:      enums.ProductStatusAvailable,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
	if f.Condition != "" {
		p.Condition = &f.Condition
	}
	if f.ImageURL != "" {
		p.ImageURL = &f.ImageURL
	}
	return p.Clone(), nil
}

// Seed saves every product, replacing documents with the same id, and
// returns how many were written.
func Seed(ctx context.Context, repo *Repository, products []Product) (int, error) {
	written := 0
	for _, p := range products {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		if err := repo.Save(ctx, p); err != nil {
			return written, fmt.Errorf("save %s: %w", p.ID, err)
		}
		written++
	}
	return written, nil
}
