// Package listings lets signed-in sellers publish and withdraw products.
package listings

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/angelmondragon/ecofinds-storefront/internal/catalog"
	"github.com/angelmondragon/ecofinds-storefront/internal/identity"
	"github.com/angelmondragon/ecofinds-storefront/internal/media"
	"github.com/angelmondragon/ecofinds-storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/ecofinds-storefront/pkg/errors"
	"github.com/angelmondragon/ecofinds-storefront/pkg/logger"
)

// ProductStore persists listings.
type ProductStore interface {
	Create(ctx context.Context, p catalog.Product) (string, error)
	Save(ctx context.Context, p catalog.Product) error
	FindByID(ctx context.Context, id string) (catalog.Product, error)
}

// CreateInput is the listing form.
type CreateInput struct {
	Title       string  `json:"title" validate:"min=5,max=100"`
	Description string  `json:"description" validate:"min=10,max=1000"`
	Category    string  `json:"category" validate:"required,category"`
	Price       float64 `json:"price" validate:"gt=0,lte=10000"`
	Condition   string  `json:"condition" validate:"max=50"`
	Tags        string  `json:"tags" validate:"max=500"`
}

// Upload is the optional image attached to a listing.
type Upload struct {
	Data     []byte
	FileName string
}

type Service interface {
	Create(ctx context.Context, seller identity.Session, input CreateInput, image *Upload) (catalog.Product, error)
	Remove(ctx context.Context, seller identity.Session, productID string) error
	Categories() []enums.ProductCategory
}

type ServiceParams struct {
	Products      ProductStore
	Uploader      media.Uploader
	MaxImageBytes int64
	Logger        *logger.Logger
	Now           func() time.Time
}

type service struct {
	products ProductStore
	uploader media.Uploader
	maxBytes int64
	validate *validator.Validate
	logg     *logger.Logger
	now      func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Products == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product store is required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		products: params.Products,
		uploader: params.Uploader,
		maxBytes: params.MaxImageBytes,
		validate: newValidator(),
		logg:     logg,
		now:      now,
	}, nil
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" {
			return f.Name
		}
		return tag
	})
	_ = v.RegisterValidation("category", func(fl validator.FieldLevel) bool {
		return enums.ProductCategory(fl.Field().String()).IsValid()
	})
	return v
}

var fieldMessages = map[string]map[string]string{
	"title": {
		"min": "Title must be at least 5 characters long",
		"max": "Title must be less than 100 characters",
	},
	"description": {
		"min": "Description must be at least 10 characters long",
		"max": "Description must be less than 1000 characters",
	},
	"category": {
		"required": "Please select a category",
		"category": "Please select a category",
	},
	"price": {
		"gt":  "Please enter a valid price greater than $0",
		"lte": "Price cannot exceed $10,000",
	},
}

func (s *service) check(input CreateInput) error {
	err := s.validate.Struct(input)
	if err == nil {
		return nil
	}
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "validation failed")
	}
	details := map[string]string{}
	for _, fe := range errs {
		msg := fieldMessages[fe.Field()][fe.Tag()]
		if msg == "" {
			msg = "is invalid"
		}
		details[fe.Field()] = msg
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(details)
}

func (s *service) Create(ctx context.Context, seller identity.Session, input CreateInput, image *Upload) (catalog.Product, error) {
	if seller.UID == "" {
		return catalog.Product{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "Please sign in to list a product")
	}
	input.Title = strings.TrimSpace(input.Title)
	input.Description = strings.TrimSpace(input.Description)
	input.Category = strings.TrimSpace(input.Category)
	input.Condition = strings.TrimSpace(input.Condition)
	if err := s.check(input); err != nil {
		return catalog.Product{}, err
	}

	var imageURL *string
	if image != nil && len(image.Data) > 0 {
		if s.uploader == nil {
			return catalog.Product{}, pkgerrors.New(pkgerrors.CodeDependency, "image uploads are not configured")
		}
		contentType, err := media.ValidateImage(image.Data, s.maxBytes)
		if err != nil {
			return catalog.Product{}, err
		}
		hosted, err := s.uploader.Upload(ctx, media.Image{Data: image.Data, FileName: image.FileName, ContentType: contentType})
		if err != nil {
			s.logg.Error(s.logg.WithUserID(ctx, seller.UID), "listings.image_upload_failed", err)
			return catalog.Product{}, err
		}
		imageURL = &hosted
	}

	condition := input.Condition
	if condition == "" {
		condition = enums.DefaultProductCondition
	}
	now := s.now().UTC()
	product := catalog.Product{
		Title:       input.Title,
		Description: input.Description,
		Category:    input.Category,
		Price:       input.Price,
		ImageURL:    imageURL,
		Condition:   &condition,
		Tags:        SplitTags(input.Tags),
		SellerID:    seller.UID,
		SellerName:  sellerName(seller),
		Status:      enums.ProductStatusAvailable,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	id, err := s.products.Create(ctx, product)
	if err != nil {
		return catalog.Product{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "Failed to save product")
	}
	product.ID = id
	return product, nil
}

func (s *service) Remove(ctx context.Context, seller identity.Session, productID string) error {
	if seller.UID == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "Please sign in to manage listings")
	}
	product, err := s.products.FindByID(ctx, productID)
	if errors.Is(err, catalog.ErrProductNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if product.SellerID != seller.UID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only the seller can remove this listing")
	}
	if product.Status == enums.ProductStatusRemoved {
		return nil
	}
	product.Status = enums.ProductStatusRemoved
	product.UpdatedAt = s.now().UTC()
	if err := s.products.Save(ctx, product); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove product")
	}
	return nil
}

func (s *service) Categories() []enums.ProductCategory {
	return enums.ProductCategories()
}

// SplitTags splits a comma separated list, dropping blanks.
func SplitTags(raw string) []string {
	tags := []string{}
	for _, tag := range strings.Split(raw, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

func sellerName(s identity.Session) string {
	for _, name := range []string{s.Username, s.DisplayName, s.Email} {
		if name = strings.TrimSpace(name); name != "" {
			return name
		}
	}
	return "User"
}
