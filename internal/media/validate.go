package media

import (
	"fmt"
	"slices"

	"github.com/gabriel-vasile/mimetype"

	pkgerrors "github.com/angelmondragon/ecofinds-storefront/pkg/errors"
)

// DefaultMaxBytes is the hosting limit for a single product image.
const DefaultMaxBytes int64 = 10 * 1024 * 1024

var imageTypes = []string{"image/jpeg", "image/png", "image/webp", "image/gif"}

// ImageTypes lists the accepted content types.
func ImageTypes() []string {
	return slices.Clone(imageTypes)
}

// ValidateImage sniffs the content type from the bytes and enforces the size
// cap. It returns the detected content type.
func ValidateImage(data []byte, maxBytes int64) (string, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if len(data) == 0 {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "Please select a valid image file")
	}
	if int64(len(data)) > maxBytes {
		return "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("Image size must be less than %dMB", maxBytes/(1024*1024))).
			WithDetails(map[string]any{"bytes": len(data), "limit": maxBytes})
	}
	detected := mimetype.Detect(data)
	for _, allowed := range imageTypes {
		if detected.Is(allowed) {
			return allowed, nil
		}
	}
	return "", pkgerrors.New(pkgerrors.CodeValidation, "Please select a valid image file").
		WithDetails(map[string]any{"content_type": detected.String(), "allowed": ImageTypes()})
}
