package controllers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/ecofinds-storefront/api/middleware"
	"github.com/angelmondragon/ecofinds-storefront/api/responses"
	"github.com/angelmondragon/ecofinds-storefront/internal/listings"
	"github.com/angelmondragon/ecofinds-storefront/internal/media"
	pkgerrors "github.com/angelmondragon/ecofinds-storefront/pkg/errors"
	"github.com/angelmondragon/ecofinds-storefront/pkg/logger"
)

const multipartOverhead = 1 << 20

// ListingCreate accepts a multipart form with the listing fields and an
// optional "image" file.
func ListingCreate(svc listings.Service, maxImageBytes int64, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session := middleware.SessionFromContext(r.Context())
		if session == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "Please sign in to list a product"))
			return
		}

		if maxImageBytes <= 0 {
			maxImageBytes = media.DefaultMaxBytes
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxImageBytes+multipartOverhead)
		if err := r.ParseMultipartForm(multipartOverhead); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, fmt.Sprintf("Image size must be less than %dMB", maxImageBytes>>20)))
				return
			}
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid listing form"))
			return
		}
		defer func() { _ = r.MultipartForm.RemoveAll() }()

		price, _ := strconv.ParseFloat(strings.TrimSpace(r.FormValue("price")), 64)
		input := listings.CreateInput{
			Title:       r.FormValue("title"),
			Description: r.FormValue("description"),
			Category:    r.FormValue("category"),
			Price:       price,
			Condition:   r.FormValue("condition"),
			Tags:        r.FormValue("tags"),
		}

		upload, err := readImage(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.Create(r.Context(), *session, input, upload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, product)
	}
}

func readImage(r *http.Request) (*listings.Upload, error) {
	file, header, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid image upload")
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid image upload")
	}
	return &listings.Upload{Data: data, FileName: header.Filename}, nil
}

func ListingRemove(svc listings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session := middleware.SessionFromContext(r.Context())
		if session == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "Please sign in to manage listings"))
			return
		}
		if err := svc.Remove(r.Context(), *session, chi.URLParam(r, "productID")); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "removed"})
	}
}
