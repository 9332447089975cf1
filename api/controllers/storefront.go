package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/ecofinds-storefront/api/middleware"
	"github.com/angelmondragon/ecofinds-storefront/api/responses"
	"github.com/angelmondragon/ecofinds-storefront/api/validators"
	"github.com/angelmondragon/ecofinds-storefront/internal/storefront"
	"github.com/angelmondragon/ecofinds-storefront/internal/view"
	"github.com/angelmondragon/ecofinds-storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/ecofinds-storefront/pkg/errors"
	"github.com/angelmondragon/ecofinds-storefront/pkg/logger"
)

const maxSearchLen = 200

// Controllers hands out the per-device storefront controller.
type Controllers interface {
	Get(deviceID string) (*storefront.Controller, error)
}

// lookupController resolves the caller's controller without touching its session.
func lookupController(r *http.Request, reg Controllers) (*storefront.Controller, error) {
	if reg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "storefront unavailable")
	}
	deviceID := middleware.DeviceIDFromContext(r.Context())
	if deviceID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "device id is required")
	}
	return reg.Get(deviceID)
}

// deviceController resolves the caller's controller and syncs it with the
// request session.
func deviceController(r *http.Request, reg Controllers) (*storefront.Controller, error) {
	c, err := lookupController(r, reg)
	if err != nil {
		return nil, err
	}
	c.ApplySession(r.Context(), middleware.SessionFromContext(r.Context()))
	return c, nil
}

func CatalogRefresh(reg Controllers, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := deviceController(r, reg)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		state, err := c.Refresh(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, state)
	}
}

func CatalogMore(reg Controllers, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := deviceController(r, reg)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		state, page, err := c.LoadMore(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessMeta(w, state, page)
	}
}

func CatalogProduct(reg Controllers, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := deviceController(r, reg)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, err := c.Product(r.Context(), chi.URLParam(r, "productID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

// ViewGet returns the current view. Filter query parameters, when present,
// are applied immediately first.
func ViewGet(reg Controllers, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := deviceController(r, reg)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var state storefront.ViewState
		if query := r.URL.Query(); len(query) > 0 {
			criteria, sort := view.ParseCriteria(query)
			criteria.Text = validators.SanitizeString(criteria.Text, maxSearchLen)
			state, err = c.SetView(r.Context(), criteria, sort)
		} else {
			state, err = c.View(r.Context())
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, state)
	}
}

type setViewRequest struct {
	view.Criteria
	Sort enums.SortKey `json:"sort"`
}

func ViewSet(reg Controllers, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := deviceController(r, reg)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		body, err := validators.DecodeOptional[setViewRequest](w, r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		body.Criteria.Text = validators.SanitizeString(body.Criteria.Text, maxSearchLen)
		state, err := c.SetView(r.Context(), body.Criteria, body.Sort)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, state)
	}
}

type searchRequest struct {
	Text string `json:"text"`
}

// ViewSearch schedules a debounced text search and answers 202 with the view
// as it stands.
func ViewSearch(reg Controllers, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := deviceController(r, reg)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		body, err := validators.DecodeOptional[searchRequest](w, r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		state, err := c.Search(r.Context(), validators.SanitizeString(body.Text, maxSearchLen))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusAccepted, state)
	}
}

func Categories() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, enums.ProductCategories())
	}
}
