package controllers

import (
	"net/http"

	"github.com/angelmondragon/ecofinds-storefront/api/middleware"
	"github.com/angelmondragon/ecofinds-storefront/api/responses"
	"github.com/angelmondragon/ecofinds-storefront/api/validators"
	"github.com/angelmondragon/ecofinds-storefront/internal/identity"
	pkgerrors "github.com/angelmondragon/ecofinds-storefront/pkg/errors"
	"github.com/angelmondragon/ecofinds-storefront/pkg/logger"
)

const tokenHeader = "X-EcoFinds-Token"

func AuthSignUp(svc identity.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "identity service unavailable"))
			return
		}

		body, err := validators.Decode[identity.SignUpInput](w, r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.SignUp(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		w.Header().Set(tokenHeader, result.AccessToken)
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

func AuthSignIn(svc identity.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "identity service unavailable"))
			return
		}

		body, err := validators.Decode[identity.SignInInput](w, r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.SignIn(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		w.Header().Set(tokenHeader, result.AccessToken)
		responses.WriteSuccess(w, result)
	}
}

// AuthSignOut revokes the caller's session. Listeners move the device back to
// the anonymous state.
func AuthSignOut(svc identity.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal := middleware.PrincipalFromContext(r.Context())
		if principal == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}
		if err := svc.SignOut(r.Context(), *principal); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "signed_out"})
	}
}

type sessionResponse struct {
	Authenticated bool              `json:"authenticated"`
	Session       *identity.Session `json:"session"`
}

// AuthSession reports the session resolved from the bearer token, if any.
func AuthSession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session := middleware.SessionFromContext(r.Context())
		responses.WriteSuccess(w, sessionResponse{Authenticated: session != nil, Session: session})
	}
}
