package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/angelmondragon/ecofinds-storefront/api/responses"
	"github.com/angelmondragon/ecofinds-storefront/internal/identity"
	pkgerrors "github.com/angelmondragon/ecofinds-storefront/pkg/errors"
	"github.com/angelmondragon/ecofinds-storefront/pkg/logger"
)

// Authenticator resolves a bearer token into a principal.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*identity.Principal, error)
}

func bearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(raw), "bearer ") {
		return strings.TrimSpace(raw[7:])
	}
	return raw
}

// OptionalAuth attaches the principal when a valid token is present and lets
// anonymous requests through. A token that fails validation is rejected.
func OptionalAuth(auth Authenticator, logg *logger.Logger) func(http.Handler) http.Handler {
	return authenticate(auth, logg, false)
}

// RequireAuth rejects requests without a live session.
func RequireAuth(auth Authenticator, logg *logger.Logger) func(http.Handler) http.Handler {
	return authenticate(auth, logg, true)
}

func authenticate(auth Authenticator, logg *logger.Logger, required bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				if required {
					responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			principal, err := auth.Authenticate(r.Context(), token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			ctx := WithPrincipal(r.Context(), principal)
			if logg != nil {
				ctx = logg.WithUserID(ctx, principal.Session.UID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
