package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/ecofinds-storefront/api/responses"
	pkgerrors "github.com/angelmondragon/ecofinds-storefront/pkg/errors"
	"github.com/angelmondragon/ecofinds-storefront/pkg/logger"
)

// DeviceIDHeader carries the per-browser identity that scopes local storage.
const DeviceIDHeader = "X-Device-Id"

// DeviceID requires a UUID device header and stores its canonical form.
func DeviceID(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get(DeviceIDHeader))
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "device id header is required").
					WithDetails(map[string]any{"header": DeviceIDHeader}))
				return
			}
			id, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "device id must be a uuid").
					WithDetails(map[string]any{"header": DeviceIDHeader}))
				return
			}

			ctx := WithDeviceID(r.Context(), id.String())
			if logg != nil {
				ctx = logg.WithDeviceID(ctx, id.String())
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
