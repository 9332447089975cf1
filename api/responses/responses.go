package responses

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	pkgerrors "github.com/angelmondragon/ecofinds-storefront/pkg/errors"
	"github.com/angelmondragon/ecofinds-storefront/pkg/logger"
	"github.com/angelmondragon/ecofinds-storefront/pkg/types"
)

const requestIDHeader = "X-Request-Id"

func WriteSuccess(w http.ResponseWriter, data any) {
	WriteSuccessStatus(w, http.StatusOK, data)
}

func WriteSuccessStatus(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, types.Envelope{Data: data})
}

// WriteSuccessMeta writes data alongside a meta block.
func WriteSuccessMeta(w http.ResponseWriter, data, meta any) {
	writeJSON(w, http.StatusOK, types.Envelope{Data: data, Meta: meta})
}

// WriteError logs err and writes its public view. 5xx are logged as errors
// with a stack, everything else as a warning.
func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	public := pkgerrors.Public(err)

	if logg != nil && err != nil {
		fields := pkgerrors.Dump(err).Fields()
		fields["status"] = public.Status
		ctx = logg.WithFields(ctx, fields)
		if public.Status >= http.StatusInternalServerError {
			logg.Error(ctx, "request.error", err)
		} else {
			logg.WarnErr(ctx, "request.rejected", err)
		}
	}

	writeJSON(w, public.Status, types.ErrorEnvelope{Error: types.APIError{
		Code:      string(public.Code),
		Message:   public.Message,
		Retryable: public.Retryable,
		RequestID: w.Header().Get(requestIDHeader),
		Details:   public.Details,
	}})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf(`{"level":"error","msg":"failed to encode response","err":"%v"}`, err)
	}
}
