package api

import (
	"net"
	"net/http"
	"time"

	"github.com/angelmondragon/ecofinds-storefront/pkg/config"
)

// NewServer binds the handler to the configured port with conservative
// timeouts. Writes get extra room for image uploads.
func NewServer(cfg config.AppConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              net.JoinHostPort("", cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
