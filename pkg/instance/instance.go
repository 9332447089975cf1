package instance

import (
	"os"

	"github.com/angelmondragon/ecofinds-storefront/pkg/env"
)

const fallbackID = "local"

// ID names the running process in logs: STOREFRONT_INSTANCE_ID, then the
// platform dyno name, then the hostname.
func ID() string {
	if id := env.Get("STOREFRONT_INSTANCE_ID", env.Get("DYNO", "")); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return fallbackID
}
