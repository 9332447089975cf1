// Package gcp holds the credential plumbing shared by the Google clients.
package gcp

import (
	"strings"

	"github.com/angelmondragon/ecofinds-storefront/pkg/config"
	"google.golang.org/api/option"
)

// ClientOptions prefers inline credentials, then a credentials file, and
// otherwise leaves discovery to application default credentials.
func ClientOptions(cfg config.GCPConfig) []option.ClientOption {
	var opts []option.ClientOption
	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	case strings.TrimSpace(cfg.ApplicationCredentials) != "":
		opts = append(opts, option.WithCredentialsFile(cfg.ApplicationCredentials))
	}
	return opts
}
