package docstore

import (
	"context"

	"go.uber.org/multierr"

	"github.com/angelmondragon/ecofinds-storefront/pkg/config"
	"github.com/angelmondragon/ecofinds-storefront/pkg/db"
	"github.com/angelmondragon/ecofinds-storefront/pkg/logger"
	"github.com/angelmondragon/ecofinds-storefront/pkg/migrate"
)

// Open connects the configured driver. The SQL driver runs the embedded
// migrations when dev auto-migrate is on.
func Open(ctx context.Context, cfg *config.Config, logg *logger.Logger) (Store, error) {
	if logg == nil {
		logg = logger.Nop()
	}
	switch cfg.DocStore.Driver {
	case config.DocStoreSQL:
		client, err := db.New(ctx, cfg.DB, logg)
		if err != nil {
			return nil, err
		}
		if err := migrate.MaybeRunDev(ctx, cfg, logg, client); err != nil {
			return nil, multierr.Append(err, client.Close())
		}
		return NewSQL(client), nil
	case config.DocStoreMemory:
		logg.Warn(ctx, "using in-memory docstore; data is lost on restart")
		return NewMemory(), nil
	default:
		store, err := NewFirestore(ctx, cfg.GCP, logg)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
}
