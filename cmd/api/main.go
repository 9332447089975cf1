package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/storage"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/angelmondragon/ecofinds-storefront/api"
	"github.com/angelmondragon/ecofinds-storefront/api/controllers"
	"github.com/angelmondragon/ecofinds-storefront/api/routes"
	"github.com/angelmondragon/ecofinds-storefront/internal/cart"
	"github.com/angelmondragon/ecofinds-storefront/internal/catalog"
	"github.com/angelmondragon/ecofinds-storefront/internal/identity"
	"github.com/angelmondragon/ecofinds-storefront/internal/listings"
	"github.com/angelmondragon/ecofinds-storefront/internal/media"
	"github.com/angelmondragon/ecofinds-storefront/internal/prefs"
	"github.com/angelmondragon/ecofinds-storefront/internal/storefront"
	"github.com/angelmondragon/ecofinds-storefront/pkg/auth/session"
	"github.com/angelmondragon/ecofinds-storefront/pkg/config"
	"github.com/angelmondragon/ecofinds-storefront/pkg/docstore"
	"github.com/angelmondragon/ecofinds-storefront/pkg/enums"
	"github.com/angelmondragon/ecofinds-storefront/pkg/gcp"
	"github.com/angelmondragon/ecofinds-storefront/pkg/instance"
	"github.com/angelmondragon/ecofinds-storefront/pkg/logger"
	"github.com/angelmondragon/ecofinds-storefront/pkg/metrics"
	"github.com/angelmondragon/ecofinds-storefront/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Env:         cfg.App.Env,
		Instance:    instance.ID(),
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) (err error) {
	var closers []func() error
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			err = multierr.Append(err, closers[i]())
		}
	}()

	store, err := docstore.Open(ctx, cfg, logg)
	if err != nil {
		return err
	}
	closers = append(closers, store.Close)

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	closers = append(closers, redisClient.Close)

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		return err
	}

	provider, err := identity.NewFirebaseProvider(ctx, cfg.Firebase, cfg.GCP, logg)
	if err != nil {
		return err
	}
	identitySvc, err := identity.NewService(identity.ServiceParams{
		Provider: provider,
		Profiles: identity.NewProfileRepository(store),
		Sessions: sessionManager,
		JWT:      cfg.JWT,
		Logger:   logg,
	})
	if err != nil {
		return err
	}

	uploader, closeUploader, err := newUploader(ctx, cfg, logg)
	if err != nil {
		return err
	}
	if closeUploader != nil {
		closers = append(closers, closeUploader)
	}

	products := catalog.NewRepository(store)
	listingSvc, err := listings.NewService(listings.ServiceParams{
		Products:      products,
		Uploader:      uploader,
		MaxImageBytes: cfg.Media.MaxUploadBytes,
		Logger:        logg,
	})
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	storefrontMetrics := metrics.NewStorefront(reg)

	var local prefs.Factory = prefs.NewMemoryFactory(cfg.Local.MaxValueBytes)
	if cfg.Local.Driver == config.LocalDriverRedis {
		local = prefs.NewRedisFactory(redisClient, cfg.Local.TTL, cfg.Local.MaxValueBytes)
	}

	registry := storefront.NewRegistry(storefront.RegistryParams{
		Factory: storefront.NewFactory(storefront.Dependencies{
			Products:        products,
			Carts:           cart.NewRepository(store),
			Local:           local,
			PageSize:        cfg.Catalog.PageSize,
			SearchDebounce:  cfg.View.SearchDebounce,
			Locale:          cfg.View.Locale,
			DuplicatePolicy: enums.ParseDuplicatePolicy(cfg.Cart.LocalDuplicatePolicy),
			Metrics:         storefrontMetrics,
			Logger:          logg,
		}),
		IdleTTL: cfg.Registry.IdleTTL,
		Metrics: storefrontMetrics,
		Logger:  logg,
	})
	closers = append(closers, func() error {
		registry.Close()
		return nil
	})
	go registry.Run(ctx, cfg.Registry.SweepInterval)

	unsubscribe := identitySvc.OnSessionChange(func(ctx context.Context, change identity.Change) {
		if change.Event != identity.EventSignedOut {
			return
		}
		if n := registry.SignOut(ctx, change.UID); n > 0 {
			logg.Debug(logg.WithField(logg.WithUserID(ctx, change.UID), "controllers", n), "storefront.signed_out_devices")
		}
	})
	defer unsubscribe()

	handler := routes.NewRouter(routes.Deps{
		Config:      cfg,
		Logger:      logg,
		Identity:    identitySvc,
		Listings:    listingSvc,
		Controllers: registry,
		RateLimiter: redisClient,
		Gatherer:    reg,
		Ready: map[string]controllers.Pinger{
			"docstore": store,
			"redis":    redisClient,
		},
	})

	server := api.NewServer(cfg.App, handler)
	serveCtx := logg.WithFields(ctx, map[string]any{
		"addr":     server.Addr,
		"docstore": cfg.DocStore.Driver,
		"local":    cfg.Local.Driver,
		"media":    cfg.Media.Driver,
	})
	logg.Info(serveCtx, "starting api server")

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logg.Info(serveCtx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func newUploader(ctx context.Context, cfg *config.Config, logg *logger.Logger) (media.Uploader, func() error, error) {
	if cfg.Media.Driver != config.MediaDriverGCS {
		uploader, err := media.NewCloudinaryUploader(cfg.Media, logg)
		return uploader, nil, err
	}
	client, err := storage.NewClient(ctx, gcp.ClientOptions(cfg.GCP)...)
	if err != nil {
		return nil, nil, err
	}
	uploader, err := media.NewGCSUploader(client, cfg.Media)
	if err != nil {
		return nil, nil, multierr.Append(err, client.Close())
	}
	return uploader, client.Close, nil
}
