package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/angelmondragon/ecofinds-storefront/api/controllers"
	"github.com/angelmondragon/ecofinds-storefront/api/middleware"
	"github.com/angelmondragon/ecofinds-storefront/internal/identity"
	"github.com/angelmondragon/ecofinds-storefront/internal/listings"
	"github.com/angelmondragon/ecofinds-storefront/pkg/config"
	"github.com/angelmondragon/ecofinds-storefront/pkg/logger"
)

// Deps are the services the HTTP surface is built from.
type Deps struct {
	Config      *config.Config
	Logger      *logger.Logger
	Identity    identity.Service
	Listings    listings.Service
	Controllers controllers.Controllers
	RateLimiter middleware.RateLimiter
	Gatherer    prometheus.Gatherer
	Ready       map[string]controllers.Pinger
}

func NewRouter(d Deps) http.Handler {
	cfg, logg := d.Config, d.Logger
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.AllowedOrigins()),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg.App.Env))
		r.Get("/ready", controllers.HealthReady(cfg.App.Env, d.Ready, logg))
	})
	if d.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.Throttle(middleware.SignUpThrottle(cfg.AuthRateLimit), d.RateLimiter, logg)).Post("/signup", controllers.AuthSignUp(d.Identity, logg))
			r.With(middleware.Throttle(middleware.SignInThrottle(cfg.AuthRateLimit), d.RateLimiter, logg)).Post("/signin", controllers.AuthSignIn(d.Identity, logg))
			r.With(middleware.RequireAuth(d.Identity, logg)).Post("/signout", controllers.AuthSignOut(d.Identity, logg))
			r.With(middleware.OptionalAuth(d.Identity, logg)).Get("/session", controllers.AuthSession())
		})

		r.Get("/categories", controllers.Categories())

		r.Group(func(r chi.Router) {
			r.Use(middleware.DeviceID(logg))
			r.Use(middleware.OptionalAuth(d.Identity, logg))

			r.Route("/catalog", func(r chi.Router) {
				r.Post("/refresh", controllers.CatalogRefresh(d.Controllers, logg))
				r.Post("/more", controllers.CatalogMore(d.Controllers, logg))
				r.Get("/products/{productID}", controllers.CatalogProduct(d.Controllers, logg))
			})

			r.Route("/view", func(r chi.Router) {
				r.Get("/", controllers.ViewGet(d.Controllers, logg))
				r.Post("/", controllers.ViewSet(d.Controllers, logg))
				r.Post("/search", controllers.ViewSearch(d.Controllers, logg))
			})

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", controllers.CartGet(d.Controllers, logg))
				r.Post("/items", controllers.CartAddItem(d.Controllers, logg))
				r.Patch("/items/{productID}", controllers.CartUpdateItem(d.Controllers, logg))
				r.Delete("/items/{productID}", controllers.CartRemoveItem(d.Controllers, logg))
			})

			r.Get("/wishlist", controllers.WishlistGet(d.Controllers, logg))
			r.Post("/wishlist/{productID}/toggle", controllers.WishlistToggle(d.Controllers, logg))
			r.Get("/badges", controllers.Badges(d.Controllers, logg))
		})

		r.Route("/listings", func(r chi.Router) {
			r.Use(middleware.RequireAuth(d.Identity, logg))
			r.Post("/", controllers.ListingCreate(d.Listings, cfg.Media.MaxUploadBytes, logg))
			r.Delete("/{productID}", controllers.ListingRemove(d.Listings, logg))
		})
	})

	if !cfg.FeatureFlags.Tracing {
		return r
	}
	return otelhttp.NewHandler(r, "ecofinds-storefront",
		otelhttp.WithFilter(func(req *http.Request) bool {
			return req.URL.Path != "/metrics" && req.URL.Path != "/health/live"
		}),
		otelhttp.WithSpanNameFormatter(func(_ string, req *http.Request) string {
			return "HTTP " + req.Method + " " + req.URL.Path
		}),
	)
}
