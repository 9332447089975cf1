package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Storefront records catalog, cart and view activity.
type Storefront struct {
	catalogLoads  *prometheus.CounterVec
	cartOps       *prometheus.CounterVec
	cartFallbacks *prometheus.CounterVec
	viewDuration  prometheus.Histogram
	controllers   prometheus.Gauge
}

// NewStorefront registers the storefront metrics on the provided registerer.
// A nil registerer yields a recorder whose methods are no-ops.
func NewStorefront(reg prometheus.Registerer) *Storefront {
	if reg == nil {
		return &Storefront{}
	}
	catalogLoads := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_catalog_loads_total",
		Help: "Catalog page loads by kind (initial, more) and result.",
	}, []string{"kind", "result"})
	cartOps := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_cart_ops_total",
		Help: "Cart and wishlist operations by backend and outcome.",
	}, []string{"op", "backend", "outcome"})
	cartFallbacks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_cart_fallbacks_total",
		Help: "Remote cart failures served from local storage.",
	}, []string{"op"})
	viewDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "storefront_view_duration_seconds",
		Help:    "Time spent filtering and sorting the cached catalog.",
		Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1},
	})
	controllers := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "storefront_controllers",
		Help: "Live per-device storefront controllers.",
	})
	reg.MustRegister(catalogLoads, cartOps, cartFallbacks, viewDuration, controllers)
	return &Storefront{
		catalogLoads:  catalogLoads,
		cartOps:       cartOps,
		cartFallbacks: cartFallbacks,
		viewDuration:  viewDuration,
		controllers:   controllers,
	}
}

// CatalogLoad counts one catalog fetch.
func (s *Storefront) CatalogLoad(kind, result string) {
	if s == nil || s.catalogLoads == nil {
		return
	}
	s.catalogLoads.WithLabelValues(normalizeLabel(kind), normalizeLabel(result)).Inc()
}

// CartOp counts one cart or wishlist mutation.
func (s *Storefront) CartOp(op, backend, outcome string) {
	if s == nil || s.cartOps == nil {
		return
	}
	s.cartOps.WithLabelValues(normalizeLabel(op), normalizeLabel(backend), normalizeLabel(outcome)).Inc()
}

// CartFallback counts a remote failure absorbed by local storage.
func (s *Storefront) CartFallback(op string) {
	if s == nil || s.cartFallbacks == nil {
		return
	}
	s.cartFallbacks.WithLabelValues(normalizeLabel(op)).Inc()
}

// ObserveView records how long one filter/sort pass took.
func (s *Storefront) ObserveView(d time.Duration) {
	if s == nil || s.viewDuration == nil {
		return
	}
	s.viewDuration.Observe(d.Seconds())
}

// SetControllers reports the registry size.
func (s *Storefront) SetControllers(n int) {
	if s == nil || s.controllers == nil {
		return
	}
	s.controllers.Set(float64(n))
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
