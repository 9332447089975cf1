package storefront

import (
	"context"
	"sync"
	"time"

	"github.com/angelmondragon/ecofinds-storefront/pkg/logger"
	"github.com/angelmondragon/ecofinds-storefront/pkg/metrics"
)

// Factory builds the controller of a device.
type Factory func(deviceID string) (*Controller, error)

// NewFactory binds controllers to shared dependencies.
func NewFactory(deps Dependencies) Factory {
	return func(deviceID string) (*Controller, error) {
		return NewController(deviceID, deps)
	}
}

type RegistryParams struct {
	Factory Factory
	IdleTTL time.Duration
	Metrics *metrics.Storefront
	Logger  *logger.Logger
	Now     func() time.Time
}

// Registry keeps one controller per device and evicts idle ones. Evicted
// devices start over with a fresh catalog; their local storage is kept.
type Registry struct {
	factory Factory
	idleTTL time.Duration
	metrics *metrics.Storefront
	logg    *logger.Logger
	now     func() time.Time

	mu      sync.Mutex
	entries map[string]*registryEntry
}

type registryEntry struct {
	controller *Controller
	lastUsed   time.Time
}

func NewRegistry(params RegistryParams) *Registry {
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Registry{
		factory: params.Factory,
		idleTTL: params.IdleTTL,
		metrics: params.Metrics,
		logg:    logg,
		now:     now,
		entries: map[string]*registryEntry{},
	}
}

// Get returns the device controller, creating it on first use.
func (r *Registry) Get(deviceID string) (*Controller, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.entries[deviceID]; ok {
		e.lastUsed = r.now()
		return e.controller, nil
	}
	controller, err := r.factory(deviceID)
	if err != nil {
		return nil, err
	}
	r.entries[deviceID] = &registryEntry{controller: controller, lastUsed: r.now()}
	r.metrics.SetControllers(len(r.entries))
	return controller, nil
}

// Peek returns the controller without creating or touching it.
func (r *Registry) Peek(deviceID string) (*Controller, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[deviceID]
	if !ok {
		return nil, false
	}
	return e.controller, true
}

// Sweep evicts controllers idle for longer than the TTL and returns how many.
func (r *Registry) Sweep() int {
	if r.idleTTL <= 0 {
		return 0
	}
	r.mu.Lock()
	cutoff := r.now().Add(-r.idleTTL)
	var evicted []*Controller
	for id, e := range r.entries {
		if e.lastUsed.Before(cutoff) {
			evicted = append(evicted, e.controller)
			delete(r.entries, id)
		}
	}
	r.metrics.SetControllers(len(r.entries))
	r.mu.Unlock()

	for _, c := range evicted {
		c.Close()
	}
	return len(evicted)
}

// Run sweeps on every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				r.logg.Debug(r.logg.WithField(ctx, "evicted", n), "storefront.registry_swept")
			}
		}
	}
}

// SignOut drops the session of every live controller signed in as uid and
// returns how many were affected.
func (r *Registry) SignOut(ctx context.Context, uid string) int {
	if uid == "" {
		return 0
	}
	r.mu.Lock()
	controllers := make([]*Controller, 0, len(r.entries))
	for _, e := range r.entries {
		controllers = append(controllers, e.controller)
	}
	r.mu.Unlock()

	n := 0
	for _, c := range controllers {
		if sess := c.Session(); sess != nil && sess.UID == uid {
			c.ApplySession(ctx, nil)
			n++
		}
	}
	return n
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Close stops every controller and empties the registry.
func (r *Registry) Close() {
	r.mu.Lock()
	entries := r.entries
	r.entries = map[string]*registryEntry{}
	r.metrics.SetControllers(0)
	r.mu.Unlock()

	for _, e := range entries {
		e.controller.Close()
	}
}
