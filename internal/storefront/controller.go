// Package storefront owns the per-browser application state: the session, the
// loaded catalog, the active filters and the cart layer bound to them.
package storefront

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/angelmondragon/ecofinds-storefront/internal/cart"
	"github.com/angelmondragon/ecofinds-storefront/internal/catalog"
	"github.com/angelmondragon/ecofinds-storefront/internal/debounce"
	"github.com/angelmondragon/ecofinds-storefront/internal/identity"
	"github.com/angelmondragon/ecofinds-storefront/internal/prefs"
	"github.com/angelmondragon/ecofinds-storefront/internal/view"
	"github.com/angelmondragon/ecofinds-storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/ecofinds-storefront/pkg/errors"
	"github.com/angelmondragon/ecofinds-storefront/pkg/logger"
	"github.com/angelmondragon/ecofinds-storefront/pkg/metrics"
)

const searchKey = "search"

// ProductSource pages the catalog and resolves single products.
type ProductSource interface {
	catalog.PageSource
	cart.ProductFinder
}

// Dependencies are shared by every controller.
type Dependencies struct {
	Products        ProductSource
	Carts           cart.RemoteStore
	Local           prefs.Factory
	PageSize        int
	SearchDebounce  time.Duration
	Locale          string
	DuplicatePolicy enums.DuplicatePolicy
	Metrics         *metrics.Storefront
	Logger          *logger.Logger
	Now             func() time.Time
}

// Controller serializes every operation of one device, matching a single
// browser tab.
type Controller struct {
	deviceID  string
	products  ProductSource
	cache     *catalog.Cache
	cart      cart.Service
	prefs     *prefs.Store
	engine    view.Engine
	debouncer *debounce.Debouncer
	metrics   *metrics.Storefront
	logg      *logger.Logger
	now       func() time.Time

	mu         sync.Mutex
	session    *identity.Session
	criteria   view.Criteria
	sort       enums.SortKey
	current    ViewState
	generation uint64
	searchSeq  uint64
}

func NewController(deviceID string, deps Dependencies) (*Controller, error) {
	if deviceID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "device id is required")
	}
	if deps.Products == nil || deps.Carts == nil || deps.Local == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "storefront dependencies are incomplete")
	}
	logg := deps.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	cache, err := catalog.NewCache(catalog.CacheParams{
		Source:   deps.Products,
		PageSize: deps.PageSize,
		Recorder: deps.Metrics,
		Logger:   logg,
	})
	if err != nil {
		return nil, err
	}
	local := prefs.NewStore(deps.Local.ForDevice(deviceID), logg)
	cartSvc, err := cart.NewService(cart.ServiceParams{
		Catalog:         cache,
		Finder:          deps.Products,
		Remote:          deps.Carts,
		Local:           local,
		DuplicatePolicy: deps.DuplicatePolicy,
		Recorder:        deps.Metrics,
		Logger:          logg,
		Now:             now,
	})
	if err != nil {
		return nil, err
	}

	c := &Controller{
		deviceID:  deviceID,
		products:  deps.Products,
		cache:     cache,
		cart:      cartSvc,
		prefs:     local,
		engine:    view.NewEngine(deps.Locale),
		debouncer: debounce.New(deps.SearchDebounce),
		metrics:   deps.Metrics,
		logg:      logg,
		now:       now,
		sort:      enums.SortNewest,
		criteria:  view.Criteria{}.Normalize(),
	}
	c.recomputeLocked()
	return c, nil
}

func (c *Controller) DeviceID() string {
	return c.deviceID
}

// ApplySession switches between the anonymous and signed-in states. The
// local cart is left untouched in both directions.
func (c *Controller) ApplySession(ctx context.Context, session *identity.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.applySessionLocked(ctx, session)
}

func (c *Controller) applySessionLocked(ctx context.Context, session *identity.Session) {
	if sameSession(c.session, session) {
		return
	}
	if session == nil {
		c.session = nil
		if err := c.prefs.ClearCurrentUser(ctx); err != nil {
			c.logg.WarnErr(ctx, "storefront.clear_current_user_failed", err)
		}
		return
	}
	copied := *session
	c.session = &copied
	snap := prefs.UserSnapshot{
		UID:         session.UID,
		Email:       session.Email,
		DisplayName: session.DisplayName,
		Username:    session.Username,
		CreatedAt:   session.CreatedAt,
	}
	if err := c.prefs.SaveCurrentUser(ctx, snap); err != nil {
		c.logg.WarnErr(ctx, "storefront.save_current_user_failed", err)
	}
}

// Session returns a copy of the active session, nil when anonymous.
func (c *Controller) Session() *identity.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil
	}
	copied := *c.session
	return &copied
}

// CurrentUser reads the stored session snapshot.
func (c *Controller) CurrentUser(ctx context.Context) (*prefs.UserSnapshot, error) {
	return c.prefs.CurrentUser(ctx)
}

// Refresh reloads the first catalog page and recomputes the view.
func (c *Controller) Refresh(ctx context.Context) (ViewState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.cache.LoadInitial(ctx); err != nil {
		return ViewState{}, err
	}
	return c.recomputeLocked(), nil
}

// LoadMore appends the next catalog page. Once the catalog is exhausted it
// returns the unchanged view.
func (c *Controller) LoadMore(ctx context.Context) (ViewState, catalog.Page, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureLoadedLocked(ctx); err != nil {
		return ViewState{}, catalog.Page{}, err
	}
	page, err := c.cache.LoadMore(ctx, c.cache.NextCursor())
	if err != nil {
		return ViewState{}, catalog.Page{}, err
	}
	if len(page.Items) == 0 {
		c.current.Exhausted = c.cache.Exhausted()
		c.current.NextCursor = c.cache.NextCursor()
		return c.current, page, nil
	}
	return c.recomputeLocked(), page, nil
}

// SetView applies criteria and sort immediately, dropping any pending search.
func (c *Controller) SetView(ctx context.Context, criteria view.Criteria, sort enums.SortKey) (ViewState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureLoadedLocked(ctx); err != nil {
		return ViewState{}, err
	}
	c.debouncer.Cancel(searchKey)
	c.searchSeq++
	c.criteria = criteria.Normalize()
	c.sort = enums.ParseSortKey(string(sort))
	return c.recomputeLocked(), nil
}

// Search schedules a text change after the debounce window. The returned
// state is the current view, flagged as pending when the change was queued.
func (c *Controller) Search(ctx context.Context, text string) (ViewState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureLoadedLocked(ctx); err != nil {
		return ViewState{}, err
	}
	c.searchSeq++
	seq := c.searchSeq
	logCtx := c.logg.WithDeviceID(context.WithoutCancel(ctx), c.deviceID)
	state := c.current
	state.SearchPending = c.debouncer.Schedule(searchKey, func() { c.applySearch(logCtx, seq, text) })
	if !state.SearchPending {
		c.logg.Warn(logCtx, "storefront.search_rejected")
	}
	return state, nil
}

// applySearch runs a debounced search. Only the most recent schedule applies;
// SetView and later searches invalidate it.
func (c *Controller) applySearch(ctx context.Context, seq uint64, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if seq != c.searchSeq {
		return
	}
	c.criteria.Text = text
	c.criteria = c.criteria.Normalize()
	state := c.recomputeLocked()
	c.logg.Debug(c.logg.WithField(ctx, "generation", state.Generation), "storefront.search_applied")
}

// View returns the current view, loading the catalog on first use.
func (c *Controller) View(ctx context.Context) (ViewState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureLoadedLocked(ctx); err != nil {
		return ViewState{}, err
	}
	state := c.current
	state.SearchPending = c.debouncer.Pending(searchKey)
	return state, nil
}

// Product looks in the loaded catalog first, then the store. Removed
// products are reported as not found.
func (c *Controller) Product(ctx context.Context, id string) (catalog.Product, error) {
	if p, ok := c.cache.Lookup(id); ok {
		return p, nil
	}
	p, err := c.products.FindByID(ctx, id)
	if errors.Is(err, catalog.ErrProductNotFound) || (err == nil && p.Status != enums.ProductStatusAvailable) {
		return catalog.Product{}, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	if err != nil {
		return catalog.Product{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return p, nil
}

// The cart operations below apply the caller's session under the same lock
// as the operation itself.

func (c *Controller) AddToCart(ctx context.Context, session *identity.Session, productID string, qty int) (cart.Outcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.applySessionLocked(ctx, session)
	if err := c.ensureLoadedLocked(ctx); err != nil {
		return cart.Outcome{}, err
	}
	return c.cart.AddToCart(ctx, c.backendLocked(), productID, qty)
}

func (c *Controller) RemoveFromCart(ctx context.Context, session *identity.Session, productID string) (cart.Outcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.applySessionLocked(ctx, session)
	return c.cart.RemoveFromCart(ctx, c.backendLocked(), productID)
}

func (c *Controller) UpdateQuantity(ctx context.Context, session *identity.Session, productID string, qty int) (cart.Outcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.applySessionLocked(ctx, session)
	return c.cart.UpdateQuantity(ctx, c.backendLocked(), productID, qty)
}

func (c *Controller) ToggleWishlist(ctx context.Context, session *identity.Session, productID string) (cart.Outcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.applySessionLocked(ctx, session)
	return c.cart.ToggleWishlist(ctx, c.backendLocked(), productID)
}

// Badges returns the header counts.
func (c *Controller) Badges(ctx context.Context, session *identity.Session) (cart.Counts, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.applySessionLocked(ctx, session)
	return c.cart.Counts(ctx, c.backendLocked())
}

func (c *Controller) Cart(ctx context.Context, session *identity.Session) (CartView, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.applySessionLocked(ctx, session)
	b := c.backendLocked()
	lines, err := c.cart.CartItems(ctx, b)
	if err != nil {
		return CartView{}, err
	}
	count := 0
	for _, line := range lines {
		count += line.Quantity
	}
	return CartView{Items: lines, Count: count, Total: cart.Total(lines), Backend: b.Kind.String()}, nil
}

func (c *Controller) Wishlist(ctx context.Context, session *identity.Session) ([]catalog.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.applySessionLocked(ctx, session)
	if err := c.ensureLoadedLocked(ctx); err != nil {
		return nil, err
	}
	return c.cart.Wishlist(ctx, c.backendLocked())
}

// Close drops pending debounced work.
func (c *Controller) Close() {
	c.debouncer.Stop()
}

func (c *Controller) backendLocked() cart.Backend {
	if c.session == nil {
		return cart.Local()
	}
	return cart.Remote(c.session.UID)
}

func (c *Controller) ensureLoadedLocked(ctx context.Context) error {
	if c.cache.Loaded() {
		return nil
	}
	if _, err := c.cache.LoadInitial(ctx); err != nil {
		return err
	}
	c.recomputeLocked()
	return nil
}

func (c *Controller) recomputeLocked() ViewState {
	start := time.Now()
	products := c.cache.Products()
	items := c.engine.Apply(products, c.criteria, c.sort)
	c.metrics.ObserveView(time.Since(start))

	c.generation++
	c.current = ViewState{
		Items:      items,
		Matched:    len(items),
		Loaded:     len(products),
		Criteria:   c.criteria,
		Sort:       c.sort,
		Generation: c.generation,
		NextCursor: c.cache.NextCursor(),
		Exhausted:  c.cache.Exhausted(),
		Facets:     view.CountFacets(products),
		ComputedAt: c.now().UTC(),
	}
	return c.current
}

func sameSession(a, b *identity.Session) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.UID == b.UID && a.Email == b.Email && a.DisplayName == b.DisplayName && a.Username == b.Username
}
