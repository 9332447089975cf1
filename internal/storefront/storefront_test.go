package storefront

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/angelmondragon/ecofinds-storefront/internal/cart"
	"github.com/angelmondragon/ecofinds-storefront/internal/catalog"
	"github.com/angelmondragon/ecofinds-storefront/internal/identity"
	"github.com/angelmondragon/ecofinds-storefront/internal/prefs"
	"github.com/angelmondragon/ecofinds-storefront/internal/view"
	"github.com/angelmondragon/ecofinds-storefront/pkg/docstore"
	"github.com/angelmondragon/ecofinds-storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/ecofinds-storefront/pkg/errors"
)

var base = time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)

type fixture struct {
	deps Dependencies
}

func newFixture(t *testing.T, n int) *fixture {
	t.Helper()
	store := docstore.NewMemory()
	products := catalog.NewRepository(store)
	for i := 0; i < n; i++ {
		p := catalog.Product{
			ID:        fmt.Sprintf("p%d", i),
			Title:     fmt.Sprintf("Item %d", i),
			Category:  string(enums.ProductCategoryBooksMedia),
			Price:     float64(500 * (i + 1)),
			SellerID:  "seller",
			Status:    enums.ProductStatusAvailable,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := products.Save(context.Background(), p); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	return &fixture{
		deps: Dependencies{
			Products:       products,
			Carts:          cart.NewRepository(store),
			Local:          prefs.NewMemoryFactory(0),
			PageSize:       3,
			SearchDebounce: 10 * time.Millisecond,
		},
	}
}

func (f *fixture) controller(t *testing.T, device string) *Controller {
	t.Helper()
	c, err := NewController(device, f.deps)
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func TestNewControllerValidates(t *testing.T) {
	t.Parallel()

	if _, err := NewController("", Dependencies{}); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := NewController("dev", Dependencies{}); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestViewLoadsLazilyAndPages(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 5)
	c := f.controller(t, "dev")
	ctx := context.Background()

	state, err := c.View(ctx)
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	if state.Loaded != 3 || state.Exhausted || state.NextCursor == "" || state.Items[0].ID != "p4" {
		t.Fatalf("unexpected first view %+v", state)
	}
	gen := state.Generation

	state, page, err := c.LoadMore(ctx)
	if err != nil {
		t.Fatalf("more: %v", err)
	}
	if len(page.Items) != 2 || !state.Exhausted || state.Loaded != 5 || state.Generation <= gen {
		t.Fatalf("unexpected paged view %+v page %+v", state, page)
	}

	state, page, err = c.LoadMore(ctx)
	if err != nil || !page.Exhausted || state.Loaded != 5 {
		t.Fatalf("expected informational exhausted page, got %+v err %v", page, err)
	}
}

func TestSetViewAppliesImmediately(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 3)
	c := f.controller(t, "dev")
	ctx := context.Background()

	state, err := c.SetView(ctx, view.Criteria{MinPrice: 1000}, enums.SortPriceLow)
	if err != nil {
		t.Fatalf("set view: %v", err)
	}
	if state.Matched != 2 || state.Items[0].ID != "p1" || state.Sort != enums.SortPriceLow {
		t.Fatalf("unexpected view %+v", state)
	}
	if state.Facets.Total != 3 {
		t.Fatalf("facets should cover the loaded catalog, got %+v", state.Facets)
	}
}

func TestSearchIsDebounced(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 3)
	c := f.controller(t, "dev")
	ctx := context.Background()

	if _, err := c.Search(ctx, "Item 1"); err != nil {
		t.Fatalf("search: %v", err)
	}
	state, err := c.Search(ctx, "Item 2")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if !state.SearchPending || state.Matched != 3 {
		t.Fatalf("expected pending search on unchanged view, got %+v", state)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		state, _ = c.View(ctx)
		if !state.SearchPending && state.Criteria.Text == "Item 2" {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if state.Criteria.Text != "Item 2" || state.Matched != 1 || state.Items[0].ID != "p2" {
		t.Fatalf("expected only the last search to apply, got %+v", state)
	}
}

func TestSetViewCancelsPendingSearch(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 3)
	f.deps.SearchDebounce = 30 * time.Millisecond
	c := f.controller(t, "dev")
	ctx := context.Background()

	if _, err := c.Search(ctx, "Item 1"); err != nil {
		t.Fatalf("search: %v", err)
	}
	if _, err := c.SetView(ctx, view.Criteria{Text: "Item 0"}, ""); err != nil {
		t.Fatalf("set view: %v", err)
	}
	time.Sleep(80 * time.Millisecond)
	state, _ := c.View(ctx)
	if state.Criteria.Text != "Item 0" || state.SearchPending {
		t.Fatalf("pending search should have been dropped, got %+v", state.Criteria)
	}
}

func TestSupersededSearchDoesNotApply(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 3)
	f.deps.SearchDebounce = time.Hour
	c := f.controller(t, "dev")
	ctx := context.Background()

	if _, err := c.Search(ctx, ""); err != nil {
		t.Fatalf("search: %v", err)
	}
	stale := c.searchSeq
	if _, err := c.SetView(ctx, view.Criteria{Text: "Item 0"}, ""); err != nil {
		t.Fatalf("set view: %v", err)
	}
	c.applySearch(ctx, stale, "")

	state, _ := c.View(ctx)
	if state.Criteria.Text != "Item 0" || state.Matched != 1 {
		t.Fatalf("superseded empty search must not clear the view, got %+v", state.Criteria)
	}
}

func TestSearchAfterCloseIsNotPending(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 3)
	c := f.controller(t, "dev")
	ctx := context.Background()

	c.Close()
	state, err := c.Search(ctx, "Item 1")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if state.SearchPending {
		t.Fatalf("closed controller cannot queue a search, got %+v", state)
	}
}

func TestCartOperationUsesRequestSession(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 2)
	c := f.controller(t, "dev")
	ctx := context.Background()

	c.ApplySession(ctx, nil)
	out, err := c.AddToCart(ctx, &identity.Session{UID: "buyer"}, "p0", 1)
	if err != nil || out.Backend != enums.CartBackendRemote {
		t.Fatalf("expected remote add for the request session, got %+v err %v", out, err)
	}
	if sess := c.Session(); sess == nil || sess.UID != "buyer" {
		t.Fatalf("expected session applied with the operation, got %+v", sess)
	}

	badges, err := c.Badges(ctx, nil)
	if err != nil || badges.Cart != 0 {
		t.Fatalf("anonymous request should read the local cart, got %+v err %v", badges, err)
	}
}

func TestSessionSelectsCartBackend(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 3)
	c := f.controller(t, "dev")
	ctx := context.Background()

	out, err := c.AddToCart(ctx, nil, "p0", 1)
	if err != nil || out.Backend != enums.CartBackendLocal {
		t.Fatalf("expected local add, got %+v err %v", out, err)
	}

	buyer := &identity.Session{UID: "buyer", Email: "b@x.io", DisplayName: "bee"}
	c.ApplySession(ctx, buyer)
	snap, err := c.CurrentUser(ctx)
	if err != nil || snap == nil || snap.UID != "buyer" {
		t.Fatalf("expected current user snapshot, got %+v err %v", snap, err)
	}

	out, err = c.AddToCart(ctx, buyer, "p1", 2)
	if err != nil || out.Backend != enums.CartBackendRemote {
		t.Fatalf("expected remote add, got %+v err %v", out, err)
	}
	badges, err := c.Badges(ctx, buyer)
	if err != nil || badges.Cart != 2 {
		t.Fatalf("remote cart is separate from the local one, got %+v err %v", badges, err)
	}

	c.ApplySession(ctx, nil)
	if snap, _ := c.CurrentUser(ctx); snap != nil {
		t.Fatalf("expected snapshot cleared")
	}
	local, err := c.Cart(ctx, nil)
	if err != nil || local.Count != 1 || local.Backend != "local" || local.Items[0].ProductID != "p0" {
		t.Fatalf("expected untouched local cart, got %+v err %v", local, err)
	}
	if local.Total.String() != "500" {
		t.Fatalf("unexpected total %s", local.Total)
	}
}

func TestSelfPurchaseAndProductLookup(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 2)
	c := f.controller(t, "dev")
	ctx := context.Background()

	out, err := c.AddToCart(ctx, &identity.Session{UID: "seller"}, "p0", 1)
	if err != nil || out.Reason != cart.ReasonSelfPurchase {
		t.Fatalf("expected self-purchase rejection, got %+v err %v", out, err)
	}

	if _, err := c.Product(ctx, "nope"); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	p, err := c.Product(ctx, "p1")
	if err != nil || p.ID != "p1" {
		t.Fatalf("unexpected product %+v err %v", p, err)
	}
}

func TestWishlistThroughController(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 3)
	c := f.controller(t, "dev")
	ctx := context.Background()

	for _, id := range []string{"p0", "p2"} {
		if _, err := c.ToggleWishlist(ctx, nil, id); err != nil {
			t.Fatalf("toggle: %v", err)
		}
	}
	items, err := c.Wishlist(ctx, nil)
	if err != nil || len(items) != 2 || items[0].ID != "p2" {
		t.Fatalf("expected catalog order, got %+v err %v", items, err)
	}
}

func TestRegistryCreatesAndEvicts(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 1)
	now := base
	reg := NewRegistry(RegistryParams{
		Factory: NewFactory(f.deps),
		IdleTTL: time.Minute,
		Now:     func() time.Time { return now },
	})
	defer reg.Close()

	a, err := reg.Get("dev-a")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	again, _ := reg.Get("dev-a")
	if a != again {
		t.Fatal("expected the same controller for a device")
	}
	if _, err := reg.Get("dev-b"); err != nil {
		t.Fatalf("get: %v", err)
	}

	now = now.Add(45 * time.Second)
	_, _ = reg.Get("dev-b")
	now = now.Add(30 * time.Second)

	if n := reg.Sweep(); n != 1 {
		t.Fatalf("expected one eviction, got %d", n)
	}
	if _, ok := reg.Peek("dev-a"); ok {
		t.Fatal("dev-a should be evicted")
	}
	if reg.Len() != 1 {
		t.Fatalf("expected one live controller, got %d", reg.Len())
	}
	if _, err := reg.Get(""); err == nil {
		t.Fatal("expected factory error for empty device id")
	}
}

func TestEvictedDeviceKeepsLocalStorage(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 1)
	ctx := context.Background()
	first := f.controller(t, "dev")
	if _, err := first.AddToCart(ctx, nil, "p0", 1); err != nil {
		t.Fatalf("add: %v", err)
	}
	first.Close()

	second := f.controller(t, "dev")
	badges, err := second.Badges(ctx, nil)
	if err != nil || badges.Cart != 1 {
		t.Fatalf("expected persisted local cart, got %+v err %v", badges, err)
	}
}

func TestRegistrySignOutDropsMatchingSessions(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 1)
	ctx := context.Background()
	reg := NewRegistry(RegistryParams{Factory: NewFactory(f.deps)})
	defer reg.Close()

	laptop, _ := reg.Get("laptop")
	phone, _ := reg.Get("phone")
	other, _ := reg.Get("other")
	laptop.ApplySession(ctx, &identity.Session{UID: "u1"})
	phone.ApplySession(ctx, &identity.Session{UID: "u1"})
	other.ApplySession(ctx, &identity.Session{UID: "u2"})

	if n := reg.SignOut(ctx, "u1"); n != 2 {
		t.Fatalf("expected two controllers signed out, got %d", n)
	}
	if laptop.Session() != nil || phone.Session() != nil {
		t.Fatal("u1 sessions should be cleared")
	}
	if sess := other.Session(); sess == nil || sess.UID != "u2" {
		t.Fatalf("u2 session should survive, got %+v", sess)
	}
	if reg.SignOut(ctx, "") != 0 {
		t.Fatal("empty uid should be ignored")
	}
}
