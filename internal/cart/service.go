package cart

import (
	"context"
	"math"
	"slices"
	"time"

	"github.com/angelmondragon/ecofinds-storefront/internal/catalog"
	"github.com/angelmondragon/ecofinds-storefront/internal/prefs"
	"github.com/angelmondragon/ecofinds-storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/ecofinds-storefront/pkg/errors"
	"github.com/angelmondragon/ecofinds-storefront/pkg/logger"
	"github.com/shopspring/decimal"
)

// CatalogView is the loaded catalog the cart validates against.
type CatalogView interface {
	Lookup(id string) (catalog.Product, bool)
	Position(id string) (int, bool)
}

// ProductFinder resolves products that are not in the loaded catalog.
type ProductFinder interface {
	FindByID(ctx context.Context, id string) (catalog.Product, error)
}

type RemoteStore interface {
	Load(ctx context.Context, uid string) (RemoteCart, error)
	Save(ctx context.Context, cart RemoteCart) error
}

type LocalStore interface {
	Cart(ctx context.Context) ([]prefs.CartItem, error)
	SaveCart(ctx context.Context, items []prefs.CartItem) error
	Wishlist(ctx context.Context) ([]string, error)
	SaveWishlist(ctx context.Context, ids []string) error
}

// Recorder receives cart operation outcomes.
type Recorder interface {
	CartOp(op, backend, outcome string)
	CartFallback(op string)
}

// Service reconciles cart and wishlist state across the remote per-user
// document and the local per-browser store.
type Service interface {
	AddToCart(ctx context.Context, b Backend, productID string, qty int) (Outcome, error)
	RemoveFromCart(ctx context.Context, b Backend, productID string) (Outcome, error)
	UpdateQuantity(ctx context.Context, b Backend, productID string, qty int) (Outcome, error)
	ToggleWishlist(ctx context.Context, b Backend, productID string) (Outcome, error)
	CartCount(ctx context.Context, b Backend) (int, error)
	WishlistCount(ctx context.Context, b Backend) (int, error)
	Counts(ctx context.Context, b Backend) (Counts, error)
	CartItems(ctx context.Context, b Backend) ([]Line, error)
	CartTotal(ctx context.Context, b Backend) (decimal.Decimal, error)
	Wishlist(ctx context.Context, b Backend) ([]catalog.Product, error)
}

type ServiceParams struct {
	Catalog         CatalogView
	Finder          ProductFinder
	Remote          RemoteStore
	Local           LocalStore
	DuplicatePolicy enums.DuplicatePolicy
	Recorder        Recorder
	Logger          *logger.Logger
	Now             func() time.Time
}

type service struct {
	catalog  CatalogView
	finder   ProductFinder
	remote   RemoteStore
	local    LocalStore
	policy   enums.DuplicatePolicy
	recorder Recorder
	logg     *logger.Logger
	now      func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Catalog == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "catalog is required")
	}
	if params.Remote == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "remote cart store is required")
	}
	if params.Local == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "local cart store is required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	policy := params.DuplicatePolicy
	if policy == "" {
		policy = enums.DuplicateIncrement
	}
	return &service{
		catalog:  params.Catalog,
		finder:   params.Finder,
		remote:   params.Remote,
		local:    params.Local,
		policy:   policy,
		recorder: params.Recorder,
		logg:     logg,
		now:      now,
	}, nil
}

// state is the backend-neutral view of a cart. Remote lines only carry the
// id, quantity and addedAt.
type state struct {
	lines    []prefs.CartItem
	wishlist []string
}

func (st *state) find(productID string) int {
	return slices.IndexFunc(st.lines, func(it prefs.CartItem) bool { return it.ID == productID })
}

type change struct {
	cart     bool
	wishlist bool
}

type mutation func(st *state, backend enums.CartBackend) (Outcome, change)

func (s *service) AddToCart(ctx context.Context, b Backend, productID string, qty int) (Outcome, error) {
	const op = "add"
	if qty <= 0 {
		qty = 1
	}
	product, ok := s.catalog.Lookup(productID)
	if !ok {
		return s.reject(op, b, productID, ReasonNotFound), nil
	}
	if b.IsRemote() && product.SellerID == b.UID {
		return s.reject(op, b, productID, ReasonSelfPurchase), nil
	}

	return s.apply(ctx, op, b, func(st *state, backend enums.CartBackend) (Outcome, change) {
		out := Outcome{ProductID: productID, Backend: backend}
		if i := st.find(productID); i >= 0 {
			if backend == enums.CartBackendLocal && s.policy == enums.DuplicateReject {
				out.Action = ActionRejected
				out.Reason = ReasonAlreadyInCart
				out.Quantity = st.lines[i].Quantity
				return out, change{}
			}
			st.lines[i].Quantity = addQuantity(st.lines[i].Quantity, qty)
			out.Action = ActionIncremented
			out.Quantity = st.lines[i].Quantity
			return out, change{cart: true}
		}
		st.lines = append(st.lines, snapshot(product, qty, s.now()))
		out.Action = ActionAdded
		out.Quantity = qty
		return out, change{cart: true}
	})
}

func (s *service) RemoveFromCart(ctx context.Context, b Backend, productID string) (Outcome, error) {
	return s.apply(ctx, "remove", b, removeLine(productID))
}

// UpdateQuantity sets the quantity of an existing line; qty <= 0 removes it.
func (s *service) UpdateQuantity(ctx context.Context, b Backend, productID string, qty int) (Outcome, error) {
	if qty <= 0 {
		return s.apply(ctx, "update", b, removeLine(productID))
	}
	return s.apply(ctx, "update", b, func(st *state, backend enums.CartBackend) (Outcome, change) {
		out := Outcome{ProductID: productID, Backend: backend, Action: ActionNoop}
		i := st.find(productID)
		if i < 0 {
			return out, change{}
		}
		out.Quantity = qty
		if st.lines[i].Quantity == qty {
			return out, change{}
		}
		st.lines[i].Quantity = qty
		out.Action = ActionUpdated
		return out, change{cart: true}
	})
}

func (s *service) ToggleWishlist(ctx context.Context, b Backend, productID string) (Outcome, error) {
	if productID == "" {
		return Outcome{}, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	return s.apply(ctx, "wishlist", b, func(st *state, backend enums.CartBackend) (Outcome, change) {
		out := Outcome{ProductID: productID, Backend: backend}
		if i := slices.Index(st.wishlist, productID); i >= 0 {
			st.wishlist = slices.Delete(st.wishlist, i, i+1)
			out.Action = ActionUnwishlisted
			return out, change{wishlist: true}
		}
		st.wishlist = append(st.wishlist, productID)
		out.Action = ActionWishlisted
		out.InWishlist = true
		return out, change{wishlist: true}
	})
}

func (s *service) CartCount(ctx context.Context, b Backend) (int, error) {
	counts, err := s.Counts(ctx, b)
	return counts.Cart, err
}

func (s *service) WishlistCount(ctx context.Context, b Backend) (int, error) {
	counts, err := s.Counts(ctx, b)
	return counts.Wishlist, err
}

// Counts sums line quantities and counts wishlist entries in one read.
func (s *service) Counts(ctx context.Context, b Backend) (Counts, error) {
	st, err := s.read(ctx, "count", b)
	if err != nil {
		return Counts{}, err
	}
	total := 0
	for _, line := range st.lines {
		total = addQuantity(total, line.Quantity)
	}
	return Counts{Cart: total, Wishlist: len(st.wishlist)}, nil
}

// CartItems joins cart lines with the catalog in insertion order.
func (s *service) CartItems(ctx context.Context, b Backend) ([]Line, error) {
	st, err := s.read(ctx, "items", b)
	if err != nil {
		return nil, err
	}
	lines := make([]Line, 0, len(st.lines))
	for _, item := range st.lines {
		line := Line{
			ProductID:  item.ID,
			Title:      item.Title,
			Price:      decimal.NewFromFloat(item.Price),
			ImageURL:   item.ImageURL,
			SellerID:   item.SellerID,
			SellerName: item.SellerName,
			Quantity:   item.Quantity,
			AddedAt:    item.AddedAt,
		}
		if p, ok := s.resolve(ctx, item.ID); ok {
			line.Title = p.Title
			line.Price = decimal.NewFromFloat(p.Price)
			line.ImageURL = p.ImageURL
			line.SellerID = p.SellerID
			line.SellerName = p.SellerName
			line.Available = true
		}
		line.Subtotal = line.Price.Mul(decimal.NewFromInt(int64(line.Quantity)))
		lines = append(lines, line)
	}
	return lines, nil
}

// CartTotal sums price times quantity over available lines.
func (s *service) CartTotal(ctx context.Context, b Backend) (decimal.Decimal, error) {
	lines, err := s.CartItems(ctx, b)
	if err != nil {
		return decimal.Zero, err
	}
	return Total(lines), nil
}

// Total sums the subtotals of available lines.
func Total(lines []Line) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		if line.Available {
			total = total.Add(line.Subtotal)
		}
	}
	return total
}

// Wishlist returns the wishlisted products in catalog order. Products outside
// the loaded catalog follow in wishlist order; unlisted ones are skipped.
func (s *service) Wishlist(ctx context.Context, b Backend) ([]catalog.Product, error) {
	st, err := s.read(ctx, "wishlist_items", b)
	if err != nil {
		return nil, err
	}
	type ranked struct {
		product catalog.Product
		rank    int
	}
	entries := make([]ranked, 0, len(st.wishlist))
	for _, id := range st.wishlist {
		p, ok := s.resolve(ctx, id)
		if !ok {
			continue
		}
		rank, cached := s.catalog.Position(id)
		if !cached {
			rank = math.MaxInt
		}
		entries = append(entries, ranked{product: p, rank: rank})
	}
	slices.SortStableFunc(entries, func(a, b ranked) int {
		switch {
		case a.rank < b.rank:
			return -1
		case a.rank > b.rank:
			return 1
		default:
			return 0
		}
	})
	out := make([]catalog.Product, len(entries))
	for i, e := range entries {
		out[i] = e.product
	}
	return out, nil
}

func (s *service) resolve(ctx context.Context, id string) (catalog.Product, bool) {
	if p, ok := s.catalog.Lookup(id); ok {
		return p, true
	}
	if s.finder == nil {
		return catalog.Product{}, false
	}
	p, err := s.finder.FindByID(ctx, id)
	if err != nil {
		s.logg.Debug(s.logg.WithField(ctx, "product_id", id), "cart.resolve_product_missed")
		return catalog.Product{}, false
	}
	return p, p.Status == enums.ProductStatusAvailable
}

func (s *service) reject(op string, b Backend, productID string, reason Reason) Outcome {
	s.record(op, b.Kind, string(ActionRejected))
	return Outcome{Action: ActionRejected, Reason: reason, Backend: b.Kind, ProductID: productID}
}

// apply runs m against the active backend. A remote failure reruns the
// mutation against the local backend once.
func (s *service) apply(ctx context.Context, op string, b Backend, m mutation) (Outcome, error) {
	if b.IsRemote() {
		out, err := s.applyRemote(ctx, b.UID, m)
		if err == nil {
			s.record(op, enums.CartBackendRemote, string(out.Action))
			return out, nil
		}
		s.fallback(ctx, op, err)
		out, err = s.applyLocal(ctx, m)
		if err != nil {
			s.record(op, enums.CartBackendLocal, "error")
			return Outcome{}, err
		}
		out.Fallback = true
		s.record(op, enums.CartBackendLocal, string(out.Action))
		return out, nil
	}

	out, err := s.applyLocal(ctx, m)
	if err != nil {
		s.record(op, enums.CartBackendLocal, "error")
		return Outcome{}, err
	}
	s.record(op, enums.CartBackendLocal, string(out.Action))
	return out, nil
}

func (s *service) applyRemote(ctx context.Context, uid string, m mutation) (Outcome, error) {
	doc, err := s.remote.Load(ctx, uid)
	if err != nil {
		return Outcome{}, err
	}
	st := fromRemote(doc)
	out, ch := m(&st, enums.CartBackendRemote)
	if !ch.cart && !ch.wishlist {
		return out, nil
	}
	doc.Items = toRemote(st.lines)
	doc.Wishlist = st.wishlist
	doc.UpdatedAt = s.now().UTC()
	if err := s.remote.Save(ctx, doc); err != nil {
		return Outcome{}, err
	}
	return out, nil
}

func (s *service) applyLocal(ctx context.Context, m mutation) (Outcome, error) {
	st, err := s.loadLocal(ctx)
	if err != nil {
		return Outcome{}, err
	}
	out, ch := m(&st, enums.CartBackendLocal)
	if ch.cart {
		if err := s.local.SaveCart(ctx, st.lines); err != nil {
			return Outcome{}, err
		}
	}
	if ch.wishlist {
		if err := s.local.SaveWishlist(ctx, st.wishlist); err != nil {
			return Outcome{}, err
		}
	}
	return out, nil
}

// read loads state from the active backend, using the local backend when
// the remote read fails.
func (s *service) read(ctx context.Context, op string, b Backend) (state, error) {
	if b.IsRemote() {
		doc, err := s.remote.Load(ctx, b.UID)
		if err == nil {
			return fromRemote(doc), nil
		}
		s.fallback(ctx, op, err)
	}
	return s.loadLocal(ctx)
}

func (s *service) loadLocal(ctx context.Context) (state, error) {
	lines, err := s.local.Cart(ctx)
	if err != nil {
		return state{}, err
	}
	wishlist, err := s.local.Wishlist(ctx)
	if err != nil {
		return state{}, err
	}
	return state{lines: lines, wishlist: wishlist}, nil
}

func (s *service) fallback(ctx context.Context, op string, err error) {
	s.logg.WarnErr(s.logg.WithField(ctx, "op", op), "cart.remote_failed_using_local", err)
	if s.recorder != nil {
		s.recorder.CartFallback(op)
	}
}

func (s *service) record(op string, backend enums.CartBackend, outcome string) {
	if s.recorder != nil {
		s.recorder.CartOp(op, backend.String(), outcome)
	}
}

func removeLine(productID string) mutation {
	return func(st *state, backend enums.CartBackend) (Outcome, change) {
		out := Outcome{ProductID: productID, Backend: backend, Action: ActionNoop}
		i := st.find(productID)
		if i < 0 {
			return out, change{}
		}
		st.lines = slices.Delete(st.lines, i, i+1)
		out.Action = ActionRemoved
		return out, change{cart: true}
	}
}

func snapshot(p catalog.Product, qty int, now time.Time) prefs.CartItem {
	return prefs.CartItem{
		ID:         p.ID,
		Title:      p.Title,
		Price:      p.Price,
		ImageURL:   p.ImageURL,
		SellerID:   p.SellerID,
		SellerName: p.SellerName,
		Quantity:   qty,
		AddedAt:    now.UTC(),
	}
}

func fromRemote(doc RemoteCart) state {
	lines := make([]prefs.CartItem, 0, len(doc.Items))
	for _, it := range doc.Items {
		lines = append(lines, prefs.CartItem{ID: it.ProductID, Quantity: it.Quantity, AddedAt: it.AddedAt})
	}
	wishlist := slices.Clone(doc.Wishlist)
	if wishlist == nil {
		wishlist = []string{}
	}
	return state{lines: lines, wishlist: wishlist}
}

func toRemote(lines []prefs.CartItem) []RemoteItem {
	items := make([]RemoteItem, 0, len(lines))
	for _, line := range lines {
		items = append(items, RemoteItem{ProductID: line.ID, Quantity: line.Quantity, AddedAt: line.AddedAt})
	}
	return items
}

func addQuantity(a, b int) int {
	if a > math.MaxInt-b {
		return math.MaxInt
	}
	return a + b
}
