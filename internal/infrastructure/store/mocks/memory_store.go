package mocks

import (
	"bytes"
	"context"
	"sort"
	"sync"
	"time"

	"github.com/example/online-store/internal/infrastructure/store"
	"github.com/example/online-store/internal/model"
	"github.com/google/uuid"
)

// MemoryStore is an in-memory store.Store for tests. Each WithTx call works on
// a private copy of the data that replaces the shared copy only when fn
// succeeds, so failed transactions leave no trace. Transactions are
// serialized.
type MemoryStore struct {
	mu    sync.Mutex
	state *memState

	// Errors injects a failure into the named Tx method (e.g. "InsertOrderItem").
	Errors map[string]error
	// Calls records every Tx method invoked, in order.
	Calls     []string
	Commits   int
	Rollbacks int
}

type memState struct {
	products   map[uuid.UUID]model.Product
	discounts  []model.Discount
	categories map[uuid.UUID]model.Category
	carts      map[uuid.UUID]model.Cart
	cartItems  []model.CartItem
	orders     map[uuid.UUID]model.Order
	orderItems []model.OrderItem
	users      map[uuid.UUID]model.User
	revoked    map[string]time.Time
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		state: &memState{
			products:   make(map[uuid.UUID]model.Product),
			categories: make(map[uuid.UUID]model.Category),
			carts:      make(map[uuid.UUID]model.Cart),
			orders:     make(map[uuid.UUID]model.Order),
			users:      make(map[uuid.UUID]model.User),
			revoked:    make(map[string]time.Time),
		},
		Errors: make(map[string]error),
	}
}

func (s *memState) clone() *memState {
	c := &memState{
		products:   make(map[uuid.UUID]model.Product, len(s.products)),
		discounts:  append([]model.Discount(nil), s.discounts...),
		categories: make(map[uuid.UUID]model.Category, len(s.categories)),
		carts:      make(map[uuid.UUID]model.Cart, len(s.carts)),
		cartItems:  append([]model.CartItem(nil), s.cartItems...),
		orders:     make(map[uuid.UUID]model.Order, len(s.orders)),
		orderItems: append([]model.OrderItem(nil), s.orderItems...),
		users:      make(map[uuid.UUID]model.User, len(s.users)),
		revoked:    make(map[string]time.Time, len(s.revoked)),
	}
	for k, v := range s.products {
		c.products[k] = v
	}
	for k, v := range s.categories {
		c.categories[k] = v
	}
	for k, v := range s.carts {
		c.carts[k] = v
	}
	for k, v := range s.orders {
		c.orders[k] = v
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.revoked {
		c.revoked[k] = v
	}
	return c
}

// WithTx implements store.Store
func (m *MemoryStore) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	tx := &memTx{store: m, s: m.state.clone()}
	if err := fn(tx); err != nil {
		m.Rollbacks++
		return err
	}
	m.state = tx.s
	m.Commits++
	return nil
}

// Seeding and inspection helpers. They bypass transactions.

func (m *MemoryStore) SeedCategory(c model.Category) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.categories[c.ID] = c
}

func (m *MemoryStore) SeedProduct(p model.Product) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.products[p.ID] = p
}

func (m *MemoryStore) SeedDiscount(d model.Discount) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.discounts = append(m.state.discounts, d)
}

func (m *MemoryStore) SeedUser(u model.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.users[u.ID] = u
}

func (m *MemoryStore) SeedOrder(o model.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := o.Items
	o.Items = nil
	m.state.orders[o.ID] = o
	m.state.orderItems = append(m.state.orderItems, items...)
}

// Product returns the committed state of a product.
func (m *MemoryStore) Product(id uuid.UUID) (model.Product, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.state.products[id]
	return p, ok
}

func (m *MemoryStore) Category(id uuid.UUID) (model.Category, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.state.categories[id]
	return c, ok
}

// CartItems returns the committed items of the user's cart, nil if no cart.
func (m *MemoryStore) CartItems(userID uuid.UUID) []model.CartItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.state.carts {
		if c.UserID == userID {
			return m.state.itemsOfCart(c.ID)
		}
	}
	return nil
}

func (m *MemoryStore) HasCart(userID uuid.UUID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.state.carts {
		if c.UserID == userID {
			return true
		}
	}
	return false
}

func (m *MemoryStore) OrderCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.state.orders)
}

func (m *MemoryStore) OrderItemCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.state.orderItems)
}

// OrderedQuantity sums the product's quantity over every order item.
func (m *MemoryStore) OrderedQuantity(productID uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, it := range m.state.orderItems {
		if it.ProductID == productID {
			n += it.Quantity
		}
	}
	return n
}

func (m *MemoryStore) DiscountCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.state.discounts)
}

func (s *memState) itemsOfCart(cartID uuid.UUID) []model.CartItem {
	items := []model.CartItem{}
	for _, it := range s.cartItems {
		if it.CartID == cartID {
			items = append(items, it)
		}
	}
	return items
}

// memTx implements store.Tx against a private copy of the state.
type memTx struct {
	store *MemoryStore
	s     *memState
}

func (t *memTx) call(name string) error {
	t.store.Calls = append(t.store.Calls, name)
	return t.store.Errors[name]
}

// Products

func (t *memTx) GetProduct(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	if err := t.call("GetProduct"); err != nil {
		return nil, err
	}
	p, ok := t.s.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (t *memTx) GetProductForUpdate(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	if err := t.call("GetProductForUpdate"); err != nil {
		return nil, err
	}
	p, ok := t.s.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (t *memTx) GetProductByName(ctx context.Context, name string) (*model.Product, error) {
	if err := t.call("GetProductByName"); err != nil {
		return nil, err
	}
	for _, p := range t.s.products {
		if p.Name == name {
			return &p, nil
		}
	}
	return nil, store.ErrNotFound
}

func (t *memTx) ListProducts(ctx context.Context, q model.ProductQuery) ([]model.Product, int, error) {
	if err := t.call("ListProducts"); err != nil {
		return nil, 0, err
	}
	var matched []model.Product
	for _, p := range t.s.products {
		if !p.IsActive || p.AvailableStock() <= 0 {
			continue
		}
		if q.CategoryID != uuid.Nil && p.CategoryID != q.CategoryID {
			continue
		}
		if q.ParentCategoryID != uuid.Nil {
			c, ok := t.s.categories[p.CategoryID]
			if !ok || !c.ParentID.Valid || c.ParentID.UUID != q.ParentCategoryID {
				continue
			}
		}
		matched = append(matched, p)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.Before(matched[j].CreatedAt)
		}
		return bytes.Compare(matched[i].ID[:], matched[j].ID[:]) < 0
	})

	total := len(matched)
	start := min(q.Offset, total)
	end := min(start+q.Limit, total)
	page := append([]model.Product{}, matched[start:end]...)
	return page, total, nil
}

func (t *memTx) InsertProduct(ctx context.Context, p *model.Product) error {
	if err := t.call("InsertProduct"); err != nil {
		return err
	}
	for _, existing := range t.s.products {
		if existing.Name == p.Name || existing.ID == p.ID {
			return store.ErrDuplicate
		}
	}
	if _, ok := t.s.categories[p.CategoryID]; !ok {
		return store.ErrReferenced
	}
	t.s.products[p.ID] = *p
	return nil
}

func (t *memTx) UpdateProduct(ctx context.Context, p *model.Product) error {
	if err := t.call("UpdateProduct"); err != nil {
		return err
	}
	if _, ok := t.s.products[p.ID]; !ok {
		return store.ErrNotFound
	}
	for _, existing := range t.s.products {
		if existing.Name == p.Name && existing.ID != p.ID {
			return store.ErrDuplicate
		}
	}
	if _, ok := t.s.categories[p.CategoryID]; !ok {
		return store.ErrReferenced
	}
	t.s.products[p.ID] = *p
	return nil
}

func (t *memTx) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	if err := t.call("DeleteProduct"); err != nil {
		return err
	}
	if _, ok := t.s.products[id]; !ok {
		return store.ErrNotFound
	}
	for _, it := range t.s.orderItems {
		if it.ProductID == id {
			return store.ErrReferenced
		}
	}
	delete(t.s.products, id)

	discounts := t.s.discounts[:0:0]
	for _, d := range t.s.discounts {
		if d.ProductID != id {
			discounts = append(discounts, d)
		}
	}
	t.s.discounts = discounts

	items := t.s.cartItems[:0:0]
	for _, it := range t.s.cartItems {
		if it.ProductID != id {
			items = append(items, it)
		}
	}
	t.s.cartItems = items
	return nil
}

func (t *memTx) ReserveStock(ctx context.Context, productID uuid.UUID, qty int) error {
	if err := t.call("ReserveStock"); err != nil {
		return err
	}
	p, ok := t.s.products[productID]
	if !ok {
		return store.ErrNotFound
	}
	if p.AvailableStock() < qty {
		return store.ErrInsufficientStock
	}
	p.Stock -= qty
	t.s.products[productID] = p
	return nil
}

func (t *memTx) ReleaseStock(ctx context.Context, productID uuid.UUID, qty int) error {
	if err := t.call("ReleaseStock"); err != nil {
		return err
	}
	p, ok := t.s.products[productID]
	if !ok {
		return store.ErrNotFound
	}
	p.Stock += qty
	t.s.products[productID] = p
	return nil
}

// Discounts

func (t *memTx) InsertDiscount(ctx context.Context, d *model.Discount) error {
	if err := t.call("InsertDiscount"); err != nil {
		return err
	}
	if _, ok := t.s.products[d.ProductID]; !ok {
		return store.ErrReferenced
	}
	t.s.discounts = append(t.s.discounts, *d)
	return nil
}

func (t *memTx) ListDiscounts(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID][]model.Discount, error) {
	if err := t.call("ListDiscounts"); err != nil {
		return nil, err
	}
	wanted := make(map[uuid.UUID]bool, len(productIDs))
	for _, id := range productIDs {
		wanted[id] = true
	}
	out := make(map[uuid.UUID][]model.Discount, len(productIDs))
	for _, d := range t.s.discounts {
		if wanted[d.ProductID] {
			out[d.ProductID] = append(out[d.ProductID], d)
		}
	}
	for id := range out {
		ds := out[id]
		sort.Slice(ds, func(i, j int) bool {
			if !ds[i].CreatedAt.Equal(ds[j].CreatedAt) {
				return ds[i].CreatedAt.After(ds[j].CreatedAt)
			}
			return bytes.Compare(ds[i].ID[:], ds[j].ID[:]) > 0
		})
	}
	return out, nil
}

// Categories

func (t *memTx) GetCategory(ctx context.Context, id uuid.UUID) (*model.Category, error) {
	if err := t.call("GetCategory"); err != nil {
		return nil, err
	}
	c, ok := t.s.categories[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &c, nil
}

func (t *memTx) GetCategoryByName(ctx context.Context, name string) (*model.Category, error) {
	if err := t.call("GetCategoryByName"); err != nil {
		return nil, err
	}
	for _, c := range t.s.categories {
		if c.Name == name {
			return &c, nil
		}
	}
	return nil, store.ErrNotFound
}

func (t *memTx) ListCategories(ctx context.Context) ([]model.Category, error) {
	if err := t.call("ListCategories"); err != nil {
		return nil, err
	}
	out := make([]model.Category, 0, len(t.s.categories))
	for _, c := range t.s.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (t *memTx) InsertCategory(ctx context.Context, c *model.Category) error {
	if err := t.call("InsertCategory"); err != nil {
		return err
	}
	for _, existing := range t.s.categories {
		if existing.Name == c.Name || existing.ID == c.ID {
			return store.ErrDuplicate
		}
	}
	if c.ParentID.Valid {
		if _, ok := t.s.categories[c.ParentID.UUID]; !ok {
			return store.ErrReferenced
		}
	}
	t.s.categories[c.ID] = *c
	return nil
}

func (t *memTx) UpdateCategory(ctx context.Context, c *model.Category) error {
	if err := t.call("UpdateCategory"); err != nil {
		return err
	}
	if _, ok := t.s.categories[c.ID]; !ok {
		return store.ErrNotFound
	}
	for _, existing := range t.s.categories {
		if existing.Name == c.Name && existing.ID != c.ID {
			return store.ErrDuplicate
		}
	}
	t.s.categories[c.ID] = *c
	return nil
}

func (t *memTx) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	if err := t.call("DeleteCategory"); err != nil {
		return err
	}
	if _, ok := t.s.categories[id]; !ok {
		return store.ErrNotFound
	}

	subtree := map[uuid.UUID]bool{id: true}
	for changed := true; changed; {
		changed = false
		for cid, c := range t.s.categories {
			if c.ParentID.Valid && subtree[c.ParentID.UUID] && !subtree[cid] {
				subtree[cid] = true
				changed = true
			}
		}
	}
	for _, p := range t.s.products {
		if subtree[p.CategoryID] {
			return store.ErrReferenced
		}
	}
	for cid := range subtree {
		delete(t.s.categories, cid)
	}
	return nil
}

// Carts

func (t *memTx) GetCartByUser(ctx context.Context, userID uuid.UUID) (*model.Cart, error) {
	if err := t.call("GetCartByUser"); err != nil {
		return nil, err
	}
	return t.cartByUser(userID)
}

func (t *memTx) cartByUser(userID uuid.UUID) (*model.Cart, error) {
	for _, c := range t.s.carts {
		if c.UserID == userID {
			c.Items = t.s.itemsOfCart(c.ID)
			return &c, nil
		}
	}
	return nil, store.ErrNotFound
}

// GetCartByUserForUpdate needs no lock: transactions are serialized.
func (t *memTx) GetCartByUserForUpdate(ctx context.Context, userID uuid.UUID) (*model.Cart, error) {
	if err := t.call("GetCartByUserForUpdate"); err != nil {
		return nil, err
	}
	return t.cartByUser(userID)
}

func (t *memTx) InsertCart(ctx context.Context, c *model.Cart) error {
	if err := t.call("InsertCart"); err != nil {
		return err
	}
	for _, existing := range t.s.carts {
		if existing.UserID == c.UserID {
			return nil
		}
		if existing.ID == c.ID {
			return store.ErrDuplicate
		}
	}
	stored := *c
	stored.Items = nil
	t.s.carts[c.ID] = stored
	return nil
}

func (t *memTx) DeleteCart(ctx context.Context, cartID uuid.UUID) error {
	if err := t.call("DeleteCart"); err != nil {
		return err
	}
	if _, ok := t.s.carts[cartID]; !ok {
		return store.ErrNotFound
	}
	delete(t.s.carts, cartID)
	items := t.s.cartItems[:0:0]
	for _, it := range t.s.cartItems {
		if it.CartID != cartID {
			items = append(items, it)
		}
	}
	t.s.cartItems = items
	return nil
}

func (t *memTx) GetCartItem(ctx context.Context, cartID, productID uuid.UUID) (*model.CartItem, error) {
	if err := t.call("GetCartItem"); err != nil {
		return nil, err
	}
	for _, it := range t.s.cartItems {
		if it.CartID == cartID && it.ProductID == productID {
			return &it, nil
		}
	}
	return nil, store.ErrNotFound
}

func (t *memTx) InsertCartItem(ctx context.Context, item *model.CartItem) error {
	if err := t.call("InsertCartItem"); err != nil {
		return err
	}
	for _, it := range t.s.cartItems {
		if it.CartID == item.CartID && it.ProductID == item.ProductID {
			return store.ErrDuplicate
		}
	}
	t.s.cartItems = append(t.s.cartItems, *item)
	return nil
}

func (t *memTx) UpdateCartItem(ctx context.Context, item *model.CartItem) error {
	if err := t.call("UpdateCartItem"); err != nil {
		return err
	}
	for i, it := range t.s.cartItems {
		if it.CartID == item.CartID && it.ProductID == item.ProductID {
			t.s.cartItems[i] = *item
			return nil
		}
	}
	return store.ErrNotFound
}

func (t *memTx) DeleteCartItem(ctx context.Context, cartID, productID uuid.UUID) error {
	if err := t.call("DeleteCartItem"); err != nil {
		return err
	}
	for i, it := range t.s.cartItems {
		if it.CartID == cartID && it.ProductID == productID {
			t.s.cartItems = append(t.s.cartItems[:i:i], t.s.cartItems[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

// Orders

func (t *memTx) InsertOrder(ctx context.Context, o *model.Order) error {
	if err := t.call("InsertOrder"); err != nil {
		return err
	}
	if _, ok := t.s.orders[o.ID]; ok {
		return store.ErrDuplicate
	}
	stored := *o
	stored.Items = nil
	t.s.orders[o.ID] = stored
	return nil
}

func (t *memTx) InsertOrderItem(ctx context.Context, item *model.OrderItem) error {
	if err := t.call("InsertOrderItem"); err != nil {
		return err
	}
	if _, ok := t.s.orders[item.OrderID]; !ok {
		return store.ErrReferenced
	}
	if _, ok := t.s.products[item.ProductID]; !ok {
		return store.ErrReferenced
	}
	t.s.orderItems = append(t.s.orderItems, *item)
	return nil
}

func (t *memTx) itemsOfOrder(orderID uuid.UUID) []model.OrderItem {
	items := []model.OrderItem{}
	for _, it := range t.s.orderItems {
		if it.OrderID == orderID {
			items = append(items, it)
		}
	}
	return items
}

func (t *memTx) GetOrder(ctx context.Context, id, userID uuid.UUID) (*model.Order, error) {
	if err := t.call("GetOrder"); err != nil {
		return nil, err
	}
	o, ok := t.s.orders[id]
	if !ok || o.UserID != userID {
		return nil, store.ErrNotFound
	}
	o.Items = t.itemsOfOrder(id)
	return &o, nil
}

func (t *memTx) ListOrders(ctx context.Context, userID uuid.UUID) ([]model.Order, error) {
	if err := t.call("ListOrders"); err != nil {
		return nil, err
	}
	orders := []model.Order{}
	for _, o := range t.s.orders {
		if o.UserID == userID {
			o.Items = t.itemsOfOrder(o.ID)
			orders = append(orders, o)
		}
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].CreatedAt.After(orders[j].CreatedAt) })
	return orders, nil
}

func (t *memTx) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status model.OrderStatus, at time.Time) error {
	if err := t.call("UpdateOrderStatus"); err != nil {
		return err
	}
	o, ok := t.s.orders[id]
	if !ok {
		return store.ErrNotFound
	}
	o.Status = status
	o.UpdatedAt = at
	t.s.orders[id] = o
	return nil
}

func (t *memTx) SalesReport(ctx context.Context, q model.ReportQuery) ([]model.ReportRow, error) {
	if err := t.call("SalesReport"); err != nil {
		return nil, err
	}
	rows := []model.ReportRow{}
	for _, it := range t.s.orderItems {
		o := t.s.orders[it.OrderID]
		if !q.Start.IsZero() && o.CreatedAt.Before(q.Start) {
			continue
		}
		if !q.End.IsZero() && o.CreatedAt.After(q.End) {
			continue
		}
		if q.MinQuantity > 0 && it.Quantity < q.MinQuantity {
			continue
		}
		p := t.s.products[it.ProductID]
		rows = append(rows, model.ReportRow{
			OrderItemID:  it.ID,
			OrderID:      o.ID,
			OrderedAt:    o.CreatedAt,
			ProductID:    p.ID,
			ProductName:  p.Name,
			ProductPrice: p.Price.Decimal,
			Quantity:     it.Quantity,
		})
	}
	return rows, nil
}

// Users

func (t *memTx) GetUser(ctx context.Context, id uuid.UUID) (*model.User, error) {
	if err := t.call("GetUser"); err != nil {
		return nil, err
	}
	u, ok := t.s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

func (t *memTx) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	if err := t.call("GetUserByUsername"); err != nil {
		return nil, err
	}
	for _, u := range t.s.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (t *memTx) UserExists(ctx context.Context, username, email string) (bool, error) {
	if err := t.call("UserExists"); err != nil {
		return false, err
	}
	for _, u := range t.s.users {
		if u.Username == username || u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (t *memTx) InsertUser(ctx context.Context, u *model.User) error {
	if err := t.call("InsertUser"); err != nil {
		return err
	}
	for _, existing := range t.s.users {
		if existing.Username == u.Username || existing.Email == u.Email || existing.ID == u.ID {
			return store.ErrDuplicate
		}
	}
	t.s.users[u.ID] = *u
	return nil
}

func (t *memTx) UpdateUserPassword(ctx context.Context, id uuid.UUID, hash string, at time.Time) error {
	if err := t.call("UpdateUserPassword"); err != nil {
		return err
	}
	u, ok := t.s.users[id]
	if !ok {
		return store.ErrNotFound
	}
	u.PasswordHash = hash
	u.UpdatedAt = at
	t.s.users[id] = u
	return nil
}

func (t *memTx) RevokeToken(ctx context.Context, jti string, expiresAt time.Time) (bool, error) {
	if err := t.call("RevokeToken"); err != nil {
		return false, err
	}
	if _, ok := t.s.revoked[jti]; ok {
		return false, nil
	}
	t.s.revoked[jti] = expiresAt
	return true, nil
}

func (t *memTx) DeleteExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	if err := t.call("DeleteExpiredTokens"); err != nil {
		return 0, err
	}
	var n int64
	for jti, exp := range t.s.revoked {
		if exp.Before(now) {
			delete(t.s.revoked, jti)
			n++
		}
	}
	return n, nil
}

func (t *memTx) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	if err := t.call("IsTokenRevoked"); err != nil {
		return false, err
	}
	_, ok := t.s.revoked[jti]
	return ok, nil
}
