// Package memory is an in-process Store. Transactions are serialized behind
// one mutex and run against a private copy of the state, which replaces the
// shared state only when fn succeeds.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"pizza-lovers/internal/apperr"
	"pizza-lovers/internal/models"
	"pizza-lovers/internal/store"
)

type Store struct {
	mu    sync.Mutex
	state *state
}

func New() *Store {
	return &Store{state: newState()}
}

// InTx runs fn on a snapshot and commits it when fn returns nil
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	work := s.state.clone()
	if err := fn(ctx, &tx{st: work}); err != nil {
		return err
	}
	s.state = work
	return nil
}

type state struct {
	seq       map[string]int64
	foodItems map[int64]models.FoodItem
	customers map[int64]models.Customer
	carts     map[int64]map[int64]int
	grants    map[int64]models.LoyaltyGrant
	coupons   map[int64]models.Coupon
	orders    map[int64]models.Order
	statusLog []models.StatusLogEntry
	staff     map[models.Role]map[int64]models.Staff
	couriers  map[int64]models.DeliveryPerson
}

func newState() *state {
	return &state{
		seq:       map[string]int64{},
		foodItems: map[int64]models.FoodItem{},
		customers: map[int64]models.Customer{},
		carts:     map[int64]map[int64]int{},
		grants:    map[int64]models.LoyaltyGrant{},
		coupons:   map[int64]models.Coupon{},
		orders:    map[int64]models.Order{},
		staff: map[models.Role]map[int64]models.Staff{
			models.RoleOrderManager: {},
			models.RoleDispatcher:   {},
		},
		couriers: map[int64]models.DeliveryPerson{},
	}
}

func (st *state) next(table string) int64 {
	st.seq[table]++
	return st.seq[table]
}

func (st *state) clone() *state {
	out := newState()
	for k, v := range st.seq {
		out.seq[k] = v
	}
	for k, v := range st.foodItems {
		out.foodItems[k] = v
	}
	for k, v := range st.customers {
		out.customers[k] = v
	}
	for k, lines := range st.carts {
		cp := make(map[int64]int, len(lines))
		for item, qty := range lines {
			cp[item] = qty
		}
		out.carts[k] = cp
	}
	for k, v := range st.grants {
		out.grants[k] = v
	}
	for k, v := range st.coupons {
		out.coupons[k] = v
	}
	for k, v := range st.orders {
		out.orders[k] = copyOrder(v)
	}
	out.statusLog = append([]models.StatusLogEntry(nil), st.statusLog...)
	for role, byID := range st.staff {
		for k, v := range byID {
			out.staff[role][k] = v
		}
	}
	for k, v := range st.couriers {
		out.couriers[k] = v
	}
	return out
}

func copyOrder(o models.Order) models.Order {
	o.CustomerID = copyID(o.CustomerID)
	o.OrderManagerID = copyID(o.OrderManagerID)
	o.OrderDispatcherID = copyID(o.OrderDispatcherID)
	o.DeliveryPersonID = copyID(o.DeliveryPersonID)
	lines := make([]models.OrderLine, len(o.Lines))
	for i, l := range o.Lines {
		l.FoodItemID = copyID(l.FoodItemID)
		lines[i] = l
	}
	o.Lines = lines
	return o
}

func copyID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

func stamp(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}

func paginate[T any](items []T, page models.Page) []T {
	page = page.Normalize()
	start := page.Offset()
	if start >= len(items) {
		return []T{}
	}
	end := start + page.Size
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

// tx implements store.Tx over one working copy
type tx struct {
	st *state
}

// Catalog

func (t *tx) CreateFoodItem(_ context.Context, item *models.FoodItem) error {
	item.ID = t.st.next("food_items")
	item.CreatedAt = stamp(item.CreatedAt)
	t.st.foodItems[item.ID] = *item
	return nil
}

func (t *tx) GetFoodItem(_ context.Context, id int64) (*models.FoodItem, error) {
	item, ok := t.st.foodItems[id]
	if !ok {
		return nil, apperr.NotFound(store.EntityFoodItem, id)
	}
	return &item, nil
}

func (t *tx) LockFoodItems(_ context.Context, ids []int64) (map[int64]*models.FoodItem, error) {
	out := make(map[int64]*models.FoodItem, len(ids))
	for _, id := range ids {
		if item, ok := t.st.foodItems[id]; ok {
			out[id] = &item
		}
	}
	return out, nil
}

func (t *tx) ListFoodItems(_ context.Context, activeOnly bool) ([]models.FoodItem, error) {
	out := make([]models.FoodItem, 0, len(t.st.foodItems))
	for _, item := range t.st.foodItems {
		if activeOnly && !item.Active {
			continue
		}
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *tx) UpdateFoodItem(_ context.Context, item *models.FoodItem) error {
	if _, ok := t.st.foodItems[item.ID]; !ok {
		return apperr.NotFound(store.EntityFoodItem, item.ID)
	}
	if item.Stock < 0 {
		return apperr.Conflict(apperr.RuleInsufficientStock, "stock of %s cannot go below zero", item.Name)
	}
	t.st.foodItems[item.ID] = *item
	return nil
}

func (t *tx) DecrementStock(_ context.Context, id int64, quantity int) error {
	item, ok := t.st.foodItems[id]
	if !ok {
		return apperr.NotFound(store.EntityFoodItem, id)
	}
	if item.Stock < quantity {
		return apperr.Conflict(apperr.RuleInsufficientStock,
			"insufficient stock for %s: %d available", item.Name, item.Stock)
	}
	item.Stock -= quantity
	t.st.foodItems[id] = item
	return nil
}

func (t *tx) DeleteFoodItem(_ context.Context, id int64) error {
	if _, ok := t.st.foodItems[id]; !ok {
		return apperr.NotFound(store.EntityFoodItem, id)
	}
	delete(t.st.foodItems, id)
	for _, lines := range t.st.carts {
		delete(lines, id)
	}
	for oid, o := range t.st.orders {
		for i := range o.Lines {
			if o.Lines[i].FoodItemID != nil && *o.Lines[i].FoodItemID == id {
				o.Lines[i].FoodItemID = nil
			}
		}
		t.st.orders[oid] = o
	}
	return nil
}

// Customers

func (t *tx) CreateCustomer(_ context.Context, c *models.Customer) error {
	for _, existing := range t.st.customers {
		if existing.Username == c.Username {
			return apperr.Conflict(apperr.RuleDuplicate, "username %s is taken", c.Username)
		}
	}
	c.ID = t.st.next("customers")
	c.CreatedAt = stamp(c.CreatedAt)
	t.st.customers[c.ID] = *c
	t.st.carts[c.ID] = map[int64]int{}
	return nil
}

func (t *tx) GetCustomer(_ context.Context, id int64) (*models.Customer, error) {
	c, ok := t.st.customers[id]
	if !ok {
		return nil, apperr.NotFound(store.EntityCustomer, id)
	}
	return &c, nil
}

func (t *tx) LockCustomer(ctx context.Context, id int64) (*models.Customer, error) {
	return t.GetCustomer(ctx, id)
}

func (t *tx) IncrementPurchases(_ context.Context, id int64) (int, error) {
	c, ok := t.st.customers[id]
	if !ok {
		return 0, apperr.NotFound(store.EntityCustomer, id)
	}
	c.Purchases++
	t.st.customers[id] = c
	return c.Purchases, nil
}

func (t *tx) DeleteCustomer(_ context.Context, id int64) error {
	if _, ok := t.st.customers[id]; !ok {
		return apperr.NotFound(store.EntityCustomer, id)
	}
	delete(t.st.customers, id)
	delete(t.st.carts, id)
	for gid, g := range t.st.grants {
		if g.CustomerID == id {
			delete(t.st.grants, gid)
		}
	}
	for cid, c := range t.st.coupons {
		if c.CustomerID == id {
			delete(t.st.coupons, cid)
		}
	}
	for oid, o := range t.st.orders {
		if o.CustomerID != nil && *o.CustomerID == id {
			o.CustomerID = nil
			t.st.orders[oid] = o
		}
	}
	return nil
}

// Carts

func (t *tx) cart(customerID int64) (map[int64]int, error) {
	lines, ok := t.st.carts[customerID]
	if !ok {
		return nil, apperr.NotFound(store.EntityCustomer, customerID)
	}
	return lines, nil
}

func (t *tx) CartLines(_ context.Context, customerID int64) ([]models.CartLine, error) {
	lines, err := t.cart(customerID)
	if err != nil {
		return nil, err
	}
	out := make([]models.CartLine, 0, len(lines))
	for item, qty := range lines {
		out = append(out, models.CartLine{CustomerID: customerID, FoodItemID: item, Quantity: qty})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FoodItemID < out[j].FoodItemID })
	return out, nil
}

func (t *tx) AddCartLine(_ context.Context, customerID, foodItemID int64, quantity int) error {
	lines, err := t.cart(customerID)
	if err != nil {
		return err
	}
	if _, ok := t.st.foodItems[foodItemID]; !ok {
		return apperr.NotFound(store.EntityFoodItem, foodItemID)
	}
	lines[foodItemID] += quantity
	return nil
}

func (t *tx) RemoveCartLine(_ context.Context, customerID, foodItemID int64) error {
	lines, err := t.cart(customerID)
	if err != nil {
		return err
	}
	if _, ok := lines[foodItemID]; !ok {
		return apperr.NotFound(store.EntityCartLine, foodItemID)
	}
	delete(lines, foodItemID)
	return nil
}

func (t *tx) ClearCart(_ context.Context, customerID int64) error {
	if _, err := t.cart(customerID); err != nil {
		return err
	}
	t.st.carts[customerID] = map[int64]int{}
	return nil
}

// Loyalty

func (t *tx) InsertGrant(_ context.Context, g *models.LoyaltyGrant) error {
	if _, ok := t.st.customers[g.CustomerID]; !ok {
		return apperr.NotFound(store.EntityCustomer, g.CustomerID)
	}
	g.ID = t.st.next("loyalty_points")
	g.CreatedAt = stamp(g.CreatedAt)
	t.st.grants[g.ID] = *g
	return nil
}

func (t *tx) Grants(_ context.Context, customerID int64) ([]models.LoyaltyGrant, error) {
	var out []models.LoyaltyGrant
	for _, g := range t.st.grants {
		if g.CustomerID == customerID {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (t *tx) LockGrants(ctx context.Context, customerID int64) ([]models.LoyaltyGrant, error) {
	return t.Grants(ctx, customerID)
}

func (t *tx) UpdateGrantRemaining(_ context.Context, id int64, remaining int) error {
	g, ok := t.st.grants[id]
	if !ok {
		return apperr.NotFound(store.EntityGrant, id)
	}
	if remaining < 0 {
		return apperr.Conflict(apperr.RuleNegativeBalance, "loyalty grant %d cannot go below zero", id)
	}
	g.Remaining = remaining
	t.st.grants[id] = g
	return nil
}

func (t *tx) DeleteGrants(_ context.Context, customerID int64) error {
	for id, g := range t.st.grants {
		if g.CustomerID == customerID {
			delete(t.st.grants, id)
		}
	}
	return nil
}

func (t *tx) InsertCoupon(_ context.Context, c *models.Coupon) error {
	if _, ok := t.st.customers[c.CustomerID]; !ok {
		return apperr.NotFound(store.EntityCustomer, c.CustomerID)
	}
	c.ID = t.st.next("coupons")
	c.CreatedAt = stamp(c.CreatedAt)
	t.st.coupons[c.ID] = *c
	return nil
}

func (t *tx) LockCoupon(_ context.Context, id int64) (*models.Coupon, error) {
	c, ok := t.st.coupons[id]
	if !ok {
		return nil, apperr.NotFound(store.EntityCoupon, id)
	}
	return &c, nil
}

func (t *tx) Coupons(_ context.Context, customerID int64) ([]models.Coupon, error) {
	var out []models.Coupon
	for _, c := range t.st.coupons {
		if c.CustomerID == customerID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *tx) DeleteCoupon(_ context.Context, id int64) error {
	if _, ok := t.st.coupons[id]; !ok {
		return apperr.NotFound(store.EntityCoupon, id)
	}
	delete(t.st.coupons, id)
	return nil
}

// Orders

func (t *tx) InsertOrder(_ context.Context, o *models.Order) error {
	o.ID = t.st.next("orders")
	o.CreatedAt = stamp(o.CreatedAt)
	for i := range o.Lines {
		o.Lines[i].ID = t.st.next("order_lines")
		o.Lines[i].OrderID = o.ID
	}
	t.st.orders[o.ID] = copyOrder(*o)
	return nil
}

func (t *tx) GetOrder(_ context.Context, id int64) (*models.Order, error) {
	o, ok := t.st.orders[id]
	if !ok {
		return nil, apperr.NotFound(store.EntityOrder, id)
	}
	cp := copyOrder(o)
	return &cp, nil
}

func (t *tx) LockOrder(ctx context.Context, id int64) (*models.Order, error) {
	return t.GetOrder(ctx, id)
}

func (t *tx) ListOrders(_ context.Context, f models.OrderFilter) ([]models.Order, int, error) {
	var out []models.Order
	for _, o := range t.st.orders {
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		if f.CustomerID != nil && (o.CustomerID == nil || *o.CustomerID != *f.CustomerID) {
			continue
		}
		if f.DeliveryPersonID != nil && (o.DeliveryPersonID == nil || *o.DeliveryPersonID != *f.DeliveryPersonID) {
			continue
		}
		out = append(out, copyOrder(o))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return paginate(out, f.Page), len(out), nil
}

func (t *tx) UpdateOrder(_ context.Context, o *models.Order) error {
	current, ok := t.st.orders[o.ID]
	if !ok {
		return apperr.NotFound(store.EntityOrder, o.ID)
	}
	current.Status = o.Status
	current.OrderManagerID = copyID(o.OrderManagerID)
	current.OrderDispatcherID = copyID(o.OrderDispatcherID)
	current.DeliveryPersonID = copyID(o.DeliveryPersonID)
	t.st.orders[o.ID] = current
	return nil
}

func (t *tx) DeleteOrder(_ context.Context, id int64) error {
	if _, ok := t.st.orders[id]; !ok {
		return apperr.NotFound(store.EntityOrder, id)
	}
	delete(t.st.orders, id)
	kept := t.st.statusLog[:0]
	for _, e := range t.st.statusLog {
		if e.OrderID != id {
			kept = append(kept, e)
		}
	}
	t.st.statusLog = kept
	return nil
}

func (t *tx) CountOpenOrders(_ context.Context, customerID int64) (int, error) {
	n := 0
	for _, o := range t.st.orders {
		if o.CustomerID != nil && *o.CustomerID == customerID && !o.Status.IsTerminal() {
			n++
		}
	}
	return n, nil
}

func (t *tx) AppendStatusLog(_ context.Context, e *models.StatusLogEntry) error {
	if _, ok := t.st.orders[e.OrderID]; !ok {
		return apperr.NotFound(store.EntityOrder, e.OrderID)
	}
	e.ID = t.st.next("order_status_log")
	e.ChangedAt = stamp(e.ChangedAt)
	t.st.statusLog = append(t.st.statusLog, *e)
	return nil
}

func (t *tx) StatusLog(_ context.Context, orderID int64) ([]models.StatusLogEntry, error) {
	var out []models.StatusLogEntry
	for _, e := range t.st.statusLog {
		if e.OrderID == orderID {
			out = append(out, e)
		}
	}
	return out, nil
}

// Staff

func (t *tx) staffTable(role models.Role) (map[int64]models.Staff, error) {
	byID, ok := t.st.staff[role]
	if !ok {
		return nil, apperr.Invalid("role", "must be order_manager or order_dispatcher")
	}
	return byID, nil
}

func (t *tx) CreateStaff(_ context.Context, s *models.Staff) error {
	byID, err := t.staffTable(s.Role)
	if err != nil {
		return err
	}
	for _, existing := range byID {
		if existing.Username == s.Username {
			return apperr.Conflict(apperr.RuleDuplicate, "username %s is taken", s.Username)
		}
	}
	s.ID = t.st.next(string(s.Role))
	s.CreatedAt = stamp(s.CreatedAt)
	byID[s.ID] = *s
	return nil
}

func (t *tx) GetStaff(_ context.Context, role models.Role, id int64) (*models.Staff, error) {
	byID, err := t.staffTable(role)
	if err != nil {
		return nil, err
	}
	s, ok := byID[id]
	if !ok {
		return nil, apperr.NotFound(store.StaffEntity(role), id)
	}
	return &s, nil
}

func (t *tx) DeleteStaff(_ context.Context, role models.Role, id int64) error {
	byID, err := t.staffTable(role)
	if err != nil {
		return err
	}
	if _, ok := byID[id]; !ok {
		return apperr.NotFound(store.StaffEntity(role), id)
	}
	delete(byID, id)
	for oid, o := range t.st.orders {
		switch {
		case role == models.RoleOrderManager && o.OrderManagerID != nil && *o.OrderManagerID == id:
			o.OrderManagerID = nil
		case role == models.RoleDispatcher && o.OrderDispatcherID != nil && *o.OrderDispatcherID == id:
			o.OrderDispatcherID = nil
		default:
			continue
		}
		t.st.orders[oid] = o
	}
	return nil
}

// Couriers

func (t *tx) load(courierID int64) int {
	n := 0
	for _, o := range t.st.orders {
		if o.DeliveryPersonID != nil && *o.DeliveryPersonID == courierID && !o.Status.IsTerminal() {
			n++
		}
	}
	return n
}

func (t *tx) CreateCourier(_ context.Context, d *models.DeliveryPerson) error {
	for _, existing := range t.st.couriers {
		if existing.Username == d.Username {
			return apperr.Conflict(apperr.RuleDuplicate, "username %s is taken", d.Username)
		}
	}
	d.ID = t.st.next("delivery_persons")
	d.CreatedAt = stamp(d.CreatedAt)
	d.Load = 0
	t.st.couriers[d.ID] = *d
	return nil
}

func (t *tx) GetCourier(_ context.Context, id int64) (*models.DeliveryPerson, error) {
	d, ok := t.st.couriers[id]
	if !ok {
		return nil, apperr.NotFound(store.EntityCourier, id)
	}
	d.Load = t.load(id)
	return &d, nil
}

func (t *tx) LockCourier(ctx context.Context, id int64) (*models.DeliveryPerson, error) {
	return t.GetCourier(ctx, id)
}

func (t *tx) SetCourierOnline(_ context.Context, id int64, online bool) error {
	d, ok := t.st.couriers[id]
	if !ok {
		return apperr.NotFound(store.EntityCourier, id)
	}
	d.IsOnline = online
	t.st.couriers[id] = d
	return nil
}

func (t *tx) ListCouriers(_ context.Context, online *bool, page models.Page) ([]models.DeliveryPerson, int, error) {
	var out []models.DeliveryPerson
	for _, d := range t.st.couriers {
		if online != nil && d.IsOnline != *online {
			continue
		}
		d.Load = t.load(d.ID)
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return paginate(out, page), len(out), nil
}

func (t *tx) LockOnlineCouriersByLoad(_ context.Context) ([]models.DeliveryPerson, error) {
	var out []models.DeliveryPerson
	for _, d := range t.st.couriers {
		if !d.IsOnline {
			continue
		}
		d.Load = t.load(d.ID)
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Load != out[j].Load {
			return out[i].Load < out[j].Load
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (t *tx) DeleteCourier(_ context.Context, id int64) error {
	if _, ok := t.st.couriers[id]; !ok {
		return apperr.NotFound(store.EntityCourier, id)
	}
	delete(t.st.couriers, id)
	for oid, o := range t.st.orders {
		if o.DeliveryPersonID != nil && *o.DeliveryPersonID == id {
			o.DeliveryPersonID = nil
			t.st.orders[oid] = o
		}
	}
	return nil
}
