package order

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pizza-lovers/internal/apperr"
	"pizza-lovers/internal/events"
	"pizza-lovers/internal/logger"
	"pizza-lovers/internal/models"
	"pizza-lovers/internal/services/loyalty"
	"pizza-lovers/internal/store"
	"pizza-lovers/internal/store/memory"
)

var now = time.Date(2025, 7, 14, 20, 0, 0, 0, time.UTC)

type fixture struct {
	st       *memory.Store
	svc      *Service
	rec      *events.Recorder
	customer int64
	items    map[string]int64
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// newFixture creates a customer with phone and address and the given menu
// items as name -> (price, stock)
func newFixture(t *testing.T, phone string, menu map[string]struct {
	price string
	stock int
}) *fixture {
	t.Helper()
	f := &fixture{st: memory.New(), rec: &events.Recorder{}, items: map[string]int64{}}
	require.NoError(t, f.st.InTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		c := &models.Customer{Username: "carla", Email: "carla@example.com", Phone: phone, Address: "Col. Escalon 4"}
		if err := tx.CreateCustomer(ctx, c); err != nil {
			return err
		}
		f.customer = c.ID
		for name, m := range menu {
			item := &models.FoodItem{Name: name, Category: "pizza", UnitPrice: dec(m.price), Stock: m.stock, Active: true}
			if err := tx.CreateFoodItem(ctx, item); err != nil {
				return err
			}
			f.items[name] = item.ID
		}
		return nil
	}))
	f.svc = NewService(f.st, f.rec, logger.Discard()).WithClock(func() time.Time { return now })
	return f
}

func pizzaMenu(price string, stock int) map[string]struct {
	price string
	stock int
} {
	return map[string]struct {
		price string
		stock int
	}{"Pizza": {price, stock}}
}

func (f *fixture) tx(t *testing.T, fn func(ctx context.Context, tx store.Tx)) {
	t.Helper()
	require.NoError(t, f.st.InTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		fn(ctx, tx)
		return nil
	}))
}

func (f *fixture) addToCart(t *testing.T, name string, qty int) {
	t.Helper()
	require.NoError(t, f.st.InTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		return tx.AddCartLine(ctx, f.customer, f.items[name], qty)
	}))
}

func (f *fixture) stock(t *testing.T, name string) int {
	t.Helper()
	var stock int
	f.tx(t, func(ctx context.Context, tx store.Tx) {
		item, err := tx.GetFoodItem(ctx, f.items[name])
		require.NoError(t, err)
		stock = item.Stock
	})
	return stock
}

func (f *fixture) cart(t *testing.T) []models.CartLine {
	t.Helper()
	var lines []models.CartLine
	f.tx(t, func(ctx context.Context, tx store.Tx) {
		var err error
		lines, err = tx.CartLines(ctx, f.customer)
		require.NoError(t, err)
	})
	return lines
}

func (f *fixture) orderCount(t *testing.T) int {
	t.Helper()
	var n int
	f.tx(t, func(ctx context.Context, tx store.Tx) {
		var err error
		_, n, err = tx.ListOrders(ctx, models.OrderFilter{})
		require.NoError(t, err)
	})
	return n
}

func conflictRule(t *testing.T, err error) string {
	t.Helper()
	var ce apperr.ConflictError
	require.True(t, errors.As(err, &ce), "expected conflict, got %v", err)
	return ce.Rule
}

func TestConvertCart_PlacesOrder(t *testing.T) {
	f := newFixture(t, "50312345678", pizzaMenu("6.00", 10))
	f.addToCart(t, "Pizza", 2)

	res, err := f.svc.ConvertCart(context.Background(), f.customer, ConvertRequest{})
	require.NoError(t, err)
	assert.True(t, dec("12.00").Equal(res.Total))

	assert.Equal(t, 8, f.stock(t, "Pizza"))
	assert.Empty(t, f.cart(t))

	o, err := f.svc.GetForCustomer(context.Background(), f.customer, res.OrderID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, o.Status)
	assert.Equal(t, "Pedido de carla", o.Description)
	assert.Equal(t, "Col. Escalon 4", o.Address)
	assert.Equal(t, "50312345678", o.CustomerPhone)
	assert.Equal(t, now, o.CreatedAt)
	require.Len(t, o.Lines, 1)
	assert.Equal(t, "Pizza", o.Lines[0].Name)
	assert.True(t, dec("6.00").Equal(o.Lines[0].UnitPrice))
	assert.Equal(t, 2, o.Lines[0].Quantity)

	history, err := f.svc.History(context.Background(), res.OrderID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, models.StatusPending, history[0].ToStatus)

	evs := f.rec.Events()
	require.Len(t, evs, 1)
	assert.Equal(t, models.EventOrderCreated, evs[0].Type)
	assert.Equal(t, res.OrderID, evs[0].OrderID)
}

func TestConvertCart_SnapshotSurvivesMenuChanges(t *testing.T) {
	f := newFixture(t, "50312345678", pizzaMenu("6.00", 10))
	f.addToCart(t, "Pizza", 1)
	res, err := f.svc.ConvertCart(context.Background(), f.customer, ConvertRequest{})
	require.NoError(t, err)

	f.tx(t, func(ctx context.Context, tx store.Tx) {
		item, err := tx.GetFoodItem(ctx, f.items["Pizza"])
		require.NoError(t, err)
		item.UnitPrice = dec("9.50")
		item.Name = "Pizza Grande"
		require.NoError(t, tx.UpdateFoodItem(ctx, item))
	})

	o, err := f.svc.Get(context.Background(), res.OrderID)
	require.NoError(t, err)
	assert.Equal(t, "Pizza", o.Lines[0].Name)
	assert.True(t, dec("6.00").Equal(o.Lines[0].UnitPrice))
}

func TestConvertCart_RedeemsPoints(t *testing.T) {
	f := newFixture(t, "50312345678", pizzaMenu("6.00", 10))
	f.addToCart(t, "Pizza", 2)
	f.tx(t, func(ctx context.Context, tx store.Tx) {
		_, err := loyalty.Grant(ctx, tx, f.customer, 10, now.Add(-24*time.Hour))
		require.NoError(t, err)
	})

	res, err := f.svc.ConvertCart(context.Background(), f.customer, ConvertRequest{PointsToUse: 10})
	require.NoError(t, err)
	assert.True(t, dec("7.00").Equal(res.Total))

	f.tx(t, func(ctx context.Context, tx store.Tx) {
		grants, err := tx.Grants(ctx, f.customer)
		require.NoError(t, err)
		assert.Equal(t, 0, models.PointsBalance(grants, now))
	})
}

func TestConvertCart_CouponBelowMinimumChangesNothing(t *testing.T) {
	f := newFixture(t, "50312345678", pizzaMenu("8.00", 5))
	f.addToCart(t, "Pizza", 1)
	var couponID int64
	f.tx(t, func(ctx context.Context, tx store.Tx) {
		c, err := loyalty.IssueCoupon(ctx, tx, f.customer, dec("10"), time.Time{}, now)
		require.NoError(t, err)
		couponID = c.ID
	})

	_, err := f.svc.ConvertCart(context.Background(), f.customer, ConvertRequest{CouponID: &couponID})
	assert.Equal(t, apperr.RuleMinimumOrder, conflictRule(t, err))

	assert.Equal(t, 5, f.stock(t, "Pizza"))
	assert.Len(t, f.cart(t), 1)
	assert.Equal(t, 0, f.orderCount(t))
	f.tx(t, func(ctx context.Context, tx store.Tx) {
		coupons, err := tx.Coupons(ctx, f.customer)
		require.NoError(t, err)
		assert.Len(t, coupons, 1)
	})
	assert.Empty(t, f.rec.Events())
}

func TestConvertCart_MinimumTotal(t *testing.T) {
	tests := []struct {
		name   string
		points int
		coupon string
		ok     bool
	}{
		{"points leave exactly the minimum", 20, "", true},
		{"points go below the minimum", 30, "", false},
		{"coupon goes below the minimum", 0, "10.01", false},
		{"points and coupon together", 10, "5.01", false},
		{"points and coupon land on the minimum", 10, "5", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, "50312345678", pizzaMenu("7.50", 10))
			f.addToCart(t, "Pizza", 2)
			req := ConvertRequest{PointsToUse: tt.points}
			f.tx(t, func(ctx context.Context, tx store.Tx) {
				_, err := loyalty.Grant(ctx, tx, f.customer, 50, now)
				require.NoError(t, err)
				if tt.coupon != "" {
					c, err := loyalty.IssueCoupon(ctx, tx, f.customer, dec(tt.coupon), time.Time{}, now)
					require.NoError(t, err)
					req.CouponID = &c.ID
				}
			})

			res, err := f.svc.ConvertCart(context.Background(), f.customer, req)
			if tt.ok {
				require.NoError(t, err)
				assert.True(t, MinimumTotal.Equal(res.Total), "total %s", res.Total)
				return
			}
			assert.Equal(t, apperr.RuleMinimumOrder, conflictRule(t, err))
			assert.Equal(t, 10, f.stock(t, "Pizza"))
		})
	}
}

func TestConvertCart_CheckOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("missing phone wins over empty cart", func(t *testing.T) {
		f := newFixture(t, "", pizzaMenu("6.00", 10))
		_, err := f.svc.ConvertCart(ctx, f.customer, ConvertRequest{})
		var ve apperr.ValidationError
		require.True(t, errors.As(err, &ve))
		assert.Equal(t, "phone", ve.Field)
	})

	t.Run("empty cart", func(t *testing.T) {
		f := newFixture(t, "50312345678", pizzaMenu("6.00", 10))
		_, err := f.svc.ConvertCart(ctx, f.customer, ConvertRequest{})
		assert.Equal(t, apperr.RuleEmptyCart, conflictRule(t, err))
	})

	t.Run("unknown customer", func(t *testing.T) {
		f := newFixture(t, "50312345678", pizzaMenu("6.00", 10))
		_, err := f.svc.ConvertCart(ctx, f.customer+1, ConvertRequest{})
		var nf apperr.NotFoundError
		assert.True(t, errors.As(err, &nf))
	})

	t.Run("stock wins over points", func(t *testing.T) {
		f := newFixture(t, "50312345678", pizzaMenu("6.00", 1))
		f.addToCart(t, "Pizza", 2)
		_, err := f.svc.ConvertCart(ctx, f.customer, ConvertRequest{PointsToUse: 100})
		assert.Equal(t, apperr.RuleInsufficientStock, conflictRule(t, err))
		assert.Contains(t, err.Error(), "Pizza")
	})

	t.Run("insufficient points", func(t *testing.T) {
		f := newFixture(t, "50312345678", pizzaMenu("6.00", 10))
		f.addToCart(t, "Pizza", 2)
		_, err := f.svc.ConvertCart(ctx, f.customer, ConvertRequest{PointsToUse: 10})
		assert.Equal(t, apperr.RuleInsufficientPoints, conflictRule(t, err))
	})

	t.Run("negative points", func(t *testing.T) {
		f := newFixture(t, "50312345678", pizzaMenu("6.00", 10))
		f.addToCart(t, "Pizza", 2)
		_, err := f.svc.ConvertCart(ctx, f.customer, ConvertRequest{PointsToUse: -1})
		var ve apperr.ValidationError
		require.True(t, errors.As(err, &ve))
		assert.Equal(t, "points_to_use", ve.Field)
	})

	t.Run("expired coupon", func(t *testing.T) {
		f := newFixture(t, "50312345678", pizzaMenu("6.00", 10))
		f.addToCart(t, "Pizza", 2)
		var id int64
		f.tx(t, func(ctx context.Context, tx store.Tx) {
			c, err := loyalty.IssueCoupon(ctx, tx, f.customer, dec("1"), now.Add(-time.Second), now.Add(-time.Hour))
			require.NoError(t, err)
			id = c.ID
		})
		_, err := f.svc.ConvertCart(ctx, f.customer, ConvertRequest{CouponID: &id})
		assert.Equal(t, apperr.RuleCouponExpired, conflictRule(t, err))
	})

	t.Run("request address overrides the profile", func(t *testing.T) {
		f := newFixture(t, "50312345678", pizzaMenu("6.00", 10))
		f.addToCart(t, "Pizza", 1)
		res, err := f.svc.ConvertCart(ctx, f.customer, ConvertRequest{Address: "Oficina 3"})
		require.NoError(t, err)
		o, err := f.svc.Get(ctx, res.OrderID)
		require.NoError(t, err)
		assert.Equal(t, "Oficina 3", o.Address)
	})
}

type failingClearTx struct {
	store.Tx
}

func (failingClearTx) ClearCart(context.Context, int64) error {
	return errors.New("cart storage unavailable")
}

type failingClearStore struct {
	inner *memory.Store
}

func (s failingClearStore) InTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	return s.inner.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		return fn(ctx, failingClearTx{tx})
	})
}

func TestConvertCart_LateFailureRollsBackEverything(t *testing.T) {
	f := newFixture(t, "50312345678", pizzaMenu("6.00", 10))
	f.addToCart(t, "Pizza", 2)
	var couponID int64
	f.tx(t, func(ctx context.Context, tx store.Tx) {
		_, err := loyalty.Grant(ctx, tx, f.customer, 10, now)
		require.NoError(t, err)
		c, err := loyalty.IssueCoupon(ctx, tx, f.customer, dec("1"), time.Time{}, now)
		require.NoError(t, err)
		couponID = c.ID
	})

	svc := NewService(failingClearStore{f.st}, f.rec, logger.Discard()).WithClock(func() time.Time { return now })
	_, err := svc.ConvertCart(context.Background(), f.customer, ConvertRequest{PointsToUse: 10, CouponID: &couponID})
	require.Error(t, err)

	assert.Equal(t, 10, f.stock(t, "Pizza"))
	assert.Len(t, f.cart(t), 1)
	assert.Equal(t, 0, f.orderCount(t))
	f.tx(t, func(ctx context.Context, tx store.Tx) {
		grants, err := tx.Grants(ctx, f.customer)
		require.NoError(t, err)
		assert.Equal(t, 10, models.PointsBalance(grants, now))
		_, err = tx.LockCoupon(ctx, couponID)
		assert.NoError(t, err)
	})
	assert.Empty(t, f.rec.Events())
}

func TestConvertCart_ConcurrentOrdersNeverOversell(t *testing.T) {
	const customers = 12
	f := newFixture(t, "50312345678", pizzaMenu("6.00", 7))
	ids := make([]int64, customers)
	f.tx(t, func(ctx context.Context, tx store.Tx) {
		for i := range ids {
			c := &models.Customer{Username: fmt.Sprintf("buyer%d", i), Phone: "5031111", Address: "Centro"}
			require.NoError(t, tx.CreateCustomer(ctx, c))
			require.NoError(t, tx.AddCartLine(ctx, c.ID, f.items["Pizza"], 1+i%2))
			ids[i] = c.ID
		}
	})

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		placed int
	)
	for _, id := range ids {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			res, err := f.svc.ConvertCart(context.Background(), id, ConvertRequest{})
			if err != nil {
				var ce apperr.ConflictError
				if assert.True(t, errors.As(err, &ce)) {
					assert.Equal(t, apperr.RuleInsufficientStock, ce.Rule)
				}
				return
			}
			mu.Lock()
			placed += int(res.Total.Div(dec("6")).IntPart())
			mu.Unlock()
		}(id)
	}
	wg.Wait()

	remaining := f.stock(t, "Pizza")
	assert.GreaterOrEqual(t, remaining, 0)
	assert.Equal(t, 7, placed+remaining)
}

func TestCreateForCaller(t *testing.T) {
	menu := map[string]struct {
		price string
		stock int
	}{"Pizza": {"6.00", 10}, "Soda": {"1.25", 3}}
	f := newFixture(t, "50312345678", menu)
	var managerID int64
	f.tx(t, func(ctx context.Context, tx store.Tx) {
		m := &models.Staff{Role: models.RoleOrderManager, Username: "marta"}
		require.NoError(t, tx.CreateStaff(ctx, m))
		managerID = m.ID
	})
	ctx := context.Background()

	req := CallCenterRequest{
		CallerName:     "Don Pedro",
		CallerAddress:  "Km 5 carretera",
		CallerPhone:    "+50377778888",
		OrderManagerID: managerID,
		FoodItems: []ItemQuantity{
			{ID: f.items["Pizza"], Quantity: 1},
			{ID: f.items["Soda"], Quantity: 1},
			{ID: f.items["Soda"], Quantity: 1},
		},
	}
	res, err := f.svc.CreateForCaller(ctx, req)
	require.NoError(t, err)
	assert.True(t, dec("8.50").Equal(res.Total))
	assert.Equal(t, "Don Pedro", res.CallerName)
	assert.Equal(t, 1, f.stock(t, "Soda"))

	o, err := f.svc.Get(ctx, res.OrderID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusWaiting, o.Status)
	assert.Nil(t, o.CustomerID)
	require.NotNil(t, o.OrderManagerID)
	assert.Equal(t, managerID, *o.OrderManagerID)
	assert.Equal(t, "Pedido de Don Pedro", o.Description)
	assert.Len(t, o.Lines, 2)

	t.Run("unknown manager", func(t *testing.T) {
		bad := req
		bad.OrderManagerID = managerID + 10
		_, err := f.svc.CreateForCaller(ctx, bad)
		var errs apperr.ValidationErrors
		require.True(t, errors.As(err, &errs))
		assert.Contains(t, errs.Fields(), "order_manager_id")
	})

	t.Run("unknown item", func(t *testing.T) {
		bad := req
		bad.FoodItems = []ItemQuantity{{ID: 999, Quantity: 1}}
		_, err := f.svc.CreateForCaller(ctx, bad)
		var errs apperr.ValidationErrors
		require.True(t, errors.As(err, &errs))
		assert.Contains(t, errs.Fields(), "food_items")
	})

	t.Run("stock runs out", func(t *testing.T) {
		bad := req
		bad.FoodItems = []ItemQuantity{{ID: f.items["Soda"], Quantity: 2}}
		_, err := f.svc.CreateForCaller(ctx, bad)
		assert.Equal(t, apperr.RuleInsufficientStock, conflictRule(t, err))
		assert.Equal(t, 1, f.stock(t, "Soda"))
	})
}

func TestCreateForCaller_RequestOrder(t *testing.T) {
	menu := map[string]struct {
		price string
		stock int
	}{"Pizza": {"6.00", 2}, "Soda": {"1.25", 2}}
	f := newFixture(t, "50312345678", menu)
	var managerID int64
	f.tx(t, func(ctx context.Context, tx store.Tx) {
		m := &models.Staff{Role: models.RoleOrderManager, Username: "marta"}
		require.NoError(t, tx.CreateStaff(ctx, m))
		managerID = m.ID
	})
	ctx := context.Background()

	// request the higher id first so request order and id order disagree
	first, second := "Pizza", "Soda"
	if f.items[first] < f.items[second] {
		first, second = second, first
	}
	req := CallCenterRequest{
		CallerName:     "Don Pedro",
		CallerAddress:  "Km 5 carretera",
		CallerPhone:    "50377778888",
		OrderManagerID: managerID,
	}

	t.Run("first short item of the request is named", func(t *testing.T) {
		short := req
		short.FoodItems = []ItemQuantity{
			{ID: f.items[first], Quantity: 5},
			{ID: f.items[second], Quantity: 5},
		}
		_, err := f.svc.CreateForCaller(ctx, short)
		var ce apperr.ConflictError
		require.True(t, errors.As(err, &ce))
		assert.Contains(t, ce.Error(), "insufficient stock for "+first)
		assert.Equal(t, 2, f.stock(t, first))
		assert.Equal(t, 2, f.stock(t, second))
	})

	t.Run("lines keep request order", func(t *testing.T) {
		ok := req
		ok.FoodItems = []ItemQuantity{
			{ID: f.items[first], Quantity: 1},
			{ID: f.items[second], Quantity: 1},
		}
		res, err := f.svc.CreateForCaller(ctx, ok)
		require.NoError(t, err)
		o, err := f.svc.Get(ctx, res.OrderID)
		require.NoError(t, err)
		require.Len(t, o.Lines, 2)
		assert.Equal(t, first, o.Lines[0].Name)
		assert.Equal(t, second, o.Lines[1].Name)
	})
}

func TestCallCenterRequestValidate(t *testing.T) {
	err := (&CallCenterRequest{
		CallerPhone: "503-7777",
		CallerEmail: "nope",
		FoodItems:   []ItemQuantity{{ID: 0, Quantity: 0}},
	}).Validate()

	var errs apperr.ValidationErrors
	require.True(t, errors.As(err, &errs))
	fields := errs.Fields()
	for _, field := range []string{"caller_name", "caller_address", "caller_phone", "caller_email", "order_manager_id", "food_items[0].id", "food_items[0].quantity"} {
		assert.Contains(t, fields, field)
	}

	tooMany := make([]ItemQuantity, maxOrderLines+1)
	for i := range tooMany {
		tooMany[i] = ItemQuantity{ID: int64(i + 1), Quantity: 1}
	}
	err = (&CallCenterRequest{
		CallerName: "a", CallerAddress: "b", CallerPhone: "1", OrderManagerID: 1, FoodItems: tooMany,
	}).Validate()
	require.True(t, errors.As(err, &errs))
	assert.Equal(t, map[string]string{"food_items": "a maximum of 50 items is allowed"}, errs.Fields())
}

func TestReadsAreScopedToOwner(t *testing.T) {
	f := newFixture(t, "50312345678", pizzaMenu("6.00", 10))
	f.addToCart(t, "Pizza", 1)
	ctx := context.Background()
	res, err := f.svc.ConvertCart(ctx, f.customer, ConvertRequest{})
	require.NoError(t, err)

	_, err = f.svc.GetForCustomer(ctx, f.customer+1, res.OrderID)
	var nf apperr.NotFoundError
	assert.True(t, errors.As(err, &nf))

	page, err := f.svc.ListForCustomer(ctx, f.customer, models.Page{})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Count)

	page, err = f.svc.ListForCustomer(ctx, f.customer+1, models.Page{})
	require.NoError(t, err)
	assert.Equal(t, 0, page.Count)
	assert.NotNil(t, page.Orders)

	page, err = f.svc.List(ctx, models.OrderFilter{Status: models.StatusKitchen})
	require.NoError(t, err)
	assert.Equal(t, 0, page.Count)

	_, err = f.svc.History(ctx, res.OrderID+1)
	assert.True(t, errors.As(err, &nf))
}
