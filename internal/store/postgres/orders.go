package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"pizza-lovers/internal/apperr"
	"pizza-lovers/internal/database"
	"pizza-lovers/internal/models"
	"pizza-lovers/internal/store"
)

func (t *tx) InsertOrder(ctx context.Context, o *models.Order) error {
	err := t.tx.QueryRow(ctx, database.InsertOrderSQL,
		o.CreatedAt, o.Description, o.Address, o.Status, o.CustomerID, o.OrderManagerID,
		o.OrderDispatcherID, o.DeliveryPersonID, o.CustomerName, o.CustomerEmail, o.CustomerPhone, o.Total,
	).Scan(&o.ID)
	if err != nil {
		return mapError(err, store.EntityOrder, nil)
	}

	for i := range o.Lines {
		l := &o.Lines[i]
		l.OrderID = o.ID
		err := t.tx.QueryRow(ctx, database.InsertOrderLineSQL,
			o.ID, l.FoodItemID, l.Name, l.UnitPrice, l.Description, l.Image, l.Quantity,
		).Scan(&l.ID)
		if err != nil {
			return mapError(err, store.EntityOrder, o.ID)
		}
	}
	return nil
}

func scanOrder(row pgx.Row, extra ...any) (*models.Order, error) {
	var o models.Order
	dest := []any{
		&o.ID, &o.CreatedAt, &o.Description, &o.Address, &o.Status, &o.CustomerID, &o.OrderManagerID,
		&o.OrderDispatcherID, &o.DeliveryPersonID, &o.CustomerName, &o.CustomerEmail, &o.CustomerPhone, &o.Total,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return &o, nil
}

// attachLines loads the lines of every order with one query
func (t *tx) attachLines(ctx context.Context, orders []*models.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]int64, len(orders))
	byID := make(map[int64]*models.Order, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		byID[o.ID] = o
		o.Lines = []models.OrderLine{}
	}

	rows, err := t.tx.Query(ctx, database.GetOrderLinesSQL, ids)
	if err != nil {
		return mapError(err, store.EntityOrder, ids)
	}
	defer rows.Close()

	for rows.Next() {
		var l models.OrderLine
		if err := rows.Scan(&l.ID, &l.OrderID, &l.FoodItemID, &l.Name, &l.UnitPrice, &l.Description, &l.Image, &l.Quantity); err != nil {
			return mapError(err, store.EntityOrder, ids)
		}
		if o, ok := byID[l.OrderID]; ok {
			o.Lines = append(o.Lines, l)
		}
	}
	return rows.Err()
}

func (t *tx) readOrder(ctx context.Context, sql string, id int64) (*models.Order, error) {
	o, err := scanOrder(t.tx.QueryRow(ctx, sql, id))
	if err != nil {
		return nil, mapError(err, store.EntityOrder, id)
	}
	if err := t.attachLines(ctx, []*models.Order{o}); err != nil {
		return nil, err
	}
	return o, nil
}

func (t *tx) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	return t.readOrder(ctx, database.GetOrderSQL, id)
}

func (t *tx) LockOrder(ctx context.Context, id int64) (*models.Order, error) {
	return t.readOrder(ctx, database.LockOrderSQL, id)
}

func (t *tx) ListOrders(ctx context.Context, f models.OrderFilter) ([]models.Order, int, error) {
	var status *string
	if f.Status != "" {
		s := string(f.Status)
		status = &s
	}
	page := f.Page.Normalize()

	rows, err := t.tx.Query(ctx, database.ListOrdersSQL,
		status, f.CustomerID, f.DeliveryPersonID, page.Size, page.Offset())
	if err != nil {
		return nil, 0, mapError(err, store.EntityOrder, nil)
	}

	var (
		ptrs  []*models.Order
		total int
	)
	for rows.Next() {
		o, err := scanOrder(rows, &total)
		if err != nil {
			rows.Close()
			return nil, 0, mapError(err, store.EntityOrder, nil)
		}
		ptrs = append(ptrs, o)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, 0, mapError(err, store.EntityOrder, nil)
	}

	if err := t.attachLines(ctx, ptrs); err != nil {
		return nil, 0, err
	}

	out := make([]models.Order, len(ptrs))
	for i, o := range ptrs {
		out[i] = *o
	}
	return out, total, nil
}

func (t *tx) UpdateOrder(ctx context.Context, o *models.Order) error {
	tag, err := t.tx.Exec(ctx, database.UpdateOrderSQL,
		o.ID, o.Status, o.OrderManagerID, o.OrderDispatcherID, o.DeliveryPersonID)
	return expectRow(tag, err, store.EntityOrder, o.ID)
}

func (t *tx) DeleteOrder(ctx context.Context, id int64) error {
	tag, err := t.tx.Exec(ctx, database.DeleteOrderSQL, id)
	return expectRow(tag, err, store.EntityOrder, id)
}

func (t *tx) CountOpenOrders(ctx context.Context, customerID int64) (int, error) {
	var n int
	err := t.tx.QueryRow(ctx, database.CountOpenOrdersSQL, customerID).Scan(&n)
	return n, mapError(err, store.EntityCustomer, customerID)
}

func (t *tx) AppendStatusLog(ctx context.Context, e *models.StatusLogEntry) error {
	err := t.tx.QueryRow(ctx, database.InsertOrderStatusLogSQL,
		e.OrderID, e.FromStatus, e.ToStatus, e.ChangedBy, e.ChangedAt, e.Notes,
	).Scan(&e.ID)
	return mapError(err, store.EntityOrder, e.OrderID)
}

func (t *tx) StatusLog(ctx context.Context, orderID int64) ([]models.StatusLogEntry, error) {
	rows, err := t.tx.Query(ctx, database.GetOrderStatusHistorySQL, orderID)
	if err != nil {
		return nil, mapError(err, store.EntityOrder, orderID)
	}
	defer rows.Close()

	var out []models.StatusLogEntry
	for rows.Next() {
		var e models.StatusLogEntry
		if err := rows.Scan(&e.ID, &e.OrderID, &e.FromStatus, &e.ToStatus, &e.ChangedBy, &e.ChangedAt, &e.Notes); err != nil {
			return nil, mapError(err, store.EntityOrder, orderID)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Staff

func staffTable(role models.Role) (string, error) {
	switch role {
	case models.RoleOrderManager:
		return "order_managers", nil
	case models.RoleDispatcher:
		return "order_dispatchers", nil
	}
	return "", apperr.Invalid("role", "must be order_manager or order_dispatcher")
}

func (t *tx) CreateStaff(ctx context.Context, s *models.Staff) error {
	table, err := staffTable(s.Role)
	if err != nil {
		return err
	}
	err = t.tx.QueryRow(ctx, fmt.Sprintf(database.InsertStaffSQL, table), s.Username, s.Email).Scan(&s.ID, &s.CreatedAt)
	return mapError(err, store.StaffEntity(s.Role), s.Username)
}

func (t *tx) GetStaff(ctx context.Context, role models.Role, id int64) (*models.Staff, error) {
	table, err := staffTable(role)
	if err != nil {
		return nil, err
	}
	s := models.Staff{Role: role}
	err = t.tx.QueryRow(ctx, fmt.Sprintf(database.GetStaffSQL, table), id).Scan(&s.ID, &s.Username, &s.Email, &s.CreatedAt)
	if err != nil {
		return nil, mapError(err, store.StaffEntity(role), id)
	}
	return &s, nil
}

func (t *tx) DeleteStaff(ctx context.Context, role models.Role, id int64) error {
	table, err := staffTable(role)
	if err != nil {
		return err
	}
	tag, err := t.tx.Exec(ctx, fmt.Sprintf(database.DeleteStaffSQL, table), id)
	return expectRow(tag, err, store.StaffEntity(role), id)
}
