package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"pizza-lovers/internal/apperr"
	"pizza-lovers/internal/database"
	"pizza-lovers/internal/models"
	"pizza-lovers/internal/store"
)

func scanFoodItem(row pgx.Row) (*models.FoodItem, error) {
	var f models.FoodItem
	err := row.Scan(&f.ID, &f.Name, &f.Description, &f.Category, &f.UnitPrice, &f.Stock, &f.Image, &f.Active, &f.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (t *tx) CreateFoodItem(ctx context.Context, item *models.FoodItem) error {
	err := t.tx.QueryRow(ctx, database.InsertFoodItemSQL,
		item.Name, item.Description, item.Category, item.UnitPrice, item.Stock, item.Image, item.Active,
	).Scan(&item.ID, &item.CreatedAt)
	return mapError(err, store.EntityFoodItem, item.Name)
}

func (t *tx) GetFoodItem(ctx context.Context, id int64) (*models.FoodItem, error) {
	item, err := scanFoodItem(t.tx.QueryRow(ctx, database.GetFoodItemSQL, id))
	if err != nil {
		return nil, mapError(err, store.EntityFoodItem, id)
	}
	return item, nil
}

func (t *tx) LockFoodItems(ctx context.Context, ids []int64) (map[int64]*models.FoodItem, error) {
	rows, err := t.tx.Query(ctx, database.LockFoodItemsSQL, ids)
	if err != nil {
		return nil, mapError(err, store.EntityFoodItem, ids)
	}
	defer rows.Close()

	out := make(map[int64]*models.FoodItem, len(ids))
	for rows.Next() {
		item, err := scanFoodItem(rows)
		if err != nil {
			return nil, mapError(err, store.EntityFoodItem, ids)
		}
		out[item.ID] = item
	}
	return out, rows.Err()
}

func (t *tx) ListFoodItems(ctx context.Context, activeOnly bool) ([]models.FoodItem, error) {
	rows, err := t.tx.Query(ctx, database.ListFoodItemsSQL, activeOnly)
	if err != nil {
		return nil, mapError(err, store.EntityFoodItem, nil)
	}
	defer rows.Close()

	var out []models.FoodItem
	for rows.Next() {
		item, err := scanFoodItem(rows)
		if err != nil {
			return nil, mapError(err, store.EntityFoodItem, nil)
		}
		out = append(out, *item)
	}
	return out, rows.Err()
}

func (t *tx) UpdateFoodItem(ctx context.Context, item *models.FoodItem) error {
	tag, err := t.tx.Exec(ctx, database.UpdateFoodItemSQL,
		item.ID, item.Name, item.Description, item.Category, item.UnitPrice, item.Stock, item.Image, item.Active)
	return expectRow(tag, err, store.EntityFoodItem, item.ID)
}

func (t *tx) DecrementStock(ctx context.Context, id int64, quantity int) error {
	tag, err := t.tx.Exec(ctx, database.DecrementStockSQL, id, quantity)
	return expectRow(tag, err, store.EntityFoodItem, id)
}

func (t *tx) DeleteFoodItem(ctx context.Context, id int64) error {
	tag, err := t.tx.Exec(ctx, database.DeleteFoodItemSQL, id)
	return expectRow(tag, err, store.EntityFoodItem, id)
}

// Customers

func scanCustomer(row pgx.Row) (*models.Customer, error) {
	var c models.Customer
	err := row.Scan(&c.ID, &c.Username, &c.Email, &c.FirstName, &c.LastName, &c.Phone, &c.Address, &c.Purchases, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (t *tx) CreateCustomer(ctx context.Context, c *models.Customer) error {
	err := t.tx.QueryRow(ctx, database.InsertCustomerSQL,
		c.Username, c.Email, c.FirstName, c.LastName, c.Phone, c.Address,
	).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return mapError(err, store.EntityCustomer, c.Username)
	}
	if _, err := t.tx.Exec(ctx, database.InsertCartSQL, c.ID); err != nil {
		return mapError(err, store.EntityCustomer, c.ID)
	}
	return nil
}

func (t *tx) GetCustomer(ctx context.Context, id int64) (*models.Customer, error) {
	c, err := scanCustomer(t.tx.QueryRow(ctx, database.GetCustomerSQL, id))
	if err != nil {
		return nil, mapError(err, store.EntityCustomer, id)
	}
	return c, nil
}

func (t *tx) LockCustomer(ctx context.Context, id int64) (*models.Customer, error) {
	c, err := scanCustomer(t.tx.QueryRow(ctx, database.LockCustomerSQL, id))
	if err != nil {
		return nil, mapError(err, store.EntityCustomer, id)
	}
	return c, nil
}

func (t *tx) IncrementPurchases(ctx context.Context, id int64) (int, error) {
	var purchases int
	err := t.tx.QueryRow(ctx, database.IncrementPurchasesSQL, id).Scan(&purchases)
	return purchases, mapError(err, store.EntityCustomer, id)
}

func (t *tx) DeleteCustomer(ctx context.Context, id int64) error {
	tag, err := t.tx.Exec(ctx, database.DeleteCustomerSQL, id)
	return expectRow(tag, err, store.EntityCustomer, id)
}

// Carts

func (t *tx) ensureCart(ctx context.Context, customerID int64) error {
	var exists bool
	if err := t.tx.QueryRow(ctx, database.CartExistsSQL, customerID).Scan(&exists); err != nil {
		return mapError(err, store.EntityCustomer, customerID)
	}
	if !exists {
		return apperr.NotFound(store.EntityCustomer, customerID)
	}
	return nil
}

func (t *tx) CartLines(ctx context.Context, customerID int64) ([]models.CartLine, error) {
	if err := t.ensureCart(ctx, customerID); err != nil {
		return nil, err
	}
	rows, err := t.tx.Query(ctx, database.GetCartLinesSQL, customerID)
	if err != nil {
		return nil, mapError(err, store.EntityCartLine, customerID)
	}
	defer rows.Close()

	var out []models.CartLine
	for rows.Next() {
		var l models.CartLine
		if err := rows.Scan(&l.CustomerID, &l.FoodItemID, &l.Quantity); err != nil {
			return nil, mapError(err, store.EntityCartLine, customerID)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (t *tx) AddCartLine(ctx context.Context, customerID, foodItemID int64, quantity int) error {
	if err := t.ensureCart(ctx, customerID); err != nil {
		return err
	}
	_, err := t.tx.Exec(ctx, database.AddCartLineSQL, customerID, foodItemID, quantity)
	return mapError(err, store.EntityFoodItem, foodItemID)
}

func (t *tx) RemoveCartLine(ctx context.Context, customerID, foodItemID int64) error {
	tag, err := t.tx.Exec(ctx, database.RemoveCartLineSQL, customerID, foodItemID)
	return expectRow(tag, err, store.EntityCartLine, foodItemID)
}

func (t *tx) ClearCart(ctx context.Context, customerID int64) error {
	if err := t.ensureCart(ctx, customerID); err != nil {
		return err
	}
	_, err := t.tx.Exec(ctx, database.ClearCartSQL, customerID)
	return mapError(err, store.EntityCartLine, customerID)
}
