package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"pizza-lovers/internal/database"
	"pizza-lovers/internal/models"
	"pizza-lovers/internal/store"
)

func scanCourier(row pgx.Row, extra ...any) (*models.DeliveryPerson, error) {
	var d models.DeliveryPerson
	dest := []any{&d.ID, &d.Username, &d.Email, &d.IsOnline, &d.CreatedAt, &d.Load}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return &d, nil
}

func (t *tx) CreateCourier(ctx context.Context, d *models.DeliveryPerson) error {
	err := t.tx.QueryRow(ctx, database.InsertCourierSQL, d.Username, d.Email, d.IsOnline).Scan(&d.ID, &d.CreatedAt)
	return mapError(err, store.EntityCourier, d.Username)
}

func (t *tx) GetCourier(ctx context.Context, id int64) (*models.DeliveryPerson, error) {
	d, err := scanCourier(t.tx.QueryRow(ctx, database.GetCourierSQL, id))
	if err != nil {
		return nil, mapError(err, store.EntityCourier, id)
	}
	return d, nil
}

func (t *tx) LockCourier(ctx context.Context, id int64) (*models.DeliveryPerson, error) {
	var locked int64
	if err := t.tx.QueryRow(ctx, database.LockCourierSQL, id).Scan(&locked); err != nil {
		return nil, mapError(err, store.EntityCourier, id)
	}
	return t.GetCourier(ctx, id)
}

func (t *tx) SetCourierOnline(ctx context.Context, id int64, online bool) error {
	tag, err := t.tx.Exec(ctx, database.SetCourierOnlineSQL, id, online)
	return expectRow(tag, err, store.EntityCourier, id)
}

func (t *tx) ListCouriers(ctx context.Context, online *bool, page models.Page) ([]models.DeliveryPerson, int, error) {
	page = page.Normalize()
	rows, err := t.tx.Query(ctx, database.ListCouriersSQL, online, page.Size, page.Offset())
	if err != nil {
		return nil, 0, mapError(err, store.EntityCourier, nil)
	}
	defer rows.Close()

	var (
		out   []models.DeliveryPerson
		total int
	)
	for rows.Next() {
		d, err := scanCourier(rows, &total)
		if err != nil {
			return nil, 0, mapError(err, store.EntityCourier, nil)
		}
		out = append(out, *d)
	}
	return out, total, rows.Err()
}

// LockOnlineCouriersByLoad locks the online courier rows in id order, then
// reads their loads. Loads are stable while the rows are held because every
// assignment locks the courier first.
func (t *tx) LockOnlineCouriersByLoad(ctx context.Context) ([]models.DeliveryPerson, error) {
	if _, err := t.tx.Exec(ctx, database.LockOnlineCouriersSQL); err != nil {
		return nil, mapError(err, store.EntityCourier, nil)
	}

	rows, err := t.tx.Query(ctx, database.OnlineCouriersByLoadSQL)
	if err != nil {
		return nil, mapError(err, store.EntityCourier, nil)
	}
	defer rows.Close()

	var out []models.DeliveryPerson
	for rows.Next() {
		d, err := scanCourier(rows)
		if err != nil {
			return nil, mapError(err, store.EntityCourier, nil)
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

func (t *tx) DeleteCourier(ctx context.Context, id int64) error {
	tag, err := t.tx.Exec(ctx, database.DeleteCourierSQL, id)
	return expectRow(tag, err, store.EntityCourier, id)
}
