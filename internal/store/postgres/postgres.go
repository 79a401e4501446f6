// Package postgres implements store.Store on PostgreSQL through pgx. Rows a
// service is about to change are read with SELECT ... FOR UPDATE.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"pizza-lovers/internal/apperr"
	"pizza-lovers/internal/database"
	"pizza-lovers/internal/store"
)

// Store runs each unit of work in one pgx transaction
type Store struct {
	db *database.DB
}

func New(db *database.DB) *Store {
	return &Store{db: db}
}

func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	return s.db.WithTx(ctx, func(pgtx pgx.Tx) error {
		return fn(ctx, &tx{tx: pgtx})
	})
}

type tx struct {
	tx pgx.Tx
}

// mapError turns constraint violations into domain errors. The services
// check the same rules first; these only fire under races they did not lock
// against.
func mapError(err error, entity string, id any) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound(entity, id)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23514":
			switch {
			case strings.Contains(pgErr.ConstraintName, "stock"):
				return apperr.Conflict(apperr.RuleInsufficientStock, "insufficient stock for %s %v", entity, id)
			case strings.Contains(pgErr.ConstraintName, "remaining"):
				return apperr.Conflict(apperr.RuleNegativeBalance, "%s %v cannot go below zero", entity, id)
			}
			return apperr.Invalid(pgErr.ColumnName, pgErr.Message)
		case "23505":
			return apperr.Conflict(apperr.RuleDuplicate, "%s already exists", entity)
		case "23503":
			return apperr.NotFound(entity, id)
		}
	}
	return fmt.Errorf("%s %v: %w", entity, id, err)
}

// expectRow reports NotFound when an update or delete touched nothing
func expectRow(tag pgconn.CommandTag, err error, entity string, id any) error {
	if err != nil {
		return mapError(err, entity, id)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(entity, id)
	}
	return nil
}

var _ store.Tx = (*tx)(nil)
