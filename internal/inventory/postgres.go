package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopd/shopd/internal/domain"
)

// Execer is the slice of database/sql shared by *sql.DB and *sql.Tx. The
// order repository passes its transaction here so that stock decrements and
// the order insert commit or roll back together.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ReserveStock applies a conditional decrement: stock is reduced only when at
// least quantity units remain. A zero rows-affected result means either the
// product is missing or stock ran short; the follow-up lookup tells which.
func ReserveStock(ctx context.Context, ex Execer, productID int64, quantity int) error {
	res, err := ex.ExecContext(ctx,
		`UPDATE products SET stock = stock - $2 WHERE id = $1 AND stock >= $2`,
		productID, quantity)
	if err != nil {
		return fmt.Errorf("reserve stock: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reserve stock rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}

	var name string
	err = ex.QueryRowContext(ctx, `SELECT name FROM products WHERE id = $1`, productID).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrProductNotFound
	}
	if err != nil {
		return fmt.Errorf("lookup product after failed reserve: %w", err)
	}
	return fmt.Errorf("%w for %s", domain.ErrInsufficientStock, name)
}

// ReleaseStock compensates a reservation by returning units to stock.
func ReleaseStock(ctx context.Context, ex Execer, productID int64, quantity int) error {
	res, err := ex.ExecContext(ctx,
		`UPDATE products SET stock = stock + $2 WHERE id = $1`,
		productID, quantity)
	if err != nil {
		return fmt.Errorf("release stock: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("release stock rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

// PostgresLedger implements Ledger directly against the database, outside of
// any caller transaction. The order repository uses ReserveStock with its own
// transaction instead.
type PostgresLedger struct {
	db *sql.DB
}

func NewPostgresLedger(db *sql.DB) *PostgresLedger {
	return &PostgresLedger{db: db}
}

func (l *PostgresLedger) Reserve(ctx context.Context, productID int64, quantity int) error {
	return ReserveStock(ctx, l.db, productID, quantity)
}

func (l *PostgresLedger) Release(ctx context.Context, productID int64, quantity int) error {
	return ReleaseStock(ctx, l.db, productID, quantity)
}
