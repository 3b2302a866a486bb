package order

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopd/shopd/internal/domain"
	"github.com/shopd/shopd/internal/inventory"
	"github.com/shopd/shopd/internal/outbox"
	"github.com/shopspring/decimal"
)

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const orderColumns = `id, user_id, items, total_price, currency, shipping_address,
	payment_method, payment_status, order_status, transaction_id, created_at, updated_at`

func (r *PostgresRepository) Create(ctx context.Context, order *domain.Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create order tx: %w", err)
	}
	defer tx.Rollback()

	// Conditional per-line decrements inside the insert transaction: a
	// shortfall aborts everything, so stock can never go negative and no
	// partially reserved order survives.
	for _, item := range order.Items {
		if err := inventory.ReserveStock(ctx, tx, item.ProductID, item.Quantity); err != nil {
			return err
		}
	}

	itemsJSON, err := json.Marshal(order.Items)
	if err != nil {
		return fmt.Errorf("failed to marshal order items: %w", err)
	}
	addressJSON, err := json.Marshal(order.ShippingAddress)
	if err != nil {
		return fmt.Errorf("failed to marshal shipping address: %w", err)
	}

	query := `INSERT INTO orders (` + orderColumns + `)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, insertErr := tx.ExecContext(ctx, query,
		order.ID,
		order.UserID,
		itemsJSON,
		order.TotalPrice,
		order.Currency,
		addressJSON,
		order.PaymentMethod,
		order.PaymentStatus,
		order.OrderStatus,
		order.TransactionID,
		order.CreatedAt,
		order.UpdatedAt)
	if insertErr != nil {
		return fmt.Errorf("insert order: %w", insertErr)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create order tx: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)

	order, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query order by id: %w", err)
	}
	return order, nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Order, error) {
	return r.list(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`, userID)
}

func (r *PostgresRepository) ListAll(ctx context.Context) ([]*domain.Order, error) {
	return r.list(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC`)
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return orders, nil
}

func (r *PostgresRepository) SetPaymentStatus(ctx context.Context, id uuid.UUID, payment domain.PaymentStatus, status domain.OrderStatus, transactionID string) (*domain.Order, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin payment status tx: %w", err)
	}
	defer tx.Rollback()

	var (
		previous      domain.PaymentStatus
		currentStatus domain.OrderStatus
	)
	err = tx.QueryRowContext(ctx,
		`SELECT payment_status, order_status FROM orders WHERE id = $1 FOR UPDATE`, id).
		Scan(&previous, &currentStatus)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock order for payment update: %w", err)
	}

	// A cancelled order has already had its reserved stock released; a late
	// payment confirmation must not resurrect it and resell those units.
	if currentStatus == domain.OrderStatusCancelled {
		return nil, domain.ErrOrderCancelled
	}

	row := tx.QueryRowContext(ctx,
		`UPDATE orders
		 SET payment_status = $2, order_status = $3,
		     transaction_id = COALESCE(NULLIF($4, ''), transaction_id),
		     updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+orderColumns, id, payment, status, transactionID)

	order, err := scanOrder(row)
	if err != nil {
		return nil, fmt.Errorf("update payment status: %w", err)
	}

	// The outbox event fires once, on the first transition into completed.
	// Re-confirming an already completed payment stays silent.
	if payment == domain.PaymentStatusCompleted && previous != domain.PaymentStatusCompleted {
		event := orderPaidEvent{
			OrderID:       order.ID.String(),
			UserID:        order.UserID,
			TotalPrice:    order.TotalPrice,
			Currency:      order.Currency,
			TransactionID: order.TransactionID,
			PaidAt:        order.UpdatedAt,
		}
		if err := outbox.Insert(ctx, tx, order.ID.String(), outbox.EventTypeOrderPaid, event); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit payment status tx: %w", err)
	}
	return order, nil
}

// CancelExpired cancels card orders still awaiting payment that were created
// before cutoff, releasing each line's reserved stock in the same transaction.
// Returns the ids of the orders it cancelled.
func (r *PostgresRepository) CancelExpired(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin cancel expired tx: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx,
		`SELECT id, items FROM orders
		 WHERE payment_method = $1
		   AND payment_status = $2
		   AND order_status = $3
		   AND created_at < $4
		 FOR UPDATE SKIP LOCKED`,
		domain.PaymentMethodCard, domain.PaymentStatusPending, domain.OrderStatusPending, cutoff)
	if err != nil {
		return nil, fmt.Errorf("query expired orders: %w", err)
	}

	type expired struct {
		id    uuid.UUID
		items []domain.OrderItem
	}
	var expiredOrders []expired
	for rows.Next() {
		var (
			e         expired
			itemsJSON []byte
		)
		if err := rows.Scan(&e.id, &itemsJSON); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan expired order: %w", err)
		}
		if err := json.Unmarshal(itemsJSON, &e.items); err != nil {
			rows.Close()
			return nil, fmt.Errorf("unmarshal expired order items: %w", err)
		}
		expiredOrders = append(expiredOrders, e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	var cancelled []uuid.UUID
	for _, e := range expiredOrders {
		if _, err := tx.ExecContext(ctx,
			`UPDATE orders SET order_status = $2, updated_at = NOW() WHERE id = $1`,
			e.id, domain.OrderStatusCancelled); err != nil {
			return nil, fmt.Errorf("cancel order: %w", err)
		}
		for _, item := range e.items {
			if err := inventory.ReleaseStock(ctx, tx, item.ProductID, item.Quantity); err != nil {
				return nil, err
			}
		}
		cancelled = append(cancelled, e.id)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit cancel expired tx: %w", err)
	}
	return cancelled, nil
}

type orderPaidEvent struct {
	OrderID       string          `json:"order_id"`
	UserID        string          `json:"user_id"`
	TotalPrice    decimal.Decimal `json:"total_price"`
	Currency      string          `json:"currency"`
	TransactionID string          `json:"transaction_id,omitempty"`
	PaidAt        time.Time       `json:"paid_at"`
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var (
		order         domain.Order
		itemsJSON     []byte
		addressJSON   []byte
		transactionID sql.NullString
	)
	if err := row.Scan(
		&order.ID,
		&order.UserID,
		&itemsJSON,
		&order.TotalPrice,
		&order.Currency,
		&addressJSON,
		&order.PaymentMethod,
		&order.PaymentStatus,
		&order.OrderStatus,
		&transactionID,
		&order.CreatedAt,
		&order.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(itemsJSON, &order.Items); err != nil {
		return nil, fmt.Errorf("unmarshal order items: %w", err)
	}
	if err := json.Unmarshal(addressJSON, &order.ShippingAddress); err != nil {
		return nil, fmt.Errorf("unmarshal shipping address: %w", err)
	}
	order.TransactionID = transactionID.String

	return &order, nil
}
