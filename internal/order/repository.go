package order

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopd/shopd/internal/domain"
)

type Repository interface {
	// Create persists the order and reserves stock for every line as one
	// atomic unit: a shortfall on any line rolls the whole attempt back,
	// leaving no order row and no other line's stock touched.
	Create(ctx context.Context, order *domain.Order) error

	GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)

	// ListByUser returns the user's orders, newest first.
	ListByUser(ctx context.Context, userID string) ([]*domain.Order, error)

	// ListAll returns every order, newest first (admin surface).
	ListAll(ctx context.Context) ([]*domain.Order, error)

	// SetPaymentStatus transitions the payment sub-state and the derived
	// order status. The first transition into completed also records an
	// order.paid outbox event in the same transaction; repeating the call
	// with completed is a no-op beyond refreshing updated_at.
	SetPaymentStatus(ctx context.Context, id uuid.UUID, payment domain.PaymentStatus, status domain.OrderStatus, transactionID string) (*domain.Order, error)
}
