package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopd/shopd/internal/catalog"
	"github.com/shopd/shopd/internal/clock"
	"github.com/shopd/shopd/internal/domain"
	"github.com/shopd/shopd/internal/payment"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CartStore is what the engine needs from the cart side: read the live cart
// at checkout and empty it when an order is finalized.
type CartStore interface {
	Get(ctx context.Context, userID string) (*domain.Cart, error)
	Clear(ctx context.Context, userID string) (*domain.Cart, error)
}

// Service drives an order through its lifecycle: cart validation, the atomic
// convert-and-reserve step, and the payment transitions that follow.
type Service struct {
	repo     Repository
	carts    CartStore
	catalog  catalog.Repository
	gateway  payment.Gateway
	clock    clock.Clock
	logger   *zap.Logger
	currency string
}

func NewService(repo Repository, carts CartStore, cat catalog.Repository, gateway payment.Gateway, clk clock.Clock, logger *zap.Logger, currency string) *Service {
	return &Service{
		repo:     repo,
		carts:    carts,
		catalog:  cat,
		gateway:  gateway,
		clock:    clk,
		logger:   logger,
		currency: currency,
	}
}

// CreateOrder converts the user's cart into an immutable order.
//
// Validation failures happen before any mutation. The order insert and the
// per-line stock decrements share one database transaction, so a concurrent
// checkout grabbing the last unit aborts this attempt without partial state.
// Cash-on-delivery orders finalize immediately; card orders keep the cart
// until the payment confirmation arrives, so an abandoned payment leaves the
// cart intact for retry.
func (s *Service) CreateOrder(ctx context.Context, userID string, address domain.ShippingAddress, method domain.PaymentMethod) (*domain.Order, error) {
	if method == "" {
		method = domain.PaymentMethodCOD
	}
	if !method.Valid() {
		return nil, domain.ErrInvalidPaymentMethod
	}

	cart, err := s.carts.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	if cart.IsEmpty() {
		return nil, domain.ErrEmptyCart
	}

	if !address.Complete() {
		return nil, domain.ErrInvalidAddress
	}

	// Snapshot every line at the catalog's current price. This pre-checks
	// stock for a friendly early error; the authoritative check is the
	// conditional decrement inside the repository transaction.
	items := make([]domain.OrderItem, 0, len(cart.Items))
	total := decimal.Zero
	for _, line := range cart.Items {
		product, err := s.catalog.GetProduct(ctx, line.ProductID)
		if err != nil {
			return nil, err
		}
		if product.Stock < line.Quantity {
			return nil, fmt.Errorf("%w for %s", domain.ErrInsufficientStock, product.Name)
		}
		items = append(items, domain.OrderItem{
			ProductID:   product.ID,
			ProductName: product.Name,
			Quantity:    line.Quantity,
			Price:       product.Price,
		})
		total = total.Add(product.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}

	now := s.clock.Now()
	order := &domain.Order{
		ID:              uuid.New(),
		UserID:          userID,
		Items:           items,
		TotalPrice:      total,
		Currency:        s.currency,
		ShippingAddress: address,
		PaymentMethod:   method,
		PaymentStatus:   domain.PaymentStatusPending,
		OrderStatus:     domain.OrderStatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.repo.Create(ctx, order); err != nil {
		return nil, err
	}

	if method == domain.PaymentMethodCOD {
		// Payment is collected on delivery; the payment sub-state stays
		// pending until a later confirmation call.
		finalized, err := s.finalize(ctx, order.ID, domain.PaymentStatusPending, "")
		if err != nil {
			return nil, err
		}
		return finalized, nil
	}

	s.logger.Info("order awaiting payment",
		zap.String("order_id", order.ID.String()),
		zap.String("user_id", userID))
	return order, nil
}

// finalize is the single place an order advances to processing and the
// owning cart is emptied. The cash-on-delivery path reaches it at creation,
// the gateway path on confirmed payment; neither duplicates the step.
func (s *Service) finalize(ctx context.Context, id uuid.UUID, status domain.PaymentStatus, transactionID string) (*domain.Order, error) {
	order, err := s.repo.SetPaymentStatus(ctx, id, status, domain.OrderStatusProcessing, transactionID)
	if err != nil {
		return nil, err
	}

	// Clearing an empty cart is a no-op, so repeating finalize (a retried
	// payment confirmation) cannot double-clear or corrupt anything.
	if _, err := s.carts.Clear(ctx, order.UserID); err != nil {
		return nil, fmt.Errorf("clear cart after finalize: %w", err)
	}

	return order, nil
}

// UpdatePaymentStatus transitions the payment sub-state. Completed payments
// finalize the order; any other status leaves or reverts the order to
// pending. Calling with completed twice is harmless.
func (s *Service) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status domain.PaymentStatus, transactionID string) (*domain.Order, error) {
	if !status.Valid() {
		return nil, domain.ErrInvalidPaymentStatus
	}

	if status == domain.PaymentStatusCompleted {
		return s.finalize(ctx, id, status, transactionID)
	}

	return s.repo.SetPaymentStatus(ctx, id, status, domain.OrderStatusPending, transactionID)
}

// CreatePaymentIntent opens a gateway charge attempt for a card order's
// total, expressed in integer minor currency units.
func (s *Service) CreatePaymentIntent(ctx context.Context, userID string, id uuid.UUID) (*payment.Intent, error) {
	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, domain.ErrForbidden
	}
	if order.PaymentMethod != domain.PaymentMethodCard {
		return nil, domain.ErrInvalidPaymentMethod
	}
	if order.OrderStatus == domain.OrderStatusCancelled {
		return nil, domain.ErrOrderCancelled
	}
	if order.PaymentStatus == domain.PaymentStatusCompleted {
		return nil, domain.ErrInvalidPaymentStatus
	}

	amount := order.TotalPrice.Shift(2).Round(0).IntPart()
	intent, err := s.gateway.CreatePaymentIntent(ctx, amount, order.Currency, order.ID.String())
	if err != nil {
		s.logger.Error("payment intent creation failed",
			zap.String("order_id", order.ID.String()), zap.Error(err))
		if errors.Is(err, domain.ErrPaymentGateway) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrPaymentGateway, err)
	}

	return intent, nil
}

// GetOrder returns one order; callers may only read their own.
func (s *Service) GetOrder(ctx context.Context, userID string, id uuid.UUID) (*domain.Order, error) {
	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, domain.ErrForbidden
	}
	return order, nil
}

// ListUserOrders returns the caller's orders, newest first.
func (s *Service) ListUserOrders(ctx context.Context, userID string) ([]*domain.Order, error) {
	return s.repo.ListByUser(ctx, userID)
}

// ListAllOrders is the admin surface.
func (s *Service) ListAllOrders(ctx context.Context) ([]*domain.Order, error) {
	return s.repo.ListAll(ctx)
}
