package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopd/shopd/internal/catalog"
	"github.com/shopd/shopd/internal/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

type Service struct {
	repo    Repository
	cache   Cache
	catalog catalog.Repository
	logger  *zap.Logger
	sfg     singleflight.Group // Prevents cache stampede
}

func NewService(repo Repository, cache Cache, cat catalog.Repository, logger *zap.Logger) *Service {
	return &Service{
		repo:    repo,
		cache:   cache,
		catalog: cat,
		logger:  logger,
	}
}

// Get returns the user's cart, creating an empty one when none exists.
// TotalPrice and per-line prices are recomputed from the catalog on every
// call; stored carts carry only product references and quantities.
func (s *Service) Get(ctx context.Context, userID string) (*domain.Cart, error) {
	cart, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.price(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

// load fetches the raw cart through the cache, falling back to an empty cart
// when the user has none yet.
func (s *Service) load(ctx context.Context, userID string) (*domain.Cart, error) {
	// Use singleflight to prevent multiple concurrent cache misses for same key
	v, err, _ := s.sfg.Do(userID, func() (interface{}, error) {
		cart, err := s.cache.Get(ctx, userID)
		if err == nil {
			return cart, nil // cart is in cache
		}

		if !errors.Is(err, ErrCacheMiss) {
			s.logger.Warn("cart cache get failed", zap.Error(err)) // log cache error but continue
		}

		cart, errGet := s.repo.GetCart(ctx, userID)
		if errors.Is(errGet, domain.ErrCartNotFound) {
			now := time.Now()
			return &domain.Cart{
				UserID:    userID,
				Items:     nil,
				CreatedAt: now,
				UpdatedAt: now,
			}, nil
		}
		if errGet != nil {
			return nil, errGet
		}

		go func() {
			if errSet := s.cache.Set(context.Background(), userID, cart); errSet != nil {
				s.logger.Warn("cart cache set failed", zap.Error(errSet))
			}
		}()

		return cart, nil
	})

	if err != nil {
		return nil, err
	}

	// Concurrent callers share the singleflight result. Each gets its own
	// copy so price can attach per-request values without racing the cache
	// writer or another request.
	return v.(*domain.Cart).Clone(), nil
}

// price attaches current catalog names and prices to every line and
// recomputes the derived total.
func (s *Service) price(ctx context.Context, cart *domain.Cart) error {
	total := decimal.Zero
	for i := range cart.Items {
		product, err := s.catalog.GetProduct(ctx, cart.Items[i].ProductID)
		if err != nil {
			return fmt.Errorf("price cart line %d: %w", cart.Items[i].ProductID, err)
		}
		qty := decimal.NewFromInt(int64(cart.Items[i].Quantity))
		cart.Items[i].ProductName = product.Name
		cart.Items[i].UnitPrice = product.Price
		cart.Items[i].Subtotal = product.Price.Mul(qty)
		total = total.Add(cart.Items[i].Subtotal)
	}
	cart.TotalPrice = total
	return nil
}

// AddItem validates the product and quantity, soft-checks stock against the
// catalog (the authoritative check happens again at order time) and adds the
// line, merging quantities when the product is already in the cart.
func (s *Service) AddItem(ctx context.Context, userID string, productID int64, quantity int) (*domain.Cart, error) {
	if quantity < 1 {
		return nil, domain.ErrInvalidQuantity
	}

	product, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	cart, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	requested := quantity
	if i := cart.FindItem(productID); i >= 0 {
		requested += cart.Items[i].Quantity
	}
	if product.Stock < requested {
		return nil, fmt.Errorf("%w for %s", domain.ErrInsufficientStock, product.Name)
	}

	if err := s.repo.AddItem(ctx, userID, domain.CartItem{ProductID: productID, Quantity: quantity}); err != nil {
		return nil, err
	}

	s.invalidate(userID)
	return s.Get(ctx, userID)
}

// UpdateQuantity sets a line's quantity. Setting to zero is not supported;
// removal is a distinct operation.
func (s *Service) UpdateQuantity(ctx context.Context, userID string, productID int64, quantity int) (*domain.Cart, error) {
	if quantity < 1 {
		return nil, domain.ErrInvalidQuantity
	}

	product, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product.Stock < quantity {
		return nil, fmt.Errorf("%w for %s", domain.ErrInsufficientStock, product.Name)
	}

	if err := s.repo.UpdateItemQuantity(ctx, userID, productID, quantity); err != nil {
		return nil, err
	}

	s.invalidate(userID)
	return s.Get(ctx, userID)
}

func (s *Service) RemoveItem(ctx context.Context, userID string, productID int64) (*domain.Cart, error) {
	if err := s.repo.RemoveItem(ctx, userID, productID); err != nil {
		return nil, err
	}

	s.invalidate(userID)
	return s.Get(ctx, userID)
}

// Clear empties the cart. Clearing an absent or already empty cart is a
// no-op, which makes the order engine's finalize step safe to repeat.
func (s *Service) Clear(ctx context.Context, userID string) (*domain.Cart, error) {
	if err := s.repo.ClearCart(ctx, userID); err != nil {
		return nil, err
	}

	s.invalidate(userID)
	return s.Get(ctx, userID)
}

func (s *Service) invalidate(userID string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, userID); err != nil {
		s.logger.Warn("cart cache invalidate failed", zap.Error(err))
	}
}
