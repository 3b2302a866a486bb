package cart

import (
	"context"
	"errors"

	"github.com/shopd/shopd/internal/domain"
)

// Cache holds raw cart lines only; prices are always attached from the live
// catalog after a cache hit, so a cached cart can never serve stale prices.
type Cache interface {
	Get(ctx context.Context, userID string) (*domain.Cart, error)
	Set(ctx context.Context, userID string, cart *domain.Cart) error
	Delete(ctx context.Context, userID string) error
}

var ErrCacheMiss = errors.New("cache miss")
