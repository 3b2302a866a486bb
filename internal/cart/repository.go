package cart

import (
	"context"

	"github.com/shopd/shopd/internal/domain"
)

// Repository defines the interface for cart data operations
// Consumers define this interface, not the MongoDB implementation
type Repository interface {
	// GetCart returns the raw cart lines for a user, or domain.ErrCartNotFound.
	GetCart(ctx context.Context, userID string) (*domain.Cart, error)

	// AddItem appends a line, or adds quantities when the product is already
	// a line. Creates the cart when none exists.
	AddItem(ctx context.Context, userID string, item domain.CartItem) error

	// UpdateItemQuantity sets a line's quantity. Fails with
	// domain.ErrItemNotFound when the product is not in the cart.
	UpdateItemQuantity(ctx context.Context, userID string, productID int64, quantity int) error

	// RemoveItem drops a line. Fails with domain.ErrCartNotFound when the
	// user has no cart; removing an absent line is a no-op.
	RemoveItem(ctx context.Context, userID string, productID int64) error

	// ClearCart empties the cart's lines. Clearing an absent or already
	// empty cart is a no-op; carts are never deleted, only emptied.
	ClearCart(ctx context.Context, userID string) error
}
