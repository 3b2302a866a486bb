package catalog

import (
	"context"

	"github.com/shopd/shopd/internal/domain"
)

// Repository is the read-only product lookup consumed by the cart and order
// services. Stock is mutated only through the inventory ledger, never here.
type Repository interface {
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	ListProducts(ctx context.Context) ([]*domain.Product, error)
}
