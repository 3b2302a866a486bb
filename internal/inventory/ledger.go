package inventory

import "context"

// Ledger holds per-product stock counts. Reserve decrements stock only when
// enough is available; the check and the decrement are a single atomic step
// so concurrent checkouts cannot oversell the last unit.
type Ledger interface {
	// Reserve decrements stock by quantity, failing with
	// domain.ErrInsufficientStock if fewer than quantity units remain and
	// domain.ErrProductNotFound if the product does not exist.
	Reserve(ctx context.Context, productID int64, quantity int) error

	// Release returns quantity units to stock, compensating a reservation
	// whose surrounding operation failed.
	Release(ctx context.Context, productID int64, quantity int) error
}
