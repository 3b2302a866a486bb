package inventory

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopd/shopd/internal/domain"
)

// MemoryLedger is a mutex-guarded in-memory Ledger for tests and local
// development. The mutex gives the same check-then-decrement atomicity the
// Postgres conditional update provides.
type MemoryLedger struct {
	mu     sync.Mutex
	stocks map[int64]stockEntry
}

type stockEntry struct {
	name  string
	stock int
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{stocks: make(map[int64]stockEntry)}
}

// SetStock sets the stock level for a product (used for initialization).
func (l *MemoryLedger) SetStock(productID int64, name string, quantity int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stocks[productID] = stockEntry{name: name, stock: quantity}
}

// Stock returns the current stock level, or -1 for an unknown product.
func (l *MemoryLedger) Stock(productID int64) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.stocks[productID]
	if !ok {
		return -1
	}
	return entry.stock
}

func (l *MemoryLedger) Reserve(_ context.Context, productID int64, quantity int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.stocks[productID]
	if !ok {
		return domain.ErrProductNotFound
	}
	if entry.stock < quantity {
		return fmt.Errorf("%w for %s", domain.ErrInsufficientStock, entry.name)
	}

	entry.stock -= quantity
	l.stocks[productID] = entry
	return nil
}

func (l *MemoryLedger) Release(_ context.Context, productID int64, quantity int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.stocks[productID]
	if !ok {
		return domain.ErrProductNotFound
	}

	entry.stock += quantity
	l.stocks[productID] = entry
	return nil
}
