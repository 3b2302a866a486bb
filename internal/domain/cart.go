package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Cart struct {
	ID        string     `bson:"_id,omitempty" json:"-"`
	UserID    string     `bson:"user_id" json:"user_id"`
	Items     []CartItem `bson:"items" json:"items"`
	CreatedAt time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time  `bson:"updated_at" json:"updated_at"`

	// TotalPrice is derived from current catalog prices on every read and
	// mutation. It is never the source of truth and is never persisted.
	TotalPrice decimal.Decimal `bson:"-" json:"total_price"`
}

type CartItem struct {
	ProductID int64     `bson:"product_id" json:"product_id"`
	Quantity  int       `bson:"quantity" json:"quantity"`
	AddedAt   time.Time `bson:"added_at" json:"added_at"`

	// Priced at read time from the catalog, not stored with the cart.
	ProductName string          `bson:"-" json:"product_name,omitempty"`
	UnitPrice   decimal.Decimal `bson:"-" json:"unit_price"`
	Subtotal    decimal.Decimal `bson:"-" json:"subtotal"`
}

func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// Clone returns a copy with its own Items slice. Callers that attach
// request-scoped pricing must work on a clone, never on a cart shared with
// other goroutines.
func (c *Cart) Clone() *Cart {
	cp := *c
	cp.Items = make([]CartItem, len(c.Items))
	copy(cp.Items, c.Items)
	return &cp
}

// FindItem returns the index of the line holding productID, or -1.
func (c *Cart) FindItem(productID int64) int {
	for i, item := range c.Items {
		if item.ProductID == productID {
			return i
		}
	}
	return -1
}
