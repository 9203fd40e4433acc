package order

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/xenking/storefront/internal/domain/cart"
)

// Order represents a placed order with the cart contents at checkout time.
type Order struct {
	ID        uuid.UUID
	Items     []cart.LineItem
	Total     int64
	Delivery  Delivery
	CreatedAt time.Time
}

// TotalItems returns the number of units in the order.
func (o *Order) TotalItems() int {
	return cart.TotalItems(o.Items)
}

// Delivery holds the recipient details collected at checkout.
type Delivery struct {
	FirstName  string  `json:"firstName"`
	LastName   string  `json:"lastName"`
	Phone      string  `json:"phone"`
	Email      *string `json:"email,omitempty"`
	Province   string  `json:"province"`
	City       string  `json:"city"`
	Address    string  `json:"address"`
	PostalCode string  `json:"postalCode"`
	Note       *string `json:"note,omitempty"`
}

// Repository defines persistence operations for orders.
type Repository interface {
	Create(ctx context.Context, order *Order) error
}

// Reader lists recorded orders.
type Reader interface {
	Recent(ctx context.Context, limit int) ([]Order, error)
}
