// Package cart implements the session-scoped shopping cart.
package cart

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-faster/errors"

	"github.com/xenking/storefront/internal/domain/catalog"
)

// MaxQuantity is the largest quantity a single line item may hold.
const MaxQuantity = 999

var (
	// ErrPurchaseDisabled is returned instead of performing a mutation while
	// the site-wide purchase switch is off. It is a business signal, not a
	// technical failure.
	ErrPurchaseDisabled = errors.New("purchase disabled")
	// ErrInvalidQuantity is returned when adding fewer than one unit or when
	// a line item would exceed MaxQuantity.
	ErrInvalidQuantity = errors.New("quantity must be between 1 and " + strconv.Itoa(MaxQuantity))
	// ErrInvalidItem is returned when a line item has no product id.
	ErrInvalidItem = errors.New("line item requires a product id")
	// ErrEmptyCart is returned when an operation needs at least one line item.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrCorruptRecord marks a stored cart record that could not be decoded
	// or failed validation.
	ErrCorruptRecord = errors.New("corrupt cart record")
)

// LineItem is one product in the cart. Product fields are a snapshot taken
// when the product was first added; later catalog changes do not affect it.
type LineItem struct {
	ProductID string
	Name      string
	Price     int64
	Image     string
	Category  string
	Quantity  int
}

// Subtotal returns Price × Quantity.
func (li LineItem) Subtotal() int64 {
	return li.Price * int64(li.Quantity)
}

// Snapshot copies the cart-relevant fields of p. categoryName is the display
// label of the product's category.
func Snapshot(p catalog.Product, categoryName string) LineItem {
	return LineItem{
		ProductID: p.ID,
		Name:      p.Name,
		Price:     p.Price,
		Image:     p.Image,
		Category:  categoryName,
	}
}

// TotalItems returns the sum of quantities.
func TotalItems(items []LineItem) int {
	n := 0
	for _, li := range items {
		n += li.Quantity
	}
	return n
}

// TotalPrice returns the sum of price × quantity.
func TotalPrice(items []LineItem) int64 {
	var total int64
	for _, li := range items {
		total += li.Subtotal()
	}
	return total
}

// InvalidRecordError describes why a persisted cart was rejected.
type InvalidRecordError struct {
	Index  int
	Reason string
}

func (e *InvalidRecordError) Error() string {
	return fmt.Sprintf("invalid cart item %d: %s", e.Index, e.Reason)
}

// Validate checks the invariants a cart must hold: non-empty product ids,
// quantities between one and MaxQuantity, and at most one line item per product.
func Validate(items []LineItem) error {
	seen := make(map[string]struct{}, len(items))
	for i, li := range items {
		if li.ProductID == "" {
			return &InvalidRecordError{Index: i, Reason: "empty product id"}
		}
		if li.Quantity < 1 {
			return &InvalidRecordError{Index: i, Reason: "quantity below 1"}
		}
		if li.Quantity > MaxQuantity {
			return &InvalidRecordError{Index: i, Reason: "quantity above " + strconv.Itoa(MaxQuantity)}
		}
		if li.Price < 0 {
			return &InvalidRecordError{Index: i, Reason: "negative price"}
		}
		if _, dup := seen[li.ProductID]; dup {
			return &InvalidRecordError{Index: i, Reason: "duplicate product " + li.ProductID}
		}
		seen[li.ProductID] = struct{}{}
	}
	return nil
}

// Storage persists a single cart.
type Storage interface {
	// Load returns the stored items. A missing record yields (nil, nil).
	Load(ctx context.Context) ([]LineItem, error)
	Save(ctx context.Context, items []LineItem) error
}

// Store persists carts keyed by session.
type Store interface {
	Load(ctx context.Context, sessionID string) ([]byte, error)
	Save(ctx context.Context, sessionID string, data []byte) error
	Delete(ctx context.Context, sessionID string) error
}

// Gate reports whether purchasing is currently enabled.
type Gate interface {
	PurchaseEnabled() bool
}

// GateFunc adapts a function to Gate.
type GateFunc func() bool

// PurchaseEnabled calls f.
func (f GateFunc) PurchaseEnabled() bool { return f() }
