package cart

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
)

const defaultSaveTimeout = 2 * time.Second

// Engine owns one cart. It is the only writer of its persisted record.
//
// Mutations are serialized by the engine's mutex and persisted in the same
// order. A persistence failure never fails the mutation: the in-memory cart
// remains authoritative and the failure is logged and reported through the
// persist error hook.
type Engine struct {
	storage        Storage
	gate           Gate
	lg             *zap.Logger
	saveTimeout    time.Duration
	onPersistError func(error)

	mu         sync.Mutex
	items      []LineItem
	persistErr error
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(lg *zap.Logger) Option {
	return func(e *Engine) { e.lg = lg }
}

// WithSaveTimeout bounds the initial load and each persistence write.
func WithSaveTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.saveTimeout = d
		}
	}
}

// WithPersistErrorHook registers fn to be called after every failed write.
func WithPersistErrorHook(fn func(error)) Option {
	return func(e *Engine) { e.onPersistError = fn }
}

// Open creates an Engine and rehydrates it from storage. A corrupt stored
// record is discarded and the cart starts empty. Any other load failure is
// returned so the caller can retry instead of overwriting a record it could
// not read.
func Open(ctx context.Context, storage Storage, gate Gate, opts ...Option) (*Engine, error) {
	e := &Engine{
		storage:     storage,
		gate:        gate,
		lg:          zap.NewNop(),
		saveTimeout: defaultSaveTimeout,
	}
	for _, o := range opts {
		o(e)
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.saveTimeout)
	defer cancel()

	items, err := storage.Load(ctx)
	switch {
	case errors.Is(err, ErrCorruptRecord):
		e.lg.Warn("Discarding stored cart", zap.Error(err))
		items = nil
	case err != nil:
		return nil, err
	}
	e.items = items
	return e, nil
}

// Add puts quantity units of item into the cart. If the product is already
// present its quantity is increased; otherwise item is appended.
func (e *Engine) Add(ctx context.Context, item LineItem, quantity int) error {
	if !e.gate.PurchaseEnabled() {
		return ErrPurchaseDisabled
	}
	if item.ProductID == "" {
		return ErrInvalidItem
	}
	if quantity < 1 || quantity > MaxQuantity {
		return ErrInvalidQuantity
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if i := e.index(item.ProductID); i >= 0 {
		if e.items[i].Quantity > MaxQuantity-quantity {
			return ErrInvalidQuantity
		}
		e.items[i].Quantity += quantity
	} else {
		item.Quantity = quantity
		e.items = append(e.items, item)
	}
	e.persist(ctx)
	return nil
}

// Remove deletes the line item for productID. Removing an absent product is
// not an error.
func (e *Engine) Remove(ctx context.Context, productID string) error {
	if !e.gate.PurchaseEnabled() {
		return ErrPurchaseDisabled
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.remove(productID)
	e.persist(ctx)
	return nil
}

// UpdateQuantity sets the quantity of productID exactly. A quantity of zero
// or less removes the line item. Updating an absent product is a no-op.
func (e *Engine) UpdateQuantity(ctx context.Context, productID string, quantity int) error {
	if !e.gate.PurchaseEnabled() {
		return ErrPurchaseDisabled
	}
	if quantity > MaxQuantity {
		return ErrInvalidQuantity
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if quantity <= 0 {
		e.remove(productID)
	} else if i := e.index(productID); i >= 0 {
		e.items[i].Quantity = quantity
	}
	e.persist(ctx)
	return nil
}

// Clear empties the cart.
func (e *Engine) Clear(ctx context.Context) error {
	if !e.gate.PurchaseEnabled() {
		return ErrPurchaseDisabled
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.items = nil
	e.persist(ctx)
	return nil
}

// Deduct lowers each line by the quantity of the matching ordered item and
// drops lines that reach zero. Lines added or raised after the order was
// taken keep the difference. Deduct settles a completed checkout, so it is
// not subject to the purchase switch.
func (e *Engine) Deduct(ctx context.Context, ordered []LineItem) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, o := range ordered {
		if i := e.index(o.ProductID); i >= 0 {
			e.items[i].Quantity -= o.Quantity
		}
	}
	e.items = slices.DeleteFunc(e.items, func(li LineItem) bool {
		return li.Quantity < 1
	})
	e.persist(ctx)
	return nil
}

// Items returns a copy of the line items in insertion order.
func (e *Engine) Items() []LineItem {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.items)
}

// TotalItems returns the sum of quantities of the current cart.
func (e *Engine) TotalItems() int {
	return TotalItems(e.Items())
}

// TotalPrice returns the total price of the current cart.
func (e *Engine) TotalPrice() int64 {
	return TotalPrice(e.Items())
}

// PersistErr returns the error of the most recent write, or nil if it
// succeeded.
func (e *Engine) PersistErr() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.persistErr
}

func (e *Engine) index(productID string) int {
	return slices.IndexFunc(e.items, func(li LineItem) bool {
		return li.ProductID == productID
	})
}

func (e *Engine) remove(productID string) {
	e.items = slices.DeleteFunc(e.items, func(li LineItem) bool {
		return li.ProductID == productID
	})
}

// persist writes the current items. Must be called with e.mu held.
func (e *Engine) persist(ctx context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.saveTimeout)
	defer cancel()

	err := e.storage.Save(ctx, slices.Clone(e.items))
	e.persistErr = err
	if err == nil {
		return
	}
	e.lg.Warn("Cart persistence failed", zap.Error(err), zap.Int("items", len(e.items)))
	if e.onPersistError != nil {
		e.onPersistError(err)
	}
}
