package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/cart"
)

// Cart is the subset of the cart engine checkout depends on.
type Cart interface {
	Items() []cart.LineItem
	// Deduct removes the ordered quantities, keeping anything added while
	// the order was processed.
	Deduct(ctx context.Context, ordered []cart.LineItem) error
}

// Config configures a Service.
type Config struct {
	// Delay simulates payment processing before the order is placed.
	Delay  time.Duration
	Logger *zap.Logger
}

// Service encapsulates checkout business logic.
type Service struct {
	gate   cart.Gate
	orders Repository
	delay  time.Duration
	lg     *zap.Logger
	now    func() time.Time
}

// NewService creates a checkout Service. orders may be nil, in which case
// placed orders are not recorded.
func NewService(gate cart.Gate, orders Repository, cfg Config) *Service {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Service{
		gate:   gate,
		orders: orders,
		delay:  cfg.Delay,
		lg:     cfg.Logger,
		now:    time.Now,
	}
}

// Checkout validates delivery details, waits for the processing delay,
// records the order and removes the ordered lines from the cart.
func (s *Service) Checkout(ctx context.Context, c Cart, delivery Delivery) (*Order, error) {
	if !s.gate.PurchaseEnabled() {
		return nil, cart.ErrPurchaseDisabled
	}
	items := c.Items()
	if len(items) == 0 {
		return nil, cart.ErrEmptyCart
	}
	delivery = delivery.Normalize()
	if err := delivery.Validate(); err != nil {
		return nil, err
	}

	if err := s.wait(ctx); err != nil {
		return nil, errors.Wrap(err, "process payment")
	}

	o := &Order{
		ID:        uuid.New(),
		Items:     items,
		Total:     cart.TotalPrice(items),
		Delivery:  delivery,
		CreatedAt: s.now().UTC(),
	}
	if s.orders != nil {
		if err := s.orders.Create(ctx, o); err != nil {
			return nil, errors.Wrap(err, "create order")
		}
	}

	// The order stands even if the cart cannot be updated.
	if err := c.Deduct(ctx, items); err != nil {
		s.lg.Warn("Deduct ordered items from cart",
			zap.Stringer("order_id", o.ID),
			zap.Error(err),
		)
	}
	return o, nil
}

func (s *Service) wait(ctx context.Context) error {
	if s.delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(s.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
