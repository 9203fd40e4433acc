package handler

import (
	"context"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/xenking/storefront/internal/domain/cart"
)

// Metrics records cart activity.
type Metrics struct {
	mutations      metric.Int64Counter
	persistFailure metric.Int64Counter
	orders         metric.Int64Counter
}

// NewMetrics creates the cart instruments on mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	meter := mp.Meter("storefront/cart")

	var (
		m   Metrics
		err error
	)
	if m.mutations, err = meter.Int64Counter("cart.mutations",
		metric.WithDescription("Cart mutations by operation and result"),
	); err != nil {
		return nil, errors.Wrap(err, "cart.mutations")
	}
	if m.persistFailure, err = meter.Int64Counter("cart.persist.failures",
		metric.WithDescription("Failed writes of persisted carts"),
	); err != nil {
		return nil, errors.Wrap(err, "cart.persist.failures")
	}
	if m.orders, err = meter.Int64Counter("checkout.orders",
		metric.WithDescription("Placed orders"),
	); err != nil {
		return nil, errors.Wrap(err, "checkout.orders")
	}
	return &m, nil
}

// NopMetrics returns Metrics that record nothing.
func NopMetrics() *Metrics {
	m, _ := NewMetrics(noop.NewMeterProvider())
	return m
}

func mutationResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, cart.ErrPurchaseDisabled):
		return "disabled"
	default:
		return "rejected"
	}
}

// CartMutation counts a cart mutation.
func (m *Metrics) CartMutation(ctx context.Context, op string, err error) {
	m.mutations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("op", op),
		attribute.String("result", mutationResult(err)),
	))
}

// PersistFailed counts a failed cart write. It matches the persist error
// hook of cart.SessionsConfig.
func (m *Metrics) PersistFailed(error) {
	m.persistFailure.Add(context.Background(), 1)
}

// OrderPlaced counts a placed order.
func (m *Metrics) OrderPlaced(ctx context.Context) {
	m.orders.Add(ctx, 1)
}
