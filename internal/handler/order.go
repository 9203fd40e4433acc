package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/order"
)

// placeOrder checks out the session cart. The response is sent only after
// the processing delay has elapsed and the ordered lines have been
// removed from the cart.
func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var delivery order.Delivery
	if err := decodeJSON(w, r, &delivery); err != nil {
		writeError(ctx, w, err)
		return
	}

	e, err := h.engine(w, r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	o, err := h.checkout.Checkout(ctx, e, delivery)
	h.metrics.CartMutation(ctx, "checkout", err)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	h.metrics.OrderPlaced(ctx)
	zctx.From(ctx).Info("Order placed",
		zap.Stringer("order_id", o.ID),
		zap.Int("items", o.TotalItems()),
		zap.Int64("total", o.Total),
	)
	writeJSON(ctx, w, http.StatusCreated, toOrderJSON(*o))
}

// adminOrders lists the most recent orders, newest first.
func (h *Handler) adminOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		writeError(ctx, w, errUnavailable)
		return
	}
	limit, err := queryInt(r, "limit", 50)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	orders, err := h.orders.Recent(ctx, min(max(limit, 1), 500))
	if err != nil {
		writeError(ctx, w, errors.Wrap(err, "list orders"))
		return
	}
	writeJSON(ctx, w, http.StatusOK, map[string]any{"orders": mapSlice(orders, toOrderJSON)})
}
