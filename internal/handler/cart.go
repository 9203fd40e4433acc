package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/xenking/storefront/internal/domain/cart"
)

// SessionCookie names the cookie that carries the cart session id.
const SessionCookie = "cart_session"

// session returns the cart session id of r, issuing a new one in a cookie
// when the request has none or carries a malformed id.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(SessionCookie); err == nil {
		if id, err := uuid.Parse(c.Value); err == nil {
			return id.String()
		}
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		MaxAge:   int(h.cfg.SessionMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   h.cfg.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

// engine returns the cart of the request's session. A cart that cannot be
// read from the store is reported as unavailable.
func (h *Handler) engine(w http.ResponseWriter, r *http.Request) (*cart.Engine, error) {
	e, err := h.sessions.Get(r.Context(), h.session(w, r))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errUnavailable, err)
	}
	return e, nil
}

type cartResponse struct {
	Items           []lineItemJSON `json:"items"`
	TotalItems      int            `json:"totalItems"`
	TotalPrice      int64          `json:"totalPrice"`
	PurchaseEnabled bool           `json:"purchaseEnabled"`
}

func (h *Handler) writeCart(ctx context.Context, w http.ResponseWriter, e *cart.Engine) {
	items := e.Items()
	writeJSON(ctx, w, http.StatusOK, cartResponse{
		Items:           mapSlice(items, toLineItemJSON),
		TotalItems:      cart.TotalItems(items),
		TotalPrice:      cart.TotalPrice(items),
		PurchaseEnabled: h.catalog.PurchaseEnabled(),
	})
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	e, err := h.engine(w, r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	h.writeCart(ctx, w, e)
}

type addItemRequest struct {
	ProductID string `json:"productId"`
	// Quantity defaults to 1 when omitted.
	Quantity *int `json:"quantity"`
}

func (h *Handler) addCartItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req addItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if req.ProductID == "" {
		writeError(ctx, w, cart.ErrInvalidItem)
		return
	}
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	e, err := h.engine(w, r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	if !h.catalog.PurchaseEnabled() {
		// Checked before the product lookup so the notice wins over 404.
		h.mutated(ctx, w, e, "add", cart.ErrPurchaseDisabled)
		return
	}
	p, ok := h.catalog.Product(req.ProductID)
	if !ok {
		writeError(ctx, w, errProductNotFound)
		return
	}
	item := cart.Snapshot(p, h.catalog.CategoryName(p.CategoryID))
	h.mutated(ctx, w, e, "add", e.Add(ctx, item, quantity))
}

type updateItemRequest struct {
	Quantity *int `json:"quantity"`
}

func (h *Handler) updateCartItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req updateItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if req.Quantity == nil {
		writeError(ctx, w, badRequest("quantity is required"))
		return
	}
	e, err := h.engine(w, r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	h.mutated(ctx, w, e, "update", e.UpdateQuantity(ctx, r.PathValue("productId"), *req.Quantity))
}

func (h *Handler) removeCartItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	e, err := h.engine(w, r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	h.mutated(ctx, w, e, "remove", e.Remove(ctx, r.PathValue("productId")))
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	e, err := h.engine(w, r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	h.mutated(ctx, w, e, "clear", e.Clear(ctx))
}

// mutated records the outcome of a cart mutation and writes either the
// error or the updated cart.
func (h *Handler) mutated(ctx context.Context, w http.ResponseWriter, e *cart.Engine, op string, err error) {
	h.metrics.CartMutation(ctx, op, err)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	h.writeCart(ctx, w, e)
}
