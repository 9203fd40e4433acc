// Package handler implements the storefront HTTP API on net/http.
package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/admin"
	"github.com/xenking/storefront/internal/domain/auth"
	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/catalog"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/pkg/httpmiddleware"
)

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// RelatedLimit is the number of related products on a product page.
	RelatedLimit int
	// MaxPageSize caps the limit query parameter of product listings.
	MaxPageSize int
	// MaxUploadSize is the largest accepted upload body in bytes.
	MaxUploadSize int64
	// SecureCookie marks the cart session cookie Secure.
	SecureCookie bool
	// SessionMaxAge is the lifetime of the cart session cookie.
	SessionMaxAge time.Duration
}

func (c *Config) setDefaults() {
	if c.RelatedLimit <= 0 {
		c.RelatedLimit = 3
	}
	if c.MaxPageSize <= 0 {
		c.MaxPageSize = 100
	}
	if c.MaxUploadSize <= 0 {
		c.MaxUploadSize = 5 << 20
	}
	if c.SessionMaxAge <= 0 {
		c.SessionMaxAge = 30 * 24 * time.Hour
	}
}

// Deps are the domain services behind the API. Content, Admin and Orders
// are nil when no data store is configured; their routes answer 503.
type Deps struct {
	Catalog  *catalog.Store
	Content  catalog.ContentSource
	Sessions *cart.Sessions
	Checkout *order.Service
	Admin    *admin.Service
	Orders   order.Reader
	Gate     *auth.PasswordGate
	Metrics  *Metrics
}

// Handler serves the storefront API.
type Handler struct {
	cfg Config

	catalog  *catalog.Store
	content  catalog.ContentSource
	sessions *cart.Sessions
	checkout *order.Service
	admin    *admin.Service
	orders   order.Reader
	gate     *auth.PasswordGate
	metrics  *Metrics
}

// New constructs a Handler.
func New(cfg Config, d Deps) *Handler {
	cfg.setDefaults()
	if d.Metrics == nil {
		d.Metrics = NopMetrics()
	}
	return &Handler{
		cfg:      cfg,
		catalog:  d.Catalog,
		content:  d.Content,
		sessions: d.Sessions,
		checkout: d.Checkout,
		admin:    d.Admin,
		orders:   d.Orders,
		gate:     d.Gate,
		metrics:  d.Metrics,
	}
}

// Register adds the API routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/catalog", h.getCatalog)
	mux.HandleFunc("POST /api/catalog/refresh", h.refreshCatalog)
	mux.HandleFunc("GET /api/products", h.listProducts)
	mux.HandleFunc("GET /api/products/featured", h.featuredProducts)
	mux.HandleFunc("GET /api/products/{id}", h.getProduct)
	mux.HandleFunc("GET /api/articles", h.listArticles)
	mux.HandleFunc("GET /api/articles/{slug}", h.getArticle)
	mux.HandleFunc("GET /api/faqs", h.listFAQs)

	mux.HandleFunc("GET /api/cart", h.getCart)
	mux.HandleFunc("DELETE /api/cart", h.clearCart)
	mux.HandleFunc("POST /api/cart/items", h.addCartItem)
	mux.HandleFunc("PUT /api/cart/items/{productId}", h.updateCartItem)
	mux.HandleFunc("DELETE /api/cart/items/{productId}", h.removeCartItem)
	mux.HandleFunc("POST /api/checkout", h.placeOrder)

	h.registerAdmin(mux)
}

// errorResponse is the body of every non-2xx API response.
type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	// Notice marks business signals the client shows as a notice rather
	// than as a failure.
	Notice    bool   `json:"notice,omitempty"`
	Field     string `json:"field,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

// badRequestError is a malformed request.
type badRequestError struct {
	msg string
}

func (e *badRequestError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &badRequestError{msg: errors.Errorf(format, args...).Error()}
}

// errUnavailable is returned by routes whose backing service is not configured.
var errUnavailable = errors.New("service unavailable")

var errProductNotFound = errors.Wrap(catalog.ErrNotFound, "product")

// mapError converts domain errors to API error responses. Anything it does
// not recognize is a 500.
func mapError(err error) errorResponse {
	var (
		badReq   *badRequestError
		orderVal *order.ValidationError
		adminVal *admin.ValidationError
		tooLarge *http.MaxBytesError
	)
	switch {
	case errors.Is(err, cart.ErrPurchaseDisabled):
		return errorResponse{Code: http.StatusConflict, Message: "purchase disabled", Notice: true}
	case errors.As(err, &badReq):
		return errorResponse{Code: http.StatusBadRequest, Message: badReq.msg}
	case errors.As(err, &tooLarge):
		return errorResponse{Code: http.StatusRequestEntityTooLarge, Message: "request body too large"}
	case errors.As(err, &orderVal):
		return errorResponse{Code: http.StatusUnprocessableEntity, Message: orderVal.Error(), Field: orderVal.Field}
	case errors.As(err, &adminVal):
		return errorResponse{Code: http.StatusUnprocessableEntity, Message: adminVal.Error(), Field: adminVal.Field}
	case errors.Is(err, cart.ErrInvalidQuantity):
		return errorResponse{Code: http.StatusUnprocessableEntity, Message: cart.ErrInvalidQuantity.Error(), Field: "quantity"}
	case errors.Is(err, cart.ErrInvalidItem):
		return errorResponse{Code: http.StatusUnprocessableEntity, Message: cart.ErrInvalidItem.Error(), Field: "productId"}
	case errors.Is(err, cart.ErrEmptyCart):
		return errorResponse{Code: http.StatusUnprocessableEntity, Message: "cart is empty"}
	case errors.Is(err, catalog.ErrNotFound):
		return errorResponse{Code: http.StatusNotFound, Message: "not found"}
	case errors.Is(err, admin.ErrDuplicate):
		return errorResponse{Code: http.StatusConflict, Message: "a record with the same unique key already exists"}
	case errors.Is(err, admin.ErrInUse):
		return errorResponse{Code: http.StatusConflict, Message: "record is referenced by other records"}
	case errors.Is(err, auth.ErrUnauthorized):
		return errorResponse{Code: http.StatusUnauthorized, Message: "unauthorized"}
	case errors.Is(err, errUnavailable), errors.Is(err, catalog.ErrDataUnavailable):
		return errorResponse{Code: http.StatusServiceUnavailable, Message: "service unavailable"}
	default:
		return errorResponse{Code: http.StatusInternalServerError, Message: "internal server error"}
	}
}

func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	resp := mapError(err)
	resp.RequestID = httpmiddleware.RequestIDFromContext(ctx)
	switch {
	case resp.Code == http.StatusInternalServerError:
		zctx.From(ctx).Error("Request failed", zap.Error(err))
	case resp.Code > http.StatusInternalServerError:
		zctx.From(ctx).Warn("Request failed", zap.Error(err))
	}
	writeJSON(ctx, w, resp.Code, resp)
}

func writeJSON(ctx context.Context, w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zctx.From(ctx).Debug("Write response", zap.Error(err))
	}
}

// maxJSONBody caps JSON request bodies.
const maxJSONBody = 1 << 20

// decodeJSON reads a single JSON object from the request body.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return err
		case errors.Is(err, io.EOF):
			return badRequest("request body is empty")
		}
		return badRequest("invalid request body: %v", err)
	}
	return nil
}
