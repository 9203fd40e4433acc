package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/catalog"
)

type catalogResponse struct {
	State           string         `json:"state"`
	Error           string         `json:"error,omitempty"`
	Categories      []categoryJSON `json:"categories"`
	Sliders         []sliderJSON   `json:"sliders"`
	Settings        settingsJSON   `json:"settings"`
	ProductCount    int            `json:"productCount"`
	ProductsLoaded  bool           `json:"productsLoaded"`
	PurchaseEnabled bool           `json:"purchaseEnabled"`
	LoadedAt        *time.Time     `json:"loadedAt,omitempty"`
}

func toCatalogResponse(snap catalog.Snapshot) catalogResponse {
	resp := catalogResponse{
		State:           snap.State.String(),
		Categories:      mapSlice(snap.Categories, toCategoryJSON),
		Sliders:         mapSlice(snap.Sliders, toSliderJSON),
		Settings:        toSettingsJSON(snap.Settings),
		ProductCount:    len(snap.Products),
		ProductsLoaded:  snap.ProductsLoaded,
		PurchaseEnabled: snap.Settings.PurchaseEnabled,
	}
	if snap.Err != nil {
		resp.Error = publicLoadError(snap.Err)
	}
	if !snap.LoadedAt.IsZero() {
		resp.LoadedAt = &snap.LoadedAt
	}
	return resp
}

// publicLoadError describes a load failure without leaking driver details.
func publicLoadError(err error) string {
	if errors.Is(err, catalog.ErrDataUnavailable) {
		return catalog.ErrDataUnavailable.Error()
	}
	var fetchErr *catalog.FetchFailedError
	if errors.As(err, &fetchErr) {
		return "failed to load " + fetchErr.Collection
	}
	return "failed to load catalog"
}

func (h *Handler) getCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, http.StatusOK, toCatalogResponse(h.catalog.Snapshot()))
}

// refreshCatalog reloads the catalog and returns the resulting snapshot. A
// failed load is reported through the snapshot state, not the status code.
func (h *Handler) refreshCatalog(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.catalog.Refetch(ctx); err != nil {
		zctx.From(ctx).Warn("Catalog refresh failed", zap.Error(err))
	}
	writeJSON(ctx, w, http.StatusOK, toCatalogResponse(h.catalog.Snapshot()))
}

type productsResponse struct {
	State    string        `json:"state"`
	Products []productJSON `json:"products"`
	Total    int           `json:"total"`
	Offset   int           `json:"offset"`
	Limit    int           `json:"limit,omitempty"`
	// Query is the shareable query string for the active filter.
	Query string `json:"query"`
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, badRequest("%s must be a non-negative integer", name)
	}
	return n, nil
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	limit = min(limit, h.cfg.MaxPageSize)

	// Paging is not part of the shareable query.
	q := r.URL.Query()
	q.Del("offset")
	q.Del("limit")
	view := catalog.NewView(h.catalog, q)
	snap := h.catalog.Snapshot()
	filter := view.Filter()
	categories := categoryNames(snap.Categories)

	resp := productsResponse{
		State:    catalog.Classify(snap, filter).String(),
		Products: []productJSON{},
		Offset:   offset,
		Limit:    limit,
		Query:    view.Query().Encode(),
	}
	visible := catalog.VisibleProducts(snap.Products, filter)
	for range visible {
		resp.Total++
	}
	for p := range catalog.Paginate(visible, offset, limit) {
		resp.Products = append(resp.Products, toProductJSON(p, categories[p.CategoryID]))
	}
	writeJSON(ctx, w, http.StatusOK, resp)
}

func categoryNames(categories []catalog.Category) map[string]string {
	names := make(map[string]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}
	return names
}

func (h *Handler) featuredProducts(w http.ResponseWriter, r *http.Request) {
	featured := h.catalog.Featured()
	out := make([]productJSON, 0, len(featured))
	for _, p := range featured {
		out = append(out, toProductJSON(p, h.catalog.CategoryName(p.CategoryID)))
	}
	writeJSON(r.Context(), w, http.StatusOK, map[string]any{"products": out})
}

type productResponse struct {
	Product productJSON   `json:"product"`
	Related []productJSON `json:"related"`
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, ok := h.catalog.Product(r.PathValue("id"))
	if !ok {
		if h.catalog.State() == catalog.StateFailed {
			writeError(ctx, w, errUnavailable)
			return
		}
		writeError(ctx, w, catalog.ErrNotFound)
		return
	}

	resp := productResponse{
		Product: toProductJSON(p, h.catalog.CategoryName(p.CategoryID)),
		Related: []productJSON{},
	}
	for _, rel := range h.catalog.Related(p, h.cfg.RelatedLimit) {
		resp.Related = append(resp.Related, toProductJSON(rel, h.catalog.CategoryName(rel.CategoryID)))
	}
	writeJSON(ctx, w, http.StatusOK, resp)
}
