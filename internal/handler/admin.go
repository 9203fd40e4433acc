package handler

import (
	"context"
	"net/http"

	"github.com/go-faster/errors"

	"github.com/xenking/storefront/internal/domain/admin"
	"github.com/xenking/storefront/internal/domain/catalog"
)

func (h *Handler) registerAdmin(mux *http.ServeMux) {
	handle := func(pattern string, fn http.HandlerFunc) {
		mux.HandleFunc(pattern, h.requireAdmin(fn))
	}

	handle("POST /api/admin/login", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	handle("GET /api/admin/stats", h.adminStats)
	handle("GET /api/admin/orders", h.adminOrders)

	handle("POST /api/admin/products", createHandler(productJSON.domain, h.admin.CreateProduct, productOut(h)))
	handle("PUT /api/admin/products/{id}", updateHandler(productJSON.domain, setProductID, h.admin.UpdateProduct, productOut(h)))
	handle("DELETE /api/admin/products/{id}", h.deleteHandler(h.admin.DeleteProduct))

	handle("POST /api/admin/categories", createHandler(categoryJSON.domain, h.admin.CreateCategory, toCategoryJSON))
	handle("PUT /api/admin/categories/{id}", updateHandler(categoryJSON.domain, setCategoryID, h.admin.UpdateCategory, toCategoryJSON))
	handle("DELETE /api/admin/categories/{id}", h.deleteHandler(h.admin.DeleteCategory))

	handle("GET /api/admin/sliders", listHandler("sliders", h.admin.Sliders, toSliderJSON))
	handle("POST /api/admin/sliders", createHandler(sliderJSON.domain, h.admin.CreateSlider, toSliderJSON))
	handle("PUT /api/admin/sliders/{id}", updateHandler(sliderJSON.domain, setSliderID, h.admin.UpdateSlider, toSliderJSON))
	handle("DELETE /api/admin/sliders/{id}", h.deleteHandler(h.admin.DeleteSlider))

	handle("POST /api/admin/articles", createHandler(articleJSON.domain, h.admin.CreateArticle, toArticleJSON))
	handle("PUT /api/admin/articles/{id}", updateHandler(articleJSON.domain, setArticleID, h.admin.UpdateArticle, toArticleJSON))
	handle("DELETE /api/admin/articles/{id}", h.deleteHandler(h.admin.DeleteArticle))

	handle("GET /api/admin/faqs", listHandler("faqs", h.admin.FAQs, toFAQJSON))
	handle("POST /api/admin/faqs", createHandler(faqJSON.domain, h.admin.CreateFAQ, toFAQJSON))
	handle("PUT /api/admin/faqs/{id}", updateHandler(faqJSON.domain, setFAQID, h.admin.UpdateFAQ, toFAQJSON))
	handle("DELETE /api/admin/faqs/{id}", h.deleteHandler(h.admin.DeleteFAQ))

	handle("PUT /api/admin/settings", h.updateSettings)
	handle("POST /api/admin/uploads", h.upload)
}

func productOut(h *Handler) func(catalog.Product) productJSON {
	return func(p catalog.Product) productJSON {
		return toProductJSON(p, h.catalog.CategoryName(p.CategoryID))
	}
}

func setProductID(p *catalog.Product, id string)   { p.ID = id }
func setCategoryID(c *catalog.Category, id string) { c.ID = id }
func setSliderID(s *catalog.Slider, id string)     { s.ID = id }
func setArticleID(a *catalog.Article, id string)   { a.ID = id }
func setFAQID(f *catalog.FAQ, id string)           { f.ID = id }

// createHandler decodes a J body, converts it to a record, writes it and
// responds 201 with the stored record.
func createHandler[J, T, R any](
	toDomain func(J) T,
	create func(context.Context, *T) error,
	out func(T) R,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var body J
		if err := decodeJSON(w, r, &body); err != nil {
			writeError(ctx, w, err)
			return
		}
		v := toDomain(body)
		if err := create(ctx, &v); err != nil {
			writeError(ctx, w, err)
			return
		}
		writeJSON(ctx, w, http.StatusCreated, out(v))
	}
}

// updateHandler replaces the record named by the {id} path value.
func updateHandler[J, T, R any](
	toDomain func(J) T,
	setID func(*T, string),
	update func(context.Context, *T) error,
	out func(T) R,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var body J
		if err := decodeJSON(w, r, &body); err != nil {
			writeError(ctx, w, err)
			return
		}
		v := toDomain(body)
		setID(&v, r.PathValue("id"))
		if err := update(ctx, &v); err != nil {
			writeError(ctx, w, err)
			return
		}
		writeJSON(ctx, w, http.StatusOK, out(v))
	}
}

func (h *Handler) deleteHandler(remove func(context.Context, string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := remove(r.Context(), r.PathValue("id")); err != nil {
			writeError(r.Context(), w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func listHandler[T, R any](key string, list func(context.Context) ([]T, error), out func(T) R) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		items, err := list(ctx)
		if err != nil {
			writeError(ctx, w, err)
			return
		}
		writeJSON(ctx, w, http.StatusOK, map[string]any{key: mapSlice(items, out)})
	}
}

func (h *Handler) adminStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, http.StatusOK, admin.ComputeStats(h.catalog.Snapshot().Products))
}

func (h *Handler) updateSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var body settingsJSON
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(ctx, w, err)
		return
	}
	st := body.domain()
	if err := h.admin.UpdateSettings(ctx, &st); err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, toSettingsJSON(st))
}

// upload stores the multipart "file" field and returns its public URL.
func (h *Handler) upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadSize)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(ctx, w, err)
			return
		}
		writeError(ctx, w, badRequest("multipart field \"file\" is required"))
		return
	}
	defer func() { _ = file.Close() }()

	url, err := h.admin.Upload(ctx, header.Filename, file)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusCreated, map[string]string{"url": url})
}
