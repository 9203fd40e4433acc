package handler

import (
	"net/http"

	"github.com/go-faster/errors"
)

func (h *Handler) listArticles(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.content == nil {
		writeError(ctx, w, errUnavailable)
		return
	}
	articles, err := h.content.Articles(ctx)
	if err != nil {
		writeError(ctx, w, errors.Wrap(err, "list articles"))
		return
	}
	writeJSON(ctx, w, http.StatusOK, map[string]any{"articles": mapSlice(articles, toArticleJSON)})
}

func (h *Handler) getArticle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.content == nil {
		writeError(ctx, w, errUnavailable)
		return
	}
	a, err := h.content.ArticleBySlug(ctx, r.PathValue("slug"))
	if err != nil {
		writeError(ctx, w, errors.Wrap(err, "get article"))
		return
	}
	writeJSON(ctx, w, http.StatusOK, toArticleJSON(*a))
}

// listFAQs returns active FAQs. A failed read is a 503 so clients can tell
// it apart from an empty list.
func (h *Handler) listFAQs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.content == nil {
		writeError(ctx, w, errUnavailable)
		return
	}
	faqs, err := h.content.FAQs(ctx)
	if err != nil {
		writeError(ctx, w, errors.Wrapf(errUnavailable, "list faqs: %v", err))
		return
	}
	writeJSON(ctx, w, http.StatusOK, map[string]any{"faqs": mapSlice(faqs, toFAQJSON)})
}
