package handler

import (
	"net/http"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/auth"
	"github.com/xenking/storefront/pkg/httpmiddleware"
)

// AdminPasswordHeader carries the admin password.
const AdminPasswordHeader = "X-Admin-Password"

// requireAdmin authenticates admin requests by password. Admin routes answer
// 503 when the admin service is not configured and 401 for a missing or
// wrong password.
func (h *Handler) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if h.admin == nil || h.gate == nil || !h.gate.Enabled() {
			writeError(ctx, w, errUnavailable)
			return
		}
		if err := h.gate.Authenticate(r.Header.Get(AdminPasswordHeader)); err != nil {
			zctx.From(ctx).Info("Admin authentication failed",
				zap.String("client_ip", httpmiddleware.ClientIP(r)),
			)
			writeError(ctx, w, auth.ErrUnauthorized)
			return
		}
		next(w, r)
	}
}
