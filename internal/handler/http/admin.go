package http

import (
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/isokoinfo/marketplace/internal/view"
)

const adminRealm = "isokoinfo admin"

// AdminAuth guards the market admin page with HTTP Basic auth. With no
// admin password configured the page does not exist.
func (h *Handler) AdminAuth(next http.Handler) http.Handler {
	if h.cfg.AdminPassword == "" {
		return http.HandlerFunc(h.NotFound)
	}
	return chimw.BasicAuth(adminRealm, map[string]string{
		h.cfg.AdminUser: h.cfg.AdminPassword,
	})(next)
}

// AdminPage handles GET /idkbruh
func (h *Handler) AdminPage(w http.ResponseWriter, r *http.Request) {
	markets, err := h.catalog.ListMarkets(r.Context())
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, view.PageAdmin, "Markets", markets)
}

// CreateMarket handles POST /idkbruh
func (h *Handler) CreateMarket(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.redirect(w, r, "/idkbruh", view.FlashError, "Invalid form submission.")
		return
	}

	if _, err := h.catalog.CreateMarket(r.Context(), r.PostForm.Get("location")); err != nil {
		h.fail(w, r, err, "/idkbruh")
		return
	}
	h.redirect(w, r, "/idkbruh", view.FlashSuccess, "Adding it worked!")
}
