package http

import (
	"net/http"

	"github.com/isokoinfo/marketplace/internal/service"
	"github.com/isokoinfo/marketplace/internal/view"
)

// Settings handles GET /settings
func (h *Handler) Settings(w http.ResponseWriter, r *http.Request) {
	account, err := h.accounts.GetAccount(r.Context(), session(r).UserID)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, view.PageSettings, "Account", account)
}

// DeleteAccount handles POST /settings
func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	if err := h.accounts.DeleteAccount(r.Context(), session(r)); err != nil {
		h.fail(w, r, err, "/settings")
		return
	}
	h.clearSessionCookie(w)
	h.redirect(w, r, "/", view.FlashSuccess, "Your account has been deleted.")
}

// UpdateSettingsPage handles GET /update_settings
func (h *Handler) UpdateSettingsPage(w http.ResponseWriter, r *http.Request) {
	account, err := h.accounts.GetAccount(r.Context(), session(r).UserID)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	markets, err := h.catalog.ListMarkets(r.Context())
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, view.PageUpdateSettings, "Edit settings",
		view.SettingsForm{Account: account, Markets: markets})
}

// UpdateSettings handles POST /update_settings
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.redirect(w, r, "/update_settings", view.FlashError, "Invalid form submission.")
		return
	}

	res, err := h.accounts.UpdateSettings(r.Context(), session(r), service.UpdateSettingsInput{
		Name:            r.PostForm.Get("names"),
		Password:        r.PostForm.Get("password"),
		ConfirmPassword: r.PostForm.Get("confpass"),
		MarketID:        r.PostForm.Get("market_id"),
	})
	if err != nil {
		h.fail(w, r, err, "/update_settings")
		return
	}

	h.setSessionCookie(w, res.Token, res.Session.ExpiresAt)
	h.redirect(w, r, "/settings", view.FlashSuccess, "Settings updated!")
}
