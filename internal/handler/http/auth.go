package http

import (
	"net/http"

	"github.com/isokoinfo/marketplace/internal/auth"
	"github.com/isokoinfo/marketplace/internal/service"
	"github.com/isokoinfo/marketplace/internal/view"
)

// Index handles GET /
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, view.PageIndex, "", nil)
}

// LoginPage handles GET /login
func (h *Handler) LoginPage(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.SessionFromContext(r.Context()); ok {
		h.redirect(w, r, "/dashboard", view.FlashInfo, "You are already logged in.")
		return
	}
	h.render(w, r, http.StatusOK, view.PageLogin, "Login", nil)
}

// Login handles POST /login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.redirect(w, r, "/login", view.FlashError, "Invalid form submission.")
		return
	}

	res, err := h.accounts.Login(r.Context(), r.PostForm.Get("names"), r.PostForm.Get("password"))
	if err != nil {
		h.fail(w, r, err, "/login")
		return
	}

	h.setSessionCookie(w, res.Token, res.Session.ExpiresAt)
	h.redirect(w, r, "/dashboard", view.FlashSuccess, "Login successful!")
}

// Logout handles GET /logout. Logging out without a session is a no-op.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if sess, ok := auth.SessionFromContext(r.Context()); ok {
		h.accounts.Logout(r.Context(), sess)
	}
	h.clearSessionCookie(w)
	h.redirect(w, r, "/login", view.FlashSuccess, "Logged Out")
}

// RegisterPage handles GET /register
func (h *Handler) RegisterPage(w http.ResponseWriter, r *http.Request) {
	markets, err := h.catalog.ListMarkets(r.Context())
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, view.PageRegister, "Register", markets)
}

// Register handles POST /register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.redirect(w, r, "/register", view.FlashError, "Invalid form submission.")
		return
	}

	_, err := h.accounts.Register(r.Context(), service.RegisterInput{
		Name:            r.PostForm.Get("names"),
		Password:        r.PostForm.Get("password"),
		ConfirmPassword: r.PostForm.Get("confpass"),
		Tel:             r.PostForm.Get("tel"),
		MarketID:        r.PostForm.Get("market_id"),
	})
	if err != nil {
		h.fail(w, r, err, "/register")
		return
	}

	h.redirect(w, r, "/login", view.FlashSuccess, "You are registered!")
}
