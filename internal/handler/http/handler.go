package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/isokoinfo/marketplace/internal/auth"
	"github.com/isokoinfo/marketplace/internal/domain"
	"github.com/isokoinfo/marketplace/internal/service"
	"github.com/isokoinfo/marketplace/internal/view"
	apperrors "github.com/isokoinfo/marketplace/pkg/errors"
)

// AccountService is the account surface the handlers use.
type AccountService interface {
	Register(ctx context.Context, in service.RegisterInput) (*domain.User, error)
	Login(ctx context.Context, name, password string) (*service.LoginResult, error)
	Logout(ctx context.Context, sess *auth.Session)
	Authenticate(ctx context.Context, token string) (*auth.Session, *domain.User, error)
	GetAccount(ctx context.Context, userID int64) (*domain.Account, error)
	UpdateSettings(ctx context.Context, sess *auth.Session, in service.UpdateSettingsInput) (*service.LoginResult, error)
	DeleteAccount(ctx context.Context, sess *auth.Session) error
}

// CatalogService is the product and market surface the handlers use.
type CatalogService interface {
	AddProduct(ctx context.Context, ownerID int64, in service.ProductInput) (*domain.Product, error)
	GetOwnedProduct(ctx context.Context, requesterID, productID int64) (*domain.Product, error)
	UpdateProduct(ctx context.Context, requesterID, productID int64, in service.ProductInput) (*domain.Product, error)
	DeleteProduct(ctx context.Context, requesterID, productID int64) error
	ListProducts(ctx context.Context, filter domain.ProductFilter) (*domain.Catalog, error)
	GetProduct(ctx context.Context, productID int64) (*domain.Product, error)
	GetProductDetail(ctx context.Context, productID int64) (*domain.ProductDetail, error)
	ListSellerProducts(ctx context.Context, userID int64) ([]domain.Product, error)
	ListMarkets(ctx context.Context) ([]domain.Market, error)
	CreateMarket(ctx context.Context, name string) (*domain.Market, error)
}

// ReviewService is the review-code surface the handlers use.
type ReviewService interface {
	Redeem(ctx context.Context, in service.RedeemInput) (*domain.Review, error)
	SellerFeed(ctx context.Context, userID int64) (*domain.SellerFeed, error)
}

// Config holds handler settings.
type Config struct {
	CookieSecure   bool
	MaxUploadBytes int64
	AdminUser      string
	AdminPassword  string
	// FlashSecret signs the flash cookie.
	FlashSecret []byte
}

// Handler serves the marketplace pages.
type Handler struct {
	accounts AccountService
	catalog  CatalogService
	reviews  ReviewService
	views    view.Renderer
	cfg      Config
	logger   *slog.Logger
}

// NewHandler creates a new page handler.
func NewHandler(
	accounts AccountService,
	catalog CatalogService,
	reviews ReviewService,
	views view.Renderer,
	cfg Config,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		accounts: accounts,
		catalog:  catalog,
		reviews:  reviews,
		views:    views,
		cfg:      cfg,
		logger:   logger,
	}
}

// render writes a page with the pending flash and the current viewer.
func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, name, title string, data any) {
	page := view.Page{
		Title: title,
		Flash: h.popFlash(w, r),
		Data:  data,
	}
	if sess, ok := auth.SessionFromContext(r.Context()); ok {
		page.Viewer = &view.Viewer{ID: sess.UserID, Name: sess.Name}
	}

	if err := h.views.Render(w, status, name, page); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to render page",
			slog.String("page", name),
			slog.String("error", err.Error()),
		)
		http.Error(w, apperrors.GenericMessage, http.StatusInternalServerError)
	}
}

// redirect flashes message and sends the browser to target.
func (h *Handler) redirect(w http.ResponseWriter, r *http.Request, target, category, message string) {
	if message != "" {
		h.flash(w, category, message)
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// fail reports err from a form submission. Client errors flash their
// message and redirect to back; missing resources render the not-found
// page; everything else is logged and flashed as the generic message.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, back string) {
	status := apperrors.HTTPStatus(err)
	switch {
	case status == http.StatusNotFound:
		h.renderNotFound(w, r)
		return
	case status >= http.StatusInternalServerError:
		h.logger.ErrorContext(r.Context(), "request failed",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	default:
		h.logger.InfoContext(r.Context(), "request rejected",
			slog.String("path", r.URL.Path),
			slog.Int("status", status),
			slog.String("error", err.Error()),
		)
	}
	h.redirect(w, r, back, view.FlashError, apperrors.PublicMessage(err))
}

// renderError answers a failed page load.
func (h *Handler) renderError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, apperrors.ErrNotFound) {
		h.renderNotFound(w, r)
		return
	}
	h.logger.ErrorContext(r.Context(), "page load failed",
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
	h.render(w, r, http.StatusInternalServerError, view.PageError, "Error", nil)
}

func (h *Handler) renderNotFound(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusNotFound, view.PageNotFound, "Not found", nil)
}

// NotFound serves unmatched routes.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.renderNotFound(w, r)
}

// pathID parses a positive integer URL parameter.
func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
