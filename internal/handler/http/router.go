package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/isokoinfo/marketplace/pkg/health"
	"github.com/isokoinfo/marketplace/pkg/middleware"
)

// ServiceName labels HTTP metrics and traces.
const ServiceName = "marketplace"

// NewRouter creates a chi router with every marketplace route registered.
func NewRouter(h *Handler, healthHandler *health.Handler, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.Tracing())
	r.Use(middleware.PrometheusMetrics(ServiceName))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.CacheControl("no-store"))
		r.Use(h.LoadSession)

		// Public pages
		r.Get("/", h.Index)
		r.Get("/login", h.LoginPage)
		r.Post("/login", h.Login)
		r.Get("/register", h.RegisterPage)
		r.Post("/register", h.Register)
		r.Get("/logout", h.Logout)
		r.Get("/products", h.Products)
		r.Get("/product/{id}", h.ProductDetail)
		r.Get("/review/{product_id}", h.ReviewPage)
		r.Post("/submitrev/{product_id}", h.SubmitReview)

		// Seller pages
		r.Group(func(r chi.Router) {
			r.Use(h.RequireSession)

			r.Get("/dashboard", h.Dashboard)
			r.Get("/addproduct", h.AddProductPage)
			r.Post("/addproduct", h.AddProduct)
			r.Get("/update/{id}", h.UpdateProductPage)
			r.Post("/update/{id}", h.UpdateProduct)
			r.Post("/delete/{id}", h.DeleteProduct)
			r.Get("/ufeed", h.UserFeedback)
			r.Get("/settings", h.Settings)
			r.Post("/settings", h.DeleteAccount)
			r.Get("/update_settings", h.UpdateSettingsPage)
			r.Post("/update_settings", h.UpdateSettings)
		})

		// Market admin
		r.Group(func(r chi.Router) {
			r.Use(h.AdminAuth)

			r.Get("/idkbruh", h.AdminPage)
			r.Post("/idkbruh", h.CreateMarket)
		})

		r.NotFound(h.NotFound)
	})

	return r
}
