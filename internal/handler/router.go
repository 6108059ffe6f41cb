package handler

import (
	"net/http"
	"time"

	"coffeeshop-be/internal/category"
	"coffeeshop-be/internal/health"
	"coffeeshop-be/internal/logger"
	"coffeeshop-be/internal/middleware"
	"coffeeshop-be/internal/order"
	"coffeeshop-be/internal/product"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const defaultRequestTimeout = 30 * time.Second

type Deps struct {
	Categories category.Service
	Products   product.Service
	Orders     order.Service

	Health  *health.Handler
	Auth    *middleware.Auth
	Limiter *middleware.RateLimiter

	// Metrics serves /metrics; promhttp.Handler() when nil.
	Metrics http.Handler

	AllowedOrigins []string
	RequestTimeout time.Duration
}

func NewRouter(d Deps) http.Handler {
	if d.Metrics == nil {
		d.Metrics = promhttp.Handler()
	}
	if d.Health == nil {
		d.Health = health.NewHandler("")
	}
	if d.Auth == nil {
		d.Auth = middleware.NewAuth("")
	}
	if d.RequestTimeout <= 0 {
		d.RequestTimeout = defaultRequestTimeout
	}
	origins := d.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	categories := NewCategoryHandler(d.Categories)
	products := NewProductHandler(d.Products)
	orders := NewOrderHandler(d.Orders)

	r := chi.NewRouter()

	r.Use(logger.RequestIDMiddleware)
	r.Use(chimiddleware.RealIP)
	r.Use(logger.LoggingMiddleware)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", IdempotencyKeyHeader, logger.RequestIDHeader, "X-Device-ID"},
		ExposedHeaders:   []string{logger.RequestIDHeader, ReplayedHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health/live", health.LivenessHandler)
	r.Get("/health/ready", d.Health.ReadinessHandler)
	r.Method(http.MethodGet, "/metrics", d.Metrics)

	r.Route("/api", func(r chi.Router) {
		r.Use(chimiddleware.Timeout(d.RequestTimeout))
		r.Use(d.Auth.Middleware)
		if d.Limiter != nil {
			r.Use(d.Limiter.Middleware)
		}

		r.Method(http.MethodGet, "/health", d.Health)

		r.Get("/categories", categories.List)
		r.Get("/categories/{categoryId}", categories.Get)

		r.Get("/products", products.List)
		r.Get("/products/featured", products.Featured)
		r.Get("/products/category/{categoryId}", products.ByCategory)
		r.Get("/products/{productId}", products.Get)

		r.Post("/orders", orders.Place)
		r.Get("/orders", orders.List)
		r.Get("/orders/{orderId}", orders.Get)
		r.With(middleware.RequireRole(middleware.RoleStaff)).
			Patch("/orders/{orderId}/status", orders.UpdateStatus)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "Route not found", nil)
	})

	return r
}
