package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"coffeeshop-be/internal/category"
	"coffeeshop-be/internal/config"
	"coffeeshop-be/internal/db"
	"coffeeshop-be/internal/handler"
	"coffeeshop-be/internal/health"
	"coffeeshop-be/internal/logger"
	"coffeeshop-be/internal/metrics"
	"coffeeshop-be/internal/middleware"
	"coffeeshop-be/internal/order"
	"coffeeshop-be/internal/product"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	limiterSweepInterval = time.Minute
	limiterVisitorTTL    = 3 * time.Minute
)

// set with -ldflags "-X main.version=..."
var version = "dev"

var (
	initDBFunc      = db.InitDB
	startServerFunc = func(srv *http.Server) error { return srv.ListenAndServe() }
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	logger.Init(cfg.AppEnv, cfg.LogLevel)
	defer logger.Sync()

	database := initDBFunc(cfg)
	defer database.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	router, limiter := newServer(cfg, database, registry)
	go limiter.Cleanup(ctx, limiterSweepInterval, limiterVisitorTTL)

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.L().Info("coffee shop API listening",
			zap.String("addr", srv.Addr),
			zap.String("env", cfg.AppEnv),
			zap.String("version", version),
		)
		errCh <- startServerFunc(srv)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.L().Info("shutting down", zap.Duration("timeout", cfg.ShutdownTimeout))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

// newServer wires repositories, services and middleware into the HTTP router.
func newServer(cfg *config.Config, database *sql.DB, registry *prometheus.Registry) (http.Handler, *middleware.RateLimiter) {
	orderMetrics := metrics.NewOrderMetrics(registry)

	categoryRepo := category.NewRepository(database, cfg.DBOpTimeout)
	categorySvc := category.NewService(categoryRepo)

	productRepo := product.NewRepository(database, cfg.DBOpTimeout)
	productSvc := product.NewService(productRepo)

	orderRepo := order.NewRepository(database, cfg.DBOpTimeout, order.WithMetrics(orderMetrics))
	orderSvc := order.NewService(orderRepo, productRepo, orderMetrics)

	healthHandler := health.NewHandler(version)
	healthHandler.RegisterChecker("database", health.NewDBChecker(database, cfg.DBOpTimeout))

	limiter := middleware.NewRateLimiter(
		middleware.Tier{Limit: rate.Limit(cfg.RateLimitRPS), Burst: cfg.RateLimitBurst},
		middleware.Tier{Limit: rate.Limit(cfg.OrderRateLimitRPS), Burst: cfg.OrderRateLimitBurst},
	)

	router := handler.NewRouter(handler.Deps{
		Categories:     categorySvc,
		Products:       productSvc,
		Orders:         orderSvc,
		Health:         healthHandler,
		Auth:           middleware.NewAuth(cfg.JWTSecret),
		Limiter:        limiter,
		Metrics:        promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		AllowedOrigins: cfg.CORSAllowedOrigins,
	})

	return router, limiter
}
