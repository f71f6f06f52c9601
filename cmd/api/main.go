package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kofiasante/kasuwa-backend/api/routes"
	authsvc "github.com/kofiasante/kasuwa-backend/internal/auth"
	cartsvc "github.com/kofiasante/kasuwa-backend/internal/cart"
	checkoutsvc "github.com/kofiasante/kasuwa-backend/internal/checkout"
	"github.com/kofiasante/kasuwa-backend/internal/escrow"
	ordersvc "github.com/kofiasante/kasuwa-backend/internal/orders"
	paymentsvc "github.com/kofiasante/kasuwa-backend/internal/payments"
	productsvc "github.com/kofiasante/kasuwa-backend/internal/products"
	"github.com/kofiasante/kasuwa-backend/pkg/config"
	"github.com/kofiasante/kasuwa-backend/pkg/db"
	"github.com/kofiasante/kasuwa-backend/pkg/env"
	"github.com/kofiasante/kasuwa-backend/pkg/logger"
	"github.com/kofiasante/kasuwa-backend/pkg/metrics"
	"github.com/kofiasante/kasuwa-backend/pkg/migrate"
	"github.com/kofiasante/kasuwa-backend/pkg/outbox"
	"github.com/kofiasante/kasuwa-backend/pkg/paystack"
	"github.com/kofiasante/kasuwa-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	orderMetrics := metrics.NewOrderMetrics(registry)

	outboxSvc := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)
	ledger := escrow.NewLedger()
	reserver := checkoutsvc.NewReserver()

	authService, err := authsvc.NewService(
		authsvc.NewRepository(dbClient.DB()),
		redisClient,
		cfg.JWT,
		cfg.Password,
		cfg.AuthRateLimit,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	productRepo := productsvc.NewRepository(dbClient.DB())
	productService, err := productsvc.NewService(productRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create product service", err)
		os.Exit(1)
	}

	cartRepo := cartsvc.NewRepository(dbClient.DB())
	cartService, err := cartsvc.NewService(cartRepo, productRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	ordersRepo := ordersvc.NewRepository(dbClient.DB())
	ordersService, err := ordersvc.NewService(ordersRepo, dbClient, ledger, reserver, outboxSvc, orderMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	checkoutService, err := checkoutsvc.NewService(
		dbClient,
		cartRepo,
		ordersRepo,
		productRepo,
		reserver,
		outboxSvc,
		orderMetrics,
		cfg.Orders,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	paystackClient, err := paystack.NewClient(cfg.Paystack, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create paystack client", err)
		os.Exit(1)
	}

	paymentsService, err := paymentsvc.NewService(
		paymentsvc.NewRepository(dbClient.DB()),
		ordersRepo,
		ordersService,
		paystackClient,
		dbClient,
		redisClient,
		outboxSvc,
		orderMetrics,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create payments service", err)
		os.Exit(1)
	}

	handler := routes.NewRouter(routes.RouterParams{
		Config:       cfg,
		Logger:       logg,
		DB:           dbClient,
		Redis:        redisClient,
		PromGatherer: registry,
		Auth:         authService,
		Products:     productService,
		Cart:         cartService,
		Checkout:     checkoutService,
		Orders:       ordersService,
		Payments:     paymentsService,
	})

	addr := ":" + env.Get("PORT", cfg.App.Port)
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-shutdown
		logg.Info(ctx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
