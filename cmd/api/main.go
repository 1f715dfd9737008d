package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/rentiva/rentiva-backend/api/routes"
	"github.com/rentiva/rentiva-backend/internal/audit"
	"github.com/rentiva/rentiva-backend/internal/auth"
	"github.com/rentiva/rentiva-backend/internal/cart"
	"github.com/rentiva/rentiva-backend/internal/fulfillment"
	"github.com/rentiva/rentiva-backend/internal/orders"
	"github.com/rentiva/rentiva-backend/internal/products"
	"github.com/rentiva/rentiva-backend/internal/quotations"
	"github.com/rentiva/rentiva-backend/internal/settings"
	"github.com/rentiva/rentiva-backend/internal/users"
	"github.com/rentiva/rentiva-backend/pkg/auth/session"
	"github.com/rentiva/rentiva-backend/pkg/config"
	"github.com/rentiva/rentiva-backend/pkg/db"
	"github.com/rentiva/rentiva-backend/pkg/logger"
	"github.com/rentiva/rentiva-backend/pkg/migrate"
	"github.com/rentiva/rentiva-backend/pkg/outbox"
	"github.com/rentiva/rentiva-backend/pkg/redis"
)

const shutdownGrace = 15 * time.Second

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

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	svcs, err := buildServices(cfg, logg, dbClient, redisClient, sessionManager)
	if err != nil {
		logg.Error(context.Background(), "failed to build services", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	handler := routes.NewRouter(cfg, logg, redisClient, sessionManager, registry, svcs)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		logg.Info(ctx, "shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	closeErr := multierr.Combine(
		server.Shutdown(shutdownCtx),
		redisClient.Close(),
		dbClient.Close(),
	)
	if closeErr != nil {
		logg.Error(ctx, "errors during shutdown", closeErr)
		os.Exit(1)
	}

	logg.Info(ctx, "api server shut down gracefully")
}

func buildServices(
	cfg *config.Config,
	logg *logger.Logger,
	dbClient *db.Client,
	redisClient *redis.Client,
	sessionManager *session.Manager,
) (routes.Services, error) {
	gormDB := dbClient.DB()

	userRepo := users.NewRepository(gormDB)
	productRepo := products.NewRepository(gormDB)
	quotationRepo := quotations.NewRepository(gormDB)
	orderRepo := orders.NewRepository(gormDB)
	rentalRepo := fulfillment.NewRepository(gormDB)
	settingRepo := settings.NewRepository(gormDB)
	auditRepo := audit.NewRepository(gormDB)
	outboxSvc := outbox.NewService(outbox.NewRepository(gormDB), logg)

	authSvc, err := auth.NewService(userRepo, dbClient, sessionManager, redisClient, cfg.JWT, cfg.Password, cfg.AuthRateLimit, logg)
	if err != nil {
		return routes.Services{}, err
	}

	settingSvc, err := settings.NewService(settingRepo, redisClient, cfg.Rental, logg)
	if err != nil {
		return routes.Services{}, err
	}

	productSvc, err := products.NewService(productRepo, logg)
	if err != nil {
		return routes.Services{}, err
	}

	quotationSvc, err := quotations.NewService(quotationRepo, productRepo, dbClient, outboxSvc, settingSvc, logg)
	if err != nil {
		return routes.Services{}, err
	}

	cartStore, err := cart.NewRedisStore(redisClient, cfg.Cart.SnapshotTTL())
	if err != nil {
		return routes.Services{}, err
	}
	cartSvc, err := cart.NewService(cartStore, productRepo, quotationSvc, logg)
	if err != nil {
		return routes.Services{}, err
	}

	inventory := func(tx *gorm.DB) orders.Inventory {
		return productRepo.WithTx(tx)
	}
	orderSvc, err := orders.NewService(orderRepo, quotationRepo, inventory, dbClient, outboxSvc, logg)
	if err != nil {
		return routes.Services{}, err
	}

	fulfillmentSvc, err := fulfillment.NewService(rentalRepo, orderRepo, productRepo, settingSvc, dbClient, outboxSvc, logg)
	if err != nil {
		return routes.Services{}, err
	}

	auditSvc, err := audit.NewService(auditRepo, logg)
	if err != nil {
		return routes.Services{}, err
	}

	return routes.Services{
		Auth:        authSvc,
		Products:    productSvc,
		Cart:        cartSvc,
		Quotations:  quotationSvc,
		Orders:      orderSvc,
		Fulfillment: fulfillmentSvc,
		Settings:    settingSvc,
		Audit:       auditSvc,
	}, nil
}
