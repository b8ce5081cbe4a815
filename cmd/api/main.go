package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/storefront-gateway/api/controllers"
	"github.com/angelmondragon/storefront-gateway/api/routes"
	"github.com/angelmondragon/storefront-gateway/internal/cart"
	"github.com/angelmondragon/storefront-gateway/internal/checkout"
	"github.com/angelmondragon/storefront-gateway/internal/dashboard"
	"github.com/angelmondragon/storefront-gateway/internal/events"
	"github.com/angelmondragon/storefront-gateway/internal/otp"
	"github.com/angelmondragon/storefront-gateway/internal/session"
	"github.com/angelmondragon/storefront-gateway/internal/storage"
	"github.com/angelmondragon/storefront-gateway/internal/wishlist"
	"github.com/angelmondragon/storefront-gateway/pkg/config"
	"github.com/angelmondragon/storefront-gateway/pkg/db"
	"github.com/angelmondragon/storefront-gateway/pkg/env"
	"github.com/angelmondragon/storefront-gateway/pkg/logger"
	"github.com/angelmondragon/storefront-gateway/pkg/metrics"
	"github.com/angelmondragon/storefront-gateway/pkg/migrate"
	"github.com/angelmondragon/storefront-gateway/pkg/pubsub"
	pkgredis "github.com/angelmondragon/storefront-gateway/pkg/redis"
	"github.com/angelmondragon/storefront-gateway/pkg/shopapi"
)

const (
	shutdownTimeout = 15 * time.Second
	purgeInterval   = 10 * time.Minute
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	requireResource(context.Background(), logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       cfg.App.LogLevel,
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	readiness := map[string]controllers.Pinger{}
	var store storage.Store

	switch cfg.State.NormalizedDriver() {
	case config.StateDriverRedis:
		redisClient, err := pkgredis.New(ctx, cfg.Redis, logg)
		requireResource(ctx, logg, "redis", err)
		defer closeResource(logg, "redis", redisClient.Close)
		readiness["state"] = redisClient
		store = storage.NewRedisStore(redisClient)

	case config.StateDriverPostgres, config.StateDriverSQLite:
		dbClient, err := db.New(ctx, cfg.DB, logg)
		requireResource(ctx, logg, "database", err)
		defer closeResource(logg, "database", dbClient.Close)
		requireResource(ctx, logg, "migrations", migrate.MaybeRunAuto(ctx, cfg, logg, dbClient))
		readiness["state"] = dbClient
		sqlStore := storage.NewSQLStore(dbClient)
		go purgeExpired(ctx, logg, sqlStore)
		store = sqlStore

	default:
		logg.Warn(ctx, "state kept in memory; identities and carts are lost on restart")
		store = storage.NewMemoryStore(nil)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	api, err := shopapi.NewClient(
		cfg.Upstream.BaseURL,
		shopapi.WithTimeout(cfg.Upstream.Timeout),
		shopapi.WithObserver(metrics.NewUpstreamMetrics(registry)),
	)
	requireResource(ctx, logg, "storefront api client", err)

	var publisher events.Publisher = events.Noop{}
	if cfg.PubSub.Enabled() {
		psClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
		requireResource(ctx, logg, "pubsub", err)
		defer closeResource(logg, "pubsub", psClient.Close)
		readiness["pubsub"] = psClient
		topicPublisher, err := events.NewTopicPublisher(psClient, logg)
		requireResource(ctx, logg, "checkout publisher", err)
		publisher = topicPublisher
	}

	sessions, err := session.NewService(store, api, logg, session.Options{
		TTL:       cfg.State.IdentityTTL,
		Leeway:    cfg.JWT.ExpiryLeeway,
		AdminRole: cfg.JWT.AdminRole,
	})
	requireResource(ctx, logg, "session service", err)

	otpService, err := otp.NewService(api, sessions, store, nil)
	requireResource(ctx, logg, "otp service", err)

	cartService, err := cart.NewService(api, store, logg, cfg.State.CartTTL)
	requireResource(ctx, logg, "cart service", err)

	wishlistService, err := wishlist.NewService(api, cartService, store, logg, cfg.State.CartTTL)
	requireResource(ctx, logg, "wishlist service", err)

	checkoutRepo, err := checkout.NewRepository(store, cfg.Checkout.SessionTTL)
	requireResource(ctx, logg, "checkout repository", err)

	checkoutService, err := checkout.NewService(
		api,
		cartService,
		checkoutRepo,
		publisher,
		metrics.NewCheckoutMetrics(registry),
		logg,
		checkout.PaymentSettings{
			KeyID:        cfg.Payment.KeyID,
			Currency:     cfg.Payment.Currency,
			MerchantName: cfg.Payment.MerchantName,
		},
	)
	requireResource(ctx, logg, "checkout service", err)

	dashboardService, err := dashboard.NewService(api)
	requireResource(ctx, logg, "dashboard service", err)

	addr := ":" + env.Get("PORT", cfg.App.Port)
	runCtx := logg.WithFields(ctx, map[string]any{
		"env":   cfg.App.Env,
		"addr":  addr,
		"state": cfg.State.NormalizedDriver(),
	})
	logg.Info(runCtx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			store,
			readiness,
			promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
			sessions,
			otpService,
			cartService,
			wishlistService,
			checkoutService,
			dashboardService,
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			logg.Error(runCtx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logg.Info(runCtx, "shutting down api server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logg.Error(runCtx, "graceful shutdown failed", err)
	}
}

func purgeExpired(ctx context.Context, logg *logger.Logger, store *storage.SQLStore) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := store.PurgeExpired(ctx)
			if err != nil {
				logg.Error(ctx, "state purge failed", err)
				continue
			}
			if removed > 0 {
				logg.Debug(logg.WithField(ctx, "removed", removed), "expired state purged")
			}
		}
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}

func closeResource(logg *logger.Logger, resource string, closeFn func() error) {
	if err := closeFn(); err != nil {
		logg.Error(context.Background(), fmt.Sprintf("error closing %s", resource), err)
	}
}
