package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/mercerie-backend/api/routes"
	"github.com/angelmondragon/mercerie-backend/internal/app"
	"github.com/angelmondragon/mercerie-backend/pkg/config"
	"github.com/angelmondragon/mercerie-backend/pkg/db"
	"github.com/angelmondragon/mercerie-backend/pkg/instance"
	"github.com/angelmondragon/mercerie-backend/pkg/lock"
	"github.com/angelmondragon/mercerie-backend/pkg/logger"
	"github.com/angelmondragon/mercerie-backend/pkg/metrics"
	"github.com/angelmondragon/mercerie-backend/pkg/migrate"
	"github.com/angelmondragon/mercerie-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

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

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	deps := routes.Dependencies{
		Config:   cfg,
		Logger:   logg,
		Gatherer: reg,
		DB:       dbClient,
	}

	var locker lock.Locker = lock.NewLocal()
	if cfg.Redis.Enabled() {
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
		redisLock, err := lock.NewRedis(redisClient, instance.GetID())
		if err != nil {
			logg.Error(context.Background(), "failed to create redis locker", err)
			os.Exit(1)
		}
		locker = redisLock
		deps.Redis = redisClient
		deps.RateLimitStore = redisClient
		deps.IdempotencyStore = redisClient
	} else {
		logg.Warn(context.Background(), "redis disabled, using in-process locks without auth rate limits or idempotency replay")
	}

	shop, err := app.New(app.Params{
		DB:      dbClient.DB(),
		Config:  cfg,
		Locker:  locker,
		Metrics: metrics.NewShopMetrics(reg),
		Logger:  logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to wire services", err)
		os.Exit(1)
	}
	if err := shop.SeedPatron(context.Background(), cfg.Patron, logg); err != nil {
		logg.Error(context.Background(), "failed to seed patron", err)
		os.Exit(1)
	}

	deps.Tracker = shop.Tracker
	deps.Events = shop.Hub
	deps.Auth = shop.Auth
	deps.Users = shop.Users
	deps.Products = shop.Products
	deps.Orders = shop.Orders
	deps.Cart = shop.Cart

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
		// event streams end when the process is asked to stop
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "api server shut down gracefully")
}
