package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/mercerie-backend/internal/app"
	"github.com/angelmondragon/mercerie-backend/internal/cron"
	"github.com/angelmondragon/mercerie-backend/pkg/config"
	"github.com/angelmondragon/mercerie-backend/pkg/db"
	"github.com/angelmondragon/mercerie-backend/pkg/instance"
	"github.com/angelmondragon/mercerie-backend/pkg/lock"
	"github.com/angelmondragon/mercerie-backend/pkg/logger"
	"github.com/angelmondragon/mercerie-backend/pkg/metrics"
	"github.com/angelmondragon/mercerie-backend/pkg/migrate"
	"github.com/angelmondragon/mercerie-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
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
	}

	shopMetrics := metrics.NewShopMetrics(prometheus.DefaultRegisterer)
	shop, err := app.New(app.Params{
		DB:      dbClient.DB(),
		Config:  cfg,
		Locker:  locker,
		Metrics: shopMetrics,
		Logger:  logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to wire services", err)
		os.Exit(1)
	}

	workloadJob, err := cron.NewWorkloadSnapshotJob(logg, shop.Orders)
	if err != nil {
		logg.Error(context.Background(), "failed to create workload job", err)
		os.Exit(1)
	}
	lowStockJob, err := cron.NewLowStockReportJob(logg, shop.ProductRepo, shopMetrics, cfg.Cron.LowStockThreshold)
	if err != nil {
		logg.Error(context.Background(), "failed to create low stock job", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(workloadJob, lowStockJob),
		Locker:   locker,
		LockTTL:  cfg.Cron.LockTTL,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"instance": instance.GetID(),
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}
