package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/lmoreira/funneltrack-backend/internal/cron"
	"github.com/lmoreira/funneltrack-backend/internal/insights"
	"github.com/lmoreira/funneltrack-backend/internal/platforms"
	"github.com/lmoreira/funneltrack-backend/internal/platforms/hotmart"
	"github.com/lmoreira/funneltrack-backend/internal/platforms/kiwify"
	"github.com/lmoreira/funneltrack-backend/internal/platforms/metaads"
	"github.com/lmoreira/funneltrack-backend/internal/projects"
	syncsvc "github.com/lmoreira/funneltrack-backend/internal/sync"
	"github.com/lmoreira/funneltrack-backend/pkg/clock"
	"github.com/lmoreira/funneltrack-backend/pkg/config"
	"github.com/lmoreira/funneltrack-backend/pkg/db"
	"github.com/lmoreira/funneltrack-backend/pkg/logger"
	"github.com/lmoreira/funneltrack-backend/pkg/metrics"
	"github.com/lmoreira/funneltrack-backend/pkg/migrate"
	"github.com/lmoreira/funneltrack-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "sync-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "sync-worker"

	logg = logger.New(logger.Options{
		ServiceName: "sync-worker",
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

	reportingClock, err := clock.New(cfg.Sync.ReportingTimezone)
	if err != nil {
		logg.Error(context.Background(), "failed to load reporting timezone", err)
		os.Exit(1)
	}

	projectsRepo := projects.NewRepository(dbClient.DB())

	insightsRepo := insights.NewRepository(dbClient.DB())
	snapshotCache := insights.NewCache(insightsRepo, reportingClock, cfg.Insights.CacheTTL, cfg.Insights.WriteDebounce, logg)
	insightsService, err := insights.NewService(insights.ServiceParams{
		Repo:     insightsRepo,
		Projects: projectsRepo,
		Cache:    snapshotCache,
		Clock:    reportingClock,
		Logger:   logg,
		Config:   cfg.Insights,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create insights service", err)
		os.Exit(1)
	}

	syncService, err := syncsvc.NewService(syncsvc.ServiceParams{
		Projects: projectsRepo,
		Writer:   syncsvc.NewWriter(dbClient.DB()),
		Planner:  syncsvc.NewPlanner(cfg.Sync, reportingClock),
		Sales: []platforms.SalesSource{
			kiwify.NewClient(cfg.Kiwify),
			hotmart.NewClient(cfg.Hotmart),
		},
		Ads: []platforms.AdsSource{
			metaads.NewClient(cfg.MetaAds),
		},
		Insights: insightsService,
		Guard:    syncsvc.NewRunGuard(redisClient, cfg.Sync.RunMarkerTTL),
		Logger:   logg,
		Metrics:  metrics.NewSyncMetrics(prometheus.DefaultRegisterer),
		Config:   cfg.Sync,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create sync service", err)
		os.Exit(1)
	}

	syncJob, err := cron.NewSyncJob(cron.SyncJobParams{Logger: logg, Sync: syncService})
	if err != nil {
		logg.Error(context.Background(), "failed to create sync job", err)
		os.Exit(1)
	}
	cleanupJob, err := cron.NewSnapshotCleanupJob(cron.SnapshotCleanupJobParams{Logger: logg, Insights: insightsService})
	if err != nil {
		logg.Error(context.Background(), "failed to create snapshot cleanup job", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, lockKey(redisClient, cfg.App.Env), cfg.Sync.WorkerInterval)
	if err != nil {
		logg.Error(context.Background(), "failed to create worker lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(syncJob, cleanupJob),
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Sync.WorkerInterval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create worker service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting sync worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "sync worker stopped unexpectedly", err)
		os.Exit(1)
	}

	snapshotCache.FlushAll()
	logg.Info(ctx, "sync worker shutting down gracefully")
}

func lockKey(client *redis.Client, env string) string {
	if env == "" {
		env = "local"
	}
	return client.LockKey(fmt.Sprintf("sync-worker:%s", env))
}
