package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/lmoreira/funneltrack-backend/api/routes"
	"github.com/lmoreira/funneltrack-backend/internal/insights"
	"github.com/lmoreira/funneltrack-backend/internal/ledger"
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

	reportingClock, err := clock.New(cfg.Sync.ReportingTimezone)
	if err != nil {
		logg.Error(context.Background(), "failed to load reporting timezone", err)
		os.Exit(1)
	}

	projectsRepo := projects.NewRepository(dbClient.DB())
	projectsService, err := projects.NewService(projectsRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create projects service", err)
		os.Exit(1)
	}

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

	ledgerService, err := ledger.NewService(ledger.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Params{
			Config:   cfg,
			Logger:   logg,
			DB:       dbClient,
			Redis:    redisClient,
			Projects: projectsService,
			Sync:     syncService,
			Insights: insightsService,
			Ledger:   ledgerService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
