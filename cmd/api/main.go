package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/brewloop/subswap-backend/api/controllers"
	"github.com/brewloop/subswap-backend/api/routes"
	webhook "github.com/brewloop/subswap-backend/internal/webhooks"
	"github.com/brewloop/subswap-backend/pkg/config"
	"github.com/brewloop/subswap-backend/pkg/db"
	"github.com/brewloop/subswap-backend/pkg/logger"
	"github.com/brewloop/subswap-backend/pkg/metrics"
	"github.com/brewloop/subswap-backend/pkg/migrate"
	"github.com/brewloop/subswap-backend/pkg/queue"
	"github.com/brewloop/subswap-backend/pkg/redis"
	"github.com/brewloop/subswap-backend/pkg/shopify"
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

	shopifyClient, err := shopify.NewClient(cfg.Shopify, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create shopify client", err)
		os.Exit(1)
	}

	jobQueue, err := queue.New(queue.Params{
		Store:  redisClient,
		Logger: logg,
		Config: cfg.Queue,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create job queue", err)
		os.Exit(1)
	}

	deduplicator, err := webhook.NewRedisDeduplicator(redisClient, cfg.Dedupe, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook deduplicator", err)
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
		Handler: routes.NewRouter(routes.RouterParams{
			Config:         cfg,
			Logger:         logg,
			Queue:          jobQueue,
			Deduplicator:   deduplicator,
			Shopify:        shopifyClient,
			WebhookMetrics: metrics.NewWebhookMetrics(prometheus.DefaultRegisterer),
			HealthDeps: map[string]controllers.Pinger{
				"database": dbClient,
				"redis":    redisClient,
			},
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
