package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/brewloop/subswap-backend/internal/notifier"
	"github.com/brewloop/subswap-backend/internal/orderedit"
	"github.com/brewloop/subswap-backend/internal/orders"
	product "github.com/brewloop/subswap-backend/internal/products"
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
	logg := logger.New(logger.Options{ServiceName: "worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "worker",
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

	catalog, err := product.NewService(shopifyClient, cfg.Shopify, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create product service", err)
		os.Exit(1)
	}

	editor, err := orderedit.NewEditor(shopifyClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create order editor", err)
		os.Exit(1)
	}

	orderService, err := orders.NewService(orders.ServiceParams{
		Logger:  logg,
		Audit:   orders.NewRepository(dbClient.DB()),
		Catalog: catalog,
		Matcher: product.NewHeuristicMatcher(),
		Editor:  editor,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create order service", err)
		os.Exit(1)
	}

	batchStore, err := notifier.NewRedisBatchStore(redisClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create batch store", err)
		os.Exit(1)
	}

	var mailer notifier.Mailer
	if cfg.Notifier.ResendAPIKey != "" && cfg.Notifier.ToEmail != "" {
		mailer, err = notifier.NewResendMailer(cfg.Notifier)
		if err != nil {
			logg.Error(context.Background(), "failed to create mailer", err)
			os.Exit(1)
		}
	} else {
		logg.Warn(context.Background(), "resend credentials not set, notifications go to the log")
		mailer = notifier.NewLogMailer(logg)
	}

	notifierService, err := notifier.NewService(notifier.ServiceParams{
		Logger: logg,
		Store:  batchStore,
		Mailer: mailer,
		Config: cfg.Notifier,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create notifier", err)
		os.Exit(1)
	}

	service, err := NewService(ServiceParams{
		Config:   cfg,
		Logger:   logg,
		Queue:    jobQueue,
		Orders:   orderService,
		Notifier: notifierService,
		Metrics:  metrics.NewJobMetrics(prometheus.DefaultRegisterer),
		DB:       dbClient,
		Redis:    redisClient,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create worker service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":   cfg.App.Env,
		"queue": cfg.Queue.Name,
	})
	logg.Info(ctx, "starting order worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "order worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "order worker shutting down gracefully")
}
