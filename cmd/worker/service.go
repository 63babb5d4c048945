package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"

	"github.com/brewloop/subswap-backend/internal/orders"
	"github.com/brewloop/subswap-backend/pkg/config"
	pkgerrors "github.com/brewloop/subswap-backend/pkg/errors"
	"github.com/brewloop/subswap-backend/pkg/logger"
	"github.com/brewloop/subswap-backend/pkg/metrics"
	"github.com/brewloop/subswap-backend/pkg/queue"
)

const shutdownTimeout = 5 * time.Second

type orderService interface {
	HandleOrderWebhook(ctx context.Context, payload orders.OrderPayload) error
}

type outcomeNotifier interface {
	OnSuccess(ctx context.Context, orderID string) error
	OnPermanentFailure(ctx context.Context, orderID string, cause error) error
	OnWorkerFault(ctx context.Context, cause error) error
}

type pinger interface {
	Ping(context.Context) error
}

type ServiceParams struct {
	Config   *config.Config
	Logger   *logger.Logger
	Queue    *queue.Queue
	Orders   orderService
	Notifier outcomeNotifier
	Metrics  *metrics.JobMetrics
	DB       pinger
	Redis    pinger
}

// Service drains the order queue: it decodes each job into an order
// payload, runs the replacement pipeline, and reports outcomes to the
// notifier. It also serves the Prometheus scrape endpoint.
type Service struct {
	cfg      *config.Config
	logg     *logger.Logger
	queue    *queue.Queue
	orders   orderService
	notifier outcomeNotifier
	metrics  *metrics.JobMetrics
	db       pinger
	redis    pinger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Config == nil {
		return nil, errors.New("config is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.Queue == nil {
		return nil, errors.New("queue is required")
	}
	if params.Orders == nil {
		return nil, errors.New("order service is required")
	}
	if params.Notifier == nil {
		return nil, errors.New("notifier is required")
	}
	return &Service{
		cfg:      params.Config,
		logg:     params.Logger,
		queue:    params.Queue,
		orders:   params.Orders,
		notifier: params.Notifier,
		metrics:  params.Metrics,
		db:       params.DB,
		redis:    params.Redis,
	}, nil
}

func (s *Service) ensureReadiness(ctx context.Context) error {
	for name, dep := range map[string]pinger{"database": s.db, "redis": s.redis} {
		if dep == nil {
			continue
		}
		if err := dep.Ping(ctx); err != nil {
			s.logg.Error(ctx, fmt.Sprintf("%s ping failed", name), err)
			return fmt.Errorf("%s ping failed: %w", name, err)
		}
	}
	return nil
}

// Run blocks until the context is canceled. A fault that stops the worker
// for any other reason triggers an immediate notification before the
// error is returned.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if err := s.ensureReadiness(ctx); err != nil {
		return err
	}

	worker, err := queue.NewWorker(queue.WorkerParams{
		Logger:  s.logg,
		Queue:   s.queue,
		Handler: s.handleJob,
		Metrics: s.metrics,
		Hooks: queue.Hooks{
			OnCompleted: s.onCompleted,
			OnFailed:    s.onFailed,
		},
		Concurrency:  s.cfg.Queue.Concurrency,
		PollInterval: s.cfg.Queue.PollInterval,
	})
	if err != nil {
		return err
	}

	metricsServer := s.newMetricsServer()
	serverErr := make(chan error, 1)
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
		close(serverErr)
	}()

	runErr := worker.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs error
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		errs = multierr.Append(errs, runErr)
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		errs = multierr.Append(errs, err)
	}
	if err := <-serverErr; err != nil {
		errs = multierr.Append(errs, err)
	}

	if errs != nil {
		if notifyErr := s.notifier.OnWorkerFault(context.Background(), errs); notifyErr != nil {
			s.logg.Error(ctx, "sending worker fault notice failed", notifyErr)
		}
	}
	return errs
}

func (s *Service) newMetricsServer() *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return &http.Server{
		Addr:    ":" + s.cfg.App.MetricsPort,
		Handler: mux,
	}
}

func (s *Service) handleJob(ctx context.Context, job queue.Job) error {
	var payload orders.OrderPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		// A payload that never decodes will never decode; do not retry.
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decoding order payload")
	}
	return s.orders.HandleOrderWebhook(ctx, payload)
}

func (s *Service) onCompleted(ctx context.Context, job queue.Job) {
	var payload orders.OrderPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return
	}
	if err := s.notifier.OnSuccess(ctx, payload.OrderGID()); err != nil {
		s.logg.Error(ctx, "recording success notification failed", err)
	}
}

func (s *Service) onFailed(ctx context.Context, job queue.Job, jobErr error, permanent bool) {
	if !permanent {
		return
	}
	orderID := job.ID
	var payload orders.OrderPayload
	if err := json.Unmarshal(job.Payload, &payload); err == nil {
		orderID = payload.OrderGID()
	}
	if err := s.notifier.OnPermanentFailure(ctx, orderID, jobErr); err != nil {
		s.logg.Error(ctx, "sending failure notification failed", err)
	}
}
