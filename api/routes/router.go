package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/brewloop/subswap-backend/api/controllers"
	webhookcontrollers "github.com/brewloop/subswap-backend/api/controllers/webhooks"
	"github.com/brewloop/subswap-backend/api/middleware"
	webhook "github.com/brewloop/subswap-backend/internal/webhooks"
	"github.com/brewloop/subswap-backend/pkg/config"
	"github.com/brewloop/subswap-backend/pkg/logger"
	"github.com/brewloop/subswap-backend/pkg/metrics"
	"github.com/brewloop/subswap-backend/pkg/shopify"
)

// RouterParams carry the wired dependencies of the webhook receiver.
type RouterParams struct {
	Config         *config.Config
	Logger         *logger.Logger
	Queue          webhookcontrollers.OrderEnqueuer
	Deduplicator   webhook.Deduplicator
	Shopify        *shopify.Client
	WebhookMetrics *metrics.WebhookMetrics
	HealthDeps     map[string]controllers.Pinger
}

// NewRouter assembles the HTTP surface of the webhook receiver.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(params.Logger),
		middleware.RequestID(params.Logger),
		middleware.Logging(params.Logger),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(params.Config))
		r.Get("/ready", controllers.HealthReady(params.Config, params.Logger, params.HealthDeps))
	})

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/orders/create", webhookcontrollers.OrdersCreate(
			params.Queue,
			params.Deduplicator,
			params.Shopify,
			params.WebhookMetrics,
			params.Logger,
		))
	})

	return r
}
