package webhooks

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/brewloop/subswap-backend/api/responses"
	webhook "github.com/brewloop/subswap-backend/internal/webhooks"
	pkgerrors "github.com/brewloop/subswap-backend/pkg/errors"
	"github.com/brewloop/subswap-backend/pkg/logger"
	"github.com/brewloop/subswap-backend/pkg/metrics"
	"github.com/brewloop/subswap-backend/pkg/queue"
	"github.com/brewloop/subswap-backend/pkg/shopify"
)

// OrderEnqueuer hands verified deliveries to the job queue.
type OrderEnqueuer interface {
	Enqueue(ctx context.Context, payload any) (queue.Job, error)
}

type secretProvider interface {
	WebhookSecret() string
}

// OrdersCreate receives orders/create deliveries. After the signature
// check passes the sender always gets a 200, even when enqueueing fails;
// retries and recovery belong to the internal queue, not the webhook
// transport, and a non-200 here only provokes the sender's retry storm.
func OrdersCreate(q OrderEnqueuer, dedupe webhook.Deduplicator, secrets secretProvider, wm *metrics.WebhookMetrics, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		topic := r.Header.Get(shopify.HeaderTopic)

		if q == nil || dedupe == nil || secrets == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook pipeline unavailable"))
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		signature := r.Header.Get(shopify.HeaderHmac)
		if !shopify.VerifyWebhookSignature(body, secrets.WebhookSecret(), signature) {
			wm.IncRejected(topic)
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid webhook signature"))
			return
		}

		eventID := r.Header.Get(shopify.HeaderEventID)
		duplicate, err := dedupe.IsDuplicate(ctx, eventID)
		if err != nil {
			// Dedupe store trouble must not bounce the delivery; worst
			// case a replay reaches the queue and fails downstream.
			logg.Error(ctx, "dedupe check failed; accepting delivery", err)
		}
		if duplicate {
			wm.IncDuplicate(topic)
			logg.Info(logg.WithField(ctx, "event_id", eventID), "duplicate webhook suppressed")
			responses.WriteSuccess(w, map[string]bool{"duplicate": true})
			return
		}

		if !json.Valid(body) {
			logg.Warn(ctx, "webhook body is not valid json; acknowledged and dropped")
			responses.WriteSuccess(w, nil)
			return
		}

		job, err := q.Enqueue(ctx, json.RawMessage(body))
		if err != nil {
			logg.Error(ctx, "enqueueing webhook failed; acknowledged anyway", err)
			responses.WriteSuccess(w, nil)
			return
		}

		wm.IncReceived(topic)
		logg.Info(logg.WithJobID(ctx, job.ID), "order webhook enqueued")
		responses.WriteSuccess(w, map[string]string{"job_id": job.ID})
	}
}
