package orders

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/brewloop/subswap-backend/internal/orderedit"
	product "github.com/brewloop/subswap-backend/internal/products"
	"github.com/brewloop/subswap-backend/pkg/db/models"
	"github.com/brewloop/subswap-backend/pkg/enums"
	pkgerrors "github.com/brewloop/subswap-backend/pkg/errors"
	"github.com/brewloop/subswap-backend/pkg/logger"
)

// Service is the webhook orchestrator: it filters subscription items,
// records the audit trail, and drives the order-edit pipeline.
type Service interface {
	HandleOrderWebhook(ctx context.Context, payload OrderPayload) error
}

// ServiceParams configure the orchestrator.
type ServiceParams struct {
	Logger  *logger.Logger
	Audit   AuditRepository
	Catalog product.Service
	Matcher product.Matcher
	Editor  orderedit.Editor
}

type service struct {
	logg    *logger.Logger
	audit   AuditRepository
	catalog product.Service
	matcher product.Matcher
	editor  orderedit.Editor
}

// NewService builds the orchestrator.
func NewService(params ServiceParams) (Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Audit == nil {
		return nil, fmt.Errorf("audit repository required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog service required")
	}
	if params.Matcher == nil {
		return nil, fmt.Errorf("matcher required")
	}
	if params.Editor == nil {
		return nil, fmt.Errorf("order editor required")
	}
	return &service{
		logg:    params.Logger,
		audit:   params.Audit,
		catalog: params.Catalog,
		matcher: params.Matcher,
		editor:  params.Editor,
	}, nil
}

// HandleOrderWebhook runs the replacement pipeline for one order webhook.
// Orders without subscription items return immediately with no audit row
// and no collaborator calls. On failure the audit row is updated exactly
// once with the step that was in flight, and the error is returned for the
// queue's retry accounting.
func (s *service) HandleOrderWebhook(ctx context.Context, payload OrderPayload) error {
	subs := payload.SubscriptionItems()
	if len(subs) == 0 {
		return nil
	}

	orderID := payload.OrderGID()
	ctx = s.logg.WithOrderID(ctx, orderID)
	s.logg.Info(s.logg.WithField(ctx, "subscription_items", len(subs)), "subscription order received")

	snapshot, err := json.Marshal(payload)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding payload snapshot")
	}
	record, err := s.audit.Create(ctx, &models.OrderEditLog{
		OrderID: orderID,
		Status:  enums.OrderEditStatusSuccess,
		Step:    enums.StepCheckSubscription,
		Payload: snapshot,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating audit record")
	}

	fail := func(step enums.OrderEditStep, cause error) error {
		fctx := s.logg.WithStep(ctx, string(step))
		if updateErr := s.audit.MarkFailed(ctx, record.ID, step); updateErr != nil {
			s.logg.Error(fctx, "updating audit record failed", updateErr)
		}
		s.logg.Error(fctx, "order replacement failed", cause)
		return fmt.Errorf("order %s failed at %s: %w", orderID, step, cause)
	}

	session, err := s.editor.Begin(ctx, orderID)
	if err != nil {
		return fail(enums.StepBeginOrderEdit, err)
	}

	candidates, err := s.catalog.FetchReplacementCandidates(ctx)
	if err != nil {
		return fail(enums.StepFetchProducts, err)
	}

	variant := s.matcher.PickReplacement(replacementSources(subs), candidates)
	if variant == nil {
		return fail(enums.StepPickReplacement,
			pkgerrors.New(pkgerrors.CodeNoReplacementVariant, "no replacement variant matched"))
	}
	ctx = s.logg.WithField(ctx, "replacement_variant", variant.ID)

	if err := s.editor.RemoveSubscriptionItems(ctx, session, removalTargets(subs)); err != nil {
		return fail(enums.StepRemoveSubscription, err)
	}

	addedLineItemID, err := s.editor.AddReplacementVariant(ctx, session.ID, variant.ID)
	if err != nil {
		return fail(enums.StepAddReplacement, err)
	}

	// Discount is best-effort. A failure here is logged and the commit
	// still runs; the customer gets the replacement at full price.
	percent := orderedit.DiscountPercent(ctx, s.logg, subs[0].Price, variant.Price)
	if percent > 0 && addedLineItemID != "" {
		if err := s.editor.ApplyDiscount(ctx, session.ID, addedLineItemID, percent); err != nil {
			dctx := s.logg.WithStep(ctx, string(enums.StepApplyDiscount))
			s.logg.Warn(s.logg.WithField(dctx, "error", err.Error()), "discount application failed; committing without it")
		}
	}

	if err := s.editor.Commit(ctx, session.ID); err != nil {
		return fail(enums.StepCommitOrderEdit, err)
	}

	s.logg.Info(ctx, "subscription items replaced")
	return nil
}
