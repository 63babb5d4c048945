package notifier

import (
	"context"
	"fmt"

	"github.com/brewloop/subswap-backend/pkg/config"
	"github.com/brewloop/subswap-backend/pkg/logger"
)

// ServiceParams configure the batch notifier.
type ServiceParams struct {
	Logger *logger.Logger
	Store  BatchStore
	Mailer Mailer
	Config config.NotifierConfig
}

// Service accumulates successful outcomes and flushes a digest once the
// batch threshold is reached. Permanent failures and worker faults bypass
// batching; they are high-signal and sent immediately.
type Service struct {
	logg      *logger.Logger
	store     BatchStore
	mailer    Mailer
	threshold int64
}

// NewService builds the notifier.
func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Store == nil {
		return nil, fmt.Errorf("batch store required")
	}
	if params.Mailer == nil {
		return nil, fmt.Errorf("mailer required")
	}
	threshold := int64(params.Config.BatchThreshold)
	if threshold <= 0 {
		threshold = 3
	}
	return &Service{
		logg:      params.Logger,
		store:     params.Store,
		mailer:    params.Mailer,
		threshold: threshold,
	}, nil
}

// OnSuccess appends the order to the pending batch and flushes a digest of
// exactly the threshold's oldest entries once the batch is full. Newer
// entries stay behind for the next batch.
func (s *Service) OnSuccess(ctx context.Context, orderID string) error {
	length, err := s.store.Append(ctx, orderID)
	if err != nil {
		return fmt.Errorf("appending batch entry: %w", err)
	}
	if length < s.threshold {
		return nil
	}

	entries, err := s.store.Drain(ctx, s.threshold)
	if err != nil {
		return fmt.Errorf("draining batch: %w", err)
	}
	if int64(len(entries)) < s.threshold {
		// A concurrent flush got there first and left fewer than a full
		// batch. Put the remainder back so it seeds the next batch instead
		// of going out as an undersized digest.
		for _, entry := range entries {
			if _, err := s.store.Append(ctx, entry); err != nil {
				return fmt.Errorf("restoring batch entry: %w", err)
			}
		}
		return nil
	}

	html, err := renderDigest(entries)
	if err != nil {
		return err
	}
	if err := s.mailer.Send(ctx, digestSubject(len(entries)), html); err != nil {
		return fmt.Errorf("sending digest: %w", err)
	}
	s.logg.Info(s.logg.WithField(ctx, "batch_size", len(entries)), "batch digest sent")
	return nil
}

// OnPermanentFailure sends an immediate, non-batched failure notification.
func (s *Service) OnPermanentFailure(ctx context.Context, orderID string, cause error) error {
	reason := "unknown"
	if cause != nil {
		reason = cause.Error()
	}
	html, err := renderFailure(orderID, reason)
	if err != nil {
		return err
	}
	if err := s.mailer.Send(ctx, failureSubject, html); err != nil {
		return fmt.Errorf("sending failure notice: %w", err)
	}
	return nil
}

// OnWorkerFault sends an immediate crash notification for
// infrastructure-level errors outside any single job.
func (s *Service) OnWorkerFault(ctx context.Context, cause error) error {
	reason := "unknown"
	if cause != nil {
		reason = cause.Error()
	}
	html, err := renderFault(reason)
	if err != nil {
		return err
	}
	if err := s.mailer.Send(ctx, faultSubject, html); err != nil {
		return fmt.Errorf("sending fault notice: %w", err)
	}
	return nil
}
