package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brewloop/subswap-backend/internal/orders"
	pkgerrors "github.com/brewloop/subswap-backend/pkg/errors"
	"github.com/brewloop/subswap-backend/pkg/logger"
	"github.com/brewloop/subswap-backend/pkg/queue"
)

type fakeOrders struct {
	handled []orders.OrderPayload
	err     error
}

func (f *fakeOrders) HandleOrderWebhook(_ context.Context, payload orders.OrderPayload) error {
	f.handled = append(f.handled, payload)
	return f.err
}

type fakeNotifier struct {
	successes []string
	failures  []string
	faults    []error
}

func (f *fakeNotifier) OnSuccess(_ context.Context, orderID string) error {
	f.successes = append(f.successes, orderID)
	return nil
}

func (f *fakeNotifier) OnPermanentFailure(_ context.Context, orderID string, _ error) error {
	f.failures = append(f.failures, orderID)
	return nil
}

func (f *fakeNotifier) OnWorkerFault(_ context.Context, cause error) error {
	f.faults = append(f.faults, cause)
	return nil
}

func newTestService(o *fakeOrders, n *fakeNotifier) *Service {
	return &Service{
		logg:     logger.New(logger.Options{Output: io.Discard}),
		orders:   o,
		notifier: n,
	}
}

func TestHandleJobRoutesDecodedPayload(t *testing.T) {
	o := &fakeOrders{}
	s := newTestService(o, &fakeNotifier{})

	job := queue.Job{ID: "job-1", Payload: json.RawMessage(`{"id":88,"name":"#1042"}`)}
	require.NoError(t, s.handleJob(context.Background(), job))

	require.Len(t, o.handled, 1)
	assert.Equal(t, int64(88), o.handled[0].ID)
	assert.Equal(t, "#1042", o.handled[0].Name)
}

func TestHandleJobUndecodablePayloadIsNotRetryable(t *testing.T) {
	o := &fakeOrders{}
	s := newTestService(o, &fakeNotifier{})

	job := queue.Job{ID: "job-1", Payload: json.RawMessage(`not json`)}
	err := s.handleJob(context.Background(), job)

	require.Error(t, err)
	assert.False(t, pkgerrors.Retryable(err), "a malformed payload must not be retried")
	assert.Empty(t, o.handled)
}

func TestOnCompletedNotifiesWithOrderGID(t *testing.T) {
	n := &fakeNotifier{}
	s := newTestService(&fakeOrders{}, n)

	job := queue.Job{ID: "job-1", Payload: json.RawMessage(`{"id":88}`)}
	s.onCompleted(context.Background(), job)

	require.Len(t, n.successes, 1)
	assert.Equal(t, "gid://shopify/Order/88", n.successes[0])
}

func TestOnFailedNotifiesOnlyPermanentFailures(t *testing.T) {
	n := &fakeNotifier{}
	s := newTestService(&fakeOrders{}, n)
	job := queue.Job{ID: "job-1", Payload: json.RawMessage(`{"id":88}`)}
	cause := errors.New("boom")

	s.onFailed(context.Background(), job, cause, false)
	assert.Empty(t, n.failures, "retryable attempts stay quiet")

	s.onFailed(context.Background(), job, cause, true)
	require.Len(t, n.failures, 1)
	assert.Equal(t, "gid://shopify/Order/88", n.failures[0])
}

func TestOnFailedFallsBackToJobIDWhenPayloadUndecodable(t *testing.T) {
	n := &fakeNotifier{}
	s := newTestService(&fakeOrders{}, n)
	job := queue.Job{ID: "job-9", Payload: json.RawMessage(`garbage`)}

	s.onFailed(context.Background(), job, errors.New("boom"), true)

	require.Len(t, n.failures, 1)
	assert.Equal(t, "job-9", n.failures[0])
}
