package notifier

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/brewloop/subswap-backend/pkg/config"
	"github.com/brewloop/subswap-backend/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentMail struct {
	subject string
	html    string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	fail bool
}

func (f *fakeMailer) Send(_ context.Context, subject, html string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("smtp down")
	}
	f.sent = append(f.sent, sentMail{subject: subject, html: html})
	return nil
}

func (f *fakeMailer) all() []sentMail {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMail(nil), f.sent...)
}

func testNotifier(t *testing.T, mailer Mailer, threshold int) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Logger: logger.New(logger.Options{Output: io.Discard}),
		Store:  NewMemoryBatchStore(),
		Mailer: mailer,
		Config: config.NotifierConfig{BatchThreshold: threshold},
	})
	require.NoError(t, err)
	return svc
}

func TestBatchFlushExactness(t *testing.T) {
	mailer := &fakeMailer{}
	svc := testNotifier(t, mailer, 3)
	ctx := context.Background()

	require.NoError(t, svc.OnSuccess(ctx, "gid://shopify/Order/1"))
	require.NoError(t, svc.OnSuccess(ctx, "gid://shopify/Order/2"))
	assert.Empty(t, mailer.all(), "no digest before the threshold")

	require.NoError(t, svc.OnSuccess(ctx, "gid://shopify/Order/3"))
	sent := mailer.all()
	require.Len(t, sent, 1, "exactly one digest at the threshold")
	assert.Equal(t, "Batch of 3 Orders Completed", sent[0].subject)
	for _, id := range []string{"gid://shopify/Order/1", "gid://shopify/Order/2", "gid://shopify/Order/3"} {
		assert.Contains(t, sent[0].html, id)
	}
	// Receipt order preserved in the digest body.
	assert.Less(t,
		strings.Index(sent[0].html, "gid://shopify/Order/1"),
		strings.Index(sent[0].html, "gid://shopify/Order/2"))

	// A fourth completion starts a fresh batch of one.
	require.NoError(t, svc.OnSuccess(ctx, "gid://shopify/Order/4"))
	assert.Len(t, mailer.all(), 1)
}

func TestBatchLeavesNewerEntriesForNextBatch(t *testing.T) {
	mailer := &fakeMailer{}
	store := NewMemoryBatchStore()
	svc, err := NewService(ServiceParams{
		Logger: logger.New(logger.Options{Output: io.Discard}),
		Store:  store,
		Mailer: mailer,
		Config: config.NotifierConfig{BatchThreshold: 2},
	})
	require.NoError(t, err)
	ctx := context.Background()

	// Seed three entries directly, then trigger a flush with a fourth.
	for _, id := range []string{"a", "b", "c"} {
		_, err := store.Append(ctx, id)
		require.NoError(t, err)
	}
	require.NoError(t, svc.OnSuccess(ctx, "d"))

	sent := mailer.all()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].html, "a")
	assert.Contains(t, sent[0].html, "b")
	assert.NotContains(t, sent[0].html, "c", "entries beyond the threshold stay pending")

	remaining, err := store.Drain(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "d"}, remaining)
}

// racedStore reports a length past the threshold but hands back a short
// drain, the way a concurrent flush that already took the full batch does.
type racedStore struct {
	appendLen int64
	drained   []string
	restored  []string
}

func (s *racedStore) Append(_ context.Context, entry string) (int64, error) {
	s.restored = append(s.restored, entry)
	return s.appendLen, nil
}

func (s *racedStore) Drain(_ context.Context, _ int64) ([]string, error) {
	out := s.drained
	s.drained = nil
	return out, nil
}

func TestShortDrainIsRestoredNotSent(t *testing.T) {
	mailer := &fakeMailer{}
	store := &racedStore{appendLen: 4, drained: []string{"gid://shopify/Order/4"}}
	svc, err := NewService(ServiceParams{
		Logger: logger.New(logger.Options{Output: io.Discard}),
		Store:  store,
		Mailer: mailer,
		Config: config.NotifierConfig{BatchThreshold: 3},
	})
	require.NoError(t, err)

	require.NoError(t, svc.OnSuccess(context.Background(), "gid://shopify/Order/4"))

	assert.Empty(t, mailer.all(), "an undersized batch must not go out as a digest")
	// First append is the completion itself; the second puts the short
	// drain back for the next batch.
	assert.Equal(t, []string{"gid://shopify/Order/4", "gid://shopify/Order/4"}, store.restored)
}

func TestOnPermanentFailureSendsImmediately(t *testing.T) {
	mailer := &fakeMailer{}
	svc := testNotifier(t, mailer, 3)

	require.NoError(t, svc.OnPermanentFailure(context.Background(), "gid://shopify/Order/9", errors.New("commit failed")))
	sent := mailer.all()
	require.Len(t, sent, 1)
	assert.Equal(t, "Order Processing Failed (Permanent)", sent[0].subject)
	assert.Contains(t, sent[0].html, "gid://shopify/Order/9")
	assert.Contains(t, sent[0].html, "commit failed")
}

func TestOnWorkerFaultSendsImmediately(t *testing.T) {
	mailer := &fakeMailer{}
	svc := testNotifier(t, mailer, 3)

	require.NoError(t, svc.OnWorkerFault(context.Background(), errors.New("redis connection lost")))
	sent := mailer.all()
	require.Len(t, sent, 1)
	assert.Equal(t, "Order Worker Fault", sent[0].subject)
	assert.Contains(t, sent[0].html, "redis connection lost")
}

func TestOnSuccessPropagatesMailerErrors(t *testing.T) {
	mailer := &fakeMailer{fail: true}
	svc := testNotifier(t, mailer, 1)

	err := svc.OnSuccess(context.Background(), "gid://shopify/Order/1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sending digest")
}

func TestMemoryBatchStoreDrainIsExact(t *testing.T) {
	store := NewMemoryBatchStore()
	ctx := context.Background()

	for _, e := range []string{"1", "2", "3", "4"} {
		_, err := store.Append(ctx, e)
		require.NoError(t, err)
	}

	drained, err := store.Drain(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3"}, drained)

	drained, err = store.Drain(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"4"}, drained)

	drained, err = store.Drain(ctx, 3)
	require.NoError(t, err)
	assert.Empty(t, drained)
}
