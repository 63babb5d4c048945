package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/brewloop/subswap-backend/pkg/config"
	"github.com/brewloop/subswap-backend/pkg/logger"
	"github.com/google/uuid"
)

const (
	partPending    = "pending"
	partProcessing = "processing"
	partDelayed    = "delayed"
)

// Store is the Redis surface the queue needs. *redis.Client satisfies it.
type Store interface {
	RPush(ctx context.Context, key string, values ...any) (int64, error)
	LLen(ctx context.Context, key string) (int64, error)
	LMove(ctx context.Context, src, dst string) (string, bool, error)
	LRem(ctx context.Context, key string, count int64, value any) (int64, error)
	LRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	ZAdd(ctx context.Context, key string, score float64, member string) error
	ZDue(ctx context.Context, key string, max float64) ([]string, error)
	ZRem(ctx context.Context, key, member string) (int64, error)
	QueueKey(name, part string) string
}

// Job is one unit of work. AttemptsMade counts deliveries to a handler,
// including the one currently in flight.
type Job struct {
	ID           string          `json:"id"`
	Payload      json.RawMessage `json:"payload"`
	AttemptsMade int             `json:"attempts_made"`
	EnqueuedAt   time.Time       `json:"enqueued_at"`
	LeasedAt     time.Time       `json:"leased_at,omitzero"`

	// raw is the exact list entry this job was reserved as, kept so acks
	// can LREM the matching value.
	raw string
}

// Params configure a queue.
type Params struct {
	Store  Store
	Logger *logger.Logger
	Config config.QueueConfig
}

// Queue is a FIFO job queue over Redis lists with a sorted set for
// delayed retries. Reserved jobs sit in a processing list under a lease;
// stalled leases are reaped back to pending.
type Queue struct {
	store        Store
	logg         *logger.Logger
	name         string
	maxAttempts  int
	backoffBase  time.Duration
	lockDuration time.Duration

	pendingKey    string
	processingKey string
	delayedKey    string

	now func() time.Time
}

// New builds a queue from config.
func New(params Params) (*Queue, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("store required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	cfg := params.Config
	if cfg.Name == "" {
		return nil, fmt.Errorf("queue name required")
	}
	if cfg.Attempts <= 0 {
		cfg.Attempts = 1
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = time.Second
	}
	if cfg.LockDuration <= 0 {
		cfg.LockDuration = 30 * time.Second
	}
	return &Queue{
		store:         params.Store,
		logg:          params.Logger,
		name:          cfg.Name,
		maxAttempts:   cfg.Attempts,
		backoffBase:   cfg.BackoffBase,
		lockDuration:  cfg.LockDuration,
		pendingKey:    params.Store.QueueKey(cfg.Name, partPending),
		processingKey: params.Store.QueueKey(cfg.Name, partProcessing),
		delayedKey:    params.Store.QueueKey(cfg.Name, partDelayed),
		now:           time.Now,
	}, nil
}

// Name returns the queue name used for metrics labels.
func (q *Queue) Name() string {
	return q.name
}

// MaxAttempts returns the delivery budget per job.
func (q *Queue) MaxAttempts() int {
	return q.maxAttempts
}

// LockDuration returns how long a reserved job may be held before it is
// considered stalled.
func (q *Queue) LockDuration() time.Duration {
	return q.lockDuration
}

// Enqueue serializes the payload and appends a new job to the pending list.
func (q *Queue) Enqueue(ctx context.Context, payload any) (Job, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Job{}, fmt.Errorf("encoding job payload: %w", err)
	}
	job := Job{
		ID:         uuid.NewString(),
		Payload:    body,
		EnqueuedAt: q.now().UTC(),
	}
	raw, err := json.Marshal(job)
	if err != nil {
		return Job{}, fmt.Errorf("encoding job: %w", err)
	}
	if _, err := q.store.RPush(ctx, q.pendingKey, string(raw)); err != nil {
		return Job{}, fmt.Errorf("pushing job: %w", err)
	}
	return job, nil
}

// Reserve moves the oldest pending job into the processing list and stamps
// a lease on it. Returns nil when the queue is empty.
func (q *Queue) Reserve(ctx context.Context) (*Job, error) {
	raw, ok, err := q.store.LMove(ctx, q.pendingKey, q.processingKey)
	if err != nil {
		return nil, fmt.Errorf("reserving job: %w", err)
	}
	if !ok {
		return nil, nil
	}

	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		// Poisoned entry; drop it rather than wedge the queue.
		q.logg.Error(ctx, "dropping undecodable queue entry", err)
		_, _ = q.store.LRem(ctx, q.processingKey, 1, raw)
		return nil, nil
	}

	job.AttemptsMade++
	job.LeasedAt = q.now().UTC()
	leased, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("encoding leased job: %w", err)
	}
	if _, err := q.store.LRem(ctx, q.processingKey, 1, raw); err != nil {
		return nil, fmt.Errorf("rewriting lease: %w", err)
	}
	if _, err := q.store.RPush(ctx, q.processingKey, string(leased)); err != nil {
		return nil, fmt.Errorf("rewriting lease: %w", err)
	}
	job.raw = string(leased)
	return &job, nil
}

// Ack removes a completed job from the processing list.
func (q *Queue) Ack(ctx context.Context, job *Job) error {
	if job == nil || job.raw == "" {
		return fmt.Errorf("job was not reserved")
	}
	if _, err := q.store.LRem(ctx, q.processingKey, 1, job.raw); err != nil {
		return fmt.Errorf("acking job: %w", err)
	}
	return nil
}

// Fail records a failed attempt. When the job still has attempts left and
// the failure is not forced permanent, it is scheduled for a delayed retry
// with exponential backoff. Returns whether the failure is permanent.
func (q *Queue) Fail(ctx context.Context, job *Job, forcePermanent bool) (bool, error) {
	if job == nil || job.raw == "" {
		return true, fmt.Errorf("job was not reserved")
	}
	if _, err := q.store.LRem(ctx, q.processingKey, 1, job.raw); err != nil {
		return false, fmt.Errorf("failing job: %w", err)
	}
	if forcePermanent || job.AttemptsMade >= q.maxAttempts {
		return true, nil
	}

	retry := *job
	retry.LeasedAt = time.Time{}
	retry.raw = ""
	raw, err := json.Marshal(retry)
	if err != nil {
		return false, fmt.Errorf("encoding retry: %w", err)
	}
	due := q.now().Add(q.backoffDelay(job.AttemptsMade))
	if err := q.store.ZAdd(ctx, q.delayedKey, float64(due.UnixMilli()), string(raw)); err != nil {
		return false, fmt.Errorf("scheduling retry: %w", err)
	}
	return false, nil
}

// PromoteDue moves delayed jobs whose backoff has elapsed back onto the
// pending list. Each member is claimed with a ZRem before it is pushed, so
// two promote loops scanning the same zset never requeue the same entry
// twice. Returns how many this caller promoted.
func (q *Queue) PromoteDue(ctx context.Context) (int, error) {
	members, err := q.store.ZDue(ctx, q.delayedKey, float64(q.now().UnixMilli()))
	if err != nil {
		return 0, fmt.Errorf("promoting delayed jobs: %w", err)
	}
	promoted := 0
	for _, m := range members {
		removed, err := q.store.ZRem(ctx, q.delayedKey, m)
		if err != nil {
			return promoted, fmt.Errorf("promoting delayed jobs: %w", err)
		}
		if removed == 0 {
			// Another promoter claimed it first.
			continue
		}
		if _, err := q.store.RPush(ctx, q.pendingKey, m); err != nil {
			return promoted, fmt.Errorf("promoting delayed jobs: %w", err)
		}
		promoted++
	}
	return promoted, nil
}

// ReapStalled returns processing entries whose lease expired to the pending
// list so another worker can pick them up. The redelivery keeps the
// attempts count; a crashed attempt still spends its slot.
func (q *Queue) ReapStalled(ctx context.Context) (int, error) {
	entries, err := q.store.LRange(ctx, q.processingKey, 0, -1)
	if err != nil {
		return 0, fmt.Errorf("scanning processing list: %w", err)
	}
	cutoff := q.now().Add(-q.lockDuration)
	reaped := 0
	for _, raw := range entries {
		var job Job
		if err := json.Unmarshal([]byte(raw), &job); err != nil {
			q.logg.Error(ctx, "dropping undecodable processing entry", err)
			_, _ = q.store.LRem(ctx, q.processingKey, 1, raw)
			continue
		}
		leasedAt := job.LeasedAt
		if leasedAt.IsZero() {
			// A failure between the move and the lease rewrite leaves the
			// entry unstamped; age it from its enqueue time so it still
			// returns to pending instead of sitting in processing forever.
			leasedAt = job.EnqueuedAt
		}
		if leasedAt.After(cutoff) {
			continue
		}
		removed, err := q.store.LRem(ctx, q.processingKey, 1, raw)
		if err != nil {
			return reaped, fmt.Errorf("reaping stalled job: %w", err)
		}
		if removed == 0 {
			// Another worker acked or reaped it first.
			continue
		}
		job.LeasedAt = time.Time{}
		requeued, err := json.Marshal(job)
		if err != nil {
			return reaped, fmt.Errorf("reaping stalled job: %w", err)
		}
		if _, err := q.store.RPush(ctx, q.pendingKey, string(requeued)); err != nil {
			return reaped, fmt.Errorf("reaping stalled job: %w", err)
		}
		reaped++
	}
	return reaped, nil
}

// Depth returns the number of jobs waiting on the pending list.
func (q *Queue) Depth(ctx context.Context) (int64, error) {
	return q.store.LLen(ctx, q.pendingKey)
}

func (q *Queue) backoffDelay(attemptsMade int) time.Duration {
	if attemptsMade < 1 {
		attemptsMade = 1
	}
	return q.backoffBase << (attemptsMade - 1)
}
