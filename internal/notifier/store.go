package notifier

import (
	"context"
	"fmt"
	"sync"
)

const batchListName = "success_batch"

// BatchStore is the append-and-maybe-drain capability backing the batch
// notifier. Drain must be atomic with respect to concurrent appends so no
// entry is double-sent or lost.
type BatchStore interface {
	// Append adds an entry to the tail and returns the new length.
	Append(ctx context.Context, entry string) (int64, error)
	// Drain removes and returns up to n entries from the head, atomically.
	Drain(ctx context.Context, n int64) ([]string, error)
}

type batchRedis interface {
	RPush(ctx context.Context, key string, values ...any) (int64, error)
	DrainList(ctx context.Context, key string, n int64) ([]string, error)
	BatchKey(name string) string
}

// RedisBatchStore shares the pending list across worker processes.
type RedisBatchStore struct {
	client batchRedis
	key    string
}

// NewRedisBatchStore builds a shared batch store.
func NewRedisBatchStore(client batchRedis) (*RedisBatchStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client required")
	}
	return &RedisBatchStore{client: client, key: client.BatchKey(batchListName)}, nil
}

func (s *RedisBatchStore) Append(ctx context.Context, entry string) (int64, error) {
	return s.client.RPush(ctx, s.key, entry)
}

func (s *RedisBatchStore) Drain(ctx context.Context, n int64) ([]string, error) {
	return s.client.DrainList(ctx, s.key, n)
}

// MemoryBatchStore keeps the pending list in process, for single-instance
// deployments and tests.
type MemoryBatchStore struct {
	mu      sync.Mutex
	entries []string
}

// NewMemoryBatchStore builds an in-process batch store.
func NewMemoryBatchStore() *MemoryBatchStore {
	return &MemoryBatchStore{}
}

func (s *MemoryBatchStore) Append(_ context.Context, entry string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return int64(len(s.entries)), nil
}

func (s *MemoryBatchStore) Drain(_ context.Context, n int64) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n <= 0 || len(s.entries) == 0 {
		return nil, nil
	}
	if n > int64(len(s.entries)) {
		n = int64(len(s.entries))
	}
	drained := append([]string(nil), s.entries[:n]...)
	s.entries = append([]string(nil), s.entries[n:]...)
	return drained, nil
}
