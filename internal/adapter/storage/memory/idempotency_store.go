// Package memory provides process-local storage backends. The stores are
// sharded so concurrent requests for unrelated keys never contend on one
// lock, while operations on the same key serialize through its shard.
package memory

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"card-payment-gateway/internal/core/domain"
	"card-payment-gateway/internal/core/ports"
)

const shardCount = 32

func shardIndex(key string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(key))
	return h.Sum32() % shardCount
}

type idempotencyShard struct {
	mu      sync.Mutex
	records map[string]*domain.IdempotencyRecord
}

// IdempotencyStore is the in-memory idempotency ledger. InsertIfAbsent is a
// single locked check-and-insert, so exactly one of any set of concurrent
// callers takes a given key.
type IdempotencyStore struct {
	shards [shardCount]*idempotencyShard
}

var _ ports.IdempotencyRepository = (*IdempotencyStore)(nil)

func NewIdempotencyStore() *IdempotencyStore {
	s := &IdempotencyStore{}
	for i := range s.shards {
		s.shards[i] = &idempotencyShard{records: make(map[string]*domain.IdempotencyRecord)}
	}
	return s
}

func (s *IdempotencyStore) shard(key string) *idempotencyShard {
	return s.shards[shardIndex(key)]
}

// InsertIfAbsent claims key with an unset record. Returns false without
// modifying the ledger when the key is already present, claimed or finalized.
func (s *IdempotencyStore) InsertIfAbsent(_ context.Context, key string) (bool, error) {
	sh := s.shard(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if _, ok := sh.records[key]; ok {
		return false, nil
	}
	sh.records[key] = &domain.IdempotencyRecord{Key: key, CreatedAt: time.Now().UTC()}
	return true, nil
}

// Update finalizes a claimed key. A finalized record is never overwritten.
func (s *IdempotencyStore) Update(_ context.Context, key string, result domain.CreatePaymentResult) error {
	sh := s.shard(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	rec, ok := sh.records[key]
	if !ok {
		return fmt.Errorf("idempotency key %q not claimed", key)
	}
	if rec.Result != nil {
		return fmt.Errorf("idempotency key %q already finalized", key)
	}
	r := result
	rec.Result = &r
	return nil
}

// Remove releases a claim so a later retry may reclaim the key.
func (s *IdempotencyStore) Remove(_ context.Context, key string) error {
	sh := s.shard(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	delete(sh.records, key)
	return nil
}

// Get returns a copy of the record, or nil when the key is unclaimed.
func (s *IdempotencyStore) Get(_ context.Context, key string) (*domain.IdempotencyRecord, error) {
	sh := s.shard(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	rec, ok := sh.records[key]
	if !ok {
		return nil, nil
	}
	out := *rec
	if rec.Result != nil {
		r := *rec.Result
		out.Result = &r
	}
	return &out, nil
}
