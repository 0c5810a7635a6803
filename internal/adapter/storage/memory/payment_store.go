package memory

import (
	"context"
	"fmt"
	"sync"

	"card-payment-gateway/internal/core/domain"
	"card-payment-gateway/internal/core/ports"

	"github.com/google/uuid"
)

type paymentShard struct {
	mu       sync.RWMutex
	payments map[uuid.UUID]*domain.Payment
}

// PaymentStore is the in-memory payment record store.
type PaymentStore struct {
	shards [shardCount]*paymentShard
}

var _ ports.PaymentRepository = (*PaymentStore)(nil)

func NewPaymentStore() *PaymentStore {
	s := &PaymentStore{}
	for i := range s.shards {
		s.shards[i] = &paymentShard{payments: make(map[uuid.UUID]*domain.Payment)}
	}
	return s
}

func (s *PaymentStore) shard(id uuid.UUID) *paymentShard {
	// uuid v4 bytes are uniformly random, any byte spreads the shards.
	return s.shards[uint32(id[0])%shardCount]
}

// Insert stores a copy of payment unless the id is already present.
func (s *PaymentStore) Insert(_ context.Context, payment *domain.Payment) (bool, error) {
	sh := s.shard(payment.ID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if _, ok := sh.payments[payment.ID]; ok {
		return false, nil
	}
	p := *payment
	sh.payments[p.ID] = &p
	return true, nil
}

// Update replaces an existing payment record.
func (s *PaymentStore) Update(_ context.Context, payment *domain.Payment) error {
	sh := s.shard(payment.ID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if _, ok := sh.payments[payment.ID]; !ok {
		return fmt.Errorf("payment %s not found", payment.ID)
	}
	p := *payment
	sh.payments[p.ID] = &p
	return nil
}

// Get returns a copy of the payment, or nil when not found.
func (s *PaymentStore) Get(_ context.Context, id uuid.UUID) (*domain.Payment, error) {
	sh := s.shard(id)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	p, ok := sh.payments[id]
	if !ok {
		return nil, nil
	}
	out := *p
	return &out, nil
}

func (s *PaymentStore) Remove(_ context.Context, id uuid.UUID) error {
	sh := s.shard(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	delete(sh.payments, id)
	return nil
}
