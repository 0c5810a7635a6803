package service

import (
	"context"
	"fmt"
	"time"

	"card-payment-gateway/internal/core/domain"
	"card-payment-gateway/internal/core/ports"
	"card-payment-gateway/pkg/apperror"

	"github.com/rs/zerolog"
)

const resultCacheTTL = 24 * time.Hour

// GuardedAuthorizeService wraps an Authorizer with idempotency. For any set
// of requests sharing one composite key it guarantees the inner authorizer
// runs at most once, the first definitive result is the one every caller
// sees, and a result recorded for a key is never replaced.
//
// The guard claims the key before invoking the inner authorizer. A caller
// that loses the claim either gets the recorded result verbatim or, while
// the winner is still in flight, a duplicate-in-flight error. There is no
// queueing: waiting on an in-flight winner would pin a connection per
// duplicate for the full bank round trip.
type GuardedAuthorizeService struct {
	inner  ports.Authorizer
	ledger ports.IdempotencyRepository
	cache  ports.ResultCache // optional fast path, may be nil
	log    zerolog.Logger
}

var _ ports.Authorizer = (*GuardedAuthorizeService)(nil)

// NewGuardedAuthorizeService creates the idempotency guard. cache may be nil
// when no Redis is configured; the ledger alone is authoritative.
func NewGuardedAuthorizeService(
	inner ports.Authorizer,
	ledger ports.IdempotencyRepository,
	cache ports.ResultCache,
	log zerolog.Logger,
) *GuardedAuthorizeService {
	return &GuardedAuthorizeService{
		inner:  inner,
		ledger: ledger,
		cache:  cache,
		log:    log,
	}
}

// Authorize runs cmd through the idempotency guard. An empty idempotency key
// opts the request out of deduplication entirely.
func (s *GuardedAuthorizeService) Authorize(ctx context.Context, cmd domain.CreatePaymentCommand) (*domain.CreatePaymentResult, error) {
	if cmd.IdempotencyKey == "" {
		return s.inner.Authorize(ctx, cmd)
	}

	key := domain.BuildIdempotencyKey(cmd.MerchantID, cmd.IdempotencyKey)

	// Fast path: a finalized result may already be cached. A cache error is
	// only a missed shortcut, the ledger below stays authoritative.
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, key)
		if err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("result cache lookup failed, falling through to ledger")
		}
		if cached != nil {
			return cached, nil
		}
	}

	claimed, err := s.ledger.InsertIfAbsent(ctx, key)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("claim idempotency key: %w", err))
	}

	if !claimed {
		return s.resolveDuplicate(ctx, key)
	}

	result, err := s.inner.Authorize(ctx, cmd)
	if err != nil {
		// No definitive outcome was recorded. Release the claim so a retry
		// of the same key can run the pipeline again.
		if rmErr := s.ledger.Remove(ctx, key); rmErr != nil {
			s.log.Error().Err(rmErr).Str("key", key).Msg("failed to release idempotency claim")
		}
		return nil, err
	}

	if err := s.ledger.Update(ctx, key, *result); err != nil {
		// The outcome never made it into the record. Release the claim too,
		// otherwise the key answers duplicate-in-flight forever with nothing
		// in flight and no result to hand out.
		if rmErr := s.ledger.Remove(ctx, key); rmErr != nil {
			s.log.Error().Err(rmErr).Str("key", key).Msg("failed to release idempotency claim")
		}
		return nil, apperror.InternalError(fmt.Errorf("finalize idempotency key: %w", err))
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, *result, resultCacheTTL); err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("result cache write failed")
		}
	}

	return result, nil
}

// resolveDuplicate answers a caller that lost the claim race. A finalized
// record is returned verbatim; an in-flight claim is reported as a
// duplicate, the caller retries after the winner settles.
func (s *GuardedAuthorizeService) resolveDuplicate(ctx context.Context, key string) (*domain.CreatePaymentResult, error) {
	rec, err := s.ledger.Get(ctx, key)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("read idempotency record: %w", err))
	}
	if rec.Finalized() {
		r := *rec.Result
		return &r, nil
	}
	// The record may also be gone already: the winner failed and released
	// the claim between our InsertIfAbsent and this read. Reporting a
	// duplicate is still truthful, the request was in flight when this
	// caller observed it.
	s.log.Info().Str("key", key).Msg("duplicate request while original in flight")
	return nil, apperror.ErrDuplicateRequest()
}
