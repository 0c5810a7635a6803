package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"card-payment-gateway/internal/adapter/storage/memory"
	"card-payment-gateway/internal/core/domain"
	"card-payment-gateway/internal/core/ports"
	"card-payment-gateway/internal/core/ports/mocks"
	"card-payment-gateway/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type guardTestDeps struct {
	svc    *GuardedAuthorizeService
	inner  *mocks.MockAuthorizer
	ledger *mocks.MockIdempotencyRepository
	cache  *mocks.MockResultCache
	ctrl   *gomock.Controller
}

func setupGuard(t *testing.T, withCache bool) *guardTestDeps {
	ctrl := gomock.NewController(t)
	d := &guardTestDeps{
		inner:  mocks.NewMockAuthorizer(ctrl),
		ledger: mocks.NewMockIdempotencyRepository(ctrl),
		ctrl:   ctrl,
	}
	if withCache {
		d.cache = mocks.NewMockResultCache(ctrl)
		d.svc = NewGuardedAuthorizeService(d.inner, d.ledger, d.cache, zerolog.Nop())
	} else {
		d.svc = NewGuardedAuthorizeService(d.inner, d.ledger, nil, zerolog.Nop())
	}
	return d
}

func authorizedResult(id uuid.UUID) *domain.CreatePaymentResult {
	status := domain.PaymentStatusAuthorized
	return &domain.CreatePaymentResult{ID: id, Success: true, Status: &status}
}

func TestGuard_EmptyKeyBypassesLedger(t *testing.T) {
	d := setupGuard(t, false)
	defer d.ctrl.Finish()

	ctx := context.Background()
	cmd := testCommand(uuid.New(), "")
	want := authorizedResult(cmd.ID)

	// No ledger expectations: the guard must not touch it.
	d.inner.EXPECT().Authorize(ctx, cmd).Return(want, nil)

	got, err := d.svc.Authorize(ctx, cmd)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestGuard_WinnerClaimsInvokesAndFinalizes(t *testing.T) {
	d := setupGuard(t, false)
	defer d.ctrl.Finish()

	ctx := context.Background()
	cmd := testCommand(uuid.New(), "ORDER-001")
	key := domain.BuildIdempotencyKey(cmd.MerchantID, "ORDER-001")
	want := authorizedResult(cmd.ID)

	gomock.InOrder(
		d.ledger.EXPECT().InsertIfAbsent(ctx, key).Return(true, nil),
		d.inner.EXPECT().Authorize(ctx, cmd).Return(want, nil),
		d.ledger.EXPECT().Update(ctx, key, *want).Return(nil),
	)

	got, err := d.svc.Authorize(ctx, cmd)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestGuard_LoserGetsFinalizedResultVerbatim(t *testing.T) {
	d := setupGuard(t, false)
	defer d.ctrl.Finish()

	ctx := context.Background()
	cmd := testCommand(uuid.New(), "ORDER-001")
	key := domain.BuildIdempotencyKey(cmd.MerchantID, "ORDER-001")
	recorded := authorizedResult(uuid.New()) // id of the first submission, not ours

	d.ledger.EXPECT().InsertIfAbsent(ctx, key).Return(false, nil)
	d.ledger.EXPECT().Get(ctx, key).Return(&domain.IdempotencyRecord{Key: key, Result: recorded}, nil)
	// The inner authorizer must not run.

	got, err := d.svc.Authorize(ctx, cmd)
	require.NoError(t, err)
	assert.Equal(t, recorded.ID, got.ID, "recorded result is returned, not a fresh one")
}

func TestGuard_LoserWhileInFlightGetsDuplicateError(t *testing.T) {
	d := setupGuard(t, false)
	defer d.ctrl.Finish()

	ctx := context.Background()
	cmd := testCommand(uuid.New(), "ORDER-001")
	key := domain.BuildIdempotencyKey(cmd.MerchantID, "ORDER-001")

	d.ledger.EXPECT().InsertIfAbsent(ctx, key).Return(false, nil)
	d.ledger.EXPECT().Get(ctx, key).Return(&domain.IdempotencyRecord{Key: key}, nil)

	got, err := d.svc.Authorize(ctx, cmd)
	assert.Nil(t, got)
	require.Error(t, err)
	assert.Equal(t, apperror.KindDuplicateInFlight, apperror.KindOf(err))
}

func TestGuard_LoserAfterWinnerReleasedGetsDuplicateError(t *testing.T) {
	d := setupGuard(t, false)
	defer d.ctrl.Finish()

	ctx := context.Background()
	cmd := testCommand(uuid.New(), "ORDER-001")
	key := domain.BuildIdempotencyKey(cmd.MerchantID, "ORDER-001")

	d.ledger.EXPECT().InsertIfAbsent(ctx, key).Return(false, nil)
	// The winner failed and released between our claim attempt and this read.
	d.ledger.EXPECT().Get(ctx, key).Return(nil, nil)

	_, err := d.svc.Authorize(ctx, cmd)
	require.Error(t, err)
	assert.Equal(t, apperror.KindDuplicateInFlight, apperror.KindOf(err))
}

func TestGuard_InnerFailureReleasesClaim(t *testing.T) {
	d := setupGuard(t, false)
	defer d.ctrl.Finish()

	ctx := context.Background()
	cmd := testCommand(uuid.New(), "ORDER-001")
	key := domain.BuildIdempotencyKey(cmd.MerchantID, "ORDER-001")
	bankErr := apperror.ErrBankUnavailable(assert.AnError)

	gomock.InOrder(
		d.ledger.EXPECT().InsertIfAbsent(ctx, key).Return(true, nil),
		d.inner.EXPECT().Authorize(ctx, cmd).Return(nil, bankErr),
		d.ledger.EXPECT().Remove(ctx, key).Return(nil),
	)

	_, err := d.svc.Authorize(ctx, cmd)
	require.Error(t, err)
	assert.Equal(t, apperror.KindIntegrationFailure, apperror.KindOf(err))
}

func TestGuard_FinalizeFailureReleasesClaim(t *testing.T) {
	d := setupGuard(t, false)
	defer d.ctrl.Finish()

	ctx := context.Background()
	cmd := testCommand(uuid.New(), "ORDER-001")
	key := domain.BuildIdempotencyKey(cmd.MerchantID, "ORDER-001")
	want := authorizedResult(cmd.ID)

	gomock.InOrder(
		d.ledger.EXPECT().InsertIfAbsent(ctx, key).Return(true, nil),
		d.inner.EXPECT().Authorize(ctx, cmd).Return(want, nil),
		d.ledger.EXPECT().Update(ctx, key, *want).Return(assert.AnError),
		// The result never made it into the record, so the claim must go
		// too. A key with neither a result nor a running winner answers
		// every retry with a conflict.
		d.ledger.EXPECT().Remove(ctx, key).Return(nil),
	)

	_, err := d.svc.Authorize(ctx, cmd)
	require.Error(t, err)
	assert.Equal(t, apperror.KindInternal, apperror.KindOf(err))
}

// TestGuard_KeyReusableAfterFinalizeFailure retries against a real ledger
// whose Update fails exactly once. The failed attempt must leave the key
// reclaimable: the retry runs the pipeline again and succeeds.
func TestGuard_KeyReusableAfterFinalizeFailure(t *testing.T) {
	ledger := &flakyFinalizeLedger{IdempotencyRepository: memory.NewIdempotencyStore()}
	ledger.failNext.Store(true)

	var invocations atomic.Int32
	inner := authorizerFunc(func(ctx context.Context, c domain.CreatePaymentCommand) (*domain.CreatePaymentResult, error) {
		invocations.Add(1)
		return authorizedResult(c.ID), nil
	})
	guard := NewGuardedAuthorizeService(inner, ledger, nil, zerolog.Nop())

	ctx := context.Background()
	cmd := testCommand(uuid.New(), "ORDER-001")

	_, err := guard.Authorize(ctx, cmd)
	require.Error(t, err)

	got, err := guard.Authorize(ctx, cmd)
	require.NoError(t, err)
	assert.Equal(t, cmd.ID, got.ID)
	assert.Equal(t, int32(2), invocations.Load(), "retry must re-run the pipeline")
}

// flakyFinalizeLedger fails the first Update and delegates everything else.
type flakyFinalizeLedger struct {
	ports.IdempotencyRepository
	failNext atomic.Bool
}

func (l *flakyFinalizeLedger) Update(ctx context.Context, key string, result domain.CreatePaymentResult) error {
	if l.failNext.Swap(false) {
		return assert.AnError
	}
	return l.IdempotencyRepository.Update(ctx, key, result)
}

func TestGuard_RejectionIsFinalizedNotReleased(t *testing.T) {
	d := setupGuard(t, false)
	defer d.ctrl.Finish()

	ctx := context.Background()
	cmd := testCommand(uuid.New(), "ORDER-001")
	key := domain.BuildIdempotencyKey(cmd.MerchantID, "ORDER-001")
	rejected := &domain.CreatePaymentResult{ID: cmd.ID, Success: false}

	gomock.InOrder(
		d.ledger.EXPECT().InsertIfAbsent(ctx, key).Return(true, nil),
		d.inner.EXPECT().Authorize(ctx, cmd).Return(rejected, nil),
		// A rejection is a definitive outcome: recorded, not released.
		d.ledger.EXPECT().Update(ctx, key, *rejected).Return(nil),
	)

	got, err := d.svc.Authorize(ctx, cmd)
	require.NoError(t, err)
	assert.False(t, got.Success)
}

func TestGuard_CacheHitSkipsLedger(t *testing.T) {
	d := setupGuard(t, true)
	defer d.ctrl.Finish()

	ctx := context.Background()
	cmd := testCommand(uuid.New(), "ORDER-001")
	key := domain.BuildIdempotencyKey(cmd.MerchantID, "ORDER-001")
	cached := authorizedResult(uuid.New())

	d.cache.EXPECT().Get(ctx, key).Return(cached, nil)

	got, err := d.svc.Authorize(ctx, cmd)
	require.NoError(t, err)
	assert.Equal(t, cached, got)
}

func TestGuard_CacheErrorFallsThroughToLedger(t *testing.T) {
	d := setupGuard(t, true)
	defer d.ctrl.Finish()

	ctx := context.Background()
	cmd := testCommand(uuid.New(), "ORDER-001")
	key := domain.BuildIdempotencyKey(cmd.MerchantID, "ORDER-001")
	want := authorizedResult(cmd.ID)

	d.cache.EXPECT().Get(ctx, key).Return(nil, assert.AnError)
	gomock.InOrder(
		d.ledger.EXPECT().InsertIfAbsent(ctx, key).Return(true, nil),
		d.inner.EXPECT().Authorize(ctx, cmd).Return(want, nil),
		d.ledger.EXPECT().Update(ctx, key, *want).Return(nil),
	)
	d.cache.EXPECT().Set(ctx, key, *want, resultCacheTTL).Return(nil)

	got, err := d.svc.Authorize(ctx, cmd)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

// TestGuard_ConcurrentSubmissions drives the guard with a real in-memory
// ledger and a counting inner authorizer. However the race resolves, the
// inner pipeline runs exactly once and every caller sees either the winner's
// result or a duplicate-in-flight error.
func TestGuard_ConcurrentSubmissions(t *testing.T) {
	ledger := memory.NewIdempotencyStore()

	var invocations atomic.Int32
	merchantID := uuid.New()
	cmd := testCommand(merchantID, "ORDER-001")

	inner := authorizerFunc(func(ctx context.Context, c domain.CreatePaymentCommand) (*domain.CreatePaymentResult, error) {
		invocations.Add(1)
		return authorizedResult(c.ID), nil
	})
	guard := NewGuardedAuthorizeService(inner, ledger, nil, zerolog.Nop())

	const callers = 32
	results := make([]*domain.CreatePaymentResult, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			results[i], errs[i] = guard.Authorize(context.Background(), cmd)
		}(i)
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), invocations.Load(), "inner authorizer must run exactly once")

	var winnerID *uuid.UUID
	for i := 0; i < callers; i++ {
		switch {
		case errs[i] != nil:
			assert.Equal(t, apperror.KindDuplicateInFlight, apperror.KindOf(errs[i]))
		default:
			require.NotNil(t, results[i])
			if winnerID == nil {
				winnerID = &results[i].ID
			}
			assert.Equal(t, *winnerID, results[i].ID, "all successful callers see one result")
		}
	}
	require.NotNil(t, winnerID, "at least the claim winner must succeed")
}

// authorizerFunc adapts a function to ports.Authorizer.
type authorizerFunc func(ctx context.Context, cmd domain.CreatePaymentCommand) (*domain.CreatePaymentResult, error)

func (f authorizerFunc) Authorize(ctx context.Context, cmd domain.CreatePaymentCommand) (*domain.CreatePaymentResult, error) {
	return f(ctx, cmd)
}
