package services

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/danglehoang/vietqr-gateway/internal/clock"
	"github.com/danglehoang/vietqr-gateway/internal/matcher"
	"github.com/danglehoang/vietqr-gateway/internal/registry"
	"github.com/danglehoang/vietqr-gateway/internal/store"
	"github.com/danglehoang/vietqr-gateway/pkg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixture struct {
	registry *registry.Registry
	store    *store.FileStore
	svc      ConfirmationService
}

func newFixture(t *testing.T, waitTimeout time.Duration) *fixture {
	t.Helper()
	clk := clock.NewSystem()
	reg := registry.New(clk)
	st := store.NewFileStore(filepath.Join(t.TempDir(), "orders.json"), zap.NewNop())
	m := matcher.New(reg, st, zap.NewNop())
	svc := NewConfirmationService(zap.NewNop(), reg, st, m, clk, WithWaitTimeout(waitTimeout))
	return &fixture{registry: reg, store: st, svc: svc}
}

type waitResult struct {
	outcome registry.Outcome
	err     error
}

func (f *fixture) registerAsync(t *testing.T, orderID string, price int64) <-chan waitResult {
	t.Helper()
	out := make(chan waitResult, 1)
	go func() {
		outcome, err := f.svc.RegisterPending(context.Background(), "trace", orderID, price)
		out <- waitResult{outcome: outcome, err: err}
	}()
	// Wait for the registration to become visible before the caller fires
	// callbacks or assertions against it.
	require.Eventually(t, func() bool {
		_, ok := f.registry.Get(orderID)
		return ok
	}, time.Second, time.Millisecond)
	return out
}

func TestRegisterPending_ResolvedByMatchingCallback(t *testing.T) {
	f := newFixture(t, 5*time.Second)

	done := f.registerAsync(t, "ORD1", 5000)

	f.svc.ReceiveCallback(context.Background(), "trace", matcher.Transaction{
		AmountText: "+5,000 VND",
		BankName:   "VCB",
		Memo:       "CT tu ORD1",
	})

	res := <-done
	assert.NoError(t, res.err)
	assert.Equal(t, registry.OutcomeCompleted, res.outcome)

	rec := f.store.Load()["ORD1"]
	assert.Equal(t, pkg.OrderStatusCompleted, rec.Status)
	require.NotNil(t, rec.CompletedAt)
	assert.Equal(t, 0, f.registry.Len())
}

func TestRegisterPending_TimesOutWithoutCallback(t *testing.T) {
	f := newFixture(t, 30*time.Millisecond)

	done := f.registerAsync(t, "ORD2", 10000)

	res := <-done
	assert.NoError(t, res.err)
	assert.Equal(t, registry.OutcomeTimeout, res.outcome)

	// Durable record reflects the expired wait.
	assert.Eventually(t, func() bool {
		return f.store.Load()["ORD2"].Status == pkg.OrderStatusTimeout
	}, time.Second, 5*time.Millisecond)

	// The timed-out entry stays live for a late confirmation.
	entry, ok := f.registry.Get("ORD2")
	assert.True(t, ok)
	assert.Equal(t, pkg.OrderStatusTimeout, entry.Status)
}

func TestReceiveCallback_LateArrivalReconcilesStore(t *testing.T) {
	f := newFixture(t, 20*time.Millisecond)

	done := f.registerAsync(t, "ORD3", 5000)
	res := <-done
	require.Equal(t, registry.OutcomeTimeout, res.outcome)

	f.svc.ReceiveCallback(context.Background(), "trace", matcher.Transaction{
		AmountText: "+5.000 VND",
		Memo:       "chuyen khoan ORD3",
	})

	rec := f.store.Load()["ORD3"]
	assert.Equal(t, pkg.OrderStatusCompleted, rec.Status)
	require.NotNil(t, rec.CompletedAt)
	// The waiter got its one timeout response; the late match removes the
	// entry without a second delivery.
	assert.Equal(t, 0, f.registry.Len())
}

func TestReceiveCallback_UnmatchedIsInert(t *testing.T) {
	f := newFixture(t, 5*time.Second)

	f.registerAsync(t, "ORD4", 5000)

	f.svc.ReceiveCallback(context.Background(), "trace", matcher.Transaction{
		AmountText: "+5,000 VND",
		Memo:       "khong lien quan",
	})

	entry, ok := f.registry.Get("ORD4")
	assert.True(t, ok)
	assert.Equal(t, pkg.OrderStatusPending, entry.Status)
	assert.Equal(t, pkg.OrderStatusPending, f.store.Load()["ORD4"].Status)
}

func TestReceiveCallback_DuplicateDeliveryIsIdempotent(t *testing.T) {
	f := newFixture(t, 5*time.Second)

	done := f.registerAsync(t, "ORD5", 5000)

	tx := matcher.Transaction{AmountText: "+5,000 VND", Memo: "CT tu ORD5"}
	f.svc.ReceiveCallback(context.Background(), "trace", tx)
	f.svc.ReceiveCallback(context.Background(), "trace", tx)

	res := <-done
	assert.Equal(t, registry.OutcomeCompleted, res.outcome)
	assert.Equal(t, pkg.OrderStatusCompleted, f.store.Load()["ORD5"].Status)
}

func TestRegisterPending_RejectsInvalidInput(t *testing.T) {
	f := newFixture(t, time.Second)

	_, err := f.svc.RegisterPending(context.Background(), "trace", "", 5000)
	var appErr pkg.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, pkg.ErrInvalidInputCode, appErr.Code)

	_, err = f.svc.RegisterPending(context.Background(), "trace", "ORD6", 0)
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, pkg.ErrInvalidInputCode, appErr.Code)
}

func TestRegisterPending_RejectsDuplicateOrder(t *testing.T) {
	f := newFixture(t, 5*time.Second)

	f.registerAsync(t, "ORD7", 5000)

	_, err := f.svc.RegisterPending(context.Background(), "trace", "ORD7", 5000)
	var appErr pkg.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, pkg.ErrDuplicateOrderCode, appErr.Code)
}

func TestRegisterPending_CancelledContextUnblocks(t *testing.T) {
	f := newFixture(t, 5*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	out := make(chan waitResult, 1)
	go func() {
		outcome, err := f.svc.RegisterPending(ctx, "trace", "ORD8", 5000)
		out <- waitResult{outcome: outcome, err: err}
	}()
	require.Eventually(t, func() bool {
		_, ok := f.registry.Get("ORD8")
		return ok
	}, time.Second, time.Millisecond)

	cancel()
	res := <-out
	assert.ErrorIs(t, res.err, context.Canceled)
}
