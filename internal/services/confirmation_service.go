package services

import (
	"context"
	"time"

	"github.com/danglehoang/vietqr-gateway/internal/clock"
	"github.com/danglehoang/vietqr-gateway/internal/matcher"
	"github.com/danglehoang/vietqr-gateway/internal/models"
	"github.com/danglehoang/vietqr-gateway/internal/registry"
	"github.com/danglehoang/vietqr-gateway/internal/store"
	"github.com/danglehoang/vietqr-gateway/pkg"
	"github.com/danglehoang/vietqr-gateway/pkg/utils"
	"go.uber.org/zap"
)

const defaultWaitTimeout = 300 * time.Second

// ConfirmationService orchestrates the pending-order lifecycle: a blocked
// confirmation wait on one side, the relay's bank-transaction callbacks on
// the other.
type ConfirmationService interface {
	// RegisterPending blocks until the order is confirmed, the wait times
	// out, or ctx is cancelled.
	RegisterPending(ctx context.Context, traceID string, orderID string, price int64) (registry.Outcome, error)
	// ReceiveCallback never fails from the relay's point of view; matching
	// failures are logged and swallowed.
	ReceiveCallback(ctx context.Context, traceID string, tx matcher.Transaction)
}

type ConfirmationServiceImpl struct {
	logger      *zap.Logger
	registry    *registry.Registry
	store       *store.FileStore
	matcher     *matcher.Matcher
	clock       clock.Clock
	waitTimeout time.Duration
}

type ConfirmationOption func(*ConfirmationServiceImpl)

// WithWaitTimeout overrides the confirmation window (default 300s). Tests use
// short windows to exercise the timeout path without the full wait.
func WithWaitTimeout(d time.Duration) ConfirmationOption {
	return func(s *ConfirmationServiceImpl) {
		if d > 0 {
			s.waitTimeout = d
		}
	}
}

func NewConfirmationService(logger *zap.Logger, reg *registry.Registry, st *store.FileStore, m *matcher.Matcher, clk clock.Clock, opts ...ConfirmationOption) ConfirmationService {
	svc := &ConfirmationServiceImpl{
		logger:      logger,
		registry:    reg,
		store:       st,
		matcher:     m,
		clock:       clk,
		waitTimeout: defaultWaitTimeout,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

func (s *ConfirmationServiceImpl) RegisterPending(ctx context.Context, traceID string, orderID string, price int64) (registry.Outcome, error) {
	if utils.IsEmpty(orderID) || price <= 0 {
		return "", pkg.NewAppError(pkg.ErrInvalidInputCode, "orderId and price must be valid", nil)
	}

	done, err := s.registry.Register(orderID, price)
	if err != nil {
		return "", pkg.NewAppError(pkg.ErrDuplicateOrderCode, "order is already awaiting confirmation", err)
	}

	record := models.OrderRecord{
		OrderID:   orderID,
		Status:    pkg.OrderStatusPending,
		Price:     price,
		Timestamp: s.clock.Now(),
	}
	if err := s.store.Update(func(orders map[string]models.OrderRecord) {
		orders[orderID] = record
	}); err != nil {
		s.registry.Drop(orderID)
		return "", pkg.NewAppError(pkg.ErrServerCode, "failed to persist order", err)
	}

	s.logger.Info("order awaiting confirmation",
		zap.String(pkg.TraceId, traceID),
		zap.String("orderId", orderID),
		zap.Int64("price", price))

	// The timer is never cancelled; registry.Timeout re-checks status at
	// fire time so a completed order makes this a no-op.
	time.AfterFunc(s.waitTimeout, func() {
		if !s.registry.Timeout(orderID) {
			return
		}
		s.logger.Info("confirmation window elapsed", zap.String("orderId", orderID))
		if err := s.store.Update(func(orders map[string]models.OrderRecord) {
			if rec, ok := orders[orderID]; ok && rec.Status == pkg.OrderStatusPending {
				rec.Status = pkg.OrderStatusTimeout
				orders[orderID] = rec
			}
		}); err != nil {
			s.logger.Error("failed to persist timeout status",
				zap.String("orderId", orderID), zap.Error(err))
		}
	})

	select {
	case res := <-done:
		return res.Outcome, nil
	case <-ctx.Done():
		// Client went away. The entry stays pending; the timer will expire
		// it and the buffered channel absorbs the unread resolution.
		return "", ctx.Err()
	}
}

func (s *ConfirmationServiceImpl) ReceiveCallback(ctx context.Context, traceID string, tx matcher.Transaction) {
	s.logger.Info("bank callback received",
		zap.String(pkg.TraceId, traceID),
		zap.String("bank", tx.BankName),
		zap.String("amount", tx.AmountText),
		zap.String("memo", tx.Memo))

	match, ok := s.matcher.Match(tx)
	if !ok {
		// Financially inert: acknowledged upstream, logged by the matcher.
		return
	}

	completedAt := s.clock.Now()
	switch match.Source {
	case matcher.SourceRegistry:
		notified, found := s.registry.Complete(match.OrderID)
		if !found {
			s.logger.Warn("matched order vanished before completion",
				zap.String(pkg.TraceId, traceID), zap.String("orderId", match.OrderID))
			return
		}
		s.persistCompleted(traceID, match.OrderID, completedAt)
		s.logger.Info("payment confirmed",
			zap.String(pkg.TraceId, traceID),
			zap.String("orderId", match.OrderID),
			zap.Bool("waiterNotified", notified))
	case matcher.SourceStore:
		// Late arrival: the waiter already got its timeout response, but the
		// durable record should reflect that the money did arrive.
		s.persistCompleted(traceID, match.OrderID, completedAt)
		s.logger.Info("late payment reconciled",
			zap.String(pkg.TraceId, traceID),
			zap.String("orderId", match.OrderID))
	}
}

func (s *ConfirmationServiceImpl) persistCompleted(traceID string, orderID string, completedAt time.Time) {
	if err := s.store.Update(func(orders map[string]models.OrderRecord) {
		rec, ok := orders[orderID]
		if !ok || !rec.CanComplete() {
			return
		}
		rec.Status = pkg.OrderStatusCompleted
		rec.CompletedAt = &completedAt
		orders[orderID] = rec
	}); err != nil {
		s.logger.Error("failed to persist completed status",
			zap.String(pkg.TraceId, traceID),
			zap.String("orderId", orderID),
			zap.Error(err))
	}
}
