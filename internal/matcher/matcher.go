// Package matcher correlates incoming bank transactions with orders. A
// transaction carries no order reference beyond free text, so matching is
// best effort: the order id must appear as a substring of the memo and the
// normalized amounts must agree.
package matcher

import (
	"sort"
	"strings"

	"github.com/danglehoang/vietqr-gateway/internal/amount"
	"github.com/danglehoang/vietqr-gateway/internal/registry"
	"github.com/danglehoang/vietqr-gateway/internal/store"
	"go.uber.org/zap"
)

// Transaction is the matcher's view of one bank notification.
type Transaction struct {
	AccountNo  string
	AmountText string
	BankName   string
	Memo       string
}

// Source says which table produced the match.
type Source string

const (
	// SourceRegistry means a live entry matched; there is a waiter to resolve.
	SourceRegistry Source = "registry"
	// SourceStore means only the durable record matched (late arrival); the
	// original waiter was already told the confirmation timed out.
	SourceStore Source = "store"
)

// Match identifies the single order a transaction was correlated to.
type Match struct {
	OrderID string
	Source  Source
}

type Matcher struct {
	registry *registry.Registry
	store    *store.FileStore
	logger   *zap.Logger
}

func New(reg *registry.Registry, st *store.FileStore, logger *zap.Logger) *Matcher {
	return &Matcher{registry: reg, store: st, logger: logger}
}

// Match resolves tx to at most one order. The registry is the primary table;
// the store is consulted only when no registry id appears in the memo at all,
// which is the late-arrival path for orders whose wait already expired.
func (m *Matcher) Match(tx Transaction) (Match, bool) {
	actual := amount.Normalize(tx.AmountText)

	if orderID, ok := pickCandidate(m.registry.IDs(), tx.Memo); ok {
		entry, live := m.registry.Get(orderID)
		if !live {
			// Removed between candidate scan and lookup; the callback that
			// raced us already handled it.
			m.logger.Warn("candidate vanished from registry", zap.String("orderId", orderID))
			return Match{}, false
		}

		expected := amount.ExpectedFor(entry.Price)
		if actual != expected {
			m.logger.Warn("amount mismatch for pending order",
				zap.String("orderId", orderID),
				zap.String("expected", expected),
				zap.String("actual", actual),
				zap.String("raw", tx.AmountText))
			return Match{}, false
		}
		if !containsFold(tx.Memo, orderID) {
			m.logger.Warn("order id missing from memo on re-check",
				zap.String("orderId", orderID), zap.String("memo", tx.Memo))
			return Match{}, false
		}
		return Match{OrderID: orderID, Source: SourceRegistry}, true
	}

	// Fallback over durable history: pending or timed-out records only.
	orders := m.store.Load()
	ids := make([]string, 0, len(orders))
	for id, rec := range orders {
		if rec.CanComplete() {
			ids = append(ids, id)
		}
	}

	orderID, ok := pickCandidate(ids, tx.Memo)
	if !ok {
		m.logger.Warn("no order matched callback",
			zap.String("memo", tx.Memo), zap.String("amount", tx.AmountText))
		return Match{}, false
	}

	expected := amount.ExpectedFor(orders[orderID].Price)
	if actual != expected {
		m.logger.Warn("amount mismatch for persisted order",
			zap.String("orderId", orderID),
			zap.String("expected", expected),
			zap.String("actual", actual))
		return Match{}, false
	}
	return Match{OrderID: orderID, Source: SourceStore}, true
}

// pickCandidate returns the order id contained in memo, case-insensitively.
// When several ids appear (one id a prefix of another, or two orders named in
// one memo) the longest id wins, ties broken lexicographically, so the choice
// never depends on map iteration order.
func pickCandidate(ids []string, memo string) (string, bool) {
	var candidates []string
	for _, id := range ids {
		if id != "" && containsFold(memo, id) {
			candidates = append(candidates, id)
		}
	}
	if len(candidates) == 0 {
		return "", false
	}
	sort.Slice(candidates, func(i, j int) bool {
		if len(candidates[i]) != len(candidates[j]) {
			return len(candidates[i]) > len(candidates[j])
		}
		return candidates[i] < candidates[j]
	})
	return candidates[0], true
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
