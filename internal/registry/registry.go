// Package registry holds the in-memory table of orders whose clients are
// currently blocked awaiting bank confirmation. It is the authoritative
// source for live waits; the file store keeps the durable history. Entries do
// not survive a restart, which is a deliberate tradeoff: a blocked request
// cannot outlive the process anyway, while completed/timeout status is
// recoverable from the store.
package registry

import (
	"sync"
	"time"

	"github.com/danglehoang/vietqr-gateway/internal/clock"
	"github.com/danglehoang/vietqr-gateway/pkg"
)

// Outcome is the terminal result delivered to a waiting client.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeTimeout   Outcome = "timeout"
)

// Resolution is sent exactly once on each waiter's channel.
type Resolution struct {
	OrderID string
	Outcome Outcome
}

// Entry is a read-only snapshot of a registered order.
type Entry struct {
	OrderID   string
	Price     int64
	Status    pkg.OrderStatus
	CreatedAt time.Time
}

type entry struct {
	price     int64
	status    pkg.OrderStatus
	createdAt time.Time
	// done is buffered(1) and only ever sent on a status edge away from
	// pending, taken under the registry mutex. That status check is the
	// whole exactly-once guarantee; callers are not trusted to cooperate.
	done chan Resolution
}

// Registry is safe for concurrent use.
type Registry struct {
	mu      sync.Mutex
	clock   clock.Clock
	entries map[string]*entry
}

func New(clk clock.Clock) *Registry {
	return &Registry{
		clock:   clk,
		entries: make(map[string]*entry),
	}
}

// Register inserts a pending entry and returns the channel its single
// terminal Resolution will arrive on. An order already waiting (status
// pending) is rejected with pkg.ErrDuplicateOrder; a leftover timeout entry
// is replaced, since its waiter has already been answered.
func (r *Registry) Register(orderID string, price int64) (<-chan Resolution, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.entries[orderID]; ok && existing.status == pkg.OrderStatusPending {
		return nil, pkg.ErrDuplicateOrder
	}

	e := &entry{
		price:     price,
		status:    pkg.OrderStatusPending,
		createdAt: r.clock.Now(),
		done:      make(chan Resolution, 1),
	}
	r.entries[orderID] = e
	return e.done, nil
}

// Get returns a snapshot of the entry for orderID, if present.
func (r *Registry) Get(orderID string) (Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[orderID]
	if !ok {
		return Entry{}, false
	}
	return Entry{OrderID: orderID, Price: e.price, Status: e.status, CreatedAt: e.createdAt}, true
}

// IDs returns the ids of all live entries, including ones already in timeout
// that are kept around for late confirmations. Order is unspecified.
func (r *Registry) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	return ids
}

// Complete resolves orderID as paid and removes it from the registry (the
// durable copy stays in the store). The success Resolution is delivered only
// when the entry was still pending; a timeout entry is removed silently
// because its waiter already received the one response it gets.
// Returns (notified, found).
func (r *Registry) Complete(orderID string) (bool, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[orderID]
	if !ok {
		return false, false
	}

	notified := false
	if e.status == pkg.OrderStatusPending {
		e.status = pkg.OrderStatusCompleted
		e.done <- Resolution{OrderID: orderID, Outcome: OutcomeCompleted}
		notified = true
	}
	delete(r.entries, orderID)
	return notified, true
}

// Timeout expires orderID if it is still pending, delivering the timeout
// Resolution. The entry stays in the registry so a late bank confirmation can
// still find it. Completion racing ahead of the timer makes this a no-op.
func (r *Registry) Timeout(orderID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[orderID]
	if !ok || e.status != pkg.OrderStatusPending {
		return false
	}
	e.status = pkg.OrderStatusTimeout
	e.done <- Resolution{OrderID: orderID, Outcome: OutcomeTimeout}
	return true
}

// Drop removes an entry without resolving it. Used to roll back a
// registration whose durable write failed; the caller is answered with the
// error instead of a Resolution.
func (r *Registry) Drop(orderID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, orderID)
}

// Len reports the number of live entries.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
