package models

import (
	"time"

	"github.com/danglehoang/vietqr-gateway/pkg"
)

// OrderRecord is the durable view of one order, persisted in the orders file.
// Status only moves pending->timeout, pending->completed, or
// timeout->completed when a bank confirmation arrives late.
type OrderRecord struct {
	OrderID     string          `json:"orderId"`
	Status      pkg.OrderStatus `json:"status"`
	Price       int64           `json:"price"` // minor currency unit (VND has no subunit)
	Timestamp   time.Time       `json:"timestamp"`
	CompletedAt *time.Time      `json:"completedAt,omitempty"` // set iff status=completed
}

// CanComplete reports whether a record may still transition to completed.
func (r OrderRecord) CanComplete() bool {
	return r.Status == pkg.OrderStatusPending || r.Status == pkg.OrderStatusTimeout
}
