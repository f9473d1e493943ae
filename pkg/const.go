package pkg

const (
	HeaderTraceId string = "X-Trace-Id"
)

const (
	TraceId string = "trace_id"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusTimeout   OrderStatus = "timeout"
	OrderStatusCompleted OrderStatus = "completed"
)
