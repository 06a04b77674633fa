package idempotency

import (
	"encoding/json"
	"time"
)

// Status values for idempotency entries. A record is only ever written in the
// same batch as the result it guards, so it is born DONE.
const (
	StatusDone = "DONE"
)

// Record remembers the response of a completed keyed request.
type Record struct {
	IdempotencyKey string          `json:"idempotency_key"`
	Status         string          `json:"status"`
	OrderID        string          `json:"order_id,omitempty"`
	ResponseBody   json.RawMessage `json:"response_body,omitempty"`
	ResponseStatus int             `json:"response_status,omitempty"` // e.g., 201
	CreatedAt      time.Time       `json:"created_at"`
	ExpiresAt      int64           `json:"expires_at"` // epoch seconds
}
