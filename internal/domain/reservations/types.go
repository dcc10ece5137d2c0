package reservations

import "time"

type Status string

const (
	StatusActive   Status = "active"
	StatusConsumed Status = "consumed"
	StatusReleased Status = "released"
	StatusExpired  Status = "expired"
)

const (
	TTL              = 42 * time.Hour
	ReactivationTTL  = 12 * time.Hour
	MaxReactivations = 1
)

type Reservation struct {
	ID                int64      `json:"id"`
	OrderID           int64      `json:"order_id"`
	OrderItemID       int64      `json:"order_item_id"`
	VariantID         int64      `json:"variant_id"`
	Quantity          int32      `json:"quantity"`
	Status            Status     `json:"status"`
	ExpiresAt         time.Time  `json:"expires_at"`
	ReactivationCount int        `json:"reactivation_count"`
	ConsumedAt        *time.Time `json:"consumed_at,omitempty"`
	ReleasedAt        *time.Time `json:"released_at,omitempty"`
	Reason            *string    `json:"reason,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}
