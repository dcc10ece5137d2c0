// Package turns implements the service-appointment feature restored from
// original_source: a customer schedules a technician visit ("turn"),
// optionally tied to one of their paid orders. Thin CRUD over a single
// table, following the reference bookings package's repository shape.
package turns

import "time"

type Status string

const (
	StatusRequested Status = "requested"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

type Turn struct {
	ID          int64      `json:"id"`
	UserID      int64      `json:"user_id"`
	OrderID     *int64     `json:"order_id,omitempty"`
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
	Notes       *string    `json:"notes,omitempty"`
	Status      Status     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type Filter struct {
	Status *Status
	Page   int
	Limit  int
}

func (f Filter) pageOrDefault() int {
	if f.Page < 1 {
		return 1
	}
	return f.Page
}

func (f Filter) limitOrDefault() int {
	if f.Limit <= 0 || f.Limit > 100 {
		return 20
	}
	return f.Limit
}
