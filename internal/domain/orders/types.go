package orders

import "time"

type Status string

const (
	StatusDraft     Status = "draft"
	StatusSubmitted Status = "submitted"
	StatusPaid      Status = "paid"
	StatusCancelled Status = "cancelled"
)

type Order struct {
	ID              int64      `json:"id"`
	UserID          int64      `json:"user_id"`
	Status          Status     `json:"status"`
	Currency        string     `json:"currency"`
	SubtotalCents   int64      `json:"subtotal_cents"`
	DiscountCents   int64      `json:"discount_cents"`
	TotalCents      int64      `json:"total_cents"`
	PricingFrozen   bool       `json:"pricing_frozen"`
	PricingFrozenAt *time.Time `json:"pricing_frozen_at,omitempty"`
	SubmittedAt     *time.Time `json:"submitted_at,omitempty"`
	PaidAt          *time.Time `json:"paid_at,omitempty"`
	CancelledAt     *time.Time `json:"cancelled_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Item is an order_items row. DiscountAmountCents/FinalUnitPriceCents/
// LineTotalCents are maintained by the discounts engine on every re-price.
type Item struct {
	ID                  int64     `json:"id"`
	OrderID             int64     `json:"order_id"`
	VariantID           int64     `json:"variant_id"`
	Quantity            int32     `json:"quantity"`
	UnitPriceCents      int64     `json:"unit_price_cents"`
	DiscountID          *int64    `json:"discount_id,omitempty"`
	DiscountAmountCents int64     `json:"discount_amount_cents"`
	FinalUnitPriceCents int64     `json:"final_unit_price_cents"`
	LineTotalCents      int64     `json:"line_total_cents"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

type OrderWithItems struct {
	Order
	Items []Item `json:"items"`
}
