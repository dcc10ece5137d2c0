package discounts

import "time"

type Type string

const (
	TypePercent Type = "percent"
	TypeFixed   Type = "fixed"
)

type Scope string

const (
	ScopeAll         Scope = "all"
	ScopeCategory    Scope = "category"
	ScopeProduct     Scope = "product"
	ScopeProductList Scope = "product_list"
)

// Discount mirrors the Discount entity. ScopeValue carries the category name
// or product id as a string; ProductIDs backs the product_list scope.
type Discount struct {
	ID         int64
	Name       string
	Type       Type
	Value      float64
	Scope      Scope
	ScopeValue *string
	IsActive   bool
	StartsAt   *time.Time
	EndsAt     *time.Time
	ProductIDs []int64
}

// PricedProduct is the minimal product shape the engine needs to match scope.
type PricedProduct struct {
	ID           int64
	CategoryName string
}

// LineResult is what RecomputeLine returns for a single order item.
type LineResult struct {
	DiscountID     *int64
	DiscountAmountCents int64
	FinalUnitPriceCents int64
	LineTotalCents int64
}

// OrderLine is the minimal shape RecomputeOrderTotals needs per item.
type OrderLine struct {
	Quantity            int32
	UnitPriceCents       int64
	FinalUnitPriceCents  int64
}

type OrderTotals struct {
	SubtotalCents      int64
	DiscountTotalCents int64
	TotalAmountCents   int64
}
