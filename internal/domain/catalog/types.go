package catalog

import "time"

type Product struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Slug         string    `json:"slug"`
	Description  *string   `json:"description,omitempty"`
	CategoryID   *int64    `json:"category_id,omitempty"`
	CategoryName *string   `json:"category_name,omitempty"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type Variant struct {
	ID         int64          `json:"id"`
	ProductID  int64          `json:"product_id"`
	SKU        string         `json:"sku"`
	PriceCents int64          `json:"price_cents"`
	Stock      int32          `json:"stock"`
	Attributes map[string]any `json:"attributes,omitempty"`
	IsActive   bool           `json:"is_active"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// Card is the list-view projection: a product plus its minimum variant
// price across ALL variants (active or not), per the pricing rule that
// list filters operate on min_var_price regardless of variant activity.
type Card struct {
	Product
	MinVariantPriceCents *int64 `json:"min_variant_price_cents,omitempty"`
}

// ListFilter narrows ListCards. Zero values mean "no filter".
type ListFilter struct {
	MinPriceCents *int64
	MaxPriceCents *int64
	CategoryName  string
	SortBy        SortBy
	SortDesc      bool
	Limit         int
	Offset        int
}

type SortBy string

const (
	SortByName  SortBy = "name"
	SortByPrice SortBy = "price"
)
