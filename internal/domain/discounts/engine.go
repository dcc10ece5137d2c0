// Package discounts is a pure pricing engine: no dbx.Querier, no I/O. It is
// exercised directly by package tests without a database, and is called by
// the orders aggregate (component C) to re-price lines and totals.
package discounts

import (
	"fmt"
	"math"
	"time"

	"salescore/internal/domainerrors"
)

// IsValidAt reports whether a discount is usable at the given instant.
func IsValidAt(d Discount, now time.Time) bool {
	if !d.IsActive {
		return false
	}
	if d.StartsAt != nil && now.Before(*d.StartsAt) {
		return false
	}
	if d.EndsAt != nil && now.After(*d.EndsAt) {
		return false
	}
	return true
}

// ApplicableTo reports whether d's scope matches p, independent of validity window.
func ApplicableTo(p PricedProduct, d Discount) bool {
	switch d.Scope {
	case ScopeAll:
		return true
	case ScopeCategory:
		return d.ScopeValue != nil && *d.ScopeValue == p.CategoryName
	case ScopeProduct:
		if d.ScopeValue == nil {
			return false
		}
		return fmt.Sprintf("%d", p.ID) == *d.ScopeValue
	case ScopeProductList:
		for _, id := range d.ProductIDs {
			if id == p.ID {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func roundCents(v float64) int64 {
	return int64(math.Round(v))
}

func clamp(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// LineDiscount computes the discount amount (in cents) a single discount
// contributes to a line at unitPriceCents, clamped to [0, unitPriceCents].
func LineDiscount(unitPriceCents int64, d Discount) int64 {
	var amount int64
	switch d.Type {
	case TypePercent:
		amount = roundCents(float64(unitPriceCents) * d.Value / 100)
	case TypeFixed:
		amount = roundCents(d.Value)
	default:
		amount = 0
	}
	return clamp(amount, 0, unitPriceCents)
}

// BestDiscountFor picks the discount producing the largest non-negative
// amount for unitPriceCents among candidates valid/applicable at now; ties
// break by lowest discount id. Returns nil if no discount applies.
func BestDiscountFor(unitPriceCents int64, candidates []Discount, product PricedProduct, now time.Time) (*Discount, int64) {
	var best *Discount
	var bestAmount int64 = -1

	for i := range candidates {
		d := candidates[i]
		if !IsValidAt(d, now) || !ApplicableTo(product, d) {
			continue
		}
		amount := LineDiscount(unitPriceCents, d)
		if amount <= 0 {
			continue
		}
		if amount > bestAmount || (amount == bestAmount && (best == nil || d.ID < best.ID)) {
			best = &candidates[i]
			bestAmount = amount
		}
	}
	if best == nil {
		return nil, 0
	}
	return best, bestAmount
}

// RecomputeLine re-derives a single order item's discount fields given the
// current catalog price and the set of discounts applicable to its product.
func RecomputeLine(unitPriceCents int64, qty int32, product PricedProduct, candidates []Discount, now time.Time) LineResult {
	best, amount := BestDiscountFor(unitPriceCents, candidates, product, now)

	final := unitPriceCents - amount
	result := LineResult{
		DiscountAmountCents: amount,
		FinalUnitPriceCents: final,
		LineTotalCents:      final * int64(qty),
	}
	if best != nil {
		id := best.ID
		result.DiscountID = &id
	}
	return result
}

// RecomputeOrderTotals sums subtotal/discount_total/total_amount across lines.
func RecomputeOrderTotals(lines []OrderLine) OrderTotals {
	var totals OrderTotals
	for _, l := range lines {
		totals.SubtotalCents += l.UnitPriceCents * int64(l.Quantity)
		totals.DiscountTotalCents += (l.UnitPriceCents - l.FinalUnitPriceCents) * int64(l.Quantity)
		totals.TotalAmountCents += l.FinalUnitPriceCents * int64(l.Quantity)
	}
	return totals
}

// Validate enforces the create/update rules from the spec: bad type/scope
// combinations, non-positive values, percent over 100, and scope_value
// presence rules. Accumulates every violation via multierr-style aggregation
// so a caller reports all problems in one response instead of one-at-a-time.
func Validate(d Discount, knownProductIDs map[int64]bool) error {
	var problems []string

	if d.Name == "" {
		problems = append(problems, "name is required")
	}
	switch d.Type {
	case TypePercent, TypeFixed:
	default:
		problems = append(problems, "type must be percent or fixed")
	}
	if d.Value <= 0 {
		problems = append(problems, "value must be positive")
	}
	if d.Type == TypePercent && d.Value > 100 {
		problems = append(problems, "percent value cannot exceed 100")
	}

	switch d.Scope {
	case ScopeCategory, ScopeProduct:
		if d.ScopeValue == nil || *d.ScopeValue == "" {
			problems = append(problems, fmt.Sprintf("scope_value is required for scope %q", d.Scope))
		}
	case ScopeAll:
		if d.ScopeValue != nil {
			problems = append(problems, "scope_value must be empty for scope all")
		}
	case ScopeProductList:
		if d.ScopeValue != nil {
			problems = append(problems, "scope_value must be empty for scope product_list")
		}
		if len(d.ProductIDs) == 0 {
			problems = append(problems, "product_list scope requires a non-empty product set")
		}
		for _, id := range d.ProductIDs {
			if !knownProductIDs[id] {
				problems = append(problems, fmt.Sprintf("product_list references unknown product id %d", id))
			}
		}
	default:
		problems = append(problems, "scope must be one of all, category, product, product_list")
	}

	if len(problems) == 0 {
		return nil
	}
	msg := problems[0]
	for _, p := range problems[1:] {
		msg += "; " + p
	}
	return domainerrors.New(domainerrors.Validation, msg)
}
