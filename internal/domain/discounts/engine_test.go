package discounts

import (
	"testing"
	"time"
)

func ptr[T any](v T) *T { return &v }

func TestIsValidAt(t *testing.T) {
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		d    Discount
		want bool
	}{
		{"inactive", Discount{IsActive: false}, false},
		{"no window", Discount{IsActive: true}, true},
		{"before start", Discount{IsActive: true, StartsAt: ptr(now.Add(time.Hour))}, false},
		{"after end", Discount{IsActive: true, EndsAt: ptr(now.Add(-time.Hour))}, false},
		{"within window", Discount{IsActive: true, StartsAt: ptr(now.Add(-time.Hour)), EndsAt: ptr(now.Add(time.Hour))}, true},
	}
	for _, c := range cases {
		if got := IsValidAt(c.d, now); got != c.want {
			t.Errorf("%s: IsValidAt() = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestApplicableTo(t *testing.T) {
	product := PricedProduct{ID: 42, CategoryName: "shoes"}

	if !ApplicableTo(product, Discount{Scope: ScopeAll}) {
		t.Error("scope all should apply to any product")
	}
	if !ApplicableTo(product, Discount{Scope: ScopeCategory, ScopeValue: ptr("shoes")}) {
		t.Error("matching category should apply")
	}
	if ApplicableTo(product, Discount{Scope: ScopeCategory, ScopeValue: ptr("hats")}) {
		t.Error("mismatched category should not apply")
	}
	if !ApplicableTo(product, Discount{Scope: ScopeProductList, ProductIDs: []int64{1, 42, 99}}) {
		t.Error("product in list should apply")
	}
	if ApplicableTo(product, Discount{Scope: ScopeProductList, ProductIDs: []int64{1, 99}}) {
		t.Error("product not in list should not apply")
	}
}

func TestLineDiscountClampsToUnitPrice(t *testing.T) {
	d := Discount{Type: TypeFixed, Value: 10000}
	got := LineDiscount(500, d)
	if got != 500 {
		t.Errorf("fixed discount larger than price should clamp to price, got %d", got)
	}
}

func TestLineDiscountPercentRounds(t *testing.T) {
	d := Discount{Type: TypePercent, Value: 33.33}
	got := LineDiscount(999, d)
	if got != 333 {
		t.Errorf("percent discount rounding, got %d want 333", got)
	}
}

func TestBestDiscountForTieBreaksByLowestID(t *testing.T) {
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	product := PricedProduct{ID: 1, CategoryName: "shoes"}
	candidates := []Discount{
		{ID: 5, Type: TypeFixed, Value: 200, Scope: ScopeAll, IsActive: true},
		{ID: 2, Type: TypeFixed, Value: 200, Scope: ScopeAll, IsActive: true},
	}
	best, amount := BestDiscountFor(1000, candidates, product, now)
	if best == nil || best.ID != 2 {
		t.Fatalf("expected tie-break to pick id 2, got %+v", best)
	}
	if amount != 200 {
		t.Errorf("amount = %d, want 200", amount)
	}
}

func TestBestDiscountForNoneApplicable(t *testing.T) {
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	product := PricedProduct{ID: 1, CategoryName: "shoes"}
	candidates := []Discount{
		{ID: 1, Type: TypeFixed, Value: 200, Scope: ScopeCategory, ScopeValue: ptr("hats"), IsActive: true},
	}
	best, amount := BestDiscountFor(1000, candidates, product, now)
	if best != nil || amount != 0 {
		t.Errorf("expected no applicable discount, got %+v amount=%d", best, amount)
	}
}

func TestRecomputeOrderTotals(t *testing.T) {
	lines := []OrderLine{
		{Quantity: 2, UnitPriceCents: 1000, FinalUnitPriceCents: 800},
		{Quantity: 1, UnitPriceCents: 500, FinalUnitPriceCents: 500},
	}
	totals := RecomputeOrderTotals(lines)
	if totals.SubtotalCents != 2500 {
		t.Errorf("subtotal = %d, want 2500", totals.SubtotalCents)
	}
	if totals.DiscountTotalCents != 400 {
		t.Errorf("discount total = %d, want 400", totals.DiscountTotalCents)
	}
	if totals.TotalAmountCents != 2100 {
		t.Errorf("total = %d, want 2100", totals.TotalAmountCents)
	}
}

func TestValidateRejectsMissingScopeValue(t *testing.T) {
	d := Discount{Name: "x", Type: TypePercent, Value: 10, Scope: ScopeCategory}
	err := Validate(d, nil)
	if err == nil {
		t.Fatal("expected validation error for missing scope_value")
	}
}

func TestValidateRejectsPercentOver100(t *testing.T) {
	d := Discount{Name: "x", Type: TypePercent, Value: 150, Scope: ScopeAll}
	err := Validate(d, nil)
	if err == nil {
		t.Fatal("expected validation error for percent > 100")
	}
}

func TestValidateAcceptsWellFormedProductListDiscount(t *testing.T) {
	known := map[int64]bool{1: true, 2: true}
	d := Discount{Name: "x", Type: TypeFixed, Value: 100, Scope: ScopeProductList, ProductIDs: []int64{1, 2}}
	if err := Validate(d, known); err != nil {
		t.Fatalf("expected valid discount, got %v", err)
	}
}
