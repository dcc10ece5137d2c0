package reservations

import "testing"

func TestClassifyExpirationOutcomeNonSubmittedStaysExpired(t *testing.T) {
	group := ExpiringGroup{
		OrderID:     1,
		OrderStatus: OrderPaid,
		Items:       []ExpiringItem{{ReservationID: 1, VariantID: 10, Quantity: 2}},
	}
	got := ClassifyExpirationOutcome(group, map[int64]int32{10: 100})
	if got.Kind != OutcomeExpiredOnly {
		t.Errorf("got %v, want OutcomeExpiredOnly", got.Kind)
	}
}

func TestClassifyExpirationOutcomeReactivatesWhenStockFits(t *testing.T) {
	group := ExpiringGroup{
		OrderID:     1,
		OrderStatus: OrderSubmitted,
		Items:       []ExpiringItem{{ReservationID: 1, VariantID: 10, Quantity: 2, ReactivationCount: 0}},
	}
	got := ClassifyExpirationOutcome(group, map[int64]int32{10: 5})
	if got.Kind != OutcomeReactivated {
		t.Errorf("got %v, want OutcomeReactivated", got.Kind)
	}
}

func TestClassifyExpirationOutcomeCascadesWhenOverReactivationLimit(t *testing.T) {
	group := ExpiringGroup{
		OrderID:     1,
		OrderStatus: OrderSubmitted,
		Items:       []ExpiringItem{{ReservationID: 1, VariantID: 10, Quantity: 2, ReactivationCount: MaxReactivations}},
	}
	got := ClassifyExpirationOutcome(group, map[int64]int32{10: 100})
	if got.Kind != OutcomeCascadeCancel {
		t.Errorf("got %v, want OutcomeCascadeCancel", got.Kind)
	}
}

func TestClassifyExpirationOutcomeCascadesWhenStockInsufficient(t *testing.T) {
	group := ExpiringGroup{
		OrderID:     1,
		OrderStatus: OrderSubmitted,
		Items:       []ExpiringItem{{ReservationID: 1, VariantID: 10, Quantity: 5, ReactivationCount: 0}},
	}
	got := ClassifyExpirationOutcome(group, map[int64]int32{10: 2})
	if got.Kind != OutcomeCascadeCancel {
		t.Errorf("got %v, want OutcomeCascadeCancel", got.Kind)
	}
}

func TestClassifyExpirationOutcomeAggregatesDemandPerVariant(t *testing.T) {
	group := ExpiringGroup{
		OrderID:     1,
		OrderStatus: OrderSubmitted,
		Items: []ExpiringItem{
			{ReservationID: 1, VariantID: 10, Quantity: 3},
			{ReservationID: 2, VariantID: 10, Quantity: 3},
		},
	}
	// Total demand for variant 10 is 6; available is 5 -> must cascade even
	// though each individual item alone would fit.
	got := ClassifyExpirationOutcome(group, map[int64]int32{10: 5})
	if got.Kind != OutcomeCascadeCancel {
		t.Errorf("got %v, want OutcomeCascadeCancel", got.Kind)
	}
}
