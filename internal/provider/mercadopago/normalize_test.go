package mercadopago

import (
	"testing"

	"salescore/internal/domain/payments"
	"salescore/internal/domainerrors"
)

func TestNormalizeMapsApprovedToPaid(t *testing.T) {
	result, err := Normalize(PaymentLookup{
		ID:                "1",
		Status:            "approved",
		ExternalReference: "mp-order-1-pay-1",
		TransactionAmount: 150.50,
		CurrencyID:        "ars",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TargetStatus != payments.StatusPaid {
		t.Errorf("got %v, want StatusPaid", result.TargetStatus)
	}
	if result.AmountCents != 15050 {
		t.Errorf("got %d cents, want 15050", result.AmountCents)
	}
	if result.Currency != "ARS" {
		t.Errorf("got %q, want ARS", result.Currency)
	}
}

func TestNormalizeMapsRejectedToCancelled(t *testing.T) {
	result, err := Normalize(PaymentLookup{
		ID: "2", Status: "rejected", ExternalReference: "mp-order-2-pay-2", CurrencyID: "ars",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TargetStatus != payments.StatusCancelled {
		t.Errorf("got %v, want StatusCancelled", result.TargetStatus)
	}
}

func TestNormalizeRejectsUnsupportedStatus(t *testing.T) {
	_, err := Normalize(PaymentLookup{ID: "3", Status: "charged_back", ExternalReference: "ref"})
	if !domainerrors.Is(err, domainerrors.ProviderValidation) {
		t.Errorf("expected a ProviderValidation error, got %v", err)
	}
}

func TestNormalizeRejectsMissingFields(t *testing.T) {
	_, err := Normalize(PaymentLookup{Status: "approved", ExternalReference: "ref"})
	if !domainerrors.Is(err, domainerrors.ProviderValidation) {
		t.Errorf("expected a ProviderValidation error for missing id, got %v", err)
	}
}
