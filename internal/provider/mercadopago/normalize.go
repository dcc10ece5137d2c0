package mercadopago

import (
	"fmt"
	"strings"

	"salescore/internal/domain/payments"
	"salescore/internal/domainerrors"
)

// statusTable maps MercadoPago's payment.status values to the local
// payment status per the reconciler's normalization rule.
var statusTable = map[string]payments.Status{
	"approved":     payments.StatusPaid,
	"accredited":   payments.StatusPaid,
	"pending":      payments.StatusPending,
	"in_process":   payments.StatusPending,
	"in_mediation": payments.StatusPending,
	"authorized":   payments.StatusPending,
	"rejected":     payments.StatusCancelled,
	"cancelled":    payments.StatusCancelled,
	"canceled":     payments.StatusCancelled,
	"expired":      payments.StatusExpired,
}

// Normalize converts a provider payment lookup into the order-agnostic
// NormalizedState ApplyMercadopagoNormalizedState expects. Requires
// non-empty id, status, and external_reference; an unrecognized status is
// a hard validation error, not a silent default.
func Normalize(lookup PaymentLookup) (payments.NormalizedState, error) {
	if lookup.ID == "" || lookup.Status == "" || lookup.ExternalReference == "" {
		return payments.NormalizedState{}, domainerrors.New(domainerrors.ProviderValidation, "mercadopago payment lookup missing id/status/external_reference")
	}
	target, ok := statusTable[lookup.Status]
	if !ok {
		return payments.NormalizedState{}, domainerrors.New(domainerrors.ProviderValidation, fmt.Sprintf("unsupported mercadopago payment status %q", lookup.Status))
	}
	return payments.NormalizedState{
		ExternalReference: lookup.ExternalReference,
		TargetStatus:      target,
		ProviderStatus:    lookup.Status,
		AmountCents:       RoundToCents(lookup.TransactionAmount),
		Currency:          strings.ToUpper(lookup.CurrencyID),
	}, nil
}

func RoundToCents(amount float64) int64 {
	return payments.RoundToCents(amount)
}
