package payments

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"time"

	"salescore/internal/domain/orders"
	"salescore/internal/domain/reservations"
	"salescore/internal/domainerrors"
)

// Preference is what CreatePaymentForOrder asks an MPProvider to create for
// a mercadopago payment. MPProvider is implemented by the
// internal/provider/mercadopago client; defining the interface here (rather
// than depending on that package) keeps payments free of any HTTP/SDK
// dependency.
type Preference struct {
	ExternalReference string
	TotalAmountCents   int64
	Currency           string
	Description        string
}

type PreferenceResult struct {
	PreferenceID      string
	InitPoint         string
	SandboxInitPoint  string
}

type MPProvider interface {
	CreatePreference(ctx context.Context, pref Preference, idempotencyKey string) (*PreferenceResult, error)
}

type Clock func() time.Time

func defaultClock() time.Time { return time.Now().UTC() }

// CreatePaymentForOrder is idempotent on idempotencyKey and enforces the
// single-active-pending rule per (order_id, method). It requires the order
// to be submitted, non-empty, and backed by at least one active stock
// reservation. Callers must have already run
// reservations.ExpireActiveReservations on this transaction.
func (r *Repository) CreatePaymentForOrder(
	ctx context.Context,
	ordersRepo *orders.Repository,
	reservationsRepo *reservations.Repository,
	mp MPProvider,
	mpEnv string,
	orderID, userID int64,
	method Method,
	idempotencyKey string,
	currency string,
	expiresInMinutes int,
) (*Payment, error) {
	if existing, err := r.GetByIdempotencyKey(ctx, idempotencyKey); err != nil {
		return nil, err
	} else if existing != nil {
		if existing.OrderID != orderID || existing.Method != method {
			return nil, domainerrors.New(domainerrors.Conflict, "idempotency key reused with different order or method")
		}
		if existing.UserID != userID {
			return nil, domainerrors.New(domainerrors.NotFound, "order not found")
		}
		return existing, nil
	}

	order, err := ordersRepo.GetForUpdate(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != orders.StatusSubmitted {
		return nil, domainerrors.New(domainerrors.Validation, "payment can only be created for submitted orders")
	}
	items, err := ordersRepo.ListItems(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, domainerrors.New(domainerrors.Validation, "order has no items")
	}
	activeReservations, err := reservationsRepo.ListActiveByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if len(activeReservations) == 0 {
		return nil, domainerrors.New(domainerrors.Validation, "order has no active stock reservations")
	}

	if currency == "" {
		currency = order.Currency
	}
	amount := order.TotalCents
	if amount <= 0 {
		return nil, domainerrors.New(domainerrors.Validation, "order total must be positive")
	}

	if active, err := r.GetActivePending(ctx, orderID, method); err != nil {
		return nil, err
	} else if active != nil {
		if active.AmountCents != amount || active.Currency != currency {
			return nil, domainerrors.New(domainerrors.Conflict, "active pending payment amount/currency mismatch")
		}
		return active, nil
	}

	payment := Payment{
		OrderID:        orderID,
		UserID:         userID,
		Method:         method,
		Status:         StatusPending,
		AmountCents:    amount,
		Currency:       currency,
		IdempotencyKey: idempotencyKey,
		ExpiresAt:      ptrTime(defaultClock().Add(time.Duration(expiresInMinutes) * time.Minute)),
	}

	created, insertErr := r.Insert(ctx, payment)
	if insertErr != nil {
		return nil, fmt.Errorf("insert payment: %w", insertErr)
	}

	switch method {
	case MethodBankTransfer:
		reference := fmt.Sprintf("ORDER-%d-PAY-%d", orderID, created.ID)
		payload := map[string]any{
			"alias":     "sales.core.transfer",
			"bank":      "Banco de la Nación Argentina",
			"reference": reference,
			"amount":    amount,
			"currency":  currency,
		}
		if err := r.UpdateProviderState(ctx, created.ID, StatusPending, strPtr("instructions_issued"), payload); err != nil {
			return nil, err
		}
		created.ProviderPayload = payload

	case MethodMercadoPago:
		externalRef := fmt.Sprintf("mp-order-%d-pay-%d", orderID, created.ID)
		result, err := mp.CreatePreference(ctx, Preference{
			ExternalReference: externalRef,
			TotalAmountCents:  amount,
			Currency:          currency,
			Description:       fmt.Sprintf("Order #%d", orderID),
		}, "mp-preference-"+idempotencyKey)
		if err != nil {
			return nil, err
		}
		checkoutURL := result.InitPoint
		if mpEnv == "sandbox" {
			checkoutURL = result.SandboxInitPoint
		}
		payload := map[string]any{
			"preference_id":     result.PreferenceID,
			"init_point":        result.InitPoint,
			"sandbox_init_point": result.SandboxInitPoint,
			"checkout_url":      checkoutURL,
		}
		if err := r.UpdateProviderState(ctx, created.ID, StatusPending, strPtr("preference_created"), payload); err != nil {
			return nil, err
		}
		if err := r.setExternalRef(ctx, created.ID, externalRef); err != nil {
			return nil, err
		}
		created.ProviderPayload = payload
		created.ExternalRef = &externalRef
	}

	return created, nil
}

func (r *Repository) setExternalRef(ctx context.Context, id int64, ref string) error {
	_, err := r.q.Exec(ctx, `UPDATE payments SET external_ref=$2, updated_at=now() WHERE id=$1`, id, ref)
	if err != nil {
		return fmt.Errorf("set external_ref: %w", err)
	}
	return nil
}

// ConfirmManualPaymentForOrder drives the bank-transfer / admin manual
// confirmation path. Idempotent re-confirm only succeeds when a matching
// paid payment already exists with the same ref and amount.
func (r *Repository) ConfirmManualPaymentForOrder(
	ctx context.Context,
	ordersRepo *orders.Repository,
	reservationsRepo *reservations.Repository,
	orderID, userID int64,
	paymentRef string,
	paidAmountCents int64,
) (*Payment, error) {
	if paymentRef == "" {
		return nil, domainerrors.New(domainerrors.Validation, "payment_ref is required")
	}
	if paidAmountCents <= 0 {
		return nil, domainerrors.New(domainerrors.Validation, "paid amount must be positive")
	}

	order, err := ordersRepo.GetForUpdate(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if paidAmountCents != order.TotalCents {
		return nil, domainerrors.New(domainerrors.Validation, "paid amount does not match order total")
	}

	idemKey := manualIdempotencyKey(orderID, paymentRef)

	if order.Status == orders.StatusPaid {
		existing, err := r.GetByIdempotencyKey(ctx, idemKey)
		if err != nil {
			return nil, err
		}
		if existing != nil && existing.ExternalRef != nil && *existing.ExternalRef == paymentRef && existing.AmountCents == paidAmountCents {
			return existing, nil
		}
		return nil, domainerrors.New(domainerrors.Conflict, "order already paid with a different payment reference")
	}
	if order.Status != orders.StatusSubmitted {
		return nil, domainerrors.New(domainerrors.Conflict, "order is not awaiting payment")
	}

	if err := reservationsRepo.ConsumeReservationsForPaidOrder(ctx, orderID); err != nil {
		return nil, err
	}

	payload := map[string]any{"confirmed_manually": true, "payment_ref": paymentRef}
	payment, err := r.Insert(ctx, Payment{
		OrderID:         orderID,
		UserID:          userID,
		Method:          MethodBankTransfer,
		Status:          StatusPaid,
		AmountCents:     paidAmountCents,
		Currency:        order.Currency,
		IdempotencyKey:  idemKey,
		ExternalRef:     &paymentRef,
		ProviderStatus:  strPtr("manual_confirmed"),
		ProviderPayload: payload,
		PaidAt:          ptrTime(defaultClock()),
	})
	if err != nil {
		return nil, fmt.Errorf("insert manual payment: %w", err)
	}

	if err := ordersRepo.MarkPaid(ctx, orderID); err != nil {
		return nil, err
	}
	return payment, nil
}

func manualIdempotencyKey(orderID int64, ref string) string {
	sum := sha256.Sum256([]byte(ref))
	return fmt.Sprintf("manual-order-%d-%s", orderID, hex.EncodeToString(sum[:])[:16])
}

// NormalizedState is what the MP webhook reconciler derives from a
// provider payment lookup after mapping provider-specific status strings
// through the normalization table (see internal/provider/mercadopago).
type NormalizedState struct {
	ExternalReference string
	TargetStatus      Status
	ProviderStatus    string
	AmountCents       int64
	Currency          string
}

// ApplyMercadopagoNormalizedState enforces the payment transition table and
// drives the order forward (consume reservations on paid, release on
// cancelled). Must run after reservations.ExpireActiveReservations on this
// transaction.
func (r *Repository) ApplyMercadopagoNormalizedState(
	ctx context.Context,
	ordersRepo *orders.Repository,
	reservationsRepo *reservations.Repository,
	paymentID int64,
	normalized NormalizedState,
	notificationPayload map[string]any,
) (*Payment, error) {
	payment, err := r.GetForUpdate(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.ExternalRef == nil || *payment.ExternalRef != normalized.ExternalReference {
		return nil, domainerrors.New(domainerrors.Conflict, "external_reference does not match payment")
	}
	if diff := payment.AmountCents - normalized.AmountCents; diff > 1 || diff < -1 {
		return nil, domainerrors.New(domainerrors.Conflict, "amount mismatch")
	}
	if !equalFoldCurrency(payment.Currency, normalized.Currency) {
		return nil, domainerrors.New(domainerrors.Conflict, "currency mismatch")
	}
	if !ValidStatusTransition(payment.Status, normalized.TargetStatus) {
		return nil, domainerrors.New(domainerrors.Conflict,
			fmt.Sprintf("invalid payment transition %s -> %s", payment.Status, normalized.TargetStatus))
	}

	reconciliation := map[string]any{
		"reconciled_at":   defaultClock().Format(time.RFC3339),
		"target_status":   string(normalized.TargetStatus),
		"provider_status": normalized.ProviderStatus,
	}
	mergedPayload := mergeMaps(payment.ProviderPayload, map[string]any{
		"notification_payload": notificationPayload,
		"reconciliation":       reconciliation,
	})

	if err := r.UpdateProviderState(ctx, payment.ID, normalized.TargetStatus, &normalized.ProviderStatus, mergedPayload); err != nil {
		return nil, err
	}

	order, err := ordersRepo.GetForUpdate(ctx, payment.OrderID)
	if err != nil {
		return nil, err
	}

	switch normalized.TargetStatus {
	case StatusPaid:
		if order.Status != orders.StatusSubmitted && order.Status != orders.StatusPaid {
			return nil, domainerrors.New(domainerrors.Conflict, "order is not awaiting payment")
		}
		if order.Status == orders.StatusSubmitted {
			if err := reservationsRepo.ConsumeReservationsForPaidOrder(ctx, order.ID); err != nil {
				return nil, err
			}
			if err := ordersRepo.MarkPaid(ctx, order.ID); err != nil {
				return nil, err
			}
		}
		if err := r.MarkPaid(ctx, payment.ID); err != nil {
			return nil, err
		}

	case StatusCancelled:
		if order.Status != orders.StatusPaid {
			if _, err := reservationsRepo.ReleaseReservationsForCancelledOrder(ctx, order.ID, "order_cancelled"); err != nil {
				return nil, err
			}
			if err := ordersRepo.MarkCancelled(ctx, order.ID); err != nil {
				return nil, err
			}
		}
	}

	return r.GetByID(ctx, payment.ID)
}

func equalFoldCurrency(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		ca, cb := a[i], b[i]
		if ca >= 'a' && ca <= 'z' {
			ca -= 32
		}
		if cb >= 'a' && cb <= 'z' {
			cb -= 32
		}
		if ca != cb {
			return false
		}
	}
	return true
}

func mergeMaps(base map[string]any, overrides map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(overrides))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range overrides {
		if v != nil {
			out[k] = v
		}
	}
	return out
}

func ptrTime(t time.Time) *time.Time { return &t }
func strPtr(s string) *string        { return &s }

// RoundToCents is used by the MercadoPago normalizer to translate a
// provider float amount into the cents the lifecycle operations above expect.
func RoundToCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
