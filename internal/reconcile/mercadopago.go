// Package reconcile implements the MercadoPago webhook pipeline: verify
// signature, dedup via webhookevents, fetch the authoritative payment,
// normalize it, and apply the resulting state transition. Orchestrates
// across domain packages the way the reference handler layer orchestrates a
// Store across one request, generalized to this spec's multi-step
// verify -> dedup -> lookup -> normalize -> apply pipeline.
package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"salescore/internal/domain/storage"
	"salescore/internal/domain/webhookevents"
	"salescore/internal/domainerrors"
	"salescore/internal/provider/mercadopago"
)

// PaymentLookuper is satisfied by *mercadopago.Client; defined here so the
// reconciler depends on a narrow interface rather than the concrete client.
type PaymentLookuper interface {
	GetPayment(ctx context.Context, providerPaymentID string) (*mercadopago.PaymentLookup, error)
}

// Outcome reports what the pipeline did without raising an error; a non-nil
// error from HandleNotification is reserved for the hard-401 signature
// failure, webhook-event acquisition failures, and unexpected failures after
// the payment lookup (normalization, lookup by external_ref, the expiration
// sweep, apply, marking processed).
type Outcome struct {
	Accepted bool
	Reason   string
}

func softNoOp(reason string) Outcome { return Outcome{Accepted: false, Reason: reason} }

const maxStoredErrorLen = 2000

func truncate(s string) string {
	if len(s) > maxStoredErrorLen {
		return s[:maxStoredErrorLen]
	}
	return s
}

// HandleNotification runs the full MercadoPago webhook pipeline against a
// decoded notification body. signatureHeader/requestID come from the
// x-signature/x-request-id headers.
func HandleNotification(
	ctx context.Context,
	container *storage.Container,
	provider PaymentLookuper,
	webhookSecret string,
	payload map[string]any,
	signatureHeader, requestID string,
) (Outcome, error) {
	topic, _ := payload["topic"].(string)
	if topic == "" {
		topic, _ = payload["type"].(string)
	}
	if topic != "" && topic != "payment" {
		return softNoOp("ignored non-payment topic"), nil
	}

	dataID := mercadopago.ExtractDataID(payload)
	if dataID == "" {
		return softNoOp("missing data.id"), nil
	}

	if !mercadopago.IsSignatureValid(webhookSecret, dataID, requestID, signatureHeader) {
		return Outcome{}, domainerrors.New(domainerrors.Unauthorized, "invalid mercadopago webhook signature")
	}

	eventKey := buildEventKey(payload, topic, dataID)

	var outcome Outcome
	err := container.WithSalesTxRaw(ctx, func(tx pgx.Tx, s storage.Sales) error {
		var event *webhookevents.WebhookEvent
		var acquired bool

		spErr := storage.WithSavepoint(ctx, tx, func(sp pgx.Tx) error {
			e, ok, acqErr := webhookevents.Acquire(ctx, sp, "mercadopago", eventKey, payload)
			if acqErr != nil {
				return acqErr
			}
			event, acquired = e, ok
			return nil
		})
		if spErr != nil {
			return fmt.Errorf("acquire webhook event: %w", spErr)
		}
		if !acquired {
			outcome = softNoOp("duplicate webhook event")
			return nil
		}

		lookup, err := provider.GetPayment(ctx, dataID)
		if err != nil {
			_ = s.WebhookEvents.MarkFailed(ctx, event.ID, "payment lookup failed: "+err.Error())
			outcome = softNoOp("payment lookup failed")
			return nil
		}

		normalized, err := mercadopago.Normalize(*lookup)
		if err != nil {
			_ = s.WebhookEvents.MarkFailed(ctx, event.ID, err.Error())
			return err
		}

		payment, err := s.Payments.GetByExternalRef(ctx, normalized.ExternalReference)
		if err != nil {
			_ = s.WebhookEvents.MarkFailed(ctx, event.ID, err.Error())
			return err
		}
		if payment == nil {
			_ = s.WebhookEvents.MarkProcessed(ctx, event.ID)
			outcome = softNoOp("no matching payment for external_ref")
			return nil
		}

		// Opportunistic sweep: never apply a normalized state on top of a
		// logically-stale active reservation set.
		if _, err := s.Reservations.ExpireActiveReservations(ctx, time.Now().UTC()); err != nil {
			_ = s.WebhookEvents.MarkFailed(ctx, event.ID, err.Error())
			return err
		}

		if _, err := s.Payments.ApplyMercadopagoNormalizedState(ctx, s.Orders, s.Reservations, payment.ID, normalized, payload); err != nil {
			_ = s.WebhookEvents.MarkFailed(ctx, event.ID, truncate(err.Error()))
			return err
		}

		if err := s.WebhookEvents.MarkProcessed(ctx, event.ID); err != nil {
			return err
		}
		outcome = Outcome{Accepted: true, Reason: "processed"}
		return nil
	})
	if err != nil {
		return Outcome{}, err
	}
	return outcome, nil
}

func buildEventKey(payload map[string]any, topic, dataID string) string {
	if id, ok := payload["id"]; ok {
		switch v := id.(type) {
		case string:
			if v != "" {
				return "mp:event:" + v
			}
		case float64:
			return fmt.Sprintf("mp:event:%d", int64(v))
		}
	}
	action, _ := payload["action"].(string)
	if action == "" {
		action = "unknown"
	}
	if topic == "" {
		topic = "payment"
	}
	return fmt.Sprintf("mp:%s:%s:%s", topic, dataID, action)
}
