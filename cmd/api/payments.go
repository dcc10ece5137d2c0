package main

import (
	"net/http"
	"time"

	"salescore/internal/domain/orders"
	"salescore/internal/domain/payments"
	"salescore/internal/domain/storage"
	"salescore/internal/domain/users"
	"salescore/internal/domainerrors"
	"salescore/internal/mailer"
)

const defaultPaymentExpiryMinutes = 60

type createPaymentPayload struct {
	Method           string `json:"method" validate:"required,oneof=bank_transfer mercadopago"`
	Currency         string `json:"currency"`
	ExpiresInMinutes int    `json:"expires_in_minutes" validate:"omitempty,lte=1440"`
}

func (app *application) createOrderPaymentHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)
	orderID, err := parseIDParam(r)
	if err != nil {
		app.writeError(w, r, err)
		return
	}

	idempotencyKey := r.Header.Get("Idempotency-Key")
	if idempotencyKey == "" {
		app.writeError(w, r, domainerrors.New(domainerrors.Validation, "Idempotency-Key header is required"))
		return
	}

	var payload createPaymentPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.writeError(w, r, domainerrors.Wrap(domainerrors.Validation, "invalid request body", err))
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.writeError(w, r, domainerrors.Wrap(domainerrors.Validation, "invalid request body", err))
		return
	}
	expiresIn := payload.ExpiresInMinutes
	if expiresIn <= 0 {
		expiresIn = defaultPaymentExpiryMinutes
	}

	var payment *payments.Payment
	err = app.store.WithSalesTx(r.Context(), func(s storage.Sales) error {
		order, err := s.Orders.GetForUpdate(r.Context(), orderID)
		if err != nil {
			return err
		}
		if err := requireOwnerOrAdmin(order, user); err != nil {
			return err
		}
		if _, err := s.Reservations.ExpireActiveReservations(r.Context(), time.Now().UTC()); err != nil {
			return err
		}
		payment, err = s.Payments.CreatePaymentForOrder(
			r.Context(), s.Orders, s.Reservations, app.mpClient, app.config.MercadoPago.Env,
			orderID, order.UserID, payments.Method(payload.Method), idempotencyKey, payload.Currency, expiresIn,
		)
		return err
	})
	if err != nil {
		app.writeError(w, r, err)
		return
	}
	app.jsonResponse(w, http.StatusCreated, payment)
}

func (app *application) listOrderPaymentsHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)
	orderID, err := parseIDParam(r)
	if err != nil {
		app.writeError(w, r, err)
		return
	}

	order, err := app.store.Sales.Orders.GetByID(r.Context(), orderID)
	if err != nil {
		app.writeError(w, r, err)
		return
	}
	if err := requireOwnerOrAdmin(order, user); err != nil {
		app.writeError(w, r, err)
		return
	}

	list, err := app.store.Sales.Payments.ListByOrder(r.Context(), orderID)
	if err != nil {
		app.writeError(w, r, err)
		return
	}
	app.jsonResponse(w, http.StatusOK, list)
}

func (app *application) getPaymentHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)
	paymentID, err := parseIDParam(r)
	if err != nil {
		app.writeError(w, r, err)
		return
	}

	payment, err := app.store.Sales.Payments.GetByID(r.Context(), paymentID)
	if err != nil {
		app.writeError(w, r, err)
		return
	}
	if !user.IsAdmin && payment.UserID != user.ID {
		app.writeError(w, r, domainerrors.New(domainerrors.NotFound, "payment not found"))
		return
	}
	app.jsonResponse(w, http.StatusOK, payment)
}

// sendPaymentReceipt best-effort emails a payment confirmation; failures are
// logged, never surfaced to the caller, since the order is already paid.
func (app *application) sendPaymentReceipt(user *users.User, order orders.Order) {
	data := map[string]any{
		"FirstName":   user.FirstName,
		"Currency":    order.Currency,
		"AmountCents": order.TotalCents,
		"OrderID":     order.ID,
	}
	if _, err := app.mailer.Send(mailer.PaymentPaidReceiptTemplate, user.FirstName, user.Email, data); err != nil {
		app.logger.Warnw("payment receipt email failed", "order_id", order.ID, "error", err)
	}
}
