package main

import (
	"net/http"
	"time"

	"salescore/internal/domain/orders"
	"salescore/internal/domain/storage"
	"salescore/internal/domainerrors"
)

type checkoutCustomerPayload struct {
	Email     string  `json:"email" validate:"required,email"`
	FirstName string  `json:"first_name" validate:"required"`
	LastName  string  `json:"last_name" validate:"required"`
	Phone     *string `json:"phone"`
}

type checkoutItemPayload struct {
	VariantID int64 `json:"variant_id" validate:"required"`
	Quantity  int32 `json:"quantity" validate:"required,gt=0"`
}

type checkoutPayload struct {
	Customer checkoutCustomerPayload `json:"customer" validate:"required"`
	Items    []checkoutItemPayload   `json:"items" validate:"required,min=1,dive"`
	// Website is a honeypot field: real browsers never fill it in, only bots
	// that blindly populate every input on the form.
	Website string `json:"website"`
}

func (app *application) buildOrderFromCheckout(w http.ResponseWriter, r *http.Request, payload checkoutPayload, autoSubmit bool) {
	user, _, err := app.store.Users.GetOrCreateUserByContact(
		r.Context(), payload.Customer.Email, payload.Customer.FirstName, payload.Customer.LastName,
		payload.Customer.Phone, nil,
	)
	if err != nil {
		app.writeError(w, r, err)
		return
	}

	var result *orders.OrderWithItems
	err = app.store.WithSalesTx(r.Context(), func(s storage.Sales) error {
		draft, err := s.Orders.GetOrCreateDraft(r.Context(), user.ID)
		if err != nil {
			return err
		}
		for _, item := range payload.Items {
			variant, err := s.Catalog.GetActiveVariant(r.Context(), item.VariantID)
			if err != nil {
				return err
			}
			if err := s.Orders.AddItem(r.Context(), draft.ID, variant.ID, item.Quantity, variant.PriceCents); err != nil {
				return err
			}
		}
		if err := s.Orders.Reprice(r.Context(), draft.ID, s.Catalog, s.Discounts, false); err != nil {
			return err
		}
		if autoSubmit {
			if err := s.Orders.ChangeStatus(r.Context(), s.Reservations, draft.ID, orders.StatusSubmitted); err != nil {
				return err
			}
		}

		draft, err = s.Orders.GetByID(r.Context(), draft.ID)
		if err != nil {
			return err
		}
		result, err = withItems(r.Context(), s, draft)
		return err
	})
	if err != nil {
		app.writeError(w, r, err)
		return
	}
	app.jsonResponse(w, http.StatusCreated, result)
}

// guestCheckoutHandler is public and anti-abuse gated: honeypot field plus
// per-IP/per-email sliding windows from internal/ratelimiter.
func (app *application) guestCheckoutHandler(w http.ResponseWriter, r *http.Request) {
	var payload checkoutPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.writeError(w, r, domainerrors.Wrap(domainerrors.Validation, "invalid request body", err))
		return
	}
	if payload.Website != "" {
		app.writeError(w, r, domainerrors.New(domainerrors.Validation, "invalid request"))
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.writeError(w, r, domainerrors.Wrap(domainerrors.Validation, "invalid request body", err))
		return
	}

	decision := app.antiAbuse.Check(clientIP(r), payload.Customer.Email, time.Now().UTC())
	if !decision.Allowed {
		app.writeError(w, r, domainerrors.New(domainerrors.RateLimited, decision.Reason))
		return
	}

	app.buildOrderFromCheckout(w, r, payload, true)
}

// manualSubmittedOrderHandler lets an admin place an order on a customer's
// behalf (phone/in-person sales), bypassing the anti-abuse gate.
func (app *application) manualSubmittedOrderHandler(w http.ResponseWriter, r *http.Request) {
	var payload checkoutPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.writeError(w, r, domainerrors.Wrap(domainerrors.Validation, "invalid request body", err))
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.writeError(w, r, domainerrors.Wrap(domainerrors.Validation, "invalid request body", err))
		return
	}

	app.buildOrderFromCheckout(w, r, payload, true)
}
