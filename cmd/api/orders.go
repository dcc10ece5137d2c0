package main

import (
	"context"
	"net/http"

	"salescore/internal/domain/orders"
	"salescore/internal/domain/storage"
	"salescore/internal/domain/users"
	"salescore/internal/domainerrors"
)

func withItems(ctx context.Context, s storage.Sales, order *orders.Order) (*orders.OrderWithItems, error) {
	items, err := s.Orders.ListItems(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	return &orders.OrderWithItems{Order: *order, Items: items}, nil
}

func requireOwnerOrAdmin(order *orders.Order, user *users.User) error {
	if user.IsAdmin || order.UserID == user.ID {
		return nil
	}
	return domainerrors.New(domainerrors.NotFound, "order not found")
}

func (app *application) getDraftOrderHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)

	var result *orders.OrderWithItems
	err := app.store.WithSalesTx(r.Context(), func(s storage.Sales) error {
		draft, err := s.Orders.GetOrCreateDraft(r.Context(), user.ID)
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
	app.jsonResponse(w, http.StatusOK, result)
}

type addDraftItemPayload struct {
	VariantID int64 `json:"variant_id" validate:"required"`
	Quantity  int32 `json:"quantity" validate:"required,gt=0"`
}

func (app *application) addDraftItemHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)

	var payload addDraftItemPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.writeError(w, r, domainerrors.Wrap(domainerrors.Validation, "invalid request body", err))
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.writeError(w, r, domainerrors.Wrap(domainerrors.Validation, "invalid request body", err))
		return
	}

	var result *orders.OrderWithItems
	err := app.store.WithSalesTx(r.Context(), func(s storage.Sales) error {
		draft, err := s.Orders.GetOrCreateDraft(r.Context(), user.ID)
		if err != nil {
			return err
		}
		variant, err := s.Catalog.GetActiveVariant(r.Context(), payload.VariantID)
		if err != nil {
			return err
		}
		if err := s.Orders.AddItem(r.Context(), draft.ID, variant.ID, payload.Quantity, variant.PriceCents); err != nil {
			return err
		}
		if err := s.Orders.Reprice(r.Context(), draft.ID, s.Catalog, s.Discounts, false); err != nil {
			return err
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
	app.jsonResponse(w, http.StatusOK, result)
}

func (app *application) removeDraftItemHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)
	itemID, err := parseIDParam(r)
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
		if err := s.Orders.RemoveItem(r.Context(), draft.ID, itemID); err != nil {
			return err
		}
		if err := s.Orders.Reprice(r.Context(), draft.ID, s.Catalog, s.Discounts, false); err != nil {
			return err
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
	app.jsonResponse(w, http.StatusOK, result)
}

func (app *application) getOrderHandler(w http.ResponseWriter, r *http.Request) {
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
	result, err := withItems(r.Context(), app.store.Sales, order)
	if err != nil {
		app.writeError(w, r, err)
		return
	}
	app.jsonResponse(w, http.StatusOK, result)
}

type changeOrderStatusPayload struct {
	Status     string  `json:"status" validate:"required"`
	PaymentRef *string `json:"payment_ref"`
	PaidAmount *int64  `json:"paid_amount"`
}

func (app *application) changeOrderStatusHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)
	orderID, err := parseIDParam(r)
	if err != nil {
		app.writeError(w, r, err)
		return
	}

	var payload changeOrderStatusPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.writeError(w, r, domainerrors.Wrap(domainerrors.Validation, "invalid request body", err))
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.writeError(w, r, domainerrors.Wrap(domainerrors.Validation, "invalid request body", err))
		return
	}

	to := orders.Status(payload.Status)

	var result *orders.OrderWithItems
	err = app.store.WithSalesTx(r.Context(), func(s storage.Sales) error {
		order, err := s.Orders.GetForUpdate(r.Context(), orderID)
		if err != nil {
			return err
		}
		if err := requireOwnerOrAdmin(order, user); err != nil {
			return err
		}

		if to == orders.StatusPaid {
			if !user.IsAdmin {
				return domainerrors.New(domainerrors.Forbidden, "admin privileges required to mark an order paid")
			}
			if payload.PaymentRef == nil || payload.PaidAmount == nil {
				return domainerrors.New(domainerrors.Validation, "payment_ref and paid_amount are required")
			}
			if _, err := s.Payments.ConfirmManualPaymentForOrder(r.Context(), s.Orders, s.Reservations, orderID, user.ID, *payload.PaymentRef, *payload.PaidAmount); err != nil {
				return err
			}
		} else {
			if err := s.Orders.ChangeStatus(r.Context(), s.Reservations, orderID, to); err != nil {
				return err
			}
		}

		order, err = s.Orders.GetByID(r.Context(), orderID)
		if err != nil {
			return err
		}
		result, err = withItems(r.Context(), s, order)
		return err
	})
	if err != nil {
		app.writeError(w, r, err)
		return
	}
	app.jsonResponse(w, http.StatusOK, result)
}

type payOrderPayload struct {
	PaymentRef  string `json:"payment_ref" validate:"required"`
	PaidAmount  int64  `json:"paid_amount" validate:"required,gt=0"`
}

func (app *application) payOrderHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)
	orderID, err := parseIDParam(r)
	if err != nil {
		app.writeError(w, r, err)
		return
	}

	var payload payOrderPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.writeError(w, r, domainerrors.Wrap(domainerrors.Validation, "invalid request body", err))
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.writeError(w, r, domainerrors.Wrap(domainerrors.Validation, "invalid request body", err))
		return
	}

	var result *orders.OrderWithItems
	err = app.store.WithSalesTx(r.Context(), func(s storage.Sales) error {
		order, err := s.Orders.GetForUpdate(r.Context(), orderID)
		if err != nil {
			return err
		}
		if err := requireOwnerOrAdmin(order, user); err != nil {
			return err
		}
		if _, err := s.Payments.ConfirmManualPaymentForOrder(r.Context(), s.Orders, s.Reservations, orderID, order.UserID, payload.PaymentRef, payload.PaidAmount); err != nil {
			return err
		}
		order, err = s.Orders.GetByID(r.Context(), orderID)
		if err != nil {
			return err
		}
		result, err = withItems(r.Context(), s, order)
		return err
	})
	if err != nil {
		app.writeError(w, r, err)
		return
	}

	if user.Email != "" {
		go app.sendPaymentReceipt(user, result.Order)
	}
	app.jsonResponse(w, http.StatusOK, result)
}
