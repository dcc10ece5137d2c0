package main

import (
	"net/http"
	"time"

	"salescore/internal/domainerrors"
)

type createTurnPayload struct {
	ScheduledAt *time.Time `json:"scheduled_at"`
	Notes       *string    `json:"notes"`
	OrderID     *int64     `json:"order_id"`
}

func (app *application) createTurnHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)

	var payload createTurnPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.writeError(w, r, domainerrors.Wrap(domainerrors.Validation, "invalid request body", err))
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.writeError(w, r, domainerrors.Wrap(domainerrors.Validation, "invalid request body", err))
		return
	}

	var scheduledAt *string
	if payload.ScheduledAt != nil {
		s := payload.ScheduledAt.UTC().Format(time.RFC3339)
		scheduledAt = &s
	}

	turn, err := app.store.Turns.Create(r.Context(), user.ID, payload.OrderID, scheduledAt, payload.Notes)
	if err != nil {
		app.writeError(w, r, err)
		return
	}
	app.jsonResponse(w, http.StatusCreated, turn)
}
