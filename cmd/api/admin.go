package main

import (
	"net/http"
	"strconv"
	"time"

	"salescore/internal/domainerrors"
)

func (app *application) expireReservationsHandler(w http.ResponseWriter, r *http.Request) {
	n, err := app.store.Sales.Reservations.ExpireActiveReservations(r.Context(), time.Now().UTC())
	if err != nil {
		app.writeError(w, r, err)
		return
	}
	app.jsonResponse(w, http.StatusOK, map[string]int{"expired_count": n})
}

func (app *application) searchUsersHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		app.writeError(w, r, domainerrors.New(domainerrors.Validation, "q query parameter is required"))
		return
	}
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	results, err := app.store.Users.SearchByEmail(r.Context(), q, limit)
	if err != nil {
		app.writeError(w, r, err)
		return
	}
	app.jsonResponse(w, http.StatusOK, results)
}

type resolveUserPayload struct {
	Email     string  `json:"email" validate:"required,email"`
	FirstName string  `json:"first_name" validate:"required"`
	LastName  string  `json:"last_name" validate:"required"`
	Phone     *string `json:"phone"`
	DNI       *string `json:"dni"`
}

func (app *application) resolveUserHandler(w http.ResponseWriter, r *http.Request) {
	var payload resolveUserPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.writeError(w, r, domainerrors.Wrap(domainerrors.Validation, "invalid request body", err))
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.writeError(w, r, domainerrors.Wrap(domainerrors.Validation, "invalid request body", err))
		return
	}

	user, created, err := app.store.Users.GetOrCreateUserByContact(
		r.Context(), payload.Email, payload.FirstName, payload.LastName, payload.Phone, payload.DNI,
	)
	if err != nil {
		app.writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	app.jsonResponse(w, status, user)
}
