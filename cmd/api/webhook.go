package main

import (
	"encoding/json"
	"net/http"

	"salescore/internal/reconcile"
)

// mercadopagoWebhookHandler is mounted with no bearer-auth middleware;
// authentication is the x-signature HMAC checked inside HandleNotification.
func (app *application) mercadopagoWebhookHandler(w http.ResponseWriter, r *http.Request) {
	var payload map[string]any
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		// MercadoPago's retrier treats non-2xx as delivery failure and keeps
		// retrying; a malformed body is never going to parse differently, so
		// this is a soft no-op logged at 200, not a hard 400.
		app.logger.Warnw("webhook payload is not valid JSON", "error", err)
		app.jsonResponse(w, http.StatusOK, map[string]any{
			"processed": false,
			"reason":    "invalid webhook payload",
		})
		return
	}

	signature := r.Header.Get("x-signature")
	requestID := r.Header.Get("x-request-id")

	outcome, err := reconcile.HandleNotification(
		r.Context(), app.store, app.mpClient, app.config.MercadoPago.WebhookSecret,
		payload, signature, requestID,
	)
	if err != nil {
		app.writeError(w, r, err)
		return
	}
	app.jsonResponse(w, http.StatusOK, map[string]any{
		"processed": outcome.Accepted,
		"reason":    outcome.Reason,
	})
}
