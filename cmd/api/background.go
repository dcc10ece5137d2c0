package main

import (
	"context"
	"time"
)

func (app *application) sweepExpiredReservations(ctx context.Context) {
	n, err := app.store.Sales.Reservations.ExpireActiveReservations(ctx, time.Now().UTC())
	if err != nil {
		app.logger.Errorw("reservation sweep failed", "error", err)
		return
	}
	if n > 0 {
		app.logger.Infow("reservation sweep expired reservations", "count", n)
	}
}

// runReservationSweep periodically reclaims stock held by reservations whose
// TTL has elapsed without a confirmed payment, per RESERVATION_SWEEP_INTERVAL_MINUTES.
func (app *application) runReservationSweep(ctx context.Context) {
	interval := app.config.Reservation.SweepInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				app.logger.Errorw("recovered from panic in reservation sweep", "panic", r)
			}
		}()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		app.sweepExpiredReservations(ctx)

		for {
			select {
			case <-ctx.Done():
				app.logger.Info("stopped reservation sweep due to context cancellation")
				return
			case <-ticker.C:
				app.sweepExpiredReservations(ctx)
			}
		}
	}()
}
