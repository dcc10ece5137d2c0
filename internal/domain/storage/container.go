// Package storage wires every repository to a shared pgxpool.Pool and
// provides the unit-of-work helper (WithSalesTx) plus a SAVEPOINT helper
// (WithSavepoint) used for webhook event acquisition. Shape follows the
// reference Container/Sales/WithSalesTx, generalized from a
// venue-booking Container to the sales-core repository set.
package storage

import (
	"context"
	"fmt"

	"salescore/internal/domain/catalog"
	"salescore/internal/domain/discounts"
	"salescore/internal/domain/orders"
	"salescore/internal/domain/payments"
	"salescore/internal/domain/refreshsessions"
	"salescore/internal/domain/reservations"
	"salescore/internal/domain/turns"
	"salescore/internal/domain/users"
	"salescore/internal/domain/webhookevents"
	"salescore/internal/infra/dbx"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Sales is the repository set the transactional core operates on.
type Sales struct {
	Catalog       *catalog.Repository
	Discounts     *discounts.Repository
	Orders        *orders.Repository
	Reservations  *reservations.Repository
	Payments      *payments.Repository
	WebhookEvents *webhookevents.Repository
}

type Container struct {
	pool            *pgxpool.Pool
	Users           *users.Repository
	Turns           *turns.Repository
	RefreshSessions *refreshsessions.Repository
	Sales           Sales
}

func NewContainer(db *pgxpool.Pool) *Container {
	return &Container{
		pool:            db,
		Users:           users.NewRepository(db),
		Turns:           turns.NewRepository(db),
		RefreshSessions: refreshsessions.NewRepository(db),
		Sales:           newSales(db),
	}
}

func newSales(q dbx.Querier) Sales {
	return Sales{
		Catalog:       catalog.NewRepository(q),
		Discounts:     discounts.NewRepository(q),
		Orders:        orders.NewRepository(q),
		Reservations:  reservations.NewRepository(q),
		Payments:      payments.NewRepository(q),
		WebhookEvents: webhookevents.NewRepository(q),
	}
}

// WithSalesTx runs a sales unit-of-work atomically: every repository in the
// returned Sales is bound to the same transaction.
func (c *Container) WithSalesTx(ctx context.Context, fn func(s Sales) error) error {
	return c.WithSalesTxRaw(ctx, func(_ pgx.Tx, s Sales) error { return fn(s) })
}

// WithSalesTxRaw is WithSalesTx but also hands the caller the underlying
// pgx.Tx, for the rare operation (the webhook reconciler's dedup
// acquisition) that needs to open its own SAVEPOINT via WithSavepoint.
func (c *Container) WithSalesTxRaw(ctx context.Context, fn func(tx pgx.Tx, s Sales) error) error {
	if c.pool == nil {
		return fmt.Errorf("storage: container pool is nil")
	}

	tx, err := c.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin sales tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx, newSales(tx)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// WithSavepoint runs fn inside a nested transaction implemented by pgx as a
// SAVEPOINT/RELEASE SAVEPOINT/ROLLBACK TO SAVEPOINT sequence on tx, so an
// error inside fn is rolled back without aborting the outer transaction.
// The webhook reconciler uses it for event acquisition; payment creation
// does not use it.
func WithSavepoint(ctx context.Context, tx pgx.Tx, fn func(sp pgx.Tx) error) error {
	sp, err := tx.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin savepoint: %w", err)
	}
	if err := fn(sp); err != nil {
		_ = sp.Rollback(ctx)
		return err
	}
	return sp.Commit(ctx)
}
