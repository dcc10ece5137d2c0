// Package orders is the order aggregate: the draft cart stand-in, its line
// items, and the status state machine. Repository shape and pagination
// idiom (COUNT(*) OVER()) are grounded on the reference orders.Repository;
// the draft get-or-create race handling borrows the reference carts
// package's retry-on-unique-violation idiom.
package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"salescore/internal/domain/catalog"
	"salescore/internal/domain/discounts"
	"salescore/internal/domainerrors"
	"salescore/internal/infra/dbx"

	"github.com/jackc/pgx/v5"
)

type Repository struct{ q dbx.Querier }

func NewRepository(q dbx.Querier) *Repository { return &Repository{q: q} }

const orderColumns = `id, user_id, status, currency, subtotal_cents, discount_cents, total_cents,
pricing_frozen, pricing_frozen_at, submitted_at, paid_at, cancelled_at, created_at, updated_at`

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	err := row.Scan(
		&o.ID, &o.UserID, &o.Status, &o.Currency, &o.SubtotalCents, &o.DiscountCents, &o.TotalCents,
		&o.PricingFrozen, &o.PricingFrozenAt, &o.SubmittedAt, &o.PaidAt, &o.CancelledAt, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *Repository) GetByID(ctx context.Context, id int64) (*Order, error) {
	row := r.q.QueryRow(ctx, fmt.Sprintf(`SELECT %s FROM orders WHERE id=$1`, orderColumns), id)
	o, err := scanOrder(row)
	if err == pgx.ErrNoRows {
		return nil, domainerrors.New(domainerrors.NotFound, "order not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

// GetForUpdate locks the order row; callers must already be inside a
// transaction.
func (r *Repository) GetForUpdate(ctx context.Context, id int64) (*Order, error) {
	row := r.q.QueryRow(ctx, fmt.Sprintf(`SELECT %s FROM orders WHERE id=$1 FOR UPDATE`, orderColumns), id)
	o, err := scanOrder(row)
	if err == pgx.ErrNoRows {
		return nil, domainerrors.New(domainerrors.NotFound, "order not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get order for update: %w", err)
	}
	return o, nil
}

// GetOrCreateDraft returns the user's unique draft order, creating one if
// none exists. Races on the partial unique index (user_id) WHERE
// status='draft' resolve the same way the reference cart repository
// resolves concurrent cart creation: retry by reading the row that won. The
// insert uses ON CONFLICT DO NOTHING, so losing the race leaves the
// surrounding transaction usable for that read.
func (r *Repository) GetOrCreateDraft(ctx context.Context, userID int64) (*Order, error) {
	const maxAttempts = 2

	for attempt := 0; attempt < maxAttempts; attempt++ {
		row := r.q.QueryRow(ctx, fmt.Sprintf(`SELECT %s FROM orders WHERE user_id=$1 AND status='draft'`, orderColumns), userID)
		if o, err := scanOrder(row); err == nil {
			return o, nil
		} else if err != pgx.ErrNoRows {
			return nil, fmt.Errorf("lookup draft: %w", err)
		}

		row = r.q.QueryRow(ctx, `
INSERT INTO orders (user_id, status, currency, subtotal_cents, discount_cents, total_cents)
VALUES ($1, 'draft', 'ARS', 0, 0, 0)
ON CONFLICT DO NOTHING
RETURNING `+orderColumns, userID)
		o, err := scanOrder(row)
		if err == nil {
			return o, nil
		}
		if err == pgx.ErrNoRows || dbx.UniqueViolation(err, "") {
			continue
		}
		return nil, fmt.Errorf("create draft: %w", err)
	}
	return nil, fmt.Errorf("get or create draft: exhausted retries")
}

func (r *Repository) ListItems(ctx context.Context, orderID int64) ([]Item, error) {
	rows, err := r.q.Query(ctx, `
SELECT id, order_id, variant_id, quantity, unit_price_cents, discount_id, discount_amount_cents,
       final_unit_price_cents, line_total_cents, created_at, updated_at
FROM order_items WHERE order_id=$1 ORDER BY id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var out []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(
			&it.ID, &it.OrderID, &it.VariantID, &it.Quantity, &it.UnitPriceCents, &it.DiscountID,
			&it.DiscountAmountCents, &it.FinalUnitPriceCents, &it.LineTotalCents, &it.CreatedAt, &it.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// AddItem increments quantity in place if the variant is already on the
// draft, else inserts a new line at the variant's current price. Caller
// must hold the order row lock and call Reprice afterward.
func (r *Repository) AddItem(ctx context.Context, orderID, variantID int64, qty int32, unitPriceCents int64) error {
	if qty <= 0 {
		return domainerrors.New(domainerrors.Validation, "quantity must be positive")
	}
	tag, err := r.q.Exec(ctx, `
UPDATE order_items SET quantity = quantity + $3, updated_at = now()
WHERE order_id=$1 AND variant_id=$2`, orderID, variantID, qty)
	if err != nil {
		return fmt.Errorf("increment item: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	_, err = r.q.Exec(ctx, `
INSERT INTO order_items (order_id, variant_id, quantity, unit_price_cents, final_unit_price_cents, line_total_cents)
VALUES ($1,$2,$3,$4,$4,$4*$3)`, orderID, variantID, qty, unitPriceCents)
	if err != nil {
		return fmt.Errorf("insert item: %w", err)
	}
	return nil
}

func (r *Repository) RemoveItem(ctx context.Context, orderID, itemID int64) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM order_items WHERE id=$1 AND order_id=$2`, itemID, orderID)
	if err != nil {
		return fmt.Errorf("remove item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainerrors.New(domainerrors.NotFound, "order item not found")
	}
	return nil
}

// Reprice recomputes every item's discount fields via the discounts engine
// against the current catalog price and candidate discount set, then
// updates order totals. Pass force=true to reprice even a frozen order. No
// caller in this module passes force=true, and ChangeStatus does not call
// Reprice, so a submitted order keeps the totals of its last draft re-price.
func (r *Repository) Reprice(ctx context.Context, orderID int64, catalogRepo *catalog.Repository, discountRepo *discounts.Repository, force bool) error {
	order, err := r.GetForUpdate(ctx, orderID)
	if err != nil {
		return err
	}
	if order.PricingFrozen && !force {
		return nil
	}

	items, err := r.ListItems(ctx, orderID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	candidates, err := discountRepo.ActiveCandidates(ctx, now)
	if err != nil {
		return err
	}

	var lines []discounts.OrderLine
	for i := range items {
		item := &items[i]
		variant, err := catalogRepo.GetActiveVariant(ctx, item.VariantID)
		unitPrice := item.UnitPriceCents
		var product discounts.PricedProduct
		if err == nil {
			unitPrice = variant.PriceCents
			p, perr := catalogRepo.GetByID(ctx, variant.ProductID)
			if perr == nil {
				product.ID = p.ID
				if p.CategoryName != nil {
					product.CategoryName = *p.CategoryName
				}
			}
		}

		result := discounts.RecomputeLine(unitPrice, item.Quantity, product, candidates, now)
		if _, err := r.q.Exec(ctx, `
UPDATE order_items
SET unit_price_cents=$2, discount_id=$3, discount_amount_cents=$4, final_unit_price_cents=$5, line_total_cents=$6, updated_at=now()
WHERE id=$1`, item.ID, unitPrice, result.DiscountID, result.DiscountAmountCents, result.FinalUnitPriceCents, result.LineTotalCents); err != nil {
			return fmt.Errorf("update item pricing: %w", err)
		}

		lines = append(lines, discounts.OrderLine{
			Quantity:            item.Quantity,
			UnitPriceCents:      unitPrice,
			FinalUnitPriceCents: result.FinalUnitPriceCents,
		})
	}

	totals := discounts.RecomputeOrderTotals(lines)
	_, err = r.q.Exec(ctx, `
UPDATE orders SET subtotal_cents=$2, discount_cents=$3, total_cents=$4, updated_at=now()
WHERE id=$1`, orderID, totals.SubtotalCents, totals.DiscountTotalCents, totals.TotalAmountCents)
	if err != nil {
		return fmt.Errorf("update order totals: %w", err)
	}
	return nil
}

// ValidTransition enforces the state machine: draft->submitted->{paid,cancelled};
// submitted->cancelled; paid and cancelled are terminal.
func ValidTransition(from, to Status) error {
	switch {
	case from == StatusDraft && to == StatusSubmitted:
		return nil
	case from == StatusSubmitted && to == StatusPaid:
		return nil
	case from == StatusSubmitted && to == StatusCancelled:
		return nil
	case from == to && (from == StatusPaid || from == StatusCancelled):
		// idempotent re-application is handled by the caller, not here
		return nil
	default:
		return domainerrors.New(domainerrors.Validation, fmt.Sprintf("invalid status transition %s -> %s", from, to))
	}
}

func (r *Repository) MarkSubmitted(ctx context.Context, orderID int64) error {
	now := time.Now().UTC()
	_, err := r.q.Exec(ctx, `
UPDATE orders SET status='submitted', pricing_frozen=true, pricing_frozen_at=$2, submitted_at=$2, updated_at=$2
WHERE id=$1`, orderID, now)
	if err != nil {
		return fmt.Errorf("mark submitted: %w", err)
	}
	return nil
}

func (r *Repository) MarkCancelled(ctx context.Context, orderID int64) error {
	now := time.Now().UTC()
	_, err := r.q.Exec(ctx, `
UPDATE orders SET status='cancelled', cancelled_at=COALESCE(cancelled_at,$2), updated_at=$2
WHERE id=$1`, orderID, now)
	if err != nil {
		return fmt.Errorf("mark cancelled: %w", err)
	}
	return nil
}

func (r *Repository) MarkPaid(ctx context.Context, orderID int64) error {
	now := time.Now().UTC()
	_, err := r.q.Exec(ctx, `
UPDATE orders SET status='paid', paid_at=COALESCE(paid_at,$2), updated_at=$2
WHERE id=$1`, orderID, now)
	if err != nil {
		return fmt.Errorf("mark paid: %w", err)
	}
	return nil
}

func (r *Repository) ListByUser(ctx context.Context, userID int64, status string, limit, offset int) ([]Order, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`
SELECT %s, COUNT(*) OVER() AS total_count
FROM orders
WHERE user_id=$1 AND ($2 = '' OR status = $2)
ORDER BY created_at DESC
LIMIT $3 OFFSET $4`, orderColumns)

	rows, err := r.q.Query(ctx, query, userID, status, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var out []Order
	var total int
	for rows.Next() {
		var o Order
		var t int
		if err := rows.Scan(
			&o.ID, &o.UserID, &o.Status, &o.Currency, &o.SubtotalCents, &o.DiscountCents, &o.TotalCents,
			&o.PricingFrozen, &o.PricingFrozenAt, &o.SubmittedAt, &o.PaidAt, &o.CancelledAt, &o.CreatedAt, &o.UpdatedAt,
			&t,
		); err != nil {
			return nil, 0, fmt.Errorf("scan order: %w", err)
		}
		if total == 0 {
			total = t
		}
		out = append(out, o)
	}
	return out, total, rows.Err()
}

var ErrEmptyDraft = errors.New("draft order has no items")
