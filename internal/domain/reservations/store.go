// Package reservations implements the stock reservation manager: the TTL,
// single-reactivation, and cascade-cancel machinery described for the
// reference source's stock_reservations_s module, generalized into a pure
// classifier (classify.go) plus a thin transactional driver (this file).
package reservations

import (
	"context"
	"fmt"
	"time"

	"salescore/internal/domainerrors"
	"salescore/internal/infra/dbx"

	"github.com/jackc/pgx/v5"
)

type Repository struct{ q dbx.Querier }

func NewRepository(q dbx.Querier) *Repository { return &Repository{q: q} }

func scanReservation(row pgx.Row) (*Reservation, error) {
	var r Reservation
	err := row.Scan(
		&r.ID, &r.OrderID, &r.OrderItemID, &r.VariantID, &r.Quantity, &r.Status,
		&r.ExpiresAt, &r.ReactivationCount, &r.ConsumedAt, &r.ReleasedAt, &r.Reason,
		&r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

const reservationColumns = `id, order_id, order_item_id, variant_id, quantity, status,
expires_at, reactivation_count, consumed_at, released_at, reason, created_at, updated_at`

func (r *Repository) ListActiveByOrder(ctx context.Context, orderID int64) ([]Reservation, error) {
	rows, err := r.q.Query(ctx, fmt.Sprintf(`
SELECT %s FROM stock_reservations
WHERE order_id=$1 AND status='active'
ORDER BY id`, reservationColumns), orderID)
	if err != nil {
		return nil, fmt.Errorf("list active reservations: %w", err)
	}
	defer rows.Close()
	return collectReservations(rows)
}

func (r *Repository) ListAllByOrder(ctx context.Context, orderID int64) ([]Reservation, error) {
	rows, err := r.q.Query(ctx, fmt.Sprintf(`
SELECT %s FROM stock_reservations WHERE order_id=$1 ORDER BY id`, reservationColumns), orderID)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	defer rows.Close()
	return collectReservations(rows)
}

func collectReservations(rows pgx.Rows) ([]Reservation, error) {
	var out []Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		out = append(out, *res)
	}
	return out, rows.Err()
}

// activeReservedQty returns, for each variant in variantIDs, the sum of
// quantity across all active non-expired reservations for that variant,
// including any the same order already holds.
func (r *Repository) activeReservedQty(ctx context.Context, variantIDs []int64, now time.Time) (map[int64]int32, error) {
	if len(variantIDs) == 0 {
		return map[int64]int32{}, nil
	}
	rows, err := r.q.Query(ctx, `
SELECT variant_id, COALESCE(SUM(quantity),0)
FROM stock_reservations
WHERE variant_id = ANY($1) AND status='active' AND expires_at > $2
GROUP BY variant_id`, variantIDs, now)
	if err != nil {
		return nil, fmt.Errorf("sum active reservations: %w", err)
	}
	defer rows.Close()

	out := make(map[int64]int32, len(variantIDs))
	for rows.Next() {
		var variantID int64
		var qty int32
		if err := rows.Scan(&variantID, &qty); err != nil {
			return nil, fmt.Errorf("scan reserved qty: %w", err)
		}
		out[variantID] = qty
	}
	return out, rows.Err()
}

// OrderItem is the minimal shape the reservation manager needs from an
// order line, passed in by the orders aggregate to avoid an import cycle.
type OrderItem struct {
	ItemID    int64
	VariantID int64
	Quantity  int32
}

// ReserveStockForSubmittedOrder reserves stock for every item lacking an
// active reservation, all-or-nothing. Must run inside a transaction that
// has already locked the order row.
func (r *Repository) ReserveStockForSubmittedOrder(ctx context.Context, orderID int64, items []OrderItem, stockByVariant map[int64]int32) ([]Reservation, error) {
	existing, err := r.ListActiveByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	covered := make(map[int64]bool, len(existing))
	for _, res := range existing {
		covered[res.OrderItemID] = true
	}

	var pending []OrderItem
	for _, item := range items {
		if !covered[item.ItemID] {
			pending = append(pending, item)
		}
	}
	if len(pending) == 0 {
		return existing, nil
	}

	variantIDs := make([]int64, 0, len(pending))
	for _, item := range pending {
		variantIDs = append(variantIDs, item.VariantID)
	}
	now := time.Now().UTC()
	reserved, err := r.activeReservedQty(ctx, variantIDs, now)
	if err != nil {
		return nil, err
	}

	demand := make(map[int64]int32)
	for _, item := range pending {
		demand[item.VariantID] += item.Quantity
	}
	for variantID, qty := range demand {
		available := stockByVariant[variantID] - reserved[variantID]
		if available < qty {
			return nil, domainerrors.New(domainerrors.Conflict, fmt.Sprintf("insufficient stock for variant %d", variantID))
		}
	}

	expiresAt := now.Add(TTL)
	created := make([]Reservation, 0, len(pending))
	for _, item := range pending {
		var res Reservation
		err := r.q.QueryRow(ctx, `
INSERT INTO stock_reservations (order_id, order_item_id, variant_id, quantity, status, expires_at, reactivation_count)
VALUES ($1,$2,$3,$4,'active',$5,0)
RETURNING `+reservationColumns,
			orderID, item.ItemID, item.VariantID, item.Quantity, expiresAt,
		).Scan(
			&res.ID, &res.OrderID, &res.OrderItemID, &res.VariantID, &res.Quantity, &res.Status,
			&res.ExpiresAt, &res.ReactivationCount, &res.ConsumedAt, &res.ReleasedAt, &res.Reason,
			&res.CreatedAt, &res.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("insert reservation: %w", err)
		}
		created = append(created, res)
	}
	return append(existing, created...), nil
}

// ConsumeReservationsForPaidOrder decrements variant stock for each active
// reservation and marks them consumed. Fails if any UPDATE...WHERE stock >=
// qty affects zero rows.
func (r *Repository) ConsumeReservationsForPaidOrder(ctx context.Context, orderID int64) error {
	active, err := r.ListActiveByOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if len(active) == 0 {
		already, err := r.ListAllByOrder(ctx, orderID)
		if err != nil {
			return err
		}
		for _, res := range already {
			if res.Status != StatusConsumed {
				return domainerrors.New(domainerrors.Conflict, "order has no active reservations to consume")
			}
		}
		return nil
	}

	now := time.Now().UTC()
	reason := "order_paid"
	for _, res := range active {
		tag, err := r.q.Exec(ctx, `UPDATE product_variants SET stock = stock - $1 WHERE id=$2 AND stock >= $1`, res.Quantity, res.VariantID)
		if err != nil {
			return fmt.Errorf("decrement stock: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return domainerrors.New(domainerrors.Conflict, "insufficient stock")
		}
		if _, err := r.q.Exec(ctx, `
UPDATE stock_reservations SET status='consumed', consumed_at=$2, reason=$3, updated_at=$2
WHERE id=$1`, res.ID, now, reason); err != nil {
			return fmt.Errorf("mark reservation consumed: %w", err)
		}
	}
	return nil
}

// ReleaseReservationsForCancelledOrder marks every active reservation for
// an order released, returning the count.
func (r *Repository) ReleaseReservationsForCancelledOrder(ctx context.Context, orderID int64, reason string) (int, error) {
	tag, err := r.q.Exec(ctx, `
UPDATE stock_reservations
SET status='released', released_at=now(), reason=$2, updated_at=now()
WHERE order_id=$1 AND status='active'`, orderID, reason)
	if err != nil {
		return 0, fmt.Errorf("release reservations: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
