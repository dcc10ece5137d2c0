package reservations

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// ExpireActiveReservations scans every active reservation whose expires_at
// has passed, groups by order, and for each group either leaves it expired,
// reactivates it once, or cascades to cancel the order. Returns the count
// of reservations that ended up expired (reactivated ones don't count).
//
// Operates directly on stock_reservations/orders/payments via SQL rather
// than importing the orders/payments packages, to avoid an import cycle
// (those packages call into ReserveStockForSubmittedOrder etc.).
func (r *Repository) ExpireActiveReservations(ctx context.Context, now time.Time) (int, error) {
	rows, err := r.q.Query(ctx, fmt.Sprintf(`
SELECT %s FROM stock_reservations
WHERE status='active' AND expires_at <= $1
ORDER BY order_id, id`, reservationColumns), now)
	if err != nil {
		return 0, fmt.Errorf("scan expiring reservations: %w", err)
	}
	expiring, err := collectReservations(rows)
	rows.Close()
	if err != nil {
		return 0, err
	}
	if len(expiring) == 0 {
		return 0, nil
	}

	byOrder := make(map[int64][]Reservation)
	var orderIDs []int64
	for _, res := range expiring {
		if _, ok := byOrder[res.OrderID]; !ok {
			orderIDs = append(orderIDs, res.OrderID)
		}
		byOrder[res.OrderID] = append(byOrder[res.OrderID], res)
	}
	sort.Slice(orderIDs, func(i, j int) bool { return orderIDs[i] < orderIDs[j] })

	reasonExpired := "reservation_expired"
	expiredCount := 0

	for _, orderID := range orderIDs {
		group := byOrder[orderID]

		// Starting hypothesis: mark all as expired.
		for _, res := range group {
			if _, err := r.q.Exec(ctx, `
UPDATE stock_reservations SET status='expired', released_at=$2, reason=$3, updated_at=$2
WHERE id=$1`, res.ID, now, reasonExpired); err != nil {
				return expiredCount, fmt.Errorf("mark reservation expired: %w", err)
			}
		}

		var orderStatus OrderStatus
		if err := r.q.QueryRow(ctx, `SELECT status FROM orders WHERE id=$1 FOR UPDATE`, orderID).Scan(&orderStatus); err != nil {
			return expiredCount, fmt.Errorf("lock order %d: %w", orderID, err)
		}

		classifyGroup := ExpiringGroup{OrderID: orderID, OrderStatus: orderStatus}
		for _, res := range group {
			classifyGroup.Items = append(classifyGroup.Items, ExpiringItem{
				ReservationID:     res.ID,
				VariantID:         res.VariantID,
				Quantity:          res.Quantity,
				ReactivationCount: res.ReactivationCount,
			})
		}

		if orderStatus != OrderSubmitted {
			expiredCount += len(group)
			continue
		}

		variantIDs := make([]int64, 0, len(group))
		seen := make(map[int64]bool)
		for _, item := range classifyGroup.Items {
			if !seen[item.VariantID] {
				seen[item.VariantID] = true
				variantIDs = append(variantIDs, item.VariantID)
			}
		}
		sort.Slice(variantIDs, func(i, j int) bool { return variantIDs[i] < variantIDs[j] })

		stockByVariant := make(map[int64]int32, len(variantIDs))
		for _, variantID := range variantIDs {
			var stock int32
			if err := r.q.QueryRow(ctx, `SELECT stock FROM product_variants WHERE id=$1 FOR UPDATE`, variantID).Scan(&stock); err != nil {
				return expiredCount, fmt.Errorf("lock variant %d: %w", variantID, err)
			}
			stockByVariant[variantID] = stock
		}
		reservedByVariant, err := r.activeReservedQty(ctx, variantIDs, now)
		if err != nil {
			return expiredCount, err
		}
		available := make(map[int64]int32, len(variantIDs))
		for _, variantID := range variantIDs {
			available[variantID] = stockByVariant[variantID] - reservedByVariant[variantID]
		}

		outcome := ClassifyExpirationOutcome(classifyGroup, available)

		switch outcome.Kind {
		case OutcomeReactivated:
			reactivatedAt := now.Add(ReactivationTTL)
			for _, res := range group {
				if _, err := r.q.Exec(ctx, `
UPDATE stock_reservations
SET status='active', expires_at=$2, reactivation_count=reactivation_count+1,
    released_at=NULL, consumed_at=NULL, reason=NULL, updated_at=$3
WHERE id=$1`, res.ID, reactivatedAt, now); err != nil {
					return expiredCount, fmt.Errorf("reactivate reservation: %w", err)
				}
			}
			// Reactivated reservations don't count toward the expired total.
		case OutcomeCascadeCancel, OutcomeExpiredOnly:
			expiredCount += len(group)
			if outcome.Kind == OutcomeCascadeCancel {
				if _, err := r.q.Exec(ctx, `
UPDATE orders SET status='cancelled', cancelled_at=COALESCE(cancelled_at,$2), updated_at=$2
WHERE id=$1`, orderID, now); err != nil {
					return expiredCount, fmt.Errorf("cascade cancel order %d: %w", orderID, err)
				}
				if _, err := r.q.Exec(ctx, `
UPDATE payments
SET status='cancelled', provider_status='order_cancelled_reservation_expired', updated_at=$2
WHERE order_id=$1 AND status='pending'`, orderID, now); err != nil {
					return expiredCount, fmt.Errorf("cascade cancel payments for order %d: %w", orderID, err)
				}
			}
		}
	}

	return expiredCount, nil
}
