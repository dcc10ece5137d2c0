package orders

import (
	"context"
	"fmt"

	"salescore/internal/domain/reservations"
	"salescore/internal/domainerrors"
)

// ChangeStatus drives the order state machine for the non-payment
// transitions (draft->submitted, *->cancelled). Paid transitions are owned
// by the payments package since they require payment-specific validation;
// callers route a "paid" target there instead of here. Must run inside a
// transaction with the order row already locked by GetForUpdate.
func (r *Repository) ChangeStatus(ctx context.Context, reservationsRepo *reservations.Repository, orderID int64, to Status) error {
	order, err := r.GetForUpdate(ctx, orderID)
	if err != nil {
		return err
	}

	if order.Status == to && (to == StatusPaid || to == StatusCancelled) {
		return nil
	}

	if err := ValidTransition(order.Status, to); err != nil {
		return err
	}

	switch to {
	case StatusSubmitted:
		items, err := r.ListItems(ctx, orderID)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return domainerrors.New(domainerrors.Validation, "draft order has no items")
		}
		if err := r.MarkSubmitted(ctx, orderID); err != nil {
			return err
		}

		reservationItems := make([]reservations.OrderItem, 0, len(items))
		variantIDs := make([]int64, 0, len(items))
		for _, item := range items {
			reservationItems = append(reservationItems, reservations.OrderItem{
				ItemID: item.ID, VariantID: item.VariantID, Quantity: item.Quantity,
			})
			variantIDs = append(variantIDs, item.VariantID)
		}
		stockByVariant, err := r.lockVariantStock(ctx, variantIDs)
		if err != nil {
			return err
		}
		if _, err := reservationsRepo.ReserveStockForSubmittedOrder(ctx, orderID, reservationItems, stockByVariant); err != nil {
			return err
		}

	case StatusCancelled:
		if err := r.MarkCancelled(ctx, orderID); err != nil {
			return err
		}
		if _, err := reservationsRepo.ReleaseReservationsForCancelledOrder(ctx, orderID, "order_cancelled"); err != nil {
			return err
		}

	default:
		return domainerrors.New(domainerrors.Validation, fmt.Sprintf("unsupported target status %s", to))
	}

	return nil
}

// lockVariantStock locks each variant row in ascending id order (the
// reservation manager's documented locking discipline) and returns its
// current stock.
func (r *Repository) lockVariantStock(ctx context.Context, variantIDs []int64) (map[int64]int32, error) {
	unique := make(map[int64]bool, len(variantIDs))
	var sorted []int64
	for _, id := range variantIDs {
		if !unique[id] {
			unique[id] = true
			sorted = append(sorted, id)
		}
	}
	for i := 0; i < len(sorted); i++ {
		for j := i + 1; j < len(sorted); j++ {
			if sorted[j] < sorted[i] {
				sorted[i], sorted[j] = sorted[j], sorted[i]
			}
		}
	}

	out := make(map[int64]int32, len(sorted))
	for _, id := range sorted {
		var stock int32
		if err := r.q.QueryRow(ctx, `SELECT stock FROM product_variants WHERE id=$1 FOR UPDATE`, id).Scan(&stock); err != nil {
			return nil, fmt.Errorf("lock variant %d: %w", id, err)
		}
		out[id] = stock
	}
	return out, nil
}
