// Package payments implements the payment lifecycle: idempotent creation,
// manual confirmation, and MercadoPago normalized-state application. CRUD
// shape follows the reference paymentsrepo.Repository. A unique-constraint
// race on payment insert is not retried: the violation is returned to the
// caller as an error.
package payments

import (
	"context"
	"encoding/json"
	"fmt"

	"salescore/internal/domainerrors"
	"salescore/internal/infra/dbx"

	"github.com/jackc/pgx/v5"
)

type Repository struct{ q dbx.Querier }

func NewRepository(q dbx.Querier) *Repository { return &Repository{q: q} }

const paymentColumns = `id, order_id, user_id, method, status, amount_cents, currency,
idempotency_key, external_ref, provider_status, provider_payload, expires_at, paid_at, created_at, updated_at`

func scanPayment(row pgx.Row) (*Payment, error) {
	var p Payment
	var payload []byte
	err := row.Scan(
		&p.ID, &p.OrderID, &p.UserID, &p.Method, &p.Status, &p.AmountCents, &p.Currency,
		&p.IdempotencyKey, &p.ExternalRef, &p.ProviderStatus, &payload, &p.ExpiresAt, &p.PaidAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &p.ProviderPayload); err != nil {
			return nil, fmt.Errorf("unmarshal provider_payload: %w", err)
		}
	}
	return &p, nil
}

func (r *Repository) GetByID(ctx context.Context, id int64) (*Payment, error) {
	row := r.q.QueryRow(ctx, fmt.Sprintf(`SELECT %s FROM payments WHERE id=$1`, paymentColumns), id)
	p, err := scanPayment(row)
	if err == pgx.ErrNoRows {
		return nil, domainerrors.New(domainerrors.NotFound, "payment not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get payment: %w", err)
	}
	return p, nil
}

func (r *Repository) GetForUpdate(ctx context.Context, id int64) (*Payment, error) {
	row := r.q.QueryRow(ctx, fmt.Sprintf(`SELECT %s FROM payments WHERE id=$1 FOR UPDATE`, paymentColumns), id)
	p, err := scanPayment(row)
	if err == pgx.ErrNoRows {
		return nil, domainerrors.New(domainerrors.NotFound, "payment not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get payment for update: %w", err)
	}
	return p, nil
}

func (r *Repository) GetByIdempotencyKey(ctx context.Context, key string) (*Payment, error) {
	row := r.q.QueryRow(ctx, fmt.Sprintf(`SELECT %s FROM payments WHERE idempotency_key=$1`, paymentColumns), key)
	p, err := scanPayment(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get payment by idempotency key: %w", err)
	}
	return p, nil
}

// GetByExternalRef finds the payment the webhook reconciler's external_ref
// points to; returns nil, nil when none matches.
func (r *Repository) GetByExternalRef(ctx context.Context, externalRef string) (*Payment, error) {
	row := r.q.QueryRow(ctx, fmt.Sprintf(`SELECT %s FROM payments WHERE external_ref=$1`, paymentColumns), externalRef)
	p, err := scanPayment(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get payment by external ref: %w", err)
	}
	return p, nil
}

// GetActivePending returns a pending, non-expired payment for (orderID,
// method) if one exists.
func (r *Repository) GetActivePending(ctx context.Context, orderID int64, method Method) (*Payment, error) {
	row := r.q.QueryRow(ctx, fmt.Sprintf(`
SELECT %s FROM payments
WHERE order_id=$1 AND method=$2 AND status='pending' AND (expires_at IS NULL OR expires_at > now())`, paymentColumns),
		orderID, method)
	p, err := scanPayment(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get active pending payment: %w", err)
	}
	return p, nil
}

func (r *Repository) ListByOrder(ctx context.Context, orderID int64) ([]Payment, error) {
	rows, err := r.q.Query(ctx, fmt.Sprintf(`SELECT %s FROM payments WHERE order_id=$1 ORDER BY id`, paymentColumns), orderID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	var out []Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// Insert relies on a unique constraint on idempotency_key plus a partial
// unique index on (order_id, method) WHERE status='pending'. A violation of
// either is returned unmodified as a dbx.UniqueViolation-compatible error;
// Insert does not retry, and CreatePaymentForOrder wraps the error and
// returns it without looking up the winning row.
func (r *Repository) Insert(ctx context.Context, p Payment) (*Payment, error) {
	payload, err := json.Marshal(p.ProviderPayload)
	if err != nil {
		return nil, fmt.Errorf("marshal provider_payload: %w", err)
	}

	row := r.q.QueryRow(ctx, `
INSERT INTO payments (order_id, user_id, method, status, amount_cents, currency, idempotency_key,
                       external_ref, provider_status, provider_payload, expires_at, paid_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
RETURNING `+paymentColumns,
		p.OrderID, p.UserID, p.Method, p.Status, p.AmountCents, p.Currency, p.IdempotencyKey,
		p.ExternalRef, p.ProviderStatus, payload, p.ExpiresAt, p.PaidAt,
	)
	return scanPayment(row)
}

func (r *Repository) UpdateProviderState(ctx context.Context, id int64, status Status, providerStatus *string, payload map[string]any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal provider_payload: %w", err)
	}
	_, err = r.q.Exec(ctx, `
UPDATE payments SET status=$2, provider_status=$3, provider_payload=$4, updated_at=now()
WHERE id=$1`, id, status, providerStatus, raw)
	if err != nil {
		return fmt.Errorf("update payment provider state: %w", err)
	}
	return nil
}

func (r *Repository) MarkPaid(ctx context.Context, id int64) error {
	_, err := r.q.Exec(ctx, `
UPDATE payments SET status='paid', paid_at=COALESCE(paid_at, now()), updated_at=now()
WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("mark payment paid: %w", err)
	}
	return nil
}
