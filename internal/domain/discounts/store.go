package discounts

import (
	"context"
	"fmt"
	"time"

	"salescore/internal/infra/dbx"

	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"
)

// Repository persists discounts and their product_list memberships. It has
// no HTTP surface of its own (discounts are admin/back-office only), but is
// read by the orders aggregate on every re-price.
type Repository struct{ q dbx.Querier }

func NewRepository(q dbx.Querier) *Repository { return &Repository{q: q} }

func scanDiscount(row pgx.Row) (*Discount, error) {
	var d Discount
	var productIDs []int64
	if err := row.Scan(
		&d.ID, &d.Name, &d.Type, &d.Value, &d.Scope, &d.ScopeValue, &d.IsActive,
		&d.StartsAt, &d.EndsAt, pq.Array(&productIDs),
	); err != nil {
		return nil, err
	}
	d.ProductIDs = productIDs
	return &d, nil
}

const discountColumns = `
d.id, d.name, d.type, d.value, d.scope, d.scope_value, d.is_active, d.starts_at, d.ends_at,
COALESCE(ARRAY_AGG(dp.product_id) FILTER (WHERE dp.product_id IS NOT NULL), '{}')`

const discountFromJoin = `
FROM discounts d
LEFT JOIN discount_products dp ON dp.discount_id = d.id`

const discountGroupBy = `GROUP BY d.id`

func (r *Repository) GetByID(ctx context.Context, id int64) (*Discount, error) {
	row := r.q.QueryRow(ctx, fmt.Sprintf(`SELECT %s %s WHERE d.id=$1 %s`, discountColumns, discountFromJoin, discountGroupBy), id)
	return scanDiscount(row)
}

// ActiveCandidates returns every discount that could possibly apply right
// now: active rows whose validity window contains now. The caller still runs
// ApplicableTo/IsValidAt per product since scope matching needs product data.
func (r *Repository) ActiveCandidates(ctx context.Context, now time.Time) ([]Discount, error) {
	query := fmt.Sprintf(`
SELECT %s %s
WHERE d.is_active
  AND (d.starts_at IS NULL OR d.starts_at <= $1)
  AND (d.ends_at IS NULL OR d.ends_at >= $1)
%s
ORDER BY d.id`, discountColumns, discountFromJoin, discountGroupBy)

	rows, err := r.q.Query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("list active discounts: %w", err)
	}
	defer rows.Close()

	var out []Discount
	for rows.Next() {
		d, err := scanDiscount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan discount: %w", err)
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

func (r *Repository) List(ctx context.Context) ([]Discount, error) {
	query := fmt.Sprintf(`SELECT %s %s %s ORDER BY d.id`, discountColumns, discountFromJoin, discountGroupBy)
	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list discounts: %w", err)
	}
	defer rows.Close()

	var out []Discount
	for rows.Next() {
		d, err := scanDiscount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan discount: %w", err)
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

// Create inserts the discount row and, for scope=product_list, its product
// memberships. Assumes it runs inside a transaction when ProductIDs is
// non-empty since it issues two statements.
func (r *Repository) Create(ctx context.Context, d Discount) (*Discount, error) {
	err := r.q.QueryRow(ctx, `
INSERT INTO discounts (name, type, value, scope, scope_value, is_active, starts_at, ends_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
RETURNING id`,
		d.Name, d.Type, d.Value, d.Scope, d.ScopeValue, d.IsActive, d.StartsAt, d.EndsAt,
	).Scan(&d.ID)
	if err != nil {
		return nil, fmt.Errorf("insert discount: %w", err)
	}

	if d.Scope == ScopeProductList && len(d.ProductIDs) > 0 {
		if err := r.setProductList(ctx, d.ID, d.ProductIDs); err != nil {
			return nil, err
		}
	}
	return r.GetByID(ctx, d.ID)
}

func (r *Repository) Update(ctx context.Context, d Discount) (*Discount, error) {
	_, err := r.q.Exec(ctx, `
UPDATE discounts
SET name=$2, type=$3, value=$4, scope=$5, scope_value=$6, is_active=$7, starts_at=$8, ends_at=$9
WHERE id=$1`,
		d.ID, d.Name, d.Type, d.Value, d.Scope, d.ScopeValue, d.IsActive, d.StartsAt, d.EndsAt,
	)
	if err != nil {
		return nil, fmt.Errorf("update discount: %w", err)
	}

	if err := r.setProductList(ctx, d.ID, d.ProductIDs); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, d.ID)
}

func (r *Repository) setProductList(ctx context.Context, discountID int64, productIDs []int64) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM discount_products WHERE discount_id=$1`, discountID); err != nil {
		return fmt.Errorf("clear discount_products: %w", err)
	}
	if len(productIDs) == 0 {
		return nil
	}
	_, err := r.q.Exec(ctx, `
INSERT INTO discount_products (discount_id, product_id)
SELECT $1, UNNEST($2::bigint[])`, discountID, pq.Array(productIDs))
	if err != nil {
		return fmt.Errorf("insert discount_products: %w", err)
	}
	return nil
}

func (r *Repository) Deactivate(ctx context.Context, id int64) error {
	_, err := r.q.Exec(ctx, `UPDATE discounts SET is_active=false WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("deactivate discount: %w", err)
	}
	return nil
}
