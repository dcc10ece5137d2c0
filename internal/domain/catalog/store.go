// Package catalog is the read-mostly product/variant store. It mirrors the
// reference products.Repository's ListProductCards CTE but generalizes the
// min-price lookup to ALL variants (not only active ones), since filters
// and sort operate on min_var_price regardless of variant activity.
package catalog

import (
	"context"
	"fmt"

	"salescore/internal/domainerrors"
	"salescore/internal/infra/dbx"

	"github.com/jackc/pgx/v5"
)

type Repository struct{ q dbx.Querier }

func NewRepository(q dbx.Querier) *Repository { return &Repository{q: q} }

// CreateProduct inserts a product row; slug is derived by the caller
// (handler layer) since it is a presentation concern, not a storage one.
func (r *Repository) CreateProduct(ctx context.Context, name, slug string, description *string, categoryID *int64) (*Product, error) {
	id := int64(0)
	err := r.q.QueryRow(ctx, `
INSERT INTO products (name, slug, description, category_id, is_active)
VALUES ($1,$2,$3,$4,true)
RETURNING id`, name, slug, description, categoryID).Scan(&id)
	if dbx.UniqueViolation(err, "") {
		return nil, domainerrors.New(domainerrors.Conflict, "a product with this slug already exists")
	}
	if err != nil {
		return nil, fmt.Errorf("insert product: %w", err)
	}
	return r.GetByID(ctx, id)
}

// UpdateProduct replaces the mutable fields of a product; pass the existing
// values for fields the caller does not want to change.
func (r *Repository) UpdateProduct(ctx context.Context, id int64, name string, description *string, categoryID *int64, isActive bool) (*Product, error) {
	tag, err := r.q.Exec(ctx, `
UPDATE products SET name=$2, description=$3, category_id=$4, is_active=$5, updated_at=now()
WHERE id=$1`, id, name, description, categoryID, isActive)
	if err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, domainerrors.New(domainerrors.NotFound, "product not found")
	}
	return r.GetByID(ctx, id)
}

// DeleteProduct hard-deletes a product; the FK RESTRICT on order_items
// surfaces as a Conflict when the product is still referenced by an order.
func (r *Repository) DeleteProduct(ctx context.Context, id int64) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM products WHERE id=$1`, id)
	if err != nil {
		if dbx.ForeignKeyViolation(err) {
			return domainerrors.New(domainerrors.Conflict, "product is referenced by existing orders")
		}
		return fmt.Errorf("delete product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainerrors.New(domainerrors.NotFound, "product not found")
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id int64) (*Product, error) {
	var p Product
	err := r.q.QueryRow(ctx, `
SELECT p.id, p.name, p.slug, p.description, p.category_id, c.name, p.is_active, p.created_at, p.updated_at
FROM products p
LEFT JOIN categories c ON c.id = p.category_id
WHERE p.id = $1`, id).Scan(
		&p.ID, &p.Name, &p.Slug, &p.Description, &p.CategoryID, &p.CategoryName, &p.IsActive, &p.CreatedAt, &p.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, domainerrors.New(domainerrors.NotFound, "product not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	return &p, nil
}

// GetActiveVariant returns variant only if it is active and its parent
// product exists, per the spec's variant lookup rule.
func (r *Repository) GetActiveVariant(ctx context.Context, variantID int64) (*Variant, error) {
	var v Variant
	err := r.q.QueryRow(ctx, `
SELECT v.id, v.product_id, v.sku, v.price_cents, v.stock, v.is_active, v.created_at, v.updated_at
FROM product_variants v
JOIN products p ON p.id = v.product_id
WHERE v.id = $1 AND v.is_active = true`, variantID).Scan(
		&v.ID, &v.ProductID, &v.SKU, &v.PriceCents, &v.Stock, &v.IsActive, &v.CreatedAt, &v.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, domainerrors.New(domainerrors.NotFound, "active variant not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get variant: %w", err)
	}
	return &v, nil
}

// GetVariantForUpdate locks the variant row, used by the reservation
// manager when computing availability under FOR UPDATE.
func (r *Repository) GetVariantForUpdate(ctx context.Context, variantID int64) (*Variant, error) {
	var v Variant
	err := r.q.QueryRow(ctx, `
SELECT id, product_id, sku, price_cents, stock, is_active, created_at, updated_at
FROM product_variants WHERE id = $1 FOR UPDATE`, variantID).Scan(
		&v.ID, &v.ProductID, &v.SKU, &v.PriceCents, &v.Stock, &v.IsActive, &v.CreatedAt, &v.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, domainerrors.New(domainerrors.NotFound, "variant not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get variant for update: %w", err)
	}
	return &v, nil
}

// ListCards returns the catalog list view: products joined to the minimum
// price across all of their variants, filtered by price range/category and
// sorted by name or price with product.id as the tie-break.
func (r *Repository) ListCards(ctx context.Context, f ListFilter) ([]Card, int, error) {
	limit := f.Limit
	if limit <= 0 || limit > 50 {
		limit = 50
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}

	order := "p.name ASC, p.id ASC"
	switch {
	case f.SortBy == SortByPrice && f.SortDesc:
		order = "mp.min_price_cents DESC NULLS LAST, p.id ASC"
	case f.SortBy == SortByPrice:
		order = "mp.min_price_cents ASC NULLS LAST, p.id ASC"
	case f.SortBy == SortByName && f.SortDesc:
		order = "p.name DESC, p.id ASC"
	}

	query := fmt.Sprintf(`
SELECT p.id, p.name, p.slug, p.description, p.category_id, c.name, p.is_active, p.created_at, p.updated_at,
       mp.min_price_cents
FROM products p
LEFT JOIN categories c ON c.id = p.category_id
LEFT JOIN LATERAL (
    SELECT MIN(v.price_cents) AS min_price_cents
    FROM product_variants v
    WHERE v.product_id = p.id
) mp ON true
WHERE ($1 = '' OR c.name = $1)
  AND ($2::bigint IS NULL OR mp.min_price_cents >= $2)
  AND ($3::bigint IS NULL OR mp.min_price_cents <= $3)
ORDER BY %s
LIMIT $4 OFFSET $5`, order)

	rows, err := r.q.Query(ctx, query, f.CategoryName, f.MinPriceCents, f.MaxPriceCents, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list product cards: %w", err)
	}
	defer rows.Close()

	var cards []Card
	for rows.Next() {
		var c Card
		if err := rows.Scan(
			&c.ID, &c.Name, &c.Slug, &c.Description, &c.CategoryID, &c.CategoryName, &c.IsActive, &c.CreatedAt, &c.UpdatedAt,
			&c.MinVariantPriceCents,
		); err != nil {
			return nil, 0, fmt.Errorf("scan product card: %w", err)
		}
		cards = append(cards, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows: %w", err)
	}

	var total int
	countQuery := `
SELECT COUNT(*)
FROM products p
LEFT JOIN categories c ON c.id = p.category_id
LEFT JOIN LATERAL (
    SELECT MIN(v.price_cents) AS min_price_cents
    FROM product_variants v
    WHERE v.product_id = p.id
) mp ON true
WHERE ($1 = '' OR c.name = $1)
  AND ($2::bigint IS NULL OR mp.min_price_cents >= $2)
  AND ($3::bigint IS NULL OR mp.min_price_cents <= $3)`
	if err := r.q.QueryRow(ctx, countQuery, f.CategoryName, f.MinPriceCents, f.MaxPriceCents).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	return cards, total, nil
}
