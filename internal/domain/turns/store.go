package turns

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("turn not found")

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const turnColumns = `id, user_id, order_id, scheduled_at, notes, status, created_at, updated_at`

func scanTurn(row pgx.Row) (*Turn, error) {
	var t Turn
	err := row.Scan(&t.ID, &t.UserID, &t.OrderID, &t.ScheduledAt, &t.Notes, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Create schedules a turn for userID, optionally against orderID (the
// caller is responsible for checking the order belongs to the user and is
// paid; the repository itself performs no cross-aggregate validation).
func (r *Repository) Create(ctx context.Context, userID int64, orderID *int64, scheduledAt, notes *string) (*Turn, error) {
	row := r.db.QueryRow(ctx, `
INSERT INTO turns (user_id, order_id, scheduled_at, notes, status)
VALUES ($1, $2, $3, $4, $5)
RETURNING `+turnColumns,
		userID, orderID, scheduledAt, notes, StatusRequested,
	)
	t, err := scanTurn(row)
	if err != nil {
		return nil, fmt.Errorf("create turn: %w", err)
	}
	return t, nil
}

func (r *Repository) GetByID(ctx context.Context, id int64) (*Turn, error) {
	row := r.db.QueryRow(ctx, `SELECT `+turnColumns+` FROM turns WHERE id = $1`, id)
	t, err := scanTurn(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get turn: %w", err)
	}
	return t, nil
}

func (r *Repository) ListByUser(ctx context.Context, userID int64, f Filter) ([]Turn, int, error) {
	limit := f.limitOrDefault()
	offset := (f.pageOrDefault() - 1) * limit

	query := `
SELECT ` + turnColumns + `, COUNT(*) OVER() AS total
FROM turns
WHERE user_id = $1`
	args := []any{userID}
	if f.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", len(args)+1)
		args = append(args, *f.Status)
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list turns: %w", err)
	}
	defer rows.Close()

	var out []Turn
	var total int
	for rows.Next() {
		var t Turn
		if err := rows.Scan(&t.ID, &t.UserID, &t.OrderID, &t.ScheduledAt, &t.Notes, &t.Status, &t.CreatedAt, &t.UpdatedAt, &total); err != nil {
			return nil, 0, fmt.Errorf("scan turn: %w", err)
		}
		out = append(out, t)
	}
	return out, total, rows.Err()
}

// UpdateStatus is the admin-only status transition; the repository trusts
// the caller to have authorized the change and validated the transition.
func (r *Repository) UpdateStatus(ctx context.Context, id int64, status Status) error {
	tag, err := r.db.Exec(ctx, `UPDATE turns SET status = $2, updated_at = now() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("update turn status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
