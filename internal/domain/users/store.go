// Package users implements contact-based user resolution, the repository
// shape following the reference users.Repository (a struct wrapping
// *pgxpool.Pool).
package users

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(
		&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.Phone, &u.DNI,
		&u.PasswordHash, &u.HasAccount, &u.IsAdmin, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

const userColumns = `id, email, first_name, last_name, phone, dni, password_hash, has_account, is_admin, created_at, updated_at`

func (r *Repository) GetByID(ctx context.Context, id int64) (*User, error) {
	row := r.db.QueryRow(ctx, fmt.Sprintf(`SELECT %s FROM users WHERE id=$1`, userColumns), id)
	u, err := scanUser(row)
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (r *Repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	row := r.db.QueryRow(ctx, fmt.Sprintf(`SELECT %s FROM users WHERE email=$1`, userColumns), strings.ToLower(email))
	u, err := scanUser(row)
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

func (r *Repository) VerifyPassword(u *User, plaintext string) bool {
	if u.PasswordHash == sentinelPasswordHash {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(plaintext)) == nil
}

// GetOrCreateUserByContact looks a user up by email; when present, it
// reconciles the supplied contact fields against the stored ones (any
// mismatch of a non-null existing field is a conflict, a null existing
// field is filled in). When absent, it creates a guest user with the
// sentinel password hash and has_account=false.
func (r *Repository) GetOrCreateUserByContact(ctx context.Context, email, firstName, lastName string, phone, dni *string) (*User, bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	existing, err := r.GetByEmail(ctx, email)
	if err != nil && err != ErrNotFound {
		return nil, false, err
	}

	if existing != nil {
		if !strings.EqualFold(existing.FirstName, firstName) || !strings.EqualFold(existing.LastName, lastName) {
			return nil, false, ErrContactMismatch
		}
		if existing.Phone != nil && phone != nil && *existing.Phone != *phone {
			return nil, false, ErrContactMismatch
		}
		if existing.DNI != nil && dni != nil && *existing.DNI != *dni {
			return nil, false, ErrContactMismatch
		}

		fillPhone := existing.Phone
		if fillPhone == nil {
			fillPhone = phone
		}
		fillDNI := existing.DNI
		if fillDNI == nil {
			fillDNI = dni
		}
		if fillPhone != existing.Phone || fillDNI != existing.DNI {
			if _, err := r.db.Exec(ctx, `UPDATE users SET phone=$2, dni=$3, updated_at=now() WHERE id=$1`, existing.ID, fillPhone, fillDNI); err != nil {
				return nil, false, fmt.Errorf("backfill contact fields: %w", err)
			}
			existing.Phone, existing.DNI = fillPhone, fillDNI
		}
		return existing, false, nil
	}

	row := r.db.QueryRow(ctx, `
INSERT INTO users (email, first_name, last_name, phone, dni, password_hash, has_account, is_admin)
VALUES ($1,$2,$3,$4,$5,$6,false,false)
RETURNING `+userColumns,
		email, firstName, lastName, phone, dni, sentinelPasswordHash,
	)
	created, err := scanUser(row)
	if err != nil {
		return nil, false, fmt.Errorf("create guest user: %w", err)
	}
	return created, true, nil
}

// CreateAccount registers a real (non-guest) account, hashing password with
// bcrypt per the reference module's password convention.
func (r *Repository) CreateAccount(ctx context.Context, email, firstName, lastName, plaintextPassword string) (*User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintextPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	row := r.db.QueryRow(ctx, `
INSERT INTO users (email, first_name, last_name, password_hash, has_account, is_admin)
VALUES ($1,$2,$3,$4,true,false)
ON CONFLICT (email) DO UPDATE SET
  first_name=EXCLUDED.first_name, last_name=EXCLUDED.last_name,
  password_hash=EXCLUDED.password_hash, has_account=true, updated_at=now()
RETURNING `+userColumns,
		strings.ToLower(email), firstName, lastName, string(hash),
	)
	return scanUser(row)
}

func (r *Repository) SearchByEmail(ctx context.Context, query string, limit int) ([]User, error) {
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	rows, err := r.db.Query(ctx, fmt.Sprintf(`
SELECT %s FROM users WHERE email ILIKE '%%' || $1 || '%%' ORDER BY id LIMIT $2`, userColumns), query, limit)
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}
