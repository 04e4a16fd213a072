package users

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	"referral-platform/pkg/utils"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

//go:embed schema.sql
var schemaSQL string

// PostgresRepo stores identities in the users table.
// Email uniqueness is enforced by the users_email_key unique index.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

// EnsureSchema creates the users table and its indexes if they do not exist.
func (r *PostgresRepo) EnsureSchema(ctx context.Context) error {
	err := utils.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, schemaSQL)
		return err
	})
	if err != nil {
		return fmt.Errorf("ensure users schema: %w", err)
	}
	return nil
}

const userColumns = `id, name, email, role, password_hash, created_at, updated_at`

func (r *PostgresRepo) Create(ctx context.Context, u Identity) (Identity, error) {
	const q = `
INSERT INTO users (id, name, email, role, password_hash)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + userColumns

	out, err := scanIdentity(r.db.QueryRowContext(ctx, q,
		u.ID,
		u.Name,
		NormalizeEmail(u.Email),
		string(u.Role),
		u.PasswordHash,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return Identity{}, ErrConflict
		}
		return Identity{}, err
	}
	return out, nil
}

func (r *PostgresRepo) FindByID(ctx context.Context, id string) (Identity, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanIdentity(r.db.QueryRowContext(ctx, q, id))
}

func (r *PostgresRepo) FindByEmail(ctx context.Context, email string) (Identity, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanIdentity(r.db.QueryRowContext(ctx, q, NormalizeEmail(email)))
}

func (r *PostgresRepo) List(ctx context.Context) ([]Identity, error) {
	const q = `SELECT ` + userColumns + ` FROM users ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Identity
	for rows.Next() {
		u, err := scanIdentity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// Update writes the password hash and the profile fields in one transaction, so a
// duplicate email leaves the stored hash untouched.
func (r *PostgresRepo) Update(ctx context.Context, id string, upd Update) (Identity, error) {
	const setPassword = `UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`
	const setFields = `
UPDATE users
SET name = COALESCE($2, name),
    email = COALESCE($3, email),
    role = COALESCE($4, role),
    updated_at = now()
WHERE id = $1
RETURNING ` + userColumns

	var name, email, role sql.NullString
	if upd.Name != nil {
		name = sql.NullString{String: *upd.Name, Valid: true}
	}
	if upd.Email != nil {
		email = sql.NullString{String: NormalizeEmail(*upd.Email), Valid: true}
	}
	if upd.Role != nil {
		role = sql.NullString{String: string(*upd.Role), Valid: true}
	}

	var out Identity
	err := utils.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if upd.PasswordHash != nil {
			res, err := tx.ExecContext(ctx, setPassword, id, *upd.PasswordHash)
			if err != nil {
				return err
			}
			if err := requireOneRow(res); err != nil {
				return err
			}
		}
		var err error
		out, err = scanIdentity(tx.QueryRowContext(ctx, setFields, id, name, email, role))
		return err
	})
	if err != nil {
		if isUniqueViolation(err) {
			return Identity{}, ErrConflict
		}
		return Identity{}, err
	}
	return out, nil
}

func (r *PostgresRepo) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM users WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	return requireOneRow(res)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIdentity(row rowScanner) (Identity, error) {
	var (
		u    Identity
		role string
	)
	if err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&role,
		&u.PasswordHash,
		&u.CreatedAt,
		&u.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Identity{}, ErrNotFound
		}
		return Identity{}, err
	}
	u.Role = Role(role)
	return u, nil
}

func requireOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}
