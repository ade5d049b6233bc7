package repo

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-contest-hub/internal/user/entity"
	"github.com/ovaphlow/pitchfork/service-contest-hub/pkg/database"
)

const userColumns = `id, email, name, photo_url, role, status, password_hash, created_at, updated_at`

// UserRepo provides data access for the users table using sqlx.
type UserRepo struct {
	db *sqlx.DB
}

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{db: db} }

// EnsureTable creates the users table if not exists (idempotent).
func (r *UserRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS users (
  id varchar(32) PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL DEFAULT '',
  photo_url TEXT NOT NULL DEFAULT '',
  role TEXT NOT NULL DEFAULT 'user',
  status TEXT NOT NULL DEFAULT 'active',
  password_hash TEXT NOT NULL DEFAULT '',
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_users_role ON users(role);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

// Create inserts a new user row. A taken email yields database.ErrDuplicate.
func (r *UserRepo) Create(ctx context.Context, u *entity.User) error {
	const q = `INSERT INTO users (` + userColumns + `)
		VALUES (:id, :email, :name, :photo_url, :role, :status, :password_hash, :created_at, :updated_at)`
	_, err := r.db.NamedExecContext(ctx, q, u)
	return database.Translate(err)
}

// GetByEmail returns the user with email or database.ErrNoRecord.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	var u entity.User
	if err := r.db.GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE email=$1`, email); err != nil {
		return nil, database.Translate(err)
	}
	return &u, nil
}

// List returns one window of users in insertion order.
func (r *UserRepo) List(ctx context.Context, limit, offset int) ([]entity.User, error) {
	out := []entity.User{}
	const q = `SELECT ` + userColumns + ` FROM users ORDER BY created_at, id LIMIT $1 OFFSET $2`
	if err := r.db.SelectContext(ctx, &out, q, limit, offset); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *UserRepo) UpdateProfile(ctx context.Context, id, name, photoURL string) (*entity.User, error) {
	const q = `UPDATE users SET name=$2, photo_url=$3, updated_at=NOW() WHERE id=$1 RETURNING ` + userColumns
	return r.updateReturning(ctx, q, id, name, photoURL)
}

func (r *UserRepo) UpdateRole(ctx context.Context, id, role string) (*entity.User, error) {
	const q = `UPDATE users SET role=$2, updated_at=NOW() WHERE id=$1 RETURNING ` + userColumns
	return r.updateReturning(ctx, q, id, role)
}

func (r *UserRepo) UpdateStatus(ctx context.Context, id, status string) (*entity.User, error) {
	const q = `UPDATE users SET status=$2, updated_at=NOW() WHERE id=$1 RETURNING ` + userColumns
	return r.updateReturning(ctx, q, id, status)
}

func (r *UserRepo) updateReturning(ctx context.Context, q string, args ...any) (*entity.User, error) {
	var u entity.User
	if err := r.db.GetContext(ctx, &u, q, args...); err != nil {
		return nil, database.Translate(err)
	}
	return &u, nil
}

// Delete removes a user row by id.
func (r *UserRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id=$1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return database.ErrNoRecord
	}
	return nil
}
