package repo

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-contest-hub/internal/registration/entity"
	"github.com/ovaphlow/pitchfork/service-contest-hub/pkg/database"
)

const (
	RegistrationsTable = "registrations"
	registrationCols   = `id, contest_id, contest_name, creator_email, user_email, user_name, price, outcome, created_at`
)

type RegistrationRepo struct {
	db *sqlx.DB
}

func NewRegistrationRepo(db *sqlx.DB) *RegistrationRepo { return &RegistrationRepo{db: db} }

func (r *RegistrationRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS registrations (
  id varchar(32) PRIMARY KEY,
  contest_id varchar(32) NOT NULL,
  contest_name TEXT NOT NULL DEFAULT '',
  creator_email TEXT NOT NULL,
  user_email TEXT NOT NULL,
  user_name TEXT NOT NULL DEFAULT '',
  price NUMERIC(12,2) NOT NULL DEFAULT 0,
  outcome varchar(32) NOT NULL DEFAULT '',
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_registrations_user_email ON registrations(user_email);
CREATE INDEX IF NOT EXISTS idx_registrations_creator_email ON registrations(creator_email);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

func (r *RegistrationRepo) Create(ctx context.Context, reg *entity.Registration) error {
	const q = `INSERT INTO registrations (` + registrationCols + `)
		VALUES (:id, :contest_id, :contest_name, :creator_email, :user_email, :user_name, :price, :outcome, :created_at)`
	_, err := r.db.NamedExecContext(ctx, q, reg)
	return database.Translate(err)
}

func (r *RegistrationRepo) Get(ctx context.Context, id string) (*entity.Registration, error) {
	var reg entity.Registration
	if err := r.db.GetContext(ctx, &reg, `SELECT `+registrationCols+` FROM registrations WHERE id=$1`, id); err != nil {
		return nil, database.Translate(err)
	}
	return &reg, nil
}

func (r *RegistrationRepo) ListByUser(ctx context.Context, email string) ([]entity.Registration, error) {
	return r.list(ctx, `SELECT `+registrationCols+` FROM registrations WHERE user_email=$1 ORDER BY created_at DESC, id`, email)
}

func (r *RegistrationRepo) ListByCreator(ctx context.Context, email string) ([]entity.Registration, error) {
	return r.list(ctx, `SELECT `+registrationCols+` FROM registrations WHERE creator_email=$1 ORDER BY created_at DESC, id`, email)
}

func (r *RegistrationRepo) SetOutcome(ctx context.Context, id, label string) (*entity.Registration, error) {
	var reg entity.Registration
	const q = `UPDATE registrations SET outcome=$2 WHERE id=$1 RETURNING ` + registrationCols
	if err := r.db.GetContext(ctx, &reg, q, id, label); err != nil {
		return nil, database.Translate(err)
	}
	return &reg, nil
}

func (r *RegistrationRepo) list(ctx context.Context, q string, args ...any) ([]entity.Registration, error) {
	out := []entity.Registration{}
	if err := r.db.SelectContext(ctx, &out, q, args...); err != nil {
		return nil, err
	}
	return out, nil
}
