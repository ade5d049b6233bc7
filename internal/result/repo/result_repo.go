package repo

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-contest-hub/internal/result/entity"
	"github.com/ovaphlow/pitchfork/service-contest-hub/pkg/database"
)

const winCols = `id, email, name, contest_id, contest_name, created_at`

type ResultRepo struct {
	db *sqlx.DB
}

func NewResultRepo(db *sqlx.DB) *ResultRepo { return &ResultRepo{db: db} }

func (r *ResultRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS wins (
  id varchar(32) PRIMARY KEY,
  email TEXT NOT NULL,
  name TEXT NOT NULL DEFAULT '',
  contest_id varchar(32) NOT NULL,
  contest_name TEXT NOT NULL DEFAULT '',
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_wins_email ON wins(email);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

func (r *ResultRepo) Create(ctx context.Context, w *entity.WinRecord) error {
	const q = `INSERT INTO wins (` + winCols + `) VALUES (:id, :email, :name, :contest_id, :contest_name, :created_at)`
	_, err := r.db.NamedExecContext(ctx, q, w)
	return database.Translate(err)
}

func (r *ResultRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM wins`)
	return n, err
}

func (r *ResultRepo) ListByEmail(ctx context.Context, email string) ([]entity.WinRecord, error) {
	out := []entity.WinRecord{}
	const q = `SELECT ` + winCols + ` FROM wins WHERE email=$1 ORDER BY created_at DESC, id`
	if err := r.db.SelectContext(ctx, &out, q, email); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *ResultRepo) Leaderboard(ctx context.Context) ([]entity.LeaderboardEntry, error) {
	out := []entity.LeaderboardEntry{}
	const q = `SELECT email, COUNT(*) AS total_wins FROM wins GROUP BY email ORDER BY total_wins DESC, email ASC`
	if err := r.db.SelectContext(ctx, &out, q); err != nil {
		return nil, err
	}
	return out, nil
}
