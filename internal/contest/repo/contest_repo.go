package repo

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-contest-hub/internal/contest/entity"
	"github.com/ovaphlow/pitchfork/service-contest-hub/pkg/database"
)

const contestColumns = `id, name, image, description, price, prize_money, task_instruction, category, deadline,
	creator_email, creator_name, status, participants, comment, winner_name, winner_email, winner_image,
	created_at, updated_at`

// ContestRepo is the Postgres implementation of the contest catalog.
type ContestRepo struct {
	db *sqlx.DB
}

func NewContestRepo(db *sqlx.DB) *ContestRepo { return &ContestRepo{db: db} }

func (r *ContestRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS contests (
  id varchar(32) PRIMARY KEY,
  name TEXT NOT NULL,
  image TEXT NOT NULL DEFAULT '',
  description TEXT NOT NULL DEFAULT '',
  price NUMERIC(12,2) NOT NULL DEFAULT 0,
  prize_money NUMERIC(12,2) NOT NULL DEFAULT 0,
  task_instruction TEXT NOT NULL DEFAULT '',
  category TEXT NOT NULL,
  deadline TIMESTAMPTZ,
  creator_email TEXT NOT NULL,
  creator_name TEXT NOT NULL DEFAULT '',
  status TEXT NOT NULL DEFAULT 'pending',
  participants INT NOT NULL DEFAULT 0,
  comment TEXT NOT NULL DEFAULT '',
  winner_name TEXT NOT NULL DEFAULT '',
  winner_email TEXT NOT NULL DEFAULT '',
  winner_image TEXT NOT NULL DEFAULT '',
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_contests_category ON contests(category);
CREATE INDEX IF NOT EXISTS idx_contests_creator_email ON contests(creator_email);
CREATE INDEX IF NOT EXISTS idx_contests_status ON contests(status);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

func (r *ContestRepo) Create(ctx context.Context, c *entity.Contest) error {
	const q = `INSERT INTO contests (` + contestColumns + `) VALUES (
		:id, :name, :image, :description, :price, :prize_money, :task_instruction, :category, :deadline,
		:creator_email, :creator_name, :status, :participants, :comment, :winner_name, :winner_email, :winner_image,
		:created_at, :updated_at)`
	_, err := r.db.NamedExecContext(ctx, q, c)
	return database.Translate(err)
}

func (r *ContestRepo) Get(ctx context.Context, id string) (*entity.Contest, error) {
	var c entity.Contest
	if err := r.db.GetContext(ctx, &c, `SELECT `+contestColumns+` FROM contests WHERE id=$1`, id); err != nil {
		return nil, database.Translate(err)
	}
	return &c, nil
}

func (r *ContestRepo) List(ctx context.Context, lq entity.ListQuery) ([]entity.Contest, error) {
	q, args := buildListQuery(lq)
	out := []entity.Contest{}
	if err := r.db.SelectContext(ctx, &out, q, args...); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *ContestRepo) CountByStatus(ctx context.Context, status string) (int64, error) {
	var n int64
	err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM contests WHERE status=$1`, status)
	return n, err
}

// Update sets the given columns and returns the stored row. Column names
// come from entity.Patch or the service, never from request keys.
func (r *ContestRepo) Update(ctx context.Context, id string, fields map[string]any) (*entity.Contest, error) {
	q, args := buildUpdate(id, fields)
	var c entity.Contest
	if err := r.db.GetContext(ctx, &c, q, args...); err != nil {
		return nil, database.Translate(err)
	}
	return &c, nil
}

func (r *ContestRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM contests WHERE id=$1`, id)
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

func (r *ContestRepo) TopByAttendance(ctx context.Context, n int) ([]entity.Contest, error) {
	out := []entity.Contest{}
	const q = `SELECT ` + contestColumns + ` FROM contests WHERE status=$1 ORDER BY participants DESC, id LIMIT $2`
	if err := r.db.SelectContext(ctx, &out, q, entity.StatusAccepted, n); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *ContestRepo) WithWinners(ctx context.Context, limit int) ([]entity.Contest, error) {
	out := []entity.Contest{}
	const q = `SELECT ` + contestColumns + ` FROM contests WHERE winner_name <> '' ORDER BY updated_at DESC, id LIMIT $1`
	if err := r.db.SelectContext(ctx, &out, q, limit); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *ContestRepo) Upcoming(ctx context.Context, after time.Time, limit int) ([]entity.Contest, error) {
	out := []entity.Contest{}
	const q = `SELECT ` + contestColumns + ` FROM contests WHERE status=$1 AND deadline > $2 ORDER BY deadline, id LIMIT $3`
	if err := r.db.SelectContext(ctx, &out, q, entity.StatusAccepted, after, limit); err != nil {
		return nil, err
	}
	return out, nil
}

// buildListQuery renders the conjunctive filter, ordering and window.
func buildListQuery(lq entity.ListQuery) (string, []any) {
	var where []string
	var args []any
	add := func(col, v string) {
		if v == "" {
			return
		}
		args = append(args, v)
		where = append(where, fmt.Sprintf("%s=$%d", col, len(args)))
	}
	add("category", lq.Category)
	add("creator_email", lq.CreatorEmail)
	add("status", lq.Status)

	var b strings.Builder
	b.WriteString(`SELECT ` + contestColumns + ` FROM contests`)
	if len(where) > 0 {
		b.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	switch lq.Sort {
	case entity.SortAttendanceAsc:
		b.WriteString(" ORDER BY participants ASC, id")
	case entity.SortAttendanceDesc:
		b.WriteString(" ORDER BY participants DESC, id")
	default:
		b.WriteString(" ORDER BY created_at DESC, id")
	}
	args = append(args, lq.Limit, lq.Offset)
	fmt.Fprintf(&b, " LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	return b.String(), args
}

func buildUpdate(id string, fields map[string]any) (string, []any) {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	args := []any{id}
	set := make([]string, 0, len(keys)+1)
	for _, k := range keys {
		args = append(args, fields[k])
		set = append(set, fmt.Sprintf("%s=$%d", k, len(args)))
	}
	set = append(set, "updated_at=NOW()")
	return `UPDATE contests SET ` + strings.Join(set, ", ") + ` WHERE id=$1 RETURNING ` + contestColumns, args
}
