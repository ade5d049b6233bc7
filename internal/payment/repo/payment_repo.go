package repo

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-contest-hub/internal/payment/entity"
	registration "github.com/ovaphlow/pitchfork/service-contest-hub/internal/registration/entity"
	"github.com/ovaphlow/pitchfork/service-contest-hub/pkg/database"
)

const paymentCols = `id, intent_id, registration_id, contest_id, contest_name, creator_email, user_email, outcome, amount, currency, created_at`

// PaymentRepo settles registrations inside a single Postgres transaction.
type PaymentRepo struct {
	db *sqlx.DB
}

func NewPaymentRepo(db *sqlx.DB) *PaymentRepo { return &PaymentRepo{db: db} }

func (r *PaymentRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS payments (
  id varchar(32) PRIMARY KEY,
  intent_id TEXT NOT NULL UNIQUE,
  registration_id varchar(32) NOT NULL,
  contest_id varchar(32) NOT NULL,
  contest_name TEXT NOT NULL DEFAULT '',
  creator_email TEXT NOT NULL DEFAULT '',
  user_email TEXT NOT NULL,
  outcome varchar(32) NOT NULL DEFAULT '',
  amount BIGINT NOT NULL,
  currency varchar(8) NOT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
ALTER TABLE payments ADD COLUMN IF NOT EXISTS creator_email TEXT NOT NULL DEFAULT '';
ALTER TABLE payments ADD COLUMN IF NOT EXISTS outcome varchar(32) NOT NULL DEFAULT '';
CREATE INDEX IF NOT EXISTS idx_payments_user_email ON payments(user_email);
CREATE INDEX IF NOT EXISTS idx_payments_registration_id ON payments(registration_id);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

// Settle records the payment, removes the registration and counts the
// participant in one commit. A prior payment for the intent is returned
// with created=false when s replays it.
func (r *PaymentRepo) Settle(ctx context.Context, s entity.Settlement) (*entity.Payment, bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, false, err
	}
	defer func() { _ = tx.Rollback() }()

	var existing entity.Payment
	err = tx.GetContext(ctx, &existing, `SELECT `+paymentCols+` FROM payments WHERE intent_id=$1`, s.IntentID)
	if err == nil {
		if err := existing.Replays(s); err != nil {
			return nil, false, err
		}
		return &existing, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, err
	}

	var reg registration.Registration
	const lock = `SELECT id, contest_id, contest_name, creator_email, user_email, price, outcome FROM registrations WHERE id=$1 FOR UPDATE`
	if err := tx.GetContext(ctx, &reg, lock, s.RegistrationID); err != nil {
		return nil, false, database.Translate(err)
	}
	if s.Payer != "" && !strings.EqualFold(reg.UserEmail, s.Payer) {
		return nil, false, entity.ErrForeignRegistration
	}
	p, err := newPayment(s, &reg)
	if err != nil {
		return nil, false, err
	}

	const ins = `INSERT INTO payments (` + paymentCols + `)
		VALUES (:id, :intent_id, :registration_id, :contest_id, :contest_name, :creator_email, :user_email, :outcome, :amount, :currency, :created_at)`
	if _, err := tx.NamedExecContext(ctx, ins, p); err != nil {
		return nil, false, database.Translate(err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM registrations WHERE id=$1`, reg.ID); err != nil {
		return nil, false, err
	}
	const inc = `UPDATE contests SET participants = participants + 1, updated_at = NOW() WHERE id=$1`
	if _, err := tx.ExecContext(ctx, inc, reg.ContestID); err != nil {
		return nil, false, err
	}
	if err := tx.Commit(); err != nil {
		return nil, false, database.Translate(err)
	}
	return p, true, nil
}

func (r *PaymentRepo) GetByIntent(ctx context.Context, intentID string) (*entity.Payment, error) {
	var p entity.Payment
	if err := r.db.GetContext(ctx, &p, `SELECT `+paymentCols+` FROM payments WHERE intent_id=$1`, intentID); err != nil {
		return nil, database.Translate(err)
	}
	return &p, nil
}

// GetByRegistration returns the payment that settled registration id.
func (r *PaymentRepo) GetByRegistration(ctx context.Context, id string) (*entity.Payment, error) {
	var p entity.Payment
	if err := r.db.GetContext(ctx, &p, `SELECT `+paymentCols+` FROM payments WHERE registration_id=$1`, id); err != nil {
		return nil, database.Translate(err)
	}
	return &p, nil
}

func (r *PaymentRepo) SetOutcome(ctx context.Context, registrationID, label string) (*entity.Payment, error) {
	var p entity.Payment
	q := `UPDATE payments SET outcome=$2 WHERE registration_id=$1 RETURNING ` + paymentCols
	if err := r.db.GetContext(ctx, &p, q, registrationID, label); err != nil {
		return nil, database.Translate(err)
	}
	return &p, nil
}

func (r *PaymentRepo) ListByUser(ctx context.Context, email string) ([]entity.Payment, error) {
	out := []entity.Payment{}
	const q = `SELECT ` + paymentCols + ` FROM payments WHERE user_email=$1 ORDER BY created_at DESC, id`
	if err := r.db.SelectContext(ctx, &out, q, email); err != nil {
		return nil, err
	}
	return out, nil
}

func newPayment(s entity.Settlement, reg *registration.Registration) (*entity.Payment, error) {
	amount, err := entity.PriceToMinorUnits(reg.Price)
	if err != nil {
		return nil, err
	}
	return &entity.Payment{
		ID:             s.PaymentID,
		IntentID:       s.IntentID,
		RegistrationID: reg.ID,
		ContestID:      reg.ContestID,
		ContestName:    reg.ContestName,
		CreatorEmail:   reg.CreatorEmail,
		UserEmail:      reg.UserEmail,
		Outcome:        reg.Outcome,
		Amount:         amount,
		Currency:       s.Currency,
		CreatedAt:      s.At,
	}, nil
}
