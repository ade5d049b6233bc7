package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-contest-hub/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-contest-hub/internal/auth"
	"github.com/ovaphlow/pitchfork/service-contest-hub/internal/payment/entity"
	"github.com/ovaphlow/pitchfork/service-contest-hub/pkg/database"
	"github.com/ovaphlow/pitchfork/service-contest-hub/pkg/utilities"
)

// Repository stores payments. Settle must be atomic: either the payment,
// the registration removal and the participant increment all commit, or
// none do.
type Repository interface {
	Settle(ctx context.Context, s entity.Settlement) (*entity.Payment, bool, error)
	GetByIntent(ctx context.Context, intentID string) (*entity.Payment, error)
	ListByUser(ctx context.Context, email string) ([]entity.Payment, error)
	GetByRegistration(ctx context.Context, registrationID string) (*entity.Payment, error)
	SetOutcome(ctx context.Context, registrationID, label string) (*entity.Payment, error)
}

var (
	ErrRegistrationNotFound = fmt.Errorf("registration %w", apperr.ErrNotFound)
	ErrNotPayer             = fmt.Errorf("%w: registration belongs to another user", apperr.ErrForbidden)
	ErrIntentReused         = fmt.Errorf("%w: intent already settled another registration", apperr.ErrConflict)
)

type Service struct {
	repo     Repository
	provider Provider
	currency string
	logger   *zap.SugaredLogger
	now      func() time.Time
}

func NewService(r Repository, provider Provider, currency string, logger *zap.SugaredLogger) *Service {
	return &Service{repo: r, provider: provider, currency: currency, logger: logger, now: time.Now}
}

// CreateIntent asks the processor for an intent covering price. It is not
// retried.
func (s *Service) CreateIntent(ctx context.Context, price, idempotencyKey string) (*Intent, error) {
	amount, err := entity.ToMinorUnits(price)
	if err != nil {
		return nil, apperr.Validation("price: %v", err)
	}
	if amount == 0 {
		return nil, apperr.Validation("price must be positive")
	}
	in, err := s.provider.CreateIntent(ctx, amount, s.currency, idempotencyKey)
	if err != nil {
		s.logger.Errorw("payment intent failed", "provider", s.provider.Name(), "amount", amount, "err", err)
		return nil, fmt.Errorf("create payment intent: %w", err)
	}
	return in, nil
}

type SettleInput struct {
	RegistrationID string `json:"registrationId"`
	IntentID       string `json:"intentId"`
}

// Settle converts the registration into a payment. Repeating a settled
// intent for the same registration and payer returns the stored payment
// with created=false.
func (s *Service) Settle(ctx context.Context, p auth.Principal, in SettleInput) (*entity.Payment, bool, error) {
	in.RegistrationID = strings.TrimSpace(in.RegistrationID)
	in.IntentID = strings.TrimSpace(in.IntentID)
	if in.RegistrationID == "" || in.IntentID == "" {
		return nil, false, apperr.Validation("registrationId and intentId are required")
	}
	st := entity.Settlement{
		PaymentID:      utilities.NewID(),
		IntentID:       in.IntentID,
		RegistrationID: in.RegistrationID,
		Currency:       s.currency,
		At:             s.now().UTC(),
	}
	if !p.IsAdmin() {
		st.Payer = p.Email
	}
	pay, created, err := s.repo.Settle(ctx, st)
	if errors.Is(err, database.ErrNoRecord) || errors.Is(err, database.ErrDuplicate) {
		// a concurrent settle of the same intent may have won
		existing, gerr := s.repo.GetByIntent(ctx, in.IntentID)
		switch {
		case gerr == nil:
			pay, created, err = existing, false, existing.Replays(st)
		case errors.Is(gerr, database.ErrNoRecord):
			err = ErrRegistrationNotFound
		default:
			err = gerr
		}
	}
	switch {
	case err == nil:
		return pay, created, nil
	case errors.Is(err, entity.ErrForeignRegistration):
		return nil, false, ErrNotPayer
	case errors.Is(err, entity.ErrIntentReused):
		return nil, false, ErrIntentReused
	case errors.Is(err, entity.ErrInvalidAmount):
		return nil, false, fmt.Errorf("%w: %v", apperr.ErrConflict, err)
	}
	return nil, false, err
}

// ByRegistration returns the payment that settled registration id.
func (s *Service) ByRegistration(ctx context.Context, id string) (*entity.Payment, error) {
	return s.repo.GetByRegistration(ctx, id)
}

// SetOutcome labels a settled entry, addressed by its registration id.
func (s *Service) SetOutcome(ctx context.Context, registrationID, label string) (*entity.Payment, error) {
	return s.repo.SetOutcome(ctx, registrationID, label)
}

func (s *Service) ListByUser(ctx context.Context, email string) ([]entity.Payment, error) {
	return s.repo.ListByUser(ctx, strings.ToLower(strings.TrimSpace(email)))
}
