package registration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ovaphlow/pitchfork/service-contest-hub/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-contest-hub/internal/auth"
	contest "github.com/ovaphlow/pitchfork/service-contest-hub/internal/contest/entity"
	payment "github.com/ovaphlow/pitchfork/service-contest-hub/internal/payment/entity"
	"github.com/ovaphlow/pitchfork/service-contest-hub/internal/registration/entity"
	"github.com/ovaphlow/pitchfork/service-contest-hub/pkg/database"
	"github.com/ovaphlow/pitchfork/service-contest-hub/pkg/utilities"
)

type Repository interface {
	Create(ctx context.Context, reg *entity.Registration) error
	Get(ctx context.Context, id string) (*entity.Registration, error)
	ListByUser(ctx context.Context, email string) ([]entity.Registration, error)
	ListByCreator(ctx context.Context, email string) ([]entity.Registration, error)
	SetOutcome(ctx context.Context, id, label string) (*entity.Registration, error)
}

// ContestLookup resolves a contest, returning a not-found error on a miss.
type ContestLookup interface {
	Get(ctx context.Context, id string) (*contest.Contest, error)
}

// Settled reaches entries whose registration was consumed by a payment,
// keyed by the original registration id.
type Settled interface {
	ByRegistration(ctx context.Context, id string) (*payment.Payment, error)
	SetOutcome(ctx context.Context, registrationID, label string) (*payment.Payment, error)
}

var (
	ErrRegistrationNotFound = fmt.Errorf("registration %w", apperr.ErrNotFound)
	ErrContestClosed        = fmt.Errorf("%w: contest is not open for registration", apperr.ErrConflict)
	ErrNotContestOwner      = fmt.Errorf("%w: only the contest creator or an admin may decide outcomes", apperr.ErrForbidden)
)

type Service struct {
	repo     Repository
	contests ContestLookup
	settled  Settled
	now      func() time.Time
}

// NewService builds the ledger. settled may be nil, in which case paid
// entries are not visible through Get or SetOutcome.
func NewService(r Repository, contests ContestLookup, settled Settled) *Service {
	return &Service{repo: r, contests: contests, settled: settled, now: time.Now}
}

type RegisterInput struct {
	ContestID string `json:"contestId"`
	UserName  string `json:"userName"`
}

// Register records the caller's entry into an accepted contest whose
// deadline has not passed. Repeated entries are not rejected.
func (s *Service) Register(ctx context.Context, p auth.Principal, in RegisterInput) (*entity.Registration, error) {
	id := strings.TrimSpace(in.ContestID)
	if id == "" {
		return nil, apperr.Validation("contestId is required")
	}
	c, err := s.contests.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	if !c.Open(now) {
		return nil, ErrContestClosed
	}
	reg := &entity.Registration{
		ID:           utilities.NewID(),
		ContestID:    c.ID,
		ContestName:  c.Name,
		CreatorEmail: c.CreatorEmail,
		UserEmail:    p.Email,
		UserName:     strings.TrimSpace(in.UserName),
		Price:        c.Price,
		CreatedAt:    now,
	}
	if err := s.repo.Create(ctx, reg); err != nil {
		return nil, err
	}
	return reg, nil
}

func (s *Service) ListByUser(ctx context.Context, email string) ([]entity.Registration, error) {
	return s.repo.ListByUser(ctx, strings.ToLower(strings.TrimSpace(email)))
}

func (s *Service) ListByContestOwner(ctx context.Context, email string) ([]entity.Registration, error) {
	return s.repo.ListByCreator(ctx, strings.ToLower(strings.TrimSpace(email)))
}

// Get returns the pending registration, or the paid entry it became.
func (s *Service) Get(ctx context.Context, id string) (*entity.Registration, error) {
	reg, err := s.repo.Get(ctx, id)
	if errors.Is(err, database.ErrNoRecord) && s.settled != nil {
		var pay *payment.Payment
		if pay, err = s.settled.ByRegistration(ctx, id); err == nil {
			reg = fromPayment(pay)
		}
	}
	if err != nil {
		return nil, mapErr(err)
	}
	return reg, nil
}

// GetFor returns the registration if the caller entered it, authored its
// contest or is an admin.
func (s *Service) GetFor(ctx context.Context, p auth.Principal, id string) (*entity.Registration, error) {
	reg, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.IsAdmin() || strings.EqualFold(reg.UserEmail, p.Email) || strings.EqualFold(reg.CreatorEmail, p.Email) {
		return reg, nil
	}
	return nil, auth.ErrNotSelf
}

func (s *Service) SetOutcome(ctx context.Context, p auth.Principal, id, label string) (*entity.Registration, error) {
	label = strings.TrimSpace(label)
	if label == "" || len(label) > entity.MaxOutcomeLen {
		return nil, apperr.Validation("winner must be 1 to %d characters", entity.MaxOutcomeLen)
	}
	reg, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.IsAdmin() && !strings.EqualFold(reg.CreatorEmail, p.Email) {
		return nil, ErrNotContestOwner
	}
	if reg.Paid {
		pay, err := s.settled.SetOutcome(ctx, id, label)
		if err != nil {
			return nil, mapErr(err)
		}
		return fromPayment(pay), nil
	}
	updated, err := s.repo.SetOutcome(ctx, id, label)
	if err != nil {
		return nil, mapErr(err)
	}
	return updated, nil
}

func fromPayment(p *payment.Payment) *entity.Registration {
	return &entity.Registration{
		ID:           p.RegistrationID,
		ContestID:    p.ContestID,
		ContestName:  p.ContestName,
		CreatorEmail: p.CreatorEmail,
		UserEmail:    p.UserEmail,
		Price:        float64(p.Amount) / 100,
		Outcome:      p.Outcome,
		Paid:         true,
		CreatedAt:    p.CreatedAt,
	}
}

func mapErr(err error) error {
	if errors.Is(err, database.ErrNoRecord) {
		return ErrRegistrationNotFound
	}
	return err
}
