package registration

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-contest-hub/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-contest-hub/internal/auth"
	contest "github.com/ovaphlow/pitchfork/service-contest-hub/internal/contest/entity"
	"github.com/ovaphlow/pitchfork/service-contest-hub/internal/payment"
	payentity "github.com/ovaphlow/pitchfork/service-contest-hub/internal/payment/entity"
	"github.com/ovaphlow/pitchfork/service-contest-hub/internal/registration/entity"
	"github.com/ovaphlow/pitchfork/service-contest-hub/pkg/database"
)

type MockRepository struct {
	CreateFunc        func(ctx context.Context, reg *entity.Registration) error
	GetFunc           func(ctx context.Context, id string) (*entity.Registration, error)
	ListByUserFunc    func(ctx context.Context, email string) ([]entity.Registration, error)
	ListByCreatorFunc func(ctx context.Context, email string) ([]entity.Registration, error)
	SetOutcomeFunc    func(ctx context.Context, id, label string) (*entity.Registration, error)
}

func (m *MockRepository) Create(ctx context.Context, reg *entity.Registration) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, reg)
	}
	return nil
}

func (m *MockRepository) Get(ctx context.Context, id string) (*entity.Registration, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, id)
	}
	return nil, database.ErrNoRecord
}

func (m *MockRepository) ListByUser(ctx context.Context, email string) ([]entity.Registration, error) {
	if m.ListByUserFunc != nil {
		return m.ListByUserFunc(ctx, email)
	}
	return nil, nil
}

func (m *MockRepository) ListByCreator(ctx context.Context, email string) ([]entity.Registration, error) {
	if m.ListByCreatorFunc != nil {
		return m.ListByCreatorFunc(ctx, email)
	}
	return nil, nil
}

func (m *MockRepository) SetOutcome(ctx context.Context, id, label string) (*entity.Registration, error) {
	if m.SetOutcomeFunc != nil {
		return m.SetOutcomeFunc(ctx, id, label)
	}
	return nil, database.ErrNoRecord
}

type lookupFunc func(ctx context.Context, id string) (*contest.Contest, error)

func (f lookupFunc) Get(ctx context.Context, id string) (*contest.Contest, error) { return f(ctx, id) }

func TestRegister(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)
	contests := map[string]*contest.Contest{
		"open":     {ID: "open", Name: "Logo", CreatorEmail: "host@example.com", Status: contest.StatusAccepted, Price: 19.99, Deadline: &future},
		"nodate":   {ID: "nodate", Name: "Poem", CreatorEmail: "host@example.com", Status: contest.StatusAccepted, Price: 5},
		"pending":  {ID: "pending", Status: contest.StatusPending},
		"deadline": {ID: "deadline", Status: contest.StatusAccepted, Deadline: &past},
	}
	lookup := lookupFunc(func(ctx context.Context, id string) (*contest.Contest, error) {
		if c, ok := contests[id]; ok {
			return c, nil
		}
		return nil, apperr.ErrNotFound
	})

	var saved []*entity.Registration
	svc := NewService(&MockRepository{
		CreateFunc: func(ctx context.Context, reg *entity.Registration) error {
			saved = append(saved, reg)
			return nil
		},
	}, lookup, nil)
	svc.now = func() time.Time { return now }
	p := auth.Principal{Email: "player@example.com", Role: "user"}
	ctx := context.Background()

	reg, err := svc.Register(ctx, p, RegisterInput{ContestID: "open", UserName: "Player"})
	if err != nil {
		t.Fatal(err)
	}
	if reg.ContestName != "Logo" || reg.CreatorEmail != "host@example.com" || reg.Price != 19.99 || reg.UserEmail != p.Email {
		t.Errorf("registration did not copy contest fields: %+v", reg)
	}
	if _, err := svc.Register(ctx, p, RegisterInput{ContestID: "nodate"}); err != nil {
		t.Errorf("contest without deadline should accept entries, got %v", err)
	}
	if _, err := svc.Register(ctx, p, RegisterInput{ContestID: "open"}); err != nil {
		t.Errorf("repeat entry is allowed, got %v", err)
	}

	tests := []struct {
		id   string
		want error
	}{
		{"pending", apperr.ErrConflict},
		{"deadline", apperr.ErrConflict},
		{"missing", apperr.ErrNotFound},
		{"", apperr.ErrValidation},
	}
	for _, tt := range tests {
		if _, err := svc.Register(ctx, p, RegisterInput{ContestID: tt.id}); !errors.Is(err, tt.want) {
			t.Errorf("%q: expected %v, got %v", tt.id, tt.want, err)
		}
	}
	if len(saved) != 3 {
		t.Errorf("expected 3 stored registrations, got %d", len(saved))
	}
}

func TestSetOutcome(t *testing.T) {
	reg := &entity.Registration{ID: "r1", CreatorEmail: "host@example.com", UserEmail: "player@example.com"}
	svc := NewService(&MockRepository{
		GetFunc: func(ctx context.Context, id string) (*entity.Registration, error) {
			if id == reg.ID {
				return reg, nil
			}
			return nil, database.ErrNoRecord
		},
		SetOutcomeFunc: func(ctx context.Context, id, label string) (*entity.Registration, error) {
			cp := *reg
			cp.Outcome = label
			return &cp, nil
		},
	}, nil, nil)
	ctx := context.Background()
	host := auth.Principal{Email: "host@example.com", Role: "creator"}
	other := auth.Principal{Email: "rival@example.com", Role: "creator"}

	got, err := svc.SetOutcome(ctx, host, "r1", " winner ")
	if err != nil || got.Outcome != "winner" {
		t.Fatalf("SetOutcome: %+v %v", got, err)
	}
	if _, err := svc.SetOutcome(ctx, other, "r1", "winner"); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("expected forbidden, got %v", err)
	}
	if _, err := svc.SetOutcome(ctx, host, "r1", ""); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected validation error for empty label, got %v", err)
	}
	if _, err := svc.SetOutcome(ctx, host, "r1", strings.Repeat("x", 33)); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected validation error for long label, got %v", err)
	}
	if _, err := svc.SetOutcome(ctx, host, "nope", "winner"); !errors.Is(err, ErrRegistrationNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestGetFor(t *testing.T) {
	reg := &entity.Registration{ID: "r1", CreatorEmail: "host@example.com", UserEmail: "player@example.com"}
	svc := NewService(&MockRepository{
		GetFunc: func(ctx context.Context, id string) (*entity.Registration, error) { return reg, nil },
	}, nil, nil)
	ctx := context.Background()
	for _, p := range []auth.Principal{
		{Email: "player@example.com", Role: "user"},
		{Email: "host@example.com", Role: "creator"},
		{Email: "root@example.com", Role: "admin"},
	} {
		if _, err := svc.GetFor(ctx, p, "r1"); err != nil {
			t.Errorf("%s should see the registration, got %v", p.Email, err)
		}
	}
	if _, err := svc.GetFor(ctx, auth.Principal{Email: "nosy@example.com", Role: "user"}, "r1"); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("expected forbidden, got %v", err)
	}
}

// ledger keeps pending registrations and the payments that replace them, so
// the registration and payment services can run against the same state.
type ledger struct {
	mu   sync.Mutex
	regs map[string]*entity.Registration
	pays map[string]*payentity.Payment
}

type pending struct{ *ledger }

func (l pending) Create(_ context.Context, reg *entity.Registration) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	cp := *reg
	l.regs[reg.ID] = &cp
	return nil
}

func (l pending) Get(_ context.Context, id string) (*entity.Registration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if r, ok := l.regs[id]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, database.ErrNoRecord
}

func (l pending) ListByUser(context.Context, string) ([]entity.Registration, error) { return nil, nil }

func (l pending) ListByCreator(context.Context, string) ([]entity.Registration, error) {
	return nil, nil
}

func (l pending) SetOutcome(_ context.Context, id, label string) (*entity.Registration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	r, ok := l.regs[id]
	if !ok {
		return nil, database.ErrNoRecord
	}
	r.Outcome = label
	cp := *r
	return &cp, nil
}

type paid struct{ *ledger }

func (l paid) Settle(_ context.Context, s payentity.Settlement) (*payentity.Payment, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if p, ok := l.pays[s.IntentID]; ok {
		return p, false, p.Replays(s)
	}
	r, ok := l.regs[s.RegistrationID]
	if !ok {
		return nil, false, database.ErrNoRecord
	}
	amount, err := payentity.PriceToMinorUnits(r.Price)
	if err != nil {
		return nil, false, err
	}
	p := &payentity.Payment{
		ID: s.PaymentID, IntentID: s.IntentID, RegistrationID: r.ID, ContestID: r.ContestID,
		CreatorEmail: r.CreatorEmail, UserEmail: r.UserEmail, Outcome: r.Outcome,
		Amount: amount, Currency: s.Currency, CreatedAt: s.At,
	}
	l.pays[s.IntentID] = p
	delete(l.regs, r.ID)
	return p, true, nil
}

func (l paid) GetByIntent(_ context.Context, intentID string) (*payentity.Payment, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if p, ok := l.pays[intentID]; ok {
		return p, nil
	}
	return nil, database.ErrNoRecord
}

func (l paid) ListByUser(context.Context, string) ([]payentity.Payment, error) { return nil, nil }

func (l paid) byRegistration(id string) *payentity.Payment {
	for _, p := range l.pays {
		if p.RegistrationID == id {
			return p
		}
	}
	return nil
}

func (l paid) GetByRegistration(_ context.Context, id string) (*payentity.Payment, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if p := l.byRegistration(id); p != nil {
		cp := *p
		return &cp, nil
	}
	return nil, database.ErrNoRecord
}

func (l paid) SetOutcome(_ context.Context, id, label string) (*payentity.Payment, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	p := l.byRegistration(id)
	if p == nil {
		return nil, database.ErrNoRecord
	}
	p.Outcome = label
	cp := *p
	return &cp, nil
}

func TestSetOutcome_AfterSettlement(t *testing.T) {
	future := time.Now().Add(24 * time.Hour)
	open := &contest.Contest{ID: "c1", Name: "Logo", CreatorEmail: "host@example.com", Status: contest.StatusAccepted, Price: 19.99, Deadline: &future}
	lookup := lookupFunc(func(ctx context.Context, id string) (*contest.Contest, error) { return open, nil })

	l := &ledger{regs: map[string]*entity.Registration{}, pays: map[string]*payentity.Payment{}}
	payments := payment.NewService(paid{l}, nil, "usd", zap.NewNop().Sugar())
	svc := NewService(pending{l}, lookup, payments)
	ctx := context.Background()
	player := auth.Principal{Email: "player@example.com", Role: "user"}
	host := auth.Principal{Email: "host@example.com", Role: "creator"}

	reg, err := svc.Register(ctx, player, RegisterInput{ContestID: "c1"})
	if err != nil {
		t.Fatal(err)
	}
	if _, created, err := payments.Settle(ctx, player, payment.SettleInput{RegistrationID: reg.ID, IntentID: "pi_1"}); err != nil || !created {
		t.Fatalf("settle: created=%v err=%v", created, err)
	}
	if len(l.regs) != 0 {
		t.Fatal("settled registration should be gone from the pending set")
	}

	got, err := svc.SetOutcome(ctx, host, reg.ID, "winner")
	if err != nil {
		t.Fatalf("SetOutcome on a paid entry: %v", err)
	}
	if !got.Paid || got.Outcome != "winner" || got.UserEmail != player.Email || got.Price != 19.99 {
		t.Errorf("unexpected entry %+v", got)
	}
	if l.pays["pi_1"].Outcome != "winner" {
		t.Errorf("outcome not stored on the payment: %+v", l.pays["pi_1"])
	}

	rival := auth.Principal{Email: "rival@example.com", Role: "creator"}
	if _, err := svc.SetOutcome(ctx, rival, reg.ID, "loser"); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("expected forbidden for another creator, got %v", err)
	}
	if _, err := svc.GetFor(ctx, player, reg.ID); err != nil {
		t.Errorf("entrant should still see the paid entry, got %v", err)
	}
	if _, err := svc.SetOutcome(ctx, host, "unknown", "winner"); !errors.Is(err, ErrRegistrationNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}
