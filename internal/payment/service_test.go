package payment

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-contest-hub/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-contest-hub/internal/auth"
	"github.com/ovaphlow/pitchfork/service-contest-hub/internal/payment/entity"
	"github.com/ovaphlow/pitchfork/service-contest-hub/pkg/database"
)

// memLedger mimics the transactional store: one payment per intent, and a
// registration disappears when it settles.
type memLedger struct {
	mu            sync.Mutex
	registrations map[string]memRegistration
	payments      map[string]*entity.Payment
	participants  map[string]int
}

type memRegistration struct {
	contestID string
	creator   string
	email     string
	price     float64
}

func newMemLedger() *memLedger {
	return &memLedger{
		registrations: map[string]memRegistration{
			"r1": {contestID: "c1", creator: "host@example.com", email: "player@example.com", price: 19.99},
			"r2": {contestID: "c1", creator: "host@example.com", email: "player@example.com", price: 0.29},
		},
		payments:     map[string]*entity.Payment{},
		participants: map[string]int{},
	}
}

func (m *memLedger) Settle(_ context.Context, s entity.Settlement) (*entity.Payment, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.payments[s.IntentID]; ok {
		if err := p.Replays(s); err != nil {
			return nil, false, err
		}
		return p, false, nil
	}
	reg, ok := m.registrations[s.RegistrationID]
	if !ok {
		return nil, false, database.ErrNoRecord
	}
	if s.Payer != "" && s.Payer != reg.email {
		return nil, false, entity.ErrForeignRegistration
	}
	amount, err := entity.PriceToMinorUnits(reg.price)
	if err != nil {
		return nil, false, err
	}
	p := &entity.Payment{
		ID: s.PaymentID, IntentID: s.IntentID, RegistrationID: s.RegistrationID,
		ContestID: reg.contestID, CreatorEmail: reg.creator, UserEmail: reg.email, Amount: amount, Currency: s.Currency, CreatedAt: s.At,
	}
	m.payments[s.IntentID] = p
	delete(m.registrations, s.RegistrationID)
	m.participants[reg.contestID]++
	return p, true, nil
}

func (m *memLedger) GetByIntent(_ context.Context, intentID string) (*entity.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.payments[intentID]; ok {
		return p, nil
	}
	return nil, database.ErrNoRecord
}

func (m *memLedger) ListByUser(_ context.Context, email string) ([]entity.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []entity.Payment{}
	for _, p := range m.payments {
		if p.UserEmail == email {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *memLedger) GetByRegistration(_ context.Context, id string) (*entity.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.payments {
		if p.RegistrationID == id {
			return p, nil
		}
	}
	return nil, database.ErrNoRecord
}

func (m *memLedger) SetOutcome(ctx context.Context, id, label string) (*entity.Payment, error) {
	p, err := m.GetByRegistration(ctx, id)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p.Outcome = label
	return p, nil
}

// MockProvider implements Provider for testing
type MockProvider struct {
	CreateIntentFunc func(ctx context.Context, amount int64, currency, key string) (*Intent, error)
}

func (m *MockProvider) Name() string { return "mock" }

func (m *MockProvider) CreateIntent(ctx context.Context, amount int64, currency, key string) (*Intent, error) {
	if m.CreateIntentFunc != nil {
		return m.CreateIntentFunc(ctx, amount, currency, key)
	}
	return &Intent{ID: "pi_mock", ClientSecret: "secret_mock", Amount: amount, Currency: currency}, nil
}

var player = auth.Principal{Email: "player@example.com", Role: "user"}

func newTestService(ledger Repository, provider Provider) *Service {
	return NewService(ledger, provider, "usd", zap.NewNop().Sugar())
}

func TestSettle_IsIdempotentOnIntent(t *testing.T) {
	ledger := newMemLedger()
	svc := newTestService(ledger, &MockProvider{})
	ctx := context.Background()

	first, created, err := svc.Settle(ctx, player, SettleInput{RegistrationID: "r1", IntentID: "pi_1"})
	if err != nil || !created {
		t.Fatalf("first settle: created=%v err=%v", created, err)
	}
	if first.Amount != 1999 || first.Currency != "usd" {
		t.Errorf("unexpected payment %+v", first)
	}

	again, created, err := svc.Settle(ctx, player, SettleInput{RegistrationID: "r1", IntentID: "pi_1"})
	if err != nil || created {
		t.Fatalf("repeat settle: created=%v err=%v", created, err)
	}
	if again.ID != first.ID {
		t.Errorf("expected the stored payment back, got %+v", again)
	}
	if len(ledger.payments) != 1 || ledger.participants["c1"] != 1 {
		t.Errorf("expected one payment and one participant, got %d / %d", len(ledger.payments), ledger.participants["c1"])
	}
	if _, ok := ledger.registrations["r1"]; ok {
		t.Error("settled registration should be removed")
	}
}

// A loser that finds the registration already gone resolves to the winner's payment.
type racedLedger struct{ *memLedger }

func (r racedLedger) Settle(ctx context.Context, s entity.Settlement) (*entity.Payment, bool, error) {
	if _, _, err := r.memLedger.Settle(ctx, s); err != nil {
		return nil, false, err
	}
	return nil, false, database.ErrNoRecord
}

func TestSettle_ConcurrentLoserGetsExistingPayment(t *testing.T) {
	svc := newTestService(racedLedger{newMemLedger()}, &MockProvider{})
	p, created, err := svc.Settle(context.Background(), player, SettleInput{RegistrationID: "r1", IntentID: "pi_race"})
	if err != nil {
		t.Fatal(err)
	}
	if created || p.IntentID != "pi_race" {
		t.Errorf("expected existing payment, got created=%v %+v", created, p)
	}
}

func TestSettle_ReplayedIntentIsBoundToRegistrationAndPayer(t *testing.T) {
	ledger := newMemLedger()
	svc := newTestService(ledger, &MockProvider{})
	ctx := context.Background()
	if _, _, err := svc.Settle(ctx, player, SettleInput{RegistrationID: "r1", IntentID: "pi_1"}); err != nil {
		t.Fatal(err)
	}

	stranger := auth.Principal{Email: "stranger@example.com", Role: "user"}
	admin := auth.Principal{Email: "root@example.com", Role: "admin"}
	tests := []struct {
		name string
		who  auth.Principal
		reg  string
		want error
	}{
		{"other user, other registration", stranger, "whatever", apperr.ErrForbidden},
		{"other user, same registration", stranger, "r1", apperr.ErrForbidden},
		{"payer, unsettled registration", player, "r2", apperr.ErrConflict},
		{"admin, other registration", admin, "r2", apperr.ErrConflict},
	}
	for _, tt := range tests {
		p, _, err := svc.Settle(ctx, tt.who, SettleInput{RegistrationID: tt.reg, IntentID: "pi_1"})
		if !errors.Is(err, tt.want) {
			t.Errorf("%s: expected %v, got %v", tt.name, tt.want, err)
		}
		if p != nil {
			t.Errorf("%s: payment leaked: %+v", tt.name, p)
		}
	}
	if _, ok := ledger.registrations["r2"]; !ok {
		t.Error("r2 must stay pending")
	}
	if _, created, err := svc.Settle(ctx, admin, SettleInput{RegistrationID: "r1", IntentID: "pi_1"}); err != nil || created {
		t.Errorf("admin replay of the same settlement: created=%v err=%v", created, err)
	}
}

func TestSettle_RacedFallbackChecksPayer(t *testing.T) {
	ledger := newMemLedger()
	first := newTestService(ledger, &MockProvider{})
	if _, _, err := first.Settle(context.Background(), player, SettleInput{RegistrationID: "r1", IntentID: "pi_race"}); err != nil {
		t.Fatal(err)
	}
	// the store reports the registration gone without checking the intent
	svc := newTestService(goneLedger{ledger}, &MockProvider{})
	stranger := auth.Principal{Email: "stranger@example.com", Role: "user"}
	if p, _, err := svc.Settle(context.Background(), stranger, SettleInput{RegistrationID: "r1", IntentID: "pi_race"}); !errors.Is(err, apperr.ErrForbidden) || p != nil {
		t.Errorf("expected forbidden without the payment, got %+v %v", p, err)
	}
}

type goneLedger struct{ *memLedger }

func (goneLedger) Settle(context.Context, entity.Settlement) (*entity.Payment, bool, error) {
	return nil, false, database.ErrNoRecord
}

func TestSettle_Errors(t *testing.T) {
	ledger := newMemLedger()
	svc := newTestService(ledger, &MockProvider{})
	ctx := context.Background()

	if _, _, err := svc.Settle(ctx, player, SettleInput{RegistrationID: "ghost", IntentID: "pi_x"}); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
	if len(ledger.payments) != 0 {
		t.Error("nothing should be written for an unknown registration")
	}
	if _, _, err := svc.Settle(ctx, player, SettleInput{RegistrationID: "r1"}); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
	stranger := auth.Principal{Email: "stranger@example.com", Role: "user"}
	if _, _, err := svc.Settle(ctx, stranger, SettleInput{RegistrationID: "r1", IntentID: "pi_y"}); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("expected forbidden, got %v", err)
	}
	admin := auth.Principal{Email: "root@example.com", Role: "admin"}
	p, _, err := svc.Settle(ctx, admin, SettleInput{RegistrationID: "r2", IntentID: "pi_z"})
	if err != nil {
		t.Fatalf("admin settle: %v", err)
	}
	if p.Amount != 29 {
		t.Errorf("expected 29 minor units, got %d", p.Amount)
	}
}

func TestCreateIntent(t *testing.T) {
	var gotAmount int64
	var gotKey string
	svc := newTestService(newMemLedger(), &MockProvider{
		CreateIntentFunc: func(ctx context.Context, amount int64, currency, key string) (*Intent, error) {
			gotAmount, gotKey = amount, key
			return &Intent{ID: "pi_1", ClientSecret: "secret_1", Amount: amount, Currency: currency}, nil
		},
	})
	in, err := svc.CreateIntent(context.Background(), "10.555", "idem-1")
	if err != nil {
		t.Fatal(err)
	}
	if gotAmount != 1055 || gotKey != "idem-1" || in.Currency != "usd" {
		t.Errorf("unexpected call amount=%d key=%q intent=%+v", gotAmount, gotKey, in)
	}
	for _, price := range []string{"-1", "abc", "0"} {
		if _, err := svc.CreateIntent(context.Background(), price, ""); !errors.Is(err, apperr.ErrValidation) {
			t.Errorf("%q: expected validation error, got %v", price, err)
		}
	}
}

func TestCreateIntent_ProcessorFailureIsInternal(t *testing.T) {
	svc := newTestService(newMemLedger(), &MockProvider{
		CreateIntentFunc: func(ctx context.Context, amount int64, currency, key string) (*Intent, error) {
			return nil, errors.New("card network down")
		},
	})
	_, err := svc.CreateIntent(context.Background(), "5", "")
	if status, _ := apperr.Classify(err); status != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d (%v)", status, err)
	}
}

func TestStubProvider_ReusesIdempotencyKey(t *testing.T) {
	p := NewStubProvider()
	ctx := context.Background()
	a, _ := p.CreateIntent(ctx, 100, "usd", "k1")
	b, _ := p.CreateIntent(ctx, 100, "usd", "k1")
	c, _ := p.CreateIntent(ctx, 100, "usd", "")
	if a.ID != b.ID || a.ClientSecret != b.ClientSecret {
		t.Errorf("same key should return the same intent: %+v vs %+v", a, b)
	}
	if c.ID == a.ID {
		t.Error("no key should produce a fresh intent")
	}
	if !strings.HasPrefix(a.ClientSecret, "secret_") || !strings.HasPrefix(a.ID, "pi_") {
		t.Errorf("unexpected stub intent %+v", a)
	}
}

func TestNewProvider(t *testing.T) {
	if p, err := NewProvider(Config{Provider: ProviderStub}); err != nil || p.Name() != ProviderStub {
		t.Errorf("stub: %v %v", p, err)
	}
	if _, err := NewProvider(Config{Provider: ProviderStripe}); !errors.Is(err, ErrMissingStripeKey) {
		t.Errorf("expected ErrMissingStripeKey, got %v", err)
	}
	if p, err := NewProvider(Config{Provider: ProviderStripe, StripeSecretKey: "sk_test_x"}); err != nil || p.Name() != ProviderStripe {
		t.Errorf("stripe: %v %v", p, err)
	}
	if _, err := NewProvider(Config{Provider: "paypal"}); err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestHandler_CreateIntentAcceptsNumberOrString(t *testing.T) {
	var amounts []int64
	svc := newTestService(newMemLedger(), &MockProvider{
		CreateIntentFunc: func(ctx context.Context, amount int64, currency, key string) (*Intent, error) {
			amounts = append(amounts, amount)
			return &Intent{ID: "pi", Amount: amount, Currency: currency}, nil
		},
	})
	h := NewHandler(svc, zap.NewNop().Sugar())
	for _, body := range []string{`{"price":19.99}`, `{"price":"19.99"}`} {
		rec := httptest.NewRecorder()
		h.CreateIntent(rec, httptest.NewRequest(http.MethodPost, "/create-payment-intent", strings.NewReader(body)))
		if rec.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d: %s", body, rec.Code, rec.Body.String())
		}
	}
	if len(amounts) != 2 || amounts[0] != 1999 || amounts[1] != 1999 {
		t.Errorf("unexpected amounts %v", amounts)
	}
}

func TestHandler_SettleStatusCodes(t *testing.T) {
	h := NewHandler(newTestService(newMemLedger(), &MockProvider{}), zap.NewNop().Sugar())
	post := func() int {
		req := httptest.NewRequest(http.MethodPost, "/payments", strings.NewReader(`{"registrationId":"r1","intentId":"pi_h"}`))
		req = req.WithContext(auth.WithPrincipal(req.Context(), player))
		rec := httptest.NewRecorder()
		h.Settle(rec, req)
		return rec.Code
	}
	if code := post(); code != http.StatusCreated {
		t.Errorf("expected 201, got %d", code)
	}
	if code := post(); code != http.StatusOK {
		t.Errorf("expected 200 on repeat, got %d", code)
	}
}
