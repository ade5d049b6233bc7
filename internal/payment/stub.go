package payment

import (
	"context"
	"sync"

	"github.com/ovaphlow/pitchfork/service-contest-hub/pkg/utilities"
)

// StubProvider issues local intents for development and tests. Calls that
// repeat an idempotency key get the same intent back.
type StubProvider struct {
	mu    sync.Mutex
	byKey map[string]*Intent
}

func NewStubProvider() *StubProvider {
	return &StubProvider{byKey: map[string]*Intent{}}
}

func (p *StubProvider) Name() string { return ProviderStub }

func (p *StubProvider) CreateIntent(_ context.Context, amount int64, currency, idempotencyKey string) (*Intent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if idempotencyKey != "" {
		if in, ok := p.byKey[idempotencyKey]; ok {
			cp := *in
			return &cp, nil
		}
	}
	in := &Intent{
		ID:           "pi_" + utilities.NewKSUID(),
		ClientSecret: "secret_" + utilities.NewKSUID(),
		Amount:       amount,
		Currency:     currency,
	}
	if idempotencyKey != "" {
		p.byKey[idempotencyKey] = in
	}
	cp := *in
	return &cp, nil
}
