package payment

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
)

const (
	ProviderStub   = "stub"
	ProviderStripe = "stripe"
)

// Intent is the processor's handle for a pending charge.
type Intent struct {
	ID           string `json:"intentId"`
	ClientSecret string `json:"clientSecret"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
}

// Provider creates payment intents. An empty idempotencyKey lets the
// processor treat every call as new.
type Provider interface {
	Name() string
	CreateIntent(ctx context.Context, amount int64, currency, idempotencyKey string) (*Intent, error)
}

type Config struct {
	Provider        string
	StripeSecretKey string
	Currency        string
}

func ConfigFromEnv() Config {
	cfg := Config{
		Provider:        strings.ToLower(strings.TrimSpace(os.Getenv("PAYMENT_PROVIDER"))),
		StripeSecretKey: os.Getenv("STRIPE_SECRET_KEY"),
		Currency:        strings.ToLower(strings.TrimSpace(os.Getenv("PAYMENT_CURRENCY"))),
	}
	if cfg.Provider == "" {
		cfg.Provider = ProviderStub
	}
	if cfg.Currency == "" {
		cfg.Currency = "usd"
	}
	return cfg
}

var ErrMissingStripeKey = errors.New("STRIPE_SECRET_KEY is required for the stripe provider")

func NewProvider(cfg Config) (Provider, error) {
	switch cfg.Provider {
	case ProviderStub, "":
		return NewStubProvider(), nil
	case ProviderStripe:
		if cfg.StripeSecretKey == "" {
			return nil, ErrMissingStripeKey
		}
		return NewStripeProvider(cfg.StripeSecretKey), nil
	}
	return nil, fmt.Errorf("unknown payment provider %q", cfg.Provider)
}
