package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ovaphlow/pitchfork/service-contest-hub/internal/auth"
	"github.com/ovaphlow/pitchfork/service-contest-hub/internal/contest"
	"github.com/ovaphlow/pitchfork/service-contest-hub/internal/payment"
	"github.com/ovaphlow/pitchfork/service-contest-hub/internal/registration"
	"github.com/ovaphlow/pitchfork/service-contest-hub/internal/result"
	"github.com/ovaphlow/pitchfork/service-contest-hub/internal/router"
	"github.com/ovaphlow/pitchfork/service-contest-hub/internal/store"
	"github.com/ovaphlow/pitchfork/service-contest-hub/internal/user"
	"github.com/ovaphlow/pitchfork/service-contest-hub/pkg/database"
	"github.com/ovaphlow/pitchfork/service-contest-hub/pkg/utilities"
)

func main() {
	// best-effort: a missing .env falls back to the real environment
	_ = godotenv.Load()

	lg, err := utilities.Init(utilities.ConfigFromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()

	sugar := lg.Sugar()
	sugar.Info("starting contest hub")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbCfg := database.ConfigFromEnv()
	stores, err := store.Open(ctx, dbCfg)
	if err != nil {
		sugar.Fatalf("store open: %v", err)
	}
	if err := stores.EnsureSchema(ctx); err != nil {
		sugar.Fatalf("ensure schema: %v", err)
	}
	sugar.Infow("store ready", "driver", stores.Driver)

	tokens, err := auth.NewTokenService(auth.ConfigFromEnv())
	if err != nil {
		sugar.Fatalf("token service: %v", err)
	}

	payCfg := payment.ConfigFromEnv()
	provider, err := payment.NewProvider(payCfg)
	if err != nil {
		sugar.Fatalf("payment provider: %v", err)
	}
	sugar.Infow("payment provider ready", "provider", provider.Name(), "currency", payCfg.Currency)

	users := user.NewService(stores.Users, nil)
	contests := contest.NewService(stores.Contests)
	payments := payment.NewService(stores.Payments, provider, payCfg.Currency, sugar)
	registrations := registration.NewService(stores.Registrations, contests, payments)
	results := result.NewService(stores.Results)

	handler := router.RegisterRoutes(router.Deps{
		Logger:        sugar,
		Gateway:       auth.NewGateway(tokens, users, sugar),
		Auth:          auth.NewHandler(tokens, users, sugar),
		Users:         user.NewHandler(users, sugar),
		Contests:      contest.NewHandler(contests, sugar),
		Registrations: registration.NewHandler(registrations, sugar),
		Payments:      payment.NewHandler(payments, sugar),
		Results:       result.NewHandler(results, sugar),
		Health:        stores.Ping,
		CORSOrigins:   splitList(os.Getenv("CORS_ORIGINS")),
	})
	srv := &http.Server{
		Addr:              listenAddr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		sugar.Infow("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugar.Fatalf("http server failed: %v", err)
		}
	}()

	<-ctx.Done()

	sugar.Info("shutting down")

	doneCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(doneCtx); err != nil {
		sugar.Warnf("http server shutdown failed: %v", err)
	}
	if err := stores.Close(doneCtx); err != nil {
		sugar.Warnf("store close failed: %v", err)
	}

	sugar.Info("goodbye")
}

// listenAddr prefers HTTP_ADDR, then PORT, then the default port.
func listenAddr() string {
	if addr := os.Getenv("HTTP_ADDR"); addr != "" {
		return addr
	}
	port := os.Getenv("PORT")
	if port == "" {
		port = "8431"
	}
	return net.JoinHostPort("0.0.0.0", port)
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
