package router

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-contest-hub/internal/auth"
	"github.com/ovaphlow/pitchfork/service-contest-hub/internal/contest"
	"github.com/ovaphlow/pitchfork/service-contest-hub/internal/payment"
	"github.com/ovaphlow/pitchfork/service-contest-hub/internal/registration"
	"github.com/ovaphlow/pitchfork/service-contest-hub/internal/result"
	"github.com/ovaphlow/pitchfork/service-contest-hub/internal/user"
)

// Deps carries everything the HTTP surface is built from.
type Deps struct {
	Logger        *zap.SugaredLogger
	Gateway       *auth.Gateway
	Auth          *auth.Handler
	Users         *user.Handler
	Contests      *contest.Handler
	Registrations *registration.Handler
	Payments      *payment.Handler
	Results       *result.Handler
	Health        func(ctx context.Context) error
	CORSOrigins   []string
}

// route is one row of the access policy table.
type route struct {
	pattern string
	access  auth.Access
	handler http.HandlerFunc
}

func routes(d Deps) []route {
	return []route{
		{"POST /jwt", auth.Public, d.Auth.IssueToken},

		{"POST /users", auth.Public, d.Users.Create},
		{"GET /users", auth.Admin, d.Users.List},
		{"GET /users/{email}", auth.Public, d.Users.Get},
		{"GET /users/{email}/role", auth.Public, d.Users.Role},
		{"GET /users/{email}/status", auth.Public, d.Users.Status},
		{"PUT /users/{email}", auth.Identified, d.Users.UpsertProfile},
		{"PATCH /users/{id}/role", auth.Admin, d.Users.UpdateRole},
		{"PATCH /users/{id}/status", auth.Admin, d.Users.UpdateStatus},
		{"DELETE /users/{id}", auth.Admin, d.Users.Delete},

		{"GET /contests", auth.Public, d.Contests.List},
		{"GET /contests/popular", auth.Public, d.Contests.Popular},
		{"GET /contests/winners", auth.Public, d.Contests.Winners},
		{"GET /contests/upcoming", auth.Public, d.Contests.Upcoming},
		{"GET /contests/{id}", auth.Public, d.Contests.Get},
		{"POST /contests", auth.Creator, d.Contests.Create},
		{"PUT /contests/{id}", auth.Creator, d.Contests.Update},
		{"PATCH /contests/{id}/approve", auth.Admin, d.Contests.Approve},
		{"PATCH /contests/{id}/comment", auth.Admin, d.Contests.Comment},
		{"PATCH /contests/{id}/winner", auth.Admin, d.Contests.DeclareWinner},
		{"DELETE /contests/{id}", auth.Admin, d.Contests.Delete},

		{"POST /registrations", auth.Authenticated, d.Registrations.Register},
		{"GET /registrations", auth.Authenticated, d.Registrations.ListMine},
		{"GET /registrations/owner/{email}", auth.Creator, d.Registrations.ListByOwner},
		{"GET /registrations/{id}", auth.Authenticated, d.Registrations.Get},
		{"PUT /registrations/{id}", auth.Creator, d.Registrations.SetOutcome},

		{"POST /create-payment-intent", auth.Authenticated, d.Payments.CreateIntent},
		{"POST /payments", auth.Authenticated, d.Payments.Settle},
		{"GET /payments", auth.Authenticated, d.Payments.List},

		{"POST /results", auth.Admin, d.Results.Publish},
		{"GET /results/count", auth.Public, d.Results.Count},
		{"GET /results/mine", auth.Authenticated, d.Results.Mine},
		{"GET /leaderBoard", auth.Public, d.Results.Leaderboard},
	}
}

// RegisterRoutes mounts every route behind its access policy and wraps the
// mux with request id, logging, security header and CORS middleware.
func RegisterRoutes(d Deps) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("contest hub coming"))
	})
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		if d.Health != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := d.Health(ctx); err != nil {
				d.Logger.Warnw("health check failed", "err", err)
				http.Error(w, "unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	for _, rt := range routes(d) {
		mux.Handle(rt.pattern, d.Gateway.Guard(rt.access, rt.handler))
	}

	var h http.Handler = mux
	h = CORSMiddleware(d.CORSOrigins)(h)
	h = SecurityHeadersMiddleware()(h)
	h = LoggingMiddleware(d.Logger)(h)
	h = RequestIDMiddleware()(h)
	return h
}
