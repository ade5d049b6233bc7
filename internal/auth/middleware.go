package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-contest-hub/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-contest-hub/internal/user/entity"
)

// Directory resolves the current role and status of an account.
type Directory interface {
	Access(ctx context.Context, email string) (role, status string, err error)
}

// Gateway enforces per-route access policies.
type Gateway struct {
	tokens *TokenService
	dir    Directory
	logger *zap.SugaredLogger
}

func NewGateway(tokens *TokenService, dir Directory, logger *zap.SugaredLogger) *Gateway {
	return &Gateway{tokens: tokens, dir: dir, logger: logger}
}

// Authorize verifies the request's token and checks the caller against access.
func (g *Gateway) Authorize(r *http.Request, access Access) (Principal, error) {
	raw, err := BearerToken(r.Header.Get("Authorization"))
	if err != nil {
		return Principal{}, err
	}
	claims, err := g.tokens.Verify(raw)
	if err != nil {
		return Principal{}, err
	}
	role, status, err := g.dir.Access(r.Context(), claims.Email)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			if access == Identified {
				return Principal{Email: claims.Email}, nil
			}
			return Principal{}, fmt.Errorf("%w: account not found", apperr.ErrForbidden)
		}
		return Principal{}, err
	}
	if status == entity.StatusBlocked {
		return Principal{}, fmt.Errorf("%w: account blocked", apperr.ErrForbidden)
	}
	if !access.allows(role) {
		return Principal{}, fmt.Errorf("%w: %s access required", apperr.ErrForbidden, access)
	}
	return Principal{Email: claims.Email, Role: role}, nil
}

// Guard wraps next with the access check for one route. Public routes pass
// straight through.
func (g *Gateway) Guard(access Access, next http.Handler) http.Handler {
	if access == Public {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := g.Authorize(r, access)
		if err != nil {
			apperr.Write(w, g.logger, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
	})
}

// RequireAdmin is Guard(Admin, next).
func (g *Gateway) RequireAdmin(next http.Handler) http.Handler {
	return g.Guard(Admin, next)
}
