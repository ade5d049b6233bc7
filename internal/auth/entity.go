package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ovaphlow/pitchfork/service-contest-hub/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-contest-hub/internal/user/entity"
)

// Claims is the decoded payload of a session token.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Principal is the authenticated caller attached to a request context.
type Principal struct {
	Email string
	Role  string
}

func (p Principal) IsAdmin() bool { return p.Role == entity.RoleAdmin }

var ErrNotSelf = fmt.Errorf("%w: caller may only access own records", apperr.ErrForbidden)

// Self allows only callers acting on their own email.
func (p Principal) Self(email string) error {
	if p.Email != "" && strings.EqualFold(p.Email, strings.TrimSpace(email)) {
		return nil
	}
	return ErrNotSelf
}

// SelfOrAdmin allows admins and callers acting on their own email.
func (p Principal) SelfOrAdmin(email string) error {
	if p.IsAdmin() {
		return nil
	}
	return p.Self(email)
}

// Access is the minimum requirement a route places on its caller.
type Access int

const (
	Public Access = iota
	// Identified needs a valid token, but the account may not exist yet.
	Identified
	Authenticated
	Creator
	Admin
)

func (a Access) String() string {
	switch a {
	case Public:
		return "public"
	case Identified:
		return "identified"
	case Authenticated:
		return "authenticated"
	case Creator:
		return "creator"
	case Admin:
		return "admin"
	}
	return "unknown"
}

func (a Access) allows(role string) bool {
	switch a {
	case Public, Identified, Authenticated:
		return true
	case Creator:
		return role == entity.RoleCreator || role == entity.RoleAdmin
	case Admin:
		return role == entity.RoleAdmin
	}
	return false
}

type principalKey struct{}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the principal placed by the gateway, if any.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}
