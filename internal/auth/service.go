package auth

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ovaphlow/pitchfork/service-contest-hub/internal/apperr"
)

const defaultTTL = 7 * 24 * time.Hour

type Config struct {
	Secret string
	TTL    time.Duration
}

// ConfigFromEnv reads JWT_SECRET and JWT_TTL_HOURS.
func ConfigFromEnv() Config {
	ttl := defaultTTL
	if v, err := strconv.Atoi(os.Getenv("JWT_TTL_HOURS")); err == nil && v > 0 {
		ttl = time.Duration(v) * time.Hour
	}
	return Config{Secret: os.Getenv("JWT_SECRET"), TTL: ttl}
}

var ErrMissingSecret = errors.New("JWT_SECRET is empty")

// TokenService issues and verifies HS256 session tokens.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenService(cfg Config) (*TokenService, error) {
	if cfg.Secret == "" {
		return nil, ErrMissingSecret
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &TokenService{secret: []byte(cfg.Secret), ttl: ttl, now: time.Now}, nil
}

// Issue signs a token for email valid for the configured TTL.
func (s *TokenService) Issue(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", apperr.Validation("email is required")
	}
	now := s.now()
	claims := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a signed token. Any failure is reported as
// apperr.ErrUnauthenticated.
func (s *TokenService) Verify(token string) (*Claims, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: missing token", apperr.ErrUnauthenticated)
	}
	claims := &Claims{}
	tkn, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !tkn.Valid {
		return nil, fmt.Errorf("%w: invalid token", apperr.ErrUnauthenticated)
	}
	if claims.Email == "" {
		return nil, fmt.Errorf("%w: token has no email claim", apperr.ErrUnauthenticated)
	}
	return claims, nil
}

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header value. The scheme is matched case-insensitively.
func BearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", fmt.Errorf("%w: missing authorization header", apperr.ErrUnauthenticated)
	}
	const scheme = "bearer "
	if len(header) <= len(scheme) || !strings.EqualFold(header[:len(scheme)], scheme) {
		return "", fmt.Errorf("%w: authorization header must use the Bearer scheme", apperr.ErrUnauthenticated)
	}
	return strings.TrimSpace(header[len(scheme):]), nil
}
