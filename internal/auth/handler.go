package auth

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-contest-hub/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-contest-hub/pkg/utilities"
)

// Authenticator checks that an account may receive a token.
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) error
}

// Handler exposes the token endpoint.
type Handler struct {
	tokens *TokenService
	users  Authenticator
	logger *zap.SugaredLogger
}

func NewHandler(tokens *TokenService, users Authenticator, logger *zap.SugaredLogger) *Handler {
	return &Handler{tokens: tokens, users: users, logger: logger}
}

type TokenRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type TokenResponse struct {
	Token string `json:"token"`
}

// IssueToken handles POST /jwt.
func (h *Handler) IssueToken(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	if err := utilities.DecodeJSON(r, &req, false); err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	if req.Email == "" {
		apperr.Write(w, h.logger, apperr.Validation("email is required"))
		return
	}
	if err := h.users.Authenticate(r.Context(), req.Email, req.Password); err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	tok, err := h.tokens.Issue(req.Email)
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	utilities.WriteJSON(w, http.StatusOK, TokenResponse{Token: tok})
}
