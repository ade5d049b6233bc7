package user

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-contest-hub/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-contest-hub/internal/auth"
	"github.com/ovaphlow/pitchfork/service-contest-hub/pkg/utilities"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// Handler exposes HTTP endpoints for the user directory.
type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// CreateResponse is returned when the email is already registered.
type CreateResponse struct {
	Message string `json:"message"`
	Created bool   `json:"created"`
}

// Create handles POST /users.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in CreateInput
	if err := utilities.DecodeJSON(r, &in, false); err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	u, created, err := h.svc.Create(r.Context(), in)
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	if !created {
		utilities.WriteJSON(w, http.StatusOK, CreateResponse{Message: "user already exists", Created: false})
		return
	}
	h.logger.Infow("user created", "id", u.ID, "email", u.Email)
	utilities.WriteJSON(w, http.StatusCreated, u)
}

// List handles GET /users?page&size.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	p, err := utilities.ParsePage(r.URL.Query(), "page", "size", defaultPageSize, maxPageSize)
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	users, err := h.svc.List(r.Context(), p)
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	utilities.WriteJSON(w, http.StatusOK, users)
}

// Get handles GET /users/{email}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	u, err := h.svc.GetByEmail(r.Context(), r.PathValue("email"))
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	utilities.WriteJSON(w, http.StatusOK, u)
}

// Role handles GET /users/{email}/role.
func (h *Handler) Role(w http.ResponseWriter, r *http.Request) {
	role, err := h.svc.Role(r.Context(), r.PathValue("email"))
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	utilities.WriteJSON(w, http.StatusOK, map[string]string{"role": role})
}

// Status handles GET /users/{email}/status.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	status, err := h.svc.Status(r.Context(), r.PathValue("email"))
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	utilities.WriteJSON(w, http.StatusOK, map[string]string{"status": status})
}

// UpsertProfile handles PUT /users/{email}; callers may only edit themselves.
func (h *Handler) UpsertProfile(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.PrincipalFrom(r.Context())
	email := r.PathValue("email")
	if err := p.Self(email); err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	var in ProfileInput
	if err := utilities.DecodeJSON(r, &in, true); err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	u, created, err := h.svc.UpsertProfile(r.Context(), email, in)
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	utilities.WriteJSON(w, status, u)
}

type roleRequest struct {
	Role string `json:"role"`
}

type statusRequest struct {
	Status string `json:"status"`
}

// UpdateRole handles PATCH /users/{id}/role.
func (h *Handler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	var req roleRequest
	if err := utilities.DecodeJSON(r, &req, true); err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	u, err := h.svc.UpdateRole(r.Context(), r.PathValue("id"), req.Role)
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	h.logger.Infow("user role changed", "id", u.ID, "role", u.Role)
	utilities.WriteJSON(w, http.StatusOK, u)
}

// UpdateStatus handles PATCH /users/{id}/status.
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := utilities.DecodeJSON(r, &req, true); err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	u, err := h.svc.UpdateStatus(r.Context(), r.PathValue("id"), req.Status)
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	h.logger.Infow("user status changed", "id", u.ID, "status", u.Status)
	utilities.WriteJSON(w, http.StatusOK, u)
}

// Delete handles DELETE /users/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), r.PathValue("id")); err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
