package registration

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-contest-hub/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-contest-hub/internal/auth"
	"github.com/ovaphlow/pitchfork/service-contest-hub/pkg/utilities"
)

type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// Register handles POST /registrations.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.PrincipalFrom(r.Context())
	var in RegisterInput
	if err := utilities.DecodeJSON(r, &in, false); err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	reg, err := h.svc.Register(r.Context(), p, in)
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	h.logger.Infow("registration recorded", "id", reg.ID, "contest", reg.ContestID, "email", reg.UserEmail)
	utilities.WriteJSON(w, http.StatusCreated, reg)
}

// ListMine handles GET /registrations?email; the email defaults to the caller.
func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.PrincipalFrom(r.Context())
	email := r.URL.Query().Get("email")
	if email == "" {
		email = p.Email
	}
	if err := p.SelfOrAdmin(email); err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	items, err := h.svc.ListByUser(r.Context(), email)
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	utilities.WriteJSON(w, http.StatusOK, items)
}

// ListByOwner handles GET /registrations/owner/{email}.
func (h *Handler) ListByOwner(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.PrincipalFrom(r.Context())
	email := r.PathValue("email")
	if err := p.SelfOrAdmin(email); err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	items, err := h.svc.ListByContestOwner(r.Context(), email)
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	utilities.WriteJSON(w, http.StatusOK, items)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.PrincipalFrom(r.Context())
	reg, err := h.svc.GetFor(r.Context(), p, r.PathValue("id"))
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	utilities.WriteJSON(w, http.StatusOK, reg)
}

type outcomeRequest struct {
	Winner string `json:"winner"`
}

// SetOutcome handles PUT /registrations/{id}.
func (h *Handler) SetOutcome(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.PrincipalFrom(r.Context())
	var req outcomeRequest
	if err := utilities.DecodeJSON(r, &req, true); err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	reg, err := h.svc.SetOutcome(r.Context(), p, r.PathValue("id"), req.Winner)
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	utilities.WriteJSON(w, http.StatusOK, reg)
}
