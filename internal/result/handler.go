package result

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

func (h *Handler) Publish(w http.ResponseWriter, r *http.Request) {
	var in PublishInput
	if err := utilities.DecodeJSON(r, &in, false); err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	rec, err := h.svc.Publish(r.Context(), in)
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	h.logger.Infow("win recorded", "id", rec.ID, "email", rec.Email, "contest", rec.ContestID)
	utilities.WriteJSON(w, http.StatusCreated, rec)
}

func (h *Handler) Count(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.Count(r.Context())
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	utilities.WriteJSON(w, http.StatusOK, map[string]int64{"count": n})
}

func (h *Handler) Mine(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.PrincipalFrom(r.Context())
	items, err := h.svc.MyWins(r.Context(), p.Email)
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	utilities.WriteJSON(w, http.StatusOK, items)
}

func (h *Handler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	rows, err := h.svc.Leaderboard(r.Context())
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	utilities.WriteJSON(w, http.StatusOK, rows)
}
