package contest

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-contest-hub/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-contest-hub/internal/auth"
	"github.com/ovaphlow/pitchfork/service-contest-hub/internal/contest/entity"
	"github.com/ovaphlow/pitchfork/service-contest-hub/pkg/utilities"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// List handles GET /contests?category&email&status&sortOrder&page&limit.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := utilities.ParsePage(q, "page", "limit", defaultPageSize, maxPageSize)
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	sort, ok := entity.ParseSort(q.Get("sortOrder"))
	if !ok {
		apperr.Write(w, h.logger, apperr.Validation("sortOrder must be 1, -1, asc or desc"))
		return
	}
	f := entity.Filter{
		Category:     strings.TrimSpace(q.Get("category")),
		CreatorEmail: strings.ToLower(strings.TrimSpace(q.Get("email"))),
		Status:       strings.TrimSpace(q.Get("status")),
	}
	res, err := h.svc.List(r.Context(), f, sort, page)
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	utilities.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) Popular(w http.ResponseWriter, r *http.Request) {
	n, err := utilities.ParseLimit(r.URL.Query(), "limit", DefaultPopular)
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	items, err := h.svc.TopByAttendance(r.Context(), n)
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	utilities.WriteJSON(w, http.StatusOK, items)
}

func (h *Handler) Winners(w http.ResponseWriter, r *http.Request) {
	n, err := utilities.ParseLimit(r.URL.Query(), "limit", DefaultWinners)
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	items, err := h.svc.AdvertisedWinners(r.Context(), n)
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	utilities.WriteJSON(w, http.StatusOK, items)
}

func (h *Handler) Upcoming(w http.ResponseWriter, r *http.Request) {
	n, err := utilities.ParseLimit(r.URL.Query(), "limit", DefaultUpcoming)
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	items, err := h.svc.Upcoming(r.Context(), n)
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	utilities.WriteJSON(w, http.StatusOK, items)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	utilities.WriteJSON(w, http.StatusOK, c)
}

// Create handles POST /contests.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.PrincipalFrom(r.Context())
	var in CreateInput
	if err := utilities.DecodeJSON(r, &in, false); err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	c, err := h.svc.Create(r.Context(), p, in)
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	h.logger.Infow("contest created", "id", c.ID, "creator", c.CreatorEmail)
	utilities.WriteJSON(w, http.StatusCreated, c)
}

// Update handles PUT /contests/{id}. Fields outside the patch allow-list
// fail decoding.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.PrincipalFrom(r.Context())
	var patch entity.Patch
	if err := utilities.DecodeJSON(r, &patch, true); err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	c, err := h.svc.Update(r.Context(), p, r.PathValue("id"), patch)
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	utilities.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.Approve(r.Context(), r.PathValue("id"))
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	h.logger.Infow("contest approved", "id", c.ID)
	utilities.WriteJSON(w, http.StatusOK, c)
}

type commentRequest struct {
	Comment string `json:"comment"`
}

func (h *Handler) Comment(w http.ResponseWriter, r *http.Request) {
	var req commentRequest
	if err := utilities.DecodeJSON(r, &req, true); err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	c, err := h.svc.SetComment(r.Context(), r.PathValue("id"), req.Comment)
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	utilities.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) DeclareWinner(w http.ResponseWriter, r *http.Request) {
	var req entity.Winner
	if err := utilities.DecodeJSON(r, &req, true); err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	c, err := h.svc.DeclareWinner(r.Context(), r.PathValue("id"), req)
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	h.logger.Infow("contest winner declared", "id", c.ID, "winner", c.WinnerEmail)
	utilities.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), r.PathValue("id")); err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
