package payment

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"

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

// intentRequest accepts price as a JSON number or a decimal string; the raw
// text is kept so no float conversion happens before ToMinorUnits.
type intentRequest struct {
	Price json.RawMessage `json:"price"`
}

func (req intentRequest) price() string {
	raw := bytes.TrimSpace(req.Price)
	var s string
	if len(raw) > 0 && raw[0] == '"' && json.Unmarshal(raw, &s) == nil {
		return s
	}
	return string(raw)
}

// CreateIntent handles POST /create-payment-intent.
func (h *Handler) CreateIntent(w http.ResponseWriter, r *http.Request) {
	var req intentRequest
	if err := utilities.DecodeJSON(r, &req, false); err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	in, err := h.svc.CreateIntent(r.Context(), req.price(), key)
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	utilities.WriteJSON(w, http.StatusOK, in)
}

// Settle handles POST /payments.
func (h *Handler) Settle(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.PrincipalFrom(r.Context())
	var in SettleInput
	if err := utilities.DecodeJSON(r, &in, false); err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	pay, created, err := h.svc.Settle(r.Context(), p, in)
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
		h.logger.Infow("payment settled", "id", pay.ID, "intent", pay.IntentID, "contest", pay.ContestID, "amount", pay.Amount)
	}
	utilities.WriteJSON(w, status, pay)
}

// List handles GET /payments?email; the email defaults to the caller.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
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
