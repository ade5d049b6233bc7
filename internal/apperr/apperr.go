// Package apperr defines the error kinds shared by every service and the
// single JSON envelope handlers use to report them.
package apperr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-contest-hub/pkg/utilities"
)

type Kind string

const (
	KindValidation      Kind = "validation"
	KindUnauthenticated Kind = "unauthenticated"
	KindForbidden       Kind = "forbidden"
	KindNotFound        Kind = "not_found"
	KindConflict        Kind = "conflict"
	KindUpstream        Kind = "upstream_failure"
)

var (
	ErrValidation      = errors.New("invalid request")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
)

// Envelope is the body of every error response.
type Envelope struct {
	ErrorKind Kind   `json:"errorKind"`
	Message   string `json:"message"`
}

// Validation wraps ErrValidation with a caller-facing message.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Classify maps err to an HTTP status and envelope. Errors outside the known
// kinds become a 500 with a generic message.
func Classify(err error) (int, Envelope) {
	switch {
	case errors.Is(err, ErrValidation), errors.Is(err, utilities.ErrBadPayload), errors.Is(err, utilities.ErrBadPage):
		return http.StatusBadRequest, Envelope{KindValidation, err.Error()}
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized, Envelope{KindUnauthenticated, err.Error()}
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden, Envelope{KindForbidden, err.Error()}
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, Envelope{KindNotFound, err.Error()}
	case errors.Is(err, ErrConflict):
		return http.StatusConflict, Envelope{KindConflict, err.Error()}
	default:
		return http.StatusInternalServerError, Envelope{KindUpstream, "internal server error"}
	}
}

// Write reports err to the client. Upstream failures are logged with the
// original error; everything else at debug.
func Write(w http.ResponseWriter, logger *zap.SugaredLogger, err error) {
	status, env := Classify(err)
	if logger != nil {
		if status == http.StatusInternalServerError {
			logger.Errorw("request failed", "err", err)
		} else {
			logger.Debugw("request rejected", "status", status, "err", err)
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}
