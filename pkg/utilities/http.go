package utilities

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const maxBodyBytes = 1 << 20

var (
	ErrBadPayload = errors.New("invalid payload")
	ErrBadPage    = errors.New("invalid pagination")
)

// WriteJSON writes v as the JSON response body with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// DecodeJSON decodes a bounded request body into dst. Unknown fields are
// rejected when strict is set.
func DecodeJSON(r *http.Request, dst any, strict bool) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if strict {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	return nil
}

// Page is a validated skip/limit window; Page is zero-based.
type Page struct {
	Page int
	Size int
}

func (p Page) Offset() int { return p.Page * p.Size }

// ParsePage reads pageKey/sizeKey from q. Missing values take the defaults,
// negative or non-numeric values are rejected, and size is clamped to maxSize.
// A page whose offset would overflow int is rejected.
func ParsePage(q url.Values, pageKey, sizeKey string, defaultSize, maxSize int) (Page, error) {
	p := Page{Page: 0, Size: defaultSize}
	if raw := strings.TrimSpace(q.Get(pageKey)); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return p, fmt.Errorf("%w: %s must be a non-negative integer", ErrBadPage, pageKey)
		}
		p.Page = n
	}
	if raw := strings.TrimSpace(q.Get(sizeKey)); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return p, fmt.Errorf("%w: %s must be a non-negative integer", ErrBadPage, sizeKey)
		}
		if n > 0 {
			p.Size = n
		}
	}
	if p.Size > maxSize {
		p.Size = maxSize
	}
	if p.Size > 0 && p.Page > math.MaxInt/p.Size {
		return p, fmt.Errorf("%w: %s is out of range", ErrBadPage, pageKey)
	}
	return p, nil
}

// ParseLimit reads a single positive count from q, returning def when absent.
func ParseLimit(q url.Values, key string, def int) (int, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer", ErrBadPage, key)
	}
	if n == 0 {
		return def, nil
	}
	return n, nil
}
