package user

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-contest-hub/internal/auth"
	"github.com/ovaphlow/pitchfork/service-contest-hub/internal/user/entity"
)

func newTestHandler() *Handler {
	svc, _ := newTestService()
	return NewHandler(svc, zap.NewNop().Sugar())
}

func TestHandler_Create(t *testing.T) {
	h := newTestHandler()

	body := `{"email":"new@example.com","name":"New","role":"admin"}`
	rec := httptest.NewRecorder()
	h.Create(rec, httptest.NewRequest(http.MethodPost, "/users", strings.NewReader(body)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var u entity.User
	if err := json.Unmarshal(rec.Body.Bytes(), &u); err != nil {
		t.Fatal(err)
	}
	if u.Role != entity.RoleUser {
		t.Errorf("role must not be client controlled, got %q", u.Role)
	}

	rec = httptest.NewRecorder()
	h.Create(rec, httptest.NewRequest(http.MethodPost, "/users", strings.NewReader(body)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for duplicate, got %d", rec.Code)
	}
	var resp CreateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Created || resp.Message != "user already exists" {
		t.Errorf("unexpected duplicate response %+v", resp)
	}
}

func TestHandler_List_RejectsBadPagination(t *testing.T) {
	h := newTestHandler()
	for _, q := range []string{"page=-1", "size=abc", "page=x"} {
		rec := httptest.NewRecorder()
		h.List(rec, httptest.NewRequest(http.MethodGet, "/users?"+q, nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", q, rec.Code)
		}
	}
}

func TestHandler_Get_NotFound(t *testing.T) {
	h := newTestHandler()
	req := httptest.NewRequest(http.MethodGet, "/users/ghost@example.com", nil)
	req.SetPathValue("email", "ghost@example.com")
	rec := httptest.NewRecorder()
	h.Get(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestHandler_UpsertProfile_OnlySelf(t *testing.T) {
	h := newTestHandler()

	req := httptest.NewRequest(http.MethodPut, "/users/other@example.com", strings.NewReader(`{"name":"x"}`))
	req.SetPathValue("email", "other@example.com")
	req = req.WithContext(auth.WithPrincipal(req.Context(), auth.Principal{Email: "me@example.com", Role: entity.RoleAdmin}))
	rec := httptest.NewRecorder()
	h.UpsertProfile(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 editing someone else, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPut, "/users/me@example.com", strings.NewReader(`{"name":"Me"}`))
	req.SetPathValue("email", "me@example.com")
	req = req.WithContext(auth.WithPrincipal(req.Context(), auth.Principal{Email: "me@example.com", Role: entity.RoleUser}))
	rec = httptest.NewRecorder()
	h.UpsertProfile(rec, req)
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201 on first profile write, got %d: %s", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodPut, "/users/me@example.com", strings.NewReader(`{"role":"admin"}`))
	req.SetPathValue("email", "me@example.com")
	req = req.WithContext(auth.WithPrincipal(req.Context(), auth.Principal{Email: "me@example.com", Role: entity.RoleUser}))
	rec = httptest.NewRecorder()
	h.UpsertProfile(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown field, got %d", rec.Code)
	}
}

func TestFirstSeenAccount_TokenThenProfileUpsert(t *testing.T) {
	svc, repo := newTestService()
	logger := zap.NewNop().Sugar()
	tokens, err := auth.NewTokenService(auth.Config{Secret: "s", TTL: time.Hour})
	if err != nil {
		t.Fatal(err)
	}
	gw := auth.NewGateway(tokens, svc, logger)
	h := NewHandler(svc, logger)
	mux := http.NewServeMux()
	mux.HandleFunc("POST /jwt", auth.NewHandler(tokens, svc, logger).IssueToken)
	mux.Handle("PUT /users/{email}", gw.Guard(auth.Identified, http.HandlerFunc(h.UpsertProfile)))
	mux.Handle("GET /users", gw.Guard(auth.Admin, http.HandlerFunc(h.List)))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/jwt", strings.NewReader(`{"email":"fresh@example.com"}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("token for a new email: %d %s", rec.Code, rec.Body.String())
	}
	var tok auth.TokenResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &tok); err != nil {
		t.Fatal(err)
	}

	put := func(path string) int {
		req := httptest.NewRequest(http.MethodPut, path, strings.NewReader(`{"name":"Fresh"}`))
		req.Header.Set("Authorization", "Bearer "+tok.Token)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		return rec.Code
	}
	if code := put("/users/other@example.com"); code != http.StatusForbidden {
		t.Errorf("upsert of someone else: expected 403, got %d", code)
	}
	if code := put("/users/fresh@example.com"); code != http.StatusCreated {
		t.Fatalf("first upsert: expected 201, got %d", code)
	}
	if u, err := repo.GetByEmail(context.Background(), "fresh@example.com"); err != nil || u.Role != entity.RoleUser || u.Name != "Fresh" {
		t.Errorf("account not created as a plain user: %+v", u)
	}
	if code := put("/users/fresh@example.com"); code != http.StatusOK {
		t.Errorf("second upsert: expected 200, got %d", code)
	}

	req := httptest.NewRequest(http.MethodGet, "/users", nil)
	req.Header.Set("Authorization", "Bearer "+tok.Token)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("new account must not reach admin routes, got %d", rec.Code)
	}
}
