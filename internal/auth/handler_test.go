package auth_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"jobmate/research-service/internal/auth"
)

func newMux(svc *auth.Service) *http.ServeMux {
	mux := http.NewServeMux()
	auth.NewHandler(svc, false).RegisterRoutes(mux)
	return mux
}

func do(mux http.Handler, method, path, body string, mod func(*http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if mod != nil {
		mod(req)
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
		t.Fatalf("body %q: %v", rec.Body.String(), err)
	}
	return m
}

func TestHandler_RegisterShortPassword(t *testing.T) {
	svc, _, _ := newTestService()
	rec := do(newMux(svc), http.MethodPost, "/auth/register",
		`{"username":"bob","email":"bob@example.com","password":"123"}`, nil)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	body := decode(t, rec)
	if body["error"] != "Password too short" || body["details"] != "Password must be at least 6 characters long" {
		t.Errorf("body = %v", body)
	}
}

func TestHandler_RegisterSetsCookie(t *testing.T) {
	svc, _, _ := newTestService()
	rec := do(newMux(svc), http.MethodPost, "/auth/register",
		`{"username":"alice","email":"alice@example.com","password":"secret123"}`, nil)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body)
	}
	body := decode(t, rec)
	if body["success"] != true || body["token"] == "" {
		t.Errorf("body = %v", body)
	}
	user, _ := body["user"].(map[string]any)
	if _, leaked := user["password_hash"]; leaked {
		t.Error("password hash serialized")
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != auth.CookieName || !cookies[0].HttpOnly {
		t.Fatalf("cookies = %+v", cookies)
	}
}

func TestHandler_DuplicateEmailConflict(t *testing.T) {
	svc, _, _ := newTestService()
	mux := newMux(svc)
	do(mux, http.MethodPost, "/auth/register", `{"username":"alice","email":"a@example.com","password":"secret123"}`, nil)
	rec := do(mux, http.MethodPost, "/auth/register", `{"username":"alice2","email":"a@example.com","password":"secret123"}`, nil)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	if body := decode(t, rec); body["error"] != "Email already registered" {
		t.Errorf("body = %v", body)
	}
}

func TestHandler_MeRequiresAuth(t *testing.T) {
	svc, _, _ := newTestService()
	mux := newMux(svc)

	rec := do(mux, http.MethodGet, "/auth/me", "", nil)
	if rec.Code != http.StatusUnauthorized || decode(t, rec)["error"] != "Authentication required" {
		t.Fatalf("no token: %d %s", rec.Code, rec.Body)
	}
	rec = do(mux, http.MethodGet, "/auth/me", "", func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer nonsense")
	})
	if rec.Code != http.StatusUnauthorized || decode(t, rec)["error"] != "Invalid or expired token" {
		t.Fatalf("bad token: %d %s", rec.Code, rec.Body)
	}
}

func TestHandler_LoginMeLogout(t *testing.T) {
	svc, _, _ := newTestService()
	mux := newMux(svc)
	do(mux, http.MethodPost, "/auth/register", `{"username":"alice","email":"a@example.com","password":"secret123"}`, nil)

	rec := do(mux, http.MethodPost, "/auth/login", `{"login":"alice","password":"secret123"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d: %s", rec.Code, rec.Body)
	}
	token, _ := decode(t, rec)["token"].(string)
	bearer := func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }

	rec = do(mux, http.MethodGet, "/auth/me", "", bearer)
	if rec.Code != http.StatusOK {
		t.Fatalf("me status = %d: %s", rec.Code, rec.Body)
	}
	user, _ := decode(t, rec)["user"].(map[string]any)
	if user["username"] != "alice" {
		t.Errorf("me user = %v", user)
	}

	rec = do(mux, http.MethodPost, "/auth/logout", "", bearer)
	if rec.Code != http.StatusOK {
		t.Fatalf("logout status = %d", rec.Code)
	}
	rec = do(mux, http.MethodGet, "/auth/me", "", bearer)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("me after logout = %d, want 401", rec.Code)
	}
}

func TestHandler_CookieToken(t *testing.T) {
	svc, _, _ := newTestService()
	mux := newMux(svc)
	rec := do(mux, http.MethodPost, "/auth/register", `{"username":"alice","email":"a@example.com","password":"secret123"}`, nil)
	cookie := rec.Result().Cookies()[0]

	rec = do(mux, http.MethodGet, "/auth/me", "", func(r *http.Request) { r.AddCookie(cookie) })
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestHandler_MethodNotAllowed(t *testing.T) {
	svc, _, _ := newTestService()
	rec := do(newMux(svc), http.MethodGet, "/auth/login", "", nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
}
