package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dalemusser/directoryhub/internal/app/system/auth"
	"github.com/gorilla/securecookie"
	"go.uber.org/zap"
)

const testKey = "test-session-key-must-be-32-chars-long"

func newTestSessionManager(t *testing.T) *auth.SessionManager {
	t.Helper()
	sm, err := auth.NewSessionManager(testKey, "test-session", "", 24*time.Hour, false, zap.NewNop())
	if err != nil {
		t.Fatalf("failed to create session manager: %v", err)
	}
	return sm
}

type stubFetcher struct {
	users map[string]*auth.SessionUser
}

func (f stubFetcher) FetchUser(_ context.Context, id string) *auth.SessionUser {
	return f.users[id]
}

// sessionCookie encodes values the same way gorilla's CookieStore does.
func sessionCookie(t *testing.T, values map[interface{}]interface{}) *http.Cookie {
	t.Helper()
	codec := securecookie.New([]byte(testKey), nil)
	encoded, err := codec.Encode("test-session", values)
	if err != nil {
		t.Fatalf("encode cookie: %v", err)
	}
	return &http.Cookie{Name: "test-session", Value: encoded}
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestNewSessionManager_EmptyKeyInProduction(t *testing.T) {
	_, err := auth.NewSessionManager("", "s", "", time.Hour, true, zap.NewNop())
	if err == nil {
		t.Fatal("expected error for empty key with secure cookies")
	}
}

func TestNewSessionManager_EmptyKeyInDev(t *testing.T) {
	if _, err := auth.NewSessionManager("", "s", "", time.Hour, false, zap.NewNop()); err != nil {
		t.Fatalf("expected dev manager with generated key, got %v", err)
	}
}

func TestLoadSessionUser_ResolvesFreshUser(t *testing.T) {
	sm := newTestSessionManager(t)
	sm.SetUserFetcher(stubFetcher{users: map[string]*auth.SessionUser{
		"u1": {ID: "u1", Name: "Ada", Role: "admin"},
	}})

	var got *auth.SessionUser
	h := sm.LoadSessionUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = auth.CurrentUser(r)
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(sessionCookie(t, map[interface{}]interface{}{"is_authenticated": true, "user_id": "u1"}))
	h.ServeHTTP(httptest.NewRecorder(), req)

	if got == nil || got.Role != "admin" {
		t.Fatalf("expected admin user in context, got %+v", got)
	}
}

func TestLoadSessionUser_UnknownUserIsAnonymous(t *testing.T) {
	sm := newTestSessionManager(t)
	sm.SetUserFetcher(stubFetcher{users: map[string]*auth.SessionUser{}})

	found := true
	h := sm.LoadSessionUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, found = auth.CurrentUser(r)
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(sessionCookie(t, map[interface{}]interface{}{"is_authenticated": true, "user_id": "gone"}))
	h.ServeHTTP(httptest.NewRecorder(), req)

	if found {
		t.Error("expected no user for a deleted account")
	}
}

func TestLoadSessionUser_TamperedCookie(t *testing.T) {
	sm := newTestSessionManager(t)
	found := true
	h := sm.LoadSessionUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, found = auth.CurrentUser(r)
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(&http.Cookie{Name: "test-session", Value: "garbage"})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if found {
		t.Error("expected anonymous request for a tampered cookie")
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected request to continue, got %d", rec.Code)
	}
}

func TestRequireSignedIn(t *testing.T) {
	sm := newTestSessionManager(t)
	h := sm.RequireSignedIn(okHandler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/claims/mine", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous: expected 401, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	req := auth.WithTestUser(httptest.NewRequest("GET", "/claims/mine", nil), &auth.SessionUser{ID: "u1", Role: "member"})
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("signed in: expected 200, got %d", rec.Code)
	}
}

func TestRequireRole(t *testing.T) {
	sm := newTestSessionManager(t)
	h := sm.RequireRole("admin")(okHandler())

	tests := []struct {
		name string
		user *auth.SessionUser
		want int
	}{
		{"anonymous", nil, http.StatusUnauthorized},
		{"member", &auth.SessionUser{ID: "u1", Role: "member"}, http.StatusForbidden},
		{"admin", &auth.SessionUser{ID: "a1", Role: "admin"}, http.StatusOK},
		{"admin mixed case", &auth.SessionUser{ID: "a1", Role: "Admin"}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/admin/claims/x/approve", nil)
			if tt.user != nil {
				req = auth.WithTestUser(req, tt.user)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("got %d, want %d", rec.Code, tt.want)
			}
		})
	}
}
