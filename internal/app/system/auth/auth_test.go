package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/seatplan/internal/app/system/auth"
	"go.uber.org/zap"
)

func newTestSessionManager(t *testing.T) *auth.SessionManager {
	t.Helper()
	sm, err := auth.NewSessionManager(
		"test-session-key-must-be-32-chars-long",
		"test-session",
		"",
		24*time.Hour,
		false,
		zap.NewNop(),
	)
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

// signedInCookie mints a session cookie for userID.
func signedInCookie(t *testing.T, sm *auth.SessionManager, userID string) *http.Cookie {
	t.Helper()
	rec := httptest.NewRecorder()
	if err := sm.SignIn(rec, httptest.NewRequest("GET", "/", nil), userID); err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected 1 cookie, got %d", len(cookies))
	}
	return cookies[0]
}

// captureUser runs the LoadSessionUser middleware and returns the user it injected.
func captureUser(sm *auth.SessionManager, req *http.Request) (*auth.SessionUser, bool) {
	var got *auth.SessionUser
	var ok bool
	h := sm.LoadSessionUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok = auth.CurrentUser(r)
	}))
	h.ServeHTTP(httptest.NewRecorder(), req)
	return got, ok
}

func TestNewSessionManager_EmptyKey(t *testing.T) {
	if _, err := auth.NewSessionManager("", "s", "", time.Hour, false, zap.NewNop()); err == nil {
		t.Error("expected error for empty session key")
	}
}

func TestRequireSignedIn_NoUser_Returns401JSON(t *testing.T) {
	sm := newTestSessionManager(t)

	handler := sm.RequireSignedIn(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/api/allocations/preview", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("Content-Type: got %q, want application/json", ct)
	}
	if !strings.Contains(rec.Body.String(), `"error":"Unauthorized"`) {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}

func TestRequireSignedIn_WithUser_Proceeds(t *testing.T) {
	sm := newTestSessionManager(t)

	handler := sm.RequireSignedIn(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := auth.WithTestUser(httptest.NewRequest("GET", "/", nil), &auth.SessionUser{ID: "507f1f77bcf86cd799439011"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
}

func TestLoadSessionUser_RoundTrip(t *testing.T) {
	sm := newTestSessionManager(t)
	const id = "507f1f77bcf86cd799439011"

	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(signedInCookie(t, sm, id))

	u, ok := captureUser(sm, req)
	if !ok {
		t.Fatal("expected a signed-in user")
	}
	if u.ID != id {
		t.Errorf("ID: got %q, want %q", u.ID, id)
	}
}

func TestLoadSessionUser_UsesFetcher(t *testing.T) {
	sm := newTestSessionManager(t)
	const id = "507f1f77bcf86cd799439011"
	sm.SetUserFetcher(stubFetcher{users: map[string]*auth.SessionUser{
		id: {ID: id, Name: "Ada", Email: "ada@example.com"},
	}})

	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(signedInCookie(t, sm, id))
	u, ok := captureUser(sm, req)
	if !ok {
		t.Fatal("expected a signed-in user")
	}
	if u.Name != "Ada" {
		t.Errorf("Name: got %q, want %q", u.Name, "Ada")
	}

	// A user the fetcher no longer knows is signed out.
	req = httptest.NewRequest("GET", "/", nil)
	req.AddCookie(signedInCookie(t, sm, "507f1f77bcf86cd799439012"))
	if _, ok := captureUser(sm, req); ok {
		t.Error("expected unknown user to be treated as signed out")
	}
}

func TestLoadSessionUser_TamperedCookie(t *testing.T) {
	sm := newTestSessionManager(t)

	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(&http.Cookie{Name: "test-session", Value: "not-a-valid-cookie"})

	if _, ok := captureUser(sm, req); ok {
		t.Error("expected tampered cookie to be treated as signed out")
	}
}

func TestLoadSessionUser_OtherKey(t *testing.T) {
	sm := newTestSessionManager(t)
	other, err := auth.NewSessionManager("another-session-key-that-is-32-chars!!", "test-session", "", time.Hour, false, zap.NewNop())
	if err != nil {
		t.Fatalf("NewSessionManager failed: %v", err)
	}

	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(signedInCookie(t, other, "507f1f77bcf86cd799439011"))

	if _, ok := captureUser(sm, req); ok {
		t.Error("expected cookie signed with another key to be rejected")
	}
}

func TestCurrentUser_NoUser(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)

	user, ok := auth.CurrentUser(req)
	if ok {
		t.Error("expected ok to be false when no user in context")
	}
	if user != nil {
		t.Error("expected user to be nil when no user in context")
	}
}
