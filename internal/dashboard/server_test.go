package dashboard

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"bizportal/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeBackend serves the auth endpoints the login flow calls.
func fakeBackend(t *testing.T, role string) *httptest.Server {
	t.Helper()
	user := model.User{ID: 1, Email: "owner@example.com", Name: "Owner", Role: role}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var in struct{ Email, Password string }
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Password != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"token": "tok", "user": user})
	})
	mux.HandleFunc("GET /api/auth/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"user": user})
	})
	mux.HandleFunc("POST /api/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"success": true})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestServer(t *testing.T, backend string) (*Server, *SessionManager) {
	t.Helper()
	sessions := NewSessionManager(time.Hour, zap.NewNop())
	s := NewServer(Options{
		APIBaseURL:        backend,
		AuthProbeAttempts: 2,
		AuthProbeDelay:    time.Millisecond,
	}, sessions, NewHub(zap.NewNop()), newTestViews(t), zap.NewNop())
	return s, sessions
}

func postForm(h http.Handler, path string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func get(h http.Handler, path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == SessionCookieName {
			return c
		}
	}
	t.Fatal("no session cookie set")
	return nil
}

func TestServer_RequiresSession(t *testing.T) {
	s, _ := newTestServer(t, "http://127.0.0.1:0")

	w := get(s.Handler(), "/admin/tab/leads")
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))

	w = get(s.Handler(), "/login")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Admin login")
}

func TestServer_LoginFlow(t *testing.T) {
	backend := fakeBackend(t, "admin")
	s, sessions := newTestServer(t, backend.URL)

	w := postForm(s.Handler(), "/login", url.Values{"email": {"owner@example.com"}, "password": {"secret"}})
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/admin/tab/overview", w.Header().Get("Location"))
	cookie := sessionCookie(t, w)
	assert.True(t, cookie.HttpOnly)
	require.Len(t, sessions.List(), 1)

	// unknown tabs render the current page without touching the API
	w = get(s.Handler(), "/admin/tab/nowhere", cookie)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Unknown section: nowhere")
	assert.Contains(t, w.Body.String(), `data-active-tab="overview"`)

	w = postForm(s.Handler(), "/admin/dirty", url.Values{"dirty": {"true"}}, cookie)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.True(t, sessions.List()[0].Controller.Dirty())

	w = postForm(s.Handler(), "/logout", nil, cookie)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Empty(t, sessions.List())
}

func TestServer_LoginRejected(t *testing.T) {
	backend := fakeBackend(t, "admin")
	s, sessions := newTestServer(t, backend.URL)

	w := postForm(s.Handler(), "/login", url.Values{"email": {"owner@example.com"}, "password": {"wrong"}})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid email or password")
	assert.Empty(t, sessions.List())

	w = postForm(s.Handler(), "/login", url.Values{"email": {"owner@example.com"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServer_ClientRoleCannotLogin(t *testing.T) {
	backend := fakeBackend(t, "client")
	s, sessions := newTestServer(t, backend.URL)

	w := postForm(s.Handler(), "/login", url.Values{"email": {"owner@example.com"}, "password": {"secret"}})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "Admin access required")
	assert.Empty(t, sessions.List())
}

func TestServer_ActionsAndSection(t *testing.T) {
	s, sessions := newTestServer(t, "http://127.0.0.1:0")
	api := newFakeAPI()
	id := sessions.NewID()
	sessions.Put(&Session{
		ID:         id,
		User:       &model.User{ID: 1, Role: "admin"},
		Controller: NewController(api, &model.User{ID: 1}, newTestViews(t), zap.NewNop()),
	})
	cookie := &http.Cookie{Name: SessionCookieName, Value: id}

	w := get(s.Handler(), "/admin/tab/project-detail?id=1", cookie)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Bakery site")

	w = postForm(s.Handler(), "/admin/action", url.Values{"action": {ActionMilestoneDelete}, "project_id": {"1"}, "id": {"13"}}, cookie)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "Please confirm this action")

	w = postForm(s.Handler(), "/admin/action", url.Values{"action": {"nope"}}, cookie)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = get(s.Handler(), "/admin/section", cookie)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Launch")
}
