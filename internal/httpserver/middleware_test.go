package httpserver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"bizportal/internal/handler"
	"bizportal/pkg/rbac"
	"bizportal/pkg/trace"
	"bizportal/pkg/util"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeRevoked map[string]bool

func (f fakeRevoked) IsRevoked(_ context.Context, jti string) bool { return f[jti] }

type memOnce struct {
	seen     map[string]bool
	released []string
}

func (m *memOnce) AcquireOnce(_ context.Context, key string) bool {
	if m.seen[key] {
		return false
	}
	m.seen[key] = true
	return true
}

func (m *memOnce) Release(_ context.Context, key string) {
	delete(m.seen, key)
	m.released = append(m.released, key)
}

type countingLimiter struct {
	counts map[string]int64
	err    error
}

func (l *countingLimiter) Allow(_ context.Context, key string, limit int64) (bool, int64, error) {
	if l.err != nil {
		return true, 0, l.err
	}
	l.counts[key]++
	return l.counts[key] <= limit, l.counts[key], nil
}

func token(t *testing.T, role string, clientID int) (string, *util.Claims) {
	t.Helper()
	tok, claims, err := util.GenerateJWT(7, role, clientID, testSecret, time.Hour)
	require.NoError(t, err)
	return tok, claims
}

func protected(revoked RevocationChecker, mw ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	chain := append([]gin.HandlerFunc{AuthMiddleware(testSecret, revoked)}, mw...)
	chain = append(chain, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetInt(handler.CtxUserID), "role": c.GetString(handler.CtxRole)})
	})
	r.GET("/p", chain...)
	r.POST("/p", chain...)
	return r
}

func do(r http.Handler, method, path, bearer string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	tok, claims := token(t, rbac.RoleAdmin, 0)
	r := protected(fakeRevoked{})

	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/p", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/p", "garbage", nil).Code)

	w := do(r, http.MethodGet, "/p", tok, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"user_id":7`)

	revoked := protected(fakeRevoked{claims.ID: true})
	assert.Equal(t, http.StatusUnauthorized, do(revoked, http.MethodGet, "/p", tok, nil).Code)
}

func TestRequirePermission(t *testing.T) {
	r := protected(nil, RequirePermission(rbac.PermissionManageInvoices))

	adminTok, _ := token(t, rbac.RoleAdmin, 0)
	clientTok, _ := token(t, rbac.RoleClient, 3)

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/p", adminTok, nil).Code)
	assert.Equal(t, http.StatusForbidden, do(r, http.MethodGet, "/p", clientTok, nil).Code)
}

func TestRequireRole(t *testing.T) {
	r := protected(nil, RequireRole(rbac.RoleClient))

	adminTok, _ := token(t, rbac.RoleAdmin, 0)
	clientTok, _ := token(t, rbac.RoleClient, 3)

	assert.Equal(t, http.StatusForbidden, do(r, http.MethodGet, "/p", adminTok, nil).Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/p", clientTok, nil).Code)
}

func TestIdempotency(t *testing.T) {
	store := &memOnce{seen: map[string]bool{}}
	r := protected(nil, Idempotency(store, zap.NewNop()))
	tok, _ := token(t, rbac.RoleAdmin, 0)
	key := map[string]string{IdempotencyHeader: "abc"}

	assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/p", tok, key).Code)
	assert.Equal(t, http.StatusConflict, do(r, http.MethodPost, "/p", tok, key).Code)

	// no header and GETs are never collapsed
	assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/p", tok, nil).Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/p", tok, key).Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/p", tok, key).Code)
}

func TestIdempotency_ReleasesOnServerError(t *testing.T) {
	store := &memOnce{seen: map[string]bool{}}
	r := gin.New()
	r.POST("/fail", Idempotency(store, zap.NewNop()), func(c *gin.Context) {
		c.Status(http.StatusInternalServerError)
	})
	key := map[string]string{IdempotencyHeader: "k1"}

	assert.Equal(t, http.StatusInternalServerError, do(r, http.MethodPost, "/fail", "", key).Code)
	assert.Equal(t, http.StatusInternalServerError, do(r, http.MethodPost, "/fail", "", key).Code)
	assert.Len(t, store.released, 2)
}

func TestRateLimit(t *testing.T) {
	limiter := &countingLimiter{counts: map[string]int64{}}
	r := gin.New()
	r.POST("/intake", RateLimit(limiter, "intake", 2, zap.NewNop()), func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})

	assert.Equal(t, http.StatusCreated, do(r, http.MethodPost, "/intake", "", nil).Code)
	assert.Equal(t, http.StatusCreated, do(r, http.MethodPost, "/intake", "", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, do(r, http.MethodPost, "/intake", "", nil).Code)
}

func TestRateLimit_FailsOpen(t *testing.T) {
	limiter := &countingLimiter{err: errors.New("redis down")}
	r := gin.New()
	r.POST("/intake", RateLimit(limiter, "intake", 1, zap.NewNop()), func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})

	for range 3 {
		assert.Equal(t, http.StatusCreated, do(r, http.MethodPost, "/intake", "", nil).Code)
	}
}

func TestTraceMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(TraceMiddleware())
	r.GET("/t", func(c *gin.Context) {
		c.String(http.StatusOK, trace.FromContext(c.Request.Context()))
	})

	w := do(r, http.MethodGet, "/t", "", map[string]string{trace.HeaderName(): "trace-1"})
	assert.Equal(t, "trace-1", w.Body.String())
	assert.Equal(t, "trace-1", w.Header().Get(trace.HeaderName()))

	w = do(r, http.MethodGet, "/t", "", nil)
	assert.NotEmpty(t, w.Body.String())
	assert.Equal(t, w.Body.String(), w.Header().Get(trace.HeaderName()))
}

func TestNewServer_CORS(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/intake", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	srv := NewServer(":0", mux, []string{"https://example.com"})

	req := httptest.NewRequest(http.MethodOptions, "/api/intake", nil)
	req.Header.Set("Origin", "https://example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	srv.Handler.ServeHTTP(w, req)

	assert.Equal(t, "https://example.com", w.Header().Get("Access-Control-Allow-Origin"))
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestReadiness(t *testing.T) {
	r := gin.New()
	r.GET("/ok", Readiness(pingFunc(func(context.Context) error { return nil })))
	r.GET("/down", Readiness(pingFunc(func(context.Context) error { return errors.New("no db") })))

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/ok", "", nil).Code)

	w := do(r, http.MethodGet, "/down", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "db_not_ready")
}
