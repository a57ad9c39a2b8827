package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"bizportal/internal/handler"
	"bizportal/pkg/logger"
	"bizportal/pkg/metrics"
	"bizportal/pkg/rbac"
	"bizportal/pkg/trace"
	"bizportal/pkg/util"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RevocationChecker reports whether a token id has been logged out.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, jti string) bool
}

// OnceStore claims a key the first time it is seen.
type OnceStore interface {
	AcquireOnce(ctx context.Context, key string) bool
	Release(ctx context.Context, key string)
}

// Limiter counts hits per key within a window.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int64) (bool, int64, error)
}

// TraceMiddleware reuses the caller's trace id or generates one and echoes it back.
func TraceMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := trace.FromHeader(c.GetHeader(trace.HeaderName()), c.GetHeader("X-Request-ID"))
		if traceID == "" {
			traceID = trace.GenerateTraceID()
		}
		c.Request = c.Request.WithContext(trace.WithContext(c.Request.Context(), traceID))
		c.Header(trace.HeaderName(), traceID)
		c.Next()
	}
}

// RequestLogger records request duration in Prometheus and logs failures.
func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := c.Writer.Status()
		duration := time.Since(start)
		metrics.RecordHTTPRequestDuration(c.Request.Method, path, strconv.Itoa(status), duration)

		if status >= http.StatusInternalServerError {
			logger.WithTrace(c.Request.Context(), log).Error("Request failed",
				zap.String("method", c.Request.Method),
				zap.String("path", path),
				zap.Int("status", status),
				zap.Duration("duration", duration),
			)
		}
	}
}

// AuthMiddleware verifies the bearer token or session cookie and stores its claims.
func AuthMiddleware(jwtSecret string, revoked RevocationChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := util.ExtractToken(c.Request)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "missing token"})
			return
		}

		claims, err := util.ParseJWT(token, jwtSecret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "invalid token"})
			return
		}
		if revoked != nil && revoked.IsRevoked(c.Request.Context(), claims.ID) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "session expired"})
			return
		}

		handler.SetClaims(c, claims)
		c.Next()
	}
}

// RequirePermission aborts with 403 unless the caller's role grants permission.
func RequirePermission(permission string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get(handler.CtxUserID)
		if !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "user not authenticated"})
			return
		}
		uid, ok := userID.(int)
		if !ok {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"success": false, "error": "invalid user_id"})
			return
		}

		if err := rbac.CheckPermission(uid, c.GetString(handler.CtxRole), permission); err != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"success": false, "error": err.Error()})
			return
		}
		c.Next()
	}
}

// RequireRole aborts with 403 unless the caller has exactly role.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(handler.CtxRole) != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"success": false, "error": "insufficient permissions"})
			return
		}
		c.Next()
	}
}

// IdempotencyHeader names the header mutating clients send to collapse retries.
const IdempotencyHeader = "Idempotency-Key"

func idempotencyKey(userID int, path, key string) string {
	return fmt.Sprintf("idem:%d:%s:%s", userID, path, key)
}

// Idempotency rejects a repeated Idempotency-Key for the same user and route.
// Requests without the header pass through. A key is released again when the
// handler fails with a 5xx so the client may retry.
func Idempotency(store OnceStore, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(IdempotencyHeader)
		if key == "" || c.Request.Method == http.MethodGet {
			c.Next()
			return
		}

		redisKey := idempotencyKey(c.GetInt(handler.CtxUserID), c.FullPath(), key)
		if !store.AcquireOnce(c.Request.Context(), redisKey) {
			logger.WithTrace(c.Request.Context(), log).Warn("Duplicate request rejected",
				zap.String("idempotency_key", key),
				zap.String("path", c.FullPath()),
			)
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{
				"success": false,
				"error":   "duplicate request",
				"code":    "duplicate_request",
			})
			return
		}

		c.Next()

		if c.Writer.Status() >= http.StatusInternalServerError {
			store.Release(context.WithoutCancel(c.Request.Context()), redisKey)
		}
	}
}

// RateLimit allows limit requests per client IP and form within the limiter's window.
// Limiter errors let the request through.
func RateLimit(limiter Limiter, form string, limit int64, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := util.RateLimitKey(form, c.ClientIP())
		allowed, count, err := limiter.Allow(c.Request.Context(), key, limit)
		if err != nil {
			log.Warn("Rate limiter unavailable, allowing request", zap.String("form", form), zap.Error(err))
			c.Next()
			return
		}
		if !allowed {
			metrics.IncrementIntake(form, "rate_limited")
			log.Warn("Rate limit exceeded",
				zap.String("form", form),
				zap.String("client_ip", c.ClientIP()),
				zap.Int64("count", count),
			)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"error":   "too many submissions, please try again later",
				"code":    "rate_limited",
			})
			return
		}
		c.Next()
	}
}
