package handler

import (
	"errors"
	"net/http"
	"strconv"

	"bizportal/internal/billing"
	"bizportal/internal/service"
	"bizportal/pkg/logger"
	"bizportal/pkg/outbox"
	"bizportal/pkg/rbac"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// AppError is an error with the HTTP status and code it maps to.
type AppError struct {
	Status  int
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// classify maps a service error onto an AppError.
func classify(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var verr *service.ValidationError
	var denied *rbac.PermissionDeniedError
	var scope *rbac.ClientScopeError

	switch {
	case errors.As(err, &verr):
		return &AppError{Status: http.StatusBadRequest, Code: "validation_failed", Message: verr.Error(), Err: err}
	case errors.Is(err, service.ErrInvalidInput):
		return &AppError{Status: http.StatusBadRequest, Code: "invalid_input", Message: err.Error(), Err: err}
	case errors.Is(err, service.ErrNotFound), errors.Is(err, pgx.ErrNoRows), errors.Is(err, outbox.ErrEventNotFound):
		return &AppError{Status: http.StatusNotFound, Code: "not_found", Message: "not found", Err: err}
	case errors.As(err, &denied), errors.As(err, &scope):
		return &AppError{Status: http.StatusForbidden, Code: "forbidden", Message: "insufficient permissions", Err: err}
	case errors.Is(err, service.ErrInvalidCredentials):
		return &AppError{Status: http.StatusUnauthorized, Code: "invalid_credentials", Message: err.Error(), Err: err}
	case errors.Is(err, billing.ErrInvalidTransition), errors.Is(err, service.ErrConflict):
		return &AppError{Status: http.StatusConflict, Code: "conflict", Message: err.Error(), Err: err}
	}
	return &AppError{Status: http.StatusInternalServerError, Code: "internal", Message: "internal error", Err: err}
}

// respondError logs err at a level matching its status and writes the error envelope.
func respondError(c *gin.Context, log *zap.Logger, op string, err error) {
	appErr := classify(err)
	l := logger.WithTrace(c.Request.Context(), log)

	if appErr.Status >= http.StatusInternalServerError {
		l.Error(op+": failed", zap.Error(err))
	} else {
		l.Warn(op+": rejected", zap.Int("status", appErr.Status), zap.Error(err))
	}

	c.JSON(appErr.Status, gin.H{
		"success": false,
		"error":   appErr.Message,
		"code":    appErr.Code,
	})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": msg, "code": "bad_request"})
}

// paramID parses the named path parameter as a positive int.
func paramID(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return id, true
}

func queryInt(c *gin.Context, name string) int {
	n, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return 0
	}
	return n
}
