package handler

import (
	"bizportal/internal/service"
	"bizportal/pkg/util"

	"github.com/gin-gonic/gin"
)

// Context keys set by the auth middleware.
const (
	CtxUserID   = "user_id"
	CtxRole     = "role"
	CtxClientID = "client_id"
	CtxClaims   = "claims"
)

// SetClaims stores the verified token claims on c.
func SetClaims(c *gin.Context, claims *util.Claims) {
	c.Set(CtxClaims, claims)
	c.Set(CtxUserID, claims.UserID)
	c.Set(CtxRole, claims.Role)
	c.Set(CtxClientID, claims.ClientID)
}

func claimsFrom(c *gin.Context) *util.Claims {
	v, ok := c.Get(CtxClaims)
	if !ok {
		return nil
	}
	claims, _ := v.(*util.Claims)
	return claims
}

// actorFrom builds the service actor for the authenticated request.
func actorFrom(c *gin.Context) service.Actor {
	return service.Actor{
		UserID:   c.GetInt(CtxUserID),
		Role:     c.GetString(CtxRole),
		ClientID: c.GetInt(CtxClientID),
	}
}
