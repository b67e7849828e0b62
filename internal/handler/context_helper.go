package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/bgpnc/members-api/internal/middleware"
	"github.com/bgpnc/members-api/internal/models"
	"github.com/bgpnc/members-api/internal/service"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// requestMeta captures caller identity and origin for audit entries.
func requestMeta(c *gin.Context) service.RequestMeta {
	meta := service.RequestMeta{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
	if claims := claimsFromContext(c); claims != nil {
		userID := claims.UserID
		meta.UserID = &userID
	}
	return meta
}
