package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/bp3mi/presensi-api/internal/middleware"
	"github.com/bp3mi/presensi-api/internal/models"
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

// actorFromContext returns the authenticated user's email, or nil for
// unauthenticated requests. Used for audit attribution.
func actorFromContext(c *gin.Context) *string {
	claims := claimsFromContext(c)
	if claims == nil {
		return nil
	}
	email := claims.Email
	return &email
}
