package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/shortcourse-api/internal/middleware"
	"github.com/noah-isme/shortcourse-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	return middleware.ClaimsFromContext(c)
}

// viewerFromContext derives the viewer scope from the authenticated claims.
func viewerFromContext(c *gin.Context) (*models.ViewerScope, bool) {
	claims := claimsFromContext(c)
	if claims == nil {
		return nil, false
	}
	return claims.Scope(), true
}
