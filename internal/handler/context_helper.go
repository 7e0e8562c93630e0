package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/vidyadesk/school-api/internal/middleware"
	"github.com/vidyadesk/school-api/internal/models"
	appErrors "github.com/vidyadesk/school-api/pkg/errors"
	"github.com/vidyadesk/school-api/pkg/response"
)

// currentClaims pulls the session claims, replying 401 when absent.
func currentClaims(c *gin.Context) (*models.Claims, bool) {
	claims, ok := middleware.CurrentClaims(c)
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "sign in to continue"))
		return nil, false
	}
	return claims, true
}

// requestTenant resolves the tenant for the public routes: session claims
// when present, otherwise the tenant named in the request itself. The
// second value is the school address, known only from a session.
func requestTenant(c *gin.Context) (string, string, bool) {
	if claims, ok := middleware.CurrentClaims(c); ok {
		return claims.Tenant, claims.TenantAddress, true
	}
	tenant := strings.TrimSpace(c.Query("tenant"))
	if tenant == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "tenant is required without a session"))
		return "", "", false
	}
	return tenant, "", true
}
