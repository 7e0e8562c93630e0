package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/vidyadesk/school-api/internal/models"
	"github.com/vidyadesk/school-api/internal/service"
	appErrors "github.com/vidyadesk/school-api/pkg/errors"
	"github.com/vidyadesk/school-api/pkg/response"
)

// ContextUserKey is the gin context key storing session claims.
const ContextUserKey = "currentUser"

// openPrefixes are paths that bypass role restriction entirely, session or
// not. Marksheets go out to guardians and timetables are school-wide
// notices, so neither sits behind the role gate.
var openPrefixes = []string{
	"/result/marksheet",
	"/exam-timetable",
}

// CookieAuth resolves the session cookie into claims when present. It never
// blocks on its own; RequireRoles decides who gets through.
func CookieAuth(authService *service.AuthService, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(cookieName)
		if err != nil || token == "" {
			c.Next()
			return
		}

		claims, err := authService.ValidateToken(token)
		if err != nil {
			c.Next()
			return
		}

		c.Set(ContextUserKey, claims)
		c.Next()
	}
}

// RequireRoles enforces role-based access. The open prefixes pass before
// any principal check; everything else needs a session carrying one of the
// allowed roles.
func RequireRoles(roles ...models.Role) gin.HandlerFunc {
	allowed := make(map[models.Role]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}

	return func(c *gin.Context) {
		for _, prefix := range openPrefixes {
			if strings.HasPrefix(c.Request.URL.Path, prefix) {
				c.Next()
				return
			}
		}

		claimsValue, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "sign in to continue"))
			c.Abort()
			return
		}
		claims := claimsValue.(*models.Claims)

		if _, ok := allowed[claims.Role]; !ok {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "your role does not allow this action"))
			c.Abort()
			return
		}
		c.Next()
	}
}

// CurrentClaims extracts the session claims set by CookieAuth.
func CurrentClaims(c *gin.Context) (*models.Claims, bool) {
	claimsValue, exists := c.Get(ContextUserKey)
	if !exists {
		return nil, false
	}
	claims, ok := claimsValue.(*models.Claims)
	return claims, ok
}
