package middleware

import (
	"backend/internal/service"
	"backend/pkg/response"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const principalKey = "principal"

// SetTokenCookies sets access_token and refresh_token as HttpOnly cookies
func SetTokenCookies(c *gin.Context, accessToken, refreshToken string) {
	// Production (cross-origin): SameSiteNoneMode + Secure=true
	// Development (same-site):   SameSiteLaxMode  + Secure=false
	sameSite := http.SameSiteLaxMode
	secure := false
	if os.Getenv("GIN_MODE") == "release" || os.Getenv("RENDER") != "" {
		sameSite = http.SameSiteNoneMode
		secure = true
	}

	c.SetSameSite(sameSite)
	// access_token: 24h, path=/, domain="", secure, HttpOnly
	c.SetCookie("access_token", accessToken, 3600*24, "/", "", secure, true)
	// refresh_token: 7 days, path=/, domain="", secure, HttpOnly
	c.SetCookie("refresh_token", refreshToken, 3600*24*7, "/", "", secure, true)
}

// ClearTokenCookies removes access_token and refresh_token cookies
func ClearTokenCookies(c *gin.Context) {
	sameSite := http.SameSiteLaxMode
	secure := false
	if os.Getenv("GIN_MODE") == "release" || os.Getenv("RENDER") != "" {
		sameSite = http.SameSiteNoneMode
		secure = true
	}

	c.SetSameSite(sameSite)
	c.SetCookie("access_token", "", -1, "/", "", secure, true)
	c.SetCookie("refresh_token", "", -1, "/", "", secure, true)
}

// resolver holds the permission resolver reference for RequirePermission — set via InitPermissionMiddleware
var resolver service.PermissionResolver

// InitPermissionMiddleware sets the resolver used by RequirePermission
func InitPermissionMiddleware(r service.PermissionResolver) {
	resolver = r
}

// extractPrincipal parses the JWT (cookie first, Authorization header fallback)
// and builds the acting principal from its claims. Returns false after writing
// the error response when the token is missing or invalid.
func extractPrincipal(c *gin.Context) (service.Principal, bool) {
	var p service.Principal

	tokenString, cookieErr := c.Cookie("access_token")
	if cookieErr != nil || tokenString == "" {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Authorization is missing"))
			return p, false
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid authorization format. Expected 'Bearer <token>'"))
			return p, false
		}
		tokenString = parts[1]
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return service.GetJWTSecret(), nil
	})

	if err != nil || !token.Valid {
		c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token"))
		return p, false
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token claims"))
		return p, false
	}

	sub, ok := claims["sub"].(string)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token claims"))
		return p, false
	}
	userID, err := uuid.Parse(sub)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token claims"))
		return p, false
	}
	p.UserID = userID

	if roleCode, ok := claims["role"].(string); ok {
		p.RoleCode = roleCode
	}
	if raw, ok := claims["role_id"].(string); ok {
		if id, err := uuid.Parse(raw); err == nil {
			p.RoleID = &id
		}
	}
	if raw, ok := claims["tenant_id"].(string); ok {
		if id, err := uuid.Parse(raw); err == nil {
			p.TenantID = &id
		}
	}

	return p, true
}

// RequireAuth validates the JWT and stores the acting principal in the context
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := extractPrincipal(c)
		if !ok {
			return
		}

		c.Set(principalKey, p)
		c.Set("userID", p.UserID.String())
		c.Set("userRole", p.RoleCode)

		c.Next()
	}
}

// RequirePermission validates the JWT and checks the required permission code
// against the acting principal's role grants. Resolver lookup failures abort
// with 500 rather than letting the request through.
func RequirePermission(code string) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := extractPrincipal(c)
		if !ok {
			return
		}

		c.Set(principalKey, p)
		c.Set("userID", p.UserID.String())
		c.Set("userRole", p.RoleCode)

		if resolver == nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to verify permissions"))
			return
		}

		allowed, err := resolver.HasPermission(c.Request.Context(), p, code)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to verify permissions"))
			return
		}
		if !allowed {
			c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied: missing permission '"+code+"'"))
			return
		}

		c.Next()
	}
}

// GetPrincipal returns the acting principal stored by RequireAuth/RequirePermission
func GetPrincipal(c *gin.Context) (service.Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return service.Principal{}, false
	}
	p, ok := v.(service.Principal)
	return p, ok
}
