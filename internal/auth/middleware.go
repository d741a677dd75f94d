package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"order-service/internal/logger"
	"order-service/internal/models"
	"order-service/internal/server"
)

const principalKey = "principal"

// Authenticate rejects requests without a valid bearer token and stores the principal on the context
func Authenticate(v *Verifier, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		scheme, token, found := strings.Cut(header, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
			c.Header("WWW-Authenticate", "Bearer")
			server.WriteError(c, http.StatusUnauthorized, "Missing or invalid Authorization header")
			return
		}

		principal, err := v.Verify(token)
		if err != nil {
			log.Debug("authentication_failed", "Rejected bearer token", server.RequestID(c), map[string]interface{}{
				"reason": err.Error(),
			})
			c.Header("WWW-Authenticate", "Bearer")
			server.WriteError(c, http.StatusUnauthorized, "Could not validate credentials")
			return
		}

		c.Set(principalKey, principal)
		c.Next()
	}
}

// RequireRole lets the request through only when the principal holds one of roles
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := PrincipalFrom(c)
		if !ok {
			server.WriteError(c, http.StatusUnauthorized, "Could not validate credentials")
			return
		}

		for _, role := range roles {
			if principal.Role == role {
				c.Next()
				return
			}
		}

		server.WriteError(c, http.StatusForbidden, "You do not have the necessary permissions")
	}
}

// PrincipalFrom returns the authenticated principal of the request
func PrincipalFrom(c *gin.Context) (*models.Principal, bool) {
	value, ok := c.Get(principalKey)
	if !ok {
		return nil, false
	}
	principal, ok := value.(*models.Principal)
	return principal, ok
}

// SetPrincipal stores principal on the request context
func SetPrincipal(c *gin.Context, principal *models.Principal) {
	c.Set(principalKey, principal)
}
