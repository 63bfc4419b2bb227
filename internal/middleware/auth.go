package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/buddy0323/IA-TEK-streamlit/internal/service"
	"github.com/buddy0323/IA-TEK-streamlit/internal/session"
	"github.com/buddy0323/IA-TEK-streamlit/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/mudler/xlog"
)

const (
	SessionCookie = "session_id"
	sessionKey    = "session"
)

// Authenticator validates a session token and refreshes its activity.
type Authenticator interface {
	CheckAuthentication(ctx context.Context, token string) (*session.Session, error)
}

// SetSessionCookie stores the session token as an HttpOnly cookie.
// Secure deployments (cross-origin frontends) need SameSite=None.
func SetSessionCookie(c *gin.Context, token string, secure bool) {
	sameSite := http.SameSiteLaxMode
	if secure {
		sameSite = http.SameSiteNoneMode
	}
	c.SetSameSite(sameSite)
	// Lifetime is bounded server side by the idle timeout.
	c.SetCookie(SessionCookie, token, 0, "/", "", secure, true)
}

// ClearSessionCookie removes the session cookie
func ClearSessionCookie(c *gin.Context, secure bool) {
	sameSite := http.SameSiteLaxMode
	if secure {
		sameSite = http.SameSiteNoneMode
	}
	c.SetSameSite(sameSite)
	c.SetCookie(SessionCookie, "", -1, "/", "", secure, true)
}

// SessionToken reads the token from the session cookie, falling back to an Authorization Bearer header.
func SessionToken(c *gin.Context) string {
	if token, err := c.Cookie(SessionCookie); err == nil && token != "" {
		return token
	}
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

// RequireSession authenticates every request and stores the session in the gin context.
func RequireSession(auth Authenticator, secureCookies bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := SessionToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Authentication required"))
			return
		}

		sess, err := auth.CheckAuthentication(c.Request.Context(), token)
		switch {
		case err == nil:
		case errors.Is(err, service.ErrSessionExpired):
			ClearSessionCookie(c, secureCookies)
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, err.Error()))
			return
		case errors.Is(err, service.ErrUnauthenticated):
			ClearSessionCookie(c, secureCookies)
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Authentication required"))
			return
		default:
			xlog.Error("Session check failed", "path", c.FullPath(), "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "internal error"))
			return
		}

		c.Set(sessionKey, sess)
		c.Next()
	}
}

// CurrentSession returns the session stored by RequireSession, or nil.
func CurrentSession(c *gin.Context) *session.Session {
	v, ok := c.Get(sessionKey)
	if !ok {
		return nil
	}
	sess, _ := v.(*session.Session)
	return sess
}

// RequirePermission admits sessions holding perm.
func RequirePermission(perm string) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := CurrentSession(c)
		if sess == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Authentication required"))
			return
		}
		if !sess.HasPermission(perm) {
			xlog.Info("Permission denied", "username", sess.Username, "permission", perm, "path", c.FullPath())
			c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied: missing permission '"+perm+"'"))
			return
		}
		c.Next()
	}
}

// RequireRole admits sessions whose role matches one of allowedRoles, ignoring case.
func RequireRole(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := CurrentSession(c)
		if sess == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Authentication required"))
			return
		}
		for _, role := range allowedRoles {
			if strings.EqualFold(strings.TrimSpace(sess.RoleName), strings.TrimSpace(role)) {
				c.Next()
				return
			}
		}
		xlog.Info("Role denied", "username", sess.Username, "role", sess.RoleName, "path", c.FullPath())
		c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied: insufficient role"))
	}
}
