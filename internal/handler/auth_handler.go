package handler

import (
	"net/http"

	"github.com/buddy0323/IA-TEK-streamlit/internal/middleware"
	"github.com/buddy0323/IA-TEK-streamlit/internal/service"
	"github.com/buddy0323/IA-TEK-streamlit/pkg/response"
	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	authService   service.AuthService
	secureCookies bool
}

func NewAuthHandler(authService service.AuthService, secureCookies bool) *AuthHandler {
	return &AuthHandler{authService: authService, secureCookies: secureCookies}
}

// RegisterRoutes binds login and restore on public and the session endpoints on authed.
func (h *AuthHandler) RegisterRoutes(public, authed *gin.RouterGroup, loginGuard gin.HandlerFunc) {
	auth := public.Group("/auth")
	auth.POST("/login", loginGuard, h.Login)
	auth.POST("/restore", loginGuard, h.Restore)
	auth.POST("/logout", h.Logout)

	authed.GET("/auth/me", h.Me)
}

// Login handles POST /auth/login
// @Summary      Sign in
// @Description  Authenticates by username and password. Every failure returns the same message.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.LoginRequest  true  "Credentials"
// @Success      200      {object}  response.Response{data=service.LoginResult}
// @Failure      400      {object}  response.Response
// @Failure      401      {object}  response.Response
// @Failure      429      {object}  response.Response
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req service.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload"))
		return
	}

	res, err := h.authService.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	middleware.SetSessionCookie(c, res.Token, h.secureCookies)
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// Restore handles POST /auth/restore
// @Summary      Restore session
// @Description  Opens a fresh session from a restore token issued at sign in.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        session  query     string                  false  "Restore token"
// @Param        payload  body      service.RestoreRequest  false  "Restore token"
// @Success      200      {object}  response.Response{data=service.LoginResult}
// @Failure      400      {object}  response.Response
// @Failure      401      {object}  response.Response
// @Router       /auth/restore [post]
func (h *AuthHandler) Restore(c *gin.Context) {
	var req service.RestoreRequest
	if token := c.Query("session"); token != "" {
		req.Token = token
	} else if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload"))
		return
	}

	res, err := h.authService.Restore(c.Request.Context(), req.Token)
	if err != nil {
		respondError(c, err)
		return
	}

	middleware.SetSessionCookie(c, res.Token, h.secureCookies)
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// Logout handles POST /auth/logout
// @Summary      Sign out
// @Tags         auth
// @Produce      json
// @Success      200  {object}  response.Response
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.authService.Logout(c.Request.Context(), middleware.SessionToken(c)); err != nil {
		respondError(c, err)
		return
	}
	middleware.ClearSessionCookie(c, h.secureCookies)
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Logged out"))
}

// Me handles GET /auth/me
// @Summary      Current session
// @Description  Returns the signed-in user, their permissions and the pages they can open.
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=service.SessionInfo}
// @Failure      401  {object}  response.Response
// @Router       /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	sess := middleware.CurrentSession(c)
	if sess == nil {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Authentication required"))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, service.ToSessionInfo(sess)))
}
