package handler

import (
	"errors"
	"net/http"

	"github.com/buddy0323/IA-TEK-streamlit/internal/middleware"
	"github.com/buddy0323/IA-TEK-streamlit/internal/service"
	"github.com/buddy0323/IA-TEK-streamlit/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/mudler/xlog"
)

// respondError maps service errors onto the response envelope.
// Anything unrecognised is logged and reported as a bare 500.
func respondError(c *gin.Context, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, response.Invalid(http.StatusBadRequest, verr.Error(), map[string]string{verr.Field: verr.Message}))
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, response.Error(http.StatusForbidden, err.Error()))
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, err.Error()))
	case errors.Is(err, service.ErrConflict):
		c.JSON(http.StatusConflict, response.Error(http.StatusConflict, err.Error()))
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrUnauthenticated),
		errors.Is(err, service.ErrSessionExpired):
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, err.Error()))
	default:
		xlog.Error("Request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "internal error"))
	}
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
}

// actorOf returns the caller of an authenticated route.
func actorOf(c *gin.Context) service.Actor {
	sess := middleware.CurrentSession(c)
	if sess == nil {
		return service.Actor{}
	}
	return service.ActorFromSession(sess)
}
