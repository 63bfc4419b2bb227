package handler

import (
	"net/http"

	"github.com/buddy0323/IA-TEK-streamlit/internal/access"
	"github.com/buddy0323/IA-TEK-streamlit/internal/middleware"
	"github.com/buddy0323/IA-TEK-streamlit/internal/service"
	"github.com/buddy0323/IA-TEK-streamlit/pkg/response"

	"github.com/gin-gonic/gin"
)

type HistoryHandler struct {
	historyService service.HistoryService
}

func NewHistoryHandler(historyService service.HistoryService) *HistoryHandler {
	return &HistoryHandler{historyService: historyService}
}

func (h *HistoryHandler) RegisterRoutes(router *gin.RouterGroup) {
	history := router.Group("/history", middleware.RequirePermission(access.PermHistory))
	{
		history.GET("", h.ListHistory)
		history.GET("/:id", h.GetQuery)
	}
}

// ListHistory handles GET /history
// @Summary      Query history
// @Description  Newest logged queries in a date window (defaults to the last seven days)
// @Tags         history
// @Security     BearerAuth
// @Produce      json
// @Param        agent_id  query     string  false  "Agent ID"
// @Param        from      query     string  false  "Start date (YYYY-MM-DD)"
// @Param        to        query     string  false  "End date (YYYY-MM-DD)"
// @Param        success   query     string  false  "true or false"
// @Success      200       {object}  response.Response{data=service.HistoryPage}
// @Failure      400       {object}  response.Response
// @Router       /history [get]
func (h *HistoryHandler) ListHistory(c *gin.Context) {
	var req service.HistoryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, err)
		return
	}

	page, err := h.historyService.ListHistory(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, page))
}

// GetQuery handles GET /history/:id
func (h *HistoryHandler) GetQuery(c *gin.Context) {
	query, err := h.historyService.GetQuery(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, query))
}
