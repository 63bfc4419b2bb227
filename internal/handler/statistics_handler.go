package handler

import (
	"net/http"

	"github.com/buddy0323/IA-TEK-streamlit/internal/access"
	"github.com/buddy0323/IA-TEK-streamlit/internal/middleware"
	"github.com/buddy0323/IA-TEK-streamlit/internal/service"
	"github.com/buddy0323/IA-TEK-streamlit/pkg/response"

	"github.com/gin-gonic/gin"
)

type StatisticsHandler struct {
	statisticsService service.StatisticsService
}

func NewStatisticsHandler(statisticsService service.StatisticsService) *StatisticsHandler {
	return &StatisticsHandler{statisticsService: statisticsService}
}

func (h *StatisticsHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/overview", middleware.RequirePermission(access.PermOverview), h.GetOverview)
	router.GET("/analytics/queries", middleware.RequirePermission(access.PermQueryAnalysis), h.AnalyzeQueries)
}

// @Summary      Dashboard overview
// @Description  Agent counts, today's and total queries, success rate and the last seven days of activity
// @Tags         Statistics
// @Produce      json
// @Success      200 {object} response.Response{data=service.Overview}
// @Failure      401 {object} response.Response
// @Failure      500 {object} response.Response
// @Security     BearerAuth
// @Router       /overview [get]
func (h *StatisticsHandler) GetOverview(c *gin.Context) {
	overview, err := h.statisticsService.GetOverview(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, overview))
}

// @Summary      Query analysis
// @Description  Daily volume, response time distribution and frequent terms for a date window (defaults to the last 30 days)
// @Tags         Statistics
// @Produce      json
// @Param        agent_id query string false "Agent ID"
// @Param        from     query string false "Start date (YYYY-MM-DD)"
// @Param        to       query string false "End date (YYYY-MM-DD)"
// @Success      200 {object} response.Response{data=service.QueryAnalysis}
// @Failure      400 {object} response.Response "Invalid date window"
// @Failure      401 {object} response.Response
// @Security     BearerAuth
// @Router       /analytics/queries [get]
func (h *StatisticsHandler) AnalyzeQueries(c *gin.Context) {
	var req service.AnalysisRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, err)
		return
	}

	analysis, err := h.statisticsService.AnalyzeQueries(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, analysis))
}
