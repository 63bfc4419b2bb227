package handler

import (
	"net/http"

	"github.com/buddy0323/IA-TEK-streamlit/internal/access"
	"github.com/buddy0323/IA-TEK-streamlit/internal/middleware"
	"github.com/buddy0323/IA-TEK-streamlit/internal/service"
	"github.com/buddy0323/IA-TEK-streamlit/internal/websocket"
	"github.com/buddy0323/IA-TEK-streamlit/pkg/response"

	"github.com/gin-gonic/gin"
)

// RecentActivity is the snapshot a monitor loads before switching to the live feed.
type RecentActivity struct {
	ConnectedMonitors int                    `json:"connected_monitors"`
	Entries           []service.HistoryEntry `json:"entries"`
}

type MonitoringHandler struct {
	hub            *websocket.Hub
	historyService service.HistoryService
}

func NewMonitoringHandler(hub *websocket.Hub, historyService service.HistoryService) *MonitoringHandler {
	return &MonitoringHandler{hub: hub, historyService: historyService}
}

func (h *MonitoringHandler) RegisterRoutes(router *gin.RouterGroup) {
	monitoring := router.Group("/monitoring", middleware.RequirePermission(access.PermMonitoring))
	{
		monitoring.GET("/ws", h.Stream)
		monitoring.GET("/recent", h.Recent)
	}
}

// Stream handles GET /monitoring/ws
// @Summary      Live query feed
// @Description  Upgrades to a WebSocket that receives one query.logged event per relayed message.
// @Tags         monitoring
// @Security     BearerAuth
// @Router       /monitoring/ws [get]
func (h *MonitoringHandler) Stream(c *gin.Context) {
	websocket.ServeWs(h.hub, c, actorOf(c).Username)
}

// Recent handles GET /monitoring/recent
// @Summary      Recent activity
// @Tags         monitoring
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=handler.RecentActivity}
// @Router       /monitoring/recent [get]
func (h *MonitoringHandler) Recent(c *gin.Context) {
	page, err := h.historyService.ListHistory(c.Request.Context(), service.HistoryRequest{})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, RecentActivity{
		ConnectedMonitors: h.hub.Count(),
		Entries:           page.Entries,
	}))
}
