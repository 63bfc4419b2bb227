package handler

import (
	"net/http"

	"github.com/buddy0323/IA-TEK-streamlit/internal/access"
	"github.com/buddy0323/IA-TEK-streamlit/internal/middleware"
	"github.com/buddy0323/IA-TEK-streamlit/internal/service"
	"github.com/buddy0323/IA-TEK-streamlit/pkg/response"

	"github.com/gin-gonic/gin"
)

type ChatHandler struct {
	chatService service.ChatService
}

func NewChatHandler(chatService service.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

func (h *ChatHandler) RegisterRoutes(router *gin.RouterGroup) {
	chat := router.Group("/chat", middleware.RequirePermission(access.PermAgentChat))
	{
		chat.GET("/agents", h.ListAgents)
		chat.POST("/agents/:id/messages", h.SendMessage)
	}
}

// ListAgents handles GET /chat/agents
// @Summary      Agents available for chat
// @Tags         chat
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=[]service.ChatAgent}
// @Router       /chat/agents [get]
func (h *ChatHandler) ListAgents(c *gin.Context) {
	agents, err := h.chatService.ListChatAgents(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, agents))
}

// SendMessage handles POST /chat/agents/:id/messages
// @Summary      Send a chat message
// @Description  Relays the message to the agent's workflow and logs the exchange. A failed relay still answers 200 with success=false.
// @Tags         chat
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string               true  "Agent ID"
// @Param        payload  body      service.ChatRequest  true  "Message"
// @Success      200      {object}  response.Response{data=service.ChatResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /chat/agents/{id}/messages [post]
func (h *ChatHandler) SendMessage(c *gin.Context) {
	var req service.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	res, err := h.chatService.SendMessage(c.Request.Context(), actorOf(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}
