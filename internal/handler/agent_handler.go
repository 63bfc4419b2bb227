package handler

import (
	"net/http"

	"github.com/buddy0323/IA-TEK-streamlit/internal/access"
	"github.com/buddy0323/IA-TEK-streamlit/internal/middleware"
	"github.com/buddy0323/IA-TEK-streamlit/internal/service"
	"github.com/buddy0323/IA-TEK-streamlit/pkg/response"

	"github.com/gin-gonic/gin"
)

type AgentHandler struct {
	agentService  service.AgentService
	optionService service.OptionService
}

func NewAgentHandler(agentService service.AgentService, optionService service.OptionService) *AgentHandler {
	return &AgentHandler{agentService: agentService, optionService: optionService}
}

func (h *AgentHandler) RegisterRoutes(router *gin.RouterGroup) {
	agents := router.Group("/agents", middleware.RequirePermission(access.PermAgentRegistry))
	{
		agents.GET("", h.ListAgents)
		agents.GET("/:id", h.GetAgent)
		agents.POST("", h.CreateAgent)
		agents.PUT("/:id", h.UpdateAgent)
		agents.DELETE("/:id", h.DeleteAgent)
	}

	// Lookup tables feed the agent form; editing them is a configuration task.
	options := router.Group("/agent-options")
	{
		options.GET("/:kind", middleware.RequirePermission(access.PermAgentRegistry), h.ListOptions)
		options.POST("/:kind", middleware.RequirePermission(access.PermConfiguration), h.CreateOption)
		options.DELETE("/:kind/:id", middleware.RequirePermission(access.PermConfiguration), h.DeleteOption)
	}
}

// ListAgents handles GET /agents
// @Summary      List agents
// @Tags         agents
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=[]service.AgentResponse}
// @Failure      403  {object}  response.Response
// @Router       /agents [get]
func (h *AgentHandler) ListAgents(c *gin.Context) {
	agents, err := h.agentService.ListAgents(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, agents))
}

// GetAgent handles GET /agents/:id
// @Summary      Get agent for editing
// @Description  Returns the agent plus the subset of its selections that still exist in the lookup tables.
// @Tags         agents
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Agent ID"
// @Success      200  {object}  response.Response{data=service.AgentEditView}
// @Failure      404  {object}  response.Response
// @Router       /agents/{id} [get]
func (h *AgentHandler) GetAgent(c *gin.Context) {
	agent, err := h.agentService.GetAgent(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, agent))
}

// CreateAgent handles POST /agents
// @Summary      Register agent
// @Tags         agents
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.AgentRequest  true  "Agent payload"
// @Success      201      {object}  response.Response{data=service.AgentResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /agents [post]
func (h *AgentHandler) CreateAgent(c *gin.Context) {
	var req service.AgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	agent, err := h.agentService.CreateAgent(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, agent))
}

// UpdateAgent handles PUT /agents/:id
// @Summary      Update agent
// @Description  Replaces every editable field. The name cannot change.
// @Tags         agents
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                true  "Agent ID"
// @Param        payload  body      service.AgentRequest  true  "Agent payload"
// @Success      200      {object}  response.Response{data=service.AgentResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /agents/{id} [put]
func (h *AgentHandler) UpdateAgent(c *gin.Context) {
	var req service.AgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	agent, err := h.agentService.UpdateAgent(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, agent))
}

// DeleteAgent handles DELETE /agents/:id
// @Summary      Delete agent
// @Description  Removes the agent together with its logged queries.
// @Tags         agents
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Agent ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /agents/{id} [delete]
func (h *AgentHandler) DeleteAgent(c *gin.Context) {
	if err := h.agentService.DeleteAgent(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Agent deleted"))
}

// ListOptions handles GET /agent-options/:kind
// @Summary      List lookup options
// @Tags         agents
// @Security     BearerAuth
// @Produce      json
// @Param        kind  path      string  true  "language-models, skills, personalities or goals"
// @Success      200   {object}  response.Response{data=[]model.AgentOption}
// @Failure      404   {object}  response.Response
// @Router       /agent-options/{kind} [get]
func (h *AgentHandler) ListOptions(c *gin.Context) {
	options, err := h.optionService.ListOptions(c.Request.Context(), c.Param("kind"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, options))
}

func (h *AgentHandler) CreateOption(c *gin.Context) {
	var req service.OptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	option, err := h.optionService.CreateOption(c.Request.Context(), c.Param("kind"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, option))
}

func (h *AgentHandler) DeleteOption(c *gin.Context) {
	if err := h.optionService.DeleteOption(c.Request.Context(), c.Param("kind"), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Option deleted"))
}
