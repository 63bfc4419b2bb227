package handler

import (
	"net/http"

	"github.com/buddy0323/IA-TEK-streamlit/internal/access"
	"github.com/buddy0323/IA-TEK-streamlit/internal/middleware"
	"github.com/buddy0323/IA-TEK-streamlit/internal/model"
	"github.com/buddy0323/IA-TEK-streamlit/internal/service"
	"github.com/buddy0323/IA-TEK-streamlit/pkg/response"

	"github.com/gin-gonic/gin"
)

// Branding is what the sign-in page needs before anyone is authenticated.
type Branding struct {
	General    map[string]string `json:"general"`
	Appearance map[string]string `json:"appearance"`
}

type ConfigHandler struct {
	configService service.ConfigService
	apiKeyService service.APIKeyService
}

func NewConfigHandler(configService service.ConfigService, apiKeyService service.APIKeyService) *ConfigHandler {
	return &ConfigHandler{configService: configService, apiKeyService: apiKeyService}
}

func (h *ConfigHandler) RegisterRoutes(public, authed *gin.RouterGroup) {
	public.GET("/branding", h.GetBranding)

	cfg := authed.Group("/config", middleware.RequirePermission(access.PermConfiguration))
	{
		cfg.GET("", h.ListCategories)
		cfg.POST("/api-keys/test", h.TestAPIKey)
		cfg.GET("/:category", h.GetCategory)
		cfg.PUT("/:category", h.SaveCategory)
	}
}

// GetBranding handles GET /branding
// @Summary      Dashboard branding
// @Description  Name, logo, timezone and colours. Never includes secrets.
// @Tags         configuration
// @Produce      json
// @Success      200  {object}  response.Response{data=handler.Branding}
// @Router       /branding [get]
func (h *ConfigHandler) GetBranding(c *gin.Context) {
	ctx := c.Request.Context()
	general, err := h.configService.GetCategory(ctx, model.CategoryGeneral, true)
	if err != nil {
		respondError(c, err)
		return
	}
	appearance, err := h.configService.GetCategory(ctx, model.CategoryAppearance, true)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, Branding{General: general, Appearance: appearance}))
}

// ListCategories handles GET /config
// @Summary      Configuration catalogue
// @Description  Every category with its keys, defaults and which keys are secret.
// @Tags         configuration
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=map[string][]service.ConfigKey}
// @Router       /config [get]
func (h *ConfigHandler) ListCategories(c *gin.Context) {
	c.JSON(http.StatusOK, response.Success(http.StatusOK, h.configService.Categories()))
}

// GetCategory handles GET /config/:category
// @Summary      Read a configuration category
// @Description  Stored values merged over defaults. Secrets come back masked.
// @Tags         configuration
// @Security     BearerAuth
// @Produce      json
// @Param        category  path      string  true  "general, api, appearance or security"
// @Success      200       {object}  response.Response{data=map[string]string}
// @Failure      404       {object}  response.Response
// @Router       /config/{category} [get]
func (h *ConfigHandler) GetCategory(c *gin.Context) {
	values, err := h.configService.GetCategory(c.Request.Context(), c.Param("category"), true)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, values))
}

// SaveCategory handles PUT /config/:category
// @Summary      Save a configuration category
// @Description  Validates every value first and writes none if any is invalid. Sending the mask keeps a stored secret.
// @Tags         configuration
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        category  path      string             true  "Category"
// @Param        payload   body      map[string]string  true  "Key/value pairs"
// @Success      200       {object}  response.Response{data=map[string]string}
// @Failure      400       {object}  response.Response
// @Failure      404       {object}  response.Response
// @Router       /config/{category} [put]
func (h *ConfigHandler) SaveCategory(c *gin.Context) {
	var values map[string]string
	if err := c.ShouldBindJSON(&values); err != nil {
		badRequest(c, err)
		return
	}

	saved, err := h.configService.SaveCategory(c.Request.Context(), c.Param("category"), values)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, saved))
}

// TestAPIKey handles POST /config/api-keys/test
// @Summary      Check an API key
// @Description  Checks the key format and, when live is set, asks the provider.
// @Tags         configuration
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.APIKeyCheckRequest  true  "Key to check"
// @Success      200      {object}  response.Response{data=service.APIKeyCheck}
// @Failure      400      {object}  response.Response
// @Router       /config/api-keys/test [post]
func (h *ConfigHandler) TestAPIKey(c *gin.Context) {
	var req service.APIKeyCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	res, err := h.apiKeyService.CheckKey(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}
