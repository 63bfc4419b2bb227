package handler

import (
	"mime/multipart"
	"net/http"

	"github.com/buddy0323/IA-TEK-streamlit/internal/access"
	"github.com/buddy0323/IA-TEK-streamlit/internal/middleware"
	"github.com/buddy0323/IA-TEK-streamlit/internal/n8n"
	"github.com/buddy0323/IA-TEK-streamlit/internal/service"
	"github.com/buddy0323/IA-TEK-streamlit/pkg/response"

	"github.com/gin-gonic/gin"
)

type TrainingHandler struct {
	trainingService service.TrainingService
}

func NewTrainingHandler(trainingService service.TrainingService) *TrainingHandler {
	return &TrainingHandler{trainingService: trainingService}
}

func (h *TrainingHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/training/agents/:id", middleware.RequirePermission(access.PermTraining), h.Train)
}

// Train handles POST /training/agents/:id
// @Summary      Send training documents
// @Description  Forwards the uploaded files to the agent's details workflow.
// @Tags         training
// @Security     BearerAuth
// @Accept       multipart/form-data
// @Produce      json
// @Param        id                 path      string  true  "Agent ID"
// @Param        processing_method  formData  string  true  "Processing method"
// @Param        files              formData  file    true  "Documents"
// @Success      200  {object}  response.Response{data=service.TrainingResult}
// @Failure      400  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /training/agents/{id} [post]
func (h *TrainingHandler) Train(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		badRequest(c, err)
		return
	}

	var files []n8n.File
	var opened []multipart.File
	defer func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}()
	for _, header := range form.File["files"] {
		f, err := header.Open()
		if err != nil {
			badRequest(c, err)
			return
		}
		opened = append(opened, f)
		files = append(files, n8n.File{Name: header.Filename, Reader: f})
	}

	res, err := h.trainingService.Train(c.Request.Context(), actorOf(c), c.Param("id"), c.PostForm("processing_method"), files)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}
