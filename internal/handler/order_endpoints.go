package handler

import (
	"net/http"
	"strconv"

	"orderdoc-server/internal/export"
	"orderdoc-server/internal/models"
	"orderdoc-server/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func (h *OrderHandler) projectID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("projectId"))
	if err != nil {
		h.badRequest(c, "Invalid project ID", err)
		return uuid.Nil, false
	}
	return id, true
}

func (h *OrderHandler) createOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "phoneNumber and message are required", err)
		return
	}

	res, err := h.svc.StartOrContinue(c.Request.Context(), req.ClientID, req.PhoneNumber, req.Message)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	c.JSON(status, messageResponse{ProjectID: res.ProjectID, Response: res.Response})
}

func (h *OrderHandler) sendMessage(c *gin.Context) {
	id, ok := h.projectID(c)
	if !ok {
		return
	}
	var req messageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "message is required", err)
		return
	}

	reply, err := h.svc.RespondToMessage(c.Request.Context(), id, req.Message)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, messageResponse{ProjectID: id, Response: reply})
}

func (h *OrderHandler) captureRequirements(c *gin.Context) {
	id, ok := h.projectID(c)
	if !ok {
		return
	}
	captured, err := h.svc.ApplyCapturedRequirements(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, captured)
}

func (h *OrderHandler) generateDocumentation(c *gin.Context) {
	id, ok := h.projectID(c)
	if !ok {
		return
	}

	if async, _ := strconv.ParseBool(c.Query("async")); async {
		taskID, err := h.svc.GenerateDocumentationAsync(c.Request.Context(), id, currentUserID(c))
		if err != nil {
			h.handleServiceError(c, err)
			return
		}
		c.JSON(http.StatusAccepted, taskAcceptedResponse{TaskID: taskID})
		return
	}

	doc, err := h.svc.GenerateDocumentation(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (h *OrderHandler) getDocumentation(c *gin.Context) {
	id, ok := h.projectID(c)
	if !ok {
		return
	}
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		h.badRequest(c, "format must be markdown or html", err)
		return
	}

	project, err := h.svc.GetProject(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	if project.Documentation == nil {
		c.AbortWithStatusJSON(http.StatusNotFound, models.ErrorResponse{Error: "Documentation has not been generated yet"})
		return
	}

	switch format {
	case export.FormatHTML:
		page, err := export.RenderPage(project.Title, project.Documentation.FullDocument)
		if err != nil {
			h.handleServiceError(c, err)
			return
		}
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(page))
	default:
		c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(project.Documentation.FullDocument))
	}
}

func (h *OrderHandler) getProject(c *gin.Context) {
	id, ok := h.projectID(c)
	if !ok {
		return
	}
	project, err := h.svc.GetProject(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

func (h *OrderHandler) getProjectByPhone(c *gin.Context) {
	project, err := h.svc.GetProjectByPhone(c.Request.Context(), c.Param("phoneNumber"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

func (h *OrderHandler) listProjects(c *gin.Context) {
	params := service.ListParams{
		ClientID:    c.Query("clientId"),
		PhoneNumber: c.Query("phoneNumber"),
		Status:      models.ProjectStatus(c.Query("status")),
		Cursor:      c.Query("cursor"),
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			h.badRequest(c, "limit must be a positive integer", err)
			return
		}
		params.Limit = limit
	}

	page, err := h.svc.ListProjects(c.Request.Context(), params)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	if page.Projects == nil {
		page.Projects = []models.Project{}
	}
	c.JSON(http.StatusOK, page)
}

func (h *OrderHandler) getTask(c *gin.Context) {
	taskID, err := uuid.Parse(c.Param("taskId"))
	if err != nil {
		h.badRequest(c, "Invalid task ID", err)
		return
	}
	task, err := h.svc.GetTask(c.Request.Context(), taskID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	if owner := currentUserID(c); task.OwnerID != "" && owner != task.OwnerID {
		h.logger.Warn("Task requested by another user", zap.String("taskID", taskID.String()))
		c.AbortWithStatusJSON(http.StatusNotFound, models.ErrorResponse{Error: "Task not found"})
		return
	}
	c.JSON(http.StatusOK, newTaskResponse(task))
}

func (h *OrderHandler) clearCache(c *gin.Context) {
	deleted, err := h.svc.ClearCache(c.Request.Context(), c.Query("pattern"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, clearCacheResponse{Deleted: deleted})
}
