package handler

import (
	"errors"
	"net/http"

	"orderdoc-server/internal/models"
	"orderdoc-server/internal/pipeline"
	"orderdoc-server/pkg/ai"
	"orderdoc-server/pkg/taskmanager"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// errorStatus сопоставляет ошибку сервиса с HTTP-статусом и публичным сообщением.
// ProviderUnavailable проверяется раньше StageFailure: ошибка стадии оборачивает ошибку шлюза.
func errorStatus(err error) (int, string) {
	var stageErr *pipeline.StageFailureError
	var parseErr *ai.ParseError

	switch {
	case errors.Is(err, models.ErrProjectNotFound), errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound, "Project not found"
	case errors.Is(err, taskmanager.ErrTaskNotFound):
		return http.StatusNotFound, "Task not found"
	case errors.Is(err, models.ErrEmptyMessage):
		return http.StatusBadRequest, "Message must not be empty"
	case errors.Is(err, models.ErrPhoneRequired):
		return http.StatusBadRequest, "Phone number is required"
	case errors.Is(err, models.ErrInvalidCursor):
		return http.StatusBadRequest, "Invalid pagination cursor"
	case errors.Is(err, models.ErrInvalidStatus):
		return http.StatusBadRequest, "Invalid project status"
	case errors.Is(err, models.ErrInvalidInput), errors.Is(err, models.ErrBadRequest):
		return http.StatusBadRequest, "Invalid input data"
	case errors.Is(err, taskmanager.ErrTooManyTasks):
		return http.StatusTooManyRequests, "Too many documentation runs in progress, try again later"
	case errors.Is(err, taskmanager.ErrClosed):
		return http.StatusServiceUnavailable, "Server is shutting down"
	case errors.Is(err, ai.ErrProviderUnavailable):
		return http.StatusServiceUnavailable, "Text generation provider unavailable"
	case errors.As(err, &stageErr):
		return http.StatusBadGateway, "Documentation stage " + string(stageErr.Stage) + " failed"
	case errors.As(err, &parseErr):
		return http.StatusBadGateway, "Model returned an unreadable response"
	}
	return http.StatusInternalServerError, "An unexpected internal error occurred"
}

// unwrapChain перечисляет сообщения ошибок по цепочке Unwrap (включая множественные).
func unwrapChain(err error) []string {
	var chain []string
	queue := []error{err}
	for len(queue) > 0 && len(chain) < 20 {
		e := queue[0]
		queue = queue[1:]
		if e == nil {
			continue
		}
		chain = append(chain, e.Error())
		switch u := e.(type) {
		case interface{ Unwrap() error }:
			queue = append(queue, u.Unwrap())
		case interface{ Unwrap() []error }:
			queue = append(queue, u.Unwrap()...)
		}
	}
	return chain
}

func (h *OrderHandler) handleServiceError(c *gin.Context, err error) {
	statusCode, message := errorStatus(err)
	if statusCode >= http.StatusInternalServerError {
		h.logger.Error("Request failed", zap.String("path", c.FullPath()), zap.Int("status", statusCode), zap.Error(err))
	}

	resp := models.ErrorResponse{Error: message}
	if !h.production {
		resp.Details = err.Error()
		resp.Trace = unwrapChain(err)
	}
	c.AbortWithStatusJSON(statusCode, resp)
}

func (h *OrderHandler) badRequest(c *gin.Context, message string, err error) {
	resp := models.ErrorResponse{Error: message}
	if err != nil && !h.production {
		resp.Details = err.Error()
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, resp)
}
