package handler

import (
	"net/http"

	"orderdoc-server/internal/service"
	"orderdoc-server/pkg/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Options - параметры маршрутов.
type Options struct {
	// Production скрывает details и trace в ответах с ошибкой.
	Production bool
	JWTSecret  string
	// RateLimit применяется ко всем маршрутам /api. nil - без ограничения.
	RateLimit gin.HandlerFunc
}

// OrderHandler обслуживает HTTP API заказов.
type OrderHandler struct {
	svc        service.OrderService
	production bool
	jwtSecret  string
	rateLimit  gin.HandlerFunc
	logger     *zap.Logger
}

func NewOrderHandler(svc service.OrderService, opts Options, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		svc:        svc,
		production: opts.Production,
		jwtSecret:  opts.JWTSecret,
		rateLimit:  opts.RateLimit,
		logger:     logger.Named("OrderHandler"),
	}
}

func (h *OrderHandler) RegisterRoutes(router *gin.Engine) {
	router.GET("/health", h.health)
	router.HEAD("/health", h.health)

	api := router.Group("/api")
	if h.rateLimit != nil {
		api.Use(h.rateLimit)
	}
	api.Use(middleware.OptionalAuth(h.jwtSecret, h.logger))
	{
		orders := api.Group("/orders")
		orders.POST("", h.createOrder)
		orders.GET("", h.listProjects)
		orders.GET("/phone/:phoneNumber", h.getProjectByPhone)
		orders.GET("/:projectId", h.getProject)
		orders.POST("/:projectId/message", h.sendMessage)
		orders.POST("/:projectId/requirements", h.captureRequirements)
		orders.POST("/:projectId/generate-documentation", h.generateDocumentation)
		orders.GET("/:projectId/documentation", h.getDocumentation)

		api.GET("/tasks/:taskId", h.getTask)

		admin := api.Group("/admin")
		admin.Use(middleware.RequireAuth(h.jwtSecret, h.logger, "admin"))
		admin.DELETE("/cache", h.clearCache)
	}
}

func (h *OrderHandler) health(c *gin.Context) {
	if c.Request.Method == http.MethodHead {
		c.Status(http.StatusOK)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// currentUserID возвращает ID пользователя из токена или пустую строку для анонимного запроса.
func currentUserID(c *gin.Context) string {
	return c.GetString(middleware.ContextKeyUserID)
}
