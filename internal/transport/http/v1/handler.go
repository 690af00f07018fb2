// Package v1 provides the chat HTTP handlers.
package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/xiaot623/gogo/assistant/internal/metrics"
	"github.com/xiaot623/gogo/assistant/internal/service"
	"github.com/xiaot623/gogo/assistant/internal/transport/http/middleware"
)

// Handler handles chat HTTP requests.
type Handler struct {
	service  *service.Service
	verifier *middleware.Verifier
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

// NewHandler creates a new handler.
func NewHandler(svc *service.Service, verifier *middleware.Verifier, logger *zap.Logger, m *metrics.Metrics) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		service:  svc,
		verifier: verifier,
		logger:   logger,
		metrics:  m,
	}
}

// RegisterRoutes registers the chat routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	chat := e.Group("/api/chat", middleware.RequireIdentity(h.verifier))
	chat.GET("/sessions", h.ListSessions)
	chat.POST("/sessions", h.CreateSession)
	chat.GET("/sessions/:sessionId/messages", h.GetSessionMessages)
	chat.POST("/message", h.SendMessage)

	e.GET("/health", h.Health)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": "0.1.0",
	})
}
