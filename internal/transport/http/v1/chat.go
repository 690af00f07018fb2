package v1

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/xiaot623/gogo/assistant/internal/domain"
	"github.com/xiaot623/gogo/assistant/internal/transport/http/middleware"
)

// Route labels for request metrics.
const (
	routeListSessions  = "list_sessions"
	routeCreateSession = "create_session"
	routeMessages      = "session_messages"
	routeSendMessage   = "send_message"
)

const (
	msgTokenRequired   = "Token requerido"
	msgNotConfigured   = "Chat no disponible: REDIS_URL no configurado"
	msgUnavailable     = "Chat no disponible: Redis no esta accesible en este momento"
	msgSessionNotFound = "Sesion no encontrada"
	msgRateLimited     = "Has superado el limite temporal del chat. Intenta de nuevo en 1 minuto."
	msgInvalidBody     = "Cuerpo de solicitud invalido"
)

// ListSessions handles GET /api/chat/sessions.
func (h *Handler) ListSessions(c echo.Context) error {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		return h.fail(c, routeListSessions, http.StatusUnauthorized, msgTokenRequired)
	}

	sessions, err := h.service.ListSessions(c.Request().Context(), identity)
	if err != nil {
		return h.handleError(c, routeListSessions, err, "No se pudieron listar las sesiones de chat")
	}
	return h.respond(c, routeListSessions, http.StatusOK, sessions)
}

// CreateSession handles POST /api/chat/sessions.
func (h *Handler) CreateSession(c echo.Context) error {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		return h.fail(c, routeCreateSession, http.StatusUnauthorized, msgTokenRequired)
	}

	var req domain.CreateSessionRequest
	if err := c.Bind(&req); err != nil {
		return h.fail(c, routeCreateSession, http.StatusBadRequest, msgInvalidBody)
	}

	session, err := h.service.CreateSession(c.Request().Context(), identity, req)
	if err != nil {
		return h.handleError(c, routeCreateSession, err, "No se pudo crear la sesion de chat")
	}
	return h.respond(c, routeCreateSession, http.StatusCreated, session)
}

// GetSessionMessages handles GET /api/chat/sessions/:sessionId/messages.
func (h *Handler) GetSessionMessages(c echo.Context) error {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		return h.fail(c, routeMessages, http.StatusUnauthorized, msgTokenRequired)
	}

	session, messages, err := h.service.GetSessionMessages(c.Request().Context(), identity, c.Param("sessionId"))
	if err != nil {
		return h.handleError(c, routeMessages, err, "No se pudieron obtener los mensajes")
	}
	return h.respond(c, routeMessages, http.StatusOK, map[string]interface{}{
		"session":  session,
		"messages": messages,
	})
}

// SendMessage handles POST /api/chat/message.
func (h *Handler) SendMessage(c echo.Context) error {
	identity, ok := middleware.IdentityFrom(c)
	if !ok || identity.Role == "" {
		return h.fail(c, routeSendMessage, http.StatusUnauthorized, msgTokenRequired)
	}

	var req domain.SendMessageRequest
	if err := c.Bind(&req); err != nil {
		return h.fail(c, routeSendMessage, http.StatusBadRequest, msgInvalidBody)
	}

	result, err := h.service.SendMessage(c.Request().Context(), identity, req)
	if err != nil {
		return h.handleError(c, routeSendMessage, err, "Error interno en el chat")
	}
	return h.respond(c, routeSendMessage, http.StatusOK, result)
}

// handleError maps service errors to status codes. Unknown failures are
// logged and answered with the route's generic message.
func (h *Handler) handleError(c echo.Context, route string, err error, fallback string) error {
	var validation *domain.ValidationError
	var provider *domain.ProviderError

	switch {
	case errors.As(err, &validation):
		return h.fail(c, route, http.StatusBadRequest, validation.Message)
	case errors.Is(err, domain.ErrNotFound):
		return h.fail(c, route, http.StatusNotFound, msgSessionNotFound)
	case errors.Is(err, domain.ErrRateLimited):
		return h.fail(c, route, http.StatusTooManyRequests, msgRateLimited)
	case errors.Is(err, domain.ErrStoreNotConfigured):
		return h.fail(c, route, http.StatusServiceUnavailable, msgNotConfigured)
	case errors.Is(err, domain.ErrStoreUnavailable):
		h.logger.Warn("session store unavailable", zap.String("route", route), zap.Error(err))
		return h.fail(c, route, http.StatusServiceUnavailable, msgUnavailable)
	case errors.As(err, &provider):
		h.logger.Error("all language model providers failed", zap.Strings("failures", provider.Failures))
		return h.fail(c, route, http.StatusInternalServerError, provider.Error())
	}

	h.logger.Error("chat request failed", zap.String("route", route), zap.Error(err))
	return h.fail(c, route, http.StatusInternalServerError, fallback)
}

func (h *Handler) fail(c echo.Context, route string, status int, message string) error {
	return h.respond(c, route, status, map[string]string{"error": message})
}

func (h *Handler) respond(c echo.Context, route string, status int, body interface{}) error {
	if h.metrics != nil {
		h.metrics.ChatRequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
	}
	return c.JSON(status, body)
}
