package domain

import (
	"fmt"
	"strings"
)

// UI context bounds.
const (
	maxUIPathLength  = 120
	maxUILabelLength = 40
	maxUIRoutes      = 20
)

// RouteItem is a navigation target the client can render.
type RouteItem struct {
	Label string `json:"label"`
	Path  string `json:"path"`
}

// UIContext describes where the user currently is in the client application.
type UIContext struct {
	CurrentPath     string      `json:"currentPath"`
	AvailableRoutes []RouteItem `json:"availableRoutes"`
}

// SendMessageRequest is the body of POST /message.
type SendMessageRequest struct {
	Message   string     `json:"message"`
	SessionID string     `json:"sessionId,omitempty"`
	UIContext *UIContext `json:"uiContext,omitempty"`
}

// CreateSessionRequest is the body of POST /sessions.
type CreateSessionRequest struct {
	Title string `json:"title,omitempty"`
}

// Normalize trims the request and validates it against maxLength.
func (r *SendMessageRequest) Normalize(maxLength int) error {
	r.Message = strings.TrimSpace(r.Message)
	r.SessionID = strings.TrimSpace(r.SessionID)
	if r.Message == "" {
		return &ValidationError{Field: "message", Message: "message es requerido"}
	}
	if len([]rune(r.Message)) > maxLength {
		return &ValidationError{Field: "message", Message: fmt.Sprintf("El mensaje supera %d caracteres", maxLength)}
	}
	sanitized := SanitizeUIContext(r.UIContext)
	r.UIContext = &sanitized
	return nil
}

// SanitizeUIContext keeps only internal, bounded and deduplicated routes.
func SanitizeUIContext(raw *UIContext) UIContext {
	out := UIContext{CurrentPath: "/", AvailableRoutes: []RouteItem{}}
	if raw == nil {
		return out
	}

	if p := strings.TrimSpace(raw.CurrentPath); isInternalPath(p) {
		out.CurrentPath = Truncate(p, maxUIPathLength)
	}

	seen := make(map[string]struct{})
	for _, route := range raw.AvailableRoutes {
		label := Truncate(strings.TrimSpace(route.Label), maxUILabelLength)
		path := Truncate(strings.TrimSpace(route.Path), maxUIPathLength)
		if label == "" || !isInternalPath(path) {
			continue
		}
		if _, dup := seen[path]; dup {
			continue
		}
		seen[path] = struct{}{}
		out.AvailableRoutes = append(out.AvailableRoutes, RouteItem{Label: label, Path: path})
		if len(out.AvailableRoutes) >= maxUIRoutes {
			break
		}
	}
	return out
}

// isInternalPath rejects absolute URLs and protocol-relative paths.
func isInternalPath(p string) bool {
	return strings.HasPrefix(p, "/") && !strings.HasPrefix(p, "//")
}
