package domain

import (
	"errors"
	"strings"
)

var (
	// ErrNotFound is returned when a session is absent or owned by another account.
	ErrNotFound = errors.New("not found")
	// ErrRateLimited is returned when an account exceeded its request window.
	ErrRateLimited = errors.New("rate limited")
	// ErrStoreNotConfigured is returned when no key-value store was configured.
	ErrStoreNotConfigured = errors.New("session store not configured")
	// ErrStoreUnavailable is returned when the key-value store cannot be reached.
	ErrStoreUnavailable = errors.New("session store unavailable")
)

// ValidationError reports a missing or malformed request field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ProviderError is returned when every language-model provider failed.
type ProviderError struct {
	Failures []string
}

func (e *ProviderError) Error() string {
	return "No fue posible obtener respuesta del LLM. " + strings.Join(e.Failures, " | ")
}
