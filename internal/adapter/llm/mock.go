package llm

import (
	"context"
	"fmt"

	"github.com/xiaot623/gogo/assistant/internal/domain"
)

// ProviderMock names the offline provider used in MOCK mode.
const ProviderMock = "mock"

// MockProvider answers without network access.
type MockProvider struct{}

// NewMockProvider creates a mock provider.
func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

// Name implements Provider.
func (m *MockProvider) Name() string { return ProviderMock }

// Generate echoes the last user message.
func (m *MockProvider) Generate(ctx context.Context, messages []Message) (*Reply, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var lastUserMessage string
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == domain.RoleUser {
			lastUserMessage = messages[i].Content
			break
		}
	}

	text := "[MOCK] Respuesta simulada del asistente."
	if lastUserMessage != "" {
		text = fmt.Sprintf("[MOCK] Recibi tu mensaje: %q. Esta es una respuesta simulada.", domain.Truncate(lastUserMessage, 100))
	}
	return &Reply{Text: text, Provider: ProviderMock, Model: "mock-model"}, nil
}
