package llm

import (
	"context"
	"errors"
	"fmt"
)

// ProviderGroq names the Groq provider.
const ProviderGroq = "groq"

// GroqProvider calls Groq's OpenAI-compatible endpoint.
type GroqProvider struct {
	client      *chatClient
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
}

// NewGroqProvider creates a Groq provider from cfg.
func NewGroqProvider(cfg Config) *GroqProvider {
	return &GroqProvider{
		client:      newChatClient(cfg.Groq.BaseURL, cfg.Groq.APIKey, cfg.Timeout),
		apiKey:      cfg.Groq.APIKey,
		model:       cfg.Groq.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}
}

// Name implements Provider.
func (p *GroqProvider) Name() string { return ProviderGroq }

// Generate implements Provider.
func (p *GroqProvider) Generate(ctx context.Context, messages []Message) (*Reply, error) {
	if p.apiKey == "" {
		return nil, errors.New("GROQ_API_KEY no configurada")
	}

	resp, err := p.client.CreateChatCompletion(ctx, &ChatCompletionRequest{
		Model:       p.model,
		Messages:    toChatMessages(messages),
		Temperature: &p.temperature,
		MaxTokens:   &p.maxTokens,
	})
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) {
			return nil, fmt.Errorf("Groq error %w", statusErr)
		}
		return nil, err
	}

	text := NormalizeReply(resp.FirstContent())
	if text == "" {
		return nil, errors.New("Groq no devolvio contenido")
	}
	return &Reply{Text: text, Provider: ProviderGroq, Model: p.model}, nil
}
