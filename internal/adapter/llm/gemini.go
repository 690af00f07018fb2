package llm

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"google.golang.org/genai"

	"github.com/xiaot623/gogo/assistant/internal/domain"
)

// ProviderGemini names the Google Gemini provider.
const ProviderGemini = "gemini"

// GeminiProvider calls Gemini through the Google GenAI SDK. The client is
// created on first use; a failed creation is retried on the next call.
type GeminiProvider struct {
	apiKey      string
	model       string
	baseURL     string
	temperature float32
	maxTokens   int32

	newClient func(context.Context, *genai.ClientConfig) (*genai.Client, error)
	mu        sync.Mutex
	client    *genai.Client
}

// NewGeminiProvider creates a Gemini provider from cfg.
func NewGeminiProvider(cfg Config) *GeminiProvider {
	return &GeminiProvider{
		apiKey:      cfg.Gemini.APIKey,
		model:       cfg.Gemini.Model,
		baseURL:     cfg.Gemini.BaseURL,
		temperature: float32(cfg.Temperature),
		maxTokens:   int32(cfg.MaxTokens),
		newClient:   genai.NewClient,
	}
}

// Name implements Provider.
func (p *GeminiProvider) Name() string { return ProviderGemini }

func (p *GeminiProvider) getClient() (*genai.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client != nil {
		return p.client, nil
	}

	cc := &genai.ClientConfig{
		APIKey:  p.apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if p.baseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: p.baseURL}
	}
	// The client outlives any single request, so it is not bound to one.
	client, err := p.newClient(context.Background(), cc)
	if err != nil {
		return nil, err
	}
	p.client = client
	return client, nil
}

// Generate implements Provider. A leading system message becomes the system
// instruction; assistant turns are sent with the model role.
func (p *GeminiProvider) Generate(ctx context.Context, messages []Message) (*Reply, error) {
	if p.apiKey == "" {
		return nil, errors.New("GEMINI_API_KEY no configurada")
	}
	client, err := p.getClient()
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(p.temperature),
		MaxOutputTokens: p.maxTokens,
	}
	contents := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case domain.RoleSystem:
			config.SystemInstruction = genai.NewContentFromText(m.Content, genai.RoleUser)
		case domain.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}

	resp, err := client.Models.GenerateContent(ctx, p.model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("Gemini error %w", err)
	}
	text := NormalizeReply(resp.Text())
	if text == "" {
		return nil, errors.New("Gemini no devolvio contenido")
	}
	return &Reply{Text: text, Provider: ProviderGemini, Model: p.model}, nil
}
