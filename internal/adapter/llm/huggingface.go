package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/xiaot623/gogo/assistant/internal/domain"
)

// ProviderHuggingFace names the HuggingFace provider.
const ProviderHuggingFace = "huggingface"

// HuggingFaceProvider tries the OpenAI-compatible router first and falls back
// to the legacy text-generation inference endpoint.
type HuggingFaceProvider struct {
	router       *chatClient
	inference    *chatClient
	apiKey       string
	model        string
	temperature  float64
	maxTokens    int
	inferenceURL string
	logger       *zap.Logger
}

// NewHuggingFaceProvider creates a HuggingFace provider from cfg.
func NewHuggingFaceProvider(cfg Config, logger *zap.Logger) *HuggingFaceProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	inferenceURL := strings.TrimSuffix(cfg.HuggingFace.InferenceURL, "/")
	return &HuggingFaceProvider{
		router:       newChatClient(cfg.HuggingFace.RouterURL, cfg.HuggingFace.APIKey, cfg.Timeout),
		inference:    newChatClient(inferenceURL, cfg.HuggingFace.APIKey, cfg.Timeout),
		apiKey:       cfg.HuggingFace.APIKey,
		model:        cfg.HuggingFace.Model,
		temperature:  cfg.Temperature,
		maxTokens:    cfg.MaxTokens,
		inferenceURL: inferenceURL,
		logger:       logger,
	}
}

// Name implements Provider.
func (p *HuggingFaceProvider) Name() string { return ProviderHuggingFace }

// Generate implements Provider.
func (p *HuggingFaceProvider) Generate(ctx context.Context, messages []Message) (*Reply, error) {
	if p.apiKey == "" {
		return nil, errors.New("HF_API_KEY no configurada")
	}

	resp, err := p.router.CreateChatCompletion(ctx, &ChatCompletionRequest{
		Model:       p.model,
		Messages:    toChatMessages(messages),
		Temperature: &p.temperature,
		MaxTokens:   &p.maxTokens,
	})
	if err == nil {
		if text := NormalizeReply(resp.FirstContent()); text != "" {
			return &Reply{Text: text, Provider: ProviderHuggingFace, Model: p.model}, nil
		}
	} else {
		p.logger.Debug("huggingface router failed, trying inference endpoint", zap.Error(err))
	}

	text, err := p.generateText(ctx, messages)
	if err != nil {
		return nil, err
	}
	if text == "" {
		return nil, errors.New("HuggingFace no devolvio contenido")
	}
	return &Reply{Text: text, Provider: ProviderHuggingFace, Model: p.model}, nil
}

type textGenerationRequest struct {
	Inputs     string               `json:"inputs"`
	Parameters textGenerationParams `json:"parameters"`
}

type textGenerationParams struct {
	MaxNewTokens   int     `json:"max_new_tokens"`
	Temperature    float64 `json:"temperature"`
	ReturnFullText bool    `json:"return_full_text"`
}

type generatedText struct {
	GeneratedText string `json:"generated_text"`
}

func (p *HuggingFaceProvider) generateText(ctx context.Context, messages []Message) (string, error) {
	req := textGenerationRequest{
		Inputs: LinearizePrompt(messages),
		Parameters: textGenerationParams{
			MaxNewTokens:   p.maxTokens,
			Temperature:    p.temperature,
			ReturnFullText: false,
		},
	}

	var raw json.RawMessage
	if err := p.inference.postJSON(ctx, p.inferenceURL+"/models/"+p.model, req, &raw); err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) {
			return "", fmt.Errorf("HuggingFace error %w", statusErr)
		}
		return "", err
	}

	// The endpoint answers either [{"generated_text": ...}] or {"generated_text": ...}.
	var list []generatedText
	if err := json.Unmarshal(raw, &list); err == nil {
		if len(list) == 0 {
			return "", nil
		}
		return NormalizeReply(list[0].GeneratedText), nil
	}
	var single generatedText
	if err := json.Unmarshal(raw, &single); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return NormalizeReply(single.GeneratedText), nil
}

// LinearizePrompt renders a conversation as a labelled transcript ending with
// an open assistant turn.
func LinearizePrompt(messages []Message) string {
	lines := make([]string, 0, len(messages)+1)
	for _, m := range messages {
		switch m.Role {
		case domain.RoleSystem:
			lines = append(lines, "Sistema: "+m.Content)
		case domain.RoleAssistant:
			lines = append(lines, "Asistente: "+m.Content)
		default:
			lines = append(lines, "Usuario: "+m.Content)
		}
	}
	lines = append(lines, "Asistente:")
	return strings.Join(lines, "\n\n")
}
