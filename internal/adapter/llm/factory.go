package llm

import (
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xiaot623/gogo/assistant/internal/config"
)

// ModeMock selects the offline mock provider.
const ModeMock = "MOCK"

// Config carries everything the orchestrator and its providers need.
type Config struct {
	Mode        string
	Primary     string
	Timeout     time.Duration
	Temperature float64
	MaxTokens   int
	MaxHistory  int

	Groq struct {
		APIKey  string
		Model   string
		BaseURL string
	}
	HuggingFace struct {
		APIKey       string
		Model        string
		RouterURL    string
		InferenceURL string
	}
	Gemini struct {
		APIKey  string
		Model   string
		BaseURL string
	}
}

// FromConfig maps the application configuration onto a provider Config.
func FromConfig(c config.LLMConfig, maxHistory int) Config {
	var cfg Config
	cfg.Mode = strings.ToUpper(strings.TrimSpace(c.Mode))
	cfg.Primary = strings.ToLower(strings.TrimSpace(c.Provider))
	cfg.Timeout = c.ProviderTimeout
	cfg.Temperature = c.Temperature
	cfg.MaxTokens = c.MaxTokens
	cfg.MaxHistory = maxHistory

	cfg.Groq.APIKey = strings.TrimSpace(c.GroqAPIKey)
	cfg.Groq.Model = c.GroqModel
	cfg.Groq.BaseURL = c.GroqBaseURL

	cfg.HuggingFace.APIKey = strings.TrimSpace(c.HFAPIKey)
	cfg.HuggingFace.Model = c.HFModel
	cfg.HuggingFace.RouterURL = c.HFRouterURL
	cfg.HuggingFace.InferenceURL = c.HFInferenceURL

	cfg.Gemini.APIKey = strings.TrimSpace(c.GeminiAPIKey)
	cfg.Gemini.Model = c.GeminiModel
	return cfg
}

// NewProviders builds providers in failover order: the configured primary
// first, then the others. Groq and HuggingFace are always attempted so their
// missing credentials show up in the failure report; Gemini only joins when it
// is the primary or has a key.
func NewProviders(cfg Config, logger *zap.Logger) []Provider {
	if cfg.Mode == ModeMock {
		if logger != nil {
			logger.Info("CHAT_MODE=MOCK detected, using mock LLM provider")
		}
		return []Provider{NewMockProvider()}
	}

	all := map[string]Provider{
		ProviderGroq:        NewGroqProvider(cfg),
		ProviderHuggingFace: NewHuggingFaceProvider(cfg, logger),
	}
	order := []string{ProviderGroq, ProviderHuggingFace}
	if cfg.Gemini.APIKey != "" || cfg.Primary == ProviderGemini {
		all[ProviderGemini] = NewGeminiProvider(cfg)
		order = append(order, ProviderGemini)
	}

	providers := make([]Provider, 0, len(order))
	if p, ok := all[cfg.Primary]; ok {
		providers = append(providers, p)
	}
	for _, name := range order {
		if name == cfg.Primary {
			continue
		}
		providers = append(providers, all[name])
	}
	return providers
}
