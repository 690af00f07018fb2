// Package config provides configuration for the assistant.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvConfigFile names an optional YAML file loaded before the environment.
const EnvConfigFile = "ASSISTANT_CONFIG"

// Config holds the assistant configuration.
type Config struct {
	// Server settings
	HTTPPort int `yaml:"http_port"`

	// Relational read model
	DatabaseDriver string `yaml:"database_driver"`
	DatabaseURL    string `yaml:"database_url"`

	// Session store
	RedisURL string `yaml:"redis_url"`

	// Identity
	JWTSecret string `yaml:"jwt_secret"`

	// Visibility policy (rego); empty uses the built-in policy
	PolicyFile string `yaml:"policy_file"`

	Chat ChatConfig `yaml:"chat"`
	LLM  LLMConfig  `yaml:"llm"`

	// Logging
	LogLevel string `yaml:"log_level"`
}

// ChatConfig bounds conversations and traffic.
type ChatConfig struct {
	MaxMessageLength   int           `yaml:"max_message_length"`
	MaxSessionMessages int           `yaml:"max_session_messages"`
	MaxContextMessages int           `yaml:"max_context_messages"`
	SessionListLimit   int           `yaml:"session_list_limit"`
	RateLimit          int           `yaml:"rate_limit"`
	RateLimitWindow    time.Duration `yaml:"rate_limit_window"`
	TimeZone           string        `yaml:"time_zone"`
}

// LLMConfig selects and configures language-model providers.
type LLMConfig struct {
	Mode            string        `yaml:"mode"`
	Provider        string        `yaml:"provider"`
	ProviderTimeout time.Duration `yaml:"provider_timeout"`
	Temperature     float64       `yaml:"temperature"`
	MaxTokens       int           `yaml:"max_tokens"`

	GroqAPIKey  string `yaml:"groq_api_key"`
	GroqModel   string `yaml:"groq_model"`
	GroqBaseURL string `yaml:"groq_base_url"`

	HFAPIKey       string `yaml:"hf_api_key"`
	HFModel        string `yaml:"hf_model"`
	HFRouterURL    string `yaml:"hf_router_url"`
	HFInferenceURL string `yaml:"hf_inference_url"`

	GeminiAPIKey string `yaml:"gemini_api_key"`
	GeminiModel  string `yaml:"gemini_model"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		HTTPPort:       3000,
		DatabaseDriver: "sqlite3",
		DatabaseURL:    "file:assistant.db?cache=shared&mode=rwc",
		LogLevel:       "info",
		Chat: ChatConfig{
			MaxMessageLength:   1400,
			MaxSessionMessages: 200,
			MaxContextMessages: 24,
			SessionListLimit:   50,
			RateLimit:          30,
			RateLimitWindow:    60 * time.Second,
			TimeZone:           "Europe/Madrid",
		},
		LLM: LLMConfig{
			Provider:        "groq",
			ProviderTimeout: 25 * time.Second,
			Temperature:     0.2,
			MaxTokens:       700,
			GroqModel:       "llama-3.1-8b-instant",
			GroqBaseURL:     "https://api.groq.com/openai",
			HFModel:         "meta-llama/Llama-3.1-8B-Instruct",
			HFRouterURL:     "https://router.huggingface.co",
			HFInferenceURL:  "https://api-inference.huggingface.co",
			GeminiModel:     "gemini-2.0-flash",
		},
	}
}

// Load loads configuration from the optional YAML file and then from
// environment variables, which take precedence.
func Load() (*Config, error) {
	cfg := Default()

	if path := getEnv(EnvConfigFile, ""); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.HTTPPort = getEnvInt("PORT", cfg.HTTPPort)
	cfg.DatabaseDriver = getEnv("DATABASE_DRIVER", cfg.DatabaseDriver)
	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.RedisURL = getEnv("REDIS_URL", cfg.RedisURL)
	cfg.JWTSecret = getEnv("JWT_SECRET", cfg.JWTSecret)
	cfg.PolicyFile = getEnv("CHAT_POLICY_FILE", cfg.PolicyFile)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)

	cfg.Chat.MaxMessageLength = getEnvInt("CHAT_MAX_MESSAGE_LENGTH", cfg.Chat.MaxMessageLength)
	cfg.Chat.MaxSessionMessages = getEnvInt("CHAT_MAX_SESSION_MESSAGES", cfg.Chat.MaxSessionMessages)
	cfg.Chat.MaxContextMessages = getEnvInt("CHAT_MAX_CONTEXT_MESSAGES", cfg.Chat.MaxContextMessages)
	cfg.Chat.SessionListLimit = getEnvInt("CHAT_SESSION_LIMIT", cfg.Chat.SessionListLimit)
	cfg.Chat.RateLimit = getEnvInt("CHAT_RATE_LIMIT_PER_MINUTE", cfg.Chat.RateLimit)
	cfg.Chat.TimeZone = getEnv("CHAT_TIME_ZONE", cfg.Chat.TimeZone)

	cfg.LLM.Mode = strings.ToUpper(getEnv("CHAT_MODE", cfg.LLM.Mode))
	cfg.LLM.Provider = strings.ToLower(getEnv("CHAT_PROVIDER", cfg.LLM.Provider))
	cfg.LLM.ProviderTimeout = time.Duration(getEnvInt("LLM_TIMEOUT_MS", int(cfg.LLM.ProviderTimeout/time.Millisecond))) * time.Millisecond
	cfg.LLM.GroqAPIKey = getEnv("GROQ_API_KEY", cfg.LLM.GroqAPIKey)
	cfg.LLM.GroqModel = getEnv("GROQ_MODEL", cfg.LLM.GroqModel)
	cfg.LLM.GroqBaseURL = getEnv("GROQ_BASE_URL", cfg.LLM.GroqBaseURL)
	cfg.LLM.HFAPIKey = getEnv("HF_API_KEY", cfg.LLM.HFAPIKey)
	cfg.LLM.HFModel = getEnv("HF_MODEL", cfg.LLM.HFModel)
	cfg.LLM.HFRouterURL = getEnv("HF_ROUTER_URL", cfg.LLM.HFRouterURL)
	cfg.LLM.HFInferenceURL = getEnv("HF_INFERENCE_URL", cfg.LLM.HFInferenceURL)
	cfg.LLM.GeminiAPIKey = getEnv("GEMINI_API_KEY", cfg.LLM.GeminiAPIKey)
	cfg.LLM.GeminiModel = getEnv("GEMINI_MODEL", cfg.LLM.GeminiModel)

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}
