package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/xiaot623/gogo/assistant/internal/domain"
)

func testConfig() Config {
	var cfg Config
	cfg.Timeout = time.Second
	cfg.Temperature = 0.2
	cfg.MaxTokens = 700
	cfg.Groq.APIKey = "groq-key"
	cfg.Groq.Model = "llama-3.1-8b-instant"
	cfg.HuggingFace.APIKey = "hf-key"
	cfg.HuggingFace.Model = "meta-llama/Llama-3.1-8B-Instruct"
	cfg.Gemini.Model = "gemini-2.0-flash"
	return cfg
}

var conversation = []Message{
	{Role: domain.RoleSystem, Content: "Eres un asistente."},
	{Role: domain.RoleUser, Content: "hola"},
	{Role: domain.RoleAssistant, Content: "buenas"},
	{Role: domain.RoleUser, Content: "que tal"},
}

func TestNormalizeReply(t *testing.T) {
	assert.Equal(t, "a\n\nb", NormalizeReply("  a \n \n\n b \t "))
	assert.Equal(t, "a  b", NormalizeReply("a  b"))
	assert.Equal(t, "", NormalizeReply(" \n\t "))
}

func TestGroqGenerate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/openai/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer groq-key", r.Header.Get("Authorization"))

		var req ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "llama-3.1-8b-instant", req.Model)
		assert.Equal(t, 0.2, *req.Temperature)
		assert.Equal(t, 700, *req.MaxTokens)
		require.Len(t, req.Messages, 4)
		assert.Equal(t, "system", req.Messages[0].Role)

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"c1","model":"llama","choices":[{"index":0,"message":{"role":"assistant","content":"  Hola.\n\n\n\nTodo bien.  "},"finish_reason":"stop"}]}`)
	}))
	defer server.Close()

	cfg := testConfig()
	cfg.Groq.BaseURL = server.URL + "/openai"
	reply, err := NewGroqProvider(cfg).Generate(context.Background(), conversation)
	require.NoError(t, err)
	assert.Equal(t, &Reply{Text: "Hola.\n\nTodo bien.", Provider: "groq", Model: "llama-3.1-8b-instant"}, reply)
}

func TestGroqErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"message":"rate limited"}}`)
	}))
	defer server.Close()

	cfg := testConfig()
	cfg.Groq.BaseURL = server.URL
	_, err := NewGroqProvider(cfg).Generate(context.Background(), conversation)
	require.Error(t, err)
	assert.Equal(t, `Groq error 429: {"error":{"message":"rate limited"}}`, err.Error())

	cfg.Groq.APIKey = ""
	_, err = NewGroqProvider(cfg).Generate(context.Background(), conversation)
	assert.EqualError(t, err, "GROQ_API_KEY no configurada")
}

func TestGroqEmptyContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices":[{"index":0,"message":{"role":"assistant","content":"   "}}]}`)
	}))
	defer server.Close()

	cfg := testConfig()
	cfg.Groq.BaseURL = server.URL
	_, err := NewGroqProvider(cfg).Generate(context.Background(), conversation)
	assert.EqualError(t, err, "Groq no devolvio contenido")
}

func TestHuggingFaceRouter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		fmt.Fprint(w, `{"choices":[{"index":0,"message":{"role":"assistant","content":"desde el router"}}]}`)
	}))
	defer server.Close()

	cfg := testConfig()
	cfg.HuggingFace.RouterURL = server.URL
	cfg.HuggingFace.InferenceURL = server.URL
	reply, err := NewHuggingFaceProvider(cfg, nil).Generate(context.Background(), conversation)
	require.NoError(t, err)
	assert.Equal(t, "desde el router", reply.Text)
	assert.Equal(t, "huggingface", reply.Provider)
}

func TestHuggingFaceFallsBackToInference(t *testing.T) {
	tests := []struct {
		name     string
		router   func(w http.ResponseWriter)
		response string
	}{
		{
			name:     "router error, list payload",
			router:   func(w http.ResponseWriter) { w.WriteHeader(http.StatusBadGateway) },
			response: `[{"generated_text":" respuesta legada "}]`,
		},
		{
			name:     "router empty, object payload",
			router:   func(w http.ResponseWriter) { fmt.Fprint(w, `{"choices":[]}`) },
			response: `{"generated_text":"respuesta legada"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var inferenceBody textGenerationRequest
			mux := http.NewServeMux()
			mux.HandleFunc("/router/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
				tt.router(w)
			})
			mux.HandleFunc("/inference/models/", func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/inference/models/meta-llama/Llama-3.1-8B-Instruct", r.URL.Path)
				assert.Equal(t, "Bearer hf-key", r.Header.Get("Authorization"))
				body, _ := io.ReadAll(r.Body)
				require.NoError(t, json.Unmarshal(body, &inferenceBody))
				fmt.Fprint(w, tt.response)
			})
			server := httptest.NewServer(mux)
			defer server.Close()

			cfg := testConfig()
			cfg.HuggingFace.RouterURL = server.URL + "/router"
			cfg.HuggingFace.InferenceURL = server.URL + "/inference"
			reply, err := NewHuggingFaceProvider(cfg, nil).Generate(context.Background(), conversation)
			require.NoError(t, err)
			assert.Equal(t, "respuesta legada", reply.Text)

			assert.Equal(t, 700, inferenceBody.Parameters.MaxNewTokens)
			assert.Equal(t, 0.2, inferenceBody.Parameters.Temperature)
			assert.False(t, inferenceBody.Parameters.ReturnFullText)
			assert.True(t, strings.HasSuffix(inferenceBody.Inputs, "\n\nAsistente:"))
		})
	}
}

func TestHuggingFaceInferenceFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, "loading")
	}))
	defer server.Close()

	cfg := testConfig()
	cfg.HuggingFace.RouterURL = server.URL
	cfg.HuggingFace.InferenceURL = server.URL
	_, err := NewHuggingFaceProvider(cfg, nil).Generate(context.Background(), conversation)
	assert.EqualError(t, err, "HuggingFace error 503: loading")
}

func TestLinearizePrompt(t *testing.T) {
	want := "Sistema: Eres un asistente.\n\nUsuario: hola\n\nAsistente: buenas\n\nUsuario: que tal\n\nAsistente:"
	assert.Equal(t, want, LinearizePrompt(conversation))
}

func TestGeminiGenerate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "gemini-2.0-flash:generateContent"), r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":"hola desde gemini"}]}}]}`)
	}))
	defer server.Close()

	cfg := testConfig()
	cfg.Gemini.APIKey = "gemini-key"
	cfg.Gemini.BaseURL = server.URL + "/"
	reply, err := NewGeminiProvider(cfg).Generate(context.Background(), conversation)
	require.NoError(t, err)
	assert.Equal(t, &Reply{Text: "hola desde gemini", Provider: "gemini", Model: "gemini-2.0-flash"}, reply)

	cfg.Gemini.APIKey = ""
	_, err = NewGeminiProvider(cfg).Generate(context.Background(), conversation)
	assert.EqualError(t, err, "GEMINI_API_KEY no configurada")
}

func TestGeminiRetriesClientCreation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":"ok"}]}}]}`)
	}))
	defer server.Close()

	cfg := testConfig()
	cfg.Gemini.APIKey = "gemini-key"
	cfg.Gemini.BaseURL = server.URL + "/"
	p := NewGeminiProvider(cfg)

	attempts := 0
	p.newClient = func(ctx context.Context, cc *genai.ClientConfig) (*genai.Client, error) {
		attempts++
		if attempts == 1 {
			return nil, errors.New("transient")
		}
		return genai.NewClient(ctx, cc)
	}

	_, err := p.Generate(context.Background(), conversation)
	require.Error(t, err)

	expired, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Generate(expired, conversation)
	require.Error(t, err)

	reply, err := p.Generate(context.Background(), conversation)
	require.NoError(t, err)
	assert.Equal(t, "ok", reply.Text)
	assert.Equal(t, 2, attempts)
}

func TestMockProvider(t *testing.T) {
	reply, err := NewMockProvider().Generate(context.Background(), conversation)
	require.NoError(t, err)
	assert.Equal(t, "mock", reply.Provider)
	assert.Contains(t, reply.Text, `"que tal"`)
}
