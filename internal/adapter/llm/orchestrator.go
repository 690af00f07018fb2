package llm

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xiaot623/gogo/assistant/internal/domain"
	"github.com/xiaot623/gogo/assistant/internal/metrics"
)

const (
	defaultTimeout    = 25 * time.Second
	defaultMaxHistory = 24
)

// Orchestrator sends a conversation to providers in order until one answers.
type Orchestrator struct {
	providers  []Provider
	timeout    time.Duration
	maxHistory int
	logger     *zap.Logger
	metrics    *metrics.Metrics
}

// NewOrchestrator creates an orchestrator over providers, tried in order.
func NewOrchestrator(providers []Provider, timeout time.Duration, maxHistory int, logger *zap.Logger, m *metrics.Metrics) *Orchestrator {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if maxHistory <= 0 {
		maxHistory = defaultMaxHistory
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		providers:  providers,
		timeout:    timeout,
		maxHistory: maxHistory,
		logger:     logger,
		metrics:    m,
	}
}

// Providers returns the provider names in failover order.
func (o *Orchestrator) Providers() []string {
	names := make([]string, len(o.providers))
	for i, p := range o.providers {
		names[i] = p.Name()
	}
	return names
}

// BuildConversation prepends systemPrompt to the last maxHistory messages of
// history, keeping only user and assistant turns.
func BuildConversation(systemPrompt string, history []domain.Message, maxHistory int) []Message {
	if len(history) > maxHistory {
		history = history[len(history)-maxHistory:]
	}
	conversation := make([]Message, 0, len(history)+1)
	conversation = append(conversation, Message{Role: domain.RoleSystem, Content: systemPrompt})
	for _, m := range history {
		if m.Role != domain.RoleUser && m.Role != domain.RoleAssistant {
			continue
		}
		conversation = append(conversation, Message{Role: m.Role, Content: m.Content})
	}
	return conversation
}

// GenerateReply returns the first successful provider reply. When every
// provider fails it returns a *domain.ProviderError listing each failure.
func (o *Orchestrator) GenerateReply(ctx context.Context, systemPrompt string, history []domain.Message) (*Reply, error) {
	conversation := BuildConversation(systemPrompt, history, o.maxHistory)

	failures := make([]string, 0, len(o.providers))
	for _, p := range o.providers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		reply, err := o.attempt(ctx, p, conversation)
		if err == nil {
			return reply, nil
		}
		o.logger.Warn("llm provider failed", zap.String("provider", p.Name()), zap.Error(err))
		failures = append(failures, fmt.Sprintf("%s: %v", p.Name(), err))
	}
	return nil, &domain.ProviderError{Failures: failures}
}

func (o *Orchestrator) attempt(ctx context.Context, p Provider, conversation []Message) (*Reply, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	started := time.Now()
	reply, err := p.Generate(attemptCtx, conversation)
	o.metrics.ObserveProviderCall(p.Name(), started, err)
	return reply, err
}
