package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xiaot623/gogo/assistant/internal/briefing"
	"github.com/xiaot623/gogo/assistant/internal/domain"
)

// ChatResult is the outcome of a sent message.
type ChatResult struct {
	Session  *domain.Session  `json:"session"`
	Message  domain.Message   `json:"message"`
	Messages []domain.Message `json:"messages"`
}

// SendMessage stores the user's message, answers it deterministically or
// through the language model, stores the answer and returns the transcript.
func (s *Service) SendMessage(ctx context.Context, identity domain.Identity, req domain.SendMessageRequest) (*ChatResult, error) {
	if err := req.Normalize(s.opts.MaxMessageLength); err != nil {
		return nil, err
	}
	if err := s.ensureAvailable(ctx); err != nil {
		return nil, err
	}

	allowed, err := s.limiter.Allow(ctx, identity.AccountID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		if s.metrics != nil {
			s.metrics.RateLimitedTotal.Inc()
		}
		return nil, domain.ErrRateLimited
	}

	session, err := s.resolveSession(ctx, identity, req.SessionID)
	if err != nil {
		return nil, err
	}

	userMessage := domain.Message{
		ID:        uuid.NewString(),
		Role:      domain.RoleUser,
		Content:   req.Message,
		CreatedAt: s.now().UTC(),
	}
	if err := s.sessions.AppendMessage(ctx, session.SessionID, userMessage); err != nil {
		return nil, err
	}

	history, err := s.sessions.GetMessages(ctx, session.SessionID)
	if err != nil {
		return nil, err
	}
	deriveTitle(session, history)
	session.Touch(userMessage.CreatedAt)
	if err := s.sessions.SaveSessionMeta(ctx, session); err != nil {
		return nil, err
	}

	reply, err := s.reply(ctx, identity, req, history)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.AppendMessage(ctx, session.SessionID, reply); err != nil {
		return nil, err
	}
	session.Touch(reply.CreatedAt)
	if err := s.sessions.SaveSessionMeta(ctx, session); err != nil {
		return nil, err
	}

	messages, err := s.sessions.GetMessages(ctx, session.SessionID)
	if err != nil {
		return nil, err
	}
	return &ChatResult{Session: session, Message: reply, Messages: messages}, nil
}

func (s *Service) resolveSession(ctx context.Context, identity domain.Identity, sessionID string) (*domain.Session, error) {
	if sessionID != "" {
		return s.ownedSession(ctx, identity, sessionID)
	}
	session, err := s.sessions.CreateSession(ctx, identity.AccountID, "")
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.SessionsCreated.Inc()
	}
	return session, nil
}

// deriveTitle names a session after its first user message unless its title
// is already fixed.
func deriveTitle(session *domain.Session, history []domain.Message) {
	if session.TitleFixed {
		return
	}
	for _, m := range history {
		if m.Role == domain.RoleUser {
			session.Title = domain.Truncate(m.Content, derivedTitleLength)
			session.TitleFixed = true
			return
		}
	}
}

// reply produces the assistant message, preferring a deterministic answer.
func (s *Service) reply(ctx context.Context, identity domain.Identity, req domain.SendMessageRequest, history []domain.Message) (domain.Message, error) {
	scope := s.scopeFor(ctx, identity)

	if s.resolver != nil {
		if answer, ok := s.resolver.Resolve(ctx, scope, req.Message); ok {
			s.logger.Debug("answered deterministically", zap.String("rule", answer.Rule))
			s.metrics.ObserveReply(domain.DeterministicProvider)
			return domain.Message{
				ID:        uuid.NewString(),
				Role:      domain.RoleAssistant,
				Content:   answer.Text,
				CreatedAt: s.now().UTC(),
				Provider:  domain.DeterministicProvider,
				Model:     domain.DeterministicModel,
			}, nil
		}
	}

	domainContext := briefing.Unavailable
	if s.briefing != nil {
		domainContext = s.briefing.Build(ctx, scope)
	}
	var ui domain.UIContext
	if req.UIContext != nil {
		ui = *req.UIContext
	}
	prompt := briefing.SystemPrompt(domainContext, identity.Role, briefing.UIContextText(ui))

	generated, err := s.replier.GenerateReply(ctx, prompt, history)
	if err != nil {
		return domain.Message{}, fmt.Errorf("generate reply: %w", err)
	}
	s.metrics.ObserveReply(generated.Provider)
	return domain.Message{
		ID:        uuid.NewString(),
		Role:      domain.RoleAssistant,
		Content:   generated.Text,
		CreatedAt: s.now().UTC(),
		Provider:  generated.Provider,
		Model:     generated.Model,
	}, nil
}
