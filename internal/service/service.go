// Package service implements the chat use cases on top of the session store,
// the deterministic resolver and the language-model orchestrator.
package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xiaot623/gogo/assistant/internal/adapter/llm"
	"github.com/xiaot623/gogo/assistant/internal/domain"
	"github.com/xiaot623/gogo/assistant/internal/intent"
	"github.com/xiaot623/gogo/assistant/internal/metrics"
)

// SessionStore persists sessions and their message logs.
type SessionStore interface {
	Ping(ctx context.Context) error
	CreateSession(ctx context.Context, accountID, title string) (*domain.Session, error)
	GetSessionMeta(ctx context.Context, sessionID string) (*domain.Session, error)
	SaveSessionMeta(ctx context.Context, session *domain.Session) error
	ListSessions(ctx context.Context, accountID string, limit int) ([]domain.SessionSummary, error)
	AppendMessage(ctx context.Context, sessionID string, message domain.Message) error
	GetMessages(ctx context.Context, sessionID string) ([]domain.Message, error)
}

// RateLimiter admits or rejects a request for an account.
type RateLimiter interface {
	Allow(ctx context.Context, accountID string) (bool, error)
}

// Resolver answers factual questions without a language model.
type Resolver interface {
	Resolve(ctx context.Context, scope domain.Scope, message string) (*intent.Reply, bool)
}

// Briefer renders the domain context for a scope.
type Briefer interface {
	Build(ctx context.Context, scope domain.Scope) string
}

// Replier produces language-model replies.
type Replier interface {
	GenerateReply(ctx context.Context, systemPrompt string, history []domain.Message) (*llm.Reply, error)
}

// ScopeResolver maps an identity to its visibility scope.
type ScopeResolver interface {
	Scope(ctx context.Context, identity domain.Identity) (domain.Scope, error)
}

// Deps are the collaborators of Service. Sessions and Limiter are nil when no
// key-value store is configured.
type Deps struct {
	Sessions SessionStore
	Limiter  RateLimiter
	Resolver Resolver
	Briefing Briefer
	Replier  Replier
	Scopes   ScopeResolver
	Logger   *zap.Logger
	Metrics  *metrics.Metrics
}

// Options bound requests.
type Options struct {
	MaxMessageLength int
	SessionListLimit int
}

const (
	derivedTitleLength  = 60
	explicitTitleLength = 80
)

type Service struct {
	sessions SessionStore
	limiter  RateLimiter
	resolver Resolver
	briefing Briefer
	replier  Replier
	scopes   ScopeResolver
	logger   *zap.Logger
	metrics  *metrics.Metrics
	opts     Options
	now      func() time.Time
}

func New(deps Deps, opts Options) *Service {
	if opts.MaxMessageLength <= 0 {
		opts.MaxMessageLength = 1400
	}
	if opts.SessionListLimit <= 0 {
		opts.SessionListLimit = 50
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		sessions: deps.Sessions,
		limiter:  deps.Limiter,
		resolver: deps.Resolver,
		briefing: deps.Briefing,
		replier:  deps.Replier,
		scopes:   deps.Scopes,
		logger:   logger,
		metrics:  deps.Metrics,
		opts:     opts,
		now:      time.Now,
	}
}

// ensureAvailable fails fast when the session store is missing or unreachable.
func (s *Service) ensureAvailable(ctx context.Context) error {
	if s.sessions == nil {
		return domain.ErrStoreNotConfigured
	}
	if err := s.sessions.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// scopeFor resolves the identity's scope, narrowing to its own account when
// the policy cannot be evaluated.
func (s *Service) scopeFor(ctx context.Context, identity domain.Identity) domain.Scope {
	if s.scopes == nil {
		if identity.Elevated() {
			return domain.Scope{System: true}
		}
		return domain.Scope{AccountID: identity.AccountID}
	}
	scope, err := s.scopes.Scope(ctx, identity)
	if err != nil {
		s.logger.Error("failed to evaluate visibility policy", zap.String("account_id", identity.AccountID), zap.Error(err))
		return domain.Scope{AccountID: identity.AccountID}
	}
	return scope
}
