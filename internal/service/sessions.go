package service

import (
	"context"
	"strings"

	"github.com/xiaot623/gogo/assistant/internal/domain"
)

// ListSessions returns the caller's sessions, most recently active first.
func (s *Service) ListSessions(ctx context.Context, identity domain.Identity) ([]domain.SessionSummary, error) {
	if err := s.ensureAvailable(ctx); err != nil {
		return nil, err
	}
	return s.sessions.ListSessions(ctx, identity.AccountID, s.opts.SessionListLimit)
}

// CreateSession creates an empty session with an optional explicit title.
func (s *Service) CreateSession(ctx context.Context, identity domain.Identity, req domain.CreateSessionRequest) (*domain.Session, error) {
	if err := s.ensureAvailable(ctx); err != nil {
		return nil, err
	}
	title := domain.Truncate(strings.TrimSpace(req.Title), explicitTitleLength)
	session, err := s.sessions.CreateSession(ctx, identity.AccountID, title)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.SessionsCreated.Inc()
	}
	return session, nil
}

// GetSessionMessages returns a session owned by the caller and its log.
func (s *Service) GetSessionMessages(ctx context.Context, identity domain.Identity, sessionID string) (*domain.Session, []domain.Message, error) {
	if err := s.ensureAvailable(ctx); err != nil {
		return nil, nil, err
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, nil, &domain.ValidationError{Field: "sessionId", Message: "sessionId es requerido"}
	}

	session, err := s.ownedSession(ctx, identity, sessionID)
	if err != nil {
		return nil, nil, err
	}
	messages, err := s.sessions.GetMessages(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	return session, messages, nil
}

// ownedSession loads a session and hides sessions of other accounts.
func (s *Service) ownedSession(ctx context.Context, identity domain.Identity, sessionID string) (*domain.Session, error) {
	session, err := s.sessions.GetSessionMeta(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.OwnedBy(identity.AccountID) {
		return nil, domain.ErrNotFound
	}
	return session, nil
}
