package repository

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xiaot623/gogo/assistant/internal/domain"
)

const previewLength = 120

func userSessionsKey(accountID string) string { return "chat:user:" + accountID + ":sessions" }
func sessionMetaKey(sessionID string) string  { return "chat:session:" + sessionID + ":meta" }
func sessionMessagesKey(sessionID string) string {
	return "chat:session:" + sessionID + ":messages"
}

// SessionStore keeps chat sessions in Redis: a hash per session, a JSON list
// per message log and a recency-sorted set per account.
type SessionStore struct {
	rdb         redis.UniversalClient
	maxMessages int
	logger      *zap.Logger
	now         func() time.Time
}

// NewSessionStore creates a session store keeping at most maxMessages per log.
func NewSessionStore(rdb redis.UniversalClient, maxMessages int, logger *zap.Logger) *SessionStore {
	if maxMessages <= 0 {
		maxMessages = 200
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionStore{rdb: rdb, maxMessages: maxMessages, logger: logger, now: time.Now}
}

// Ping checks that the store is reachable.
func (s *SessionStore) Ping(ctx context.Context) error {
	return classify("ping", s.rdb.Ping(ctx).Err())
}

// CreateSession allocates and persists a new session. Creation is never
// deduplicated. A non-empty title is explicit and is never replaced.
func (s *SessionStore) CreateSession(ctx context.Context, accountID, title string) (*domain.Session, error) {
	fixed := title != ""
	if !fixed {
		title = domain.DefaultSessionTitle
	}
	now := s.now().UTC()
	session := &domain.Session{
		SessionID:  uuid.NewString(),
		AccountID:  accountID,
		Title:      title,
		CreatedAt:  now,
		UpdatedAt:  now,
		TitleFixed: fixed,
	}
	if err := s.SaveSessionMeta(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// GetSessionMeta returns the session or nil when it does not exist.
func (s *SessionStore) GetSessionMeta(ctx context.Context, sessionID string) (*domain.Session, error) {
	meta, err := s.rdb.HGetAll(ctx, sessionMetaKey(sessionID)).Result()
	if err != nil {
		return nil, classify("get session", err)
	}
	if len(meta) == 0 {
		return nil, nil
	}
	return decodeMeta(sessionID, meta), nil
}

// SaveSessionMeta upserts the metadata and refreshes the account's recency index.
func (s *SessionStore) SaveSessionMeta(ctx context.Context, session *domain.Session) error {
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, sessionMetaKey(session.SessionID), map[string]interface{}{
			"sessionId":  session.SessionID,
			"accountId":  session.AccountID,
			"title":      session.Title,
			"titleFixed": strconv.FormatBool(session.TitleFixed),
			"createdAt":  session.CreatedAt.UTC().Format(time.RFC3339Nano),
			"updatedAt":  session.UpdatedAt.UTC().Format(time.RFC3339Nano),
		})
		pipe.ZAdd(ctx, userSessionsKey(session.AccountID), redis.Z{
			Score:  float64(s.now().UnixMilli()),
			Member: session.SessionID,
		})
		return nil
	})
	return classify("save session", err)
}

// ListSessions returns the account's most recently touched sessions first.
func (s *SessionStore) ListSessions(ctx context.Context, accountID string, limit int) ([]domain.SessionSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	ids, err := s.rdb.ZRevRange(ctx, userSessionsKey(accountID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, classify("list sessions", err)
	}
	if len(ids) == 0 {
		return []domain.SessionSummary{}, nil
	}

	entries, err := s.FetchSessionSummaries(ctx, ids)
	if err != nil {
		return nil, err
	}

	summaries := make([]domain.SessionSummary, 0, len(entries))
	for _, entry := range entries {
		summaries = append(summaries, entry.Summary)
	}
	return summaries, nil
}

// SummaryEntry is the per-key outcome of a batched summary fetch.
type SummaryEntry struct {
	Summary    domain.SessionSummary
	MetaFound  bool
	HasMessage bool
}

// FetchSessionSummaries loads metadata and last message of every session in
// one round trip. Absent metadata or empty logs are reported per entry and
// filled with placeholders.
func (s *SessionStore) FetchSessionSummaries(ctx context.Context, sessionIDs []string) ([]SummaryEntry, error) {
	metaCmds := make([]*redis.MapStringStringCmd, len(sessionIDs))
	lastCmds := make([]*redis.StringCmd, len(sessionIDs))

	_, err := s.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range sessionIDs {
			metaCmds[i] = pipe.HGetAll(ctx, sessionMetaKey(id))
			lastCmds[i] = pipe.LIndex(ctx, sessionMessagesKey(id), -1)
		}
		return nil
	})
	// LINDEX on an empty list yields redis.Nil, which is an absence, not a failure.
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, classify("fetch sessions", err)
	}
	for i := range sessionIDs {
		if err := metaCmds[i].Err(); err != nil {
			return nil, classify("fetch sessions", err)
		}
		if err := lastCmds[i].Err(); err != nil && !errors.Is(err, redis.Nil) {
			return nil, classify("fetch sessions", err)
		}
	}

	now := s.now().UTC()
	entries := make([]SummaryEntry, len(sessionIDs))
	for i, id := range sessionIDs {
		entry := SummaryEntry{Summary: domain.SessionSummary{
			SessionID: id,
			Title:     domain.DefaultSessionTitle,
			CreatedAt: now,
			UpdatedAt: now,
		}}

		if meta := metaCmds[i].Val(); len(meta) > 0 {
			session := decodeMeta(id, meta)
			entry.MetaFound = true
			entry.Summary.Title = session.Title
			entry.Summary.CreatedAt = session.CreatedAt
			entry.Summary.UpdatedAt = session.UpdatedAt
		}

		if raw, err := lastCmds[i].Result(); err == nil {
			if msg, ok := decodeMessage(raw); ok {
				entry.HasMessage = true
				entry.Summary.LastMessagePreview = domain.Truncate(msg.Content, previewLength)
			}
		}
		entries[i] = entry
	}
	return entries, nil
}

// AppendMessage pushes message to the tail of the log and trims the head so
// that at most maxMessages remain.
func (s *SessionStore) AppendMessage(ctx context.Context, sessionID string, message domain.Message) error {
	if message.Role == domain.RoleSystem {
		return errors.New("system messages are never persisted")
	}
	payload, err := json.Marshal(message)
	if err != nil {
		return err
	}

	key := sessionMessagesKey(sessionID)
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, payload)
		pipe.LTrim(ctx, key, int64(-s.maxMessages), -1)
		return nil
	})
	return classify("append message", err)
}

// GetMessages returns every retained message, oldest first.
func (s *SessionStore) GetMessages(ctx context.Context, sessionID string) ([]domain.Message, error) {
	raws, err := s.rdb.LRange(ctx, sessionMessagesKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, classify("get messages", err)
	}

	messages := make([]domain.Message, 0, len(raws))
	for _, raw := range raws {
		msg, ok := decodeMessage(raw)
		if !ok {
			s.logger.Warn("skipping malformed chat message", zap.String("session_id", sessionID))
			continue
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

func decodeMessage(raw string) (domain.Message, bool) {
	var msg domain.Message
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		return domain.Message{}, false
	}
	return msg, msg.Valid()
}

func decodeMeta(sessionID string, meta map[string]string) *domain.Session {
	session := &domain.Session{
		SessionID: sessionID,
		AccountID: meta["accountId"],
		Title:     meta["title"],
	}
	if session.Title == "" {
		session.Title = domain.DefaultSessionTitle
	}
	// Sessions written without the flag count as fixed once renamed.
	if fixed, err := strconv.ParseBool(meta["titleFixed"]); err == nil {
		session.TitleFixed = fixed
	} else {
		session.TitleFixed = session.Title != domain.DefaultSessionTitle
	}
	now := time.Now().UTC()
	session.CreatedAt = parseTime(meta["createdAt"], now)
	session.UpdatedAt = parseTime(meta["updatedAt"], now)
	return session
}

func parseTime(value string, fallback time.Time) time.Time {
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t
	}
	return fallback
}
