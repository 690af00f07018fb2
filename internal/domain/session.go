package domain

import "time"

// DefaultSessionTitle is the placeholder title of a session whose title has
// not been derived from its first user message yet.
const DefaultSessionTitle = "Nueva conversacion"

// Session is a persisted conversation thread owned by a single account.
type Session struct {
	SessionID string    `json:"sessionId"`
	AccountID string    `json:"-"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	// TitleFixed is set once the title was given explicitly or derived from
	// the first user message; the title never changes afterwards.
	TitleFixed bool `json:"-"`
}

// OwnedBy reports whether the session belongs to the given account.
func (s *Session) OwnedBy(accountID string) bool {
	return s != nil && accountID != "" && s.AccountID == accountID
}

// Touch moves UpdatedAt forward to ts. It never moves backwards.
func (s *Session) Touch(ts time.Time) {
	if ts.After(s.UpdatedAt) {
		s.UpdatedAt = ts
	}
}

// SessionSummary is the listing view of a session.
type SessionSummary struct {
	SessionID          string    `json:"sessionId"`
	Title              string    `json:"title"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
	LastMessagePreview string    `json:"lastMessagePreview"`
}

// Message is a single entry of a session's message log.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	Provider  string    `json:"provider,omitempty"`
	Model     string    `json:"model,omitempty"`
}

// Valid reports whether a decoded message carries every required field.
func (m *Message) Valid() bool {
	return m.ID != "" && m.Role != "" && m.Content != "" && !m.CreatedAt.IsZero()
}

// Truncate returns at most n runes of s.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
