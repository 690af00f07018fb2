// Package llm talks to hosted language-model providers and fails over between
// them.
package llm

import (
	"context"
	"regexp"
	"strings"

	"github.com/xiaot623/gogo/assistant/internal/domain"
)

// Message is one conversation turn sent to a provider.
type Message struct {
	Role    domain.Role
	Content string
}

// Reply is a provider answer and where it came from.
type Reply struct {
	Text     string
	Provider string
	Model    string
}

// Provider generates a reply for an ordered conversation whose first message
// may be a system prompt.
type Provider interface {
	Name() string
	Generate(ctx context.Context, messages []Message) (*Reply, error)
}

var excessWhitespace = regexp.MustCompile(`\s{3,}`)

// NormalizeReply trims text and collapses runs of three or more whitespace
// characters into a paragraph break.
func NormalizeReply(text string) string {
	return excessWhitespace.ReplaceAllString(strings.TrimSpace(text), "\n\n")
}
