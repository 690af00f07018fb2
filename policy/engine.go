// Package policy decides which events an identity may see.
package policy

import (
	"context"
	"fmt"
	"os"

	"github.com/open-policy-agent/opa/rego"

	"github.com/xiaot623/gogo/assistant/internal/domain"
)

// Scope decisions returned by the policy.
const (
	DecisionSystem  = "system"
	DecisionAccount = "account"
)

// Engine is the OPA policy engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine creates a new policy engine with the given policy content.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.chat_policy.scope"),
		rego.Module("chat_policy.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// NewEngineFromFile loads the policy at path, or DefaultPolicy when path is empty.
func NewEngineFromFile(ctx context.Context, path string) (*Engine, error) {
	if path == "" {
		return NewEngine(ctx, DefaultPolicy)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy: %w", err)
	}
	return NewEngine(ctx, string(content))
}

// Evaluate returns the raw scope decision for input.
func (e *Engine) Evaluate(ctx context.Context, input interface{}) (string, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return "", fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return DecisionAccount, nil
	}

	val := results[0].Expressions[0].Value
	if s, ok := val.(string); ok {
		return s, nil
	}
	return "", fmt.Errorf("unexpected policy result %T", val)
}

// Scope resolves the visibility scope of identity. Anything but a system
// decision restricts reads to the identity's own grants.
func (e *Engine) Scope(ctx context.Context, identity domain.Identity) (domain.Scope, error) {
	decision, err := e.Evaluate(ctx, map[string]interface{}{
		"account_id": identity.AccountID,
		"role":       string(identity.Role),
		"email":      identity.Email,
	})
	if err != nil {
		return domain.Scope{}, err
	}
	if decision == DecisionSystem {
		return domain.Scope{System: true}, nil
	}
	return domain.Scope{AccountID: identity.AccountID}, nil
}

// DefaultPolicy grants system-wide visibility to administrators only.
const DefaultPolicy = `
package chat_policy

default scope = "account"

scope = "system" {
	input.role == "ADMIN"
}
`
