// Package intent answers a fixed set of factual event questions straight from
// the relational store, without a language model.
package intent

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/xiaot623/gogo/assistant/internal/domain"
	"github.com/xiaot623/gogo/assistant/internal/repository"
)

// EventSource is the scoped read model the rules query.
type EventSource interface {
	ListEvents(ctx context.Context, q repository.EventQuery) ([]domain.EventRecord, error)
	CountEvents(ctx context.Context, q repository.EventQuery) (int64, error)
	VisiblePatients(ctx context.Context, scope domain.Scope) ([]domain.PatientRef, error)
}

// Reply is a deterministic answer and the rule that produced it.
type Reply struct {
	Rule string
	Text string
}

// Resolver evaluates rules in order and answers with the first match.
type Resolver struct {
	events EventSource
	format *Formatter
	rules  []Rule
	logger *zap.Logger
}

// NewResolver creates a resolver over events using DefaultRules.
func NewResolver(events EventSource, format *Formatter, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{events: events, format: format, rules: DefaultRules(), logger: logger}
}

// Resolve returns the answer to message, or false when no rule applies or the
// matching rule failed to query the store.
func (r *Resolver) Resolve(ctx context.Context, scope domain.Scope, message string) (*Reply, bool) {
	text := Tokenize(message)
	if len(text.Folded) == 0 {
		return nil, false
	}
	q := &Query{Text: text, Scope: scope, Patient: extractPatient(text)}

	for _, rule := range r.rules {
		if !rule.Match(q) {
			continue
		}
		answer, err := rule.Answer(ctx, r, q)
		if err != nil {
			r.logger.Warn("deterministic rule failed, falling back",
				zap.String("rule", rule.Name), zap.Error(err))
			return nil, false
		}
		return &Reply{Rule: rule.Name, Text: answer}, true
	}
	return nil, false
}

// patientFilter maps the query's patient name to the ids of matching visible
// patients. It returns nil when the query has no name filter.
func (r *Resolver) patientFilter(ctx context.Context, q *Query) ([]string, error) {
	if q.Patient == "" {
		return nil, nil
	}
	patients, err := r.events.VisiblePatients(ctx, q.Scope)
	if err != nil {
		return nil, err
	}
	needle := Normalize(q.Patient)
	ids := []string{}
	for _, p := range patients {
		if strings.Contains(Normalize(p.FullName), needle) {
			ids = append(ids, p.PatientID)
		}
	}
	return ids, nil
}
