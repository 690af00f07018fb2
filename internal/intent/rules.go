package intent

import (
	"context"
	"fmt"
	"strings"

	"github.com/xiaot623/gogo/assistant/internal/domain"
	"github.com/xiaot623/gogo/assistant/internal/repository"
)

const activeListLimit = 5

var (
	eventTerms    = []string{"evento", "eventos", "event", "events", "alerta", "alertas"}
	activeTerms   = []string{"activo", "activos", "activa", "activas", "abierto", "abiertos", "abierta", "abiertas", "pendiente", "pendientes", "active", "open"}
	latestTerms   = []string{"ultimo", "ultima", "mas reciente", "latest", "last", "most recent", "newest"}
	earliestTerms = []string{"primer", "primero", "primera", "mas antiguo", "mas antigua", "earliest", "first", "oldest"}

	eventSet      = toSet(eventTerms)
	connectorSet  = toSet([]string{"de", "del", "of", "for"})
	leadingFiller = toSet([]string{"el", "la", "los", "las", "the", "a", "paciente", "patient"})

	// keywordSet holds every word the grammar reacts to; a candidate name
	// containing one of them is not a name.
	keywordSet = toSet(append(append(append(append([]string{}, eventTerms...), activeTerms...), splitWords(latestTerms)...), splitWords(earliestTerms)...))

	// temporalTerms trail a question ("de Carmen hoy") and never belong to a name.
	temporalTerms = toSet([]string{
		"hoy", "ayer", "manana", "semana", "dia", "mes", "ano",
		"today", "yesterday", "tomorrow", "week", "day", "month", "year",
	})
	// trailingFiller may precede a temporal term: "de esta semana", "of the day".
	trailingFiller = toSet([]string{"de", "del", "of", "for", "el", "la", "los", "las", "the", "a", "este", "esta", "this", "en", "in"})

	// genericTerms rule out a candidate name when any of its words is one of them.
	genericTerms = toSet([]string{
		"todos", "todas", "todo", "toda", "all", "every",
		"mi", "mis", "my", "nuestros", "nuestras", "our",
		"paciente", "pacientes", "patient", "patients",
		"dispositivo", "dispositivos", "device", "devices",
		"sistema", "system", "cuenta", "account",
		"hoy", "ayer", "manana", "semana", "dia", "mes", "ano",
		"today", "yesterday", "tomorrow", "week", "day", "month", "year",
	})
)

// Query is a tokenized message together with the caller's visibility.
type Query struct {
	Text  Text
	Scope domain.Scope
	// Patient is the name filter as typed by the user, empty when absent.
	Patient string
}

// Rule is one entry of the ordered intent grammar.
type Rule struct {
	Name   string
	Match  func(q *Query) bool
	Answer func(ctx context.Context, r *Resolver, q *Query) (string, error)
}

// DefaultRules returns the grammar in priority order.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name: "active_events",
			Match: func(q *Query) bool {
				return q.Text.hasAny(eventTerms) && q.Text.hasAny(activeTerms)
			},
			Answer: answerActive,
		},
		{
			Name: "latest_event",
			Match: func(q *Query) bool {
				return q.Text.hasAny(eventTerms) && q.Text.hasAny(latestTerms)
			},
			Answer: answerSingle(domain.Newest),
		},
		{
			Name: "earliest_event",
			Match: func(q *Query) bool {
				return q.Text.hasAny(eventTerms) && q.Text.hasAny(earliestTerms) && !q.Text.hasAny(latestTerms)
			},
			Answer: answerSingle(domain.Oldest),
		},
	}
}

func patientSuffix(name string) string {
	if name == "" {
		return ""
	}
	return ` para el paciente "` + name + `"`
}

func answerActive(ctx context.Context, r *Resolver, q *Query) (string, error) {
	base := repository.EventQuery{Scope: q.Scope, OpenOnly: true, Direction: domain.Newest}
	ids, err := r.patientFilter(ctx, q)
	if err != nil {
		return "", err
	}
	base.PatientIDs = ids

	count, err := r.events.CountEvents(ctx, base)
	if err != nil {
		return "", err
	}

	scope := ScopeLabel(q.Scope) + patientSuffix(q.Patient)
	if count == 0 {
		return fmt.Sprintf("No hay eventos activos %s.", scope), nil
	}

	base.Limit = activeListLimit
	events, err := r.events.ListEvents(ctx, base)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Hay %d evento(s) activo(s) %s. Mas recientes:", count, scope)
	for i, ev := range events {
		fmt.Fprintf(&sb, "\n%d. %s", i+1, r.format.EventLine(ev))
	}
	return sb.String(), nil
}

func answerSingle(dir domain.SortDirection) func(ctx context.Context, r *Resolver, q *Query) (string, error) {
	word := "ultimo"
	if dir == domain.Oldest {
		word = "primer"
	}
	return func(ctx context.Context, r *Resolver, q *Query) (string, error) {
		ids, err := r.patientFilter(ctx, q)
		if err != nil {
			return "", err
		}
		events, err := r.events.ListEvents(ctx, repository.EventQuery{
			Scope:      q.Scope,
			Direction:  dir,
			PatientIDs: ids,
			Limit:      1,
		})
		if err != nil {
			return "", err
		}

		scope := ScopeLabel(q.Scope)
		if len(events) == 0 {
			if q.Patient != "" {
				return fmt.Sprintf("No encontre eventos registrados %s%s.", scope, patientSuffix(q.Patient)), nil
			}
			return fmt.Sprintf("No hay eventos registrados %s.", scope), nil
		}
		return fmt.Sprintf("El %s evento registrado %s%s es: %s",
			word, scope, patientSuffix(q.Patient), r.format.EventLine(events[0])), nil
	}
}

// extractPatient returns the name following the first connector after the
// event keyword, as typed by the user.
func extractPatient(t Text) string {
	start := t.indexAny(eventSet)
	if start < 0 {
		return ""
	}
	conn := -1
	for i := start + 1; i < len(t.Folded); i++ {
		if connectorSet[t.Folded[i]] {
			conn = i
			break
		}
	}
	if conn < 0 {
		return ""
	}

	from, to := conn+1, len(t.Folded)
	for from < to && leadingFiller[t.Folded[from]] {
		from++
	}
	for from < to && (temporalTerms[t.Folded[to-1]] || trailingFiller[t.Folded[to-1]]) {
		to--
	}
	if from == to {
		return ""
	}
	for _, tok := range t.Folded[from:to] {
		if keywordSet[tok] || connectorSet[tok] || genericTerms[tok] {
			return ""
		}
	}
	return strings.Join(t.Original[from:to], " ")
}

func toSet(words []string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

func splitWords(terms []string) []string {
	var out []string
	for _, term := range terms {
		for _, w := range strings.Fields(term) {
			if w != "mas" && w != "most" {
				out = append(out, w)
			}
		}
	}
	return out
}
