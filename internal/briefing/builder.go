// Package briefing renders the role-scoped plaintext summary that grounds
// language-model replies.
package briefing

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xiaot623/gogo/assistant/internal/domain"
	"github.com/xiaot623/gogo/assistant/internal/intent"
	"github.com/xiaot623/gogo/assistant/internal/metrics"
	"github.com/xiaot623/gogo/assistant/internal/repository"
)

// Unavailable replaces the briefing when any query fails.
const Unavailable = "No fue posible cargar contexto de dominio para esta consulta."

const (
	topDevicesLimit = 5
	recentLimit     = 8
	noEvents        = "- Sin eventos"
)

// Source is the scoped read model the briefing aggregates.
type Source interface {
	Stats(ctx context.Context, scope domain.Scope) (*domain.EventStats, error)
	TopDevices(ctx context.Context, scope domain.Scope, limit int) ([]domain.DeviceEventCount, error)
	ListEvents(ctx context.Context, q repository.EventQuery) ([]domain.EventRecord, error)
}

// Builder produces briefings.
type Builder struct {
	source  Source
	format  *intent.Formatter
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewBuilder creates a builder. logger and m may be nil.
func NewBuilder(source Source, format *intent.Formatter, logger *zap.Logger, m *metrics.Metrics) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{source: source, format: format, logger: logger, metrics: m}
}

type snapshot struct {
	stats  *domain.EventStats
	top    []domain.DeviceEventCount
	recent []domain.EventRecord
	newest []domain.EventRecord
	oldest []domain.EventRecord
}

// Build returns the briefing for scope. It never fails: data errors degrade
// to Unavailable.
func (b *Builder) Build(ctx context.Context, scope domain.Scope) string {
	snap, err := b.load(ctx, scope)
	if err != nil {
		b.logger.Error("failed to build domain context", zap.Bool("system", scope.System), zap.Error(err))
		if b.metrics != nil {
			b.metrics.BriefingFailures.Inc()
		}
		return Unavailable
	}
	return b.render(scope, snap)
}

func (b *Builder) load(ctx context.Context, scope domain.Scope) (*snapshot, error) {
	snap := &snapshot{}
	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		var err error
		snap.stats, err = b.source.Stats(egCtx, scope)
		return err
	})
	eg.Go(func() error {
		var err error
		snap.top, err = b.source.TopDevices(egCtx, scope, topDevicesLimit)
		return err
	})
	eg.Go(func() error {
		var err error
		snap.recent, err = b.source.ListEvents(egCtx, repository.EventQuery{Scope: scope, Direction: domain.Newest, Limit: recentLimit})
		return err
	})
	eg.Go(func() error {
		var err error
		snap.newest, err = b.source.ListEvents(egCtx, repository.EventQuery{Scope: scope, Direction: domain.Newest, Limit: 1})
		return err
	})
	eg.Go(func() error {
		var err error
		snap.oldest, err = b.source.ListEvents(egCtx, repository.EventQuery{Scope: scope, Direction: domain.Oldest, Limit: 1})
		return err
	})

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	if snap.stats == nil {
		snap.stats = &domain.EventStats{}
	}
	return snap, nil
}

// labels differ between the system-wide and the account-scoped briefing.
type labels struct {
	role, devices, patients, total, open string
	top, ranking, newest, oldest, recent string
}

var systemLabels = labels{
	role:     "ADMIN",
	devices:  "Dispositivos totales",
	patients: "Pacientes totales",
	total:    "Eventos totales",
	open:     "Eventos OPEN",
	top:      "Dispositivo con mas eventos del sistema (acumulado historico)",
	ranking:  "Ranking del sistema de eventos por dispositivo (acumulado historico):",
	newest:   "Evento del sistema mas reciente (occurred_at max)",
	oldest:   "Evento del sistema mas antiguo (occurred_at min)",
	recent:   "Ultimos eventos del sistema (mas recientes primero; item 1 = mas reciente; limite 8):",
}

var accountLabels = labels{
	role:     "MEMBER",
	devices:  "Dispositivos asignados",
	patients: "Pacientes asociados",
	total:    "Eventos totales visibles",
	open:     "Eventos OPEN visibles",
	top:      "Dispositivo con mas eventos visibles (acumulado historico)",
	ranking:  "Ranking visible de eventos por dispositivo (acumulado historico):",
	newest:   "Evento visible mas reciente (occurred_at max)",
	oldest:   "Evento visible mas antiguo (occurred_at min)",
	recent:   "Ultimos eventos visibles (mas recientes primero; item 1 = mas reciente; limite 8):",
}

func (b *Builder) render(scope domain.Scope, snap *snapshot) string {
	l := accountLabels
	if scope.System {
		l = systemLabels
	}

	lines := []string{
		"Rol: " + l.role,
		fmt.Sprintf("%s: %d", l.devices, snap.stats.Devices),
		fmt.Sprintf("%s: %d", l.patients, snap.stats.Patients),
		fmt.Sprintf("%s: %d", l.total, snap.stats.TotalEvents),
		fmt.Sprintf("%s: %d", l.open, snap.stats.OpenEvents),
	}

	top := noEvents
	if len(snap.top) > 0 {
		top = intent.DeviceCountLine(snap.top[0])
	}
	lines = append(lines, l.top+": "+top, l.ranking)
	if len(snap.top) == 0 {
		lines = append(lines, noEvents)
	}
	for i, d := range snap.top {
		lines = append(lines, fmt.Sprintf("%d. %s", i+1, intent.DeviceCountLine(d)))
	}

	lines = append(lines,
		l.newest+": "+b.first(snap.newest),
		l.oldest+": "+b.first(snap.oldest),
		l.recent,
	)
	if len(snap.recent) == 0 {
		lines = append(lines, noEvents)
	}
	for i, ev := range snap.recent {
		lines = append(lines, fmt.Sprintf("%d. %s", i+1, b.format.EventLine(ev)))
	}
	return strings.Join(lines, "\n")
}

func (b *Builder) first(events []domain.EventRecord) string {
	if len(events) == 0 {
		return noEvents
	}
	return b.format.EventLine(events[0])
}
