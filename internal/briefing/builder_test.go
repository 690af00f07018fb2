package briefing_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/gogo/assistant/internal/briefing"
	"github.com/xiaot623/gogo/assistant/internal/domain"
	"github.com/xiaot623/gogo/assistant/internal/intent"
	"github.com/xiaot623/gogo/assistant/internal/metrics"
	"github.com/xiaot623/gogo/assistant/internal/repository"
	"github.com/xiaot623/gogo/assistant/tests/helpers"
)

func newBuilder(t *testing.T, source briefing.Source, m *metrics.Metrics) *briefing.Builder {
	t.Helper()
	f, err := intent.NewFormatter(intent.DefaultTimeZone)
	require.NoError(t, err)
	return briefing.NewBuilder(source, f, nil, m)
}

func TestBuildSystemBriefing(t *testing.T) {
	s := helpers.NewTestEventStore(t)
	helpers.SeedScenario(t, s)

	got := newBuilder(t, s, nil).Build(context.Background(), domain.Scope{System: true})
	want := strings.Join([]string{
		"Rol: ADMIN",
		"Dispositivos totales: 4",
		"Pacientes totales: 3",
		"Eventos totales: 6",
		"Eventos OPEN: 3",
		"Dispositivo con mas eventos del sistema (acumulado historico): Salón (d1) - 2 eventos",
		"Ranking del sistema de eventos por dispositivo (acumulado historico):",
		"1. Salón (d1) - 2 eventos",
		"2. Dormitorio (d2) - 2 eventos",
		"3. d3 (d3) - 1 eventos",
		"4. Cocina (d4) - 1 eventos",
		"Evento del sistema mas reciente (occurred_at max): 15 ene 2026, 10:30:00 | Caida | Abierto | Antonio Pérez | Dormitorio",
		"Evento del sistema mas antiguo (occurred_at min): 13 ene 2026, 11:00:00 | Inclinacion excesiva | Abierto | José Núñez | Dispositivo sin alias",
		"Ultimos eventos del sistema (mas recientes primero; item 1 = mas reciente; limite 8):",
		"1. 15 ene 2026, 10:30:00 | Caida | Abierto | Antonio Pérez | Dormitorio",
		"2. 15 ene 2026, 10:00:00 | Caida | Abierto | Carmen García | Salón",
		"3. 15 ene 2026, 9:00:00 | Boton de emergencia | Caida confirmada | Carmen García | Salón",
		"4. 14 ene 2026, 8:00:00 | Simulado | Falsa alarma | Antonio Pérez | Dormitorio",
		"5. 13 ene 2026, 11:00:00 | Inclinacion excesiva | Abierto | José Núñez | Dispositivo sin alias",
		"6. sin fecha | Caida | Resuelto | Sin paciente | Cocina",
	}, "\n")

	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("briefing mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildAccountBriefing(t *testing.T) {
	s := helpers.NewTestEventStore(t)
	helpers.SeedScenario(t, s)
	b := newBuilder(t, s, nil)

	got := b.Build(context.Background(), domain.Scope{AccountID: helpers.MemberAccount})
	lines := strings.Split(got, "\n")
	require.Len(t, lines, 15)
	assert.Equal(t, "Rol: MEMBER", lines[0])
	assert.Equal(t, "Dispositivos asignados: 2", lines[1])
	assert.Equal(t, "Pacientes asociados: 1", lines[2])
	assert.Equal(t, "Eventos totales visibles: 3", lines[3])
	assert.Equal(t, "Eventos OPEN visibles: 1", lines[4])
	assert.Equal(t, "Dispositivo con mas eventos visibles (acumulado historico): Salón (d1) - 2 eventos", lines[5])
	assert.NotContains(t, got, "Antonio")

	empty := b.Build(context.Background(), domain.Scope{AccountID: helpers.OtherAccount})
	assert.Equal(t, strings.Join([]string{
		"Rol: MEMBER",
		"Dispositivos asignados: 0",
		"Pacientes asociados: 0",
		"Eventos totales visibles: 0",
		"Eventos OPEN visibles: 0",
		"Dispositivo con mas eventos visibles (acumulado historico): - Sin eventos",
		"Ranking visible de eventos por dispositivo (acumulado historico):",
		"- Sin eventos",
		"Evento visible mas reciente (occurred_at max): - Sin eventos",
		"Evento visible mas antiguo (occurred_at min): - Sin eventos",
		"Ultimos eventos visibles (mas recientes primero; item 1 = mas reciente; limite 8):",
		"- Sin eventos",
	}, "\n"), empty)
}

type brokenSource struct {
	*repository.EventStore
}

func (brokenSource) TopDevices(context.Context, domain.Scope, int) ([]domain.DeviceEventCount, error) {
	return nil, errors.New("relation \"events\" does not exist")
}

func TestBuildDegradesOnFailure(t *testing.T) {
	s := helpers.NewTestEventStore(t)
	m := metrics.NewNop()

	got := newBuilder(t, brokenSource{s}, m).Build(context.Background(), domain.Scope{System: true})
	assert.Equal(t, briefing.Unavailable, got)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.BriefingFailures))
}

func TestSystemPrompt(t *testing.T) {
	ui := briefing.UIContextText(domain.UIContext{
		CurrentPath:     "/events",
		AvailableRoutes: []domain.RouteItem{{Label: "Eventos", Path: "/events"}, {Label: "Dispositivos", Path: "/devices"}},
	})
	assert.Equal(t, "Ruta actual: /events\nRutas disponibles:\n- Eventos: /events\n- Dispositivos: /devices", ui)

	prompt := briefing.SystemPrompt("Rol: ADMIN", domain.AccountRoleAdmin, ui)
	assert.True(t, strings.HasPrefix(prompt, "Eres el asistente virtual"))
	assert.Contains(t, prompt, "El usuario actual tiene rol ADMIN.")
	assert.Contains(t, prompt, "RUTA_SUGERIDA: /ruta")
	assert.Contains(t, prompt, "No deduzcas conteos por dispositivo")
	assert.Contains(t, prompt, "Contexto operativo en tiempo real:\nRol: ADMIN\n")
	assert.True(t, strings.HasSuffix(prompt, "- Dispositivos: /devices"))

	assert.Equal(t, "Ruta actual: /\nRutas disponibles: no informadas por el cliente.", briefing.UIContextText(domain.UIContext{}))
}
