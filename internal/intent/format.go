package intent

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/xiaot623/gogo/assistant/internal/domain"
)

// DefaultTimeZone is the zone used to render event timestamps.
const DefaultTimeZone = "Europe/Madrid"

var monthsES = [...]string{"ene", "feb", "mar", "abr", "may", "jun", "jul", "ago", "sept", "oct", "nov", "dic"}

// Formatter renders events as the one-line Spanish summaries shown to users
// and fed to the language model.
type Formatter struct {
	loc *time.Location
}

// NewFormatter loads the named zone. An empty name selects DefaultTimeZone.
func NewFormatter(zone string) (*Formatter, error) {
	if zone == "" {
		zone = DefaultTimeZone
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, fmt.Errorf("invalid time zone %q: %w", zone, err)
	}
	return &Formatter{loc: loc}, nil
}

// Date renders t in the es-ES medium date and time style, e.g.
// "15 ene 2026, 10:30:00".
func (f *Formatter) Date(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "sin fecha"
	}
	lt := t.In(f.loc)
	return fmt.Sprintf("%d %s %d, %d:%02d:%02d",
		lt.Day(), monthsES[lt.Month()-1], lt.Year(), lt.Hour(), lt.Minute(), lt.Second())
}

// TypeLabel returns the human-readable event type.
func TypeLabel(raw string) string {
	v := strings.ToUpper(strings.TrimSpace(raw))
	switch domain.EventType(v) {
	case "":
		return "Sin tipo"
	case domain.EventTypeEmergencyButton:
		return "Boton de emergencia"
	case domain.EventTypeFall:
		return "Caida"
	case domain.EventTypeTilt:
		return "Inclinacion excesiva"
	case domain.EventTypeSimulated:
		return "Simulado"
	}
	return v
}

// StatusLabel returns the human-readable event status.
func StatusLabel(raw string) string {
	v := strings.ToUpper(strings.TrimSpace(raw))
	switch domain.EventStatus(v) {
	case "":
		return "Sin estado"
	case domain.EventStatusOpen:
		return "Abierto"
	case domain.EventStatusConfirmedFall:
		return "Caida confirmada"
	case domain.EventStatusFalseAlarm:
		return "Falsa alarma"
	case domain.EventStatusResolved:
		return "Resuelto"
	}
	return v
}

// EventLine renders "fecha | tipo | estado | paciente | dispositivo".
func (f *Formatter) EventLine(ev domain.EventRecord) string {
	patient := ev.PatientName
	if patient == "" {
		patient = "Sin paciente"
	}
	device := ev.DeviceAlias
	if device == "" {
		device = "Dispositivo sin alias"
	}
	return fmt.Sprintf("%s | %s | %s | %s | %s",
		f.Date(ev.OccurredAt), TypeLabel(ev.EventType), StatusLabel(ev.Status), patient, device)
}

// DeviceCountLine renders "alias (id) - n eventos".
func DeviceCountLine(d domain.DeviceEventCount) string {
	alias := d.DeviceAlias
	if alias == "" {
		alias = "Sin alias"
	}
	id := d.DeviceID
	if id == "" {
		id = "N/A"
	}
	return fmt.Sprintf("%s (%s) - %d eventos", alias, id, d.EventsCount)
}

// ScopeLabel names the visibility scope in user-facing answers.
func ScopeLabel(scope domain.Scope) string {
	if scope.System {
		return "en todo el sistema"
	}
	return "en los dispositivos de tu cuenta"
}
