package helpers

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/xiaot623/gogo/assistant/internal/repository"
)

// Accounts used by SeedScenario.
const (
	MemberAccount = "acc-member"
	OtherAccount  = "acc-other"
)

// ScenarioBase is the reference instant of SeedScenario events.
var ScenarioBase = time.Date(2026, time.January, 15, 10, 0, 0, 0, time.UTC)

func NewTestEventStore(t *testing.T) *repository.EventStore {
	t.Helper()

	s, err := repository.NewEventStore(repository.DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("failed to create sqlite store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})

	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to migrate sqlite store: %v", err)
	}
	return s
}

func NewTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() {
		_ = rdb.Close()
	})
	return mr, rdb
}

// SeedScenario loads a fixed data set:
//
//	d1 "Salón"      -> Carmen García   (granted to MemberAccount)
//	d2 "Dormitorio" -> Antonio Pérez
//	d3 (no alias)   -> José Núñez
//	d4 "Cocina"     -> no patient      (granted to MemberAccount)
//
// Events: e1 d1 FALL OPEN base-1h, e2 d1 EMERGENCY_BUTTON CONFIRMED_FALL base-2h,
// e3 d2 SIMULATED FALSE_ALARM base-27h, e4 d2 FALL OPEN base-30m,
// e5 d3 TILT OPEN base-48h, e6 d4 FALL RESOLVED with no occurrence time.
func SeedScenario(t *testing.T, s *repository.EventStore) {
	t.Helper()
	ctx := context.Background()
	at := func(d time.Duration) *time.Time {
		ts := ScenarioBase.Add(-d)
		return &ts
	}

	patients := []repository.PatientFixture{
		{PatientID: "p1", FirstName: "Carmen", LastName: "García"},
		{PatientID: "p2", FirstName: "Antonio", LastName: "Pérez"},
		{PatientID: "p3", FirstName: "José", LastName: "Núñez"},
	}
	devices := []repository.DeviceFixture{
		{DeviceID: "d1", Alias: "Salón", PatientID: "p1"},
		{DeviceID: "d2", Alias: "Dormitorio", PatientID: "p2"},
		{DeviceID: "d3", PatientID: "p3"},
		{DeviceID: "d4", Alias: "Cocina"},
	}
	events := []repository.EventFixture{
		{EventUID: "e1", DeviceID: "d1", EventType: "FALL", Status: "OPEN", OccurredAt: at(time.Hour)},
		{EventUID: "e2", DeviceID: "d1", EventType: "EMERGENCY_BUTTON", Status: "CONFIRMED_FALL", OccurredAt: at(2 * time.Hour)},
		{EventUID: "e3", DeviceID: "d2", EventType: "SIMULATED", Status: "FALSE_ALARM", OccurredAt: at(27 * time.Hour)},
		{EventUID: "e4", DeviceID: "d2", EventType: "FALL", Status: "OPEN", OccurredAt: at(30 * time.Minute)},
		{EventUID: "e5", DeviceID: "d3", EventType: "TILT", Status: "OPEN", OccurredAt: at(48 * time.Hour)},
		{EventUID: "e6", DeviceID: "d4", EventType: "FALL", Status: "RESOLVED", CreatedAt: ScenarioBase},
	}

	for _, p := range patients {
		if err := s.AddPatient(ctx, p); err != nil {
			t.Fatalf("AddPatient failed: %v", err)
		}
	}
	for _, d := range devices {
		if err := s.AddDevice(ctx, d); err != nil {
			t.Fatalf("AddDevice failed: %v", err)
		}
	}
	for _, d := range []string{"d1", "d4"} {
		if err := s.GrantAccess(ctx, MemberAccount, d); err != nil {
			t.Fatalf("GrantAccess failed: %v", err)
		}
	}
	for _, e := range events {
		if err := s.AddEvent(ctx, e); err != nil {
			t.Fatalf("AddEvent failed: %v", err)
		}
	}
}
