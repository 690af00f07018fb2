package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// PatientFixture, DeviceFixture and EventFixture describe development data.
// The production CRUD backend owns these tables; the fixtures only exist for
// local runs (migrate --demo) and tests.
type PatientFixture struct {
	PatientID string
	FirstName string
	LastName  string
}

type DeviceFixture struct {
	DeviceID  string
	Alias     string
	PatientID string
}

type EventFixture struct {
	EventUID   string
	DeviceID   string
	EventType  string
	Status     string
	OccurredAt *time.Time
	CreatedAt  time.Time
}

// AddPatient inserts a patient.
func (s *EventStore) AddPatient(ctx context.Context, p PatientFixture) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO patients (patient_id, first_name, last_name) VALUES ($1, $2, $3)`,
		p.PatientID, p.FirstName, p.LastName)
	return err
}

// AddDevice inserts a device, optionally attached to a patient.
func (s *EventStore) AddDevice(ctx context.Context, d DeviceFixture) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO devices (device_id, alias, patient_id) VALUES ($1, $2, $3)`,
		d.DeviceID, nullString(d.Alias), nullString(d.PatientID))
	return err
}

// GrantAccess gives an account visibility over a device.
func (s *EventStore) GrantAccess(ctx context.Context, accountID, deviceID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO device_access (account_id, device_id) VALUES ($1, $2)`,
		accountID, deviceID)
	return err
}

// AddEvent inserts an event.
func (s *EventStore) AddEvent(ctx context.Context, e EventFixture) error {
	var occurredAt sql.NullTime
	if e.OccurredAt != nil {
		occurredAt = sql.NullTime{Time: e.OccurredAt.UTC(), Valid: true}
	}
	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO events (event_uid, device_id, event_type, status, occurred_at, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		e.EventUID, e.DeviceID, nullString(e.EventType), e.Status, occurredAt, createdAt.UTC())
	return err
}

// SeedDemo loads a small demo data set.
func (s *EventStore) SeedDemo(ctx context.Context, accountID string) error {
	now := time.Now().UTC()
	at := func(d time.Duration) *time.Time {
		t := now.Add(-d)
		return &t
	}

	patients := []PatientFixture{
		{PatientID: "p-carmen", FirstName: "Carmen", LastName: "García"},
		{PatientID: "p-antonio", FirstName: "Antonio", LastName: "Pérez"},
	}
	devices := []DeviceFixture{
		{DeviceID: "ESP32-001", Alias: "Salón (Casa Carmen)", PatientID: "p-carmen"},
		{DeviceID: "ESP32-002", Alias: "Dormitorio (Casa Antonio)", PatientID: "p-antonio"},
	}
	events := []EventFixture{
		{EventUID: "ev-1", DeviceID: "ESP32-001", EventType: "FALL", Status: "OPEN", OccurredAt: at(45 * time.Minute)},
		{EventUID: "ev-2", DeviceID: "ESP32-001", EventType: "EMERGENCY_BUTTON", Status: "CONFIRMED_FALL", OccurredAt: at(2 * time.Hour)},
		{EventUID: "ev-3", DeviceID: "ESP32-002", EventType: "SIMULATED", Status: "FALSE_ALARM", OccurredAt: at(27 * time.Hour)},
		{EventUID: "ev-4", DeviceID: "ESP32-002", EventType: "FALL", Status: "RESOLVED", OccurredAt: at(30 * time.Minute)},
	}

	for _, p := range patients {
		if err := s.AddPatient(ctx, p); err != nil {
			return fmt.Errorf("failed to seed patient %s: %w", p.PatientID, err)
		}
	}
	for _, d := range devices {
		if err := s.AddDevice(ctx, d); err != nil {
			return fmt.Errorf("failed to seed device %s: %w", d.DeviceID, err)
		}
		if accountID != "" {
			if err := s.GrantAccess(ctx, accountID, d.DeviceID); err != nil {
				return fmt.Errorf("failed to grant device %s: %w", d.DeviceID, err)
			}
		}
	}
	for _, e := range events {
		if err := s.AddEvent(ctx, e); err != nil {
			return fmt.Errorf("failed to seed event %s: %w", e.EventUID, err)
		}
	}
	return nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
