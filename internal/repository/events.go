package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"github.com/xiaot623/gogo/assistant/internal/domain"
)

// Supported database/sql driver names.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"
)

// EventStore reads the fall-detection relational model (devices, patients,
// events and device_access grants). Every query is restricted by a
// domain.Scope in SQL.
type EventStore struct {
	db     *sql.DB
	driver string
}

// EventQuery selects events visible to a scope.
type EventQuery struct {
	Scope     domain.Scope
	Direction domain.SortDirection
	OpenOnly  bool
	// PatientIDs restricts results to the given patients when non-nil.
	// A non-nil empty slice matches nothing.
	PatientIDs []string
	Limit      int
}

// NewEventStore opens the relational store for driver and dsn.
func NewEventStore(driver, dsn string) (*EventStore, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	// Keep a single connection to avoid schema/data disappearing across goroutines.
	if driver == DriverSQLite && (dsn == ":memory:" || strings.Contains(dsn, "mode=memory")) {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}
	if driver == DriverPostgres {
		db.SetMaxOpenConns(10)
		db.SetConnMaxIdleTime(30 * time.Second)
	}
	return &EventStore{db: db, driver: driver}, nil
}

// Close closes the database connection.
func (s *EventStore) Close() error {
	return s.db.Close()
}

// Ping checks database connectivity.
func (s *EventStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Migrate creates the development schema. Production databases are owned by
// the CRUD backend and are never migrated from here.
func (s *EventStore) Migrate(ctx context.Context) error {
	if s.driver != DriverSQLite {
		return fmt.Errorf("migrate is only supported for %s, got %s", DriverSQLite, s.driver)
	}
	if _, err := s.db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	migrations := []string{
		`CREATE TABLE IF NOT EXISTS patients (
			patient_id TEXT PRIMARY KEY,
			first_name TEXT NOT NULL,
			last_name TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS devices (
			device_id TEXT PRIMARY KEY,
			alias TEXT,
			patient_id TEXT,
			FOREIGN KEY (patient_id) REFERENCES patients(patient_id)
		)`,
		`CREATE TABLE IF NOT EXISTS device_access (
			account_id TEXT NOT NULL,
			device_id TEXT NOT NULL,
			access_type TEXT NOT NULL DEFAULT 'VIEWER',
			PRIMARY KEY (account_id, device_id),
			FOREIGN KEY (device_id) REFERENCES devices(device_id)
		)`,
		`CREATE TABLE IF NOT EXISTS events (
			event_uid TEXT PRIMARY KEY,
			device_id TEXT NOT NULL,
			event_type TEXT,
			status TEXT NOT NULL DEFAULT 'OPEN',
			occurred_at DATETIME,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (device_id) REFERENCES devices(device_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_device ON events(device_id, occurred_at)`,
		`CREATE INDEX IF NOT EXISTS idx_events_status ON events(status)`,
	}

	for _, m := range migrations {
		if _, err := s.db.ExecContext(ctx, m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}
	return nil
}

// args accumulates positional parameters as $1, $2, ... which both the
// sqlite3 and pgx drivers accept.
type args []any

func (a *args) add(v any) string {
	*a = append(*a, v)
	return fmt.Sprintf("$%d", len(*a))
}

// scopeFilter returns the join and where fragments restricting events
// aliased as e to the scope.
func scopeFilter(scope domain.Scope, a *args) (join string, where string) {
	if scope.System {
		return "", ""
	}
	return "INNER JOIN device_access da ON da.device_id = e.device_id",
		" AND da.account_id = " + a.add(scope.AccountID)
}

const patientNameExpr = `TRIM(COALESCE(p.first_name, '') || ' ' || COALESCE(p.last_name, ''))`

func (q EventQuery) build(selectClause string, a *args) string {
	join, where := scopeFilter(q.Scope, a)

	var sb strings.Builder
	sb.WriteString(selectClause)
	sb.WriteString(` FROM events e `)
	sb.WriteString(join)
	sb.WriteString(` LEFT JOIN devices d ON d.device_id = e.device_id
		LEFT JOIN patients p ON p.patient_id = d.patient_id
		WHERE 1 = 1`)
	sb.WriteString(where)
	if q.OpenOnly {
		sb.WriteString(" AND e.status = " + a.add(string(domain.EventStatusOpen)))
	}
	if q.PatientIDs != nil {
		placeholders := make([]string, len(q.PatientIDs))
		for i, id := range q.PatientIDs {
			placeholders[i] = a.add(id)
		}
		sb.WriteString(" AND CAST(d.patient_id AS TEXT) IN (" + strings.Join(placeholders, ", ") + ")")
	}
	return sb.String()
}

// ListEvents returns events visible to the query scope ordered by occurrence
// time (nulls last) in the requested direction.
func (s *EventStore) ListEvents(ctx context.Context, q EventQuery) ([]domain.EventRecord, error) {
	if q.PatientIDs != nil && len(q.PatientIDs) == 0 {
		return []domain.EventRecord{}, nil
	}

	var a args
	query := q.build(`SELECT e.device_id, COALESCE(d.alias, ''), `+patientNameExpr+`,
		COALESCE(e.event_type, ''), COALESCE(e.status, ''), e.occurred_at`, &a)

	order := "DESC"
	if q.Direction == domain.Oldest {
		order = "ASC"
	}
	query += fmt.Sprintf(" ORDER BY e.occurred_at %s NULLS LAST, e.created_at %s NULLS LAST", order, order)
	if q.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, a...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []domain.EventRecord{}
	for rows.Next() {
		var ev domain.EventRecord
		var occurredAt sql.NullTime
		if err := rows.Scan(&ev.DeviceID, &ev.DeviceAlias, &ev.PatientName, &ev.EventType, &ev.Status, &occurredAt); err != nil {
			return nil, err
		}
		if occurredAt.Valid {
			t := occurredAt.Time
			ev.OccurredAt = &t
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// CountEvents counts events matching the query, ignoring its limit.
func (s *EventStore) CountEvents(ctx context.Context, q EventQuery) (int64, error) {
	if q.PatientIDs != nil && len(q.PatientIDs) == 0 {
		return 0, nil
	}
	var a args
	query := q.build("SELECT COUNT(*)", &a)

	var count int64
	if err := s.db.QueryRowContext(ctx, query, a...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// VisiblePatients lists the patients attached to devices the scope can see.
func (s *EventStore) VisiblePatients(ctx context.Context, scope domain.Scope) ([]domain.PatientRef, error) {
	var a args
	query := `SELECT CAST(p.patient_id AS TEXT), ` + patientNameExpr + ` FROM patients p`
	if !scope.System {
		query = `SELECT DISTINCT CAST(p.patient_id AS TEXT), ` + patientNameExpr + `
			FROM device_access da
			INNER JOIN devices d ON d.device_id = da.device_id
			INNER JOIN patients p ON p.patient_id = d.patient_id
			WHERE da.account_id = ` + a.add(scope.AccountID)
	}

	rows, err := s.db.QueryContext(ctx, query, a...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var patients []domain.PatientRef
	for rows.Next() {
		var p domain.PatientRef
		if err := rows.Scan(&p.PatientID, &p.FullName); err != nil {
			return nil, err
		}
		patients = append(patients, p)
	}
	return patients, rows.Err()
}

// Stats returns historical aggregates for the scope.
func (s *EventStore) Stats(ctx context.Context, scope domain.Scope) (*domain.EventStats, error) {
	var a args
	query := `SELECT
			(SELECT COUNT(*) FROM devices),
			(SELECT COUNT(*) FROM patients),
			(SELECT COUNT(*) FROM events),
			(SELECT COUNT(*) FROM events WHERE status = 'OPEN')`
	if !scope.System {
		query = `SELECT
				COUNT(DISTINCT da.device_id),
				COUNT(DISTINCT d.patient_id),
				COUNT(e.event_uid),
				COALESCE(SUM(CASE WHEN e.status = 'OPEN' THEN 1 ELSE 0 END), 0)
			FROM device_access da
			LEFT JOIN devices d ON d.device_id = da.device_id
			LEFT JOIN events e ON e.device_id = da.device_id
			WHERE da.account_id = ` + a.add(scope.AccountID)
	}

	var stats domain.EventStats
	err := s.db.QueryRowContext(ctx, query, a...).Scan(&stats.Devices, &stats.Patients, &stats.TotalEvents, &stats.OpenEvents)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// TopDevices ranks visible devices by their total historical event count.
func (s *EventStore) TopDevices(ctx context.Context, scope domain.Scope, limit int) ([]domain.DeviceEventCount, error) {
	var a args
	join, where := scopeFilter(scope, &a)
	query := `SELECT e.device_id, COALESCE(d.alias, e.device_id), COUNT(*) AS events_count
		FROM events e ` + join + `
		LEFT JOIN devices d ON d.device_id = e.device_id
		WHERE 1 = 1` + where + `
		GROUP BY e.device_id, d.alias
		ORDER BY events_count DESC, e.device_id ASC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query, a...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var devices []domain.DeviceEventCount
	for rows.Next() {
		var d domain.DeviceEventCount
		if err := rows.Scan(&d.DeviceID, &d.DeviceAlias, &d.EventsCount); err != nil {
			return nil, err
		}
		devices = append(devices, d)
	}
	return devices, rows.Err()
}
