package domain

import "time"

// Identity is the authenticated caller as decoded from the access token.
type Identity struct {
	AccountID string      `json:"sub"`
	Email     string      `json:"email"`
	Role      AccountRole `json:"role"`
	FullName  string      `json:"fullName"`
}

// Elevated reports whether the identity has system-wide visibility.
func (i Identity) Elevated() bool {
	return i.Role == AccountRoleAdmin
}

// Scope restricts relational reads to what an identity may see.
type Scope struct {
	// System grants visibility over every device.
	System bool
	// AccountID limits reads to devices granted through device_access.
	AccountID string
}

// EventRecord is a denormalized event row used for summaries.
type EventRecord struct {
	DeviceID    string
	DeviceAlias string
	PatientName string
	EventType   string
	Status      string
	OccurredAt  *time.Time
}

// DeviceEventCount is one entry of the per-device historical ranking.
type DeviceEventCount struct {
	DeviceID    string
	DeviceAlias string
	EventsCount int64
}

// EventStats are the historical aggregates visible to a scope.
type EventStats struct {
	Devices     int64
	Patients    int64
	TotalEvents int64
	OpenEvents  int64
}

// PatientRef identifies a patient visible to a scope.
type PatientRef struct {
	PatientID string
	FullName  string
}

// SortDirection orders events by occurrence time.
type SortDirection int

const (
	Newest SortDirection = iota
	Oldest
)
