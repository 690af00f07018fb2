// Package domain defines the core domain models for the assistant.
package domain

// Role is the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	// RoleSystem is only ever sent to providers, never persisted.
	RoleSystem Role = "system"
)

// AccountRole is the role claim carried by an authenticated identity.
type AccountRole string

const (
	AccountRoleAdmin  AccountRole = "ADMIN"
	AccountRoleMember AccountRole = "MEMBER"
)

// EventType is the kind of fall-detection event reported by a device.
type EventType string

const (
	EventTypeEmergencyButton EventType = "EMERGENCY_BUTTON"
	EventTypeFall            EventType = "FALL"
	EventTypeTilt            EventType = "TILT"
	EventTypeSimulated       EventType = "SIMULATED"
)

// EventStatus is the review status of an event.
type EventStatus string

const (
	EventStatusOpen          EventStatus = "OPEN"
	EventStatusConfirmedFall EventStatus = "CONFIRMED_FALL"
	EventStatusFalseAlarm    EventStatus = "FALSE_ALARM"
	EventStatusResolved      EventStatus = "RESOLVED"
)

// Resolver identifiers recorded on assistant messages produced without a language model.
const (
	DeterministicProvider = "deterministic"
	DeterministicModel    = "event-rules"
)
