package domain

import "time"

// EventType defines the type of real-time event sent to clients.
type EventType string

const (
	EventAuthenticated    EventType = "authenticated"
	EventAuthError        EventType = "auth_error"
	EventMetricsUpdate    EventType = "metrics_update"
	EventActivityFeed     EventType = "activity_feed"
	EventInventoryAlerts  EventType = "inventory_alerts"
	EventActiveUsers      EventType = "active_users_update"
	EventUserStatusUpdate EventType = "user_status_update"
	EventError            EventType = "error"
	EventPong             EventType = "pong"
)

// Event is the payload delivered over a connection. Events are ephemeral:
// delivery is fire-and-forget, at most once, and nothing is persisted.
type Event struct {
	Type      EventType `json:"type"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewEvent stamps an event with the server time.
func NewEvent(t EventType, data any) Event {
	return Event{Type: t, Data: data, Timestamp: time.Now().UTC()}
}

// AuthenticatedPayload is the data of an "authenticated" event.
type AuthenticatedPayload struct {
	Principal Principal `json:"principal"`
}

// AuthErrorPayload is the data of an "auth_error" event.
type AuthErrorPayload struct {
	Reason string `json:"reason"`
}

// ErrorPayload is the data of an "error" event.
type ErrorPayload struct {
	Message string `json:"message"`
}

// ActivityFeedPayload is the data of an "activity_feed" event.
type ActivityFeedPayload struct {
	Items  []Transaction `json:"items"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

// ActiveUsersPayload reports how many distinct principals are online. The
// count is of principals, not sockets: one user with two tabs counts once.
type ActiveUsersPayload struct {
	Count  int           `json:"count"`
	Roster []RosterEntry `json:"roster,omitempty"`
}

// RosterEntry is one online principal in an active-users broadcast.
type RosterEntry struct {
	PrincipalID string `json:"principalId"`
	DisplayName string `json:"displayName"`
	Role        Role   `json:"role"`
}

// UserStatusPayload is the data of a "user_status_update" event.
type UserStatusPayload struct {
	PrincipalID string         `json:"principalId"`
	Status      PresenceStatus `json:"status"`
}
