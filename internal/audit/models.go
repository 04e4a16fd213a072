package audit

import (
	"encoding/json"
	"time"
)

// Event is an immutable, append-only record of an authentication or account action.
//
// Invariants:
// - Events are never updated or deleted.
// - Type is required.
// - actor and ip capture are best-effort; do not block critical flows on audit failures.
type Event struct {
	ID   string    `json:"id" db:"id"`
	Type EventType `json:"type" db:"type"`

	// ActorUserID is the authenticated user causing the event, if any.
	ActorUserID string `json:"actor_user_id,omitempty" db:"actor_user_id"`
	ActorRole   string `json:"actor_role,omitempty" db:"actor_role"`

	// SubjectUserID is the account the event is about. Equal to ActorUserID for self-service actions.
	SubjectUserID string `json:"subject_user_id,omitempty" db:"subject_user_id"`

	IPAddress string `json:"ip_address,omitempty" db:"ip_address"`

	Message string `json:"message,omitempty" db:"message"`
	// Metadata is a JSON object, e.g. {"changed":["email","role"]} on user_updated.
	Metadata string `json:"metadata,omitempty" db:"metadata"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EventType string

const (
	EventTypeSignup          EventType = "signup"
	EventTypeLoginSucceeded  EventType = "login_succeeded"
	EventTypeLoginFailed     EventType = "login_failed"
	EventTypeLogout          EventType = "logout"
	EventTypeTokenRefreshed  EventType = "token_refreshed"
	EventTypePasswordChanged EventType = "password_changed"
	EventTypeUserUpdated     EventType = "user_updated"
	EventTypeUserDeleted     EventType = "user_deleted"
)

type changedFields struct {
	Changed []string `json:"changed"`
}

// ChangedFields encodes the names of updated fields as event metadata. No fields yields "".
func ChangedFields(fields []string) string {
	if len(fields) == 0 {
		return ""
	}
	b, err := json.Marshal(changedFields{Changed: fields})
	if err != nil {
		return ""
	}
	return string(b)
}
