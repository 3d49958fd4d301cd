package chat

import "time"

// Role identifies the author of a turn within a session transcript.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one role-tagged utterance within a session's transcript.
// Turns are append-only and never mutated after being stored.
type Turn struct {
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}
