package chat

import "time"

// Session captures a client-scoped transcript identity. The session key is
// opaque and minted by the client; the backend neither validates nor expires
// it beyond the store's own eviction policy.
type Session struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"createdAt"`
	LastUsedAt time.Time `json:"lastUsedAt"`
}
