package relay

import "time"

// Turn lifecycle states published while a voice turn runs.
const (
	StateReceived     = "received"
	StateTranscribing = "transcribing"
	StateThinking     = "thinking"
	StateSpeaking     = "speaking"
	StateDone         = "done"
	StateFailed       = "failed"
)

// TurnEvent reports pipeline progress for one turn so connected clients can
// show what the backend is doing while provider calls block.
type TurnEvent struct {
	SessionID string    `json:"sessionId"`
	TurnID    string    `json:"turnId"`
	State     string    `json:"state"`
	Stage     Stage     `json:"stage,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Publisher fans turn events out to subscribers. Implementations must not
// block; a nil publisher disables event publication.
type Publisher interface {
	Publish(event TurnEvent)
}

func (s *Service) publish(sessionID, turnID, state string, stage Stage, detail string) {
	if s.events == nil {
		return
	}
	s.events.Publish(TurnEvent{
		SessionID: sessionID,
		TurnID:    turnID,
		State:     state,
		Stage:     stage,
		Detail:    detail,
		CreatedAt: time.Now().UTC(),
	})
}
