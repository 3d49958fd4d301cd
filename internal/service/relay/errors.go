package relay

import (
	"errors"
	"fmt"
)

// Stage names the pipeline step that failed.
type Stage string

const (
	StageSTT Stage = "stt"
	StageLLM Stage = "llm"
	StageTTS Stage = "tts"
)

// ErrEmptyAudio marks a client-input error: an empty upload short-circuits
// the pipeline before any provider is called.
var ErrEmptyAudio = errors.New("audio payload is empty")

// ErrEmptyText marks a client-input error on the text endpoints.
var ErrEmptyText = errors.New("text is required")

// errNotConfigured is returned when a stage's collaborator was never wired,
// typically because its credentials are missing.
var errNotConfigured = errors.New("provider not configured")

// errEmptyTranscript treats a blank STT result as a stage failure: there is
// nothing to feed the responder.
var errEmptyTranscript = errors.New("provider returned an empty transcript")

// StageError tags a provider failure with the pipeline stage it occurred in.
// The boundary maps every stage to the same user-facing fallback; the tag
// exists for logs and response classification only.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func stageErr(stage Stage, err error) error {
	return &StageError{Stage: stage, Err: err}
}
