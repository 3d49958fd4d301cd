package relay

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/murmurware/voice-relay/backend/internal/model/chat"
	"github.com/murmurware/voice-relay/backend/internal/service/session"
)

// Transcriber converts recorded audio into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// Responder generates a reply from the full ordered history plus the new
// utterance. Replies must be a pure function of those two inputs; the
// orchestrator passes an immutable snapshot and no other state.
type Responder interface {
	Generate(ctx context.Context, history []chat.Turn, utterance string) (string, error)
}

// Synthesizer turns reply text into playable audio and returns a URL path
// the client can fetch.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (string, error)
}

// TurnResult is the success payload of one pipeline run.
type TurnResult struct {
	SessionID  string `json:"sessionId,omitempty"`
	Transcript string `json:"transcript,omitempty"`
	Reply      string `json:"reply,omitempty"`
	AudioFile  string `json:"audio_file,omitempty"`
}

// DefaultProviderTimeout bounds each provider call when no timeout is
// configured.
const DefaultProviderTimeout = 60 * time.Second

// Service drives one user utterance through STT, the history-aware LLM, and
// TTS. Each provider is attempted exactly once per turn; any failure is
// converted into a stage-tagged error for the boundary to map onto the
// uniform fallback.
type Service struct {
	sessions *session.Store
	stt      Transcriber
	llm      Responder
	tts      Synthesizer
	events   Publisher
	timeout  time.Duration
	locks    *sessionLocks
}

// Option configures the relay service.
type Option func(*Service)

// WithPublisher attaches a turn-event publisher.
func WithPublisher(p Publisher) Option {
	return func(s *Service) {
		s.events = p
	}
}

// WithProviderTimeout bounds each provider call.
func WithProviderTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// NewService wires the orchestrator. Any collaborator may be nil when its
// provider is not configured; the matching stage then fails without being
// attempted.
func NewService(sessions *session.Store, stt Transcriber, llm Responder, tts Synthesizer, opts ...Option) *Service {
	s := &Service{
		sessions: sessions,
		stt:      stt,
		llm:      llm,
		tts:      tts,
		timeout:  DefaultProviderTimeout,
		locks:    newSessionLocks(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// VoiceTurn runs the full STT -> LLM -> TTS pipeline for one uploaded clip,
// preserving per-session history across turns.
func (s *Service) VoiceTurn(ctx context.Context, sessionID string, audio []byte) (*TurnResult, error) {
	if len(audio) == 0 {
		return nil, ErrEmptyAudio
	}

	release := s.locks.acquire(sessionID)
	defer release()

	turnID := uuid.NewString()
	s.publish(sessionID, turnID, StateReceived, "", "")

	transcript, err := s.transcribe(ctx, sessionID, turnID, audio)
	if err != nil {
		return nil, err
	}

	// Snapshot the prior transcript before appending the new utterance: the
	// responder receives (full prior history, new utterance) and nothing else.
	history := s.sessions.History(ctx, sessionID)
	s.sessions.Append(ctx, sessionID, chat.RoleUser, transcript)

	reply, err := s.respond(ctx, sessionID, turnID, history, transcript)
	if err != nil {
		return nil, err
	}
	s.sessions.Append(ctx, sessionID, chat.RoleAssistant, reply)

	audioFile, err := s.synthesize(ctx, sessionID, turnID, reply)
	if err != nil {
		return nil, err
	}

	s.publish(sessionID, turnID, StateDone, "", "")
	log.Printf("[relay] voice turn done session=%s turn=%s transcript_len=%d reply_len=%d",
		sessionID, turnID, len(transcript), len(reply))

	return &TurnResult{
		SessionID:  sessionID,
		Transcript: transcript,
		Reply:      reply,
		AudioFile:  audioFile,
	}, nil
}

// EchoTurn transcribes the clip and speaks the transcript back. No LLM call
// and no history involvement.
func (s *Service) EchoTurn(ctx context.Context, sessionID string, audio []byte) (*TurnResult, error) {
	if len(audio) == 0 {
		return nil, ErrEmptyAudio
	}

	release := s.locks.acquire(sessionID)
	defer release()

	turnID := uuid.NewString()
	s.publish(sessionID, turnID, StateReceived, "", "")

	transcript, err := s.transcribe(ctx, sessionID, turnID, audio)
	if err != nil {
		return nil, err
	}

	audioFile, err := s.synthesize(ctx, sessionID, turnID, transcript)
	if err != nil {
		return nil, err
	}

	s.publish(sessionID, turnID, StateDone, "", "")
	return &TurnResult{
		SessionID:  sessionID,
		Transcript: transcript,
		AudioFile:  audioFile,
	}, nil
}

// QueryVoice runs STT -> LLM -> TTS without any session history.
func (s *Service) QueryVoice(ctx context.Context, audio []byte) (*TurnResult, error) {
	if len(audio) == 0 {
		return nil, ErrEmptyAudio
	}

	turnID := uuid.NewString()

	transcript, err := s.transcribe(ctx, "", turnID, audio)
	if err != nil {
		return nil, err
	}

	reply, err := s.respond(ctx, "", turnID, nil, transcript)
	if err != nil {
		return nil, err
	}

	audioFile, err := s.synthesize(ctx, "", turnID, reply)
	if err != nil {
		return nil, err
	}

	return &TurnResult{
		Transcript: transcript,
		Reply:      reply,
		AudioFile:  audioFile,
	}, nil
}

// QueryText generates a reply for a one-off prompt without history.
func (s *Service) QueryText(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyText
	}
	return s.respond(ctx, "", uuid.NewString(), nil, text)
}

// TextTurn generates a history-aware reply for typed input and records both
// sides of the exchange, mirroring a voice turn without the audio stages.
func (s *Service) TextTurn(ctx context.Context, sessionID, text string) (*TurnResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}

	release := s.locks.acquire(sessionID)
	defer release()

	turnID := uuid.NewString()

	history := s.sessions.History(ctx, sessionID)
	s.sessions.Append(ctx, sessionID, chat.RoleUser, text)

	reply, err := s.respond(ctx, sessionID, turnID, history, text)
	if err != nil {
		return nil, err
	}
	s.sessions.Append(ctx, sessionID, chat.RoleAssistant, reply)

	return &TurnResult{SessionID: sessionID, Reply: reply}, nil
}

// ReplyFunc produces a reply from a history snapshot and the new utterance.
// Used by StreamTurn when the caller drives reply generation itself, e.g. to
// stream it out incrementally.
type ReplyFunc func(ctx context.Context, history []chat.Turn, utterance string) (string, error)

// StreamTurn is TextTurn with caller-supplied reply generation: the session
// lock is held and both turns are appended here, while fn streams the reply
// to the client. A concurrent turn on the same session never observes the
// exchange half-appended.
func (s *Service) StreamTurn(ctx context.Context, sessionID, text string, fn ReplyFunc) (*TurnResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}
	if fn == nil {
		return nil, stageErr(StageLLM, errNotConfigured)
	}

	release := s.locks.acquire(sessionID)
	defer release()

	turnID := uuid.NewString()
	s.publish(sessionID, turnID, StateThinking, StageLLM, "")

	history := s.sessions.History(ctx, sessionID)
	s.sessions.Append(ctx, sessionID, chat.RoleUser, text)

	reply, err := fn(ctx, history, text)
	if err != nil {
		return nil, s.fail(sessionID, turnID, StageLLM, err)
	}
	reply = strings.TrimSpace(reply)
	s.sessions.Append(ctx, sessionID, chat.RoleAssistant, reply)

	return &TurnResult{SessionID: sessionID, Reply: reply}, nil
}

// SpeakText synthesizes the exact input text and returns the audio URL.
func (s *Service) SpeakText(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyText
	}
	return s.synthesize(ctx, "", uuid.NewString(), text)
}

func (s *Service) transcribe(ctx context.Context, sessionID, turnID string, audio []byte) (string, error) {
	if s.stt == nil {
		return "", stageErr(StageSTT, errNotConfigured)
	}

	s.publish(sessionID, turnID, StateTranscribing, StageSTT, "")

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	transcript, err := s.stt.Transcribe(callCtx, audio)
	if err != nil {
		return "", s.fail(sessionID, turnID, StageSTT, err)
	}
	if strings.TrimSpace(transcript) == "" {
		return "", s.fail(sessionID, turnID, StageSTT, errEmptyTranscript)
	}
	return transcript, nil
}

func (s *Service) respond(ctx context.Context, sessionID, turnID string, history []chat.Turn, utterance string) (string, error) {
	if s.llm == nil {
		return "", stageErr(StageLLM, errNotConfigured)
	}

	s.publish(sessionID, turnID, StateThinking, StageLLM, "")

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	reply, err := s.llm.Generate(callCtx, history, utterance)
	if err != nil {
		return "", s.fail(sessionID, turnID, StageLLM, err)
	}
	return strings.TrimSpace(reply), nil
}

func (s *Service) synthesize(ctx context.Context, sessionID, turnID, text string) (string, error) {
	if s.tts == nil {
		return "", stageErr(StageTTS, errNotConfigured)
	}

	s.publish(sessionID, turnID, StateSpeaking, StageTTS, "")

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	audioFile, err := s.tts.Synthesize(callCtx, text)
	if err != nil {
		return "", s.fail(sessionID, turnID, StageTTS, err)
	}
	return audioFile, nil
}

func (s *Service) fail(sessionID, turnID string, stage Stage, err error) error {
	log.Printf("[relay] %s failed session=%s turn=%s: %v", stage, sessionID, turnID, err)
	s.publish(sessionID, turnID, StateFailed, stage, err.Error())
	return stageErr(stage, err)
}
