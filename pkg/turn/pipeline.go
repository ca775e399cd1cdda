package turn

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ethanbaker/callsim/pkg/chunker"
	"github.com/ethanbaker/callsim/pkg/reply"
	"github.com/ethanbaker/callsim/pkg/session"
	"github.com/ethanbaker/callsim/pkg/speech"
	"github.com/ethanbaker/callsim/pkg/transcribe"
	"github.com/ethanbaker/callsim/pkg/utils"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Sessions is the part of the session manager a turn needs
type Sessions interface {
	Get(ctx context.Context, sessionID uuid.UUID) (*session.Session, error)
	Transcript(ctx context.Context, sessionID uuid.UUID) ([]*session.ConversationEntry, error)
	Append(ctx context.Context, sessionID uuid.UUID, sender session.Sender, message string) (*session.ConversationEntry, error)
}

// Generator produces reply text
type Generator interface {
	Generate(ctx context.Context, req reply.Request) (string, error)
}

// Request is one captured utterance. Exactly one of Audio and Text is set; interactive turns
// also need the caller's active session
type Request struct {
	Owner     string
	SessionID uuid.UUID
	Mode      reply.Mode
	Audio     []byte
	Text      string
}

// Validate checks the request shape without touching any backend
func (r Request) Validate() error {
	if strings.TrimSpace(r.Owner) == "" {
		return fmt.Errorf("%w: owner is required", ErrInvalidRequest)
	}

	hasAudio := len(r.Audio) > 0
	hasText := strings.TrimSpace(r.Text) != ""
	if hasAudio == hasText {
		return fmt.Errorf("%w: exactly one of audio or text is required", ErrInvalidRequest)
	}

	switch r.Mode {
	case reply.ModeInteractive:
		if r.SessionID == uuid.Nil {
			return fmt.Errorf("%w: session_id is required for interactive turns", ErrInvalidRequest)
		}
	case reply.ModeScripted:
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidRequest, r.Mode)
	}

	return nil
}

// Options tunes a Pipeline
type Options struct {
	// MaxChunkSize bounds each synthesized segment (default chunker.DefaultMaxLength)
	MaxChunkSize int

	// Pacing is the pause between consecutive segments
	Pacing time.Duration

	// Timeout bounds each transcription, generation and synthesis call. Zero means no bound
	Timeout time.Duration

	// Gate defaults to a private CaptureGate
	Gate *CaptureGate

	Logger logrus.FieldLogger
}

// OptionsFromConfig reads MAX_CHUNK_SIZE, SEGMENT_PACING_MS and BACKEND_TIMEOUT_SECONDS
func OptionsFromConfig(cfg *utils.Config) Options {
	return Options{
		MaxChunkSize: cfg.GetIntWithDefault("MAX_CHUNK_SIZE", chunker.DefaultMaxLength),
		Pacing:       cfg.GetDuration("SEGMENT_PACING_MS", time.Millisecond, time.Second),
		Timeout:      cfg.GetDuration("BACKEND_TIMEOUT_SECONDS", time.Second, 30*time.Second),
	}
}

// Pipeline turns utterances into streamed audio replies
type Pipeline struct {
	sessions    Sessions
	transcriber transcribe.Transcriber
	generator   Generator
	synthesizer speech.Synthesizer

	maxChunkSize int
	pacing       time.Duration
	timeout      time.Duration
	gate         *CaptureGate
	log          *logrus.Entry
}

// NewPipeline wires the stages of a turn together
func NewPipeline(sessions Sessions, transcriber transcribe.Transcriber, generator Generator, synthesizer speech.Synthesizer, opts Options) *Pipeline {
	p := &Pipeline{
		sessions:     sessions,
		transcriber:  transcriber,
		generator:    generator,
		synthesizer:  synthesizer,
		maxChunkSize: opts.MaxChunkSize,
		pacing:       opts.Pacing,
		timeout:      opts.Timeout,
		gate:         opts.Gate,
		log:          utils.Component(opts.Logger, "turn"),
	}
	if p.maxChunkSize <= 0 {
		p.maxChunkSize = chunker.DefaultMaxLength
	}
	if p.gate == nil {
		p.gate = NewCaptureGate()
	}
	return p
}

// Prepare runs a turn up to the point where audio can be streamed: session check, capture
// gate, transcription, generation, persistence and chunking. On success the caller owns the
// returned turn and must either consume Stream or call Close
func (p *Pipeline) Prepare(ctx context.Context, req Request) (*Turn, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var subject session.Subject
	if req.Mode == reply.ModeInteractive {
		current, err := p.activeSession(ctx, req.Owner, req.SessionID)
		if err != nil {
			return nil, err
		}
		subject = current.Subject
	}

	turnCtx, release, err := p.gate.Acquire(ctx, req.Owner)
	if err != nil {
		return nil, err
	}

	t := &Turn{
		ID:          uuid.New(),
		SessionID:   req.SessionID,
		Mode:        req.Mode,
		ctx:         turnCtx,
		synthesizer: p.synthesizer,
		pacing:      p.pacing,
		timeout:     p.timeout,
		release:     release,
	}
	t.log = p.log.WithFields(logrus.Fields{
		"turn":  t.ID,
		"owner": req.Owner,
		"mode":  req.Mode,
	})
	t.setState(StateReceived)

	if err := p.run(t, req, subject); err != nil {
		t.setState(StateFailed)
		t.log.WithError(err).Warn("turn failed")
		t.Close()
		return nil, err
	}

	t.log.WithField("segments", len(t.Segments)).Info("turn prepared")
	return t, nil
}

func (p *Pipeline) run(t *Turn, req Request, subject session.Subject) error {
	text, err := p.transcribe(t.ctx, req)
	if err != nil {
		return &StageError{Stage: StageTranscription, Segment: -1, Err: err}
	}
	t.Transcript = text
	t.setState(StateTranscribed)

	replyText, err := p.generate(t.ctx, req, text, subject)
	if err != nil {
		return err
	}
	t.Reply = replyText
	t.setState(StateGenerated)

	t.Segments = chunker.Chunk(replyText, p.maxChunkSize)
	t.setState(StateChunked)
	return nil
}

func (p *Pipeline) transcribe(ctx context.Context, req Request) (string, error) {
	if len(req.Audio) == 0 {
		return strings.TrimSpace(req.Text), nil
	}
	if p.transcriber == nil {
		return "", fmt.Errorf("%w: no transcriber configured", transcribe.ErrTranscription)
	}

	ctx, cancel := withTimeout(ctx, p.timeout)
	defer cancel()
	return p.transcriber.Transcribe(ctx, req.Audio)
}

// generate produces the reply. Interactive turns read the transcript first, then record the
// utterance, then record the reply once it exists
func (p *Pipeline) generate(ctx context.Context, req Request, utterance string, subject session.Subject) (string, error) {
	if req.Mode == reply.ModeScripted {
		text, err := p.generator.Generate(ctx, reply.Request{Utterance: utterance, Mode: reply.ModeScripted})
		if err != nil {
			return "", &StageError{Stage: StageGeneration, Segment: -1, Err: err}
		}
		return text, nil
	}

	history, err := p.sessions.Transcript(ctx, req.SessionID)
	if err != nil {
		return "", &StageError{Stage: StageSession, Segment: -1, Err: err}
	}
	if _, err := p.sessions.Append(ctx, req.SessionID, session.SenderUser, utterance); err != nil {
		return "", &StageError{Stage: StageSession, Segment: -1, Err: err}
	}

	genCtx, cancel := withTimeout(ctx, p.timeout)
	defer cancel()

	text, err := p.generator.Generate(genCtx, reply.Request{
		Utterance: utterance,
		History:   history,
		Subject:   subject,
		Mode:      reply.ModeInteractive,
	})
	if err != nil {
		return "", &StageError{Stage: StageGeneration, Segment: -1, Err: err}
	}

	if _, err := p.sessions.Append(ctx, req.SessionID, session.SenderAI, text); err != nil {
		return "", &StageError{Stage: StageSession, Segment: -1, Err: err}
	}
	return text, nil
}

// activeSession loads the session for an interactive turn. Sessions of other owners are
// reported as not found
func (p *Pipeline) activeSession(ctx context.Context, owner string, sessionID uuid.UUID) (*session.Session, error) {
	current, err := p.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if current.OwnerID != owner {
		return nil, session.ErrNotFound
	}
	if !current.Active() {
		return nil, fmt.Errorf("%w: session %s is %s", session.ErrInvalidState, sessionID, current.Status)
	}
	return current, nil
}
