// Package turn runs one utterance through transcription, reply generation, chunking and
// speech synthesis, streaming the audio segments as they are produced.
package turn

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethanbaker/callsim/pkg/reply"
	"github.com/ethanbaker/callsim/pkg/speech"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	// ErrInvalidRequest is returned before any backend call when a request is malformed
	ErrInvalidRequest = errors.New("invalid turn request")

	// ErrAlreadyStreamed is yielded when a turn's stream is iterated a second time
	ErrAlreadyStreamed = errors.New("turn already streamed")
)

// State is the position of a turn in the pipeline
type State int32

const (
	StateReceived State = iota
	StateTranscribed
	StateGenerated
	StateChunked
	StateStreaming
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateReceived:
		return "received"
	case StateTranscribed:
		return "transcribed"
	case StateGenerated:
		return "generated"
	case StateChunked:
		return "chunked"
	case StateStreaming:
		return "streaming"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Stage names the pipeline step a failure came from
type Stage string

const (
	StageSession       Stage = "session"
	StageTranscription Stage = "transcription"
	StageGeneration    Stage = "generation"
	StageSynthesis     Stage = "synthesis"

	// StageCancelled marks a stream stopped by its context between segments
	StageCancelled Stage = "cancelled"
)

// StageError is a failure of one pipeline stage. Segment is the zero-based segment index for
// synthesis failures and -1 otherwise
type StageError struct {
	Stage   Stage
	Segment int
	Err     error
}

func (e *StageError) Error() string {
	switch {
	case e.Stage == StageCancelled:
		return fmt.Sprintf("turn cancelled: %v", e.Err)
	case e.Segment >= 0:
		return fmt.Sprintf("%s stage, segment %d: %v", e.Stage, e.Segment, e.Err)
	default:
		return fmt.Sprintf("%s stage: %v", e.Stage, e.Err)
	}
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Segment is one synthesized piece of the reply
type Segment struct {
	Index int
	Text  string
	Audio []byte
}

// Turn is a prepared reply waiting to be streamed. Stream may be consumed once; Close must be
// called if the stream is never consumed
type Turn struct {
	ID         uuid.UUID
	SessionID  uuid.UUID
	Mode       reply.Mode
	Transcript string
	Reply      string
	Segments   []string

	ctx         context.Context
	synthesizer speech.Synthesizer
	pacing      time.Duration
	timeout     time.Duration
	log         *logrus.Entry

	state    atomic.Int32
	streamed atomic.Bool
	once     sync.Once
	release  func()
}

// State returns the current pipeline state
func (t *Turn) State() State {
	return State(t.state.Load())
}

func (t *Turn) setState(s State) {
	t.state.Store(int32(s))
}

// Close releases the capture gate held by the turn. It is safe to call more than once
func (t *Turn) Close() {
	t.once.Do(func() {
		if t.release != nil {
			t.release()
		}
	})
}

// Stream synthesizes segments in order, handing each to the consumer before starting the next.
// A synthesis failure on segment k yields a *StageError after segments 0..k-1 and stops. The
// capture gate is released when the sequence ends, whichever way it ends
func (t *Turn) Stream() iter.Seq2[Segment, error] {
	return func(yield func(Segment, error) bool) {
		if !t.streamed.CompareAndSwap(false, true) {
			yield(Segment{}, ErrAlreadyStreamed)
			return
		}
		defer t.Close()

		t.setState(StateStreaming)
		for i, text := range t.Segments {
			if i > 0 && t.pacing > 0 {
				if err := t.wait(t.pacing); err != nil {
					t.fail(-1, err)
					yield(Segment{}, &StageError{Stage: StageCancelled, Segment: -1, Err: err})
					return
				}
			}

			audio, err := t.synthesize(text)
			if err != nil {
				t.fail(i, err)
				yield(Segment{}, &StageError{Stage: StageSynthesis, Segment: i, Err: err})
				return
			}

			if !yield(Segment{Index: i, Text: text, Audio: audio}, nil) {
				t.fail(i, context.Canceled)
				return
			}
		}

		t.setState(StateDone)
		t.log.WithField("segments", len(t.Segments)).Debug("turn streamed")
	}
}

func (t *Turn) synthesize(text string) ([]byte, error) {
	ctx, cancel := withTimeout(t.ctx, t.timeout)
	defer cancel()

	return t.synthesizer.Synthesize(ctx, text)
}

// wait sleeps for d unless the turn is cancelled first
func (t *Turn) wait(d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-t.ctx.Done():
		return t.ctx.Err()
	}
}

func (t *Turn) fail(segment int, err error) {
	t.setState(StateFailed)
	t.log.WithError(err).WithField("segment", segment).Warn("turn stream stopped")
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
