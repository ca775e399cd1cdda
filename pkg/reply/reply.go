package reply

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ethanbaker/callsim/pkg/session"
	"github.com/ethanbaker/callsim/pkg/utils"
	"github.com/sirupsen/logrus"
)

// ErrGeneration is returned when the reply backend fails
var ErrGeneration = errors.New("reply generation failed")

// Mode selects how a reply is produced
type Mode string

const (
	// ModeScripted speaks the utterance back unchanged (welcome and completion announcements)
	ModeScripted Mode = "scripted"

	// ModeInteractive asks the configured backend to answer as the simulated customer
	ModeInteractive Mode = "interactive"
)

// ParseMode converts a wire value to a Mode. An empty value means interactive
func ParseMode(value string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", string(ModeInteractive):
		return ModeInteractive, nil
	case string(ModeScripted), "predefined":
		return ModeScripted, nil
	default:
		return "", fmt.Errorf("unknown mode %q", value)
	}
}

// Request holds everything needed to produce the next reply of a call
type Request struct {
	Utterance string
	History   []*session.ConversationEntry
	Subject   session.Subject
	Mode      Mode
}

// GeneratorOptions configures a Generator
type GeneratorOptions struct {
	// Persona replaces DefaultPersona when set
	Persona string
	Logger  logrus.FieldLogger
}

// Generator produces the simulated customer's replies
type Generator struct {
	backend Backend
	persona string
	log     *logrus.Entry
}

// NewGenerator creates a generator over a single reply backend
func NewGenerator(backend Backend, opts GeneratorOptions) *Generator {
	persona := opts.Persona
	if strings.TrimSpace(persona) == "" {
		persona = DefaultPersona
	}

	return &Generator{
		backend: backend,
		persona: persona,
		log:     utils.Component(opts.Logger, "reply"),
	}
}

// Generate returns the reply text for a request. Interactive utterances containing the exact
// part identifier are answered with the success acknowledgment without calling the backend
func (g *Generator) Generate(ctx context.Context, req Request) (string, error) {
	if req.Mode == ModeScripted {
		return req.Utterance, nil
	}

	if Found(req.Utterance, req.Subject) {
		g.log.WithField("machine", req.Subject.MachineModel).Info("part identified by trainee")
		return SuccessReply(req.Subject), nil
	}

	if g.backend == nil {
		return "", fmt.Errorf("%w: no backend configured", ErrGeneration)
	}

	prompt := BuildPrompt(g.persona, req)
	text, err := g.backend.Complete(ctx, prompt)
	if err != nil {
		g.log.WithError(err).WithField("backend", g.backend.Name()).Error("reply backend failed")
		return "", fmt.Errorf("%w: %s: %w", ErrGeneration, g.backend.Name(), err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		g.log.WithField("backend", g.backend.Name()).Warn("reply backend returned no text, using hint reply")
		return HintReply(req.Utterance, req.Subject), nil
	}

	return text, nil
}

// Found reports whether the utterance contains the subject's part identifier. The match is
// case-sensitive
func Found(utterance string, subject session.Subject) bool {
	return subject.PartID != "" && strings.Contains(utterance, subject.PartID)
}

// SuccessReply is the acknowledgment spoken when the trainee names the right part
func SuccessReply(subject session.Subject) string {
	return fmt.Sprintf("Wow, you found it! That's the correct part number for the %s.", subject.PartDescription)
}

// HintReply is the canned answer used when the model has nothing to say
func HintReply(utterance string, subject session.Subject) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hmm, I'm not sure, but I think this part might be related to the %s.", subject.MachineModel)

	if subject.PartDescription != "" && strings.Contains(utterance, subject.PartDescription) {
		fmt.Fprintf(&b, " You might want to check near the %s, but I can't say for sure.", subject.FirstBreadcrumb())
	} else {
		fmt.Fprintf(&b, " It could be somewhere on the %s, but I'm not entirely sure.", subject.MachineModel)
	}

	return b.String()
}
