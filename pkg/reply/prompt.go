package reply

import (
	"fmt"
	"strings"
)

// DefaultPersona casts the model as the customer on the other end of the call
const DefaultPersona = `You are a customer calling a parts counter, looking for a part for your machine. ` +
	`You only have vague knowledge about where the part is located on the machine, and you are NOT allowed ` +
	`to give the part number directly to the user. You can provide vague hints if the user is struggling, ` +
	`but act uncertain and avoid giving specific details unless absolutely necessary. You can give ` +
	`information in small pieces, such as the first breadcrumb level if asked multiple times.`

// Prompt is what a backend receives for one reply
type Prompt struct {
	System    string
	History   []string
	Utterance string
}

// HistoryText joins the prior transcript lines in order
func (p Prompt) HistoryText() string {
	return strings.Join(p.History, "\n")
}

// BuildPrompt assembles the backend prompt for an interactive request. The part identifier
// never appears in it
func BuildPrompt(persona string, req Request) Prompt {
	system := NewPromptBuilder(persona).
		AddFact("Machine model", req.Subject.MachineModel).
		AddFact("Part description", req.Subject.PartDescription).
		AddFact("Part location", req.Subject.Breadcrumb).
		Build()

	history := make([]string, 0, len(req.History))
	for _, entry := range req.History {
		history = append(history, entry.Line())
	}

	return Prompt{
		System:    system,
		History:   history,
		Utterance: req.Utterance,
	}
}

type fact struct {
	key   string
	value string
}

// PromptBuilder helps construct system instructions from a persona and ordered facts
type PromptBuilder struct {
	systemPrompt string
	facts        []fact
}

// NewPromptBuilder creates a new prompt builder with a base system prompt
func NewPromptBuilder(systemPrompt string) *PromptBuilder {
	return &PromptBuilder{systemPrompt: systemPrompt}
}

// AddFact adds a key-value fact to the prompt. Blank values are skipped
func (pb *PromptBuilder) AddFact(key, value string) *PromptBuilder {
	if strings.TrimSpace(value) == "" {
		return pb
	}
	pb.facts = append(pb.facts, fact{key: key, value: value})
	return pb
}

// Build constructs the final prompt, facts in insertion order
func (pb *PromptBuilder) Build() string {
	parts := []string{pb.systemPrompt}

	if len(pb.facts) > 0 {
		parts = append(parts, "\n## What you know:")
		for _, f := range pb.facts {
			parts = append(parts, fmt.Sprintf("- %s: %s", f.key, f.value))
		}
	}

	return strings.Join(parts, "\n")
}
