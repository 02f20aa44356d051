package harness

import (
	"strings"

	ports "github.com/ZanzyTHEbar/testloop/testloop/generation/harness/ports"
)

// PromptBuilder assembles model-ready inputs from conversation snapshots and tools.
type PromptBuilder struct{}

func NewPromptBuilder() *PromptBuilder { return &PromptBuilder{} }

// Seed returns the opening turns of a conversation. An empty system text
// produces no system turn.
func (b *PromptBuilder) Seed(system, prompt string) []ports.Turn {
	var turns []ports.Turn
	if s := normalize(system); s != "" {
		turns = append(turns, ports.SystemTurn{Text: s})
	}
	return append(turns, ports.UserTurn{Text: normalize(prompt)})
}

// Build wraps a snapshot and the tool declarations into a PromptInput.
func (b *PromptBuilder) Build(snapshot []ports.Turn, toolSpecs []ports.ToolSpec, meta map[string]string) ports.PromptInput {
	return ports.PromptInput{
		Messages: snapshot,
		Tools:    toolSpecs,
		Meta:     meta,
	}
}

// normalize unifies newlines and trims whitespace.
func normalize(s string) string { return strings.TrimSpace(strings.ReplaceAll(s, "\r\n", "\n")) }
