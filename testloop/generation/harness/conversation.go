package harness

import (
	"slices"

	ports "github.com/ZanzyTHEbar/testloop/testloop/generation/harness/ports"
)

// Conversation is the append-only, causally ordered turn log of one request.
type Conversation struct {
	ID    string
	turns []ports.Turn
}

// NewConversation creates a conversation seeded with the given turns.
func NewConversation(id string, seed ...ports.Turn) *Conversation {
	c := &Conversation{ID: id}
	for _, t := range seed {
		c.Append(t)
	}
	return c
}

// Append adds a turn and returns its sequence number. Slices carried by the
// turn are copied so later changes by the caller cannot reach the log.
func (c *Conversation) Append(t ports.Turn) int {
	switch v := t.(type) {
	case ports.AssistantTurn:
		v.ToolCalls = slices.Clone(v.ToolCalls)
		t = v
	case ports.ToolResultTurn:
		v.Payload = slices.Clone(v.Payload)
		t = v
	}
	c.turns = append(c.turns, t)
	return len(c.turns) - 1
}

// Snapshot returns a copy of the turns in order. The engine receives a
// snapshot, never the live slice.
func (c *Conversation) Snapshot() []ports.Turn {
	return slices.Clone(c.turns)
}

func (c *Conversation) Len() int { return len(c.turns) }

// Last returns the most recent turn.
func (c *Conversation) Last() (ports.Turn, bool) {
	if len(c.turns) == 0 {
		return nil, false
	}
	return c.turns[len(c.turns)-1], true
}
