package harnessports

import "time"

// Role tags the variant of a Turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Turn is one entry of a conversation. The set of variants is closed:
// SystemTurn, UserTurn, AssistantTurn and ToolResultTurn.
type Turn interface {
	Role() Role
	Message() Message
	isTurn()
}

// Message is the flattened, serializable form of a Turn.
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

type SystemTurn struct{ Text string }

func (SystemTurn) Role() Role         { return RoleSystem }
func (t SystemTurn) Message() Message { return Message{Role: RoleSystem, Content: t.Text} }
func (SystemTurn) isTurn()            {}

type UserTurn struct{ Text string }

func (UserTurn) Role() Role         { return RoleUser }
func (t UserTurn) Message() Message { return Message{Role: RoleUser, Content: t.Text} }
func (UserTurn) isTurn()            {}

// AssistantTurn carries optional text and the tool calls in the order the
// engine returned them.
type AssistantTurn struct {
	Text      string
	ToolCalls []ToolCall
}

func (AssistantTurn) Role() Role { return RoleAssistant }
func (t AssistantTurn) Message() Message {
	return Message{Role: RoleAssistant, Content: t.Text, ToolCalls: t.ToolCalls}
}
func (AssistantTurn) isTurn() {}

// ToolResultTurn answers exactly one ToolCall by id. Payload is the JSON
// encoding of the tool's Result.
type ToolResultTurn struct {
	CallID  string
	Name    string
	Payload []byte
}

func (ToolResultTurn) Role() Role { return RoleTool }
func (t ToolResultTurn) Message() Message {
	return Message{Role: RoleTool, Content: string(t.Payload), ToolCallID: t.CallID}
}
func (ToolResultTurn) isTurn() {}

// TurnRecord is a persisted Turn.
type TurnRecord struct {
	Seq       int       `json:"seq"`
	Message   Message   `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}
