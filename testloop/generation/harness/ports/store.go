package harnessports

import "context"

// ConversationStore persists conversation turns and tool artifacts.
type ConversationStore interface {
	SaveTurn(ctx context.Context, conversationID string, record TurnRecord) error
	LoadContext(ctx context.Context, conversationID string, k int) ([]TurnRecord, error) // last-k turns
	AppendToolArtifact(ctx context.Context, conversationID, name string, payload []byte) error
}
