package adapters

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	ports "github.com/ZanzyTHEbar/testloop/testloop/generation/harness/ports"
)

// LibSQLConversationStore implements ConversationStore on the transcript database.
type LibSQLConversationStore struct {
	db *sql.DB
}

// NewLibSQLConversationStore creates a new LibSQL conversation store.
func NewLibSQLConversationStore(db *sql.DB) *LibSQLConversationStore {
	return &LibSQLConversationStore{
		db: db,
	}
}

// SaveTurn appends a conversation turn keyed by its sequence number. History
// is append-only: saving a sequence number twice fails and keeps the first.
func (s *LibSQLConversationStore) SaveTurn(ctx context.Context, conversationID string, record ports.TurnRecord) error {
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}

	turnJSON, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal turn: %w", err)
	}

	query := `
		INSERT INTO conversation_turns (conversation_id, seq, role, turn_data, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err = s.db.ExecContext(ctx, query,
		conversationID,
		record.Seq,
		string(record.Message.Role),
		string(turnJSON),
		record.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to save turn: %w", err)
	}

	return nil
}

// LoadContext loads the last k turns for a conversation, oldest first.
func (s *LibSQLConversationStore) LoadContext(ctx context.Context, conversationID string, k int) ([]ports.TurnRecord, error) {
	query := `
		SELECT turn_data FROM conversation_turns
		WHERE conversation_id = ?
		ORDER BY seq DESC
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, conversationID, k)
	if err != nil {
		return nil, fmt.Errorf("failed to query turns: %w", err)
	}
	defer rows.Close()

	var turns []ports.TurnRecord
	for rows.Next() {
		var turnJSON string
		if err := rows.Scan(&turnJSON); err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}

		var turn ports.TurnRecord
		if err := json.Unmarshal([]byte(turnJSON), &turn); err != nil {
			return nil, fmt.Errorf("failed to unmarshal turn: %w", err)
		}

		turns = append(turns, turn)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating turns: %w", err)
	}

	// Reverse to get chronological order (oldest first)
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}

	return turns, nil
}

// AppendToolArtifact stores the raw result payload of a tool call.
func (s *LibSQLConversationStore) AppendToolArtifact(ctx context.Context, conversationID, name string, payload []byte) error {
	query := `
		INSERT INTO tool_artifacts (conversation_id, name, payload, created_at)
		VALUES (?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query, conversationID, name, payload, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to save tool artifact: %w", err)
	}
	return nil
}

// Ensure LibSQLConversationStore implements the ConversationStore interface.
var _ ports.ConversationStore = (*LibSQLConversationStore)(nil)
