package adapters

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/testloop/testloop/config"
	ports "github.com/ZanzyTHEbar/testloop/testloop/generation/harness/ports"
)

const toolCallCompletion = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1,
  "model": "test-model",
  "choices": [{
    "index": 0,
    "message": {
      "role": "assistant",
      "content": "",
      "tool_calls": [{
        "id": "call_1",
        "type": "function",
        "function": {"name": "write_file", "arguments": "{\"file_path\":\"test_app.py\",\"content\":\"x\"}"}
      }]
    },
    "finish_reason": "tool_calls"
  }],
  "usage": {"prompt_tokens": 5, "completion_tokens": 3, "total_tokens": 8}
}`

func newTestProvider(t *testing.T, handler http.HandlerFunc) *OpenAIProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := config.Default().LLM
	cfg.APIKey = "test-key"
	cfg.BaseURL = srv.URL + "/v1"
	cfg.Model = "test-model"

	p, err := NewOpenAIProvider(cfg, zerolog.Nop())
	require.NoError(t, err)
	return p
}

func TestNewOpenAIProvider_RequiresKey(t *testing.T) {
	cfg := config.Default().LLM
	cfg.APIKey = ""

	_, err := NewOpenAIProvider(cfg, zerolog.Nop())
	assert.Error(t, err)
}

func TestOpenAIProvider_CompleteMapsToolCalls(t *testing.T) {
	var got map[string]any
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(toolCallCompletion))
	})

	in := ports.PromptInput{
		Messages: []ports.Turn{
			ports.SystemTurn{Text: "system"},
			ports.UserTurn{Text: "write tests"},
			ports.AssistantTurn{ToolCalls: []ports.ToolCall{{ID: "call_0", Name: "read_file", Args: json.RawMessage(`{"file_path":"app.py"}`)}}},
			ports.ToolResultTurn{CallID: "call_0", Name: "read_file", Payload: []byte(`{"success":true}`)},
		},
		Tools: []ports.ToolSpec{{Name: "write_file", Description: "Write a file", JSONSchema: []byte(`{"type":"object"}`)}},
		Meta:  map[string]string{"iteration": "2"},
	}

	out, err := p.Complete(context.Background(), in, ports.Options{Temperature: 0.3, ToolChoice: "auto"})
	require.NoError(t, err)

	require.Len(t, out.ToolCalls, 1)
	assert.Equal(t, "call_1", out.ToolCalls[0].ID)
	assert.Equal(t, "write_file", out.ToolCalls[0].Name)
	assert.JSONEq(t, `{"file_path":"test_app.py","content":"x"}`, string(out.ToolCalls[0].Args))
	require.NotNil(t, out.Usage)
	assert.Equal(t, 8, out.Usage.TotalTokens)

	assert.Equal(t, "test-model", got["model"])
	assert.Equal(t, "auto", got["tool_choice"])
	msgs, ok := got["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 4)
	toolMsg := msgs[3].(map[string]any)
	assert.Equal(t, "tool", toolMsg["role"])
	assert.Equal(t, "call_0", toolMsg["tool_call_id"])
	tools, ok := got["tools"].([]any)
	require.True(t, ok)
	assert.Len(t, tools, 1)
}

func TestOpenAIProvider_NoChoices(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[]}`))
	})

	_, err := p.Complete(context.Background(), ports.PromptInput{Messages: []ports.Turn{ports.UserTurn{Text: "hi"}}}, ports.Options{})
	assert.ErrorIs(t, err, ErrNoChoices)
}

func TestOpenAIProvider_ServerError(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
	})

	_, err := p.Complete(context.Background(), ports.PromptInput{Messages: []ports.Turn{ports.UserTurn{Text: "hi"}}}, ports.Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat completion failed")
}
