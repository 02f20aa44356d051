package tools

import (
	"context"
	"encoding/json"

	ports "github.com/ZanzyTHEbar/testloop/testloop/generation/harness/ports"
)

// CheckAPIEndpointSchema defines the JSON schema for check_api_endpoint
// parameters. The method enum matches sandbox.AllowedMethods.
const CheckAPIEndpointSchema = `{
  "type": "object",
  "properties": {
    "url": {
      "type": "string",
      "description": "API endpoint URL"
    },
    "method": {
      "type": "string",
      "description": "HTTP method",
      "enum": ["GET", "POST", "PUT", "DELETE"]
    },
    "payload": {
      "type": "object",
      "description": "Request payload for POST/PUT requests"
    },
    "headers": {
      "type": "object",
      "description": "Request headers",
      "additionalProperties": {"type": "string"}
    }
  },
  "required": ["url", "method"]
}`

type CheckAPIEndpointArgs struct {
	URL     string            `json:"url"`
	Method  string            `json:"method"`
	Payload map[string]any    `json:"payload,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
}

// CheckAPIEndpointTool makes one HTTP request.
type CheckAPIEndpointTool struct {
	sb Sandbox
}

func NewCheckAPIEndpointTool(sb Sandbox) *CheckAPIEndpointTool {
	return &CheckAPIEndpointTool{sb: sb}
}

func (t *CheckAPIEndpointTool) Name() string { return KindCheckAPIEndpoint.String() }

func (t *CheckAPIEndpointTool) Description() string {
	return "Check an API endpoint by making an HTTP request"
}

func (t *CheckAPIEndpointTool) Schema() []byte { return []byte(CheckAPIEndpointSchema) }

func (t *CheckAPIEndpointTool) Invoke(ctx context.Context, args json.RawMessage) (ports.Result, error) {
	a, err := decode[CheckAPIEndpointArgs](args)
	if err != nil {
		return nil, err
	}

	var payload any
	if a.Payload != nil {
		payload = a.Payload
	}
	return t.sb.CheckAPIEndpoint(ctx, a.URL, a.Method, payload, a.Headers), nil
}

var _ ports.Tool = (*CheckAPIEndpointTool)(nil)
