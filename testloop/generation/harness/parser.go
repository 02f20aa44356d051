package harness

import (
	"encoding/json"
	"regexp"
	"strings"

	ports "github.com/ZanzyTHEbar/testloop/testloop/generation/harness/ports"
)

// codeKeywords mark unfenced text that looks like test source.
var codeKeywords = []string{"def ", "function", "describe", "it(", "test"}

// minUnfencedCode is the length unfenced text must exceed to count as code.
const minUnfencedCode = 100

// OutputParser handles extracting structured data from model responses.
type OutputParser struct {
	// start of a JSON array of {"name": ..., "arguments": ...} objects
	toolCallStart *regexp.Regexp
	trailingComma *regexp.Regexp
}

// NewOutputParser creates a parser for text-embedded tool calls.
func NewOutputParser() *OutputParser {
	return &OutputParser{
		toolCallStart: regexp.MustCompile(`\[\s*\{\s*"name"\s*:`),
		trailingComma: regexp.MustCompile(`,\s*([}\]])`),
	}
}

type textToolCall struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ParseToolCalls extracts tool calls a model wrote into its text instead of
// the structured field. Only names accepted by known are returned.
func (p *OutputParser) ParseToolCalls(text string, known func(string) bool) []ports.ToolCall {
	var calls []ports.ToolCall

	for _, loc := range p.toolCallStart.FindAllStringIndex(text, -1) {
		parsed, ok := p.decodeArray(text[loc[0]:])
		if !ok {
			continue
		}

		for _, c := range parsed {
			name := strings.TrimSpace(c.Name)
			if name == "" || (known != nil && !known(name)) {
				continue
			}
			args, ok := normalizeArgs(c.Arguments)
			if !ok {
				continue
			}
			calls = append(calls, ports.ToolCall{Name: name, Args: args})
		}
		if len(calls) > 0 {
			return calls
		}
	}

	return calls
}

// decodeArray reads the first JSON value from text. A failed decode is
// retried once with trailing commas removed.
func (p *OutputParser) decodeArray(text string) ([]textToolCall, bool) {
	var parsed []textToolCall
	if err := json.NewDecoder(strings.NewReader(text)).Decode(&parsed); err == nil {
		return parsed, true
	}

	fixed := p.fixJSON(text)
	if err := json.NewDecoder(strings.NewReader(fixed)).Decode(&parsed); err == nil {
		return parsed, true
	}
	return nil, false
}

// fixJSON removes trailing commas before closing braces/brackets.
func (p *OutputParser) fixJSON(jsonStr string) string {
	return p.trailingComma.ReplaceAllString(jsonStr, "$1")
}

// normalizeArgs accepts an argument object or a string holding one, as
// OpenAI-style payloads encode it.
func normalizeArgs(raw json.RawMessage) (json.RawMessage, bool) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return json.RawMessage(`{}`), true
	}
	if strings.HasPrefix(trimmed, `"`) {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return nil, false
		}
		trimmed = strings.TrimSpace(inner)
	}
	if !strings.HasPrefix(trimmed, "{") || !json.Valid([]byte(trimmed)) {
		return nil, false
	}
	return json.RawMessage(trimmed), true
}

// ExtractCode pulls candidate test source out of a final answer. Fenced
// blocks win; otherwise long text containing a code keyword is returned
// whole. An empty string means nothing looked like code.
func (p *OutputParser) ExtractCode(text string) string {
	if strings.Contains(text, "```") {
		var (
			lines   []string
			inBlock bool
		)
		for _, line := range strings.Split(text, "\n") {
			if strings.HasPrefix(strings.TrimSpace(line), "```") {
				inBlock = !inBlock
				continue
			}
			if inBlock {
				lines = append(lines, line)
			}
		}
		return strings.TrimSpace(strings.Join(lines, "\n"))
	}

	if len(text) > minUnfencedCode {
		for _, kw := range codeKeywords {
			if strings.Contains(text, kw) {
				return text
			}
		}
	}
	return ""
}
