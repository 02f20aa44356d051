package tools

import (
	"context"
	"encoding/json"

	ports "github.com/ZanzyTHEbar/testloop/testloop/generation/harness/ports"
)

// ReadFileSchema defines the JSON schema for read_file parameters.
const ReadFileSchema = `{
  "type": "object",
  "properties": {
    "file_path": {
      "type": "string",
      "description": "Path to the file, relative to the codebase root"
    }
  },
  "required": ["file_path"]
}`

// WriteFileSchema defines the JSON schema for write_file parameters.
const WriteFileSchema = `{
  "type": "object",
  "properties": {
    "file_path": {
      "type": "string",
      "description": "Path to the file, relative to the codebase root"
    },
    "content": {
      "type": "string",
      "description": "Content to write to the file"
    }
  },
  "required": ["file_path", "content"]
}`

type ReadFileArgs struct {
	FilePath string `json:"file_path"`
}

type WriteFileArgs struct {
	FilePath string `json:"file_path"`
	Content  string `json:"content"`
}

// ReadFileTool reads a file under the working directory.
type ReadFileTool struct {
	sb Sandbox
}

func NewReadFileTool(sb Sandbox) *ReadFileTool { return &ReadFileTool{sb: sb} }

func (t *ReadFileTool) Name() string        { return KindReadFile.String() }
func (t *ReadFileTool) Description() string { return "Read the content of a file from the codebase" }
func (t *ReadFileTool) Schema() []byte      { return []byte(ReadFileSchema) }

func (t *ReadFileTool) Invoke(ctx context.Context, args json.RawMessage) (ports.Result, error) {
	a, err := decode[ReadFileArgs](args)
	if err != nil {
		return nil, err
	}
	return t.sb.ReadFile(a.FilePath), nil
}

// WriteFileTool creates or overwrites a file under the working directory.
type WriteFileTool struct {
	sb Sandbox
}

func NewWriteFileTool(sb Sandbox) *WriteFileTool { return &WriteFileTool{sb: sb} }

func (t *WriteFileTool) Name() string        { return KindWriteFile.String() }
func (t *WriteFileTool) Description() string { return "Write content to a file in the codebase" }
func (t *WriteFileTool) Schema() []byte      { return []byte(WriteFileSchema) }

func (t *WriteFileTool) Invoke(ctx context.Context, args json.RawMessage) (ports.Result, error) {
	a, err := decode[WriteFileArgs](args)
	if err != nil {
		return nil, err
	}
	return t.sb.WriteFile(a.FilePath, a.Content), nil
}

var (
	_ ports.Tool = (*ReadFileTool)(nil)
	_ ports.Tool = (*WriteFileTool)(nil)
)
