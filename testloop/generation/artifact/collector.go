// Package artifact recovers the generated test source from the stream of
// write_file results produced during a run.
package artifact

import (
	"context"
	"encoding/json"

	ports "github.com/ZanzyTHEbar/testloop/testloop/generation/harness/ports"
	"github.com/ZanzyTHEbar/testloop/testloop/generation/harness/tools"
	"github.com/ZanzyTHEbar/testloop/testloop/sandbox"
	"github.com/rs/zerolog"
)

const (
	WarnWritesNotCollected = "Warning: write_file was called but no test code was collected. " +
		"The written files may not have contained test code, or the file paths didn't match test file patterns.\n"
	WarnNothingGenerated = "Warning: No test code was generated or collected. " +
		"The reasoning engine did not save test code with write_file.\n"
)

// Source says where the retained artifact came from.
type Source string

const (
	SourceNone      Source = ""
	SourceWriteFile Source = "write_file"
	SourceFinalText Source = "final_text"
)

// Artifact is the retained test source.
type Artifact struct {
	Code   string
	Path   string
	Source Source
}

// Reader re-reads written files. *sandbox.Runner implements it.
type Reader interface {
	ReadFile(path string) sandbox.ReadResult
}

// Collector observes write_file results and keeps the longest qualifying
// candidate. It belongs to one run and is not safe for concurrent use.
type Collector struct {
	reader   Reader
	logger   zerolog.Logger
	retained Artifact
	fallback string
	writes   int
}

// NewCollector creates a collector reading files back through reader.
func NewCollector(reader Reader, logger zerolog.Logger) *Collector {
	return &Collector{
		reader: reader,
		logger: logger.With().Str("component", "artifact").Logger(),
	}
}

// OnToolResult implements ports.Observer.
func (c *Collector) OnToolResult(ctx context.Context, entry ports.ExecutionLogEntry) {
	if entry.ToolName != tools.KindWriteFile.String() || entry.Result == nil || !entry.Result.Succeeded() {
		return
	}
	c.writes++

	var args tools.WriteFileArgs
	_ = json.Unmarshal(entry.Args, &args)
	path := args.FilePath
	if wr, ok := entry.Result.(sandbox.WriteResult); ok && wr.FilePath != "" {
		path = wr.FilePath
	}

	if !IsTestPath(path) && !LooksLikeTest(args.Content) {
		c.logger.Debug().Str("path", path).Msg("Write is not a test candidate")
		return
	}

	content := args.Content
	if read := c.reader.ReadFile(path); read.Success {
		content = read.Content
	} else {
		c.logger.Warn().Str("path", path).Str("error", read.Error).Msg("Could not re-read candidate, using written content")
	}
	if content == "" {
		return
	}

	if c.retained.Code == "" || len(content) > len(c.retained.Code) {
		c.retained = Artifact{Code: content, Path: path, Source: SourceWriteFile}
		c.logger.Info().Str("path", path).Int("chars", len(content)).Msg("Collected test code")
	}
}

// OfferFallback records code extracted from the final answer. It is used
// only when no written file was retained.
func (c *Collector) OfferFallback(code string) {
	c.fallback = code
}

// Artifact returns the retained candidate, or the fallback.
func (c *Collector) Artifact() Artifact {
	if c.retained.Code != "" {
		return c.retained
	}
	if c.fallback != "" {
		return Artifact{Code: c.fallback, Source: SourceFinalText}
	}
	return Artifact{}
}

// Writes counts successful write_file results observed.
func (c *Collector) Writes() int { return c.writes }

// Warning explains a missing write-based artifact. It is empty when a
// written file was retained.
func (c *Collector) Warning() string {
	switch {
	case c.retained.Code != "":
		return ""
	case c.writes > 0:
		return WarnWritesNotCollected
	case c.fallback == "":
		return WarnNothingGenerated
	default:
		return ""
	}
}

var _ ports.Observer = (*Collector)(nil)
