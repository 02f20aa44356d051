// Package generation runs one test-generation request: it prepares the
// working directory, drives the tool-calling loop and turns the run into
// the generated test code plus an execution verdict.
package generation

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/panics"

	"github.com/ZanzyTHEbar/testloop/testloop/config"
	"github.com/ZanzyTHEbar/testloop/testloop/generation/artifact"
	"github.com/ZanzyTHEbar/testloop/testloop/generation/harness"
	ports "github.com/ZanzyTHEbar/testloop/testloop/generation/harness/ports"
	"github.com/ZanzyTHEbar/testloop/testloop/generation/harness/tools"
	"github.com/ZanzyTHEbar/testloop/testloop/generation/verdict"
	"github.com/ZanzyTHEbar/testloop/testloop/sandbox"
)

// ArtifactToolName labels the retained test source in the artifact store.
const ArtifactToolName = "generated_test"

// Request is one test-generation task against a prepared working directory.
type Request struct {
	Task           string
	WorkDir        string
	MaxIterations  int    // 0 uses the configured default
	ConversationID string // generated when empty
}

// Result is the outward contract of a request.
type Result struct {
	GeneratedTestCode string          `json:"generated_test_code"`
	ExecutionResult   verdict.Summary `json:"execution_result"`
}

func failed(format string, args ...any) Result {
	return Result{ExecutionResult: verdict.Summary{TestsPassed: false, Log: fmt.Sprintf(format, args...)}}
}

// Service owns the process-wide collaborators shared by requests. Each
// request builds its own runner, registry, collector and conversation.
type Service struct {
	cfg      *config.Config
	factory  *harness.Factory
	provider ports.Provider
	store    ports.ConversationStore
	matcher  verdict.Matcher
	logger   zerolog.Logger
}

// NewService wires a service around a reasoning engine. db may be nil.
func NewService(cfg *config.Config, provider ports.Provider, db *sql.DB, logger zerolog.Logger) (*Service, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if provider == nil {
		return nil, fmt.Errorf("%w: provider is nil", harness.ErrInvalidRequest)
	}

	factory := harness.NewFactory(cfg, db, logger)
	return &Service{
		cfg:      cfg,
		factory:  factory,
		provider: provider,
		store:    factory.Store(),
		matcher:  verdict.Standard,
		logger:   logger.With().Str("component", "generation").Logger(),
	}, nil
}

// GenerateAndExecute never returns an error: every failure, including a panic,
// becomes a failed verdict whose log explains it.
func (s *Service) GenerateAndExecute(ctx context.Context, req Request) Result {
	var (
		result Result
		pc     panics.Catcher
	)
	pc.Try(func() { result = s.generate(ctx, req) })
	if r := pc.Recovered(); r != nil {
		s.logger.Error().Interface("panic", r.Value).Msg("Request aborted")
		return failed("Error generating/executing tests: %v", r.Value)
	}
	return result
}

func (s *Service) generate(ctx context.Context, req Request) Result {
	if strings.TrimSpace(req.Task) == "" {
		return failed("No task description provided")
	}

	runner, err := sandbox.NewRunner(req.WorkDir, s.cfg.Sandbox, s.logger)
	if err != nil {
		return failed("No working directory available: %v", err)
	}

	if wrote, err := writeConftest(runner.Root(), s.cfg.Sandbox.NoiseDirs); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to create conftest.py")
	} else if wrote {
		s.logger.Debug().Str("root", runner.Root()).Msg("Created conftest.py for test path setup")
	}

	registry, err := tools.NewRegistry(runner)
	if err != nil {
		return failed("Error generating/executing tests: %v", err)
	}

	orchestrator, err := s.factory.CreateOrchestrator(s.provider)
	if err != nil {
		return failed("Error generating/executing tests: %v", err)
	}

	prompt, err := renderPrompt(req.Task, runner.Root(), runner.Interpreter(), sandbox.NewSearchPath(s.cfg.Sandbox.NoiseDirs))
	if err != nil {
		return failed("Error generating/executing tests: %v", err)
	}

	convID := req.ConversationID
	if convID == "" {
		convID = uuid.NewString()
	}

	collector := artifact.NewCollector(runner, s.logger)
	resp, err := orchestrator.Run(ctx, &harness.Request{
		ConversationID: convID,
		System:         SystemPrompt,
		Prompt:         prompt,
		Registry:       registry,
		MaxIterations:  s.factory.MaxIterations(req.MaxIterations),
		Observers:      []ports.Observer{collector},
	})
	if resp == nil {
		return failed("Error generating/executing tests: %v", err)
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("conversation_id", convID).Msg("Run ended early")
	}

	collector.OfferFallback(resp.Fallback)
	summary := verdict.Classify(resp.Log, s.matcher)

	if d := resp.Diagnostic(); d != "" {
		summary.Log += "\n" + d
	}
	if w := collector.Warning(); w != "" {
		summary.Log = w + "\n" + summary.Log
	}

	art := collector.Artifact()
	if art.Code != "" {
		if err := s.store.AppendToolArtifact(ctx, convID, ArtifactToolName, []byte(art.Code)); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to store generated test")
		}
	}

	s.logger.Info().
		Str("conversation_id", convID).
		Str("stop", string(resp.Stop)).
		Bool("tests_passed", summary.TestsPassed).
		Str("artifact_source", string(art.Source)).
		Str("artifact_path", art.Path).
		Msg("Request finished")

	return Result{GeneratedTestCode: art.Code, ExecutionResult: summary}
}
