package harness

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ZanzyTHEbar/testloop/testloop/config"
	"github.com/ZanzyTHEbar/testloop/testloop/generation/harness/adapters"
	ports "github.com/ZanzyTHEbar/testloop/testloop/generation/harness/ports"
	"github.com/rs/zerolog"
)

// Factory creates and wires harness components from configuration.
type Factory struct {
	cfg    *config.Config
	db     *sql.DB // Optional, for conversation store
	logger zerolog.Logger
}

// NewFactory creates a new harness factory.
func NewFactory(cfg *config.Config, db *sql.DB, logger zerolog.Logger) *Factory {
	return &Factory{
		cfg:    cfg,
		db:     db,
		logger: logger,
	}
}

// CreateOrchestrator creates a fully wired HarnessOrchestrator around provider.
func (f *Factory) CreateOrchestrator(provider ports.Provider) (*HarnessOrchestrator, error) {
	if provider == nil {
		return nil, fmt.Errorf("%w: provider is nil", ErrInvalidRequest)
	}

	return NewHarnessOrchestrator(
		provider,
		NewPromptBuilder(),
		f.Store(),
		f.createTracer(),
		f.Options(),
		f.logger,
	).WithTextToolCalls(f.cfg.Harness.ParseTextToolCalls), nil
}

// Options builds provider options from the LLM settings.
func (f *Factory) Options() ports.Options {
	return ports.Options{
		MaxNewTokens: f.cfg.LLM.MaxTokens,
		Temperature:  f.cfg.LLM.Temperature,
		ToolChoice:   f.cfg.LLM.ToolChoice,
	}
}

// MaxIterationsCeiling bounds any requested iteration cap.
func (f *Factory) MaxIterationsCeiling() int {
	return f.cfg.Harness.IterationCeiling()
}

// MaxIterations resolves a requested cap. Zero selects the configured
// default; anything else is clamped to [1, MaxIterationsCeiling()].
func (f *Factory) MaxIterations(requested int) int {
	n := requested
	if n == 0 {
		n = f.cfg.Harness.MaxIterations
	}

	if n < 1 {
		f.logger.Warn().Int("max_iterations", n).Msg("MaxIterations clamped to minimum of 1")
		n = 1
	}
	if ceiling := f.MaxIterationsCeiling(); n > ceiling {
		f.logger.Warn().Int("max_iterations", n).Msgf("MaxIterations clamped to maximum of %d", ceiling)
		n = ceiling
	}
	return n
}

// createTracer creates a tracer adapter from config.
func (f *Factory) createTracer() ports.Tracer {
	switch {
	case f.cfg.Harness.EnableOTel:
		return adapters.NewOTelTracer()
	case f.cfg.Harness.EnableTracing:
		return adapters.NewZerologTracer(f.logger)
	default:
		return &noOpTracer{}
	}
}

// Store returns the configured conversation store, or a no-op store when
// persistence is disabled or no database is attached.
func (f *Factory) Store() ports.ConversationStore {
	if f.db == nil || !f.cfg.Harness.StoreEnabled {
		return &noOpStore{}
	}

	return adapters.NewLibSQLConversationStore(f.db)
}

// noOpTracer implements Tracer interface with no-op behavior.
type noOpTracer struct{}

func (t *noOpTracer) StartSpan(ctx context.Context, name string, attrs map[string]any) (context.Context, func(err error)) {
	return ctx, func(err error) {}
}

func (t *noOpTracer) Event(ctx context.Context, name string, attrs map[string]any) {}

// noOpStore implements ConversationStore interface with no-op behavior.
type noOpStore struct{}

func (s *noOpStore) SaveTurn(ctx context.Context, conversationID string, record ports.TurnRecord) error {
	return nil
}

func (s *noOpStore) LoadContext(ctx context.Context, conversationID string, k int) ([]ports.TurnRecord, error) {
	return nil, nil
}

func (s *noOpStore) AppendToolArtifact(ctx context.Context, conversationID, name string, payload []byte) error {
	return nil
}

// Ensure all no-op types implement their interfaces.
var (
	_ ports.Tracer            = (*noOpTracer)(nil)
	_ ports.ConversationStore = (*noOpStore)(nil)
)
