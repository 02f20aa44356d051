package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/ZanzyTHEbar/testloop/testloop/config"
	"github.com/ZanzyTHEbar/testloop/testloop/db"
	"github.com/ZanzyTHEbar/testloop/testloop/generation"
	"github.com/ZanzyTHEbar/testloop/testloop/generation/harness/adapters"
)

var (
	errTaskRequired     = errors.New("one of --task or --task-file is required")
	errIterationCeiling = errors.New("iteration cap above ceiling")
)

type runOptions struct {
	dir           string
	task          string
	taskFile      string
	maxIterations int
}

func newRunCmd() *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one test-generation request against a directory",
		Long: `Run one test-generation request and print the result as JSON.

The exit status is 0 whether or not the generated tests pass; it is 1 only
when flags or configuration are invalid.

Examples:
  # Inline task
  testloop run --dir ./service --task "Verify the /users endpoints"

  # Task from a file, tighter iteration cap
  testloop run --dir ./service --task-file task.md --max-iterations 5`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.dir, "dir", "", "working directory holding the code tree")
	cmd.Flags().StringVar(&opts.task, "task", "", "task description")
	cmd.Flags().StringVar(&opts.taskFile, "task-file", "", "file containing the task description")
	cmd.Flags().IntVar(&opts.maxIterations, "max-iterations", 0, "engine calls allowed (0 uses harness.max_iterations)")
	cmd.MarkFlagsMutuallyExclusive("task", "task-file")
	_ = cmd.MarkFlagRequired("dir")

	return cmd
}

func runRun(cmd *cobra.Command, opts *runOptions) error {
	task, err := resolveTask(opts.task, opts.taskFile)
	if err != nil {
		return err
	}
	if opts.maxIterations < 0 {
		return fmt.Errorf("--max-iterations must not be negative, got %d", opts.maxIterations)
	}

	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}

	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if ceiling := cfg.Harness.IterationCeiling(); opts.maxIterations > ceiling {
		return fmt.Errorf("%w: --max-iterations %d exceeds harness.max_iterations_ceiling %d", errIterationCeiling, opts.maxIterations, ceiling)
	}

	provider, err := adapters.NewOpenAIProvider(cfg.LLM, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Telemetry.StdoutTrace {
		shutdown, err := installStdoutTracer(cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer shutdown()
	}
	if cfg.Telemetry.StdoutMetrics {
		shutdown, err := installStdoutMeter(cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer shutdown()
	}

	var conn *sql.DB
	if cfg.Harness.StoreEnabled {
		conn, err = db.ConnectToDB(ctx, cfg.Database.Path, logger)
		if err != nil {
			logger.Warn().Err(err).Str("path", cfg.Database.Path).Msg("Transcript store unavailable, continuing without it")
		} else {
			defer conn.Close()
		}
	}

	svc, err := generation.NewService(cfg, provider, conn, logger)
	if err != nil {
		return err
	}

	result := svc.GenerateAndExecute(ctx, generation.Request{
		Task:          task,
		WorkDir:       opts.dir,
		MaxIterations: opts.maxIterations,
	})

	return writeResult(cmd.OutOrStdout(), result)
}

// resolveTask returns the inline task or the contents of taskFile.
func resolveTask(task, taskFile string) (string, error) {
	if taskFile != "" {
		raw, err := os.ReadFile(taskFile)
		if err != nil {
			return "", fmt.Errorf("failed to read task file %s: %w", taskFile, err)
		}
		task = string(raw)
	}
	if strings.TrimSpace(task) == "" {
		return "", errTaskRequired
	}
	return task, nil
}

func newLogger(cmd *cobra.Command) (zerolog.Logger, error) {
	levelName, _ := cmd.Flags().GetString("log-level")
	level, err := zerolog.ParseLevel(levelName)
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("invalid --log-level %q: %w", levelName, err)
	}

	out := zerolog.ConsoleWriter{Out: cmd.ErrOrStderr(), TimeFormat: time.RFC3339}
	return zerolog.New(out).Level(level).With().Timestamp().Logger(), nil
}

// installStdoutTracer exports spans to w so stdout stays reserved for the result.
func installStdoutTracer(w io.Writer) (func(), error) {
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(tp)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tp.Shutdown(ctx)
	}, nil
}

// installStdoutMeter exports the harness instruments to w periodically and
// once more on shutdown.
func installStdoutMeter(w io.Writer) (func(), error) {
	exporter, err := stdoutmetric.New(stdoutmetric.WithWriter(w), stdoutmetric.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout metric exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter)))
	otel.SetMeterProvider(mp)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = mp.Shutdown(ctx)
	}, nil
}

func writeResult(w io.Writer, result generation.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(result)
}
