package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	internal "github.com/ZanzyTHEbar/testloop/testloop"

	"github.com/spf13/viper"
)

// Config stores all configuration of the application.
// The values are read by viper from a config file or environment variables.
// A loaded Config is treated as immutable and handed to constructors by pointer.
type Config struct {
	LLM       LLMConfig       `mapstructure:"llm"`
	Harness   HarnessConfig   `mapstructure:"harness"`
	Sandbox   SandboxConfig   `mapstructure:"sandbox"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// LLMConfig describes the OpenAI-compatible reasoning engine.
type LLMConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	Temperature float32       `mapstructure:"temperature"`
	ToolChoice  string        `mapstructure:"tool_choice"` // "auto" | "none" | "required"
	MaxTokens   int           `mapstructure:"max_tokens"`  // 0 leaves it to the endpoint
	Timeout     time.Duration `mapstructure:"timeout"`     // per engine call
}

// HarnessConfig stores orchestration loop settings.
type HarnessConfig struct {
	MaxIterations        int  `mapstructure:"max_iterations"`         // default cap, overridable per request
	MaxIterationsCeiling int  `mapstructure:"max_iterations_ceiling"` // upper bound for any requested cap
	EnableTracing        bool `mapstructure:"enable_tracing"`         // zerolog span records
	EnableOTel           bool `mapstructure:"enable_otel"`            // OTel spans instead of zerolog spans
	StoreEnabled         bool `mapstructure:"store_enabled"`          // persist transcripts to libsql

	// ParseTextToolCalls lets a JSON array of calls quoted in plain assistant
	// text be dispatched as tool calls. Off, any text-only answer is final.
	ParseTextToolCalls bool `mapstructure:"parse_text_tool_calls"`
}

// IterationCeiling is MaxIterationsCeiling, or the built-in default when it is
// unset or not positive.
func (h HarnessConfig) IterationCeiling() int {
	if h.MaxIterationsCeiling > 0 {
		return h.MaxIterationsCeiling
	}
	return internal.DefaultMaxIterationsCeiling
}

// SandboxConfig controls the command runner.
type SandboxConfig struct {
	Interpreter    string        `mapstructure:"interpreter"` // empty resolves python3/python on PATH
	NodeBinary     string        `mapstructure:"node_binary"`
	Shell          string        `mapstructure:"shell"`
	CodeTimeout    time.Duration `mapstructure:"code_timeout"`
	CommandTimeout time.Duration `mapstructure:"command_timeout"`
	HTTPTimeout    time.Duration `mapstructure:"http_timeout"`
	MaxOutputBytes int64         `mapstructure:"max_output_bytes"`
	NoiseDirs      []string      `mapstructure:"noise_dirs"` // gitignore-style patterns
}

// DatabaseConfig stores the transcript database location.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// TelemetryConfig toggles exporters installed by the CLI.
type TelemetryConfig struct {
	StdoutTrace   bool `mapstructure:"stdout_trace"`
	StdoutMetrics bool `mapstructure:"stdout_metrics"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("..")
		v.AddConfigPath(filepath.Join("/etc", internal.DefaultAppName))
		v.AddConfigPath(internal.DefaultConfigPath)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	setDefaults(v)

	v.SetEnvPrefix(internal.DefaultAppName)
	v.AutomaticEnv()
	// Replace dots with underscores in env var names e.g. llm.base_url becomes TESTLOOP_LLM_BASE_URL
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// The engine credentials also honour the conventional OpenAI variables.
	_ = v.BindEnv("llm.api_key", "TESTLOOP_LLM_API_KEY", "OPENAI_API_KEY")
	_ = v.BindEnv("llm.base_url", "TESTLOOP_LLM_BASE_URL", "OPENAI_BASE_URL")
	_ = v.BindEnv("llm.model", "TESTLOOP_LLM_MODEL", "OPENAI_MODEL")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	return &cfg, nil
}

// Default returns the configuration LoadConfig yields with no file and no environment.
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	// Defaults are static and always decode.
	_ = v.Unmarshal(&cfg)
	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("llm.base_url", internal.DefaultBaseURL)
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", internal.DefaultModel)
	v.SetDefault("llm.temperature", 0.3)
	v.SetDefault("llm.tool_choice", "auto")
	v.SetDefault("llm.max_tokens", 0)
	v.SetDefault("llm.timeout", "120s")

	v.SetDefault("harness.max_iterations", internal.DefaultMaxIterations)
	v.SetDefault("harness.max_iterations_ceiling", internal.DefaultMaxIterationsCeiling)
	v.SetDefault("harness.enable_tracing", true)
	v.SetDefault("harness.enable_otel", false)
	v.SetDefault("harness.store_enabled", false)
	v.SetDefault("harness.parse_text_tool_calls", false)

	v.SetDefault("sandbox.interpreter", "")
	v.SetDefault("sandbox.node_binary", "node")
	v.SetDefault("sandbox.shell", "/bin/sh")
	v.SetDefault("sandbox.code_timeout", "10s")
	v.SetDefault("sandbox.command_timeout", "60s")
	v.SetDefault("sandbox.http_timeout", "10s")
	v.SetDefault("sandbox.max_output_bytes", 1<<20)
	v.SetDefault("sandbox.noise_dirs", []string{".*", "__pycache__", "node_modules", ".git"})

	v.SetDefault("database.path", internal.DefaultDatabasePath)

	v.SetDefault("telemetry.stdout_trace", false)
	v.SetDefault("telemetry.stdout_metrics", false)
}
