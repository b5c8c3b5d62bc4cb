// Package config provides configuration loading and validation for the
// textfang engine and CLI.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/viper"

	"github.com/Sumatoshi-tech/textfang/pkg/memory"
	"github.com/Sumatoshi-tech/textfang/pkg/safeconv"
)

// Sentinel validation errors.
var (
	ErrInvalidBudget     = errors.New("invalid memory budget")
	ErrInvalidThresholds = errors.New("pressure thresholds must ascend within (0,1]")
	ErrInvalidBaseSize   = errors.New("base chunk size must be positive")
	ErrInvalidNgramRange = errors.New("ngram range must satisfy 1 <= min_n <= max_n")
	ErrInvalidStrategy   = errors.New("unknown generation strategy")
	ErrInvalidDedup      = errors.New("unknown dedup mode")
	ErrInvalidLogLevel   = errors.New("unknown log level")
	ErrInvalidLogFormat  = errors.New("unknown log format")
)

// Config holds all configuration for a textfang run.
type Config struct {
	Memory    MemoryConfig    `mapstructure:"memory"`
	Chunking  ChunkingConfig  `mapstructure:"chunking"`
	Engine    EngineConfig    `mapstructure:"engine"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// MemoryConfig holds budget and pressure-classification settings.
type MemoryConfig struct {
	// Budget is a human-readable byte count ("2GiB", "512MB"). Empty
	// auto-detects from system memory.
	Budget string `mapstructure:"budget"`

	// Pressure tier thresholds as resident/budget ratios.
	ThresholdMedium   float64 `mapstructure:"threshold_medium"`
	ThresholdHigh     float64 `mapstructure:"threshold_high"`
	ThresholdCritical float64 `mapstructure:"threshold_critical"`

	// HistoryCap bounds the monitor's sample ring.
	HistoryCap int `mapstructure:"history_cap"`

	// GCThreshold is the usage ratio above which GC runs between windows.
	GCThreshold float64 `mapstructure:"gc_threshold"`
}

// ChunkingConfig holds window sizing settings.
type ChunkingConfig struct {
	// BaseSize is the pre-scaling window size in rows.
	BaseSize int `mapstructure:"base_size"`
}

// EngineConfig holds run settings.
type EngineConfig struct {
	MinN int `mapstructure:"min_n"`
	MaxN int `mapstructure:"max_n"`

	// TempDir is the parent for spill and sort directories. Empty means
	// the system default.
	TempDir string `mapstructure:"temp_dir"`

	// Strategy pins the generation strategy: "direct", "chunked",
	// "disk_spill", or "" for automatic selection.
	Strategy string `mapstructure:"strategy"`

	// Dedup pins the dedup mode: "in_memory", "external_sort", or "" for
	// automatic selection.
	Dedup string `mapstructure:"dedup"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// TelemetryConfig holds OpenTelemetry export settings.
type TelemetryConfig struct {
	// OTLPEndpoint is the OTLP gRPC collector address. Empty disables
	// export.
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`

	// OTLPHeaders is a "key=value,key=value" header string.
	OTLPHeaders string `mapstructure:"otlp_headers"`

	OTLPInsecure bool `mapstructure:"otlp_insecure"`

	// SampleRatio is the trace sampling ratio in (0,1]. Zero uses the SDK
	// default.
	SampleRatio float64 `mapstructure:"sample_ratio"`

	// Environment tags exported telemetry ("production", "dev", ...).
	Environment string `mapstructure:"environment"`
}

// Load reads configuration from an optional file and TEXTFANG_* environment
// variables, applying defaults for everything unset.
func Load(configPath string) (*Config, error) {
	viperCfg := viper.New()

	setDefaults(viperCfg)

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName("textfang")
		viperCfg.SetConfigType("yaml")
		viperCfg.AddConfigPath(".")
		viperCfg.AddConfigPath("./config")
		viperCfg.AddConfigPath("/etc/textfang")
	}

	viperCfg.SetEnvPrefix("TEXTFANG")
	viperCfg.AutomaticEnv()
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFoundErr) {
			return nil, fmt.Errorf("failed to read config file: %w", readErr)
		}
	}

	var config Config

	unmarshalErr := viperCfg.Unmarshal(&config)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", unmarshalErr)
	}

	validateErr := validate(&config)
	if validateErr != nil {
		return nil, fmt.Errorf("invalid configuration: %w", validateErr)
	}

	return &config, nil
}

// setDefaults sets default configuration values.
func setDefaults(viperCfg *viper.Viper) {
	// Memory defaults.
	viperCfg.SetDefault("memory.budget", "")
	viperCfg.SetDefault("memory.threshold_medium", memory.DefaultThresholds.Medium)
	viperCfg.SetDefault("memory.threshold_high", memory.DefaultThresholds.High)
	viperCfg.SetDefault("memory.threshold_critical", memory.DefaultThresholds.Critical)
	viperCfg.SetDefault("memory.history_cap", memory.DefaultHistoryCap)
	viperCfg.SetDefault("memory.gc_threshold", memory.DefaultGCThreshold)

	// Chunking defaults.
	viperCfg.SetDefault("chunking.base_size", defaultBaseChunkSize)

	// Engine defaults.
	viperCfg.SetDefault("engine.min_n", defaultMinN)
	viperCfg.SetDefault("engine.max_n", defaultMaxN)
	viperCfg.SetDefault("engine.temp_dir", "")
	viperCfg.SetDefault("engine.strategy", "")
	viperCfg.SetDefault("engine.dedup", "")

	// Logging defaults.
	viperCfg.SetDefault("logging.level", "info")
	viperCfg.SetDefault("logging.format", "text")

	// Telemetry defaults.
	viperCfg.SetDefault("telemetry.otlp_endpoint", "")
	viperCfg.SetDefault("telemetry.otlp_insecure", false)
	viperCfg.SetDefault("telemetry.sample_ratio", 0.0)
	viperCfg.SetDefault("telemetry.environment", "")
}

// validate checks cross-field constraints.
func validate(config *Config) error {
	t := config.Memory
	if t.ThresholdMedium <= 0 || t.ThresholdMedium >= t.ThresholdHigh ||
		t.ThresholdHigh >= t.ThresholdCritical || t.ThresholdCritical > 1 {
		return fmt.Errorf("%w: %.2f/%.2f/%.2f",
			ErrInvalidThresholds, t.ThresholdMedium, t.ThresholdHigh, t.ThresholdCritical)
	}

	if config.Memory.Budget != "" {
		if _, err := humanize.ParseBytes(config.Memory.Budget); err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidBudget, config.Memory.Budget)
		}
	}

	if config.Chunking.BaseSize <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidBaseSize, config.Chunking.BaseSize)
	}

	if config.Engine.MinN < 1 || config.Engine.MaxN < config.Engine.MinN {
		return fmt.Errorf("%w: [%d, %d]", ErrInvalidNgramRange, config.Engine.MinN, config.Engine.MaxN)
	}

	switch config.Engine.Strategy {
	case "", "direct", "chunked", "disk_spill":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidStrategy, config.Engine.Strategy)
	}

	switch config.Engine.Dedup {
	case "", "in_memory", "external_sort":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidDedup, config.Engine.Dedup)
	}

	if _, err := config.Logging.SlogLevel(); err != nil {
		return err
	}

	switch config.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogFormat, config.Logging.Format)
	}

	return nil
}

// BudgetBytes parses the configured budget. Zero means auto-detect.
func (mc MemoryConfig) BudgetBytes() (int64, error) {
	if mc.Budget == "" {
		return 0, nil
	}

	bytes, err := humanize.ParseBytes(mc.Budget)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidBudget, mc.Budget)
	}

	return safeconv.MustUint64ToInt64(bytes), nil
}

// Thresholds converts the configured ratios into monitor thresholds.
func (mc MemoryConfig) Thresholds() memory.Thresholds {
	return memory.Thresholds{
		Medium:   mc.ThresholdMedium,
		High:     mc.ThresholdHigh,
		Critical: mc.ThresholdCritical,
	}
}

// SlogLevel parses the configured log level.
func (lc LoggingConfig) SlogLevel() (slog.Level, error) {
	switch strings.ToLower(lc.Level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("%w: %q", ErrInvalidLogLevel, lc.Level)
	}
}
