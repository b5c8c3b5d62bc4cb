package config

import "github.com/Sumatoshi-tech/textfang/pkg/memory"

// Engine default values.
const (
	defaultMinN          = 1
	defaultMaxN          = 2
	defaultBaseChunkSize = 100_000
)

// Default returns a fully populated configuration without touching the
// filesystem or environment.
func Default() *Config {
	return &Config{
		Memory: MemoryConfig{
			ThresholdMedium:   memory.DefaultThresholds.Medium,
			ThresholdHigh:     memory.DefaultThresholds.High,
			ThresholdCritical: memory.DefaultThresholds.Critical,
			HistoryCap:        memory.DefaultHistoryCap,
			GCThreshold:       memory.DefaultGCThreshold,
		},
		Chunking: ChunkingConfig{BaseSize: defaultBaseChunkSize},
		Engine: EngineConfig{
			MinN: defaultMinN,
			MaxN: defaultMaxN,
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}
