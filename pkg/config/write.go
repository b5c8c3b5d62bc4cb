package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// fileMode is the permission for written config files.
const fileMode = 0o644

// yamlConfig mirrors Config with yaml tags for default-file generation.
type yamlConfig struct {
	Memory struct {
		Budget            string  `yaml:"budget"`
		ThresholdMedium   float64 `yaml:"threshold_medium"`
		ThresholdHigh     float64 `yaml:"threshold_high"`
		ThresholdCritical float64 `yaml:"threshold_critical"`
		HistoryCap        int     `yaml:"history_cap"`
		GCThreshold       float64 `yaml:"gc_threshold"`
	} `yaml:"memory"`
	Chunking struct {
		BaseSize int `yaml:"base_size"`
	} `yaml:"chunking"`
	Engine struct {
		MinN     int    `yaml:"min_n"`
		MaxN     int    `yaml:"max_n"`
		TempDir  string `yaml:"temp_dir"`
		Strategy string `yaml:"strategy"`
		Dedup    string `yaml:"dedup"`
	} `yaml:"engine"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`
	Telemetry struct {
		OTLPEndpoint string  `yaml:"otlp_endpoint"`
		OTLPHeaders  string  `yaml:"otlp_headers"`
		OTLPInsecure bool    `yaml:"otlp_insecure"`
		SampleRatio  float64 `yaml:"sample_ratio"`
		Environment  string  `yaml:"environment"`
	} `yaml:"telemetry"`
}

// WriteDefault writes a fully populated default config file to path,
// suitable as a starting point for hand editing.
func WriteDefault(path string) error {
	def := Default()

	var out yamlConfig

	out.Memory.Budget = def.Memory.Budget
	out.Memory.ThresholdMedium = def.Memory.ThresholdMedium
	out.Memory.ThresholdHigh = def.Memory.ThresholdHigh
	out.Memory.ThresholdCritical = def.Memory.ThresholdCritical
	out.Memory.HistoryCap = def.Memory.HistoryCap
	out.Memory.GCThreshold = def.Memory.GCThreshold
	out.Chunking.BaseSize = def.Chunking.BaseSize
	out.Engine.MinN = def.Engine.MinN
	out.Engine.MaxN = def.Engine.MaxN
	out.Engine.TempDir = def.Engine.TempDir
	out.Engine.Strategy = def.Engine.Strategy
	out.Engine.Dedup = def.Engine.Dedup
	out.Logging.Level = def.Logging.Level
	out.Logging.Format = def.Logging.Format
	out.Telemetry.SampleRatio = def.Telemetry.SampleRatio

	data, err := yaml.Marshal(&out)
	if err != nil {
		return fmt.Errorf("marshal default config: %w", err)
	}

	if err := os.WriteFile(path, data, fileMode); err != nil {
		return fmt.Errorf("write default config: %w", err)
	}

	return nil
}
