// Package commands implements CLI command handlers for textfang.
package commands

import (
	"fmt"

	"github.com/Sumatoshi-tech/textfang/pkg/config"
	"github.com/Sumatoshi-tech/textfang/pkg/engine"
	"github.com/Sumatoshi-tech/textfang/pkg/memory"
	"github.com/Sumatoshi-tech/textfang/pkg/observability"
	"github.com/Sumatoshi-tech/textfang/pkg/progress"
	"github.com/Sumatoshi-tech/textfang/pkg/version"
)

// initObservability builds providers from the loaded configuration.
func initObservability(cfg *config.Config) (observability.Providers, error) {
	level, err := cfg.Logging.SlogLevel()
	if err != nil {
		return observability.Providers{}, err
	}

	obsCfg := observability.DefaultConfig()
	obsCfg.ServiceVersion = version.Version
	obsCfg.Environment = cfg.Telemetry.Environment
	obsCfg.OTLPEndpoint = cfg.Telemetry.OTLPEndpoint
	obsCfg.OTLPHeaders = observability.ParseOTLPHeaders(cfg.Telemetry.OTLPHeaders)
	obsCfg.OTLPInsecure = cfg.Telemetry.OTLPInsecure
	obsCfg.SampleRatio = cfg.Telemetry.SampleRatio
	obsCfg.LogLevel = level
	obsCfg.LogJSON = cfg.Logging.Format == "json"

	providers, err := observability.Init(obsCfg)
	if err != nil {
		return observability.Providers{}, fmt.Errorf("init observability: %w", err)
	}

	return providers, nil
}

// buildEngine assembles a monitor and orchestrator from the configuration.
func buildEngine(cfg *config.Config, providers observability.Providers, reporter progress.Reporter) (*engine.Engine, error) {
	budget, err := cfg.Memory.BudgetBytes()
	if err != nil {
		return nil, err
	}

	monitor := memory.NewMonitor(memory.MonitorConfig{
		BudgetBytes: budget,
		Thresholds:  cfg.Memory.Thresholds(),
		HistoryCap:  cfg.Memory.HistoryCap,
		GCThreshold: cfg.Memory.GCThreshold,
		Logger:      providers.Logger,
	})

	return engine.NewEngine(engine.EngineConfig{
		Monitor:  monitor,
		Logger:   providers.Logger,
		Reporter: reporter,
		TempDir:  cfg.Engine.TempDir,
	}), nil
}
