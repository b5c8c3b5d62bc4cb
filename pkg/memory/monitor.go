// Package memory provides budget-relative memory pressure monitoring:
// process sampling, tier classification, GC triggering, and trend detection.
package memory

import (
	"log/slog"
	"runtime"
	"time"

	"github.com/Sumatoshi-tech/textfang/pkg/safeconv"
)

// Monitor defaults.
const (
	// DefaultHistoryCap bounds the sample ring. Only the newest samples are
	// retained; trend classification needs at most trendWindow of them.
	DefaultHistoryCap = 64

	// DefaultGCThreshold is the usage ratio above which GC is recommended.
	DefaultGCThreshold = 0.7

	// maxGCPasses bounds collection passes per CollectGarbage call.
	maxGCPasses = 3

	// trendWindow is the number of recent samples considered by Trend.
	trendWindow = 5
)

// Trend classifies the recent direction of resident memory usage.
type Trend int

// Trend values.
const (
	TrendInsufficientData Trend = iota
	TrendIncreasing
	TrendDecreasing
	TrendStable
)

// String returns the snake_case trend name.
func (tr Trend) String() string {
	switch tr {
	case TrendInsufficientData:
		return "insufficient_data"
	case TrendIncreasing:
		return "increasing"
	case TrendDecreasing:
		return "decreasing"
	case TrendStable:
		return "stable"
	default:
		return "unknown"
	}
}

// Sample is one memory reading with its derived pressure tier.
type Sample struct {
	Time          time.Time
	ResidentBytes int64
	VirtualBytes  int64
	Tier          PressureTier
}

// GCResult reports the outcome of a CollectGarbage call.
type GCResult struct {
	FreedBytes  int64
	BeforeBytes int64
	AfterBytes  int64
	Passes      int
}

// MonitorConfig configures a Monitor. Zero fields get defaults.
type MonitorConfig struct {
	// Probe supplies memory readings. Defaults to SystemProbe.
	Probe Probe

	// BudgetBytes is the memory budget. When zero, it is auto-detected from
	// system memory via BudgetForSystem.
	BudgetBytes int64

	// Thresholds are the tier cut points. Invalid or zero thresholds fall
	// back to DefaultThresholds.
	Thresholds Thresholds

	// HistoryCap bounds the sample ring. Defaults to DefaultHistoryCap.
	HistoryCap int

	// GCThreshold is the usage ratio at which ShouldCollectGarbage fires
	// when the caller passes no override. Defaults to DefaultGCThreshold.
	GCThreshold float64

	// Logger receives probe-failure warnings. Defaults to slog.Default.
	Logger *slog.Logger
}

// Monitor samples process memory and classifies pressure against a fixed
// budget. Not safe for concurrent use; the engine is single-threaded.
type Monitor struct {
	probe      Probe
	budget     int64
	thresholds Thresholds
	logger     *slog.Logger

	history     []Sample
	historyCap  int
	gcThreshold float64

	peakResident int64
	probeWarned  bool
}

// NewMonitor creates a Monitor from the given config.
func NewMonitor(cfg MonitorConfig) *Monitor {
	probe := cfg.Probe
	if probe == nil {
		probe = SystemProbe{}
	}

	budget := cfg.BudgetBytes
	if budget <= 0 {
		budget = DetectBudget(probe)
	}

	thresholds := cfg.Thresholds
	if !thresholds.Valid() {
		thresholds = DefaultThresholds
	}

	historyCap := cfg.HistoryCap
	if historyCap <= 0 {
		historyCap = DefaultHistoryCap
	}

	gcThreshold := cfg.GCThreshold
	if gcThreshold <= 0 {
		gcThreshold = DefaultGCThreshold
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Monitor{
		probe:       probe,
		budget:      budget,
		thresholds:  thresholds,
		logger:      logger,
		historyCap:  historyCap,
		gcThreshold: gcThreshold,
	}
}

// Budget returns the immutable budget in bytes.
func (m *Monitor) Budget() int64 {
	return m.budget
}

// Sample reads process memory, appends the reading to the bounded history,
// and returns it. A probe failure fails open: a zero reading classified as
// TierLow is recorded so the pipeline never blocks on introspection.
func (m *Monitor) Sample() Sample {
	pm, err := m.probe.ProcessMemory()
	if err != nil {
		if !m.probeWarned {
			m.logger.Warn("memory probe failed, pressure fails open to low", "error", err)

			m.probeWarned = true
		}

		pm = ProcessMemory{}
	}

	s := Sample{
		Time:          time.Now(),
		ResidentBytes: pm.ResidentBytes,
		VirtualBytes:  pm.VirtualBytes,
		Tier:          m.thresholds.Classify(m.ratio(pm.ResidentBytes)),
	}

	if s.ResidentBytes > m.peakResident {
		m.peakResident = s.ResidentBytes
	}

	m.history = append(m.history, s)
	if len(m.history) > m.historyCap {
		m.history = m.history[len(m.history)-m.historyCap:]
	}

	return s
}

// Tier reads current memory and returns its pressure tier without touching
// the history.
func (m *Monitor) Tier() PressureTier {
	pm, err := m.probe.ProcessMemory()
	if err != nil {
		return TierLow
	}

	return m.thresholds.Classify(m.ratio(pm.ResidentBytes))
}

// UsageRatio returns resident / budget for the current reading, or 0 when
// the probe fails.
func (m *Monitor) UsageRatio() float64 {
	pm, err := m.probe.ProcessMemory()
	if err != nil {
		return 0
	}

	return m.ratio(pm.ResidentBytes)
}

// ShouldCollectGarbage reports whether the usage ratio is at or above the
// given threshold. Pass 0 to use the configured threshold.
func (m *Monitor) ShouldCollectGarbage(threshold float64) bool {
	if threshold <= 0 {
		threshold = m.gcThreshold
	}

	return m.UsageRatio() >= threshold
}

// CollectGarbage runs up to three GC passes, stopping early when a pass
// reclaims nothing. It never fails.
func (m *Monitor) CollectGarbage() GCResult {
	before := heapInuseBytes()
	current := before

	result := GCResult{BeforeBytes: before}

	for range maxGCPasses {
		runtime.GC()

		result.Passes++

		after := heapInuseBytes()
		if after >= current {
			current = after

			break
		}

		current = after
	}

	result.AfterBytes = current
	result.FreedBytes = max(before-current, 0)

	return result
}

// Trend classifies resident-memory direction over the last five samples.
// Fewer than five samples yields TrendInsufficientData.
func (m *Monitor) Trend() Trend {
	if len(m.history) < trendWindow {
		return TrendInsufficientData
	}

	window := m.history[len(m.history)-trendWindow:]

	nonDecreasing, nonIncreasing := true, true
	grew, shrank := false, false

	for i := 1; i < len(window); i++ {
		prev, cur := window[i-1].ResidentBytes, window[i].ResidentBytes

		switch {
		case cur > prev:
			nonIncreasing = false
			grew = true
		case cur < prev:
			nonDecreasing = false
			shrank = true
		}
	}

	switch {
	case nonDecreasing && grew:
		return TrendIncreasing
	case nonIncreasing && shrank:
		return TrendDecreasing
	default:
		return TrendStable
	}
}

// History returns a copy of the retained samples, oldest first.
func (m *Monitor) History() []Sample {
	out := make([]Sample, len(m.history))
	copy(out, m.history)

	return out
}

// PeakResident returns the largest resident size observed by Sample.
func (m *Monitor) PeakResident() int64 {
	return m.peakResident
}

func (m *Monitor) ratio(resident int64) float64 {
	if m.budget <= 0 {
		return 0
	}

	return float64(resident) / float64(m.budget)
}

func heapInuseBytes() int64 {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	return safeconv.MustUint64ToInt64(ms.HeapInuse)
}
