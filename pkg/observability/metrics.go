package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/Sumatoshi-tech/textfang/pkg/engine"
)

const (
	metricRunsTotal        = "textfang.runs.total"
	metricRunDuration      = "textfang.run.duration.seconds"
	metricPairRowsTotal    = "textfang.pair_rows.total"
	metricChunksTotal      = "textfang.chunks.total"
	metricRetriesTotal     = "textfang.window_retries.total"
	metricSpillFilesTotal  = "textfang.spill_files.total"
	metricEscalationsTotal = "textfang.escalations.total"
	metricPeakResident     = "textfang.peak_resident.bytes"

	attrStrategy = "strategy"
	attrDedup    = "dedup"
	attrStatus   = "status"

	statusOK    = "ok"
	statusError = "error"
)

// runDurationBoundaries covers 10ms single-file runs up to multi-minute
// disk-spill runs over large corpora.
var runDurationBoundaries = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600}

// EngineMetrics holds the OTel instruments describing engine runs: how
// often each strategy rung ran, how hard the adaptive machinery worked,
// and what the runs cost.
type EngineMetrics struct {
	runsTotal        metric.Int64Counter
	runDuration      metric.Float64Histogram
	pairRowsTotal    metric.Int64Counter
	chunksTotal      metric.Int64Counter
	retriesTotal     metric.Int64Counter
	spillFilesTotal  metric.Int64Counter
	escalationsTotal metric.Int64Counter
	peakResident     metric.Int64Gauge
}

// NewEngineMetrics creates the engine instruments from the given meter.
func NewEngineMetrics(mt metric.Meter) (*EngineMetrics, error) {
	b := newMetricBuilder(mt)

	em := &EngineMetrics{
		runsTotal:        b.counter(metricRunsTotal, "Total number of engine runs", "{run}"),
		runDuration:      b.histogram(metricRunDuration, "Engine run duration in seconds", "s", runDurationBoundaries...),
		pairRowsTotal:    b.counter(metricPairRowsTotal, "Total n-gram occurrence rows produced", "{row}"),
		chunksTotal:      b.counter(metricChunksTotal, "Total windows processed", "{chunk}"),
		retriesTotal:     b.counter(metricRetriesTotal, "Total shrink-and-retry recoveries", "{retry}"),
		spillFilesTotal:  b.counter(metricSpillFilesTotal, "Total spill files written", "{file}"),
		escalationsTotal: b.counter(metricEscalationsTotal, "Total strategy escalations", "{escalation}"),
		peakResident:     b.gauge(metricPeakResident, "Peak resident memory observed during the last run", "By"),
	}

	if b.err != nil {
		return nil, b.err
	}

	return em, nil
}

// RecordRun records one completed engine run.
func (em *EngineMetrics) RecordRun(ctx context.Context, stats engine.RunStats, duration time.Duration, runErr error) {
	status := statusOK
	if runErr != nil {
		status = statusError
	}

	attrs := metric.WithAttributes(
		attribute.String(attrStrategy, string(stats.Strategy)),
		attribute.String(attrDedup, string(stats.DedupMode)),
		attribute.String(attrStatus, status),
	)

	em.runsTotal.Add(ctx, 1, attrs)
	em.runDuration.Record(ctx, duration.Seconds(), attrs)

	if runErr != nil {
		return
	}

	em.pairRowsTotal.Add(ctx, int64(stats.PairRows), attrs)
	em.chunksTotal.Add(ctx, int64(stats.Chunks), attrs)
	em.retriesTotal.Add(ctx, int64(stats.Retries), attrs)
	em.spillFilesTotal.Add(ctx, int64(stats.SpillFiles), attrs)
	em.escalationsTotal.Add(ctx, int64(stats.Escalations), attrs)
	em.peakResident.Record(ctx, stats.PeakResidentBytes, attrs)
}
