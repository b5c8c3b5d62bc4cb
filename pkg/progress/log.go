package progress

import "log/slog"

// LogReporter emits substep progress as structured log entries. The default
// reporter for non-interactive runs.
type LogReporter struct {
	logger *slog.Logger
	totals map[string]int
}

// NewLogReporter creates a LogReporter on the given logger.
func NewLogReporter(logger *slog.Logger) *LogReporter {
	if logger == nil {
		logger = slog.Default()
	}

	return &LogReporter{logger: logger, totals: make(map[string]int)}
}

// AddSubstep implements Reporter.
func (lr *LogReporter) AddSubstep(parent, id, label string, total int) {
	lr.totals[id] = total
	lr.logger.Debug("substep added", "parent", parent, "substep", id, "label", label, "total", total)
}

// StartSubstep implements Reporter.
func (lr *LogReporter) StartSubstep(id string) {
	lr.logger.Info("substep started", "substep", id)
}

// UpdateSubstep implements Reporter.
func (lr *LogReporter) UpdateSubstep(id string, current int) {
	lr.logger.Debug("substep progress", "substep", id, "current", current, "total", lr.totals[id])
}

// CompleteSubstep implements Reporter.
func (lr *LogReporter) CompleteSubstep(id string) {
	lr.logger.Info("substep complete", "substep", id)
}

// FailSubstep implements Reporter.
func (lr *LogReporter) FailSubstep(id, message string) {
	lr.logger.Warn("substep failed", "substep", id, "message", message)
}
