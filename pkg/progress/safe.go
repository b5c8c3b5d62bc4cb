package progress

import "log/slog"

// Safe wraps a reporter so that panics from any call are recovered and
// logged at warn. A nil reporter yields Nop. The engine only ever talks to
// reporters through this wrapper.
func Safe(r Reporter, logger *slog.Logger) Reporter {
	if r == nil {
		return Nop{}
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &safeReporter{inner: r, logger: logger}
}

type safeReporter struct {
	inner  Reporter
	logger *slog.Logger
}

func (s *safeReporter) guard(call string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Warn("progress reporter failed", "call", call, "panic", r)
		}
	}()

	fn()
}

func (s *safeReporter) AddSubstep(parent, id, label string, total int) {
	s.guard("add_substep", func() { s.inner.AddSubstep(parent, id, label, total) })
}

func (s *safeReporter) StartSubstep(id string) {
	s.guard("start_substep", func() { s.inner.StartSubstep(id) })
}

func (s *safeReporter) UpdateSubstep(id string, current int) {
	s.guard("update_substep", func() { s.inner.UpdateSubstep(id, current) })
}

func (s *safeReporter) CompleteSubstep(id string) {
	s.guard("complete_substep", func() { s.inner.CompleteSubstep(id) })
}

func (s *safeReporter) FailSubstep(id, message string) {
	s.guard("fail_substep", func() { s.inner.FailSubstep(id, message) })
}
