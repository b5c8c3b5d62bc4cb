package progress

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// Progress bar characters.
const (
	barFilled = "█"
	barEmpty  = "░"

	defaultBarWidth = 24
)

// TerminalReporter renders substep progress as single-line bars on a
// writer. Suitable for interactive runs; use a LogReporter (or none) when
// output is captured.
type TerminalReporter struct {
	mu       sync.Mutex
	w        io.Writer
	barWidth int
	steps    map[string]*substep
}

type substep struct {
	label   string
	total   int
	current int
}

// NewTerminalReporter creates a TerminalReporter writing to w.
func NewTerminalReporter(w io.Writer) *TerminalReporter {
	return &TerminalReporter{
		w:        w,
		barWidth: defaultBarWidth,
		steps:    make(map[string]*substep),
	}
}

// AddSubstep implements Reporter.
func (tr *TerminalReporter) AddSubstep(_, id, label string, total int) {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	tr.steps[id] = &substep{label: label, total: total}
}

// StartSubstep implements Reporter.
func (tr *TerminalReporter) StartSubstep(id string) {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	tr.render(id)
}

// UpdateSubstep implements Reporter.
func (tr *TerminalReporter) UpdateSubstep(id string, current int) {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	step, ok := tr.steps[id]
	if !ok {
		return
	}

	step.current = current
	tr.render(id)
}

// CompleteSubstep implements Reporter.
func (tr *TerminalReporter) CompleteSubstep(id string) {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	step, ok := tr.steps[id]
	if !ok {
		return
	}

	step.current = step.total
	tr.render(id)
	fmt.Fprintln(tr.w)
}

// FailSubstep implements Reporter.
func (tr *TerminalReporter) FailSubstep(id, message string) {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	step, ok := tr.steps[id]
	if !ok {
		return
	}

	fmt.Fprintf(tr.w, "\r%s: failed: %s\n", step.label, message)
}

func (tr *TerminalReporter) render(id string) {
	step, ok := tr.steps[id]
	if !ok {
		return
	}

	ratio := 0.0
	if step.total > 0 {
		ratio = float64(step.current) / float64(step.total)
	}

	if ratio > 1 {
		ratio = 1
	}

	filled := int(ratio * float64(tr.barWidth))
	bar := strings.Repeat(barFilled, filled) + strings.Repeat(barEmpty, tr.barWidth-filled)

	fmt.Fprintf(tr.w, "\r%s [%s] %d/%d", step.label, bar, step.current, step.total)
}
