// Package progress defines the optional progress reporter contract consumed
// by the processing engine. Every reporter call is best-effort: failures are
// logged and swallowed, never propagated into the pipeline.
package progress

// Reporter receives granular sub-progress from engine strategies.
// Implementations may render to a terminal, logs, or anything else; the
// engine behaves identically with no reporter supplied.
type Reporter interface {
	AddSubstep(parent, id, label string, total int)
	StartSubstep(id string)
	UpdateSubstep(id string, current int)
	CompleteSubstep(id string)
	FailSubstep(id, message string)
}

// Nop is a Reporter that does nothing.
type Nop struct{}

// AddSubstep implements Reporter.
func (Nop) AddSubstep(string, string, string, int) {}

// StartSubstep implements Reporter.
func (Nop) StartSubstep(string) {}

// UpdateSubstep implements Reporter.
func (Nop) UpdateSubstep(string, int) {}

// CompleteSubstep implements Reporter.
func (Nop) CompleteSubstep(string) {}

// FailSubstep implements Reporter.
func (Nop) FailSubstep(string, string) {}
