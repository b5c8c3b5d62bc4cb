package engine

import (
	"context"
	"log/slog"

	"github.com/Sumatoshi-tech/textfang/pkg/memory"
	"github.com/Sumatoshi-tech/textfang/pkg/progress"
)

// DirectGenerator materializes the whole source as a single window. The
// cheapest strategy, and the most fragile: an over-budget window is not
// retried here but surfaced for the orchestrator to escalate.
type DirectGenerator struct {
	machine
}

// NewDirectGenerator builds a direct generator. A nil monitor gets a
// default auto-budget monitor; a nil reporter is a no-op.
func NewDirectGenerator(monitor *memory.Monitor, logger *slog.Logger, reporter progress.Reporter) *DirectGenerator {
	return &DirectGenerator{machine: newMachine(monitor, logger, reporter)}
}

// Name implements Generator.
func (g *DirectGenerator) Name() string { return "direct" }

// Generate implements Generator.
func (g *DirectGenerator) Generate(_ context.Context, src Source, params Params) (*Result, error) {
	pw, err := g.materializeWindow(src, 0, -1, params)
	if err != nil {
		return nil, err
	}

	if pw.rows == 0 {
		return &Result{Pairs: emptyPairs()}, nil
	}

	pairs, err := pw.fold(params.Dictionary)
	if err != nil {
		return nil, err
	}

	return &Result{Pairs: pairs, Chunks: 1}, nil
}
