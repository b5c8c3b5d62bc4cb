package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Sumatoshi-tech/textfang/pkg/memory"
	"github.com/Sumatoshi-tech/textfang/pkg/progress"
	"github.com/Sumatoshi-tech/textfang/pkg/table"
)

// substep identifiers reported by the strategies.
const (
	substepParent    = "ngrams"
	substepChunked   = "ngram-chunked"
	substepDiskSpill = "ngram-disk-spill"
)

// ChunkedGenerator processes the source in adaptively sized windows, all
// results staying resident. Window size is recomputed from the live
// pressure tier before every window.
type ChunkedGenerator struct {
	machine
}

// NewChunkedGenerator builds a chunked generator. A nil monitor gets a
// default auto-budget monitor; a nil reporter is a no-op.
func NewChunkedGenerator(monitor *memory.Monitor, logger *slog.Logger, reporter progress.Reporter) *ChunkedGenerator {
	return &ChunkedGenerator{machine: newMachine(monitor, logger, reporter)}
}

// Name implements Generator.
func (g *ChunkedGenerator) Name() string { return "chunked" }

// Generate implements Generator.
func (g *ChunkedGenerator) Generate(_ context.Context, src Source, params Params) (*Result, error) {
	total, known := src.NumRows()
	if !known {
		total = 0
	}

	g.reporter.AddSubstep(substepParent, substepChunked, "generating n-grams (chunked)", total)

	g.reporter.StartSubstep(substepChunked)

	var parts []*table.Table

	chunks, retries, err := g.windowLoop(src, params, substepChunked, func(pairs *table.Table, _ int) error {
		parts = append(parts, pairs)

		return nil
	})
	if err != nil {
		g.reporter.FailSubstep(substepChunked, err.Error())

		return nil, err
	}

	pairs := emptyPairs()

	if len(parts) > 0 {
		pairs, err = table.Concat(parts...)
		if err != nil {
			g.reporter.FailSubstep(substepChunked, err.Error())

			return nil, fmt.Errorf("engine: concat chunk results: %w", err)
		}
	}

	g.reporter.CompleteSubstep(substepChunked)

	return &Result{Pairs: pairs, Chunks: chunks, Retries: retries}, nil
}
