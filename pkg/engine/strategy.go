// Package engine implements the memory-pressure-adaptive processing core:
// three escalating n-gram generation strategies, the deduplication ladder,
// and the orchestrator that selects among them from live pressure.
package engine

import (
	"context"
	"errors"

	"github.com/Sumatoshi-tech/textfang/pkg/ngram"
	"github.com/Sumatoshi-tech/textfang/pkg/table"
)

// Sentinel errors.
var (
	// ErrWindowTooLarge marks a window whose materialization blew the
	// memory budget. Recoverable: the caller shrinks and retries, or a
	// cheaper strategy escalates to a more resilient one.
	ErrWindowTooLarge = errors.New("engine: window exceeds memory budget")

	// ErrResourceExhausted marks an unrecoverable resource failure: even
	// the floor-sized window does not fit. Aborts the run.
	ErrResourceExhausted = errors.New("engine: resource budget exhausted")
)

// Params carries the per-run inputs shared by every generation strategy.
// The dictionary is owned by the orchestrator for the duration of a run
// and passed by reference; strategies fold into it and never replace it.
type Params struct {
	MinN       int
	MaxN       int
	Tokenizer  ngram.Tokenizer
	Dictionary *ngram.Dictionary

	// BaseChunkSize is the pre-scaling window size for chunked strategies.
	BaseChunkSize int
}

// Result is the output of one generation strategy.
type Result struct {
	// Pairs holds (record_id, ngram_id) occurrence rows in record-then-
	// position order.
	Pairs *table.Table

	// Chunks is the number of windows processed.
	Chunks int

	// Retries counts shrink-and-retry recoveries.
	Retries int

	// SpillFiles counts temp files written (disk-spill only).
	SpillFiles int
}

// Generator is the shared strategy contract: same inputs, same output
// semantics, different memory behavior. The context propagates logging and
// tracing metadata only; strategies are not cancellable mid-operation.
type Generator interface {
	Name() string
	Generate(ctx context.Context, src Source, params Params) (*Result, error)
}

// pairSchema is the occurrence table schema shared by all strategies.
func pairSchema() []table.Field {
	return []table.Field{
		{Name: ngram.ColRecordID, Kind: table.KindInt64},
		{Name: ngram.ColNgramID, Kind: table.KindInt64},
	}
}

func emptyPairs() *table.Table {
	return table.Empty(pairSchema()...)
}
