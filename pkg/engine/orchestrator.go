package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/Sumatoshi-tech/textfang/pkg/chunking"
	"github.com/Sumatoshi-tech/textfang/pkg/extsort"
	"github.com/Sumatoshi-tech/textfang/pkg/memory"
	"github.com/Sumatoshi-tech/textfang/pkg/ngram"
	"github.com/Sumatoshi-tech/textfang/pkg/progress"
	"github.com/Sumatoshi-tech/textfang/pkg/table"
	"github.com/Sumatoshi-tech/textfang/pkg/units"
)

// Strategy names the generation rung in use.
type Strategy string

// Generation strategies, cheapest first. Escalation within a run only
// moves down this list, never back up.
const (
	StrategyDirect    Strategy = "direct"
	StrategyChunked   Strategy = "chunked"
	StrategyDiskSpill Strategy = "disk_spill"
)

// DedupMode names the unique-extraction rung in use.
type DedupMode string

// Deduplication modes.
const (
	DedupInMemory     DedupMode = "in_memory"
	DedupExternalSort DedupMode = "external_sort"
)

// estimatedPairsPerRecord scales a record count into an expected pair-row
// count for strategy selection. Short text records produce on the order of
// ten n-grams each across a typical [1,3] range.
const estimatedPairsPerRecord = 10

// spillRowThreshold returns the estimated pair-row count above which the
// disk-spill strategy and external-sort dedup activate. A step function of
// the memory budget, mirroring the budget's own tiering.
func spillRowThreshold(budgetBytes int64) int {
	switch {
	case budgetBytes <= 2*units.GiB:
		return 500_000
	case budgetBytes <= 4*units.GiB:
		return 1_000_000
	case budgetBytes <= 8*units.GiB:
		return 2_000_000
	default:
		return 3_000_000
	}
}

// Options configures one Run. Zero values select sensible defaults; the
// Force fields pin a rung for testing and diagnostics.
type Options struct {
	MinN int
	MaxN int

	// Tokenizer defaults to ngram.SimpleTokenizer.
	Tokenizer ngram.Tokenizer

	// BaseChunkSize is the pre-scaling window size. Defaults to
	// DefaultBaseChunkSize.
	BaseChunkSize int

	// ForceStrategy pins the generation strategy, disabling both selection
	// and escalation. Empty selects automatically.
	ForceStrategy Strategy

	// ForceDedup pins the deduplication mode. Empty selects automatically.
	ForceDedup DedupMode
}

// DefaultBaseChunkSize is the pre-scaling window size when Options does
// not set one.
const DefaultBaseChunkSize = 100_000

// RunStats summarizes what one Run did and what it cost.
type RunStats struct {
	Rows              int
	PairRows          int
	UniqueNgrams      int
	Strategy          Strategy
	DedupMode         DedupMode
	Escalations       int
	Chunks            int
	Retries           int
	SpillFiles        int
	PeakResidentBytes int64
}

// RunResult is the full output of one Run.
type RunResult struct {
	// Pairs holds (record_id, ngram_id) occurrence rows in record-then-
	// position order.
	Pairs *table.Table

	// Dictionary holds (ngram_id, ngram) in ID order.
	Dictionary *table.Table

	// Frequencies holds (ngram_id, ngram, count) in ID order.
	Frequencies *table.Table

	// Unique holds the globally unique n-gram strings in ascending order.
	Unique []string

	Stats RunStats
}

// Engine is the orchestrator: it owns the run's dictionary, selects the
// initial strategy from live pressure and estimated size, escalates down
// the ladder on resource failure, and runs the deduplication stage.
type Engine struct {
	monitor  *memory.Monitor
	logger   *slog.Logger
	reporter progress.Reporter

	direct    *DirectGenerator
	chunked   *ChunkedGenerator
	diskSpill *DiskSpillGenerator
	tempDir   string
}

// EngineConfig wires an Engine's collaborators. Every field is optional.
type EngineConfig struct {
	// Monitor supplies pressure readings. Nil builds a monitor with an
	// auto-detected budget.
	Monitor *memory.Monitor

	// Logger defaults to slog.Default.
	Logger *slog.Logger

	// Reporter receives sub-progress. Nil disables reporting.
	Reporter progress.Reporter

	// TempDir is the parent for temp resources. Empty means the system
	// default.
	TempDir string
}

// NewEngine builds an orchestrator and its strategy rungs.
func NewEngine(cfg EngineConfig) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	monitor := cfg.Monitor
	if monitor == nil {
		monitor = memory.NewMonitor(memory.MonitorConfig{Logger: logger})
	}

	reporter := progress.Safe(cfg.Reporter, logger)

	return &Engine{
		monitor:   monitor,
		logger:    logger,
		reporter:  reporter,
		direct:    NewDirectGenerator(monitor, logger, reporter),
		chunked:   NewChunkedGenerator(monitor, logger, reporter),
		diskSpill: NewDiskSpillGenerator(monitor, logger, reporter, cfg.TempDir),
		tempDir:   cfg.TempDir,
	}
}

// Monitor exposes the engine's memory monitor.
func (e *Engine) Monitor() *memory.Monitor {
	return e.monitor
}

// RunPlan describes what a Run would do right now, without doing it.
type RunPlan struct {
	Strategy        Strategy
	BudgetBytes     int64
	Tier            memory.PressureTier
	EffectiveWindow int
	SpillThreshold  int
	Rows            int
	RowsKnown       bool
	EstimatedPairs  int
}

// Plan reports the strategy and window sizing a Run would start with under
// current pressure. Purely informational; it never touches the source data.
func (e *Engine) Plan(src Source, opts Options) RunPlan {
	if opts.BaseChunkSize <= 0 {
		opts.BaseChunkSize = DefaultBaseChunkSize
	}

	strategy := opts.ForceStrategy
	if strategy == "" {
		strategy = e.pickStrategy(src)
	}

	rows, known := src.NumRows()
	tier := e.monitor.Tier()

	return RunPlan{
		Strategy:        strategy,
		BudgetBytes:     e.monitor.Budget(),
		Tier:            tier,
		EffectiveWindow: chunking.EffectiveSize(opts.BaseChunkSize, chunking.OpNgramGeneration, tier),
		SpillThreshold:  spillRowThreshold(e.monitor.Budget()),
		Rows:            rows,
		RowsKnown:       known,
		EstimatedPairs:  rows * estimatedPairsPerRecord,
	}
}

// Run generates n-grams for every record in src and extracts the unique
// n-gram vocabulary, escalating strategies as pressure demands. The
// context carries logging and tracing metadata only; a run is not
// cancellable mid-operation.
func (e *Engine) Run(ctx context.Context, src Source, opts Options) (*RunResult, error) {
	if err := ngram.ValidateRange(opts.MinN, opts.MaxN); err != nil {
		return nil, err
	}

	if opts.Tokenizer == nil {
		opts.Tokenizer = ngram.SimpleTokenizer()
	}

	if opts.BaseChunkSize <= 0 {
		opts.BaseChunkSize = DefaultBaseChunkSize
	}

	dict := ngram.NewDictionary()
	params := Params{
		MinN:          opts.MinN,
		MaxN:          opts.MaxN,
		Tokenizer:     opts.Tokenizer,
		Dictionary:    dict,
		BaseChunkSize: opts.BaseChunkSize,
	}

	res, stats, err := e.generate(ctx, src, params, opts.ForceStrategy)
	if err != nil {
		return nil, err
	}

	unique, mode, err := e.dedup(res.Pairs, dict, opts)
	if err != nil {
		return nil, err
	}

	freqs, err := frequencies(res.Pairs, dict)
	if err != nil {
		return nil, err
	}

	rows, _ := src.NumRows()
	stats.Rows = rows
	stats.PairRows = res.Pairs.NumRows()
	stats.UniqueNgrams = len(unique)
	stats.DedupMode = mode
	stats.Chunks = res.Chunks
	stats.Retries = res.Retries
	stats.SpillFiles = res.SpillFiles
	stats.PeakResidentBytes = e.monitor.PeakResident()

	return &RunResult{
		Pairs:       res.Pairs,
		Dictionary:  dict.Table(),
		Frequencies: freqs,
		Unique:      unique,
		Stats:       stats,
	}, nil
}

// generate runs the generation ladder: pick the starting rung, then
// escalate one rung at a time on resource failure. Any other error, or a
// resource failure on the last rung, aborts.
func (e *Engine) generate(ctx context.Context, src Source, params Params, forced Strategy) (*Result, RunStats, error) {
	var stats RunStats

	ladder := e.ladderFrom(src, forced)

	for i, gen := range ladder {
		res, err := gen.Generate(ctx, src, params)
		if err == nil {
			stats.Strategy = Strategy(gen.Name())

			return res, stats, nil
		}

		last := i == len(ladder)-1
		if last || !isResourceError(err) {
			return nil, stats, err
		}

		stats.Escalations++
		e.logger.Warn("escalating generation strategy",
			slog.String("from", gen.Name()),
			slog.String("to", ladder[i+1].Name()),
			slog.Any("cause", err),
		)
	}

	// Unreachable: the ladder is never empty and the last rung returns.
	return nil, stats, ErrResourceExhausted
}

// ladderFrom builds the escalation ladder starting at the selected rung.
// A forced strategy yields a one-rung ladder with no escalation.
func (e *Engine) ladderFrom(src Source, forced Strategy) []Generator {
	switch forced {
	case StrategyDirect:
		return []Generator{e.direct}
	case StrategyChunked:
		return []Generator{e.chunked}
	case StrategyDiskSpill:
		return []Generator{e.diskSpill}
	}

	switch e.pickStrategy(src) {
	case StrategyDirect:
		return []Generator{e.direct, e.chunked, e.diskSpill}
	case StrategyChunked:
		return []Generator{e.chunked, e.diskSpill}
	default:
		return []Generator{e.diskSpill}
	}
}

// pickStrategy selects the starting rung from live pressure and the
// estimated output size.
func (e *Engine) pickStrategy(src Source) Strategy {
	tier := e.monitor.Tier()
	if tier == memory.TierCritical {
		return StrategyDiskSpill
	}

	rows, known := src.NumRows()
	if !known {
		return StrategyChunked
	}

	estimated := rows * estimatedPairsPerRecord
	if estimated > spillRowThreshold(e.monitor.Budget()) {
		return StrategyDiskSpill
	}

	if tier == memory.TierLow && rows <= DefaultBaseChunkSize {
		return StrategyDirect
	}

	return StrategyChunked
}

func isResourceError(err error) bool {
	return errors.Is(err, ErrWindowTooLarge) || errors.Is(err, ErrResourceExhausted)
}

// dedup extracts the sorted unique n-gram vocabulary, choosing the
// in-memory or external-sort rung from the pair-row count unless forced.
func (e *Engine) dedup(pairs *table.Table, dict *ngram.Dictionary, opts Options) ([]string, DedupMode, error) {
	mode := opts.ForceDedup
	if mode == "" {
		mode = DedupInMemory
		if pairs.NumRows() > spillRowThreshold(e.monitor.Budget()) {
			mode = DedupExternalSort
		}
	}

	switch mode {
	case DedupInMemory:
		unique := dict.Strings()
		sort.Strings(unique)

		return unique, mode, nil
	case DedupExternalSort:
		column, err := occurrenceStrings(pairs, dict)
		if err != nil {
			return nil, mode, err
		}

		extractor := extsort.NewExtractor(extsort.Config{
			Monitor:  e.monitor,
			TempDir:  e.tempDir,
			Logger:   e.logger,
			Reporter: e.reporter,
		})

		unique, err := extractor.Unique(column)
		if err != nil {
			return nil, mode, err
		}

		return unique, mode, nil
	default:
		return nil, mode, fmt.Errorf("engine: unknown dedup mode %q", mode)
	}
}

// occurrenceStrings expands the pair table's ngram_id column back into the
// per-occurrence string column the external extractor consumes.
func occurrenceStrings(pairs *table.Table, dict *ngram.Dictionary) ([]string, error) {
	ids, err := pairs.Ints(ngram.ColNgramID)
	if err != nil {
		return nil, err
	}

	strs := dict.Strings()
	out := make([]string, len(ids))

	for i, id := range ids {
		if id < 0 || int(id) >= len(strs) {
			return nil, fmt.Errorf("engine: ngram id %d outside dictionary of %d entries", id, len(strs))
		}

		out[i] = strs[id]
	}

	return out, nil
}

// frequencies counts occurrences per n-gram and joins the dictionary,
// producing (ngram_id, ngram, count) in ID order.
func frequencies(pairs *table.Table, dict *ngram.Dictionary) (*table.Table, error) {
	ids, err := pairs.Ints(ngram.ColNgramID)
	if err != nil {
		return nil, err
	}

	strs := dict.Strings()
	counts := make([]int64, len(strs))

	for _, id := range ids {
		if id < 0 || int(id) >= len(counts) {
			return nil, fmt.Errorf("engine: ngram id %d outside dictionary of %d entries", id, len(counts))
		}

		counts[id]++
	}

	outIDs := make([]int64, len(strs))
	for i := range outIDs {
		outIDs[i] = int64(i)
	}

	return table.New(
		table.Int64Column(ngram.ColNgramID, outIDs),
		table.StringColumn(ngram.ColNgram, strs),
		table.Int64Column(ngram.ColCount, counts),
	)
}
