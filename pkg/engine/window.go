package engine

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/dustin/go-humanize"

	"github.com/Sumatoshi-tech/textfang/pkg/chunking"
	"github.com/Sumatoshi-tech/textfang/pkg/memory"
	"github.com/Sumatoshi-tech/textfang/pkg/ngram"
	"github.com/Sumatoshi-tech/textfang/pkg/progress"
	"github.com/Sumatoshi-tech/textfang/pkg/safeconv"
	"github.com/Sumatoshi-tech/textfang/pkg/table"
)

const (
	// retryFloor is the smallest window a shrink-and-retry may reach.
	// Failing at the floor aborts the run.
	retryFloor = 500

	// shrinkDivisor divides the window size on each over-budget retry.
	shrinkDivisor = 4

	// emptyWindowLimit terminates the window loop for sources of unknown
	// size after this many consecutive empty windows.
	emptyWindowLimit = 3
)

// machine is the window-processing core shared by every generation
// strategy: adaptive sizing, two-phase materialization, shrink-and-retry
// recovery, and between-window GC.
type machine struct {
	monitor  *memory.Monitor
	logger   *slog.Logger
	reporter progress.Reporter

	// overBudget decides whether the window that produced this sample blew
	// the budget. Overridable in tests; defaults to resident >= budget.
	overBudget func(s memory.Sample) bool
}

func newMachine(monitor *memory.Monitor, logger *slog.Logger, reporter progress.Reporter) machine {
	if monitor == nil {
		monitor = memory.NewMonitor(memory.MonitorConfig{Logger: logger})
	}

	if logger == nil {
		logger = slog.Default()
	}

	m := machine{
		monitor:  monitor,
		logger:   logger,
		reporter: progress.Safe(reporter, logger),
	}
	m.overBudget = func(s memory.Sample) bool {
		return s.ResidentBytes >= monitor.Budget()
	}

	return m
}

// pendingWindow holds one window's (record_id, ngram_string) pairs before
// they are folded into the shared dictionary. Keeping the fold separate
// means a window that fails the budget check never pollutes the ID space:
// the retry re-generates from scratch and IDs stay deterministic.
type pendingWindow struct {
	recordIDs []int64
	grams     []string
	rows      int
}

// materializeWindow slices rows [offset, offset+length) and generates
// their n-gram pairs in memory, without assigning IDs. A post-generation
// sample over budget fails the window with ErrWindowTooLarge.
func (m *machine) materializeWindow(src Source, offset, length int, params Params) (*pendingWindow, error) {
	tbl, err := src.Slice(offset, length)
	if err != nil {
		return nil, fmt.Errorf("engine: slice window at offset %d: %w", offset, err)
	}

	rows := tbl.NumRows()
	if rows == 0 {
		return &pendingWindow{}, nil
	}

	ids, err := tbl.Ints(ngram.ColRecordID)
	if err != nil {
		return nil, fmt.Errorf("engine: window at offset %d: %w", offset, err)
	}

	texts, err := tbl.Strings(ngram.ColText)
	if err != nil {
		return nil, fmt.Errorf("engine: window at offset %d: %w", offset, err)
	}

	pw := &pendingWindow{rows: rows}
	for i, text := range texts {
		tokens := params.Tokenizer.Tokenize(text)
		for _, gram := range ngram.Generate(tokens, params.MinN, params.MaxN) {
			pw.recordIDs = append(pw.recordIDs, ids[i])
			pw.grams = append(pw.grams, gram)
		}
	}

	sample := m.monitor.Sample()
	if m.overBudget(sample) {
		return nil, fmt.Errorf("%w: window [%d,%d) resident %s, budget %s",
			ErrWindowTooLarge, offset, offset+rows,
			humanize.IBytes(safeconv.SaturateUint64(sample.ResidentBytes)),
			humanize.IBytes(safeconv.SaturateUint64(m.monitor.Budget())))
	}

	return pw, nil
}

// fold assigns IDs from the shared dictionary in pair order and returns
// the window's (record_id, ngram_id) table.
func (pw *pendingWindow) fold(dict *ngram.Dictionary) (*table.Table, error) {
	ngramIDs := make([]int64, len(pw.grams))
	for i, gram := range pw.grams {
		ngramIDs[i] = dict.ID(gram)
	}

	return table.New(
		table.Int64Column(ngram.ColRecordID, pw.recordIDs),
		table.Int64Column(ngram.ColNgramID, ngramIDs),
	)
}

// processWindow materializes one window with shrink-and-retry recovery:
// an over-budget window triggers a GC pass and a retry from the same
// offset at size/4 until the floor, below which the run aborts.
func (m *machine) processWindow(src Source, offset, size int, params Params) (pairs *table.Table, rows, retries int, err error) {
	for {
		pw, err := m.materializeWindow(src, offset, size, params)
		if err == nil {
			folded, err := pw.fold(params.Dictionary)
			if err != nil {
				return nil, 0, retries, err
			}

			return folded, pw.rows, retries, nil
		}

		if !errors.Is(err, ErrWindowTooLarge) {
			return nil, 0, retries, err
		}

		if size <= retryFloor {
			return nil, 0, retries, fmt.Errorf(
				"%w: floor window of %d rows still over budget at offset %d",
				ErrResourceExhausted, size, offset)
		}

		size = max(size/shrinkDivisor, retryFloor)
		retries++
		gc := m.monitor.CollectGarbage()
		m.logger.Warn("window over budget, shrinking and retrying",
			slog.Int("offset", offset),
			slog.Int("retry_size", size),
			slog.String("gc_freed", humanize.IBytes(safeconv.SaturateUint64(gc.FreedBytes))),
		)
	}
}

// windowLoop drives windows across the whole source in input order,
// re-evaluating pressure before each one and handing finished pair tables
// to emit. Termination: offset reaches the known row count, or
// emptyWindowLimit consecutive empty windows for unknown-size sources.
func (m *machine) windowLoop(
	src Source,
	params Params,
	substepID string,
	emit func(pairs *table.Table, chunk int) error,
) (chunks, retries int, err error) {
	total, known := src.NumRows()

	offset := 0
	emptyStreak := 0

	for {
		if known && offset >= total {
			break
		}

		if m.monitor.ShouldCollectGarbage(0) {
			m.monitor.CollectGarbage()
		}

		tier := m.monitor.Tier()
		size := chunking.EffectiveSize(params.BaseChunkSize, chunking.OpNgramGeneration, tier)

		pairs, rows, r, err := m.processWindow(src, offset, size, params)
		retries += r

		if err != nil {
			return chunks, retries, err
		}

		if rows == 0 {
			if known {
				break
			}

			emptyStreak++
			if emptyStreak >= emptyWindowLimit {
				break
			}

			continue
		}

		emptyStreak = 0

		if err := emit(pairs, chunks); err != nil {
			return chunks, retries, err
		}

		chunks++
		offset += rows

		m.reporter.UpdateSubstep(substepID, offset)
	}

	return chunks, retries, nil
}
