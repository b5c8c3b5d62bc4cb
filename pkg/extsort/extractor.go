// Package extsort deduplicates string columns too large for memory via
// sorted disk runs merged with a k-way heap merge. Each run is locally
// deduplicated and sorted; cross-run duplicates are eliminated during the
// merge. Only one head value per run is resident at a time.
package extsort

import (
	"container/heap"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/Sumatoshi-tech/textfang/pkg/chunking"
	"github.com/Sumatoshi-tech/textfang/pkg/memory"
	"github.com/Sumatoshi-tech/textfang/pkg/progress"
)

// DefaultBasePartitionSize is the partition size before pressure scaling.
const DefaultBasePartitionSize = 100_000

// Substep identifiers reported during extraction.
const (
	substepPartition = "extsort_partition"
	substepMerge     = "extsort_merge"
)

// Config configures an Extractor. Zero fields get defaults.
type Config struct {
	// Monitor drives adaptive partition sizing. When nil, a monitor with
	// an auto-detected budget is created.
	Monitor *memory.Monitor

	// BasePartitionSize is the pre-scaling partition size.
	BasePartitionSize int

	// TempDir is the parent for the run directory. Defaults to os.TempDir.
	TempDir string

	// Logger defaults to slog.Default.
	Logger *slog.Logger

	// Reporter receives sub-progress; may be nil.
	Reporter progress.Reporter
}

// Extractor deduplicates a string column through disk-resident sorted runs.
type Extractor struct {
	monitor  *memory.Monitor
	baseSize int
	tempDir  string
	logger   *slog.Logger
	reporter progress.Reporter
}

// NewExtractor creates an Extractor from the given config.
func NewExtractor(cfg Config) *Extractor {
	baseSize := cfg.BasePartitionSize
	if baseSize <= 0 {
		baseSize = DefaultBasePartitionSize
	}

	tempDir := cfg.TempDir
	if tempDir == "" {
		tempDir = os.TempDir()
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	monitor := cfg.Monitor
	if monitor == nil {
		monitor = memory.NewMonitor(memory.MonitorConfig{Logger: logger})
	}

	return &Extractor{
		monitor:  monitor,
		baseSize: baseSize,
		tempDir:  tempDir,
		logger:   logger,
		reporter: progress.Safe(cfg.Reporter, logger),
	}
}

// Unique returns the ascending sorted set of distinct values. The input
// order is not preserved: output order is ascending string order, an
// intentional contract difference from the generation paths. All temp
// resources are removed on every exit path.
func (e *Extractor) Unique(values []string) ([]string, error) {
	if len(values) == 0 {
		return []string{}, nil
	}

	dir, err := os.MkdirTemp(e.tempDir, "textfang-extsort-*")
	if err != nil {
		return nil, fmt.Errorf("extsort: create temp dir: %w", err)
	}

	defer e.cleanup(dir)

	runs := e.partition(dir, values)

	return e.merge(runs)
}

// partition slices values adaptively, deduplicates and sorts each slice in
// memory, and writes it to its own run file. A failed run write is skipped
// with a warning; partitioning itself never fails.
func (e *Extractor) partition(dir string, values []string) []string {
	e.reporter.AddSubstep("extract", substepPartition, "partitioning", len(values))
	e.reporter.StartSubstep(substepPartition)

	var runs []string

	offset := 0

	for offset < len(values) {
		size := chunking.EffectiveSize(e.baseSize, chunking.OpUniqueExtraction, e.monitor.Tier())

		end := min(offset+size, len(values))
		slice := values[offset:end]

		path := filepath.Join(dir, fmt.Sprintf("run_%03d.lz4", len(runs)))

		err := writeRun(path, dedupeSort(slice))
		if err != nil {
			e.logger.Warn("skipping failed partition", "run", len(runs), "rows", len(slice), "error", err)
		} else {
			runs = append(runs, path)
		}

		offset = end

		e.reporter.UpdateSubstep(substepPartition, offset)
	}

	e.reporter.CompleteSubstep(substepPartition)

	return runs
}

// merge performs the k-way heap merge across runs. A single run is already
// sorted and deduplicated, so it is streamed back directly. Failures here
// are fatal: the data cannot be recovered without the runs.
func (e *Extractor) merge(runs []string) ([]string, error) {
	if len(runs) == 0 {
		return []string{}, nil
	}

	e.reporter.AddSubstep("extract", substepMerge, "merging runs", len(runs))
	e.reporter.StartSubstep(substepMerge)

	readers := make([]*runReader, 0, len(runs))

	defer func() {
		for _, r := range readers {
			r.close()
		}
	}()

	for _, path := range runs {
		r, err := openRun(path)
		if err != nil {
			e.reporter.FailSubstep(substepMerge, err.Error())

			return nil, err
		}

		readers = append(readers, r)
	}

	if len(readers) == 1 {
		out, err := readAll(readers[0])
		if err != nil {
			e.reporter.FailSubstep(substepMerge, err.Error())

			return nil, err
		}

		e.reporter.CompleteSubstep(substepMerge)

		return out, nil
	}

	out, err := e.heapMerge(readers)
	if err != nil {
		e.reporter.FailSubstep(substepMerge, err.Error())

		return nil, err
	}

	e.reporter.CompleteSubstep(substepMerge)

	return out, nil
}

func (e *Extractor) heapMerge(readers []*runReader) ([]string, error) {
	h := make(mergeHeap, 0, len(readers))

	for i, r := range readers {
		value, ok, err := r.next()
		if err != nil {
			return nil, err
		}

		if ok {
			h = append(h, mergeItem{value: value, run: i})
		}
	}

	heap.Init(&h)

	var (
		out  []string
		last string
	)

	for h.Len() > 0 {
		item := heap.Pop(&h).(mergeItem) //nolint:forcetypeassert // heap of mergeItem.

		// Runs are only locally deduplicated; identical heads from
		// different runs surface here and are dropped.
		if len(out) == 0 || item.value != last {
			out = append(out, item.value)
			last = item.value
		}

		value, ok, err := readers[item.run].next()
		if err != nil {
			return nil, err
		}

		if ok {
			heap.Push(&h, mergeItem{value: value, run: item.run})
		}
	}

	return out, nil
}

// cleanup removes the run directory. Best-effort: a failure is logged and
// never fails the extraction.
func (e *Extractor) cleanup(dir string) {
	err := os.RemoveAll(dir)
	if err != nil {
		e.logger.Warn("extsort temp cleanup failed", "dir", dir, "error", err)
	}
}

func dedupeSort(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))

	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}

		seen[v] = struct{}{}
		out = append(out, v)
	}

	sort.Strings(out)

	return out
}

func readAll(r *runReader) ([]string, error) {
	var out []string

	for {
		value, ok, err := r.next()
		if err != nil {
			return nil, err
		}

		if !ok {
			return out, nil
		}

		out = append(out, value)
	}
}
