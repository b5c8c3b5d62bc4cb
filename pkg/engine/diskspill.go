package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Sumatoshi-tech/textfang/pkg/memory"
	"github.com/Sumatoshi-tech/textfang/pkg/progress"
	"github.com/Sumatoshi-tech/textfang/pkg/table"
)

// DiskSpillGenerator processes the source in adaptively sized windows,
// writing each window's result to its own temp file instead of keeping it
// resident. The spill files are concatenated through lazy scans and
// materialized exactly once at the end; files are deleted only after the
// materialization succeeds, since a lazily scanned file cannot be removed
// while still referenced.
type DiskSpillGenerator struct {
	machine

	// tempDir is the parent for the per-run spill directory. Empty means
	// the system default.
	tempDir string
}

// NewDiskSpillGenerator builds a disk-spill generator writing under
// tempDir (empty for the system default). A nil monitor gets a default
// auto-budget monitor; a nil reporter is a no-op.
func NewDiskSpillGenerator(monitor *memory.Monitor, logger *slog.Logger, reporter progress.Reporter, tempDir string) *DiskSpillGenerator {
	return &DiskSpillGenerator{
		machine: newMachine(monitor, logger, reporter),
		tempDir: tempDir,
	}
}

// Name implements Generator.
func (g *DiskSpillGenerator) Name() string { return "disk-spill" }

// Generate implements Generator.
func (g *DiskSpillGenerator) Generate(_ context.Context, src Source, params Params) (*Result, error) {
	total, known := src.NumRows()
	if !known {
		total = 0
	}

	g.reporter.AddSubstep(substepParent, substepDiskSpill, "generating n-grams (disk spill)", total)
	g.reporter.StartSubstep(substepDiskSpill)

	dir, err := os.MkdirTemp(g.tempDir, "textfang-spill-*")
	if err != nil {
		g.reporter.FailSubstep(substepDiskSpill, err.Error())

		return nil, fmt.Errorf("engine: create spill dir: %w", err)
	}

	res, err := g.spillAndCollect(src, params, dir)
	if err != nil {
		g.cleanup(dir)
		g.reporter.FailSubstep(substepDiskSpill, err.Error())

		return nil, err
	}

	g.cleanup(dir)
	g.reporter.CompleteSubstep(substepDiskSpill)

	return res, nil
}

func (g *DiskSpillGenerator) spillAndCollect(src Source, params Params, dir string) (*Result, error) {
	var paths []string

	chunks, retries, err := g.windowLoop(src, params, substepDiskSpill, func(pairs *table.Table, chunk int) error {
		path := filepath.Join(dir, fmt.Sprintf("window_%06d.tbl", chunk))
		if err := table.WriteFile(path, pairs); err != nil {
			return fmt.Errorf("engine: spill window %d: %w", chunk, err)
		}

		paths = append(paths, path)

		return nil
	})
	if err != nil {
		return nil, err
	}

	pairs, err := g.collect(paths)
	if err != nil {
		return nil, err
	}

	return &Result{Pairs: pairs, Chunks: chunks, Retries: retries, SpillFiles: len(paths)}, nil
}

// collect opens every spill file as a lazy scan, materializes each in
// input order, and concatenates. Window files are written in input order
// so the concatenation preserves record order.
func (g *DiskSpillGenerator) collect(paths []string) (*table.Table, error) {
	if len(paths) == 0 {
		return emptyPairs(), nil
	}

	parts := make([]*table.Table, 0, len(paths))

	for _, path := range paths {
		scan, err := table.OpenScan(path)
		if err != nil {
			return nil, fmt.Errorf("engine: open spill file: %w", err)
		}

		part, err := scan.Materialize()
		if err != nil {
			return nil, fmt.Errorf("engine: read back spill file %s: %w", filepath.Base(path), err)
		}

		parts = append(parts, part)
	}

	pairs, err := table.Concat(parts...)
	if err != nil {
		return nil, fmt.Errorf("engine: concat spill results: %w", err)
	}

	return pairs, nil
}

// cleanup removes the spill directory. Best effort: failure is logged,
// never propagated.
func (g *DiskSpillGenerator) cleanup(dir string) {
	if err := os.RemoveAll(dir); err != nil {
		g.logger.Warn("spill cleanup failed", slog.String("dir", dir), slog.Any("error", err))
	}
}
