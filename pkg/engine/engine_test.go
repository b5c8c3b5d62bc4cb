package engine_test

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/textfang/pkg/engine"
	"github.com/Sumatoshi-tech/textfang/pkg/memory"
	"github.com/Sumatoshi-tech/textfang/pkg/ngram"
	"github.com/Sumatoshi-tech/textfang/pkg/table"
	"github.com/Sumatoshi-tech/textfang/pkg/units"
)

// steadyProbe keeps the monitor at a fixed reading.
type steadyProbe struct {
	resident int64
}

func (p steadyProbe) ProcessMemory() (memory.ProcessMemory, error) {
	return memory.ProcessMemory{ResidentBytes: p.resident}, nil
}

func (p steadyProbe) TotalSystemBytes() (int64, error) {
	return 0, fmt.Errorf("not detectable")
}

func newEngine(t *testing.T) *engine.Engine {
	t.Helper()

	return engine.NewEngine(engine.EngineConfig{
		Monitor: memory.NewMonitor(memory.MonitorConfig{
			Probe:       steadyProbe{resident: 1},
			BudgetBytes: units.GiB,
		}),
		TempDir: t.TempDir(),
	})
}

func corpus(t *testing.T, texts []string) *table.Table {
	t.Helper()

	ids := make([]int64, len(texts))
	for i := range ids {
		ids[i] = int64(i)
	}

	tbl, err := table.New(
		table.Int64Column(ngram.ColRecordID, ids),
		table.StringColumn(ngram.ColText, texts),
	)
	require.NoError(t, err)

	return tbl
}

var sampleTexts = []string{
	"the quick brown fox",
	"the lazy dog sleeps",
	"quick brown foxes jump over the lazy dog",
	"dog",
	"the dog and the fox",
	"over and over and over",
}

func columnInts(t *testing.T, tbl *table.Table, name string) []int64 {
	t.Helper()

	vals, err := tbl.Ints(name)
	require.NoError(t, err)

	return vals
}

func columnStrings(t *testing.T, tbl *table.Table, name string) []string {
	t.Helper()

	vals, err := tbl.Strings(name)
	require.NoError(t, err)

	return vals
}

func TestRunDeterministicAcrossStrategies(t *testing.T) {
	t.Parallel()

	strategies := []engine.Strategy{
		engine.StrategyDirect,
		engine.StrategyChunked,
		engine.StrategyDiskSpill,
	}

	var (
		refPairs *table.Table
		refDict  *table.Table
		refOrder []string
	)

	for _, strategy := range strategies {
		src := engine.NewTableSource(corpus(t, sampleTexts))

		res, err := newEngine(t).Run(t.Context(), src, engine.Options{
			MinN:          1,
			MaxN:          3,
			ForceStrategy: strategy,
		})
		require.NoError(t, err, "strategy %s", strategy)
		require.Equal(t, strategy, res.Stats.Strategy)

		if refPairs == nil {
			refPairs = res.Pairs
			refDict = res.Dictionary
			refOrder = res.Unique

			continue
		}

		assert.Equal(t, columnInts(t, refPairs, ngram.ColRecordID),
			columnInts(t, res.Pairs, ngram.ColRecordID), "strategy %s", strategy)
		assert.Equal(t, columnInts(t, refPairs, ngram.ColNgramID),
			columnInts(t, res.Pairs, ngram.ColNgramID), "strategy %s", strategy)
		assert.Equal(t, columnStrings(t, refDict, ngram.ColNgram),
			columnStrings(t, res.Dictionary, ngram.ColNgram), "strategy %s", strategy)
		assert.Equal(t, refOrder, res.Unique, "strategy %s", strategy)
	}
}

func TestRunFrequenciesAndUnique(t *testing.T) {
	t.Parallel()

	src := engine.NewTableSource(corpus(t, sampleTexts))

	res, err := newEngine(t).Run(t.Context(), src, engine.Options{MinN: 1, MaxN: 2})
	require.NoError(t, err)

	assert.Equal(t, engine.DedupInMemory, res.Stats.DedupMode)
	assert.Equal(t, len(sampleTexts), res.Stats.Rows)
	assert.Positive(t, res.Stats.PairRows)

	// Every occurrence is counted exactly once.
	counts := columnInts(t, res.Frequencies, ngram.ColCount)

	var total int64
	for _, c := range counts {
		total += c
	}

	assert.Equal(t, int64(res.Pairs.NumRows()), total)

	// The vocabulary is sorted and matches the dictionary's value set.
	assert.True(t, sort.StringsAreSorted(res.Unique))
	assert.Equal(t, res.Dictionary.NumRows(), len(res.Unique))
	assert.Equal(t, res.Dictionary.NumRows(), res.Stats.UniqueNgrams)

	dictStrs := columnStrings(t, res.Dictionary, ngram.ColNgram)
	sorted := append([]string(nil), dictStrs...)
	sort.Strings(sorted)
	assert.Equal(t, sorted, res.Unique)
}

func TestRunDedupModesAgree(t *testing.T) {
	t.Parallel()

	inMem, err := newEngine(t).Run(t.Context(),
		engine.NewTableSource(corpus(t, sampleTexts)),
		engine.Options{MinN: 1, MaxN: 2, ForceDedup: engine.DedupInMemory})
	require.NoError(t, err)

	external, err := newEngine(t).Run(t.Context(),
		engine.NewTableSource(corpus(t, sampleTexts)),
		engine.Options{MinN: 1, MaxN: 2, ForceDedup: engine.DedupExternalSort})
	require.NoError(t, err)

	assert.Equal(t, engine.DedupExternalSort, external.Stats.DedupMode)
	assert.Equal(t, inMem.Unique, external.Unique)
}

func TestRunFromFileMatchesInMemory(t *testing.T) {
	t.Parallel()

	tbl := corpus(t, sampleTexts)

	path := filepath.Join(t.TempDir(), "corpus.tbl")
	require.NoError(t, table.WriteFile(path, tbl))

	scan, err := table.OpenScan(path)
	require.NoError(t, err)

	fromFile, err := newEngine(t).Run(t.Context(), engine.NewScanSource(scan),
		engine.Options{MinN: 2, MaxN: 2})
	require.NoError(t, err)

	inMem, err := newEngine(t).Run(t.Context(), engine.NewTableSource(tbl),
		engine.Options{MinN: 2, MaxN: 2})
	require.NoError(t, err)

	assert.Equal(t, columnInts(t, inMem.Pairs, ngram.ColNgramID),
		columnInts(t, fromFile.Pairs, ngram.ColNgramID))
	assert.Equal(t, inMem.Unique, fromFile.Unique)
}

func TestRunRejectsInvalidRange(t *testing.T) {
	t.Parallel()

	src := engine.NewTableSource(corpus(t, sampleTexts))

	_, err := newEngine(t).Run(t.Context(), src, engine.Options{MinN: 0, MaxN: 2})
	require.ErrorIs(t, err, ngram.ErrInvalidNRange)

	_, err = newEngine(t).Run(t.Context(), src, engine.Options{MinN: 3, MaxN: 2})
	require.ErrorIs(t, err, ngram.ErrInvalidNRange)
}

func TestRunEmptyCorpus(t *testing.T) {
	t.Parallel()

	src := engine.NewTableSource(corpus(t, nil))

	res, err := newEngine(t).Run(t.Context(), src, engine.Options{MinN: 1, MaxN: 2})
	require.NoError(t, err)

	assert.Zero(t, res.Pairs.NumRows())
	assert.Zero(t, res.Dictionary.NumRows())
	assert.Empty(t, res.Unique)
}

func TestTokenizerOverride(t *testing.T) {
	t.Parallel()

	// A tokenizer that splits on commas only, keeping spaces inside tokens.
	commas := ngram.TokenizerFunc(func(text string) []string {
		return strings.Split(text, ",")
	})

	src := engine.NewTableSource(corpus(t, []string{"a b,c d"}))

	res, err := newEngine(t).Run(t.Context(), src, engine.Options{
		MinN:      1,
		MaxN:      1,
		Tokenizer: commas,
	})
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"a b", "c d"}, res.Unique)
}
