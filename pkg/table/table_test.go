package table_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/textfang/pkg/table"
)

func sampleTable(t *testing.T) *table.Table {
	t.Helper()

	tbl, err := table.New(
		table.Int64Column("id", []int64{1, 2, 3, 4, 5}),
		table.StringColumn("word", []string{"a", "b", "c", "d", "e"}),
	)
	require.NoError(t, err)

	return tbl
}

func TestNewValidatesLengths(t *testing.T) {
	t.Parallel()

	_, err := table.New(
		table.Int64Column("id", []int64{1, 2}),
		table.StringColumn("word", []string{"a"}),
	)
	assert.ErrorIs(t, err, table.ErrLengthMismatch)
}

func TestNewRejectsDuplicateNames(t *testing.T) {
	t.Parallel()

	_, err := table.New(
		table.Int64Column("id", []int64{1}),
		table.Int64Column("id", []int64{2}),
	)
	assert.ErrorIs(t, err, table.ErrDuplicateColumn)
}

func TestSlice(t *testing.T) {
	t.Parallel()

	tbl := sampleTable(t)

	tests := []struct {
		name    string
		offset  int
		length  int
		wantIDs []int64
	}{
		{"middle window", 1, 2, []int64{2, 3}},
		{"clamped past end", 3, 10, []int64{4, 5}},
		{"offset past end", 7, 2, []int64{}},
		{"negative offset clamps to start", -1, 2, []int64{1, 2}},
		{"negative length takes rest", 2, -1, []int64{3, 4, 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := tbl.Slice(tt.offset, tt.length)
			ids, err := got.Ints("id")
			require.NoError(t, err)
			assert.Equal(t, tt.wantIDs, append([]int64{}, ids...))
			assert.Equal(t, len(tt.wantIDs), got.NumRows())
		})
	}
}

func TestSelect(t *testing.T) {
	t.Parallel()

	tbl := sampleTable(t)

	got, err := tbl.Select("word")
	require.NoError(t, err)
	assert.Equal(t, []table.Field{{Name: "word", Kind: table.KindString}}, got.Schema())
	assert.Equal(t, 5, got.NumRows())

	_, err = tbl.Select("missing")
	assert.ErrorIs(t, err, table.ErrColumnNotFound)
}

func TestKindMismatch(t *testing.T) {
	t.Parallel()

	tbl := sampleTable(t)

	_, err := tbl.Ints("word")
	assert.ErrorIs(t, err, table.ErrKindMismatch)

	_, err = tbl.Strings("id")
	assert.ErrorIs(t, err, table.ErrKindMismatch)
}

func TestConcat(t *testing.T) {
	t.Parallel()

	a := sampleTable(t)
	b := sampleTable(t)

	got, err := table.Concat(a, b)
	require.NoError(t, err)
	assert.Equal(t, 10, got.NumRows())

	ids, err := got.Ints("id")
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3, 4, 5, 1, 2, 3, 4, 5}, ids)
}

func TestConcatSchemaMismatch(t *testing.T) {
	t.Parallel()

	a := sampleTable(t)
	b, err := table.New(table.Int64Column("other", []int64{1}))
	require.NoError(t, err)

	_, err = table.Concat(a, b)
	assert.ErrorIs(t, err, table.ErrSchemaMismatch)
}

func TestFileRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "sample.tbl")
	tbl := sampleTable(t)

	require.NoError(t, table.WriteFile(path, tbl))

	got, err := table.ReadFile(path)
	require.NoError(t, err)

	assert.Equal(t, tbl.Schema(), got.Schema())

	ids, err := got.Ints("id")
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3, 4, 5}, ids)

	words, err := got.Strings("word")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, words)
}

func TestScanCountsWithoutMaterializing(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "sample.tbl")
	require.NoError(t, table.WriteFile(path, sampleTable(t)))

	scan, err := table.OpenScan(path)
	require.NoError(t, err)

	rows, err := scan.NumRows()
	require.NoError(t, err)
	assert.Equal(t, 5, rows)
}

func TestSinkMultiChunk(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "chunks.tbl")
	tbl := sampleTable(t)

	sink, err := table.CreateSink(path, tbl.Schema())
	require.NoError(t, err)

	require.NoError(t, sink.Write(tbl.Slice(0, 3)))
	require.NoError(t, sink.Write(tbl.Slice(3, 2)))
	require.NoError(t, sink.Close())

	scan, err := table.OpenScan(path)
	require.NoError(t, err)

	rows, err := scan.NumRows()
	require.NoError(t, err)
	assert.Equal(t, 5, rows)

	got, err := scan.Materialize()
	require.NoError(t, err)

	ids, err := got.Ints("id")
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3, 4, 5}, ids)
}

func TestScanSlice(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "chunks.tbl")
	tbl := sampleTable(t)

	sink, err := table.CreateSink(path, tbl.Schema())
	require.NoError(t, err)
	require.NoError(t, sink.Write(tbl.Slice(0, 2)))
	require.NoError(t, sink.Write(tbl.Slice(2, 2)))
	require.NoError(t, sink.Write(tbl.Slice(4, 1)))
	require.NoError(t, sink.Close())

	scan, err := table.OpenScan(path)
	require.NoError(t, err)

	tests := []struct {
		name    string
		offset  int
		length  int
		wantIDs []int64
	}{
		{"spans chunk boundary", 1, 3, []int64{2, 3, 4}},
		{"rest from offset", 3, -1, []int64{4, 5}},
		{"past end", 9, 3, []int64{}},
		{"clamped length", 4, 10, []int64{5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, sliceErr := scan.Slice(tt.offset, tt.length)
			require.NoError(t, sliceErr)

			ids, idsErr := got.Ints("id")
			require.NoError(t, idsErr)
			assert.Equal(t, tt.wantIDs, append([]int64{}, ids...))
			assert.Equal(t, len(tt.wantIDs), got.NumRows())
		})
	}
}

func TestSinkRejectsSchemaMismatch(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "chunks.tbl")

	sink, err := table.CreateSink(path, sampleTable(t).Schema())
	require.NoError(t, err)

	defer sink.Close()

	other, err := table.New(table.Int64Column("other", []int64{1}))
	require.NoError(t, err)

	assert.ErrorIs(t, sink.Write(other), table.ErrSchemaMismatch)
}

func TestEmptyTable(t *testing.T) {
	t.Parallel()

	empty := table.Empty(
		table.Field{Name: "id", Kind: table.KindInt64},
		table.Field{Name: "word", Kind: table.KindString},
	)

	assert.Equal(t, 0, empty.NumRows())

	path := filepath.Join(t.TempDir(), "empty.tbl")
	require.NoError(t, table.WriteFile(path, empty))

	got, err := table.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 0, got.NumRows())
	assert.Equal(t, empty.Schema(), got.Schema())
}
