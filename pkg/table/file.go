package table

import (
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/pierrec/lz4/v4"
)

// Field describes one column in a file header.
type Field struct {
	Name string
	Kind Kind
}

// rowsUnknown marks sink-written files whose row count requires a scan.
const rowsUnknown = int64(-1)

// fileHeader is the first gob value in every table file.
type fileHeader struct {
	Fields []Field
	Rows   int64
}

// chunkPayload carries one chunk of column data. Slices are ordered to
// match the header fields; the inner slice for the other kind is nil.
type chunkPayload struct {
	Rows    int
	IntCols [][]int64
	StrCols [][]string
}

// WriteFile writes a table to path as a single-chunk lz4-framed gob file.
// The header records the exact row count, so scans of these files answer
// NumRows without touching the data.
func WriteFile(path string, t *Table) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("table: create %s: %w", path, err)
	}

	zw := lz4.NewWriter(f)
	enc := gob.NewEncoder(zw)

	sink := &Sink{f: f, zw: zw, enc: enc, fields: t.Schema(), path: path}

	err = enc.Encode(fileHeader{Fields: sink.fields, Rows: int64(t.NumRows())})
	if err != nil {
		zw.Close()
		f.Close()

		return fmt.Errorf("table: write header %s: %w", path, err)
	}

	writeErr := sink.Write(t)

	closeErr := sink.Close()

	if writeErr != nil {
		return writeErr
	}

	return closeErr
}

// ReadFile materializes an entire table file into memory.
func ReadFile(path string) (*Table, error) {
	scan, err := OpenScan(path)
	if err != nil {
		return nil, err
	}

	return scan.Materialize()
}

// Sink writes a table file incrementally, one chunk per Write call.
// Files written through a sink record an unknown row count in the header.
type Sink struct {
	f      *os.File
	zw     *lz4.Writer
	enc    *gob.Encoder
	fields []Field
	path   string
}

// CreateSink creates path and writes the header. The caller must Close.
func CreateSink(path string, fields []Field) (*Sink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("table: create %s: %w", path, err)
	}

	zw := lz4.NewWriter(f)
	enc := gob.NewEncoder(zw)

	err = enc.Encode(fileHeader{Fields: fields, Rows: rowsUnknown})
	if err != nil {
		zw.Close()
		f.Close()

		return nil, fmt.Errorf("table: write header %s: %w", path, err)
	}

	return &Sink{f: f, zw: zw, enc: enc, fields: fields, path: path}, nil
}

// Write appends one chunk. The table schema must match the sink's.
func (s *Sink) Write(t *Table) error {
	if err := sameFields(s.fields, t.Schema()); err != nil {
		return err
	}

	payload := chunkPayload{
		Rows:    t.NumRows(),
		IntCols: make([][]int64, len(s.fields)),
		StrCols: make([][]string, len(s.fields)),
	}

	for i, f := range s.fields {
		c, _ := t.Column(f.Name)
		if f.Kind == KindString {
			payload.StrCols[i] = c.Strs
		} else {
			payload.IntCols[i] = c.Ints
		}
	}

	err := s.enc.Encode(payload)
	if err != nil {
		return fmt.Errorf("table: write chunk %s: %w", s.path, err)
	}

	return nil
}

// Close flushes the compression frame and closes the file.
func (s *Sink) Close() error {
	zErr := s.zw.Close()
	fErr := s.f.Close()

	if zErr != nil {
		return fmt.Errorf("table: close %s: %w", s.path, zErr)
	}

	if fErr != nil {
		return fmt.Errorf("table: close %s: %w", s.path, fErr)
	}

	return nil
}

// Scan is a lazy reference to a table file. Opening a scan reads only the
// header; the data stays on disk until Materialize.
type Scan struct {
	path   string
	fields []Field
	rows   int64
}

// OpenScan reads the header of a table file and returns a lazy scan.
func OpenScan(path string) (*Scan, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("table: open %s: %w", path, err)
	}

	defer f.Close()

	var header fileHeader

	err = gob.NewDecoder(lz4.NewReader(f)).Decode(&header)
	if err != nil {
		return nil, fmt.Errorf("table: read header %s: %w", path, err)
	}

	return &Scan{path: path, fields: header.Fields, rows: header.Rows}, nil
}

// Path returns the scanned file path.
func (s *Scan) Path() string {
	return s.path
}

// Schema returns the file's field descriptors.
func (s *Scan) Schema() []Field {
	fields := make([]Field, len(s.fields))
	copy(fields, s.fields)

	return fields
}

// NumRowsFromHeader returns the row count recorded in the header, without
// touching the data. Sink-written files record no count; they return
// ErrRowsUnknown.
func (s *Scan) NumRowsFromHeader() (int, error) {
	if s.rows < 0 {
		return 0, fmt.Errorf("%w: %s", ErrRowsUnknown, s.path)
	}

	return int(s.rows), nil
}

// NumRows returns the total row count. For single-file writes it comes
// from the header without touching the data; sink-written files are
// streamed chunk by chunk to count, never fully resident.
func (s *Scan) NumRows() (int, error) {
	if s.rows >= 0 {
		return int(s.rows), nil
	}

	total := 0

	err := s.forEachChunk(func(p chunkPayload) error {
		total += p.Rows

		return nil
	})
	if err != nil {
		return 0, err
	}

	s.rows = int64(total)

	return total, nil
}

// Materialize reads the whole file into an in-memory table.
func (s *Scan) Materialize() (*Table, error) {
	cols := make([]Column, len(s.fields))
	for i, f := range s.fields {
		cols[i] = Column{Name: f.Name, Kind: f.Kind}
	}

	rows := 0

	err := s.forEachChunk(func(p chunkPayload) error {
		rows += p.Rows

		for i, f := range s.fields {
			if f.Kind == KindString {
				cols[i].Strs = append(cols[i].Strs, p.StrCols[i]...)
			} else {
				cols[i].Ints = append(cols[i].Ints, p.IntCols[i]...)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &Table{cols: cols, rows: rows}, nil
}

// Slice streams the file and assembles only rows [offset, offset+length).
// A negative length takes everything from offset. Memory use is bounded by
// one chunk plus the requested rows, never the whole file.
func (s *Scan) Slice(offset, length int) (*Table, error) {
	if offset < 0 {
		offset = 0
	}

	cols := make([]Column, len(s.fields))
	for i, f := range s.fields {
		cols[i] = Column{Name: f.Name, Kind: f.Kind}
	}

	taken := 0
	rowStart := 0

	err := s.forEachChunk(func(p chunkPayload) error {
		chunkStart, chunkEnd := rowStart, rowStart+p.Rows
		rowStart = chunkEnd

		from := max(offset, chunkStart)

		to := chunkEnd
		if length >= 0 {
			to = min(to, offset+length)
		}

		if from >= to {
			return nil
		}

		lo, hi := from-chunkStart, to-chunkStart

		for i, f := range s.fields {
			if f.Kind == KindString {
				cols[i].Strs = append(cols[i].Strs, p.StrCols[i][lo:hi]...)
			} else {
				cols[i].Ints = append(cols[i].Ints, p.IntCols[i][lo:hi]...)
			}
		}

		taken += hi - lo

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &Table{cols: cols, rows: taken}, nil
}

func (s *Scan) forEachChunk(fn func(chunkPayload) error) error {
	f, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("table: open %s: %w", s.path, err)
	}

	defer f.Close()

	dec := gob.NewDecoder(lz4.NewReader(f))

	var header fileHeader

	err = dec.Decode(&header)
	if err != nil {
		return fmt.Errorf("table: read header %s: %w", s.path, err)
	}

	for {
		var payload chunkPayload

		err = dec.Decode(&payload)
		if errors.Is(err, io.EOF) {
			return nil
		}

		if err != nil {
			return fmt.Errorf("table: read chunk %s: %w", s.path, err)
		}

		err = fn(payload)
		if err != nil {
			return err
		}
	}
}

func sameFields(a, b []Field) error {
	if len(a) != len(b) {
		return fmt.Errorf("%w: %d fields vs %d", ErrSchemaMismatch, len(a), len(b))
	}

	for i := range a {
		if a[i] != b[i] {
			return fmt.Errorf("%w: field %d is %s %q vs %s %q",
				ErrSchemaMismatch, i, a[i].Kind, a[i].Name, b[i].Kind, b[i].Name)
		}
	}

	return nil
}
