package engine

import "github.com/Sumatoshi-tech/textfang/pkg/table"

// Source is an ordered (record_id, text) dataset the strategies pull
// windows from. A source may not know its row count up front (streaming
// inputs); strategies then terminate on consecutive empty windows.
type Source interface {
	// NumRows returns the total row count and whether it is known without
	// materializing the data.
	NumRows() (count int, known bool)

	// Slice materializes rows [offset, offset+length). A negative length
	// takes everything from offset. Out-of-range windows yield empty
	// tables, not errors.
	Slice(offset, length int) (*table.Table, error)
}

// TableSource adapts an in-memory table.
type TableSource struct {
	tbl *table.Table
}

// NewTableSource wraps a resident table as a Source.
func NewTableSource(t *table.Table) *TableSource {
	return &TableSource{tbl: t}
}

// NumRows implements Source; in-memory counts are always known.
func (s *TableSource) NumRows() (int, bool) {
	return s.tbl.NumRows(), true
}

// Slice implements Source.
func (s *TableSource) Slice(offset, length int) (*table.Table, error) {
	return s.tbl.Slice(offset, length), nil
}

// ScanSource adapts a lazy table file scan. Windows are assembled by
// streaming the file, so memory stays bounded by one window regardless of
// file size.
type ScanSource struct {
	scan *table.Scan
}

// NewScanSource wraps a lazy scan as a Source.
func NewScanSource(scan *table.Scan) *ScanSource {
	return &ScanSource{scan: scan}
}

// NumRows implements Source. Sink-written files would need a full pass to
// count, so their size is reported as unknown rather than paid for here.
func (s *ScanSource) NumRows() (int, bool) {
	rows, err := s.scan.NumRowsFromHeader()
	if err != nil {
		return 0, false
	}

	return rows, true
}

// Slice implements Source.
func (s *ScanSource) Slice(offset, length int) (*table.Table, error) {
	return s.scan.Slice(offset, length)
}
