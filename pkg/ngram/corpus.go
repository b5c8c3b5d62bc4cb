package ngram

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Sumatoshi-tech/textfang/pkg/table"
	"github.com/Sumatoshi-tech/textfang/pkg/textutil"
)

// corpusScanBuffer is the maximum accepted line length (1 MiB); the corpus
// model is many short records, not documents.
const corpusScanBuffer = 1 << 20

// ErrBinaryCorpus indicates the corpus file looks like binary data.
var ErrBinaryCorpus = errors.New("ngram: corpus file is binary")

// LoadCorpus reads a plain-text file of one record per line into a
// (record_id, text) table. Record ids are line numbers starting at 0.
// Binary files are rejected.
func LoadCorpus(path string) (*table.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ngram: open corpus %s: %w", path, err)
	}

	defer f.Close()

	sniff := make([]byte, textutil.BinarySniffLength)

	n, err := f.Read(sniff)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("ngram: read corpus %s: %w", path, err)
	}

	if textutil.IsBinary(sniff[:n]) {
		return nil, fmt.Errorf("%w: %s", ErrBinaryCorpus, path)
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("ngram: rewind corpus %s: %w", path, err)
	}

	var (
		ids   []int64
		texts []string
	)

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, bufio.MaxScanTokenSize), corpusScanBuffer)

	for scanner.Scan() {
		ids = append(ids, int64(len(ids)))
		texts = append(texts, scanner.Text())
	}

	err = scanner.Err()
	if err != nil {
		return nil, fmt.Errorf("ngram: read corpus %s: %w", path, err)
	}

	return table.New(
		table.Int64Column(ColRecordID, ids),
		table.StringColumn(ColText, texts),
	)
}
