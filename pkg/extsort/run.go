package extsort

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/pierrec/lz4/v4"
)

// Run files hold length-prefixed strings inside an lz4 frame. Each file is
// written once, read once sequentially, then deleted.

// writeRun writes sorted values to path. The file is complete and flushed
// when writeRun returns nil.
func writeRun(path string, values []string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("extsort: create run %s: %w", path, err)
	}

	zw := lz4.NewWriter(f)
	bw := bufio.NewWriter(zw)

	var lenBuf [binary.MaxVarintLen64]byte

	for _, v := range values {
		n := binary.PutUvarint(lenBuf[:], uint64(len(v)))

		_, err = bw.Write(lenBuf[:n])
		if err == nil {
			_, err = bw.WriteString(v)
		}

		if err != nil {
			zw.Close()
			f.Close()

			return fmt.Errorf("extsort: write run %s: %w", path, err)
		}
	}

	err = bw.Flush()
	if err == nil {
		err = zw.Close()
	}

	closeErr := f.Close()

	if err != nil {
		return fmt.Errorf("extsort: flush run %s: %w", path, err)
	}

	if closeErr != nil {
		return fmt.Errorf("extsort: close run %s: %w", path, closeErr)
	}

	return nil
}

// runReader is a sequential cursor over one run file. Only the current
// value is resident.
type runReader struct {
	f    *os.File
	br   *bufio.Reader
	path string
}

func openRun(path string) (*runReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("extsort: open run %s: %w", path, err)
	}

	return &runReader{f: f, br: bufio.NewReader(lz4.NewReader(f)), path: path}, nil
}

// next returns the next value. ok is false at a clean end of file; any
// other condition is an error.
func (r *runReader) next() (value string, ok bool, err error) {
	length, err := binary.ReadUvarint(r.br)
	if errors.Is(err, io.EOF) {
		return "", false, nil
	}

	if err != nil {
		return "", false, fmt.Errorf("extsort: read run %s: %w", r.path, err)
	}

	buf := make([]byte, length)

	_, err = io.ReadFull(r.br, buf)
	if err != nil {
		return "", false, fmt.Errorf("extsort: read run %s: %w", r.path, err)
	}

	return string(buf), true, nil
}

func (r *runReader) close() {
	r.f.Close()
}
