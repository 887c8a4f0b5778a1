package execlog

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"os"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var gzipMagic = []byte{0x1f, 0x8b}

// File is a Decoder over a log file on disk.
type File struct {
	*Decoder

	Path       string
	Compressed bool

	f  *os.File
	gz *gzip.Reader
}

// Open opens the log at path for decoding.
//
// Gzip-compressed logs are detected by their magic bytes and decompressed
// transparently. A leading byte order mark is stripped; UTF-16 logs with a
// BOM are transcoded to UTF-8. Logs without a BOM pass through unchanged.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	lf := &File{Path: path, f: f}

	br := bufio.NewReader(f)
	var r io.Reader = br
	if magic, err := br.Peek(len(gzipMagic)); err == nil && bytes.Equal(magic, gzipMagic) {
		gz, err := gzip.NewReader(br)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("open %s: gzip: %w", path, err)
		}
		lf.gz = gz
		lf.Compressed = true
		r = gz
	}

	r = transform.NewReader(r, unicode.BOMOverride(encoding.Nop.NewDecoder()))
	lf.Decoder = NewDecoder(r)
	return lf, nil
}

// Close releases the underlying file.
func (lf *File) Close() error {
	if lf.gz != nil {
		if err := lf.gz.Close(); err != nil {
			lf.f.Close()
			return fmt.Errorf("close %s: %w", lf.Path, err)
		}
	}
	if err := lf.f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", lf.Path, err)
	}
	return nil
}
