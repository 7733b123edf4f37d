package tkvseg

import (
	"bytes"
	"compress/bzip2"
	"compress/gzip"
	"compress/zlib"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/carbocation/pfx"
	"github.com/krolaw/zipstream"
	"github.com/xi2/xz"
)

// Compression identifies how an archived DICOM or label file is packed.
type Compression byte

const (
	CompressionNone Compression = iota
	CompressionGzip
	CompressionZip
	CompressionXZ
	CompressionZ
	CompressionBZip2
)

var byteCodeSigs = map[Compression][]byte{
	CompressionGzip:  {0x1f, 0x8b, 0x08},
	CompressionZip:   {0x50, 0x4b, 0x03, 0x04},
	CompressionXZ:    {0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00},
	CompressionZ:     {0x1f, 0x9d},
	CompressionBZip2: {0x42, 0x5a, 0x68},
}

// compressedExts are stripped by TrimCompressionExt.
var compressedExts = []string{".gz", ".zip", ".xz", ".z", ".bz2"}

// DetectCompression matches the leading bytes of a file against known
// signatures. Byte code signatures from
// https://stackoverflow.com/a/19127748/199475
func DetectCompression(header []byte) Compression {
Outer:
	for c, sig := range byteCodeSigs {
		if len(header) < len(sig) {
			continue
		}
		for position := range sig {
			if header[position] != sig[position] {
				continue Outer
			}
		}
		return c
	}

	return CompressionNone
}

// TrimCompressionExt drops a trailing compression extension, so that
// a.dcm.gz is recognized as a.dcm.
func TrimCompressionExt(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	for _, c := range compressedExts {
		if ext == c {
			return strings.TrimSuffix(path, filepath.Ext(path))
		}
	}
	return path
}

// Decompress wraps r in the reader for c. Zip archives yield their first
// entry.
func Decompress(r io.Reader, c Compression) (io.Reader, error) {
	switch c {
	case CompressionNone:
		return r, nil
	case CompressionGzip:
		return gzip.NewReader(r)
	case CompressionZ:
		return zlib.NewReader(r)
	case CompressionBZip2:
		return bzip2.NewReader(r), nil
	case CompressionXZ:
		return xz.NewReader(r, 0)
	case CompressionZip:
		zr := zipstream.NewReader(r)
		if _, err := zr.Next(); err != nil {
			return nil, err
		}
		return zr, nil
	}

	return nil, fmt.Errorf("unknown compression %d", c)
}

// memFile "upgrades" an in-memory buffer to a ReaderAtCloser
type memFile struct {
	*bytes.Reader
}

func (memFile) Close() error { return nil }

// OpenDecompressed is Open for files that may be compressed. Compressed
// files are inflated into memory; others are returned as Open returns them.
func OpenDecompressed(path string) (ReaderAtCloser, int64, error) {
	f, size, err := Open(path)
	if err != nil {
		return nil, 0, err
	}

	header := make([]byte, 6)
	n, err := f.ReadAt(header, 0)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		f.Close()
		return nil, 0, pfx.Err(err)
	}

	c := DetectCompression(header[:n])
	if c == CompressionNone {
		return f, size, nil
	}
	defer f.Close()

	r, err := Decompress(f, c)
	if err != nil {
		return nil, 0, pfx.Err(fmt.Errorf("%s: %v", path, err))
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, 0, pfx.Err(fmt.Errorf("%s: %v", path, err))
	}

	return memFile{bytes.NewReader(data)}, int64(len(data)), nil
}
