package tkvseg

import (
	"bytes"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestDetectCompression(t *testing.T) {
	cases := []struct {
		header []byte
		want   Compression
	}{
		{[]byte{0x1f, 0x8b, 0x08, 0, 0, 0}, CompressionGzip},
		{[]byte{0x50, 0x4b, 0x03, 0x04, 0, 0}, CompressionZip},
		{[]byte{0x42, 0x5a, 0x68, 0x39}, CompressionBZip2},
		{[]byte("DICM"), CompressionNone},
		{[]byte{0x1f}, CompressionNone},
	}

	for _, c := range cases {
		if got := DetectCompression(c.header); got != c.want {
			t.Errorf("%x: expected %d, got %d", c.header, c.want, got)
		}
	}
}

func TestTrimCompressionExt(t *testing.T) {
	for in, want := range map[string]string{
		"a/b.dcm.gz":  "a/b.dcm",
		"a/b.dcm.BZ2": "a/b.dcm",
		"a/b.dcm":     "a/b.dcm",
	} {
		if got := TrimCompressionExt(in); got != want {
			t.Errorf("%s: expected %s, got %s", in, want, got)
		}
	}
}

func readBack(t *testing.T, path string) string {
	f, size, err := OpenDecompressed(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	b, err := io.ReadAll(f)
	if err != nil {
		t.Fatal(err)
	}
	if int64(len(b)) != size {
		t.Errorf("size %d disagrees with %d bytes read", size, len(b))
	}
	return string(b)
}

func TestOpenDecompressed(t *testing.T) {
	dir := t.TempDir()
	payload := "not really a dicom"

	plain := filepath.Join(dir, "a.dcm")
	if err := os.WriteFile(plain, []byte(payload), 0644); err != nil {
		t.Fatal(err)
	}

	var gz bytes.Buffer
	zw := gzip.NewWriter(&gz)
	zw.Write([]byte(payload))
	zw.Close()
	gzPath := filepath.Join(dir, "a.dcm.gz")
	if err := os.WriteFile(gzPath, gz.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}

	for _, path := range []string{plain, gzPath} {
		if got := readBack(t, path); got != payload {
			t.Errorf("%s: expected %q, got %q", path, payload, got)
		}
	}
}
