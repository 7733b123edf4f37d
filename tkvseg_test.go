package tkvseg

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/carbocation/pfx"
)

func TestTaxonomyThroughWrapping(t *testing.T) {
	decode := &DecodeError{Path: "a.dcm", Err: os.ErrNotExist}
	wrapped := fmt.Errorf("index: %w", decode)

	if !IsDecodeError(wrapped) {
		t.Error("expected a DecodeError through wrapping")
	}
	if !errors.Is(wrapped, os.ErrNotExist) {
		t.Error("DecodeError should unwrap to its cause")
	}

	cases := []struct {
		err   error
		check func(error) bool
	}{
		{NewConfigurationError("split.key", "partition %q is missing", "TRAIN"), IsConfigurationError},
		{&MissingMetadataError{Study: "PMR", Field: "dim"}, IsMissingMetadataError},
		{&ShapeMismatchError{Op: "stack", Want: "2x2", Got: "3x3"}, IsShapeMismatchError},
	}
	for _, c := range cases {
		if !c.check(fmt.Errorf("outer: %w", c.err)) {
			t.Errorf("%v not recognized through wrapping", c.err)
		}
		if IsDecodeError(c.err) {
			t.Errorf("%v misclassified as a DecodeError", c.err)
		}
	}
}

func TestConfigurationErrorMessage(t *testing.T) {
	err := NewConfigurationError("stats.threshold", "must be in (0, 1), got %v", 2)
	if err.Error() != "configuration stats.threshold: must be in (0, 1), got 2" {
		t.Errorf("unexpected message %q", err)
	}
	if (&ConfigurationError{Msg: "x"}).Error() != "configuration: x" {
		t.Error("unexpected message without a field")
	}
}

func TestOpenLocal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f.bin")
	if err := os.WriteFile(path, []byte("kidney"), 0644); err != nil {
		t.Fatal(err)
	}

	f, size, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if size != 6 {
		t.Errorf("expected size 6, got %d", size)
	}

	buf := make([]byte, 3)
	if _, err := f.ReadAt(buf, 3); err != nil || string(buf) != "ney" {
		t.Errorf("ReadAt: %q %v", buf, err)
	}

	b, err := ReadAll(path)
	if err != nil || string(b) != "kidney" {
		t.Errorf("ReadAll: %q %v", b, err)
	}
}

func TestOpenMissing(t *testing.T) {
	if _, _, err := Open(filepath.Join(t.TempDir(), "nope")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected not-exist, got %v", pfx.Err(err))
	}
}

func TestGoogleStorageNeedsClient(t *testing.T) {
	if !IsGoogleStoragePath("gs://bucket/key") || IsGoogleStoragePath("/gs/bucket") {
		t.Error("gs:// detection is wrong")
	}
	if _, _, err := MaybeOpenFromGoogleStorage("gs://bucket/key", nil); err == nil {
		t.Error("expected an error without a client")
	}
}
