package split

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/carbocation/tkvseg"
	"github.com/carbocation/tkvseg/dicomio"
	"github.com/carbocation/tkvseg/index"
	"github.com/carbocation/tkvseg/overlay"
)

type metaOnly map[string]dicomio.Meta

func (m metaOnly) Meta(path string) (dicomio.Meta, error) { return m[path], nil }

func (m metaOnly) Pixels(string) (dicomio.Pixels, error) { return dicomio.Pixels{}, nil }

func (m metaOnly) Label(string) (overlay.IDPlane, error) { return overlay.IDPlane{}, nil }

func smallIndex() *index.Index {
	dec := metaOnly{}
	var paths []string
	for _, p := range []string{"A", "B", "C"} {
		for s := 0; s < 2; s++ {
			path := fmt.Sprintf("/d/%s/mr/%d.dcm", p, s)
			paths = append(paths, path)
			dec[path] = dicomio.Meta{PatientID: p, Rows: 2, Cols: 2}
		}
	}
	return index.Build(paths, index.Options{Decoder: dec})
}

type fixed Split

func (f fixed) Split([]string) (Split, error) { return Split(f), nil }

func TestResolve(t *testing.T) {
	idx := smallIndex()

	got, order, err := Resolve(idx, fixed{"TEST": {"C", "A"}}, "TEST")
	if err != nil {
		t.Fatal(err)
	}
	if got.Len() != 4 {
		t.Errorf("expected 4 files, got %d", got.Len())
	}
	if !reflect.DeepEqual(order, []string{"C", "A"}) {
		t.Errorf("expected the split's patient order, got %v", order)
	}

	if _, _, err := Resolve(idx, fixed{"TEST": {"Z"}}, "TEST"); !tkvseg.IsConfigurationError(err) {
		t.Errorf("expected a ConfigurationError for an empty partition, got %v", err)
	}
	if _, _, err := Resolve(idx, fixed{"TEST": {"A"}}, "VAL"); !tkvseg.IsConfigurationError(err) {
		t.Errorf("expected a ConfigurationError for a missing key, got %v", err)
	}
}
