package index

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"testing"

	"github.com/carbocation/tkvseg"
	"github.com/carbocation/tkvseg/dicomio"
	"github.com/carbocation/tkvseg/dicomio/dicomiotest"
	"github.com/carbocation/tkvseg/overlay"
)

type fakeDecoder struct {
	meta   map[string]dicomio.Meta
	labels map[string]overlay.IDPlane
}

func (f fakeDecoder) Meta(path string) (dicomio.Meta, error) {
	m, ok := f.meta[path]
	if !ok {
		return dicomio.Meta{}, &tkvseg.DecodeError{Path: path, Err: errors.New("no such file")}
	}
	return m, nil
}

func (f fakeDecoder) Pixels(path string) (dicomio.Pixels, error) {
	return dicomio.Pixels{}, errors.New("not implemented")
}

func (f fakeDecoder) Label(path string) (overlay.IDPlane, error) {
	l, ok := f.labels[path]
	if !ok {
		return overlay.IDPlane{}, &tkvseg.DecodeError{Path: path, Err: errors.New("no such label")}
	}
	return l, nil
}

func labelWith(n int) overlay.IDPlane {
	p := overlay.IDPlane{Rows: 4, Cols: 4, Pix: make([]uint8, 16)}
	for i := 0; i < n; i++ {
		p.Pix[i] = 1
	}
	return p
}

// twoPatients builds 2 patients × 3 slices with voxel volume 2.0. Patient A
// has 10 kidney pixels on its first slice, patient B has none.
func twoPatients() ([]string, fakeDecoder) {
	dec := fakeDecoder{meta: map[string]dicomio.Meta{}, labels: map[string]overlay.IDPlane{}}
	var paths []string

	for _, patient := range []string{"A", "B"} {
		for s := 0; s < 3; s++ {
			path := fmt.Sprintf("/data/%s/study1/%d.dcm", patient, s)
			paths = append(paths, path)
			dec.meta[path] = dicomio.Meta{
				PatientID:         patient,
				SeriesDescription: "COR SSFSE",
				Rows:              4,
				Cols:              4,
				PixelSpacing:      [2]float64{1, 1},
				SliceThickness:    2,
				Z:                 float64(s),
				HasZ:              true,
			}
			n := 0
			if patient == "A" && s == 0 {
				n = 10
			}
			dec.labels[path+DefaultLabelSuffix] = labelWith(n)
		}
	}

	return paths, dec
}

func TestBuildStudyTKV(t *testing.T) {
	paths, dec := twoPatients()

	idx := Build(paths, Options{Decoder: dec, Labeled: true})

	if idx.Len() != 6 {
		t.Fatalf("expected 6 files, got %d", idx.Len())
	}
	if !reflect.DeepEqual(idx.Order, []string{"A", "B"}) {
		t.Errorf("unexpected patient order %v", idx.Order)
	}

	for _, path := range idx.Patients["A"] {
		a := idx.Files[path]
		if a.Study != "study1" {
			t.Errorf("expected study1, got %q", a.Study)
		}
		if a.VoxelVolume != 2 {
			t.Errorf("expected voxel volume 2, got %v", a.VoxelVolume)
		}
		if a.StudyTKV != 20 {
			t.Errorf("%s: expected study TKV 20, got %v", path, a.StudyTKV)
		}
	}

	for _, path := range idx.Patients["B"] {
		if tkv := idx.Files[path].StudyTKV; tkv != 0 {
			t.Errorf("%s: expected study TKV 0, got %v", path, tkv)
		}
	}
}

func TestBuildRejectsUnreadable(t *testing.T) {
	paths, dec := twoPatients()
	paths = append(paths, "/data/C/study1/broken.dcm")

	idx := Build(paths, Options{Decoder: dec})

	if idx.Len() != 6 {
		t.Errorf("expected 6 files, got %d", idx.Len())
	}
	if err, ok := idx.Rejected["/data/C/study1/broken.dcm"]; !ok || !tkvseg.IsDecodeError(err) {
		t.Errorf("expected the broken file to be rejected with a DecodeError, got %v", err)
	}
	if _, ok := idx.Patients["C"]; ok {
		t.Error("rejected files must not create patients")
	}
}

func TestFilterPatientsIdempotent(t *testing.T) {
	paths, dec := twoPatients()
	idx := Build(paths, Options{Decoder: dec})

	once := FilterPatients(idx, []string{"B"})
	twice := FilterPatients(once, []string{"B"})

	if !reflect.DeepEqual(once.Paths(), twice.Paths()) {
		t.Errorf("filter is not idempotent: %v vs %v", once.Paths(), twice.Paths())
	}
	if !reflect.DeepEqual(once.Paths(), idx.Patients["B"]) {
		t.Errorf("filter changed the order of files: %v", once.Paths())
	}
}

func TestChain(t *testing.T) {
	paths, dec := twoPatients()
	idx := Build(paths, Options{Decoder: dec, Labeled: true})

	f := Chain(LabeledFilter{}, SeriesFilter{Pattern: regexp.MustCompile(`^COR`)}, PatientFilter{IDs: []string{"A"}})
	got := f.Apply(idx)

	if got.Len() != 3 {
		t.Errorf("expected 3 files, got %d", got.Len())
	}

	none := SeriesFilter{Pattern: regexp.MustCompile(`AX`)}.Apply(idx)
	if none.Len() != 0 || len(none.Order) != 0 {
		t.Errorf("expected an empty index, got %d files", none.Len())
	}
}

func TestBuildFromFiles(t *testing.T) {
	root := t.TempDir()

	for s := 0; s < 3; s++ {
		dir := filepath.Join(root, "P1", "MR1")
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatal(err)
		}
		path := filepath.Join(dir, fmt.Sprintf("slice%d.dcm", s))

		err := dicomiotest.Write(path, dicomiotest.Slice{
			PatientID:      "P1",
			Rows:           4,
			Cols:           4,
			PixelSpacing:   [2]float64{1, 1},
			SliceThickness: 2,
			Z:              float64(s),
		})
		if err != nil {
			t.Fatal(err)
		}

		label := image.NewGray(image.Rect(0, 0, 4, 4))
		if s == 1 {
			for i := 0; i < 10; i++ {
				label.Pix[i] = 1
			}
		}
		f, err := os.Create(path + DefaultLabelSuffix)
		if err != nil {
			t.Fatal(err)
		}
		if err := png.Encode(f, label); err != nil {
			t.Fatal(err)
		}
		f.Close()
	}

	paths, err := Discover(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 3 {
		t.Fatalf("expected 3 dicoms, got %d: %v", len(paths), paths)
	}

	idx := Build(paths, Options{Labeled: true})
	if len(idx.Rejected) != 0 {
		t.Fatalf("unexpected rejections: %v", idx.Rejected)
	}

	for _, path := range paths {
		a := idx.Files[path]
		if a.Study != "MR1" {
			t.Errorf("expected study MR1, got %q", a.Study)
		}
		if a.StudyTKV != 20 {
			t.Errorf("expected study TKV 20, got %v", a.StudyTKV)
		}
	}
}
