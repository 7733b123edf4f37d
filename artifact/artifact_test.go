package artifact

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/carbocation/tkvseg"
	"github.com/carbocation/tkvseg/dicomio"
	"github.com/carbocation/tkvseg/index"
	"github.com/carbocation/tkvseg/overlay"
	"github.com/carbocation/tkvseg/sample"
	"gonum.org/v1/gonum/mat"
)

type fakeDecoder map[string]dicomio.Meta

func (f fakeDecoder) Meta(path string) (dicomio.Meta, error) {
	m, ok := f[path]
	if !ok {
		return dicomio.Meta{}, errors.New("missing")
	}
	return m, nil
}

func (f fakeDecoder) Pixels(path string) (dicomio.Pixels, error) {
	px := dicomio.Pixels{Rows: 4, Cols: 4, Pix: make([]int16, 16)}
	for i := range px.Pix {
		px.Pix[i] = int16(i)
	}
	return px, nil
}

func (f fakeDecoder) Label(path string) (overlay.IDPlane, error) {
	p := overlay.IDPlane{Rows: 4, Cols: 4, Pix: make([]uint8, 16)}
	p.Pix[0], p.Pix[5] = 1, 2
	return p, nil
}

func TestWriteLoadStudy(t *testing.T) {
	root := t.TempDir()
	w := Writer{Root: root, Model: "m"}

	attrs := Attributes{
		FileAttributes:     index.FileAttributes{Patient: "P", Study: "MR", Dim: [2]int{4, 4}, VoxelVolume: 1.5},
		TransformResizeDim: [2]int{2, 2},
	}
	for _, stem := range []string{"b", "a"} {
		pred := mat.NewDense(2, 2, []float64{1, 0, 0, 1})
		if err := w.Write(Slice{Stem: stem, Attributes: attrs, Image: pred, Pred: pred, Ground: pred}); err != nil {
			t.Fatal(err)
		}
	}

	refs, err := Studies(root, "m", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(refs) != 1 || refs[0].Name() != "PMR" {
		t.Fatalf("unexpected studies %+v", refs)
	}

	st, err := LoadStudy(refs[0])
	if err != nil {
		t.Fatal(err)
	}
	if len(st.Preds) != 2 || len(st.Ground) != 2 || st.Stems[0] != "a" {
		t.Errorf("unexpected study %+v", st.Stems)
	}
	if st.Reference().VoxelVolume != 1.5 || st.Reference().TransformResizeDim != [2]int{2, 2} {
		t.Errorf("attributes lost: %+v", st.Reference())
	}
	if st.Preds[1].At(1, 1) != 1 {
		t.Errorf("prediction lost")
	}
}

func TestLoadStudyEmpty(t *testing.T) {
	dir := t.TempDir()
	if _, err := LoadStudy(StudyRef{Dir: dir}); !errors.Is(err, ErrEmptyStudy) {
		t.Errorf("expected ErrEmptyStudy, got %v", err)
	}
}

func buildIndex(t *testing.T) (*index.Index, fakeDecoder) {
	dec := fakeDecoder{}
	var paths []string
	for s := 0; s < 2; s++ {
		path := fmt.Sprintf("/d/P/MR/s%d.dcm", s)
		paths = append(paths, path)
		dec[path] = dicomio.Meta{PatientID: "P", Rows: 4, Cols: 4, PixelSpacing: [2]float64{1, 1}, SliceThickness: 1, Z: float64(s), HasZ: true}
	}
	idx := index.Build(paths, index.Options{Decoder: dec, Labeled: true})
	if idx.Len() != 2 {
		t.Fatalf("expected 2 files, got %d", idx.Len())
	}
	return idx, dec
}

func TestExportWithMaskFolder(t *testing.T) {
	idx, dec := buildIndex(t)

	masks := t.TempDir()
	for s := 0; s < 2; s++ {
		img := image.NewGray(image.Rect(0, 0, 4, 4))
		img.Pix[0] = 1
		f, err := os.Create(filepath.Join(masks, fmt.Sprintf("s%d.dcm.png", s)))
		if err != nil {
			t.Fatal(err)
		}
		if err := png.Encode(f, img); err != nil {
			t.Fatal(err)
		}
		f.Close()
	}

	enc := overlay.MultiClassKidney{Labels: overlay.KidneyLabels()}
	seg := sample.NewSegmentation(idx, sample.Options{
		Decoder:     dec,
		Encoder:     enc,
		Augmenter:   sample.Resize{Height: 2, Width: 2},
		OutputIndex: true,
	})

	h, w, ok := sample.ResizeDims(sample.Resize{Height: 2, Width: 2})
	if !ok {
		t.Fatal("no resize")
	}
	bg, hasBG := overlay.BackgroundChannel(enc)

	root := t.TempDir()
	n, err := Export(seg, MaskFolderPredictor{Dir: masks}, Writer{Root: root, Model: "ext"}, ExportOptions{
		ResizeDim:         [2]int{h, w},
		BackgroundChannel: bg,
		HasBackground:     hasBG,
	})
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("expected 2 exported slices, got %d", n)
	}

	st, err := LoadStudy(StudyRef{Dir: filepath.Join(root, "ext", "P", "MR"), Patient: "P", Study: "MR"})
	if err != nil {
		t.Fatal(err)
	}
	r, c := st.Preds[0].Dims()
	if r != 2 || c != 2 {
		t.Errorf("expected 2x2 predictions, got %dx%d", r, c)
	}
	if st.Reference().TransformResizeDim != [2]int{2, 2} || st.Reference().Dim != [2]int{4, 4} {
		t.Errorf("unexpected attributes %+v", st.Reference())
	}
	for _, g := range st.Ground {
		for _, v := range g.RawMatrix().Data {
			if v != 0 && v != 1 {
				t.Errorf("ground is not binary: %v", g.RawMatrix().Data)
			}
		}
	}
}

// brokenFirst fails to decode the pixels of the first slice.
type brokenFirst struct{ fakeDecoder }

func (b brokenFirst) Pixels(path string) (dicomio.Pixels, error) {
	if path == "/d/P/MR/s0.dcm" {
		return dicomio.Pixels{}, &tkvseg.DecodeError{Path: path, Err: errors.New("truncated pixel data")}
	}
	return b.fakeDecoder.Pixels(path)
}

func TestExportSkipsUndecodableFirstSlice(t *testing.T) {
	idx, dec := buildIndex(t)
	seg := sample.NewSegmentation(idx, sample.Options{Decoder: brokenFirst{dec}, OutputIndex: true})

	pred := PredictorFunc(func(s sample.Sample, path string) (*mat.Dense, error) {
		return mat.NewDense(s.Rows, s.Cols, nil), nil
	})

	root := t.TempDir()
	n, err := Export(seg, pred, Writer{Root: root, Model: "m"}, ExportOptions{ResizeDim: [2]int{4, 4}})
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("expected the second slice to be exported, got %d", n)
	}
	if _, err := os.Stat(filepath.Join(root, "m", "P", "MR", "s1"+AttribSuffix)); err != nil {
		t.Error(err)
	}
}

func TestExportRequiresIndices(t *testing.T) {
	idx, dec := buildIndex(t)
	seg := sample.NewSegmentation(idx, sample.Options{Decoder: dec})

	_, err := Export(seg, MaskFolderPredictor{}, Writer{Root: t.TempDir(), Model: "m"}, ExportOptions{ResizeDim: [2]int{4, 4}})
	if !tkvseg.IsConfigurationError(err) {
		t.Errorf("expected a ConfigurationError, got %v", err)
	}
}

func TestStem(t *testing.T) {
	for in, want := range map[string]string{
		"/d/P/MR/IM-0001.dcm":    "IM-0001",
		"/d/P/MR/IM-0001.dcm.gz": "IM-0001",
	} {
		if got := Stem(in); got != want {
			t.Errorf("%s: expected %s, got %s", in, want, got)
		}
	}
}
