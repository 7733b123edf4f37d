package artifact

import (
	"fmt"
	"image"
	"path/filepath"

	"github.com/carbocation/tkvseg"
	"github.com/carbocation/tkvseg/overlay"
	"github.com/carbocation/tkvseg/sample"
	"github.com/disintegration/imaging"
	"gonum.org/v1/gonum/mat"
)

// A Predictor produces an H×W prediction for one sample. Values are logits
// or probabilities; they are binarized at statistics time.
type Predictor interface {
	Predict(s sample.Sample, path string) (*mat.Dense, error)
}

// MaskFolderPredictor reads predictions that an external model already
// wrote as ID-encoded mask images named <dicom file name><Suffix> in Dir.
// Any non-zero ID counts as kidney. Masks are resized (nearest neighbour)
// to the sample size. When MinComponentPixels is set, connected regions
// smaller than that are dropped before resizing.
type MaskFolderPredictor struct {
	Dir                string
	Suffix             string
	MinComponentPixels int
}

func (m MaskFolderPredictor) Predict(s sample.Sample, path string) (*mat.Dense, error) {
	suffix := m.Suffix
	if suffix == "" {
		suffix = ".png"
	}
	maskPath := filepath.Join(m.Dir, filepath.Base(path)+suffix)

	ids, err := overlay.OpenIDPlane(maskPath)
	if err != nil {
		return nil, err
	}

	if m.MinComponentPixels > 0 {
		ids, _ = overlay.RemoveSmallComponents(ids, m.MinComponentPixels)
	}

	if ids.Rows != s.Rows || ids.Cols != s.Cols {
		plane := &image.Gray{Pix: ids.Pix, Stride: ids.Cols, Rect: image.Rect(0, 0, ids.Cols, ids.Rows)}
		resized := imaging.Resize(plane, s.Cols, s.Rows, imaging.NearestNeighbor)
		ids = overlay.IDPlane{Rows: s.Rows, Cols: s.Cols, Pix: make([]uint8, s.Rows*s.Cols)}
		for y := 0; y < s.Rows; y++ {
			for x := 0; x < s.Cols; x++ {
				ids.Pix[y*s.Cols+x] = resized.Pix[resized.PixOffset(x, y)]
			}
		}
	}

	if len(ids.Pix) != s.Rows*s.Cols {
		return nil, &tkvseg.ShapeMismatchError{
			Op:   "MaskFolderPredictor",
			Want: fmt.Sprintf("%dx%d", s.Rows, s.Cols),
			Got:  fmt.Sprintf("%dx%d", ids.Rows, ids.Cols),
		}
	}

	out := mat.NewDense(s.Rows, s.Cols, nil)
	for i, v := range ids.Pix {
		if v != 0 {
			out.Set(i/s.Cols, i%s.Cols, 1)
		}
	}

	return out, nil
}

// PredictorFunc adapts a function to a Predictor.
type PredictorFunc func(s sample.Sample, path string) (*mat.Dense, error)

func (f PredictorFunc) Predict(s sample.Sample, path string) (*mat.Dense, error) {
	return f(s, path)
}
