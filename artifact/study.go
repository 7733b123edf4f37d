package artifact

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/carbocation/pfx"
	"github.com/carbocation/tkvseg"
	"gonum.org/v1/gonum/mat"
)

// ErrEmptyStudy is returned by LoadStudy for a folder with no predictions.
var ErrEmptyStudy = errors.New("study has no slices")

// Study is the stacked artifacts of one study of one model, slices in
// file-name order. Ground is nil when the export had no labels.
type Study struct {
	StudyRef
	Stems      []string
	Preds      []*mat.Dense
	Ground     []*mat.Dense
	Attributes []Attributes
}

// Reference returns the attributes of slice 0, from which scale and voxel
// volume are taken.
func (s Study) Reference() Attributes {
	return s.Attributes[0]
}

// LoadStudy reads the predictions, ground truth and attributes of ref.
// Images are not loaded.
func LoadStudy(ref StudyRef) (Study, error) {
	out := Study{StudyRef: ref}

	preds, err := withSuffix(ref.Dir, PredSuffix)
	if err != nil {
		return out, err
	}
	if len(preds) == 0 {
		return out, ErrEmptyStudy
	}

	grounds, err := withSuffix(ref.Dir, GroundSuffix)
	if err != nil {
		return out, err
	}
	if len(grounds) != 0 && len(grounds) != len(preds) {
		return out, &tkvseg.ShapeMismatchError{
			Op:   "LoadStudy " + ref.Dir,
			Want: fmt.Sprintf("%d ground slices", len(preds)),
			Got:  fmt.Sprintf("%d", len(grounds)),
		}
	}

	attribs, err := withSuffix(ref.Dir, AttribSuffix)
	if err != nil {
		return out, err
	}

	for _, p := range preds {
		out.Stems = append(out.Stems, strings.TrimSuffix(filepath.Base(p), PredSuffix))
	}

	if len(attribs) == 0 || strings.TrimSuffix(filepath.Base(attribs[0]), AttribSuffix) != out.Stems[0] {
		return out, &tkvseg.MissingMetadataError{Study: ref.Name()}
	}

	for _, p := range preds {
		m, err := readNpy(p)
		if err != nil {
			return out, err
		}
		out.Preds = append(out.Preds, m)
	}

	for _, g := range grounds {
		m, err := readNpy(g)
		if err != nil {
			return out, err
		}
		out.Ground = append(out.Ground, m)
	}

	for _, a := range attribs {
		b, err := os.ReadFile(a)
		if err != nil {
			return out, pfx.Err(err)
		}
		var attrs Attributes
		if err := json.Unmarshal(b, &attrs); err != nil {
			return out, pfx.Err(fmt.Errorf("%s: %v", a, err))
		}
		out.Attributes = append(out.Attributes, attrs)
	}

	ref0 := out.Reference()
	switch {
	case ref0.Dim[0] == 0:
		return out, &tkvseg.MissingMetadataError{Study: ref.Name(), Field: "dim"}
	case ref0.TransformResizeDim[0] == 0:
		return out, &tkvseg.MissingMetadataError{Study: ref.Name(), Field: "transform_resize_dim"}
	}

	return out, nil
}
