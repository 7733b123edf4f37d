// Package artifact persists per-slice model outputs as .npy arrays with a
// JSON attribute sidecar, laid out as
// <root>/<model>/<patient>/<study>/<stem>_{img,pred,ground}.npy and
// <stem>_attrib.json, and reads them back one study at a time.
package artifact

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/carbocation/pfx"
	"github.com/carbocation/tkvseg"
	"github.com/carbocation/tkvseg/index"
)

const (
	ImageSuffix  = "_img.npy"
	PredSuffix   = "_pred.npy"
	GroundSuffix = "_ground.npy"
	AttribSuffix = "_attrib.json"
)

// Attributes is the _attrib.json sidecar: the slice's index attributes and
// the (height, width) the model saw.
type Attributes struct {
	index.FileAttributes
	TransformResizeDim [2]int `json:"transform_resize_dim"`
}

// StudyRef locates one study of one model.
type StudyRef struct {
	Model   string
	Patient string
	Study   string
	Dir     string
}

// Name is the study label used in reports: patient followed by study.
func (s StudyRef) Name() string {
	return s.Patient + s.Study
}

func subdirs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, pfx.Err(err)
	}

	var out []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			out = append(out, e.Name())
		}
	}
	sort.Strings(out)
	return out, nil
}

// Models lists the model folders under root, sorted.
func Models(root string) ([]string, error) {
	return subdirs(root)
}

// Studies lists every study of one model, sorted by patient then study. A
// non-empty patient restricts the listing to that patient.
func Studies(root, model, patient string) ([]StudyRef, error) {
	modelDir := filepath.Join(root, model)

	patients := []string{patient}
	if patient == "" {
		var err error
		if patients, err = subdirs(modelDir); err != nil {
			return nil, err
		}
	} else if _, err := os.Stat(filepath.Join(modelDir, patient)); os.IsNotExist(err) {
		return nil, nil
	}

	var out []StudyRef
	for _, p := range patients {
		studies, err := subdirs(filepath.Join(modelDir, p))
		if err != nil {
			return nil, err
		}
		for _, s := range studies {
			out = append(out, StudyRef{Model: model, Patient: p, Study: s, Dir: filepath.Join(modelDir, p, s)})
		}
	}

	return out, nil
}

// Stem is the artifact stem of a DICOM path: its base name without the
// extension, and without any compression extension before that.
func Stem(path string) string {
	base := filepath.Base(tkvseg.TrimCompressionExt(path))
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// withSuffix lists the files of dir ending in suffix, sorted by name.
func withSuffix(dir, suffix string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, pfx.Err(err)
	}

	var out []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), suffix) {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(out)
	return out, nil
}
