package artifact

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/carbocation/pfx"
	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"
)

// Slice is everything written for one exported slice. Ground may be nil
// when no labels exist.
type Slice struct {
	Stem       string
	Attributes Attributes
	Image      *mat.Dense
	Pred       *mat.Dense
	Ground     *mat.Dense
}

// Writer writes the artifacts of one model.
type Writer struct {
	Root  string
	Model string
}

// Dir is the study folder of attrs under this model.
func (w Writer) Dir(attrs Attributes) string {
	return filepath.Join(w.Root, w.Model, attrs.Patient, attrs.Study)
}

// Write stores one slice, creating its study folder as needed.
func (w Writer) Write(s Slice) error {
	if s.Attributes.Patient == "" || s.Attributes.Study == "" {
		return fmt.Errorf("slice %s: patient and study are required", s.Stem)
	}

	dir := w.Dir(s.Attributes)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return pfx.Err(err)
	}
	prefix := filepath.Join(dir, s.Stem)

	arrays := []struct {
		suffix string
		m      *mat.Dense
	}{
		{ImageSuffix, s.Image},
		{PredSuffix, s.Pred},
		{GroundSuffix, s.Ground},
	}
	for _, a := range arrays {
		if a.m == nil {
			continue
		}
		if err := writeNpy(prefix+a.suffix, a.m); err != nil {
			return err
		}
	}

	b, err := json.Marshal(s.Attributes)
	if err != nil {
		return pfx.Err(err)
	}

	return pfx.Err(os.WriteFile(prefix+AttribSuffix, b, 0644))
}

func writeNpy(path string, m *mat.Dense) error {
	f, err := os.Create(path)
	if err != nil {
		return pfx.Err(err)
	}
	defer f.Close()

	if err := npyio.Write(f, m); err != nil {
		return pfx.Err(fmt.Errorf("%s: %v", path, err))
	}

	return pfx.Err(f.Close())
}

func readNpy(path string) (*mat.Dense, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, pfx.Err(err)
	}
	defer f.Close()

	var m mat.Dense
	if err := npyio.Read(f, &m); err != nil {
		return nil, pfx.Err(fmt.Errorf("%s: %v", path, err))
	}

	return &m, nil
}
