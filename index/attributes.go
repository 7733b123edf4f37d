package index

import (
	"gopkg.in/guregu/null.v3"
)

// FileAttributes are the per-slice facts gathered at index time. The JSON
// names are the ones used in exported _attrib.json files.
type FileAttributes struct {
	Path              string     `json:"path"`
	Patient           string     `json:"patient"`
	Study             string     `json:"MR"`
	PixelSpacing      [2]float64 `json:"pixel_spacing"`
	SliceThickness    float64    `json:"slice_thickness"`
	VoxelVolume       float64    `json:"vox_vol"`
	Dim               [2]int     `json:"dim"`
	SeriesDescription string     `json:"seq"`
	AccessionNumber   string     `json:"accession"`
	SeriesNumber      string     `json:"series_number"`
	Z                 null.Float `json:"z_pos"`

	Labeled      bool    `json:"labeled"`
	LabelPath    string  `json:"label_path,omitempty"`
	KidneyPixels int     `json:"kidney_pixels"`
	StudyTKV     float64 `json:"study_tkv"`
}

// StudyKey identifies one (patient, study) pair.
type StudyKey struct {
	Patient string
	Study   string
}

func (a FileAttributes) StudyKey() StudyKey {
	return StudyKey{Patient: a.Patient, Study: a.Study}
}

var numeric = map[string]struct{}{
	"vox_vol": {}, "slice_thickness": {}, "kidney_pixels": {}, "study_tkv": {},
	"z_pos": {}, "rows": {}, "cols": {}, "pixel_spacing_row": {}, "pixel_spacing_col": {},
}

// IsNumeric reports whether name is understood by FileAttributes.Numeric.
func IsNumeric(name string) bool {
	_, ok := numeric[name]
	return ok
}

// Numeric returns the named numeric attribute, by its JSON name. Unknown
// names report false.
func (a FileAttributes) Numeric(name string) (float64, bool) {
	switch name {
	case "vox_vol":
		return a.VoxelVolume, true
	case "slice_thickness":
		return a.SliceThickness, true
	case "kidney_pixels":
		return float64(a.KidneyPixels), true
	case "study_tkv":
		return a.StudyTKV, true
	case "z_pos":
		if !a.Z.Valid {
			return 0, false
		}
		return a.Z.Float64, true
	case "rows":
		return float64(a.Dim[0]), true
	case "cols":
		return float64(a.Dim[1]), true
	case "pixel_spacing_row":
		return a.PixelSpacing[0], true
	case "pixel_spacing_col":
		return a.PixelSpacing[1], true
	}

	return 0, false
}
