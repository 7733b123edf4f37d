package index

import (
	"path/filepath"
	"runtime"

	"github.com/carbocation/tkvseg/dicomio"
	log "github.com/sirupsen/logrus"
	"gopkg.in/guregu/null.v3"
)

// DefaultLabelSuffix is appended to a DICOM path to find its label image.
const DefaultLabelSuffix = ".png.mask.png"

// StudyBy chooses how a file's study identifier is derived.
type StudyBy int

const (
	// StudyFromFolder uses the name of the folder holding the DICOM.
	StudyFromFolder StudyBy = iota
	// StudyFromAccession uses the AccessionNumber tag.
	StudyFromAccession
)

type Options struct {
	// Decoder defaults to dicomio.FileDecoder.
	Decoder dicomio.Decoder

	// Labeled requests label decoding, kidney pixel counts and study TKV.
	Labeled     bool
	LabelSuffix string

	StudyBy StudyBy

	// Concurrency bounds the number of files decoded at once. Defaults to
	// 4*NumCPU.
	Concurrency int
}

func (o Options) withDefaults() Options {
	if o.Decoder == nil {
		o.Decoder = dicomio.FileDecoder{}
	}
	if o.LabelSuffix == "" {
		o.LabelSuffix = DefaultLabelSuffix
	}
	if o.Concurrency <= 0 {
		o.Concurrency = 4 * runtime.NumCPU()
	}
	return o
}

// Index maps files to attributes and patients to their ordered files.
// Patient order is the order in which patients were first seen.
type Index struct {
	Files    map[string]FileAttributes
	Patients map[string][]string
	Order    []string

	// Rejected holds the files that could not be decoded, with the reason.
	Rejected map[string]error
}

func newIndex() *Index {
	return &Index{
		Files:    make(map[string]FileAttributes),
		Patients: make(map[string][]string),
		Rejected: make(map[string]error),
	}
}

// Len is the number of indexed files.
func (idx *Index) Len() int {
	return len(idx.Files)
}

// Paths flattens the index in patient order.
func (idx *Index) Paths() []string {
	return idx.PathsFor(idx.Order)
}

// PathsFor flattens the index in the given patient order. Unknown patients
// contribute nothing.
func (idx *Index) PathsFor(patients []string) []string {
	out := make([]string, 0, len(idx.Files))
	for _, p := range patients {
		out = append(out, idx.Patients[p]...)
	}
	return out
}

// add appends a file, keeping the patient ordering invariant.
func (idx *Index) add(a FileAttributes) {
	if _, exists := idx.Files[a.Path]; exists {
		return
	}
	if _, seen := idx.Patients[a.Patient]; !seen {
		idx.Order = append(idx.Order, a.Patient)
	}
	idx.Files[a.Path] = a
	idx.Patients[a.Patient] = append(idx.Patients[a.Patient], a.Path)
}

// StudyOf derives the study identifier for a file.
func StudyOf(path string, meta dicomio.Meta, by StudyBy) string {
	if by == StudyFromAccession && meta.AccessionNumber != "" {
		return meta.AccessionNumber
	}

	return filepath.Base(filepath.Dir(path))
}

type result struct {
	attrs FileAttributes
	err   error
}

// Build reads every path once and indexes it. Files that fail to decode
// are logged, recorded in Rejected and left out.
func Build(paths []string, opts Options) *Index {
	opts = opts.withDefaults()

	results := make([]result, len(paths))

	sem := make(chan bool, opts.Concurrency)
	for i, path := range paths {
		sem <- true
		go func(i int, path string) {
			defer func() { <-sem }()
			a, err := describe(path, opts)
			results[i] = result{attrs: a, err: err}
		}(i, path)
	}
	for i := 0; i < cap(sem); i++ {
		sem <- true
	}

	idx := newIndex()
	for i, r := range results {
		if r.err != nil {
			log.WithFields(log.Fields{"path": paths[i], "error": r.err}).Warnln("Skipping unreadable file")
			idx.Rejected[paths[i]] = r.err
			continue
		}
		idx.add(r.attrs)
	}

	if opts.Labeled {
		aggregateStudyTKV(idx)
	}

	return idx
}

func describe(path string, opts Options) (FileAttributes, error) {
	meta, err := opts.Decoder.Meta(path)
	if err != nil {
		return FileAttributes{}, err
	}

	a := FileAttributes{
		Path:              path,
		Patient:           meta.PatientID,
		Study:             StudyOf(path, meta, opts.StudyBy),
		PixelSpacing:      meta.PixelSpacing,
		SliceThickness:    meta.SliceThickness,
		VoxelVolume:       meta.VoxelVolume(),
		Dim:               [2]int{meta.Rows, meta.Cols},
		SeriesDescription: meta.SeriesDescription,
		AccessionNumber:   meta.AccessionNumber,
		SeriesNumber:      meta.SeriesNumber,
		Z:                 null.NewFloat(meta.Z, meta.HasZ),
	}

	if !opts.Labeled {
		return a, nil
	}

	a.LabelPath = path + opts.LabelSuffix
	label, err := opts.Decoder.Label(a.LabelPath)
	if err != nil {
		return FileAttributes{}, err
	}
	a.Labeled = true
	a.KidneyPixels = label.Nonzero()

	return a, nil
}

// aggregateStudyTKV sums kidney_pixels·vox_vol over each study and stores
// the total on every file of that study.
func aggregateStudyTKV(idx *Index) {
	totals := make(map[StudyKey]float64)
	for _, a := range idx.Files {
		totals[a.StudyKey()] += float64(a.KidneyPixels) * a.VoxelVolume
	}

	for path, a := range idx.Files {
		a.StudyTKV = totals[a.StudyKey()]
		idx.Files[path] = a
	}
}
