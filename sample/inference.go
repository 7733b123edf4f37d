package sample

import (
	"path/filepath"
	"sort"

	"github.com/carbocation/tkvseg/index"
	"gopkg.in/guregu/null.v3"
)

// SliceKey carries what slice ordering looks at. Slices that agree on every
// field except Path and Z belong to the same stack.
type SliceKey struct {
	Path              string
	Folder            string
	SeriesDescription string
	Patient           string
	Rows, Cols        int
	AccessionNumber   string
	SeriesNumber      string
	Z                 null.Float
}

// SliceKeyOf derives the ordering key of one indexed file.
func SliceKeyOf(a index.FileAttributes) SliceKey {
	return SliceKey{
		Path:              a.Path,
		Folder:            filepath.Base(filepath.Dir(a.Path)),
		SeriesDescription: a.SeriesDescription,
		Patient:           a.Patient,
		Rows:              a.Dim[0],
		Cols:              a.Dim[1],
		AccessionNumber:   a.AccessionNumber,
		SeriesNumber:      a.SeriesNumber,
		Z:                 a.Z,
	}
}

type groupKey struct {
	folder, series, patient string
	rows, cols              int
	accession, number       string
}

func (k SliceKey) group() groupKey {
	return groupKey{k.Folder, k.SeriesDescription, k.Patient, k.Rows, k.Cols, k.AccessionNumber, k.SeriesNumber}
}

func (a groupKey) less(b groupKey) bool {
	switch {
	case a.folder != b.folder:
		return a.folder < b.folder
	case a.series != b.series:
		return a.series < b.series
	case a.patient != b.patient:
		return a.patient < b.patient
	case a.rows != b.rows:
		return a.rows < b.rows
	case a.cols != b.cols:
		return a.cols < b.cols
	case a.accession != b.accession:
		return a.accession < b.accession
	}
	return a.number < b.number
}

// OrderSlices returns the permutation of keys that stacks every group
// contiguously, groups sorted by key. Within a group slices ascend by z
// position when every slice has one, otherwise by path.
func OrderSlices(keys []SliceKey) []int {
	groups := make(map[groupKey][]int)
	for i, k := range keys {
		g := k.group()
		groups[g] = append(groups[g], i)
	}

	rank := make([]int, len(keys))
	for _, members := range groups {
		byZ := true
		for _, i := range members {
			if !keys[i].Z.Valid {
				byZ = false
				break
			}
		}

		sorted := append([]int(nil), members...)
		sort.SliceStable(sorted, func(a, b int) bool {
			ka, kb := keys[sorted[a]], keys[sorted[b]]
			if byZ {
				return ka.Z.Float64 < kb.Z.Float64
			}
			return ka.Path < kb.Path
		})

		for r, i := range sorted {
			rank[i] = r
		}
	}

	out := make([]int, len(keys))
	for i := range out {
		out[i] = i
	}
	sort.SliceStable(out, func(a, b int) bool {
		ga, gb := keys[out[a]].group(), keys[out[b]].group()
		if ga != gb {
			return ga.less(gb)
		}
		return rank[out[a]] < rank[out[b]]
	})

	return out
}

// Inference builds unlabeled samples, stacked in slice order.
type Inference struct {
	builder
}

// NewInference builds over every file of idx, reordered with OrderSlices.
func NewInference(idx *index.Index, opts Options) *Inference {
	b := newBuilder(idx, opts)

	keys := make([]SliceKey, len(b.paths))
	for i, p := range b.paths {
		keys[i] = SliceKeyOf(b.attrs[p])
	}

	ordered := make([]string, len(b.paths))
	for i, j := range OrderSlices(keys) {
		ordered[i] = b.paths[j]
	}
	b.paths = ordered

	return &Inference{builder: b}
}

func (s *Inference) Get(i int) (Sample, error) {
	if err := s.checkIndex(i); err != nil {
		return Sample{}, err
	}

	img, err := s.grayImage(i)
	if err != nil {
		return Sample{}, err
	}

	if s.opts.Augmenter != nil {
		aug, err := s.opts.Augmenter.Augment(Pair{Image: img, Key: s.paths[i]})
		if err != nil {
			return Sample{}, err
		}
		img = aug.Image
	}

	return s.finish(i, img), nil
}

func (s *Inference) GetVerbose(i int) (Verbose, error) {
	smp, err := s.Get(i)
	if err != nil {
		return Verbose{}, err
	}
	return Verbose{Sample: smp, Path: s.paths[i], Attributes: s.Attributes(i)}, nil
}

func (s *Inference) Materialize(types map[string]Kind, verify bool) (Columns, error) {
	return materialize(&s.builder, types, verify, func(i int) error {
		_, err := s.Get(i)
		return err
	})
}
