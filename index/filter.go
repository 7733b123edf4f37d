package index

import (
	"regexp"
)

// A Filter selects a subset of an index. Filters never reorder files or
// patients, and applying one twice gives the same result as applying it
// once.
type Filter interface {
	Apply(*Index) *Index
}

// FilterFunc adapts a per-file predicate to a Filter.
type FilterFunc func(FileAttributes) bool

func (f FilterFunc) Apply(idx *Index) *Index {
	out := newIndex()
	for _, p := range idx.Order {
		for _, path := range idx.Patients[p] {
			if a := idx.Files[path]; f(a) {
				out.add(a)
			}
		}
	}
	for k, v := range idx.Rejected {
		out.Rejected[k] = v
	}
	return out
}

// FilterPatients keeps only the files of the given patients, in source order.
func FilterPatients(idx *Index, ids []string) *Index {
	return PatientFilter{IDs: ids}.Apply(idx)
}

type PatientFilter struct {
	IDs []string
}

func (f PatientFilter) Apply(idx *Index) *Index {
	keep := make(map[string]struct{}, len(f.IDs))
	for _, id := range f.IDs {
		keep[id] = struct{}{}
	}

	return FilterFunc(func(a FileAttributes) bool {
		_, ok := keep[a.Patient]
		return ok
	}).Apply(idx)
}

// LabeledFilter drops files without a decoded label.
type LabeledFilter struct{}

func (LabeledFilter) Apply(idx *Index) *Index {
	return FilterFunc(func(a FileAttributes) bool { return a.Labeled }).Apply(idx)
}

// SeriesFilter keeps files whose series description matches Pattern.
type SeriesFilter struct {
	Pattern *regexp.Regexp
}

func (f SeriesFilter) Apply(idx *Index) *Index {
	return FilterFunc(func(a FileAttributes) bool {
		return f.Pattern.MatchString(a.SeriesDescription)
	}).Apply(idx)
}

type chain []Filter

func (c chain) Apply(idx *Index) *Index {
	for _, f := range c {
		idx = f.Apply(idx)
	}
	return idx
}

// Chain applies filters left to right.
func Chain(filters ...Filter) Filter {
	return chain(filters)
}
