package overlay

import (
	"fmt"
	"sort"
)

// A Label tracks the segmentation ID with the human-identifiable Label and
// human-interpretable color (in RGB hex, e.g., #FF0000 for red).
type Label struct {
	Label     string `yaml:"-" json:"-"`
	ID        uint   `yaml:"id" json:"id"`
	Color     string `yaml:"color" json:"color"`
	SortOrder int    `yaml:"sort_order,omitempty" json:"sort_order,omitempty"`
}

// LabelMap ([string label name]Label) keeps track of the relationship between
// human-visible colors and the segmentation ID (used for deep learning) of that
// label.
type LabelMap map[string]Label

// KidneyLabels is the left/right kidney annotation scheme. ID 0 is the
// background.
func KidneyLabels() LabelMap {
	return LabelMap{
		"Background":  {ID: 0, Color: ""},
		"LeftKidney":  {ID: 1, Color: "#ff0000"},
		"RightKidney": {ID: 2, Color: "#00ff00"},
	}
}

// Valid ensures that the LabelMap is valid by testing that it is bijective. If
// not, it's invalid.
func (l LabelMap) Valid() bool {
	inverse := make(map[uint]string)
	for k, v := range l {
		inverse[v.ID] = k
	}

	return len(l) == len(inverse)
}

// HasBackground reports whether ID 0 is mapped.
func (l LabelMap) HasBackground() bool {
	for _, v := range l {
		if v.ID == 0 {
			return true
		}
	}
	return false
}

func (l LabelMap) Sorted() []Label {
	out := make([]Label, 0, len(l))

	for k, v := range l {
		v.Label = k
		out = append(out, v)
	}

	sort.Slice(out, func(i, j int) bool {
		// If SortOrder is defined and different, use it:
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}

		// If SortOrder is not defined, or is the same for two values, drop down
		// to the ID field for sorting
		if out[i].ID != out[j].ID {
			return out[i].ID < out[j].ID
		}

		return out[i].Label < out[j].Label
	})

	return out
}

// ChannelOf maps each label ID to its channel position in Sorted order.
func (l LabelMap) ChannelOf() (map[uint32]int, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("label map is not bijective: %+v", l)
	}

	out := make(map[uint32]int, len(l))
	for i, v := range l.Sorted() {
		out[uint32(v.ID)] = i
	}
	return out, nil
}
