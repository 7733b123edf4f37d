package sample

import (
	"fmt"
	"sort"

	"github.com/carbocation/tkvseg"
	"github.com/carbocation/tkvseg/index"
)

// Kind is the element type of a materialized attribute column.
type Kind int

const (
	Float32 Kind = iota
	Float64
	Int32
	Int64
)

func (k Kind) String() string {
	switch k {
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind accepts the names printed by Kind.String.
func ParseKind(s string) (Kind, error) {
	for _, k := range []Kind{Float32, Float64, Int32, Int64} {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, tkvseg.NewConfigurationError("dataset.attrib_types", "unknown kind %q", s)
}

// DefaultAttribTypes are the columns training consumes.
func DefaultAttribTypes() map[string]Kind {
	return map[string]Kind{
		"study_tkv":     Float32,
		"kidney_pixels": Float32,
		"vox_vol":       Float32,
	}
}

// A Column holds one attribute for every sample. Only the slice matching
// Kind is set.
type Column struct {
	Kind Kind
	F32  []float32
	F64  []float64
	I32  []int32
	I64  []int64
}

func newColumn(k Kind, n int) Column {
	c := Column{Kind: k}
	switch k {
	case Float32:
		c.F32 = make([]float32, n)
	case Float64:
		c.F64 = make([]float64, n)
	case Int32:
		c.I32 = make([]int32, n)
	case Int64:
		c.I64 = make([]int64, n)
	}
	return c
}

func (c Column) set(i int, v float64) {
	switch c.Kind {
	case Float32:
		c.F32[i] = float32(v)
	case Float64:
		c.F64[i] = v
	case Int32:
		c.I32[i] = int32(v)
	case Int64:
		c.I64[i] = int64(v)
	}
}

// Len is the number of rows.
func (c Column) Len() int {
	switch c.Kind {
	case Float32:
		return len(c.F32)
	case Float64:
		return len(c.F64)
	case Int32:
		return len(c.I32)
	case Int64:
		return len(c.I64)
	}
	return 0
}

// Float64At widens row i.
func (c Column) Float64At(i int) float64 {
	switch c.Kind {
	case Float32:
		return float64(c.F32[i])
	case Float64:
		return c.F64[i]
	case Int32:
		return float64(c.I32[i])
	case Int64:
		return float64(c.I64[i])
	}
	return 0
}

func (c Column) gather(batch []int) Column {
	out := newColumn(c.Kind, len(batch))
	for j, i := range batch {
		out.set(j, c.Float64At(i))
	}
	return out
}

// Columns maps attribute names to columns of equal length.
type Columns map[string]Column

// Names returns the column names, sorted.
func (c Columns) Names() []string {
	out := make([]string, 0, len(c))
	for k := range c {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// ExtraDict returns the rows of batch, in batch order, for every column.
func (c Columns) ExtraDict(batch []int) (Columns, error) {
	out := make(Columns, len(c))
	for name, col := range c {
		for _, i := range batch {
			if i < 0 || i >= col.Len() {
				return nil, fmt.Errorf("batch index %d out of range [0, %d)", i, col.Len())
			}
		}
		out[name] = col.gather(batch)
	}
	return out, nil
}

// materialize fills typed columns from the index attributes. This costs
// O(N·K) time and memory for N samples and K columns and does no I/O. With
// verify set it also runs decode on every sample, a full O(N) pass over
// the images that dominates the cost, and fails on the first bad sample.
func materialize(b *builder, types map[string]Kind, verify bool, decode func(i int) error) (Columns, error) {
	if types == nil {
		types = DefaultAttribTypes()
	}

	n := b.Len()
	out := make(Columns, len(types))
	for name, kind := range types {
		if !index.IsNumeric(name) {
			return nil, tkvseg.NewConfigurationError("dataset.attrib_types", "unknown attribute %q", name)
		}
		out[name] = newColumn(kind, n)
	}

	for i := 0; i < n; i++ {
		a := b.Attributes(i)
		for name, col := range out {
			// A missing z position stays 0
			if v, ok := a.Numeric(name); ok {
				col.set(i, v)
			}
		}
	}

	if verify {
		if err := Each(n, 0, decode); err != nil {
			return nil, err
		}
	}

	return out, nil
}
