// Package tkvstats computes per-study Dice overlap and total kidney volume
// from exported prediction artifacts, for single models and ensembles.
package tkvstats

import (
	"fmt"

	"github.com/carbocation/tkvseg"
	"gonum.org/v1/gonum/mat"
)

// Volume is a stack of equally sized slices, slice-major then row-major.
type Volume struct {
	Slices, Rows, Cols int
	Data               []float64
}

func NewVolume(slices, rows, cols int) Volume {
	return Volume{Slices: slices, Rows: rows, Cols: cols, Data: make([]float64, slices*rows*cols)}
}

// Slice returns slice s; it shares storage with v.
func (v Volume) Slice(s int) []float64 {
	n := v.Rows * v.Cols
	return v.Data[s*n : (s+1)*n]
}

func (v Volume) sameShape(o Volume) bool {
	return v.Slices == o.Slices && v.Rows == o.Rows && v.Cols == o.Cols
}

func (v Volume) shape() string {
	return fmt.Sprintf("%dx%dx%d", v.Slices, v.Rows, v.Cols)
}

// Stack copies 2D slices into a volume. All slices must share a shape.
func Stack(slices []*mat.Dense) (Volume, error) {
	if len(slices) == 0 {
		return Volume{}, nil
	}

	rows, cols := slices[0].Dims()
	out := NewVolume(len(slices), rows, cols)
	for s, m := range slices {
		r, c := m.Dims()
		if r != rows || c != cols {
			return Volume{}, &tkvseg.ShapeMismatchError{
				Op:   "Stack",
				Want: fmt.Sprintf("%dx%d slice", rows, cols),
				Got:  fmt.Sprintf("%dx%d at slice %d", r, c, s),
			}
		}
		dst := out.Slice(s)
		for i := 0; i < rows; i++ {
			copy(dst[i*cols:(i+1)*cols], m.RawRowView(i))
		}
	}
	return out, nil
}
