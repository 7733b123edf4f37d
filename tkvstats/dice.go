package tkvstats

import (
	"math"

	"github.com/carbocation/tkvseg"
	"gonum.org/v1/gonum/floats"
)

// A Binarizer maps a continuous prediction value to 0 or 1.
type Binarizer interface {
	Binarize(x float64) float64
}

// SigmoidBinarize is 1 where sigmoid(x) is strictly above Threshold.
type SigmoidBinarize struct {
	Threshold float64
}

// DefaultBinarizer thresholds the sigmoid at 0.5.
var DefaultBinarizer = SigmoidBinarize{Threshold: 0.5}

func (b SigmoidBinarize) Binarize(x float64) float64 {
	if 1/(1+math.Exp(-x)) > b.Threshold {
		return 1
	}
	return 0
}

// Binarized applies bin to every voxel of v, into a new volume.
func Binarized(v Volume, bin Binarizer) Volume {
	out := NewVolume(v.Slices, v.Rows, v.Cols)
	for i, x := range v.Data {
		out.Data[i] = bin.Binarize(x)
	}
	return out
}

// DefaultSmooth is the ε added to both sides of the Dice ratio.
const DefaultSmooth = 1e-7

// Dice is (2·ΣP·G + smooth) / (ΣP^power + ΣG^power + smooth) over the
// whole volume jointly. P is pred binarized with bin; G is ground as given.
func Dice(pred, ground Volume, bin Binarizer, power, smooth float64) (float64, error) {
	if !pred.sameShape(ground) {
		return 0, &tkvseg.ShapeMismatchError{Op: "Dice", Want: pred.shape(), Got: ground.shape()}
	}

	p := Binarized(pred, bin).Data
	intersection := floats.Dot(p, ground.Data)

	return (2*intersection + smooth) / (powSum(p, power) + powSum(ground.Data, power) + smooth), nil
}

func powSum(x []float64, power float64) float64 {
	if power == 1 {
		return floats.Sum(x)
	}

	s := 0.0
	for _, v := range x {
		s += math.Pow(v, power)
	}
	return s
}

// ScaleFactor corrects pixel counts made on a resized image back to the
// original grid: originalRows² / resizeRows².
func ScaleFactor(originalRows, resizeRows int) float64 {
	return float64(originalRows*originalRows) / float64(resizeRows*resizeRows)
}

// TKV is scale·voxelVolume·count.
func TKV(scale, voxelVolume float64, count float64) float64 {
	return scale * voxelVolume * count
}

// Count sums the binarized voxels of v.
func Count(v Volume, bin Binarizer) float64 {
	return floats.Sum(Binarized(v, bin).Data)
}
