package tkvstats

import (
	"image"
	"math"

	"github.com/carbocation/tkvseg"
	"github.com/montanaflynn/stats"
	"golang.org/x/image/draw"
)

// ResizeVolume resamples every slice of v to rows×cols with Catmull-Rom
// (bicubic) interpolation. Values travel through a 16-bit plane scaled to
// each slice's range, so resampled volumes carry ~1/65535 of that range in
// quantization error. An already matching volume is returned unchanged.
func ResizeVolume(v Volume, rows, cols int) Volume {
	if v.Rows == rows && v.Cols == cols {
		return v
	}

	out := NewVolume(v.Slices, rows, cols)
	for s := 0; s < v.Slices; s++ {
		src := v.Slice(s)

		lo, hi := math.Inf(1), math.Inf(-1)
		for _, x := range src {
			lo, hi = math.Min(lo, x), math.Max(hi, x)
		}
		span := hi - lo

		dst := out.Slice(s)
		if span == 0 {
			for i := range dst {
				dst[i] = lo
			}
			continue
		}

		in := image.NewGray16(image.Rect(0, 0, v.Cols, v.Rows))
		for i, x := range src {
			y := uint16(math.Round(65535 * (x - lo) / span))
			in.Pix[2*i], in.Pix[2*i+1] = uint8(y>>8), uint8(y)
		}

		res := image.NewGray16(image.Rect(0, 0, cols, rows))
		draw.CatmullRom.Scale(res, res.Bounds(), in, in.Bounds(), draw.Src, nil)

		for i := range dst {
			y := uint16(res.Pix[2*i])<<8 | uint16(res.Pix[2*i+1])
			dst[i] = lo + span*float64(y)/65535
		}
	}

	return out
}

// Combine resizes every member to the first member's rows×cols and returns
// the voxelwise mean together with spread: the mean over voxels of the
// population standard deviation across members. Members must agree on
// slice count.
func Combine(members []Volume) (Volume, float64, error) {
	if len(members) == 0 {
		return Volume{}, 0, nil
	}

	ref := members[0]
	resized := make([]Volume, len(members))
	for k, m := range members {
		if m.Slices != ref.Slices {
			return Volume{}, 0, &tkvseg.ShapeMismatchError{Op: "Combine", Want: ref.shape(), Got: m.shape()}
		}
		resized[k] = ResizeVolume(m, ref.Rows, ref.Cols)
	}

	mean := NewVolume(ref.Slices, ref.Rows, ref.Cols)
	spread := make(stats.Float64Data, len(mean.Data))
	voxel := make(stats.Float64Data, len(members))

	for i := range mean.Data {
		for k, m := range resized {
			voxel[k] = m.Data[i]
		}

		mu, err := stats.Mean(voxel)
		if err != nil {
			return Volume{}, 0, err
		}
		mean.Data[i] = mu

		sd, err := stats.StandardDeviationPopulation(voxel)
		if err != nil {
			return Volume{}, 0, err
		}
		spread[i] = sd
	}

	if len(spread) == 0 {
		return mean, 0, nil
	}

	avg, err := spread.Mean()
	if err != nil {
		return Volume{}, 0, err
	}

	return mean, avg, nil
}
