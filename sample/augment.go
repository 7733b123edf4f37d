package sample

import (
	"fmt"
	"hash/fnv"
	"image"

	"github.com/carbocation/tkvseg"
	"github.com/disintegration/imaging"
)

// A Pair is the joint input of an augmentation: an 8-bit image and its
// channel-last (H×W×C) mask. Mask is nil at inference time. Key identifies
// the sample and seeds random transforms.
type Pair struct {
	Image    *image.Gray
	Mask     []uint8
	Channels int
	Key      string
}

func (p Pair) check(op string) error {
	if p.Mask == nil {
		return nil
	}
	b := p.Image.Bounds()
	if want := b.Dx() * b.Dy() * p.Channels; len(p.Mask) != want {
		return &tkvseg.ShapeMismatchError{
			Op:   op,
			Want: fmt.Sprintf("%dx%dx%d mask", b.Dy(), b.Dx(), p.Channels),
			Got:  fmt.Sprintf("%d values", len(p.Mask)),
		}
	}
	return nil
}

// An Augmenter transforms image and mask together. Implementations must be
// safe for concurrent use.
type Augmenter interface {
	Augment(Pair) (Pair, error)
}

// Compose applies transforms in order.
type Compose []Augmenter

func (c Compose) Augment(p Pair) (Pair, error) {
	var err error
	for _, a := range c {
		if p, err = a.Augment(p); err != nil {
			return p, err
		}
	}
	return p, nil
}

// ResizeDims reports the target (height, width) of the first Resize found in
// aug, looking inside compositions.
func ResizeDims(aug Augmenter) (int, int, bool) {
	switch v := aug.(type) {
	case Resize:
		return v.Height, v.Width, true
	case *Resize:
		return v.Height, v.Width, true
	case Compose:
		for _, a := range v {
			if h, w, ok := ResizeDims(a); ok {
				return h, w, true
			}
		}
	}
	return 0, 0, false
}

// Resize scales the image with Filter (bilinear when unset) and each mask
// channel with nearest neighbour, so that masks stay one-hot.
type Resize struct {
	Height, Width int
	Filter        *imaging.ResampleFilter
}

func (r Resize) Augment(p Pair) (Pair, error) {
	if err := p.check("Resize"); err != nil {
		return p, err
	}
	if r.Height <= 0 || r.Width <= 0 {
		return p, tkvseg.NewConfigurationError("augmentation.resize", "non-positive size %dx%d", r.Height, r.Width)
	}

	filter := imaging.Linear
	if r.Filter != nil {
		filter = *r.Filter
	}

	out := Pair{Channels: p.Channels, Key: p.Key}
	out.Image = toGray(imaging.Resize(p.Image, r.Width, r.Height, filter))

	if p.Mask != nil {
		out.Mask = mapChannels(p, func(plane *image.Gray) *image.Gray {
			return toGray(imaging.Resize(plane, r.Width, r.Height, imaging.NearestNeighbor))
		})
	}

	return out, nil
}

// HorizontalFlip mirrors left-right with probability P. P ≥ 1 always flips;
// otherwise the decision is a pure function of Seed and the pair's Key.
type HorizontalFlip struct {
	P    float64
	Seed uint64
}

func (f HorizontalFlip) Augment(p Pair) (Pair, error) {
	if err := p.check("HorizontalFlip"); err != nil {
		return p, err
	}
	if !decide(f.P, f.Seed, p.Key) {
		return p, nil
	}
	return flip(p, imaging.FlipH), nil
}

// VerticalFlip mirrors top-bottom, like HorizontalFlip.
type VerticalFlip struct {
	P    float64
	Seed uint64
}

func (f VerticalFlip) Augment(p Pair) (Pair, error) {
	if err := p.check("VerticalFlip"); err != nil {
		return p, err
	}
	if !decide(f.P, f.Seed, p.Key) {
		return p, nil
	}
	return flip(p, imaging.FlipV), nil
}

func decide(prob float64, seed uint64, key string) bool {
	if prob >= 1 {
		return true
	}
	if prob <= 0 {
		return false
	}

	h := fnv.New64a()
	var s [8]byte
	for i := range s {
		s[i] = byte(seed >> (8 * i))
	}
	h.Write(s[:])
	h.Write([]byte(key))

	return float64(h.Sum64()>>11)/float64(1<<53) < prob
}

func flip(p Pair, fn func(image.Image) *image.NRGBA) Pair {
	out := Pair{Channels: p.Channels, Key: p.Key, Image: toGray(fn(p.Image))}
	if p.Mask != nil {
		out.Mask = mapChannels(p, func(plane *image.Gray) *image.Gray { return toGray(fn(plane)) })
	}
	return out
}

// mapChannels applies fn to every mask channel as a grayscale plane and
// interleaves the results back to H×W×C.
func mapChannels(p Pair, fn func(*image.Gray) *image.Gray) []uint8 {
	b := p.Image.Bounds()
	rows, cols := b.Dy(), b.Dx()

	var out []uint8
	var outRows, outCols int
	for c := 0; c < p.Channels; c++ {
		plane := image.NewGray(image.Rect(0, 0, cols, rows))
		for i := range plane.Pix {
			plane.Pix[i] = p.Mask[i*p.Channels+c]
		}

		res := fn(plane)
		if out == nil {
			outRows, outCols = res.Bounds().Dy(), res.Bounds().Dx()
			out = make([]uint8, outRows*outCols*p.Channels)
		}
		for i, v := range res.Pix {
			out[i*p.Channels+c] = v
		}
	}

	return out
}

// toGray takes the red channel, which for images that started out gray is
// the gray level.
func toGray(img *image.NRGBA) *image.Gray {
	b := img.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			out.Pix[y*out.Stride+x] = img.Pix[img.PixOffset(b.Min.X+x, b.Min.Y+y)]
		}
	}
	return out
}
