package overlay

import (
	"fmt"
	"image"
	"image/color"
	"math"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
)

// LabeledPixelToID converts the label-encoded pixel (e.g., #010101) which is
// alpha-premultiplied into an ID in the range of 0-255
func LabeledPixelToID(c color.Color) (uint32, error) {

	// Find the color channel values for this pixel
	pr, pg, pb, a := c.RGBA()

	// Confirm that we're mapping ID 1 => #010101, etc
	if pr != pg || pg != pb || pr != pb {
		return 0, fmt.Errorf("Encoding expected to have equal values for R, G, and B. Instead, found %d, %d, %d", pr, pg, pb)
	}

	// Fully transparent pixels are background
	if a == 0 {
		return 0, nil
	}

	// Each color channel is "alpha-premultiplied"
	// (https://golang.org/pkg/image/color/#RGBA), so we divide by alpha
	// (scaling 0-1), then multiply by 255, to get what we're actually looking
	// for
	pixelID := uint32(math.Round(255 * float64(pr) / float64(a)))

	return pixelID, nil
}

// IDPlane is a row-major H×W plane of label IDs.
type IDPlane struct {
	Rows, Cols int
	Pix        []uint8
}

func (p IDPlane) At(row, col int) uint8 {
	return p.Pix[row*p.Cols+col]
}

// Nonzero counts the pixels carrying any non-background ID.
func (p IDPlane) Nonzero() int {
	n := 0
	for _, v := range p.Pix {
		if v != 0 {
			n++
		}
	}
	return n
}

// DecodeIDPlane converts an ID-encoded image (#010101 for ID 1, etc) into an
// IDPlane.
func DecodeIDPlane(img image.Image) (IDPlane, error) {
	b := img.Bounds()
	out := IDPlane{Rows: b.Dy(), Cols: b.Dx(), Pix: make([]uint8, b.Dx()*b.Dy())}

	// Fast path for the common 8-bit grayscale mask
	if g, ok := img.(*image.Gray); ok {
		for y := 0; y < out.Rows; y++ {
			off := g.PixOffset(b.Min.X, b.Min.Y+y)
			copy(out.Pix[y*out.Cols:(y+1)*out.Cols], g.Pix[off:off+out.Cols])
		}
		return out, nil
	}

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			id, err := LabeledPixelToID(img.At(x, y))
			if err != nil {
				return out, err
			}
			if id > math.MaxUint8 {
				return out, fmt.Errorf("label ID %d at (%d, %d) exceeds 255", id, x, y)
			}
			out.Pix[(y-b.Min.Y)*out.Cols+(x-b.Min.X)] = uint8(id)
		}
	}

	return out, nil
}
