package dicomio

import (
	"fmt"
	"image"
	"image/color"

	"github.com/carbocation/tkvseg"
	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/frame"
	"github.com/suyashkumar/dicom/pkg/tag"
)

// Pixels is the first frame of a DICOM as a row-major H×W plane of signed
// 16-bit values. Wider stored values wrap.
type Pixels struct {
	Rows, Cols int
	Pix        []int16
}

func (p Pixels) At(row, col int) int16 {
	return p.Pix[row*p.Cols+col]
}

// MinMax returns the smallest and largest pixel values.
func (p Pixels) MinMax() (lo, hi int16) {
	if len(p.Pix) == 0 {
		return 0, 0
	}

	lo, hi = p.Pix[0], p.Pix[0]
	for _, v := range p.Pix[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

// ReadPixels decodes the first frame of the DICOM at path. Failures are
// DecodeErrors.
func ReadPixels(path string) (Pixels, error) {
	ds, err := safelyParse(path)
	if err != nil {
		return Pixels{}, &tkvseg.DecodeError{Path: path, Err: err}
	}

	px, err := PixelsFromDataset(ds)
	if err != nil {
		return Pixels{}, &tkvseg.DecodeError{Path: path, Err: err}
	}

	return px, nil
}

// PixelsFromDataset extracts the first frame of an already parsed dataset.
func PixelsFromDataset(ds dicom.Dataset) (Pixels, error) {
	rows, ok := firstInt(ds, tag.Rows)
	if !ok {
		return Pixels{}, fmt.Errorf("no Rows element")
	}
	cols, ok := firstInt(ds, tag.Columns)
	if !ok {
		return Pixels{}, fmt.Errorf("no Columns element")
	}

	elem, err := ds.FindElementByTag(tag.PixelData)
	if err != nil {
		return Pixels{}, fmt.Errorf("no PixelData element: %v", err)
	}

	info, ok := elem.Value.GetValue().(dicom.PixelDataInfo)
	if !ok || len(info.Frames) == 0 || info.Frames[0] == nil {
		return Pixels{}, fmt.Errorf("PixelData holds no frames")
	}

	fr := info.Frames[0]
	if fr.Encapsulated {
		img, err := fr.GetImage()
		if err != nil {
			return Pixels{}, err
		}
		return pixelsFromImage(img), nil
	}

	out := Pixels{Rows: rows, Cols: cols, Pix: make([]int16, rows*cols)}

	switch nf := fr.NativeData.(type) {
	case *frame.NativeFrame[uint16]:
		err = copyNative(out.Pix, nf.RawData)
	case *frame.NativeFrame[int16]:
		err = copyNative(out.Pix, nf.RawData)
	case *frame.NativeFrame[uint8]:
		err = copyNative(out.Pix, nf.RawData)
	case *frame.NativeFrame[uint32]:
		err = copyNative(out.Pix, nf.RawData)
	case *frame.NativeFrame[int32]:
		err = copyNative(out.Pix, nf.RawData)
	default:
		err = fmt.Errorf("unsupported native frame type %T", fr.NativeData)
	}
	if err != nil {
		return Pixels{}, err
	}

	return out, nil
}

type sample interface {
	~uint8 | ~uint16 | ~int16 | ~uint32 | ~int32
}

// copyNative takes the first sample of each pixel. Multi-sample (color)
// frames therefore reduce to their first channel.
func copyNative[T sample](dst []int16, raw []T) error {
	if len(dst) == 0 {
		return nil
	}
	if len(raw) < len(dst) {
		return fmt.Errorf("frame has %d samples, need at least %d", len(raw), len(dst))
	}

	step := len(raw) / len(dst)
	for i := range dst {
		dst[i] = int16(raw[i*step])
	}
	return nil
}

func pixelsFromImage(img image.Image) Pixels {
	b := img.Bounds()
	out := Pixels{Rows: b.Dy(), Cols: b.Dx(), Pix: make([]int16, b.Dx()*b.Dy())}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			g := color.Gray16Model.Convert(img.At(x, y)).(color.Gray16)
			out.Pix[(y-b.Min.Y)*out.Cols+(x-b.Min.X)] = int16(g.Y)
		}
	}
	return out
}
