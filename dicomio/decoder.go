package dicomio

import (
	"github.com/carbocation/tkvseg/overlay"
)

// A Decoder reads the three kinds of input file. Index building and the
// sample builders go through a Decoder so that they can be tested without
// real images.
type Decoder interface {
	Meta(path string) (Meta, error)
	Pixels(path string) (Pixels, error)
	Label(path string) (overlay.IDPlane, error)
}

// FileDecoder reads local or gs:// files.
type FileDecoder struct{}

func (FileDecoder) Meta(path string) (Meta, error) { return ReadMeta(path) }

func (FileDecoder) Pixels(path string) (Pixels, error) { return ReadPixels(path) }

func (FileDecoder) Label(path string) (overlay.IDPlane, error) { return ReadLabel(path) }

// ReadLabel decodes a label image (PNG, GIF, JPEG or BMP) whose pixels are
// ID-encoded as #010101 for ID 1 and so on.
func ReadLabel(path string) (overlay.IDPlane, error) {
	return overlay.OpenIDPlane(path)
}
