package overlay

import (
	"bytes"
	"image"

	"github.com/carbocation/pfx"
	"github.com/carbocation/tkvseg"
)

// ImageFromBytes creates an image from the specified bytes. Must be PNG, GIF,
// BMP, or JPEG formatted (based on the decoders we have imported).
func ImageFromBytes(imgBytes []byte) (image.Image, error) {
	imgReader := bytes.NewReader(imgBytes)

	// Extract and decode the image.
	img, _, err := image.Decode(imgReader)

	return img, err
}

// OpenImage reads a local or gs:// image file.
func OpenImage(filePath string) (image.Image, error) {
	// The image decoder swallows errors, so we won't see i/o errors if they
	// happen during image decoding. To capture these, we read the full image
	// into memory here, and pass a byte reader to the image decoder.
	imgBytes, err := tkvseg.ReadAll(filePath)
	if err != nil {
		return nil, pfx.Err(err)
	}

	return ImageFromBytes(imgBytes)
}

// OpenIDPlane reads a label image and decodes it into label IDs. Failures are
// DecodeErrors.
func OpenIDPlane(filePath string) (IDPlane, error) {
	img, err := OpenImage(filePath)
	if err != nil {
		return IDPlane{}, &tkvseg.DecodeError{Path: filePath, Err: err}
	}

	plane, err := DecodeIDPlane(img)
	if err != nil {
		return IDPlane{}, &tkvseg.DecodeError{Path: filePath, Err: err}
	}

	return plane, nil
}
