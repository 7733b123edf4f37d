// Package sample turns indexed DICOM slices into model inputs: normalized
// 3-channel float images and, for training data, one-hot masks.
package sample

import (
	"fmt"
	"image"

	"github.com/carbocation/tkvseg"
	"github.com/carbocation/tkvseg/dicomio"
	"github.com/carbocation/tkvseg/index"
	"github.com/carbocation/tkvseg/overlay"
)

// Sample is one model input. Image is 3×H×W. Mask is C×H×W and nil for
// inference samples. Index is -1 unless the builder was asked for indices.
type Sample struct {
	Image    []float32
	Mask     []float32
	Rows     int
	Cols     int
	Channels int
	Index    int
}

// Verbose pairs a sample with its provenance.
type Verbose struct {
	Sample
	Path       string
	Attributes index.FileAttributes
}

// A Builder is either kind of sample builder.
type Builder interface {
	Len() int
	Path(i int) string
	Attributes(i int) index.FileAttributes
	Get(i int) (Sample, error)
	GetVerbose(i int) (Verbose, error)
	Materialize(types map[string]Kind, verify bool) (Columns, error)

	// OutputIndex reports whether samples carry their position.
	OutputIndex() bool
}

var (
	_ Builder = (*Segmentation)(nil)
	_ Builder = (*Inference)(nil)
)

type Options struct {
	// Decoder defaults to dicomio.FileDecoder.
	Decoder dicomio.Decoder

	// Encoder expands labels into masks. Defaults to overlay.BinaryKidney.
	// Unused by inference builders.
	Encoder overlay.Encoder

	// Normalizer defaults to LocalScaling.
	Normalizer Normalizer

	Augmenter    Augmenter
	Preprocessor Preprocessor

	OutputIndex bool

	// PatientOrder overrides the index's patient order.
	PatientOrder []string
}

func (o Options) withDefaults() Options {
	if o.Decoder == nil {
		o.Decoder = dicomio.FileDecoder{}
	}
	if o.Encoder == nil {
		o.Encoder = overlay.BinaryKidney{}
	}
	if o.Normalizer == nil {
		o.Normalizer = LocalScaling{}
	}
	return o
}

// builder holds what both sample kinds share. Nothing is written after
// construction, so Get may be called from many goroutines.
type builder struct {
	paths []string
	attrs map[string]index.FileAttributes
	opts  Options
}

func newBuilder(idx *index.Index, opts Options) builder {
	opts = opts.withDefaults()

	order := idx.Order
	if opts.PatientOrder != nil {
		order = opts.PatientOrder
	}

	return builder{
		paths: idx.PathsFor(order),
		attrs: idx.Files,
		opts:  opts,
	}
}

func (b *builder) Len() int { return len(b.paths) }

func (b *builder) Paths() []string { return append([]string(nil), b.paths...) }

func (b *builder) Path(i int) string { return b.paths[i] }

func (b *builder) Attributes(i int) index.FileAttributes { return b.attrs[b.paths[i]] }

func (b *builder) OutputIndex() bool { return b.opts.OutputIndex }

func (b *builder) checkIndex(i int) error {
	if i < 0 || i >= len(b.paths) {
		return fmt.Errorf("sample index %d out of range [0, %d)", i, len(b.paths))
	}
	return nil
}

// grayImage decodes and normalizes slice i.
func (b *builder) grayImage(i int) (*image.Gray, error) {
	path := b.paths[i]

	px, err := b.opts.Decoder.Pixels(path)
	if err != nil {
		return nil, err
	}

	img, err := b.opts.Normalizer.Normalize(px, b.attrs[path])
	if err != nil {
		return nil, &tkvseg.DecodeError{Path: path, Err: err}
	}

	return img, nil
}

// finish converts the (possibly augmented) image to a 3×H×W float tensor
// and fills in the index.
func (b *builder) finish(i int, img *image.Gray) Sample {
	bounds := img.Bounds()
	rows, cols := bounds.Dy(), bounds.Dx()
	plane := rows * cols

	out := Sample{Rows: rows, Cols: cols, Index: -1}
	if b.opts.OutputIndex {
		out.Index = i
	}

	gray := make([]float32, plane)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			gray[y*cols+x] = float32(img.Pix[img.PixOffset(bounds.Min.X+x, bounds.Min.Y+y)]) / 255
		}
	}

	out.Image = make([]float32, 3*plane)

	if b.opts.Preprocessor == nil {
		for c := 0; c < 3; c++ {
			copy(out.Image[c*plane:(c+1)*plane], gray)
		}
		return out
	}

	hwc := make([]float32, 3*plane)
	for j, v := range gray {
		hwc[j*3], hwc[j*3+1], hwc[j*3+2] = v, v, v
	}
	b.opts.Preprocessor.Preprocess(hwc, rows, cols)
	for j := 0; j < plane; j++ {
		for c := 0; c < 3; c++ {
			out.Image[c*plane+j] = hwc[j*3+c]
		}
	}

	return out
}

// Segmentation builds labeled training samples.
type Segmentation struct {
	builder
}

// NewSegmentation builds over every file of idx in patient order.
func NewSegmentation(idx *index.Index, opts Options) *Segmentation {
	return &Segmentation{builder: newBuilder(idx, opts)}
}

func (s *Segmentation) labelPath(path string) string {
	if lp := s.attrs[path].LabelPath; lp != "" {
		return lp
	}
	return path + index.DefaultLabelSuffix
}

// Get builds sample i fresh from disk.
func (s *Segmentation) Get(i int) (Sample, error) {
	if err := s.checkIndex(i); err != nil {
		return Sample{}, err
	}
	path := s.paths[i]

	img, err := s.grayImage(i)
	if err != nil {
		return Sample{}, err
	}

	ids, err := s.opts.Decoder.Label(s.labelPath(path))
	if err != nil {
		return Sample{}, err
	}

	mask, err := s.opts.Encoder.Encode(ids)
	if err != nil {
		return Sample{}, &tkvseg.DecodeError{Path: s.labelPath(path), Err: err}
	}

	if b := img.Bounds(); mask.Rows != b.Dy() || mask.Cols != b.Dx() {
		return Sample{}, &tkvseg.ShapeMismatchError{
			Op:   "label",
			Want: fmt.Sprintf("%dx%d", b.Dy(), b.Dx()),
			Got:  fmt.Sprintf("%dx%d", mask.Rows, mask.Cols),
		}
	}

	if s.opts.Augmenter != nil {
		aug, err := s.opts.Augmenter.Augment(Pair{Image: img, Mask: mask.HWC(), Channels: mask.Channels, Key: path})
		if err != nil {
			return Sample{}, err
		}
		b := aug.Image.Bounds()
		if aug.Channels != mask.Channels {
			return Sample{}, &tkvseg.ShapeMismatchError{
				Op:   "augmentation",
				Want: fmt.Sprintf("%d mask channels", mask.Channels),
				Got:  fmt.Sprintf("%d", aug.Channels),
			}
		}
		if mask, err = overlay.MaskFromHWC(aug.Mask, b.Dy(), b.Dx(), aug.Channels); err != nil {
			return Sample{}, err
		}
		img = aug.Image
	}

	out := s.finish(i, img)
	out.Channels = mask.Channels
	out.Mask = make([]float32, len(mask.Pix))
	for j, v := range mask.Pix {
		out.Mask[j] = float32(v)
	}

	return out, nil
}

func (s *Segmentation) GetVerbose(i int) (Verbose, error) {
	smp, err := s.Get(i)
	if err != nil {
		return Verbose{}, err
	}
	return Verbose{Sample: smp, Path: s.paths[i], Attributes: s.Attributes(i)}, nil
}

// Materialize builds attribute columns over every sample. See
// materialize for the cost.
func (s *Segmentation) Materialize(types map[string]Kind, verify bool) (Columns, error) {
	return materialize(&s.builder, types, verify, func(i int) error {
		_, err := s.Get(i)
		return err
	})
}
