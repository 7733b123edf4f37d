package artifact

import (
	"sync/atomic"

	"github.com/carbocation/tkvseg"
	"github.com/carbocation/tkvseg/sample"
	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"
)

type ExportOptions struct {
	// ResizeDim is the (height, width) the model input was resized to,
	// recorded as transform_resize_dim. See sample.ResizeDims.
	ResizeDim [2]int

	// BackgroundChannel, when HasBackground is set, is left out when the
	// one-hot ground truth is collapsed to a single foreground plane.
	BackgroundChannel int
	HasBackground     bool

	Concurrency int
}

// Export predicts every sample of b and writes its artifacts. The builder
// must emit sample indices. Samples that fail are logged and skipped; the
// number written is returned.
func Export(b sample.Builder, p Predictor, w Writer, opts ExportOptions) (int, error) {
	if opts.ResizeDim[0] <= 0 || opts.ResizeDim[1] <= 0 {
		return 0, tkvseg.NewConfigurationError("export.resize", "a resize transform is required to export artifacts")
	}

	if !b.OutputIndex() {
		return 0, tkvseg.NewConfigurationError("dataset.output_idx", "output indices are required for export")
	}

	var written int64
	err := sample.Each(b.Len(), opts.Concurrency, func(i int) error {
		v, err := b.GetVerbose(i)
		if err != nil {
			log.WithFields(log.Fields{"index": i, "error": err}).Warnln("Skipping sample")
			return nil
		}

		pred, err := p.Predict(v.Sample, v.Path)
		if err != nil {
			log.WithFields(log.Fields{"path": v.Path, "error": err}).Warnln("Skipping sample without prediction")
			return nil
		}

		s := Slice{
			Stem:       Stem(v.Path),
			Attributes: Attributes{FileAttributes: v.Attributes, TransformResizeDim: opts.ResizeDim},
			Image:      firstChannel(v.Sample),
			Pred:       pred,
			Ground:     foreground(v.Sample, opts),
		}

		if err := w.Write(s); err != nil {
			return err
		}

		atomic.AddInt64(&written, 1)
		return nil
	})

	return int(written), err
}

func firstChannel(s sample.Sample) *mat.Dense {
	out := mat.NewDense(s.Rows, s.Cols, nil)
	for i := 0; i < s.Rows*s.Cols; i++ {
		out.Set(i/s.Cols, i%s.Cols, float64(s.Image[i]))
	}
	return out
}

// foreground collapses a one-hot mask to the max over its non-background
// channels.
func foreground(s sample.Sample, opts ExportOptions) *mat.Dense {
	if s.Mask == nil {
		return nil
	}

	plane := s.Rows * s.Cols
	out := mat.NewDense(s.Rows, s.Cols, nil)
	for c := 0; c < s.Channels; c++ {
		if opts.HasBackground && c == opts.BackgroundChannel {
			continue
		}
		for i := 0; i < plane; i++ {
			if v := float64(s.Mask[c*plane+i]); v > out.At(i/s.Cols, i%s.Cols) {
				out.Set(i/s.Cols, i%s.Cols, v)
			}
		}
	}
	return out
}
