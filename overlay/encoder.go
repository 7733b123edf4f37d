package overlay

import (
	"fmt"

	"github.com/carbocation/tkvseg"
)

// Mask is a one-hot, channel-first (C×H×W) mask.
type Mask struct {
	Channels, Rows, Cols int
	Pix                  []uint8
}

func NewMask(channels, rows, cols int) Mask {
	return Mask{Channels: channels, Rows: rows, Cols: cols, Pix: make([]uint8, channels*rows*cols)}
}

func (m Mask) At(c, row, col int) uint8 {
	return m.Pix[(c*m.Rows+row)*m.Cols+col]
}

func (m Mask) Set(c, row, col int, v uint8) {
	m.Pix[(c*m.Rows+row)*m.Cols+col] = v
}

// HWC returns the mask in channel-last layout, as required by the
// augmentation transforms.
func (m Mask) HWC() []uint8 {
	out := make([]uint8, len(m.Pix))
	plane := m.Rows * m.Cols
	for c := 0; c < m.Channels; c++ {
		for i := 0; i < plane; i++ {
			out[i*m.Channels+c] = m.Pix[c*plane+i]
		}
	}
	return out
}

// MaskFromHWC restores a channel-first mask from channel-last pixels.
func MaskFromHWC(pix []uint8, rows, cols, channels int) (Mask, error) {
	if len(pix) != rows*cols*channels {
		return Mask{}, &tkvseg.ShapeMismatchError{
			Op:   "MaskFromHWC",
			Want: fmt.Sprintf("%dx%dx%d", rows, cols, channels),
			Got:  fmt.Sprintf("%d values", len(pix)),
		}
	}

	out := NewMask(channels, rows, cols)
	plane := rows * cols
	for i := 0; i < plane; i++ {
		for c := 0; c < channels; c++ {
			out.Pix[c*plane+i] = pix[i*channels+c]
		}
	}
	return out, nil
}

// An Encoder expands a label ID plane into a one-hot mask. The set of
// encoders is closed: BinaryKidney and MultiClassKidney.
type Encoder interface {
	Channels() int
	Encode(IDPlane) (Mask, error)
}

// BinaryKidney emits one channel that is 1 wherever any kidney label is
// present. Background pixels sum to 0 across channels.
type BinaryKidney struct{}

func (BinaryKidney) Channels() int { return 1 }

func (BinaryKidney) Encode(p IDPlane) (Mask, error) {
	out := NewMask(1, p.Rows, p.Cols)
	for i, v := range p.Pix {
		if v != 0 {
			out.Pix[i] = 1
		}
	}
	return out, nil
}

// MultiClassKidney emits one channel per label, in LabelMap.Sorted() order.
// With a background label every pixel sums to exactly 1 across channels.
type MultiClassKidney struct {
	Labels LabelMap
}

func (m MultiClassKidney) Channels() int { return len(m.Labels) }

func (m MultiClassKidney) Encode(p IDPlane) (Mask, error) {
	channelOf, err := m.Labels.ChannelOf()
	if err != nil {
		return Mask{}, err
	}

	out := NewMask(len(m.Labels), p.Rows, p.Cols)
	plane := p.Rows * p.Cols
	for i, v := range p.Pix {
		c, ok := channelOf[uint32(v)]
		if !ok {
			if v == 0 && !m.Labels.HasBackground() {
				continue
			}
			return Mask{}, fmt.Errorf("label ID %d at pixel %d is not in the label map", v, i)
		}
		out.Pix[c*plane+i] = 1
	}
	return out, nil
}

// EncoderByName resolves a configured label encoding.
func EncoderByName(name string, labels LabelMap) (Encoder, error) {
	switch name {
	case "", "binary":
		return BinaryKidney{}, nil
	case "multiclass":
		if labels == nil {
			labels = KidneyLabels()
		}
		if !labels.Valid() {
			return nil, tkvseg.NewConfigurationError("dataset.label_encoding", "label map is not bijective")
		}
		return MultiClassKidney{Labels: labels}, nil
	}

	return nil, tkvseg.NewConfigurationError("dataset.label_encoding", "unknown encoding %q", name)
}

// BackgroundChannel reports which mask channel, if any, encodes the
// background.
func BackgroundChannel(enc Encoder) (int, bool) {
	m, ok := enc.(MultiClassKidney)
	if !ok || !m.Labels.HasBackground() {
		return 0, false
	}

	channelOf, err := m.Labels.ChannelOf()
	if err != nil {
		return 0, false
	}

	c, ok := channelOf[0]
	return c, ok
}
