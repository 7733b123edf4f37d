package overlay

import (
	"image"
	"image/color"
	"testing"
)

func plane(rows, cols int, pix ...uint8) IDPlane {
	return IDPlane{Rows: rows, Cols: cols, Pix: pix}
}

func TestBinaryKidneyOneHot(t *testing.T) {
	p := plane(2, 3, 0, 1, 2, 255, 0, 0)

	m, err := BinaryKidney{}.Encode(p)
	if err != nil {
		t.Fatal(err)
	}

	if m.Channels != 1 {
		t.Fatalf("expected 1 channel, got %d", m.Channels)
	}

	want := []uint8{0, 1, 1, 1, 0, 0}
	for i, v := range want {
		if m.Pix[i] != v {
			t.Errorf("pixel %d: expected %d, got %d", i, v, m.Pix[i])
		}
	}
}

func TestMultiClassKidneySumsToOne(t *testing.T) {
	p := plane(2, 2, 0, 1, 2, 1)

	enc := MultiClassKidney{Labels: KidneyLabels()}
	m, err := enc.Encode(p)
	if err != nil {
		t.Fatal(err)
	}

	if m.Channels != 3 {
		t.Fatalf("expected 3 channels, got %d", m.Channels)
	}

	for r := 0; r < m.Rows; r++ {
		for c := 0; c < m.Cols; c++ {
			sum := 0
			for ch := 0; ch < m.Channels; ch++ {
				sum += int(m.At(ch, r, c))
			}
			if sum != 1 {
				t.Errorf("pixel (%d,%d) sums to %d", r, c, sum)
			}
		}
	}

	// Right kidney (ID 2) sorts into channel 2
	if m.At(2, 1, 0) != 1 {
		t.Errorf("expected right kidney at channel 2")
	}
}

func TestMultiClassKidneyUnknownID(t *testing.T) {
	if _, err := (MultiClassKidney{Labels: KidneyLabels()}).Encode(plane(1, 1, 7)); err == nil {
		t.Fatal("expected an error for an unmapped ID")
	}
}

func TestMaskHWCRoundTrip(t *testing.T) {
	m, err := (MultiClassKidney{Labels: KidneyLabels()}).Encode(plane(2, 2, 0, 1, 2, 0))
	if err != nil {
		t.Fatal(err)
	}

	back, err := MaskFromHWC(m.HWC(), m.Rows, m.Cols, m.Channels)
	if err != nil {
		t.Fatal(err)
	}

	for i := range m.Pix {
		if m.Pix[i] != back.Pix[i] {
			t.Fatalf("round trip differs at %d", i)
		}
	}

	if _, err := MaskFromHWC(m.HWC()[1:], m.Rows, m.Cols, m.Channels); err == nil {
		t.Error("expected a shape mismatch")
	}
}

func TestDecodeIDPlane(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	img.Set(0, 0, color.RGBA{0, 0, 0, 0})
	img.Set(1, 0, color.RGBA{2, 2, 2, 255})

	p, err := DecodeIDPlane(img)
	if err != nil {
		t.Fatal(err)
	}

	if p.At(0, 0) != 0 || p.At(0, 1) != 2 {
		t.Errorf("unexpected IDs %v", p.Pix)
	}

	if p.Nonzero() != 1 {
		t.Errorf("expected 1 nonzero pixel, got %d", p.Nonzero())
	}
}

func TestEncoderByName(t *testing.T) {
	if _, err := EncoderByName("trinary", nil); err == nil {
		t.Error("expected a configuration error")
	}

	enc, err := EncoderByName("multiclass", nil)
	if err != nil {
		t.Fatal(err)
	}
	if enc.Channels() != 3 {
		t.Errorf("expected 3 channels, got %d", enc.Channels())
	}
}

func TestBackgroundChannel(t *testing.T) {
	if _, ok := BackgroundChannel(BinaryKidney{}); ok {
		t.Error("binary masks have no background channel")
	}
	if c, ok := BackgroundChannel(MultiClassKidney{Labels: KidneyLabels()}); !ok || c != 0 {
		t.Errorf("expected background at channel 0, got %d %v", c, ok)
	}
}
