package sample

import (
	"fmt"
	"image"
	"math"
	"sync"

	"github.com/carbocation/runningvariance"
	"github.com/carbocation/tkvseg/dicomio"
	"github.com/carbocation/tkvseg/index"
	log "github.com/sirupsen/logrus"
)

// A Normalizer maps raw 16-bit pixels to an 8-bit grayscale image. It may
// use the file's attributes.
type Normalizer interface {
	Normalize(px dicomio.Pixels, attrs index.FileAttributes) (*image.Gray, error)
}

// LocalScaling stretches each image's own min..max range onto 0..255. A
// constant image maps to 0.
type LocalScaling struct{}

func (LocalScaling) Normalize(px dicomio.Pixels, _ index.FileAttributes) (*image.Gray, error) {
	out := image.NewGray(image.Rect(0, 0, px.Cols, px.Rows))

	lo, hi := px.MinMax()
	if hi == lo {
		return out, nil
	}

	span := float64(hi) - float64(lo)
	for i, v := range px.Pix {
		out.Pix[i] = uint8(255 * (float64(v) - float64(lo)) / span)
	}

	return out, nil
}

// Moments summarize the intensities of one study.
type Moments struct {
	N    int
	Mean float64
	Std  float64
}

// StudyStatsNormalizer z-scores pixels against the mean and standard
// deviation of their study, then maps [-Window, +Window] onto 0..255.
type StudyStatsNormalizer struct {
	Window float64
	Stats  map[index.StudyKey]Moments
}

// NewStudyStatsNormalizer decodes every file of idx once to gather
// per-study intensity moments. Files that fail to decode are skipped.
func NewStudyStatsNormalizer(idx *index.Index, dec dicomio.Decoder, window float64) (*StudyStatsNormalizer, error) {
	if window <= 0 {
		return nil, fmt.Errorf("window must be positive, got %v", window)
	}
	if dec == nil {
		dec = dicomio.FileDecoder{}
	}

	var mu sync.Mutex
	running := make(map[index.StudyKey]*runningvariance.RunningStat)

	paths := idx.Paths()
	err := Each(len(paths), 0, func(i int) error {
		px, err := dec.Pixels(paths[i])
		if err != nil {
			log.WithFields(log.Fields{"path": paths[i], "error": err}).Warnln("Skipping file in study statistics")
			return nil
		}

		key := idx.Files[paths[i]].StudyKey()

		mu.Lock()
		defer mu.Unlock()

		rs, ok := running[key]
		if !ok {
			rs = runningvariance.NewRunningStat()
			running[key] = rs
		}
		for _, v := range px.Pix {
			rs.Push(float64(v))
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	out := &StudyStatsNormalizer{Window: window, Stats: make(map[index.StudyKey]Moments, len(running))}
	for k, rs := range running {
		out.Stats[k] = Moments{N: int(rs.N), Mean: rs.Mean(), Std: rs.StandardDeviation()}
	}

	return out, nil
}

func (s *StudyStatsNormalizer) Normalize(px dicomio.Pixels, attrs index.FileAttributes) (*image.Gray, error) {
	m, ok := s.Stats[attrs.StudyKey()]
	if !ok {
		return nil, fmt.Errorf("no intensity statistics for patient %s study %s", attrs.Patient, attrs.Study)
	}

	out := image.NewGray(image.Rect(0, 0, px.Cols, px.Rows))
	if m.Std == 0 || math.IsNaN(m.Std) {
		return out, nil
	}

	for i, v := range px.Pix {
		z := (float64(v) - m.Mean) / m.Std
		z = math.Max(-s.Window, math.Min(s.Window, z))
		out.Pix[i] = uint8(math.Round(255 * (z + s.Window) / (2 * s.Window)))
	}

	return out, nil
}
