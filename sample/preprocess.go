package sample

// A Preprocessor adjusts a channel-last H×W×3 float image in place, for
// example to match the normalization an encoder was pretrained with.
type Preprocessor interface {
	Preprocess(hwc []float32, rows, cols int)
}

// ImageNetPreprocessor standardizes each channel with the ImageNet mean and
// standard deviation. Input is expected in 0..1.
type ImageNetPreprocessor struct{}

var (
	imageNetMean = [3]float32{0.485, 0.456, 0.406}
	imageNetStd  = [3]float32{0.229, 0.224, 0.225}
)

func (ImageNetPreprocessor) Preprocess(hwc []float32, rows, cols int) {
	for i := 0; i < rows*cols; i++ {
		for c := 0; c < 3; c++ {
			hwc[i*3+c] = (hwc[i*3+c] - imageNetMean[c]) / imageNetStd[c]
		}
	}
}
