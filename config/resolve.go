package config

import (
	"os"
	"regexp"
	"time"

	"github.com/carbocation/tkvseg"
	"github.com/carbocation/tkvseg/artifact"
	"github.com/carbocation/tkvseg/dicomio"
	"github.com/carbocation/tkvseg/index"
	"github.com/carbocation/tkvseg/ingress"
	"github.com/carbocation/tkvseg/overlay"
	"github.com/carbocation/tkvseg/sample"
	"github.com/carbocation/tkvseg/split"
	"github.com/carbocation/tkvseg/tkvstats"
	"google.golang.org/api/option"
	"gopkg.in/guregu/null.v3"
)

// ConfigureStorage passes data.credentials to the Google Storage client.
// Call it before the first gs:// access.
func (c *Config) ConfigureStorage() {
	if c.Data.Credentials != "" {
		tkvseg.ConfigureStorage(option.WithCredentialsFile(c.Data.Credentials))
	}
}

func (c *Config) IndexOptions(dec dicomio.Decoder) index.Options {
	opts := index.Options{
		Decoder:     dec,
		Labeled:     c.Data.Labeled,
		LabelSuffix: c.Data.LabelSuffix,
		Concurrency: c.Data.Concurrency,
	}
	if c.Data.StudyBy == "accession" {
		opts.StudyBy = index.StudyFromAccession
	}
	return opts
}

// Filter is the file filter implied by the data section.
func (c *Config) Filter() index.Filter {
	var filters []index.Filter
	if c.Data.Labeled {
		filters = append(filters, index.LabeledFilter{})
	}
	if c.Data.SeriesPattern != "" {
		filters = append(filters, index.SeriesFilter{Pattern: regexp.MustCompile(c.Data.SeriesPattern)})
	}
	return index.Chain(filters...)
}

// BuildIndex discovers, indexes and filters the files below data.root.
func (c *Config) BuildIndex(dec dicomio.Decoder) (*index.Index, error) {
	if c.Data.Root == "" {
		return nil, tkvseg.NewConfigurationError("data.root", "no data folder configured")
	}

	paths, err := index.Discover(c.Data.Root)
	if err != nil {
		return nil, err
	}

	idx := index.Build(paths, c.IndexOptions(dec))
	return c.Filter().Apply(idx), nil
}

// Splitter reads split.path when it exists, and otherwise draws a new split.
func (c *Config) Splitter(idx *index.Index) split.Splitter {
	if c.Split.Path != "" {
		if _, err := os.Stat(c.Split.Path); err == nil || tkvseg.IsGoogleStoragePath(c.Split.Path) {
			return split.JSONSplitter{Path: c.Split.Path}
		}
	}

	if c.Split.StratifyBy != "" {
		return split.StratifiedSplitter{
			Parts:  c.Split.Parts,
			Seed:   c.Split.Seed,
			Bins:   c.Split.Bins,
			Values: split.ByAttribute(idx, c.Split.StratifyBy),
		}
	}

	return split.RandomSplitter{Parts: c.Split.Parts, Seed: c.Split.Seed}
}

func (c *Config) Encoder() (overlay.Encoder, error) {
	return overlay.EncoderByName(c.Dataset.LabelEncoding, nil)
}

// Augmenter composes the resize and flips of the dataset section, or
// returns nil when none are configured.
func (c *Config) Augmenter() sample.Augmenter {
	var augs sample.Compose
	if c.Dataset.ResizeHeight > 0 && c.Dataset.ResizeWidth > 0 {
		augs = append(augs, sample.Resize{Height: c.Dataset.ResizeHeight, Width: c.Dataset.ResizeWidth})
	}
	if c.Dataset.HorizontalFlip > 0 {
		augs = append(augs, sample.HorizontalFlip{P: c.Dataset.HorizontalFlip, Seed: c.Dataset.AugmentSeed})
	}
	if c.Dataset.VerticalFlip > 0 {
		augs = append(augs, sample.VerticalFlip{P: c.Dataset.VerticalFlip, Seed: c.Dataset.AugmentSeed + 1})
	}

	if len(augs) == 0 {
		return nil
	}
	return augs
}

// AttribTypes resolves dataset.attrib_types into typed column kinds.
func (c *Config) AttribTypes() (map[string]sample.Kind, error) {
	if len(c.Dataset.AttribTypes) == 0 {
		return sample.DefaultAttribTypes(), nil
	}

	out := make(map[string]sample.Kind, len(c.Dataset.AttribTypes))
	for name, kind := range c.Dataset.AttribTypes {
		if !index.IsNumeric(name) {
			return nil, tkvseg.NewConfigurationError("dataset.attrib_types", "unknown attribute %q", name)
		}
		k, err := sample.ParseKind(kind)
		if err != nil {
			return nil, err
		}
		out[name] = k
	}
	return out, nil
}

// SampleOptions resolves the dataset section. Study normalization decodes
// every file of idx once.
func (c *Config) SampleOptions(idx *index.Index, dec dicomio.Decoder, patientOrder []string) (sample.Options, error) {
	enc, err := c.Encoder()
	if err != nil {
		return sample.Options{}, err
	}

	opts := sample.Options{
		Decoder:      dec,
		Encoder:      enc,
		Augmenter:    c.Augmenter(),
		OutputIndex:  c.Dataset.OutputIndex,
		PatientOrder: patientOrder,
	}

	if c.Dataset.Normalization == "study" {
		norm, err := sample.NewStudyStatsNormalizer(idx, dec, c.Dataset.Window)
		if err != nil {
			return sample.Options{}, tkvseg.NewConfigurationError("dataset.window", "%v", err)
		}
		opts.Normalizer = norm
	}

	if c.Dataset.Preprocess == "imagenet" {
		opts.Preprocessor = sample.ImageNetPreprocessor{}
	}

	return opts, nil
}

func (c *Config) Predictor() artifact.MaskFolderPredictor {
	return artifact.MaskFolderPredictor{
		Dir:                c.Export.PredictionDir,
		Suffix:             c.Export.PredictionSuffix,
		MinComponentPixels: c.Export.MinComponentPixels,
	}
}

// ExportOptions pairs the configured resize with the background channel of
// the configured encoding.
func (c *Config) ExportOptions() (artifact.ExportOptions, error) {
	enc, err := c.Encoder()
	if err != nil {
		return artifact.ExportOptions{}, err
	}

	opts := artifact.ExportOptions{Concurrency: c.Export.Concurrency}
	if h, w, ok := sample.ResizeDims(c.Augmenter()); ok {
		opts.ResizeDim = [2]int{h, w}
	}
	opts.BackgroundChannel, opts.HasBackground = overlay.BackgroundChannel(enc)

	return opts, nil
}

func (c *Config) StatsOptions() tkvstats.Options {
	opts := tkvstats.Options{
		Binarizer: tkvstats.SigmoidBinarize{Threshold: c.Stats.Threshold},
		Power:     c.Stats.Power,
	}
	if c.Stats.Smooth != nil {
		opts.Smooth = null.FloatFrom(*c.Stats.Smooth)
	}
	return opts
}

// Pipeline opens the manifest and status books of the ingress section.
func (c *Config) Pipeline(dec dicomio.Decoder) (*ingress.Pipeline, error) {
	manifest, err := ingress.OpenManifest(c.Ingress.Manifest)
	if err != nil {
		return nil, err
	}

	status, err := ingress.OpenStatusBook(c.Ingress.Status)
	if err != nil {
		return nil, err
	}

	quiet := ingress.DefaultQuiet
	if c.Ingress.Quiet != "" {
		if quiet, err = time.ParseDuration(c.Ingress.Quiet); err != nil {
			return nil, tkvseg.NewConfigurationError("ingress.quiet", "%v", err)
		}
	}

	p := &ingress.Pipeline{
		Ingress:    c.Ingress.Dir,
		Structured: c.Ingress.Structured,
		Staging:    c.Ingress.Staging,
		Manifest:   manifest,
		Status:     status,
		Decoder:    dec,
		Quiet:      quiet,
	}
	if len(c.Ingress.Command) > 0 {
		p.Trigger = ingress.CommandTrigger{Name: c.Ingress.Command[0], Args: c.Ingress.Command[1:]}
	}

	return p, nil
}
