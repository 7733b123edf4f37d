// Package config loads the YAML configuration shared by the tkvseg binaries
// and resolves it into the concrete index, split, sample and statistics
// options.
package config

import (
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"time"

	"github.com/carbocation/pfx"
	"github.com/carbocation/tkvseg"
	"github.com/carbocation/tkvseg/split"
	"gopkg.in/yaml.v3"
)

// Config is the full configuration. Every section has usable defaults.
type Config struct {
	Data struct {
		// Root is searched recursively for .dcm files.
		Root string `yaml:"root"`

		Labeled     bool   `yaml:"labeled"`
		LabelSuffix string `yaml:"label_suffix"`

		// StudyBy is "folder" (default) or "accession".
		StudyBy string `yaml:"study_by"`

		// SeriesPattern, when set, keeps only matching series descriptions.
		SeriesPattern string `yaml:"series_pattern"`

		Concurrency int `yaml:"concurrency"`

		// Credentials is a service account JSON file for gs:// paths. When
		// empty, application default credentials are used.
		Credentials string `yaml:"credentials"`
	} `yaml:"data"`

	Split struct {
		// Path is a split JSON file. If it does not exist, a split is drawn
		// and written there.
		Path  string       `yaml:"path"`
		Key   string       `yaml:"key"`
		Seed  int64        `yaml:"seed"`
		Parts []split.Part `yaml:"parts"`

		// StratifyBy names a numeric attribute, e.g. study_tkv. Empty draws
		// a plain random split.
		StratifyBy string `yaml:"stratify_by"`
		Bins       int    `yaml:"bins"`
	} `yaml:"split"`

	Dataset struct {
		// LabelEncoding is "binary" or "multiclass".
		LabelEncoding string `yaml:"label_encoding"`

		// Normalization is "local" or "study".
		Normalization string  `yaml:"normalization"`
		Window        float64 `yaml:"window"`

		ResizeHeight   int     `yaml:"resize_height"`
		ResizeWidth    int     `yaml:"resize_width"`
		HorizontalFlip float64 `yaml:"horizontal_flip"`
		VerticalFlip   float64 `yaml:"vertical_flip"`
		AugmentSeed    uint64  `yaml:"augment_seed"`

		// Preprocess is "" or "imagenet".
		Preprocess  string `yaml:"preprocess"`
		OutputIndex bool   `yaml:"output_idx"`

		// AttribTypes maps attribute names to float32, float64, int32 or
		// int64 columns. Empty means the training defaults.
		AttribTypes map[string]string `yaml:"attrib_types"`
	} `yaml:"dataset"`

	Export struct {
		Root  string `yaml:"root"`
		Model string `yaml:"model"`

		// PredictionDir holds mask images written by an external model.
		PredictionDir    string `yaml:"prediction_dir"`
		PredictionSuffix string `yaml:"prediction_suffix"`

		// MinComponentPixels drops predicted regions smaller than this.
		MinComponentPixels int `yaml:"min_component_pixels"`

		Concurrency int `yaml:"concurrency"`
	} `yaml:"export"`

	Stats struct {
		Root      string  `yaml:"root"`
		Output    string  `yaml:"output"`
		Patient   string  `yaml:"patient"`
		Threshold float64 `yaml:"threshold"`
		Power     float64 `yaml:"power"`

		// Smooth is the Dice ε. Unset means tkvstats.DefaultSmooth.
		Smooth *float64 `yaml:"smooth"`
	} `yaml:"stats"`

	Ingress struct {
		Dir        string `yaml:"dir"`
		Structured string `yaml:"structured"`
		Staging    string `yaml:"staging"`
		Manifest   string `yaml:"manifest"`
		Status     string `yaml:"status"`

		// Quiet is a Go duration, e.g. 10m.
		Quiet string `yaml:"quiet"`

		// Command is run, with its arguments, once patients are staged.
		Command []string `yaml:"command"`
	} `yaml:"ingress"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Data.Labeled = true
	cfg.Data.LabelSuffix = ".png.mask.png"
	cfg.Data.StudyBy = "folder"
	cfg.Data.Concurrency = 4 * runtime.NumCPU()

	cfg.Split.Path = "split.json"
	cfg.Split.Key = "TRAIN"
	cfg.Split.Seed = 1
	cfg.Split.Parts = split.DefaultParts()
	cfg.Split.Bins = 5

	cfg.Dataset.LabelEncoding = "binary"
	cfg.Dataset.Normalization = "local"
	cfg.Dataset.Window = 3
	cfg.Dataset.ResizeHeight = 256
	cfg.Dataset.ResizeWidth = 256
	cfg.Dataset.Preprocess = "imagenet"
	cfg.Dataset.OutputIndex = true

	cfg.Export.Root = "saved_inference"
	cfg.Export.Model = "model"
	cfg.Export.PredictionSuffix = ".png"
	cfg.Export.Concurrency = 4 * runtime.NumCPU()

	cfg.Stats.Root = "saved_inference"
	cfg.Stats.Output = "."
	cfg.Stats.Threshold = 0.5
	cfg.Stats.Power = 1

	cfg.Ingress.Dir = "ingress"
	cfg.Ingress.Structured = "structured_ingress"
	cfg.Ingress.Staging = "temp"
	cfg.Ingress.Manifest = "structured_ingress.csv"
	cfg.Ingress.Status = "patient_status.csv"
	cfg.Ingress.Quiet = "10m"

	return cfg
}

// LoadConfig overlays the YAML file at configPath onto the defaults. A
// missing file yields the defaults.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if os.IsNotExist(err) {
		return cfg, nil
	} else if err != nil {
		return nil, pfx.Err(err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, tkvseg.NewConfigurationError(configPath, "%v", err)
	}
	cfg.expandPaths()

	return cfg, nil
}

// SaveConfig writes cfg as YAML, creating the directory if needed.
func SaveConfig(cfg *Config, configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return pfx.Err(err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return pfx.Err(err)
	}

	return pfx.Err(os.WriteFile(configPath, data, 0644))
}

// Validate checks the values that cannot be caught by YAML decoding. The
// first problem found is returned as a ConfigurationError.
func (c *Config) Validate() error {
	switch c.Data.StudyBy {
	case "", "folder", "accession":
	default:
		return tkvseg.NewConfigurationError("data.study_by", "unknown value %q", c.Data.StudyBy)
	}

	if c.Data.SeriesPattern != "" {
		if _, err := regexp.Compile(c.Data.SeriesPattern); err != nil {
			return tkvseg.NewConfigurationError("data.series_pattern", "%v", err)
		}
	}

	if err := split.ValidateParts(c.Split.Parts); err != nil {
		return err
	}
	if c.Split.StratifyBy != "" && c.Split.Bins < 1 {
		return tkvseg.NewConfigurationError("split.bins", "need at least 1 bin, got %d", c.Split.Bins)
	}

	switch c.Dataset.LabelEncoding {
	case "", "binary", "multiclass":
	default:
		return tkvseg.NewConfigurationError("dataset.label_encoding", "unknown encoding %q", c.Dataset.LabelEncoding)
	}

	switch c.Dataset.Normalization {
	case "", "local":
	case "study":
		if c.Dataset.Window <= 0 {
			return tkvseg.NewConfigurationError("dataset.window", "must be positive, got %v", c.Dataset.Window)
		}
	default:
		return tkvseg.NewConfigurationError("dataset.normalization", "unknown normalization %q", c.Dataset.Normalization)
	}

	if (c.Dataset.ResizeHeight > 0) != (c.Dataset.ResizeWidth > 0) {
		return tkvseg.NewConfigurationError("dataset.resize_height", "resize needs both a height and a width")
	}

	for name, p := range map[string]float64{
		"dataset.horizontal_flip": c.Dataset.HorizontalFlip,
		"dataset.vertical_flip":   c.Dataset.VerticalFlip,
	} {
		if p < 0 || p > 1 {
			return tkvseg.NewConfigurationError(name, "probability %v is outside [0, 1]", p)
		}
	}

	switch c.Dataset.Preprocess {
	case "", "imagenet":
	default:
		return tkvseg.NewConfigurationError("dataset.preprocess", "unknown preprocessing %q", c.Dataset.Preprocess)
	}

	if _, err := c.AttribTypes(); err != nil {
		return err
	}

	if c.Stats.Threshold <= 0 || c.Stats.Threshold >= 1 {
		return tkvseg.NewConfigurationError("stats.threshold", "must be in (0, 1), got %v", c.Stats.Threshold)
	}

	if c.Ingress.Quiet != "" {
		if _, err := time.ParseDuration(c.Ingress.Quiet); err != nil {
			return tkvseg.NewConfigurationError("ingress.quiet", "%v", err)
		}
	}

	return nil
}
