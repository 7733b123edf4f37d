package config

import (
	"os"
	"os/user"
	"path/filepath"
	"testing"
	"time"

	"github.com/carbocation/tkvseg"
	"github.com/carbocation/tkvseg/dicomio"
	"github.com/carbocation/tkvseg/index"
	"github.com/carbocation/tkvseg/overlay"
	"github.com/carbocation/tkvseg/sample"
	"github.com/carbocation/tkvseg/split"
	"github.com/carbocation/tkvseg/tkvstats"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Split.Key != "TRAIN" {
		t.Errorf("expected defaults, got split key %q", cfg.Split.Key)
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")

	cfg := DefaultConfig()
	cfg.Data.Root = "/data"
	cfg.Split.Parts = []split.Part{{Name: "TRAIN", Fraction: 0.5}, {Name: "TEST", Fraction: 0.5}}
	cfg.Ingress.Command = []string{"infer", "--config", "inference.yml"}

	if err := SaveConfig(cfg, path); err != nil {
		t.Fatal(err)
	}

	got, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.Data.Root != "/data" || len(got.Split.Parts) != 2 || got.Split.Parts[1].Name != "TEST" {
		t.Errorf("round trip lost values: %+v", got)
	}
	if len(got.Ingress.Command) != 3 {
		t.Errorf("unexpected command %v", got.Ingress.Command)
	}
}

func TestPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("stats:\n  threshold: 0.7\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Stats.Threshold != 0.7 {
		t.Errorf("expected threshold 0.7, got %v", cfg.Stats.Threshold)
	}
	if cfg.Dataset.ResizeHeight != 256 {
		t.Errorf("expected default resize, got %d", cfg.Dataset.ResizeHeight)
	}
}

func TestBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("data: [unclosed\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadConfig(path); !tkvseg.IsConfigurationError(err) {
		t.Errorf("expected a ConfigurationError, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"study_by", func(c *Config) { c.Data.StudyBy = "date" }},
		{"series_pattern", func(c *Config) { c.Data.SeriesPattern = "(" }},
		{"parts", func(c *Config) { c.Split.Parts = []split.Part{{Name: "TRAIN", Fraction: 0.9}} }},
		{"encoding", func(c *Config) { c.Dataset.LabelEncoding = "trinary" }},
		{"normalization", func(c *Config) { c.Dataset.Normalization = "global" }},
		{"window", func(c *Config) { c.Dataset.Normalization = "study"; c.Dataset.Window = 0 }},
		{"resize", func(c *Config) { c.Dataset.ResizeWidth = 0 }},
		{"flip", func(c *Config) { c.Dataset.HorizontalFlip = 1.5 }},
		{"preprocess", func(c *Config) { c.Dataset.Preprocess = "caffe" }},
		{"threshold", func(c *Config) { c.Stats.Threshold = 1 }},
		{"quiet", func(c *Config) { c.Ingress.Quiet = "soon" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			if err := cfg.Validate(); !tkvseg.IsConfigurationError(err) {
				t.Errorf("expected a ConfigurationError, got %v", err)
			}
		})
	}
}

func TestResolve(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Dataset.LabelEncoding = "multiclass"
	cfg.Dataset.HorizontalFlip = 0.5

	aug := cfg.Augmenter()
	if h, w, ok := sample.ResizeDims(aug); !ok || h != 256 || w != 256 {
		t.Errorf("unexpected resize %d %d %v", h, w, ok)
	}

	opts, err := cfg.ExportOptions()
	if err != nil {
		t.Fatal(err)
	}
	if opts.ResizeDim != [2]int{256, 256} || !opts.HasBackground || opts.BackgroundChannel != 0 {
		t.Errorf("unexpected export options %+v", opts)
	}

	if b, ok := cfg.StatsOptions().Binarizer.(tkvstats.SigmoidBinarize); !ok || b.Threshold != 0.5 {
		t.Errorf("unexpected binarizer %+v", cfg.StatsOptions().Binarizer)
	}

	cfg.Dataset.ResizeHeight, cfg.Dataset.ResizeWidth, cfg.Dataset.HorizontalFlip = 0, 0, 0
	if cfg.Augmenter() != nil {
		t.Error("expected no augmenter")
	}
}

// metaDecoder serves headers only.
type metaDecoder map[string]dicomio.Meta

func (m metaDecoder) Meta(path string) (dicomio.Meta, error) { return m[path], nil }

func (m metaDecoder) Pixels(path string) (dicomio.Pixels, error) {
	return dicomio.Pixels{}, os.ErrNotExist
}

func (m metaDecoder) Label(path string) (overlay.IDPlane, error) {
	return overlay.IDPlane{}, os.ErrNotExist
}

func TestAttribTypes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := "data:\n  labeled: false\ndataset:\n  attrib_types:\n    rows: int32\n    slice_thickness: float64\n"
	if err := os.WriteFile(path, []byte(yml), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	types, err := cfg.AttribTypes()
	if err != nil {
		t.Fatal(err)
	}
	if len(types) != 2 || types["rows"] != sample.Int32 || types["slice_thickness"] != sample.Float64 {
		t.Fatalf("unexpected kinds %v", types)
	}

	dec := metaDecoder{
		"/d/A/mr/0.dcm": {PatientID: "A", Rows: 4, Cols: 4, PixelSpacing: [2]float64{1, 1}, SliceThickness: 2.5},
		"/d/A/mr/1.dcm": {PatientID: "A", Rows: 4, Cols: 4, PixelSpacing: [2]float64{1, 1}, SliceThickness: 2.5},
	}
	idx := index.Build([]string{"/d/A/mr/0.dcm", "/d/A/mr/1.dcm"}, cfg.IndexOptions(dec))
	opts, err := cfg.SampleOptions(idx, dec, nil)
	if err != nil {
		t.Fatal(err)
	}

	cols, err := sample.NewInference(idx, opts).Materialize(types, false)
	if err != nil {
		t.Fatal(err)
	}
	if c := cols["rows"]; c.Kind != sample.Int32 || len(c.I32) != 2 || c.I32[0] != 4 {
		t.Errorf("unexpected rows column %+v", c)
	}
	if c := cols["slice_thickness"]; c.Kind != sample.Float64 || len(c.F64) != 2 || c.F64[1] != 2.5 {
		t.Errorf("unexpected slice_thickness column %+v", c)
	}

	for field, bad := range map[string]map[string]string{
		"kind": {"rows": "uint8"},
		"name": {"bogus": "float32"},
	} {
		cfg.Dataset.AttribTypes = bad
		if err := cfg.Validate(); !tkvseg.IsConfigurationError(err) {
			t.Errorf("unknown %s: expected a ConfigurationError, got %v", field, err)
		}
	}

	cfg.Dataset.AttribTypes = nil
	if types, err := cfg.AttribTypes(); err != nil || len(types) != len(sample.DefaultAttribTypes()) {
		t.Errorf("expected the default columns, got %v %v", types, err)
	}
}

func TestStatsSmooth(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.StatsOptions().Smooth.Valid {
		t.Error("an unset smooth must leave the default to tkvstats")
	}

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("stats:\n  smooth: 0\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if s := cfg.StatsOptions().Smooth; !s.Valid || s.Float64 != 0 {
		t.Errorf("expected an explicit smooth of 0, got %+v", s)
	}
}

func TestSplitterChoice(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Split.Path = filepath.Join(t.TempDir(), "split.json")

	if _, ok := cfg.Splitter(nil).(split.RandomSplitter); !ok {
		t.Error("expected a random splitter when no split file exists")
	}

	if err := split.WriteFile(cfg.Split.Path, split.Split{"TRAIN": {"a"}}); err != nil {
		t.Fatal(err)
	}
	if _, ok := cfg.Splitter(nil).(split.JSONSplitter); !ok {
		t.Error("expected the persisted split to be used")
	}
}

func TestPipeline(t *testing.T) {
	dir := t.TempDir()

	cfg := DefaultConfig()
	cfg.Ingress.Manifest = filepath.Join(dir, "m.csv")
	cfg.Ingress.Status = filepath.Join(dir, "s.csv")
	cfg.Ingress.Quiet = "90s"
	cfg.Ingress.Command = []string{"true"}

	p, err := cfg.Pipeline(nil)
	if err != nil {
		t.Fatal(err)
	}
	if p.Quiet != 90*time.Second || p.Trigger == nil {
		t.Errorf("unexpected pipeline %+v", p)
	}
}

func TestExpandHome(t *testing.T) {
	if ExpandHome("/abs/path") != "/abs/path" {
		t.Error("absolute paths must not change")
	}
	if _, err := user.Current(); err != nil {
		t.Skip("no current user:", err)
	}
	if got := ExpandHome("~/data"); got == "~/data" || filepath.Base(got) != "data" {
		t.Errorf("unexpected expansion %q", got)
	}
}
