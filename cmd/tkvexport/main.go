package main

import (
	"flag"
	"os"
	"time"

	"github.com/carbocation/tkvseg/artifact"
	"github.com/carbocation/tkvseg/compileinfo"
	_ "github.com/carbocation/tkvseg/compileinfoprint"
	"github.com/carbocation/tkvseg/config"
	"github.com/carbocation/tkvseg/sample"
	"github.com/carbocation/tkvseg/split"
	log "github.com/sirupsen/logrus"
)

// Runs the configured predictor over one split partition and writes
// per-slice artifacts under <export.root>/<export.model>/<patient>/<study>.
func main() {
	start := time.Now()
	build := compileinfo.Get().Fields()
	log.WithFields(build).Println("tkvexport start")
	defer func() {
		log.WithFields(build).Printf("tkvexport end. Took %.2f seconds\n", time.Since(start).Seconds())
	}()

	var configPath, root, key, predictions, out, model string
	var inference bool
	var minComponent int
	flag.StringVar(&configPath, "config", "", "(Optional) YAML config.")
	flag.StringVar(&root, "root", "", "(Optional) Folder to search for .dcm files. Overrides data.root.")
	flag.StringVar(&key, "key", "", "(Optional) Split partition to export. Overrides split.key. Use 'ALL' to skip splitting.")
	flag.StringVar(&predictions, "predictions", "", "(Optional) Folder of predicted mask images. Overrides export.prediction_dir.")
	flag.StringVar(&out, "out", "", "(Optional) Artifact root. Overrides export.root.")
	flag.StringVar(&model, "model", "", "(Optional) Model name for the artifact folder. Overrides export.model.")
	flag.IntVar(&minComponent, "min-component", 0, "(Optional) Drop predicted regions with fewer pixels than this. Overrides export.min_component_pixels when nonzero.")
	flag.BoolVar(&inference, "inference", false, "(Optional) Export unlabeled data. No ground truth is written.")
	flag.Parse()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalln(err)
	}
	if root != "" {
		cfg.Data.Root = root
	}
	if key != "" {
		cfg.Split.Key = key
	}
	if predictions != "" {
		cfg.Export.PredictionDir = predictions
	}
	if out != "" {
		cfg.Export.Root = out
	}
	if model != "" {
		cfg.Export.Model = model
	}
	if minComponent != 0 {
		cfg.Export.MinComponentPixels = minComponent
	}
	if inference {
		cfg.Data.Labeled = false
	}
	cfg.Dataset.OutputIndex = true
	if err := cfg.Validate(); err != nil {
		log.Fatalln(err)
	}
	cfg.ConfigureStorage()

	if cfg.Export.PredictionDir == "" {
		flag.PrintDefaults()
		os.Exit(1)
	}

	idx, err := cfg.BuildIndex(nil)
	if err != nil {
		log.Fatalln(err)
	}

	order := idx.Order
	if cfg.Split.Key != "ALL" {
		if idx, order, err = split.Resolve(idx, cfg.Splitter(idx), cfg.Split.Key); err != nil {
			log.Fatalln(err)
		}
	}

	opts, err := cfg.SampleOptions(idx, nil, order)
	if err != nil {
		log.Fatalln(err)
	}

	var builder sample.Builder
	if cfg.Data.Labeled {
		builder = sample.NewSegmentation(idx, opts)
	} else {
		builder = sample.NewInference(idx, opts)
	}

	exportOpts, err := cfg.ExportOptions()
	if err != nil {
		log.Fatalln(err)
	}

	w := artifact.Writer{Root: cfg.Export.Root, Model: cfg.Export.Model}
	n, err := artifact.Export(builder, cfg.Predictor(), w, exportOpts)
	if err != nil {
		log.Fatalln(err)
	}

	log.Printf("Exported %d of %d slices to %s\n", n, builder.Len(), w.Dir(artifact.Attributes{}))
}
