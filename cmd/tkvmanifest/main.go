package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/carbocation/tkvseg/compileinfo"
	_ "github.com/carbocation/tkvseg/compileinfoprint"
	"github.com/carbocation/tkvseg/config"
	"github.com/carbocation/tkvseg/index"
	"github.com/carbocation/tkvseg/sample"
	log "github.com/sirupsen/logrus"
)

var (
	BufferSize = 4096
	STDOUT     = bufio.NewWriterSize(os.Stdout, BufferSize)
)

// Indexes every DICOM below the data root and emits one JSON line of
// attributes per kept file to stdout, in patient order.
func main() {
	defer STDOUT.Flush()

	start := time.Now()
	build := compileinfo.Get().Fields()
	log.WithFields(build).Println("tkvmanifest start")
	defer func() {
		log.WithFields(build).Printf("tkvmanifest end. Took %.2f seconds\n", time.Since(start).Seconds())
	}()

	var configPath, root, saveConfig string
	var unlabeled, verify bool
	flag.StringVar(&configPath, "config", "", "(Optional) YAML config. Defaults are used for anything it leaves out.")
	flag.StringVar(&root, "root", "", "(Optional) Folder to search for .dcm files. Overrides data.root.")
	flag.BoolVar(&unlabeled, "unlabeled", false, "(Optional) Index files without label images.")
	flag.BoolVar(&verify, "verify", false, "(Optional) Decode every kept slice and build the dataset.attrib_types columns before emitting.")
	flag.StringVar(&saveConfig, "save-config", "", "(Optional) Write the effective config to this path and exit.")
	flag.Parse()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalln(err)
	}
	if root != "" {
		cfg.Data.Root = root
	}
	if unlabeled {
		cfg.Data.Labeled = false
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalln(err)
	}
	cfg.ConfigureStorage()

	if saveConfig != "" {
		if err := config.SaveConfig(cfg, saveConfig); err != nil {
			log.Fatalln(err)
		}
		return
	}

	if cfg.Data.Root == "" {
		flag.PrintDefaults()
		os.Exit(1)
	}

	idx, err := cfg.BuildIndex(nil)
	if err != nil {
		log.Fatalln(err)
	}

	if verify {
		if err := check(cfg, idx); err != nil {
			log.Fatalln(err)
		}
	}

	if err := emit(idx); err != nil {
		log.Fatalln(err)
	}

	log.Printf("Indexed %d files from %d patients\n", idx.Len(), len(idx.Order))
}

// check decodes every slice of idx and materializes the configured
// attribute columns, failing on the first bad slice.
func check(cfg *config.Config, idx *index.Index) error {
	types, err := cfg.AttribTypes()
	if err != nil {
		return err
	}

	opts, err := cfg.SampleOptions(idx, nil, nil)
	if err != nil {
		return err
	}

	var b sample.Builder
	if cfg.Data.Labeled {
		b = sample.NewSegmentation(idx, opts)
	} else {
		b = sample.NewInference(idx, opts)
	}

	cols, err := b.Materialize(types, true)
	if err != nil {
		return err
	}
	log.WithFields(log.Fields{"columns": cols.Names(), "samples": b.Len()}).Println("Verified samples")

	return nil
}

func emit(idx *index.Index) error {
	enc := json.NewEncoder(STDOUT)
	for _, path := range idx.Paths() {
		if err := enc.Encode(idx.Files[path]); err != nil {
			return err
		}
	}

	rejected := make([]string, 0, len(idx.Rejected))
	for path := range idx.Rejected {
		rejected = append(rejected, path)
	}
	sort.Strings(rejected)
	for _, path := range rejected {
		fmt.Fprintf(os.Stderr, "rejected\t%s\t%v\n", path, idx.Rejected[path])
	}

	return nil
}
