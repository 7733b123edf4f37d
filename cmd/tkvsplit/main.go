package main

import (
	"flag"
	"os"
	"time"

	"github.com/carbocation/tkvseg/compileinfo"
	_ "github.com/carbocation/tkvseg/compileinfoprint"
	"github.com/carbocation/tkvseg/config"
	"github.com/carbocation/tkvseg/split"
	log "github.com/sirupsen/logrus"
)

// Draws a patient split over the indexed data and writes it as JSON. An
// existing split file is never overwritten unless -force is given.
func main() {
	start := time.Now()
	build := compileinfo.Get().Fields()
	log.WithFields(build).Println("tkvsplit start")
	defer func() {
		log.WithFields(build).Printf("tkvsplit end. Took %.2f seconds\n", time.Since(start).Seconds())
	}()

	var configPath, root, out string
	var seed int64
	var force bool
	flag.StringVar(&configPath, "config", "", "(Optional) YAML config.")
	flag.StringVar(&root, "root", "", "(Optional) Folder to search for .dcm files. Overrides data.root.")
	flag.StringVar(&out, "out", "", "(Optional) Split JSON to write. Overrides split.path.")
	flag.Int64Var(&seed, "seed", 0, "(Optional) Shuffle seed. Overrides split.seed when nonzero.")
	flag.BoolVar(&force, "force", false, "(Optional) Overwrite an existing split file.")
	flag.Parse()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalln(err)
	}
	if root != "" {
		cfg.Data.Root = root
	}
	if out != "" {
		cfg.Split.Path = out
	}
	if seed != 0 {
		cfg.Split.Seed = seed
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalln(err)
	}
	cfg.ConfigureStorage()

	if cfg.Split.Path == "" {
		flag.PrintDefaults()
		os.Exit(1)
	}

	if _, err := os.Stat(cfg.Split.Path); err == nil && !force {
		log.Fatalf("%s already exists; pass -force to replace it\n", cfg.Split.Path)
	}

	idx, err := cfg.BuildIndex(nil)
	if err != nil {
		log.Fatalln(err)
	}

	// Draw fresh, ignoring any file at split.path.
	path := cfg.Split.Path
	cfg.Split.Path = ""
	s, err := cfg.Splitter(idx).Split(idx.Order)
	if err != nil {
		log.Fatalln(err)
	}

	if err := split.WriteFile(path, s); err != nil {
		log.Fatalln(err)
	}

	for _, name := range s.Names() {
		log.WithFields(log.Fields{"partition": name, "patients": len(s[name])}).Println("Wrote partition")
	}
}
