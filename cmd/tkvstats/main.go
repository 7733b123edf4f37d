package main

import (
	"flag"
	"time"

	"github.com/carbocation/tkvseg/compileinfo"
	_ "github.com/carbocation/tkvseg/compileinfoprint"
	"github.com/carbocation/tkvseg/config"
	"github.com/carbocation/tkvseg/tkvstats"
	log "github.com/sirupsen/logrus"
)

// Computes per-study Dice and TKV for every model under the artifact root,
// plus their ensemble, and writes one CSV per model.
func main() {
	start := time.Now()
	build := compileinfo.Get().Fields()
	log.WithFields(build).Println("tkvstats start")
	defer func() {
		log.WithFields(build).Printf("tkvstats end. Took %.2f seconds\n", time.Since(start).Seconds())
	}()

	var configPath, root, out, patient string
	var threshold float64
	flag.StringVar(&configPath, "config", "", "(Optional) YAML config.")
	flag.StringVar(&root, "root", "", "(Optional) Artifact root holding one folder per model. Overrides stats.root.")
	flag.StringVar(&out, "out", "", "(Optional) Folder for the stats-<model>.csv files. Overrides stats.output.")
	flag.StringVar(&patient, "patient", "", "(Optional) Only compute statistics for this patient.")
	flag.Float64Var(&threshold, "threshold", 0, "(Optional) Sigmoid threshold. Overrides stats.threshold when nonzero.")
	flag.Parse()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalln(err)
	}
	if root != "" {
		cfg.Stats.Root = root
	}
	if out != "" {
		cfg.Stats.Output = out
	}
	if patient != "" {
		cfg.Stats.Patient = patient
	}
	if threshold != 0 {
		cfg.Stats.Threshold = threshold
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalln(err)
	}
	cfg.ConfigureStorage()

	report, err := tkvstats.Compute(cfg.Stats.Root, cfg.Stats.Patient, cfg.StatsOptions())
	if err != nil {
		log.Fatalln(err)
	}

	if err := report.Write(cfg.Stats.Output); err != nil {
		log.Fatalln(err)
	}

	for _, m := range report.Models {
		log.WithFields(log.Fields{"model": m, "studies": len(report.PerModel[m])}).Println("Summarized")
	}
	if len(report.Combined) > 0 {
		log.WithFields(log.Fields{"model": tkvstats.CombinedModel, "studies": len(report.Combined)}).Println("Summarized")
	}
	if len(report.Skipped) > 0 {
		log.WithFields(log.Fields{"studies": len(report.Skipped)}).Warnln("Skipped studies without reference attributes")
	}
}
