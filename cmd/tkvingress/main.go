package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/carbocation/tkvseg/compileinfo"
	_ "github.com/carbocation/tkvseg/compileinfoprint"
	"github.com/carbocation/tkvseg/config"
	"github.com/carbocation/tkvseg/ingress"
	log "github.com/sirupsen/logrus"
)

// Watches the ingress folder, files arriving DICOMs by patient and series,
// and runs ingress.command once a patient has been quiet long enough.
func main() {
	start := time.Now()
	build := compileinfo.Get().Fields()
	log.WithFields(build).Println("tkvingress start")
	defer func() {
		log.WithFields(build).Printf("tkvingress end. Took %.2f seconds\n", time.Since(start).Seconds())
	}()

	var configPath, dir string
	flag.StringVar(&configPath, "config", "", "(Optional) YAML config.")
	flag.StringVar(&dir, "ingress", "", "(Optional) Folder to watch. Overrides ingress.dir.")
	flag.Parse()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalln(err)
	}
	if dir != "" {
		cfg.Ingress.Dir = dir
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalln(err)
	}
	cfg.ConfigureStorage()

	if err := os.MkdirAll(cfg.Ingress.Dir, 0755); err != nil {
		log.Fatalln(err)
	}

	p, err := cfg.Pipeline(nil)
	if err != nil {
		log.Fatalln(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := ingress.Watch(ctx, p); err != nil {
		log.Fatalln(err)
	}
	log.Println("Watcher stopped")
}
