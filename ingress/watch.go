package ingress

import (
	"context"
	"os"

	"github.com/carbocation/pfx"
	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
)

// Watch handles every file created in p.Ingress until ctx is done. Failures
// on individual files are logged and do not stop the watch.
func Watch(ctx context.Context, p *Pipeline) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return pfx.Err(err)
	}
	defer w.Close()

	if err := w.Add(p.Ingress); err != nil {
		return pfx.Err(err)
	}
	log.Println("Watching", p.Ingress)

	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.WithField("error", err).Warnln("Watcher error")
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Create) {
				continue
			}
			if info, err := os.Stat(ev.Name); err != nil || info.IsDir() {
				continue
			}

			log.Println("Received", ev.Name)
			if err := p.Handle(ctx, ev.Name); err != nil {
				log.WithFields(log.Fields{"path": ev.Name, "error": err}).Warnln("Failed to handle file")
			}
		}
	}
}
