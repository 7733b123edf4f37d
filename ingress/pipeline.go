// Package ingress receives DICOM files as they arrive, files them by patient
// and series, and hands complete patients to inference.
package ingress

import (
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/carbocation/pfx"
	"github.com/carbocation/tkvseg/dicomio"
	log "github.com/sirupsen/logrus"
)

// A Trigger runs inference over the files just collected into staging.
type Trigger interface {
	Run(ctx context.Context, staged []string) error
}

type TriggerFunc func(ctx context.Context, staged []string) error

func (f TriggerFunc) Run(ctx context.Context, staged []string) error { return f(ctx, staged) }

// CommandTrigger runs an external command, typically the inference binary
// with its config.
type CommandTrigger struct {
	Name string
	Args []string
}

func (c CommandTrigger) Run(ctx context.Context, staged []string) error {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return pfx.Err(cmd.Run())
}

// Pipeline holds the folders and books of one ingress deployment.
type Pipeline struct {
	Ingress    string
	Structured string
	Staging    string

	Manifest *Manifest
	Status   *StatusBook

	// Decoder defaults to dicomio.FileDecoder.
	Decoder dicomio.Decoder

	// Quiet defaults to DefaultQuiet.
	Quiet time.Duration

	Trigger Trigger

	// Now defaults to time.Now.
	Now func() time.Time
}

func (p *Pipeline) decoder() dicomio.Decoder {
	if p.Decoder == nil {
		return dicomio.FileDecoder{}
	}
	return p.Decoder
}

func (p *Pipeline) now() time.Time {
	if p.Now == nil {
		return time.Now()
	}
	return p.Now()
}

func (p *Pipeline) quiet() time.Duration {
	if p.Quiet <= 0 {
		return DefaultQuiet
	}
	return p.Quiet
}

func underscored(s string) string {
	return strings.ReplaceAll(s, " ", "_")
}

// StructuredPath is where src is filed:
// <structured>/<patient>/<series number>/<series description>/<file name>.
func (p *Pipeline) StructuredPath(src string, meta dicomio.Meta) string {
	return filepath.Join(p.Structured,
		underscored(meta.PatientID),
		underscored(meta.SeriesNumber),
		underscored(meta.SeriesDescription),
		filepath.Base(src))
}

// Structure copies src into the structured tree, records it in the manifest
// as uninferred and touches its patient. The original stays in ingress.
func (p *Pipeline) Structure(src string) (string, error) {
	meta, err := p.decoder().Meta(src)
	if err != nil {
		return "", err
	}

	dst := p.StructuredPath(src, meta)
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return "", pfx.Err(err)
	}
	if err := copyFile(src, dst); err != nil {
		return "", err
	}

	if err := p.Manifest.Append(Entry{File: src, Path: dst, Status: StatusUninferred}); err != nil {
		return "", err
	}

	if err := p.Status.Touch(meta.PatientID, p.now()); err != nil {
		return "", err
	}

	return dst, nil
}

// Collect moves the ingress files of every stable patient into staging and
// returns their original ingress paths.
func (p *Pipeline) Collect() ([]string, error) {
	stable := p.Status.Stable(p.now(), p.quiet())
	if len(stable) == 0 {
		return nil, nil
	}
	log.Println("Stable patients:", stable)

	isStable := make(map[string]struct{}, len(stable))
	for _, s := range stable {
		isStable[s] = struct{}{}
	}

	entries, err := os.ReadDir(p.Ingress)
	if err != nil {
		return nil, pfx.Err(err)
	}

	if err := os.MkdirAll(p.Staging, 0755); err != nil {
		return nil, pfx.Err(err)
	}

	var moved []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		src := filepath.Join(p.Ingress, e.Name())

		meta, err := p.decoder().Meta(src)
		if err != nil {
			log.WithFields(log.Fields{"path": src, "error": err}).Warnln("Leaving unreadable file in ingress")
			continue
		}
		if _, ok := isStable[meta.PatientID]; !ok {
			continue
		}

		if err := moveFile(src, filepath.Join(p.Staging, e.Name())); err != nil {
			return moved, err
		}
		moved = append(moved, src)
	}

	return moved, nil
}

// Handle processes one newly arrived file: structure it, collect stable
// patients, run the trigger and mark what was collected as inferred.
func (p *Pipeline) Handle(ctx context.Context, src string) error {
	if _, err := p.Structure(src); err != nil {
		return err
	}

	moved, err := p.Collect()
	if err != nil {
		return err
	}
	if len(moved) == 0 {
		return nil
	}

	if p.Trigger != nil {
		staged := make([]string, len(moved))
		for i, m := range moved {
			staged[i] = filepath.Join(p.Staging, filepath.Base(m))
		}
		if err := p.Trigger.Run(ctx, staged); err != nil {
			return err
		}
	}

	return p.Manifest.MarkInferred(moved)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return pfx.Err(err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return pfx.Err(err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return pfx.Err(err)
	}

	return pfx.Err(out.Close())
}

// moveFile renames, falling back to copy and delete across filesystems.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	if err := copyFile(src, dst); err != nil {
		return err
	}
	return pfx.Err(os.Remove(src))
}
