package tkvstats

import (
	"errors"
	"os"
	"path/filepath"
	"sort"

	"github.com/carbocation/pfx"
	"github.com/carbocation/tkvseg"
	"github.com/carbocation/tkvseg/artifact"
	"github.com/gocarina/gocsv"
	log "github.com/sirupsen/logrus"
	"gopkg.in/guregu/null.v3"
)

// Report holds every summary of a run: per model, and combined.
type Report struct {
	Models   []string
	PerModel map[string][]StudySummary
	Combined []StudySummary

	// Skipped lists model studies left out for lacking reference attributes
	Skipped []artifact.StudyRef
}

// Compute walks the artifact tree at root. Studies are processed one at a
// time, across all models, so at most one study's volumes are in memory.
// A non-empty patient restricts the run to that patient. Empty studies are
// skipped with a warning, as is any model's study missing reference
// attributes; the latter is recorded in Skipped.
func Compute(root, patient string, opts Options) (*Report, error) {
	models, err := artifact.Models(root)
	if err != nil {
		return nil, err
	}

	rep := &Report{Models: models, PerModel: make(map[string][]StudySummary, len(models))}

	// Group the same study across models, remembering model order
	byStudy := make(map[string][]artifact.StudyRef)
	for _, m := range models {
		refs, err := artifact.Studies(root, m, patient)
		if err != nil {
			return nil, err
		}
		for _, ref := range refs {
			byStudy[ref.Name()] = append(byStudy[ref.Name()], ref)
		}
	}

	names := make([]string, 0, len(byStudy))
	for k := range byStudy {
		names = append(names, k)
	}
	sort.Strings(names)

	for _, name := range names {
		perModel, combined, skipped, err := computeStudy(byStudy[name], opts)
		if err != nil {
			return nil, err
		}
		rep.Skipped = append(rep.Skipped, skipped...)
		for _, s := range perModel {
			rep.PerModel[s.Model] = append(rep.PerModel[s.Model], s)
		}
		if combined != nil {
			rep.Combined = append(rep.Combined, *combined)
		}
	}

	return rep, nil
}

func computeStudy(refs []artifact.StudyRef, opts Options) ([]StudySummary, *StudySummary, []artifact.StudyRef, error) {
	var (
		skipped   []artifact.StudyRef
		summaries []StudySummary
		preds     []Volume
		ground    Volume
	)

	for _, ref := range refs {
		study, err := artifact.LoadStudy(ref)
		if errors.Is(err, artifact.ErrEmptyStudy) {
			log.WithFields(log.Fields{"model": ref.Model, "study": ref.Dir}).Warnln("Skipping study with no slices")
			continue
		}
		if tkvseg.IsMissingMetadataError(err) {
			log.WithFields(log.Fields{"model": ref.Model, "study": ref.Dir, "error": err}).Warnln("Skipping study without reference attributes")
			skipped = append(skipped, ref)
			continue
		}
		if err != nil {
			return nil, nil, nil, err
		}

		pred, err := Stack(study.Preds)
		if err != nil {
			return nil, nil, nil, err
		}

		g := NewVolume(pred.Slices, pred.Rows, pred.Cols)
		if study.Ground != nil {
			if g, err = Stack(study.Ground); err != nil {
				return nil, nil, nil, err
			}
		}

		s, err := Summarize(pred, g, study.Reference(), opts)
		if err != nil {
			return nil, nil, nil, err
		}
		s.Model = ref.Model

		// Ground truth and attributes of the first model serve the ensemble
		if len(summaries) == 0 {
			ground = g
		}
		summaries = append(summaries, s)
		preds = append(preds, pred)
	}

	if len(summaries) == 0 {
		return nil, nil, skipped, nil
	}

	mean, spread, err := Combine(preds)
	if err != nil {
		return nil, nil, nil, err
	}

	combined, err := Summarize(mean, ground, summaries[0].Attributes, opts)
	if err != nil {
		return nil, nil, nil, err
	}
	combined.Model = CombinedModel
	combined.PredStdev = null.FloatFrom(spread)

	return summaries, &combined, skipped, nil
}

// WriteCSV writes summaries as CSV rows to path.
func WriteCSV(path string, summaries []StudySummary) error {
	rows := make([]Row, 0, len(summaries))
	for _, s := range summaries {
		rows = append(rows, s.Row())
	}

	f, err := os.Create(path)
	if err != nil {
		return pfx.Err(err)
	}
	defer f.Close()

	if err := gocsv.MarshalFile(&rows, f); err != nil {
		return pfx.Err(err)
	}

	return pfx.Err(f.Close())
}

// Write emits stats-<model>.csv for each model and
// stats-combined_models.csv into dir.
func (r *Report) Write(dir string) error {
	for _, m := range r.Models {
		if err := WriteCSV(filepath.Join(dir, "stats-"+m+".csv"), r.PerModel[m]); err != nil {
			return err
		}
	}

	return WriteCSV(filepath.Join(dir, "stats-"+CombinedModel+".csv"), r.Combined)
}
