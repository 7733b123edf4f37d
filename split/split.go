// Package split assigns patients to named partitions (TRAIN, VAL, TEST) and
// restricts an index to one of them.
package split

import (
	"encoding/json"
	"io"
	"os"
	"sort"

	"github.com/carbocation/pfx"
	"github.com/carbocation/tkvseg"
	"github.com/carbocation/tkvseg/index"
)

// A Split maps a partition name to its patient IDs.
type Split map[string][]string

// Names returns the partition names, sorted.
func (s Split) Names() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// A Splitter partitions patient IDs.
type Splitter interface {
	Split(patients []string) (Split, error)
}

// Select returns the patients of one partition. An absent key is a
// ConfigurationError.
func Select(s Split, key string) ([]string, error) {
	ids, ok := s[key]
	if !ok {
		return nil, tkvseg.NewConfigurationError("split.key", "split has no partition %q (have %v)", key, s.Names())
	}
	return ids, nil
}

// Resolve splits every patient of idx, selects key and filters idx down to
// that partition. It also returns the partition's patient order. A
// partition that keeps no files is a ConfigurationError.
func Resolve(idx *index.Index, splitter Splitter, key string) (*index.Index, []string, error) {
	s, err := splitter.Split(idx.Order)
	if err != nil {
		return nil, nil, err
	}

	ids, err := Select(s, key)
	if err != nil {
		return nil, nil, err
	}

	filtered := index.FilterPatients(idx, ids)
	if filtered.Len() == 0 {
		return nil, nil, tkvseg.NewConfigurationError("split.key", "partition %q matches no indexed files", key)
	}

	return filtered, ids, nil
}

// Write encodes s as a JSON object of name to patient list.
func Write(w io.Writer, s Split) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

func WriteFile(path string, s Split) error {
	f, err := os.Create(path)
	if err != nil {
		return pfx.Err(err)
	}
	defer f.Close()

	if err := Write(f, s); err != nil {
		return pfx.Err(err)
	}

	return f.Close()
}

// Read decodes a JSON split.
func Read(r io.Reader) (Split, error) {
	var s Split
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return nil, err
	}
	return s, nil
}

// JSONSplitter returns a persisted split verbatim, ignoring the patients it
// is given. Path may be local or gs://.
type JSONSplitter struct {
	Path string
}

func (j JSONSplitter) Split(patients []string) (Split, error) {
	f, _, err := tkvseg.Open(j.Path)
	if err != nil {
		return nil, pfx.Err(err)
	}
	defer f.Close()

	s, err := Read(f)
	if err != nil {
		return nil, pfx.Err(err)
	}

	return s, nil
}
