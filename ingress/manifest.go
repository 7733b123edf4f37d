package ingress

import (
	"sync"
)

const (
	StatusUninferred = "uninf"
	StatusInferred   = "inf"
)

// Entry tracks one received file: where it arrived, where its structured
// copy lives, and whether inference has run on it.
type Entry struct {
	File   string `csv:"file"`
	Path   string `csv:"path"`
	Status string `csv:"status"`
}

// Manifest is the CSV-persisted list of received files.
type Manifest struct {
	Path string

	mu      sync.Mutex
	entries []Entry
}

func OpenManifest(path string) (*Manifest, error) {
	m := &Manifest{Path: path}
	if err := readCSV(path, &m.entries); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Manifest) Append(e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries = append(m.entries, e)
	return writeCSV(m.Path, &m.entries)
}

// MarkInferred sets the status of every entry received as one of files.
func (m *Manifest) MarkInferred(files []string) error {
	if len(files) == 0 {
		return nil
	}

	want := make(map[string]struct{}, len(files))
	for _, f := range files {
		want[f] = struct{}{}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for i, e := range m.entries {
		if _, ok := want[e.File]; ok {
			m.entries[i].Status = StatusInferred
		}
	}
	return writeCSV(m.Path, &m.entries)
}

func (m *Manifest) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]Entry(nil), m.entries...)
}
