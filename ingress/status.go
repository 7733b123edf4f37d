package ingress

import (
	"os"
	"sort"
	"sync"
	"time"

	"github.com/carbocation/pfx"
	"github.com/gocarina/gocsv"
)

// DefaultQuiet is how long a patient must go without new files before its
// series are considered complete.
const DefaultQuiet = 10 * time.Minute

type patientStatus struct {
	Patient      string `csv:"patient"`
	LastModified int64  `csv:"last_modified"`
}

// StatusBook records when each patient last received a file. It is
// persisted as CSV at Path after every change.
type StatusBook struct {
	Path string

	mu   sync.Mutex
	last map[string]int64
}

// OpenStatusBook reads the book at path. A missing or empty file is an empty
// book.
func OpenStatusBook(path string) (*StatusBook, error) {
	book := &StatusBook{Path: path, last: make(map[string]int64)}

	var rows []patientStatus
	if err := readCSV(path, &rows); err != nil {
		return nil, err
	}
	for _, r := range rows {
		book.last[r.Patient] = r.LastModified
	}

	return book, nil
}

// Touch sets the patient's last-modified time and saves the book.
func (b *StatusBook) Touch(patient string, now time.Time) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.last[patient] = now.Unix()
	return b.save()
}

// LastModified reports when the patient last received a file.
func (b *StatusBook) LastModified(patient string) (time.Time, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sec, ok := b.last[patient]
	if !ok {
		return time.Time{}, false
	}
	return time.Unix(sec, 0), true
}

// Stable lists, sorted, the patients untouched for at least quiet.
func (b *StatusBook) Stable(now time.Time, quiet time.Duration) []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []string
	for patient, sec := range b.last {
		if now.Sub(time.Unix(sec, 0)) >= quiet {
			out = append(out, patient)
		}
	}
	sort.Strings(out)

	return out
}

func (b *StatusBook) save() error {
	rows := make([]patientStatus, 0, len(b.last))
	for patient, sec := range b.last {
		rows = append(rows, patientStatus{Patient: patient, LastModified: sec})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Patient < rows[j].Patient })

	return writeCSV(b.Path, &rows)
}

func readCSV(path string, out interface{}) error {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil
	} else if err != nil {
		return pfx.Err(err)
	}
	defer f.Close()

	if info, err := f.Stat(); err != nil {
		return pfx.Err(err)
	} else if info.Size() == 0 {
		return nil
	}

	return pfx.Err(gocsv.UnmarshalFile(f, out))
}

func writeCSV(path string, in interface{}) error {
	f, err := os.Create(path)
	if err != nil {
		return pfx.Err(err)
	}

	if err := gocsv.MarshalFile(in, f); err != nil {
		f.Close()
		return pfx.Err(err)
	}

	return pfx.Err(f.Close())
}
