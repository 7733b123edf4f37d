package dicomio

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/carbocation/tkvseg"
	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

// safelyParse consumes panics emitted by the dicom library, which are
// inappropriate and must be captured in order to turn them into recoverable
// errors.
func safelyParse(path string, opts ...dicom.ParseOption) (ds dicom.Dataset, err error) {
	defer func() {
		if panicErr := recover(); panicErr != nil {
			err = fmt.Errorf("%v", panicErr)
		}
	}()

	f, nbytes, err := tkvseg.OpenDecompressed(path)
	if err != nil {
		return dicom.Dataset{}, err
	}
	defer f.Close()

	return dicom.Parse(f, nbytes, nil, opts...)
}

func stringsOf(ds dicom.Dataset, t tag.Tag) []string {
	elem, err := ds.FindElementByTag(t)
	if err != nil || elem.Value == nil {
		return nil
	}

	v, _ := elem.Value.GetValue().([]string)
	return v
}

func firstString(ds dicom.Dataset, t tag.Tag) string {
	v := stringsOf(ds, t)
	if len(v) == 0 {
		return ""
	}
	return strings.TrimSpace(v[0])
}

func firstInt(ds dicom.Dataset, t tag.Tag) (int, bool) {
	elem, err := ds.FindElementByTag(t)
	if err != nil || elem.Value == nil {
		return 0, false
	}

	switch v := elem.Value.GetValue().(type) {
	case []int:
		if len(v) > 0 {
			return v[0], true
		}
	case []string:
		// IS-typed elements (e.g. SeriesNumber) arrive as strings
		if len(v) > 0 {
			n, err := strconv.Atoi(strings.TrimSpace(v[0]))
			return n, err == nil
		}
	}

	return 0, false
}

// decimals parses a DS multi-value element. Unparseable members stop the
// parse and report false.
func decimals(ds dicom.Dataset, t tag.Tag) ([]float64, bool) {
	raw := stringsOf(ds, t)
	if len(raw) == 0 {
		return nil, false
	}

	out := make([]float64, 0, len(raw))
	for _, v := range raw {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, false
		}
		out = append(out, f)
	}

	return out, true
}
